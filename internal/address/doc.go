// Package address keeps the delivery address book of the active identity.
//
// The selected address is stored as an id and always refers to a member of
// the book or is empty. Both the set and the selection are identity scoped
// (userAddresses_<key>, selectedAddress_<key>); older unscoped slots are
// migrated on the first reload that finds no scoped data.
package address
