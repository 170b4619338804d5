// Package cart holds the shopping cart and order history of the active
// identity.
//
// Line items are unique per (product id, size): adding the same pair again
// bumps its quantity. Completing an order snapshots the items, total and
// selected delivery address into an Order, appends it to the history and
// empties the cart. Both collections live in identity-scoped slots and are
// swapped wholesale by ReloadFromStorage when the identity changes.
package cart
