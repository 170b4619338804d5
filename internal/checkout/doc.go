// Package checkout hands a cart off to the hosted payment page and records
// the order once payment is proven.
//
// Begin stores a pending checkout in the identity's "checkout" slot and
// returns the payment URL tagged with client_reference_id. The payment relay
// answers with an HS256 confirmation token; Confirm verifies it against the
// pending checkout, then checks the paid amount while the cart is locked for
// order completion. Reaching a success page without a valid token records
// nothing.
package checkout
