// Package storefront assembles the client application.
//
// App owns the slot store and one instance of each container. Construction
// wires them in dependency order:
//
//	identity.Resolver -> scoped.Accessor -> address.Book, cart.Cart, wishlist.Wishlist
//	                                    -> resync.Orchestrator (book, cart, wishlist)
//	                                    -> session.Session -> catalog.Catalog
//	payment.Tracker + dedupe.Cache + checkout.Verifier -> checkout.Service
//
// Start restores the previous process's session and identity key before any
// container is read. Checkout is only built when a payment link is configured;
// App.Checkout returns ErrCheckoutDisabled otherwise.
package storefront
