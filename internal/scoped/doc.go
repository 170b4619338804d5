// Package scoped namespaces persisted collections by identity key.
//
// A collection named "cart" is stored under "cart_<key>" where key is the
// identity key active at the moment of the call, never a cached one:
//
//	acc := scoped.New(storage, resolver, logger)
//	acc.Write(ctx, scoped.Cart, items)   // cart_guest
//	resolver.Resolve(ctx, state)         // now "42"
//	acc.Read(ctx, scoped.Cart, &items)   // cart_42
//
// Persistence is best effort. Reads of missing or corrupt slots report false
// and writes that fail (quota, disabled storage, encoding) are logged and
// dropped, so in-memory state stays authoritative for the rest of the call.
package scoped
