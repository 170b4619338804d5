// Package identity resolves the identity key that namespaces per-user state.
//
// The key is "guest" unless a token is present and an identity is known:
//
//	no token                       -> guest
//	token + external credential    -> subject (or email)
//	token + API profile            -> profile id (or email)
//	token, identity not loaded yet -> guest (provisional)
//
// Resolver keeps the active key and writes it to the current_user_key slot so
// a new process can recover it before the profile is fetched again.
package identity
