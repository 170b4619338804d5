// Package resync swaps container state when the identity key changes.
//
// Startup, login, a completed profile fetch and logout each call Sync with
// the current auth state. Sync makes the derived key active before any
// container reloads, so no container ever reads the previous identity's
// namespace. Syncing twice with no key change reloads the same data.
package resync
