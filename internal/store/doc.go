// Package store provides durable key/value slots for client state.
//
// # Architecture
//
// Storage is the single shared mutable resource of the storefront client. It
// mirrors the semantics of browser local storage: string keys, string values
// (normally JSON), last write wins. Nothing in this package knows about users
// or collections; namespacing is layered on top by package scoped.
//
// SQLiteStore implements Storage on a single `slots` table:
//
//	CREATE TABLE slots (key TEXT PRIMARY KEY, value TEXT, updated_at TEXT);
//
// # Well-known slots
//
// A handful of slots are never identity scoped:
//
//   - current_user_key: the last resolved identity key
//   - token: bearer token of the signed-in user
//   - google_user: decoded external identity provider claims
//   - theme: light/dark preference
//
// # Quota
//
// WithQuota bounds the total bytes held. Writes that would exceed the bound
// fail with ErrQuotaExceeded, the equivalent of a browser quota error.
//
// # Testing
//
// Use NewMockStore() for unit tests. It can inject read and write failures:
//
//	s := store.NewMockStore()
//	s.FailWrites(store.ErrStorageDisabled)
//
// Use NewSQLiteStore(":memory:") for integration tests with real SQLite.
package store
