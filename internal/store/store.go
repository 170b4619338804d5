// ABOUTME: Storage interface for durable key/value slots backing client state
// ABOUTME: Defines the well-known unscoped slot names and storage errors

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested slot does not exist
var ErrNotFound = errors.New("not found")

// ErrQuotaExceeded is returned when a write would push the store past its byte quota
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Well-known slots that are never identity scoped.
const (
	SlotCurrentUserKey = "current_user_key"
	SlotToken          = "token"
	SlotExternalUser   = "google_user"
	SlotTheme          = "theme"
	SlotConfirmations  = "payment_confirmations"
)

// Storage is a durable string key/value store, the process-wide analogue of
// browser local storage. Values are opaque strings, normally JSON.
type Storage interface {
	// GetItem returns the value stored under key or ErrNotFound.
	GetItem(ctx context.Context, key string) (string, error)
	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
	// Keys lists stored keys with the given prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store
	Close() error
}
