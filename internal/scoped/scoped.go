// ABOUTME: Scoped storage accessor that namespaces collections by identity key
// ABOUTME: Best-effort JSON reads and writes; storage failures never reach the caller

package scoped

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/2389/storefront/internal/identity"
	"github.com/2389/storefront/internal/store"
)

// Collection names persisted per identity.
const (
	Cart            = "cart"
	Orders          = "orders"
	Wishlist        = "wishlist"
	Addresses       = "userAddresses"
	SelectedAddress = "selectedAddress"
	Checkout        = "checkout"
)

var collections = []string{Cart, Orders, Wishlist, Addresses, SelectedAddress, Checkout}

// KeySource supplies the active identity key.
type KeySource interface {
	Current() identity.Key
}

// Accessor reads and writes JSON values under identity-namespaced keys. It
// holds no state of its own; the key is computed on every access.
type Accessor struct {
	storage store.Storage
	keys    KeySource
	logger  *slog.Logger
}

// New creates an Accessor over storage using keys for namespacing.
func New(storage store.Storage, keys KeySource, logger *slog.Logger) *Accessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accessor{
		storage: storage,
		keys:    keys,
		logger:  logger.With("component", "scoped"),
	}
}

// Key returns the storage key for collection under the active identity.
func (a *Accessor) Key(collection string) string {
	return collection + "_" + string(a.keys.Current())
}

// Identity returns the active identity key.
func (a *Accessor) Identity() identity.Key {
	return a.keys.Current()
}

// Collections lists the collections with a stored slot under the active
// identity, in declaration order. A listing failure is logged and yields nil.
func (a *Accessor) Collections(ctx context.Context) []string {
	var found []string
	for _, c := range collections {
		key := a.Key(c)
		keys, err := a.storage.Keys(ctx, key)
		if err != nil {
			a.logger.Warn("listing slots failed", "prefix", key, "error", err)
			return nil
		}
		for _, k := range keys {
			if k == key {
				found = append(found, c)
				break
			}
		}
	}
	return found
}

// Read decodes the collection into dst. It reports false when the slot is
// missing, unreadable, or not valid JSON; callers decode into a fresh value
// and keep their default on false.
func (a *Accessor) Read(ctx context.Context, collection string, dst any) bool {
	return a.ReadGlobal(ctx, a.Key(collection), dst)
}

// Write encodes v into the collection. Failures are logged and dropped.
func (a *Accessor) Write(ctx context.Context, collection string, v any) {
	a.WriteGlobal(ctx, a.Key(collection), v)
}

// Remove deletes the collection slot. Failures are logged and dropped.
func (a *Accessor) Remove(ctx context.Context, collection string) {
	a.RemoveGlobal(ctx, a.Key(collection))
}

// ReadGlobal is Read for an unscoped slot.
func (a *Accessor) ReadGlobal(ctx context.Context, key string, dst any) bool {
	raw, err := a.storage.GetItem(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("reading slot failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		a.logger.Warn("decoding slot failed", "key", key, "error", err)
		return false
	}
	return true
}

// WriteGlobal is Write for an unscoped slot.
func (a *Accessor) WriteGlobal(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		a.logger.Warn("encoding slot failed", "key", key, "error", err)
		return
	}
	if err := a.storage.SetItem(ctx, key, string(data)); err != nil {
		a.logger.Warn("writing slot failed", "key", key, "error", err)
	}
}

// RemoveGlobal is Remove for an unscoped slot.
func (a *Accessor) RemoveGlobal(ctx context.Context, key string) {
	if err := a.storage.RemoveItem(ctx, key); err != nil {
		a.logger.Warn("removing slot failed", "key", key, "error", err)
	}
}

// ReadString returns the raw value of an unscoped slot, or "" when absent.
func (a *Accessor) ReadString(ctx context.Context, key string) string {
	v, err := a.storage.GetItem(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("reading slot failed", "key", key, "error", err)
		}
		return ""
	}
	return v
}

// WriteString stores a raw value in an unscoped slot.
func (a *Accessor) WriteString(ctx context.Context, key, value string) {
	if err := a.storage.SetItem(ctx, key, value); err != nil {
		a.logger.Warn("writing slot failed", "key", key, "error", err)
	}
}
