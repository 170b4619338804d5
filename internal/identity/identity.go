// ABOUTME: Identity key resolution from the current auth session
// ABOUTME: Derives the storage namespace key and persists it for recovery on restart

package identity

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/2389/storefront/internal/store"
)

// Key is the namespace discriminator for per-user persisted collections.
type Key string

// Guest is the key used whenever no authenticated identity is known.
const Guest Key = "guest"

// Profile is the account profile returned by the storefront API.
type Profile struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"creationAt"`
}

// ExternalUser holds the claims of a credential issued by the external
// identity provider.
type ExternalUser struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// State is the slice of the auth session that identity resolution depends on.
// A non-empty Token means authenticated, whether or not a profile is loaded.
type State struct {
	Token    string
	Profile  *Profile
	External *ExternalUser
}

// Authenticated reports whether a token is present.
func (s State) Authenticated() bool {
	return s.Token != ""
}

// Derive computes the identity key for s without side effects.
//
// No token yields Guest. With a token, an external identity wins over an API
// profile; subject ids win over emails. A token with no identity yet is
// provisionally Guest and must be re-derived once the profile arrives.
func Derive(s State) Key {
	if !s.Authenticated() {
		return Guest
	}
	if u := s.External; u != nil {
		if u.Subject != "" {
			return Key(u.Subject)
		}
		if u.Email != "" {
			return Key(u.Email)
		}
	}
	if p := s.Profile; p != nil {
		if p.ID != 0 {
			return Key(strconv.Itoa(p.ID))
		}
		if p.Email != "" {
			return Key(p.Email)
		}
	}
	return Guest
}

// Resolver tracks the active identity key and mirrors it into the
// current_user_key slot.
type Resolver struct {
	storage store.Storage
	logger  *slog.Logger

	mu      sync.RWMutex
	current Key
}

// NewResolver creates a resolver whose active key is Guest.
func NewResolver(storage store.Storage, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		storage: storage,
		logger:  logger.With("component", "identity"),
		current: Guest,
	}
}

// Current returns the active identity key. It is never empty.
func (r *Resolver) Current() Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Resolve derives the key for s, makes it active, and persists it.
// Persistence failures are logged and otherwise ignored.
func (r *Resolver) Resolve(ctx context.Context, s State) Key {
	key := Derive(s)

	r.mu.Lock()
	prev := r.current
	r.current = key
	r.mu.Unlock()

	if err := r.storage.SetItem(ctx, store.SlotCurrentUserKey, string(key)); err != nil {
		r.logger.Warn("persisting identity key failed", "key", key, "error", err)
	}
	if prev != key {
		r.logger.Info("identity key changed", "from", prev, "to", key)
	}
	return key
}

// Recover restores the key persisted by a previous process. Without a token
// the key is Guest regardless of what was persisted.
func (r *Resolver) Recover(ctx context.Context, hasToken bool) Key {
	key := Guest
	if hasToken {
		v, err := r.storage.GetItem(ctx, store.SlotCurrentUserKey)
		switch {
		case err == nil && v != "":
			key = Key(v)
		case err != nil && !errors.Is(err, store.ErrNotFound):
			r.logger.Warn("reading persisted identity key failed", "error", err)
		}
	}

	r.mu.Lock()
	r.current = key
	r.mu.Unlock()

	r.logger.Debug("recovered identity key", "key", key, "has_token", hasToken)
	return key
}
