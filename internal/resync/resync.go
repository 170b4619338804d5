// ABOUTME: Resync orchestrator that reloads containers after identity changes
// ABOUTME: Resolves the identity key first, then reloads every registered container in order

package resync

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/storefront/internal/identity"
)

// Trigger names the event that caused a resync.
type Trigger string

const (
	TriggerStartup Trigger = "startup"
	TriggerLogin   Trigger = "login"
	TriggerProfile Trigger = "profile"
	TriggerLogout  Trigger = "logout"
)

// Reloader is a container that can discard its state and reload it from
// the active identity's namespace.
type Reloader interface {
	ReloadFromStorage(ctx context.Context)
}

// KeyResolver makes the key for an auth state active.
type KeyResolver interface {
	Resolve(ctx context.Context, s identity.State) identity.Key
}

// Orchestrator sequences key resolution and container reloads.
type Orchestrator struct {
	resolver  KeyResolver
	reloaders []Reloader
	logger    *slog.Logger

	// Serializes syncs so two triggers cannot interleave resolve and reload.
	mu sync.Mutex
}

// New creates an orchestrator. Reloaders run in the order given.
func New(resolver KeyResolver, logger *slog.Logger, reloaders ...Reloader) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		resolver:  resolver,
		reloaders: reloaders,
		logger:    logger.With("component", "resync"),
	}
}

// Sync resolves the identity key for s and then reloads every container.
// Reloads never start before the new key is active.
func (o *Orchestrator) Sync(ctx context.Context, s identity.State, trigger Trigger) identity.Key {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := o.resolver.Resolve(ctx, s)
	for _, r := range o.reloaders {
		r.ReloadFromStorage(ctx)
	}
	o.logger.Debug("resynced containers", "trigger", trigger, "identity", key, "containers", len(o.reloaders))
	return key
}

// Reload reloads every container under the key that is already active. It
// is used at startup, after the persisted key has been recovered.
func (o *Orchestrator) Reload(ctx context.Context, trigger Trigger) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, r := range o.reloaders {
		r.ReloadFromStorage(ctx)
	}
	o.logger.Debug("reloaded containers", "trigger", trigger, "containers", len(o.reloaders))
}
