// ABOUTME: Application root that owns storage and every client-state container
// ABOUTME: Wires identity resolution, resync, session, catalog, cart, checkout and theme together

package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/2389/storefront/internal/address"
	"github.com/2389/storefront/internal/api"
	"github.com/2389/storefront/internal/cart"
	"github.com/2389/storefront/internal/catalog"
	"github.com/2389/storefront/internal/checkout"
	"github.com/2389/storefront/internal/config"
	"github.com/2389/storefront/internal/dedupe"
	"github.com/2389/storefront/internal/identity"
	"github.com/2389/storefront/internal/payment"
	"github.com/2389/storefront/internal/resync"
	"github.com/2389/storefront/internal/scoped"
	"github.com/2389/storefront/internal/session"
	"github.com/2389/storefront/internal/store"
	"github.com/2389/storefront/internal/theme"
	"github.com/2389/storefront/internal/wishlist"
)

// ErrCheckoutDisabled is returned when checkout is used without a payment link configured.
var ErrCheckoutDisabled = errors.New("checkout is not configured (set checkout.payment_link)")

// Backend is the REST API surface the application depends on.
type Backend interface {
	session.Backend
	catalog.Backend
}

// App holds one instance of every container. Nothing in the tree is a
// package-level singleton; tests build as many Apps as they like.
type App struct {
	config  *config.Config
	storage store.Storage
	logger  *slog.Logger

	Resolver  *identity.Resolver
	Scoped    *scoped.Accessor
	Resync    *resync.Orchestrator
	Session   *session.Session
	Catalog   *catalog.Catalog
	Cart      *cart.Cart
	Wishlist  *wishlist.Wishlist
	Addresses *address.Book
	Payments  *payment.Tracker
	Theme     *theme.Preference

	checkout *checkout.Service
	replays  *dedupe.Cache
}

// New opens the slot database named by cfg and builds the application
// against the configured API.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbPath := cfg.Storage.Path
	if envPath := os.Getenv("STOREFRONT_DB_PATH"); envPath != "" {
		dbPath = envPath
	}
	s, err := store.NewSQLiteStore(dbPath,
		store.WithQuota(cfg.Storage.QuotaBytes),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	client := api.NewClient(cfg.API.BaseURL, api.WithTimeout(cfg.API.Timeout))

	app, err := NewWithDeps(cfg, s, client, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return app, nil
}

// NewWithDeps builds the application over an existing store and backend.
// The App takes ownership of storage and closes it in Close.
func NewWithDeps(cfg *config.Config, storage store.Storage, backend Backend, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fallback, err := theme.Parse(cfg.Theme.Default)
	if err != nil {
		return nil, fmt.Errorf("theme.default: %w", err)
	}

	resolver := identity.NewResolver(storage, logger)
	acc := scoped.New(storage, resolver, logger)

	book := address.NewBook(acc, logger)
	c := cart.New(acc, book, logger)
	w := wishlist.New(acc, logger)

	// Registration order is reload order: addresses first so the cart sees
	// the new identity's selected delivery address.
	orch := resync.New(resolver, logger, book, c, w)

	sess := session.New(backend, acc, orch, resolver, logger)
	payments := payment.NewTracker(logger)

	app := &App{
		config:    cfg,
		storage:   storage,
		logger:    logger.With("component", "storefront"),
		Resolver:  resolver,
		Scoped:    acc,
		Resync:    orch,
		Session:   sess,
		Catalog:   catalog.New(backend, sess, logger),
		Cart:      c,
		Wishlist:  w,
		Addresses: book,
		Payments:  payments,
		Theme:     theme.New(acc, fallback, logger),
	}

	if cfg.Checkout.Enabled() {
		app.replays = dedupe.New(cfg.Checkout.ConfirmationTTL, cfg.Checkout.ReplayCacheSize,
			dedupe.WithStorage(storage, store.SlotConfirmations),
			dedupe.WithLogger(logger),
		)
		verifier := checkout.NewVerifier([]byte(cfg.Checkout.CallbackSecret))
		app.checkout = checkout.NewService(acc, c, payments, verifier, app.replays, cfg.Checkout.PaymentLink, logger)
	}

	return app, nil
}

// Start restores persisted state: the session and its identity key, every
// container under that key, the theme, and the replay cache. Unreadable
// slots fall back to their empty state, so Start does not fail on storage.
func (a *App) Start(ctx context.Context) error {
	a.Session.Restore(ctx)
	a.Theme.Load(ctx)

	replayKeys := 0
	if a.replays != nil {
		replayKeys = a.replays.Load(ctx)
	}

	a.logger.Debug("storefront started",
		"identity", a.Resolver.Current(),
		"authenticated", a.Session.Authenticated(),
		"replay_keys", replayKeys,
	)
	return nil
}

// Refresh fetches the product catalog and, when signed in with API
// credentials, the profile, in parallel. External identities carry no API
// profile. A profile response made stale by a concurrent login or logout is
// not an error.
func (a *App) Refresh(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Catalog.Fetch(ctx)
	})
	if snap := a.Session.State(); snap.Authenticated() && snap.External == nil {
		g.Go(func() error {
			err := a.Session.FetchProfile(ctx)
			if errors.Is(err, session.ErrSuperseded) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// Checkout returns the checkout service, or ErrCheckoutDisabled.
func (a *App) Checkout() (*checkout.Service, error) {
	if a.checkout == nil {
		return nil, ErrCheckoutDisabled
	}
	return a.checkout, nil
}

// Config returns the configuration the App was built with.
func (a *App) Config() *config.Config {
	return a.config
}

// Close stops background work and closes the store.
func (a *App) Close() error {
	if a.replays != nil {
		a.replays.Close()
	}
	if err := a.storage.Close(); err != nil {
		return fmt.Errorf("store close: %w", err)
	}
	return nil
}
