// ABOUTME: Product cache container backed by the storefront API
// ABOUTME: Tracks fetch status and error as plain state; concurrent fetches share one request

package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/2389/storefront/internal/api"
)

// ErrNotAuthenticated is returned by mutations attempted without a session token.
var ErrNotAuthenticated = errors.New("not authenticated")

// Status is the state of the last product fetch.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// State is a snapshot of the catalog.
type State struct {
	Items  []api.Product
	Status Status
	Error  string
}

// Backend is the subset of the API client the catalog uses.
type Backend interface {
	ListProducts(ctx context.Context) ([]api.Product, error)
	GetProduct(ctx context.Context, id int) (*api.Product, error)
	CreateProduct(ctx context.Context, token string, in api.ProductInput) (*api.Product, error)
	UpdateProduct(ctx context.Context, token string, id int, patch api.ProductPatch) (*api.Product, error)
	DeleteProduct(ctx context.Context, token string, id int) error
}

// TokenSource supplies the API bearer token for mutations. An empty token
// means the session cannot call authenticated endpoints.
type TokenSource interface {
	APIToken() string
}

// Catalog caches the product list.
type Catalog struct {
	backend Backend
	tokens  TokenSource
	logger  *slog.Logger
	group   singleflight.Group

	mu    sync.RWMutex
	state State
}

// New creates an idle, empty catalog.
func New(backend Backend, tokens TokenSource, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		backend: backend,
		tokens:  tokens,
		logger:  logger.With("component", "catalog"),
		state:   State{Status: StatusIdle},
	}
}

// Snapshot returns a copy of the current state.
func (c *Catalog) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.state
	s.Items = append([]api.Product(nil), c.state.Items...)
	return s
}

// Fetch reloads the product list. Callers that arrive while a fetch is in
// flight wait for and share its result. On failure the previous items are
// kept and the error is recorded in the state as well as returned.
func (c *Catalog) Fetch(ctx context.Context) error {
	_, err, shared := c.group.Do("products", func() (any, error) {
		c.mu.Lock()
		c.state.Status = StatusLoading
		c.mu.Unlock()

		products, err := c.backend.ListProducts(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.state.Status = StatusFailed
			c.state.Error = err.Error()
			c.logger.Warn("fetching products failed", "error", err)
			return nil, err
		}
		c.state.Items = append([]api.Product(nil), products...)
		c.state.Status = StatusSucceeded
		c.state.Error = ""
		c.logger.Debug("fetched products", "count", len(products))
		return nil, nil
	})
	if shared {
		c.logger.Debug("joined in-flight product fetch")
	}
	return err
}

// Get returns a product from the cache, falling back to the API.
func (c *Catalog) Get(ctx context.Context, id int) (*api.Product, error) {
	c.mu.RLock()
	for _, p := range c.state.Items {
		if p.ID == id {
			c.mu.RUnlock()
			return &p, nil
		}
	}
	c.mu.RUnlock()

	return c.backend.GetProduct(ctx, id)
}

// Create adds a product and appends it to the cache.
func (c *Catalog) Create(ctx context.Context, in api.ProductInput) (*api.Product, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}
	p, err := c.backend.CreateProduct(ctx, token, in)
	if err != nil {
		c.recordError(err)
		return nil, err
	}

	c.mu.Lock()
	c.state.Items = append(c.state.Items, *p)
	c.mu.Unlock()
	c.logger.Info("created product", "product_id", p.ID)
	return p, nil
}

// Update changes a product and replaces the cached copy if present.
func (c *Catalog) Update(ctx context.Context, id int, patch api.ProductPatch) (*api.Product, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}
	p, err := c.backend.UpdateProduct(ctx, token, id, patch)
	if err != nil {
		c.recordError(err)
		return nil, err
	}

	c.mu.Lock()
	for i := range c.state.Items {
		if c.state.Items[i].ID == p.ID {
			c.state.Items[i] = *p
			break
		}
	}
	c.mu.Unlock()
	c.logger.Info("updated product", "product_id", p.ID)
	return p, nil
}

// Delete removes a product and drops it from the cache.
func (c *Catalog) Delete(ctx context.Context, id int) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	if err := c.backend.DeleteProduct(ctx, token, id); err != nil {
		c.recordError(err)
		return err
	}

	c.mu.Lock()
	kept := make([]api.Product, 0, len(c.state.Items))
	for _, p := range c.state.Items {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	c.state.Items = kept
	c.mu.Unlock()
	c.logger.Info("deleted product", "product_id", id)
	return nil
}

func (c *Catalog) token() (string, error) {
	if c.tokens == nil {
		return "", ErrNotAuthenticated
	}
	t := c.tokens.APIToken()
	if t == "" {
		return "", ErrNotAuthenticated
	}
	return t, nil
}

// recordError stores a mutation failure without touching the fetch status.
func (c *Catalog) recordError(err error) {
	c.mu.Lock()
	c.state.Error = err.Error()
	c.mu.Unlock()
	c.logger.Warn("product mutation failed", "error", err)
}
