// ABOUTME: Wishlist container keyed by product id
// ABOUTME: Mirrors every mutation into the identity-scoped wishlist slot

package wishlist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/storefront/internal/scoped"
)

// Item is a saved product.
type Item struct {
	ProductID int     `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
}

// Patch holds the fields to change in Update; nil fields are left alone.
type Patch struct {
	Title *string
	Price *float64
	Image *string
}

// Wishlist owns the saved items of the active identity.
type Wishlist struct {
	acc    *scoped.Accessor
	logger *slog.Logger

	mu    sync.Mutex
	items []Item
}

// New creates an empty wishlist. Call ReloadFromStorage to load persisted state.
func New(acc *scoped.Accessor, logger *slog.Logger) *Wishlist {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wishlist{
		acc:    acc,
		logger: logger.With("component", "wishlist"),
	}
}

// Items returns a copy of the saved items in insertion order.
func (w *Wishlist) Items() []Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Item(nil), w.items...)
}

// Contains reports whether productID is saved.
func (w *Wishlist) Contains(productID int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.indexLocked(productID) >= 0
}

// Add saves item unless its product is already present. It reports whether
// the item was appended.
func (w *Wishlist) Add(ctx context.Context, item Item) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	added := false
	if w.indexLocked(item.ProductID) < 0 {
		w.items = append(w.items, item)
		added = true
	}
	w.persistLocked(ctx)
	return added
}

// Remove deletes the item for productID. Unknown ids are ignored.
func (w *Wishlist) Remove(ctx context.Context, productID int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexLocked(productID)
	if i < 0 {
		return
	}
	w.items = append(w.items[:i], w.items[i+1:]...)
	w.persistLocked(ctx)
}

// Toggle adds item if absent and removes it otherwise. It reports whether
// the item is saved afterwards.
func (w *Wishlist) Toggle(ctx context.Context, item Item) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if i := w.indexLocked(item.ProductID); i >= 0 {
		w.items = append(w.items[:i], w.items[i+1:]...)
		w.persistLocked(ctx)
		return false
	}
	w.items = append(w.items, item)
	w.persistLocked(ctx)
	return true
}

// Update applies p to the item for productID. Unknown ids are ignored.
func (w *Wishlist) Update(ctx context.Context, productID int, p Patch) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.indexLocked(productID)
	if i < 0 {
		return
	}
	it := &w.items[i]
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.Price != nil {
		it.Price = *p.Price
	}
	if p.Image != nil {
		it.Image = *p.Image
	}
	w.persistLocked(ctx)
}

// Clear removes every item.
func (w *Wishlist) Clear(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.items = nil
	w.persistLocked(ctx)
}

// ReloadFromStorage discards in-memory state and loads the active identity's wishlist.
func (w *Wishlist) ReloadFromStorage(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var items []Item
	if !w.acc.Read(ctx, scoped.Wishlist, &items) {
		items = nil
	}
	w.items = items
	w.logger.Debug("reloaded wishlist", "identity", w.acc.Identity(), "count", len(items))
}

func (w *Wishlist) indexLocked(productID int) int {
	for i := range w.items {
		if w.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (w *Wishlist) persistLocked(ctx context.Context) {
	items := w.items
	if items == nil {
		items = []Item{}
	}
	w.acc.Write(ctx, scoped.Wishlist, items)
}
