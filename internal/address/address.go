// ABOUTME: Address book container with a selected delivery address
// ABOUTME: Persists addresses and the selection per identity through the scoped accessor

package address

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/storefront/internal/scoped"
)

// ErrStreetRequired is returned when adding an address without a street.
var ErrStreetRequired = errors.New("street is required")

// Legacy unscoped slots written by older clients.
const (
	legacyAddressesSlot = "userAddresses"
	legacySelectedSlot  = "selectedAddress"
)

// GeoPoint is a map coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is a saved delivery address.
type Address struct {
	ID         string    `json:"id"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	PostalCode string    `json:"postalCode"`
	Location   *GeoPoint `json:"location,omitempty"`
}

func (a Address) clone() Address {
	if a.Location != nil {
		loc := *a.Location
		a.Location = &loc
	}
	return a
}

// Patch holds the fields to change in Update; nil fields are left alone.
type Patch struct {
	Street     *string
	City       *string
	PostalCode *string
	Location   *GeoPoint
}

// Book owns the address set and the selected address id for the active identity.
type Book struct {
	acc    *scoped.Accessor
	logger *slog.Logger

	mu        sync.Mutex
	addresses []Address
	selected  string
}

// NewBook creates an empty book. Call ReloadFromStorage to load persisted state.
func NewBook(acc *scoped.Accessor, logger *slog.Logger) *Book {
	if logger == nil {
		logger = slog.Default()
	}
	return &Book{
		acc:    acc,
		logger: logger.With("component", "address"),
	}
}

// All returns a copy of the saved addresses.
func (b *Book) All() []Address {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Address, len(b.addresses))
	for i, a := range b.addresses {
		out[i] = a.clone()
	}
	return out
}

// Selected returns a copy of the selected address, or nil if none.
func (b *Book) Selected() *Address {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.indexLocked(b.selected); i >= 0 {
		a := b.addresses[i].clone()
		return &a
	}
	return nil
}

// Add saves an address. An empty ID is generated; an existing ID is replaced
// in place. The first address saved becomes the selection.
func (b *Book) Add(ctx context.Context, a Address) (Address, error) {
	if a.Street == "" {
		return Address{}, ErrStreetRequired
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a = a.clone()

	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.indexLocked(a.ID); i >= 0 {
		b.addresses[i] = a
	} else {
		b.addresses = append(b.addresses, a)
	}
	if b.selected == "" {
		b.selected = a.ID
		b.persistSelectionLocked(ctx)
	}
	b.persistLocked(ctx)
	return a.clone(), nil
}

// Remove deletes an address. Removing the selected address moves the
// selection to the first remaining address, or clears it. Unknown ids are
// ignored.
func (b *Book) Remove(ctx context.Context, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexLocked(id)
	if i < 0 {
		return
	}
	b.addresses = append(b.addresses[:i], b.addresses[i+1:]...)
	b.persistLocked(ctx)

	if b.selected == id {
		b.selected = ""
		if len(b.addresses) > 0 {
			b.selected = b.addresses[0].ID
		}
		b.persistSelectionLocked(ctx)
	}
}

// Update applies p to the address with id. Unknown ids are ignored.
func (b *Book) Update(ctx context.Context, id string, p Patch) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexLocked(id)
	if i < 0 {
		return
	}
	a := &b.addresses[i]
	if p.Street != nil {
		a.Street = *p.Street
	}
	if p.City != nil {
		a.City = *p.City
	}
	if p.PostalCode != nil {
		a.PostalCode = *p.PostalCode
	}
	if p.Location != nil {
		loc := *p.Location
		a.Location = &loc
	}
	b.persistLocked(ctx)
}

// Select makes id the selected address. Ids not in the book are ignored so
// the selection always refers to a member.
func (b *Book) Select(ctx context.Context, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.indexLocked(id) < 0 {
		return false
	}
	b.selected = id
	b.persistSelectionLocked(ctx)
	return true
}

// SetAll replaces the whole address set, keeping the selection if it still exists.
func (b *Book) SetAll(ctx context.Context, addresses []Address) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.addresses = make([]Address, 0, len(addresses))
	for _, a := range addresses {
		b.addresses = append(b.addresses, a.clone())
	}
	b.persistLocked(ctx)
	if b.repairSelectionLocked() {
		b.persistSelectionLocked(ctx)
	}
}

// Clear removes every address and the selection.
func (b *Book) Clear(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.addresses = nil
	b.selected = ""
	b.acc.Remove(ctx, scoped.Addresses)
	b.acc.Remove(ctx, scoped.SelectedAddress)
}

// ReloadFromStorage discards in-memory state and loads the active identity's
// addresses. Addresses saved under the legacy unscoped slots are adopted by
// the first identity that loads while its own slot is empty.
func (b *Book) ReloadFromStorage(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var addresses []Address
	found := b.acc.Read(ctx, scoped.Addresses, &addresses)

	var selected string
	b.acc.Read(ctx, scoped.SelectedAddress, &selected)

	migrated := false
	if !found {
		addresses, selected, migrated = b.readLegacy(ctx)
	}

	b.addresses = addresses
	b.selected = selected
	changed := b.repairSelectionLocked()

	if migrated {
		b.persistLocked(ctx)
		b.acc.RemoveGlobal(ctx, legacyAddressesSlot)
		b.acc.RemoveGlobal(ctx, legacySelectedSlot)
		b.logger.Info("migrated legacy addresses", "identity", b.acc.Identity(), "count", len(addresses))
	}
	if changed || migrated {
		b.persistSelectionLocked(ctx)
	}
	b.logger.Debug("reloaded addresses", "identity", b.acc.Identity(), "count", len(b.addresses))
}

// legacyAddress matches the unscoped format, whose ids were numeric timestamps.
type legacyAddress struct {
	ID         json.RawMessage `json:"id"`
	Street     string          `json:"street"`
	City       string          `json:"city"`
	PostalCode string          `json:"postalCode"`
	Location   *GeoPoint       `json:"location,omitempty"`
}

func (l legacyAddress) convert() Address {
	return Address{
		ID:         strings.Trim(string(l.ID), `"`),
		Street:     l.Street,
		City:       l.City,
		PostalCode: l.PostalCode,
		Location:   l.Location,
	}
}

func (b *Book) readLegacy(ctx context.Context) ([]Address, string, bool) {
	var legacy []legacyAddress
	if !b.acc.ReadGlobal(ctx, legacyAddressesSlot, &legacy) {
		return nil, "", false
	}
	addresses := make([]Address, 0, len(legacy))
	for _, l := range legacy {
		a := l.convert()
		if a.ID == "" || a.ID == "null" {
			a.ID = uuid.NewString()
		}
		addresses = append(addresses, a)
	}

	var sel legacyAddress
	selected := ""
	if b.acc.ReadGlobal(ctx, legacySelectedSlot, &sel) {
		selected = sel.convert().ID
	}
	return addresses, selected, true
}

// repairSelectionLocked points a dangling or empty selection at the first
// address. It reports whether the selection changed.
func (b *Book) repairSelectionLocked() bool {
	if b.indexLocked(b.selected) >= 0 {
		return false
	}
	prev := b.selected
	b.selected = ""
	if len(b.addresses) > 0 {
		b.selected = b.addresses[0].ID
	}
	return prev != b.selected
}

func (b *Book) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range b.addresses {
		if b.addresses[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Book) persistLocked(ctx context.Context) {
	if b.addresses == nil {
		b.acc.Write(ctx, scoped.Addresses, []Address{})
		return
	}
	b.acc.Write(ctx, scoped.Addresses, b.addresses)
}

func (b *Book) persistSelectionLocked(ctx context.Context) {
	if b.selected == "" {
		b.acc.Remove(ctx, scoped.SelectedAddress)
		return
	}
	b.acc.Write(ctx, scoped.SelectedAddress, b.selected)
}
