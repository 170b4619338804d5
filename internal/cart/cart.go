// ABOUTME: Cart container with order history for the active identity
// ABOUTME: Line items are unique per (product, size); completing an order snapshots and clears the cart

package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/storefront/internal/address"
	"github.com/2389/storefront/internal/scoped"
)

// ErrEmpty is returned when an order is completed from an empty cart.
var ErrEmpty = errors.New("cart is empty")

// LineItem is one (product, size) pair in the cart.
type LineItem struct {
	ProductID int     `json:"id"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"price"`
	Image     string  `json:"image"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
}

// Subtotal is UnitPrice × Quantity.
func (l LineItem) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Order is an immutable snapshot of a completed checkout.
type Order struct {
	ID              string           `json:"id"`
	Items           []LineItem       `json:"items"`
	Total           float64          `json:"total"`
	Date            time.Time        `json:"date"`
	DeliveryAddress *address.Address `json:"deliveryAddress,omitempty"`
}

// Patch holds the fields to change in Update; nil fields are left alone.
// A Quantity below 1 removes the line item.
type Patch struct {
	Quantity  *int
	Title     *string
	UnitPrice *float64
	Image     *string
}

// AddressSource provides the delivery address recorded on new orders.
type AddressSource interface {
	Selected() *address.Address
}

// Cart owns the line items and order history of the active identity.
type Cart struct {
	acc       *scoped.Accessor
	addresses AddressSource
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	mu     sync.Mutex
	items  []LineItem
	orders []Order
}

// Option configures a Cart.
type Option func(*Cart)

// WithClock overrides the time source used to date orders.
func WithClock(now func() time.Time) Option {
	return func(c *Cart) { c.now = now }
}

// WithIDGenerator overrides order id generation.
func WithIDGenerator(newID func() string) Option {
	return func(c *Cart) { c.newID = newID }
}

// New creates an empty cart. addresses may be nil, in which case orders
// carry no delivery address. Call ReloadFromStorage to load persisted state.
func New(acc *scoped.Accessor, addresses AddressSource, logger *slog.Logger, opts ...Option) *Cart {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cart{
		acc:       acc,
		addresses: addresses,
		logger:    logger.With("component", "cart"),
		now:       time.Now,
		newID:     newOrderID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newOrderID returns a time-ordered UUID.
func newOrderID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Items returns a copy of the line items.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LineItem(nil), c.items...)
}

// Count returns the total quantity across line items.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Subtotal returns the sum of UnitPrice × Quantity.
func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalOf(c.items)
}

// Empty reports whether the cart has no line items.
func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// Add puts item in the cart. An existing line for the same product and size
// has its quantity increased instead of gaining a duplicate. item.Quantity
// below 1 counts as 1.
func (c *Cart) Add(ctx context.Context, item LineItem) {
	qty := item.Quantity
	if qty < 1 {
		qty = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(item.ProductID, item.Size); i >= 0 {
		c.items[i].Quantity += qty
	} else {
		item.Quantity = qty
		c.items = append(c.items, item)
	}
	c.persistItemsLocked(ctx)
}

// Remove deletes the line for productID and size. Unknown lines are ignored.
func (c *Cart) Remove(ctx context.Context, productID int, size string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(productID, size)
	if i < 0 {
		return
	}
	c.removeLocked(i)
	c.persistItemsLocked(ctx)
}

// UpdateQuantity sets the quantity of a line; below 1 removes it.
func (c *Cart) UpdateQuantity(ctx context.Context, productID int, size string, quantity int) {
	c.Update(ctx, productID, size, Patch{Quantity: &quantity})
}

// Update applies p to the line for productID and size. Unknown lines are ignored.
func (c *Cart) Update(ctx context.Context, productID int, size string, p Patch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(productID, size)
	if i < 0 {
		return
	}
	if p.Quantity != nil && *p.Quantity < 1 {
		c.removeLocked(i)
		c.persistItemsLocked(ctx)
		return
	}

	it := &c.items[i]
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.UnitPrice != nil {
		it.UnitPrice = *p.UnitPrice
	}
	if p.Image != nil {
		it.Image = *p.Image
	}
	c.persistItemsLocked(ctx)
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.persistItemsLocked(ctx)
}

// CompleteOrder turns the cart into a new order, appends it to the history,
// and clears the cart. An empty cart is left alone and returns ErrEmpty.
//
// accept, when non-nil, is called with the cart total while the cart is
// locked; an error from it leaves the cart and history untouched and is
// returned. accept must not call back into the cart.
//
// The orders write and the cart write are two separate slot writes; a
// failure between them can leave the order recorded with the cart intact.
func (c *Cart) CompleteOrder(ctx context.Context, accept func(total float64) error) (Order, error) {
	var delivery *address.Address
	if c.addresses != nil {
		delivery = c.addresses.Selected()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return Order{}, ErrEmpty
	}
	total := totalOf(c.items)
	if accept != nil {
		if err := accept(total); err != nil {
			return Order{}, err
		}
	}

	order := Order{
		ID:              c.newID(),
		Items:           append([]LineItem(nil), c.items...),
		Total:           total,
		Date:            c.now().UTC(),
		DeliveryAddress: delivery,
	}
	c.orders = append(c.orders, order)
	c.acc.Write(ctx, scoped.Orders, c.orders)

	c.items = nil
	c.persistItemsLocked(ctx)

	c.logger.Info("order completed",
		"identity", c.acc.Identity(),
		"order_id", order.ID,
		"items", len(order.Items),
		"total", order.Total,
	)
	return cloneOrder(order), nil
}

// Orders returns the order history, oldest first.
func (c *Cart) Orders() []Order {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Order, len(c.orders))
	for i, o := range c.orders {
		out[i] = cloneOrder(o)
	}
	return out
}

// Order returns the order with id.
func (c *Cart) Order(id string) (Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range c.orders {
		if o.ID == id {
			return cloneOrder(o), true
		}
	}
	return Order{}, false
}

// DeleteOrder removes an order from the history. Unknown ids are ignored.
func (c *Cart) DeleteOrder(ctx context.Context, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, o := range c.orders {
		if o.ID == id {
			c.orders = append(c.orders[:i], c.orders[i+1:]...)
			c.acc.Write(ctx, scoped.Orders, c.ordersForWrite())
			return true
		}
	}
	return false
}

// ReloadFromStorage discards in-memory state and loads the active
// identity's cart and order history.
func (c *Cart) ReloadFromStorage(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var items []LineItem
	if !c.acc.Read(ctx, scoped.Cart, &items) {
		items = nil
	}
	var orders []Order
	if !c.acc.Read(ctx, scoped.Orders, &orders) {
		orders = nil
	}

	c.items = sanitize(items)
	c.orders = orders
	c.logger.Debug("reloaded cart",
		"identity", c.acc.Identity(),
		"items", len(c.items),
		"orders", len(c.orders),
	)
}

// sanitize drops lines that violate the quantity invariant, which can only
// appear through hand-edited or foreign storage.
func sanitize(items []LineItem) []LineItem {
	out := items[:0]
	for _, it := range items {
		if it.Quantity >= 1 {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *Cart) indexLocked(productID int, size string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID && c.items[i].Size == size {
			return i
		}
	}
	return -1
}

func (c *Cart) removeLocked(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

func (c *Cart) persistItemsLocked(ctx context.Context) {
	items := c.items
	if items == nil {
		items = []LineItem{}
	}
	c.acc.Write(ctx, scoped.Cart, items)
}

func (c *Cart) ordersForWrite() []Order {
	if c.orders == nil {
		return []Order{}
	}
	return c.orders
}

func totalOf(items []LineItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

func cloneOrder(o Order) Order {
	o.Items = append([]LineItem(nil), o.Items...)
	if o.DeliveryAddress != nil {
		a := *o.DeliveryAddress
		if a.Location != nil {
			loc := *a.Location
			a.Location = &loc
		}
		o.DeliveryAddress = &a
	}
	return o
}
