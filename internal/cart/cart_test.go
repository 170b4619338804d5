// ABOUTME: Tests for the cart container and order completion
// ABOUTME: Covers merge-by-size, quantity rules, order snapshots, and per-identity isolation

package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/storefront/internal/address"
	"github.com/2389/storefront/internal/identity"
	"github.com/2389/storefront/internal/scoped"
	"github.com/2389/storefront/internal/store"
)

type fakeKeys struct{ key identity.Key }

func (f *fakeKeys) Current() identity.Key { return f.key }

type fixedAddress struct{ addr *address.Address }

func (f fixedAddress) Selected() *address.Address { return f.addr }

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestCart(t *testing.T, addrs AddressSource) (*Cart, *store.MockStore, *fakeKeys) {
	t.Helper()
	s := store.NewMockStore()
	keys := &fakeKeys{key: identity.Guest}
	n := 0
	c := New(scoped.New(s, keys, nil), addrs, nil,
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("order-%d", n)
		}),
	)
	return c, s, keys
}

func TestCart_AddMergesSameProductAndSize(t *testing.T) {
	c, _, _ := newTestCart(t, nil)
	ctx := context.Background()

	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})
	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.InDelta(t, 20.0, c.Subtotal(), 1e-9)
	assert.Equal(t, 2, c.Count())
}

func TestCart_DifferentSizesAreSeparateLines(t *testing.T) {
	c, _, _ := newTestCart(t, nil)
	ctx := context.Background()

	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})
	c.Add(ctx, LineItem{ProductID: 1, Size: "L", UnitPrice: 10})
	c.Add(ctx, LineItem{ProductID: 2, Size: "M", UnitPrice: 5, Quantity: 3})

	want := []LineItem{
		{ProductID: 1, Size: "M", UnitPrice: 10, Quantity: 1},
		{ProductID: 1, Size: "L", UnitPrice: 10, Quantity: 1},
		{ProductID: 2, Size: "M", UnitPrice: 5, Quantity: 3},
	}
	if diff := cmp.Diff(want, c.Items()); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 35.0, c.Subtotal(), 1e-9)
}

func TestCart_QuantityEqualsAddCount(t *testing.T) {
	c, _, _ := newTestCart(t, nil)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		c.Add(ctx, LineItem{ProductID: 9, Size: "S", UnitPrice: 1.5})
	}
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity)
}

func TestCart_UpdateQuantity(t *testing.T) {
	c, _, _ := newTestCart(t, nil)
	ctx := context.Background()

	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})
	c.UpdateQuantity(ctx, 1, "M", 4)
	assert.Equal(t, 4, c.Items()[0].Quantity)

	c.UpdateQuantity(ctx, 1, "M", 0)
	assert.True(t, c.Empty())

	// Unknown lines are ignored
	c.UpdateQuantity(ctx, 99, "M", 3)
	assert.True(t, c.Empty())
}

func TestCart_UpdateFields(t *testing.T) {
	c, _, _ := newTestCart(t, nil)
	ctx := context.Background()

	c.Add(ctx, LineItem{ProductID: 1, Size: "M", Title: "Shirt", UnitPrice: 10})
	title := "Linen shirt"
	price := 12.5
	c.Update(ctx, 1, "M", Patch{Title: &title, UnitPrice: &price})

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Linen shirt", items[0].Title)
	assert.InDelta(t, 12.5, items[0].UnitPrice, 1e-9)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestCart_Remove(t *testing.T) {
	c, s, _ := newTestCart(t, nil)
	ctx := context.Background()

	c.Add(ctx, LineItem{ProductID: 1, Size: "M"})
	c.Add(ctx, LineItem{ProductID: 2, Size: "M"})
	c.Remove(ctx, 1, "M")

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].ProductID)

	raw, err := s.GetItem(ctx, "cart_guest")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":2,"title":"","price":0,"image":"","size":"M","quantity":1}]`, raw)
}

func TestCart_RemoveThenAddStartsFresh(t *testing.T) {
	c, _, _ := newTestCart(t, nil)
	ctx := context.Background()

	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})
	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})
	require.Equal(t, 2, c.Count())

	c.Remove(ctx, 1, "M")
	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].ProductID)
	assert.Equal(t, "M", items[0].Size)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestCart_CompleteOrder(t *testing.T) {
	delivery := &address.Address{ID: "a1", Street: "1 Main St", City: "Springfield"}
	c, s, _ := newTestCart(t, fixedAddress{addr: delivery})
	ctx := context.Background()

	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})
	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})

	order, err := c.CompleteOrder(ctx, nil)
	require.NoError(t, err)

	want := Order{
		ID:              "order-1",
		Items:           []LineItem{{ProductID: 1, Size: "M", UnitPrice: 10, Quantity: 2}},
		Total:           20,
		Date:            testNow,
		DeliveryAddress: delivery,
	}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, c.Empty())
	orders := c.Orders()
	require.Len(t, orders, 1)
	assert.InDelta(t, 20.0, orders[0].Total, 1e-9)

	raw, err := s.GetItem(ctx, "cart_guest")
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	_, err = s.GetItem(ctx, "orders_guest")
	require.NoError(t, err)
}

func TestCart_CompleteOrderRejectedByAccept(t *testing.T) {
	c, s, _ := newTestCart(t, nil)
	ctx := context.Background()

	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10, Quantity: 2})
	writes := s.Writes()

	var seen float64
	errMismatch := errors.New("amount mismatch")
	_, err := c.CompleteOrder(ctx, func(total float64) error {
		seen = total
		return errMismatch
	})
	assert.ErrorIs(t, err, errMismatch)
	assert.InDelta(t, 20.0, seen, 1e-9)
	assert.Equal(t, 2, c.Count())
	assert.Empty(t, c.Orders())
	assert.Equal(t, writes, s.Writes())
}

func TestCart_CompleteOrderEmptyIsNoop(t *testing.T) {
	c, s, _ := newTestCart(t, nil)
	ctx := context.Background()

	_, err := c.CompleteOrder(ctx, nil)
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Empty(t, c.Orders())
	assert.Equal(t, 0, s.Writes())
}

func TestCart_OrderTotalIsSumOfLines(t *testing.T) {
	c, _, _ := newTestCart(t, nil)
	ctx := context.Background()

	c.Add(ctx, LineItem{ProductID: 1, Size: "S", UnitPrice: 19.99, Quantity: 2})
	c.Add(ctx, LineItem{ProductID: 2, Size: "L", UnitPrice: 5.25})
	c.Add(ctx, LineItem{ProductID: 3, Size: "", UnitPrice: 100, Quantity: 1})

	order, err := c.CompleteOrder(ctx, nil)
	require.NoError(t, err)

	var sum float64
	for _, it := range order.Items {
		sum += it.UnitPrice * float64(it.Quantity)
	}
	assert.InDelta(t, sum, order.Total, 1e-9)
	assert.Nil(t, order.DeliveryAddress)
}

func TestCart_OrderLookupAndDelete(t *testing.T) {
	c, _, _ := newTestCart(t, nil)
	ctx := context.Background()

	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 1})
	first, _ := c.CompleteOrder(ctx, nil)
	c.Add(ctx, LineItem{ProductID: 2, Size: "M", UnitPrice: 2})
	second, _ := c.CompleteOrder(ctx, nil)

	got, ok := c.Order(second.ID)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)

	assert.True(t, c.DeleteOrder(ctx, first.ID))
	assert.False(t, c.DeleteOrder(ctx, first.ID))

	orders := c.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, second.ID, orders[0].ID)
}

func TestCart_OrdersAreSnapshots(t *testing.T) {
	c, _, _ := newTestCart(t, nil)
	ctx := context.Background()

	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 1})
	c.CompleteOrder(ctx, nil)

	orders := c.Orders()
	orders[0].Items[0].Quantity = 99

	again := c.Orders()
	assert.Equal(t, 1, again[0].Items[0].Quantity)
}

func TestCart_IdentityRoundTrip(t *testing.T) {
	c, _, keys := newTestCart(t, nil)
	ctx := context.Background()

	keys.key = "A"
	c.ReloadFromStorage(ctx)
	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})
	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})
	c.CompleteOrder(ctx, nil)
	c.Add(ctx, LineItem{ProductID: 3, Size: "XL", UnitPrice: 4})
	wantItems := c.Items()
	wantOrders := c.Orders()

	keys.key = "B"
	c.ReloadFromStorage(ctx)
	assert.True(t, c.Empty())
	assert.Empty(t, c.Orders())
	c.Add(ctx, LineItem{ProductID: 8, Size: "S", UnitPrice: 2})

	keys.key = "A"
	c.ReloadFromStorage(ctx)
	if diff := cmp.Diff(wantItems, c.Items()); diff != "" {
		t.Errorf("items after round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantOrders, c.Orders()); diff != "" {
		t.Errorf("orders after round trip (-want +got):\n%s", diff)
	}
}

func TestCart_ReloadDropsInvalidQuantities(t *testing.T) {
	c, s, _ := newTestCart(t, nil)
	ctx := context.Background()

	require.NoError(t, s.SetItem(ctx, "cart_guest",
		`[{"id":1,"size":"M","price":2,"quantity":0},{"id":2,"size":"M","price":3,"quantity":2}]`))
	c.ReloadFromStorage(ctx)

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].ProductID)
}

func TestCart_CorruptSlotLoadsEmpty(t *testing.T) {
	c, s, _ := newTestCart(t, nil)
	ctx := context.Background()

	require.NoError(t, s.SetItem(ctx, "cart_guest", "{not json"))
	require.NoError(t, s.SetItem(ctx, "orders_guest", "42"))
	c.ReloadFromStorage(ctx)

	assert.True(t, c.Empty())
	assert.Empty(t, c.Orders())
}

func TestCart_StorageFailureKeepsMemoryState(t *testing.T) {
	c, s, _ := newTestCart(t, nil)
	ctx := context.Background()
	s.FailWrites(store.ErrQuotaExceeded)

	c.Add(ctx, LineItem{ProductID: 1, Size: "M", UnitPrice: 10})
	order, err := c.CompleteOrder(ctx, nil)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, order.Total, 1e-9)
	assert.Len(t, c.Orders(), 1)
	assert.True(t, c.Empty())
}
