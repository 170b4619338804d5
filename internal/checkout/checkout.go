// ABOUTME: Checkout handoff to the hosted payment page and verified completion
// ABOUTME: Orders are recorded only for a valid, unreplayed confirmation matching the pending checkout

package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/2389/storefront/internal/cart"
	"github.com/2389/storefront/internal/payment"
	"github.com/2389/storefront/internal/scoped"
)

var (
	ErrEmptyCart         = cart.ErrEmpty
	ErrNoPendingCheckout = errors.New("no pending checkout")
	ErrUnverified        = errors.New("payment not verified")
	ErrReplay            = errors.New("confirmation already used")
)

// Pending is a checkout handed off to the payment page and awaiting confirmation.
type Pending struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amountCents"`
	Items       int       `json:"items"`
	CreatedAt   time.Time `json:"createdAt"`
	PaymentURL  string    `json:"paymentUrl"`
}

// Cart is the subset of the cart container checkout uses.
type Cart interface {
	Empty() bool
	Count() int
	Subtotal() float64
	CompleteOrder(ctx context.Context, accept func(total float64) error) (cart.Order, error)
}

// ReplayGuard remembers confirmation ids that were already accepted.
type ReplayGuard interface {
	CheckAndMark(ctx context.Context, key string) bool
}

// Service runs the checkout flow for the active identity.
type Service struct {
	acc         *scoped.Accessor
	cart        Cart
	payments    *payment.Tracker
	verifier    *Verifier
	replays     ReplayGuard
	paymentLink string
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a checkout service that sends shoppers to paymentLink.
func NewService(acc *scoped.Accessor, c Cart, payments *payment.Tracker, verifier *Verifier, replays ReplayGuard, paymentLink string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		acc:         acc,
		cart:        c,
		payments:    payments,
		verifier:    verifier,
		replays:     replays,
		paymentLink: paymentLink,
		logger:      logger.With("component", "checkout"),
		now:         time.Now,
	}
}

// AmountCents converts a price total to integer cents.
func AmountCents(total float64) int64 {
	return int64(math.Round(total * 100))
}

// Begin records a pending checkout for the current cart and returns it with
// the payment URL to open. A pending checkout that already exists is
// replaced.
func (s *Service) Begin(ctx context.Context) (*Pending, error) {
	if s.cart.Empty() {
		return nil, ErrEmptyCart
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating checkout id: %w", err)
	}
	paymentURL, err := s.paymentURL(id.String())
	if err != nil {
		return nil, err
	}

	p := &Pending{
		ID:          id.String(),
		AmountCents: AmountCents(s.cart.Subtotal()),
		Items:       s.cart.Count(),
		CreatedAt:   s.now().UTC(),
		PaymentURL:  paymentURL,
	}
	s.acc.Write(ctx, scoped.Checkout, p)
	s.payments.Start()

	s.logger.Info("checkout started",
		"identity", s.acc.Identity(),
		"checkout_id", p.ID,
		"amount_cents", p.AmountCents,
	)
	return p, nil
}

// Pending returns the pending checkout of the active identity.
func (s *Service) Pending(ctx context.Context) (*Pending, bool) {
	var p Pending
	if !s.acc.Read(ctx, scoped.Checkout, &p) || p.ID == "" {
		return nil, false
	}
	return &p, true
}

// Confirm completes the pending checkout with a signed confirmation token.
// The token must verify, report status paid, name the pending checkout, and
// carry the current cart subtotal in cents; its id must not have been used
// before. Any failure leaves the cart and orders untouched and puts the
// payment tracker in the error state.
func (s *Service) Confirm(ctx context.Context, token string) (*cart.Order, error) {
	order, err := s.confirm(ctx, token)
	if err != nil {
		s.payments.Fail(err)
		s.logger.Warn("payment confirmation rejected", "identity", s.acc.Identity(), "error", err)
		return nil, err
	}
	s.payments.Succeed()
	s.logger.Info("payment confirmed", "identity", s.acc.Identity(), "order_id", order.ID, "total", order.Total)
	return order, nil
}

func (s *Service) confirm(ctx context.Context, token string) (*cart.Order, error) {
	pending, ok := s.Pending(ctx)
	if !ok {
		return nil, ErrNoPendingCheckout
	}

	claims, err := s.verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnverified, err)
	}
	if claims.Status != StatusPaid {
		return nil, fmt.Errorf("%w: status %q", ErrUnverified, claims.Status)
	}
	if claims.CheckoutID != pending.ID {
		return nil, fmt.Errorf("%w: confirmation is for checkout %s", ErrUnverified, claims.CheckoutID)
	}

	replayKey := claims.ID
	if replayKey == "" {
		replayKey = claims.CheckoutID
	}

	// The amount is compared against the cart the order is built from, and
	// the confirmation id is spent only once that matches.
	order, err := s.cart.CompleteOrder(ctx, func(total float64) error {
		if want := AmountCents(total); claims.AmountCents != want {
			return fmt.Errorf("%w: paid %d cents, cart is %d", ErrUnverified, claims.AmountCents, want)
		}
		if s.replays.CheckAndMark(ctx, replayKey) {
			return ErrReplay
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.acc.Remove(ctx, scoped.Checkout)
	return &order, nil
}

// Cancel abandons the pending checkout, if any, and resets the payment state.
func (s *Service) Cancel(ctx context.Context) {
	s.acc.Remove(ctx, scoped.Checkout)
	s.payments.Reset()
	s.logger.Info("checkout cancelled", "identity", s.acc.Identity())
}

func (s *Service) paymentURL(checkoutID string) (string, error) {
	u, err := url.Parse(s.paymentLink)
	if err != nil {
		return "", fmt.Errorf("parsing payment link: %w", err)
	}
	q := u.Query()
	q.Set("client_reference_id", checkoutID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
