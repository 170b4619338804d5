// ABOUTME: Signed payment confirmation tokens issued by the payment relay
// ABOUTME: HS256 JWTs carrying checkout id, payment status, and amount in cents

package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Confirmation token errors
var (
	ErrInvalidConfirmation = errors.New("invalid confirmation")
	ErrExpiredConfirmation = errors.New("confirmation expired")
)

// StatusPaid is the only confirmation status that completes an order.
const StatusPaid = "paid"

// Claims is the payload of a payment confirmation. The registered ID (jti)
// identifies the confirmation for replay protection.
type Claims struct {
	CheckoutID  string `json:"checkout_id"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
	jwt.RegisteredClaims
}

// Verifier checks and issues confirmation tokens with a shared HS256 secret.
// Issuing lives here too so a payment relay and tests share one definition
// of the token format.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier creates a verifier for secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret, now: time.Now}
}

// Verify validates the signature, algorithm, and expiry of token and returns
// its claims. Expiry is mandatory.
func (v *Verifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredConfirmation
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfirmation, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidConfirmation
	}
	if claims.CheckoutID == "" {
		return nil, fmt.Errorf("%w: missing checkout_id", ErrInvalidConfirmation)
	}
	return claims, nil
}

// Sign issues a confirmation for checkoutID with a fresh confirmation id.
func (v *Verifier) Sign(checkoutID, status string, amountCents int64, expiresIn time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		CheckoutID:  checkoutID,
		Status:      status,
		AmountCents: amountCents,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
