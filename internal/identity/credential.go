// ABOUTME: Decoding of external identity provider credentials (JWT id tokens)
// ABOUTME: Extracts subject/email claims without verifying the provider signature

package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredential is returned when a credential cannot be decoded or
// carries no usable identity.
var ErrInvalidCredential = errors.New("invalid credential")

// DecodeCredential reads the claims of an identity provider credential.
// Signature verification belongs to the provider integration and is not
// performed here; the claims only select a storage namespace.
func DecodeCredential(credential string) (*ExternalUser, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	user := &ExternalUser{
		Subject: stringClaim(claims, "sub"),
		Email:   stringClaim(claims, "email"),
		Name:    stringClaim(claims, "name"),
		Picture: stringClaim(claims, "picture"),
	}
	if user.Subject == "" && user.Email == "" {
		return nil, fmt.Errorf("%w: missing sub and email", ErrInvalidCredential)
	}
	return user, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}
