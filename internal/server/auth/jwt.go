// Package auth issues and verifies signed, purpose-bound tokens and manages
// the session cookie.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose binds a token to the single action it may be used for.
type Purpose string

const (
	PurposeSession Purpose = "session"
	PurposeApprove Purpose = "approve"
	PurposeConfirm Purpose = "confirm"
)

// Claims are the registered claims plus the token purpose. Subject holds the
// account id.
type Claims struct {
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// Issuer signs tokens with HS256 and verifies them against an expected
// purpose.
type Issuer struct {
	secret []byte
	clock  timex.Clock
}

// NewIssuer returns an Issuer for secret. A nil clock means time.Now.
func NewIssuer(secret []byte, clock timex.Clock) *Issuer {
	return &Issuer{secret: secret, clock: clock}
}

// Issue returns a token for subject valid for ttl.
func (i *Issuer) Issue(subject string, purpose Purpose, ttl time.Duration) (string, error) {
	now := i.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks the signature, expiry and purpose of token and returns its
// subject. Errors are common.ErrTokenExpired, common.ErrTokenPurpose or
// common.ErrInvalidToken.
func (i *Issuer) Verify(token string, expected Purpose) (string, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !parsed.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}
	if claims.Purpose != expected {
		return "", common.ErrTokenPurpose
	}

	return claims.Subject, nil
}
