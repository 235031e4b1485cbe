// Package auth signs and verifies the session cookie. The cookie is a JWT
// that only references a server-side session; revoking the session revokes
// the cookie regardless of the token's own expiry.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the registered claims plus the session reference.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	UserID    int64  `json:"uid"`
}

type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer using HS256 with secret.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}
	return &Signer{secret: secret, now: time.Now}, nil
}

// WithClock overrides the time source used for issuing and validating.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// Issue signs a token for a session that expires at expiresAt.
func (s *Signer) Issue(sessionID string, userID int64, expiresAt time.Time) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		UserID:    userID,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies a token. Every failure, bad signature or expiry alike,
// is reported as common.ErrInvalidToken.
func (s *Signer) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.SessionID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
