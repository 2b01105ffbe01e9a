package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/healthpool/riskpool/internal/shared"
)

// Service issues and verifies caller tokens.
type Service struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewService constructs a token service signing with secret.
func NewService(secret, issuer string) (*Service, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	return &Service{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// WithNow overrides the clock used for issuing and validating tokens.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Issue signs a token for principal valid for ttl.
func (s *Service) Issue(principal shared.Principal, ttl time.Duration) (string, error) {
	if principal.IsZero() {
		return "", fmt.Errorf("auth: issue: %w", shared.ErrInvalidInput)
	}
	now := s.now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   principal.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses raw and returns the principal it names.
func (s *Service) Verify(raw string) (shared.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return shared.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	principal, err := shared.ParsePrincipal(claims.Subject)
	if err != nil {
		return shared.Principal{}, fmt.Errorf("%w: subject: %v", ErrInvalidToken, err)
	}
	return principal, nil
}
