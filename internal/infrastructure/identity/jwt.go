// Package identity verifies bearer tokens issued by the identity provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

const accessAudience = "api-access"

// Claims is the bearer token payload; the subject is the user ID
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider verifies and, for development tooling, issues HS256 bearer tokens
type JWTProvider struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTProvider creates a provider sharing secret with the token issuer
func NewJWTProvider(secret, issuer string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), issuer: issuer, now: time.Now}
}

var _ port.IdentityProvider = (*JWTProvider)(nil)

// Authenticate verifies bearer (with or without the "Bearer " prefix)
func (p *JWTProvider) Authenticate(ctx context.Context, bearer string) (*entity.Identity, error) {
	raw := strings.TrimSpace(bearer)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: missing bearer token", errs.ErrUnauthenticated)
	}

	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(accessAudience),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token has expired", errs.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: invalid token", errs.ErrUnauthenticated)
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: token has no subject or email", errs.ErrUnauthenticated)
	}
	return &entity.Identity{
		ID:    claims.Subject,
		Email: entity.NormalizeEmail(claims.Email),
		Name:  strings.TrimSpace(claims.Name),
	}, nil
}

// IssueToken signs a bearer token for id valid for ttl
func (p *JWTProvider) IssueToken(id *entity.Identity, ttl time.Duration) (string, error) {
	if id == nil || id.ID == "" || id.Email == "" {
		return "", fmt.Errorf("%w: identity needs an id and an email", errs.ErrValidation)
	}
	now := p.now()
	claims := Claims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{accessAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}
