package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

const fileAudience = "file-download"

// fileClaims grants read access to one stored object
type fileClaims struct {
	Path string `json:"path"`
	jwt.RegisteredClaims
}

// JWTURLSigner issues download links whose token names the object and its expiry
type JWTURLSigner struct {
	secret  []byte
	baseURL string
	issuer  string
	now     func() time.Time
}

// NewJWTURLSigner creates a signer producing links under baseURL, e.g. https://host/files
func NewJWTURLSigner(secret, baseURL, issuer string) *JWTURLSigner {
	return &JWTURLSigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		issuer:  issuer,
		now:     time.Now,
	}
}

var _ port.URLSigner = (*JWTURLSigner)(nil)

// SignedURL returns baseURL/path?token=... valid for ttl
func (s *JWTURLSigner) SignedURL(path string, ttl time.Duration) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", errs.ErrValidation)
	}
	now := s.now()
	claims := fileClaims{
		Path: path,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{fileAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign file token: %w", err)
	}
	return s.baseURL + "/" + strings.TrimLeft(path, "/") + "?token=" + url.QueryEscape(token), nil
}

// Verify checks a download token and returns the object path it grants
func (s *JWTURLSigner) Verify(token string) (string, error) {
	claims := &fileClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(fileAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: download link has expired", errs.ErrForbidden)
		}
		return "", fmt.Errorf("%w: invalid download link", errs.ErrForbidden)
	}
	if claims.Path == "" {
		return "", fmt.Errorf("%w: invalid download link", errs.ErrForbidden)
	}
	return claims.Path, nil
}
