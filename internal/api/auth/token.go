package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/polkaapp/polka-api/config"
	"github.com/polkaapp/polka-api/internal/types"
)

// TokenIssuer signs and verifies stateless access tokens. The secret is read
// once from configuration; the struct is immutable afterwards and safe for
// concurrent use. There is no revocation list: a token stays valid until its
// expiry, which is the accepted trade-off of the stateless design.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	audience   string
	defaultTTL time.Duration
}

// NewTokenIssuer builds the codec from JWT configuration.
func NewTokenIssuer(cfg config.JWTConfig) (*TokenIssuer, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("jwt secret key cannot be empty")
	}
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenIssuer{
		secret:     []byte(cfg.SecretKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		defaultTTL: ttl,
	}, nil
}

// Issue signs a token for the subject with the given ttl (default ttl when
// ttl <= 0) and returns it with its absolute expiry.
func (t *TokenIssuer) Issue(subjectID string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := types.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates signature and expiry and returns the embedded subject id.
// Signature mismatch, malformed input and expiry all collapse into
// types.ErrInvalidToken so callers cannot tell the cases apart.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", types.ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", types.ErrInvalidToken
	}
	if t.issuer != "" && claims.Issuer != t.issuer {
		return "", types.ErrInvalidToken
	}
	return claims.Subject, nil
}
