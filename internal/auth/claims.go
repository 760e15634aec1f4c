package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminators carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrTokenInvalid is returned for tokens that fail signature, expiry or
// shape validation.
var ErrTokenInvalid = errors.New("invalid token")

// Claims are the gateway's JWT claims. Access tokens additionally carry
// the upstream refresh token so each request can open its own upstream
// session without another store lookup.
type Claims struct {
	jwt.RegisteredClaims
	TokenType          string `json:"token_type"`
	VivintRefreshToken string `json:"vivint_refresh_token,omitempty"`
}

// Username returns the subject claim.
func (c *Claims) Username() string { return c.Subject }

// GenerateAccessToken creates a signed access token for a user. The
// upstream refresh token rides along in a private claim.
func GenerateAccessToken(username, vivintRefreshToken, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		TokenType:          TokenTypeAccess,
		VivintRefreshToken: vivintRefreshToken,
	}
	return sign(claims, secret)
}

// GenerateRefreshToken creates a signed refresh token for a user.
func GenerateRefreshToken(username, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		TokenType: TokenTypeRefresh,
	}
	return sign(claims, secret)
}

func sign(claims Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates an access token and returns its claims.
func ParseAccessToken(tokenString, secret string) (*Claims, error) {
	return parse(tokenString, secret, TokenTypeAccess)
}

// ParseRefreshToken validates a refresh token and returns its claims.
func ParseRefreshToken(tokenString, secret string) (*Claims, error) {
	return parse(tokenString, secret, TokenTypeRefresh)
}

// parse checks signature, expiry and the token_type discriminator.
func parse(tokenString, secret, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: expected %s token", ErrTokenInvalid, tokenType)
	}
	return claims, nil
}
