package vivint

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenSkew is how long before its stated expiry an upstream token is
// already treated as expired, absorbing clock drift against the cloud.
const tokenSkew = 30 * time.Second

// Tokens is the upstream OAuth token set held for one session.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}

// DecodeUnverified extracts the claims of a JWT without verifying its
// signature. The upstream service is trusted end-to-end; the gateway only
// reads expiry and subject from tokens it received over TLS.
func DecodeUnverified(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return claims, nil
}

// Valid reports whether the session's id token exists and does not expire
// within the skew window.
func (t *Tokens) Valid(now time.Time) bool {
	if t == nil || t.IDToken == "" {
		return false
	}
	claims, err := DecodeUnverified(t.IDToken)
	if err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(now.Add(tokenSkew))
}
