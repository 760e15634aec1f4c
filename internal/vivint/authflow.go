package vivint

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// MFA challenge flavours. "code" is an SMS/email one-time code, "mfa" an
// authenticator-app code; the identity host verifies them on different
// endpoints.
const (
	mfaTypeCode = "code"
	mfaTypeMfa  = "mfa"
)

// Connect establishes an upstream session. A held refresh token is tried
// first; the PKCE password login is the fallback. A pending MFA gate
// surfaces as ErrMfaRequired.
func (c *Client) Connect(ctx context.Context) error {
	if c.tokens.Valid(timeNow()) {
		return nil
	}

	refresh := c.refreshToken
	if c.tokens != nil && c.tokens.RefreshToken != "" {
		refresh = c.tokens.RefreshToken
	}

	if refresh != "" {
		err := c.RefreshGrant(ctx, refresh)
		if err == nil {
			return nil
		}
		if c.password == "" {
			return err
		}
		c.logger.Debug("refresh grant failed, falling back to password login", "error", err)
	}

	if c.password == "" {
		return &AuthError{Message: "no password or refresh token provided"}
	}
	return c.pkceLogin(ctx)
}

// Disconnect drops the session. Idempotent.
func (c *Client) Disconnect() {
	c.tokens = nil
	c.mfaPending = false
	c.mfaType = ""
	c.http.CloseIdleConnections()
}

// pkceLogin performs the proof-key-for-code-exchange password login.
//
// The verifier is reused when one was restored from a parked MFA session so
// the eventual code exchange matches the challenge the flow started with.
func (c *Client) pkceLogin(ctx context.Context) error {
	var challenge string
	if c.verifier == "" {
		c.verifier, challenge = generateCodeChallenge()
	} else {
		challenge = challengeFromVerifier(c.verifier)
	}

	resp, err := c.request(ctx, http.MethodGet, c.authHost+"/oauth2/auth", nil, url.Values{
		"response_type":         {"code"},
		"client_id":             {oauthClientID},
		"scope":                 {oauthScope},
		"redirect_uri":          {oauthRedirectURI},
		"state":                 {generateState()},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	}, nil, nil)
	if err != nil {
		return err
	}

	// A live identity cookie short-circuits straight to the app redirect.
	if loc, ok := resp["location"].(string); ok && strings.Contains(loc, oauthRedirectURI) {
		code, err := authCodeFromLocation(loc)
		if err != nil {
			return err
		}
		return c.exchangeAuthCode(ctx, code)
	}

	resp, err = c.request(ctx, http.MethodPost, c.authHost+"/idp/api/submit",
		nil, url.Values{"client_id": {oauthClientID}},
		map[string]any{"username": c.username, "password": c.password}, nil)
	if err != nil {
		return err
	}

	// The submit endpoint answers an MFA challenge with 200, not 4xx.
	if _, ok := resp["validate"]; ok {
		c.mfaPending = true
		c.mfaType = mfaTypeCode
		return ErrMfaRequired
	}
	if _, ok := resp["mfa"]; ok {
		c.mfaPending = true
		c.mfaType = mfaTypeMfa
		return ErrMfaRequired
	}

	return c.adoptTokens(resp)
}

// VerifyMfa submits a multi-factor code for a pending login attempt and
// completes the PKCE exchange the attempt started.
func (c *Client) VerifyMfa(ctx context.Context, code string) error {
	mfaType := c.mfaType
	if mfaType == "" {
		mfaType = mfaTypeCode
	}

	// Cleared before the call so the submission passes the MFA gate.
	c.mfaPending = false

	endpoint := c.authHost + "/idp/api/submit"
	if mfaType == mfaTypeCode {
		endpoint = c.authHost + "/idp/api/validate"
	}

	resp, err := c.request(ctx, http.MethodPost, endpoint,
		nil, url.Values{"client_id": {oauthClientID}},
		map[string]any{
			mfaType:    code,
			"username": c.username,
			"password": c.password,
		}, nil)
	if err != nil {
		return err
	}

	// Successful verification hands back a URL to follow without redirects;
	// its Location query carries the auth code to exchange.
	rawURL, ok := resp["url"].(string)
	if !ok || rawURL == "" {
		return c.adoptTokens(resp)
	}

	resp, err = c.request(ctx, http.MethodGet, c.authHost+rawURL, nil, nil, nil, nil)
	if err != nil {
		return err
	}
	loc, ok := resp["location"].(string)
	if !ok {
		return &AuthError{Message: "mfa verification did not yield a redirect"}
	}
	authCode, err := authCodeFromLocation(loc)
	if err != nil {
		return err
	}
	return c.exchangeAuthCode(ctx, authCode)
}

// RefreshGrant renews the session with a refresh token and rotates the
// stored token set.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) error {
	resp, err := c.request(ctx, http.MethodPost, c.authHost+"/oauth2/token",
		nil, url.Values{"client_id": {oauthClientID}},
		nil, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {refreshToken},
		})
	if err != nil {
		return err
	}
	return c.adoptTokens(resp)
}

// exchangeAuthCode trades a PKCE authorization code for tokens.
func (c *Client) exchangeAuthCode(ctx context.Context, authCode string) error {
	resp, err := c.request(ctx, http.MethodPost, c.authHost+"/oauth2/token",
		nil, nil, nil, url.Values{
			"grant_type":    {"authorization_code"},
			"client_id":     {oauthClientID},
			"redirect_uri":  {oauthRedirectURI},
			"code":          {authCode},
			"code_verifier": {c.verifier},
		})
	if err != nil {
		return err
	}
	return c.adoptTokens(resp)
}

// adoptTokens installs a token response as the current session.
func (c *Client) adoptTokens(resp map[string]any) error {
	buf, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding token response: %w", err)
	}
	tokens := &Tokens{}
	if err := json.Unmarshal(buf, tokens); err != nil {
		return fmt.Errorf("decoding token response: %w", err)
	}
	if tokens.IDToken == "" && tokens.AccessToken == "" {
		return &AuthError{Message: "token response missing tokens"}
	}
	c.tokens = tokens
	return nil
}

// authCodeFromLocation extracts the `code` query parameter of a redirect.
func authCodeFromLocation(loc string) (string, error) {
	u, err := url.Parse(loc)
	if err != nil {
		return "", &AuthError{Message: "malformed redirect location"}
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", &AuthError{Message: "redirect location missing auth code"}
	}
	return code, nil
}

// generateCodeChallenge creates a fresh PKCE verifier and its S256 challenge.
func generateCodeChallenge() (verifier, challenge string) {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf) //nolint:errcheck // crypto/rand.Read never fails on supported platforms
	verifier = base64.RawURLEncoding.EncodeToString(buf)
	return verifier, challengeFromVerifier(verifier)
}

// challengeFromVerifier derives the S256 challenge for an existing verifier.
func challengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// generateState creates the CSRF state nonce for the authorize request.
func generateState() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf) //nolint:errcheck // crypto/rand.Read never fails on supported platforms
	return base64.RawURLEncoding.EncodeToString(buf)
}
