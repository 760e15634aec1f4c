package vivint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
)

// defaultRequestTimeout bounds a single upstream REST call.
const defaultRequestTimeout = 30 * time.Second

// timeNow is swappable in tests that pin token expiry edges.
var timeNow = time.Now

// Client is an authenticated session against the Vivint Sky cloud. It owns
// the OAuth token set, the cookie jar the identity host requires across the
// PKCE redirect dance, and the MFA-pending flag.
//
// A Client is cheap to construct; the gateway builds one per request from a
// stored refresh token and discards it afterwards.
type Client struct {
	http         *http.Client
	jar          *cookiejar.Jar
	apiBase      string
	authHost     string
	grpcEndpoint string

	username     string
	password     string
	refreshToken string

	tokens     *Tokens
	mfaPending bool
	mfaType    string
	verifier   string

	logger *logging.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithEndpoints points the client at non-production endpoints (tests, stubs).
func WithEndpoints(apiBase, authHost, grpcEndpoint string) Option {
	return func(c *Client) {
		if apiBase != "" {
			c.apiBase = strings.TrimRight(apiBase, "/")
		}
		if authHost != "" {
			c.authHost = strings.TrimRight(authHost, "/")
		}
		if grpcEndpoint != "" {
			c.grpcEndpoint = grpcEndpoint
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithCookies seeds the cookie jar for the auth host. Used when resuming an
// MFA session whose cookies were parked in the KV store.
func WithCookies(cookies []*http.Cookie) Option {
	return func(c *Client) {
		u, err := url.Parse(c.authHost)
		if err != nil {
			return
		}
		c.jar.SetCookies(u, cookies)
	}
}

// WithVerifier restores a PKCE verifier from a parked MFA session.
func WithVerifier(verifier string) Option {
	return func(c *Client) { c.verifier = verifier }
}

// WithMfaType restores the challenge flavour of a parked MFA session, so
// the code submission hits the endpoint matching the original challenge.
func WithMfaType(mfaType string) Option {
	return func(c *Client) { c.mfaType = mfaType }
}

// NewClient creates an upstream session client. Supply a password for the
// PKCE login path, a refresh token for silent renewal, or both (the refresh
// token is preferred and the password is the fallback).
func NewClient(username, password, refreshToken string, logger *logging.Logger, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New never fails with nil options

	c := &Client{
		http: &http.Client{
			Jar:     jar,
			Timeout: defaultRequestTimeout,
			// Redirects are handled explicitly: the PKCE exchange reads
			// Location headers carrying app-scheme URIs the stdlib client
			// would refuse to follow.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		jar:          jar,
		apiBase:      DefaultAPIBase,
		authHost:     DefaultAuthHost,
		grpcEndpoint: DefaultGRPCEndpoint,
		username:     username,
		password:     password,
		refreshToken: refreshToken,
		logger:       logger.With("component", "vivint"),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the current token set, or nil before authentication.
func (c *Client) Tokens() *Tokens { return c.tokens }

// MfaPending reports whether a login attempt is parked behind an MFA gate.
func (c *Client) MfaPending() bool { return c.mfaPending }

// MfaType returns "code" for SMS/email challenges or "mfa" for
// authenticator apps. Empty unless MFA is pending.
func (c *Client) MfaType() string { return c.mfaType }

// Verifier returns the PKCE verifier of the in-flight login attempt. It must
// survive an MFA round trip, so callers park it alongside the MFA session.
func (c *Client) Verifier() string { return c.verifier }

// AuthCookies returns the auth-host cookies, for parking an MFA session.
func (c *Client) AuthCookies() []*http.Cookie {
	u, err := url.Parse(c.authHost)
	if err != nil {
		return nil
	}
	return c.jar.Cookies(u)
}

// onAuthHost reports whether a fully qualified target lives on the identity
// host. Relative targets are always API-host calls.
func (c *Client) onAuthHost(target string) bool {
	return strings.HasPrefix(target, c.authHost)
}

// resolve turns a relative path into a full API URL; absolute URLs pass
// through untouched.
func (c *Client) resolve(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return c.apiBase + "/" + strings.TrimLeft(target, "/")
}

// request performs one upstream call and classifies the response.
//
// jsonBody and formBody are mutually exclusive. The returned map follows the
// transport contract: decoded JSON for 200+JSON, {"message": text} for
// 200+non-JSON, {"location": header} for 302.
func (c *Client) request(ctx context.Context, method, target string, headers map[string]string, query url.Values, jsonBody map[string]any, formBody url.Values) (map[string]any, error) {
	return c.requestRetry(ctx, method, target, headers, query, jsonBody, formBody, true)
}

func (c *Client) requestRetry(ctx context.Context, method, target string, headers map[string]string, query url.Values, jsonBody map[string]any, formBody url.Values, allowReauth bool) (map[string]any, error) {
	authHost := c.onAuthHost(c.resolve(target))

	if !authHost && !c.tokens.Valid(timeNow()) {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}
	if c.mfaPending && !isMfaSubmission(jsonBody) {
		return nil, ErrMfaRequired
	}

	resp, raw, err := c.send(ctx, method, target, headers, query, jsonBody, formBody, authHost)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	// One implicit re-auth on an expired session, then retry once.
	if resp.StatusCode == http.StatusUnauthorized && !authHost && allowReauth {
		c.logger.Debug("upstream 401, re-authenticating", "target", target)
		c.tokens = nil
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		return c.requestRetry(ctx, method, target, headers, query, jsonBody, formBody, false)
	}

	return c.classify(resp, raw, authHost)
}

func (c *Client) send(ctx context.Context, method, target string, headers map[string]string, query url.Values, jsonBody map[string]any, formBody url.Values, authHost bool) (*http.Response, []byte, error) {
	full := c.resolve(target)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case jsonBody != nil:
		buf, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	case formBody != nil:
		body = strings.NewReader(formBody.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, method, full, body)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !authHost && c.tokens != nil {
		req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read side closed after full drain

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp, raw, nil
}

// classify maps an upstream response onto the transport contract.
func (c *Client) classify(resp *http.Response, raw []byte, authHost bool) (map[string]any, error) {
	switch {
	case resp.StatusCode == http.StatusOK:
		if strings.Contains(resp.Header.Get("Content-Type"), "json") {
			var out map[string]any
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, &TransportError{StatusCode: resp.StatusCode, Message: "malformed json body", Err: err}
			}
			return out, nil
		}
		return map[string]any{"message": string(raw)}, nil

	case resp.StatusCode == http.StatusFound:
		return map[string]any{"location": resp.Header.Get("Location")}, nil

	case resp.StatusCode == http.StatusBadRequest ||
		resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden:
		var body map[string]any
		_ = json.Unmarshal(raw, &body) //nolint:errcheck // non-JSON error bodies fall through to raw text
		message := extractMessage(body)
		if message == "" {
			message = strings.TrimSpace(string(raw))
		}

		if strings.EqualFold(message, "mfa_required") || mfaShape(body) != "" {
			c.mfaPending = true
			if t := mfaShape(body); t != "" {
				c.mfaType = t
			} else if c.mfaType == "" {
				c.mfaType = mfaTypeCode
			}
			return nil, ErrMfaRequired
		}
		if authHost {
			return nil, &AuthError{StatusCode: resp.StatusCode, Message: message}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}

	case resp.StatusCode >= 400:
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	// 2xx/3xx statuses outside the contract are surfaced raw.
	return map[string]any{"message": string(raw)}, nil
}

// extractMessage pulls the error text out of an upstream failure body.
func extractMessage(body map[string]any) string {
	if body == nil {
		return ""
	}
	if m, ok := body["message"].(string); ok && m != "" {
		return m
	}
	if e, ok := body["error"].(string); ok && e != "" {
		if d, ok := body["error_description"].(string); ok && d != "" {
			return e + ": " + d
		}
		return e
	}
	return ""
}

// mfaShape returns the MFA type implied by a challenge body, or "".
func mfaShape(body map[string]any) string {
	if body == nil {
		return ""
	}
	if _, ok := body["validate"]; ok {
		return mfaTypeCode
	}
	if _, ok := body["mfa"]; ok {
		return mfaTypeMfa
	}
	return ""
}

// isMfaSubmission reports whether a request body is an MFA code submission,
// the only call allowed through while the MFA gate is pending.
func isMfaSubmission(body map[string]any) bool {
	if body == nil {
		return false
	}
	_, ok := body["code"]
	return ok
}
