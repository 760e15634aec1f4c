package vivint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

// authFixture wires a fake identity host covering the PKCE dance.
type authFixture struct {
	server *httptest.Server

	submitResponse map[string]any
	tokenGrants    []url.Values
	authCode       string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{authCode: "the-auth-code"}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/auth", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code_challenge") == "" {
			t.Error("authorize request missing code challenge")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`)) //nolint:errcheck // test handler
	})
	mux.HandleFunc("/idp/api/submit", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.submitResponse) //nolint:errcheck // test handler
	})
	mux.HandleFunc("/idp/api/validate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // test handler
		if body["code"] != "654321" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message": "bad code"}`)) //nolint:errcheck // test handler
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url": "/authorize/continue"}`)) //nolint:errcheck // test handler
	})
	mux.HandleFunc("/authorize/continue", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", oauthRedirectURI+"?code="+f.authCode)
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing token form: %v", err)
		}
		f.tokenGrants = append(f.tokenGrants, r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test handler
			"access_token":  "granted-access",
			"refresh_token": "granted-refresh",
			"id_token":      makeJWT(t, map[string]any{"exp": time.Now().Add(time.Hour).Unix()}),
		})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *authFixture) client(t *testing.T, password, refreshToken string) *Client {
	t.Helper()
	return NewClient("user@example.com", password, refreshToken, testLogger(),
		WithEndpoints(f.server.URL+"/api", f.server.URL, ""))
}

func TestConnect_RefreshGrant(t *testing.T) {
	f := newAuthFixture(t)
	c := f.client(t, "", "stored-refresh")

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if c.Tokens() == nil || c.Tokens().AccessToken != "granted-access" {
		t.Fatalf("Tokens() = %+v, want granted set", c.Tokens())
	}
	if len(f.tokenGrants) != 1 {
		t.Fatalf("token grants = %d, want 1", len(f.tokenGrants))
	}
	grant := f.tokenGrants[0]
	if grant.Get("grant_type") != "refresh_token" || grant.Get("refresh_token") != "stored-refresh" {
		t.Errorf("grant = %v", grant)
	}
}

func TestConnect_PasswordLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.submitResponse = map[string]any{
		"access_token":  "granted-access",
		"refresh_token": "granted-refresh",
		"id_token":      makeJWT(t, map[string]any{"exp": time.Now().Add(time.Hour).Unix()}),
	}
	c := f.client(t, "hunter2", "")

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if c.Tokens().AccessToken != "granted-access" {
		t.Errorf("AccessToken = %q", c.Tokens().AccessToken)
	}
}

func TestConnect_NoCredentials(t *testing.T) {
	f := newAuthFixture(t)
	c := f.client(t, "", "")

	err := c.Connect(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Connect() error = %T (%v), want *AuthError", err, err)
	}
}

func TestConnect_ValidSessionIsNoop(t *testing.T) {
	f := newAuthFixture(t)
	c := f.client(t, "", "")
	c.tokens = validTokens(t)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if len(f.tokenGrants) != 0 {
		t.Errorf("token grants = %d, want 0", len(f.tokenGrants))
	}
}

func TestConnect_MfaChallenge(t *testing.T) {
	tests := []struct {
		name     string
		response map[string]any
		mfaType  string
	}{
		{
			name:     "code challenge",
			response: map[string]any{"validate": "0123"},
			mfaType:  mfaTypeCode,
		},
		{
			name:     "authenticator challenge",
			response: map[string]any{"mfa": "totp"},
			mfaType:  mfaTypeMfa,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.submitResponse = tt.response
			c := f.client(t, "hunter2", "")

			err := c.Connect(context.Background())
			if !errors.Is(err, ErrMfaRequired) {
				t.Fatalf("Connect() error = %v, want ErrMfaRequired", err)
			}
			if !c.MfaPending() {
				t.Error("MfaPending() = false, want true")
			}
			if c.MfaType() != tt.mfaType {
				t.Errorf("MfaType() = %q, want %q", c.MfaType(), tt.mfaType)
			}
		})
	}
}

func TestVerifyMfa_CompletesExchange(t *testing.T) {
	f := newAuthFixture(t)
	f.submitResponse = map[string]any{"validate": "0123"}
	c := f.client(t, "hunter2", "")

	if err := c.Connect(context.Background()); !errors.Is(err, ErrMfaRequired) {
		t.Fatalf("Connect() error = %v, want ErrMfaRequired", err)
	}

	if err := c.VerifyMfa(context.Background(), "654321"); err != nil {
		t.Fatalf("VerifyMfa() error = %v", err)
	}
	if c.MfaPending() {
		t.Error("MfaPending() = true after verification")
	}
	if c.Tokens() == nil || c.Tokens().AccessToken != "granted-access" {
		t.Fatalf("Tokens() = %+v", c.Tokens())
	}

	last := f.tokenGrants[len(f.tokenGrants)-1]
	if last.Get("grant_type") != "authorization_code" {
		t.Errorf("grant_type = %q", last.Get("grant_type"))
	}
	if last.Get("code") != f.authCode {
		t.Errorf("code = %q, want %q", last.Get("code"), f.authCode)
	}
	if last.Get("code_verifier") == "" {
		t.Error("code_verifier missing from exchange")
	}
}

func TestVerifyMfa_BadCode(t *testing.T) {
	f := newAuthFixture(t)
	f.submitResponse = map[string]any{"validate": "0123"}
	c := f.client(t, "hunter2", "")

	if err := c.Connect(context.Background()); !errors.Is(err, ErrMfaRequired) {
		t.Fatalf("Connect() error = %v, want ErrMfaRequired", err)
	}
	err := c.VerifyMfa(context.Background(), "000000")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("VerifyMfa() error = %T (%v), want *AuthError", err, err)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	f := newAuthFixture(t)
	c := f.client(t, "", "stored-refresh")
	c.tokens = validTokens(t)
	c.mfaPending = true

	c.Disconnect()
	c.Disconnect()

	if c.Tokens() != nil || c.MfaPending() {
		t.Errorf("Tokens = %v, MfaPending = %v after disconnect", c.Tokens(), c.MfaPending())
	}
}
