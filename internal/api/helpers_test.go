package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/skybridge/internal/infrastructure/config"
	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
	"github.com/nerrad567/skybridge/internal/session"
)

// fakeKV is an in-memory stand-in for the Redis session store.
type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string]string)} }

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case string:
		f.data[key] = v
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// makeJWT builds an unsigned-but-well-formed JWT for upstream id tokens.
func makeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]any{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		t.Fatalf("marshaling header: %v", err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshaling claims: %v", err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + ".sig"
}

// fakeCloud is a fake upstream covering the identity host and the REST API
// in one server. Every request is recorded as "METHOD path" for assertions.
type fakeCloud struct {
	server *httptest.Server

	mu    sync.Mutex
	calls []string

	// submitResponse is what the password login endpoint answers. The
	// default grants tokens outright; MFA tests override it.
	submitResponse    map[string]any
	thumbnailLocation string
}

func (f *fakeCloud) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
}

func (f *fakeCloud) called(t *testing.T, call string) bool {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (f *fakeCloud) grant(t *testing.T) map[string]any {
	t.Helper()
	return map[string]any{
		"access_token":  "granted-access",
		"refresh_token": "granted-refresh",
		"id_token":      makeJWT(t, map[string]any{"exp": time.Now().Add(time.Hour).Unix()}),
	}
}

func newFakeCloud(t *testing.T) *fakeCloud {
	t.Helper()
	f := &fakeCloud{}
	f.submitResponse = f.grant(t)

	writeJSONBody := func(w http.ResponseWriter, body any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test handler
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/auth", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSONBody(w, map[string]any{})
	})
	mux.HandleFunc("/idp/api/submit", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSONBody(w, f.submitResponse)
	})
	mux.HandleFunc("/idp/api/validate", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // test handler
		if body["code"] != "654321" {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSONBody(w, map[string]any{"message": "bad code"})
			return
		}
		writeJSONBody(w, map[string]any{"url": "/authorize/continue"})
	})
	mux.HandleFunc("/authorize/continue", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.Header().Set("Location", "vivint://app/oauth_redirect?code=the-auth-code")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSONBody(w, f.grant(t))
	})

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		switch {
		case r.URL.Path == "/api/authuser":
			writeJSONBody(w, authUserPayload())
		case r.URL.Path == "/api/systems/1000" && r.Method == http.MethodGet:
			writeJSONBody(w, systemPayload())
		case r.URL.Path == "/api/panel-login/1000":
			writeJSONBody(w, map[string]any{"n": "paneluser", "pswd": "panelpass"})
		case strings.HasSuffix(r.URL.Path, "/camera-thumbnail"):
			writeJSONBody(w, map[string]any{"location": f.thumbnailLocation})
		case strings.HasSuffix(r.URL.Path, "/system-update") && r.Method == http.MethodGet:
			writeJSONBody(w, map[string]any{
				"available":         true,
				"available_version": "5.1.0",
				"current_version":   "5.0.2",
			})
		default:
			writeJSONBody(w, map[string]any{})
		}
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// Fixture device ids.
const (
	fixtureSystemID   = int64(1000)
	fixtureLockID     = int64(21)
	fixtureCameraID   = int64(31)
	fixtureSwitchID   = int64(41)
	fixtureDimmerID   = int64(51)
	fixtureTestUser   = "user@example.com"
	fixtureTestSecret = "0123456789abcdef0123456789abcdef"
)

func authUserPayload() map[string]any {
	return map[string]any{
		"u": []any{map[string]any{
			"_id":    77,
			"n":      "Owner",
			"mbc":    "chan-77",
			"ad":     true,
			"system": []any{map[string]any{"panid": fixtureSystemID, "sn": "Home", "ad": true}},
		}},
	}
}

func systemPayload() map[string]any {
	return map[string]any{
		"system": map[string]any{
			"panid": fixtureSystemID,
			"mac":   "aa:bb:cc:dd:ee:ff",
			"par": []any{map[string]any{
				"_id":   1,
				"panid": fixtureSystemID,
				"parid": 1,
				"s":     0,
				"d": []any{
					map[string]any{
						"_id": fixtureLockID, "t": "door_lock_device",
						"n": "Front Door", "s": false, "ol": true,
					},
					map[string]any{
						"_id": fixtureCameraID, "t": "camera_device",
						"n": "Doorbell", "ol": true,
						"ctd": "2024-05-01T10:00:00.000000Z",
						"ceu": []any{"rtsp://relay.example.com/cam31"},
					},
					map[string]any{
						"_id": fixtureSwitchID, "t": "binary_switch_device",
						"n": "Lamp", "s": false, "ol": true,
					},
					map[string]any{
						"_id": fixtureDimmerID, "t": "multilevel_switch_device",
						"n": "Dimmer", "val": 30, "ol": true,
					},
				},
			}},
			"u": []any{map[string]any{
				"_id": 77, "n": "Owner", "ad": true,
				"lids": []any{fixtureLockID}, "reg": true,
			}},
		},
	}
}

// testServer wires a Server against the fake cloud and an in-memory KV.
// Optional deps (journal, history, saver) stay nil unless the test sets
// them through mutate.
func testServer(t *testing.T, mutate func(*Deps)) (*Server, http.Handler, *fakeCloud, *fakeKV) {
	t.Helper()
	cloud := newFakeCloud(t)
	kv := newFakeKV()
	logger := logging.Default()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			Secret:          fixtureTestSecret,
			AccessTokenTTL:  15,
			RefreshTokenTTL: 7,
		},
		Upstream: config.UpstreamConfig{
			APIBase:        cloud.server.URL + "/api",
			AuthHost:       cloud.server.URL,
			RequestTimeout: 5,
		},
	}

	deps := Deps{
		Config:   cfg,
		Logger:   logger,
		Store:    session.NewStore(kv, logger),
		Upstream: session.NewUpstream(cfg.Upstream, cfg.UpstreamTimeout(), logger),
		Version:  "test",
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, srv.buildRouter(), cloud, kv
}

// doJSON performs one request against the router and decodes the response.
func doJSON(t *testing.T, handler http.Handler, method, target, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded) //nolint:errcheck // non-JSON bodies stay empty
	}
	return rec, decoded
}

// login runs the password flow and returns the issued token pair.
func login(t *testing.T, handler http.Handler) (access, refresh string) {
	t.Helper()
	rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "",
		map[string]any{"username": fixtureTestUser, "password": "hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	access, _ = body["access_token"].(string)   //nolint:errcheck // asserted below
	refresh, _ = body["refresh_token"].(string) //nolint:errcheck // asserted below
	if access == "" || refresh == "" {
		t.Fatalf("login response missing tokens: %v", body)
	}
	return access, refresh
}
