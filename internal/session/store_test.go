package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
)

// fakeKV is an in-memory stand-in for the key-value store, recording the
// TTL each key was written with.
type fakeKV struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case string:
		f.data[key] = v
	case []byte:
		f.data[key] = string(v)
	default:
		return redis.NewStatusResult("", fmt.Errorf("unexpected value type %T", value))
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			delete(f.ttl, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func testStore() (*Store, *fakeKV) {
	fake := newFakeKV()
	return NewStore(fake, logging.Default()), fake
}

func TestVivintRefreshTokenRoundTrip(t *testing.T) {
	store, fake := testStore()
	ctx := context.Background()

	if err := store.SaveVivintRefreshToken(ctx, "user@example.com", "upstream-token"); err != nil {
		t.Fatalf("SaveVivintRefreshToken() error = %v", err)
	}

	got, err := store.VivintRefreshToken(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("VivintRefreshToken() error = %v", err)
	}
	if got != "upstream-token" {
		t.Errorf("VivintRefreshToken() = %q", got)
	}
	if ttl := fake.ttl["user:user@example.com:vivint_refresh_token"]; ttl != 90*24*time.Hour {
		t.Errorf("ttl = %v, want 90 days", ttl)
	}
}

func TestVivintRefreshToken_Missing(t *testing.T) {
	store, _ := testStore()

	if _, err := store.VivintRefreshToken(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("VivintRefreshToken() error = %v, want ErrNotFound", err)
	}
}

func TestValidateRefreshToken(t *testing.T) {
	store, fake := testStore()
	ctx := context.Background()

	if err := store.SaveAPIRefreshToken(ctx, "user@example.com", "current", 7*24*time.Hour); err != nil {
		t.Fatalf("SaveAPIRefreshToken() error = %v", err)
	}
	if ttl := fake.ttl["user:user@example.com:api_refresh_token"]; ttl != 7*24*time.Hour {
		t.Errorf("ttl = %v, want the token lifetime", ttl)
	}

	if err := store.ValidateRefreshToken(ctx, "user@example.com", "current"); err != nil {
		t.Errorf("ValidateRefreshToken() error = %v", err)
	}
}

func TestValidateRefreshToken_ReuseRevokesSession(t *testing.T) {
	store, fake := testStore()
	ctx := context.Background()

	if err := store.SaveVivintRefreshToken(ctx, "user@example.com", "upstream-token"); err != nil {
		t.Fatalf("SaveVivintRefreshToken() error = %v", err)
	}
	if err := store.SaveAPIRefreshToken(ctx, "user@example.com", "current", time.Hour); err != nil {
		t.Fatalf("SaveAPIRefreshToken() error = %v", err)
	}

	if err := store.ValidateRefreshToken(ctx, "user@example.com", "stale"); !errors.Is(err, ErrTokenReuse) {
		t.Fatalf("ValidateRefreshToken() error = %v, want ErrTokenReuse", err)
	}

	if len(fake.data) != 0 {
		t.Errorf("session keys survived revocation: %v", fake.data)
	}
	if _, err := store.VivintRefreshToken(ctx, "user@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("VivintRefreshToken() after revocation error = %v, want ErrNotFound", err)
	}
}

func TestValidateRefreshToken_NoSession(t *testing.T) {
	store, _ := testStore()

	if err := store.ValidateRefreshToken(context.Background(), "user@example.com", "anything"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ValidateRefreshToken() error = %v, want ErrNotFound", err)
	}
}

func TestMfaSessionRoundTrip(t *testing.T) {
	store, fake := testStore()
	ctx := context.Background()

	parked := MfaSession{
		Username:     "user@example.com",
		Password:     "hunter2",
		Cookies:      []*http.Cookie{{Name: "oauth_state", Value: "abc"}},
		CodeVerifier: "verifier-123",
	}
	id, err := store.CreateMfaSession(ctx, parked)
	if err != nil {
		t.Fatalf("CreateMfaSession() error = %v", err)
	}
	if id == "" {
		t.Fatal("CreateMfaSession() returned empty id")
	}
	key := "mfa_session:" + id + ":session_data"
	if ttl := fake.ttl[key]; ttl != 5*time.Minute {
		t.Errorf("ttl = %v, want 5 minutes", ttl)
	}

	got, err := store.MfaSession(ctx, id)
	if err != nil {
		t.Fatalf("MfaSession() error = %v", err)
	}
	if got.Username != parked.Username || got.Password != parked.Password || got.CodeVerifier != parked.CodeVerifier {
		t.Errorf("MfaSession() = %+v", got)
	}
	if len(got.Cookies) != 1 || got.Cookies[0].Name != "oauth_state" || got.Cookies[0].Value != "abc" {
		t.Errorf("Cookies = %+v", got.Cookies)
	}

	if err := store.DeleteMfaSession(ctx, id); err != nil {
		t.Fatalf("DeleteMfaSession() error = %v", err)
	}
	if _, err := store.MfaSession(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("MfaSession() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteMfaSession_MissingIsFine(t *testing.T) {
	store, _ := testStore()

	if err := store.DeleteMfaSession(context.Background(), "already-gone"); err != nil {
		t.Errorf("DeleteMfaSession() error = %v", err)
	}
}
