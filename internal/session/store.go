package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
)

const (
	// vivintRefreshTTL matches the upstream refresh token's own 90 day
	// validity window.
	vivintRefreshTTL = 90 * 24 * time.Hour

	// mfaSessionTTL is how long a parked MFA login waits for its code.
	mfaSessionTTL = 5 * time.Minute
)

var (
	// ErrNotFound is returned when a key has expired or never existed.
	ErrNotFound = errors.New("session not found")

	// ErrTokenReuse is returned when a presented refresh token does not
	// match the stored one. The whole session is revoked when this fires.
	ErrTokenReuse = errors.New("refresh token reuse detected")
)

// KV is the subset of store commands the session store needs.
// *kv.Client satisfies it.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// MfaSession is a login attempt parked at a multi-factor challenge. The
// cookies and verifier restore the identity-host state the code
// submission has to happen within.
type MfaSession struct {
	Username     string         `json:"username"`
	Password     string         `json:"password"`
	Cookies      []*http.Cookie `json:"cookies"`
	CodeVerifier string         `json:"code_verifier"`
	MfaType      string         `json:"mfa_type,omitempty"`
}

// Store reads and writes session state in the key-value store.
type Store struct {
	kv     KV
	logger *logging.Logger
}

// NewStore creates a session store over a key-value client.
func NewStore(kvc KV, logger *logging.Logger) *Store {
	return &Store{
		kv:     kvc,
		logger: logger.With("component", "session"),
	}
}

func vivintRefreshKey(username string) string {
	return fmt.Sprintf("user:%s:vivint_refresh_token", username)
}

func apiRefreshKey(username string) string {
	return fmt.Sprintf("user:%s:api_refresh_token", username)
}

func mfaSessionKey(id string) string {
	return fmt.Sprintf("mfa_session:%s:session_data", id)
}

// SaveVivintRefreshToken stores the upstream refresh token for a user.
func (s *Store) SaveVivintRefreshToken(ctx context.Context, username, token string) error {
	if err := s.kv.Set(ctx, vivintRefreshKey(username), token, vivintRefreshTTL).Err(); err != nil {
		return fmt.Errorf("saving upstream refresh token: %w", err)
	}
	return nil
}

// VivintRefreshToken returns the stored upstream refresh token for a user.
func (s *Store) VivintRefreshToken(ctx context.Context, username string) (string, error) {
	token, err := s.kv.Get(ctx, vivintRefreshKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("loading upstream refresh token: %w", err)
	}
	return token, nil
}

// SaveAPIRefreshToken stores the current local refresh token for a user.
// The TTL matches the token's own lifetime so the key and the token
// expire together.
func (s *Store) SaveAPIRefreshToken(ctx context.Context, username, token string, ttl time.Duration) error {
	if err := s.kv.Set(ctx, apiRefreshKey(username), token, ttl).Err(); err != nil {
		return fmt.Errorf("saving refresh token: %w", err)
	}
	return nil
}

// ValidateRefreshToken checks a presented refresh token against the
// stored one. On mismatch the entire session is revoked before
// ErrTokenReuse is returned: a mismatching token means either reuse of a
// rotated token or a store the user has already logged out of, and both
// end the session.
func (s *Store) ValidateRefreshToken(ctx context.Context, username, presented string) error {
	stored, err := s.kv.Get(ctx, apiRefreshKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading refresh token: %w", err)
	}
	if stored != presented {
		s.logger.Warn("refresh token mismatch, revoking session", "user", username)
		if err := s.DeleteSession(ctx, username); err != nil {
			return err
		}
		return ErrTokenReuse
	}
	return nil
}

// DeleteSession removes both tokens for a user, ending their session.
func (s *Store) DeleteSession(ctx context.Context, username string) error {
	if err := s.kv.Del(ctx, vivintRefreshKey(username), apiRefreshKey(username)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// CreateMfaSession parks a login attempt and returns its session id.
func (s *Store) CreateMfaSession(ctx context.Context, mfa MfaSession) (string, error) {
	blob, err := json.Marshal(mfa)
	if err != nil {
		return "", fmt.Errorf("encoding mfa session: %w", err)
	}
	id := uuid.NewString()
	if err := s.kv.Set(ctx, mfaSessionKey(id), blob, mfaSessionTTL).Err(); err != nil {
		return "", fmt.Errorf("saving mfa session: %w", err)
	}
	return id, nil
}

// MfaSession loads a parked login attempt by its session id.
func (s *Store) MfaSession(ctx context.Context, id string) (*MfaSession, error) {
	blob, err := s.kv.Get(ctx, mfaSessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading mfa session: %w", err)
	}
	var mfa MfaSession
	if err := json.Unmarshal([]byte(blob), &mfa); err != nil {
		return nil, fmt.Errorf("decoding mfa session: %w", err)
	}
	return &mfa, nil
}

// DeleteMfaSession removes a parked login attempt. Missing keys are not
// an error; the TTL may have beaten the caller to it.
func (s *Store) DeleteMfaSession(ctx context.Context, id string) error {
	if err := s.kv.Del(ctx, mfaSessionKey(id)).Err(); err != nil {
		return fmt.Errorf("deleting mfa session: %w", err)
	}
	return nil
}
