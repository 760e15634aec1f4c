package vivint

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
)

// makeJWT builds an unsigned-but-well-formed JWT with the given claims.
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

// validTokens returns a token set whose id token expires an hour from now.
func validTokens(t *testing.T) *Tokens {
	t.Helper()
	return &Tokens{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		IDToken: makeJWT(t, map[string]any{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		}),
	}
}

func testLogger() *logging.Logger { return logging.Default() }

// testSite builds a site with one panel and the given device payloads.
func testSite(t *testing.T, client *Client, devices []any) *Site {
	t.Helper()
	data := map[string]any{
		KeySystem: map[string]any{
			KeyPanelID: float64(1000),
			KeyPartitions: []any{
				map[string]any{
					KeyID:          float64(1),
					KeyPanelID:     float64(1000),
					KeyPartitionID: float64(1),
					AttrState:      float64(0),
					KeyDevices:     devices,
				},
			},
			KeyUsers: []any{
				map[string]any{
					KeyID:              float64(77),
					KeyName:            "Owner",
					KeyAdmin:           true,
					AttrUserLockIDs:    []any{float64(5)},
					AttrUserRegistered: true,
				},
			},
		},
	}
	if client == nil {
		client = NewClient("user@example.com", "", "", testLogger())
	}
	return NewSite(data, client, testLogger(), "Home", true)
}
