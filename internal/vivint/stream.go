package vivint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
)

// defaultPushOrigin is the realtime broker's subscribe endpoint.
const defaultPushOrigin = "https://ps.pndsn.com"

// pushRetryDelay paces reconnects after a failed long poll.
var pushRetryDelay = 5 * time.Second

// PushHandler receives one decoded push message. Handlers run on the
// stream's delivery goroutine, so message order is preserved and entity
// mutations need no locking.
type PushHandler func(ctx context.Context, message map[string]any)

// PushStream subscribes to an account's realtime broadcast channel and
// delivers messages one at a time, in order.
type PushStream struct {
	http   *http.Client
	origin string
	logger *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// StreamOption customises a PushStream.
type StreamOption func(*PushStream)

// WithPushOrigin points the stream at a non-production broker (tests).
func WithPushOrigin(origin string) StreamOption {
	return func(s *PushStream) { s.origin = strings.TrimRight(origin, "/") }
}

// NewPushStream creates an idle stream. Subscribe starts delivery.
func NewPushStream(logger *logging.Logger, opts ...StreamOption) *PushStream {
	s := &PushStream{
		http:   &http.Client{Timeout: 5 * time.Minute},
		origin: defaultPushOrigin,
		logger: logger.With("component", "stream"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe starts the delivery loop for the given account profile. The
// channel is derived from the user's broadcast channel and the client id
// from the user id. Subscribing an already-subscribed stream restarts it.
func (s *PushStream) Subscribe(ctx context.Context, user *AuthUser, handler PushHandler) error {
	if user == nil || user.MessageBroadcastChannel == "" {
		return fmt.Errorf("account profile missing broadcast channel")
	}
	if user.ID == "" {
		return fmt.Errorf("account profile missing user id")
	}

	channel := pushChannelPrefix + "#" + user.MessageBroadcastChannel
	clientID := "pn-" + strings.ToUpper(string(user.ID))

	s.Disconnect()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(loopCtx, done, channel, clientID, handler)
	return nil
}

// Disconnect stops delivery and waits for the loop to exit. Idempotent.
func (s *PushStream) Disconnect() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *PushStream) run(ctx context.Context, done chan struct{}, channel, clientID string, handler PushHandler) {
	defer close(done)
	s.logger.Debug("push stream connected", "channel", channel, "client_id", clientID)

	timetoken, region := "0", ""
	for {
		if ctx.Err() != nil {
			return
		}
		tt, tr, messages, err := s.poll(ctx, channel, clientID, timetoken, region)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("push poll failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pushRetryDelay):
			}
			continue
		}
		timetoken, region = tt, tr
		for _, message := range messages {
			handler(ctx, message)
		}
	}
}

// poll performs one long poll against the broker and returns the next
// cursor plus any decoded messages.
func (s *PushStream) poll(ctx context.Context, channel, clientID, timetoken, region string) (string, string, []map[string]any, error) {
	q := url.Values{"uuid": {clientID}, "tt": {timetoken}}
	if region != "" {
		q.Set("tr", region)
	}
	target := fmt.Sprintf("%s/v2/subscribe/%s/%s/0?%s",
		s.origin, pushSubscribeKey, url.PathEscape(channel), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", "", nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", "", nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read side closed after full drain
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", nil, fmt.Errorf("push broker status %d", resp.StatusCode)
	}

	var envelope struct {
		Cursor struct {
			Timetoken string          `json:"t"`
			Region    json.RawMessage `json:"r"`
		} `json:"t"`
		Messages []struct {
			Payload map[string]any `json:"d"`
		} `json:"m"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", "", nil, fmt.Errorf("decoding push envelope: %w", err)
	}

	messages := make([]map[string]any, 0, len(envelope.Messages))
	for _, m := range envelope.Messages {
		if m.Payload != nil {
			messages = append(messages, m.Payload)
		}
	}
	return envelope.Cursor.Timetoken, strings.Trim(string(envelope.Cursor.Region), `"`), messages, nil
}
