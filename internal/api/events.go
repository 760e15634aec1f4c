package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
	"github.com/nerrad567/skybridge/internal/journal"
	"github.com/nerrad567/skybridge/internal/vivint"
)

// handleListEvents queries the event journal.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "event journal is disabled")
		return
	}

	q := r.URL.Query()
	filter := journal.Filter{Event: q.Get("event")}
	filter.SystemID, _ = strconv.ParseInt(q.Get("system_id"), 10, 64) //nolint:errcheck // zero means unfiltered
	filter.DeviceID, _ = strconv.ParseInt(q.Get("device_id"), 10, 64) //nolint:errcheck // zero means unfiltered
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))                    //nolint:errcheck // zero means default
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))                  //nolint:errcheck // zero means first page

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("journal query failed", "error", err)
		writeInternalError(w, "could not query events")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// WebSocket relay constants.
const (
	// relayQueueSize bounds the per-connection outbound queue. A client
	// that falls this far behind is disconnected rather than buffered
	// without limit.
	relayQueueSize = 1000

	relayPongWait  = 90 * time.Second
	relayWriteWait = 10 * time.Second

	// relayDrainWait bounds the best-effort flush of queued events when
	// a client disconnects cleanly.
	relayDrainWait = 3 * time.Second
)

// relayPingInterval paces keepalives on an idle connection.
var relayPingInterval = 30 * time.Second

var relayUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// eventMessage is one relayed event. The "ping" heartbeat uses the same
// shape with only event_name and timestamp set.
type eventMessage struct {
	EventName string `json:"event_name"`
	SystemID  int64  `json:"system_id,omitempty"`
	DeviceID  int64  `json:"device_id,omitempty"`
	Timestamp string `json:"timestamp"`
	Payload   any    `json:"payload,omitempty"`
}

// eventRelay is one WebSocket connection with its filters and bounded
// outbound queue.
type eventRelay struct {
	conn   *websocket.Conn
	send   chan []byte
	cancel context.CancelFunc
	once   sync.Once

	// stopped tells the write pump to flush and exit; writerDone reports
	// that it has.
	stopped    chan struct{}
	writerDone chan struct{}

	systemID int64
	deviceID int64
	events   map[string]struct{}
}

// handleEventsSocket upgrades the connection and relays realtime events
// from the caller's upstream push stream. Auth is via the token query
// parameter; query filters narrow the feed to one system, one device or
// a set of event names.
func (s *Server) handleEventsSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeUnauthorized(w, "token query parameter is required")
		return
	}
	claims, err := s.validateAccess(r.Context(), token)
	if err != nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	account := s.upstream.ResumeClaims(claims)
	authData, err := account.Connect(ctx, true, false)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	defer account.Disconnect()

	conn, err := relayUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close() //nolint:errcheck // connection teardown

	relay := newEventRelay(conn, cancel, r.URL.Query())

	// The push stream delivers on a single goroutine; routing into the
	// site tree first means relayed device events reflect the already
	// updated state.
	stream := vivint.NewPushStream(s.logger)
	defer stream.Disconnect()

	s.watchDeviceEvents(ctx, relay, account)
	if err := stream.Subscribe(ctx, authData.PrimaryUser(), func(ctx context.Context, msg map[string]any) {
		account.HandlePushMessage(ctx, msg)
		s.relayEnvelope(ctx, relay, msg)
	}); err != nil {
		s.logger.Error("push stream subscribe failed", "error", err)
		return
	}

	go relay.writePump()
	relay.readPump(s.logger)
}

func newEventRelay(conn *websocket.Conn, cancel context.CancelFunc, query map[string][]string) *eventRelay {
	relay := &eventRelay{
		conn:       conn,
		send:       make(chan []byte, relayQueueSize),
		cancel:     cancel,
		stopped:    make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	get := func(key string) string {
		if v := query[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	relay.systemID, _ = strconv.ParseInt(get("system_id"), 10, 64) //nolint:errcheck // zero means unfiltered
	relay.deviceID, _ = strconv.ParseInt(get("device_id"), 10, 64) //nolint:errcheck // zero means unfiltered
	if names := get("events"); names != "" {
		relay.events = make(map[string]struct{})
		for _, name := range strings.Split(names, ",") {
			relay.events[strings.TrimSpace(name)] = struct{}{}
		}
	}
	return relay
}

// relayEnvelope forwards a raw push envelope as "<type>:<op>" and
// records it in the journal.
func (s *Server) relayEnvelope(ctx context.Context, relay *eventRelay, msg map[string]any) {
	msgType, _ := msg[vivint.KeyType].(string) //nolint:errcheck // empty type relays as bare op
	op, _ := msg[vivint.KeyOperation].(string) //nolint:errcheck // ops other than c/d/u arrive opless
	name := msgType
	if op != "" {
		name += ":" + op
	}

	var systemID int64
	if v, ok := msg[vivint.KeyPanelID].(float64); ok {
		systemID = int64(v)
	}

	relay.deliver(eventMessage{
		EventName: name,
		SystemID:  systemID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   msg,
	})

	if s.journal != nil && name != "" {
		event := &journal.Event{SystemID: systemID, Event: name, Payload: msg}
		if err := s.journal.Record(ctx, event); err != nil {
			s.logger.Warn("journal write failed", "error", err)
		}
	}
}

// watchDeviceEvents attaches listeners for the device-scoped events the
// site tree derives from push updates: discoveries, deletions and the
// camera doorbell family.
func (s *Server) watchDeviceEvents(ctx context.Context, relay *eventRelay, account *vivint.Account) {
	deliver := func(name string, systemID, deviceID int64, payload map[string]any) {
		relay.deliver(eventMessage{
			EventName: name,
			SystemID:  systemID,
			DeviceID:  deviceID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Payload:   payload,
		})
		if s.journal != nil {
			event := &journal.Event{SystemID: systemID, DeviceID: deviceID, Event: name, Payload: payload}
			if err := s.journal.Record(ctx, event); err != nil {
				s.logger.Warn("journal write failed", "error", err)
			}
		}
		if s.history != nil {
			s.history.RecordEvent(systemID, deviceID, name)
		}
	}

	for _, site := range account.Sites() {
		for _, panel := range site.Panels() {
			systemID := panel.ID()
			for _, name := range []string{vivint.EventDeviceDiscovered, vivint.EventDeviceDeleted} {
				name := name
				panel.On(name, func(payload map[string]any) {
					deliver(name, systemID, 0, payload)
				})
			}

			for _, device := range panel.Devices() {
				camera, ok := device.(*vivint.Camera)
				if !ok {
					continue
				}
				deviceID := camera.ID()
				for _, name := range []string{
					vivint.EventDoorbellDing,
					vivint.EventThumbnailReady,
					vivint.EventVideoReady,
					vivint.EventMotionDetected,
				} {
					name := name
					camera.On(name, func(payload map[string]any) {
						deliver(name, systemID, deviceID, payload)
					})
				}
				if s.saver != nil && camera.IsDoorbell() {
					s.saver.WatchCamera(ctx, systemID, camera)
				}
			}
		}
	}
}

// deliver applies the connection's filters and queues the message. A
// full queue means the client cannot keep up; the connection is closed
// with a policy violation rather than buffering without bound.
func (r *eventRelay) deliver(msg eventMessage) {
	if r.systemID != 0 && msg.SystemID != r.systemID {
		return
	}
	if r.deviceID != 0 && msg.DeviceID != r.deviceID {
		return
	}
	if r.events != nil {
		if _, ok := r.events[msg.EventName]; !ok {
			return
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case r.send <- data:
	default:
		r.close(websocket.CloseInternalServerErr, "client too slow")
	}
}

// close tears the connection down once. A normal closure first lets the
// write pump flush whatever is already queued, so a departing client
// still receives the events it was owed.
func (r *eventRelay) close(code int, reason string) {
	r.once.Do(func() {
		close(r.stopped)
		if code == websocket.CloseNormalClosure {
			select {
			case <-r.writerDone:
			case <-time.After(relayDrainWait):
			}
		}
		deadline := time.Now().Add(relayWriteWait)
		//nolint:errcheck // best-effort close frame
		r.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		r.cancel()
		r.conn.Close() //nolint:errcheck // connection teardown
	})
}

// writePump writes queued events and keepalive pings.
func (r *eventRelay) writePump() {
	defer close(r.writerDone)
	ticker := time.NewTicker(relayPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopped:
			r.flushQueue()
			return
		case data := <-r.send:
			//nolint:errcheck // write error surfaces on the next read
			r.conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
			if err := r.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				r.close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			//nolint:errcheck // write error surfaces on the next read
			r.conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
			if err := r.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				r.close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
			// Browser clients cannot observe protocol pings, so an idle
			// feed also carries an application-level heartbeat.
			heartbeat, err := json.Marshal(eventMessage{
				EventName: "ping",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			if err != nil {
				continue
			}
			if err := r.conn.WriteMessage(websocket.TextMessage, heartbeat); err != nil {
				r.close(websocket.CloseAbnormalClosure, "heartbeat failed")
				return
			}
		}
	}
}

// flushQueue drains already-queued events to the client, stopping at
// the first write error or when the drain window closes.
func (r *eventRelay) flushQueue() {
	deadline := time.Now().Add(relayDrainWait)
	for {
		select {
		case data := <-r.send:
			if time.Now().After(deadline) {
				return
			}
			//nolint:errcheck // the write below reports the failure
			r.conn.SetWriteDeadline(deadline)
			if err := r.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// readPump consumes client frames until the connection dies. Clients
// send nothing meaningful; reading drives pong handling and close
// detection.
func (r *eventRelay) readPump(logger *logging.Logger) {
	//nolint:errcheck // best-effort deadline on connection setup
	r.conn.SetReadDeadline(time.Now().Add(relayPongWait))
	r.conn.SetPongHandler(func(string) error {
		return r.conn.SetReadDeadline(time.Now().Add(relayPongWait))
	})

	for {
		if _, _, err := r.conn.ReadMessage(); err != nil {
			logger.Debug("websocket closed", "error", err)
			r.close(websocket.CloseNormalClosure, "")
			return
		}
	}
}
