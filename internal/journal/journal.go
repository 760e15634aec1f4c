// Package journal persists realtime events to the SQLite event journal
// for after-the-fact querying.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/skybridge/internal/infrastructure/database"
)

// Event is a single journal entry: one push event as it arrived from the
// cloud, keyed to the system and device it concerned.
type Event struct {
	ID        string         `json:"id"`
	SystemID  int64          `json:"system_id"`
	DeviceID  int64          `json:"device_id,omitempty"`
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter controls which events to return.
type Filter struct {
	SystemID int64  // optional: filter by system
	DeviceID int64  // optional: filter by device
	Event    string // optional: filter by event name
	Limit    int    // default 50, max 200
	Offset   int    // pagination offset
}

// ListResult contains the paginated journal results.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	system_id  INTEGER NOT NULL,
	device_id  INTEGER,
	event      TEXT NOT NULL,
	payload    TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
CREATE INDEX IF NOT EXISTS idx_events_system ON events(system_id, created_at);
`

// Journal reads and writes the event journal.
type Journal struct {
	db *database.DB
}

// New creates a journal over an open database, creating the schema on
// first run.
func New(db *database.DB) (*Journal, error) {
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record inserts an event. ID and CreatedAt are generated if empty.
func (j *Journal) Record(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = "evt-" + uuid.NewString()[:8]
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var payloadJSON *string
	if event.Payload != nil {
		b, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("marshalling event payload: %w", err)
		}
		s := string(b)
		payloadJSON = &s
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (id, system_id, device_id, event, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.SystemID, nullableInt64(event.DeviceID),
		event.Event, payloadJSON,
		event.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// nullableInt64 returns nil for zero, for nullable INTEGER columns.
func nullableInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

// List returns events matching the filter, most recent first.
func (j *Journal) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.SystemID != 0 {
		conditions = append(conditions, "system_id = ?")
		args = append(args, filter.SystemID)
	}
	if filter.DeviceID != 0 {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.Event != "" {
		conditions = append(conditions, "event = ?")
		args = append(args, filter.Event)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM events %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := j.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, system_id, device_id, event, payload, created_at FROM events %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var deviceID sql.NullInt64
		var payloadJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&event.ID, &event.SystemID, &deviceID,
			&event.Event, &payloadJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}

		if deviceID.Valid {
			event.DeviceID = deviceID.Int64
		}
		if payloadJSON.Valid && payloadJSON.String != "" {
			var payload map[string]any
			if json.Unmarshal([]byte(payloadJSON.String), &payload) == nil {
				event.Payload = payload
			}
		}

		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing event timestamp %q: %w", createdAt, err)
		}
		event.CreatedAt = t

		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	if events == nil {
		events = []Event{}
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// Prune deletes events older than the retention window and returns how
// many were removed. A zero or negative retention keeps everything.
func (j *Journal) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	result, err := j.db.ExecContext(ctx,
		"DELETE FROM events WHERE created_at < ?",
		cutoff.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned events: %w", err)
	}
	return n, nil
}
