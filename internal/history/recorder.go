package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/skybridge/internal/infrastructure/config"
	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10

	// millisecondsPerSecond converts the configured flush interval for
	// the client options.
	millisecondsPerSecond = 1000
)

// ErrDisabled is returned by Connect when history recording is turned
// off in configuration.
var ErrDisabled = errors.New("history recording is disabled")

// Recorder writes state-history points to InfluxDB. All methods are safe
// for concurrent use; writes are batched and non-blocking.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.HistoryConfig
	logger   *logging.Logger

	mu        sync.RWMutex
	connected bool
}

// Connect creates a recorder and verifies the server with a ping.
func Connect(cfg config.HistoryConfig, logger *logging.Logger) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	// #nosec G115 -- values clamped positive above
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to history store: %w", err)
	}
	if !healthy {
		client.Close()
		return nil, errors.New("connecting to history store: server not healthy")
	}

	r := &Recorder{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:       cfg,
		logger:    logger.With("component", "history"),
		connected: true,
	}

	// Writes are async; failures surface on this channel.
	go r.drainWriteErrors(r.writeAPI.Errors())

	return r, nil
}

func (r *Recorder) drainWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		r.logger.Error("history write failed", "error", err)
	}
}

// Connected reports the last known connection state.
func (r *Recorder) Connected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// RecordArmedState records an alarm panel state transition.
func (r *Recorder) RecordArmedState(systemID, partitionID int64, state string) {
	if !r.Connected() {
		return
	}
	point := write.NewPoint(
		"armed_state",
		map[string]string{
			"system_id":    strconv.FormatInt(systemID, 10),
			"partition_id": strconv.FormatInt(partitionID, 10),
		},
		map[string]any{"state": state},
		time.Now(),
	)
	r.writeAPI.WritePoint(point)
}

// RecordDeviceState records a device attribute snapshot. Fields hold the
// attributes worth graphing: on/off, lock state, battery level and the
// like.
func (r *Recorder) RecordDeviceState(systemID, deviceID int64, deviceType string, fields map[string]any) {
	if !r.Connected() || len(fields) == 0 {
		return
	}
	point := write.NewPoint(
		"device_state",
		map[string]string{
			"system_id":   strconv.FormatInt(systemID, 10),
			"device_id":   strconv.FormatInt(deviceID, 10),
			"device_type": deviceType,
		},
		fields,
		time.Now(),
	)
	r.writeAPI.WritePoint(point)
}

// RecordEvent records a discrete event occurrence, one count per point.
func (r *Recorder) RecordEvent(systemID, deviceID int64, event string) {
	if !r.Connected() {
		return
	}
	point := write.NewPoint(
		"events",
		map[string]string{
			"system_id": strconv.FormatInt(systemID, 10),
			"device_id": strconv.FormatInt(deviceID, 10),
			"event":     event,
		},
		map[string]any{"count": 1},
		time.Now(),
	)
	r.writeAPI.WritePoint(point)
}

// Flush blocks until all buffered points are written.
func (r *Recorder) Flush() {
	if r.writeAPI == nil || !r.Connected() {
		return
	}
	r.writeAPI.Flush()
}

// HealthCheck verifies the history store is reachable.
func (r *Recorder) HealthCheck(ctx context.Context) error {
	if !r.Connected() {
		return errors.New("history store not connected")
	}
	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := r.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("history health check failed: %w", err)
	}
	if !healthy {
		return errors.New("history health check failed: server not healthy")
	}
	return nil
}

// Close flushes pending writes and shuts the client down.
func (r *Recorder) Close() error {
	if r.client == nil {
		return nil
	}
	r.mu.Lock()
	r.connected = false
	r.mu.Unlock()

	r.writeAPI.Flush()
	r.client.Close()
	return nil
}
