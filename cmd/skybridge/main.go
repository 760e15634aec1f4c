// Skybridge - a multi-tenant client gateway for the Vivint Sky cloud.
//
// Skybridge terminates local JWT sessions, proxies REST operations to the
// upstream cloud on behalf of each caller and relays realtime push events
// over WebSocket. Optional subsystems record events to a SQLite journal,
// state history to InfluxDB and doorbell snapshots to disk.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/skybridge/internal/api"
	"github.com/nerrad567/skybridge/internal/capture"
	"github.com/nerrad567/skybridge/internal/history"
	"github.com/nerrad567/skybridge/internal/infrastructure/config"
	"github.com/nerrad567/skybridge/internal/infrastructure/database"
	"github.com/nerrad567/skybridge/internal/infrastructure/kv"
	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
	"github.com/nerrad567/skybridge/internal/journal"
	"github.com/nerrad567/skybridge/internal/session"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// pruneInterval is how often expired journal events are swept.
const pruneInterval = 24 * time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting skybridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Session store (Redis)
	kvClient, err := kv.New(cfg.KV)
	if err != nil {
		return fmt.Errorf("connecting to KV store: %w", err)
	}
	defer func() {
		log.Info("closing KV store")
		if closeErr := kvClient.Close(); closeErr != nil {
			log.Error("error closing KV store", "error", closeErr)
		}
	}()
	if err := kvClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("KV health check: %w", err)
	}
	log.Info("KV store connected", "addr", cfg.KVAddr())

	store := session.NewStore(kvClient, log)
	upstream := session.NewUpstream(cfg.Upstream, cfg.UpstreamTimeout(), log)

	// Event journal (optional)
	var eventJournal *journal.Journal
	if cfg.Journal.Enabled {
		db, openErr := database.Open(database.Config{
			Path:        cfg.Journal.Path,
			WALMode:     cfg.Journal.WALMode,
			BusyTimeout: cfg.Journal.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening journal database: %w", openErr)
		}
		defer func() {
			log.Info("closing journal database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing journal database", "error", closeErr)
			}
		}()

		eventJournal, err = journal.New(db)
		if err != nil {
			return fmt.Errorf("initialising journal: %w", err)
		}
		log.Info("event journal enabled", "path", cfg.Journal.Path, "retention_days", cfg.Journal.Retention)

		if cfg.Journal.Retention > 0 {
			go pruneLoop(ctx, eventJournal, cfg.Journal.Retention, log)
		}
	} else {
		log.Info("event journal disabled")
	}

	// State history (optional)
	var recorder *history.Recorder
	if cfg.History.Enabled {
		recorder, err = history.Connect(cfg.History, log)
		if err != nil {
			return fmt.Errorf("connecting to history store: %w", err)
		}
		defer func() {
			log.Info("closing history store")
			if closeErr := recorder.Close(); closeErr != nil {
				log.Error("error closing history store", "error", closeErr)
			}
		}()
		log.Info("state history enabled", "url", cfg.History.URL, "bucket", cfg.History.Bucket)
	} else {
		log.Info("state history disabled")
	}

	// Doorbell capture (optional)
	var saver *capture.Saver
	if cfg.Media.Enabled {
		saver, err = capture.New(cfg.Media, log)
		if err != nil {
			return fmt.Errorf("initialising media capture: %w", err)
		}
		log.Info("media capture enabled", "root", saver.Root())
	} else {
		log.Info("media capture disabled")
	}

	// API server
	server, err := api.New(api.Deps{
		Config:   cfg,
		Logger:   log,
		Store:    store,
		Upstream: upstream,
		Journal:  eventJournal,
		History:  recorder,
		Saver:    saver,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// pruneLoop sweeps expired journal events once a day until ctx is done.
func pruneLoop(ctx context.Context, j *journal.Journal, retentionDays int, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := j.Prune(ctx, retentionDays)
			if err != nil {
				log.Error("journal prune failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Info("journal pruned", "removed", removed)
			}
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses SKYBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SKYBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
