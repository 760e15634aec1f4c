// Package capture saves doorbell camera snapshots to local storage.
//
// When a watched camera reports a fresh thumbnail, the saver downloads
// it into the media root, laid out as
// {root}/{system_id}/{device_id}/{timestamp}.jpg. A doorbell ding
// triggers an upstream thumbnail request, so a visitor at the door ends
// up as a saved frame a few seconds later.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nerrad567/skybridge/internal/infrastructure/config"
	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
	"github.com/nerrad567/skybridge/internal/vivint"
)

const (
	dirPermissions  = 0750
	filePermissions = 0640

	downloadTimeout = 30 * time.Second
)

// ErrDisabled is returned by New when capture is turned off in
// configuration.
var ErrDisabled = errors.New("media capture is disabled")

// Saver downloads camera thumbnails into the media root.
type Saver struct {
	root   string
	http   *http.Client
	logger *logging.Logger
}

// New creates a saver, creating the media root if needed.
func New(cfg config.MediaConfig, logger *logging.Logger) (*Saver, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if err := os.MkdirAll(cfg.Root, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating media root: %w", err)
	}
	return &Saver{
		root:   cfg.Root,
		http:   &http.Client{Timeout: downloadTimeout},
		logger: logger.With("component", "capture"),
	}, nil
}

// Root returns the media root directory.
func (s *Saver) Root() string { return s.root }

// SaveThumbnail downloads a thumbnail URL into the media root and
// returns the saved path.
func (s *Saver) SaveThumbnail(ctx context.Context, systemID, deviceID int64, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building thumbnail request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading thumbnail: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read side drained below

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading thumbnail: unexpected status %d", resp.StatusCode)
	}

	dir := filepath.Join(s.root,
		fmt.Sprintf("%d", systemID),
		fmt.Sprintf("%d", deviceID),
	)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("creating capture directory: %w", err)
	}

	path := filepath.Join(dir, time.Now().UTC().Format("20060102T150405.000Z")+".jpg")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
	if err != nil {
		return "", fmt.Errorf("creating capture file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()       //nolint:errcheck // write already failed
		os.Remove(path) //nolint:errcheck // best effort cleanup
		return "", fmt.Errorf("writing capture file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing capture file: %w", err)
	}
	return path, nil
}

// WatchCamera wires a camera's doorbell events into the saver. A ding
// asks upstream for a fresh thumbnail; when its ready notification
// arrives, the frame is downloaded. Returns a function that removes both
// listeners.
func (s *Saver) WatchCamera(ctx context.Context, systemID int64, camera *vivint.Camera) func() {
	removeDing := camera.On(vivint.EventDoorbellDing, func(map[string]any) {
		if err := camera.RequestThumbnail(ctx); err != nil {
			s.logger.Warn("thumbnail request failed", "device", camera.ID(), "error", err)
		}
	})
	removeReady := camera.On(vivint.EventThumbnailReady, func(map[string]any) {
		url, err := camera.ThumbnailURL(ctx)
		if err != nil {
			s.logger.Warn("thumbnail url lookup failed", "device", camera.ID(), "error", err)
			return
		}
		path, err := s.SaveThumbnail(ctx, systemID, camera.ID(), url)
		if err != nil {
			s.logger.Warn("thumbnail capture failed", "device", camera.ID(), "error", err)
			return
		}
		s.logger.Info("thumbnail captured", "device", camera.ID(), "path", path)
	})

	return func() {
		removeDing()
		removeReady()
	}
}
