package capture

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/skybridge/internal/infrastructure/config"
	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
)

func testSaver(t *testing.T) *Saver {
	t.Helper()

	saver, err := New(config.MediaConfig{Enabled: true, Root: t.TempDir()}, logging.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return saver
}

func TestNew_Disabled(t *testing.T) {
	_, err := New(config.MediaConfig{Enabled: false}, logging.Default())
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("New() error = %v, want ErrDisabled", err)
	}
}

func TestSaveThumbnail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes")) //nolint:errcheck // test handler
	}))
	defer server.Close()

	saver := testSaver(t)
	path, err := saver.SaveThumbnail(context.Background(), 1000, 50, server.URL)
	if err != nil {
		t.Fatalf("SaveThumbnail() error = %v", err)
	}

	wantDir := filepath.Join(saver.Root(), "1000", "50")
	if filepath.Dir(path) != wantDir {
		t.Errorf("path = %q, want it under %q", path, wantDir)
	}
	if !strings.HasSuffix(path, ".jpg") {
		t.Errorf("path = %q, want a .jpg file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("saved bytes = %q", data)
	}
}

func TestSaveThumbnail_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	saver := testSaver(t)
	if _, err := saver.SaveThumbnail(context.Background(), 1000, 50, server.URL); err == nil {
		t.Error("SaveThumbnail() error = nil for a 404 response")
	}

	entries, err := os.ReadDir(saver.Root())
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("media root entries = %v, want none after failed download", entries)
	}
}
