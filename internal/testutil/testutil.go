// Package testutil provides shared test helpers for content directories and
// repositories.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/folio/internal/repository"
	"github.com/starford/folio/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestContent creates a temporary content directory with a storage.Provider.
func TestContent(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WritePost writes content to rel under dir, creating parent directories,
// and returns the absolute path.
func WritePost(t *testing.T, dir, rel, content string) string {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// TestRepository creates a content directory, writes files (relative path →
// content) into it and returns a scanned repository.
func TestRepository(t *testing.T, files map[string]string) (string, *repository.Repository) {
	t.Helper()
	dir, store := TestContent(t)
	for rel, content := range files {
		WritePost(t, dir, rel, content)
	}
	repo := repository.New(store, Logger())
	if _, err := repo.Scan(); err != nil {
		t.Fatal(err)
	}
	return dir, repo
}

// Context returns a context that is canceled when the test finishes. It
// stands in for testing.T.Context, which requires Go 1.24.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
