package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/folio/internal/models"
)

// Extensions lists the file extensions treated as posts.
var Extensions = []string{".md", ".markdown"}

// IsMarkdown reports whether name carries one of the post extensions.
func IsMarkdown(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the content directory
}

// NewFS creates a new FS provider rooted at the given directory. The
// directory does not have to exist yet; listing a missing root is empty.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute content root.
func (f *FS) Root() string { return f.root }

// safePath resolves a path against the content root and rejects any result
// that escapes it. Absolute paths are accepted when they lie under the root.
func (f *FS) safePath(p string) (string, error) {
	if p == "" {
		return f.root, nil
	}
	var abs string
	if filepath.IsAbs(p) {
		abs = filepath.Clean(p)
	} else {
		abs = filepath.Join(f.root, filepath.Clean(p))
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes content root: %s", p)
	}
	return abs, nil
}

// List walks dir (relative to root) and returns every Markdown file in
// directory order, descending into symlinked directories once each.
func (f *FS) List(dir string) ([]models.FileMeta, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var out []models.FileMeta
	err = Walk(base, nil, func(p string) {
		if !IsMarkdown(p) {
			return
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.FileMeta{Path: rel})
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Walk visits root and every directory and regular file below it, following
// symbolic links. Each real directory is entered once, so link cycles end.
// Unreadable subdirectories and dangling links are skipped; only a failure to
// read root is reported. Either callback may be nil.
func Walk(root string, visitDir, visitFile func(path string)) error {
	return walk(root, make(map[string]struct{}), visitDir, visitFile, true)
}

func walk(dir string, seen map[string]struct{}, visitDir, visitFile func(string), top bool) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if top {
			return err
		}
		return nil
	}
	if _, ok := seen[real]; ok {
		return nil
	}
	seen[real] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if top {
			return err
		}
		return nil
	}
	if visitDir != nil {
		visitDir(dir)
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.IsDir() {
			_ = walk(p, seen, visitDir, visitFile, false)
			continue
		}
		if info.Mode().IsRegular() && visitFile != nil {
			visitFile(p)
		}
	}
	return nil
}

// Read returns the raw bytes of a content file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename. The target's
// permission bits are kept when it already exists and symbolic links are
// resolved first. The parent directory must exist.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	// Replace the link target, not the link.
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	dir := filepath.Dir(abs)

	mode := os.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, ".folio-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
