// Package repository loads posts from the content root and writes them back.
package repository

import (
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/storage"
)

// Repository owns the in-memory post collection for one content root.
// It is not safe for concurrent use; the interactive loop is its only user.
type Repository struct {
	store  storage.Provider
	logger *slog.Logger
	posts  []*models.Post
	// checksums holds the digest of each file as last read or written.
	checksums map[string]string
}

// New creates a repository over store. Call Scan to populate it.
func New(store storage.Provider, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:     store,
		logger:    logger,
		checksums: make(map[string]string),
	}
}

// Root returns the content root the repository scans.
func (r *Repository) Root() string { return r.store.Root() }

// Posts returns the current collection in scan order.
func (r *Repository) Posts() []*models.Post { return r.posts }

// Scan rebuilds the collection from disk, replacing any in-memory posts and
// discarding unsaved edits. Files that fail to load are skipped. The result
// is ordered newest first; undated posts follow all dated ones in traversal
// order.
func (r *Repository) Scan() ([]*models.Post, error) {
	metas, err := r.store.List("")
	if err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, len(metas))
	checksums := make(map[string]string, len(metas))
	for _, m := range metas {
		path := filepath.Join(r.store.Root(), m.Path)
		p, sum, err := r.load(path)
		if err != nil {
			r.logger.Debug("scan: skipped", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		posts = append(posts, p)
		checksums[path] = sum
	}

	slices.SortStableFunc(posts, func(a, b *models.Post) int {
		return models.CompareDates(b.Date, a.Date)
	})

	r.posts = posts
	r.checksums = checksums
	r.logger.Debug("scan: done", slog.String("root", r.store.Root()), slog.Int("posts", len(posts)))
	return posts, nil
}

// Load reads and decodes a single post. Decode failures are returned as
// *apperr.DecodeError carrying the path. The collection is not modified.
func (r *Repository) Load(path string) (*models.Post, error) {
	p, _, err := r.load(path)
	return p, err
}

func (r *Repository) load(path string) (*models.Post, string, error) {
	data, err := r.store.Read(path)
	if err != nil {
		return nil, "", err
	}
	md, body, err := parser.Parse(data)
	if err != nil {
		return nil, "", &apperr.DecodeError{Path: path, Err: err}
	}
	return models.NewPost(path, md, body), checksum.Sum(data), nil
}

// Save serializes the post's metadata and content and overwrites its file.
// Failures are returned as *apperr.PersistenceError.
func (r *Repository) Save(p *models.Post) error {
	data, err := parser.Serialize(p.Metadata, p.Content)
	if err != nil {
		return &apperr.PersistenceError{Path: p.Path, Err: err}
	}
	if err := r.store.Write(p.Path, data); err != nil {
		return &apperr.PersistenceError{Path: p.Path, Err: err}
	}
	r.checksums[p.Path] = checksum.Sum(data)
	r.logger.Info("post saved", slog.String("path", p.Path))
	return nil
}

// ChangedOnDisk reports whether the file at path differs from the version
// the repository last read or wrote. Unknown paths count as changed.
func (r *Repository) ChangedOnDisk(path string) bool {
	data, err := r.store.Read(path)
	if err != nil {
		_, known := r.checksums[path]
		return known
	}
	return !checksum.Matches(data, r.checksums[path])
}
