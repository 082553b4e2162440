// Package models defines the domain types for folio.
package models

import (
	"time"

	"github.com/starford/folio/internal/apperr"
)

// Well-known frontmatter keys.
const (
	KeyTitle       = "title"
	KeyDate        = "date"
	KeyDraft       = "draft"
	KeyContentType = "content_type"
	KeyType        = "type"
	KeyCategories  = "categories"
	KeyCategory    = "category"
	KeyTags        = "tags"
)

// Post is one markdown document with its parsed frontmatter.
//
// Title, Draft and ContentType mirror Metadata and are kept in sync by
// SetField. Date, Categories and Tags are snapshots taken when the post was
// built and are not refreshed by later metadata edits.
type Post struct {
	Path        string
	Title       string
	Date        *time.Time
	Draft       bool
	ContentType string
	Categories  []string
	Tags        []string
	Content     string
	Metadata    Metadata
}

// NewPost builds a Post from decoded metadata and body, deriving the
// denormalized fields. The title key is created when missing.
func NewPost(path string, md Metadata, body string) *Post {
	if md == nil {
		md = Metadata{}
	}
	if _, ok := md[KeyTitle]; !ok {
		md[KeyTitle] = String("")
	}

	p := &Post{
		Path:     path,
		Content:  body,
		Metadata: md,
	}
	p.Title, _ = md.Text(KeyTitle)
	p.Draft, _ = md.Flag(KeyDraft)
	p.ContentType, _ = md.Text(KeyContentType)

	if raw, ok := md.Text(KeyDate); ok {
		if t, ok := ParseDate(raw); ok {
			p.Date = &t
		}
	}

	if cats, ok := md[KeyCategories].(List); ok {
		p.Categories = append([]string(nil), cats...)
	} else if cat, ok := md.Strings(KeyCategory); ok {
		p.Categories = cat
	}
	if tags, ok := md[KeyTags].(List); ok {
		p.Tags = append([]string(nil), tags...)
	}
	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

// SetField stores v under key and refreshes the mirrored struct field for
// title, draft and content_type/type.
func (p *Post) SetField(key string, v Value) {
	p.Metadata[key] = v
	switch key {
	case KeyTitle:
		p.Title = Format(v)
	case KeyDraft:
		b, _ := v.(Bool)
		p.Draft = bool(b)
	case KeyContentType, KeyType:
		p.ContentType = Format(v)
	}
}

// DeleteField removes key from the metadata. The title key is protected.
func (p *Post) DeleteField(key string) error {
	if key == KeyTitle {
		return apperr.ErrProtectedField
	}
	if _, ok := p.Metadata[key]; !ok {
		return apperr.ErrNotFound
	}
	delete(p.Metadata, key)
	return nil
}

// ParseDate accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date, which is
// read as midnight UTC. Anything else reports false.
func ParseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// CompareDates orders optional dates: an absent date sorts before any present
// one and equals another absent date.
func CompareDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
