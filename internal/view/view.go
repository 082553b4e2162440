// Package view derives the visible, filtered and sorted post list.
package view

import (
	"slices"
	"strings"

	"github.com/starford/folio/internal/models"
)

// SortMode selects the list order. Modes cycle DateDesc → DateAsc →
// TitleAsc → TitleDesc → DateDesc.
type SortMode int

const (
	DateDesc SortMode = iota
	DateAsc
	TitleAsc
	TitleDesc
)

// Next returns the following mode in the cycle.
func (s SortMode) Next() SortMode {
	return (s + 1) % 4
}

func (s SortMode) String() string {
	switch s {
	case DateDesc:
		return "date ▼"
	case DateAsc:
		return "date ▲"
	case TitleAsc:
		return "title ▲"
	case TitleDesc:
		return "title ▼"
	}
	return "unknown"
}

// Filter holds the inputs of a view query.
type Filter struct {
	DraftsOnly bool
	Query      string
	Sort       SortMode
}

// Apply returns the posts that pass f, in f.Sort order. The input slice and
// the posts are never modified. Sorting is stable, so posts that compare
// equal (two undated posts, equal titles) keep their input order.
func Apply(posts []*models.Post, f Filter) []*models.Post {
	out := make([]*models.Post, 0, len(posts))
	query := strings.ToLower(f.Query)
	for _, p := range posts {
		if f.DraftsOnly && !p.Draft {
			continue
		}
		if query != "" && !Matches(p, query) {
			continue
		}
		out = append(out, p)
	}

	slices.SortStableFunc(out, func(a, b *models.Post) int {
		switch f.Sort {
		case DateAsc:
			return models.CompareDates(a.Date, b.Date)
		case TitleAsc:
			return strings.Compare(a.Title, b.Title)
		case TitleDesc:
			return strings.Compare(b.Title, a.Title)
		default:
			return models.CompareDates(b.Date, a.Date)
		}
	})
	return out
}

// Matches reports whether the lower-cased query occurs in the post's title,
// body or any category. Tags and other metadata are not searched.
func Matches(p *models.Post, query string) bool {
	if strings.Contains(strings.ToLower(p.Title), query) ||
		strings.Contains(strings.ToLower(p.Content), query) {
		return true
	}
	for _, c := range p.Categories {
		if strings.Contains(strings.ToLower(c), query) {
			return true
		}
	}
	return false
}
