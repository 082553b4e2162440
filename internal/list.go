package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/view"
)

// ListOptions selects the posts printed by List.
type ListOptions struct {
	DraftsOnly bool
	Category   string
	Query      string
	JSON       bool
}

// PostSummary is the JSON shape of a listed post.
type PostSummary struct {
	Path        string   `json:"path"`
	Title       string   `json:"title"`
	Date        string   `json:"date,omitempty"`
	Draft       bool     `json:"draft"`
	ContentType string   `json:"content_type,omitempty"`
	Categories  []string `json:"categories"`
	Tags        []string `json:"tags"`
}

// List prints the site's posts, newest first.
func List(lo ListOptions, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	if cfg.Site.Path == "" {
		return ErrNoSite
	}

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	out := app.out
	if out == nil {
		out = os.Stdout
	}

	repo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}

	posts := view.Apply(repo.Posts(), view.Filter{
		DraftsOnly: lo.DraftsOnly,
		Query:      lo.Query,
		Sort:       view.DateDesc,
	})
	if lo.Category != "" {
		posts = slices.DeleteFunc(posts, func(p *models.Post) bool {
			return !slices.ContainsFunc(p.Categories, func(c string) bool {
				return strings.EqualFold(c, lo.Category)
			})
		})
	}

	summaries := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, summarize(repo.Root(), p))
	}

	if lo.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summaries); err != nil {
			return fmt.Errorf("encode posts: %w", err)
		}
		return nil
	}

	renderTable(out, summaries)
	return nil
}

func summarize(root string, p *models.Post) PostSummary {
	rel, err := filepath.Rel(root, p.Path)
	if err != nil {
		rel = p.Path
	}
	s := PostSummary{
		Path:        filepath.ToSlash(rel),
		Title:       p.Title,
		Draft:       p.Draft,
		ContentType: p.ContentType,
		Categories:  p.Categories,
		Tags:        p.Tags,
	}
	if p.Date != nil {
		s.Date = p.Date.Format("2006-01-02")
	}
	return s
}

func renderTable(w io.Writer, posts []PostSummary) {
	draft := color.New(color.FgYellow).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{
		text.FgGreen.Sprint("Date"),
		text.FgGreen.Sprint("Title"),
		text.FgGreen.Sprint("Categories"),
		text.FgGreen.Sprint("Status"),
		text.FgGreen.Sprint("Path"),
	})
	for _, p := range posts {
		date := p.Date
		if date == "" {
			date = dim("—")
		}
		title := p.Title
		if title == "" {
			title = dim("Untitled")
		}
		status := "published"
		if p.Draft {
			status = draft("draft")
		}
		t.AppendRow(table.Row{date, title, strings.Join(p.Categories, ", "), status, p.Path})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d posts", len(posts))})
	t.Render()
}
