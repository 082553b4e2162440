// Package tui implements the interactive three-pane post browser: a post
// list, the selected post's frontmatter fields and its body.
//
// All state lives on Model and is mutated only from Update, one input event
// at a time.
package tui

import (
	"log/slog"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/repository"
	"github.com/starford/folio/internal/view"
)

// bodyWindow is the number of body lines shown from the scroll offset.
const bodyWindow = 30

// Mode is the input mode. Exactly one is active at a time.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeFieldEdit
	ModeFieldAddKey
	ModeFieldAddValue
)

// Pane identifies the focused region.
type Pane int

const (
	PaneList Pane = iota
	PaneMetadata
	PaneBody
)

const paneCount = 3

func (p Pane) next() Pane { return (p + 1) % paneCount }
func (p Pane) prev() Pane { return (p + paneCount - 1) % paneCount }

// Launcher starts the programs the session hands work to.
type Launcher interface {
	// EditCommand returns the editor process for path. The session suspends
	// itself while the process runs.
	EditCommand(path string) *exec.Cmd
	// OpenURL opens url in a browser without waiting.
	OpenURL(url string) error
}

// Options configures a Model.
type Options struct {
	SiteName   string
	Launcher   Launcher
	PreviewURL func(postPath string) (string, bool)
	Logger     *slog.Logger
}

// FilesChangedMsg reports files modified outside the session.
type FilesChangedMsg struct {
	Paths []string
}

// WatchFailedMsg reports that the disk watcher stopped with an error.
type WatchFailedMsg struct {
	Err error
}

type editorFinishedMsg struct {
	path string
	err  error
}

// Model is the session state.
type Model struct {
	repo       *repository.Repository
	launcher   Launcher
	previewURL func(string) (string, bool)
	logger     *slog.Logger
	siteName   string
	keys       keyMap

	mode   Mode
	pane   Pane
	filter view.Filter

	selected     int
	metaSelected int
	scroll       int

	search textinput.Model
	input  textinput.Model
	// editKey is the field under FieldEdit; pendingKey the key captured by
	// the first FieldAdd step.
	editKey    string
	pendingKey string

	status        string
	width, height int
	quitting      bool
}

// New creates a session over an already scanned repository.
func New(repo *repository.Repository, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "search"

	input := textinput.New()
	input.Prompt = ""

	return &Model{
		repo:       repo,
		launcher:   opts.Launcher,
		previewURL: opts.PreviewURL,
		logger:     logger,
		siteName:   opts.SiteName,
		keys:       defaultKeyMap(),
		filter:     view.Filter{Sort: view.DateDesc},
		search:     search,
		input:      input,
	}
}

func (m *Model) Init() tea.Cmd {
	if m.siteName == "" {
		return nil
	}
	return tea.SetWindowTitle("folio: " + m.siteName)
}

// Mode returns the active input mode.
func (m *Model) Mode() Mode { return m.mode }

// Status returns the current status line message.
func (m *Model) Status() string { return m.status }

// visible is the current view of the repository.
func (m *Model) visible() []*models.Post {
	return view.Apply(m.repo.Posts(), m.filter)
}

// current returns the selected post of the view, or nil when it is empty.
func (m *Model) current() *models.Post {
	posts := m.visible()
	if m.selected < 0 || m.selected >= len(posts) {
		return nil
	}
	return posts[m.selected]
}

// clamp pulls the selection indices back into range after the view or the
// selected post changed underneath them.
func (m *Model) clamp() {
	n := len(m.visible())
	if m.selected >= n {
		m.selected = max(n-1, 0)
	}
	p := m.current()
	if p == nil {
		m.metaSelected, m.scroll = 0, 0
		return
	}
	m.metaSelected = min(m.metaSelected, len(p.Metadata))
	m.scroll = min(m.scroll, lastLine(p))
}

// editValue renders v for the edit buffer.
func editValue(v models.Value) string {
	if r, ok := v.(models.Raw); ok && (r.Node == nil || r.Node.ShortTag() == "!!null") {
		return ""
	}
	return models.Format(v)
}

// lastLine is the highest useful body scroll offset.
func lastLine(p *models.Post) int {
	return strings.Count(p.Content, "\n")
}
