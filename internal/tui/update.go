package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case editorFinishedMsg:
		return m, m.editorFinished(msg)

	case FilesChangedMsg:
		m.filesChanged(msg.Paths)
		return m, nil

	case WatchFailedMsg:
		m.status = fmt.Sprintf("⚠ Disk watch disabled: %v", msg.Err)
		return m, nil

	case tea.KeyMsg:
		// The save result stays visible until the next key.
		if !key.Matches(msg, m.keys.Save) {
			m.status = ""
		}
		switch m.mode {
		case ModeSearch:
			return m, m.updateSearch(msg)
		case ModeFieldEdit, ModeFieldAddKey, ModeFieldAddValue:
			return m, m.updateInput(msg)
		default:
			return m, m.updateNormal(msg)
		}
	}
	return m, nil
}

func (m *Model) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit
	case key.Matches(msg, m.keys.Save):
		m.save()
	case key.Matches(msg, m.keys.Down):
		m.moveDown()
	case key.Matches(msg, m.keys.Up):
		m.moveUp()
	case key.Matches(msg, m.keys.Confirm):
		return m.confirm()
	case key.Matches(msg, m.keys.NextPane):
		m.focus(m.pane.next())
	case key.Matches(msg, m.keys.PrevPane):
		m.focus(m.pane.prev())
	case key.Matches(msg, m.keys.Delete):
		m.deleteField()
	case key.Matches(msg, m.keys.Sort):
		m.filter.Sort = m.filter.Sort.Next()
		m.selected = 0
		m.clamp()
	case key.Matches(msg, m.keys.Drafts):
		m.filter.DraftsOnly = !m.filter.DraftsOnly
		m.selected = 0
		m.clamp()
	case key.Matches(msg, m.keys.Reload):
		if n, ok := m.rescan(); ok {
			m.status = fmt.Sprintf("✓ Reloaded %d posts", n)
		}
	case key.Matches(msg, m.keys.Preview):
		m.preview()
	case key.Matches(msg, m.keys.Search):
		return m.startSearch()
	case key.Matches(msg, m.keys.Cancel):
		if m.filter.Query != "" {
			m.search.Reset()
			m.filter.Query = ""
			m.selected = 0
			m.clamp()
			m.status = "Search cleared"
		}
	}
	return nil
}

// focus rotates to p. Positions inside the metadata and body panes are not
// remembered across rotations.
func (m *Model) focus(p Pane) {
	m.pane = p
	m.metaSelected = 0
	m.scroll = 0
}

func (m *Model) moveDown() {
	switch m.pane {
	case PaneList:
		if m.selected < len(m.visible())-1 {
			m.selected++
		}
	case PaneMetadata:
		// len(Metadata) is the "add field" row.
		if p := m.current(); p != nil && m.metaSelected < len(p.Metadata) {
			m.metaSelected++
		}
	case PaneBody:
		if p := m.current(); p != nil && m.scroll < lastLine(p) {
			m.scroll++
		}
	}
}

func (m *Model) moveUp() {
	switch m.pane {
	case PaneList:
		if m.selected > 0 {
			m.selected--
		}
	case PaneMetadata:
		if m.metaSelected > 0 {
			m.metaSelected--
		}
	case PaneBody:
		if m.scroll > 0 {
			m.scroll--
		}
	}
}

func (m *Model) confirm() tea.Cmd {
	p := m.current()
	if p == nil {
		return nil
	}
	switch m.pane {
	case PaneMetadata:
		keys := p.Metadata.Keys()
		if m.metaSelected >= len(keys) {
			m.mode = ModeFieldAddKey
			m.pendingKey = ""
			m.input.Reset()
			m.input.Placeholder = "field name"
			return m.input.Focus()
		}
		m.editKey = keys[m.metaSelected]
		m.mode = ModeFieldEdit
		m.input.Placeholder = ""
		m.input.SetValue(editValue(p.Metadata[m.editKey]))
		return m.input.Focus()
	case PaneBody:
		return m.openEditor(p)
	}
	return nil
}

func (m *Model) deleteField() {
	if m.pane != PaneMetadata {
		return
	}
	p := m.current()
	if p == nil {
		return
	}
	keys := p.Metadata.Keys()
	if m.metaSelected >= len(keys) {
		return
	}
	k := keys[m.metaSelected]
	if err := p.DeleteField(k); err != nil {
		if errors.Is(err, apperr.ErrProtectedField) {
			m.status = "✗ Cannot delete title field"
		} else {
			m.status = fmt.Sprintf("✗ Cannot delete %s: %v", k, err)
		}
		return
	}
	m.status = "✓ Deleted field: " + k
	// Stay on a real field when the last one was removed.
	if m.metaSelected > 0 && m.metaSelected >= len(p.Metadata) {
		m.metaSelected--
	}
}

func (m *Model) save() {
	p := m.current()
	if p == nil {
		return
	}
	if err := m.repo.Save(p); err != nil {
		m.logger.Error("save failed", slog.String("path", p.Path), slog.String("error", err.Error()))
		m.status = fmt.Sprintf("✗ Error saving: %v", err)
		return
	}
	m.status = "✓ Saved: " + p.Path
}

// rescan reloads the repository from disk, discarding unsaved edits.
func (m *Model) rescan() (int, bool) {
	posts, err := m.repo.Scan()
	if err != nil {
		m.logger.Error("rescan failed", slog.String("error", err.Error()))
		m.status = fmt.Sprintf("✗ Reload failed: %v", err)
		return 0, false
	}
	m.clamp()
	return len(posts), true
}

func (m *Model) preview() {
	p := m.current()
	if p == nil {
		return
	}
	var (
		url string
		ok  bool
	)
	if m.previewURL != nil {
		url, ok = m.previewURL(p.Path)
	}
	if !ok {
		m.status = "✗ Could not construct preview URL"
		return
	}
	if m.launcher == nil {
		m.status = "✗ Could not open browser: no launcher"
		return
	}
	if err := m.launcher.OpenURL(url); err != nil {
		m.status = fmt.Sprintf("✗ Could not open browser: %v", err)
		return
	}
	m.status = "✓ Opening in browser: " + url
}

// openEditor suspends the program for the editor process. Bubble Tea
// releases the terminal before the process starts and restores it after the
// process exits, whatever the outcome.
func (m *Model) openEditor(p *models.Post) tea.Cmd {
	if m.launcher == nil {
		m.status = fmt.Sprintf("✗ Error opening editor: %v", apperr.ErrNoEditor)
		return nil
	}
	path := p.Path
	m.logger.Info("opening editor", slog.String("path", path))
	return tea.ExecProcess(m.launcher.EditCommand(path), func(err error) tea.Msg {
		return editorFinishedMsg{path: path, err: err}
	})
}

func (m *Model) editorFinished(msg editorFinishedMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Error("editor failed", slog.String("path", msg.path), slog.String("error", msg.err.Error()))
		m.status = fmt.Sprintf("✗ Error opening editor: %v", msg.err)
	} else if _, ok := m.rescan(); ok {
		m.status = "✓ Reloaded after edit"
	}
	// Repaint whatever the child left on the screen.
	return tea.ClearScreen
}

func (m *Model) filesChanged(paths []string) {
	changed := 0
	for _, p := range paths {
		if m.repo.ChangedOnDisk(p) {
			changed++
		}
	}
	if changed == 0 {
		return
	}
	m.logger.Debug("files changed on disk", slog.Int("count", changed))
	m.status = fmt.Sprintf("⟳ %d file(s) changed on disk, press r to reload", changed)
}

func (m *Model) startSearch() tea.Cmd {
	m.mode = ModeSearch
	m.search.Reset()
	m.filter.Query = ""
	m.selected = 0
	m.clamp()
	m.status = "Search mode: type to filter posts"
	return m.search.Focus()
}

// updateSearch handles keys while the query is captured. Enter and Esc both
// leave capture and keep the query; Esc in normal mode clears it.
func (m *Model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Confirm) || key.Matches(msg, m.keys.Cancel) {
		m.mode = ModeNormal
		m.search.Blur()
		return nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.filter.Query = m.search.Value()
	m.selected = 0
	m.clamp()
	return cmd
}

// updateInput handles keys while a field value or a new field name is
// captured.
func (m *Model) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.resetInput()
		return nil
	case key.Matches(msg, m.keys.Confirm):
		return m.commitInput()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) commitInput() tea.Cmd {
	p := m.current()
	buf := m.input.Value()

	switch m.mode {
	case ModeFieldEdit:
		if p != nil {
			if m.editKey == models.KeyDraft {
				p.SetField(m.editKey, models.Bool(buf == "true"))
			} else {
				p.SetField(m.editKey, models.String(buf))
			}
		}

	case ModeFieldAddKey:
		k := strings.TrimSpace(buf)
		if k == "" {
			m.status = "✗ Field name cannot be empty"
			return nil
		}
		m.pendingKey = k
		m.mode = ModeFieldAddValue
		m.input.Reset()
		m.input.Placeholder = "value"
		return nil

	case ModeFieldAddValue:
		if p != nil {
			p.Metadata[m.pendingKey] = models.String(buf)
		}
	}

	m.resetInput()
	if p != nil {
		m.follow(p)
	}
	return nil
}

// follow keeps the selection on p after an edit reordered or filtered the
// view. When p dropped out of the view the selection is only clamped.
func (m *Model) follow(p *models.Post) {
	for i, q := range m.visible() {
		if q.Path == p.Path {
			m.selected = i
			break
		}
	}
	m.clamp()
}

func (m *Model) resetInput() {
	m.mode = ModeNormal
	m.input.Reset()
	m.input.Blur()
	m.editKey = ""
	m.pendingKey = ""
}
