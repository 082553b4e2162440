package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/starford/folio/internal/models"
)

const (
	defaultWidth  = 120
	defaultHeight = 40
)

var (
	accentColor = lipgloss.Color("205")
	mutedColor  = lipgloss.Color("241")

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
	focusedPaneStyle = paneStyle.BorderForeground(accentColor)

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	paneTitle     = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	draftStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	header := m.headerView()
	status := statusStyle.Render(truncate(m.statusLine(), width))
	paneHeight := max(height-lipgloss.Height(header)-lipgloss.Height(status), 6)

	listWidth := width * 2 / 5
	rightWidth := width - listWidth
	metaHeight := paneHeight / 2
	bodyHeight := paneHeight - metaHeight

	list := m.renderPane(PaneList, listWidth, paneHeight, m.listView)
	meta := m.renderPane(PaneMetadata, rightWidth, metaHeight, m.metadataView)
	body := m.renderPane(PaneBody, rightWidth, bodyHeight, m.bodyView)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, list, lipgloss.JoinVertical(lipgloss.Left, meta, body)),
		status,
	)
}

// renderPane renders a bordered region of the given outer size. render receives
// the inner width and line budget.
func (m *Model) renderPane(p Pane, width, height int, render func(width, lines int) []string) string {
	style := paneStyle
	if m.pane == p {
		style = focusedPaneStyle
	}
	innerWidth := max(width-style.GetHorizontalFrameSize(), 1)
	innerHeight := max(height-style.GetVerticalFrameSize(), 1)

	lines := render(innerWidth, innerHeight)
	if len(lines) > innerHeight {
		lines = lines[:innerHeight]
	}
	return style.
		Width(width - style.GetHorizontalBorderSize()).
		Height(innerHeight).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) headerView() string {
	title := "folio"
	if m.siteName != "" {
		title += " · " + m.siteName
	}
	parts := []string{headerStyle.Render(title), "sort: " + m.filter.Sort.String()}
	if m.filter.DraftsOnly {
		parts = append(parts, draftStyle.Render("drafts only"))
	}
	switch {
	case m.mode == ModeSearch:
		parts = append(parts, m.search.View())
	case m.filter.Query != "":
		parts = append(parts, "search: "+m.filter.Query)
	}
	return strings.Join(parts, "  ")
}

func (m *Model) statusLine() string {
	switch {
	case m.status != "":
		return m.status
	case m.mode == ModeSearch:
		return fmt.Sprintf("Search mode - type to filter | enter/esc: exit search | %d matches", len(m.visible()))
	case m.mode == ModeFieldEdit:
		return "Editing " + m.editKey + " | enter: apply | esc: cancel"
	case m.mode == ModeFieldAddKey, m.mode == ModeFieldAddValue:
		return "Adding field | enter: next | esc: cancel"
	}
	return m.keys.help(m.pane)
}

func (m *Model) listView(width, lines int) []string {
	posts := m.visible()
	out := []string{paneTitle.Render(fmt.Sprintf("Posts (%d)", len(posts)))}
	if len(posts) == 0 {
		return append(out, dimStyle.Render("No posts"))
	}

	// Keep the selection inside the window.
	rows := max(lines-1, 1)
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	for i := start; i < len(posts) && i < start+rows; i++ {
		out = append(out, m.listRow(posts[i], i == m.selected, width))
	}
	return out
}

func (m *Model) listRow(p *models.Post, selected bool, width int) string {
	date := "          "
	if p.Date != nil {
		date = p.Date.Format("2006-01-02")
	}
	title := p.Title
	if title == "" {
		title = "Untitled"
	}
	suffix := ""
	if p.Draft {
		suffix = " [draft]"
	}
	row := truncate(date+"  "+title+suffix, width)
	switch {
	case selected:
		return selectedStyle.Render(row)
	case p.Draft:
		return draftStyle.Render(row)
	}
	return row
}

func (m *Model) metadataView(width, lines int) []string {
	out := []string{paneTitle.Render("Metadata")}
	p := m.current()
	if p == nil {
		return out
	}

	keys := p.Metadata.Keys()
	focused := m.pane == PaneMetadata
	for i, k := range keys {
		var row string
		if m.mode == ModeFieldEdit && k == m.editKey {
			row = k + ": " + m.input.View()
		} else {
			row = truncate(k+": "+models.Format(p.Metadata[k]), width)
		}
		if focused && i == m.metaSelected && m.mode == ModeNormal {
			row = selectedStyle.Render(row)
		}
		out = append(out, row)
	}

	var add string
	switch m.mode {
	case ModeFieldAddKey:
		add = "New field: " + m.input.View()
	case ModeFieldAddValue:
		add = m.pendingKey + ": " + m.input.View()
	default:
		add = dimStyle.Render("+ Add field")
		if focused && m.metaSelected == len(keys) {
			add = selectedStyle.Render("+ Add field")
		}
	}
	out = append(out, add)

	// Scroll so the selected row stays visible.
	if extra := m.metaSelected + 2 - lines; extra > 0 && extra < len(out) {
		out = append(out[:1], out[1+extra:]...)
	}
	return out
}

func (m *Model) bodyView(width, lines int) []string {
	out := []string{paneTitle.Render("Content")}
	p := m.current()
	if p == nil {
		return out
	}
	all := strings.Split(p.Content, "\n")
	start := min(m.scroll, len(all))
	end := min(start+bodyWindow, len(all))
	for _, line := range all[start:end] {
		out = append(out, truncate(line, width))
	}
	return out
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}
