package tui

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/repository"
	"github.com/starford/folio/internal/testutil"
)

type fakeLauncher struct {
	edited  []string
	opened  []string
	openErr error
}

func (f *fakeLauncher) EditCommand(path string) *exec.Cmd {
	f.edited = append(f.edited, path)
	return exec.Command("true")
}

func (f *fakeLauncher) OpenURL(url string) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = append(f.opened, url)
	return nil
}

var (
	keyEnter     = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc       = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab       = tea.KeyMsg{Type: tea.KeyTab}
	keyShiftTab  = tea.KeyMsg{Type: tea.KeyShiftTab}
	keyDown      = tea.KeyMsg{Type: tea.KeyDown}
	keyUp        = tea.KeyMsg{Type: tea.KeyUp}
	keyBackspace = tea.KeyMsg{Type: tea.KeyBackspace}
	keySave      = tea.KeyMsg{Type: tea.KeyCtrlS}
	keyCtrlC     = tea.KeyMsg{Type: tea.KeyCtrlC}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds msgs into m and returns the command of the last one.
func press(m *Model, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

// typeText sends s one character at a time.
func typeText(m *Model, s string) {
	for _, r := range s {
		press(m, runes(string(r)))
	}
}

var testPosts = map[string]string{
	"new.md":   "---\ntitle: Newest\ndate: 2024-03-01\ncategories: [go]\nweight: 3\n---\n\nline1\nline2\nline3",
	"mid.md":   "---\ntitle: Middle\ndate: 2023-06-01\ndraft: true\n---\n\nmiddle body",
	"old.md":   "---\ntitle: Oldest\ndate: 2022-01-01\n---\n\nold body",
	"plain.md": "no frontmatter",
}

func newTestModel(t *testing.T) (*Model, *repository.Repository, *fakeLauncher) {
	t.Helper()
	_, repo := testutil.TestRepository(t, testPosts)
	l := &fakeLauncher{}
	m := New(repo, Options{
		SiteName: "test",
		Launcher: l,
		PreviewURL: func(path string) (string, bool) {
			return "http://localhost:1313/" + strings.TrimSuffix(filepath.Base(path), ".md"), true
		},
		Logger: testutil.Logger(),
	})
	return m, repo, l
}

func TestInitialState(t *testing.T) {
	m, _, _ := newTestModel(t)
	if m.mode != ModeNormal || m.pane != PaneList || m.selected != 0 {
		t.Errorf("mode=%v pane=%v selected=%d", m.mode, m.pane, m.selected)
	}
	if m.filter.DraftsOnly || m.filter.Query != "" || m.filter.Sort != 0 {
		t.Errorf("filter = %+v, want defaults", m.filter)
	}
	if got := m.current().Title; got != "Newest" {
		t.Errorf("current = %q, want Newest", got)
	}
}

func TestListNavigationClamps(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, keyUp)
	if m.selected != 0 {
		t.Fatalf("selected = %d after up at top", m.selected)
	}
	press(m, keyDown, runes("j"), keyDown, keyDown, keyDown)
	if m.selected != 3 {
		t.Errorf("selected = %d, want 3 (last)", m.selected)
	}
	press(m, runes("k"))
	if m.selected != 2 {
		t.Errorf("selected = %d, want 2", m.selected)
	}
}

func TestPaneCycleResetsPositions(t *testing.T) {
	m, _, _ := newTestModel(t)

	press(m, keyTab)
	if m.pane != PaneMetadata {
		t.Fatalf("pane = %v, want metadata", m.pane)
	}
	press(m, keyDown, keyDown)
	if m.metaSelected != 2 {
		t.Fatalf("metaSelected = %d", m.metaSelected)
	}

	press(m, keyTab)
	if m.pane != PaneBody || m.metaSelected != 0 {
		t.Errorf("pane=%v metaSelected=%d, want body/0", m.pane, m.metaSelected)
	}
	press(m, keyDown)
	if m.scroll != 1 {
		t.Fatalf("scroll = %d", m.scroll)
	}

	press(m, keyTab)
	if m.pane != PaneList || m.scroll != 0 {
		t.Errorf("pane=%v scroll=%d, want list/0", m.pane, m.scroll)
	}

	press(m, keyShiftTab)
	if m.pane != PaneBody {
		t.Errorf("pane = %v, want body after reverse rotation", m.pane)
	}
	press(m, runes("h"), runes("l"))
	if m.pane != PaneBody {
		t.Errorf("pane = %v, want body", m.pane)
	}
}

func TestMetadataIndexIncludesAddRow(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, keyTab)
	fields := len(m.current().Metadata)
	for i, n := 0, fields+5; i < n; i++ {
		press(m, keyDown)
	}
	if m.metaSelected != fields {
		t.Errorf("metaSelected = %d, want %d (add row)", m.metaSelected, fields)
	}
	for i, n := 0, fields+5; i < n; i++ {
		press(m, keyUp)
	}
	if m.metaSelected != 0 {
		t.Errorf("metaSelected = %d, want 0", m.metaSelected)
	}
}

func TestBodyScrollClamps(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, keyTab, keyTab)
	press(m, keyUp)
	if m.scroll != 0 {
		t.Fatalf("scroll = %d, want 0", m.scroll)
	}
	for i, n := 0, 10; i < n; i++ {
		press(m, keyDown)
	}
	if want := lastLine(m.current()); m.scroll != want {
		t.Errorf("scroll = %d, want %d", m.scroll, want)
	}
}

// selectField moves the metadata cursor to key.
func selectField(t *testing.T, m *Model, key string) {
	t.Helper()
	for m.pane != PaneMetadata {
		press(m, keyTab)
	}
	for i, k := range m.current().Metadata.Keys() {
		if k == key {
			for m.metaSelected < i {
				press(m, keyDown)
			}
			return
		}
	}
	t.Fatalf("field %q not found", key)
}

func TestFieldEditCommitsString(t *testing.T) {
	m, _, _ := newTestModel(t)
	selectField(t, m, "title")

	press(m, keyEnter)
	if m.mode != ModeFieldEdit {
		t.Fatalf("mode = %v, want FieldEdit", m.mode)
	}
	if got := m.input.Value(); got != "Newest" {
		t.Fatalf("buffer = %q, want current value", got)
	}
	for i, n := 0, len("Newest"); i < n; i++ {
		press(m, keyBackspace)
	}
	typeText(m, "Renamed q")
	press(m, keyEnter)

	p := m.current()
	if m.mode != ModeNormal {
		t.Errorf("mode = %v, want Normal", m.mode)
	}
	if p.Metadata["title"] != models.String("Renamed q") || p.Title != "Renamed q" {
		t.Errorf("title = %#v / %q", p.Metadata["title"], p.Title)
	}
	if m.input.Value() != "" {
		t.Errorf("buffer not cleared: %q", m.input.Value())
	}
}

func TestFieldEditCancelDiscards(t *testing.T) {
	m, _, _ := newTestModel(t)
	selectField(t, m, "title")
	press(m, keyEnter)
	typeText(m, "junk")
	press(m, keyEsc)

	if m.mode != ModeNormal {
		t.Errorf("mode = %v", m.mode)
	}
	if got := m.current().Title; got != "Newest" {
		t.Errorf("title = %q, want unchanged", got)
	}
}

func TestDraftCoercion(t *testing.T) {
	cases := []struct {
		buffer string
		want   bool
	}{
		{"true", true},
		{"false", false},
		{"yes", false},
		{"True", false},
	}
	for _, tc := range cases {
		t.Run(tc.buffer, func(t *testing.T) {
			m, _, _ := newTestModel(t)
			selectField(t, m, "draft")
			press(m, keyEnter)
			for i, n := 0, len(m.input.Value()); i < n; i++ {
				press(m, keyBackspace)
			}
			typeText(m, tc.buffer)
			press(m, keyEnter)

			p := m.current()
			if p.Metadata["draft"] != models.Bool(tc.want) {
				t.Errorf("draft value = %#v, want Bool(%v)", p.Metadata["draft"], tc.want)
			}
			if p.Draft != tc.want {
				t.Errorf("Draft = %v, want %v", p.Draft, tc.want)
			}
		})
	}
}

func TestAddFieldTwoStep(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, keyTab)
	for i, n := 0, len(m.current().Metadata); i < n; i++ {
		press(m, keyDown)
	}

	press(m, keyEnter)
	if m.mode != ModeFieldAddKey {
		t.Fatalf("mode = %v, want FieldAddKey", m.mode)
	}
	typeText(m, "series")
	press(m, keyEnter)
	if m.mode != ModeFieldAddValue || m.pendingKey != "series" {
		t.Fatalf("mode=%v pendingKey=%q", m.mode, m.pendingKey)
	}
	typeText(m, "vol1")
	press(m, keyEnter)

	if got := m.current().Metadata["series"]; got != models.String("vol1") {
		t.Errorf("series = %#v, want vol1", got)
	}
	if m.mode != ModeNormal || m.pendingKey != "" {
		t.Errorf("add state not cleared: mode=%v pendingKey=%q", m.mode, m.pendingKey)
	}
}

func TestAddFieldCancelAfterKey(t *testing.T) {
	m, _, _ := newTestModel(t)
	before := len(m.current().Metadata)
	press(m, keyTab)
	for i, n := 0, before; i < n; i++ {
		press(m, keyDown)
	}
	press(m, keyEnter)
	typeText(m, "series")
	press(m, keyEnter)
	typeText(m, "vol1")
	press(m, keyEsc)

	if m.mode != ModeNormal {
		t.Errorf("mode = %v", m.mode)
	}
	if _, ok := m.current().Metadata["series"]; ok {
		t.Error("cancelled add must not mutate metadata")
	}
	if len(m.current().Metadata) != before {
		t.Errorf("field count = %d, want %d", len(m.current().Metadata), before)
	}
}

func TestAddFieldEmptyKeyStaysPending(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, keyTab)
	for i, n := 0, len(m.current().Metadata); i < n; i++ {
		press(m, keyDown)
	}
	press(m, keyEnter, keyEnter)
	if m.mode != ModeFieldAddKey {
		t.Errorf("mode = %v, want FieldAddKey", m.mode)
	}
	if m.status == "" {
		t.Error("expected a status message for an empty key")
	}
}

func TestDeleteTitleRejected(t *testing.T) {
	m, _, _ := newTestModel(t)
	selectField(t, m, "title")
	before := m.current().Metadata.Keys()

	press(m, runes("d"))

	if diff := cmp.Diff(before, m.current().Metadata.Keys()); diff != "" {
		t.Errorf("metadata changed (-want +got):\n%s", diff)
	}
	if !strings.Contains(m.status, "Cannot delete title") {
		t.Errorf("status = %q", m.status)
	}
}

func TestDeleteLastFieldMovesSelectionUp(t *testing.T) {
	m, _, _ := newTestModel(t)
	keys := m.current().Metadata.Keys()
	last := keys[len(keys)-1]
	selectField(t, m, last)

	press(m, runes("d"))

	if _, ok := m.current().Metadata[last]; ok {
		t.Fatalf("%s not deleted", last)
	}
	if m.metaSelected != len(keys)-2 {
		t.Errorf("metaSelected = %d, want %d", m.metaSelected, len(keys)-2)
	}
	if m.status != "✓ Deleted field: "+last {
		t.Errorf("status = %q", m.status)
	}
}

func TestDeleteOnlyInMetadataPane(t *testing.T) {
	m, _, _ := newTestModel(t)
	before := len(m.current().Metadata)
	press(m, runes("d"))
	if len(m.current().Metadata) != before {
		t.Error("delete from list pane mutated metadata")
	}
}

func TestSearchCaptureAndRetention(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, keyDown)

	press(m, runes("/"))
	if m.mode != ModeSearch || m.selected != 0 {
		t.Fatalf("mode=%v selected=%d", m.mode, m.selected)
	}
	typeText(m, "mid")
	if got := len(m.visible()); got != 1 {
		t.Fatalf("visible = %d, want 1", got)
	}
	// q is text while capturing.
	press(m, runes("q"))
	if m.quitting {
		t.Fatal("q quit during search capture")
	}
	press(m, keyBackspace)

	press(m, keyEsc)
	if m.mode != ModeNormal {
		t.Errorf("mode = %v", m.mode)
	}
	if m.filter.Query != "mid" {
		t.Errorf("query = %q, want retained", m.filter.Query)
	}

	press(m, keyEsc)
	if m.filter.Query != "" || m.status != "Search cleared" {
		t.Errorf("query=%q status=%q", m.filter.Query, m.status)
	}
	if got := len(m.visible()); got != 4 {
		t.Errorf("visible = %d, want 4", got)
	}
}

func TestSearchEnterClearsPriorQuery(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, runes("/"))
	typeText(m, "old")
	press(m, keyEnter)
	press(m, runes("/"))
	if m.filter.Query != "" || m.search.Value() != "" {
		t.Errorf("query = %q, want cleared on new search", m.filter.Query)
	}
}

func TestSortAndDraftsResetSelection(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, keyDown, keyDown)
	press(m, runes("s"))
	if m.selected != 0 || m.filter.Sort.String() != "date ▲" {
		t.Errorf("selected=%d sort=%v", m.selected, m.filter.Sort)
	}
	press(m, keyDown)
	press(m, runes("f"))
	if m.selected != 0 || !m.filter.DraftsOnly {
		t.Errorf("selected=%d drafts=%v", m.selected, m.filter.DraftsOnly)
	}
	if got := len(m.visible()); got != 1 {
		t.Errorf("visible = %d, want 1 draft", got)
	}
}

func TestSaveStatus(t *testing.T) {
	m, _, _ := newTestModel(t)
	p := m.current()
	p.SetField("title", models.String("Saved title"))

	press(m, keySave)
	if m.status != "✓ Saved: "+p.Path {
		t.Fatalf("status = %q", m.status)
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "title: Saved title") {
		t.Errorf("file not updated:\n%s", data)
	}

	// Any other key clears the status.
	press(m, keyDown)
	if m.status != "" {
		t.Errorf("status = %q, want cleared", m.status)
	}
}

func TestSaveFailureIsStatus(t *testing.T) {
	m, _, _ := newTestModel(t)
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	p := m.current()
	if err := os.Chmod(filepath.Dir(p.Path), 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(filepath.Dir(p.Path), 0o755) })

	if cmd := press(m, keySave); cmd != nil {
		t.Errorf("save returned a command")
	}
	if !strings.HasPrefix(m.status, "✗ Error saving:") {
		t.Errorf("status = %q", m.status)
	}
}

func TestQuitOnlyInNormal(t *testing.T) {
	m, _, _ := newTestModel(t)
	selectField(t, m, "title")
	press(m, keyEnter)
	press(m, runes("q"))
	if m.quitting {
		t.Fatal("q quit during field edit")
	}
	if !strings.HasSuffix(m.input.Value(), "q") {
		t.Errorf("buffer = %q, want q appended", m.input.Value())
	}
	press(m, keyEsc)

	if press(m, runes("q")); !m.quitting {
		t.Error("q did not quit in normal mode")
	}
	if m.View() != "" {
		t.Error("view should be empty once quitting")
	}

	m, _, _ = newTestModel(t)
	if press(m, keyCtrlC); !m.quitting {
		t.Error("ctrl+c did not quit in normal mode")
	}
}

func TestBodyConfirmLaunchesEditor(t *testing.T) {
	m, _, l := newTestModel(t)
	press(m, keyTab, keyTab)
	cmd := press(m, keyEnter)
	if cmd == nil {
		t.Fatal("expected exec command")
	}
	if diff := cmp.Diff([]string{m.current().Path}, l.edited); diff != "" {
		t.Errorf("edited mismatch (-want +got):\n%s", diff)
	}
}

func TestEditorFinishedRescans(t *testing.T) {
	dir, repo := testutil.TestRepository(t, testPosts)
	m := New(repo, Options{Launcher: &fakeLauncher{}, Logger: testutil.Logger()})
	m.current().SetField("title", models.String("unsaved"))
	testutil.WritePost(t, dir, "new.md", "---\ntitle: Edited externally\ndate: 2024-03-01\n---\n")

	press(m, editorFinishedMsg{path: filepath.Join(dir, "new.md")})

	if got := m.current().Title; got != "Edited externally" {
		t.Errorf("title = %q, want reloaded value", got)
	}
	if m.status != "✓ Reloaded after edit" {
		t.Errorf("status = %q", m.status)
	}
}

func TestEditorFailureIsStatus(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, editorFinishedMsg{err: errors.New("exec: \"nope\": not found")})
	if !strings.HasPrefix(m.status, "✗ Error opening editor:") {
		t.Errorf("status = %q", m.status)
	}
}

func TestPreview(t *testing.T) {
	m, _, l := newTestModel(t)
	press(m, runes("o"))
	if diff := cmp.Diff([]string{"http://localhost:1313/new"}, l.opened); diff != "" {
		t.Errorf("opened mismatch (-want +got):\n%s", diff)
	}

	l.openErr = errors.New("no browser")
	press(m, runes("o"))
	if !strings.HasPrefix(m.status, "✗ Could not open browser") {
		t.Errorf("status = %q", m.status)
	}
}

func TestFilesChangedNotice(t *testing.T) {
	dir, repo := testutil.TestRepository(t, testPosts)
	m := New(repo, Options{Logger: testutil.Logger()})
	path := filepath.Join(dir, "old.md")

	press(m, FilesChangedMsg{Paths: []string{path}})
	if m.status != "" {
		t.Fatalf("unchanged file reported: %q", m.status)
	}

	testutil.WritePost(t, dir, "old.md", "---\ntitle: Changed\n---\n")
	press(m, FilesChangedMsg{Paths: []string{path}})
	if !strings.Contains(m.status, "changed on disk") {
		t.Errorf("status = %q", m.status)
	}
	if got := m.current().Title; got != "Newest" {
		t.Errorf("notice must not rescan, current = %q", got)
	}
}

func TestRescanClampsSelection(t *testing.T) {
	dir, repo := testutil.TestRepository(t, testPosts)
	m := New(repo, Options{Logger: testutil.Logger()})
	press(m, keyDown, keyDown, keyDown)
	for _, name := range []string{"old.md", "plain.md", "mid.md"} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			t.Fatal(err)
		}
	}
	press(m, runes("r"))
	if m.selected != 0 || m.current() == nil {
		t.Errorf("selected = %d, want clamped to 0", m.selected)
	}
}

func TestEmptyRepository(t *testing.T) {
	_, repo := testutil.TestRepository(t, nil)
	m := New(repo, Options{Logger: testutil.Logger()})
	press(m, keyDown, keyTab, keyDown, keyEnter, runes("d"), keySave, runes("o"))
	if m.mode != ModeNormal {
		t.Errorf("mode = %v", m.mode)
	}
	if out := m.View(); !strings.Contains(out, "No posts") {
		t.Errorf("view missing empty notice:\n%s", out)
	}
}

func TestViewRendersPanes(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	out := m.View()
	for _, want := range []string{"Posts (4)", "Newest", "Metadata", "title: Newest", "+ Add field", "line1"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestWatchFailureShowsStatusAndKeepsRunning(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, WatchFailedMsg{Err: errors.New("too many open files")})

	if !strings.Contains(m.status, "Disk watch disabled: too many open files") {
		t.Errorf("status = %q", m.status)
	}
	if m.quitting {
		t.Error("watch failure must not quit the editor")
	}
	press(m, keyDown)
	if m.selected != 1 {
		t.Errorf("selected = %d, want navigation to keep working", m.selected)
	}
}

func TestEditThatFiltersPostOutClampsSelection(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(m, runes("f"))
	if got := m.current(); got == nil || got.Title != "Middle" {
		t.Fatalf("current = %v, want the only draft", got)
	}
	selectField(t, m, "draft")
	press(m, keyEnter)
	for i, n := 0, len(m.input.Value()); i < n; i++ {
		press(m, keyBackspace)
	}
	typeText(m, "false")
	press(m, keyEnter)

	if n := len(m.visible()); n != 0 {
		t.Fatalf("visible = %d, want 0 drafts", n)
	}
	if m.selected != 0 || m.metaSelected != 0 || m.current() != nil {
		t.Errorf("selected=%d metaSelected=%d, want cleared", m.selected, m.metaSelected)
	}
}

func TestTitleEditUnderTitleSortFollowsPost(t *testing.T) {
	m, repo, _ := newTestModel(t)
	press(m, runes("s"), runes("s"))
	if m.filter.Sort.String() != "title ▲" {
		t.Fatalf("sort = %v", m.filter.Sort)
	}
	idx := -1
	for i, p := range m.visible() {
		if p.Title == "Middle" {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatal("Middle not visible")
	}
	for m.selected < idx {
		press(m, keyDown)
	}
	path := m.current().Path

	selectField(t, m, "title")
	press(m, keyEnter)
	for i, n := 0, len("Middle"); i < n; i++ {
		press(m, keyBackspace)
	}
	typeText(m, "Zeta")
	press(m, keyEnter)

	if got := len(m.visible()) - 1; m.selected != got {
		t.Errorf("selected = %d, want %d (renamed post sorts last)", m.selected, got)
	}
	p := m.current()
	if p == nil || p.Path != path || p.Title != "Zeta" {
		t.Fatalf("current = %v, want the renamed post", p)
	}

	press(m, keySave)
	data, err := os.ReadFile(filepath.Join(repo.Root(), path))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "title: Zeta") {
		t.Errorf("saved the wrong post:\n%s", data)
	}
}
