package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lotas/wegweiser/internal/pins"
	"github.com/lotas/wegweiser/internal/testutil"
	"github.com/lotas/wegweiser/internal/types"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func loadedModel(t *testing.T) (Model, *pins.Store) {
	t.Helper()
	store := pins.NewStore(pins.NewMemoryKV())
	load := func(context.Context) ([]types.Category, error) { return testutil.Dataset(), nil }
	m := NewModel("fixture", load, store, nil)
	m, _ = update(t, m,
		tea.WindowSizeMsg{Width: 120, Height: 40},
		datasetLoadedMsg{data: testutil.Dataset()},
	)
	return m, store
}

func visibleCodes(m Model) []string {
	var codes []string
	for _, n := range m.tree.VisibleNodes() {
		if n.Section != nil {
			codes = append(codes, n.Section.Code)
		} else {
			codes = append(codes, n.Category.Code)
		}
	}
	return codes
}

func TestLoadingAndErrorStates(t *testing.T) {
	load := func(context.Context) ([]types.Category, error) { return nil, errors.New("boom") }
	m := NewModel("data/resources.json", load, nil, nil)

	if !strings.Contains(m.View(), "Loading resources from data/resources.json") {
		t.Errorf("loading view = %q", m.View())
	}

	m, _ = update(t, m, datasetLoadedMsg{err: errors.New("status 404")})
	view := m.View()
	if !strings.Contains(view, "Could not load the resource directory") || !strings.Contains(view, "status 404") {
		t.Errorf("error view = %q", view)
	}

	// Filters are unreachable while the load has failed.
	m, _ = update(t, m, keyMsg("p"))
	if m.filter.ShowPinnedOnly {
		t.Error("pinned-only toggled on an error screen")
	}

	m, cmd := update(t, m, keyMsg("r"))
	if !m.loading || m.err != nil || cmd == nil {
		t.Errorf("retry: loading=%v err=%v cmd=%v", m.loading, m.err, cmd != nil)
	}
}

func TestLoadedDefaultIsCollapsed(t *testing.T) {
	m, _ := loadedModel(t)

	got := strings.Join(visibleCodes(m), ",")
	if got != "A,B" {
		t.Errorf("visible = %s, want A,B", got)
	}
	if m.payload.Totals.TotalSections != 4 || m.payload.Stats.LinkCount != 4 {
		t.Errorf("payload totals=%+v stats=%+v", m.payload.Totals, m.payload.Stats)
	}
	if m.activeCategory() != "A" {
		t.Errorf("active = %q, want A", m.activeCategory())
	}
}

func TestSearchNarrowsAndExpands(t *testing.T) {
	m, _ := loadedModel(t)

	m, _ = update(t, m, keyMsg("/"), keyMsg("foo"))
	if !m.searching {
		t.Fatal("search box not focused")
	}
	if m.filter.SearchTerm != "foo" {
		t.Fatalf("search term = %q", m.filter.SearchTerm)
	}
	if got := strings.Join(visibleCodes(m), ","); got != "B,B1" {
		t.Errorf("visible = %s, want B,B1", got)
	}

	m, _ = update(t, m, keyMsg("esc"))
	if m.searching || m.filter.SearchTerm != "" {
		t.Errorf("esc: searching=%v term=%q", m.searching, m.filter.SearchTerm)
	}
	if got := strings.Join(visibleCodes(m), ","); got != "A,B" {
		t.Errorf("visible after esc = %s", got)
	}
}

func TestSearchCategoryMatchOnly(t *testing.T) {
	m, _ := loadedModel(t)
	m, _ = update(t, m, keyMsg("/"), keyMsg("phone"), keyMsg("enter"))

	if got := strings.Join(visibleCodes(m), ","); got != "C" {
		t.Errorf("visible = %s, want C", got)
	}
	if !m.tree.Expanded["C"] {
		t.Error("category match should auto-expand")
	}
	if m.searching {
		t.Error("enter should leave the search box")
	}
}

func TestPinKeepsExpansion(t *testing.T) {
	m, store := loadedModel(t)

	// Expand A, move onto A1, pin it.
	m, _ = update(t, m, keyMsg("l"), keyMsg("down"), keyMsg(" "))
	if !store.Load().Has("A-A1") {
		t.Fatal("A-A1 not persisted")
	}
	if !m.tree.Expanded["A"] {
		t.Error("pin toggle collapsed the category")
	}
	if m.payload.Totals.PinnedCount != 1 {
		t.Errorf("pinned count = %d", m.payload.Totals.PinnedCount)
	}
	if node := m.tree.SelectedNode(); node == nil || node.Key() != "A-A1" {
		t.Errorf("cursor moved off A1: %+v", node)
	}

	// Pin on a header is a no-op.
	m, _ = update(t, m, keyMsg("up"), keyMsg(" "))
	if m.pinned.Len() != 1 {
		t.Errorf("header pin changed set: %v", m.pinned.Keys())
	}
}

func TestPinnedOnlyAndReset(t *testing.T) {
	m, _ := loadedModel(t)
	m, _ = update(t, m, keyMsg("l"), keyMsg("down"), keyMsg(" "), keyMsg("p"))

	if got := strings.Join(visibleCodes(m), ","); got != "A,A1" {
		t.Errorf("pinned-only visible = %s, want A,A1", got)
	}

	// Unpinning under pinned-only empties the view.
	m, _ = update(t, m, keyMsg("down"), keyMsg(" "))
	if !m.payload.Empty {
		t.Errorf("expected empty state, visible = %v", visibleCodes(m))
	}
	if !strings.Contains(m.View(), "No sections match the current filters") {
		t.Error("empty-state guidance missing")
	}

	m, _ = update(t, m, keyMsg("x"))
	if m.filter != types.DefaultFilterState() {
		t.Errorf("reset filter = %+v", m.filter)
	}
	if got := strings.Join(visibleCodes(m), ","); got != "A,B" {
		t.Errorf("visible after reset = %s", got)
	}
}

func TestStatusPicker(t *testing.T) {
	m, _ := loadedModel(t)

	m, _ = update(t, m, keyMsg("s"))
	if !m.showPicker || len(m.picker.Options) != 3 {
		t.Fatalf("picker: show=%v options=%+v", m.showPicker, m.picker.Options)
	}
	m, _ = update(t, m, keyMsg("down"), keyMsg("enter"))
	if m.showPicker || m.filter.StatusFilter != "2023" {
		t.Errorf("status = %q, show=%v", m.filter.StatusFilter, m.showPicker)
	}
	if m.payload.Stats.SectionCount != 2 {
		t.Errorf("sections for 2023 = %d, want 2", m.payload.Stats.SectionCount)
	}
}

func TestFilterChangeResetsExpansion(t *testing.T) {
	m, _ := loadedModel(t)

	// Expand B by hand.
	m, _ = update(t, m, keyMsg("]"), keyMsg("enter"))
	if !m.tree.Expanded["B"] {
		t.Fatal("B not expanded by hand")
	}

	// Category picker: all, A, B, C.
	m, _ = update(t, m, keyMsg("c"), keyMsg("down"), keyMsg("enter"))
	if m.filter.CategoryFilter != "A" {
		t.Fatalf("category = %q", m.filter.CategoryFilter)
	}
	if !m.tree.Expanded["A"] || m.tree.Expanded["B"] {
		t.Errorf("expanded = %v, want only A", m.tree.Expanded)
	}

	m, _ = update(t, m, keyMsg("x"))
	if m.tree.Expanded["B"] {
		t.Error("manual expansion survived a filter change")
	}
}

func TestOpenLink(t *testing.T) {
	m, _ := loadedModel(t)
	var opened []string
	m.opener = func(url string) error {
		opened = append(opened, url)
		return nil
	}

	m, _ = update(t, m, keyMsg("l"), keyMsg("down"), keyMsg("2"))
	m, cmd := update(t, m, keyMsg("o"))
	if cmd == nil {
		t.Fatal("no open command")
	}
	m, _ = update(t, m, cmd())
	if len(opened) != 1 || opened[0] != "https://example.org/hostels" {
		t.Errorf("opened = %v", opened)
	}
	if !strings.Contains(m.notice, "opened") {
		t.Errorf("notice = %q", m.notice)
	}

	// A section without links has nothing to open.
	m, _ = update(t, m, keyMsg("down"))
	if _, cmd := update(t, m, keyMsg("o")); cmd != nil {
		t.Error("open on A2 returned a command")
	}
}

func TestObserverMessages(t *testing.T) {
	m, store := loadedModel(t)

	m, _ = update(t, m, wsVisibleMsg{key: "B-B2"})
	if m.activeCategory() != "B" {
		t.Errorf("active = %q, want B", m.activeCategory())
	}
	m, _ = update(t, m, wsVisibleMsg{key: "nope"})
	if m.activeCategory() != "B" {
		t.Error("unknown key changed the active category")
	}

	m, _ = update(t, m, keyMsg("up"))
	if m.activeCategory() != "A" {
		t.Errorf("cursor move should take over, active = %q", m.activeCategory())
	}

	m, _ = update(t, m, wsTogglePinMsg{key: "B-B1"})
	if !store.Load().Has("B-B1") || m.payload.Totals.PinnedCount != 1 {
		t.Errorf("observer pin not applied: %v", store.Load().Keys())
	}

	m, _ = update(t, m, wsTogglePinMsg{key: "Z-Z9"})
	if got := store.Load().Keys(); len(got) != 1 || got[0] != "B-B1" {
		t.Errorf("unknown key was stored: %v", got)
	}
	if m.pinned.Has("Z-Z9") {
		t.Error("unknown key was pinned")
	}
}

func TestObserverPinBeforeLoadKeepsStoredPins(t *testing.T) {
	store := pins.NewStore(pins.NewMemoryKV())
	store.Save(pins.NewSet("A-A1", "B-B2"))
	load := func(context.Context) ([]types.Category, error) { return testutil.Dataset(), nil }
	m := NewModel("fixture", load, store, nil)

	m, _ = update(t, m,
		wsTogglePinMsg{key: "B-B1"},
		wsVisibleMsg{key: "B-B2"},
		tea.WindowSizeMsg{Width: 120, Height: 40},
		datasetLoadedMsg{data: testutil.Dataset()},
	)

	want := []string{"A-A1", "B-B2"}
	if got := store.Load().Keys(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("stored pins = %v, want %v", got, want)
	}
	if !m.pinned.Has("A-A1") || m.pinned.Has("B-B1") {
		t.Errorf("pinned = %v", m.pinned.Keys())
	}
	if m.observed != "" {
		t.Errorf("observed = %q, want report before load ignored", m.observed)
	}
}

func TestTreeStepCategoryWraps(t *testing.T) {
	m, _ := loadedModel(t)
	m.tree.StepCategory(-1)
	if m.tree.CurrentCategory() != "B" {
		t.Errorf("wrap back = %q, want B", m.tree.CurrentCategory())
	}
	m.tree.StepCategory(1)
	if m.tree.CurrentCategory() != "A" {
		t.Errorf("wrap forward = %q, want A", m.tree.CurrentCategory())
	}
}
