package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/wegweiser/internal/applog"
	"github.com/lotas/wegweiser/internal/pins"
	"github.com/lotas/wegweiser/internal/server"
	"github.com/lotas/wegweiser/internal/types"
	"github.com/lotas/wegweiser/internal/view"
)

// --- Messages ---

type datasetLoadedMsg struct {
	data []types.Category
	err  error
}

// Messages from the observer bridge
type wsStoppedMsg struct{ err error }
type wsVisibleMsg struct{ key string }
type wsTogglePinMsg struct{ key string }
type wsHelloMsg struct{}

type linkOpenedMsg struct {
	url string
	err error
}

// Loader resolves the dataset. It runs once at startup and again on reload.
type Loader func(ctx context.Context) ([]types.Category, error)

// --- Command helpers ---

func loadDataset(load Loader) tea.Cmd {
	return func() tea.Msg {
		data, err := load(context.Background())
		return datasetLoadedMsg{data: data, err: err}
	}
}

func startWSServer(srv *server.Server) tea.Cmd {
	return func() tea.Msg {
		return wsStoppedMsg{err: srv.ListenAndServe(context.Background())}
	}
}

func listenWebSocket(srv *server.Server) tea.Cmd {
	return func() tea.Msg {
		msg := <-srv.Messages()
		switch msg.Type {
		case server.MsgVisible:
			return wsVisibleMsg{key: msg.SectionKey}
		case server.MsgTogglePin:
			return wsTogglePinMsg{key: msg.Key}
		default:
			return wsHelloMsg{}
		}
	}
}

func sendCmd(srv *server.Server, msg server.OutgoingMsg) tea.Cmd {
	return func() tea.Msg {
		if err := srv.Send(msg); err != nil {
			applog.Error("ws.send", err, "action", msg.Action)
		}
		return nil
	}
}

// --- Model ---

type Model struct {
	// Data
	source  string
	load    Loader
	dataset []types.Category
	store   *pins.Store
	pinned  pins.Set
	filter  types.FilterState
	payload view.Payload

	// UI state
	tree       TreeModel
	detail     DetailModel
	search     textinput.Model
	searching  bool
	picker     FilterPicker
	showPicker bool
	keys       keyMap
	loading    bool
	err        error
	notice     string
	width      int
	height     int

	// Observer bridge, nil when disabled
	server   *server.Server
	observed string // category code of the section the observer shows
	opener   func(url string) error
}

// NewModel creates the browser. store may be nil, in which case pins live
// for the session only.
func NewModel(source string, load Loader, store *pins.Store, srv *server.Server) Model {
	ti := textinput.New()
	ti.Placeholder = "codes, titles, status, descriptions, links"
	ti.Prompt = "/ "
	ti.CharLimit = 200

	return Model{
		source:  source,
		load:    load,
		store:   store,
		pinned:  pins.NewSet(),
		filter:  types.DefaultFilterState(),
		search:  ti,
		keys:    defaultKeyMap(),
		loading: true,
		server:  srv,
		opener:  openURL,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{loadDataset(m.load)}
	if m.server != nil {
		cmds = append(cmds, startWSServer(m.server), listenWebSocket(m.server))
	}
	return tea.Batch(cmds...)
}

// refresh recomputes the payload from scratch. reset is set for filter
// changes, which re-apply the auto-expand policy to every category.
func (m *Model) refresh(reset bool) tea.Cmd {
	m.payload = view.Project(m.dataset, m.filter, m.pinned)
	m.tree.SetPayload(m.payload, reset)
	if reset {
		m.detail.Reset()
	}
	return m.pushView()
}

func (m *Model) pushView() tea.Cmd {
	if m.server == nil {
		return nil
	}
	p := m.payload
	msg := server.OutgoingMsg{Action: server.ActionView, View: &p}
	if code := m.activeCategory(); code != "" {
		msg.Active = view.AnchorID(code)
	}
	return sendCmd(m.server, msg)
}

func (m *Model) setFilter(f types.FilterState) tea.Cmd {
	m.filter = f.Normalized()
	applog.Info("filter.changed",
		"search", m.filter.SearchTerm,
		"status", m.filter.StatusFilter,
		"category", m.filter.CategoryFilter,
		"pinned_only", m.filter.ShowPinnedOnly)
	return m.refresh(true)
}

func (m *Model) togglePin(key string) tea.Cmd {
	if m.store != nil {
		m.pinned = m.store.Toggle(m.pinned, key)
	} else {
		m.pinned = m.pinned.Toggle(key)
	}
	return m.refresh(false)
}

// listen waits for the next observer message.
func (m Model) listen() tea.Cmd {
	if m.server == nil {
		return nil
	}
	return listenWebSocket(m.server)
}

func (m Model) activeCategory() string {
	if m.observed != "" {
		return m.observed
	}
	return m.tree.CurrentCategory()
}

// cursorMoved drops the observer's report so the navbar follows the cursor.
func (m *Model) cursorMoved() {
	m.observed = ""
	m.detail.Reset()
}

func (m Model) selectedLinks() []types.Link {
	node := m.tree.SelectedNode()
	if node == nil {
		return nil
	}
	if node.Section != nil {
		return node.Section.Links
	}
	return node.Category.Links
}

func (m Model) openSelectedLink() tea.Cmd {
	links := m.selectedLinks()
	if len(links) == 0 {
		return nil
	}
	i := m.detail.LinkCursor
	if i < 0 || i >= len(links) {
		i = 0
	}
	url := links[i].URL
	opener := m.opener
	return func() tea.Msg {
		return linkOpenedMsg{url: url, err: opener(url)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		treeWidth := m.width * TreeWidthPct / 100
		detailWidth := m.width - treeWidth - 4 // borders
		paneHeight := m.height - 6             // metrics, navbar, filter line, bottom bar, borders
		m.tree.Width = treeWidth
		m.tree.Height = paneHeight
		m.detail.Width = detailWidth
		m.detail.Height = paneHeight
		m.picker.Width = m.width
		m.picker.Height = m.height
		m.search.Width = m.width - 4
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		if m.showPicker {
			return m.updatePicker(msg)
		}
		if m.loading || m.err != nil {
			switch {
			case key.Matches(msg, m.keys.quit):
				return m, tea.Quit
			case key.Matches(msg, m.keys.reload) && m.err != nil:
				m.loading = true
				m.err = nil
				return m, loadDataset(m.load)
			}
			return m, nil
		}
		return m.updateBrowse(msg)

	case datasetLoadedMsg:
		m.loading = false
		if msg.err != nil {
			applog.Error("dataset.load", msg.err, "source", m.source)
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.dataset = msg.data
		if m.store != nil {
			m.pinned = m.store.Load()
		}
		if m.server != nil {
			m.server.SetAnchors(view.Anchors(m.dataset))
		}
		applog.Info("browse.ready", "source", m.source, "categories", len(m.dataset), "pinned", m.pinned.Len())
		cmd := m.refresh(true)
		return m, cmd

	case linkOpenedMsg:
		if msg.err != nil {
			applog.Error("link.open", msg.err, "url", msg.url)
			m.notice = "could not open " + msg.url
		} else {
			applog.Info("link.opened", "url", msg.url)
			m.notice = "opened " + msg.url
		}
		return m, nil

	case wsStoppedMsg:
		if msg.err != nil {
			applog.Error("server.stopped", msg.err)
			m.notice = "observer bridge stopped: " + msg.err.Error()
		}
		return m, nil

	case wsVisibleMsg:
		if m.loading || m.err != nil {
			return m, m.listen()
		}
		if code, ok := view.ActiveCategory(m.dataset, msg.key); ok {
			m.observed = code
		}
		return m, m.listen()

	case wsTogglePinMsg:
		// Pins are not loaded yet; toggling now would overwrite the stored set.
		if m.loading || m.err != nil {
			applog.Warn("ws.ignored", "type", server.MsgTogglePin, "key", msg.key)
			return m, m.listen()
		}
		if _, ok := view.Anchors(m.dataset)[msg.key]; !ok {
			applog.Warn("ws.unknown_key", "key", msg.key)
			return m, m.listen()
		}
		cmd := m.togglePin(msg.key)
		return m, tea.Batch(cmd, m.listen())

	case wsHelloMsg:
		if m.loading || m.err != nil {
			return m, m.listen()
		}
		return m, tea.Batch(m.pushView(), m.listen())
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.up):
		m.tree.MoveUp()
		m.cursorMoved()
	case key.Matches(msg, m.keys.down):
		m.tree.MoveDown()
		m.cursorMoved()
	case key.Matches(msg, m.keys.toggle):
		if node := m.tree.SelectedNode(); node != nil && node.Section != nil {
			return m, m.openSelectedLink()
		}
		m.tree.Toggle()
	case key.Matches(msg, m.keys.collapse):
		m.tree.CollapseOrParent()
		m.cursorMoved()
	case key.Matches(msg, m.keys.expand):
		m.tree.ExpandOrEnter()
		m.cursorMoved()
	case key.Matches(msg, m.keys.nextCategory):
		m.tree.StepCategory(1)
		m.cursorMoved()
	case key.Matches(msg, m.keys.prevCategory):
		m.tree.StepCategory(-1)
		m.cursorMoved()
	case key.Matches(msg, m.keys.search):
		m.searching = true
		m.search.SetValue(m.filter.SearchTerm)
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.status):
		m.picker = NewStatusPicker(m.payload.Years, m.filter.StatusFilter)
		m.picker.Width = m.width
		m.picker.Height = m.height
		m.showPicker = true
	case key.Matches(msg, m.keys.category):
		m.picker = NewCategoryPicker(m.dataset, m.filter.CategoryFilter)
		m.picker.Width = m.width
		m.picker.Height = m.height
		m.showPicker = true
	case key.Matches(msg, m.keys.pinnedOnly):
		f := m.filter
		f.ShowPinnedOnly = !f.ShowPinnedOnly
		cmd := m.setFilter(f)
		return m, cmd
	case key.Matches(msg, m.keys.pin):
		node := m.tree.SelectedNode()
		if node == nil || node.Section == nil {
			return m, nil
		}
		cmd := m.togglePin(node.Key())
		return m, cmd
	case key.Matches(msg, m.keys.reset):
		m.search.SetValue("")
		cmd := m.setFilter(types.DefaultFilterState())
		return m, cmd
	case key.Matches(msg, m.keys.open):
		return m, m.openSelectedLink()
	case key.Matches(msg, m.keys.reload):
		m.loading = true
		return m, loadDataset(m.load)
	case key.Matches(msg, m.keys.scrollUp):
		m.detail.ScrollUp()
	case key.Matches(msg, m.keys.scrollDown):
		m.detail.ScrollDown()
	default:
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			n := int(s[0] - '1')
			if n < len(m.selectedLinks()) {
				m.detail.LinkCursor = n
			}
		}
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		if m.filter.SearchTerm == "" {
			return m, nil
		}
		f := m.filter
		f.SearchTerm = ""
		cmd := m.setFilter(f)
		return m, cmd
	}

	var inputCmd tea.Cmd
	m.search, inputCmd = m.search.Update(msg)
	if v := m.search.Value(); v != m.filter.SearchTerm {
		f := m.filter
		f.SearchTerm = v
		cmd := m.setFilter(f)
		return m, tea.Batch(inputCmd, cmd)
	}
	return m, inputCmd
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.picker.MoveUp()
	case "down", "j":
		m.picker.MoveDown()
	case "enter":
		opt := m.picker.Selected()
		f := m.filter
		if m.picker.Kind == pickStatus {
			f.StatusFilter = opt.Value
		} else {
			f.CategoryFilter = opt.Value
		}
		m.showPicker = false
		cmd := m.setFilter(f)
		return m, cmd
	case "esc":
		m.showPicker = false
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) bridgeStatus() string {
	if m.server == nil {
		return ""
	}
	if m.server.Connected() {
		return "observer ● connected"
	}
	return fmt.Sprintf("observer ○ :%d", m.server.Port())
}

func (m Model) filterLine() string {
	if m.searching {
		return " " + m.search.View()
	}
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	if m.filter.IsDefault() {
		return " " + dimStyle.Render("no filters · / to search")
	}
	var parts []string
	if m.filter.SearchActive() {
		parts = append(parts, fmt.Sprintf("search: %q", strings.TrimSpace(m.filter.SearchTerm)))
	}
	if m.filter.StatusFilter != types.FilterAll {
		parts = append(parts, "year: "+m.filter.StatusFilter)
	}
	if m.filter.CategoryFilter != types.FilterAll {
		parts = append(parts, "category: "+m.filter.CategoryFilter)
	}
	if m.filter.ShowPinnedOnly {
		parts = append(parts, "pinned only")
	}
	return " " + activeStyle.Render("["+strings.Join(parts, "] [")+"]") + dimStyle.Render(" · x to reset")
}

func (m Model) View() string {
	if m.loading {
		return fmt.Sprintf("\n  Loading resources from %s...\n", m.source)
	}

	if m.err != nil {
		return fmt.Sprintf("\n  Could not load the resource directory.\n\n  %v\n\n  Press 'r' to retry, 'q' to quit.\n", m.err)
	}

	if m.showPicker {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	}

	topBar := renderMetrics(m.payload.Totals, m.bridgeStatus(), m.width)
	navbar := renderNavbar(m.payload.Categories, m.activeCategory())

	treeBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Width(m.tree.Width).
		Height(m.tree.Height)

	detailBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.detail.Width).
		Height(m.detail.Height)

	var treeContent, detailContent string
	switch {
	case len(m.dataset) == 0:
		treeContent = "The directory is empty."
	case m.payload.Empty:
		treeContent = "No sections match the current filters.\n\nPress x to reset filters or / to change the search."
	default:
		treeContent = m.tree.View()
		if node := m.tree.SelectedNode(); node != nil {
			if node.Section != nil {
				detailContent = m.detail.ViewSection(*node.Category, *node.Section, m.payload.Pinned[node.Key()])
			} else {
				detailContent = m.detail.ViewCategory(*node.Category)
			}
		}
	}

	left := treeBorder.Render(treeContent)
	right := detailBorder.Render(m.detail.ViewScrolled(detailContent))
	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	bottomBarStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	bottomText := fmt.Sprintf("%d sections · %d links", m.payload.Stats.SectionCount, m.payload.Stats.LinkCount)
	if m.notice != "" {
		bottomText += " · " + m.notice
	}
	bottomText += "  " + m.keys.helpLine()
	bottomBar := bottomBarStyle.Render(bottomText)

	return lipgloss.JoinVertical(lipgloss.Left, topBar, navbar, m.filterLine(), panes, bottomBar)
}
