package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	quit         key.Binding
	up           key.Binding
	down         key.Binding
	toggle       key.Binding
	collapse     key.Binding
	expand       key.Binding
	search       key.Binding
	status       key.Binding
	category     key.Binding
	pinnedOnly   key.Binding
	pin          key.Binding
	reset        key.Binding
	open         key.Binding
	reload       key.Binding
	nextCategory key.Binding
	prevCategory key.Binding
	scrollUp     key.Binding
	scrollDown   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		toggle: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "expand/open"),
		),
		collapse: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h", "collapse"),
		),
		expand: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l", "expand"),
		),
		search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		status: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "status"),
		),
		category: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "category"),
		),
		pinnedOnly: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pinned only"),
		),
		pin: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "pin"),
		),
		reset: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "reset filters"),
		),
		open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open link"),
		),
		reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		nextCategory: key.NewBinding(
			key.WithKeys("]", "tab"),
			key.WithHelp("]", "next category"),
		),
		prevCategory: key.NewBinding(
			key.WithKeys("[", "shift+tab"),
			key.WithHelp("[", "prev category"),
		),
		scrollUp: key.NewBinding(
			key.WithKeys("K", "pgup"),
			key.WithHelp("K", "scroll detail up"),
		),
		scrollDown: key.NewBinding(
			key.WithKeys("J", "pgdown"),
			key.WithHelp("J", "scroll detail down"),
		),
	}
}

// helpLine renders the bottom-bar hints.
func (k keyMap) helpLine() string {
	bindings := []key.Binding{
		k.up, k.toggle, k.search, k.status, k.category, k.pinnedOnly,
		k.pin, k.reset, k.open, k.nextCategory, k.quit,
	}
	var s string
	for i, b := range bindings {
		if i > 0 {
			s += " · "
		}
		h := b.Help()
		s += h.Key + " " + h.Desc
	}
	return s
}
