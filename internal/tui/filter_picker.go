package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/wegweiser/internal/types"
)

type pickerKind int

const (
	pickStatus pickerKind = iota
	pickCategory
)

// FilterOption is one choice of a picker. Value is what ends up in the
// FilterState.
type FilterOption struct {
	Label string
	Value string
}

// FilterPicker is a modal list used for the status and category filters.
type FilterPicker struct {
	Kind    pickerKind
	Title   string
	Options []FilterOption
	Cursor  int
	Width   int
	Height  int
}

// NewStatusPicker offers "all" followed by the dataset's years.
func NewStatusPicker(years []string, current string) FilterPicker {
	options := []FilterOption{{"All statuses", types.FilterAll}}
	for _, y := range years {
		options = append(options, FilterOption{y, y})
	}
	return newPicker(pickStatus, "Filter by year:", options, current)
}

// NewCategoryPicker offers "all" followed by every category of the dataset,
// including ones the current filter hides.
func NewCategoryPicker(dataset []types.Category, current string) FilterPicker {
	options := []FilterOption{{"All categories", types.FilterAll}}
	for _, cat := range dataset {
		options = append(options, FilterOption{fmt.Sprintf("%s. %s", cat.Code, cat.Title), cat.Code})
	}
	return newPicker(pickCategory, "Filter by category:", options, current)
}

func newPicker(kind pickerKind, title string, options []FilterOption, current string) FilterPicker {
	cursor := 0
	for i, opt := range options {
		if opt.Value == current {
			cursor = i
			break
		}
	}
	return FilterPicker{Kind: kind, Title: title, Options: options, Cursor: cursor}
}

func (m *FilterPicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *FilterPicker) MoveDown() {
	if m.Cursor < len(m.Options)-1 {
		m.Cursor++
	}
}

func (m FilterPicker) Selected() FilterOption {
	return m.Options[m.Cursor]
}

func (m FilterPicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.Title) + "\n\n")

	for i, opt := range m.Options {
		label := opt.Label
		if i == m.Cursor {
			label = selectedStyle.Render(label)
		} else {
			label = normalStyle.Render("  " + label)
		}
		b.WriteString(label + "\n")
	}

	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter select · esc cancel"))

	return boxStyle.Render(b.String())
}
