package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/wegweiser/internal/filter"
	"github.com/lotas/wegweiser/internal/types"
)

// DetailModel shows information about the selected category or section.
type DetailModel struct {
	Width      int
	Height     int
	Scroll     int    // scroll offset
	ContentLen int    // total lines in content
	LinkCursor int    // link opened by "o"
	Style      string // glamour style for descriptions
}

// ScrollUp adjusts the scroll offset upward.
func (m *DetailModel) ScrollUp() {
	if m.Scroll > 0 {
		m.Scroll--
	}
}

// ScrollDown adjusts the scroll offset downward.
func (m *DetailModel) ScrollDown() {
	if m.Scroll < m.ContentLen-m.Height {
		m.Scroll++
	}
	if m.Scroll < 0 {
		m.Scroll = 0
	}
}

// Reset clears scroll and link selection, used when the selection moves.
func (m *DetailModel) Reset() {
	m.Scroll = 0
	m.LinkCursor = 0
}

// renderMarkdown renders a description with glamour, falling back to the raw
// text when the renderer fails.
func (m DetailModel) renderMarkdown(text string) string {
	style := m.Style
	if style == "" {
		style = "dark"
	}
	wrap := m.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(rendered)
}

func (m DetailModel) writeLinks(b *strings.Builder, links []types.Link, selectable bool) {
	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	urlStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	for i, l := range links {
		label := l.Label
		if label == "" {
			label = l.URL
		}
		row := fmt.Sprintf("%d. %s", i+1, truncate(label, m.Width-4))
		if selectable && i == m.LinkCursor {
			row = cursorStyle.Render(row)
		}
		b.WriteString(row + "\n")
		b.WriteString("   " + urlStyle.Render(truncate(l.URL, m.Width-5)) + "\n")
	}
}

// ViewSection renders a section with its status, description and links.
func (m DetailModel) ViewSection(fc types.FilteredCategory, sec types.Section, pinned bool) string {
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	pinStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	var b strings.Builder

	b.WriteString(labelStyle.Render("Section") + "\n")
	b.WriteString(truncate(sec.Code+". "+sec.Title, m.Width-2) + "\n")
	b.WriteString(dimStyle.Render(fc.Code+". "+fc.Title) + "\n\n")

	if pinned {
		b.WriteString(pinStyle.Render("★ Pinned") + "\n\n")
	}

	b.WriteString(labelStyle.Render("Status") + "\n")
	status := sec.Status
	if status == "" {
		status = "-"
	}
	if year, ok := filter.ExtractYear(sec.Status); ok {
		status += dimStyle.Render(" (" + year + ")")
	}
	b.WriteString(status + "\n\n")

	if strings.TrimSpace(sec.Description) != "" {
		b.WriteString(labelStyle.Render("Description") + "\n")
		b.WriteString(m.renderMarkdown(sec.Description) + "\n\n")
	}

	b.WriteString(labelStyle.Render(fmt.Sprintf("Links (%d)", len(sec.Links))) + "\n")
	if len(sec.Links) == 0 {
		b.WriteString(dimStyle.Render("No links allocated yet.") + "\n")
	} else {
		m.writeLinks(&b, sec.Links, true)
	}

	return b.String()
}

// ViewCategory renders a category header with its quick links.
func (m DetailModel) ViewCategory(fc types.FilteredCategory) string {
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	matchStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("33"))

	var b strings.Builder

	b.WriteString(labelStyle.Render("Category") + "\n")
	b.WriteString(truncate(fc.Code+". "+fc.Title, m.Width-2) + "\n\n")

	if fc.CategoryMatches {
		b.WriteString(matchStyle.Render("Matches the search") + "\n\n")
	}

	if strings.TrimSpace(fc.Description) != "" {
		b.WriteString(labelStyle.Render("Description") + "\n")
		b.WriteString(m.renderMarkdown(fc.Description) + "\n\n")
	}

	b.WriteString(labelStyle.Render("Sections") + "\n")
	b.WriteString(fmt.Sprintf("%d shown\n", len(fc.Sections)))

	if len(fc.Links) > 0 {
		b.WriteString("\n" + labelStyle.Render("Quick links") + "\n")
		m.writeLinks(&b, fc.Links, true)
	}

	return b.String()
}

// ViewScrolled applies scroll offset and height truncation to the content string.
func (m *DetailModel) ViewScrolled(content string) string {
	if content == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	m.ContentLen = len(lines)

	maxScroll := m.ContentLen - m.Height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.Scroll > maxScroll {
		m.Scroll = maxScroll
	}
	if m.Scroll < 0 {
		m.Scroll = 0
	}

	end := m.Scroll + m.Height
	if end > len(lines) {
		end = len(lines)
	}
	if m.Scroll >= len(lines) {
		return ""
	}

	return strings.Join(lines[m.Scroll:end], "\n")
}
