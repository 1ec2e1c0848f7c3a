package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/wegweiser/internal/filter"
	"github.com/lotas/wegweiser/internal/types"
	"github.com/lotas/wegweiser/internal/view"
)

// TreeNode represents a visible row in the tree.
type TreeNode struct {
	Category *types.FilteredCategory // owning category, always set
	Section  *types.Section          // non-nil for section rows
}

// Key returns the SectionKey of a section row, or "" for a header.
func (n TreeNode) Key() string {
	if n.Section == nil {
		return ""
	}
	return n.Category.Key(*n.Section)
}

// TreeModel manages the collapsible category/section tree.
type TreeModel struct {
	Categories []types.FilteredCategory
	Expanded   map[string]bool // category code -> expanded
	Pinned     map[string]bool // SectionKey -> pinned
	Cursor     int
	Offset     int // scroll offset
	Width      int
	Height     int
}

// SetPayload replaces the tree contents. With reset, expansion is taken from
// the payload's auto-expand decisions and the cursor returns to the top.
// Otherwise categories that were already visible keep their expansion and
// only new ones get the payload default.
func (m *TreeModel) SetPayload(p view.Payload, reset bool) {
	m.Categories = p.Categories
	m.Pinned = p.Pinned

	expanded := make(map[string]bool, len(p.Expanded))
	for code, exp := range p.Expanded {
		if old, seen := m.Expanded[code]; seen && !reset {
			expanded[code] = old
		} else {
			expanded[code] = exp
		}
	}
	m.Expanded = expanded

	if reset {
		m.Cursor = 0
		m.Offset = 0
		return
	}
	m.clamp()
}

func (m *TreeModel) clamp() {
	n := len(m.VisibleNodes())
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.Offset > m.Cursor {
		m.Offset = m.Cursor
	}
}

// VisibleNodes returns the flat list of currently visible rows.
func (m TreeModel) VisibleNodes() []TreeNode {
	var nodes []TreeNode
	for i := range m.Categories {
		fc := &m.Categories[i]
		nodes = append(nodes, TreeNode{Category: fc})
		if m.Expanded[fc.Code] {
			for j := range fc.Sections {
				nodes = append(nodes, TreeNode{Category: fc, Section: &fc.Sections[j]})
			}
		}
	}
	return nodes
}

// SelectedNode returns the node under the cursor, or nil.
func (m TreeModel) SelectedNode() *TreeNode {
	nodes := m.VisibleNodes()
	if m.Cursor >= 0 && m.Cursor < len(nodes) {
		return &nodes[m.Cursor]
	}
	return nil
}

// CurrentCategory returns the code of the category under the cursor.
func (m TreeModel) CurrentCategory() string {
	if node := m.SelectedNode(); node != nil {
		return node.Category.Code
	}
	return ""
}

func (m TreeModel) visibleRows() int {
	rows := m.Height - 2 // account for padding
	if rows < 1 {
		rows = 1
	}
	return rows
}

// MoveUp moves the cursor up.
func (m *TreeModel) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
}

// MoveDown moves the cursor down.
func (m *TreeModel) MoveDown() {
	nodes := m.VisibleNodes()
	if m.Cursor < len(nodes)-1 {
		m.Cursor++
	}
	if m.Cursor >= m.Offset+m.visibleRows() {
		m.Offset = m.Cursor - m.visibleRows() + 1
	}
}

// Toggle expands/collapses the selected category.
func (m *TreeModel) Toggle() {
	node := m.SelectedNode()
	if node == nil || node.Section != nil {
		return
	}
	m.Expanded[node.Category.Code] = !m.Expanded[node.Category.Code]
}

// CollapseOrParent collapses the selected category if expanded, or jumps to
// the category header if the cursor is on a section.
func (m *TreeModel) CollapseOrParent() {
	node := m.SelectedNode()
	if node == nil {
		return
	}
	if node.Section == nil {
		m.Expanded[node.Category.Code] = false
		return
	}
	m.JumpToCategory(node.Category.Code)
}

// ExpandOrEnter expands the selected category if collapsed, or moves into
// its first section if already expanded.
func (m *TreeModel) ExpandOrEnter() {
	node := m.SelectedNode()
	if node == nil || node.Section != nil {
		return
	}
	if !m.Expanded[node.Category.Code] {
		m.Expanded[node.Category.Code] = true
		return
	}
	nodes := m.VisibleNodes()
	if m.Cursor+1 < len(nodes) && nodes[m.Cursor+1].Section != nil {
		m.MoveDown()
	}
}

// JumpToCategory puts the cursor on the header of the category with code.
// It reports false when that category is not visible.
func (m *TreeModel) JumpToCategory(code string) bool {
	for i, node := range m.VisibleNodes() {
		if node.Section == nil && node.Category.Code == code {
			m.Cursor = i
			if m.Cursor < m.Offset {
				m.Offset = m.Cursor
			}
			if m.Cursor >= m.Offset+m.visibleRows() {
				m.Offset = m.Cursor - m.visibleRows() + 1
			}
			return true
		}
	}
	return false
}

// StepCategory moves the cursor to the next (delta > 0) or previous category
// header, wrapping around.
func (m *TreeModel) StepCategory(delta int) {
	if len(m.Categories) == 0 {
		return
	}
	current := 0
	code := m.CurrentCategory()
	for i, fc := range m.Categories {
		if fc.Code == code {
			current = i
			break
		}
	}
	next := (current + delta + len(m.Categories)) % len(m.Categories)
	m.JumpToCategory(m.Categories[next].Code)
}

// View renders the tree.
func (m TreeModel) View() string {
	nodes := m.VisibleNodes()
	if len(nodes) == 0 {
		return ""
	}

	visibleRows := m.Height
	if visibleRows < 1 {
		visibleRows = 20
	}

	var b strings.Builder
	end := m.Offset + visibleRows
	if end > len(nodes) {
		end = len(nodes)
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	categoryStyle := lipgloss.NewStyle().Bold(true)
	matchStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("33"))  // blue
	pinStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))   // orange
	yearStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))   // green
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")) // grey

	for i := m.Offset; i < end; i++ {
		node := nodes[i]
		var line string

		if node.Section == nil {
			fc := node.Category
			icon := "▶"
			if m.Expanded[fc.Code] {
				icon = "▼"
			}
			label := fmt.Sprintf("%s %s. %s (%d)", icon, fc.Code, fc.Title, len(fc.Sections))
			line = categoryStyle.Render(truncate(label, m.Width))
			if fc.CategoryMatches && len(fc.Sections) == 0 {
				line += " " + matchStyle.Render("category match")
			}
		} else {
			sec := node.Section
			marker := "  "
			if m.Pinned[node.Key()] {
				marker = pinStyle.Render("★") + " "
			}
			var tags []string
			if year, ok := filter.ExtractYear(sec.Status); ok {
				tags = append(tags, yearStyle.Render(year))
			}
			if len(sec.Links) == 0 {
				tags = append(tags, emptyStyle.Render("no links"))
			}
			suffix := ""
			if len(tags) > 0 {
				suffix = " " + strings.Join(tags, " ")
			}
			maxLen := m.Width - 4 - lipgloss.Width(suffix)
			line = "  " + marker + truncate(fmt.Sprintf("%s. %s", sec.Code, sec.Title), maxLen) + suffix
		}

		if i == m.Cursor {
			if pad := m.Width - lipgloss.Width(line); pad > 0 {
				line += strings.Repeat(" ", pad)
			}
			line = cursorStyle.Render(line)
		}

		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// truncate shortens s to at most n cells, ending in an ellipsis.
func truncate(s string, n int) string {
	if n < 10 {
		n = 10
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
