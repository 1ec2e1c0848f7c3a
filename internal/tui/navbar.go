package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/wegweiser/internal/types"
)

// TreeWidthPct is the percentage of terminal width used for the tree pane.
const TreeWidthPct = 55

// renderMetrics is the command-centre bar. It shows dataset-wide totals
// that do not move with the filter.
func renderMetrics(totals types.GlobalTotals, bridge string, width int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	valueStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	left := " " + titleStyle.Render("Wegweiser") + "   " +
		valueStyle.Render(fmt.Sprintf("%d", totals.TotalSections)) + dimStyle.Render(" sections · ") +
		valueStyle.Render(fmt.Sprintf("%d", totals.AllocatedSections)) + dimStyle.Render(" allocated · ") +
		valueStyle.Render(fmt.Sprintf("%.0f%%", totals.AllocationProgress)) + dimStyle.Render(" progress · ") +
		valueStyle.Render(fmt.Sprintf("%d", totals.PinnedCount)) + dimStyle.Render(" pinned")

	right := dimStyle.Render(bridge)
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if gap < 1 {
		gap = 1
	}
	padding := lipgloss.NewStyle().Width(gap)

	return left + padding.Render("") + right + " "
}

// renderNavbar lists the visible category codes with the active one
// highlighted.
func renderNavbar(categories []types.FilteredCategory, active string) string {
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Underline(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	nav := " "
	for i, fc := range categories {
		if i > 0 {
			nav += inactiveStyle.Render(" │ ")
		}
		if fc.Code == active {
			nav += activeStyle.Render(fc.Code + " " + fc.Title)
		} else {
			nav += inactiveStyle.Render(fc.Code)
		}
	}
	return nav
}
