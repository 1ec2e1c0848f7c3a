package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/wegweiser/internal/types"
	"github.com/lotas/wegweiser/internal/view"
)

// Markdown formats the view as a markdown document.
func Markdown(p view.Payload) string {
	var b strings.Builder

	b.WriteString("# Resource Directory\n")
	fmt.Fprintf(&b, "> Exported %s\n", time.Now().Format("2006-01-02 15:04"))
	if desc := describeFilter(p.Filter); desc != "" {
		fmt.Fprintf(&b, "> Filter: %s\n", desc)
	}
	fmt.Fprintf(&b, "\n%s, %s. %d of %d sections allocated (%.0f%%), %d pinned.\n",
		plural(p.Stats.SectionCount, "section"), plural(p.Stats.LinkCount, "link"),
		p.Totals.AllocatedSections, p.Totals.TotalSections, p.Totals.AllocationProgress, p.Totals.PinnedCount)

	if p.Empty {
		b.WriteString("\nNo sections match the current filters.\n")
		return b.String()
	}

	for _, fc := range p.Categories {
		fmt.Fprintf(&b, "\n## %s. %s (%s)\n", fc.Code, fc.Title, plural(len(fc.Sections), "section"))
		if fc.Description != "" {
			fmt.Fprintf(&b, "\n%s\n", fc.Description)
		}
		if len(fc.Links) > 0 {
			b.WriteString("\n")
			writeLinks(&b, fc.Links)
		}

		for _, sec := range fc.Sections {
			pin := ""
			if p.Pinned[fc.Key(sec)] {
				pin = " ★"
			}
			fmt.Fprintf(&b, "\n### %s. %s%s\n", sec.Code, sec.Title, pin)
			if sec.Status != "" {
				fmt.Fprintf(&b, "\n*%s*\n", sec.Status)
			}
			if sec.Description != "" && sec.Description != sec.Status {
				fmt.Fprintf(&b, "\n%s\n", sec.Description)
			}
			if len(sec.Links) > 0 {
				b.WriteString("\n")
				writeLinks(&b, sec.Links)
			}
		}
	}

	return b.String()
}

func writeLinks(b *strings.Builder, links []types.Link) {
	for _, l := range links {
		label := l.Label
		if label == "" {
			label = l.URL
		}
		fmt.Fprintf(b, "- [%s](%s) — %s\n", label, l.URL, extractDomain(l.URL))
	}
}

func describeFilter(f types.FilterState) string {
	var parts []string
	if s := strings.TrimSpace(f.SearchTerm); s != "" {
		parts = append(parts, fmt.Sprintf("search %q", s))
	}
	if f.StatusFilter != "" && f.StatusFilter != types.FilterAll {
		parts = append(parts, "year "+f.StatusFilter)
	}
	if f.CategoryFilter != "" && f.CategoryFilter != types.FilterAll {
		parts = append(parts, "category "+f.CategoryFilter)
	}
	if f.ShowPinnedOnly {
		parts = append(parts, "pinned only")
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
