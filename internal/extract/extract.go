// Package extract builds the resource dataset from the Word document the
// directory is maintained in.
package extract

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/lotas/wegweiser/internal/applog"
	"github.com/lotas/wegweiser/internal/types"
)

var (
	categoryPattern = regexp.MustCompile(`^([A-Z])\.\s*(.+)`)
	sectionPattern  = regexp.MustCompile(`^([A-Z])(\d+)\.\s*(.+)`)
)

// cell is the text and links of one table cell.
type cell struct {
	text  string
	links []types.Link
}

// File extracts the dataset from the DOCX at path.
func File(path string) ([]types.Category, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Extract(f, info.Size())
}

// Extract reads the first table of a DOCX. After the header row, a row whose
// first cell reads "A. Title" opens a category, "A1. Title" adds a section
// and any other non-empty row continues the previous section.
func Extract(r io.ReaderAt, size int64) ([]types.Category, error) {
	doc, err := readDocx(r, size)
	if err != nil {
		return nil, err
	}
	rows, err := doc.rows()
	if err != nil {
		return nil, err
	}

	var (
		cats    []types.Category
		current = -1
	)
	for _, tcs := range rows[1:] {
		cells := make([]cell, len(tcs))
		for i, tc := range tcs {
			cells[i] = doc.parseCell(tc)
		}
		if len(cells) == 0 || cells[0].text == "" {
			continue
		}
		first := cells[0].text

		catMatch := categoryPattern.FindStringSubmatch(first)
		secMatch := sectionPattern.FindStringSubmatch(first)

		switch {
		case catMatch != nil && secMatch == nil:
			cat := types.Category{
				Code:     catMatch[1],
				Title:    strings.TrimSpace(catMatch[2]),
				Links:    []types.Link{},
				Sections: []types.Section{},
			}
			if len(cells) > 1 {
				cat.Description = cells[1].text
				cat.Links = append(cat.Links, cells[1].links...)
			}
			cats = append(cats, cat)
			current = len(cats) - 1

		case secMatch != nil:
			if current < 0 || cats[current].Code != secMatch[1] {
				cats = append(cats, types.Category{
					Code:     secMatch[1],
					Title:    "Misc",
					Links:    []types.Link{},
					Sections: []types.Section{},
				})
				current = len(cats) - 1
				applog.Warn("extract.misc_category", "section", secMatch[1]+secMatch[2])
			}
			cats[current].Sections = append(cats[current].Sections, newSection(secMatch, cells))

		case current >= 0 && len(cats[current].Sections) > 0:
			secs := cats[current].Sections
			appendContinuation(&secs[len(secs)-1], cells[1:])
		}
	}

	if cats == nil {
		cats = []types.Category{}
	}
	return cats, nil
}

func newSection(m []string, cells []cell) types.Section {
	sec := types.Section{
		Code:  m[1] + m[2],
		Title: strings.TrimSpace(m[3]),
		Links: []types.Link{},
	}
	if len(cells) > 1 {
		sec.Status = cells[1].text
		sec.Description = cells[1].text
	}
	if len(cells) > 2 {
		sec.Description = cells[2].text
		sec.Links = append(sec.Links, cells[2].links...)
	}
	if len(cells) > 1 {
		sec.Links = append(sec.Links, cells[1].links...)
	}
	return sec
}

// appendContinuation folds a row without a code into sec.
func appendContinuation(sec *types.Section, rest []cell) {
	var texts []string
	for _, c := range rest {
		if c.text != "" {
			texts = append(texts, c.text)
		}
		sec.Links = append(sec.Links, c.links...)
	}
	parts := []string{}
	if sec.Description != "" {
		parts = append(parts, sec.Description)
	}
	if extra := strings.Join(texts, " "); extra != "" {
		parts = append(parts, extra)
	}
	sec.Description = strings.TrimSpace(strings.Join(parts, " "))
}

// parseCell collects the paragraphs and hyperlinks of a table cell.
func (d *document) parseCell(tc *node) cell {
	var (
		paragraphs []string
		links      = []types.Link{}
	)
	for _, p := range tc.descendants("p") {
		var plain strings.Builder
		for i := range p.Nodes {
			child := &p.Nodes[i]
			if !child.is("hyperlink") {
				plain.WriteString(child.text())
				continue
			}

			label := child.text()
			before := plain.String()
			plain.WriteString(label)

			url := d.rels[child.attr(nsRels, "id")]
			if url == "" {
				continue
			}
			if IsPlaceholder(label) {
				label = MineLabel(before)
			} else {
				label = strings.TrimSpace(label)
			}
			links = append(links, types.Link{Label: label, URL: url})
		}
		if text := strings.TrimSpace(plain.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return cell{text: strings.TrimSpace(strings.Join(paragraphs, "\n")), links: links}
}

// Summary is a one-line description of an extraction result.
func Summary(cats []types.Category) string {
	sections, links := 0, 0
	for _, c := range cats {
		sections += len(c.Sections)
		links += len(c.Links)
		for _, s := range c.Sections {
			links += len(s.Links)
		}
	}
	return fmt.Sprintf("%d categories, %d sections, %d links", len(cats), sections, links)
}
