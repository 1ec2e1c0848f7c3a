// Package filter derives the visible subset of the dataset from a
// FilterState and the current pins.
package filter

import (
	"strings"

	"github.com/lotas/wegweiser/internal/pins"
	"github.com/lotas/wegweiser/internal/types"
)

// Apply returns the categories and sections that pass filter. Category and
// section order follow the dataset.
func Apply(dataset []types.Category, filter types.FilterState, pinned pins.Set) []types.FilteredCategory {
	filter = filter.Normalized()
	terms := filter.Terms()
	searching := len(terms) > 0

	var out []types.FilteredCategory
	for _, cat := range dataset {
		var sections []types.Section
		for _, sec := range cat.Sections {
			if sectionPasses(cat, sec, filter, terms, pinned) {
				sections = append(sections, sec)
			}
		}

		catMatches := searching && matches(CategoryBlob(cat), terms)
		if len(sections) == 0 && !catMatches {
			continue
		}

		fc := types.FilteredCategory{Category: cat, CategoryMatches: catMatches}
		fc.Sections = sections
		if fc.Sections == nil {
			fc.Sections = []types.Section{}
		}
		out = append(out, fc)
	}
	return out
}

// sectionPasses applies the four predicates cheapest first.
func sectionPasses(cat types.Category, sec types.Section, f types.FilterState, terms []string, pinned pins.Set) bool {
	if f.CategoryFilter != types.FilterAll && f.CategoryFilter != cat.Code {
		return false
	}
	if f.ShowPinnedOnly && !pinned.Has(cat.Key(sec)) {
		return false
	}
	if f.StatusFilter != types.FilterAll {
		year, ok := ExtractYear(sec.Status)
		if !ok || year != f.StatusFilter {
			return false
		}
	}
	if len(terms) > 0 && !matches(SectionBlob(cat, sec), terms) {
		return false
	}
	return true
}

// Matches reports whether every search term of query occurs in blob,
// case-insensitively. An empty query matches everything.
func Matches(blob, query string) bool {
	return matches(blob, strings.Fields(strings.ToLower(query)))
}

func matches(blob string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	blob = strings.ToLower(blob)
	for _, t := range terms {
		if !strings.Contains(blob, t) {
			return false
		}
	}
	return true
}

// CategoryBlob is the text a search is matched against for the category's
// own metadata.
func CategoryBlob(cat types.Category) string {
	parts := []string{cat.Code, cat.Title, cat.Description}
	for _, l := range cat.Links {
		parts = append(parts, l.Label)
	}
	return strings.Join(parts, " ")
}

// SectionBlob is the text a search is matched against for one section.
func SectionBlob(cat types.Category, sec types.Section) string {
	parts := []string{cat.Code, cat.Title, sec.Code, sec.Title, sec.Status, sec.Description}
	for _, l := range sec.Links {
		parts = append(parts, l.Label, l.URL)
	}
	return strings.Join(parts, " ")
}
