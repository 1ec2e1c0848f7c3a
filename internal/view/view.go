// Package view turns a filtered dataset into what a renderer needs: expand
// decisions, pin flags, stats and the navigation anchors.
package view

import (
	"github.com/lotas/wegweiser/internal/analyzer"
	"github.com/lotas/wegweiser/internal/filter"
	"github.com/lotas/wegweiser/internal/pins"
	"github.com/lotas/wegweiser/internal/types"
)

// ShouldAutoExpand decides whether fc starts expanded. Exactly one rule
// applies, in order: category filter, pinned-only, search, otherwise
// collapsed.
func ShouldAutoExpand(fc types.FilteredCategory, f types.FilterState, pinned pins.Set) bool {
	f = f.Normalized()
	switch {
	case f.CategoryFilter != types.FilterAll:
		return fc.Code == f.CategoryFilter
	case f.ShowPinnedOnly:
		for _, sec := range fc.Sections {
			if pinned.Has(fc.Key(sec)) {
				return true
			}
		}
		return false
	case f.SearchActive():
		return len(fc.Sections) > 0 || fc.CategoryMatches
	default:
		return false
	}
}

// Payload is everything a renderer consumes for one frame.
type Payload struct {
	Filter     types.FilterState        `json:"filter" yaml:"filter"`
	Categories []types.FilteredCategory `json:"categories" yaml:"categories"`
	Stats      types.Stats              `json:"stats" yaml:"stats"`
	Totals     types.GlobalTotals       `json:"totals" yaml:"totals"`
	// Expanded is keyed by category code.
	Expanded map[string]bool `json:"expanded" yaml:"expanded"`
	// Pinned is keyed by SectionKey and covers the visible sections.
	Pinned map[string]bool `json:"pinned" yaml:"pinned"`
	Years  []string        `json:"years" yaml:"years"`
	Empty  bool            `json:"empty" yaml:"empty"`
}

// Project computes a fresh Payload. Nothing is cached between calls.
func Project(dataset []types.Category, f types.FilterState, pinned pins.Set) Payload {
	f = f.Normalized()
	filtered := filter.Apply(dataset, f, pinned)

	p := Payload{
		Filter:     f,
		Categories: filtered,
		Stats:      analyzer.ComputeStats(filtered),
		Totals:     analyzer.ComputeGlobalTotals(dataset, pinned),
		Expanded:   make(map[string]bool, len(filtered)),
		Pinned:     make(map[string]bool),
		Years:      filter.AvailableYears(dataset),
		Empty:      len(filtered) == 0,
	}
	if p.Categories == nil {
		p.Categories = []types.FilteredCategory{}
	}
	if p.Years == nil {
		p.Years = []string{}
	}
	for _, fc := range filtered {
		p.Expanded[fc.Code] = ShouldAutoExpand(fc, f, pinned)
		for _, sec := range fc.Sections {
			p.Pinned[fc.Key(sec)] = pinned.Has(fc.Key(sec))
		}
	}
	return p
}
