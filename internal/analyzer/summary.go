package analyzer

import (
	"github.com/lotas/wegweiser/internal/pins"
	"github.com/lotas/wegweiser/internal/types"
)

// ComputeStats sums the filtered view. Category quick links are not counted.
func ComputeStats(filtered []types.FilteredCategory) types.Stats {
	var stats types.Stats
	for _, fc := range filtered {
		stats.SectionCount += len(fc.Sections)
		for _, sec := range fc.Sections {
			stats.LinkCount += len(sec.Links)
		}
	}
	return stats
}

// ComputeGlobalTotals computes the command-centre metrics over the whole
// dataset. It takes no filter state: the numbers only move when pins do.
func ComputeGlobalTotals(dataset []types.Category, pinned pins.Set) types.GlobalTotals {
	var totals types.GlobalTotals
	for _, cat := range dataset {
		for _, sec := range cat.Sections {
			totals.TotalSections++
			if len(sec.Links) > 0 {
				totals.AllocatedSections++
			}
			if pinned.Has(cat.Key(sec)) {
				totals.PinnedCount++
			}
		}
	}
	if totals.TotalSections > 0 {
		totals.AllocationProgress = float64(totals.AllocatedSections) / float64(totals.TotalSections) * 100
	}
	return totals
}
