package types

import "strings"

// FilterAll is the "no restriction" value for the status and category filters.
const FilterAll = "all"

// Link is a labelled URL.
type Link struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

// Section is a leaf entry of a category. Status is free text and often
// carries a year ("Updated 2023").
type Section struct {
	Code        string `json:"code" yaml:"code"`
	Title       string `json:"title" yaml:"title"`
	Status      string `json:"status" yaml:"status"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Links       []Link `json:"links" yaml:"links"`
}

// Category is a top-level grouping. Links are category-level quick links,
// distinct from the links of its sections.
type Category struct {
	Code        string    `json:"code" yaml:"code"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Links       []Link    `json:"links" yaml:"links"`
	Sections    []Section `json:"sections" yaml:"sections"`
}

// SectionKey returns the stable identifier of a section, used to join
// sections with the pin store.
func SectionKey(categoryCode, sectionCode string) string {
	return categoryCode + "-" + sectionCode
}

// Key returns the SectionKey of sec within c.
func (c Category) Key(sec Section) string {
	return SectionKey(c.Code, sec.Code)
}

// FilterState is the user's current selection. It is only ever changed by
// user input.
type FilterState struct {
	SearchTerm     string `json:"searchTerm" yaml:"search_term"`
	StatusFilter   string `json:"statusFilter" yaml:"status_filter"`
	CategoryFilter string `json:"categoryFilter" yaml:"category_filter"`
	ShowPinnedOnly bool   `json:"showPinnedOnly" yaml:"show_pinned_only"`
}

// DefaultFilterState returns the unfiltered state.
func DefaultFilterState() FilterState {
	return FilterState{
		StatusFilter:   FilterAll,
		CategoryFilter: FilterAll,
	}
}

// Terms returns the lowercased, whitespace-separated search terms.
func (f FilterState) Terms() []string {
	return strings.Fields(strings.ToLower(f.SearchTerm))
}

// SearchActive reports whether the search term contains at least one term.
func (f FilterState) SearchActive() bool {
	return len(f.Terms()) > 0
}

// IsDefault reports whether no filter is restricting the view.
func (f FilterState) IsDefault() bool {
	return !f.SearchActive() &&
		orAll(f.StatusFilter) == FilterAll &&
		orAll(f.CategoryFilter) == FilterAll &&
		!f.ShowPinnedOnly
}

func orAll(v string) string {
	if v == "" {
		return FilterAll
	}
	return v
}

// Normalized maps empty status/category filters to FilterAll.
func (f FilterState) Normalized() FilterState {
	f.StatusFilter = orAll(f.StatusFilter)
	f.CategoryFilter = orAll(f.CategoryFilter)
	return f
}

// FilteredCategory is a category carrying only the sections that passed the
// filter. CategoryMatches is set when the category's own metadata matched an
// active search, independent of its sections.
type FilteredCategory struct {
	Category        `yaml:",inline"`
	CategoryMatches bool `json:"categoryMatches" yaml:"category_matches"`
}

// Stats summarises a filtered view.
type Stats struct {
	SectionCount int `json:"sectionCount" yaml:"section_count"`
	LinkCount    int `json:"linkCount" yaml:"link_count"`
}

// GlobalTotals are the command-centre metrics, computed over the whole
// dataset regardless of the active filter.
type GlobalTotals struct {
	TotalSections      int     `json:"totalSections" yaml:"total_sections"`
	AllocatedSections  int     `json:"allocatedSections" yaml:"allocated_sections"`
	PinnedCount        int     `json:"pinnedCount" yaml:"pinned_count"`
	AllocationProgress float64 `json:"allocationProgress" yaml:"allocation_progress"`
}
