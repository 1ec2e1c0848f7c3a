package view

import (
	"strings"

	"github.com/lotas/wegweiser/internal/types"
)

// AnchorID is the stable navigation id of a category.
func AnchorID(categoryCode string) string {
	return "cat-" + strings.ToLower(categoryCode)
}

// Anchors maps every SectionKey in the dataset to its category's anchor id.
// External visibility observers key their reports off this map.
func Anchors(dataset []types.Category) map[string]string {
	m := make(map[string]string)
	for _, cat := range dataset {
		id := AnchorID(cat.Code)
		for _, sec := range cat.Sections {
			m[cat.Key(sec)] = id
		}
	}
	return m
}

// ActiveCategory resolves a "most visible section" report to the code of the
// category owning it. It also accepts a bare category code or anchor id.
func ActiveCategory(dataset []types.Category, ref string) (string, bool) {
	for _, cat := range dataset {
		if ref == cat.Code || ref == AnchorID(cat.Code) {
			return cat.Code, true
		}
		for _, sec := range cat.Sections {
			if ref == cat.Key(sec) {
				return cat.Code, true
			}
		}
	}
	return "", false
}
