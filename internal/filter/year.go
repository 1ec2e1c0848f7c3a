package filter

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/lotas/wegweiser/internal/types"
)

// yearPattern is shared by ExtractYear and AvailableYears so every offered
// status option matches at least one section.
var yearPattern = regexp.MustCompile(`20\d{2}`)

// ExtractYear returns the first "20xx" substring of text.
func ExtractYear(text string) (string, bool) {
	y := yearPattern.FindString(text)
	return y, y != ""
}

// AvailableYears returns the distinct years found in section statuses,
// newest first.
func AvailableYears(dataset []types.Category) []string {
	seen := make(map[string]bool)
	var years []string
	for _, cat := range dataset {
		for _, sec := range cat.Sections {
			y, ok := ExtractYear(sec.Status)
			if !ok || seen[y] {
				continue
			}
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Slice(years, func(i, j int) bool {
		a, _ := strconv.Atoi(years[i])
		b, _ := strconv.Atoi(years[j])
		return a > b
	})
	return years
}
