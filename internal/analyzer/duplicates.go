package analyzer

import (
	"net/url"
	"sort"
	"strings"

	"github.com/lotas/wegweiser/internal/types"
)

// DuplicateLink is a URL referenced by more than one section.
type DuplicateLink struct {
	URL  string   `json:"url" yaml:"url"`
	Keys []string `json:"sectionKeys" yaml:"section_keys"`
}

func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	params := u.Query()
	for k := range params {
		sort.Strings(params[k])
	}
	u.RawQuery = params.Encode()
	result := u.String()
	if strings.HasSuffix(result, "/") && result != u.Scheme+"://"+u.Host+"/" {
		result = strings.TrimRight(result, "/")
	}
	return result
}

// FindDuplicateLinks groups section links by normalized URL and returns the
// URLs shared by two or more sections, in first-seen order.
func FindDuplicateLinks(dataset []types.Category) []DuplicateLink {
	groups := make(map[string][]string)
	var order []string
	for _, cat := range dataset {
		for _, sec := range cat.Sections {
			key := cat.Key(sec)
			for _, l := range sec.Links {
				norm := NormalizeURL(l.URL)
				if norm == "" {
					continue
				}
				keys, seen := groups[norm]
				if !seen {
					order = append(order, norm)
				}
				if len(keys) > 0 && keys[len(keys)-1] == key {
					continue
				}
				groups[norm] = append(keys, key)
			}
		}
	}

	var dups []DuplicateLink
	for _, u := range order {
		if keys := groups[u]; len(keys) > 1 {
			dups = append(dups, DuplicateLink{URL: u, Keys: keys})
		}
	}
	return dups
}
