package export

import (
	"encoding/json"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lotas/wegweiser/internal/filter"
	"github.com/lotas/wegweiser/internal/types"
	"github.com/lotas/wegweiser/internal/view"
)

type document struct {
	ExportedAt time.Time          `json:"exported_at" yaml:"exported_at"`
	Filter     types.FilterState  `json:"filter" yaml:"filter"`
	Stats      types.Stats        `json:"stats" yaml:"stats"`
	Totals     types.GlobalTotals `json:"totals" yaml:"totals"`
	Categories []docCategory      `json:"categories" yaml:"categories"`
}

type docCategory struct {
	Code            string       `json:"code" yaml:"code"`
	Title           string       `json:"title" yaml:"title"`
	Description     string       `json:"description,omitempty" yaml:"description,omitempty"`
	Anchor          string       `json:"anchor" yaml:"anchor"`
	CategoryMatches bool         `json:"category_matches,omitempty" yaml:"category_matches,omitempty"`
	Expanded        bool         `json:"expanded" yaml:"expanded"`
	QuickLinks      []docLink    `json:"quick_links" yaml:"quick_links"`
	Sections        []docSection `json:"sections" yaml:"sections"`
}

type docSection struct {
	Key         string    `json:"key" yaml:"key"`
	Code        string    `json:"code" yaml:"code"`
	Title       string    `json:"title" yaml:"title"`
	Status      string    `json:"status" yaml:"status"`
	Year        string    `json:"year,omitempty" yaml:"year,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Pinned      bool      `json:"pinned,omitempty" yaml:"pinned,omitempty"`
	Links       []docLink `json:"links" yaml:"links"`
}

type docLink struct {
	Label  string `json:"label" yaml:"label"`
	URL    string `json:"url" yaml:"url"`
	Domain string `json:"domain" yaml:"domain"`
}

func newDocument(p view.Payload) document {
	doc := document{
		ExportedAt: time.Now(),
		Filter:     p.Filter,
		Stats:      p.Stats,
		Totals:     p.Totals,
		Categories: make([]docCategory, 0, len(p.Categories)),
	}
	for _, fc := range p.Categories {
		cat := docCategory{
			Code:            fc.Code,
			Title:           fc.Title,
			Description:     fc.Description,
			Anchor:          view.AnchorID(fc.Code),
			CategoryMatches: fc.CategoryMatches,
			Expanded:        p.Expanded[fc.Code],
			QuickLinks:      docLinks(fc.Links),
			Sections:        make([]docSection, 0, len(fc.Sections)),
		}
		for _, sec := range fc.Sections {
			year, _ := filter.ExtractYear(sec.Status)
			cat.Sections = append(cat.Sections, docSection{
				Key:         fc.Key(sec),
				Code:        sec.Code,
				Title:       sec.Title,
				Status:      sec.Status,
				Year:        year,
				Description: sec.Description,
				Pinned:      p.Pinned[fc.Key(sec)],
				Links:       docLinks(sec.Links),
			})
		}
		doc.Categories = append(doc.Categories, cat)
	}
	return doc
}

func docLinks(links []types.Link) []docLink {
	out := make([]docLink, 0, len(links))
	for _, l := range links {
		out = append(out, docLink{Label: l.Label, URL: l.URL, Domain: extractDomain(l.URL)})
	}
	return out
}

// JSON formats the view as a JSON document.
func JSON(p view.Payload) (string, error) {
	b, err := json.MarshalIndent(newDocument(p), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

// YAML formats the view as a YAML document with the same shape as JSON.
func YAML(p view.Payload) (string, error) {
	b, err := yaml.Marshal(newDocument(p))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Hostname()
}
