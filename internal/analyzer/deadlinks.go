package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lotas/wegweiser/internal/applog"
	"github.com/lotas/wegweiser/internal/types"
)

// DeadLink is a section link that failed a reachability check.
type DeadLink struct {
	SectionKey string `json:"sectionKey" yaml:"section_key"`
	Label      string `json:"label" yaml:"label"`
	URL        string `json:"url" yaml:"url"`
	Reason     string `json:"reason" yaml:"reason"`
}

var skipPrefixes = []string{"mailto:", "tel:", "file:", "data:"}

func shouldSkip(url string) bool {
	if url == "" {
		return true
	}
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// CheckLinks issues a HEAD request for every section link, at most limit at
// a time, and returns the ones that are unreachable or answer 404/410.
// Results follow dataset order.
func CheckLinks(ctx context.Context, dataset []types.Category, limit int) []DeadLink {
	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
	if limit <= 0 {
		limit = 10
	}

	type job struct {
		key  string
		link types.Link
	}
	var jobs []job
	for _, cat := range dataset {
		for _, sec := range cat.Sections {
			for _, l := range sec.Links {
				if !shouldSkip(l.URL) {
					jobs = append(jobs, job{key: cat.Key(sec), link: l})
				}
			}
		}
	}

	reasons := make([]string, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, j := range jobs {
		g.Go(func() error {
			reasons[i] = probe(ctx, client, j.link.URL)
			return nil
		})
	}
	g.Wait()

	var dead []DeadLink
	for i, j := range jobs {
		if reasons[i] == "" {
			continue
		}
		dead = append(dead, DeadLink{SectionKey: j.key, Label: j.link.Label, URL: j.link.URL, Reason: reasons[i]})
	}
	applog.Info("links.checked", "total", len(jobs), "dead", len(dead))
	return dead
}

// probe returns an empty string for a live link, otherwise the reason.
func probe(ctx context.Context, client *http.Client, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "invalid URL"
	}
	resp, err := client.Do(req)
	if err != nil {
		return "unreachable"
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return fmt.Sprintf("%d", resp.StatusCode)
	}
	return ""
}
