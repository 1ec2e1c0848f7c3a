package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/lotas/wegweiser/internal/applog"
	"github.com/lotas/wegweiser/internal/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var client = &http.Client{Timeout: 15 * time.Second}

// FetchTitle fetches an http(s) page and returns its readable title.
func FetchTitle(ctx context.Context, url string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("skipping non-HTTP URL: %s", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, nil)
	if err != nil {
		return "", fmt.Errorf("extract readable content from %s: %w", url, err)
	}
	return strings.TrimSpace(article.Title), nil
}

// ResolveLabels replaces FallbackLabel link labels with the title of the
// linked page, fetching at most limit pages at a time. Links whose page
// cannot be fetched keep their label. It returns the number of labels
// replaced.
func ResolveLabels(ctx context.Context, cats []types.Category, limit int) int {
	var targets []*types.Link
	collect := func(links []types.Link) {
		for i := range links {
			if links[i].Label == FallbackLabel {
				targets = append(targets, &links[i])
			}
		}
	}
	for ci := range cats {
		collect(cats[ci].Links)
		for si := range cats[ci].Sections {
			collect(cats[ci].Sections[si].Links)
		}
	}
	if len(targets) == 0 {
		return 0
	}
	if limit <= 0 {
		limit = 4
	}

	titles := make([]string, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, l := range targets {
		g.Go(func() error {
			title, err := FetchTitle(ctx, l.URL)
			if err != nil {
				applog.Warn("extract.resolve", "url", l.URL, "err", err.Error())
				return nil
			}
			titles[i] = title
			return nil
		})
	}
	g.Wait()

	resolved := 0
	for i, l := range targets {
		if titles[i] != "" {
			l.Label = titles[i]
			resolved++
		}
	}
	applog.Info("extract.resolved", "candidates", len(targets), "resolved", resolved)
	return resolved
}
