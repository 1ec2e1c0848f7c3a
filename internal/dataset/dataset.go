// Package dataset loads the resource directory from a file or URL.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lotas/wegweiser/internal/applog"
	"github.com/lotas/wegweiser/internal/types"
	"github.com/lotas/wegweiser/internal/view"
)

// DefaultSource is used when no dataset is configured.
const DefaultSource = "data/resources.json"

// LoadError is returned for every failure to produce a dataset. It is the
// only error the browser shows to the user.
type LoadError struct {
	Source string
	// Status is the HTTP status for non-2xx responses, 0 otherwise.
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("load %s: HTTP %d", e.Source, e.Status)
	}
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Load reads the dataset at source, an http(s) URL or a file path. JSON,
// YAML (by extension) and lz4-compressed JSON are accepted. There is no
// retry.
func Load(ctx context.Context, source string) ([]types.Category, error) {
	if source == "" {
		source = DefaultSource
	}

	var (
		data []byte
		err  error
	)
	if isURL(source) {
		data, err = fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			err = &LoadError{Source: source, Err: err}
		}
	}
	if err != nil {
		applog.Error("dataset.load", err, "source", source)
		return nil, err
	}

	cats, err := Parse(data, formatOf(source))
	if err != nil {
		err = &LoadError{Source: source, Err: err}
		applog.Error("dataset.parse", err, "source", source)
		return nil, err
	}

	checkCodes(cats)
	applog.Info("dataset.loaded", "source", source, "categories", len(cats), "bytes", len(data))
	return cats, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &LoadError{Source: url, Err: err}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &LoadError{Source: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{Source: url, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LoadError{Source: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

// Format is the encoding of a dataset document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func formatOf(source string) Format {
	path := source
	if i := strings.IndexAny(path, "?#"); i >= 0 && isURL(path) {
		path = path[:i]
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Parse decodes a dataset document. Compressed input is unpacked first and
// always treated as JSON.
func Parse(data []byte, format Format) ([]types.Category, error) {
	if IsCompressed(data) {
		raw, err := Decompress(data)
		if err != nil {
			return nil, err
		}
		data, format = raw, FormatJSON
	}

	var cats []types.Category
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cats); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cats); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	if cats == nil {
		cats = []types.Category{}
	}
	return cats, nil
}

// checkCodes logs codes that would make SectionKeys or anchor ids ambiguous.
func checkCodes(cats []types.Category) {
	seenCat := make(map[string]bool)
	anchors := make(map[string]string)
	for _, cat := range cats {
		if seenCat[cat.Code] {
			applog.Warn("dataset.duplicate_category", "code", cat.Code)
		}
		seenCat[cat.Code] = true

		id := view.AnchorID(cat.Code)
		if other, ok := anchors[id]; ok && other != cat.Code {
			applog.Warn("dataset.anchor_collision", "code", cat.Code, "other", other, "anchor", id)
		}
		anchors[id] = cat.Code

		seenSec := make(map[string]bool)
		for _, sec := range cat.Sections {
			if seenSec[sec.Code] {
				applog.Warn("dataset.duplicate_section", "key", cat.Key(sec))
			}
			seenSec[sec.Code] = true
		}
	}
}

// Encode renders cats as indented JSON, lz4-compressed when compress is set.
func Encode(cats []types.Category, compress bool) ([]byte, error) {
	data, err := json.MarshalIndent(cats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	data = append(data, '\n')
	if !compress {
		return data, nil
	}
	return Compress(data)
}
