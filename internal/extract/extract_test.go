package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/wegweiser/internal/types"
)

func esc(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func run(text string) string {
	return `<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">` + esc(text) + `</w:t></w:r>`
}

func link(rid, text string) string {
	return `<w:hyperlink r:id="` + rid + `"><w:r><w:t>` + esc(text) + `</w:t></w:r></w:hyperlink>`
}

func para(parts ...string) string {
	return `<w:p><w:pPr/>` + strings.Join(parts, "") + `</w:p>`
}

func tc(paras ...string) string {
	return `<w:tc><w:tcPr/>` + strings.Join(paras, "") + `</w:tc>`
}

func tr(cells ...string) string {
	return `<w:tr>` + strings.Join(cells, "") + `</w:tr>`
}

// buildDocx assembles a minimal DOCX whose body holds the given table rows.
func buildDocx(t *testing.T, body string, rels map[string]string) []byte {
	t.Helper()
	var relXML strings.Builder
	relXML.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for id, target := range rels {
		fmt.Fprintf(&relXML, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="%s" TargetMode="External"/>`, id, esc(target))
	}
	relXML.WriteString(`</Relationships>`)

	doc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="` + nsWord + `" xmlns:r="` + nsRels + `"><w:body>` + body + `<w:sectPr/></w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0"?><Types/>`,
		"word/document.xml":            doc,
		"word/_rels/document.xml.rels": relXML.String(),
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func extractBytes(data []byte) ([]types.Category, error) {
	return Extract(bytes.NewReader(data), int64(len(data)))
}

func TestExtract(t *testing.T) {
	rows := tr(tc(para(run("Code"))), tc(para(run("Status"))), tc(para(run("Details")))) +
		tr(tc(para(run("A. Housing"))), tc(para(run("Shelter support "), link("rId1", "Portal")))) +
		tr(
			tc(para(run("A1. Emergency shelter"))),
			tc(para(run("Updated 2023"))),
			tc(
				para(run("The staff handbook can be found "), link("rId2", "here")),
				para(run("Call first.")),
			),
		) +
		tr(tc(para(run("Note"))), tc(para()), tc(para(run("Extra info "), link("rId3", "Map"), run(" "), link("rId404", "Ghost")))) +
		tr(tc(para()), tc(para(run("ignored")))) +
		tr(tc(para(run("B1. Clinics"))), tc(para(run("TBD")))) +
		tr(tc(para(run("C. Contacts"))))

	data := buildDocx(t, `<w:tbl><w:tblPr/>`+rows+`</w:tbl>`, map[string]string{
		"rId1": "https://example.org/housing",
		"rId2": "https://example.org/handbook",
		"rId3": "https://example.org/map?a=1&b=2",
	})

	got, err := extractBytes(data)
	require.NoError(t, err)

	want := []types.Category{
		{
			Code:        "A",
			Title:       "Housing",
			Description: "Shelter support Portal",
			Links:       []types.Link{{Label: "Portal", URL: "https://example.org/housing"}},
			Sections: []types.Section{{
				Code:        "A1",
				Title:       "Emergency shelter",
				Status:      "Updated 2023",
				Description: "The staff handbook can be found here\nCall first. Extra info Map Ghost",
				Links: []types.Link{
					{Label: "staff handbook", URL: "https://example.org/handbook"},
					{Label: "Map", URL: "https://example.org/map?a=1&b=2"},
				},
			}},
		},
		{
			Code:  "B",
			Title: "Misc",
			Links: []types.Link{},
			Sections: []types.Section{{
				Code: "B1", Title: "Clinics", Status: "TBD", Description: "TBD", Links: []types.Link{},
			}},
		},
		{Code: "C", Title: "Contacts", Links: []types.Link{}, Sections: []types.Section{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "3 categories, 2 sections, 3 links", Summary(got))
}

func TestExtractSectionLinkOrder(t *testing.T) {
	rows := tr(tc(para(run("header")))) +
		tr(tc(para(run("D. Forms")))) +
		tr(
			tc(para(run("D1. Templates"))),
			tc(para(link("rId1", "Status doc"))),
			tc(para(link("rId2", "Detail doc"))),
		)
	data := buildDocx(t, `<w:tbl>`+rows+`</w:tbl>`, map[string]string{
		"rId1": "https://example.org/status",
		"rId2": "https://example.org/detail",
	})

	got, err := extractBytes(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Sections, 1)

	links := got[0].Sections[0].Links
	require.Len(t, links, 2)
	assert.Equal(t, "Detail doc", links[0].Label, "details column links come first")
	assert.Equal(t, "Status doc", links[1].Label)
}

func TestExtractErrors(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		_, err := extractBytes([]byte("plain text"))
		assert.Error(t, err)
	})
	t.Run("no table", func(t *testing.T) {
		data := buildDocx(t, para(run("Just prose")), nil)
		_, err := extractBytes(data)
		assert.True(t, errors.Is(err, ErrNoTable), "got %v", err)
	})
	t.Run("empty table", func(t *testing.T) {
		data := buildDocx(t, `<w:tbl></w:tbl>`, nil)
		_, err := extractBytes(data)
		assert.Error(t, err)
	})
}

func TestFile(t *testing.T) {
	rows := tr(tc(para(run("header")))) + tr(tc(para(run("E. Events"))))
	p := filepath.Join(t.TempDir(), "resources.docx")
	require.NoError(t, os.WriteFile(p, buildDocx(t, `<w:tbl>`+rows+`</w:tbl>`, nil), 0o644))

	got, err := File(p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Events", got[0].Title)

	_, err = File(filepath.Join(t.TempDir(), "missing.docx"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

const articleHTML = `<!DOCTYPE html>
<html><head><title>Staff Handbook</title></head>
<body>
<article>
<h1>Staff Handbook</h1>
<p>This is the main content of the article. It has enough text to be considered readable content by the readability algorithm. The quick brown fox jumps over the lazy dog. This paragraph needs to be long enough for readability to pick it up as meaningful content.</p>
<p>Second paragraph with more meaningful content that helps the readability parser understand this is a real article and not just navigation or boilerplate. We need several sentences here to make this work properly.</p>
</article>
</body></html>`

func TestResolveLabels(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	cats := []types.Category{{
		Code:  "A",
		Links: []types.Link{{Label: FallbackLabel, URL: srv.URL + "/handbook"}},
		Sections: []types.Section{{Code: "A1", Links: []types.Link{
			{Label: "Kept", URL: srv.URL + "/handbook"},
			{Label: FallbackLabel, URL: srv.URL + "/missing"},
			{Label: FallbackLabel, URL: "mailto:office@example.org"},
		}}},
	}}

	n := ResolveLabels(context.Background(), cats, 2)
	assert.Equal(t, 1, n)
	assert.Contains(t, cats[0].Links[0].Label, "Handbook")
	assert.Equal(t, "Kept", cats[0].Sections[0].Links[0].Label)
	assert.Equal(t, FallbackLabel, cats[0].Sections[0].Links[1].Label)
	assert.Equal(t, FallbackLabel, cats[0].Sections[0].Links[2].Label)
	assert.Contains(t, gotUA, "Mozilla/5.0")
}

func TestResolveLabelsNothingToDo(t *testing.T) {
	cats := []types.Category{{Code: "A", Links: []types.Link{{Label: "Portal", URL: "http://127.0.0.1:1"}}}}
	assert.Equal(t, 0, ResolveLabels(context.Background(), cats, 0))
}
