package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	nsWord = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsRels = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// node is a generic XML element; the DOCX body is walked rather than
// mapped onto a fixed schema.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []node     `xml:",any"`
	Text    string     `xml:",chardata"`
}

func (n *node) is(local string) bool {
	return n.XMLName.Space == nsWord && n.XMLName.Local == local
}

func (n *node) attr(space, local string) string {
	for _, a := range n.Attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// child returns the first direct child named w:local.
func (n *node) child(local string) *node {
	for i := range n.Nodes {
		if n.Nodes[i].is(local) {
			return &n.Nodes[i]
		}
	}
	return nil
}

// children returns the direct children named w:local.
func (n *node) children(local string) []*node {
	var out []*node
	for i := range n.Nodes {
		if n.Nodes[i].is(local) {
			out = append(out, &n.Nodes[i])
		}
	}
	return out
}

// descendants returns every element below n named w:local, in document
// order. n itself is not included.
func (n *node) descendants(local string) []*node {
	var out []*node
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.is(local) {
			out = append(out, c)
		}
		out = append(out, c.descendants(local)...)
	}
	return out
}

// text concatenates the w:t runs below n.
func (n *node) text() string {
	var b strings.Builder
	for _, t := range n.descendants("t") {
		b.WriteString(t.Text)
	}
	return b.String()
}

type relationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// ErrNoTable is returned when the document has no resource table.
var ErrNoTable = errors.New("expected resource table was not found in the document")

// document is the parsed part of a DOCX that extraction needs.
type document struct {
	body *node
	rels map[string]string
}

func readDocx(r io.ReaderAt, size int64) (*document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	var root node
	if err := decodePart(zr, "word/document.xml", &root); err != nil {
		return nil, err
	}
	var rels relationships
	if err := decodePart(zr, "word/_rels/document.xml.rels", &rels); err != nil {
		return nil, err
	}

	body := root.child("body")
	if body == nil {
		return nil, errors.New("document body not found")
	}

	doc := &document{body: body, rels: make(map[string]string, len(rels.Items))}
	for _, rel := range rels.Items {
		doc.rels[rel.ID] = rel.Target
	}
	return doc, nil
}

func decodePart(zr *zip.Reader, name string, v any) error {
	f, err := zr.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	if err := xml.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// rows returns the cells of every row of the first body table.
func (d *document) rows() ([][]*node, error) {
	tbl := d.body.child("tbl")
	if tbl == nil {
		return nil, ErrNoTable
	}
	trs := tbl.children("tr")
	if len(trs) == 0 {
		return nil, errors.New("the resource table does not contain any rows")
	}
	rows := make([][]*node, 0, len(trs))
	for _, tr := range trs {
		rows = append(rows, tr.children("tc"))
	}
	return rows, nil
}
