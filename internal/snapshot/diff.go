package snapshot

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lotas/wegweiser/internal/storage"
	"github.com/lotas/wegweiser/internal/types"
)

// DiffEntry is one section in a diff result. Changes is only set for
// sections present on both sides.
type DiffEntry struct {
	Key     string
	Title   string
	Changes []string
}

// DiffResult compares two revisions. RevTo is 0 when the newer side is the
// current dataset.
type DiffResult struct {
	RevFrom int
	RevTo   int
	Added   []DiffEntry
	Removed []DiffEntry
	Changed []DiffEntry
}

// Empty reports whether the two sides are identical.
func (d *DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffAgainstCurrent compares snapshot rev against the current dataset.
// rev 0 means the latest snapshot.
func DiffAgainstCurrent(db *sql.DB, rev int, cats []types.Category) (*DiffResult, error) {
	var snap *storage.SnapshotFull
	var err error
	if rev == 0 {
		snap, err = storage.GetLatestSnapshot(db)
		if err == nil && snap == nil {
			return nil, fmt.Errorf("no snapshots recorded yet")
		}
	} else {
		snap, err = storage.GetSnapshot(db, rev)
	}
	if err != nil {
		return nil, err
	}

	result := diffSections(snap.Sections, Sections(cats))
	result.RevFrom = snap.Rev
	return result, nil
}

// DiffRevisions compares two stored snapshots.
func DiffRevisions(db *sql.DB, from, to int) (*DiffResult, error) {
	older, err := storage.GetSnapshot(db, from)
	if err != nil {
		return nil, err
	}
	newer, err := storage.GetSnapshot(db, to)
	if err != nil {
		return nil, err
	}
	result := diffSections(older.Sections, newer.Sections)
	result.RevFrom = from
	result.RevTo = to
	return result, nil
}

// diffSections matches sections by key. Added and changed entries follow
// the order of newer, removed entries the order of older.
func diffSections(older, newer []storage.SnapshotSection) *DiffResult {
	oldByKey := make(map[string]storage.SnapshotSection, len(older))
	for _, s := range older {
		oldByKey[s.Key] = s
	}
	newKeys := make(map[string]bool, len(newer))

	result := &DiffResult{}
	for _, s := range newer {
		newKeys[s.Key] = true
		prev, ok := oldByKey[s.Key]
		if !ok {
			result.Added = append(result.Added, DiffEntry{Key: s.Key, Title: s.Title})
			continue
		}
		if changes := compareSection(prev, s); len(changes) > 0 {
			result.Changed = append(result.Changed, DiffEntry{Key: s.Key, Title: s.Title, Changes: changes})
		}
	}
	for _, s := range older {
		if !newKeys[s.Key] {
			result.Removed = append(result.Removed, DiffEntry{Key: s.Key, Title: s.Title})
		}
	}
	return result
}

func compareSection(prev, cur storage.SnapshotSection) []string {
	var changes []string
	if prev.Title != cur.Title {
		changes = append(changes, fmt.Sprintf("title: %q -> %q", prev.Title, cur.Title))
	}
	if prev.Status != cur.Status {
		changes = append(changes, fmt.Sprintf("status: %q -> %q", prev.Status, cur.Status))
	}

	before := make(map[string]bool, len(prev.Links))
	for _, u := range prev.Links {
		before[u] = true
	}
	after := make(map[string]bool, len(cur.Links))
	for _, u := range cur.Links {
		after[u] = true
		if !before[u] {
			changes = append(changes, "link added: "+u)
		}
	}
	for _, u := range prev.Links {
		if !after[u] {
			changes = append(changes, "link removed: "+u)
		}
	}
	return changes
}

// FormatDiff renders a DiffResult for the terminal.
func FormatDiff(d *DiffResult) string {
	var sb strings.Builder

	to := "current"
	if d.RevTo != 0 {
		to = fmt.Sprintf("#%d", d.RevTo)
	}
	fmt.Fprintf(&sb, "Diff #%d -> %s\n", d.RevFrom, to)
	fmt.Fprintf(&sb, "Added: %d  Removed: %d  Changed: %d\n", len(d.Added), len(d.Removed), len(d.Changed))

	if len(d.Added) > 0 {
		sb.WriteString("\n+ Added:\n")
		for _, e := range d.Added {
			fmt.Fprintf(&sb, "  + %s %s\n", e.Key, e.Title)
		}
	}
	if len(d.Removed) > 0 {
		sb.WriteString("\n- Removed:\n")
		for _, e := range d.Removed {
			fmt.Fprintf(&sb, "  - %s %s\n", e.Key, e.Title)
		}
	}
	if len(d.Changed) > 0 {
		sb.WriteString("\n~ Changed:\n")
		for _, e := range d.Changed {
			fmt.Fprintf(&sb, "  ~ %s %s\n", e.Key, e.Title)
			for _, c := range e.Changes {
				fmt.Fprintf(&sb, "      %s\n", c)
			}
		}
	}

	if d.Empty() {
		sb.WriteString("\nNo changes.\n")
	}
	return sb.String()
}
