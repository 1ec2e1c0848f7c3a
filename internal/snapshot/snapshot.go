// Package snapshot records revisions of the resource directory so that
// edits to the dataset can be reviewed over time.
package snapshot

import (
	"database/sql"
	"fmt"

	"github.com/lotas/wegweiser/internal/applog"
	"github.com/lotas/wegweiser/internal/storage"
	"github.com/lotas/wegweiser/internal/types"
)

// Sections flattens a dataset into snapshot rows, in dataset order.
func Sections(cats []types.Category) []storage.SnapshotSection {
	var out []storage.SnapshotSection
	for _, cat := range cats {
		for _, sec := range cat.Sections {
			links := make([]string, 0, len(sec.Links))
			for _, l := range sec.Links {
				links = append(links, l.URL)
			}
			out = append(out, storage.SnapshotSection{
				Key:    cat.Key(sec),
				Title:  sec.Title,
				Status: sec.Status,
				Links:  links,
			})
		}
	}
	return out
}

// Create stores the dataset as a new snapshot unless it is identical to the
// latest one. It returns the rev number, whether a snapshot was created and
// the diff against the previous snapshot (nil if this is the first).
func Create(db *sql.DB, source string, cats []types.Category, label string) (rev int, created bool, diff *DiffResult, err error) {
	latest, err := storage.GetLatestSnapshot(db)
	if err != nil {
		return 0, false, nil, fmt.Errorf("get latest snapshot: %w", err)
	}

	current := Sections(cats)
	if latest != nil {
		diff = diffSections(latest.Sections, current)
		diff.RevFrom = latest.Rev
		if diff.Empty() {
			applog.Info("snapshot.skipped", "rev", latest.Rev)
			return latest.Rev, false, nil, nil
		}
	}

	newRev, err := storage.CreateSnapshot(db, source, current, label)
	if err != nil {
		return 0, false, nil, err
	}
	if diff != nil {
		diff.RevTo = newRev
	}
	applog.Info("snapshot.created", "rev", newRev, "sections", len(current), "source", source)
	return newRev, true, diff, nil
}
