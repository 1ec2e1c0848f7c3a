// Package testutil provides shared fixtures for tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/lotas/wegweiser/internal/storage"
	"github.com/lotas/wegweiser/internal/types"
)

// Dataset returns a small directory covering the interesting shapes: year
// and year-less statuses, sections without links, quick links and a category
// with no sections at all.
func Dataset() []types.Category {
	return []types.Category{
		{
			Code:        "A",
			Title:       "Housing",
			Description: "Shelter and tenancy support",
			Links:       []types.Link{{Label: "Housing portal", URL: "https://example.org/housing"}},
			Sections: []types.Section{
				{
					Code:        "A1",
					Title:       "Emergency shelter",
					Status:      "Updated 2023",
					Description: "Night shelters and hostels",
					Links: []types.Link{
						{Label: "Shelter list", URL: "https://example.org/shelters"},
						{Label: "Hostel map", URL: "https://example.org/hostels"},
					},
				},
				{
					Code:   "A2",
					Title:  "Tenancy rights",
					Status: "TBD",
				},
			},
		},
		{
			Code:  "B",
			Title: "Health",
			Sections: []types.Section{
				{
					Code:        "B1",
					Title:       "Clinics",
					Status:      "Reviewed March 2021",
					Description: "Walk-in foo clinics",
					Links:       []types.Link{{Label: "Clinic finder", URL: "https://example.org/clinics"}},
				},
				{
					Code:        "B2",
					Title:       "Mental health",
					Status:      "Updated 2023, checked 2024",
					Description: "Helplines",
					Links:       []types.Link{{Label: "Helpline", URL: "https://example.org/help"}},
				},
			},
		},
		{
			Code:        "C",
			Title:       "Contacts",
			Description: "Key phone numbers",
			Links:       []types.Link{{Label: "Directory", URL: "https://example.org/directory"}},
		},
	}
}

// TestDB opens a fresh database in a temporary directory.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
