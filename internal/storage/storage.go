package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lotas/wegweiser/internal/paths"
)

// migration is a numbered schema change. Migrations are applied in order
// and tracked in the schema_migrations table so each runs exactly once.
type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "key-value store",
		SQL: `
CREATE TABLE IF NOT EXISTS kv (
    key         TEXT PRIMARY KEY,
    value       TEXT NOT NULL,
    updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
	},
	{
		Version:     2,
		Description: "pin history",
		SQL: `
CREATE TABLE pin_events (
    id           INTEGER PRIMARY KEY,
    section_key  TEXT NOT NULL,
    pinned       BOOLEAN NOT NULL,
    at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_pin_events_key ON pin_events(section_key);`,
	},
	{
		Version:     3,
		Description: "dataset snapshots",
		SQL: `
CREATE TABLE snapshots (
    id             INTEGER PRIMARY KEY,
    rev            INTEGER NOT NULL UNIQUE,
    name           TEXT,
    source         TEXT NOT NULL,
    section_count  INTEGER NOT NULL DEFAULT 0,
    created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE snapshot_sections (
    id           INTEGER PRIMARY KEY,
    snapshot_id  INTEGER NOT NULL REFERENCES snapshots(id),
    section_key  TEXT NOT NULL,
    title        TEXT NOT NULL,
    status       TEXT NOT NULL,
    links        TEXT NOT NULL
);
CREATE INDEX idx_snapshot_sections_snapshot ON snapshot_sections(snapshot_id);`,
	},
}

// OpenDB opens or creates the SQLite database at path and applies any
// pending migrations.
func OpenDB(path string) (*sql.DB, error) {
	// Create parent directory if needed.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// runMigrations ensures the schema_migrations table exists and runs any
// migration not yet recorded there.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}

		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// DefaultDBPath returns the database path inside the default data
// directory, e.g. ~/.local/share/wegweiser/wegweiser.db.
func DefaultDBPath() (string, error) {
	dir, err := paths.DefaultDataDir()
	if err != nil {
		return "", fmt.Errorf("resolve data directory: %w", err)
	}
	return filepath.Join(dir, paths.DBFileName), nil
}

// KV is a string key-value store on top of the kv table. It satisfies
// pins.KV and pins.Recorder.
type KV struct {
	db *sql.DB
}

// NewKV wraps db.
func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

// Get returns the value stored under key; ok is false if there is none.
func (s *KV) Get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *KV) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// PinEvent is one recorded pin toggle.
type PinEvent struct {
	ID         int64
	SectionKey string
	Pinned     bool
	At         time.Time
}

// RecordToggle appends a pin toggle to the history.
func (s *KV) RecordToggle(key string, pinned bool) error {
	_, err := s.db.Exec("INSERT INTO pin_events (section_key, pinned) VALUES (?, ?)", key, pinned)
	if err != nil {
		return fmt.Errorf("record pin event: %w", err)
	}
	return nil
}

// ListPinEvents returns up to limit events, newest first. limit <= 0 means
// no limit.
func ListPinEvents(db *sql.DB, limit int) ([]PinEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT id, section_key, pinned, at FROM pin_events
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pin events: %w", err)
	}
	defer rows.Close()

	var events []PinEvent
	for rows.Next() {
		var e PinEvent
		if err := rows.Scan(&e.ID, &e.SectionKey, &e.Pinned, &e.At); err != nil {
			return nil, fmt.Errorf("scan pin event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// SnapshotSection is one section as recorded in a snapshot. Links holds the
// section's link URLs in dataset order.
type SnapshotSection struct {
	Key    string
	Title  string
	Status string
	Links  []string
}

// SnapshotSummary describes a snapshot without its sections.
type SnapshotSummary struct {
	ID           int64
	Rev          int
	Name         string
	Source       string
	CreatedAt    time.Time
	SectionCount int
}

// SnapshotFull is a snapshot with all of its sections.
type SnapshotFull struct {
	SnapshotSummary
	Sections []SnapshotSection
}

// CreateSnapshot stores sections as a new snapshot in a single transaction.
// The rev number is assigned sequentially. An empty label stores no name.
func CreateSnapshot(db *sql.DB, source string, sections []SnapshotSection, label string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rev int
	if err := tx.QueryRow("SELECT COALESCE(MAX(rev), 0) + 1 FROM snapshots").Scan(&rev); err != nil {
		return 0, fmt.Errorf("compute next rev: %w", err)
	}

	var nameVal interface{}
	if label != "" {
		nameVal = label
	}
	res, err := tx.Exec(
		"INSERT INTO snapshots (rev, name, source, section_count) VALUES (?, ?, ?, ?)",
		rev, nameVal, source, len(sections),
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	snapID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get snapshot id: %w", err)
	}

	for _, sec := range sections {
		_, err := tx.Exec(
			"INSERT INTO snapshot_sections (snapshot_id, section_key, title, status, links) VALUES (?, ?, ?, ?, ?)",
			snapID, sec.Key, sec.Title, sec.Status, strings.Join(sec.Links, "\n"),
		)
		if err != nil {
			return 0, fmt.Errorf("insert section %q: %w", sec.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return rev, nil
}

// ListSnapshots returns all snapshots, newest first.
func ListSnapshots(db *sql.DB) ([]SnapshotSummary, error) {
	rows, err := db.Query(
		"SELECT id, rev, name, source, created_at, section_count FROM snapshots ORDER BY rev DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var result []SnapshotSummary
	for rows.Next() {
		var s SnapshotSummary
		var name sql.NullString
		if err := rows.Scan(&s.ID, &s.Rev, &name, &s.Source, &s.CreatedAt, &s.SectionCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.Name = name.String
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return result, nil
}

// GetSnapshot loads a full snapshot by rev number.
func GetSnapshot(db *sql.DB, rev int) (*SnapshotFull, error) {
	snap := &SnapshotFull{}

	var name sql.NullString
	err := db.QueryRow(
		"SELECT id, rev, name, source, created_at, section_count FROM snapshots WHERE rev = ?", rev,
	).Scan(&snap.ID, &snap.Rev, &name, &snap.Source, &snap.CreatedAt, &snap.SectionCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot rev %d not found", rev)
		}
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	snap.Name = name.String

	rows, err := db.Query(
		"SELECT section_key, title, status, links FROM snapshot_sections WHERE snapshot_id = ? ORDER BY id",
		snap.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sec SnapshotSection
		var links string
		if err := rows.Scan(&sec.Key, &sec.Title, &sec.Status, &links); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		if links != "" {
			sec.Links = strings.Split(links, "\n")
		}
		snap.Sections = append(snap.Sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return snap, nil
}

// GetLatestSnapshot returns the most recent snapshot, or nil, nil if there
// are none.
func GetLatestSnapshot(db *sql.DB) (*SnapshotFull, error) {
	var rev int
	err := db.QueryRow("SELECT rev FROM snapshots ORDER BY rev DESC LIMIT 1").Scan(&rev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest rev: %w", err)
	}
	return GetSnapshot(db, rev)
}

// DeleteSnapshot removes a snapshot and its sections. It fails if the rev
// does not exist.
func DeleteSnapshot(db *sql.DB, rev int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM snapshot_sections WHERE snapshot_id IN (SELECT id FROM snapshots WHERE rev = ?)", rev,
	); err != nil {
		return fmt.Errorf("delete snapshot sections: %w", err)
	}
	res, err := tx.Exec("DELETE FROM snapshots WHERE rev = ?", rev)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("snapshot rev %d not found", rev)
	}
	return tx.Commit()
}
