package applog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNoopBeforeInit(t *testing.T) {
	// Must not panic without a log file.
	Info("test.event", "k", "v")
	Error("test.error", errors.New("boom"))
	Error("test.nil", nil)
}

func TestInitWritesFile(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Info("pins.toggled", "key", "A-A1")
	Error("pins.save", errors.New("disk full"), "count", 2)
	Close()

	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "pins.toggled") || !strings.Contains(out, "A-A1") {
		t.Errorf("info line missing from log:\n%s", out)
	}
	if !strings.Contains(out, "disk full") {
		t.Errorf("error line missing from log:\n%s", out)
	}
}

func TestInitRotatesLargeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, fileName)
	big := make([]byte, maxFileSize+1)
	if err := os.WriteFile(path, big, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected rotated file: %v", err)
	}
}

func TestLongValuesTruncated(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Use(zap.New(core))
	defer Close()

	Info("dataset.loaded", "source", strings.Repeat("x", maxValueLen*2))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	got := entries[0].ContextMap()["source"].(string)
	if !strings.HasSuffix(got, truncSuffix) || len(got) != maxValueLen+len(truncSuffix) {
		t.Errorf("value not truncated: len=%d", len(got))
	}
}
