package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/wegweiser/internal/dataset"
	"github.com/lotas/wegweiser/internal/testutil"
	"github.com/lotas/wegweiser/internal/types"
	"github.com/lotas/wegweiser/internal/view"
)

func TestLoadConfigDefaults(t *testing.T) {
	v, err := loadConfig(t.TempDir(), nil)
	require.NoError(t, err)

	c := configFrom(v, "/tmp/data")
	assert.Equal(t, dataset.DefaultSource, c.Source)
	assert.Equal(t, defaultPort, c.Port)
	assert.Equal(t, defaultConcurrency, c.Concurrency)
	assert.False(t, c.Observer)
	assert.NoError(t, c.Validate())
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	yaml := "source: https://example.org/resources.json\nport: 20000\nobserver: true\ndata_dir: /srv/wegweiser\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	v, err := loadConfig(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/resources.json", v.GetString(cfgKeySource))
	assert.Equal(t, 20000, v.GetInt(cfgKeyPort))
	assert.True(t, v.GetBool(cfgKeyObserver))
	assert.Equal(t, "/srv/wegweiser", v.GetString(cfgKeyDataDir))

	// Environment beats the file.
	t.Setenv("WEGWEISER_PORT", "20001")
	v, err = loadConfig(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 20001, v.GetInt(cfgKeyPort))

	// A set flag beats both; an unset one does not.
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int(cfgKeyPort, defaultPort, "")
	fs.String(cfgKeySource, "", "")
	require.NoError(t, fs.Parse([]string{"--port", "20002"}))
	v, err = loadConfig(dir, fs)
	require.NoError(t, err)
	assert.Equal(t, 20002, v.GetInt(cfgKeyPort))
	assert.Equal(t, "https://example.org/resources.json", v.GetString(cfgKeySource))
}

func TestLoadConfigInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("port: [unclosed\n"), 0o644))

	_, err := loadConfig(dir, nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Source: "data/resources.json", DataDir: "/tmp", Port: 19292, Concurrency: 4}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty source", func(c *Config) { c.Source = "" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"huge concurrency", func(c *Config) { c.Concurrency = 1000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestRender(t *testing.T) {
	p := view.Project(testutil.Dataset(), types.DefaultFilterState(), nil)

	md, err := render("md", p)
	require.NoError(t, err)
	assert.Contains(t, md, "# Resource Directory")

	js, err := render("json", p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(js), "{"))

	y, err := render("yaml", p)
	require.NoError(t, err)
	assert.Contains(t, y, "categories:")

	_, err = render("pdf", p)
	assert.Error(t, err)
}

func TestCommandsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	data, err := dataset.Encode(testutil.Dataset(), false)
	require.NoError(t, err)
	source := filepath.Join(dir, "resources.json")
	require.NoError(t, os.WriteFile(source, data, 0o644))

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(append([]string{
			"--config-dir", filepath.Join(dir, "config"),
			"--data-dir", filepath.Join(dir, "data"),
			"--source", source,
		}, args...))
		require.NoError(t, rootCmd.Execute(), "args %v: %s", args, out.String())
		return out.String()
	}

	assert.Contains(t, run("pins", "toggle", "B-B2"), "Pinned B-B2")
	assert.Contains(t, run("pins", "list"), "Mental health")
	assert.Contains(t, run("pins", "history"), "pinned   B-B2")

	out := run("export", "--format", "md", "--pinned")
	assert.Contains(t, out, "B2. Mental health")
	assert.NotContains(t, out, "A1. Emergency shelter")

	out = run("summary")
	assert.Contains(t, out, "Allocated: 3/4 sections (75%)")
	assert.Contains(t, out, "Pinned:    1")
	assert.Contains(t, out, "Years:     2023, 2021")

	assert.Contains(t, run("snapshot", "--label", "baseline"), "Snapshot #1 created")
	assert.Contains(t, run("snapshot"), "No changes since snapshot #1")
	assert.Contains(t, run("snapshot", "list"), `"baseline"`)
	assert.Contains(t, run("snapshot", "diff"), "No changes.")
	assert.Contains(t, run("snapshot", "delete", "1"), "Snapshot #1 deleted.")
	assert.Contains(t, run("snapshot", "list"), "No snapshots found.")
}
