package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/cobra"

	"github.com/lotas/wegweiser/internal/analyzer"
	"github.com/lotas/wegweiser/internal/applog"
	"github.com/lotas/wegweiser/internal/dataset"
	"github.com/lotas/wegweiser/internal/export"
	"github.com/lotas/wegweiser/internal/extract"
	"github.com/lotas/wegweiser/internal/filter"
	"github.com/lotas/wegweiser/internal/mcpserver"
	"github.com/lotas/wegweiser/internal/snapshot"
	"github.com/lotas/wegweiser/internal/storage"
	"github.com/lotas/wegweiser/internal/types"
	"github.com/lotas/wegweiser/internal/view"
)

// --- export ---

var exportOpts struct {
	format     string
	out        string
	search     string
	status     string
	category   string
	pinnedOnly bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered directory as Markdown, JSON or YAML",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.format, "format", "md", "output format: md, json or yaml")
	f.StringVarP(&exportOpts.out, "out", "o", "", "output file path (default: stdout)")
	f.StringVar(&exportOpts.search, "search", "", "search terms; all must match")
	f.StringVar(&exportOpts.status, "status", types.FilterAll, "year to filter by")
	f.StringVar(&exportOpts.category, "category", types.FilterAll, "category code to filter by")
	f.BoolVar(&exportOpts.pinnedOnly, "pinned", false, "only pinned sections")
}

func render(format string, p view.Payload) (string, error) {
	if err := validation.Validate(format, validation.In("md", "markdown", "json", "yaml", "yml")); err != nil {
		return "", fmt.Errorf("format %q: %w", format, err)
	}
	switch format {
	case "json":
		return export.JSON(p)
	case "yaml", "yml":
		return export.YAML(p)
	default:
		return export.Markdown(p), nil
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	data, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}
	store, _, closeDB := openPinStore()
	defer closeDB()

	f := types.FilterState{
		SearchTerm:     exportOpts.search,
		StatusFilter:   exportOpts.status,
		CategoryFilter: exportOpts.category,
		ShowPinnedOnly: exportOpts.pinnedOnly,
	}
	output, err := render(exportOpts.format, view.Project(data, f, store.Load()))
	if err != nil {
		return err
	}

	if exportOpts.out == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), output)
		return err
	}
	if err := os.WriteFile(exportOpts.out, []byte(output), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOpts.out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", exportOpts.out)
	return nil
}

// --- summary ---

var checkLinks bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print directory totals, duplicate links and optionally dead links",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().BoolVar(&checkLinks, "check-links", false, "probe every link and report dead ones")
}

func runSummary(cmd *cobra.Command, args []string) error {
	data, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}
	store, _, closeDB := openPinStore()
	defer closeDB()

	out := cmd.OutOrStdout()
	totals := analyzer.ComputeGlobalTotals(data, store.Load())
	stats := analyzer.ComputeStats(filter.Apply(data, types.DefaultFilterState(), nil))

	fmt.Fprintf(out, "Resource directory: %s\n", cfg.Source)
	fmt.Fprintf(out, "  %d categories, %d sections, %d section links\n", len(data), stats.SectionCount, stats.LinkCount)
	fmt.Fprintf(out, "  Allocated: %d/%d sections (%.0f%%)\n", totals.AllocatedSections, totals.TotalSections, totals.AllocationProgress)
	fmt.Fprintf(out, "  Pinned:    %d\n", totals.PinnedCount)
	if years := filter.AvailableYears(data); len(years) > 0 {
		fmt.Fprintf(out, "  Years:     %s\n", strings.Join(years, ", "))
	}

	dups := analyzer.FindDuplicateLinks(data)
	if len(dups) > 0 {
		fmt.Fprintf(out, "\nDuplicate links (%d):\n", len(dups))
		for _, d := range dups {
			fmt.Fprintf(out, "  %s\n    %s\n", d.URL, strings.Join(d.Keys, ", "))
		}
	}

	if !checkLinks {
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "\nChecking links...\n")
	dead := analyzer.CheckLinks(cmd.Context(), data, cfg.Concurrency)
	if len(dead) == 0 {
		fmt.Fprintln(out, "\nNo dead links.")
		return nil
	}
	fmt.Fprintf(out, "\nDead links (%d):\n", len(dead))
	for _, d := range dead {
		fmt.Fprintf(out, "  %-8s %s (%s)\n           %s\n", d.SectionKey, d.Label, d.Reason, d.URL)
	}
	return nil
}

// --- pins ---

var historyLimit int

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "List, toggle and review pinned sections",
}

var pinsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pinned sections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, closeDB := openPinStore()
		defer closeDB()

		pinned := store.Load()
		if pinned.Len() == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No pinned sections.")
			return nil
		}

		// Titles are a nicety; pins are listed even if the dataset is unavailable.
		titles := make(map[string]string)
		if data, err := loadDataset(cmd.Context()); err == nil {
			for _, cat := range data {
				for _, sec := range cat.Sections {
					titles[cat.Key(sec)] = sec.Title
				}
			}
		}
		for _, key := range pinned.Keys() {
			title, ok := titles[key]
			if !ok {
				title = "(not in dataset)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", key, title)
		}
		return nil
	},
}

var pinsToggleCmd = &cobra.Command{
	Use:   "toggle <section-key>",
	Short: "Pin or unpin a section, e.g. A-A1",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		data, err := loadDataset(cmd.Context())
		if err != nil {
			return err
		}
		if _, ok := view.Anchors(data)[key]; !ok {
			return fmt.Errorf("unknown section %q", key)
		}

		store, _, closeDB := openPinStore()
		defer closeDB()

		if store.Toggle(store.Load(), key).Has(key) {
			fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s\n", key)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Unpinned %s\n", key)
		}
		return nil
	},
}

var pinsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent pin changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, closeDB := openPinStore()
		defer closeDB()
		if db == nil {
			return fmt.Errorf("pin history needs the pin database in %s", cfg.DataDir)
		}

		events, err := storage.ListPinEvents(db, historyLimit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No pin changes recorded.")
			return nil
		}
		for _, e := range events {
			action := "unpinned"
			if e.Pinned {
				action = "pinned"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s %s\n", e.At.Local().Format("2006-01-02 15:04"), action, e.SectionKey)
		}
		return nil
	},
}

func init() {
	pinsHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of events to show (0 for all)")
	pinsCmd.AddCommand(pinsListCmd, pinsToggleCmd, pinsHistoryCmd)
}

// --- snapshot ---

var snapshotLabel string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Record the current dataset as a revision (only if changed)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := loadDataset(cmd.Context())
		if err != nil {
			return err
		}
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()

		rev, created, diff, err := snapshot.Create(db, cfg.Source, data, snapshotLabel)
		if err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}
		out := cmd.OutOrStdout()
		if !created {
			fmt.Fprintf(out, "No changes since snapshot #%d\n", rev)
			return nil
		}
		fmt.Fprintf(out, "Snapshot #%d created: %s\n", rev, extract.Summary(data))
		if diff != nil {
			fmt.Fprintf(out, "  +%d added, -%d removed, ~%d changed since #%d\n",
				len(diff.Added), len(diff.Removed), len(diff.Changed), diff.RevFrom)
		}
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()

		snaps, err := storage.ListSnapshots(db)
		if err != nil {
			return fmt.Errorf("list snapshots: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(snaps) == 0 {
			fmt.Fprintln(out, "No snapshots found.")
			return nil
		}
		for _, s := range snaps {
			line := fmt.Sprintf("#%-4d %s  %3d sections  %s", s.Rev, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.SectionCount, s.Source)
			if s.Name != "" {
				line += fmt.Sprintf("  %q", s.Name)
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff [rev] [rev2]",
	Short: "Compare a snapshot with the current dataset, or two snapshots",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		revs := make([]int, len(args))
		for i, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid rev %q", a)
			}
			revs[i] = n
		}

		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()

		var result *snapshot.DiffResult
		if len(revs) == 2 {
			result, err = snapshot.DiffRevisions(db, revs[0], revs[1])
		} else {
			data, lerr := loadDataset(cmd.Context())
			if lerr != nil {
				return lerr
			}
			rev := 0
			if len(revs) == 1 {
				rev = revs[0]
			}
			result, err = snapshot.DiffAgainstCurrent(db, rev, data)
		}
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), snapshot.FormatDiff(result))
		return err
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <rev>",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rev, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid rev %q", args[0])
		}
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := storage.DeleteSnapshot(db, rev); err != nil {
			return err
		}
		applog.Info("snapshot.deleted", "rev", rev)
		fmt.Fprintf(cmd.OutOrStdout(), "Snapshot #%d deleted.\n", rev)
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotLabel, "label", "", "optional label for the snapshot")
	snapshotCmd.AddCommand(snapshotListCmd, snapshotDiffCmd, snapshotDeleteCmd)
}

// --- extract ---

var extractOpts struct {
	out      string
	resolve  bool
	compress bool
}

var extractCmd = &cobra.Command{
	Use:   "extract <file.docx>",
	Short: "Build the dataset from a DOCX resource table",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVarP(&extractOpts.out, "out", "o", dataset.DefaultSource, "dataset file to write")
	f.BoolVar(&extractOpts.resolve, "resolve", false, "replace generic link labels with the linked page title")
	f.BoolVar(&extractOpts.compress, "lz4", false, "write an lz4-compressed dataset")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cats, err := extract.File(args[0])
	if err != nil {
		return err
	}

	if extractOpts.resolve {
		n := extract.ResolveLabels(cmd.Context(), cats, cfg.Concurrency)
		fmt.Fprintf(cmd.ErrOrStderr(), "Resolved %d link labels\n", n)
	}

	data, err := dataset.Encode(cats, extractOpts.compress)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(extractOpts.out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(extractOpts.out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", extractOpts.out, err)
	}

	applog.Info("extract.done", "input", args[0], "output", extractOpts.out, "summary", extract.Summary(cats))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %s\n", extractOpts.out, extract.Summary(cats))
	return nil
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the directory as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := loadDataset(cmd.Context())
		if err != nil {
			return err
		}
		store, _, closeDB := openPinStore()
		defer closeDB()

		applog.Info("mcp.start", "categories", len(data))
		return mcpserver.New(data, store, version).ServeStdio()
	},
}
