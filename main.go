package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/lotas/wegweiser/internal/applog"
	"github.com/lotas/wegweiser/internal/dataset"
	"github.com/lotas/wegweiser/internal/paths"
	"github.com/lotas/wegweiser/internal/pins"
	"github.com/lotas/wegweiser/internal/server"
	"github.com/lotas/wegweiser/internal/storage"
	"github.com/lotas/wegweiser/internal/tui"
	"github.com/lotas/wegweiser/internal/types"
)

var version = "dev"

var (
	configDirFlag string
	dataDirFlag   string

	// cfg is resolved once in setup, before any command runs.
	cfg Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wegweiser",
	Short: "Browse a categorised directory of resource links",
	Long: `wegweiser browses a two-level directory of categories and sections,
each section carrying a status and a list of links. Search, filter by year
or category, and pin the sections you come back to.

Run without a subcommand to start the terminal browser.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		applog.Close()
	},
	RunE: runBrowse,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wegweiser %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configDirFlag, "config-dir", "", "config directory (env: WEGWEISER_CONFIG_DIR)")
	pf.StringVar(&dataDirFlag, "data-dir", "", "directory for pins and logs (env: WEGWEISER_DATA_DIR)")
	pf.String(cfgKeySource, "", "dataset file or URL (default: "+dataset.DefaultSource+")")
	pf.Int(cfgKeyConcurrency, defaultConcurrency, "parallel HTTP requests for link checks and label lookups")

	rootCmd.Flags().Bool(cfgKeyObserver, false, "serve the observer bridge on 127.0.0.1")
	rootCmd.Flags().Int(cfgKeyPort, defaultPort, "observer bridge port")

	rootCmd.AddCommand(versionCmd, exportCmd, summaryCmd, pinsCmd, snapshotCmd, extractCmd, mcpCmd)
}

// setup resolves directories and configuration and starts the log.
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(configDirFlag)
	if err != nil {
		return fmt.Errorf("resolve config directory: %w", err)
	}
	v, err := loadConfig(configDir, cmd.Flags())
	if err != nil {
		return err
	}
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return fmt.Errorf("resolve data directory: %w", err)
	}

	cfg = configFrom(v, dataDir)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applog.Init(cfg.DataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	applog.Info("start", "command", cmd.Name(), "version", version, "source", cfg.Source)
	return nil
}

// openPinStore opens the pin database. If it cannot be opened pins still
// work for the session but are not persisted.
func openPinStore() (*pins.Store, *sql.DB, func()) {
	db, err := storage.OpenDB(filepath.Join(cfg.DataDir, paths.DBFileName))
	if err != nil {
		applog.Error("storage.open", err, "dir", cfg.DataDir)
		fmt.Fprintf(os.Stderr, "Warning: pins will not be saved: %v\n", err)
		return pins.NewStore(pins.NewMemoryKV()), nil, func() {}
	}
	return pins.NewStore(storage.NewKV(db)), db, func() { db.Close() }
}

// openDB opens the database for commands that cannot work without it.
func openDB() (*sql.DB, func(), error) {
	db, err := storage.OpenDB(filepath.Join(cfg.DataDir, paths.DBFileName))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return db, func() { db.Close() }, nil
}

func loadDataset(ctx context.Context) ([]types.Category, error) {
	return dataset.Load(ctx, cfg.Source)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	store, _, closeDB := openPinStore()
	defer closeDB()

	var srv *server.Server
	if cfg.Observer {
		srv = server.New(cfg.Port)
	}

	model := tui.NewModel(cfg.Source, loadDataset, store, srv)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err := p.Run()
	return err
}
