package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/crave/internal/adapters/catalog"
	serveradapter "github.com/evanschultz/crave/internal/adapters/server"
	servercommon "github.com/evanschultz/crave/internal/adapters/server/common"
	"github.com/evanschultz/crave/internal/adapters/storage/sqlite"
	"github.com/evanschultz/crave/internal/app"
	"github.com/evanschultz/crave/internal/config"
	"github.com/evanschultz/crave/internal/deck"
	"github.com/evanschultz/crave/internal/domain"
	"github.com/evanschultz/crave/internal/platform"
	"github.com/evanschultz/crave/internal/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
	Send(tea.Msg)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP/MCP server; tests replace it.
var serveCommandRunner = serveradapter.Run

// main handles main.
func main() {
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := fang.Execute(context.Background(), root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes the command tree without fang's styled error output.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SilenceUsage = true
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}

// rootOptions holds persistent CLI flags.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand builds the crave command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	opts := &rootOptions{appName: platform.DefaultAppName, devMode: version == "dev"}
	if envDev, ok := parseBoolEnv(platform.EnvDevMode); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv(platform.EnvAppName)); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:     "crave",
		Short:   "Swipe through recipes and keep the ones you like",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	root.PersistentFlags().StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	root.PersistentFlags().BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newConfigCommand(opts, stdout, stderr),
		newImportCommand(opts, stdout, stderr),
		newExportCommand(opts, stdout, stderr),
		newSavedCommand(opts, stdout, stderr),
		newServeCommand(opts, stderr),
	)
	return root
}

// newPathsCommand prints resolved runtime paths.
func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data, and database paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, configPath, dbPath, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", configPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", dbPath)
			return nil
		},
	}
}

// newConfigCommand prints or writes the effective configuration.
func newConfigCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, configPath, dbPath, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(opts, configPath, dbPath)
			if err != nil {
				return err
			}
			if write {
				created, err := config.WriteDefault(configPath, cfg)
				if err != nil {
					return err
				}
				if created {
					_, _ = fmt.Fprintf(stderr, "wrote %s\n", configPath)
				} else {
					_, _ = fmt.Fprintf(stderr, "%s already exists; left unchanged\n", configPath)
				}
			}
			encoded, err := cfg.Encode()
			if err != nil {
				return err
			}
			_, err = stdout.Write(encoded)
			return err
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "write the effective config to the config path when none exists")
	return cmd
}

// newImportCommand imports recipes or a full snapshot.
func newImportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		inPath   string
		snapshot bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import recipes (JSON array or {\"recipes\": [...]}) or a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			return withRuntime(cmd.Context(), opts, stderr, "import", func(ctx context.Context, rt *runtime) error {
				content, err := os.ReadFile(inPath)
				if err != nil {
					return fmt.Errorf("read import file: %w", err)
				}
				if snapshot {
					var snap app.Snapshot
					if err := json.Unmarshal(content, &snap); err != nil {
						return fmt.Errorf("decode snapshot json: %w", err)
					}
					if err := rt.svc.ImportSnapshot(ctx, snap); err != nil {
						return fmt.Errorf("import snapshot: %w", err)
					}
					_, _ = fmt.Fprintf(stdout, "imported %d recipes and %d saved entries\n", len(snap.Recipes), len(snap.Saved))
					return nil
				}
				recipes, err := catalog.DecodeRecipes(content)
				if err != nil {
					return fmt.Errorf("decode recipes: %w", err)
				}
				result, err := rt.svc.ImportRecipes(ctx, recipes)
				if err != nil {
					return fmt.Errorf("import recipes: %w", err)
				}
				rt.logger.Info("recipes imported", "imported", result.Imported, "skipped", result.Skipped)
				return writeJSON(stdout, result)
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input JSON file")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "treat the input as a crave snapshot export")
	return cmd
}

// newExportCommand writes a snapshot of the catalog and saved collection.
func newExportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog and saved recipes as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, stderr, "export", func(ctx context.Context, rt *runtime) error {
				snap, err := rt.svc.ExportSnapshot(ctx)
				if err != nil {
					return fmt.Errorf("export snapshot: %w", err)
				}
				encoded, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return fmt.Errorf("encode snapshot json: %w", err)
				}
				encoded = append(encoded, '\n')
				if outPath == "-" {
					_, err := stdout.Write(encoded)
					return err
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return fmt.Errorf("create export output dir: %w", err)
				}
				if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

// newSavedCommand lists the saved collection.
func newSavedCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "List saved recipes in the order they were liked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, stderr, "saved", func(ctx context.Context, rt *runtime) error {
				saved, err := rt.svc.ListSaved(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(stdout, saved)
				}
				if len(saved) == 0 {
					_, _ = fmt.Fprintln(stdout, app.EmptySavedTitle)
					_, _ = fmt.Fprintln(stdout, app.EmptySavedMessage)
					return nil
				}
				_, err = fmt.Fprintln(stdout, renderSavedTable(saved))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// newServeCommand runs the HTTP API and MCP endpoints over one shared deck.
func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deck over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, stderr, "serve", func(ctx context.Context, rt *runtime) error {
				ctrl := rt.newDeck(app.SourceServe, deck.SystemScheduler())
				defer ctrl.Close()
				adapter := servercommon.NewAppServiceAdapter(rt.svc, ctrl)
				if _, err := adapter.Reload(ctx); err != nil {
					rt.logger.Warn("initial feed load failed", "err", err)
				}

				serverCfg := serveradapter.Config{
					HTTPBind:      firstNonEmpty(httpBind, rt.cfg.Server.HTTPBind),
					APIEndpoint:   firstNonEmpty(apiEndpoint, rt.cfg.Server.APIEndpoint),
					MCPEndpoint:   firstNonEmpty(mcpEndpoint, rt.cfg.Server.MCPEndpoint),
					ServerName:    opts.appName,
					ServerVersion: version,
					OnListen: func(addr string) {
						rt.logger.Info("serving", "addr", addr)
					},
				}
				sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				return serveCommandRunner(sigCtx, serverCfg, serveradapter.Dependencies{
					Deck:   adapter,
					Saved:  adapter,
					Logger: rt.logger,
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "bind", "", "HTTP listen address (defaults to server.http_bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API base endpoint")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint")
	return cmd
}

// runTUI runs the interactive swipe deck.
func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	return withRuntime(ctx, opts, stderr, "tui", func(ctx context.Context, rt *runtime) error {
		// Keep TUI rendering clean: runtime logs stay in the dev-file sink while the deck is active.
		rt.logger.SetConsoleEnabled(false)

		ctrl := rt.newDeck(app.SourceTUI, deck.SystemScheduler())
		defer ctrl.Close()
		m := tui.NewModel(
			rt.svc,
			ctrl,
			tui.WithDragConfig(tui.DragConfig{UnitsX: rt.cfg.UI.DragUnitsX, UnitsY: rt.cfg.UI.DragUnitsY}),
			tui.WithKeyConfig(tui.KeyConfig{
				Like:   rt.cfg.UI.Keys.Like,
				Skip:   rt.cfg.UI.Keys.Skip,
				Saved:  rt.cfg.UI.Keys.Saved,
				Copy:   rt.cfg.UI.Keys.Copy,
				Reload: rt.cfg.UI.Keys.Reload,
			}),
			tui.WithSwipeThreshold(rt.cfg.Deck.SwipeThreshold),
		)
		p := programFactory(m)
		// Send from a goroutine: snapshots published inside Update must not block the event loop.
		unsubscribe := ctrl.Subscribe(func(deck.Snapshot[domain.Recipe]) {
			go p.Send(tui.DeckChangedMsg{})
		})
		defer unsubscribe()

		rt.logger.Info("starting tui program loop")
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

// runtime bundles the resolved config, logger, and opened services for one command.
type runtime struct {
	cfg    config.Config
	logger *runtimeLogger
	repo   *sqlite.Repository
	svc    *app.Service
}

// newDeck builds a deck controller whose likes land in the saved collection tagged with source.
func (rt *runtime) newDeck(source string, scheduler deck.Scheduler) *deck.Controller[domain.Recipe] {
	onErr := func(recipe domain.Recipe, err error) {
		rt.logger.Error("save liked recipe failed", "recipe_id", recipe.ID, "err", err)
	}
	return deck.NewController(
		rt.svc.LikeSink(app.WithSaveSource(context.Background(), source), onErr),
		deck.WithScheduler(scheduler),
		deck.WithSettleDelay(rt.cfg.SettleDelay()),
		deck.WithSwipeThreshold(rt.cfg.Deck.SwipeThreshold),
		deck.WithMaxVisible(rt.cfg.Deck.MaxVisible),
		deck.WithLogger(rt.logger),
	)
}

// withRuntime resolves config, opens storage, and runs fn with logging around the command flow.
func withRuntime(ctx context.Context, opts *rootOptions, stderr io.Writer, command string, fn func(context.Context, *runtime) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paths, configPath, dbPath, err := resolvePaths(opts)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts, configPath, dbPath)
	if err != nil {
		return err
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && logger.shouldLogToSink(logger.consoleSink) {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()

	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		SeedOnEmpty: cfg.Catalog.SeedOnEmpty,
		Seed:        catalog.NewEmbeddedCatalog(),
	})
	rt := &runtime{cfg: cfg, logger: logger, repo: repo, svc: svc}

	logger.Info("command flow start", "command", command)
	if err := fn(ctx, rt); err != nil {
		logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	logger.Info("command flow complete", "command", command)
	return nil
}

// resolvePaths applies platform defaults, env overrides, then flags.
func resolvePaths(opts *rootOptions) (platform.Paths, string, string, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return platform.Paths{}, "", "", err
	}
	paths = platform.ApplyEnv(paths, os.Getenv)
	configPath := firstNonEmpty(opts.configPath, paths.ConfigPath)
	dbPath := firstNonEmpty(opts.dbPath, paths.DBPath)
	return paths, configPath, dbPath, nil
}

// loadConfig loads configPath over defaults; an explicit --db wins over the file.
func loadConfig(opts *rootOptions, configPath, dbPath string) (config.Config, error) {
	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if strings.TrimSpace(opts.dbPath) != "" {
		cfg.Database.Path = opts.dbPath
	}
	return cfg, nil
}

// renderSavedTable renders saved entries as a bordered table.
func renderSavedTable(saved []domain.SavedRecipe) string {
	rows := make([][]string, 0, len(saved))
	for _, item := range saved {
		rows = append(rows, []string{
			item.SavedAt.Local().Format("2006-01-02 15:04"),
			item.Recipe.Name,
			item.Recipe.Origin,
			item.Source,
		})
	}
	return table.New().
		Headers("SAVED", "RECIPE", "ORIGIN", "SOURCE").
		Rows(rows...).
		String()
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// firstNonEmpty returns the first value that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
