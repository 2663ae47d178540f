package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/csg33k/cps-dct/internal/adapters/sqlite"
	"github.com/csg33k/cps-dct/internal/config"
	"github.com/csg33k/cps-dct/internal/pipeline"
)

var (
	cfg    *config.Config
	layout *config.Layout
	logger *slog.Logger
	opts   pipeline.Options
	repo   *sqliteadapter.Repository

	workDir    string
	indexURL   string
	dbPath     string
	logLevel   string
	logFormat  string
	layoutPath string
	workers    int
	noCatalog  bool
)

// Execute runs the CLI. SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cpsdct",
		Short:        "Generate Stata infix dictionaries for the CPS basic monthly files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			overrideString(cmd, "workdir", &cfg.WorkDir, workDir)
			overrideString(cmd, "index-url", &cfg.IndexURL, indexURL)
			overrideString(cmd, "db", &cfg.DBPath, dbPath)
			overrideString(cmd, "log-level", &cfg.LogLevel, logLevel)
			overrideString(cmd, "log-format", &cfg.LogFormat, logFormat)
			overrideString(cmd, "layout", &cfg.LayoutConfig, layoutPath)
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger = cfg.NewLogger(cmd.ErrOrStderr())
			slog.SetDefault(logger)

			if layout, err = config.LoadLayout(cfg.LayoutConfig); err != nil {
				return err
			}
			opts.WorkDir = cfg.WorkDir
			opts.IndexURL = cfg.IndexURL
			opts.Workers = cfg.Workers
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if repo != nil {
				err := repo.Close()
				repo = nil
				return err
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&workDir, "workdir", "w", "", "work directory for downloads and outputs (env CPS_WORKDIR)")
	pf.StringVar(&indexURL, "index-url", "", "CPS index page (env CPS_INDEX_URL)")
	pf.StringVar(&dbPath, "db", "", "SQLite catalog path (env DB_PATH)")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	pf.StringVar(&logFormat, "log-format", "", "text or json (env LOG_FORMAT)")
	pf.StringVar(&layoutPath, "layout", "", "HCL layout config file (env CPS_LAYOUT_CONFIG)")
	pf.IntVarP(&workers, "workers", "j", 1, "years processed in parallel (env CPS_WORKERS)")
	pf.BoolVar(&noCatalog, "no-catalog", false, "do not record runs in the SQLite catalog")

	root.AddCommand(fetchCmd(), extractCmd(), buildCmd(), runCmd(), parseCmd(), serveCmd())
	return root
}

// overrideString applies a flag over the environment value only when the
// flag was given on the command line.
func overrideString(cmd *cobra.Command, name string, dst *string, v string) {
	if cmd.Flags().Changed(name) {
		*dst = v
	}
}

// newPipeline builds the pipeline and, unless disabled, attaches the catalog.
func newPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	p := pipeline.New(opts, layout, logger)
	if noCatalog {
		return p, nil
	}
	r, err := openCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return p.WithCatalog(r), nil
}

func openCatalog(ctx context.Context) (*sqliteadapter.Repository, error) {
	if repo != nil {
		return repo, nil
	}
	r, err := sqliteadapter.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := r.Migrate(ctx); err != nil {
		r.Close()
		return nil, err
	}
	repo = r
	return repo, nil
}

func ensureWorkDir() error {
	return os.MkdirAll(cfg.WorkDir, 0o755)
}
