package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/garrettladley/withings-sync/internal/config"
	"github.com/garrettladley/withings-sync/internal/credential"
	"github.com/garrettladley/withings-sync/internal/db"
	"github.com/garrettladley/withings-sync/internal/oauth"
	"github.com/garrettladley/withings-sync/internal/paths"
	"github.com/garrettladley/withings-sync/internal/repository"
	"github.com/garrettladley/withings-sync/internal/xhttp"
	"github.com/garrettladley/withings-sync/internal/xslog"
)

type globalOptions struct {
	configDir string
	verbose   bool
	debug     bool
}

func (o *globalOptions) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.configDir, "config-dir", "", "directory holding the credential document and history database")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "log at info level")
	flags.BoolVar(&o.debug, "debug", false, "log at debug level")
}

// level resolves the log level: --debug beats --verbose beats LOG_LEVEL, which defaults to warn.
func (o *globalOptions) level() xslog.Level {
	switch {
	case o.debug:
		return xslog.LevelDebug
	case o.verbose:
		return xslog.LevelInfo
	case os.Getenv(xslog.EnvKey) != "":
		return xslog.FromEnv()
	default:
		return xslog.LevelWarn
	}
}

// app holds the resources shared by every command.
type app struct {
	cfg    config.Config
	dir    string
	logger *slog.Logger
	fs     afero.Fs
	sqlDB  *sql.DB
	pool   *pgxpool.Pool
	repo   *repository.Repository
}

func openApp(ctx context.Context, opts *globalOptions) (*app, error) {
	logger := xslog.NewLogger(os.Stderr, opts.level())

	cfg, err := config.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	override := opts.configDir
	if override == "" {
		override = cfg.ConfigDir
	}
	dir, err := paths.EnsureDir(override)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.Open(ctx, paths.DB(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger.DebugContext(ctx, "starting", xslog.Version(), xslog.Path(dir))

	a := &app{
		cfg:    cfg,
		dir:    dir,
		logger: logger,
		fs:     afero.NewOsFs(),
		sqlDB:  sqlDB,
	}

	var repoOpts []repository.Option
	if cfg.HistoryUsesPostgres() {
		pool, err := db.OpenPostgres(ctx, cfg.HistoryDSN)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		a.pool = pool
		repoOpts = append(repoOpts, repository.WithRuns(repository.NewPostgresRuns(pool)))
	}
	a.repo = repository.New(sqlDB, repoOpts...)

	return a, nil
}

func (a *app) template() credential.Template {
	return credential.Template{
		CallbackURL:    a.cfg.CallbackURL,
		ClientID:       a.cfg.ClientID,
		ConsumerSecret: a.cfg.ConsumerSecret,
	}
}

func (a *app) credentials() (*credential.Store, error) {
	store, err := credential.Open(a.fs, paths.Credentials(a.dir), a.template(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials: %w", err)
	}
	return store, nil
}

// settings reads the app registration from the credential document; the environment only seeds
// the document's template and fills keys left blank.
func (a *app) settings(store *credential.Store) oauth.Settings {
	orDefault := func(key, def string) string {
		if v := store.String(key); v != "" {
			return v
		}
		return def
	}
	return oauth.Settings{
		ClientID:       orDefault(credential.KeyClientID, a.cfg.ClientID),
		ConsumerSecret: orDefault(credential.KeyConsumerSecret, a.cfg.ConsumerSecret),
		CallbackURL:    orDefault(credential.KeyCallbackURL, a.cfg.CallbackURL),
		AuthorizeURL:   a.cfg.AuthorizeURL,
		BaseURL:        a.cfg.WithingsURL,
	}
}

func (a *app) session(store *credential.Store, prompter oauth.Prompter) *oauth.Session {
	return oauth.NewSession(
		oauth.NewConfig(a.settings(store)),
		store,
		prompter,
		oauth.WithHTTPClient(xhttp.NewHTTPClient(xhttp.WithTimeout(a.cfg.HTTPTimeout))),
		oauth.WithLogger(a.logger),
	)
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.sqlDB.Close()
}
