package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/cruise-data-etl/internal/config"
	"github.com/couchcryptid/cruise-data-etl/internal/pipeline"
	"github.com/couchcryptid/cruise-data-etl/internal/products"
	"github.com/couchcryptid/cruise-data-etl/internal/rawdata"
	"github.com/couchcryptid/cruise-data-etl/internal/stationdb"
)

// env is the wiring shared by commands that read raw data.
type env struct {
	cfg       *config.Config
	logger    *slog.Logger
	repo      *rawdata.Repository
	stationDB *stationdb.Store // nil unless STATION_DB_PATH is set
	store     *products.Store
}

// loadConfig reads the environment and applies flag overrides before
// validating.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if opts.DataRoot != "" {
		cfg.DataRoot = opts.DataRoot
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger logs to w at warn, or debug with --verbose, keeping stdout
// clean for command output.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func setup(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, f.configError(err)
	}
	e := &env{
		cfg:    cfg,
		logger: newLogger(opts, cmd.ErrOrStderr()),
		repo:   rawdata.NewRepository(rawdata.NewResolver(cfg.DataRoot), cfg.UnderwayResolution),
		store:  products.NewStore(cfg.ProductsDir),
	}
	if cfg.StationDBPath != "" {
		db, err := stationdb.Open(cfg.StationDBPath)
		if err != nil {
			return nil, f.Fail(ExitCommandError, "opening station database", err)
		}
		e.stationDB = db
	}
	return e, nil
}

// sources returns the raw inputs, preferring the station database over
// per-cruise station files when one is configured.
func (e *env) sources() pipeline.Sources {
	s := pipeline.Sources{Events: e.repo, Tracks: e.repo, Stations: e.repo}
	if e.stationDB != nil {
		s.Stations = e.stationDB
	}
	return s
}

func (e *env) Close() {
	if e.stationDB != nil {
		if err := e.stationDB.Close(); err != nil {
			e.logger.Warn("closing station database", "error", err)
		}
	}
}
