package cli

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
	"github.com/couchcryptid/cruise-data-etl/internal/rawdata"
	"github.com/couchcryptid/cruise-data-etl/internal/stationdb"
)

// StationsOptions holds flags shared by the stations subcommands.
type StationsOptions struct {
	DBPath string
}

// NewStationsCommand creates the stations command group.
func NewStationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StationsOptions{}

	cmd := &cobra.Command{
		Use:   "stations",
		Short: "Manage the station reference database",
	}
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "station database path (overrides STATION_DB_PATH)")

	cmd.AddCommand(newStationsImportCommand(rootOpts, opts))
	cmd.AddCommand(newStationsListCommand(rootOpts, opts))
	cmd.AddCommand(newStationsNearbyCommand(rootOpts, opts))
	return cmd
}

// setupStations is setup with the --db override applied and the database
// required.
func setupStations(rootOpts *RootOptions, opts *StationsOptions, cmd *cobra.Command, f *OutputFormatter) (*env, error) {
	if opts.DBPath != "" {
		return setupWithDB(rootOpts, opts.DBPath, cmd, f)
	}
	e, err := setup(rootOpts, cmd, f)
	if err != nil {
		return nil, err
	}
	if e.stationDB == nil {
		e.Close()
		return nil, NewExitError(ExitCommandError, "no station database: set STATION_DB_PATH or pass --db")
	}
	return e, nil
}

func setupWithDB(rootOpts *RootOptions, path string, cmd *cobra.Command, f *OutputFormatter) (*env, error) {
	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return nil, f.configError(err)
	}
	db, err := stationdb.Open(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, "opening station database", err)
	}
	cfg.StationDBPath = path
	return &env{
		cfg:       cfg,
		logger:    newLogger(rootOpts, cmd.ErrOrStderr()),
		repo:      rawdata.NewRepository(rawdata.NewResolver(cfg.DataRoot), cfg.UnderwayResolution),
		stationDB: db,
	}, nil
}

func newStationsImportCommand(rootOpts *RootOptions, opts *StationsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <cruise> [file]",
		Short: "Import a cruise station list into the database",
		Long: `Parse a station list (CSV or XLSX, decimal or degree/decimal-minute
coordinates) and replace the cruise's stations in the database. Without a
file argument the cruise's metadata/<cruise>_stations file is used.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			e, err := setupStations(rootOpts, opts, cmd, f)
			if err != nil {
				return err
			}
			defer e.Close()

			cruise := args[0]
			var stations []domain.Station
			if len(args) == 2 {
				stations, err = rawdata.ParseStations(args[1])
			} else {
				stations, err = e.repo.Stations(cmd.Context(), cruise)
			}
			if err != nil {
				return f.Fail(ExitCommandError, "reading station list", err)
			}

			n, err := e.stationDB.Import(cmd.Context(), cruise, stations)
			if err != nil {
				return f.Fail(ExitFailure, "importing stations", err)
			}
			e.logger.Info("stations imported", "cruise", cruise, "count", n)
			return f.Result(map[string]any{"cruise": cruise, "imported": n}, func(w io.Writer) {
				fmt.Fprintf(w, "imported %d stations for %s\n", n, cruise)
			})
		},
	}
}

// StationResult is one row of stations list output. DepthM is null when
// the station list gave no depth.
type StationResult struct {
	Name      string   `json:"name"`
	LongName  string   `json:"long_name,omitempty"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	DepthM    *float64 `json:"depth_m"`
	Comment   string   `json:"comments,omitempty"`
}

func newStationsListCommand(rootOpts *RootOptions, opts *StationsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <cruise>",
		Short: "List a cruise's stations from the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			e, err := setupStations(rootOpts, opts, cmd, f)
			if err != nil {
				return err
			}
			defer e.Close()

			stations, err := e.stationDB.Stations(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(ExitCommandError, "listing stations", err)
			}
			results := make([]StationResult, len(stations))
			for i, s := range stations {
				results[i] = StationResult{
					Name:      s.Name,
					LongName:  s.LongName,
					Latitude:  s.Latitude,
					Longitude: s.Longitude,
					Comment:   s.Comment,
				}
				if !math.IsNaN(s.DepthM) {
					results[i].DepthM = &s.DepthM
				}
			}
			return f.Result(results, func(w io.Writer) {
				for _, s := range stations {
					fmt.Fprintf(w, "%-10s %9.4f %10.4f  %s\n", s.Name, s.Latitude, s.Longitude, s.LongName)
				}
			})
		},
	}
}

// NearbyResult is one row of stations nearby output.
type NearbyResult struct {
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km"`
}

func newStationsNearbyCommand(rootOpts *RootOptions, opts *StationsOptions) *cobra.Command {
	var lat, lon, km float64

	cmd := &cobra.Command{
		Use:   "nearby <cruise> --lat <deg> --lon <deg>",
		Short: "Find stations near a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			e, err := setupStations(rootOpts, opts, cmd, f)
			if err != nil {
				return err
			}
			defer e.Close()

			if km <= 0 || math.IsNaN(km) {
				km = e.cfg.StationMatchKm
			}
			found, err := e.stationDB.NearbyStations(cmd.Context(), args[0], lat, lon, km)
			if err != nil {
				return f.Fail(ExitCommandError, "searching stations", err)
			}
			results := make([]NearbyResult, len(found))
			for i, n := range found {
				results[i] = NearbyResult{
					Name:       n.Station.Name,
					Latitude:   n.Station.Latitude,
					Longitude:  n.Station.Longitude,
					DistanceKm: n.DistanceKm,
				}
			}
			return f.Result(results, func(w io.Writer) {
				if len(results) == 0 {
					fmt.Fprintf(w, "no stations within %.1f km\n", km)
					return
				}
				for _, r := range results {
					fmt.Fprintf(w, "%-10s %6.3f km\n", r.Name, r.DistanceKm)
				}
			})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", math.NaN(), "latitude in decimal degrees")
	cmd.Flags().Float64Var(&lon, "lon", math.NaN(), "longitude in decimal degrees")
	cmd.Flags().Float64Var(&km, "km", 0, "search radius in km (default STATION_MATCH_KM)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}
