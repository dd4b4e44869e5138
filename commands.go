package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"ScubaLog/config"
	"ScubaLog/kvstore"
	"ScubaLog/logbook"
	"ScubaLog/logging"
	"ScubaLog/metrics"
	"ScubaLog/mirror"
	"ScubaLog/models"
	"ScubaLog/seed"
)

const shutdownTimeout = 10 * time.Second

// app is everything a command needs once the config is loaded.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	logbook *logbook.Logbook
	closeFn func() error
}

func (a *app) Close() {
	if a.closeFn != nil {
		if err := a.closeFn(); err != nil {
			a.logger.Warn("closing storage failed", "error", err)
		}
	}
}

// openApp loads the config, opens storage and loads the logbook.
func openApp(ctx context.Context, configPath string, reg prometheus.Registerer) (*app, error) {
	var err error
	if configPath == "" {
		configPath, err = config.Path()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.Log)

	store, closeFn, err := kvstore.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	opts := []logbook.Option{logbook.WithLogger(logger)}
	if reg != nil {
		opts = append(opts, logbook.WithMetrics(metrics.New(reg)))
	}
	m := mirror.New(store, seed.Dives, mirror.WithLogger(logger))

	return &app{
		cfg:     cfg,
		logger:  logger,
		logbook: logbook.New(ctx, m, opts...),
		closeFn: closeFn,
	}, nil
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "scuba",
		Short:         "A personal scuba dive logbook",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.scuba/scuba.yaml, or $SCUBA_CONFIG)")

	withApp := func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), configPath, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, a, args)
		}
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the logbook over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List dives, most recent first",
		Args:    cobra.NoArgs,
		RunE:    withApp(runList),
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one dive in detail",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runShow),
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Log a new dive",
		Args:  cobra.NoArgs,
		RunE:  withApp(runAdd),
	}
	addCmd.Flags().String("date", models.Today().String(), "dive date (YYYY-MM-DD)")
	addCmd.Flags().String("location", "", "location, e.g. Sydney")
	addCmd.Flags().String("site", "", "dive site, e.g. Shelly Beach")
	addCmd.Flags().Int("duration", 0, "bottom time in minutes")
	addCmd.Flags().Float64("depth", 0, "max depth in meters")
	addCmd.Flags().Float64("temp", 0, "water temperature in degrees")
	addCmd.Flags().String("visibility", "", "visibility, e.g. 15m")
	addCmd.Flags().String("notes", "", "notes")
	addCmd.Flags().Int("rating", models.DefaultRating, "rating from 1 to 5")

	deleteCmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a dive; later dives are renumbered by date",
		Args:    cobra.ExactArgs(1),
		RunE:    withApp(runDelete),
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show logbook statistics",
		Args:  cobra.NoArgs,
		RunE:  withApp(runStats),
	}

	importCmd := &cobra.Command{
		Use:   "import <csv>",
		Short: "Append dives from a CSV export (Date,Location,Site,Depth,Duration,Water temp,Rating,Notes)",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runImport),
	}

	rootCmd.AddCommand(serveCmd, listCmd, showCmd, addCmd, deleteCmd, statsCmd, importCmd)
	return rootCmd
}

func runServe(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	a, err := openApp(ctx, configPath, reg)
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    a.cfg.Server.Addr,
		Handler: newRouter(a.logbook, reg, a.logger),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", srv.Addr, "backend", a.cfg.Storage.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := a.logbook.Flush(shutdownCtx); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}
	return nil
}

func runList(cmd *cobra.Command, a *app, _ []string) error {
	out := cmd.OutOrStdout()
	dives := a.logbook.OrderedView()
	if len(dives) == 0 {
		fmt.Fprintf(out, "%s is empty. Log your first dive with `scuba add`.\n", a.cfg.Diver.LogTitle())
		return nil
	}

	fmt.Fprintln(out, a.cfg.Diver.LogTitle())
	fmt.Fprintf(out, "%d dives logged\n", len(dives))
	fmt.Fprintf(out, "%-5s %-10s %-18s %-24s %6s %5s  %s\n", "#", "DATE", "LOCATION", "SITE", "DEPTH", "MIN", "ID")
	for _, d := range dives {
		fmt.Fprintf(out, "%-5d %-10s %-18s %-24s %5.1fm %5d  %s\n",
			d.DiveNumber, d.Date, truncate(d.Location, 18), truncate(d.Site, 24), d.MaxDepth, d.Duration, d.Id)
	}
	return nil
}

func runShow(cmd *cobra.Command, a *app, args []string) error {
	d, ok := a.logbook.Get(args[0])
	if !ok {
		return fmt.Errorf("show: no dive with id %q", args[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "#%d %s\n", d.DiveNumber, d.Site)
	fmt.Fprintf(out, "  Location:   %s\n", d.Location)
	fmt.Fprintf(out, "  Date:       %s\n", d.Date)
	fmt.Fprintf(out, "  Rating:     %s\n", strings.Repeat("★", d.Rating)+strings.Repeat("☆", max(0, 5-d.Rating)))
	fmt.Fprintf(out, "  Max depth:  %gm\n", d.MaxDepth)
	fmt.Fprintf(out, "  Duration:   %d min\n", d.Duration)
	if d.WaterTemp != nil {
		fmt.Fprintf(out, "  Water temp: %g°C\n", *d.WaterTemp)
	} else {
		fmt.Fprintln(out, "  Water temp: -")
	}
	if d.Visibility != nil {
		fmt.Fprintf(out, "  Visibility: %s\n", *d.Visibility)
	}
	if d.Notes != "" {
		fmt.Fprintf(out, "  Notes:      %s\n", d.Notes)
	}
	fmt.Fprintf(out, "  Id:         %s\n", d.Id)
	return nil
}

func runAdd(cmd *cobra.Command, a *app, _ []string) error {
	flags := cmd.Flags()
	req := models.NewDive{}
	req.Date, _ = flags.GetString("date")
	req.Location, _ = flags.GetString("location")
	req.Site, _ = flags.GetString("site")
	req.Duration, _ = flags.GetInt("duration")
	req.MaxDepth, _ = flags.GetFloat64("depth")
	req.Notes, _ = flags.GetString("notes")
	rating, _ := flags.GetInt("rating")
	req.Rating = &rating
	if flags.Changed("temp") {
		temp, _ := flags.GetFloat64("temp")
		req.WaterTemp = &temp
	}
	if flags.Changed("visibility") {
		vis, _ := flags.GetString("visibility")
		req.Visibility = &vis
	}

	if err := req.Validate(); err != nil {
		return fmt.Errorf("add: please fill in location, site and date: %w", err)
	}
	in, err := req.ToDive()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	d, err := a.logbook.Add(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("add: dive #%d kept in memory only: %w", d.DiveNumber, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved as #%d (%s)\n", d.DiveNumber, d.Id)
	return nil
}

func runDelete(cmd *cobra.Command, a *app, args []string) error {
	removed, err := a.logbook.Delete(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if !removed {
		fmt.Fprintf(cmd.OutOrStdout(), "No dive with id %s\n", args[0])
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s, %d dives remain\n", args[0], a.logbook.Len())
	return nil
}

func runStats(cmd *cobra.Command, a *app, _ []string) error {
	s := a.logbook.Stats()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Total dives:       %d\n", s.TotalDives)
	fmt.Fprintf(out, "Hours underwater:  %.1f\n", s.HoursUnderwater)
	fmt.Fprintf(out, "Deepest dive:      %gm\n", s.MaxDepth)
	fmt.Fprintf(out, "Average depth:     %gm\n", s.AverageDepth)
	fmt.Fprintf(out, "Longest dive:      %d min\n", s.LongestDive)
	if len(s.Locations) == 0 {
		fmt.Fprintln(out, "No locations explored yet")
		return nil
	}
	fmt.Fprintln(out, "Locations:")
	for _, l := range s.Locations {
		fmt.Fprintf(out, "  %-24s %d dives\n", l.Location, l.Dives)
	}
	return nil
}

func runImport(cmd *cobra.Command, a *app, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer f.Close()

	dives, err := seed.Parse(f)
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}
	for _, d := range dives {
		if _, err := a.logbook.Add(cmd.Context(), d); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d dives\n", len(dives))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
