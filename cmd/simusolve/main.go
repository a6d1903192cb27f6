package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/simusolve/internal/compute"
	"github.com/san-kum/simusolve/internal/config"
	"github.com/san-kum/simusolve/internal/metrics"
	"github.com/san-kum/simusolve/internal/solver"
)

var (
	configFile  string
	profile     string
	dataDir     string
	logLevel    string
	backendName string
	workers     int

	outFile     string
	texIn       string
	texOut      string
	saveRun     bool
	strict      bool
	scrub       bool
	verify      bool
	plot        bool
	seed        uint64
	dominant    bool
	sizes       []int
	repeat      int
	interactive bool

	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "simusolve",
		Short:             "block-fork parallel solver for dense linear systems",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&profile, "profile", "", "named config profile (see presets)")
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "run store directory")
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&backendName, "backend", config.DefaultBackend, "compute backend (auto picks the first available)")
	pf.IntVar(&workers, "workers", 0, "host worker goroutines per dispatch (0 = GOMAXPROCS)")

	solveCmd := &cobra.Command{
		Use:   "solve [file]",
		Short: "solve a system read from a csv file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSolve,
	}
	solveCmd.Flags().StringVar(&outFile, "out", "", "write the solution to this file, one value per line")
	solveCmd.Flags().BoolVar(&saveRun, "save", false, "store the run in the data directory")
	solveCmd.Flags().BoolVar(&strict, "strict", false, "fail on non-finite unknowns")
	solveCmd.Flags().BoolVar(&scrub, "scrub", false, "zero the destination buffer before each elimination")
	solveCmd.Flags().BoolVar(&verify, "verify", false, "compare against a pivoted LU reference solve")
	solveCmd.Flags().BoolVar(&plot, "plot", false, "plot the round schedule")
	solveCmd.Flags().StringVar(&texIn, "tex-in", "", "write the system as LaTeX equations to this file")
	solveCmd.Flags().StringVar(&texOut, "tex-out", "", "write the solution as LaTeX to this file")

	presetCmd := &cobra.Command{
		Use:   "preset [name]",
		Short: "solve a built-in system and compare with its recorded answer",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreset,
	}
	presetCmd.Flags().BoolVar(&saveRun, "save", false, "store the run in the data directory")
	presetCmd.Flags().BoolVar(&scrub, "scrub", false, "zero the destination buffer before each elimination")
	presetCmd.Flags().StringVar(&texIn, "tex-in", "", "write the system as LaTeX equations to this file")
	presetCmd.Flags().StringVar(&texOut, "tex-out", "", "write the solution as LaTeX to this file")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in systems and config profiles",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	genCmd := &cobra.Command{
		Use:   "gen [n]",
		Short: "write a random system of n equations",
		Args:  cobra.ExactArgs(1),
		RunE:  runGen,
	}
	genCmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	genCmd.Flags().BoolVar(&dominant, "dominant", true, "make the system diagonally dominant")
	genCmd.Flags().StringVar(&outFile, "out", "", "output file (default stdout)")
	genCmd.Flags().StringVar(&texIn, "tex-in", "", "also write the system as LaTeX equations to this file")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time solves of random systems over a range of sizes",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	benchCmd.Flags().IntSliceVar(&sizes, "sizes", []int{2, 4, 8, 16, 31, 64, 100, 128}, "system sizes")
	benchCmd.Flags().IntVar(&repeat, "repeat", 3, "solves per size; the fastest is reported")
	benchCmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")

	traceCmd := &cobra.Command{
		Use:   "trace [n]",
		Short: "show the round schedule for a system of n equations",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrace,
	}
	traceCmd.Flags().BoolVar(&interactive, "interactive", false, "browse the schedule interactively")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&plot, "plot", false, "plot the round schedule")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&outFile, "out", "", "output file (default stdout)")

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "list compute backends and their devices",
		Args:  cobra.NoArgs,
		RunE:  listDevices,
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the effective configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			logger.Info().Str("path", args[0]).Msg("config written")
			return nil
		},
	}

	rootCmd.AddCommand(solveCmd, presetCmd, presetsCmd, genCmd, benchCmd, traceCmd, runsCmd, showCmd, exportCmd, devicesCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup resolves the configuration (profile or file, then flags) and builds
// the logger.
func setup(cmd *cobra.Command, args []string) error {
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case profile != "":
		cfg = config.GetPreset(profile)
		if cfg == nil {
			return fmt.Errorf("unknown profile: %s (available: %v)", profile, config.ListPresets())
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("backend") {
		cfg.Backend = backendName
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Lookup("strict") != nil && flags.Changed("strict") {
		cfg.Solver.StrictFinite = strict
	}
	if flags.Lookup("scrub") != nil && flags.Changed("scrub") {
		cfg.Solver.Scrub = scrub
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(cfg.Level()).
		With().Timestamp().Logger()
	return nil
}

// openSolver opens the configured backend and returns a solver whose rounds
// and dispatches feed a fresh recorder.
func openSolver() (*solver.Solver, *compute.Session, *metrics.Recorder, error) {
	backend, err := cfg.OpenBackend()
	if err != nil {
		return nil, nil, nil, err
	}
	sess, err := compute.OpenSession(backend, compute.SessionConfig{DeviceIndex: cfg.Device, Logger: &logger})
	if err != nil {
		return nil, nil, nil, err
	}

	rec := metrics.NewRecorder()
	if !sess.Observe(rec) {
		logger.Debug().Str("backend", backend.Name()).Msg("queue does not report dispatch timings")
	}
	s, err := solver.New(sess,
		solver.WithLogger(logger),
		solver.WithObserver(rec),
		solver.WithScrub(cfg.Solver.Scrub),
		solver.WithStrictFinite(cfg.Solver.StrictFinite),
	)
	if err != nil {
		_ = sess.Close()
		return nil, nil, nil, err
	}
	return s, sess, rec, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
