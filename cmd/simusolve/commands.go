package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/simusolve/internal/compute"
	"github.com/san-kum/simusolve/internal/config"
	"github.com/san-kum/simusolve/internal/linsys"
	"github.com/san-kum/simusolve/internal/metrics"
	"github.com/san-kum/simusolve/internal/solver"
	"github.com/san-kum/simusolve/internal/storage"
	"github.com/san-kum/simusolve/internal/viz"
	"github.com/spf13/cobra"
)

func readSystem(args []string) (*linsys.System, string, error) {
	var (
		r      io.Reader = os.Stdin
		source           = "stdin"
	)
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		r, source = f, args[0]
	}

	sys, subs, err := linsys.Read(r)
	if err != nil {
		return nil, "", err
	}
	for _, s := range subs {
		logger.Warn().Int("line", s.Line).Int("column", s.Column).Str("value", s.Value).
			Msg("unparsable field read as NaN")
	}
	return sys, source, nil
}

// solveAndReport runs one solve and prints or writes its result. expected,
// when set, is the recorded answer to compare against.
func solveAndReport(sys *linsys.System, source string, expected []float64) error {
	if texIn != "" {
		if err := writeFile(texIn, func(w io.Writer) error { return linsys.WriteTeX(w, sys) }); err != nil {
			return err
		}
	}

	s, sess, rec, err := openSolver()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	x, err := s.Solve(ctx, sys)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	residual, err := linsys.Residual(sys, x)
	if err != nil {
		return err
	}
	summary := rec.Summary()
	summary["residual"] = residual
	logger.Info().Int("n", sys.N()).Dur("elapsed", elapsed).Float64("residual", residual).
		Float64("rounds", summary["rounds"]).Float64("forks", summary["forks"]).Msg("solved")

	if verify && expected == nil {
		ref, err := linsys.ReferenceSolve(sys)
		if err != nil {
			return err
		}
		expected = ref
		summary["condition"] = linsys.Condition(sys)
	}

	if texOut != "" {
		if err := writeFile(texOut, func(w io.Writer) error { return linsys.WriteSolutionTeX(w, x) }); err != nil {
			return err
		}
	}
	if outFile != "" {
		if err := writeFile(outFile, func(w io.Writer) error { return linsys.WriteSolution(w, x) }); err != nil {
			return err
		}
	} else {
		fmt.Println(viz.SolutionTable(x, expected, cfg.Solver.Tolerance))
		fmt.Println(viz.KeyValues("solve", [][2]string{
			{"n", strconv.Itoa(sys.N())},
			{"elapsed", elapsed.String()},
			{"residual ‖Ax−b‖∞", fmt.Sprintf("%.3e", residual)},
			{"rounds", fmt.Sprint(summary["rounds"])},
			{"forks", fmt.Sprint(summary["forks"])},
			{"dispatches", fmt.Sprint(summary["dispatches"])},
		}))
	}
	if plot {
		fmt.Println(viz.PlotSchedule(rec.Rounds()))
	}

	if saveRun {
		if err := saveSolve(sess, rec, source, x, elapsed, summary); err != nil {
			return err
		}
	}

	if expected != nil {
		if dev := linsys.MaxDeviation(x, expected); math.IsNaN(dev) || dev > cfg.Solver.Tolerance {
			return fmt.Errorf("solution deviates from reference by %.3e (tolerance %.1e)", dev, cfg.Solver.Tolerance)
		}
	}
	return nil
}

func saveSolve(sess *compute.Session, rec *metrics.Recorder, source string, x []float64, elapsed time.Duration, summary map[string]float64) error {
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(&storage.Run{
		Meta: storage.RunMetadata{
			Source:  source,
			Backend: sess.Backend().Name(),
			Device:  sess.Device().Info().Name,
			Workers: sess.Device().Info().ComputeUnits,
			Scrub:   cfg.Solver.Scrub,
			Strict:  cfg.Solver.StrictFinite,
			Elapsed: elapsed,
			Metrics: summary,
		},
		Solution: x,
		Trace:    rec.Rounds(),
	})
	if err != nil {
		return err
	}
	logger.Info().Str("run", runID).Str("dir", cfg.DataDir).Msg("run saved")
	return nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	sys, source, err := readSystem(args)
	if err != nil {
		return err
	}
	return solveAndReport(sys, source, nil)
}

func runPreset(cmd *cobra.Command, args []string) error {
	f := linsys.GetFixture(args[0])
	if f == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], linsys.ListFixtures())
	}
	return solveAndReport(f.System(), "preset "+f.Name, f.Solution)
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("systems:")
	for _, name := range linsys.ListFixtures() {
		f := linsys.GetFixture(name)
		fmt.Printf("  %-4s n=%-2d %s\n", name, len(f.Constants), f.Description)
	}
	fmt.Println("config profiles:")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Printf("  %-8s backend=%s workers=%d scrub=%t strict=%t\n",
			name, p.Backend, p.Workers, p.Solver.Scrub, p.Solver.StrictFinite)
	}
	return nil
}

func parseSize(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid size %q: must be a positive integer", arg)
	}
	return n, nil
}

func runGen(cmd *cobra.Command, args []string) error {
	n, err := parseSize(args[0])
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("seed") {
		seed = cfg.Generator.Seed
	}
	if !cmd.Flags().Changed("dominant") {
		dominant = cfg.Generator.Dominant
	}

	sys, err := linsys.Random(n, seed, dominant)
	if err != nil {
		return err
	}
	if texIn != "" {
		if err := writeFile(texIn, func(w io.Writer) error { return linsys.WriteTeX(w, sys) }); err != nil {
			return err
		}
	}
	if outFile == "" {
		return linsys.Write(os.Stdout, sys)
	}
	return writeFile(outFile, func(w io.Writer) error { return linsys.Write(w, sys) })
}

func runBench(cmd *cobra.Command, args []string) error {
	if repeat < 1 {
		return fmt.Errorf("repeat must be at least 1")
	}
	if !cmd.Flags().Changed("seed") {
		seed = cfg.Generator.Seed
	}
	s, sess, rec, err := openSolver()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := signalContext()
	defer cancel()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "N\tBEST\tRESIDUAL\tROUNDS\tDISPATCHES")
	var ms []float64
	for _, n := range sizes {
		sys, err := linsys.Random(n, seed, true)
		if err != nil {
			return err
		}
		best := time.Duration(math.MaxInt64)
		var x []float64
		for i := 0; i < repeat; i++ {
			rec.Reset()
			start := time.Now()
			x, err = s.Solve(ctx, sys)
			if err != nil {
				return fmt.Errorf("n=%d: %w", n, err)
			}
			best = min(best, time.Since(start))
		}
		residual, err := linsys.Residual(sys, x)
		if err != nil {
			return err
		}
		summary := rec.Summary()
		fmt.Fprintf(w, "%d\t%s\t%.2e\t%.0f\t%.0f\n", n, best, residual, summary["rounds"], summary["dispatches"])
		ms = append(ms, float64(best)/float64(time.Millisecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(viz.PlotBench(sizes, ms))
	return nil
}

func runTrace(cmd *cobra.Command, args []string) error {
	n, err := parseSize(args[0])
	if err != nil {
		return err
	}
	events, err := solver.Plan(n)
	if err != nil {
		return err
	}
	if interactive {
		return viz.RunTrace(n, events)
	}
	printTrace(os.Stdout, events)
	fmt.Println()
	fmt.Println(viz.PlotSchedule(events))
	return nil
}

func printTrace(out io.Writer, events []solver.RoundEvent) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROUND\tFORK\tBLOCKS\tROWS\tCOLS\tBOUNDARY")
	for _, ev := range events {
		round := strconv.Itoa(ev.Round)
		if ev.Round == solver.BootstrapRound {
			round = "boot"
		}
		fork := ""
		if ev.Forked {
			fork = "yes"
		}
		l := ev.After
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n", round, fork, l.BlockCount, l.RowCount, l.ColCount, l.BoundaryRowCount)
	}
	w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(cfg.DataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tN\tBACKEND\tELAPSED\tRESIDUAL\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%.2e\t%s\n",
			r.ID, r.Source, r.N, r.Backend, r.Elapsed, r.Metrics["residual"], r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	run, err := storage.New(cfg.DataDir).LoadRun(args[0])
	if err != nil {
		return err
	}

	m := run.Meta
	pairs := [][2]string{
		{"source", m.Source},
		{"n", strconv.Itoa(m.N)},
		{"timestamp", m.Timestamp.Format(time.RFC3339)},
		{"backend", m.Backend + " / " + m.Device},
		{"workers", strconv.Itoa(m.Workers)},
		{"elapsed", m.Elapsed.String()},
		{"scrub / strict", fmt.Sprintf("%t / %t", m.Scrub, m.Strict)},
	}
	for _, k := range []string{"residual", "rounds", "forks", "dispatches", "device_ms", "condition"} {
		if v, ok := m.Metrics[k]; ok {
			pairs = append(pairs, [2]string{k, strconv.FormatFloat(v, 'g', 6, 64)})
		}
	}
	fmt.Println(viz.KeyValues(m.ID, pairs))
	fmt.Println(viz.SolutionTable(run.Solution, nil, cfg.Solver.Tolerance))
	printTrace(os.Stdout, run.Trace)
	if plot {
		fmt.Println()
		fmt.Println(viz.PlotSchedule(run.Trace))
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.DataDir)
	if outFile == "" {
		return st.ExportJSON(args[0], os.Stdout)
	}
	return writeFile(outFile, func(w io.Writer) error { return st.ExportJSON(args[0], w) })
}

// writeFile creates path and runs write on it. The close error is returned
// so a short write to disk is not reported as success.
func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		return errors.Join(err, f.Close())
	}
	return f.Close()
}

func listDevices(cmd *cobra.Command, args []string) error {
	opts := cfg.BackendOptions()
	for _, name := range compute.Names() {
		b, err := compute.Lookup(name, opts)
		if err != nil {
			fmt.Println(viz.KeyValues(name, [][2]string{{"status", err.Error()}}))
			continue
		}
		devs, err := b.Devices()
		if err != nil {
			return err
		}
		for i, d := range devs {
			fmt.Println(viz.KeyValues(fmt.Sprintf("%s #%d", name, i), [][2]string{
				{"name", d.Name},
				{"vendor", d.Vendor},
				{"driver", d.Driver},
				{"compute units", strconv.Itoa(d.ComputeUnits)},
				{"memory limit", memoryLabel(d.MemoryMB)},
				{"features", strings.Join(d.Features, " ")},
			}))
		}
	}
	return nil
}

func memoryLabel(mb int) string {
	if mb == 0 {
		return "unlimited"
	}
	return strconv.Itoa(mb) + " MiB"
}
