package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/circuitsim/internal/analysis"
	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/config"
	"github.com/san-kum/circuitsim/internal/generate"
	"github.com/san-kum/circuitsim/internal/rawfile"
	"github.com/san-kum/circuitsim/internal/runner"
	"github.com/san-kum/circuitsim/internal/storage"
	"github.com/san-kum/circuitsim/internal/tui"
	"github.com/san-kum/circuitsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const maxListedFailures = 10

func runsDir() string {
	return filepath.Join(dataDir, "runs")
}

func record(meta storage.RunMetadata, outcomes []storage.OutcomeRecord) {
	st := storage.New(runsDir())
	if err := st.Init(); err != nil {
		logger.Warn("cannot record run", zap.Error(err))
		return
	}
	id, err := st.Save(meta, outcomes)
	if err != nil {
		logger.Warn("cannot record run", zap.Error(err))
		return
	}
	logger.Debug("recorded run", zap.String("id", id))
}

func generateNetlists(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	start := time.Now()
	stats, err := runGenerate(ctx, cfg)
	if err != nil {
		return err
	}
	record(storage.RunMetadata{
		Stage:     "generate",
		Config:    path,
		Datasets:  cfg.DatasetNames(),
		Elapsed:   time.Since(start).Seconds(),
		Generated: stats.Written,
		Existing:  stats.Skipped,
	}, nil)

	if !watch {
		return nil
	}
	return generate.Watch(ctx, path, logger, func(ctx context.Context) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		_, err = runGenerate(ctx, cfg)
		return err
	})
}

func runGenerate(ctx context.Context, cfg *config.Config) (generate.Stats, error) {
	stats, err := generate.New(cfg, logger).Run(ctx)
	if err != nil {
		return stats, err
	}
	fmt.Printf("generated: %s\n", stats)
	return stats, nil
}

func simulateNetlists(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	start := time.Now()
	report, ran, err := runSimulate(cmd.Context(), cfg)
	if err != nil || !ran {
		return err
	}

	meta := storage.RunMetadata{
		Stage:    "simulate",
		Config:   path,
		Datasets: cfg.DatasetNames(),
		Elapsed:  time.Since(start).Seconds(),
	}
	meta.SetReport(report)
	record(meta, storage.Records(report.Outcomes))
	return nil
}

// runSimulate reports ran=false when nothing was launched.
func runSimulate(ctx context.Context, cfg *config.Config) (runner.Report, bool, error) {
	scan, err := runner.Scan(cfg.OutputDir, cfg.DatasetNames(), cfg.Arrangements)
	if err != nil {
		return runner.Report{}, false, err
	}
	for _, j := range scan.Skipped {
		logger.Debug("skipping netlist with existing result", zap.String("netlist", filepath.Base(j.Netlist)))
	}

	pool := runner.NewPool(cfg.Simulator, logger)
	estimate := pool.Estimate(len(scan.Jobs))
	logger.Info("simulator runs queued",
		zap.Int("queued", len(scan.Jobs)),
		zap.Int("skipped", len(scan.Skipped)),
		zap.Duration("expected", estimate))

	if len(scan.Jobs) == 0 {
		fmt.Println("nothing to simulate")
		return runner.Report{}, false, nil
	}

	if dryRun {
		for _, j := range scan.Jobs {
			fmt.Println(strings.Join(pool.CommandLine(j), " "))
		}
		fmt.Printf("%d runs, expected runtime %s\n", len(scan.Jobs), estimate)
		return runner.Report{}, false, nil
	}

	var report runner.Report
	if progress {
		report, err = tui.Run(ctx, pool, scan.Jobs, nil)
		if err != nil {
			return report, true, err
		}
	} else {
		report = pool.Run(ctx, scan.Jobs, runner.LogObserver{Logger: logger})
	}
	printReport(report)
	return report, true, nil
}

func printReport(r runner.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tCOUNT")
	for _, row := range []struct {
		status runner.Status
		n      int
	}{
		{runner.Completed, r.Completed},
		{runner.TimedOut, r.TimedOut},
		{runner.Failed, r.Failed},
		{runner.Canceled, r.Canceled},
	} {
		fmt.Fprintf(w, "%s\t%d\n", viz.StatusStyle(row.status).Render(row.status.String()), row.n)
	}
	fmt.Fprintf(w, "elapsed\t%s\n", r.Elapsed.Truncate(time.Millisecond))
	w.Flush()

	listed := 0
	for _, o := range r.Outcomes {
		if o.Status == runner.Completed || o.Status == runner.Canceled {
			continue
		}
		if listed == maxListedFailures {
			fmt.Println("  ...")
			break
		}
		fmt.Printf("  %s: %v\n", filepath.Base(o.Job.Netlist), o.Err)
		listed++
	}
}

func analyzeResults(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := runAnalyze(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	record(storage.RunMetadata{
		Stage:    "analyze",
		Config:   path,
		Datasets: cfg.DatasetNames(),
		Elapsed:  time.Since(start).Seconds(),
		Panels:   res.Panels(),
		Tables:   len(res.Tables),
		Failures: len(res.Failures),
	}, nil)
	return nil
}

func runAnalyze(ctx context.Context, cfg *config.Config) (*analysis.Result, error) {
	res, err := analysis.NewCollector(cfg, logger).Collect(ctx, cfg.DatasetNames())
	if err != nil {
		return nil, err
	}
	written, err := res.WriteFiles(cfg.DataDir())
	if err != nil {
		return res, err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tPANELS\tROWS")
	for _, t := range res.Tables {
		fmt.Fprintf(w, "%s\t%d\t%d\n", filepath.Join(cfg.DataDir(), t.Dataset, t.FileName()), len(t.Panels), t.Rows())
	}
	w.Flush()
	fmt.Printf("%d files written, %d panels, %d undecodable\n", len(written), res.Panels(), len(res.Failures))
	for _, f := range res.Failures {
		logger.Warn("undecodable result", zap.String("file", f.Path), zap.Error(f.Err))
	}

	if describe {
		for _, s := range res.Summaries {
			printDescription(s)
		}
	}
	return res, nil
}

func printDescription(s *analysis.Summary) {
	fmt.Printf("\n%s\n", viz.Title.Render(s.Dataset))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tCOUNT\tMEAN\tSTD\tMIN\t25%\t50%\t75%\tMAX")
	for _, c := range s.Describe() {
		d := c.Description
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Column, d.Count,
			num(d.Mean), num(d.Std), num(d.Min), num(d.Q25), num(d.Median), num(d.Q75), num(d.Max))
	}
	w.Flush()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4f", v)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	start := time.Now()
	meta := storage.RunMetadata{Stage: "run", Config: path, Datasets: cfg.DatasetNames()}

	logger.Info("beginning circuit simulation")
	stats, err := runGenerate(ctx, cfg)
	if err != nil {
		return err
	}
	meta.Generated, meta.Existing = stats.Written, stats.Skipped

	logger.Info("dataset generation complete, beginning simulations")
	report, _, err := runSimulate(ctx, cfg)
	if err != nil {
		return err
	}
	meta.SetReport(report)
	if err := ctx.Err(); err != nil {
		meta.Elapsed = time.Since(start).Seconds()
		record(meta, storage.Records(report.Outcomes))
		return err
	}

	res, err := runAnalyze(ctx, cfg)
	if err != nil {
		return err
	}
	meta.Panels, meta.Tables, meta.Failures = res.Panels(), len(res.Tables), len(res.Failures)
	meta.Elapsed = time.Since(start).Seconds()
	record(meta, storage.Records(report.Outcomes))
	return nil
}

func listArrangements(cmd *cobra.Command, args []string) error {
	cfg, err := optionalConfig()
	if err != nil {
		return err
	}
	allowed := cfg.Arrangements
	if allArrangements {
		allowed = nil
	}
	for _, n := range cfg.MaxCells {
		for _, a := range circuit.ListArrangements([]int{n}, allowed) {
			fmt.Printf("[%d] Solar Arrangement %s\n", n, a)
		}
	}
	return nil
}

func inspectRaw(cmd *cobra.Command, args []string) error {
	f, err := rawfile.Open(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("title:    %s\n", f.Title)
	fmt.Printf("date:     %s\n", f.Date)
	fmt.Printf("plot:     %s\n", f.Plotname)
	fmt.Printf("flags:    %s\n", strings.Join(f.Flags, " "))
	fmt.Printf("command:  %s\n", f.Command)
	fmt.Printf("points:   %d\n", f.NumPoints)
	fmt.Printf("encoding: %s\n\n", map[bool]string{true: "utf-16le", false: "ascii"}[f.UTF16])

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tTYPE\tMIN\tMAX")
	for _, v := range f.Vars {
		data, err := f.Data(v.Name)
		if err != nil {
			return err
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, x := range data {
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.6g\t%.6g\n", v.Index, v.Name, v.Type, lo, hi)
	}
	return w.Flush()
}

func plotRaw(cmd *cobra.Command, args []string) error {
	opts := viz.PlotOptions{Width: plotWidth, Height: plotHeight}

	if plotVar != "" {
		f, err := rawfile.Open(args[0])
		if err != nil {
			return err
		}
		data, err := f.Data(plotVar)
		if err != nil {
			return err
		}
		fmt.Println(viz.PlotSeries(plotVar, data, opts))
		return nil
	}

	cfg, err := optionalConfig()
	if err != nil {
		return err
	}
	c, err := analysis.LoadCurve(args[0], cfg.Analysis.SweepVariable, cfg.Analysis.CurrentVariable)
	if err != nil {
		return err
	}

	st := c.Stats()
	fmt.Printf("%s\n", viz.Title.Render(filepath.Base(args[0])))
	fmt.Printf("%s %s  %s %s  %s %s  %s %s\n\n",
		viz.MetricLabel.Render("Voc"), viz.MetricValue.Render(fmt.Sprintf("%.4f V", st.Voc)),
		viz.MetricLabel.Render("Isc"), viz.MetricValue.Render(fmt.Sprintf("%.4f A", st.Isc)),
		viz.MetricLabel.Render("Pmax"), viz.MetricValue.Render(fmt.Sprintf("%.4f W", st.Pmax)),
		viz.MetricLabel.Render("FF"), viz.MetricValue.Render(fmt.Sprintf("%.3f", st.FillFactor)))

	fmt.Println(viz.PlotIV(c, opts))
	fmt.Println(viz.Separator(opts.Width))
	fmt.Println(viz.PlotPV(c, opts))
	return nil
}

func listHistory(cmd *cobra.Command, args []string) error {
	st := storage.New(runsDir())
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTAGE\tTIME\tDATASETS\tGEN\tSIM\tOK\tFAIL\tPANELS\tELAPSED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%.1fs\n",
			shortID(run.ID),
			run.Stage,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			strings.Join(run.Datasets, ","),
			run.Generated,
			run.Simulated,
			run.Completed,
			run.Failed+run.TimedOut,
			run.Panels,
			run.Elapsed,
		)
	}

	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(runsDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}
	if !showOutcomes {
		return nil
	}

	outcomes, err := st.LoadOutcomes(meta.ID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NETLIST\tSTATUS\tDURATION\tKILLED\tERROR")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", o.Netlist, o.Status, o.Duration, o.Killed, o.Error)
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := configCandidates[0]
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	cfg.Datasets = []config.Dataset{
		{Name: "800-200"},
		{Name: "1000-500", Temps: config.TempSet{27, 35, 50}},
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
