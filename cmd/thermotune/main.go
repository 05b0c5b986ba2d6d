package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/thermotune/internal/automation"
	"github.com/san-kum/thermotune/internal/autotune"
	"github.com/san-kum/thermotune/internal/config"
	"github.com/san-kum/thermotune/internal/experiment"
	"github.com/san-kum/thermotune/internal/plant"
	"github.com/san-kum/thermotune/internal/storage"
	"github.com/san-kum/thermotune/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool
	logger     = zap.NewNop()

	// fit
	outFile string
	noSave  bool
	showFit bool

	// simulate
	c1, c2, tau, ambient float64
	t0                   float64
	samples              int
	dt                   float64
	noise                float64
	seed                 int64

	excitationTime float64
	excitationDt   float64

	// verify, sweep
	duration   float64
	setpoint   float64
	band       float64
	integrator string

	residuals bool

	// batch, sweep, montecarlo
	workers int
	trials  int
	sweep   automation.BandwidthSweep
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "thermotune",
		Short:         "offline auto-tuner for heated tanks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".thermotune", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "preset as group/name, e.g. fit/noisy")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	fitCmd := &cobra.Command{
		Use:   "fit [series.csv]",
		Short: "fit the tank model to a recorded excitation test",
		Args:  cobra.ExactArgs(1),
		RunE:  fitSeries,
	}
	fitCmd.Flags().StringVarP(&outFile, "out", "o", "", "also write the validation csv here")
	fitCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	fitCmd.Flags().BoolVar(&showFit, "plot", false, "plot recorded against simulated temperature")

	simulateCmd := &cobra.Command{
		Use:   "simulate [out.csv]",
		Short: "write a synthetic excitation test for known parameters",
		Args:  cobra.ExactArgs(1),
		RunE:  simulateSeries,
	}
	addSynthFlags(simulateCmd)

	excitationCmd := &cobra.Command{
		Use:   "excitation",
		Short: "show the heater waveform to apply during a test",
		RunE:  showExcitation,
	}
	excitationCmd.Flags().Float64Var(&excitationTime, "duration", plant.ExcitationPeriod, "duration [sec]")
	excitationCmd.Flags().Float64Var(&excitationDt, "dt", 1, "sample interval [sec]")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print a stored fit report",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored validation trace",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&residuals, "residuals", false, "plot residuals as well")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a stored validation trace",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}

	verifyCmd := &cobra.Command{
		Use:   "verify [run_id]",
		Short: "simulate the fitted tank under the recommended gains",
		Args:  cobra.ExactArgs(1),
		RunE:  verifyRun,
	}
	addVerifyFlags(verifyCmd)
	verifyCmd.Flags().StringVarP(&outFile, "out", "o", "", "stream the closed-loop trace to this csv")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "fit every recorded test listed in a scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  batchFit,
	}
	batchCmd.Flags().IntVar(&workers, "workers", 0, "concurrent fits (default GOMAXPROCS)")
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	sweepCmd := &cobra.Command{
		Use:   "sweep [run_id]",
		Short: "compare closed-loop response across bandwidth factors",
		Args:  cobra.ExactArgs(1),
		RunE:  sweepRun,
	}
	addVerifyFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&sweep.Min, "min", 0.1, "smallest bandwidth factor")
	sweepCmd.Flags().Float64Var(&sweep.Max, "max", 1, "largest bandwidth factor")
	sweepCmd.Flags().IntVar(&sweep.Steps, "steps", 10, "number of factors")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "measure fit repeatability on noisy synthetic tests",
		RunE:  monteCarlo,
	}
	addSynthFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of synthetic tests")
	monteCarloCmd.Flags().IntVar(&workers, "workers", 0, "concurrent fits (default GOMAXPROCS)")

	presetsCmd := &cobra.Command{
		Use:   "presets [group]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	rootCmd.AddCommand(fitCmd, simulateCmd, excitationCmd, listCmd, showCmd, plotCmd, exportCmd, viewCmd, verifyCmd, batchCmd, sweepCmd, monteCarloCmd, presetsCmd)

	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// loadConfig resolves the preset, then the config file on top of it.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		group, name, err := splitPreset(preset)
		if err != nil {
			return nil, err
		}
		cfg = config.GetPreset(group, name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(group))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	return cfg, nil
}

func splitPreset(s string) (string, string, error) {
	group, name, ok := strings.Cut(s, "/")
	if !ok {
		return "", "", fmt.Errorf("preset %q must be group/name (groups: %v)", s, config.ListGroups())
	}
	return group, name, nil
}

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func fitSeries(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	times, temps, err := storage.ReadSeries(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	tuner, err := newTuner(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := interruptible()
	defer cancel()

	fmt.Printf("fitting %d samples from %s...\n", len(times), path)
	start := time.Now()
	res, err := tuner.FitContext(ctx, times, temps)
	if err != nil {
		return err
	}
	fmt.Printf("converged in %d iterations (%v)\n\n", res.Iterations, time.Since(start).Round(time.Millisecond))

	title := path
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(path, res, tuner.Config())
		if err != nil {
			return err
		}
		title = runID
		logger.Info("run saved", zap.String("run", runID), zap.String("dir", dataDir))
	}

	fmt.Print(viz.RenderReport(viz.ReportFromResult(title, res)))

	if outFile != "" {
		out, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer out.Close()
		if err := storage.WriteValidation(out, res.Trace); err != nil {
			return err
		}
		fmt.Printf("\nvalidation written to %s\n", outFile)
	}

	if showFit {
		fmt.Println()
		fmt.Println(viz.PlotTrace(res.Trace, viz.DefaultPlotOptions()))
	}
	return nil
}

func simulateSeries(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sc := cfg.SynthConfig()

	applySynthFlags(cmd, &sc)

	times, temps, err := experiment.Synthesize(sc)
	if err != nil {
		return err
	}

	out, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer out.Close()
	if err := storage.WriteSeries(out, times, temps); err != nil {
		return err
	}

	logger.Debug("synthesized series",
		zap.Any("params", sc.Params),
		zap.Int("samples", sc.Samples),
		zap.Float64("noise", sc.Noise))
	fmt.Printf("wrote %d samples to %s\n", len(times), args[0])
	return nil
}

func showExcitation(cmd *cobra.Command, args []string) error {
	if excitationDt <= 0 || excitationTime <= 0 {
		return fmt.Errorf("dt and duration must be positive")
	}
	times := plant.UniformTimes(int(excitationTime/excitationDt)+1, excitationDt)
	levels := plant.Excitation(times)

	opts := viz.DefaultPlotOptions()
	opts.Height = 8
	opts.Caption = "heater duty vs sample"
	fmt.Println(viz.PlotSeries(levels, opts))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FROM [sec]\tDUTY")
	for i, u := range levels {
		if i == 0 || u != levels[i-1] {
			fmt.Fprintf(w, "%.1f\t%.2f\n", times[i], u)
		}
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tTIME\tSAMPLES\tC1\tC2\tTAU\tAMBIENT\tRMSE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4g\t%.4g\t%.4g\t%.2f\t%.4f\n",
			run.ID,
			run.Source,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Samples,
			run.Params.C1,
			run.Params.C2,
			run.Params.Tau,
			run.Params.Ambient,
			run.Metrics["rmse"],
		)
	}

	return w.Flush()
}

func reportFromMeta(meta *storage.RunMetadata) viz.Report {
	return viz.Report{
		Title:      meta.ID,
		Params:     meta.Params,
		StdErrors:  meta.StdErrors,
		Gains:      meta.Gains,
		Metrics:    meta.Metrics,
		Iterations: meta.Iterations,
		Samples:    meta.Samples,
	}
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("source: %s\n", meta.Source)
	fmt.Printf("time: %s\n", meta.Timestamp.Format(time.RFC3339))
	fmt.Printf("seed: %s\n\n", meta.SeedSource)
	fmt.Print(viz.RenderReport(reportFromMeta(meta)))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	trace, err := st.LoadValidation(args[0])
	if err != nil {
		return err
	}
	if trace.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", trace.Len())

	opts := viz.DefaultPlotOptions()
	fmt.Println(viz.PlotTrace(trace, opts))
	fmt.Println()
	if residuals {
		opts.Height = 8
		fmt.Println(viz.PlotResiduals(trace, opts))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	trace, err := st.LoadValidation(args[0])
	if err != nil {
		return err
	}

	if outFile == "" {
		return storage.WriteJSON(os.Stdout, meta, trace)
	}
	if err := storage.ExportJSON(outFile, meta, trace); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", meta.ID, outFile)
	return nil
}

func viewRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	trace, err := st.LoadValidation(args[0])
	if err != nil {
		return err
	}
	return viz.RunViewer(args[0], trace)
}

func verifyRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	applyVerifyFlags(cmd, cfg)

	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	// Start from the temperature the tank would idle at.
	if configFile == "" && preset == "" {
		cfg.Verify.InitialTemperature = meta.Params.Ambient
	}

	ec := cfg.VerifyExperiment(meta.Params, meta.Gains)
	exp := experiment.New(ec)
	if err := exp.Build(experiment.NewRegistry()); err != nil {
		return err
	}

	var trace *storage.TraceWriter
	if outFile != "" {
		out, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer out.Close()
		trace = storage.NewTraceWriter(out)
		exp.GetSimulator().AddObserver(trace)
	}

	ctx, cancel := interruptible()
	defer cancel()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	if trace != nil {
		if err := trace.Flush(); err != nil {
			return fmt.Errorf("write %s: %w", outFile, err)
		}
		logger.Info("closed-loop trace written", zap.String("path", outFile), zap.Int("rows", trace.Rows()))
	}

	final := result.States[len(result.States)-1][plant.Temperature]
	if reachable := meta.Params.Ambient + meta.Params.C2; ec.Setpoint > reachable {
		logger.Warn("setpoint above the tank's steady-state reach",
			zap.Float64("setpoint", ec.Setpoint),
			zap.Float64("reachable", reachable))
	}

	fmt.Print(viz.RenderVerify(result.Metrics, ec.Setpoint, ec.Band))
	fmt.Printf("\nfinal temperature: %.3f deg F after %.0f sec\n", final, result.Times[len(result.Times)-1])

	opts := viz.DefaultPlotOptions()
	opts.Caption = "temperature [deg F] vs step"
	fmt.Println()
	fmt.Println(viz.PlotSeries(result.Series(plant.Temperature), opts))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	groups := config.ListGroups()
	if len(args) == 1 {
		groups = args
	}
	for _, g := range groups {
		presets := config.ListPresets(g)
		if len(presets) == 0 {
			fmt.Printf("no presets for group: %s\n", g)
			continue
		}
		fmt.Printf("presets for %s:\n", g)
		for _, p := range presets {
			fmt.Printf("  %s/%s\n", g, p)
		}
	}
	return nil
}

func applySynthFlags(cmd *cobra.Command, sc *experiment.SynthConfig) {
	flags := cmd.Flags()
	if flags.Changed("c1") {
		sc.Params.C1 = c1
	}
	if flags.Changed("c2") {
		sc.Params.C2 = c2
	}
	if flags.Changed("tau") {
		sc.Params.Tau = tau
	}
	if flags.Changed("ambient") {
		sc.Params.Ambient = ambient
	}
	if flags.Changed("t0") {
		sc.InitialTemperature = t0
	}
	if flags.Changed("samples") {
		sc.Samples = samples
	}
	if flags.Changed("dt") {
		sc.Dt = dt
	}
	if flags.Changed("noise") {
		sc.Noise = noise
	}
	if flags.Changed("seed") {
		sc.Seed = seed
	}
}

func applyVerifyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("setpoint") {
		cfg.Verify.Setpoint = setpoint
	}
	if flags.Changed("band") {
		cfg.Verify.Band = band
	}
	if flags.Changed("time") {
		cfg.Verify.Duration = duration
	}
	if flags.Changed("dt") {
		cfg.Verify.Dt = dt
	}
	if flags.Changed("integrator") {
		cfg.Verify.Integrator = integrator
	}
}

func addSynthFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&c1, "c1", 0, "heat loss rate [1/sec]")
	cmd.Flags().Float64Var(&c2, "c2", 0, "heater gain [deg F per unit control]")
	cmd.Flags().Float64Var(&tau, "tau", 0, "heater lag [sec]")
	cmd.Flags().Float64Var(&ambient, "ambient", 0, "ambient temperature [deg F]")
	cmd.Flags().Float64Var(&t0, "t0", 0, "initial temperature [deg F]")
	cmd.Flags().IntVar(&samples, "samples", 0, "number of samples")
	cmd.Flags().Float64Var(&dt, "dt", 0, "sample interval [sec]")
	cmd.Flags().Float64Var(&noise, "noise", 0, "sensor noise std dev [deg F]")
	cmd.Flags().Int64Var(&seed, "seed", 0, "noise seed")
}

func addVerifyFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&setpoint, "setpoint", config.DefaultSetpoint, "setpoint [deg F]")
	cmd.Flags().Float64Var(&band, "band", config.DefaultBand, "settling band [deg F]")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultVerifyTime, "duration [sec]")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultVerifyDt, "timestep [sec]")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
}

func newTuner(cfg *config.Config) (*autotune.Tuner, error) {
	return autotune.New(cfg.TunerConfig(), autotune.WithLogger(logger.Named("autotune")))
}

func batchFit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	tuner, err := newTuner(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := interruptible()
	defer cancel()

	fmt.Printf("running %d jobs from %s...\n", len(scenario.Jobs), args[0])
	runner := automation.NewRunner(tuner, workers, logger.Named("automation"))
	results, err := runner.RunScenario(ctx, scenario)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERIES\tRUN\tKP\tTI\tKF\tRMSE\tSTATUS")
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t%v\n", r.Job.Series, r.Err)
			continue
		}
		runID := "-"
		if !noSave {
			if runID, err = st.Save(r.Job.Series, r.Result, tuner.Config()); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%.4g\t%.4g\t%.4g\t%.4f\tok\n",
			r.Job.Series, runID, r.Result.Gains.Kp, r.Result.Gains.Ti, r.Result.Gains.Kf, r.Result.RMSE)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(results))
	}
	return nil
}

func sweepRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyVerifyFlags(cmd, cfg)

	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	if configFile == "" && preset == "" {
		cfg.Verify.InitialTemperature = meta.Params.Ambient
	}

	ctx, cancel := interruptible()
	defer cancel()

	base := cfg.VerifyExperiment(meta.Params, meta.Gains)
	results, err := automation.RunSweep(ctx, sweep, meta.Params, base, experiment.NewRegistry())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BANDWIDTH\tKP\tOVERSHOOT\tSETTLING\tIN BAND\tFINAL")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%.4g\t%.3f\t%.0f\t%.0f%%\t%.3f\n",
			r.Bandwidth, r.Gains.Kp, r.Metrics["overshoot"], r.Metrics["settling_time"], 100*r.Metrics["time_in_band"], r.Final)
	}
	return w.Flush()
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sc := cfg.SynthConfig()
	applySynthFlags(cmd, &sc)

	tuner, err := newTuner(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := interruptible()
	defer cancel()

	fmt.Printf("fitting %d synthetic tests...\n", trials)
	runner := automation.NewRunner(tuner, workers, logger.Named("automation"))
	results, err := runner.RunMonteCarlo(ctx, automation.MonteCarloConfig{Synth: sc, Trials: trials})
	if err != nil {
		return err
	}

	spread := automation.MonteCarloStats(results)
	fmt.Printf("converged: %d, failed: %d\n\n", spread.Converged, spread.Failed)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAM\tTRUE\tMEAN\tSTD DEV\tBIAS %")
	truth, mean, std := sc.Params.Vector(), spread.Mean.Vector(), spread.StdDev.Vector()
	for i, name := range plant.ParamNames {
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.3g\t%+.2f\n", name, truth[i], mean[i], std[i], 100*(mean[i]-truth[i])/truth[i])
	}
	return w.Flush()
}
