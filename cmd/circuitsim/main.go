package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/san-kum/circuitsim/internal/config"
	"github.com/san-kum/circuitsim/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	dataDir    string
	verbose    bool

	// generate
	watch bool

	// simulate
	progress    bool
	dryRun      bool
	preset      string
	concurrency int
	timeout     time.Duration

	// analyze
	describe bool

	// arrangements
	allArrangements bool

	// plot
	plotWidth  int
	plotHeight int
	plotVar    string

	// show
	showOutcomes bool

	// init
	force bool
)

var (
	logger   = zap.NewNop()
	closeLog = func() error { return nil }
)

// configCandidates are tried in order when --config is not given.
var configCandidates = []string{"circuitsim.yaml", "circuitsim.yml", "data_sets.ini"}

var errNoConfig = errors.New("no config file found (run 'circuitsim init' or pass --config)")

func main() {
	rootCmd := &cobra.Command{
		Use:           "circuitsim",
		Short:         "LTspice solar array simulation pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogger("")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = closeLog()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml or ini)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".circuitsim", "run history directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug output on the console")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "write netlists for every dataset",
		Args:  cobra.NoArgs,
		RunE:  generateNetlists,
	}
	generateCmd.Flags().BoolVar(&watch, "watch", false, "regenerate when the config file changes")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "run LTspice on netlists without results",
		Args:  cobra.NoArgs,
		RunE:  simulateNetlists,
	}
	addSimulatorFlags(simulateCmd)
	simulateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the command lines without running")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "decode results into CSV tables",
		Args:  cobra.NoArgs,
		RunE:  analyzeResults,
	}
	analyzeCmd.Flags().BoolVar(&describe, "describe", true, "print summary statistics")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "generate, simulate and analyze",
		Args:  cobra.NoArgs,
		RunE:  runPipeline,
	}
	addSimulatorFlags(runCmd)
	runCmd.Flags().BoolVar(&describe, "describe", true, "print summary statistics")

	arrangementsCmd := &cobra.Command{
		Use:   "arrangements",
		Short: "list solar cell arrangements",
		Args:  cobra.NoArgs,
		RunE:  listArrangements,
	}
	arrangementsCmd.Flags().BoolVar(&allArrangements, "all", false, "ignore the configured arrangement filter")

	inspectCmd := &cobra.Command{
		Use:   "inspect [raw_file]",
		Short: "show the header and variables of a .raw file",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectRaw,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [raw_file]",
		Short: "plot the I-V and P-V curves of a .raw file",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRaw,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 15, "plot height")
	plotCmd.Flags().StringVar(&plotVar, "var", "", "plot one variable against its index instead")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listHistory,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&showOutcomes, "outcomes", false, "list every simulator invocation")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list simulator presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-8s %s %v\n", name, p.Executable, p.Args)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a starter config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	rootCmd.AddCommand(generateCmd, simulateCmd, analyzeCmd, runCmd, arrangementsCmd,
		inspectCmd, plotCmd, historyCmd, showCmd, presetsCmd, initCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		_ = closeLog()
		stop()
		os.Exit(1)
	}
}

func addSimulatorFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&progress, "progress", false, "show a live progress view")
	cmd.Flags().StringVar(&preset, "preset", "", "simulator preset (see 'circuitsim presets')")
	cmd.Flags().IntVar(&concurrency, "concurrency", -1, "parallel simulator processes (0 = one per CPU)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "kill a simulator after this long, e.g. 8s")
}

// initLogger replaces the console logger, adding a file core when logFile
// is set.
func initLogger(logFile string) error {
	_ = closeLog()
	l, c, err := logging.New(logging.Options{Verbose: verbose, File: logFile})
	if err != nil {
		return err
	}
	logger, closeLog = l, c
	return nil
}

func findConfig() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	for _, c := range configCandidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", errNoConfig
}

// loadConfig reads the config and switches logging to include its log file.
func loadConfig() (*config.Config, string, error) {
	path, err := findConfig()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := applySimulatorFlags(cfg); err != nil {
		return nil, "", err
	}
	if err := initLogger(cfg.LogFile); err != nil {
		return nil, "", err
	}
	logger.Debug("loaded config", zap.String("path", path), zap.Strings("datasets", cfg.DatasetNames()))
	return cfg, path, nil
}

// optionalConfig returns the config if one is found, the defaults otherwise.
func optionalConfig() (*config.Config, error) {
	path, err := findConfig()
	if errors.Is(err, errNoConfig) {
		return config.DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func applySimulatorFlags(cfg *config.Config) error {
	if preset != "" && !cfg.ApplyPreset(preset) {
		return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}
	if concurrency >= 0 {
		cfg.Simulator.Concurrency = concurrency
	}
	if timeout > 0 {
		cfg.Simulator.Timeout = timeout
	}
	return cfg.Validate()
}
