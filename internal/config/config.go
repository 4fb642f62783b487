package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultOutputDir      = "Output"
	DefaultLogFile        = "circuit_sim.log"
	DefaultExecutable     = `C:\Program Files\LTC\LTspiceXVII\XVIIx64.exe`
	DefaultTimeout        = 8 * time.Second
	DefaultLaunchInterval = 300 * time.Millisecond
	DefaultSweepVariable  = "vbias"
	DefaultCurrentVar     = "I(vbias)"
)

var (
	DefaultMaxCells     = []int{8, 9, 10}
	DefaultArrangements = []string{"1x10", "2x4", "2x5", "3x3", "4x2", "5x2", "10x1"}
	DefaultTemps        = []int{27, 30, 35, 40, 45, 50}
)

var (
	ErrNoDatasets         = errors.New("config: no datasets defined")
	ErrInvalidDataset     = errors.New("config: dataset name must be <full>-<shade>")
	ErrInvalidArrangement = errors.New("config: arrangement must be <rows>x<cols>")
	ErrInvalidSimulator   = errors.New("config: invalid simulator settings")
	ErrUnsupportedFormat  = errors.New("config: unsupported config format")
)

var arrangementPattern = regexp.MustCompile(`^[1-9][0-9]*x[1-9][0-9]*$`)

type Config struct {
	OutputDir    string          `yaml:"output"`
	Library      string          `yaml:"library,omitempty"`
	LogFile      string          `yaml:"log_file"`
	MaxCells     []int           `yaml:"max_cells"`
	Arrangements []string        `yaml:"arrangements"`
	DefaultTemps []int           `yaml:"default_temps"`
	Datasets     []Dataset       `yaml:"datasets"`
	Simulator    SimulatorConfig `yaml:"simulator"`
	Analysis     AnalysisConfig  `yaml:"analysis"`
}

// Dataset is one irradiance pair. Name is "<full>-<shade>".
type Dataset struct {
	Name         string  `yaml:"name"`
	Temps        TempSet `yaml:"temps,omitempty"`
	FullVoltage  int     `yaml:"-"`
	ShadeVoltage int     `yaml:"-"`
}

type SimulatorConfig struct {
	Executable     string        `yaml:"executable"`
	Args           []string      `yaml:"args"`
	Concurrency    int           `yaml:"concurrency"`
	Timeout        time.Duration `yaml:"timeout"`
	LaunchInterval time.Duration `yaml:"launch_interval"`
}

type AnalysisConfig struct {
	SweepVariable   string `yaml:"sweep_variable"`
	CurrentVariable string `yaml:"current_variable"`
}

func DefaultConfig() *Config {
	return &Config{
		OutputDir:    DefaultOutputDir,
		LogFile:      DefaultLogFile,
		MaxCells:     append([]int(nil), DefaultMaxCells...),
		Arrangements: append([]string(nil), DefaultArrangements...),
		DefaultTemps: append([]int(nil), DefaultTemps...),
		Simulator: SimulatorConfig{
			Executable:     DefaultExecutable,
			Args:           []string{"-Run"},
			Concurrency:    runtime.NumCPU(),
			Timeout:        DefaultTimeout,
			LaunchInterval: DefaultLaunchInterval,
		},
		Analysis: AnalysisConfig{
			SweepVariable:   DefaultSweepVariable,
			CurrentVariable: DefaultCurrentVar,
		},
	}
}

// Load reads a YAML or INI configuration, picked by file extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".ini":
		if err := applyINI(cfg, path, string(data)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve fills derived dataset fields and applies defaults, then validates.
// Dataset names are rewritten to their directory form, "0800 - 200"
// becoming "800-200".
func (c *Config) Resolve() error {
	if len(c.DefaultTemps) == 0 {
		c.DefaultTemps = append([]int(nil), DefaultTemps...)
	}
	for i := range c.Datasets {
		ds := &c.Datasets[i]
		full, shade, err := ParseDatasetName(ds.Name)
		if err != nil {
			return err
		}
		ds.FullVoltage, ds.ShadeVoltage = full, shade
		ds.Name = ds.DirName()
		if len(ds.Temps) == 0 {
			ds.Temps = append(TempSet(nil), c.DefaultTemps...)
		}
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if len(c.Datasets) == 0 {
		return ErrNoDatasets
	}
	if len(c.Arrangements) == 0 {
		return fmt.Errorf("%w: empty arrangement list", ErrInvalidArrangement)
	}
	for _, a := range c.Arrangements {
		if !arrangementPattern.MatchString(a) {
			return fmt.Errorf("%w: %q", ErrInvalidArrangement, a)
		}
	}
	for _, n := range c.MaxCells {
		if n <= 0 {
			return fmt.Errorf("config: max cells must be positive, got %d", n)
		}
	}
	seen := make(map[string]bool, len(c.Datasets))
	for _, ds := range c.Datasets {
		if seen[ds.DirName()] {
			return fmt.Errorf("%w: duplicate dataset %q", ErrInvalidDataset, ds.DirName())
		}
		seen[ds.DirName()] = true
	}
	if c.Simulator.Executable == "" {
		return fmt.Errorf("%w: executable is empty", ErrInvalidSimulator)
	}
	if c.Simulator.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidSimulator)
	}
	if c.Simulator.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative", ErrInvalidSimulator)
	}
	if c.Simulator.LaunchInterval < 0 {
		return fmt.Errorf("%w: launch interval must not be negative", ErrInvalidSimulator)
	}
	return nil
}

// DatasetNames returns dataset names in file order.
func (c *Config) DatasetNames() []string {
	names := make([]string, len(c.Datasets))
	for i, ds := range c.Datasets {
		names[i] = ds.Name
	}
	return names
}

// ParseDatasetName splits "800-200" into its full and shade voltages.
func ParseDatasetName(name string) (full, shade int, err error) {
	hi, lo, ok := strings.Cut(strings.TrimSpace(name), "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDataset, name)
	}
	full, err = strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDataset, name)
	}
	shade, err = strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDataset, name)
	}
	return full, shade, nil
}
