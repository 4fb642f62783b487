package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OutputDir != "Output" {
		t.Errorf("expected output dir Output, got %s", cfg.OutputDir)
	}
	if cfg.Simulator.Timeout != 8*time.Second {
		t.Errorf("expected 8s timeout, got %s", cfg.Simulator.Timeout)
	}
	if len(cfg.Arrangements) != 7 {
		t.Errorf("expected 7 arrangements, got %d", len(cfg.Arrangements))
	}
	if cfg.Simulator.Concurrency <= 0 {
		t.Error("concurrency should be positive")
	}
}

func TestParseTemps(t *testing.T) {
	tests := []struct {
		expr     string
		expected TempSet
	}{
		{"", nil},
		{"27", TempSet{27}},
		{"27, 30", TempSet{27, 30}},
		{"30-33", TempSet{30, 31, 32, 33}},
		{"27, 30-32, 40", TempSet{27, 30, 31, 32, 40}},
		{"30-32,31,27", TempSet{30, 31, 32, 27}},
		{" 25 - 26 ", TempSet{25, 26}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseTemps(tt.expr)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("ParseTemps(%q) mismatch (-want +got):\n%s", tt.expr, diff)
			}
		})
	}
}

func TestParseTemps_Invalid(t *testing.T) {
	for _, expr := range []string{"abc", "30-", "35-30", "27,,30", "-5"} {
		_, err := ParseTemps(expr)
		assert.ErrorIs(t, err, ErrInvalidTemps, "expr %q", expr)
	}
}

func TestTempSetString(t *testing.T) {
	assert.Equal(t, "27, 30-35, 40", TempSet{27, 30, 31, 32, 33, 34, 35, 40}.String())
	assert.Equal(t, "1, 2", TempSet{1, 2}.String())
	assert.Equal(t, "", TempSet{}.String())
}

func TestParseDatasetName(t *testing.T) {
	full, shade, err := ParseDatasetName("800-200")
	require.NoError(t, err)
	assert.Equal(t, 800, full)
	assert.Equal(t, 200, shade)

	for _, name := range []string{"800", "a-200", "800-b", ""} {
		_, _, err := ParseDatasetName(name)
		assert.ErrorIs(t, err, ErrInvalidDataset, "name %q", name)
	}
}

func TestResolveNormalizesDatasetNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Datasets = []Dataset{{Name: "800 - 200"}, {Name: "01000-500"}}
	require.NoError(t, cfg.Resolve())
	assert.Equal(t, []string{"800-200", "1000-500"}, cfg.DatasetNames())

	cfg = DefaultConfig()
	cfg.Datasets = []Dataset{{Name: "800-200"}, {Name: "0800-200"}}
	assert.ErrorIs(t, cfg.Resolve(), ErrInvalidDataset)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "campaign.yaml", `
output: runs
datasets:
  - name: 800-200
    temps: "27, 30-31"
  - name: 1000-500
    temps: [25, 25, 50]
  - name: 600-100
simulator:
  executable: /usr/bin/wine
  args: ["-b"]
  timeout: 20s
  concurrency: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "runs", cfg.OutputDir)
	require.Len(t, cfg.Datasets, 3)
	assert.Equal(t, TempSet{27, 30, 31}, cfg.Datasets[0].Temps)
	assert.Equal(t, 800, cfg.Datasets[0].FullVoltage)
	assert.Equal(t, 200, cfg.Datasets[0].ShadeVoltage)
	assert.Equal(t, TempSet{25, 50}, cfg.Datasets[1].Temps)
	assert.Equal(t, TempSet(DefaultTemps), cfg.Datasets[2].Temps)
	assert.Equal(t, 20*time.Second, cfg.Simulator.Timeout)
	assert.Equal(t, 2, cfg.Simulator.Concurrency)
	assert.Equal(t, DefaultLaunchInterval, cfg.Simulator.LaunchInterval)
	assert.Equal(t, []string{"800-200", "1000-500", "600-100"}, cfg.DatasetNames())
}

func TestLoadINI(t *testing.T) {
	path := writeFile(t, "data_sets.ini", `; datasets for the shading study
[DEFAULT]
temps = 27

[settings]
output = Sims
timeout = 12s
args = -b -ascii

[800-200]
temps = 27, 30-32

[1000-500]
temps =

# inherits DEFAULT temps
[600-100]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Sims", cfg.OutputDir)
	assert.Equal(t, 12*time.Second, cfg.Simulator.Timeout)
	assert.Equal(t, []string{"-b", "-ascii"}, cfg.Simulator.Args)
	require.Len(t, cfg.Datasets, 3)
	assert.Equal(t, TempSet{27, 30, 31, 32}, cfg.Datasets[0].Temps)
	assert.Equal(t, TempSet(DefaultTemps), cfg.Datasets[1].Temps)
	assert.Equal(t, TempSet{27}, cfg.Datasets[2].Temps)
}

func TestLoadINI_UnknownSetting(t *testing.T) {
	path := writeFile(t, "bad.ini", "[settings]\nspeed = fast\n[800-200]\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "cfg.toml", "x = 1"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = Load(writeFile(t, "empty.yaml", "output: x\n"))
	assert.ErrorIs(t, err, ErrNoDatasets)

	_, err = Load(writeFile(t, "badname.yaml", "datasets:\n  - name: bright\n"))
	assert.ErrorIs(t, err, ErrInvalidDataset)

	_, err = Load(writeFile(t, "dup.yaml", "datasets:\n  - name: 1-1\n  - name: 1-1\n"))
	assert.ErrorIs(t, err, ErrInvalidDataset)

	_, err = Load(writeFile(t, "arr.yaml", "arrangements: [2by4]\ndatasets:\n  - name: 1-1\n"))
	assert.ErrorIs(t, err, ErrInvalidArrangement)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Datasets = []Dataset{{Name: "800-200", Temps: TempSet{27, 35}}}
	cfg.Simulator.Timeout = 15 * time.Second

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, loaded.Simulator.Timeout)
	assert.Equal(t, TempSet{27, 35}, loaded.Datasets[0].Temps)
}

func TestPresets(t *testing.T) {
	p := GetPreset("wine")
	require.NotNil(t, p)
	assert.Equal(t, "wine", p.Executable)

	p.Args[0] = "mutated"
	assert.NotEqual(t, "mutated", Presets["wine"].Args[0])

	assert.Nil(t, GetPreset("nonexistent"))
	assert.Equal(t, []string{"batch", "macos", "windows", "wine"}, ListPresets())

	cfg := DefaultConfig()
	assert.True(t, cfg.ApplyPreset("batch"))
	assert.Equal(t, []string{"-b"}, cfg.Simulator.Args)
	assert.False(t, cfg.ApplyPreset("nope"))
}
