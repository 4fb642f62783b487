package generate

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/san-kum/circuitsim/internal/analysis"
	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/config"
	"github.com/san-kum/circuitsim/internal/rawfile"
	"github.com/san-kum/circuitsim/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "Output")
	cfg.MaxCells = []int{4}
	cfg.Arrangements = []string{"2x2", "1x4"}
	cfg.Datasets = []config.Dataset{{Name: "800-200", Temps: config.TempSet{27, 30}}}
	require.NoError(t, cfg.Resolve())
	return cfg
}

func TestGeneratorRun(t *testing.T) {
	cfg := testConfig(t)
	g := New(cfg, zaptest.NewLogger(t))

	stats, err := g.Run(context.Background())
	require.NoError(t, err)

	// 2x2: 5 shading + 1 open + 2 short; 1x4: 5 shading + 3 open + 0 short
	perTemp := 8 + 8
	assert.Equal(t, 1, stats.Datasets)
	assert.Equal(t, 4, stats.Directories)
	assert.Equal(t, 2*perTemp, stats.Written)
	assert.Equal(t, 0, stats.Skipped)

	dir := filepath.Join(cfg.OutputDir, "800-200", "Temp30", "2x2")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 9)

	lib, err := os.ReadFile(filepath.Join(dir, circuit.LibraryFile))
	require.NoError(t, err)
	assert.Equal(t, circuit.CellLibrary(), lib)

	data, err := os.ReadFile(filepath.Join(dir, "2x2_1_Short.cir"))
	require.NoError(t, err)
	assert.Contains(t, string(data), ".option temp=30\n")
}

func TestGeneratorSkipsExisting(t *testing.T) {
	cfg := testConfig(t)
	g := New(cfg, nil)

	_, err := g.Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(cfg.OutputDir, "800-200", "Temp27", "1x4", "1x4_0_Shading.cir")
	require.NoError(t, os.WriteFile(path, []byte("edited"), 0644))

	stats, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Written)
	assert.Equal(t, 32, stats.Skipped)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "edited", string(data))
}

func TestGeneratedTreeScannedAndCollected(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "Output")
	cfg.Arrangements = []string{"2x4"}
	cfg.Datasets = []config.Dataset{{Name: "800 - 200", Temps: config.TempSet{27}}}
	require.NoError(t, cfg.Resolve())

	stats, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	require.Positive(t, stats.Written)

	scan, err := runner.Scan(cfg.OutputDir, cfg.DatasetNames(), cfg.Arrangements)
	require.NoError(t, err)
	assert.Len(t, scan.Jobs, stats.Written)

	raw, err := rawfile.New("* 2x4_0_Shading.cir", "DC transfer characteristic",
		[]rawfile.Variable{{Name: "vbias", Type: "voltage"}, {Name: "I(Vbias)", Type: "device_current"}},
		[][]float64{{0, 1, 2}, {-2, -1, 1}})
	require.NoError(t, err)
	require.NoError(t, rawfile.WriteFile(scan.Jobs[0].Raw, raw, true))

	res, err := analysis.NewCollector(cfg, nil).Collect(context.Background(), cfg.DatasetNames())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Panels())
	require.Len(t, res.Tables, 1)
	assert.Equal(t, "800-200", res.Tables[0].Dataset)
}

func TestGeneratorCustomLibrary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Library = filepath.Join(t.TempDir(), "custom.lib")
	require.NoError(t, os.WriteFile(cfg.Library, []byte(".subckt cell_2 a b c\n.ends\n"), 0644))

	_, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	lib, err := os.ReadFile(filepath.Join(cfg.OutputDir, "800-200", "Temp27", "2x2", circuit.LibraryFile))
	require.NoError(t, err)
	assert.Equal(t, ".subckt cell_2 a b c\n.ends\n", string(lib))

	cfg.Library = filepath.Join(t.TempDir(), "missing.lib")
	_, err = New(cfg, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestGeneratorNoArrangements(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxCells = []int{7}
	_, err := New(cfg, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestGeneratorCanceled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := New(cfg, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.Written)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaign.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, zaptest.NewLogger(t), func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x"), 0644))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
