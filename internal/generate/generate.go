// Package generate writes the netlist tree for every configured dataset.
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/config"
	"go.uber.org/zap"
)

type Stats struct {
	Datasets    int
	Directories int
	Written     int
	Skipped     int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d datasets, %d directories, %d written, %d skipped",
		s.Datasets, s.Directories, s.Written, s.Skipped)
}

type Generator struct {
	cfg     *config.Config
	logger  *zap.Logger
	library []byte
}

func New(cfg *config.Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{cfg: cfg, logger: logger}
}

// loadLibrary reads the configured cell library once, falling back to the
// bundled one.
func (g *Generator) loadLibrary() ([]byte, error) {
	if g.library != nil {
		return g.library, nil
	}
	if g.cfg.Library == "" {
		g.library = circuit.CellLibrary()
		return g.library, nil
	}
	data, err := os.ReadFile(g.cfg.Library)
	if err != nil {
		return nil, fmt.Errorf("generate: read library: %w", err)
	}
	g.library = data
	return data, nil
}

// Run creates every dataset directory and netlist. Existing netlists are
// left untouched so an interrupted run can be resumed.
func (g *Generator) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	lib, err := g.loadLibrary()
	if err != nil {
		return stats, err
	}

	sets := circuit.ListArrangements(g.cfg.MaxCells, g.cfg.Arrangements)
	for _, a := range sets {
		g.logger.Info("will design solar arrangement",
			zap.Int("cells", a.Cells()), zap.Stringer("arrangement", a))
	}
	if len(sets) == 0 {
		return stats, errors.New("generate: no arrangements match max cells")
	}

	for _, ds := range g.cfg.Datasets {
		g.logger.Info("generating dataset",
			zap.String("dataset", ds.Name), zap.Stringer("temps", ds.Temps))
		stats.Datasets++

		for _, temp := range ds.Temps {
			for _, a := range sets {
				if err := ctx.Err(); err != nil {
					return stats, err
				}
				dir := g.cfg.ArrangementDir(ds, temp, a.String())
				if err := g.writeDir(dir, lib, ds, temp, a, &stats); err != nil {
					return stats, err
				}
			}
		}
	}
	return stats, nil
}

func (g *Generator) writeDir(dir string, lib []byte, ds config.Dataset, temp int, a circuit.Arrangement, stats *Stats) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	stats.Directories++

	if err := writeIfChanged(filepath.Join(dir, circuit.LibraryFile), lib); err != nil {
		return err
	}

	for _, nl := range circuit.Plan(a, ds.FullVoltage, ds.ShadeVoltage, temp) {
		if err := nl.Validate(); err != nil {
			return err
		}
		path := filepath.Join(dir, nl.FileName())
		written, err := writeNetlist(path, nl)
		if err != nil {
			return err
		}
		if !written {
			g.logger.Debug("netlist exists, skipping", zap.String("path", path))
			stats.Skipped++
			continue
		}
		g.logger.Debug("wrote netlist", zap.String("path", path))
		stats.Written++
	}
	return nil
}

// writeNetlist creates path exclusively; it reports false if it existed.
func writeNetlist(path string, nl circuit.Netlist) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if err := nl.Render(f); err != nil {
		f.Close()
		os.Remove(path)
		return false, fmt.Errorf("generate: render %s: %w", path, err)
	}
	return true, f.Close()
}

func writeIfChanged(path string, data []byte) error {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return nil
	}
	return os.WriteFile(path, data, 0644)
}
