package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Failure records a result file that could not be decoded.
type Failure struct {
	Path string
	Err  error
}

type Result struct {
	Tables    []*Table
	Summaries []*Summary
	Failures  []Failure
}

func (r *Result) Panels() int {
	n := 0
	for _, s := range r.Summaries {
		n += len(s.Panels)
	}
	return n
}

// WriteFiles writes every table and summary under dataDir and returns the
// paths written.
func (r *Result) WriteFiles(dataDir string) ([]string, error) {
	var written []string
	write := func(dataset, name string, fn func(f *os.File) error) error {
		dir := filepath.Join(dataDir, dataset)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	for _, t := range r.Tables {
		if err := write(t.Dataset, t.FileName(), func(f *os.File) error { return t.WriteCSV(f) }); err != nil {
			return written, err
		}
	}
	for _, s := range r.Summaries {
		if err := write(s.Dataset, s.FileName(), func(f *os.File) error { return s.WriteCSV(f) }); err != nil {
			return written, err
		}
	}
	return written, nil
}

// Collector decodes the results under an output tree.
type Collector struct {
	OutputDir       string
	SweepVariable   string
	CurrentVariable string
	// Concurrency bounds parallel decoding; 0 means one per CPU.
	Concurrency int

	logger *zap.Logger
}

func NewCollector(cfg *config.Config, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		OutputDir:       cfg.OutputDir,
		SweepVariable:   cfg.Analysis.SweepVariable,
		CurrentVariable: cfg.Analysis.CurrentVariable,
		logger:          logger,
	}
}

// Collect decodes every .raw file of the named datasets. Files that fail to
// decode are reported in Result.Failures without stopping the walk; missing
// dataset directories are skipped.
func (c *Collector) Collect(ctx context.Context, datasets []string) (*Result, error) {
	res := &Result{}
	for _, name := range datasets {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := c.collectDataset(ctx, name, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (c *Collector) collectDataset(ctx context.Context, name string, res *Result) error {
	full, shade, err := config.ParseDatasetName(name)
	if err != nil {
		return err
	}
	name = config.Dataset{FullVoltage: full, ShadeVoltage: shade}.DirName()
	dsDir := filepath.Join(c.OutputDir, name)
	temps, err := tempDirs(dsDir)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("dataset directory missing", zap.String("dataset", name), zap.String("dir", dsDir))
		return nil
	}
	if err != nil {
		return err
	}
	c.logger.Info("running data analysis", zap.String("dataset", name))

	var panels []*Panel
	for _, temp := range temps {
		dir := filepath.Join(dsDir, config.TempDirName(temp))
		c.logger.Debug("scanning temperature directory", zap.String("dir", dir))
		paths, err := rawFiles(dir)
		if err != nil {
			return err
		}
		for _, path := range paths {
			info, err := circuit.ParseFileName(path)
			if err != nil {
				res.Failures = append(res.Failures, Failure{Path: path, Err: err})
				continue
			}
			panels = append(panels, &Panel{
				Dataset:      name,
				FullVoltage:  full,
				ShadeVoltage: shade,
				Temperature:  temp,
				Path:         path,
				Info:         info,
			})
		}
	}

	errs, err := c.decode(ctx, panels)
	if err != nil {
		return err
	}

	summary := &Summary{Dataset: name}
	byTemp := make(map[int]*Table)
	id := 1
	for i, p := range panels {
		if errs[i] != nil {
			c.logger.Warn("skipping undecodable result", zap.String("file", p.Path), zap.Error(errs[i]))
			res.Failures = append(res.Failures, Failure{Path: p.Path, Err: errs[i]})
			continue
		}
		p.ID = id
		id++

		t, ok := byTemp[p.Temperature]
		if !ok {
			t = &Table{Dataset: name, Temperature: p.Temperature}
			byTemp[p.Temperature] = t
			res.Tables = append(res.Tables, t)
		}
		t.Panels = append(t.Panels, p)
		summary.Panels = append(summary.Panels, p)
	}
	if len(summary.Panels) > 0 {
		res.Summaries = append(res.Summaries, summary)
	}
	c.logger.Info("dataset analysed", zap.String("dataset", name),
		zap.Int("panels", len(summary.Panels)), zap.Int("temperatures", len(byTemp)))
	return nil
}

// decode loads every panel's curve in parallel. The returned slice holds the
// per-panel decode error; the error return is reserved for cancellation.
func (c *Collector) decode(ctx context.Context, panels []*Panel) ([]error, error) {
	errs := make([]error, len(panels))
	limit := c.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range panels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.logger.Debug("creating datasheet output", zap.String("file", filepath.Base(p.Path)))
			p.Curve, errs[i] = LoadCurve(p.Path, c.SweepVariable, c.CurrentVariable)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return errs, nil
}

// tempDirs lists the temperatures of a dataset directory in ascending order.
func tempDirs(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var temps []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if t, ok := config.ParseTempDirName(e.Name()); ok {
			temps = append(temps, t)
		}
	}
	sort.Ints(temps)
	return temps, nil
}

// rawFiles returns the .raw files of every arrangement directory below dir.
func rawFiles(dir string) ([]string, error) {
	arrangements, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, a := range arrangements {
		if !a.IsDir() {
			continue
		}
		sub := filepath.Join(dir, a.Name())
		entries, err := os.ReadDir(sub)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".raw") {
				paths = append(paths, filepath.Join(sub, e.Name()))
			}
		}
	}
	return paths, nil
}
