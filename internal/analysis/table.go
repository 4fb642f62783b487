package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/circuitsim/internal/circuit"
	"github.com/san-kum/circuitsim/internal/config"
)

// Columns is the header of every temperature table.
var Columns = []string{
	"Voltage (V)",
	"Current (A)",
	"Power (W)",
	"Full Voltage",
	"Shade Voltage",
	"Temperature",
	"File Name",
	"# Of Cells",
	"Series Cells",
	"Parallel Cells",
	"Shaded Cells",
	"Shading %",
	"Fault Type",
	"Fault Count",
	"Solar Panel ID",
	"IsShade",
}

// Panel is one decoded simulation result.
type Panel struct {
	ID           int
	Dataset      string
	FullVoltage  int
	ShadeVoltage int
	Temperature  int
	Path         string
	Info         circuit.FileInfo
	Curve        *Curve
}

// FileName is the label written to the File Name column.
func (p *Panel) FileName() string {
	base := filepath.Base(p.Path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".txt"
}

func (p *Panel) Cells() int { return p.Info.Arrangement.Cells() }

// ShadedCells counts shaded cells; open and short faults shade none and are
// identified by the Fault Type and Fault Count columns instead.
func (p *Panel) ShadedCells() int {
	if p.Info.Kind != circuit.Shading {
		return 0
	}
	return p.Info.Count
}

func (p *Panel) ShadingPercent() float64 {
	if p.Cells() == 0 {
		return 0
	}
	return float64(p.ShadedCells()) / float64(p.Cells()) * 100
}

func (p *Panel) IsShade() bool { return p.ShadedCells() > 0 }

// records expands the panel into one table row per sweep point.
func (p *Panel) records() [][]string {
	fixed := []string{
		strconv.Itoa(p.FullVoltage),
		strconv.Itoa(p.ShadeVoltage),
		strconv.Itoa(p.Temperature),
		p.FileName(),
		strconv.Itoa(p.Cells()),
		strconv.Itoa(p.Info.Arrangement.Rows),
		strconv.Itoa(p.Info.Arrangement.Cols),
		strconv.Itoa(p.ShadedCells()),
		formatPercent(p.ShadingPercent()),
		string(p.Info.Kind),
		strconv.Itoa(p.Info.Count),
		strconv.Itoa(p.ID),
		boolFlag(p.IsShade()),
	}

	rows := make([][]string, 0, p.Curve.Len())
	for i := range p.Curve.Voltage {
		row := make([]string, 0, len(Columns))
		row = append(row,
			formatFloat(p.Curve.Voltage[i]),
			formatFloat(p.Curve.Current[i]),
			formatFloat(p.Curve.Power[i]),
		)
		rows = append(rows, append(row, fixed...))
	}
	return rows
}

// Table holds every panel of one dataset at one temperature.
type Table struct {
	Dataset     string
	Temperature int
	Panels      []*Panel
}

// FileName is the CSV name, e.g. "800-200-Temp27.csv".
func (t *Table) FileName() string {
	return fmt.Sprintf("%s-%s.csv", t.Dataset, config.TempDirName(t.Temperature))
}

// Rows is the number of data rows, one per sweep point of every panel.
func (t *Table) Rows() int {
	n := 0
	for _, p := range t.Panels {
		n += p.Curve.Len()
	}
	return n
}

func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, p := range t.Panels {
		if err := cw.WriteAll(p.records()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatFloat prints the shortest representation that round-trips, always
// with a decimal point or exponent.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if strings.ContainsAny(s, ".eN") || strings.Contains(s, "Inf") {
		return s
	}
	return s + ".0"
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
