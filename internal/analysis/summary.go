package analysis

import (
	"encoding/csv"
	"io"
	"strconv"
)

var SummaryColumns = []string{
	"Solar Panel ID",
	"File Name",
	"Temperature",
	"Series Cells",
	"Parallel Cells",
	"Fault Type",
	"Fault Count",
	"Shading %",
	"Voc (V)",
	"Isc (A)",
	"Pmax (W)",
	"Vmp (V)",
	"Imp (A)",
	"Fill Factor",
}

// Summary lists every panel of a dataset with its curve statistics.
type Summary struct {
	Dataset string
	Panels  []*Panel
}

func (s *Summary) FileName() string {
	return s.Dataset + "-summary.csv"
}

func (s *Summary) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryColumns); err != nil {
		return err
	}
	for _, p := range s.Panels {
		st := p.Curve.Stats()
		err := cw.Write([]string{
			strconv.Itoa(p.ID),
			p.FileName(),
			strconv.Itoa(p.Temperature),
			strconv.Itoa(p.Info.Arrangement.Rows),
			strconv.Itoa(p.Info.Arrangement.Cols),
			string(p.Info.Kind),
			strconv.Itoa(p.Info.Count),
			formatPercent(p.ShadingPercent()),
			formatFloat(st.Voc),
			formatFloat(st.Isc),
			formatFloat(st.Pmax),
			formatFloat(st.Vmp),
			formatFloat(st.Imp),
			formatFloat(st.FillFactor),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ColumnDescription is the Describe output for one summary column.
type ColumnDescription struct {
	Column string
	Description
}

// Describe summarises the numeric statistics columns across all panels.
func (s *Summary) Describe() []ColumnDescription {
	cols := []struct {
		name string
		get  func(*Panel, Stats) float64
	}{
		{"Shading %", func(p *Panel, _ Stats) float64 { return p.ShadingPercent() }},
		{"Voc (V)", func(_ *Panel, st Stats) float64 { return st.Voc }},
		{"Isc (A)", func(_ *Panel, st Stats) float64 { return st.Isc }},
		{"Pmax (W)", func(_ *Panel, st Stats) float64 { return st.Pmax }},
		{"Fill Factor", func(_ *Panel, st Stats) float64 { return st.FillFactor }},
	}

	stats := make([]Stats, len(s.Panels))
	for i, p := range s.Panels {
		stats[i] = p.Curve.Stats()
	}

	out := make([]ColumnDescription, 0, len(cols))
	for _, c := range cols {
		values := make([]float64, len(s.Panels))
		for i, p := range s.Panels {
			values[i] = c.get(p, stats[i])
		}
		out = append(out, ColumnDescription{Column: c.name, Description: Describe(values)})
	}
	return out
}
