package circuit

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

type Kind string

const (
	Shading Kind = "Shading"
	Open    Kind = "Open"
	Short   Kind = "Short"
)

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "shading":
		return Shading, nil
	case "open":
		return Open, nil
	case "short":
		return Short, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// CellModel holds the cell_2 subcircuit parameters written for every cell.
type CellModel struct {
	Name string
	Area string
	J0   string
	J02  string
	Jsc  string
	Rs   string
	Rsh  string
}

var DefaultCell = CellModel{
	Name: "cell_2",
	Area: "49",
	J0:   "16E-20",
	J02:  "1.2E-12",
	Jsc:  "30.5E-3",
	Rs:   "28e-3",
	Rsh:  "100000",
}

const (
	// SweepSource is the bias source every netlist sweeps.
	SweepSource = "vbias"
	sweepStep   = "0.01"
	sweepScale  = 1.05
	shortOhms   = "0.0001"
)

// Netlist is one LTspice input file. Count is the number of shaded cells,
// open columns or shorted columns depending on Kind.
type Netlist struct {
	Arrangement  Arrangement
	Kind         Kind
	Count        int
	FullVoltage  int
	ShadeVoltage int
	Temp         int
	Cell         CellModel
}

func (n Netlist) FileName() string {
	return fmt.Sprintf("%s_%d_%s.cir", n.Arrangement, n.Count, n.Kind)
}

// Validate checks Count against the arrangement limits used by Plan.
func (n Netlist) Validate() error {
	a := n.Arrangement
	if a.Rows <= 0 || a.Cols <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidArrangement, a)
	}
	var lo, hi int
	switch n.Kind {
	case Shading:
		lo, hi = 0, a.Cells()
	case Open:
		lo, hi = 1, a.Cols-1
	case Short:
		lo, hi = 1, a.Cells()-a.Cols
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, n.Kind)
	}
	if n.Count < lo || n.Count > hi {
		return fmt.Errorf("%w: %s %s count %d not in [%d, %d]", ErrCountOutOfRange, a, n.Kind, n.Count, lo, hi)
	}
	return nil
}

// Render writes the netlist text. It does not validate Count; see Validate.
func (n Netlist) Render(w io.Writer) error {
	cell := n.Cell
	if cell.Name == "" {
		cell = DefaultCell
	}
	rows, cols := n.Arrangement.Rows, n.Arrangement.Cols

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "* Generated by circuitsim")
	fmt.Fprintf(bw, "* Circuit Simulation of %d Series x %d Parallel Solar Cell Arrangement\n", rows, cols)
	if n.Kind == Shading {
		fmt.Fprintf(bw, "* %d Shade %d No-Shade File\n", n.Count, rows*cols-n.Count)
	} else {
		kind := strings.ToLower(string(n.Kind))
		fmt.Fprintf(bw, "* %d %s %d No-%s File\n", n.Count, kind, rows*cols-n.Count, kind)
	}
	fmt.Fprintf(bw, ".include %s.lib\n", cell.Name)
	fmt.Fprintf(bw, ".option temp=%d\n", n.Temp)

	for i := 0; i < cols; i++ {
		fmt.Fprintf(bw, "\n*** Start of Column %02d\n\n", i+1)

		if n.Kind == Open && i >= cols-n.Count {
			fmt.Fprintln(bw, "* Column Skipped due to Open Circuit")
			continue
		}

		for j := 1; j <= rows; j++ {
			start := fmt.Sprintf("%d%d", i, j)
			end := fmt.Sprintf("%d%d", i, j+1)
			low := end
			if j == rows {
				low = "0"
			}
			high := start
			if j == 1 {
				high = "01"
			}
			irr := end + start

			fmt.Fprintf(bw, "** Cell %02d [Col %02d]\n", j, i+1)
			fmt.Fprintf(bw, "xcell_%s_%s %s %s %s %s params:area=%s  j0=%s j02=%s\n",
				start, end, low, high, irr, cell.Name, cell.Area, cell.J0, cell.J02)
			fmt.Fprintf(bw, "+ jsc=%s rs=%s rsh=%s\n", cell.Jsc, cell.Rs, cell.Rsh)

			volts := n.FullVoltage
			if n.Kind == Shading && (i+1)*j <= n.Count {
				volts = n.ShadeVoltage
			}
			fmt.Fprintf(bw, "virrad_%s_%s  %s %s dc %d\n", start, end, irr, low, volts)

			if n.Kind == Short && j == rows && i+1 > cols-n.Count {
				fmt.Fprintf(bw, "r_%s_%s %s 0 %s\n", start, end, start, shortOhms)
			}
			fmt.Fprintln(bw)
		}
	}

	fmt.Fprintf(bw, "\n%s 01 0 dc 0\n", SweepSource)
	fmt.Fprintf(bw, ".plot dc i(%s)\n", SweepSource)
	fmt.Fprintf(bw, ".dc %s 0 %s %s\n", SweepSource, formatVolts(sweepScale*float64(rows)), sweepStep)
	fmt.Fprintln(bw, ".probe")
	fmt.Fprintln(bw, ".end")
	return bw.Flush()
}

func (n Netlist) String() string {
	var sb strings.Builder
	_ = n.Render(&sb)
	return sb.String()
}

// formatVolts trims float noise such as 3.1500000000000004.
func formatVolts(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}

// Plan lists every netlist for one arrangement: shading counts 0..cells,
// open columns 1..cols-1 and shorted columns 1..cells-cols, interleaved by
// count.
func Plan(a Arrangement, full, shade, temp int) []Netlist {
	base := Netlist{
		Arrangement:  a,
		FullVoltage:  full,
		ShadeVoltage: shade,
		Temp:         temp,
		Cell:         DefaultCell,
	}

	var plan []Netlist
	for num := 0; num <= a.Cells(); num++ {
		nl := base
		nl.Kind, nl.Count = Shading, num
		plan = append(plan, nl)
		if num == 0 {
			continue
		}
		if num < a.Cols {
			nl.Kind = Open
			plan = append(plan, nl)
		}
		if num <= a.Cells()-a.Cols {
			nl.Kind = Short
			plan = append(plan, nl)
		}
	}
	return plan
}
