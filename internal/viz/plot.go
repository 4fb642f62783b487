package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/circuitsim/internal/analysis"
)

type PlotOptions struct {
	Width  int
	Height int
}

func (o PlotOptions) withDefaults() PlotOptions {
	if o.Width <= 0 {
		o.Width = 80
	}
	if o.Height <= 0 {
		o.Height = 15
	}
	return o
}

// PlotIV charts |I| against the sweep voltage.
func PlotIV(c *analysis.Curve, opts PlotOptions) string {
	return plotAgainstVoltage(c, c.Current, "current |I| (A)", opts)
}

// PlotPV charts |P| against the sweep voltage.
func PlotPV(c *analysis.Curve, opts PlotOptions) string {
	return plotAgainstVoltage(c, c.Power, "power |P| (W)", opts)
}

func plotAgainstVoltage(c *analysis.Curve, ys []float64, label string, opts PlotOptions) string {
	if c == nil || c.Len() == 0 {
		return ""
	}
	opts = opts.withDefaults()
	data := resample(c.Voltage, ys, opts.Width)
	for i := range data {
		data[i] = math.Abs(data[i])
	}
	lo, hi := c.Voltage[0], c.Voltage[c.Len()-1]
	caption := fmt.Sprintf("%s vs voltage %.3g V .. %.3g V", label, lo, hi)
	return asciigraph.Plot(data,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(caption),
	)
}

// PlotSeries charts values against their sample index.
func PlotSeries(name string, values []float64, opts PlotOptions) string {
	if len(values) == 0 {
		return ""
	}
	opts = opts.withDefaults()
	return asciigraph.Plot(values,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(name),
	)
}

// resample evaluates ys at n evenly spaced points of xs, which must be
// ascending. Sweeps may be unevenly stepped so the x spacing is restored
// before asciigraph spreads points by index.
func resample(xs, ys []float64, n int) []float64 {
	if len(xs) == 1 || n < 2 {
		return []float64{ys[0]}
	}
	lo, hi := xs[0], xs[len(xs)-1]
	out := make([]float64, n)
	j := 0
	for i := range out {
		x := lo + (hi-lo)*float64(i)/float64(n-1)
		for j < len(xs)-2 && xs[j+1] < x {
			j++
		}
		x0, x1 := xs[j], xs[j+1]
		if x1 == x0 {
			out[i] = ys[j]
			continue
		}
		t := (x - x0) / (x1 - x0)
		out[i] = ys[j] + t*(ys[j+1]-ys[j])
	}
	return out
}
