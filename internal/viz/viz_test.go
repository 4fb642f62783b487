package viz

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/circuitsim/internal/analysis"
	"github.com/san-kum/circuitsim/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressBar(t *testing.T) {
	for _, p := range []float64{-1, 0, 0.5, 0.9, 2} {
		assert.Equal(t, 20, lipgloss.Width(ProgressBar(p, 20)))
	}
	assert.Contains(t, ProgressBar(1, 4), "████")
	assert.Contains(t, ProgressBar(0, 4), "░░░░")
}

func TestSeparator(t *testing.T) {
	assert.Equal(t, 80, lipgloss.Width(Separator(80)))
	assert.Equal(t, 3, lipgloss.Width(Separator(0)))
	assert.Contains(t, Separator(9), "◆")
}

func TestStatusStyle(t *testing.T) {
	assert.Equal(t, StatusOK.Render("x"), StatusStyle(runner.Completed).Render("x"))
	assert.Equal(t, StatusFail.Render("x"), StatusStyle(runner.Failed).Render("x"))
	assert.Equal(t, StatusWarn.Render("x"), StatusStyle(runner.TimedOut).Render("x"))
}

func TestResample(t *testing.T) {
	got := resample([]float64{0, 1, 3}, []float64{0, 2, 6}, 4)
	assert.InDeltaSlice(t, []float64{0, 2, 4, 6}, got, 1e-12)
	assert.Equal(t, []float64{5}, resample([]float64{1}, []float64{5}, 10))
}

func TestPlotIV(t *testing.T) {
	c, err := analysis.NewCurve([]float64{0, 0.5, 1, 1.5}, []float64{-2, -2, -1, 1})
	require.NoError(t, err)

	out := PlotIV(c, PlotOptions{Width: 30, Height: 5})
	assert.Contains(t, out, "current |I| (A)")
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 5)

	assert.Contains(t, PlotPV(c, PlotOptions{}), "power |P| (W)")
	assert.Empty(t, PlotIV(nil, PlotOptions{}))
}

func TestPlotSeries(t *testing.T) {
	assert.Contains(t, PlotSeries("V(01)", []float64{1, 2, 3}, PlotOptions{Height: 3}), "V(01)")
	assert.Empty(t, PlotSeries("V(01)", nil, PlotOptions{}))
}
