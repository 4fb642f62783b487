// Package viz renders terminal output for circuitsim commands.
//
//   - lipgloss styles for headers, status words and progress bars
//   - [PlotIV] and [PlotPV]: asciigraph charts of a solar panel sweep
//   - [PlotSeries]: any variable of a decoded .raw file against its index
package viz
