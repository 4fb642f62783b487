// Package circuit renders solar-array netlists for LTspiceXVII.
//
// An array is described by an [Arrangement]: Rows cells in series per
// column and Cols columns in parallel. Each [Netlist] is one simulation
// input file for an arrangement at a given temperature and irradiance:
//
//   - [Shading]: the first Count cells see the shade irradiance
//   - [Open]: the last Count columns are removed
//   - [Short]: the last Count columns are shorted to ground
//
// [Plan] yields every netlist the dataset generator writes for one
// arrangement; [ListArrangements] enumerates arrangements by cell count.
//
// # Node naming
//
// Cell j (1-based) of column i (0-based) spans nodes "{i}{j}" and
// "{i}{j+1}". The top of every column is node 01 and the bottom is ground,
// which is where the vbias sweep source is connected.
package circuit
