package circuit

import (
	_ "embed"
)

// LibraryFile is the name every netlist includes.
const LibraryFile = "cell_2.lib"

//go:embed cell_2.lib
var cellLibrary []byte

// CellLibrary returns the bundled two-diode solar cell subcircuit.
func CellLibrary() []byte {
	return append([]byte(nil), cellLibrary...)
}
