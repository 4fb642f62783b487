package circuit

import "errors"

var (
	// ErrInvalidArrangement indicates a malformed "RxC" arrangement.
	ErrInvalidArrangement = errors.New("circuit: invalid arrangement")

	// ErrInvalidFileName indicates a file name not produced by Netlist.FileName.
	ErrInvalidFileName = errors.New("circuit: unrecognized netlist file name")

	// ErrInvalidKind indicates an unknown netlist kind.
	ErrInvalidKind = errors.New("circuit: unknown netlist kind")

	// ErrCountOutOfRange indicates a fault count the arrangement cannot hold.
	ErrCountOutOfRange = errors.New("circuit: count out of range for arrangement")
)
