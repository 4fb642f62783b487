// Package rawfile reads LTspice simulation output (.raw) files.
//
// A raw file is a text header followed by a data section. LTspiceXVII
// writes the header in UTF-16LE; older versions and other tools write
// ASCII. Both are detected automatically. The data section is either
// "Binary:" or "Values:" (ASCII).
//
// Binary sample widths follow the header flags:
//
//   - complex: every variable is two float64 (real, imaginary)
//   - double: every variable is a float64
//   - otherwise the axis (variable 0) is a float64 and the rest float32
//
// Transient axes store compression marks in the sign bit, so their
// absolute value is taken. With the "fastaccess" flag samples are laid
// out variable by variable instead of point by point.
//
// Only the subset needed to read node voltages and branch currents is
// supported; see [File.Data].
package rawfile
