package circuit

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)x(\d+)_(\d+|No)_([A-Za-z]+)$`)

// FileInfo is what a netlist or output file name says about its circuit.
type FileInfo struct {
	Arrangement Arrangement
	Kind        Kind
	Count       int
}

// ParseFileName accepts names produced by Netlist.FileName with any
// extension, e.g. "2x4_3_Shading.raw". "No" is read as a zero count and
// the kind is matched case-insensitively.
func ParseFileName(name string) (FileInfo, error) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	m := fileNamePattern.FindStringSubmatch(base)
	if m == nil {
		return FileInfo{}, fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	rows, _ := strconv.Atoi(m[1])
	cols, _ := strconv.Atoi(m[2])
	count := 0
	if m[3] != "No" {
		count, _ = strconv.Atoi(m[3])
	}
	if rows == 0 || cols == 0 {
		return FileInfo{}, fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	kind, err := ParseKind(m[4])
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %q: %v", ErrInvalidFileName, name, err)
	}
	return FileInfo{
		Arrangement: Arrangement{Rows: rows, Cols: cols},
		Kind:        kind,
		Count:       count,
	}, nil
}
