package circuit

import (
	"fmt"
	"strconv"
	"strings"
)

// Arrangement is Rows cells in series per column, Cols columns in parallel.
type Arrangement struct {
	Rows int
	Cols int
}

func (a Arrangement) Cells() int { return a.Rows * a.Cols }

func (a Arrangement) String() string {
	return fmt.Sprintf("%dx%d", a.Rows, a.Cols)
}

func ParseArrangement(s string) (Arrangement, error) {
	r, c, ok := strings.Cut(s, "x")
	if !ok {
		return Arrangement{}, fmt.Errorf("%w: %q", ErrInvalidArrangement, s)
	}
	rows, err := strconv.Atoi(r)
	if err != nil || rows <= 0 {
		return Arrangement{}, fmt.Errorf("%w: %q", ErrInvalidArrangement, s)
	}
	cols, err := strconv.Atoi(c)
	if err != nil || cols <= 0 {
		return Arrangement{}, fmt.Errorf("%w: %q", ErrInvalidArrangement, s)
	}
	return Arrangement{Rows: rows, Cols: cols}, nil
}

// ListArrangements returns, for each total cell count in maxCells, every
// rows x cols factorisation of it, rows ascending. When allowed is non-empty
// only arrangements named there ("2x4") are kept.
func ListArrangements(maxCells []int, allowed []string) []Arrangement {
	keep := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		keep[a] = true
	}

	seen := make(map[Arrangement]bool)
	var sets []Arrangement
	for _, n := range maxCells {
		for _, rows := range divisors(n) {
			a := Arrangement{Rows: rows, Cols: n / rows}
			if len(keep) > 0 && !keep[a.String()] {
				continue
			}
			if seen[a] {
				continue
			}
			seen[a] = true
			sets = append(sets, a)
		}
	}
	return sets
}

func divisors(n int) []int {
	var ds []int
	for d := 1; d <= n; d++ {
		if n%d == 0 {
			ds = append(ds, d)
		}
	}
	return ds
}
