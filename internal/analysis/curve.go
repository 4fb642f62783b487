package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/circuitsim/internal/rawfile"
)

var (
	ErrLengthMismatch = errors.New("analysis: voltage and current lengths differ")
	ErrEmptyCurve     = errors.New("analysis: curve has no points")
)

// Curve is an I-V sweep. Power is Voltage*Current point by point.
type Curve struct {
	Voltage []float64
	Current []float64
	Power   []float64
}

func NewCurve(voltage, current []float64) (*Curve, error) {
	if len(voltage) != len(current) {
		return nil, fmt.Errorf("%w: %d voltages, %d currents", ErrLengthMismatch, len(voltage), len(current))
	}
	if len(voltage) == 0 {
		return nil, ErrEmptyCurve
	}
	c := &Curve{
		Voltage: append([]float64(nil), voltage...),
		Current: append([]float64(nil), current...),
		Power:   make([]float64, len(voltage)),
	}
	for i := range c.Voltage {
		c.Power[i] = c.Voltage[i] * c.Current[i]
	}
	return c, nil
}

// FromRaw extracts the sweep and current variables from a decoded file.
func FromRaw(f *rawfile.File, sweepVar, currentVar string) (*Curve, error) {
	v, err := f.Data(sweepVar)
	if err != nil {
		return nil, err
	}
	i, err := f.Data(currentVar)
	if err != nil {
		return nil, err
	}
	return NewCurve(v, i)
}

func LoadCurve(path, sweepVar, currentVar string) (*Curve, error) {
	f, err := rawfile.Open(path)
	if err != nil {
		return nil, err
	}
	c, err := FromRaw(f, sweepVar, currentVar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Curve) Len() int { return len(c.Voltage) }

// Stats are the usual photovoltaic figures of merit. Currents are reported
// as magnitudes since the sign depends on the bias source orientation.
type Stats struct {
	Voc        float64
	Isc        float64
	Pmax       float64
	Vmp        float64
	Imp        float64
	FillFactor float64
}

// Stats assumes Voltage is ascending, as a .dc sweep produces. Pmax is
// searched below Voc when the current crosses zero, over the whole sweep
// otherwise. FillFactor is 0 when Voc or Isc is 0.
func (c *Curve) Stats() Stats {
	var s Stats
	if c.Len() == 0 {
		return s
	}
	s.Isc = math.Abs(c.currentAt(0))

	voc, crossed := c.zeroCrossing()
	if crossed {
		s.Voc = voc
	}
	for i, v := range c.Voltage {
		if crossed && v > voc {
			break
		}
		if p := math.Abs(c.Power[i]); p > s.Pmax {
			s.Pmax, s.Vmp, s.Imp = p, v, math.Abs(c.Current[i])
		}
	}
	if s.Voc > 0 && s.Isc > 0 {
		s.FillFactor = s.Pmax / (s.Voc * s.Isc)
	}
	return s
}

// currentAt interpolates the current at voltage v, clamping to the ends of
// the sweep.
func (c *Curve) currentAt(v float64) float64 {
	n := c.Len()
	if v <= c.Voltage[0] {
		return c.Current[0]
	}
	for i := 0; i < n-1; i++ {
		v0, v1 := c.Voltage[i], c.Voltage[i+1]
		if v >= v0 && v <= v1 {
			if v1 == v0 {
				return c.Current[i]
			}
			return lerp(c.Current[i], c.Current[i+1], (v-v0)/(v1-v0))
		}
	}
	return c.Current[n-1]
}

// zeroCrossing returns the first voltage at which the current reaches or
// changes sign through zero.
func (c *Curve) zeroCrossing() (float64, bool) {
	for i, cur := range c.Current {
		if cur == 0 {
			return c.Voltage[i], true
		}
		if i+1 < c.Len() && math.Signbit(cur) != math.Signbit(c.Current[i+1]) && c.Current[i+1] != 0 {
			t := -cur / (c.Current[i+1] - cur)
			return lerp(c.Voltage[i], c.Voltage[i+1], t), true
		}
	}
	return 0, false
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}
