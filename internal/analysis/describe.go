package analysis

import (
	"math"
	"sort"
)

// Description summarises a column. Std is the sample standard deviation;
// it is NaN for fewer than two values, and every field but Count is NaN
// for none.
type Description struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

func Describe(values []float64) Description {
	d := Description{Count: len(values)}
	nan := math.NaN()
	if len(values) == 0 {
		d.Mean, d.Std, d.Min, d.Q25, d.Median, d.Q75, d.Max = nan, nan, nan, nan, nan, nan, nan
		return d
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	d.Mean = sum / float64(len(sorted))

	d.Std = nan
	if len(sorted) > 1 {
		ss := 0.0
		for _, v := range sorted {
			ss += (v - d.Mean) * (v - d.Mean)
		}
		d.Std = math.Sqrt(ss / float64(len(sorted)-1))
	}

	d.Min = sorted[0]
	d.Max = sorted[len(sorted)-1]
	d.Q25 = quantile(sorted, 0.25)
	d.Median = quantile(sorted, 0.5)
	d.Q75 = quantile(sorted, 0.75)
	return d
}

// quantile interpolates linearly between the closest ranks.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return lerp(sorted[lo], sorted[hi], pos-float64(lo))
}
