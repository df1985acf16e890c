package illum

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Coefficients of the gray response curve fitted to photographs of
// printed samples.
const (
	ambientWeight     = 24.0
	directionalWeight = 456.0
	exposure          = 0.87
	gamma             = 0.3441
	gain              = 19.6
	blackLevel        = 21.24
)

// GrayFromLight maps an ambient term a and a directional term d to an
// approximate 8 bit gray level. The result is not clamped.
func GrayFromLight(a, d float64) int {
	return int(math.Round(gain*math.Pow(exposure*(ambientWeight*a+directionalWeight*d), gamma) + blackLevel))
}

// TopMean returns the arithmetic mean of the largest ⌈len(grays)/10⌉
// values, at least one. It returns NaN for an empty slice.
func TopMean(grays []int) float64 {
	if len(grays) == 0 {
		return math.NaN()
	}
	v := make([]float64, len(grays))
	for i, g := range grays {
		v[i] = float64(g)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(v)))
	k := (len(v) + 9) / 10
	return stat.Mean(v[:k], nil)
}
