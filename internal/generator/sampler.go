package generator

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/scusemua/workload-generator/internal/domain"
)

// TruncatedNormal is a normal distribution with mean Mean and standard deviation StdDev,
// conditioned to lie within the closed interval [Low, Upp].
//
// Values are drawn by inverse-CDF sampling: a uniform value is drawn from the image of
// [Low, Upp] under the standard normal CDF and mapped back through the quantile function.
// When StdDev is zero, or the probability mass inside the interval underflows, the mean is
// clamped to the interval instead.
type TruncatedNormal struct {
	Mean   float64
	StdDev float64
	Low    float64
	Upp    float64

	src rand.Source

	// Standardized bounds. When mirrored is true they describe the reflected distribution,
	// which keeps the CDF values away from 1 for intervals in the upper tail.
	cdfLow   float64
	cdfUpp   float64
	mirrored bool
}

// NewTruncatedNormal validates the parameters and returns a TruncatedNormal drawing from src.
// The returned error wraps domain.ErrInvalidDistribution.
func NewTruncatedNormal(mean float64, stdDev float64, low float64, upp float64, src rand.Source) (*TruncatedNormal, error) {
	if math.IsNaN(mean) || math.IsInf(mean, 0) || math.IsNaN(stdDev) || math.IsInf(stdDev, 0) {
		return nil, Errorf(domain.ErrInvalidDistribution, "mean (%f) and standard deviation (%f) must be finite", mean, stdDev)
	}

	if stdDev < 0 {
		return nil, Errorf(domain.ErrInvalidDistribution, "negative standard deviation %f", stdDev)
	}

	if math.IsNaN(low) || math.IsNaN(upp) || low > upp {
		return nil, Errorf(domain.ErrInvalidDistribution, "invalid bounds [%f, %f]", low, upp)
	}

	dist := &TruncatedNormal{
		Mean:   mean,
		StdDev: stdDev,
		Low:    low,
		Upp:    upp,
		src:    src,
	}

	if stdDev > 0 {
		a := (low - mean) / stdDev
		b := (upp - mean) / stdDev
		if a > 0 {
			a, b = -b, -a
			dist.mirrored = true
		}

		dist.cdfLow = distuv.UnitNormal.CDF(a)
		dist.cdfUpp = distuv.UnitNormal.CDF(b)
	}

	return dist, nil
}

// Rand returns a single draw from the distribution.
func (t *TruncatedNormal) Rand() float64 {
	if t.StdDev == 0 || !(t.cdfUpp > t.cdfLow) {
		return Clamp(t.Mean, t.Low, t.Upp)
	}

	uniform := distuv.Uniform{Min: t.cdfLow, Max: t.cdfUpp, Src: t.src}
	p := Clamp(uniform.Rand(), t.cdfLow, t.cdfUpp)

	z := distuv.UnitNormal.Quantile(p)
	if t.mirrored {
		z = -z
	}

	return Clamp(t.Mean+t.StdDev*z, t.Low, t.Upp)
}

// Sample returns n independent draws from the distribution.
func (t *TruncatedNormal) Sample(n int) []float64 {
	samples := make([]float64, 0, max(n, 0))
	for i := 0; i < n; i++ {
		samples = append(samples, t.Rand())
	}

	return samples
}

func (t *TruncatedNormal) String() string {
	return fmt.Sprintf("TruncatedNormal[mean=%.4f, sd=%.4f, bounds=[%.4f, %.4f]]", t.Mean, t.StdDev, t.Low, t.Upp)
}

// SampleTruncatedNormal draws n values from the normal distribution with the given mean and
// standard deviation, truncated to [low, upp].
func SampleTruncatedNormal(mean float64, stdDev float64, low float64, upp float64, n int, src rand.Source) ([]float64, error) {
	dist, err := NewTruncatedNormal(mean, stdDev, low, upp, src)
	if err != nil {
		return nil, err
	}

	return dist.Sample(n), nil
}
