package generator

import (
	"math"
	"math/rand/v2"
	"os"

	"github.com/zhangjyr/gocsv"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/scusemua/workload-generator/internal/domain"
)

const (
	// GigabytesPerGPU is the amount of VRAM, in GB, of a single GPU.
	GigabytesPerGPU = 4.0

	// VramQuantumGB is the granularity to which sampled VRAM demands are rounded.
	VramQuantumGB = 0.125
)

// CDFPoint is a single row of an empirical cumulative distribution table.
type CDFPoint struct {
	Value                float64 `csv:"utilization"`
	CumulativeProbability float64 `csv:"cumulative_probability"`
}

// CDFTable is an empirical CDF, given as (value, cumulative probability) pairs in order.
type CDFTable []*CDFPoint

// Validate checks that the table describes a proper, monotone CDF.
// The returned error wraps domain.ErrMalformedDistributionTable.
func (t CDFTable) Validate() error {
	if len(t) < 2 {
		return Errorf(domain.ErrMalformedDistributionTable, "table has %d row(s), at least 2 are required", len(t))
	}

	for idx, point := range t {
		if point == nil {
			return Errorf(domain.ErrMalformedDistributionTable, "row %d is empty", idx)
		}

		if math.IsNaN(point.Value) || math.IsInf(point.Value, 0) {
			return Errorf(domain.ErrMalformedDistributionTable, "row %d has non-finite value %f", idx, point.Value)
		}

		if math.IsNaN(point.CumulativeProbability) || point.CumulativeProbability < 0 || point.CumulativeProbability > 1 {
			return Errorf(domain.ErrMalformedDistributionTable, "row %d has probability %f outside of [0, 1]",
				idx, point.CumulativeProbability)
		}

		if idx == 0 {
			continue
		}

		prev := t[idx-1]
		if point.CumulativeProbability <= prev.CumulativeProbability {
			return Errorf(domain.ErrMalformedDistributionTable, "probabilities are not strictly increasing at row %d (%f <= %f)",
				idx, point.CumulativeProbability, prev.CumulativeProbability)
		}

		if point.Value < prev.Value {
			return Errorf(domain.ErrMalformedDistributionTable, "values are decreasing at row %d (%f < %f)",
				idx, point.Value, prev.Value)
		}
	}

	return nil
}

// LoadCDFTable reads an empirical CDF from the CSV file at the given path.
// The file must have the columns "utilization" and "cumulative_probability".
func LoadCDFTable(path string) (CDFTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Errorf(domain.ErrMalformedDistributionTable, "failed to open \"%s\": %v", path, err)
	}
	defer file.Close()

	var table CDFTable
	if err := gocsv.UnmarshalFile(file, &table); err != nil {
		return nil, Errorf(domain.ErrMalformedDistributionTable, "failed to parse \"%s\": %v", path, err)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}

	return table, nil
}

// InverseTransformSampler draws values from an empirical CDF by inverse-transform sampling.
//
// The table is fitted once with a piecewise-linear interpolant mapping cumulative probability
// to value. Probabilities outside of the table's range are extrapolated linearly from the
// outermost segments. An InverseTransformSampler is immutable and may be shared by goroutines;
// each caller supplies its own random source.
type InverseTransformSampler struct {
	probabilities []float64
	values        []float64
	interpolant   interp.PiecewiseLinear
}

func NewInverseTransformSampler(table CDFTable) (*InverseTransformSampler, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	sampler := &InverseTransformSampler{
		probabilities: make([]float64, 0, len(table)),
		values:        make([]float64, 0, len(table)),
	}
	for _, point := range table {
		sampler.probabilities = append(sampler.probabilities, point.CumulativeProbability)
		sampler.values = append(sampler.values, point.Value)
	}

	if err := sampler.interpolant.Fit(sampler.probabilities, sampler.values); err != nil {
		return nil, Errorf(domain.ErrMalformedDistributionTable, "failed to fit interpolant: %v", err)
	}

	return sampler, nil
}

// Quantile maps the cumulative probability p to a value.
func (s *InverseTransformSampler) Quantile(p float64) float64 {
	n := len(s.probabilities)
	switch {
	case p < s.probabilities[0]:
		return extrapolate(s.probabilities[0], s.values[0], s.probabilities[1], s.values[1], p)
	case p > s.probabilities[n-1]:
		return extrapolate(s.probabilities[n-2], s.values[n-2], s.probabilities[n-1], s.values[n-1], p)
	default:
		return s.interpolant.Predict(p)
	}
}

// Rand returns a single draw, using src as the source of uniform probabilities.
func (s *InverseTransformSampler) Rand(src rand.Source) float64 {
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}
	return s.Quantile(uniform.Rand())
}

// Sample returns n independent draws.
func (s *InverseTransformSampler) Sample(n int, src rand.Source) []float64 {
	samples := make([]float64, 0, max(n, 0))
	for i := 0; i < n; i++ {
		samples = append(samples, s.Rand(src))
	}

	return samples
}

// SampleInverseTransform draws n values from the empirical CDF described by table.
func SampleInverseTransform(table CDFTable, n int, src rand.Source) ([]float64, error) {
	sampler, err := NewInverseTransformSampler(table)
	if err != nil {
		return nil, err
	}

	return sampler.Sample(n, src), nil
}

func extrapolate(x0, y0, x1, y1, x float64) float64 {
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// SampleVramGB returns the VRAM demand, in GB, of a training event that uses numGPUs GPUs.
//
// With a sampler, the result is numGPUs * GigabytesPerGPU * u, where u is drawn from the
// empirical utilization distribution, rounded to the nearest VramQuantumGB. Without one,
// u is drawn uniformly from [0, 1). The result is never negative.
func SampleVramGB(numGPUs int, sampler *InverseTransformSampler, src rand.Source) float64 {
	capacity := float64(numGPUs) * GigabytesPerGPU

	if sampler == nil {
		uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}
		return math.Max(0, capacity*uniform.Rand())
	}

	return math.Max(0, RoundToNearest(capacity*sampler.Rand(src), VramQuantumGB))
}
