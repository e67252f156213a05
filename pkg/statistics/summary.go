package statistics

import (
	"math"

	"github.com/shopspring/decimal"
)

// Summary accumulates the count, sum, sum of squares, minimum, and maximum of a stream of values.
// All accessors return zero for an empty Summary.
type Summary struct {
	n          int64
	sum        decimal.Decimal
	sumSquares decimal.Decimal
	min        decimal.Decimal
	max        decimal.Decimal
}

func NewSummary() *Summary {
	return &Summary{
		sum:        decimal.Zero,
		sumSquares: decimal.Zero,
		min:        decimal.Zero,
		max:        decimal.Zero,
	}
}

// NewSummaryFromFloats returns a Summary of the given values.
func NewSummaryFromFloats(values []float64) *Summary {
	summary := NewSummary()
	for _, val := range values {
		summary.AddFloat(val)
	}

	return summary
}

func (s *Summary) Add(val decimal.Decimal) {
	if s.n == 0 || val.LessThan(s.min) {
		s.min = val
	}

	if s.n == 0 || val.GreaterThan(s.max) {
		s.max = val
	}

	s.sum = s.sum.Add(val)
	s.sumSquares = s.sumSquares.Add(val.Mul(val))
	s.n += 1
}

// AddFloat adds val to the summary. NaN and infinite values are ignored.
func (s *Summary) AddFloat(val float64) {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return
	}

	s.Add(decimal.NewFromFloat(val))
}

func (s *Summary) N() int64 {
	return s.n
}

func (s *Summary) Sum() decimal.Decimal {
	return s.sum
}

func (s *Summary) Min() decimal.Decimal {
	return s.min
}

func (s *Summary) Max() decimal.Decimal {
	return s.max
}

func (s *Summary) Avg() decimal.Decimal {
	if s.n == 0 {
		return decimal.Zero
	}

	return s.sum.Div(decimal.NewFromInt(s.n))
}

// squaredDeviations returns the sum of squared deviations from the mean.
func (s *Summary) squaredDeviations() decimal.Decimal {
	if s.n == 0 {
		return decimal.Zero
	}

	deviations := s.sumSquares.Sub(s.sum.Mul(s.sum).Div(decimal.NewFromInt(s.n)))
	if deviations.IsNegative() {
		return decimal.Zero
	}

	return deviations
}

// PopulationVariance computes and returns the population variance of the values added so far.
func (s *Summary) PopulationVariance() decimal.Decimal {
	if s.n == 0 {
		return decimal.Zero
	}

	return s.squaredDeviations().Div(decimal.NewFromInt(s.n))
}

// SampleVariance computes and returns the sample variance of the values added so far.
// It is zero when fewer than two values were added.
func (s *Summary) SampleVariance() decimal.Decimal {
	if s.n < 2 {
		return decimal.Zero
	}

	return s.squaredDeviations().Div(decimal.NewFromInt(s.n - 1))
}

func (s *Summary) PopulationStandardDeviation() decimal.Decimal {
	return sqrt(s.PopulationVariance())
}

func (s *Summary) SampleStandardDeviation() decimal.Decimal {
	return sqrt(s.SampleVariance())
}

func sqrt(val decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(math.Sqrt(val.InexactFloat64()))
}
