package generator

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mattn/go-colorable"
)

// RoundToNearest rounds x to the nearest multiple of unit.
func RoundToNearest(x, unit float64) float64 {
	return math.Round(x/unit) * unit
}

// RoundToDecimals rounds x to the given number of decimal places.
func RoundToDecimals(x float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(x*pow) / pow
}

// Clamp restricts x to the closed interval [low, upp].
func Clamp(x, low, upp float64) float64 {
	return math.Max(low, math.Min(upp, x))
}

// CreateSplits partitions the index range [0, n) into at most parts contiguous blocks whose sizes differ by at most one.
// Each block is returned as a half-open [start, end) pair. Empty blocks are omitted.
func CreateSplits(n int, parts int) [][2]int {
	if n <= 0 || parts <= 0 {
		return [][2]int{}
	}

	k, m := n/parts, n%parts
	splits := make([][2]int, 0, parts)
	for i := 0; i < parts; i++ {
		start := i*k + min(i, m)
		end := (i+1)*k + min(i+1, m)
		if end > start {
			splits = append(splits, [2]int{start, end})
		}
	}

	return splits
}

func isSortedAscending(values []float64) bool {
	return sort.Float64sAreSorted(values)
}

func hasNonFinite(values []float64) bool {
	for _, val := range values {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return true
		}
	}

	return false
}

// newLogger creates a colored development logger gated by the given zap.AtomicLevel.
// A nil level defaults to Debug.
func newLogger(atom *zap.AtomicLevel) *zap.Logger {
	if atom == nil {
		atomStruct := zap.NewAtomicLevelAt(zapcore.DebugLevel)
		atom = &atomStruct
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for workload generator")
	}

	return logger
}
