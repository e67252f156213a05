package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/scusemua/workload-generator/internal/domain"
)

// PoissonProcess is the result of simulating a homogeneous Poisson process over a window,
// with each event carrying a Gamma-distributed duration.
//
// EventTimes are shifted so that events never overlap: each event starts after the previous
// event has finished, so EventTimes[i] - (EventTimes[i-1] + EventDurations[i-1]) equals the
// raw inter-arrival gap InterArrivalTimes[i-1].
type PoissonProcess struct {
	Rate      float64
	Duration  float64
	NumEvents int

	EventTimes        []float64
	InterArrivalTimes []float64
	EventDurations    []float64
}

func (p *PoissonProcess) String() string {
	return fmt.Sprintf("PoissonProcess[rate=%.4f, duration=%.2f, events=%d]", p.Rate, p.Duration, p.NumEvents)
}

// MeanInterArrivalTime returns the mean raw inter-arrival gap, or 0 if there are fewer than two events.
func (p *PoissonProcess) MeanInterArrivalTime() float64 {
	if len(p.InterArrivalTimes) == 0 {
		return 0
	}

	return stat.Mean(p.InterArrivalTimes, nil)
}

// MeanEventDuration returns the mean event duration, or 0 if there are no events.
func (p *PoissonProcess) MeanEventDuration() float64 {
	if len(p.EventDurations) == 0 {
		return 0
	}

	return stat.Mean(p.EventDurations, nil)
}

// Validate checks the structural properties of the process.
// The returned error wraps domain.ErrMalformedSimulation or domain.ErrInconsistentTimeline.
func (p *PoissonProcess) Validate() error {
	if p.NumEvents < 1 {
		return Errorf(domain.ErrMalformedSimulation, "process has %d event(s)", p.NumEvents)
	}

	if len(p.EventTimes) != p.NumEvents || len(p.EventDurations) != p.NumEvents || len(p.InterArrivalTimes) != p.NumEvents-1 {
		return Errorf(domain.ErrMalformedSimulation, "expected %d event times, %d durations, and %d inter-arrival times; got %d, %d, and %d",
			p.NumEvents, p.NumEvents, p.NumEvents-1, len(p.EventTimes), len(p.EventDurations), len(p.InterArrivalTimes))
	}

	if hasNonFinite(p.EventTimes) || hasNonFinite(p.EventDurations) || hasNonFinite(p.InterArrivalTimes) {
		return Errorf(domain.ErrMalformedSimulation, "process contains non-finite values")
	}

	for idx, duration := range p.EventDurations {
		if duration < 0 {
			return Errorf(domain.ErrMalformedSimulation, "event %d has negative duration %f", idx, duration)
		}
	}

	if !isSortedAscending(p.EventTimes) {
		return Errorf(domain.ErrInconsistentTimeline, "event times are not sorted")
	}

	return nil
}

// PoissonSimulator simulates Poisson processes whose events carry Gamma(Shape, Scale) durations.
type PoissonSimulator struct {
	Shape float64
	Scale float64

	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
}

func NewPoissonSimulator(shape float64, scale float64, atom *zap.AtomicLevel) (*PoissonSimulator, error) {
	if !(shape > 0) || !(scale > 0) || math.IsInf(shape, 0) || math.IsInf(scale, 0) {
		return nil, Errorf(domain.ErrInvalidDistribution, "gamma shape (%f) and scale (%f) must be positive", shape, scale)
	}

	simulator := &PoissonSimulator{
		Shape: shape,
		Scale: scale,
	}
	simulator.logger = newLogger(atom)
	simulator.sugaredLogger = simulator.logger.Sugar()

	return simulator, nil
}

// Simulate draws a Poisson process with the given rate, in events per unit of time, over [1, duration].
//
// The number of events is drawn from Poisson(rate * duration). The raw arrival times are that many
// sorted uniform draws from [1, duration], and each event is delayed by the total duration of the
// events before it. Simulate returns an error wrapping domain.ErrNoEvents if no events were drawn.
func (s *PoissonSimulator) Simulate(rate float64, duration float64, src rand.Source) (*PoissonProcess, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return nil, Errorf(domain.ErrInvalidDistribution, "invalid rate %f", rate)
	}

	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 1 {
		return nil, Errorf(domain.ErrInvalidDistribution, "duration must be at least 1 (got %f)", duration)
	}

	poisson := distuv.Poisson{Lambda: rate * duration, Src: src}
	numEvents := int(poisson.Rand())
	if numEvents == 0 {
		return nil, Errorf(domain.ErrNoEvents, "rate=%f, duration=%f", rate, duration)
	}

	uniform := distuv.Uniform{Min: 1, Max: duration, Src: src}
	rawTimes := make([]float64, numEvents)
	for i := range rawTimes {
		rawTimes[i] = uniform.Rand()
	}
	sort.Float64s(rawTimes)

	interArrivalTimes := make([]float64, numEvents-1)
	for i := 1; i < numEvents; i++ {
		interArrivalTimes[i-1] = rawTimes[i] - rawTimes[i-1]
	}

	gamma := distuv.Gamma{Alpha: s.Shape, Beta: 1 / s.Scale, Src: src}
	durations := make([]float64, numEvents)
	for i := range durations {
		durations[i] = gamma.Rand()
	}

	// cumulative[i] is the total duration of events 0 through i.
	cumulative := floats.CumSum(make([]float64, numEvents), durations)
	eventTimes := make([]float64, numEvents)
	eventTimes[0] = rawTimes[0]
	for i := 1; i < numEvents; i++ {
		eventTimes[i] = rawTimes[i] + cumulative[i-1]
	}

	process := &PoissonProcess{
		Rate:              rate,
		Duration:          duration,
		NumEvents:         numEvents,
		EventTimes:        eventTimes,
		InterArrivalTimes: interArrivalTimes,
		EventDurations:    durations,
	}

	s.sugaredLogger.Debugf("Simulated %v. Mean IAT: %.4f. Mean event duration: %.4f.",
		process, process.MeanInterArrivalTime(), process.MeanEventDuration())

	return process, nil
}

// SimulateAll simulates one process per rate, in order. All processes share src.
func (s *PoissonSimulator) SimulateAll(rates []float64, duration float64, src rand.Source) ([]*PoissonProcess, error) {
	processes := make([]*PoissonProcess, 0, len(rates))
	for _, rate := range rates {
		process, err := s.Simulate(rate, duration, src)
		if err != nil {
			return nil, err
		}

		processes = append(processes, process)
	}

	return processes, nil
}

// ResolveRates returns the arrival rates to simulate.
//
// Rates take precedence: if any are given, they are returned as-is. Otherwise, one rate is derived
// from each positive inter-arrival time as 1/iat; non-positive inter-arrival times are ignored.
// ResolveRates returns an error wrapping domain.ErrMissingRate if no rate can be resolved.
func ResolveRates(rates []float64, interArrivalTimes []float64) ([]float64, error) {
	if len(rates) > 0 {
		for _, rate := range rates {
			if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
				return nil, Errorf(domain.ErrInvalidConfiguration, "invalid rate %f", rate)
			}
		}

		return append([]float64(nil), rates...), nil
	}

	resolved := make([]float64, 0, len(interArrivalTimes))
	for _, iat := range interArrivalTimes {
		if iat > 0 && !math.IsInf(iat, 0) {
			resolved = append(resolved, 1/iat)
		}
	}

	if len(resolved) == 0 {
		return nil, Errorf(domain.ErrMissingRate, "neither a rate nor a positive inter-arrival time was given")
	}

	return resolved, nil
}
