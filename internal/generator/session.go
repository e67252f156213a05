package generator

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scusemua/workload-generator/internal/domain"
)

const (
	// MinimumResourceValue is the lower bound of every truncated-normal resource draw.
	MinimumResourceValue = 1e-3

	// TimelineTolerance is the largest accepted difference between a raw inter-arrival time
	// and the gap between the end of one event and the start of the next.
	TimelineTolerance = 1e-8

	meanGpuUtilization   = 50.0
	stdDevGpuUtilization = 10.0
	maxGpuUtilization    = 100.0
)

// ResourceCeilings are the per-session maxima that bound the demand of a session's training events.
type ResourceCeilings struct {
	MaxMillicpus float64 `csv:"max_millicpus"`
	MaxMemoryMB  float64 `csv:"max_mem_mb"`
	NumGPUs      int     `csv:"num_gpus"`
}

func (c ResourceCeilings) String() string {
	return fmt.Sprintf("ResourceCeilings[millicpus=%.2f, memory=%.2f MB, gpus=%d]", c.MaxMillicpus, c.MaxMemoryMB, c.NumGPUs)
}

// Validate returns an error wrapping domain.ErrInvalidConfiguration if the ceilings cannot bound a session.
func (c ResourceCeilings) Validate() error {
	if !(c.MaxMillicpus > 0) || math.IsInf(c.MaxMillicpus, 0) || !(c.MaxMemoryMB > 0) || math.IsInf(c.MaxMemoryMB, 0) || c.NumGPUs < 0 {
		return Errorf(domain.ErrInvalidConfiguration, "invalid %v", c)
	}

	return nil
}

// SampleSessionCeilings draws the resource ceilings of n sessions.
//
// The CPU and memory ceilings are drawn from a normal distribution centred at 15% of the respective
// maximum, truncated to [MinimumResourceValue, maximum]. The GPU count is the integer part of a
// draw from a normal distribution centred at 1.5, truncated to [1, maxGPUs].
func SampleSessionCeilings(n int, maxMillicpus float64, maxMemoryMB float64, maxGPUs int, src rand.Source) ([]ResourceCeilings, error) {
	cpuDist, err := NewTruncatedNormal(0.15*maxMillicpus, 0.05*maxMillicpus, math.Min(MinimumResourceValue, maxMillicpus), maxMillicpus, src)
	if err != nil {
		return nil, err
	}

	memDist, err := NewTruncatedNormal(0.15*maxMemoryMB, 0.05*maxMemoryMB, math.Min(MinimumResourceValue, maxMemoryMB), maxMemoryMB, src)
	if err != nil {
		return nil, err
	}

	gpuDist, err := NewTruncatedNormal(1.5, 1.5, 1, float64(maxGPUs), src)
	if err != nil {
		return nil, err
	}

	ceilings := make([]ResourceCeilings, 0, max(n, 0))
	for i := 0; i < n; i++ {
		ceilings = append(ceilings, ResourceCeilings{
			MaxMillicpus: cpuDist.Rand(),
			MaxMemoryMB:  memDist.Rand(),
			NumGPUs:      int(gpuDist.Rand()),
		})
	}

	return ceilings, nil
}

// Session is an ordered sequence of training events submitted by a single tenant.
// A Session is immutable once built.
type Session struct {
	id        string
	startTick int
	endTick   int
	events    []*TrainingEvent
	process   *PoissonProcess
	ceilings  ResourceCeilings
	maxVramGB float64
}

func (s *Session) Id() string { return s.id }

func (s *Session) StartTick() int { return s.startTick }

// EndTick is the tick at which the session terminates, SessionCooldownTicks after its last event ends.
func (s *Session) EndTick() int { return s.endTick }

func (s *Session) NumTrainingEvents() int { return len(s.events) }

func (s *Session) Ceilings() ResourceCeilings { return s.ceilings }

func (s *Session) MaxMillicpus() float64 { return s.ceilings.MaxMillicpus }

func (s *Session) MaxMemoryMB() float64 { return s.ceilings.MaxMemoryMB }

func (s *Session) NumGPUs() int { return s.ceilings.NumGPUs }

// MaxVramGB is the largest VRAM demand of any of the session's training events.
func (s *Session) MaxVramGB() float64 { return s.maxVramGB }

// TrainingEvents returns the session's training events in order.
func (s *Session) TrainingEvents() []*TrainingEvent {
	return append([]*TrainingEvent(nil), s.events...)
}

// EventTimes returns a copy of the (shifted) event times the session was built from.
func (s *Session) EventTimes() []float64 {
	return append([]float64(nil), s.process.EventTimes...)
}

// InterArrivalTimes returns a copy of the raw inter-arrival times the session was built from.
func (s *Session) InterArrivalTimes() []float64 {
	return append([]float64(nil), s.process.InterArrivalTimes...)
}

// EventDurations returns a copy of the event durations the session was built from.
func (s *Session) EventDurations() []float64 {
	return append([]float64(nil), s.process.EventDurations...)
}

func (s *Session) MeanInterArrivalTime() float64 { return s.process.MeanInterArrivalTime() }

func (s *Session) MeanEventDuration() float64 { return s.process.MeanEventDuration() }

func (s *Session) String() string {
	return fmt.Sprintf("Session[id=%s, ticks=%d-%d, events=%d, %v, maxVram=%.3f GB]",
		s.id, s.startTick, s.endTick, len(s.events), s.ceilings, s.maxVramGB)
}

// Template converts the session to its serialized form.
func (s *Session) Template() *domain.WorkloadTemplateSession {
	trainings := make([]*domain.TrainingEvent, 0, len(s.events))
	for _, event := range s.events {
		trainings = append(trainings, event.Template())
	}

	return &domain.WorkloadTemplateSession{
		Id:                s.id,
		StartTick:         s.startTick,
		StopTick:          s.endTick,
		NumTrainingEvents: len(trainings),
		Trainings:         trainings,
	}
}

// SessionBuilder turns a simulated Poisson process into a Session, sampling the demand of every event.
type SessionBuilder struct {
	// vramSampler is the optional empirical VRAM utilization distribution.
	vramSampler *InverseTransformSampler

	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
}

// NewSessionBuilder creates a SessionBuilder. If vramSampler is nil, VRAM utilization is drawn uniformly.
func NewSessionBuilder(vramSampler *InverseTransformSampler, atom *zap.AtomicLevel) *SessionBuilder {
	builder := &SessionBuilder{
		vramSampler: vramSampler,
	}
	builder.logger = newLogger(atom)
	builder.sugaredLogger = builder.logger.Sugar()

	return builder
}

// Build assembles a Session from the given process and ceilings, drawing all randomness, including
// the session's UUID, from src.
func (b *SessionBuilder) Build(process *PoissonProcess, ceilings ResourceCeilings, src *rand.Rand) (*Session, error) {
	if process == nil {
		return nil, Errorf(domain.ErrMalformedSimulation, "no process given")
	}

	if err := process.Validate(); err != nil {
		return nil, err
	}

	if err := ceilings.Validate(); err != nil {
		return nil, err
	}

	if err := checkTimeline(process); err != nil {
		return nil, err
	}

	n := process.NumEvents
	numGPUs := ceilings.NumGPUs

	cpuDist, err := NewTruncatedNormal(ceilings.MaxMillicpus/2, 0.1*ceilings.MaxMillicpus,
		math.Min(MinimumResourceValue, ceilings.MaxMillicpus), ceilings.MaxMillicpus, src)
	if err != nil {
		return nil, err
	}

	memDist, err := NewTruncatedNormal(ceilings.MaxMemoryMB/2, 0.1*ceilings.MaxMemoryMB,
		math.Min(MinimumResourceValue, ceilings.MaxMemoryMB), ceilings.MaxMemoryMB, src)
	if err != nil {
		return nil, err
	}

	gpuDist, err := NewTruncatedNormal(meanGpuUtilization, stdDevGpuUtilization, MinimumResourceValue, maxGpuUtilization, src)
	if err != nil {
		return nil, err
	}

	cpus := cpuDist.Sample(n)
	mems := memDist.Sample(n)
	utils := gpuDist.Sample(n * numGPUs)

	id, err := uuid.NewRandomFromReader(&randReader{src: src})
	if err != nil {
		return nil, Errorf(domain.ErrMalformedSimulation, "failed to generate session ID: %v", err)
	}

	session := &Session{
		id:       id.String(),
		events:   make([]*TrainingEvent, 0, n),
		process:  process,
		ceilings: ceilings,
	}

	for i := 0; i < n; i++ {
		eventUtils := make([]float64, 0, numGPUs)
		for _, util := range utils[i*numGPUs : (i+1)*numGPUs] {
			eventUtils = append(eventUtils, RoundToDecimals(util, 2))
		}

		vram := SampleVramGB(numGPUs, b.vramSampler, src)
		session.maxVramGB = math.Max(session.maxVramGB, vram)

		event, err := NewTrainingEvent(process.EventTimes[i], process.EventDurations[i],
			math.Floor(cpus[i]), math.Min(RoundToDecimals(mems[i], 4), ceilings.MaxMemoryMB), eventUtils, vram)
		if err != nil {
			return nil, err
		}

		session.events = append(session.events, event)
	}

	first := session.events[0]
	last := session.events[n-1]
	session.endTick = last.EndingTick() + domain.SessionCooldownTicks
	session.startTick = 1 + src.IntN(first.StartingTick())

	b.logger.Debug("Built session.",
		zap.String("session_id", session.id),
		zap.Int("num_events", n),
		zap.Int("num_gpus", numGPUs),
		zap.Int("start_tick", session.startTick),
		zap.Int("end_tick", session.endTick),
		zap.Float64("max_vram_gb", session.maxVramGB))

	return session, nil
}

// checkTimeline verifies that every event starts exactly one raw inter-arrival time after the previous event ends.
func checkTimeline(process *PoissonProcess) error {
	times := process.EventTimes
	durations := process.EventDurations
	for i := 1; i < len(times); i++ {
		gap := times[i] - (times[i-1] + durations[i-1])
		if diff := math.Abs(process.InterArrivalTimes[i-1] - gap); diff >= TimelineTolerance {
			return Errorf(domain.ErrInconsistentTimeline, "event %d starts %.10f after event %d ends, but the inter-arrival time is %.10f",
				i, gap, i-1, process.InterArrivalTimes[i-1])
		}
	}

	return nil
}
