package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scusemua/workload-generator/internal/domain"
	"github.com/scusemua/workload-generator/internal/metrics"
	"github.com/scusemua/workload-generator/pkg/statistics"
)

// GenerationResult is the outcome of a successful generation run.
type GenerationResult struct {
	Workload *Workload

	// Ceilings are the resource ceilings of the sessions, in session order.
	Ceilings []ResourceCeilings

	// Seed is the master seed that was used. Reusing it reproduces the run.
	Seed int64

	Rates    []float64
	WallTime time.Duration
}

// WorkloadGenerator generates a synthetic workload as described by a domain.Configuration.
type WorkloadGenerator struct {
	opts         *domain.Configuration
	workloadName string
	rates        []float64
	deriver      *SeedDeriver

	simulator *PoissonSimulator
	builder   *SessionBuilder
	metrics   *metrics.PrometheusMetricsWrapper

	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
}

// NewWorkloadGenerator validates the configuration and creates a WorkloadGenerator.
//
// If the configuration names a VRAM CDF file, it is loaded and fitted here. The metrics wrapper is optional.
// A configured seed of 0 is replaced by a time-based seed, which is reported in the GenerationResult.
func NewWorkloadGenerator(opts *domain.Configuration, metricsWrapper *metrics.PrometheusMetricsWrapper, atom *zap.AtomicLevel) (*WorkloadGenerator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	rates, err := ResolveRates(opts.Rates, opts.InterArrivalTimes)
	if err != nil {
		return nil, err
	}

	simulator, err := NewPoissonSimulator(opts.Shape, opts.Scale, atom)
	if err != nil {
		return nil, err
	}

	var vramSampler *InverseTransformSampler
	if opts.VramCdfFile != "" {
		table, err := LoadCDFTable(opts.VramCdfFile)
		if err != nil {
			return nil, err
		}

		if vramSampler, err = NewInverseTransformSampler(table); err != nil {
			return nil, err
		}
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	workloadName := opts.WorkloadName
	if workloadName == "" {
		workloadName = uuid.NewString()
	}

	generator := &WorkloadGenerator{
		opts:         opts,
		workloadName: workloadName,
		rates:        rates,
		deriver:      NewSeedDeriver(seed),
		simulator:    simulator,
		builder:      NewSessionBuilder(vramSampler, atom),
		metrics:      metricsWrapper,
	}
	generator.logger = newLogger(atom)
	generator.sugaredLogger = generator.logger.Sugar()

	generator.logger.Info("Created workload generator.",
		zap.String("workload_name", workloadName),
		zap.Int64("seed", seed),
		zap.Float64s("rates", rates),
		zap.Int("num_sessions", opts.NumSessions),
		zap.Int("num_procs", opts.NumProcs),
		zap.Bool("empirical_vram", vramSampler != nil))

	return generator, nil
}

// Seed returns the master seed used by the generator.
func (g *WorkloadGenerator) Seed() int64 {
	return g.deriver.Seed()
}

// WorkloadName returns the name that will be given to the generated workload.
func (g *WorkloadGenerator) WorkloadName() string {
	return g.workloadName
}

// Generate generates all sessions and assembles them into a workload.
//
// Sessions are partitioned into contiguous blocks, one per worker, and generated concurrently. Each session
// draws from its own random stream, so the result for a given seed does not depend on the number of workers.
// The first error cancels the remaining workers and is returned.
func (g *WorkloadGenerator) Generate(ctx context.Context) (*GenerationResult, error) {
	startTime := time.Now()
	numSessions := g.opts.NumSessions

	ceilings, err := SampleSessionCeilings(numSessions, g.opts.MaxSessionMillicpus, g.opts.MaxSessionMemoryMB,
		g.opts.MaxSessionNumGPUs, g.deriver.ForSubsystem(SubsystemCeilings))
	if err != nil {
		return nil, err
	}

	sessions := make([]*Session, numSessions)
	group, groupCtx := errgroup.WithContext(ctx)
	for workerId, split := range CreateSplits(numSessions, g.opts.NumProcs) {
		workerId, start, end := workerId, split[0], split[1]
		group.Go(func() error {
			g.sugaredLogger.Debugf("Worker %d is generating sessions [%d, %d).", workerId, start, end)
			for idx := start; idx < end; idx++ {
				if err := groupCtx.Err(); err != nil {
					return err
				}

				session, err := g.generateSession(idx, ceilings[idx])
				if err != nil {
					return fmt.Errorf("failed to generate session #%d: %w", idx, err)
				}

				sessions[idx] = session
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		g.logger.Error("Workload generation failed.", zap.String("workload_name", g.workloadName), zap.Error(err))
		return nil, err
	}

	knobs := WorkloadKnobs{
		Seed:                      g.opts.WorkloadSeed,
		TimescaleAdjustmentFactor: g.opts.TimescaleAdjustmentFactor,
		DebugLoggingEnabled:       g.opts.DebugLoggingEnabled,
	}
	workload, err := AssembleWorkload(sessions, g.workloadName, knobs)
	if err != nil {
		return nil, err
	}

	wallTime := time.Since(startTime)
	g.metrics.RecordGenerationWallTime(g.workloadName, wallTime.Seconds())

	result := &GenerationResult{
		Workload: workload,
		Ceilings: ceilings,
		Seed:     g.Seed(),
		Rates:    append([]float64(nil), g.rates...),
		WallTime: wallTime,
	}
	g.logDiagnostics(result)

	return result, nil
}

// generateSession simulates and builds the session with the given index, applying the zero-event policy.
func (g *WorkloadGenerator) generateSession(idx int, ceilings ResourceCeilings) (*Session, error) {
	src := g.deriver.ForSession(idx)
	rate := g.rates[0]

	maxAttempts := 1
	if g.opts.ZeroEventPolicy == domain.ZeroEventPolicyRetry {
		maxAttempts += g.opts.MaxZeroEventRetries
	}

	var (
		process *PoissonProcess
		err     error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		process, err = g.simulator.Simulate(rate, g.opts.TimeDuration, src)
		if err == nil {
			break
		}

		if !errors.Is(err, domain.ErrNoEvents) {
			return nil, err
		}

		g.metrics.RecordZeroEventDraw(g.workloadName)
		g.logger.Warn("Simulated Poisson process has no events.",
			zap.Int("session_index", idx),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.String("policy", g.opts.ZeroEventPolicy))
	}

	if err != nil {
		return nil, err
	}

	session, err := g.builder.Build(process, ceilings, src)
	if err != nil {
		return nil, err
	}

	durations := make([]int, 0, session.NumTrainingEvents())
	for _, event := range session.events {
		durations = append(durations, event.DurationTicks())
	}
	g.metrics.ObserveSession(g.workloadName, durations)

	return session, nil
}

// logDiagnostics logs aggregate statistics of the generated workload.
func (g *WorkloadGenerator) logDiagnostics(result *GenerationResult) {
	iats := statistics.NewSummary()
	durations := statistics.NewSummary()
	for _, session := range result.Workload.Sessions() {
		for _, iat := range session.InterArrivalTimes() {
			iats.AddFloat(iat)
		}

		for _, duration := range session.EventDurations() {
			durations.AddFloat(duration)
		}
	}

	cpus := statistics.NewSummary()
	mems := statistics.NewSummary()
	gpus := statistics.NewSummary()
	for _, ceiling := range result.Ceilings {
		cpus.AddFloat(ceiling.MaxMillicpus)
		mems.AddFloat(ceiling.MaxMemoryMB)
		gpus.AddFloat(float64(ceiling.NumGPUs))
	}

	g.sugaredLogger.Infof("Generated workload \"%s\" with %d session(s) and %d training event(s) in %v.",
		result.Workload.Name(), result.Workload.NumSessions(), result.Workload.NumTrainingEvents(), result.WallTime)
	g.sugaredLogger.Infof("Inter-arrival times: mean=%s, std=%s (n=%d).",
		iats.Avg().StringFixed(4), iats.PopulationStandardDeviation().StringFixed(4), iats.N())
	g.sugaredLogger.Infof("Event durations: mean=%s, std=%s (n=%d).",
		durations.Avg().StringFixed(4), durations.PopulationStandardDeviation().StringFixed(4), durations.N())
	g.sugaredLogger.Infof("Session millicpus: mean=%s, std=%s. Session memory (MB): mean=%s, std=%s. Session GPUs: mean=%s, std=%s.",
		cpus.Avg().StringFixed(2), cpus.PopulationStandardDeviation().StringFixed(2),
		mems.Avg().StringFixed(2), mems.PopulationStandardDeviation().StringFixed(2),
		gpus.Avg().StringFixed(2), gpus.PopulationStandardDeviation().StringFixed(2))
}
