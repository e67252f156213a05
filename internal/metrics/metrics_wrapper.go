package metrics

import (
	"fmt"
	"io"

	"github.com/mattn/go-colorable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	Namespace = "workload_generator"
	Subsystem = "generator"
)

// PrometheusMetricsWrapper is a simple wrapper around the Prometheus metrics recorded while generating a workload.
//
// The metrics are registered with a registry owned by the wrapper rather than the default registry,
// so that they can be written out alongside the generated workload. All Observe/Record methods are
// safe to call on a nil *PrometheusMetricsWrapper, in which case they do nothing.
type PrometheusMetricsWrapper struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	SessionsGenerated       *prometheus.CounterVec
	TrainingEventsGenerated *prometheus.CounterVec

	// ZeroEventDraws counts the Poisson draws that produced no events, whether or not they were retried.
	ZeroEventDraws *prometheus.CounterVec

	TrainingEventsPerSession   *prometheus.HistogramVec
	TrainingEventDurationTicks *prometheus.HistogramVec

	// GenerationWallTimeSeconds is the time spent generating the sessions of a workload, excluding output.
	GenerationWallTimeSeconds *prometheus.GaugeVec
}

// NewPrometheusMetricsWrapper creates a new PrometheusMetricsWrapper struct and returns a pointer to it.
// NewPrometheusMetricsWrapper creates and registers all the metrics encapsulated by the
// PrometheusMetricsWrapper struct after creating the struct.
func NewPrometheusMetricsWrapper(atom *zap.AtomicLevel) (*PrometheusMetricsWrapper, []error) {
	metricsWrapper := &PrometheusMetricsWrapper{
		registry: prometheus.NewRegistry(),

		// Counter metrics.
		SessionsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "sessions_generated_total",
			Help:      "Number of sessions generated.",
		}, []string{"workload_id"}),
		TrainingEventsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "training_events_generated_total",
			Help:      "Number of training events generated.",
		}, []string{"workload_id"}),
		ZeroEventDraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "zero_event_draws_total",
			Help:      "Number of simulated Poisson processes that contained no events.",
		}, []string{"workload_id"}),

		// Histogram metrics.
		TrainingEventsPerSession: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "training_events_per_session",
			Help:      "Number of training events of each generated session.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
		}, []string{"workload_id"}),
		TrainingEventDurationTicks: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "training_event_duration_ticks",
			Help:      "Duration, in ticks, of each generated training event.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"workload_id"}),

		// Gauge metrics.
		GenerationWallTimeSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "generation_wall_time_seconds",
			Help:      "Time, in seconds, spent generating the sessions of the workload.",
		}, []string{"workload_id"}),
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for metrics wrapper")
	}
	metricsWrapper.logger = logger

	collectors := map[string]prometheus.Collector{
		"SessionsGenerated":          metricsWrapper.SessionsGenerated,
		"TrainingEventsGenerated":    metricsWrapper.TrainingEventsGenerated,
		"ZeroEventDraws":             metricsWrapper.ZeroEventDraws,
		"TrainingEventsPerSession":   metricsWrapper.TrainingEventsPerSession,
		"TrainingEventDurationTicks": metricsWrapper.TrainingEventDurationTicks,
		"GenerationWallTimeSeconds":  metricsWrapper.GenerationWallTimeSeconds,
	}

	errs := make([]error, 0)
	for name, collector := range collectors {
		if err := metricsWrapper.registry.Register(collector); err != nil {
			metricsWrapper.logger.Error("Failed to register Prometheus metric.", zap.String("metric", name), zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return metricsWrapper, errs
	} else {
		return metricsWrapper, nil
	}
}

// Registry returns the registry with which the metrics are registered.
func (m *PrometheusMetricsWrapper) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSession records a generated session with the given training event durations, in ticks,
// for the workload identified by the given workload ID.
func (m *PrometheusMetricsWrapper) ObserveSession(workloadId string, eventDurationTicks []int) {
	if m == nil {
		return
	}

	labels := prometheus.Labels{"workload_id": workloadId}
	m.SessionsGenerated.With(labels).Inc()
	m.TrainingEventsGenerated.With(labels).Add(float64(len(eventDurationTicks)))
	m.TrainingEventsPerSession.With(labels).Observe(float64(len(eventDurationTicks)))

	histogram := m.TrainingEventDurationTicks.With(labels)
	for _, ticks := range eventDurationTicks {
		histogram.Observe(float64(ticks))
	}
}

// RecordZeroEventDraw records a simulated Poisson process without events.
func (m *PrometheusMetricsWrapper) RecordZeroEventDraw(workloadId string) {
	if m == nil {
		return
	}

	m.ZeroEventDraws.With(prometheus.Labels{"workload_id": workloadId}).Inc()
}

// RecordGenerationWallTime records the time, in seconds, spent generating a workload.
func (m *PrometheusMetricsWrapper) RecordGenerationWallTime(workloadId string, seconds float64) {
	if m == nil {
		return
	}

	m.GenerationWallTimeSeconds.With(prometheus.Labels{"workload_id": workloadId}).Set(seconds)
}

// WriteText writes all registered metrics to w in the Prometheus text exposition format.
func (m *PrometheusMetricsWrapper) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("failed to write metric family \"%s\": %w", family.GetName(), err)
		}
	}

	return nil
}
