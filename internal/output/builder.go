package output

import (
	"time"

	"go.uber.org/zap"

	"github.com/scusemua/workload-generator/internal/domain"
	"github.com/scusemua/workload-generator/internal/metrics"
)

// ArtifactWriterBuilder is a builder for constructing an ArtifactWriter object.
type ArtifactWriterBuilder struct {
	rootDirectory string
	writeRawData  bool
	config        *domain.Configuration
	metrics       *metrics.PrometheusMetricsWrapper
	clock         func() time.Time
	atom          *zap.AtomicLevel
}

// NewArtifactWriterBuilder creates and returns a new instance of ArtifactWriterBuilder.
func NewArtifactWriterBuilder() *ArtifactWriterBuilder {
	return &ArtifactWriterBuilder{
		rootDirectory: ".",
		writeRawData:  true,
		clock:         time.Now,
	}
}

// WithRootDirectory sets the directory in which the timestamped output directory is created.
func (b *ArtifactWriterBuilder) WithRootDirectory(dir string) *ArtifactWriterBuilder {
	b.rootDirectory = dir
	return b
}

// WithRawData sets whether the raw event times, inter-arrival times, and durations are written.
func (b *ArtifactWriterBuilder) WithRawData(writeRawData bool) *ArtifactWriterBuilder {
	b.writeRawData = writeRawData
	return b
}

// WithConfiguration sets the configuration that is written to config.yaml.
func (b *ArtifactWriterBuilder) WithConfiguration(config *domain.Configuration) *ArtifactWriterBuilder {
	b.config = config
	return b
}

// WithMetrics sets the metrics that are written to metrics.prom.
func (b *ArtifactWriterBuilder) WithMetrics(metricsWrapper *metrics.PrometheusMetricsWrapper) *ArtifactWriterBuilder {
	b.metrics = metricsWrapper
	return b
}

// WithClock sets the function used to timestamp the output directory.
func (b *ArtifactWriterBuilder) WithClock(clock func() time.Time) *ArtifactWriterBuilder {
	b.clock = clock
	return b
}

// WithAtomicLevel sets the level of the ArtifactWriter's logger.
func (b *ArtifactWriterBuilder) WithAtomicLevel(atom *zap.AtomicLevel) *ArtifactWriterBuilder {
	b.atom = atom
	return b
}

// Build constructs and returns an ArtifactWriter object.
func (b *ArtifactWriterBuilder) Build() *ArtifactWriter {
	return newArtifactWriter(b.rootDirectory, b.writeRawData, b.config, b.metrics, b.clock, b.atom)
}
