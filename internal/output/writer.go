package output

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-colorable"
	"github.com/zhangjyr/gocsv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"

	"github.com/scusemua/workload-generator/internal/domain"
	"github.com/scusemua/workload-generator/internal/generator"
	"github.com/scusemua/workload-generator/internal/metrics"
)

const (
	TemplateFile         = "template.json"
	ConfigFile           = "config.yaml"
	MetricsFile          = "metrics.prom"
	SessionResourcesFile = "session_resources.csv"
	SessionSummaryFile   = "session_summary.csv"
	RawDataDirectory     = "raw_data"

	InterArrivalTimesFile = "inter_arrival_times.txt"
	EventTimesFile        = "event_times.txt"
	EventDurationsFile    = "event_durations.txt"

	// DirectoryTimestampLayout is the layout of the timestamp in the name of the output directory.
	DirectoryTimestampLayout = "2006-01-02_15-04-05"
)

var (
	ErrOutputDirectoryExists = errors.New("output directory already exists")
)

// SessionResourcesRow is a row of session_resources.csv.
type SessionResourcesRow struct {
	SessionIndex int     `csv:"session_index"`
	SessionId    string  `csv:"session_id"`
	MaxMillicpus float64 `csv:"max_millicpus"`
	MaxMemoryMB  float64 `csv:"max_mem_mb"`
	NumGPUs      int     `csv:"num_gpus"`
	MaxVramGB    float64 `csv:"max_vram_gb"`
}

// SessionSummaryRow is a row of session_summary.csv.
type SessionSummaryRow struct {
	SessionId            string  `csv:"session_id"`
	StartTick            int     `csv:"start_tick"`
	StopTick             int     `csv:"stop_tick"`
	NumTrainingEvents    int     `csv:"num_training_events"`
	MeanInterArrivalTime float64 `csv:"mean_inter_arrival_time"`
	MeanEventDuration    float64 `csv:"mean_event_duration"`
}

// ArtifactWriter writes a generated workload, together with the data it was generated from,
// to a new timestamped directory.
type ArtifactWriter struct {
	rootDirectory string
	writeRawData  bool
	config        *domain.Configuration
	metrics       *metrics.PrometheusMetricsWrapper
	clock         func() time.Time

	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
}

func newArtifactWriter(rootDirectory string, writeRawData bool, config *domain.Configuration,
	metricsWrapper *metrics.PrometheusMetricsWrapper, clock func() time.Time, atom *zap.AtomicLevel) *ArtifactWriter {

	if atom == nil {
		atomStruct := zap.NewAtomicLevelAt(zapcore.InfoLevel)
		atom = &atomStruct
	}

	writer := &ArtifactWriter{
		rootDirectory: rootDirectory,
		writeRawData:  writeRawData,
		config:        config,
		metrics:       metricsWrapper,
		clock:         clock,
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	writer.logger = zap.New(core, zap.Development())
	writer.sugaredLogger = writer.logger.Sugar()

	return writer
}

// Write creates the output directory and writes all artifacts of the given result into it.
// It returns the path of the output directory. If any artifact cannot be written, the directory is removed.
func (w *ArtifactWriter) Write(result *generator.GenerationResult) (string, error) {
	dir, err := w.createOutputDirectory()
	if err != nil {
		return "", err
	}

	w.logger.Info("Writing workload.", zap.String("directory", dir), zap.String("workload_name", result.Workload.Name()))

	if err := w.writeArtifacts(dir, result); err != nil {
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			w.logger.Error("Failed to remove partially-written output directory.",
				zap.String("directory", dir), zap.Error(removeErr))
		}

		return "", err
	}

	w.sugaredLogger.Infof("Wrote workload \"%s\" to directory \"%s\".", result.Workload.Name(), dir)
	return dir, nil
}

func (w *ArtifactWriter) writeArtifacts(dir string, result *generator.GenerationResult) error {
	if err := WriteTemplate(filepath.Join(dir, TemplateFile), result.Workload.Template()); err != nil {
		return err
	}

	sessions := result.Workload.Sessions()
	if w.writeRawData {
		if err := writeRawData(filepath.Join(dir, RawDataDirectory), sessions); err != nil {
			return err
		}
	}

	if err := writeSessionResources(filepath.Join(dir, SessionResourcesFile), sessions); err != nil {
		return err
	}

	if err := writeSessionSummaries(filepath.Join(dir, SessionSummaryFile), sessions); err != nil {
		return err
	}

	if w.config != nil {
		effective := *w.config
		effective.Seed = result.Seed
		effective.WorkloadName = result.Workload.Name()
		if err := writeConfig(filepath.Join(dir, ConfigFile), &effective); err != nil {
			return err
		}
	}

	if w.metrics != nil {
		if err := w.writeMetrics(filepath.Join(dir, MetricsFile)); err != nil {
			return err
		}
	}

	return nil
}

func (w *ArtifactWriter) createOutputDirectory() (string, error) {
	if err := os.MkdirAll(w.rootDirectory, 0750); err != nil {
		return "", fmt.Errorf("failed to create directory \"%s\": %w", w.rootDirectory, err)
	}

	dir := filepath.Join(w.rootDirectory, "template-"+w.clock().Format(DirectoryTimestampLayout))
	if err := os.Mkdir(dir, 0750); err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("%w: \"%s\"", ErrOutputDirectoryExists, dir)
		}

		return "", fmt.Errorf("failed to create output directory \"%s\": %w", dir, err)
	}

	return dir, nil
}

func (w *ArtifactWriter) writeMetrics(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create \"%s\": %w", path, err)
	}

	if err := w.metrics.WriteText(file); err != nil {
		_ = file.Close()
		return err
	}

	return closeFile(file, path)
}

// WriteTemplate writes the template, indented, to the given path.
func WriteTemplate(path string, template *domain.WorkloadTemplate) error {
	out, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workload template: %w", err)
	}

	return os.WriteFile(path, out, 0640)
}

// LoadTemplate reads a workload template from the given path.
func LoadTemplate(path string) (*domain.WorkloadTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workload template \"%s\": %w", path, err)
	}

	var template *domain.WorkloadTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, fmt.Errorf("%w: failed to decode \"%s\": %v", domain.ErrInvalidTemplate, path, err)
	}

	if template == nil {
		return nil, fmt.Errorf("%w: \"%s\" is empty", domain.ErrInvalidTemplate, path)
	}

	return template, nil
}

// writeRawData writes the event times, inter-arrival times, and durations of every session into its
// own subdirectory, plus the concatenation over all sessions directly into dir.
func writeRawData(dir string, sessions []*generator.Session) error {
	var allIats, allTimes, allDurations []float64
	for idx, session := range sessions {
		sessionDir := filepath.Join(dir, fmt.Sprintf("session_%d", idx))
		if err := os.MkdirAll(sessionDir, 0750); err != nil {
			return fmt.Errorf("failed to create directory \"%s\": %w", sessionDir, err)
		}

		iats, times, durations := session.InterArrivalTimes(), session.EventTimes(), session.EventDurations()
		if err := writeValues(filepath.Join(sessionDir, InterArrivalTimesFile), iats); err != nil {
			return err
		}

		if err := writeValues(filepath.Join(sessionDir, EventTimesFile), times); err != nil {
			return err
		}

		if err := writeValues(filepath.Join(sessionDir, EventDurationsFile), durations); err != nil {
			return err
		}

		allIats = append(allIats, iats...)
		allTimes = append(allTimes, times...)
		allDurations = append(allDurations, durations...)
	}

	if err := writeValues(filepath.Join(dir, InterArrivalTimesFile), allIats); err != nil {
		return err
	}

	if err := writeValues(filepath.Join(dir, EventTimesFile), allTimes); err != nil {
		return err
	}

	return writeValues(filepath.Join(dir, EventDurationsFile), allDurations)
}

// writeValues writes one value per line.
func writeValues(path string, values []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create \"%s\": %w", path, err)
	}

	buffered := bufio.NewWriter(file)
	for _, val := range values {
		if _, err := buffered.WriteString(strconv.FormatFloat(val, 'g', -1, 64) + "\n"); err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to write \"%s\": %w", path, err)
		}
	}

	if err := buffered.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write \"%s\": %w", path, err)
	}

	return closeFile(file, path)
}

func writeSessionResources(path string, sessions []*generator.Session) error {
	rows := make([]*SessionResourcesRow, 0, len(sessions))
	for idx, session := range sessions {
		rows = append(rows, &SessionResourcesRow{
			SessionIndex: idx,
			SessionId:    session.Id(),
			MaxMillicpus: session.MaxMillicpus(),
			MaxMemoryMB:  session.MaxMemoryMB(),
			NumGPUs:      session.NumGPUs(),
			MaxVramGB:    session.MaxVramGB(),
		})
	}

	return writeCSV(path, &rows)
}

func writeSessionSummaries(path string, sessions []*generator.Session) error {
	rows := make([]*SessionSummaryRow, 0, len(sessions))
	for _, session := range sessions {
		rows = append(rows, &SessionSummaryRow{
			SessionId:            session.Id(),
			StartTick:            session.StartTick(),
			StopTick:             session.EndTick(),
			NumTrainingEvents:    session.NumTrainingEvents(),
			MeanInterArrivalTime: session.MeanInterArrivalTime(),
			MeanEventDuration:    session.MeanEventDuration(),
		})
	}

	return writeCSV(path, &rows)
}

func writeCSV(path string, rows interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create \"%s\": %w", path, err)
	}

	if err := gocsv.MarshalFile(rows, file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write \"%s\": %w", path, err)
	}

	return closeFile(file, path)
}

func closeFile(file *os.File, path string) error {
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close \"%s\": %w", path, err)
	}

	return nil
}

func writeConfig(path string, config *domain.Configuration) error {
	out, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	return os.WriteFile(path, out, 0640)
}
