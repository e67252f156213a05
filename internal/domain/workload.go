package domain

import (
	"fmt"

	"github.com/goccy/go-json"
)

// SessionCooldownTicks is the number of idle ticks appended after a session's final training event.
const SessionCooldownTicks = 2

// WorkloadTemplate is the serialized form of a generated workload.
// It is consumed by the workload driver, which replays the sessions tick by tick.
type WorkloadTemplate struct {
	Title                     string                     `json:"workloadTitle"`
	Seed                      int64                      `json:"workloadSeed"`
	TimescaleAdjustmentFactor float64                    `json:"timescaleAdjustmentFactor"`
	NumberOfSessions          int                        `json:"numberOfSessions"`
	DebugLoggingEnabled       bool                       `json:"debugLoggingEnabled"`
	Sessions                  []*WorkloadTemplateSession `json:"sessions"`
}

func (t *WorkloadTemplate) String() string {
	return fmt.Sprintf("Template[%s, NumSessions=%d]", t.Title, len(t.Sessions))
}

// NumTrainingEvents returns the total number of training events across all sessions of the template.
func (t *WorkloadTemplate) NumTrainingEvents() int {
	total := 0
	for _, session := range t.Sessions {
		total += len(session.Trainings)
	}

	return total
}

// Validate checks the invariants of the template that survive serialization.
// The returned error wraps ErrInvalidTemplate.
func (t *WorkloadTemplate) Validate() error {
	if t.NumberOfSessions != len(t.Sessions) {
		return fmt.Errorf("%w: numberOfSessions is %d, but template contains %d session(s)",
			ErrInvalidTemplate, t.NumberOfSessions, len(t.Sessions))
	}

	seen := make(map[string]struct{}, len(t.Sessions))
	for idx, session := range t.Sessions {
		if session == nil {
			return fmt.Errorf("%w: session #%d is null", ErrInvalidTemplate, idx)
		}

		if _, loaded := seen[session.Id]; loaded {
			return fmt.Errorf("%w: %w: \"%s\"", ErrInvalidTemplate, ErrDuplicateSession, session.Id)
		}
		seen[session.Id] = struct{}{}

		if err := session.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// WorkloadTemplateSession is the serialized form of a single session.
//
// StartTick is the tick at which the session is created, and StopTick is the tick at
// which it is terminated. Trainings holds the session's training events in order.
type WorkloadTemplateSession struct {
	Id                string           `json:"id"`
	StartTick         int              `json:"start_tick"`
	StopTick          int              `json:"stop_tick"`
	NumTrainingEvents int              `json:"num_training_events"`
	Trainings         []*TrainingEvent `json:"trainings"`
}

func (s *WorkloadTemplateSession) String() string {
	m, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}

	return string(m)
}

// Validate checks the tick invariants of the session. The returned error wraps ErrInvalidTemplate.
func (s *WorkloadTemplateSession) Validate() error {
	if len(s.Trainings) == 0 {
		return fmt.Errorf("%w: session \"%s\" has no training events", ErrInvalidTemplate, s.Id)
	}

	if s.NumTrainingEvents != len(s.Trainings) {
		return fmt.Errorf("%w: session \"%s\" declares %d training event(s), but has %d",
			ErrInvalidTemplate, s.Id, s.NumTrainingEvents, len(s.Trainings))
	}

	prevStartTick := 0
	for idx, training := range s.Trainings {
		if training == nil {
			return fmt.Errorf("%w: training event #%d of session \"%s\" is null", ErrInvalidTemplate, idx, s.Id)
		}

		if err := training.Validate(); err != nil {
			return fmt.Errorf("training event #%d of session \"%s\": %w", idx, s.Id, err)
		}

		if training.StartTick < prevStartTick {
			return fmt.Errorf("%w: training event #%d of session \"%s\" starts at tick %d, before the previous event (tick %d)",
				ErrInvalidTemplate, idx, s.Id, training.StartTick, prevStartTick)
		}
		prevStartTick = training.StartTick
	}

	first := s.Trainings[0]
	if s.StartTick < 1 || s.StartTick > first.StartTick {
		return fmt.Errorf("%w: session \"%s\" starts at tick %d, which is outside of [1, %d]",
			ErrInvalidTemplate, s.Id, s.StartTick, first.StartTick)
	}

	last := s.Trainings[len(s.Trainings)-1]
	if s.StopTick != last.EndTick()+SessionCooldownTicks {
		return fmt.Errorf("%w: session \"%s\" stops at tick %d, expected %d",
			ErrInvalidTemplate, s.Id, s.StopTick, last.EndTick()+SessionCooldownTicks)
	}

	return nil
}

// TrainingEvent is the serialized form of a single training event.
type TrainingEvent struct {
	StartTick       int              `json:"start_tick"`
	DurationInTicks int              `json:"duration_in_ticks"`
	Millicpus       float64          `json:"millicpus"` // CPU usage in 1/1000th CPU core
	MemoryMB        float64          `json:"memory"`
	NumGPUs         int              `json:"num_gpus"`
	VRamGB          float64          `json:"vram"`
	GpuUtil         []GpuUtilization `json:"gpu_utilizations"`
}

// GpuUtilization is a struct here with a Utilization field so it matches the JSON expected by the driver.
type GpuUtilization struct {
	Utilization float64 `json:"utilization"`
}

// EndTick returns the tick at which the training event ends.
func (e *TrainingEvent) EndTick() int {
	return e.StartTick + e.DurationInTicks
}

func (e *TrainingEvent) Validate() error {
	if e.StartTick < 1 {
		return fmt.Errorf("%w: start tick %d is less than 1", ErrInvalidTemplate, e.StartTick)
	}

	if e.DurationInTicks < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidTemplate, e.DurationInTicks)
	}

	if e.Millicpus < 0 || e.MemoryMB < 0 || e.VRamGB < 0 {
		return fmt.Errorf("%w: negative resource demand (millicpus=%f, memory=%f, vram=%f)",
			ErrInvalidTemplate, e.Millicpus, e.MemoryMB, e.VRamGB)
	}

	if e.NumGPUs != len(e.GpuUtil) {
		return fmt.Errorf("%w: num_gpus is %d, but %d GPU utilization(s) were given",
			ErrInvalidTemplate, e.NumGPUs, len(e.GpuUtil))
	}

	for _, util := range e.GpuUtil {
		if util.Utilization < 0 || util.Utilization > 100 {
			return fmt.Errorf("%w: GPU utilization %f is outside of [0, 100]", ErrInvalidTemplate, util.Utilization)
		}
	}

	return nil
}
