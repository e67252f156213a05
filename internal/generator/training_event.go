package generator

import (
	"fmt"
	"math"

	"github.com/scusemua/workload-generator/internal/domain"
)

// TrainingEvent is a single burst of resource demand within a session.
// A TrainingEvent is immutable once constructed.
type TrainingEvent struct {
	startingTick    int
	durationTicks   int
	millicpus       float64
	memoryMB        float64
	vramGB          float64
	gpuUtilizations []float64
}

// NewTrainingEvent creates a TrainingEvent that starts at time startTime and lasts for duration.
// Both are converted to ticks by rounding up. The GPU utilizations are copied.
func NewTrainingEvent(startTime float64, duration float64, millicpus float64, memoryMB float64,
	gpuUtilizations []float64, vramGB float64) (*TrainingEvent, error) {

	if math.IsNaN(startTime) || math.IsNaN(duration) || startTime <= 0 || duration < 0 {
		return nil, Errorf(domain.ErrMalformedSimulation, "invalid training event timing (start=%f, duration=%f)", startTime, duration)
	}

	if math.IsNaN(millicpus) || math.IsNaN(memoryMB) || math.IsNaN(vramGB) || millicpus < 0 || memoryMB < 0 || vramGB < 0 {
		return nil, Errorf(domain.ErrMalformedSimulation, "invalid training event demand (millicpus=%f, memory=%f, vram=%f)",
			millicpus, memoryMB, vramGB)
	}

	for _, util := range gpuUtilizations {
		if math.IsNaN(util) || util < 0 || util > 100 {
			return nil, Errorf(domain.ErrMalformedSimulation, "GPU utilization %f is outside of [0, 100]", util)
		}
	}

	return &TrainingEvent{
		startingTick:    int(math.Ceil(startTime)),
		durationTicks:   int(math.Ceil(duration)),
		millicpus:       millicpus,
		memoryMB:        memoryMB,
		vramGB:          vramGB,
		gpuUtilizations: append([]float64(nil), gpuUtilizations...),
	}, nil
}

func (e *TrainingEvent) StartingTick() int { return e.startingTick }

func (e *TrainingEvent) DurationTicks() int { return e.durationTicks }

func (e *TrainingEvent) EndingTick() int { return e.startingTick + e.durationTicks }

func (e *TrainingEvent) Millicpus() float64 { return e.millicpus }

func (e *TrainingEvent) MemoryMB() float64 { return e.memoryMB }

func (e *TrainingEvent) VramGB() float64 { return e.vramGB }

func (e *TrainingEvent) NumGPUs() int { return len(e.gpuUtilizations) }

// GpuUtilizations returns a copy of the per-GPU utilizations of the event.
func (e *TrainingEvent) GpuUtilizations() []float64 {
	return append([]float64(nil), e.gpuUtilizations...)
}

func (e *TrainingEvent) String() string {
	return fmt.Sprintf("TrainingEvent[ticks=%d-%d, millicpus=%.0f, memory=%.4f, gpus=%d, vram=%.3f]",
		e.startingTick, e.EndingTick(), e.millicpus, e.memoryMB, len(e.gpuUtilizations), e.vramGB)
}

// Template converts the event to its serialized form.
func (e *TrainingEvent) Template() *domain.TrainingEvent {
	utils := make([]domain.GpuUtilization, 0, len(e.gpuUtilizations))
	for _, util := range e.gpuUtilizations {
		utils = append(utils, domain.GpuUtilization{Utilization: util})
	}

	return &domain.TrainingEvent{
		StartTick:       e.startingTick,
		DurationInTicks: e.durationTicks,
		Millicpus:       e.millicpus,
		MemoryMB:        e.memoryMB,
		NumGPUs:         len(e.gpuUtilizations),
		VRamGB:          e.vramGB,
		GpuUtil:         utils,
	}
}
