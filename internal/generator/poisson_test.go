package generator_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/scusemua/workload-generator/internal/domain"
	"github.com/scusemua/workload-generator/internal/generator"
)

var _ = Describe("PoissonSimulator", func() {
	atom := zap.NewAtomicLevelAt(zap.InfoLevel)

	var simulator *generator.PoissonSimulator

	BeforeEach(func() {
		var err error
		simulator, err = generator.NewPoissonSimulator(2, 10, &atom)
		Expect(err).To(BeNil())
	})

	It("Will reject invalid Gamma parameters", func() {
		_, err := generator.NewPoissonSimulator(0, 10, &atom)
		Expect(errors.Is(err, domain.ErrInvalidDistribution)).To(BeTrue())

		_, err = generator.NewPoissonSimulator(2, -1, &atom)
		Expect(errors.Is(err, domain.ErrInvalidDistribution)).To(BeTrue())
	})

	It("Will produce sequences of consistent lengths", func() {
		src := newSource(100)
		for trial := 0; trial < 50; trial++ {
			process, err := simulator.Simulate(1, 30, src)
			Expect(err).To(BeNil())

			Expect(process.NumEvents).To(BeNumerically(">=", 1))
			Expect(process.EventTimes).To(HaveLen(process.NumEvents))
			Expect(process.EventDurations).To(HaveLen(process.NumEvents))
			Expect(process.InterArrivalTimes).To(HaveLen(process.NumEvents - 1))
			Expect(process.Validate()).To(Succeed())
		}
	})

	It("Will space events by the raw inter-arrival times", func() {
		src := newSource(101)
		for trial := 0; trial < 50; trial++ {
			process, err := simulator.Simulate(2, 60, src)
			Expect(err).To(BeNil())

			Expect(process.EventTimes[0]).To(BeNumerically(">=", 1))
			for i := 1; i < process.NumEvents; i++ {
				gap := process.EventTimes[i] - (process.EventTimes[i-1] + process.EventDurations[i-1])
				Expect(math.Abs(process.InterArrivalTimes[i-1] - gap)).To(BeNumerically("<", 1e-8))
				Expect(process.InterArrivalTimes[i-1]).To(BeNumerically(">=", 0))
			}

			for _, duration := range process.EventDurations {
				Expect(duration).To(BeNumerically(">=", 0))
			}
		}
	})

	It("Will draw Poisson-distributed event counts", func() {
		durationSimulator, err := generator.NewPoissonSimulator(2, 1, &atom)
		Expect(err).To(BeNil())

		builder := generator.NewSessionBuilder(nil, &atom)
		ceilings := generator.ResourceCeilings{MaxMillicpus: 8000, MaxMemoryMB: 16000, NumGPUs: 1}

		src := newSource(102)
		numTrials := 2000
		total := 0
		for trial := 0; trial < numTrials; trial++ {
			process, err := durationSimulator.Simulate(2, 10, src)
			Expect(err).To(BeNil())
			total += process.NumEvents

			session, err := builder.Build(process, ceilings, src)
			Expect(err).To(BeNil())
			for _, event := range session.TrainingEvents() {
				Expect(event.GpuUtilizations()).To(HaveLen(1))
			}
		}

		// The standard error of the mean is sqrt(20 / 2000) = 0.1.
		Expect(float64(total) / float64(numTrials)).To(BeNumerically("~", 20, 0.5))
	})

	It("Will fail when no events are drawn", func() {
		_, err := simulator.Simulate(0, 30, newSource(103))
		Expect(err).ToNot(BeNil())
		Expect(errors.Is(err, domain.ErrNoEvents)).To(BeTrue())
	})

	It("Will reject invalid rates and durations", func() {
		_, err := simulator.Simulate(-1, 30, newSource(104))
		Expect(errors.Is(err, domain.ErrInvalidDistribution)).To(BeTrue())

		_, err = simulator.Simulate(1, 0.5, newSource(104))
		Expect(errors.Is(err, domain.ErrInvalidDistribution)).To(BeTrue())
	})

	It("Will simulate one process per rate", func() {
		processes, err := simulator.SimulateAll([]float64{0.5, 1, 2}, 100, newSource(105))
		Expect(err).To(BeNil())
		Expect(processes).To(HaveLen(3))
		Expect(processes[0].Rate).To(Equal(0.5))
		Expect(processes[2].Rate).To(Equal(2.0))
	})

	It("Will be reproducible for a given seed", func() {
		first, err := simulator.Simulate(1, 30, newSource(106))
		Expect(err).To(BeNil())

		second, err := simulator.Simulate(1, 30, newSource(106))
		Expect(err).To(BeNil())

		Expect(first).To(Equal(second))
	})
})

var _ = Describe("PoissonProcess", func() {
	It("Will report zero averages for empty sequences", func() {
		process := &generator.PoissonProcess{
			Rate:              1,
			Duration:          10,
			NumEvents:         1,
			EventTimes:        []float64{3.5},
			InterArrivalTimes: []float64{},
			EventDurations:    []float64{4},
		}

		Expect(process.Validate()).To(Succeed())
		Expect(process.MeanInterArrivalTime()).To(Equal(0.0))
		Expect(process.MeanEventDuration()).To(Equal(4.0))

		empty := &generator.PoissonProcess{}
		Expect(empty.MeanEventDuration()).To(Equal(0.0))
		Expect(errors.Is(empty.Validate(), domain.ErrMalformedSimulation)).To(BeTrue())
	})
})

var _ = Describe("ResolveRates", func() {
	It("Will prefer explicit rates over inter-arrival times", func() {
		rates, err := generator.ResolveRates([]float64{2}, []float64{10})
		Expect(err).To(BeNil())
		Expect(rates).To(Equal([]float64{2}))
	})

	It("Will derive rates from positive inter-arrival times", func() {
		rates, err := generator.ResolveRates(nil, []float64{-1, 4, 0, 0.5})
		Expect(err).To(BeNil())
		Expect(rates).To(Equal([]float64{0.25, 2}))
	})

	It("Will fail when no rate can be resolved", func() {
		_, err := generator.ResolveRates(nil, nil)
		Expect(errors.Is(err, domain.ErrMissingRate)).To(BeTrue())

		_, err = generator.ResolveRates([]float64{}, []float64{-1})
		Expect(errors.Is(err, domain.ErrMissingRate)).To(BeTrue())
	})
})
