package metrics_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/scusemua/workload-generator/internal/metrics"
)

var _ = Describe("PrometheusMetricsWrapper", func() {
	atom := zap.NewAtomicLevelAt(zap.InfoLevel)

	It("Can be instantiated more than once", func() {
		first, errs := metrics.NewPrometheusMetricsWrapper(&atom)
		Expect(errs).To(BeEmpty())
		Expect(first).ToNot(BeNil())

		second, errs := metrics.NewPrometheusMetricsWrapper(&atom)
		Expect(errs).To(BeEmpty())
		Expect(second.Registry()).ToNot(BeIdenticalTo(first.Registry()))
	})

	It("Will write the recorded metrics in the text exposition format", func() {
		wrapper, errs := metrics.NewPrometheusMetricsWrapper(&atom)
		Expect(errs).To(BeEmpty())

		wrapper.ObserveSession("TestWorkload", []int{3, 5, 40})
		wrapper.ObserveSession("TestWorkload", []int{1})
		wrapper.RecordZeroEventDraw("TestWorkload")
		wrapper.RecordGenerationWallTime("TestWorkload", 1.5)

		var buf bytes.Buffer
		Expect(wrapper.WriteText(&buf)).To(Succeed())

		text := buf.String()
		Expect(text).To(ContainSubstring(`workload_generator_generator_sessions_generated_total{workload_id="TestWorkload"} 2`))
		Expect(text).To(ContainSubstring(`workload_generator_generator_training_events_generated_total{workload_id="TestWorkload"} 4`))
		Expect(text).To(ContainSubstring(`workload_generator_generator_zero_event_draws_total{workload_id="TestWorkload"} 1`))
		Expect(text).To(ContainSubstring(`workload_generator_generator_generation_wall_time_seconds{workload_id="TestWorkload"} 1.5`))
		Expect(text).To(ContainSubstring(`workload_generator_generator_training_event_duration_ticks_count{workload_id="TestWorkload"} 4`))
		Expect(text).To(ContainSubstring(`workload_generator_generator_training_events_per_session_sum{workload_id="TestWorkload"} 4`))
	})

	It("Will ignore observations when it is nil", func() {
		var wrapper *metrics.PrometheusMetricsWrapper
		Expect(func() {
			wrapper.ObserveSession("TestWorkload", []int{1, 2})
			wrapper.RecordZeroEventDraw("TestWorkload")
			wrapper.RecordGenerationWallTime("TestWorkload", 1)
		}).ToNot(Panic())
	})
})
