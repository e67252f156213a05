package domain_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"

	"github.com/scusemua/workload-generator/internal/domain"
)

var _ = Describe("Configuration", func() {
	It("Will have valid defaults", func() {
		opts := domain.GetDefaultConfig()
		Expect(opts.Validate()).To(Succeed())

		Expect(opts.NumSessions).To(Equal(1))
		Expect(opts.MaxSessionMillicpus).To(Equal(8000.0))
		Expect(opts.MaxSessionMemoryMB).To(Equal(16000.0))
		Expect(opts.MaxSessionNumGPUs).To(Equal(8))
		Expect(opts.Rates).To(Equal([]float64{1}))
		Expect(opts.TimeDuration).To(Equal(30.0))
		Expect(opts.Shape).To(Equal(2.0))
		Expect(opts.Scale).To(Equal(10.0))
		Expect(opts.TimescaleAdjustmentFactor).To(Equal(0.1))
		Expect(opts.DebugLoggingEnabled).To(BeTrue())
		Expect(opts.ZeroEventPolicy).To(Equal(domain.ZeroEventPolicyFail))
	})

	It("Will bind every option to a flag", func() {
		opts := domain.GetDefaultConfig()
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		opts.BindFlags(flags)

		err := flags.Parse([]string{"-n", "12", "--rate", "0.5,2", "--iat", "3", "-d", "120",
			"--seed", "99", "--zero-event-policy", "retry", "--debug-logging-enabled=false", "-o", "/tmp/out"})
		Expect(err).To(BeNil())

		Expect(opts.NumSessions).To(Equal(12))
		Expect(opts.Rates).To(Equal([]float64{0.5, 2}))
		Expect(opts.InterArrivalTimes).To(Equal([]float64{3}))
		Expect(opts.TimeDuration).To(Equal(120.0))
		Expect(opts.Seed).To(Equal(int64(99)))
		Expect(opts.ZeroEventPolicy).To(Equal(domain.ZeroEventPolicyRetry))
		Expect(opts.DebugLoggingEnabled).To(BeFalse())
		Expect(opts.OutputDirectory).To(Equal("/tmp/out"))

		Expect(flags.Lookup("max-session-num-gpus")).ToNot(BeNil())
		Expect(flags.Lookup("yaml")).ToNot(BeNil())
	})

	It("Will load options from a YAML file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
		Expect(os.WriteFile(path, []byte("num-sessions: 25\nshape: 3.5\nworkload-name: FromFile\n"), 0644)).To(Succeed())

		opts := domain.GetDefaultConfig()
		opts.YAML = path
		Expect(opts.LoadYAML()).To(Succeed())

		Expect(opts.NumSessions).To(Equal(25))
		Expect(opts.Shape).To(Equal(3.5))
		Expect(opts.WorkloadName).To(Equal("FromFile"))
		Expect(opts.Scale).To(Equal(10.0))
		Expect(opts.Rates).To(Equal([]float64{1}))
	})

	It("Will let a YAML file disable options that default to true", func() {
		path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
		Expect(os.WriteFile(path, []byte("debug-logging-enabled: false\nwrite-raw-data: false\nworkload-seed: 0\n"), 0644)).To(Succeed())

		opts := domain.GetDefaultConfig()
		opts.WorkloadSeed = 7
		Expect(opts.DebugLoggingEnabled).To(BeTrue())
		Expect(opts.WriteRawData).To(BeTrue())

		opts.YAML = path
		Expect(opts.LoadYAML()).To(Succeed())

		Expect(opts.DebugLoggingEnabled).To(BeFalse())
		Expect(opts.WriteRawData).To(BeFalse())
		Expect(opts.WorkloadSeed).To(Equal(int64(0)))
		Expect(opts.YAML).To(Equal(path))
		Expect(opts.NumSessions).To(Equal(1))
		Expect(opts.Rates).To(Equal([]float64{1}))
	})

	It("Will let inter-arrival times from a YAML file replace the default rate", func() {
		path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
		Expect(os.WriteFile(path, []byte("iat:\n  - 4\n"), 0644)).To(Succeed())

		opts := domain.GetDefaultConfig()
		opts.YAML = path
		Expect(opts.LoadYAML()).To(Succeed())

		Expect(opts.Rates).To(BeEmpty())
		Expect(opts.InterArrivalTimes).To(Equal([]float64{4}))
	})

	It("Will fail to load a missing YAML file", func() {
		opts := domain.GetDefaultConfig()
		opts.YAML = filepath.Join(GinkgoT().TempDir(), "missing.yaml")

		err := opts.LoadYAML()
		Expect(errors.Is(err, domain.ErrInvalidConfiguration)).To(BeTrue())
	})

	DescribeTable("Will reject invalid options",
		func(mutate func(opts *domain.Configuration)) {
			opts := domain.GetDefaultConfig()
			mutate(opts)

			err := opts.Validate()
			Expect(err).ToNot(BeNil())
			Expect(errors.Is(err, domain.ErrInvalidConfiguration)).To(BeTrue())
		},
		Entry("no sessions", func(opts *domain.Configuration) { opts.NumSessions = 0 }),
		Entry("no workers", func(opts *domain.Configuration) { opts.NumProcs = 0 }),
		Entry("no millicpus", func(opts *domain.Configuration) { opts.MaxSessionMillicpus = 0 }),
		Entry("negative memory", func(opts *domain.Configuration) { opts.MaxSessionMemoryMB = -1 }),
		Entry("no GPUs", func(opts *domain.Configuration) { opts.MaxSessionNumGPUs = 0 }),
		Entry("short duration", func(opts *domain.Configuration) { opts.TimeDuration = 0.5 }),
		Entry("zero shape", func(opts *domain.Configuration) { opts.Shape = 0 }),
		Entry("zero scale", func(opts *domain.Configuration) { opts.Scale = 0 }),
		Entry("zero timescale", func(opts *domain.Configuration) { opts.TimescaleAdjustmentFactor = 0 }),
		Entry("unknown policy", func(opts *domain.Configuration) { opts.ZeroEventPolicy = "ignore" }),
		Entry("retry without retries", func(opts *domain.Configuration) {
			opts.ZeroEventPolicy = domain.ZeroEventPolicyRetry
			opts.MaxZeroEventRetries = 0
		}),
	)
})
