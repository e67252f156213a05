package generator_test

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/scusemua/workload-generator/internal/domain"
	"github.com/scusemua/workload-generator/internal/generator"
)

var _ = Describe("AssembleWorkload", func() {
	atom := zap.NewAtomicLevelAt(zap.InfoLevel)

	var sessions []*generator.Session

	BeforeEach(func() {
		simulator, err := generator.NewPoissonSimulator(2, 10, &atom)
		Expect(err).To(BeNil())
		builder := generator.NewSessionBuilder(nil, &atom)

		sessions = make([]*generator.Session, 0, 3)
		for i := 0; i < 3; i++ {
			src := newSource(uint64(400 + i))
			process, err := simulator.Simulate(1, 30, src)
			Expect(err).To(BeNil())

			session, err := builder.Build(process, generator.ResourceCeilings{MaxMillicpus: 8000, MaxMemoryMB: 16000, NumGPUs: 1}, src)
			Expect(err).To(BeNil())
			sessions = append(sessions, session)
		}
	})

	It("Will preserve the order of the sessions", func() {
		workload, err := generator.AssembleWorkload(sessions, "TestWorkload", generator.DefaultWorkloadKnobs())
		Expect(err).To(BeNil())

		Expect(workload.Name()).To(Equal("TestWorkload"))
		Expect(workload.NumSessions()).To(Equal(3))
		Expect(workload.Sessions()).To(Equal(sessions))

		session, loaded := workload.Session(sessions[1].Id())
		Expect(loaded).To(BeTrue())
		Expect(session).To(Equal(sessions[1]))

		total := 0
		for _, session := range sessions {
			total += session.NumTrainingEvents()
		}
		Expect(workload.NumTrainingEvents()).To(Equal(total))
	})

	It("Will generate a name when none is given", func() {
		workload, err := generator.AssembleWorkload(sessions, "", generator.DefaultWorkloadKnobs())
		Expect(err).To(BeNil())

		_, err = uuid.Parse(workload.Name())
		Expect(err).To(BeNil())
	})

	It("Will reject duplicate sessions", func() {
		_, err := generator.AssembleWorkload(append(sessions, sessions[0]), "TestWorkload", generator.DefaultWorkloadKnobs())
		Expect(err).ToNot(BeNil())
		Expect(errors.Is(err, domain.ErrDuplicateSession)).To(BeTrue())
	})

	It("Will carry the knobs into the template", func() {
		knobs := generator.WorkloadKnobs{Seed: 7, TimescaleAdjustmentFactor: 0.5, DebugLoggingEnabled: false}
		workload, err := generator.AssembleWorkload(sessions, "TestWorkload", knobs)
		Expect(err).To(BeNil())

		template := workload.Template()
		Expect(template.Title).To(Equal("TestWorkload"))
		Expect(template.Seed).To(Equal(int64(7)))
		Expect(template.TimescaleAdjustmentFactor).To(Equal(0.5))
		Expect(template.DebugLoggingEnabled).To(BeFalse())
		Expect(template.NumberOfSessions).To(Equal(3))
		Expect(template.Sessions).To(HaveLen(3))
		Expect(template.Sessions[2].Id).To(Equal(sessions[2].Id()))
		Expect(template.Validate()).To(Succeed())
	})

	It("Will survive a JSON round trip", func() {
		workload, err := generator.AssembleWorkload(sessions, "TestWorkload", generator.DefaultWorkloadKnobs())
		Expect(err).To(BeNil())

		template := workload.Template()
		data, err := json.Marshal(template)
		Expect(err).To(BeNil())

		var decoded *domain.WorkloadTemplate
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded).To(Equal(template))
		Expect(decoded.Validate()).To(Succeed())

		var raw map[string]interface{}
		Expect(json.Unmarshal(data, &raw)).To(Succeed())
		Expect(raw).To(HaveKeyWithValue("workloadTitle", "TestWorkload"))
		Expect(raw).To(HaveKeyWithValue("timescaleAdjustmentFactor", 0.1))
		Expect(raw).To(HaveKeyWithValue("debugLoggingEnabled", true))
		Expect(raw).To(HaveKey("workloadSeed"))

		rawSessions := raw["sessions"].([]interface{})
		Expect(rawSessions).To(HaveLen(3))
		rawSession := rawSessions[0].(map[string]interface{})
		Expect(rawSession).To(HaveKey("start_tick"))
		Expect(rawSession).To(HaveKey("stop_tick"))
		Expect(rawSession).To(HaveKey("num_training_events"))

		rawTraining := rawSession["trainings"].([]interface{})[0].(map[string]interface{})
		for _, key := range []string{"start_tick", "duration_in_ticks", "millicpus", "memory", "num_gpus", "vram", "gpu_utilizations"} {
			Expect(rawTraining).To(HaveKey(key))
		}
		Expect(rawTraining["gpu_utilizations"].([]interface{})[0]).To(HaveKey("utilization"))
	})
})
