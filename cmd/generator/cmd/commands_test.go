package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scusemua/workload-generator/internal/domain"
	"github.com/scusemua/workload-generator/internal/generator"
)

func newTestCommand(args ...string) (*cobra.Command, *domain.Configuration) {
	command := &cobra.Command{Use: "test"}
	config := domain.GetDefaultConfig()
	config.BindFlags(command.Flags())
	Expect(command.Flags().Parse(args)).To(Succeed())

	return command, config
}

var _ = Describe("prepareConfiguration", func() {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	BeforeEach(func() {
		Expect(os.Setenv(EnvironmentFileVariable, filepath.Join(GinkgoT().TempDir(), "missing.env"))).To(Succeed())
		DeferCleanup(os.Unsetenv, EnvironmentFileVariable)
	})

	It("Will replace the default rate with explicit inter-arrival times", func() {
		command, config := newTestCommand("--iat", "4")
		Expect(prepareConfiguration(command, config, &level)).To(Succeed())

		rates, err := generator.ResolveRates(config.Rates, config.InterArrivalTimes)
		Expect(err).To(BeNil())
		Expect(rates).To(Equal([]float64{0.25}))
	})

	It("Will prefer explicit rates over explicit inter-arrival times", func() {
		command, config := newTestCommand("--iat", "4", "--rate", "2")
		Expect(prepareConfiguration(command, config, &level)).To(Succeed())

		rates, err := generator.ResolveRates(config.Rates, config.InterArrivalTimes)
		Expect(err).To(BeNil())
		Expect(rates).To(Equal([]float64{2}))
	})

	It("Will enable debug logging", func() {
		command, config := newTestCommand("--debug")
		Expect(prepareConfiguration(command, config, &level)).To(Succeed())
		Expect(level.Level()).To(Equal(zapcore.DebugLevel))

		command, config = newTestCommand()
		Expect(prepareConfiguration(command, config, &level)).To(Succeed())
		Expect(level.Level()).To(Equal(zapcore.InfoLevel))
	})

	It("Will load the configuration file named by the environment file", func() {
		dir := GinkgoT().TempDir()
		configPath := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(configPath, []byte("num-sessions: 9\n"), 0644)).To(Succeed())

		envPath := filepath.Join(dir, "test.env")
		Expect(os.WriteFile(envPath, []byte(ConfigFileVariable+"="+configPath+"\n"), 0644)).To(Succeed())
		Expect(os.Setenv(EnvironmentFileVariable, envPath)).To(Succeed())
		DeferCleanup(os.Unsetenv, ConfigFileVariable)

		command, config := newTestCommand()
		Expect(prepareConfiguration(command, config, &level)).To(Succeed())
		Expect(config.YAML).To(Equal(configPath))
		Expect(config.NumSessions).To(Equal(9))
	})
})

var _ = Describe("formatSimulation", func() {
	It("Will print one row per event with a leading zero inter-arrival time", func() {
		process := &generator.PoissonProcess{
			Rate:              1,
			Duration:          10,
			NumEvents:         2,
			EventTimes:        []float64{1.5, 5.2},
			InterArrivalTimes: []float64{1.6},
			EventDurations:    []float64{2.1, 3.0},
		}

		text := formatSimulation(process)
		Expect(text).To(ContainSubstring("ts"))
		Expect(text).To(ContainSubstring("iat"))
		Expect(text).To(ContainSubstring("dur"))
		Expect(text).To(ContainSubstring("events=2"))
		Expect(text).To(ContainSubstring("0.0000"))
		Expect(text).To(ContainSubstring("1.6000"))
		Expect(text).To(ContainSubstring("5.2000"))
	})
})

var _ = Describe("Commands", func() {
	It("Will generate a workload and validate it", func() {
		Expect(os.Setenv(EnvironmentFileVariable, filepath.Join(GinkgoT().TempDir(), "missing.env"))).To(Succeed())
		DeferCleanup(os.Unsetenv, EnvironmentFileVariable)

		root := GinkgoT().TempDir()

		var out bytes.Buffer
		RootCmd.SetOut(&out)
		RootCmd.SetArgs([]string{"generate", "-n", "3", "--num-procs", "2", "--seed", "11", "--rate", "0.5", "-d", "60",
			"-o", root, "--workload-name", "CommandTest"})
		Expect(RootCmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("CommandTest"))

		entries, err := os.ReadDir(root)
		Expect(err).To(BeNil())
		Expect(entries).To(HaveLen(1))
		Expect(strings.HasPrefix(entries[0].Name(), "template-")).To(BeTrue())

		out.Reset()
		templatePath := filepath.Join(root, entries[0].Name(), "template.json")
		RootCmd.SetArgs([]string{"validate", templatePath})
		Expect(RootCmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("OK (3 session(s)"))
	})

	It("Will fail to validate a broken template", func() {
		path := filepath.Join(GinkgoT().TempDir(), "template.json")
		Expect(os.WriteFile(path, []byte(`{"workloadTitle": "Broken", "numberOfSessions": 1, "sessions": []}`), 0644)).To(Succeed())

		RootCmd.SetArgs([]string{"validate", path})
		Expect(RootCmd.Execute()).ToNot(Succeed())
	})
})
