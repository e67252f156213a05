package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scusemua/workload-generator/internal/generator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate Poisson processes and print their events",
	Long: `Simulate one Poisson process per rate (or per inter-arrival time) and print the event times,
inter-arrival times, and Gamma-distributed durations of each.

Examples:
  workload-generator simulate --rate 0.5,1,2 -d 60
  workload-generator simulate --iat 10 --shape 2 --scale 5`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	RootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	if err := prepareConfiguration(cmd, opts, &atom); err != nil {
		return err
	}

	rates, err := generator.ResolveRates(opts.Rates, opts.InterArrivalTimes)
	if err != nil {
		return err
	}

	simulator, err := generator.NewPoissonSimulator(opts.Shape, opts.Scale, &atom)
	if err != nil {
		return err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	src := generator.NewSeedDeriver(seed).ForSubsystem(generator.SubsystemSimulation)

	processes, err := simulator.SimulateAll(rates, opts.TimeDuration, src)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, process := range processes {
		fmt.Fprintln(out, formatSimulation(process))
	}
	fmt.Fprintln(out, GrayStyle.Render(fmt.Sprintf("seed=%d", seed)))

	return nil
}
