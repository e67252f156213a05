package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/scusemua/workload-generator/internal/generator"
	"github.com/scusemua/workload-generator/internal/metrics"
	"github.com/scusemua/workload-generator/internal/output"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a workload template",
	Long: `Generate a synthetic workload and write it, together with the data it was generated from,
to a new timestamped directory within the output directory.

Examples:
  workload-generator generate -n 50 --num-procs 4 --rate 0.5 -d 600
  workload-generator generate --yaml config.yaml --seed 42`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	RootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	if err := prepareConfiguration(cmd, opts, &atom); err != nil {
		return err
	}

	metricsWrapper, errs := metrics.NewPrometheusMetricsWrapper(&atom)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	workloadGenerator, err := generator.NewWorkloadGenerator(opts, metricsWrapper, &atom)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := workloadGenerator.Generate(ctx)
	if err != nil {
		return err
	}

	writer := output.NewArtifactWriterBuilder().
		WithRootDirectory(opts.OutputDirectory).
		WithRawData(opts.WriteRawData).
		WithConfiguration(opts).
		WithMetrics(metricsWrapper).
		WithAtomicLevel(&atom).
		Build()

	dir, err := writer.Write(result)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), formatSummary(result, dir))
	return nil
}
