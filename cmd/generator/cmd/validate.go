package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scusemua/workload-generator/internal/output"
)

var validateCmd = &cobra.Command{
	Use:   "validate <template.json>...",
	Short: "Check the tick invariants of workload templates",
	Long: `Read one or more workload templates and check that every session's training events are ordered,
that sessions start no later than their first event, and that sessions stop two ticks after their last event.

Examples:
  workload-generator validate output/template-2024-01-01_12-00-00/template.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	RootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, path := range args {
		template, err := output.LoadTemplate(path)
		if err != nil {
			return err
		}

		if err := template.Validate(); err != nil {
			return fmt.Errorf("\"%s\": %w", path, err)
		}

		fmt.Fprintln(out, GreenStyle.Render(fmt.Sprintf("%s: OK (%d session(s), %d training event(s))",
			path, len(template.Sessions), template.NumTrainingEvents())))
	}

	return nil
}
