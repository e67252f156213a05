package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/scusemua/workload-generator/internal/generator"
)

func init() {
	lipgloss.SetColorProfile(termenv.ANSI256)
}

var (
	RedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cc0000"))
	YellowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cc9500"))
	GreenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#06cc00"))
	LightBlueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3cc5ff"))
	GrayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#adadad"))

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#d864ff"))
)

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', 4, 64)
}

// formatSimulation renders the event times, inter-arrival times, and durations of a simulated process
// as a table. The inter-arrival time of the first event is shown as 0.
func formatSimulation(process *generator.PoissonProcess) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(GrayStyle).
		Headers("", "ts", "iat", "dur").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return HeaderStyle
			}
			return lipgloss.NewStyle()
		})

	for i := 0; i < process.NumEvents; i++ {
		iat := 0.0
		if i > 0 {
			iat = process.InterArrivalTimes[i-1]
		}

		t.Row(strconv.Itoa(i), formatFloat(process.EventTimes[i]), formatFloat(iat), formatFloat(process.EventDurations[i]))
	}

	var sb strings.Builder
	sb.WriteString(LightBlueStyle.Render(fmt.Sprintf("rate=%s, duration=%s, events=%d",
		formatFloat(process.Rate), formatFloat(process.Duration), process.NumEvents)))
	sb.WriteString("\n")
	sb.WriteString(t.Render())
	sb.WriteString("\n")

	return sb.String()
}

// formatSummary renders a short summary of a generation run written to the given directory.
func formatSummary(result *generator.GenerationResult, dir string) string {
	workload := result.Workload

	var sb strings.Builder
	sb.WriteString(GreenStyle.Render(fmt.Sprintf("Generated workload \"%s\".", workload.Name())))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  %s %d\n", GrayStyle.Render("Sessions:       "), workload.NumSessions()))
	sb.WriteString(fmt.Sprintf("  %s %d\n", GrayStyle.Render("Training events:"), workload.NumTrainingEvents()))
	sb.WriteString(fmt.Sprintf("  %s %d\n", GrayStyle.Render("Seed:           "), result.Seed))
	sb.WriteString(fmt.Sprintf("  %s %v\n", GrayStyle.Render("Wall time:      "), result.WallTime))
	sb.WriteString(fmt.Sprintf("  %s %s\n", GrayStyle.Render("Output:         "), LightBlueStyle.Render(dir)))

	return sb.String()
}
