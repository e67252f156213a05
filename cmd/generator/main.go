package main

import (
	"fmt"
	"os"

	"github.com/scusemua/workload-generator/cmd/generator/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cmd.RedStyle.Render(err.Error()))
		os.Exit(1)
	}
}
