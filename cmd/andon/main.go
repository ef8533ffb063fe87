package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apexcomponents/andon/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "andon",
		Short: "Andon alerting and escalation engine for machine telemetry",
		Long: `Andon evaluates machine telemetry against threshold and condition rules,
keeps a deduplicated set of active alerts per machine, escalates by severity
to notification channels, and produces audit statistics.`,
		Version: version,
	}

	root.AddCommand(
		commands.NewServeCmd(),
		commands.NewResolveCmd(),
		commands.NewStatusCmd(),
		commands.NewStatsCmd(),
		commands.NewExportCmd(),
		commands.NewImportCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
