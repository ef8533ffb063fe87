package commands

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/apexcomponents/andon/internal/config"
	"github.com/apexcomponents/andon/internal/dashboard"
	"github.com/apexcomponents/andon/pkg/types"
)

// NewStatusCmd creates the status command: the andon board for every
// configured machine.
func NewStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the andon board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "andon.yaml", "path to andon.yaml")
	return cmd
}

func runStatus(configPath string) error {
	logger := newLogger()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	eng, _, err := buildEngine(cfg, logger, false)
	if err != nil {
		return err
	}
	if err := loadState(eng, snapshotPath(cfg)); err != nil {
		return err
	}

	machineIDs := config.MachineIDs(cfg)
	active := eng.ActiveTriggers("")
	if len(machineIDs) == 0 {
		// No machine registry configured; derive the board from whatever
		// machines have active triggers.
		seen := make(map[string]struct{})
		for _, t := range active {
			if _, ok := seen[t.MachineID]; !ok {
				seen[t.MachineID] = struct{}{}
				machineIDs = append(machineIDs, t.MachineID)
			}
		}
	}

	board := dashboard.Build(machineIDs, active, eng.Statistics(7))
	printBoard(board)
	return nil
}

func printBoard(board dashboard.Board) {
	bold := color.New(color.Bold)
	_, _ = bold.Println("\nAndon Board")

	ids := make([]string, 0, len(board.Machines))
	for id := range board.Machines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ms := board.Machines[id]
		if ms.Status == dashboard.StatusNormal {
			color.Green("  %-12s NORMAL", id)
			continue
		}
		line := fmt.Sprintf("  %-12s ALERT  %-8s %s (%d active)", id, ms.Severity, ms.LatestTrigger, ms.TriggerCount)
		switch ms.Severity {
		case types.SeverityCritical:
			color.Red("%s", line)
		case types.SeverityHigh:
			color.Magenta("%s", line)
		default:
			color.Yellow("%s", line)
		}
	}

	s := board.Statistics
	fmt.Printf("\n7-day window: %d triggers, resolution rate %.0f%%\n",
		s.TotalTriggers, s.ResolutionRate*100)
}
