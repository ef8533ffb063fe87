package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apexcomponents/andon/internal/config"
)

// NewResolveCmd creates the resolve command. It operates on the snapshot
// file: load, resolve, write back.
func NewResolveCmd() *cobra.Command {
	var (
		configPath string
		action     string
	)

	cmd := &cobra.Command{
		Use:   "resolve [machine-id] [trigger-type]",
		Short: "Resolve an active trigger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(configPath, args[0], args[1], action)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "andon.yaml", "path to andon.yaml")
	cmd.Flags().StringVarP(&action, "action", "a", "Manual resolution", "resolution action note")
	return cmd
}

func runResolve(configPath, machineID, triggerType, action string) error {
	logger := newLogger()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	eng, _, err := buildEngine(cfg, logger, false)
	if err != nil {
		return err
	}

	statePath := snapshotPath(cfg)
	if err := loadState(eng, statePath); err != nil {
		return err
	}

	if !eng.Resolve(machineID, triggerType, action) {
		return fmt.Errorf("no active trigger for machine %q, type %q", machineID, triggerType)
	}

	if err := eng.ExportTriggers(statePath); err != nil {
		return err
	}
	fmt.Printf("resolved %s / %s\n", machineID, triggerType)
	return nil
}
