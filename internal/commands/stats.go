package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apexcomponents/andon/internal/config"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	var (
		configPath string
		days       int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print trigger statistics for a reporting window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(configPath, days)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "andon.yaml", "path to andon.yaml")
	cmd.Flags().IntVarP(&days, "days", "d", 7, "reporting window in days")
	return cmd
}

func runStats(configPath string, days int) error {
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

	summary := eng.Statistics(days)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return nil
}
