package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apexcomponents/andon/internal/config"
)

// NewExportCmd creates the export command: write the current trigger set
// to a snapshot file.
func NewExportCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export all triggers to a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(configPath, args[0])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "andon.yaml", "path to andon.yaml")
	return cmd
}

func runExport(configPath, outPath string) error {
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
	if err := eng.ExportTriggers(outPath); err != nil {
		return err
	}
	fmt.Printf("triggers exported to %s\n", outPath)
	return nil
}

// NewImportCmd creates the import command: replace engine state from a
// snapshot file. The import is atomic; a malformed snapshot changes
// nothing.
func NewImportCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "import [path]",
		Short: "Import triggers from a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(configPath, args[0])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "andon.yaml", "path to andon.yaml")
	return cmd
}

func runImport(configPath, inPath string) error {
	logger := newLogger()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	eng, _, err := buildEngine(cfg, logger, false)
	if err != nil {
		return err
	}
	if err := eng.ImportTriggers(inPath); err != nil {
		return err
	}
	if err := eng.ExportTriggers(snapshotPath(cfg)); err != nil {
		return err
	}
	fmt.Printf("triggers imported from %s\n", inPath)
	return nil
}
