package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/apexcomponents/andon/internal/config"
	"github.com/apexcomponents/andon/internal/engine"
	"github.com/apexcomponents/andon/internal/observability"
	"github.com/apexcomponents/andon/pkg/types"
)

// NewServeCmd creates the serve command: consume a JSONL telemetry
// stream, evaluate each record, and escalate new triggers.
func NewServeCmd() *cobra.Command {
	var (
		configPath string
		inputPath  string
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Process a telemetry stream and escalate triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, inputPath, workers)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "andon.yaml", "path to andon.yaml")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "JSONL telemetry source ('-' for stdin)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "evaluation workers")
	return cmd
}

func runServe(configPath, inputPath string, workers int) error {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownObs, err := observability.Setup(ctx, cfg.Telemetry.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownObs(shutdownCtx); err != nil {
			logger.Warn("observability shutdown failed", "error", err)
		}
	}()

	eng, router, err := buildEngine(cfg, logger, true)
	if err != nil {
		return err
	}

	statePath := snapshotPath(cfg)
	if err := loadState(eng, statePath); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}

	router.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		router.Stop(stopCtx)
	}()

	in, closeIn, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer closeIn()

	records := make(chan types.Record, 64)
	readErr := make(chan error, 1)
	go func() {
		defer close(records)
		readErr <- readRecords(ctx, in, records, logger)
	}()

	if interval := snapshotInterval(cfg); interval > 0 {
		go snapshotLoop(ctx, eng, statePath, interval, logger)
	}

	if err := eng.ProcessStream(ctx, records, workers); err != nil && ctx.Err() == nil {
		return err
	}
	if err := <-readErr; err != nil && ctx.Err() == nil {
		return err
	}

	if err := eng.ExportTriggers(statePath); err != nil {
		return fmt.Errorf("writing final snapshot: %w", err)
	}
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" || path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening telemetry input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// readRecords decodes JSONL telemetry. Malformed lines are logged and
// skipped; the stream keeps flowing.
func readRecords(ctx context.Context, in io.Reader, out chan<- types.Record, logger *slog.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var record types.Record
		if err := json.Unmarshal(raw, &record); err != nil {
			logger.Warn("skipping malformed telemetry line", "line", line, "error", err)
			continue
		}
		select {
		case out <- record:
		case <-ctx.Done():
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading telemetry: %w", err)
	}
	return nil
}

func snapshotInterval(cfg *types.Config) time.Duration {
	if cfg.Snapshot.Interval == "" {
		return 0
	}
	d, err := time.ParseDuration(cfg.Snapshot.Interval)
	if err != nil {
		return 0 // validated at load, unreachable in practice
	}
	return d
}

func snapshotLoop(ctx context.Context, eng *engine.Engine, path string, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := eng.ExportTriggers(path); err != nil {
				logger.Error("periodic snapshot failed", "error", err)
			}
		}
	}
}
