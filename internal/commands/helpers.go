// Package commands implements the andon CLI subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/apexcomponents/andon/internal/config"
	"github.com/apexcomponents/andon/internal/engine"
	"github.com/apexcomponents/andon/internal/escalate"
	"github.com/apexcomponents/andon/internal/rules"
	"github.com/apexcomponents/andon/internal/store"
	"github.com/apexcomponents/andon/pkg/types"
)

const defaultSnapshotPath = "andon_triggers.json"

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// buildEngine assembles the registry, store, and escalation router from
// config. The CLI state commands (resolve/status/stats) run without a
// router; serve wires the full channel set.
func buildEngine(cfg *types.Config, logger *slog.Logger, withRouter bool) (*engine.Engine, *escalate.Router, error) {
	registry := rules.NewRegistry(logger)
	rules.RegisterBuiltins(registry, cfg.Thresholds)
	if err := rules.RegisterConfigured(registry, cfg.Rules); err != nil {
		return nil, nil, fmt.Errorf("loading configured rules: %w", err)
	}

	st := store.New(logger)

	var router *escalate.Router
	if withRouter {
		policy, err := config.EscalationPolicy(cfg)
		if err != nil {
			return nil, nil, err
		}
		notifiers, audit, err := buildNotifiers(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		router = escalate.NewRouter(policy, notifiers, logger,
			escalate.WithQueueSize(cfg.Dispatch.QueueSize),
			escalate.WithWorkers(cfg.Dispatch.Workers),
			escalate.WithStopAudit(audit),
		)
	}

	return engine.New(registry, st, router, logger), router, nil
}

func buildNotifiers(cfg *types.Config, logger *slog.Logger) (escalate.Notifiers, *escalate.StopAudit, error) {
	var n escalate.Notifiers

	if cfg.Notifiers.Email != nil {
		email, err := escalate.NewSMTPNotifier(*cfg.Notifiers.Email, logger)
		if err != nil {
			return n, nil, fmt.Errorf("creating email notifier: %w", err)
		}
		n.Email = email
	}
	if cfg.Notifiers.SNS != nil {
		sms, err := escalate.NewSNSNotifier(*cfg.Notifiers.SNS, logger)
		if err != nil {
			return n, nil, fmt.Errorf("creating SNS notifier: %w", err)
		}
		n.SMS = sms
	}
	if cfg.Notifiers.Dashboard != nil {
		dash, err := escalate.NewWebhookNotifier(*cfg.Notifiers.Dashboard)
		if err != nil {
			return n, nil, fmt.Errorf("creating dashboard notifier: %w", err)
		}
		n.Dashboard = dash
	} else if cfg.Notifiers.Console {
		n.Dashboard = escalate.NewConsoleNotifier()
	}

	var audit *escalate.StopAudit
	if cfg.Notifiers.Stop != nil {
		stop, err := escalate.NewHTTPStopController(*cfg.Notifiers.Stop, logger)
		if err != nil {
			return n, nil, fmt.Errorf("creating stop controller: %w", err)
		}
		n.Stop = stop
		audit, err = escalate.NewStopAudit(cfg.Notifiers.Stop.AuditPath, logger)
		if err != nil {
			return n, nil, fmt.Errorf("creating stop audit: %w", err)
		}
	}

	return n, audit, nil
}

func snapshotPath(cfg *types.Config) string {
	if cfg.Snapshot.Path != "" {
		return cfg.Snapshot.Path
	}
	return defaultSnapshotPath
}

// loadState imports the snapshot file when present. State commands start
// from an empty store otherwise.
func loadState(eng *engine.Engine, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return eng.ImportTriggers(path)
}
