// Package config handles loading and validation of andon.yaml.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/apexcomponents/andon/pkg/types"
)

// Default reporting and dispatch settings.
const (
	DefaultQueueSize = 256
	DefaultWorkers   = 4
)

// Load reads and validates an andon.yaml file. A missing file yields the
// defaults; a malformed or invalid file is an error.
func Load(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Defaults()
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Defaults returns the stock configuration: built-in thresholds, default
// escalation policy, console notifier only.
func Defaults() types.Config {
	return types.Config{
		Thresholds: types.ThresholdConfig{
			CriticalVibration: 4.0,
			HighTemp:          85,
			CurrentSpike:      15,
			LowRULHours:       24,
		},
		Notifiers: types.NotifierConfig{Console: true},
		Dispatch: types.DispatchConfig{
			QueueSize: DefaultQueueSize,
			Workers:   DefaultWorkers,
		},
	}
}

// EscalationPolicy resolves the configured policy, falling back to the
// default mapping for severities the config does not override.
func EscalationPolicy(cfg *types.Config) (types.EscalationPolicy, error) {
	policy := types.DefaultEscalationPolicy()
	for sevName, channels := range cfg.Escalation {
		sev, err := types.ParseSeverity(sevName)
		if err != nil {
			return nil, fmt.Errorf("escalation policy: %w", err)
		}
		policy[sev] = channels
	}
	return policy, nil
}

func validate(cfg *types.Config) error {
	if cfg.Dispatch.QueueSize < 0 {
		return fmt.Errorf("dispatch.queueSize must not be negative")
	}
	if cfg.Dispatch.Workers < 0 {
		return fmt.Errorf("dispatch.workers must not be negative")
	}

	for sevName := range cfg.Escalation {
		if _, err := types.ParseSeverity(sevName); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(cfg.Rules))
	for i, rc := range cfg.Rules {
		if rc.Name == "" {
			return fmt.Errorf("rules[%d]: name is required", i)
		}
		if _, dup := seen[rc.Name]; dup {
			return fmt.Errorf("rules[%d]: duplicate rule name %q", i, rc.Name)
		}
		seen[rc.Name] = struct{}{}
		if _, err := types.ParseSeverity(rc.Severity); err != nil {
			return fmt.Errorf("rules[%d] (%q): %w", i, rc.Name, err)
		}
	}

	for i, m := range cfg.Machines {
		if m.ID == "" {
			return fmt.Errorf("machines[%d]: id is required", i)
		}
	}

	if cfg.Notifiers.Stop != nil && cfg.Notifiers.Stop.AuditPath == "" {
		return fmt.Errorf("notifiers.stop.auditPath is required when a stop controller is configured")
	}

	if cfg.Snapshot.Interval != "" {
		if _, err := time.ParseDuration(cfg.Snapshot.Interval); err != nil {
			return fmt.Errorf("invalid snapshot.interval %q: %w", cfg.Snapshot.Interval, err)
		}
	}
	return nil
}

// MachineIDs lists the configured machine identifiers.
func MachineIDs(cfg *types.Config) []string {
	ids := make([]string, 0, len(cfg.Machines))
	for _, m := range cfg.Machines {
		ids = append(ids, m.ID)
	}
	return ids
}
