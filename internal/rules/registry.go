// Package rules implements the alert rule registry and evaluation.
package rules

import (
	"log/slog"
	"sync"

	"github.com/apexcomponents/andon/internal/metrics"
	"github.com/apexcomponents/andon/pkg/types"
)

// Registry holds named alert rules in registration order. It is
// read-only after setup and safe for concurrent evaluation.
type Registry struct {
	logger *slog.Logger

	mu    sync.RWMutex
	rules []types.AlertRule
	names map[string]struct{}
}

// NewRegistry creates an empty rule registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		names:  make(map[string]struct{}),
	}
}

// Register adds a rule. Registration is idempotent by name: re-registering
// an existing name is a no-op, not an overwrite or error.
func (r *Registry) Register(name string, pred types.Predicate, severity types.Severity, escalationLevel int, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[name]; exists {
		r.logger.Debug("rule already registered, skipping", "rule", name)
		return
	}
	r.names[name] = struct{}{}
	r.rules = append(r.rules, types.AlertRule{
		Name:            name,
		Predicate:       pred,
		Severity:        severity,
		EscalationLevel: escalationLevel,
		Description:     description,
	})
	r.logger.Info("registered alert rule", "rule", name, "severity", severity)
}

// Rules returns the registered rules in registration order.
func (r *Registry) Rules() []types.AlertRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.AlertRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Evaluate runs every rule predicate against a record and returns the
// matched rules in registration order. A predicate that panics is logged
// and counted as a non-match; evaluation as a whole never fails.
func (r *Registry) Evaluate(record types.Record) []types.AlertRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []types.AlertRule
	for _, rule := range r.rules {
		if r.safeEval(rule, record) {
			matched = append(matched, rule)
		}
	}
	return matched
}

func (r *Registry) safeEval(rule types.AlertRule, record types.Record) (matched bool) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.PredicateFailures.Add(1)
			r.logger.Error("rule predicate panicked, treating as non-match",
				"rule", rule.Name, "machine", record.MachineID(), "panic", rec)
			matched = false
		}
	}()
	if rule.Predicate == nil {
		return false
	}
	return rule.Predicate(record)
}
