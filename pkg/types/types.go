// Package types defines the public domain types for the Andon alerting engine.
package types

import (
	"fmt"
	"time"
)

// Severity classifies how urgent a trigger is.
type Severity string

// Severity values in ascending order of urgency.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the numeric urgency of a severity, 1 (low) to 4 (critical).
// Unknown severities rank 0 and sort below everything.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// ParseSeverity validates a severity string.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if sev.Rank() == 0 {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Record is a single telemetry sample: a machine identifier plus
// numeric/categorical sensor fields. Missing fields coerce to
// non-triggering defaults via the accessor methods.
type Record map[string]interface{}

// MachineID returns the machine identifier, or "" when absent.
func (r Record) MachineID() string {
	s, _ := r.Str("machine_id")
	return s
}

// Float returns a numeric field coerced to float64.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	return toFloat64(v)
}

// FloatOr returns a numeric field, or def when the field is missing or
// not numeric.
func (r Record) FloatOr(key string, def float64) float64 {
	if f, ok := r.Float(key); ok {
		return f
	}
	return def
}

// Str returns a string field.
func (r Record) Str(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns a boolean field, false when missing or non-boolean.
func (r Record) Bool(key string) bool {
	v, ok := r[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Predicate is a rule condition evaluated against a telemetry record.
type Predicate func(Record) bool

// AlertRule is a named condition that raises a trigger when matched.
type AlertRule struct {
	Name            string    `json:"name"`
	Predicate       Predicate `json:"-" yaml:"-"`
	Severity        Severity  `json:"severity"`
	EscalationLevel int       `json:"escalationLevel"`
	Description     string    `json:"description"`
}

// TriggerKey is the dedup identity of a trigger: at most one unresolved
// trigger per key may exist at any time.
type TriggerKey struct {
	MachineID   string
	TriggerType string
}

// Trigger is one alert instance tied to a machine and a rule.
type Trigger struct {
	ID               string     `json:"id"`
	MachineID        string     `json:"machineId"`
	TriggerType      string     `json:"triggerType"`
	Severity         Severity   `json:"severity"`
	Description      string     `json:"description"`
	CreatedAt        time.Time  `json:"createdAt"`
	Resolved         bool       `json:"resolved"`
	ResolvedAt       *time.Time `json:"resolvedAt,omitempty"`
	ResolutionAction string     `json:"resolutionAction,omitempty"`
}

// Key returns the dedup key of the trigger.
func (t Trigger) Key() TriggerKey {
	return TriggerKey{MachineID: t.MachineID, TriggerType: t.TriggerType}
}

// ChannelSet enumerates the notification channels enabled for a severity.
// A fixed struct rather than an open map so unknown channels are a
// compile-time concern.
type ChannelSet struct {
	Email       bool `yaml:"email" json:"email"`
	SMS         bool `yaml:"sms" json:"sms"`
	Dashboard   bool `yaml:"dashboard" json:"dashboard"`
	StopMachine bool `yaml:"stopMachine" json:"stopMachine"`
}

// EscalationPolicy maps severity to a channel set. Static configuration,
// loaded once.
type EscalationPolicy map[Severity]ChannelSet

// DefaultEscalationPolicy returns the stock policy: email and dashboard
// for everything, SMS from high, machine stop only for critical.
func DefaultEscalationPolicy() EscalationPolicy {
	return EscalationPolicy{
		SeverityLow:      {Email: true, Dashboard: true},
		SeverityMedium:   {Email: true, Dashboard: true},
		SeverityHigh:     {Email: true, SMS: true, Dashboard: true},
		SeverityCritical: {Email: true, SMS: true, Dashboard: true, StopMachine: true},
	}
}

// Channels returns the channel set for a severity; unknown severities
// get the dashboard only.
func (p EscalationPolicy) Channels(s Severity) ChannelSet {
	if cs, ok := p[s]; ok {
		return cs
	}
	return ChannelSet{Dashboard: true}
}

// Summary aggregates trigger history for a reporting window.
type Summary struct {
	TotalTriggers  int              `json:"totalTriggers"`
	BySeverity     map[Severity]int `json:"bySeverity"`
	ByMachine      map[string]int   `json:"byMachine"`
	ByType         map[string]int   `json:"byType"`
	ResolutionRate float64          `json:"resolutionRate"`
}

// toFloat64 coerces an interface{} to float64. Handles the numeric types
// produced by JSON decoding and by Go callers.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
