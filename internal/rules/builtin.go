package rules

import (
	"fmt"

	"github.com/apexcomponents/andon/pkg/types"
)

// Built-in rule names.
const (
	RuleCriticalVibration = "Critical Vibration"
	RuleHighTemperature   = "High Temperature"
	RuleCurrentSpike      = "Current Spike"
	RuleQualityIssue      = "Quality Issue"
	RuleMachineFault      = "Machine Fault"
	RuleMLAnomaly         = "ML Anomaly"
	RuleLowRUL            = "Low RUL"
)

// Default thresholds for the built-in rules.
const (
	DefaultCriticalVibration = 4.0  // mm/s
	DefaultHighTemp          = 85.0 // °C
	DefaultCurrentSpike      = 15.0 // A
	DefaultLowRULHours       = 24.0
)

// Sensor fields consulted by the temperature and current rules.
var (
	temperatureKeys = []string{"servo_temp", "oil_temp", "head_temp", "coolant_temp"}
	currentKeys     = []string{"motor_current", "spindle_current", "spindle_torque"}
)

// RegisterBuiltins installs the stock shop-floor rule set. Zero-valued
// thresholds fall back to the defaults. A missing sensor field is always
// a non-match: vibration defaults to 0, quality to "", RUL to a value
// above the low-RUL limit.
func RegisterBuiltins(reg *Registry, t types.ThresholdConfig) {
	vib := orDefault(t.CriticalVibration, DefaultCriticalVibration)
	temp := orDefault(t.HighTemp, DefaultHighTemp)
	current := orDefault(t.CurrentSpike, DefaultCurrentSpike)
	rul := orDefault(t.LowRULHours, DefaultLowRULHours)

	reg.Register(RuleCriticalVibration,
		func(r types.Record) bool { return r.FloatOr("vibration_rms", 0) > vib },
		types.SeverityCritical, 4,
		fmt.Sprintf("Vibration exceeds critical threshold (%.1f mm/s)", vib))

	reg.Register(RuleHighTemperature,
		func(r types.Record) bool { return anyAbove(r, temperatureKeys, temp) },
		types.SeverityHigh, 3,
		"Temperature exceeds safe operating limits")

	reg.Register(RuleCurrentSpike,
		func(r types.Record) bool { return anyAbove(r, currentKeys, current) },
		types.SeverityHigh, 3,
		"Motor current exceeds normal operating range")

	reg.Register(RuleQualityIssue,
		func(r types.Record) bool {
			flag, _ := r.Str("quality_flag")
			return flag == "scrap" || flag == "rework"
		},
		types.SeverityMedium, 2,
		"Quality issue detected in production")

	reg.Register(RuleMachineFault,
		func(r types.Record) bool {
			state, _ := r.Str("state")
			return state == "fault"
		},
		types.SeverityCritical, 4,
		"Machine fault detected")

	reg.Register(RuleMLAnomaly,
		func(r types.Record) bool { return r.Bool("anomaly_detected") },
		types.SeverityMedium, 2,
		"ML model detected anomalous behavior")

	reg.Register(RuleLowRUL,
		func(r types.Record) bool { return r.FloatOr("rul_hours", rul) < rul },
		types.SeverityHigh, 3,
		"Remaining useful life is critically low")
}

func anyAbove(r types.Record, keys []string, limit float64) bool {
	for _, k := range keys {
		if r.FloatOr(k, 0) > limit {
			return true
		}
	}
	return false
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
