package rules

import (
	"fmt"

	"github.com/apexcomponents/andon/pkg/types"
)

// RegisterConfigured compiles declarative YAML rules into predicates and
// registers them. Deployments add threshold rules without code changes.
func RegisterConfigured(reg *Registry, configs []types.RuleConfig) error {
	for i, rc := range configs {
		rule, err := Compile(rc)
		if err != nil {
			return fmt.Errorf("rule %d (%q): %w", i, rc.Name, err)
		}
		reg.Register(rule.Name, rule.Predicate, rule.Severity, rule.EscalationLevel, rule.Description)
	}
	return nil
}

// Compile turns a declarative rule config into an AlertRule.
func Compile(rc types.RuleConfig) (types.AlertRule, error) {
	if rc.Name == "" {
		return types.AlertRule{}, fmt.Errorf("rule name is required")
	}
	if rc.Field == "" {
		return types.AlertRule{}, fmt.Errorf("rule field is required")
	}
	severity, err := types.ParseSeverity(rc.Severity)
	if err != nil {
		return types.AlertRule{}, err
	}

	pred, err := compilePredicate(rc)
	if err != nil {
		return types.AlertRule{}, err
	}

	desc := rc.Description
	if desc == "" {
		desc = fmt.Sprintf("%s %s threshold rule", rc.Field, rc.Operator)
	}

	return types.AlertRule{
		Name:            rc.Name,
		Predicate:       pred,
		Severity:        severity,
		EscalationLevel: rc.EscalationLevel,
		Description:     desc,
	}, nil
}

func compilePredicate(rc types.RuleConfig) (types.Predicate, error) {
	field := rc.Field
	threshold := rc.Threshold

	switch rc.Operator {
	case "gt":
		return func(r types.Record) bool {
			v, ok := r.Float(field)
			return ok && v > threshold
		}, nil
	case "gte":
		return func(r types.Record) bool {
			v, ok := r.Float(field)
			return ok && v >= threshold
		}, nil
	case "lt":
		return func(r types.Record) bool {
			v, ok := r.Float(field)
			return ok && v < threshold
		}, nil
	case "lte":
		return func(r types.Record) bool {
			v, ok := r.Float(field)
			return ok && v <= threshold
		}, nil
	case "eq":
		if rc.Value != "" {
			value := rc.Value
			return func(r types.Record) bool {
				s, ok := r.Str(field)
				return ok && s == value
			}, nil
		}
		return func(r types.Record) bool {
			v, ok := r.Float(field)
			return ok && v == threshold
		}, nil
	default:
		return nil, fmt.Errorf("unknown operator %q", rc.Operator)
	}
}
