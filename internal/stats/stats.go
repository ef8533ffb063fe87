// Package stats aggregates trigger history into audit statistics.
package stats

import "github.com/apexcomponents/andon/pkg/types"

// Summarize computes counts and the resolution rate over a trigger
// history slice. It is a pure function; count maps always sum to
// TotalTriggers. The resolution rate of an empty history is 0.
func Summarize(history []types.Trigger) types.Summary {
	s := types.Summary{
		TotalTriggers: len(history),
		BySeverity:    make(map[types.Severity]int),
		ByMachine:     make(map[string]int),
		ByType:        make(map[string]int),
	}

	resolved := 0
	for _, t := range history {
		s.BySeverity[t.Severity]++
		s.ByMachine[t.MachineID]++
		s.ByType[t.TriggerType]++
		if t.Resolved {
			resolved++
		}
	}

	if s.TotalTriggers > 0 {
		s.ResolutionRate = float64(resolved) / float64(s.TotalTriggers)
	}
	return s
}
