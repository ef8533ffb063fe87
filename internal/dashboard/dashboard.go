// Package dashboard builds the per-machine andon board view.
package dashboard

import (
	"time"

	"github.com/apexcomponents/andon/pkg/types"
)

// Machine board statuses.
const (
	StatusNormal = "normal"
	StatusAlert  = "alert"
)

// MachineStatus is one machine's cell on the andon board.
type MachineStatus struct {
	Status        string         `json:"status"`
	Severity      types.Severity `json:"severity,omitempty"`
	TriggerCount  int            `json:"triggerCount"`
	LatestTrigger string         `json:"latestTrigger,omitempty"`
	Since         *time.Time     `json:"since,omitempty"`
}

// Board is the full andon board: per-machine status plus the reporting
// window statistics.
type Board struct {
	Machines    map[string]MachineStatus `json:"machines"`
	Statistics  types.Summary            `json:"statistics"`
	GeneratedAt time.Time                `json:"generatedAt"`
}

// Build assembles the board from the configured machine list, the active
// trigger set, and a statistics summary. Machines with active triggers
// show their highest-severity trigger; a severity tie goes to the more
// recent trigger.
func Build(machineIDs []string, active []types.Trigger, summary types.Summary) Board {
	byMachine := make(map[string][]types.Trigger)
	for _, t := range active {
		byMachine[t.MachineID] = append(byMachine[t.MachineID], t)
	}

	machines := make(map[string]MachineStatus, len(machineIDs))
	for _, id := range machineIDs {
		triggers := byMachine[id]
		if len(triggers) == 0 {
			machines[id] = MachineStatus{Status: StatusNormal}
			continue
		}

		top := triggers[0]
		for _, t := range triggers[1:] {
			if t.Severity.Rank() > top.Severity.Rank() ||
				(t.Severity.Rank() == top.Severity.Rank() && t.CreatedAt.After(top.CreatedAt)) {
				top = t
			}
		}

		since := top.CreatedAt
		machines[id] = MachineStatus{
			Status:        StatusAlert,
			Severity:      top.Severity,
			TriggerCount:  len(triggers),
			LatestTrigger: top.TriggerType,
			Since:         &since,
		}
	}

	return Board{
		Machines:    machines,
		Statistics:  summary,
		GeneratedAt: time.Now(),
	}
}
