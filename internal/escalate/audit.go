package escalate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/apexcomponents/andon/pkg/types"
)

// StopAudit is the hard audit trail for machine stop commands, separate
// from routine notification logs. Every attempt is recorded, delivered
// or not: a dropped stop command is a safety concern.
type StopAudit struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// StopAuditEntry is one JSONL line in the audit file.
type StopAuditEntry struct {
	MachineID   string    `json:"machineId"`
	TriggerType string    `json:"triggerType"`
	TriggerID   string    `json:"triggerId"`
	RequestedAt time.Time `json:"requestedAt"`
	Delivered   bool      `json:"delivered"`
	Error       string    `json:"error,omitempty"`
}

// NewStopAudit creates the audit trail, verifying the file is writable.
func NewStopAudit(path string, logger *slog.Logger) (*StopAudit, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening stop audit file: %w", err)
	}
	_ = f.Close()

	if logger == nil {
		logger = slog.Default()
	}
	return &StopAudit{path: path, logger: logger, now: time.Now}, nil
}

// Record appends an audit entry for one stop attempt. Safe on a nil
// receiver: the attempt is still logged, just not persisted.
func (a *StopAudit) Record(trigger types.Trigger, deliveryErr error) {
	if a == nil {
		slog.Default().Error("stop attempt without audit trail configured",
			"machine", trigger.MachineID, "delivered", deliveryErr == nil)
		return
	}

	entry := StopAuditEntry{
		MachineID:   trigger.MachineID,
		TriggerType: trigger.TriggerType,
		TriggerID:   trigger.ID,
		RequestedAt: a.now(),
		Delivered:   deliveryErr == nil,
	}
	if deliveryErr != nil {
		entry.Error = deliveryErr.Error()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		a.logger.Error("stop audit write failed", "error", err, "machine", trigger.MachineID)
		return
	}
	defer func() { _ = f.Close() }()

	data, err := json.Marshal(entry)
	if err != nil {
		a.logger.Error("stop audit marshal failed", "error", err)
		return
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		a.logger.Error("stop audit write failed", "error", err, "machine", trigger.MachineID)
	}
}
