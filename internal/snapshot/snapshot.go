// Package snapshot serializes the full trigger set for durability.
//
// The wire form is a JSON array of records with RFC 3339 timestamps and
// explicit nulls for the fields an unresolved trigger has not set yet.
// Import validates every record before touching a store, so a malformed
// snapshot never leaves partial state behind.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/apexcomponents/andon/pkg/types"
)

// record is the persisted form of one trigger.
type record struct {
	ID               string  `json:"id"`
	MachineID        string  `json:"machineId"`
	TriggerType      string  `json:"triggerType"`
	Severity         string  `json:"severity"`
	Description      string  `json:"description"`
	CreatedAt        string  `json:"createdAt"`
	Resolved         bool    `json:"resolved"`
	ResolvedAt       *string `json:"resolvedAt"`
	ResolutionAction *string `json:"resolutionAction"`
}

// Export writes the trigger set as indented JSON.
func Export(w io.Writer, triggers []types.Trigger) error {
	records := make([]record, 0, len(triggers))
	for _, t := range triggers {
		r := record{
			ID:          t.ID,
			MachineID:   t.MachineID,
			TriggerType: t.TriggerType,
			Severity:    string(t.Severity),
			Description: t.Description,
			CreatedAt:   t.CreatedAt.Format(time.RFC3339Nano),
			Resolved:    t.Resolved,
		}
		if t.ResolvedAt != nil {
			s := t.ResolvedAt.Format(time.RFC3339Nano)
			r.ResolvedAt = &s
		}
		if t.Resolved {
			action := t.ResolutionAction
			r.ResolutionAction = &action
		}
		records = append(records, r)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// Import decodes and validates a snapshot. The first malformed record
// aborts the whole import, reporting its position; no triggers are
// returned on error.
func Import(r io.Reader) ([]types.Trigger, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	triggers := make([]types.Trigger, 0, len(records))
	for i, rec := range records {
		t, err := rec.toTrigger()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		triggers = append(triggers, t)
	}
	return triggers, nil
}

func (r record) toTrigger() (types.Trigger, error) {
	if r.MachineID == "" {
		return types.Trigger{}, fmt.Errorf("missing machineId")
	}
	if r.TriggerType == "" {
		return types.Trigger{}, fmt.Errorf("missing triggerType")
	}
	severity, err := types.ParseSeverity(r.Severity)
	if err != nil {
		return types.Trigger{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return types.Trigger{}, fmt.Errorf("invalid createdAt %q: %w", r.CreatedAt, err)
	}

	t := types.Trigger{
		ID:          r.ID,
		MachineID:   r.MachineID,
		TriggerType: r.TriggerType,
		Severity:    severity,
		Description: r.Description,
		CreatedAt:   createdAt,
		Resolved:    r.Resolved,
	}

	if r.Resolved {
		if r.ResolvedAt == nil {
			return types.Trigger{}, fmt.Errorf("resolved trigger missing resolvedAt")
		}
		resolvedAt, err := time.Parse(time.RFC3339Nano, *r.ResolvedAt)
		if err != nil {
			return types.Trigger{}, fmt.Errorf("invalid resolvedAt %q: %w", *r.ResolvedAt, err)
		}
		t.ResolvedAt = &resolvedAt
		if r.ResolutionAction != nil {
			t.ResolutionAction = *r.ResolutionAction
		}
	} else if r.ResolvedAt != nil || r.ResolutionAction != nil {
		return types.Trigger{}, fmt.Errorf("unresolved trigger carries resolution fields")
	}

	return t, nil
}

// ExportFile writes a snapshot atomically: the data goes to a temp file
// in the same directory, then renames over the destination.
func ExportFile(path string, triggers []types.Trigger) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".andon-snapshot-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Export(tmp, triggers); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// ImportFile reads and validates a snapshot file.
func ImportFile(path string) ([]types.Trigger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Import(f)
}
