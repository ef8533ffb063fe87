// Package store implements the deduplicated trigger lifecycle store.
//
// The store keeps an O(1) active index keyed by (machineID, triggerType)
// plus an append-only history log. The central invariant: at most one
// unresolved trigger per key may exist at any time. GetOrCreate and
// Resolve are the only mutation points and both run under the store lock.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/apexcomponents/andon/internal/metrics"
	"github.com/apexcomponents/andon/pkg/types"
)

// Store holds all triggers, active and resolved.
type Store struct {
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	active  map[types.TriggerKey]*types.Trigger
	history []*types.Trigger
}

// Option configures a Store.
type Option func(*Store)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty trigger store.
func New(logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		logger: logger,
		now:    time.Now,
		active: make(map[types.TriggerKey]*types.Trigger),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetOrCreate returns the unresolved trigger for (machineID, rule.Name)
// if one exists, otherwise creates one from the rule. The second return
// reports whether a new trigger was created.
func (s *Store) GetOrCreate(machineID string, rule types.AlertRule) (types.Trigger, bool) {
	key := types.TriggerKey{MachineID: machineID, TriggerType: rule.Name}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.active[key]; ok {
		metrics.TriggersDeduped.Add(1)
		return *existing, false
	}

	t := &types.Trigger{
		ID:          ulid.Make().String(),
		MachineID:   machineID,
		TriggerType: rule.Name,
		Severity:    rule.Severity,
		Description: rule.Description,
		CreatedAt:   s.now(),
	}
	s.active[key] = t
	s.history = append(s.history, t)

	metrics.TriggersCreated.Add(1)
	s.logger.Info("created andon trigger",
		"machine", machineID, "type", rule.Name, "severity", rule.Severity, "id", t.ID)
	return *t, true
}

// Resolve marks the unresolved trigger for the key as resolved. Returns
// false when no unresolved trigger exists for the key (no-op, not an
// error). A trigger transitions to resolved exactly once.
func (s *Store) Resolve(machineID, triggerType, action string) bool {
	key := types.TriggerKey{MachineID: machineID, TriggerType: triggerType}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.active[key]
	if !ok {
		return false
	}

	now := s.now()
	t.Resolved = true
	t.ResolvedAt = &now
	t.ResolutionAction = action
	delete(s.active, key)

	metrics.TriggersResolved.Add(1)
	s.logger.Info("resolved andon trigger",
		"machine", machineID, "type", triggerType, "action", action)
	return true
}

// Active returns unresolved triggers, optionally filtered by machine
// (empty machineID means all machines).
func (s *Store) Active(machineID string) []types.Trigger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Trigger
	// Walk history, not the map, to keep creation order.
	for _, t := range s.history {
		if t.Resolved {
			continue
		}
		if machineID != "" && t.MachineID != machineID {
			continue
		}
		out = append(out, *t)
	}
	return out
}

// History returns all triggers (resolved or not) created within the
// window, optionally filtered by machine. A non-positive window means
// the full history.
func (s *Store) History(machineID string, window time.Duration) []types.Trigger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cutoff time.Time
	if window > 0 {
		cutoff = s.now().Add(-window)
	}

	var out []types.Trigger
	for _, t := range s.history {
		if machineID != "" && t.MachineID != machineID {
			continue
		}
		if !cutoff.IsZero() && t.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, *t)
	}
	return out
}

// Snapshot returns copies of every trigger in creation order, for export.
func (s *Store) Snapshot() []types.Trigger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Trigger, 0, len(s.history))
	for _, t := range s.history {
		out = append(out, *t)
	}
	return out
}

// Replace swaps the store contents for the given trigger set, used by
// snapshot import. It is all-or-nothing: if the set violates the
// at-most-one-active-per-key invariant nothing changes.
func (s *Store) Replace(triggers []types.Trigger) error {
	active := make(map[types.TriggerKey]*types.Trigger, len(triggers))
	history := make([]*types.Trigger, 0, len(triggers))

	for i := range triggers {
		t := triggers[i] // copy, caller keeps its slice
		if !t.Resolved {
			key := t.Key()
			if _, dup := active[key]; dup {
				return &DuplicateActiveError{Key: key}
			}
			active[key] = &t
		}
		history = append(history, &t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
	s.history = history
	s.logger.Info("store replaced from snapshot", "triggers", len(history), "active", len(active))
	return nil
}

// CompactBefore drops resolved triggers created before the cutoff and
// returns how many were removed. Active triggers are never expired; an
// unresolved trigger represents a condition nobody has acted on yet.
func (s *Store) CompactBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.history[:0]
	removed := 0
	for _, t := range s.history {
		if t.Resolved && t.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.history = kept
	if removed > 0 {
		s.logger.Info("compacted trigger history", "removed", removed)
	}
	return removed
}

// Len returns the total number of triggers held, resolved included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// DuplicateActiveError reports two unresolved triggers sharing a dedup key.
type DuplicateActiveError struct {
	Key types.TriggerKey
}

func (e *DuplicateActiveError) Error() string {
	return "duplicate unresolved trigger for machine " + e.Key.MachineID + ", type " + e.Key.TriggerType
}
