package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexcomponents/andon/pkg/types"
)

var vibrationRule = types.AlertRule{
	Name:            "Critical Vibration",
	Severity:        types.SeverityCritical,
	EscalationLevel: 4,
	Description:     "Vibration exceeds critical threshold",
}

func TestStore_GetOrCreate(t *testing.T) {
	s := New(nil)

	first, created := s.GetOrCreate("VF2_01", vibrationRule)
	require.True(t, created)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "VF2_01", first.MachineID)
	assert.Equal(t, "Critical Vibration", first.TriggerType)
	assert.Equal(t, types.SeverityCritical, first.Severity)
	assert.Equal(t, vibrationRule.Description, first.Description)
	assert.False(t, first.Resolved)

	second, created := s.GetOrCreate("VF2_01", vibrationRule)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, s.Len())
}

func TestStore_GetOrCreate_KeysAreMachineScoped(t *testing.T) {
	s := New(nil)

	_, created := s.GetOrCreate("VF2_01", vibrationRule)
	require.True(t, created)
	_, created = s.GetOrCreate("ST10_01", vibrationRule)
	assert.True(t, created, "same rule on a different machine is a new trigger")

	otherRule := vibrationRule
	otherRule.Name = "High Temperature"
	_, created = s.GetOrCreate("VF2_01", otherRule)
	assert.True(t, created, "different rule on the same machine is a new trigger")
}

func TestStore_Resolve(t *testing.T) {
	s := New(nil)
	s.GetOrCreate("VF2_01", vibrationRule)

	ok := s.Resolve("VF2_01", "Critical Vibration", "replaced bearing")
	require.True(t, ok)

	assert.Empty(t, s.Active("VF2_01"))

	history := s.History("VF2_01", 0)
	require.Len(t, history, 1)
	resolved := history[0]
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "replaced bearing", resolved.ResolutionAction)

	// Second resolve finds no active trigger: no-op, not an error.
	assert.False(t, s.Resolve("VF2_01", "Critical Vibration", "again"))
	assert.False(t, s.Resolve("VF2_01", "Unknown Rule", "x"))
}

func TestStore_ResolvedKeyCanRetrigger(t *testing.T) {
	s := New(nil)

	first, _ := s.GetOrCreate("VF2_01", vibrationRule)
	require.True(t, s.Resolve("VF2_01", "Critical Vibration", "fixed"))

	second, created := s.GetOrCreate("VF2_01", vibrationRule)
	require.True(t, created, "a resolved trigger does not suppress a new one")
	assert.NotEqual(t, first.ID, second.ID)

	// Both live in history; only one is active.
	assert.Len(t, s.History("VF2_01", 0), 2)
	assert.Len(t, s.Active("VF2_01"), 1)
}

func TestStore_AtMostOneActivePerKey_Concurrent(t *testing.T) {
	s := New(nil)

	const goroutines = 64
	var wg sync.WaitGroup
	createdCount := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created := s.GetOrCreate("VF2_01", vibrationRule)
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	total := 0
	for created := range createdCount {
		if created {
			total++
		}
	}
	assert.Equal(t, 1, total, "exactly one goroutine creates the trigger")
	assert.Len(t, s.Active("VF2_01"), 1)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ActiveFilter(t *testing.T) {
	s := New(nil)
	s.GetOrCreate("VF2_01", vibrationRule)
	s.GetOrCreate("ST10_01", vibrationRule)

	assert.Len(t, s.Active(""), 2)
	assert.Len(t, s.Active("VF2_01"), 1)
	assert.Empty(t, s.Active("KUKA_01"))
}

func TestStore_HistoryWindow(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	clock := now.Add(-10 * 24 * time.Hour)
	s := New(nil, WithNow(func() time.Time { return clock }))

	s.GetOrCreate("VF2_01", vibrationRule) // 10 days old

	clock = now.Add(-2 * 24 * time.Hour)
	other := vibrationRule
	other.Name = "High Temperature"
	s.GetOrCreate("VF2_01", other) // 2 days old

	clock = now
	assert.Len(t, s.History("", 0), 2, "non-positive window returns everything")
	assert.Len(t, s.History("", 7*24*time.Hour), 1)
	assert.Len(t, s.History("ST10_01", 0), 0)
}

func TestStore_Replace(t *testing.T) {
	s := New(nil)
	s.GetOrCreate("VF2_01", vibrationRule)

	now := time.Now()
	err := s.Replace([]types.Trigger{
		{ID: "01A", MachineID: "ST10_01", TriggerType: "Quality Issue", Severity: types.SeverityMedium, CreatedAt: now},
		{ID: "01B", MachineID: "ST10_01", TriggerType: "Quality Issue", Severity: types.SeverityMedium, CreatedAt: now,
			Resolved: true, ResolvedAt: &now, ResolutionAction: "rework scheduled"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	active := s.Active("")
	require.Len(t, active, 1)
	assert.Equal(t, "01A", active[0].ID)
}

func TestStore_Replace_RejectsDuplicateActive(t *testing.T) {
	s := New(nil)
	s.GetOrCreate("VF2_01", vibrationRule)

	now := time.Now()
	dup := []types.Trigger{
		{ID: "01A", MachineID: "ST10_01", TriggerType: "Quality Issue", Severity: types.SeverityMedium, CreatedAt: now},
		{ID: "01B", MachineID: "ST10_01", TriggerType: "Quality Issue", Severity: types.SeverityMedium, CreatedAt: now},
	}
	err := s.Replace(dup)
	require.Error(t, err)

	var dupErr *DuplicateActiveError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "ST10_01", dupErr.Key.MachineID)

	// Store is untouched on rejection.
	assert.Equal(t, 1, s.Len())
	assert.Len(t, s.Active("VF2_01"), 1)
}

func TestStore_CompactBefore(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	clock := now.Add(-30 * 24 * time.Hour)
	s := New(nil, WithNow(func() time.Time { return clock }))

	s.GetOrCreate("VF2_01", vibrationRule)
	s.Resolve("VF2_01", vibrationRule.Name, "fixed") // old, resolved

	other := vibrationRule
	other.Name = "High Temperature"
	s.GetOrCreate("VF2_01", other) // old but still active

	clock = now
	s.GetOrCreate("ST10_01", vibrationRule) // recent

	removed := s.CompactBefore(now.Add(-7 * 24 * time.Hour))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, s.Len())
	assert.Len(t, s.Active(""), 2, "active triggers are never expired")
}
