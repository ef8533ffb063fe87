package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexcomponents/andon/internal/rules"
	"github.com/apexcomponents/andon/internal/store"
	"github.com/apexcomponents/andon/pkg/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	reg := rules.NewRegistry(logger)
	rules.RegisterBuiltins(reg, types.ThresholdConfig{
		CriticalVibration: 4.0,
		HighTemp:          85.0,
		CurrentSpike:      15.0,
		LowRULHours:       24.0,
	})
	return New(reg, store.New(logger), nil, logger)
}

func TestProcess_CreatesCriticalTrigger(t *testing.T) {
	e := newTestEngine(t)

	created, err := e.Process(context.Background(), types.Record{
		"machine_id":    "VF2_01",
		"vibration_rms": 5.0,
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	trig := created[0]
	assert.Equal(t, "VF2_01", trig.MachineID)
	assert.Equal(t, types.SeverityCritical, trig.Severity)
	assert.NotEmpty(t, trig.ID)
	assert.False(t, trig.Resolved)
}

func TestProcess_DuplicateRecordSuppressed(t *testing.T) {
	e := newTestEngine(t)
	record := types.Record{"machine_id": "VF2_01", "vibration_rms": 5.0}

	first, err := e.Process(context.Background(), record)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := e.Process(context.Background(), record)
	require.NoError(t, err)
	assert.Empty(t, second, "active trigger suppresses re-creation")

	assert.Len(t, e.ActiveTriggers("VF2_01"), 1)
}

func TestProcess_MissingMachineID(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Process(context.Background(), types.Record{"vibration_rms": 5.0})
	assert.ErrorContains(t, err, "machine_id")
}

func TestProcess_NormalRecordNoTriggers(t *testing.T) {
	e := newTestEngine(t)

	created, err := e.Process(context.Background(), types.Record{
		"machine_id":    "VF2_01",
		"vibration_rms": 2.1,
		"servo_temp":    60.0,
	})
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, e.ActiveTriggers(""))
}

func TestResolveLifecycle(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Process(context.Background(), types.Record{
		"machine_id":    "VF2_01",
		"vibration_rms": 5.0,
	})
	require.NoError(t, err)

	ok := e.Resolve("VF2_01", rules.RuleCriticalVibration, "Replaced spindle bearing")
	assert.True(t, ok)
	assert.Empty(t, e.ActiveTriggers("VF2_01"))

	// A second resolve for the same key has nothing to act on.
	assert.False(t, e.Resolve("VF2_01", rules.RuleCriticalVibration, "again"))

	summary := e.Statistics(7)
	assert.Equal(t, 1, summary.TotalTriggers)
	assert.InDelta(t, 1.0, summary.ResolutionRate, 1e-9)
}

func TestResolvedTriggerCanRetrigger(t *testing.T) {
	e := newTestEngine(t)
	record := types.Record{"machine_id": "VF2_01", "vibration_rms": 5.0}

	_, err := e.Process(context.Background(), record)
	require.NoError(t, err)
	require.True(t, e.Resolve("VF2_01", rules.RuleCriticalVibration, "fixed"))

	created, err := e.Process(context.Background(), record)
	require.NoError(t, err)
	require.Len(t, created, 1, "resolved key frees the slot for a fresh trigger")

	summary := e.Statistics(7)
	assert.Equal(t, 2, summary.TotalTriggers)
	assert.InDelta(t, 0.5, summary.ResolutionRate, 1e-9)
}

func TestProcess_MultipleRulesOneRecord(t *testing.T) {
	e := newTestEngine(t)

	created, err := e.Process(context.Background(), types.Record{
		"machine_id":    "ST10_01",
		"vibration_rms": 6.0,
		"servo_temp":    92.0,
		"rul_hours":     10.0,
	})
	require.NoError(t, err)
	assert.Len(t, created, 3)
}

func TestProcess_ConcurrentSameMachine(t *testing.T) {
	e := newTestEngine(t)
	record := types.Record{"machine_id": "KUKA_01", "vibration_rms": 5.5}

	var wg sync.WaitGroup
	var mu sync.Mutex
	totalCreated := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := e.Process(context.Background(), record)
			assert.NoError(t, err)
			mu.Lock()
			totalCreated += len(created)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, totalCreated)
	assert.Len(t, e.ActiveTriggers("KUKA_01"), 1)
}

func TestProcessStream(t *testing.T) {
	e := newTestEngine(t)

	records := make(chan types.Record, 8)
	records <- types.Record{"machine_id": "VF2_01", "vibration_rms": 5.0}
	records <- types.Record{"machine_id": "ST10_01", "servo_temp": 90.0}
	records <- types.Record{"machine_id": "VF2_01", "vibration_rms": 5.2}
	records <- types.Record{"vibration_rms": 9.9} // no machine_id, logged and skipped
	close(records)

	require.NoError(t, e.ProcessStream(context.Background(), records, 3))

	assert.Len(t, e.ActiveTriggers("VF2_01"), 1)
	assert.Len(t, e.ActiveTriggers("ST10_01"), 1)
	assert.Len(t, e.ActiveTriggers(""), 2)
}

func TestProcessStream_ContextCancel(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	records := make(chan types.Record)

	done := make(chan error, 1)
	go func() { done <- e.ProcessStream(ctx, records, 2) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ProcessStream did not return after cancel")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Process(context.Background(), types.Record{
		"machine_id":    "VF2_01",
		"vibration_rms": 5.0,
	})
	require.NoError(t, err)
	_, err = e.Process(context.Background(), types.Record{
		"machine_id": "ST10_01",
		"servo_temp": 95.0,
	})
	require.NoError(t, err)
	require.True(t, e.Resolve("ST10_01", rules.RuleHighTemperature, "Coolant refilled"))

	path := filepath.Join(t.TempDir(), "triggers.json")
	require.NoError(t, e.ExportTriggers(path))

	restored := newTestEngine(t)
	require.NoError(t, restored.ImportTriggers(path))

	assert.Len(t, restored.ActiveTriggers(""), 1)
	assert.Equal(t, "VF2_01", restored.ActiveTriggers("")[0].MachineID)

	summary := restored.Statistics(7)
	assert.Equal(t, 2, summary.TotalTriggers)
	assert.InDelta(t, 0.5, summary.ResolutionRate, 1e-9)
}

func TestImportTriggers_MalformedLeavesStoreUntouched(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Process(context.Background(), types.Record{
		"machine_id":    "VF2_01",
		"vibration_rms": 5.0,
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"machineId":""}]`), 0o644))

	require.Error(t, e.ImportTriggers(path))
	assert.Len(t, e.ActiveTriggers(""), 1, "failed import must not clear state")
}
