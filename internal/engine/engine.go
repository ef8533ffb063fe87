// Package engine wires rule evaluation, the trigger store, and escalation
// into the andon processing pipeline.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/apexcomponents/andon/internal/escalate"
	"github.com/apexcomponents/andon/internal/metrics"
	"github.com/apexcomponents/andon/internal/rules"
	"github.com/apexcomponents/andon/internal/snapshot"
	"github.com/apexcomponents/andon/internal/stats"
	"github.com/apexcomponents/andon/internal/store"
	"github.com/apexcomponents/andon/pkg/types"
)

// Engine evaluates telemetry records against the rule registry, keeps the
// trigger store consistent, and hands new triggers to the escalation
// router. Records for different machines process fully in parallel;
// records for the same machine serialize on a per-machine lock so the
// at-most-one-active-trigger invariant holds under concurrent arrivals.
type Engine struct {
	registry *rules.Registry
	store    *store.Store
	router   *escalate.Router
	logger   *slog.Logger
	tracer   trace.Tracer

	mu           sync.Mutex
	machineLocks map[string]*sync.Mutex
}

// New creates an Engine.
func New(registry *rules.Registry, st *store.Store, router *escalate.Router, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry:     registry,
		store:        st,
		router:       router,
		logger:       logger,
		tracer:       otel.Tracer("github.com/apexcomponents/andon"),
		machineLocks: make(map[string]*sync.Mutex),
	}
}

// Process evaluates one telemetry record and returns the newly created
// triggers. Matches that already have an active trigger are suppressed.
// Newly created triggers are queued for escalation dispatch.
func (e *Engine) Process(ctx context.Context, record types.Record) ([]types.Trigger, error) {
	machineID := record.MachineID()
	if machineID == "" {
		return nil, fmt.Errorf("record missing machine_id")
	}

	ctx, span := e.tracer.Start(ctx, "andon.Process",
		trace.WithAttributes(attribute.String("machine.id", machineID)))
	defer span.End()

	lock := e.machineLock(machineID)
	lock.Lock()
	defer lock.Unlock()

	metrics.RecordsProcessed.Add(1)
	matched := e.registry.Evaluate(record)

	var created []types.Trigger
	for _, rule := range matched {
		trigger, isNew := e.store.GetOrCreate(machineID, rule)
		if !isNew {
			continue
		}
		created = append(created, trigger)
		if e.router != nil {
			e.router.Enqueue(trigger)
		}
	}

	span.SetAttributes(
		attribute.Int("rules.matched", len(matched)),
		attribute.Int("triggers.created", len(created)),
	)
	return created, nil
}

// ProcessStream fans records out to a bounded worker pool. The machine
// locks keep the at-most-one-active invariant under concurrent arrivals,
// but workers racing from channel receive to lock acquisition may commit
// same-machine records out of arrival order; callers needing strict
// per-machine ordering should run a single worker.
func (e *Engine) ProcessStream(ctx context.Context, records <-chan types.Record, workers int) error {
	if workers <= 0 {
		workers = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case record, ok := <-records:
					if !ok {
						return nil
					}
					if _, err := e.Process(ctx, record); err != nil {
						e.logger.Error("record skipped", "error", err)
					}
				}
			}
		})
	}
	return g.Wait()
}

// Resolve marks the active trigger for (machineID, triggerType) resolved.
// Returns false when no active trigger exists for the key.
func (e *Engine) Resolve(machineID, triggerType, action string) bool {
	return e.store.Resolve(machineID, triggerType, action)
}

// ActiveTriggers returns unresolved triggers, optionally filtered by
// machine (empty string means all).
func (e *Engine) ActiveTriggers(machineID string) []types.Trigger {
	return e.store.Active(machineID)
}

// Statistics summarizes trigger history over the last windowDays days.
func (e *Engine) Statistics(windowDays int) types.Summary {
	window := time.Duration(windowDays) * 24 * time.Hour
	return stats.Summarize(e.store.History("", window))
}

// ExportTriggers writes the full trigger set to a snapshot file.
func (e *Engine) ExportTriggers(path string) error {
	if err := snapshot.ExportFile(path, e.store.Snapshot()); err != nil {
		return err
	}
	e.logger.Info("triggers exported", "path", path, "count", e.store.Len())
	return nil
}

// ImportTriggers replaces the store contents from a snapshot file. The
// import is atomic: a malformed snapshot leaves the store untouched.
func (e *Engine) ImportTriggers(path string) error {
	triggers, err := snapshot.ImportFile(path)
	if err != nil {
		return err
	}
	if err := e.store.Replace(triggers); err != nil {
		return err
	}
	e.logger.Info("triggers imported", "path", path, "count", len(triggers))
	return nil
}

func (e *Engine) machineLock(machineID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.machineLocks[machineID]
	if !ok {
		lock = &sync.Mutex{}
		e.machineLocks[machineID] = lock
	}
	return lock
}
