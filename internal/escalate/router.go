package escalate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/apexcomponents/andon/internal/metrics"
	"github.com/apexcomponents/andon/pkg/types"
)

// Dispatch queue defaults.
const (
	defaultQueueSize = 256
	defaultWorkers   = 4
)

// Router maps trigger severity to a channel set and dispatches to the
// configured notifiers. Dispatch is asynchronous relative to evaluation:
// triggers are queued to a bounded channel consumed by a worker pool.
// When the queue is full the newest dispatch is dropped and logged rather
// than blocking evaluation.
type Router struct {
	policy    types.EscalationPolicy
	notifiers Notifiers
	audit     *StopAudit
	logger    *slog.Logger

	queue   chan types.Trigger
	workers int

	mu      sync.Mutex
	started bool
	stopped bool
	g       *errgroup.Group
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithQueueSize bounds the dispatch queue.
func WithQueueSize(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.queue = make(chan types.Trigger, n)
		}
	}
}

// WithWorkers sets the dispatch worker count.
func WithWorkers(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithStopAudit attaches the machine-stop audit trail.
func WithStopAudit(a *StopAudit) RouterOption {
	return func(r *Router) { r.audit = a }
}

// NewRouter creates a Router for the given policy and channel set.
func NewRouter(policy types.EscalationPolicy, notifiers Notifiers, logger *slog.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = types.DefaultEscalationPolicy()
	}
	r := &Router{
		policy:    policy,
		notifiers: notifiers,
		logger:    logger,
		queue:     make(chan types.Trigger, defaultQueueSize),
		workers:   defaultWorkers,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start launches the dispatch workers. Workers drain the queue fully on
// shutdown: an accepted dispatch, including a machine stop, is delivered
// even while the router is stopping.
func (r *Router) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	// Accepted dispatches are delivered even after the caller's context
	// is canceled; per-delivery deadlines bound the drain instead.
	dispatchCtx := context.WithoutCancel(ctx)
	g := new(errgroup.Group)
	r.g = g
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			for trigger := range r.queue {
				r.Dispatch(dispatchCtx, trigger)
			}
			return nil
		})
	}
	r.logger.Info("escalation router started", "workers", r.workers, "queue", cap(r.queue))
}

// Stop closes the queue and waits for workers to drain it, bounded by ctx.
func (r *Router) Stop(ctx context.Context) {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.queue)
	g := r.g
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("escalation router stopped")
	case <-ctx.Done():
		r.logger.Warn("escalation router stop timed out")
	}
}

// Enqueue hands a trigger to the dispatch workers. Returns false when the
// queue is full (the dispatch is dropped and logged) or the router is
// stopped.
func (r *Router) Enqueue(trigger types.Trigger) bool {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		r.logger.Warn("dispatch after router stop, dropping",
			"machine", trigger.MachineID, "type", trigger.TriggerType)
		metrics.DispatchesDropped.Add(1)
		return false
	}
	defer r.mu.Unlock()

	select {
	case r.queue <- trigger:
		return true
	default:
		metrics.DispatchesDropped.Add(1)
		r.logger.Warn("dispatch queue full, dropping newest",
			"machine", trigger.MachineID, "type", trigger.TriggerType, "severity", trigger.Severity)
		return false
	}
}

// Dispatch fans one trigger out to every channel its severity enables.
// A failing channel is logged and never blocks delivery to the others.
// Dispatch never mutates trigger store state.
func (r *Router) Dispatch(ctx context.Context, trigger types.Trigger) {
	channels := r.policy.Channels(trigger.Severity)

	if channels.Email {
		r.notify(ctx, r.notifiers.Email, "email", trigger)
	}
	if channels.SMS {
		r.notify(ctx, r.notifiers.SMS, "sms", trigger)
	}
	if channels.Dashboard {
		r.notify(ctx, r.notifiers.Dashboard, "dashboard", trigger)
	}
	if channels.StopMachine {
		r.requestStop(ctx, trigger)
	}
}

func (r *Router) notify(ctx context.Context, n Notifier, channel string, trigger types.Trigger) {
	if n == nil {
		r.logger.Debug("channel not configured", "channel", channel)
		return
	}
	if err := n.Notify(ctx, trigger); err != nil {
		metrics.DispatchesFailed.AddAttr(1, "channel", channel)
		r.logger.Error("notification failed",
			"channel", channel, "machine", trigger.MachineID, "type", trigger.TriggerType, "error", err)
		return
	}
	metrics.DispatchesSent.AddAttr(1, "channel", channel)
}

func (r *Router) requestStop(ctx context.Context, trigger types.Trigger) {
	metrics.StopCommands.Add(1)

	// Stop commands get their own delivery deadline; a hung controller
	// must not stall the worker forever.
	stopCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var err error
	if r.notifiers.Stop == nil {
		err = errors.New("no stop controller configured")
	} else {
		err = r.notifiers.Stop.RequestStop(stopCtx, trigger.MachineID)
	}

	r.audit.Record(trigger, err)

	if err != nil {
		metrics.StopFailures.Add(1)
		r.logger.Error("MACHINE STOP DELIVERY FAILED",
			"machine", trigger.MachineID, "type", trigger.TriggerType, "error", err)
		return
	}
	r.logger.Warn("machine stop requested",
		"machine", trigger.MachineID, "type", trigger.TriggerType)
}
