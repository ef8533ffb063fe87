// Package metrics exposes engine counters via OpenTelemetry.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/apexcomponents/andon")

// Counter is a thin wrapper over an otel Int64Counter for call sites that
// have no context of their own (hot paths inside locks).
type Counter struct {
	c metric.Int64Counter
}

// Add increments the counter.
func (c Counter) Add(n int64) {
	c.c.Add(context.Background(), n)
}

// AddAttr increments the counter with a single string attribute.
func (c Counter) AddAttr(n int64, key, value string) {
	c.c.Add(context.Background(), n, metric.WithAttributes(attribute.String(key, value)))
}

func newCounter(name, desc string) Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		// The global meter only errors on invalid instrument names,
		// which would be a programming bug here.
		panic(err)
	}
	return Counter{c: c}
}

var (
	RecordsProcessed  = newCounter("andon.records.processed", "telemetry records evaluated")
	PredicateFailures = newCounter("andon.predicate.failures", "rule predicates that panicked during evaluation")
	TriggersCreated   = newCounter("andon.triggers.created", "new andon triggers created")
	TriggersDeduped   = newCounter("andon.triggers.deduped", "rule matches suppressed by an existing active trigger")
	TriggersResolved  = newCounter("andon.triggers.resolved", "triggers moved to the resolved state")
	DispatchesSent    = newCounter("andon.dispatch.sent", "notifications delivered per channel")
	DispatchesFailed  = newCounter("andon.dispatch.failed", "notification deliveries that errored per channel")
	DispatchesDropped = newCounter("andon.dispatch.dropped", "dispatches dropped because the queue was full")
	StopCommands      = newCounter("andon.stop.commands", "machine stop commands attempted")
	StopFailures      = newCounter("andon.stop.failures", "machine stop commands that failed delivery")
)
