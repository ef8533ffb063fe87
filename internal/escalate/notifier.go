// Package escalate routes triggers to notification channels by severity.
package escalate

import (
	"context"

	"github.com/apexcomponents/andon/pkg/types"
)

// Notifier delivers a trigger notification over one channel. Transport
// lives behind this boundary; the engine only calls it.
type Notifier interface {
	Notify(ctx context.Context, trigger types.Trigger) error
	Name() string
}

// StopController requests a physical machine stop. Unlike the other
// channels this has physical consequences: every attempt is audited, and
// an accepted stop command is never cancelled.
type StopController interface {
	RequestStop(ctx context.Context, machineID string) error
}

// Notifiers bundles the channel collaborators injected into the Router.
// A nil entry disables that channel.
type Notifiers struct {
	Email     Notifier
	SMS       Notifier
	Dashboard Notifier
	Stop      StopController
}
