// Package testutil provides recording fakes for notifier collaborators.
package testutil

import (
	"context"
	"sync"

	"github.com/apexcomponents/andon/pkg/types"
)

// RecordingNotifier captures every trigger it is asked to deliver.
type RecordingNotifier struct {
	ChannelName string
	Err         error // returned from Notify when non-nil

	mu    sync.Mutex
	calls []types.Trigger
}

// Name returns the configured channel name.
func (n *RecordingNotifier) Name() string { return n.ChannelName }

// Notify records the trigger and returns the configured error.
func (n *RecordingNotifier) Notify(_ context.Context, t types.Trigger) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, t)
	return n.Err
}

// Calls returns the triggers delivered so far.
func (n *RecordingNotifier) Calls() []types.Trigger {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.Trigger, len(n.calls))
	copy(out, n.calls)
	return out
}

// RecordingStop captures machine stop requests.
type RecordingStop struct {
	Err error

	mu    sync.Mutex
	stops []string
}

// RequestStop records the machine ID and returns the configured error.
func (s *RecordingStop) RequestStop(_ context.Context, machineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops = append(s.stops, machineID)
	return s.Err
}

// Stops returns the machine IDs stopped so far.
func (s *RecordingStop) Stops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.stops))
	copy(out, s.stops)
	return out
}
