package escalate

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/apexcomponents/andon/pkg/types"
)

// ConsoleNotifier writes triggers to the terminal with severity colors.
// Used as the dashboard channel for local runs.
type ConsoleNotifier struct{}

// NewConsoleNotifier creates a console notifier.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

// Name returns the channel identifier.
func (n *ConsoleNotifier) Name() string { return "console" }

// Notify prints the trigger with a color-coded severity prefix.
func (n *ConsoleNotifier) Notify(_ context.Context, t types.Trigger) error {
	var prefix string
	switch t.Severity {
	case types.SeverityCritical:
		prefix = color.RedString("[CRITICAL]")
	case types.SeverityHigh:
		prefix = color.MagentaString("[HIGH]")
	case types.SeverityMedium:
		prefix = color.YellowString("[MEDIUM]")
	default:
		prefix = color.CyanString("[LOW]")
	}

	fmt.Printf("%s %s: %s - %s\n", prefix, t.MachineID, t.TriggerType, t.Description)
	return nil
}
