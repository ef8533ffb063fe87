package escalate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/apexcomponents/andon/pkg/types"
)

const defaultStopTimeout = 10 * time.Second

// HTTPStopController delivers stop commands to the machine-controller
// gateway over HTTP. The call is wrapped in a circuit breaker so a dead
// gateway fails fast instead of tying up dispatch workers; every breaker
// state change is logged since stop delivery is a safety path.
type HTTPStopController struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// stopCommand is the request body sent to the controller gateway.
type stopCommand struct {
	MachineID   string    `json:"machineId"`
	RequestedAt time.Time `json:"requestedAt"`
}

// NewHTTPStopController creates the stop controller from config.
func NewHTTPStopController(cfg types.StopConfig, logger *slog.Logger) (*HTTPStopController, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("stop controller URL required")
	}
	timeout := defaultStopTimeout
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid stop timeout %q: %w", cfg.Timeout, err)
		}
		timeout = d
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &HTTPStopController{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "machine-stop",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("stop controller circuit state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// RequestStop posts a stop command for the machine. Fails fast while the
// circuit is open.
func (c *HTTPStopController) RequestStop(ctx context.Context, machineID string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.post(ctx, machineID)
	})
	return err
}

func (c *HTTPStopController) post(ctx context.Context, machineID string) error {
	data, err := json.Marshal(stopCommand{MachineID: machineID, RequestedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshaling stop command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building stop request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("stop POST failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("stop controller returned status %d", resp.StatusCode)
	}
	return nil
}
