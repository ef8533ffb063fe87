package escalate

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"golang.org/x/time/rate"

	"github.com/apexcomponents/andon/pkg/types"
)

// SendMailFunc matches smtp.SendMail, injectable for tests.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier delivers trigger alerts by email through a plant SMTP
// relay. Recipients widen with severity. An optional rate limiter sheds
// mail during alert storms so operators are not flooded.
type SMTPNotifier struct {
	addr       string
	from       string
	recipients map[types.Severity][]string
	limiter    *rate.Limiter
	sendMail   SendMailFunc
	logger     *slog.Logger
}

// SMTPOption configures an SMTPNotifier.
type SMTPOption func(*SMTPNotifier)

// WithSendMail overrides the SMTP transport, for tests.
func WithSendMail(fn SendMailFunc) SMTPOption {
	return func(n *SMTPNotifier) { n.sendMail = fn }
}

// WithEmailRate limits deliveries to n per minute; n <= 0 disables the limit.
func WithEmailRate(n int) SMTPOption {
	return func(s *SMTPNotifier) {
		if n > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), n)
		}
	}
}

// NewSMTPNotifier creates an email notifier from config.
func NewSMTPNotifier(cfg types.EmailConfig, logger *slog.Logger, opts ...SMTPOption) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp host and from address required")
	}
	port := cfg.Port
	if port == 0 {
		port = 25
	}

	recipients := make(map[types.Severity][]string, len(cfg.Recipients))
	for sevName, addrs := range cfg.Recipients {
		sev, err := types.ParseSeverity(sevName)
		if err != nil {
			return nil, fmt.Errorf("email recipients: %w", err)
		}
		recipients[sev] = addrs
	}

	if logger == nil {
		logger = slog.Default()
	}
	n := &SMTPNotifier{
		addr:       fmt.Sprintf("%s:%d", cfg.Host, port),
		from:       cfg.From,
		recipients: recipients,
		sendMail:   smtp.SendMail,
		logger:     logger,
	}
	if cfg.RatePerMinute > 0 {
		WithEmailRate(cfg.RatePerMinute)(n)
	}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Name returns the channel identifier.
func (n *SMTPNotifier) Name() string { return "email" }

// Notify sends the alert email. A rate-limited delivery is shed with a
// warning, not reported as a channel failure.
func (n *SMTPNotifier) Notify(_ context.Context, t types.Trigger) error {
	if n.limiter != nil && !n.limiter.Allow() {
		n.logger.Warn("email rate limited, shedding",
			"machine", t.MachineID, "type", t.TriggerType)
		return nil
	}

	to := n.RecipientsFor(t.Severity)
	if len(to) == 0 {
		return fmt.Errorf("no email recipients for severity %s", t.Severity)
	}

	msg := buildEmail(n.from, to, t)
	if err := n.sendMail(n.addr, nil, n.from, to, msg); err != nil {
		return fmt.Errorf("sending alert email: %w", err)
	}
	return nil
}

// RecipientsFor returns the distribution list for a severity, falling
// back to the low-severity list when none is configured.
func (n *SMTPNotifier) RecipientsFor(s types.Severity) []string {
	if to, ok := n.recipients[s]; ok && len(to) > 0 {
		return to
	}
	return n.recipients[types.SeverityLow]
}

func buildEmail(from string, to []string, t types.Trigger) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: ALERT: %s - %s\r\n", t.TriggerType, t.MachineID)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Andon Alert Details:\r\n\r\n")
	fmt.Fprintf(&b, "Machine ID: %s\r\n", t.MachineID)
	fmt.Fprintf(&b, "Trigger Type: %s\r\n", t.TriggerType)
	fmt.Fprintf(&b, "Severity: %s\r\n", strings.ToUpper(string(t.Severity)))
	fmt.Fprintf(&b, "Description: %s\r\n", t.Description)
	fmt.Fprintf(&b, "Timestamp: %s\r\n", t.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "\r\nPlease take appropriate action immediately.\r\n")
	return []byte(b.String())
}
