package escalate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"golang.org/x/time/rate"

	"github.com/apexcomponents/andon/pkg/types"
)

// SNSAPI is the subset of the SNS client used by SNSNotifier.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes trigger alerts to an SNS topic, the SMS fan-out
// path for on-call phones.
type SNSNotifier struct {
	client   SNSAPI
	topicARN string
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// SNSOption configures an SNSNotifier.
type SNSOption func(*SNSNotifier)

// WithSNSClient sets a custom SNS client (useful for testing).
func WithSNSClient(c SNSAPI) SNSOption {
	return func(n *SNSNotifier) { n.client = c }
}

// WithSNSRate limits publishes to n per minute; n <= 0 disables the limit.
func WithSNSRate(n int) SNSOption {
	return func(s *SNSNotifier) {
		if n > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), n)
		}
	}
}

// NewSNSNotifier creates an SNS notifier for the given topic.
func NewSNSNotifier(cfg types.SNSConfig, logger *slog.Logger, opts ...SNSOption) (*SNSNotifier, error) {
	if cfg.TopicARN == "" {
		return nil, fmt.Errorf("SNS topic ARN required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &SNSNotifier{topicARN: cfg.TopicARN, logger: logger}
	if cfg.RatePerMinute > 0 {
		WithSNSRate(cfg.RatePerMinute)(n)
	}
	for _, o := range opts {
		o(n)
	}
	if n.client == nil {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		n.client = sns.NewFromConfig(awsCfg)
	}
	return n, nil
}

// Name returns the channel identifier.
func (n *SNSNotifier) Name() string { return "sms" }

// Notify publishes a short SMS-shaped message for the trigger.
func (n *SNSNotifier) Notify(ctx context.Context, t types.Trigger) error {
	if n.limiter != nil && !n.limiter.Allow() {
		n.logger.Warn("sms rate limited, shedding",
			"machine", t.MachineID, "type", t.TriggerType)
		return nil
	}

	subject := fmt.Sprintf("ANDON [%s] %s", t.Severity, t.MachineID)
	if len(subject) > 100 {
		subject = subject[:100]
	}
	message := fmt.Sprintf("%s: %s on %s. %s", strings.ToUpper(string(t.Severity)), t.TriggerType, t.MachineID, t.Description)

	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("publishing to SNS: %w", err)
	}
	return nil
}
