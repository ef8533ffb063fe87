package types

// Config is the top-level andon.yaml configuration.
type Config struct {
	Thresholds ThresholdConfig       `yaml:"thresholds" json:"thresholds"`
	Machines   []MachineConfig       `yaml:"machines,omitempty" json:"machines,omitempty"`
	Escalation map[string]ChannelSet `yaml:"escalation,omitempty" json:"escalation,omitempty"`
	Rules      []RuleConfig          `yaml:"rules,omitempty" json:"rules,omitempty"`
	Notifiers  NotifierConfig        `yaml:"notifiers" json:"notifiers"`
	Dispatch   DispatchConfig        `yaml:"dispatch" json:"dispatch"`
	Snapshot   SnapshotConfig        `yaml:"snapshot" json:"snapshot"`
	Telemetry  TelemetryConfig       `yaml:"telemetry,omitempty" json:"telemetry,omitempty"`
}

// ThresholdConfig holds the tunable limits consumed by the built-in rules.
type ThresholdConfig struct {
	CriticalVibration float64 `yaml:"criticalVibration" json:"criticalVibration"` // mm/s
	HighTemp          float64 `yaml:"highTemp" json:"highTemp"`                   // °C
	CurrentSpike      float64 `yaml:"currentSpike" json:"currentSpike"`           // A
	LowRULHours       float64 `yaml:"lowRulHours" json:"lowRulHours"`
}

// MachineConfig describes one machine on the shop floor.
type MachineConfig struct {
	ID         string   `yaml:"id" json:"id"`
	Name       string   `yaml:"name,omitempty" json:"name,omitempty"`
	Type       string   `yaml:"type,omitempty" json:"type,omitempty"`
	MaxRPM     float64  `yaml:"maxRpm,omitempty" json:"maxRpm,omitempty"`
	MaxCurrent float64  `yaml:"maxCurrent,omitempty" json:"maxCurrent,omitempty"`
	Sensors    []string `yaml:"sensors,omitempty" json:"sensors,omitempty"`
}

// RuleConfig is a declarative threshold rule loaded from YAML, compiled
// into a predicate at startup.
type RuleConfig struct {
	Name            string  `yaml:"name" json:"name"`
	Field           string  `yaml:"field" json:"field"`
	Operator        string  `yaml:"operator" json:"operator"` // gt, gte, lt, lte, eq
	Threshold       float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Value           string  `yaml:"value,omitempty" json:"value,omitempty"` // for eq on strings
	Severity        string  `yaml:"severity" json:"severity"`
	EscalationLevel int     `yaml:"escalationLevel" json:"escalationLevel"`
	Description     string  `yaml:"description,omitempty" json:"description,omitempty"`
}

// NotifierConfig configures the escalation channel backends.
type NotifierConfig struct {
	Console   bool           `yaml:"console,omitempty" json:"console,omitempty"`
	Email     *EmailConfig   `yaml:"email,omitempty" json:"email,omitempty"`
	SNS       *SNSConfig     `yaml:"sns,omitempty" json:"sns,omitempty"`
	Dashboard *WebhookConfig `yaml:"dashboard,omitempty" json:"dashboard,omitempty"`
	Stop      *StopConfig    `yaml:"stop,omitempty" json:"stop,omitempty"`
}

// EmailConfig holds SMTP delivery settings. Recipients are keyed by
// severity; higher severities typically widen the distribution list.
type EmailConfig struct {
	Host          string              `yaml:"host" json:"host"`
	Port          int                 `yaml:"port" json:"port"`
	From          string              `yaml:"from" json:"from"`
	Recipients    map[string][]string `yaml:"recipients" json:"recipients"`
	RatePerMinute int                 `yaml:"ratePerMinute,omitempty" json:"ratePerMinute,omitempty"`
}

// SNSConfig holds SMS delivery settings via an SNS topic.
type SNSConfig struct {
	TopicARN      string `yaml:"topicArn" json:"topicArn"`
	Region        string `yaml:"region,omitempty" json:"region,omitempty"`
	RatePerMinute int    `yaml:"ratePerMinute,omitempty" json:"ratePerMinute,omitempty"`
}

// WebhookConfig holds an HTTP POST destination.
type WebhookConfig struct {
	URL     string `yaml:"url" json:"url"`
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"` // e.g. "10s"
}

// StopConfig configures the machine-stop controller endpoint and its
// audit trail. Stop commands are a physical safety action; every attempt
// is audited whether or not delivery succeeds.
type StopConfig struct {
	URL       string `yaml:"url" json:"url"`
	AuditPath string `yaml:"auditPath" json:"auditPath"`
	Timeout   string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// DispatchConfig bounds the asynchronous escalation queue.
type DispatchConfig struct {
	QueueSize int `yaml:"queueSize,omitempty" json:"queueSize,omitempty"`
	Workers   int `yaml:"workers,omitempty" json:"workers,omitempty"`
}

// SnapshotConfig configures periodic trigger snapshots.
type SnapshotConfig struct {
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	Interval string `yaml:"interval,omitempty" json:"interval,omitempty"` // e.g. "1m"
}

// TelemetryConfig configures the OTLP observability exporters.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}
