package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexcomponents/andon/pkg/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "andon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 4.0, cfg.Thresholds.CriticalVibration)
	assert.Equal(t, 85.0, cfg.Thresholds.HighTemp)
	assert.Equal(t, DefaultQueueSize, cfg.Dispatch.QueueSize)
	assert.Equal(t, DefaultWorkers, cfg.Dispatch.Workers)
	assert.True(t, cfg.Notifiers.Console)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
thresholds:
  criticalVibration: 5.5
  highTemp: 90
machines:
  - id: VF2_01
    name: Haas VF-2
    type: cnc_mill
  - id: KUKA_01
    type: robot
escalation:
  high:
    email: true
    sms: true
    dashboard: true
rules:
  - name: Coolant Low
    field: coolant_level
    operator: lt
    threshold: 0.2
    severity: medium
    escalationLevel: 2
notifiers:
  console: true
  stop:
    url: http://plc-gateway:8080/stop
    auditPath: /var/log/andon/stops.jsonl
dispatch:
  queueSize: 512
  workers: 8
snapshot:
  path: /var/lib/andon/triggers.json
  interval: 1m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5.5, cfg.Thresholds.CriticalVibration)
	assert.Equal(t, 90.0, cfg.Thresholds.HighTemp)
	// Fields the file omits keep their defaults.
	assert.Equal(t, 15.0, cfg.Thresholds.CurrentSpike)

	assert.Equal(t, []string{"VF2_01", "KUKA_01"}, MachineIDs(cfg))
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "Coolant Low", cfg.Rules[0].Name)
	assert.Equal(t, 512, cfg.Dispatch.QueueSize)
	assert.Equal(t, "1m", cfg.Snapshot.Interval)
	require.NotNil(t, cfg.Notifiers.Stop)
	assert.Equal(t, "/var/log/andon/stops.jsonl", cfg.Notifiers.Stop.AuditPath)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "thresholds: [not a map")
	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown escalation severity",
			body: "escalation:\n  urgent:\n    email: true\n",
			want: "severity",
		},
		{
			name: "rule missing name",
			body: "rules:\n  - field: x\n    operator: gt\n    threshold: 1\n    severity: low\n",
			want: "name is required",
		},
		{
			name: "duplicate rule name",
			body: "rules:\n  - name: A\n    field: x\n    operator: gt\n    threshold: 1\n    severity: low\n  - name: A\n    field: y\n    operator: gt\n    threshold: 2\n    severity: low\n",
			want: "duplicate rule name",
		},
		{
			name: "rule with bad severity",
			body: "rules:\n  - name: A\n    field: x\n    operator: gt\n    threshold: 1\n    severity: scary\n",
			want: "severity",
		},
		{
			name: "machine missing id",
			body: "machines:\n  - name: mystery\n",
			want: "id is required",
		},
		{
			name: "stop without audit path",
			body: "notifiers:\n  stop:\n    url: http://gateway/stop\n",
			want: "auditPath",
		},
		{
			name: "bad snapshot interval",
			body: "snapshot:\n  interval: soon\n",
			want: "snapshot.interval",
		},
		{
			name: "negative queue size",
			body: "dispatch:\n  queueSize: -1\n",
			want: "queueSize",
		},
		{
			name: "negative worker count",
			body: "dispatch:\n  workers: -2\n",
			want: "workers",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoad_ZeroDispatchAccepted(t *testing.T) {
	// Zero is not an error: the router substitutes its defaults for
	// non-positive queue sizes and worker counts.
	path := writeConfig(t, "dispatch:\n  queueSize: 0\n  workers: 0\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Dispatch.QueueSize)
	assert.Zero(t, cfg.Dispatch.Workers)
}

func TestEscalationPolicy_Defaults(t *testing.T) {
	cfg := Defaults()
	policy, err := EscalationPolicy(&cfg)
	require.NoError(t, err)

	critical := policy.Channels(types.SeverityCritical)
	assert.True(t, critical.Email)
	assert.True(t, critical.SMS)
	assert.True(t, critical.Dashboard)
	assert.True(t, critical.StopMachine)

	low := policy.Channels(types.SeverityLow)
	assert.True(t, low.Email)
	assert.False(t, low.SMS)
	assert.False(t, low.StopMachine)
}

func TestEscalationPolicy_OverrideSingleSeverity(t *testing.T) {
	cfg := Defaults()
	cfg.Escalation = map[string]types.ChannelSet{
		"medium": {SMS: true, Dashboard: true},
	}

	policy, err := EscalationPolicy(&cfg)
	require.NoError(t, err)

	medium := policy.Channels(types.SeverityMedium)
	assert.True(t, medium.SMS)
	assert.False(t, medium.Email, "override replaces the default channel set")

	// Other severities keep their defaults.
	assert.True(t, policy.Channels(types.SeverityHigh).SMS)
}

func TestEscalationPolicy_UnknownSeverity(t *testing.T) {
	cfg := Defaults()
	cfg.Escalation = map[string]types.ChannelSet{"urgent": {Email: true}}

	_, err := EscalationPolicy(&cfg)
	assert.Error(t, err)
}
