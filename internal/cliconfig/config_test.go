package cliconfig

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bft-labs/queueship/pkg/prioritizer"
	"github.com/bft-labs/queueship/pkg/queueship"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.URLs = []string{"http://localhost:8080"}
	cfg.PortName = "From iOS"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxCount != queueship.DefaultMaxQueuedPacketCount {
		t.Errorf("MaxCount = %v, want %v", cfg.MaxCount, queueship.DefaultMaxQueuedPacketCount)
	}
	if cfg.Interval != 5*time.Second {
		t.Errorf("Interval = %v, want 5s", cfg.Interval)
	}
	if cfg.TTL != 60*time.Second {
		t.Errorf("TTL = %v, want 60s", cfg.TTL)
	}
	if cfg.Prioritizer != PrioritizerFixedTTL {
		t.Errorf("Prioritizer = %v, want %v", cfg.Prioritizer, PrioritizerFixedTTL)
	}
	if cfg.Overflow != queueship.OverflowEvictOldest {
		t.Errorf("Overflow = %v, want %v", cfg.Overflow, queueship.OverflowEvictOldest)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid minimal config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "port id instead of name",
			mutate:  func(c *Config) { c.PortName = ""; c.PortID = "a1b2" },
			wantErr: false,
		},
		{
			name:    "missing url",
			mutate:  func(c *Config) { c.URLs = nil },
			wantErr: true,
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.PortName = "" },
			wantErr: true,
		},
		{
			name:    "unknown prioritizer",
			mutate:  func(c *Config) { c.Prioritizer = "lifo" },
			wantErr: true,
		},
		{
			name:    "attribute prioritizer without key",
			mutate:  func(c *Config) { c.Prioritizer = PrioritizerAttribute },
			wantErr: true,
		},
		{
			name:    "attribute prioritizer with key",
			mutate:  func(c *Config) { c.Prioritizer = PrioritizerAttribute; c.PriorityKey = "priority" },
			wantErr: false,
		},
		{
			name:    "invalid interval",
			mutate:  func(c *Config) { c.Interval = -1 },
			wantErr: true,
		},
		{
			name:    "zero ttl",
			mutate:  func(c *Config) { c.TTL = 0 },
			wantErr: true,
		},
		{
			name:    "zero rate without stdin",
			mutate:  func(c *Config) { c.Rate = 0 },
			wantErr: true,
		},
		{
			name:    "zero rate with stdin",
			mutate:  func(c *Config) { c.Rate = 0; c.Stdin = true },
			wantErr: false,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_TrimsURLs(t *testing.T) {
	cfg := validConfig()
	cfg.URLs = []string{"http://ingest-1:8080/", " http://ingest-2:8080 "}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	want := []string{"http://ingest-1:8080", "http://ingest-2:8080"}
	if diff := cmp.Diff(want, cfg.URLs); diff != "" {
		t.Errorf("URLs mismatch (-want +got):\n%s", diff)
	}
}

func TestConfig_ToQueueshipConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Username = "user"
	cfg.Password = "secret"
	cfg.MaxCount = 10
	cfg.BatchCount = 4
	cfg.HardInterval = time.Minute

	qc := cfg.ToQueueshipConfig()
	if err := qc.Validate(); err != nil {
		t.Fatalf("converted config invalid: %v", err)
	}
	if len(qc.RemoteClusters) != 1 || qc.RemoteClusters[0].Username != "user" {
		t.Errorf("RemoteClusters = %+v", qc.RemoteClusters)
	}
	if qc.MaxQueuedPacketCount != 10 || qc.PreferredBatchCount != 4 {
		t.Errorf("limits = %d/%d, want 10/4", qc.MaxQueuedPacketCount, qc.PreferredBatchCount)
	}
	if qc.HardInterval != time.Minute {
		t.Errorf("HardInterval = %v, want 1m", qc.HardInterval)
	}
	if _, ok := qc.Prioritizer.(prioritizer.FixedTTL); !ok {
		t.Errorf("Prioritizer = %T, want FixedTTL", qc.Prioritizer)
	}

	cfg.Prioritizer = PrioritizerAttribute
	cfg.PriorityKey = "priority"
	qc = cfg.ToQueueshipConfig()
	if p, ok := qc.Prioritizer.(prioritizer.ByAttribute); !ok || p.Key != "priority" || p.TTL != cfg.TTL {
		t.Errorf("Prioritizer = %#v, want ByAttribute{priority}", qc.Prioritizer)
	}
}

func TestConfig_Masked(t *testing.T) {
	cfg := validConfig()
	cfg.Password = "secret"

	if got := cfg.Masked().Password; got != "*****" {
		t.Errorf("Masked().Password = %q", got)
	}
	if cfg.Password != "secret" {
		t.Error("Masked() modified the receiver")
	}
}

func TestParseLevel(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		if _, err := ParseLevel(level); err != nil {
			t.Errorf("ParseLevel(%q) = %v", level, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud) expected error")
	}
}
