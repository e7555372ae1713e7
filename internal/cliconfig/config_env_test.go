package cliconfig

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"QUEUESHIP_URLS":                    "http://ingest:8080",
				"QUEUESHIP_PORT_NAME":               "From iOS",
				"QUEUESHIP_PROCESSING_INTERVAL":     "10m",
				"QUEUESHIP_MAX_QUEUED_PACKET_COUNT": "100",
				"QUEUESHIP_STDIN":                   "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				URLs:     []string{"http://ingest:8080"},
				PortName: "From iOS",
				Interval: 10 * time.Minute,
				MaxCount: 100,
				Stdin:    true,
			},
			wantErr: false,
		},
		{
			name: "splits url lists",
			envVars: map[string]string{
				"QUEUESHIP_URLS": "http://a:1, http://b:2,,",
			},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{URLs: []string{"http://a:1", "http://b:2"}},
			wantErr:  false,
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"QUEUESHIP_PORT_NAME": "env-port",
				"QUEUESHIP_PORT_ID":   "env-id",
			},
			changed: map[string]bool{"port-name": true},
			initial: Config{
				PortName: "flag-port",
			},
			expected: Config{
				PortName: "flag-port",
				PortID:   "env-id",
			},
			wantErr: false,
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"QUEUESHIP_TTL": "not-a-duration",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"QUEUESHIP_PREFERRED_BATCH_COUNT": "not-a-number",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int64",
			envVars: map[string]string{
				"QUEUESHIP_MAX_QUEUED_PACKET_SIZE": "1MB",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "ignores non-positive numbers",
			envVars: map[string]string{
				"QUEUESHIP_MAX_QUEUED_PACKET_COUNT": "0",
				"QUEUESHIP_MAX_QUEUED_PACKET_SIZE":  "-5",
			},
			changed:  map[string]bool{},
			initial:  Config{MaxCount: 10, MaxSize: 100},
			expected: Config{MaxCount: 10, MaxSize: 100},
			wantErr:  false,
		},
		{
			name: "handles bool '1' as true",
			envVars: map[string]string{
				"QUEUESHIP_ONCE": "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Once: true,
			},
			wantErr: false,
		},
		{
			name: "handles bool 'false' as false",
			envVars: map[string]string{
				"QUEUESHIP_ONCE": "false",
			},
			changed: map[string]bool{},
			initial: Config{Once: true},
			expected: Config{
				Once: false,
			},
			wantErr: false,
		},
		{
			name: "handles all field types correctly",
			envVars: map[string]string{
				"QUEUESHIP_URLS":                    "http://a:1",
				"QUEUESHIP_USERNAME":                "user",
				"QUEUESHIP_PASSWORD":                "secret",
				"QUEUESHIP_PROXY_URL":               "http://proxy:3128",
				"QUEUESHIP_PROXY_USERNAME":          "proxyuser",
				"QUEUESHIP_PROXY_PASSWORD":          "proxysecret",
				"QUEUESHIP_PORT_NAME":               "From iOS",
				"QUEUESHIP_PORT_ID":                 "a1b2",
				"QUEUESHIP_MAX_QUEUED_PACKET_COUNT": "100",
				"QUEUESHIP_MAX_QUEUED_PACKET_SIZE":  "2048",
				"QUEUESHIP_PREFERRED_BATCH_COUNT":   "10",
				"QUEUESHIP_PREFERRED_BATCH_SIZE":    "512",
				"QUEUESHIP_PROCESSING_INTERVAL":     "1m",
				"QUEUESHIP_TTL":                     "2m",
				"QUEUESHIP_HARD_INTERVAL":           "3m",
				"QUEUESHIP_RETRY_BACKOFF_MAX":       "4m",
				"QUEUESHIP_HTTP_TIMEOUT":            "30s",
				"QUEUESHIP_PEER_PENALTY":            "45s",
				"QUEUESHIP_PRIORITIZER":             PrioritizerAttribute,
				"QUEUESHIP_PRIORITY_KEY":            "priority",
				"QUEUESHIP_OVERFLOW_POLICY":         "reject",
				"QUEUESHIP_COMPRESSION":             "none",
				"QUEUESHIP_GATE_GOROUTINES":         "5000",
				"QUEUESHIP_STATUS_FILE":             "/tmp/status.json",
				"QUEUESHIP_METRICS_ADDR":            ":9090",
				"QUEUESHIP_LOG_LEVEL":               "warn",
				"QUEUESHIP_STDIN":                   "0",
				"QUEUESHIP_RATE":                    "5ms",
				"QUEUESHIP_COUNT":                   "3",
				"QUEUESHIP_ONCE":                    "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				URLs:               []string{"http://a:1"},
				Username:           "user",
				Password:           "secret",
				ProxyURL:           "http://proxy:3128",
				ProxyUsername:      "proxyuser",
				ProxyPassword:      "proxysecret",
				PortName:           "From iOS",
				PortID:             "a1b2",
				MaxCount:           100,
				MaxSize:            2048,
				BatchCount:         10,
				BatchSize:          512,
				Interval:           time.Minute,
				TTL:                2 * time.Minute,
				HardInterval:       3 * time.Minute,
				RetryBackoffMax:    4 * time.Minute,
				HTTPTimeout:        30 * time.Second,
				PeerPenalty:        45 * time.Second,
				Prioritizer:        PrioritizerAttribute,
				PriorityKey:        "priority",
				Overflow:           "reject",
				Compression:        "none",
				GoroutineThreshold: 5000,
				StatusFile:         "/tmp/status.json",
				MetricsAddr:        ":9090",
				LogLevel:           "warn",
				Stdin:              false,
				Rate:               5 * time.Millisecond,
				Count:              3,
				Once:               true,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr {
				if diff := cmp.Diff(tt.expected, cfg); diff != "" {
					t.Errorf("config mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	trueVal := true

	// Setup file config
	fileConf := FileConfig{
		PortName: "file-port",
		PortID:   "file-id",
		Once:     &trueVal,
	}

	// Setup env vars
	os.Setenv("QUEUESHIP_PORT_NAME", "env-port")
	os.Setenv("QUEUESHIP_PORT_ID", "env-id")
	os.Setenv("QUEUESHIP_URLS", "http://env:8080")
	defer func() {
		os.Unsetenv("QUEUESHIP_PORT_NAME")
		os.Unsetenv("QUEUESHIP_PORT_ID")
		os.Unsetenv("QUEUESHIP_URLS")
	}()

	// Simulate CLI flags
	changed := map[string]bool{
		"port-name": true, // CLI flag was set for the port name
	}

	cfg := Config{
		PortName: "cli-port", // This should remain (CLI wins)
	}

	// Apply file config
	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}

	// Apply env config
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	// Verify precedence: CLI > Env > File
	if cfg.PortName != "cli-port" {
		t.Errorf("PortName = %v, want cli-port (CLI should win)", cfg.PortName)
	}
	if cfg.PortID != "env-id" {
		t.Errorf("PortID = %v, want env-id (env should override file)", cfg.PortID)
	}
	if len(cfg.URLs) != 1 || cfg.URLs[0] != "http://env:8080" {
		t.Errorf("URLs = %v, want [http://env:8080] (env should set)", cfg.URLs)
	}
	if cfg.Once != true {
		t.Errorf("Once = %v, want true (file should set)", cfg.Once)
	}
}
