package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	URLs     []string `toml:"urls"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	ProxyURL string   `toml:"proxy_url"`

	ProxyUsername string `toml:"proxy_username"`
	ProxyPassword string `toml:"proxy_password"`

	PortName string `toml:"port_name"`
	PortID   string `toml:"port_id"`

	MaxCount   int   `toml:"max_queued_packet_count"`
	MaxSize    int64 `toml:"max_queued_packet_size"`
	BatchCount int   `toml:"preferred_batch_count"`
	BatchSize  int64 `toml:"preferred_batch_size"`

	Interval        string `toml:"processing_interval"`
	TTL             string `toml:"ttl"`
	HardInterval    string `toml:"hard_interval"`
	RetryBackoffMax string `toml:"retry_backoff_max"`
	HTTPTimeout     string `toml:"http_timeout"`
	PeerPenalty     string `toml:"peer_penalty"`

	Prioritizer string `toml:"prioritizer"`
	PriorityKey string `toml:"priority_key"`
	Overflow    string `toml:"overflow_policy"`
	Compression string `toml:"compression"`

	GoroutineThreshold int `toml:"gate_goroutines"`

	StatusFile  string `toml:"status_file"`
	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`

	Stdin *bool  `toml:"stdin"`
	Rate  string `toml:"rate"`
	Count int    `toml:"count"`
	Once  *bool  `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.queueship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".queueship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setStrings("url", fc.URLs, &cfg.URLs)
	s.setString("username", fc.Username, &cfg.Username)
	s.setString("password", fc.Password, &cfg.Password)
	s.setString("proxy", fc.ProxyURL, &cfg.ProxyURL)
	s.setString("proxy-username", fc.ProxyUsername, &cfg.ProxyUsername)
	s.setString("proxy-password", fc.ProxyPassword, &cfg.ProxyPassword)
	s.setString("port-name", fc.PortName, &cfg.PortName)
	s.setString("port-id", fc.PortID, &cfg.PortID)
	s.setString("prioritizer", fc.Prioritizer, &cfg.Prioritizer)
	s.setString("priority-key", fc.PriorityKey, &cfg.PriorityKey)
	s.setString("overflow", fc.Overflow, &cfg.Overflow)
	s.setString("compression", fc.Compression, &cfg.Compression)
	s.setString("status-file", fc.StatusFile, &cfg.StatusFile)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"interval", fc.Interval, &cfg.Interval},
		{"ttl", fc.TTL, &cfg.TTL},
		{"hard-interval", fc.HardInterval, &cfg.HardInterval},
		{"retry-backoff-max", fc.RetryBackoffMax, &cfg.RetryBackoffMax},
		{"timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
		{"peer-penalty", fc.PeerPenalty, &cfg.PeerPenalty},
		{"rate", fc.Rate, &cfg.Rate},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("max-count", fc.MaxCount, &cfg.MaxCount)
	s.setInt64("max-size", fc.MaxSize, &cfg.MaxSize)
	s.setInt("batch-count", fc.BatchCount, &cfg.BatchCount)
	s.setInt64("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setInt("gate-goroutines", fc.GoroutineThreshold, &cfg.GoroutineThreshold)
	s.setInt("count", fc.Count, &cfg.Count)

	s.setBool("stdin", fc.Stdin, &cfg.Stdin)
	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
