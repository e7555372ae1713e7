package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/queueship/pkg/prioritizer"
	"github.com/bft-labs/queueship/pkg/queueship"
)

// Prioritizer names accepted by the CLI.
const (
	PrioritizerFixedTTL  = "fixed-ttl"
	PrioritizerAttribute = "attribute"
)

// Config holds CLI configuration for queueship.
type Config struct {
	URLs     []string
	Username string
	Password string
	ProxyURL string

	ProxyUsername string
	ProxyPassword string

	PortName string
	PortID   string

	MaxCount   int
	MaxSize    int64
	BatchCount int
	BatchSize  int64

	Interval        time.Duration
	TTL             time.Duration
	HardInterval    time.Duration
	RetryBackoffMax time.Duration
	HTTPTimeout     time.Duration
	PeerPenalty     time.Duration

	Prioritizer string
	PriorityKey string
	Overflow    string
	Compression string

	GoroutineThreshold int

	StatusFile  string
	MetricsAddr string
	LogLevel    string

	Stdin bool
	Rate  time.Duration
	Count int
	Once  bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		MaxCount:    queueship.DefaultMaxQueuedPacketCount,
		MaxSize:     queueship.DefaultMaxQueuedPacketSize,
		BatchCount:  queueship.DefaultPreferredBatchCount,
		BatchSize:   queueship.DefaultPreferredBatchSize,
		Interval:    queueship.DefaultProcessingInterval,
		TTL:         queueship.DefaultPacketTTL,
		HTTPTimeout: queueship.DefaultHTTPTimeout,
		PeerPenalty: queueship.DefaultPeerPenalty,
		Prioritizer: PrioritizerFixedTTL,
		Overflow:    queueship.OverflowEvictOldest,
		Compression: "gzip",
		LogLevel:    "info",
		Rate:        100 * time.Millisecond,
	}
}

// Validate checks the CLI-specific settings and normalizes URLs.
// Queue settings are validated again by queueship.New.
func (c *Config) Validate() error {
	if len(c.URLs) == 0 {
		return fmt.Errorf("at least one url is required")
	}
	for i, u := range c.URLs {
		// Ensure no trailing slash
		c.URLs[i] = strings.TrimRight(strings.TrimSpace(u), "/")
	}
	if c.PortName == "" && c.PortID == "" {
		return fmt.Errorf("port-name or port-id is required")
	}

	switch c.Prioritizer {
	case PrioritizerFixedTTL:
	case PrioritizerAttribute:
		if c.PriorityKey == "" {
			return fmt.Errorf("priority-key is required with the %s prioritizer", PrioritizerAttribute)
		}
	default:
		return fmt.Errorf("unknown prioritizer %q", c.Prioritizer)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if !c.Stdin && c.Rate <= 0 {
		return fmt.Errorf("rate must be positive")
	}
	if c.GoroutineThreshold < 0 {
		return fmt.Errorf("gate-goroutines must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ToQueueshipConfig converts the CLI configuration to the library Config.
func (c Config) ToQueueshipConfig() queueship.Config {
	var p prioritizer.Prioritizer = prioritizer.NewFixedTTL(c.TTL)
	if c.Prioritizer == PrioritizerAttribute {
		p = prioritizer.ByAttribute{Key: c.PriorityKey, TTL: c.TTL}
	}

	return queueship.Config{
		RemoteClusters: []queueship.RemoteCluster{{
			URLs:     append([]string(nil), c.URLs...),
			Username: c.Username,
			Password: c.Password,
			ProxyURL: c.ProxyURL,

			ProxyUsername: c.ProxyUsername,
			ProxyPassword: c.ProxyPassword,
		}},
		PortName:             c.PortName,
		PortID:               c.PortID,
		MaxQueuedPacketCount: c.MaxCount,
		MaxQueuedPacketSize:  c.MaxSize,
		PreferredBatchCount:  c.BatchCount,
		PreferredBatchSize:   c.BatchSize,
		ProcessingInterval:   c.Interval,
		Prioritizer:          p,
		OverflowPolicy:       c.Overflow,
		RetryBackoffMax:      c.RetryBackoffMax,
		HardInterval:         c.HardInterval,
		HTTPTimeout:          c.HTTPTimeout,
		Compression:          c.Compression,
		PeerPenalty:          c.PeerPenalty,
	}
}

// Masked returns a copy safe to log.
func (c Config) Masked() Config {
	if c.Password != "" {
		c.Password = "*****"
	}
	return c
}

// Resolve layers the TOML file at path (if present) and QUEUESHIP_*
// environment variables over cfg, skipping every flag in changed, then
// validates the result. cfg is not modified.
func Resolve(cfg Config, path string, changed map[string]bool) (Config, error) {
	cfg.URLs = append([]string(nil), cfg.URLs...)

	if path != "" && FileExists(path) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings replaces a list if the new one is not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if positive and flag not changed.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setListFromString splits a comma-separated list.
// Used for environment variables that come as strings.
func (s *configSetter) setListFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	s.setStrings(flag, out, dst)
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString parses a string to int64 and sets the destination if valid.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
