package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "QUEUESHIP_"

// ApplyEnvConfig applies configuration from environment variables (QUEUESHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setListFromString("url", env("URLS"), &cfg.URLs)
	s.setString("username", env("USERNAME"), &cfg.Username)
	s.setString("password", env("PASSWORD"), &cfg.Password)
	s.setString("proxy", env("PROXY_URL"), &cfg.ProxyURL)
	s.setString("proxy-username", env("PROXY_USERNAME"), &cfg.ProxyUsername)
	s.setString("proxy-password", env("PROXY_PASSWORD"), &cfg.ProxyPassword)
	s.setString("port-name", env("PORT_NAME"), &cfg.PortName)
	s.setString("port-id", env("PORT_ID"), &cfg.PortID)
	s.setString("prioritizer", env("PRIORITIZER"), &cfg.Prioritizer)
	s.setString("priority-key", env("PRIORITY_KEY"), &cfg.PriorityKey)
	s.setString("overflow", env("OVERFLOW_POLICY"), &cfg.Overflow)
	s.setString("compression", env("COMPRESSION"), &cfg.Compression)
	s.setString("status-file", env("STATUS_FILE"), &cfg.StatusFile)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("interval", env("PROCESSING_INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("ttl", env("TTL"), &cfg.TTL); err != nil {
		return err
	}
	if err := s.setDuration("hard-interval", env("HARD_INTERVAL"), &cfg.HardInterval); err != nil {
		return err
	}
	if err := s.setDuration("retry-backoff-max", env("RETRY_BACKOFF_MAX"), &cfg.RetryBackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("timeout", env("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("peer-penalty", env("PEER_PENALTY"), &cfg.PeerPenalty); err != nil {
		return err
	}
	if err := s.setDuration("rate", env("RATE"), &cfg.Rate); err != nil {
		return err
	}

	if err := s.setIntFromString("max-count", env("MAX_QUEUED_PACKET_COUNT"), &cfg.MaxCount); err != nil {
		return err
	}
	if err := s.setInt64FromString("max-size", env("MAX_QUEUED_PACKET_SIZE"), &cfg.MaxSize); err != nil {
		return err
	}
	if err := s.setIntFromString("batch-count", env("PREFERRED_BATCH_COUNT"), &cfg.BatchCount); err != nil {
		return err
	}
	if err := s.setInt64FromString("batch-size", env("PREFERRED_BATCH_SIZE"), &cfg.BatchSize); err != nil {
		return err
	}
	if err := s.setIntFromString("gate-goroutines", env("GATE_GOROUTINES"), &cfg.GoroutineThreshold); err != nil {
		return err
	}
	if err := s.setIntFromString("count", env("COUNT"), &cfg.Count); err != nil {
		return err
	}

	s.setBoolFromString("stdin", env("STDIN"), &cfg.Stdin)
	s.setBoolFromString("once", env("ONCE"), &cfg.Once)

	return nil
}
