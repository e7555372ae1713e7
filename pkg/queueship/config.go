package queueship

import (
	"net/url"
	"time"

	"github.com/bft-labs/queueship/internal/domain"
	"github.com/bft-labs/queueship/internal/store"
	"github.com/bft-labs/queueship/pkg/prioritizer"
)

// Default configuration values.
const (
	DefaultMaxQueuedPacketCount = 10000
	DefaultMaxQueuedPacketSize  = 100 * 1024 * 1024
	DefaultPreferredBatchCount  = 100
	DefaultPreferredBatchSize   = 1024 * 1024
	DefaultProcessingInterval   = 5 * time.Second
	DefaultPacketTTL            = 60 * time.Second
	DefaultHTTPTimeout          = 30 * time.Second
	DefaultPeerPenalty          = 30 * time.Second
)

// Overflow policy names.
const (
	OverflowEvictOldest = "evict-oldest"
	OverflowReject      = "reject"
)

// RemoteCluster describes one remote ingestion cluster.
type RemoteCluster struct {
	// URLs are the peer base URLs, e.g. "https://ingest-1.example.com:8443".
	URLs []string

	// Username and Password enable HTTP Basic authentication when Username is set.
	Username string
	Password string

	// ProxyURL routes requests to this cluster through an HTTP proxy.
	ProxyURL string

	// ProxyUsername and ProxyPassword authenticate to the proxy when
	// ProxyUsername is set. Otherwise userinfo in ProxyURL, if any, is used.
	ProxyUsername string
	ProxyPassword string
}

// Config holds the configuration for a Queueship instance.
// A Config is immutable for the lifetime of one scheduler run; use
// Queueship.Reconfigure while stopped to change it.
type Config struct {
	// RemoteClusters lists the clusters packets are delivered to. Required.
	RemoteClusters []RemoteCluster

	// PortName and PortID identify the remote input port. At least one is
	// required; PortID wins when both are set.
	PortName string
	PortID   string

	// MaxQueuedPacketCount bounds the number of queued packets. Must be positive.
	MaxQueuedPacketCount int

	// MaxQueuedPacketSize bounds the queued payload bytes. Must be positive.
	MaxQueuedPacketSize int64

	// PreferredBatchCount bounds the packets per send. Must be positive.
	PreferredBatchCount int

	// PreferredBatchSize bounds the payload bytes per send. A single packet
	// larger than this is sent alone. Must be positive.
	PreferredBatchSize int64

	// ProcessingInterval is the delay between scheduled cycles. Must be positive.
	ProcessingInterval time.Duration

	// Prioritizer decides expiry and delivery order.
	// Default: FixedTTL of 60 seconds
	Prioritizer prioritizer.Prioritizer

	// OverflowPolicy is "evict-oldest" (default) or "reject".
	OverflowPolicy string

	// RetryBackoffMax enables exponential backoff after failed sends.
	// Zero disables it; a remote 429 or 503 still triggers backoff.
	RetryBackoffMax time.Duration

	// HardInterval forces a send through a closed send gate once this long
	// has passed since the last delivery. Zero disables it.
	HardInterval time.Duration

	// HTTPTimeout is the timeout for each send request.
	// Default: 30 seconds
	HTTPTimeout time.Duration

	// Compression is the request body encoding: "gzip" (default), "zstd" or "none".
	Compression string

	// PeerPenalty is how long a failed peer is skipped.
	// Default: 30 seconds
	PeerPenalty time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
// RemoteClusters and PortName or PortID must still be set.
func DefaultConfig() Config {
	cfg := Config{
		MaxQueuedPacketCount: DefaultMaxQueuedPacketCount,
		MaxQueuedPacketSize:  DefaultMaxQueuedPacketSize,
		PreferredBatchCount:  DefaultPreferredBatchCount,
		PreferredBatchSize:   DefaultPreferredBatchSize,
		ProcessingInterval:   DefaultProcessingInterval,
	}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills optional fields left at their zero value.
// Limits and the processing interval are never defaulted: a zero limit is a
// configuration error.
func (c *Config) SetDefaults() {
	if c.Prioritizer == nil {
		c.Prioritizer = prioritizer.NewFixedTTL(DefaultPacketTTL)
	}
	if c.OverflowPolicy == "" {
		c.OverflowPolicy = OverflowEvictOldest
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Compression == "" {
		c.Compression = "gzip"
	}
	if c.PeerPenalty == 0 {
		c.PeerPenalty = DefaultPeerPenalty
	}
}

// Validate checks the configuration.
// Returns an error matching ErrConfigurationInvalid.
func (c *Config) Validate() error {
	if len(c.RemoteClusters) == 0 {
		return invalid("at least one remote cluster is required")
	}
	for i, rc := range c.RemoteClusters {
		if len(rc.URLs) == 0 {
			return invalid("remote cluster %d has no URLs", i)
		}
		for _, raw := range rc.URLs {
			u, err := url.Parse(raw)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return invalid("remote cluster %d: invalid URL %q", i, raw)
			}
		}
		if rc.ProxyURL != "" {
			if _, err := url.Parse(rc.ProxyURL); err != nil {
				return invalid("remote cluster %d: invalid proxy URL %q", i, rc.ProxyURL)
			}
		}
	}
	if c.PortName == "" && c.PortID == "" {
		return invalid("port name or port ID is required")
	}
	if c.MaxQueuedPacketCount <= 0 {
		return invalid("max queued packet count must be positive, got %d", c.MaxQueuedPacketCount)
	}
	if c.MaxQueuedPacketSize <= 0 {
		return invalid("max queued packet size must be positive, got %d", c.MaxQueuedPacketSize)
	}
	if c.PreferredBatchCount <= 0 {
		return invalid("preferred batch count must be positive, got %d", c.PreferredBatchCount)
	}
	if c.PreferredBatchSize <= 0 {
		return invalid("preferred batch size must be positive, got %d", c.PreferredBatchSize)
	}
	if c.ProcessingInterval <= 0 {
		return invalid("processing interval must be positive, got %s", c.ProcessingInterval)
	}
	if c.Prioritizer == nil {
		return invalid("prioritizer is required")
	}
	if ttl, ok := ttlOf(c.Prioritizer); ok && ttl <= 0 {
		return invalid("prioritizer TTL must be positive, got %s", ttl)
	}
	if _, err := store.ParseOverflowPolicy(c.OverflowPolicy); err != nil {
		return invalid("%v", err)
	}
	if c.RetryBackoffMax < 0 || c.HardInterval < 0 || c.HTTPTimeout < 0 || c.PeerPenalty < 0 {
		return invalid("durations must not be negative")
	}
	switch c.Compression {
	case "gzip", "zstd", "none":
	default:
		return invalid("unknown compression %q", c.Compression)
	}
	return nil
}

// ttlOf returns the TTL of the built-in prioritizers.
func ttlOf(p prioritizer.Prioritizer) (time.Duration, bool) {
	switch p := p.(type) {
	case prioritizer.FixedTTL:
		return p.TTL, true
	case *prioritizer.FixedTTL:
		return p.TTL, p != nil
	case prioritizer.ByAttribute:
		return p.TTL, true
	case *prioritizer.ByAttribute:
		return p.TTL, p != nil
	}
	return 0, false
}

func invalid(format string, args ...interface{}) error {
	return domain.NewError(domain.KindConfigurationInvalid, format, args...)
}

// clone returns a copy that shares no slices with c.
func (c Config) clone() Config {
	out := c
	out.RemoteClusters = make([]RemoteCluster, len(c.RemoteClusters))
	for i, rc := range c.RemoteClusters {
		rc.URLs = append([]string(nil), rc.URLs...)
		out.RemoteClusters[i] = rc
	}
	return out
}
