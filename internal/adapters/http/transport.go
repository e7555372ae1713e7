package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/bft-labs/queueship/internal/domain"
	"github.com/bft-labs/queueship/internal/ports"
	"github.com/bft-labs/queueship/pkg/log"
)

// Compression names accepted by Config.Compression.
const (
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
	CompressionNone = "none"
)

// DefaultPenaltyWindow is how long a failed peer is skipped.
const DefaultPenaltyWindow = 30 * time.Second

const userAgent = "queueship"

// Cluster is one remote cluster: a set of peer URLs sharing credentials and proxy.
type Cluster struct {
	URLs     []string
	Username string
	Password string
	ProxyURL string

	// ProxyUsername overrides the userinfo of ProxyURL when set.
	ProxyUsername string
	ProxyPassword string
}

// Config configures the HTTP transport.
type Config struct {
	Clusters      []Cluster
	Compression   string
	PenaltyWindow time.Duration
	Timeout       time.Duration
}

// peer is a single remote endpoint.
type peer struct {
	url         string
	cluster     int
	packetsSent int64
	lastFailure time.Time
}

// Transport implements ports.Transport by POSTing batches as JSON to the
// least recently failed peer.
//
// Wire format:
//
//	POST {peer}/v1/ports/{port}/transactions/{transaction-id}
//	Content-Encoding: gzip | zstd
//	{"packets":[{"attributes":{...},"payload":"<base64>"}]}
type Transport struct {
	mu          sync.Mutex
	peers       []*peer
	clusters    []Cluster
	clients     []ports.HTTPClient // per cluster
	compression string
	penalty     time.Duration
	logger      log.Logger
	now         func() time.Time
}

// NewTransport builds the peer list from every cluster URL. When client is
// nil, a client per cluster is created honoring its proxy.
func NewTransport(cfg Config, client ports.HTTPClient, logger log.Logger) (*Transport, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	switch cfg.Compression {
	case "":
		cfg.Compression = CompressionGzip
	case CompressionGzip, CompressionZstd, CompressionNone:
	default:
		return nil, domain.NewError(domain.KindConfigurationInvalid, "unknown compression %q", cfg.Compression)
	}
	if cfg.PenaltyWindow <= 0 {
		cfg.PenaltyWindow = DefaultPenaltyWindow
	}

	t := &Transport{
		clusters:    cfg.Clusters,
		compression: cfg.Compression,
		penalty:     cfg.PenaltyWindow,
		logger:      logger,
		now:         time.Now,
	}

	for i, c := range cfg.Clusters {
		httpClient := client
		if httpClient == nil {
			built, err := newClusterClient(c, cfg.Timeout)
			if err != nil {
				return nil, err
			}
			httpClient = built
		}
		t.clients = append(t.clients, httpClient)

		for _, raw := range c.URLs {
			u, err := url.Parse(raw)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return nil, domain.NewError(domain.KindConfigurationInvalid, "invalid cluster URL %q", raw)
			}
			t.peers = append(t.peers, &peer{url: strings.TrimRight(raw, "/"), cluster: i})
		}
	}
	if len(t.peers) == 0 {
		return nil, domain.NewError(domain.KindConfigurationInvalid, "no remote cluster URLs configured")
	}
	return t, nil
}

func newClusterClient(c Cluster, timeout time.Duration) (*http.Client, error) {
	client := &http.Client{Timeout: timeout}
	if c.ProxyURL != "" {
		proxy, err := url.Parse(c.ProxyURL)
		if err != nil {
			return nil, domain.NewError(domain.KindConfigurationInvalid, "invalid proxy URL %q", c.ProxyURL)
		}
		if c.ProxyUsername != "" {
			proxy.User = url.UserPassword(c.ProxyUsername, c.ProxyPassword)
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.Proxy = http.ProxyURL(proxy)
		client.Transport = tr
	}
	return client, nil
}

type wirePacket struct {
	Attributes map[string]string `json:"attributes"`
	Payload    []byte            `json:"payload"`
}

type wireBatch struct {
	Packets []wirePacket `json:"packets"`
}

// Send transmits a batch to one peer. A failed peer is penalized so the next
// attempt goes elsewhere.
func (t *Transport) Send(ctx context.Context, batch *domain.Batch, metadata ports.SendMetadata) error {
	if batch.Empty() {
		return nil
	}

	p := t.selectPeer()
	if p == nil {
		return domain.NewError(domain.KindNoPeerAvailable, "all %d peers failed within %s", len(t.peers), t.penalty)
	}

	body, err := t.encode(batch)
	if err != nil {
		return clientError(fmt.Errorf("encode batch: %w", err))
	}

	port := metadata.PortID
	if port == "" {
		port = metadata.PortName
	}
	endpoint := fmt.Sprintf("%s/v1/ports/%s/transactions/%s", p.url, url.PathEscape(port), url.PathEscape(metadata.TransactionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return clientError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Queueship-Port-Name", metadata.PortName)
	req.Header.Set("X-Queueship-Transaction-Id", metadata.TransactionID)
	req.Header.Set("X-Queueship-Hostname", metadata.Hostname)
	req.Header.Set("X-Queueship-OSArch", metadata.OSArch)
	if t.compression != CompressionNone {
		req.Header.Set("Content-Encoding", t.compression)
	}
	if c := t.clusters[p.cluster]; c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := t.clients[p.cluster].Do(req)
	if err != nil {
		t.markFailure(p)
		return clientError(fmt.Errorf("send to %s: %w", p.url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		t.markFailure(p)
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return statusError(resp.StatusCode, p.url, strings.TrimSpace(string(respBody)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	t.markSuccess(p, batch.Size())
	t.logger.Debug("batch delivered",
		log.String("peer", p.url),
		log.String("transaction", metadata.TransactionID),
		log.Int("packets", batch.Size()),
	)
	return nil
}

// selectPeer returns the eligible peer with the oldest failure, then the
// fewest packets sent. Returns nil when every peer is penalized.
func (t *Transport) selectPeer() *peer {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	eligible := make([]*peer, 0, len(t.peers))
	for _, p := range t.peers {
		if p.lastFailure.IsZero() || now.Sub(p.lastFailure) >= t.penalty {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if !a.lastFailure.Equal(b.lastFailure) {
			return a.lastFailure.Before(b.lastFailure)
		}
		return a.packetsSent < b.packetsSent
	})
	return eligible[0]
}

func (t *Transport) markFailure(p *peer) {
	t.mu.Lock()
	p.lastFailure = t.now()
	t.mu.Unlock()

	t.logger.Warn("peer marked failed",
		log.String("peer", p.url),
		log.Duration("penalty", t.penalty),
	)
}

func (t *Transport) markSuccess(p *peer, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p.packetsSent += int64(n)
}

// Peers returns the peer URLs in configuration order.
func (t *Transport) Peers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.peers))
	for i, p := range t.peers {
		out[i] = p.url
	}
	return out
}

func (t *Transport) encode(batch *domain.Batch) ([]byte, error) {
	wire := wireBatch{Packets: make([]wirePacket, len(batch.Packets))}
	for i, p := range batch.Packets {
		wire.Packets[i] = wirePacket{Attributes: p.Attributes, Payload: p.Payload}
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch t.compression {
	case CompressionGzip:
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	case CompressionZstd:
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(raw); err != nil {
			zw.Close()
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	default:
		return raw, nil
	}
	return buf.Bytes(), nil
}

func clientError(err error) error {
	e := domain.WrapError(domain.KindTransportFailure, err)
	e.Code = domain.CodeClient
	return e
}

// statusError encodes a non-2xx response. 429 and 503 ask the client to
// back off.
func statusError(status int, peerURL, body string) error {
	e := domain.NewError(domain.KindTransportFailure, "%s returned HTTP %d", peerURL, status)
	if body != "" {
		e.Detail += ": " + body
	}
	e.Code = domain.CodeHTTPStatus + status
	e.Backoff = status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
	return e
}
