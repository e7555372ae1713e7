package app

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/queueship/internal/domain"
	"github.com/bft-labs/queueship/internal/ports"
	"github.com/bft-labs/queueship/internal/store"
	"github.com/bft-labs/queueship/pkg/log"
	"github.com/bft-labs/queueship/pkg/prioritizer"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeTransport records batches and fails with err when set.
type fakeTransport struct {
	mu      sync.Mutex
	batches [][]domain.DataPacket
	metas   []ports.SendMetadata
	ctxErrs []error
	err     error
	delay   time.Duration
	block   chan struct{}
	entered chan struct{}

	active    int32
	maxActive int32
}

func (f *fakeTransport) Send(ctx context.Context, b *domain.Batch, meta ports.SendMetadata) error {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		m := atomic.LoadInt32(&f.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxActive, m, n) {
			break
		}
	}

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]domain.DataPacket(nil), b.Packets...))
	f.metas = append(f.metas, meta)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.err
}

func (f *fakeTransport) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeTransport) sent() [][]domain.DataPacket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]domain.DataPacket(nil), f.batches...)
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

// recordingEmitter captures send and cycle events.
type recordingEmitter struct {
	mu        sync.Mutex
	successes int
	failures  []error
	cycles    []domain.Outcome
}

func (r *recordingEmitter) OnSendSuccess(packetCount int, bytesSent int64, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes++
}

func (r *recordingEmitter) OnSendError(err error, packetCount int, retryable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *recordingEmitter) OnCycleComplete(o domain.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, o)
}

func (r *recordingEmitter) cycleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cycles)
}

// memStatusRepo keeps the last saved snapshot in memory.
type memStatusRepo struct {
	mu       sync.Mutex
	snapshot domain.StatusSnapshot
	saves    int
}

func (m *memStatusRepo) Load(ctx context.Context) (domain.StatusSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, nil
}

func (m *memStatusRepo) Save(ctx context.Context, s domain.StatusSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = s
	m.saves++
	return nil
}

type gateFunc func() bool

func (g gateFunc) OK() bool { return g() }

type queueFixture struct {
	queue     *Queue
	store     *store.Store
	transport *fakeTransport
	clock     *fakeClock
	emitter   *recordingEmitter
	repo      *memStatusRepo
}

func newQueueFixture(limits store.Limits, batchCount int, batchBytes int64) *queueFixture {
	f := &queueFixture{
		store:     store.New(limits, prioritizer.NewFixedTTL(60*time.Second), store.OverflowEvictOldest),
		transport: &fakeTransport{},
		clock:     newFakeClock(),
		emitter:   &recordingEmitter{},
		repo:      &memStatusRepo{},
	}
	logger := log.NewNoopLogger()
	reporter := NewReporter(logger, nil, f.repo, f.emitter, f.clock)
	f.queue = NewQueue(QueueConfig{
		PreferredBatchCount: batchCount,
		PreferredBatchBytes: batchBytes,
		PortName:            "From iOS",
	}, QueueDeps{
		Store:     f.store,
		Transport: f.transport,
		Reporter:  reporter,
		Emitter:   f.emitter,
		Clock:     f.clock,
		Logger:    logger,
	})
	return f
}

func makePackets(n, size int) []domain.DataPacket {
	out := make([]domain.DataPacket, n)
	for i := range out {
		out[i] = domain.NewDataPacket(
			map[string]string{"packetNumber": strconv.Itoa(i)},
			[]byte(strings.Repeat("x", size)),
		)
	}
	return out
}

func packetNumbers(packets []domain.DataPacket) []string {
	out := make([]string, len(packets))
	for i, p := range packets {
		out[i] = p.Attribute("packetNumber")
	}
	return out
}
