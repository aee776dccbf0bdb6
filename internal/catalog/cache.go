package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"valuation-catalog-api/internal/metrics"
	"valuation-catalog-api/internal/model"
)

// DefaultTTL is how long a built index is served before the next rebuild
const DefaultTTL = 6 * time.Hour

// ErrEmptyCatalog is returned when the row fetcher produced no rows at all
var ErrEmptyCatalog = errors.New("catalog: row fetcher returned no rows")

// RowFetcher produces the raw catalog rows an index is built from
type RowFetcher interface {
	FetchRows(ctx context.Context) ([]model.RawRow, error)
}

// FetchFunc adapts a function to RowFetcher
type FetchFunc func(ctx context.Context) ([]model.RawRow, error)

// FetchRows implements RowFetcher
func (f FetchFunc) FetchRows(ctx context.Context) ([]model.RawRow, error) {
	return f(ctx)
}

// State is the lifecycle state of a Manager
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// build is the handle every caller waiting on one refresh shares
type build struct {
	done  chan struct{}
	index *Index
	err   error
}

// ManagerConfig configures a Manager
type ManagerConfig struct {
	TTL          time.Duration // <= 0 selects DefaultTTL
	BuildTimeout time.Duration // 0 leaves the fetch unbounded
	Logger       *slog.Logger
	Metrics      metrics.Collector
	Now          func() time.Time
}

// Manager owns the current Index and rebuilds it once its TTL has expired.
//
// At most one build runs at a time; callers arriving while it runs wait for
// its result. A failed build publishes nothing and the next call retries.
type Manager struct {
	fetcher      RowFetcher
	indexer      *Indexer
	ttl          time.Duration
	buildTimeout time.Duration
	logger       *slog.Logger
	metrics      metrics.Collector
	now          func() time.Time

	mu        sync.Mutex
	state     State
	current   *Index
	expiresAt time.Time
	inflight  *build
	lastErr   error
}

// NewManager creates a cache manager around a row fetcher
func NewManager(fetcher RowFetcher, indexer *Indexer, cfg ManagerConfig) *Manager {
	m := &Manager{
		fetcher:      fetcher,
		indexer:      indexer,
		ttl:          cfg.TTL,
		buildTimeout: cfg.BuildTimeout,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		now:          cfg.Now,
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.metrics == nil {
		m.metrics = metrics.Noop{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// GetIndex returns the current index, building it first when there is none
// or it has expired.
//
// ctx bounds only this caller's wait: the build itself keeps running for the
// other waiters and is published when it completes.
func (m *Manager) GetIndex(ctx context.Context) (*Index, error) {
	m.mu.Lock()
	if m.state == StateReady && m.now().Before(m.expiresAt) {
		index := m.current
		m.mu.Unlock()
		m.metrics.RecordCacheLookup(true)
		return index, nil
	}

	b := m.inflight
	if b == nil {
		b = m.startLocked(ctx)
	}
	m.mu.Unlock()
	m.metrics.RecordCacheLookup(false)

	select {
	case <-b.done:
		return b.index, b.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reset discards the current index. A build already in flight is not
// cancelled and still publishes its result.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = nil
	m.expiresAt = time.Time{}
	m.lastErr = nil
	if m.inflight == nil {
		m.state = StateEmpty
	}
	m.logger.Info("catalog cache reset")
}

// State returns the lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns the last published index, or nil, without triggering a build.
// The index may be past its TTL.
func (m *Manager) Snapshot() *Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// LastError returns the error of the last failed build, cleared by a success or Reset
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// startLocked must be called with m.mu held
func (m *Manager) startLocked(ctx context.Context) *build {
	b := &build{done: make(chan struct{})}
	m.inflight = b
	m.state = StateLoading

	go m.run(context.WithoutCancel(ctx), b)
	return b
}

func (m *Manager) run(ctx context.Context, b *build) {
	if m.buildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.buildTimeout)
		defer cancel()
	}

	start := time.Now()
	m.logger.Info("building catalog index")

	index, err := m.buildIndex(ctx)
	duration := time.Since(start)

	m.mu.Lock()
	m.inflight = nil
	if err != nil {
		m.state = StateFailed
		m.current = nil
		m.expiresAt = time.Time{}
		m.lastErr = err
	} else {
		m.state = StateReady
		m.current = index
		m.expiresAt = m.now().Add(m.ttl)
		m.lastErr = nil
	}
	b.index, b.err = index, err
	m.mu.Unlock()
	defer close(b.done)

	if err != nil {
		m.metrics.RecordBuild(0, 0, duration, err)
		m.logger.Error("catalog index build failed", "error", err, "duration", duration)
		return
	}
	m.metrics.RecordBuild(index.RowCount, index.Dropped, duration, nil)
	m.logger.Info("catalog index built",
		"rows", index.RowCount,
		"dropped", index.Dropped,
		"brands", index.BrandCount(),
		"duration", duration,
	)
}

func (m *Manager) buildIndex(ctx context.Context) (*Index, error) {
	rows, err := m.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyCatalog
	}
	return m.indexer.Build(rows), nil
}

func (m *Manager) fetch(ctx context.Context) (rows []model.RawRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("row fetcher panicked: %v", r)
		}
	}()
	return m.fetcher.FetchRows(ctx)
}
