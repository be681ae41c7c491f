package app

import (
	"context"
	"errors"
	"sync"
	"time"
	"tradewatch/internal/trace"
	"tradewatch/internal/tradelog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	ErrPollerStarted = errors.New("poller already started")
	ErrPollerStopped = errors.New("poller stopped")
)

const defaultPollInterval = 5 * time.Second

// LogFetcher retrieves the complete trade log.
type LogFetcher interface {
	Fetch(ctx context.Context) (tradelog.Snapshot, error)
}

// PollerConfig holds poller timing.
type PollerConfig struct {
	Interval     time.Duration
	FetchTimeout time.Duration
}

// Poller fetches the log once on Start and then every Interval. A tick does not
// wait for the previous fetch, so fetches may overlap; their results are applied
// one at a time in order of arrival.
type Poller struct {
	logger     *zap.Logger
	fetcher    LogFetcher
	cfg        PollerConfig
	onSnapshot func(tradelog.Snapshot)
	onFailure  func(error)

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	// applyMu serializes callbacks
	applyMu  sync.Mutex
	inflight sync.WaitGroup
}

func NewPoller(
	logger *zap.Logger,
	fetcher LogFetcher,
	cfg PollerConfig,
	onSnapshot func(tradelog.Snapshot),
	onFailure func(error),
) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onFailure == nil {
		onFailure = func(error) {}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}
	return &Poller{
		logger:     logger,
		fetcher:    fetcher,
		cfg:        cfg,
		onSnapshot: onSnapshot,
		onFailure:  onFailure,
		done:       make(chan struct{}),
	}
}

// Start begins polling. It returns immediately; the first fetch is already in flight.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPollerStopped
	}
	if p.started {
		return ErrPollerStarted
	}
	p.started = true

	pctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("poller started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Duration("fetchTimeout", p.cfg.FetchTimeout),
	)

	go p.run(pctx)
	return nil
}

// Stop cancels the schedule and any in-flight fetch. It is safe to call more
// than once. Once it returns, no further onSnapshot or onFailure call happens.
// It must not be called from inside those callbacks.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	wasStarted := p.started
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	// Wait out a callback that is already running.
	p.applyMu.Lock()
	p.applyMu.Unlock()

	if wasStarted {
		<-p.done
	}
	p.logger.Info("poller stopped")
}

// Wait blocks until every fetch goroutine has returned.
func (p *Poller) Wait() {
	p.inflight.Wait()
}

func (p *Poller) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Initial poll
	p.spawnFetch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.spawnFetch(ctx)
		}
	}
}

func (p *Poller) spawnFetch(ctx context.Context) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.fetch(ctx)
	}()
}

func (p *Poller) fetch(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "poller.fetch")
	defer span.End()

	fctx := ctx
	if p.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, p.cfg.FetchTimeout)
		defer cancel()
	}

	start := time.Now()
	snapshot, err := p.fetcher.Fetch(fctx)
	elapsed := time.Since(start)

	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	// Results that land after Stop are dropped.
	if ctx.Err() != nil || p.isStopped() {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		fields := append([]zap.Field{zap.Error(err), zap.Duration("elapsed", elapsed)}, trace.LogFields(ctx)...)
		p.logger.Warn("failed to fetch trade log", fields...)
		p.onFailure(err)
		return
	}

	span.SetAttributes(attribute.Int("log.entries", len(snapshot)))
	p.onSnapshot(snapshot)
}
