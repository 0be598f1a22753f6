// Package notify delivers committed item transitions to downstream sinks.
//
// Publisher implements the workflow's Notifier port. Notify never blocks the
// caller: transitions land in a bounded ring buffer and a single worker drains
// it in batches. Delivery is best effort. A failing sink trips a circuit
// breaker and transitions are dropped while it is open.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"passport/internal/passport/models"
	"passport/pkg/platform/circuit"
)

const (
	defaultBufferSize     = 1024
	defaultBatchSize      = 64
	defaultFlushInterval  = 250 * time.Millisecond
	defaultDeliverTimeout = 5 * time.Second
)

// Sink receives batches of transitions in commit order.
type Sink interface {
	Deliver(ctx context.Context, batch []models.Transition) error
}

type Publisher struct {
	sink    Sink
	buf     *ringBuffer
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *Metrics

	batchSize      int
	flushInterval  time.Duration
	deliverTimeout time.Duration
	bufferSize     int

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	closed    sync.RWMutex
	isClosed  bool
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		if b != nil {
			p.breaker = b
		}
	}
}

func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.bufferSize = n
		}
	}
}

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

func WithDeliverTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.deliverTimeout = d
		}
	}
}

// New starts the delivery worker. Call Close to drain and stop it.
func New(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:           sink,
		logger:         slog.Default(),
		batchSize:      defaultBatchSize,
		flushInterval:  defaultFlushInterval,
		deliverTimeout: defaultDeliverTimeout,
		bufferSize:     defaultBufferSize,
		wake:           make(chan struct{}, 1),
		done:           make(chan struct{}),
		stopped:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breaker == nil {
		p.breaker = circuit.New("notify")
	}
	p.buf = newRingBuffer(p.bufferSize)
	go p.run()
	return p
}

// Notify queues t for delivery and returns immediately.
func (p *Publisher) Notify(_ context.Context, t models.Transition) {
	p.closed.RLock()
	defer p.closed.RUnlock()
	if p.isClosed {
		p.metrics.incDropped("closed", 1)
		return
	}
	if p.buf.Enqueue(t) {
		p.metrics.incDropped("overflow", 1)
	}
	p.metrics.setQueueDepth(p.buf.Len())
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting transitions and drains what is queued. It returns
// ctx.Err() if draining outlives ctx.
func (p *Publisher) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.closed.Lock()
		p.isClosed = true
		p.closed.Unlock()
		close(p.done)
	})
	select {
	case <-p.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending is the number of queued transitions.
func (p *Publisher) Pending() int {
	return p.buf.Len()
}

func (p *Publisher) run() {
	defer close(p.stopped)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			p.flush()
			return
		case <-p.wake:
			p.flush()
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *Publisher) flush() {
	for {
		batch := p.buf.DequeueBatch(p.batchSize)
		if len(batch) == 0 {
			return
		}
		p.metrics.setQueueDepth(p.buf.Len())
		p.deliver(batch)
	}
}

func (p *Publisher) deliver(batch []models.Transition) {
	if !p.breaker.Allow() {
		p.metrics.incDropped("circuit_open", len(batch))
		p.logger.Debug("notification sink circuit open, dropping batch", "count", len(batch))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.deliverTimeout)
	defer cancel()
	if err := p.sink.Deliver(ctx, batch); err != nil {
		p.metrics.incFailure()
		p.metrics.incDropped("sink_error", len(batch))
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.metrics.setCircuitOpen(true)
			p.logger.Error("notification sink circuit opened", "breaker", p.breaker.Name(), "error", err)
		} else {
			p.logger.Warn("notification delivery failed", "count", len(batch), "error", err)
		}
		return
	}
	p.metrics.incDelivered(len(batch))
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.metrics.setCircuitOpen(false)
		p.logger.Info("notification sink circuit closed", "breaker", p.breaker.Name())
	}
}
