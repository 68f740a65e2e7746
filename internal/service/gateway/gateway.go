package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	xlogger "TradeDesk/pkg/logger"
)

// Call is one outbound brokerage request.
type Call func(ctx context.Context) (interface{}, error)

// Config tunes the gateway's request budget and retry policy.
type Config struct {
	RequestsPerWindow int
	Window            time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	QueueSize         int
}

type result struct {
	value interface{}
	err   error
}

type pending struct {
	name     string
	call     Call
	ctx      context.Context
	attempts int
	done     chan result
}

// Gateway serializes every outbound brokerage call through one FIFO queue
// drained by a single consumer, so no two requests execute concurrently and
// the provider's request budget is never exceeded.
type Gateway struct {
	queue   chan *pending
	limiter *rate.Limiter
	cfg     Config
	log     *xlogger.Logger
	metrics domrepo.Metrics

	mu             sync.Mutex
	throttledUntil time.Time
	processing     bool
	closed         bool

	stop chan struct{}
	done chan struct{}
}

func New(cfg Config, log *xlogger.Logger, metrics domrepo.Metrics) *Gateway {
	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	g := &Gateway{
		queue:   make(chan *pending, cfg.QueueSize),
		limiter: rate.NewLimiter(rate.Every(cfg.Window/time.Duration(cfg.RequestsPerWindow)), 1),
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go g.consume()
	return g
}

// Submit enqueues a call and blocks until it completes, fails, or ctx ends.
// Requests are issued strictly in arrival order.
func (g *Gateway) Submit(ctx context.Context, name string, call Call) (interface{}, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, models.ErrGatewayClosed
	}
	g.mu.Unlock()

	p := &pending{name: name, call: call, ctx: ctx, done: make(chan result, 1)}
	select {
	case g.queue <- p:
	default:
		return nil, fmt.Errorf("gateway queue full (%d)", cap(g.queue))
	}
	if g.metrics != nil {
		g.metrics.RecordQueueDepth(len(g.queue))
	}

	select {
	case r := <-p.done:
		return r.value, r.err
	case <-ctx.Done():
		// The consumer may still issue the request; the caller stops waiting.
		return nil, ctx.Err()
	}
}

// Throttle administratively pauses the consumer for the given duration.
func (g *Gateway) Throttle(d time.Duration) {
	g.mu.Lock()
	until := time.Now().Add(d)
	if until.After(g.throttledUntil) {
		g.throttledUntil = until
	}
	g.mu.Unlock()
	if g.log != nil {
		g.log.Warn("gateway throttled", xlogger.Duration("duration_ms", d))
	}
}

// ClearQueue drops all pending, not-yet-issued requests, failing each back
// to its caller. Returns the number dropped.
func (g *Gateway) ClearQueue() int {
	n := 0
	for {
		select {
		case p := <-g.queue:
			p.done <- result{err: models.ErrQueueCleared}
			n++
		default:
			if g.metrics != nil {
				g.metrics.RecordQueueDepth(0)
			}
			return n
		}
	}
}

// Stats reports the management snapshot.
func (g *Gateway) Stats() models.GatewayStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	remaining := time.Until(g.throttledUntil)
	if remaining < 0 {
		remaining = 0
	}
	return models.GatewayStats{
		QueueLength:           len(g.queue),
		IsThrottled:           remaining > 0,
		ThrottleTimeRemaining: remaining.Milliseconds(),
		Processing:            g.processing,
	}
}

// Close stops the consumer and fails all pending requests.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()

	close(g.stop)
	<-g.done
	g.ClearQueue()
}

func (g *Gateway) consume() {
	defer close(g.done)
	for {
		select {
		case <-g.stop:
			return
		case p := <-g.queue:
			g.waitThrottle()
			if err := g.limiter.Wait(p.ctx); err != nil {
				p.done <- result{err: err}
				continue
			}
			g.execute(p)
			if g.metrics != nil {
				g.metrics.RecordQueueDepth(len(g.queue))
			}
		}
	}
}

// waitThrottle blocks while an administrative throttle is active.
func (g *Gateway) waitThrottle() {
	for {
		g.mu.Lock()
		remaining := time.Until(g.throttledUntil)
		g.mu.Unlock()
		if remaining <= 0 {
			return
		}
		select {
		case <-g.stop:
			return
		case <-time.After(remaining):
		}
	}
}

func (g *Gateway) execute(p *pending) {
	g.setProcessing(true)
	defer g.setProcessing(false)

	start := time.Now()
	v, err := p.call(p.ctx)
	if g.metrics != nil {
		g.metrics.RecordLatency("gateway_"+p.name, time.Since(start).Seconds())
	}

	if err != nil && errors.Is(err, models.ErrRateLimited) {
		p.attempts++
		if p.attempts <= g.cfg.MaxRetries {
			// Back off, then requeue rather than failing the caller.
			g.Throttle(g.cfg.RetryBackoff * time.Duration(p.attempts))
			select {
			case g.queue <- p:
				if g.log != nil {
					g.log.Warn("rate limited, requeued",
						xlogger.String("request", p.name),
						xlogger.Int("attempt", p.attempts))
				}
				return
			default:
				// Queue full; fall through and fail the caller.
			}
		}
		if g.metrics != nil {
			g.metrics.RecordError("gateway_rate_limit")
		}
		p.done <- result{err: fmt.Errorf("%s after %d attempts: %w", p.name, p.attempts, models.ErrRateLimited)}
		return
	}

	p.done <- result{value: v, err: err}
}

func (g *Gateway) setProcessing(v bool) {
	g.mu.Lock()
	g.processing = v
	g.mu.Unlock()
}
