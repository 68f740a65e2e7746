package usecase

import (
	"context"
	"time"

	domsvc "TradeDesk/internal/domain/service"
	"TradeDesk/internal/service/quotes"
	xlogger "TradeDesk/pkg/logger"
)

// QuoteCollector pumps the live market stream into the quote cache so scans
// read fresh prices without touching the brokerage REST budget.
type QuoteCollector struct {
	stream domsvc.MarketStream
	cache  *quotes.Cache
	log    *xlogger.Logger

	reconnectWait time.Duration
}

func NewQuoteCollector(stream domsvc.MarketStream, cache *quotes.Cache, log *xlogger.Logger) *QuoteCollector {
	return &QuoteCollector{
		stream:        stream,
		cache:         cache,
		log:           log,
		reconnectWait: 5 * time.Second,
	}
}

// Run blocks until ctx is cancelled, reconnecting on stream failures.
func (c *QuoteCollector) Run(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	defer c.stream.Close()

	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}

	for {
		quoteCh, errCh := c.stream.Read(ctx)
	consume:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case q, ok := <-quoteCh:
				if !ok {
					break consume
				}
				if q != nil {
					c.cache.Update(*q)
				}
			case err := <-errCh:
				c.log.Warn("market stream error", xlogger.Error(err))
				break consume
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectWait):
		}

		if err := c.stream.Reconnect(ctx); err != nil {
			c.log.Error("market stream reconnect failed", xlogger.Error(err))
			continue
		}
		if err := c.stream.Subscribe(ctx); err != nil {
			c.log.Error("market stream resubscribe failed", xlogger.Error(err))
		}
	}
}
