package quotes

import (
	"sync"
	"time"

	"TradeDesk/internal/domain/models"
)

type series struct {
	last    models.Quote
	history []float64
}

// Cache holds the latest quote and a bounded rolling price window per
// symbol, fed by the market stream and read by strategy producers.
type Cache struct {
	mu     sync.RWMutex
	m      map[string]*series
	ttl    time.Duration
	window int
}

func NewCache(ttl time.Duration, window int) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if window <= 0 {
		window = 120
	}
	return &Cache{m: make(map[string]*series), ttl: ttl, window: window}
}

// Update records a fresh quote and appends its price to the window.
func (c *Cache) Update(q models.Quote) {
	c.mu.Lock()
	s, ok := c.m[q.Symbol]
	if !ok {
		s = &series{history: make([]float64, 0, c.window)}
		c.m[q.Symbol] = s
	}
	s.last = q
	s.history = append(s.history, q.Price)
	if len(s.history) > c.window {
		s.history = s.history[len(s.history)-c.window:]
	}
	c.mu.Unlock()
}

// Last returns the latest quote unless it is older than the TTL.
func (c *Cache) Last(symbol string) (models.Quote, bool) {
	c.mu.RLock()
	s, ok := c.m[symbol]
	c.mu.RUnlock()
	if !ok {
		return models.Quote{}, false
	}
	if time.Since(s.last.Timestamp) > c.ttl {
		return models.Quote{}, false
	}
	return s.last, true
}

// History returns a copy of the recent price window, oldest first.
func (c *Cache) History(symbol string) []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.m[symbol]
	if !ok {
		return nil
	}
	out := make([]float64, len(s.history))
	copy(out, s.history)
	return out
}

// Snapshot assembles the MarketData handed to producers; ok is false when
// no fresh quote is available.
func (c *Cache) Snapshot(symbol string) (*models.MarketData, bool) {
	last, ok := c.Last(symbol)
	if !ok {
		return nil, false
	}
	return &models.MarketData{Quote: last, History: c.History(symbol)}, true
}
