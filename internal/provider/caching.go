package provider

import (
	"context"
	"sync"

	"candlescan/pkg/model"
)

// CachingProvider wraps a Provider with an in-memory cache for GetDailyCandles.
// Repeated scans of the same symbol (CLI re-runs in serve mode, overlapping
// universes) hit the upstream provider once.
type CachingProvider struct {
	inner   Provider
	cache   map[string][]model.Candle
	mu      sync.Mutex
	maxDays int
}

// NewCachingProvider creates a caching wrapper. maxDays is the number of days
// to always fetch so that later requests for fewer days are served from cache.
func NewCachingProvider(inner Provider, maxDays int) *CachingProvider {
	return &CachingProvider{
		inner:   inner,
		cache:   make(map[string][]model.Candle),
		maxDays: maxDays,
	}
}

func (p *CachingProvider) Name() string      { return p.inner.Name() }
func (p *CachingProvider) IsAvailable() bool { return p.inner.IsAvailable() }
func (p *CachingProvider) RateLimit() int    { return p.inner.RateLimit() }

func (p *CachingProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	p.mu.Lock()
	cached, ok := p.cache[symbol]
	p.mu.Unlock()
	if ok {
		return lastN(cached, days), nil
	}

	// Fetch max days to satisfy later requests in one call
	fetchDays := p.maxDays
	if days > fetchDays {
		fetchDays = days
	}

	candles, err := p.inner.GetDailyCandles(ctx, symbol, fetchDays)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[symbol] = candles
	p.mu.Unlock()

	return lastN(candles, days), nil
}

// Invalidate drops all cached series
func (p *CachingProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string][]model.Candle)
}
