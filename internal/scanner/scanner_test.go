package scanner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlescan/internal/features"
	"candlescan/internal/metrics"
	"candlescan/internal/pattern"
	"candlescan/pkg/model"
)

type stubProvider struct {
	series map[string][]model.Candle
}

func (p *stubProvider) Name() string      { return "stub" }
func (p *stubProvider) IsAvailable() bool { return true }
func (p *stubProvider) RateLimit() int    { return 0 }

func (p *stubProvider) GetDailyCandles(_ context.Context, symbol string, _ int) ([]model.Candle, error) {
	c, ok := p.series[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return c, nil
}

// spikeRule matches every candle closing above 100
type spikeRule struct{}

func (spikeRule) Name() string      { return "spike" }
func (spikeRule) WindowLength() int { return 1 }

func (spikeRule) Evaluate(w pattern.Window) (pattern.Match, bool) {
	if w[0].Close > 100 {
		return pattern.Match{Kind: pattern.Bullish, Style: "spike"}, true
	}
	return pattern.Match{}, false
}

func flatSeries(n int, spikes ...int) []model.Candle {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = model.Candle{Time: start.AddDate(0, 0, i), Open: 99, High: 101, Low: 98, Close: 100}
	}
	for _, i := range spikes {
		out[i].Close = 105
		out[i].High = 106
	}
	return out
}

func stocksFor(symbols ...string) []model.Stock {
	out := make([]model.Stock, len(symbols))
	for i, sym := range symbols {
		out[i] = model.Stock{Symbol: sym, Name: sym, Exchange: "US"}
	}
	return out
}

func newTestScanner(t *testing.T, p *stubProvider, opts Options) *Scanner {
	t.Helper()
	reg := pattern.NewRegistry()
	require.NoError(t, reg.Register(spikeRule{}))
	return NewScanner(p, features.NewAnnotator(features.DefaultConfig()), reg, opts, zerolog.Nop())
}

func TestScanRecentBars(t *testing.T) {
	p := &stubProvider{series: map[string][]model.Candle{
		"AAPL": flatSeries(10, 1, 9),
		"MSFT": flatSeries(10),
	}}
	s := newTestScanner(t, p, Options{Workers: 2, LookbackDays: 10, RecentBars: 2})

	result, err := s.Scan(context.Background(), stocksFor("AAPL", "MSFT", "BAD"))
	require.NoError(t, err)

	assert.Equal(t, []string{"spike"}, result.Rules)
	assert.Equal(t, 3, result.TotalScanned)
	assert.Equal(t, 1, result.MatchingCount)
	require.Len(t, result.Results, 3)

	aapl := result.Results[0]
	assert.Equal(t, "AAPL", aapl.Stock.Symbol)
	assert.Equal(t, 10, aapl.Bars)
	require.Len(t, aapl.Matches, 1, "spike at index 1 is older than the recent window")
	m := aapl.Matches[0]
	assert.Equal(t, "spike", m.Rule)
	assert.Equal(t, "bullish", m.Kind)
	assert.Equal(t, 9, m.WindowStart)
	assert.Equal(t, 1, m.WindowLen)
	assert.Equal(t, 105.0, m.Close)
	assert.True(t, m.Date.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "MSFT", result.Results[1].Stock.Symbol)
	assert.Empty(t, result.Results[1].Matches)
	assert.Empty(t, result.Results[1].Error)

	assert.Equal(t, "BAD", result.Results[2].Stock.Symbol)
	assert.NotEmpty(t, result.Results[2].Error)
}

func TestScanAllBars(t *testing.T) {
	p := &stubProvider{series: map[string][]model.Candle{"AAPL": flatSeries(10, 1, 4, 9)}}
	s := newTestScanner(t, p, Options{Workers: 1})

	result, err := s.Scan(context.Background(), stocksFor("AAPL"))
	require.NoError(t, err)
	require.Len(t, result.Results[0].Matches, 3)
	for i, start := range []int{1, 4, 9} {
		assert.Equal(t, start, result.Results[0].Matches[i].WindowStart)
	}
}

func TestScanProgress(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E"}
	p := &stubProvider{series: map[string][]model.Candle{}}
	for _, sym := range symbols {
		p.series[sym] = flatSeries(3)
	}
	s := newTestScanner(t, p, Options{Workers: 3})

	var calls, last int64
	s.SetProgressCallback(func(scanned, total int) {
		atomic.AddInt64(&calls, 1)
		assert.Equal(t, len(symbols), total)
		if scanned == total {
			atomic.StoreInt64(&last, int64(scanned))
		}
	})

	result, err := s.Scan(context.Background(), stocksFor(symbols...))
	require.NoError(t, err)
	assert.Len(t, result.Results, len(symbols))
	assert.Equal(t, int64(len(symbols)), atomic.LoadInt64(&calls))
	assert.Equal(t, int64(len(symbols)), atomic.LoadInt64(&last))

	for i, r := range result.Results {
		assert.Equal(t, symbols[i], r.Stock.Symbol, "results keep input order")
	}
}

func TestScanCancelled(t *testing.T) {
	p := &stubProvider{series: map[string][]model.Candle{"AAPL": flatSeries(3)}}
	s := newTestScanner(t, p, Options{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Scan(ctx, stocksFor("AAPL"))
	require.NoError(t, err)
	assert.Empty(t, result.Results)
	assert.Equal(t, 1, result.TotalScanned)
}

// cancellingProvider ends the scan context during the first fetch
type cancellingProvider struct {
	stubProvider
	cancel context.CancelFunc
}

func (p *cancellingProvider) GetDailyCandles(ctx context.Context, _ string, _ int) ([]model.Candle, error) {
	p.cancel()
	return nil, ctx.Err()
}

func TestScanCancelledMidFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := pattern.NewRegistry()
	require.NoError(t, reg.Register(spikeRule{}))
	p := &cancellingProvider{cancel: cancel}
	s := NewScanner(p, features.NewAnnotator(features.DefaultConfig()), reg, Options{Workers: 1}, zerolog.Nop())

	var progress int64
	s.SetProgressCallback(func(int, int) { atomic.AddInt64(&progress, 1) })

	errorsBefore := testutil.ToFloat64(metrics.SymbolsScanned.WithLabelValues("error"))

	result, err := s.Scan(ctx, stocksFor("AAPL", "MSFT"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalScanned)
	assert.Empty(t, result.Results, "a fetch aborted by cancellation is not a per-symbol failure")
	assert.Zero(t, result.MatchingCount)
	assert.Zero(t, atomic.LoadInt64(&progress))
	assert.Equal(t, errorsBefore, testutil.ToFloat64(metrics.SymbolsScanned.WithLabelValues("error")))
}

func TestScanNilRegistry(t *testing.T) {
	s := NewScanner(&stubProvider{}, features.NewAnnotator(features.DefaultConfig()), nil, Options{}, zerolog.Nop())
	_, err := s.Scan(context.Background(), stocksFor("AAPL"))
	assert.ErrorIs(t, err, pattern.ErrNilRegistry)
}

func TestScanCandles(t *testing.T) {
	s := newTestScanner(t, &stubProvider{}, Options{RecentBars: 1})
	r, err := s.ScanCandles(model.Stock{Symbol: "CSV"}, flatSeries(4, 2, 3))
	require.NoError(t, err)
	require.Len(t, r.Matches, 1)
	assert.Equal(t, 3, r.Matches[0].WindowStart)
}
