package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"candlescan/internal/features"
	"candlescan/internal/metrics"
	"candlescan/internal/pattern"
	"candlescan/internal/provider"
	"candlescan/pkg/model"
)

// ProgressCallback is called with progress updates
type ProgressCallback func(scanned, total int)

// Options holds universe scan settings
type Options struct {
	Workers      int           // symbols processed in parallel
	RuleWorkers  int           // rules evaluated in parallel per symbol
	Timeout      time.Duration // whole scan
	LookbackDays int           // daily bars fetched per symbol
	RecentBars   int           // only report matches ending in the last N bars, 0 = all
}

// Scanner fetches daily candles for many stocks, annotates them and
// runs the pattern rules over each series
type Scanner struct {
	provider     provider.Provider
	annotator    *features.Annotator
	registry     *pattern.Registry
	patterns     *pattern.Scanner
	opts         Options
	progressFunc ProgressCallback
	logger       zerolog.Logger
}

// NewScanner creates a new scanner
func NewScanner(p provider.Provider, annotator *features.Annotator, reg *pattern.Registry, opts Options, logger zerolog.Logger) *Scanner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Scanner{
		provider:  p,
		annotator: annotator,
		registry:  reg,
		patterns:  pattern.NewScanner(opts.RuleWorkers),
		opts:      opts,
		logger:    logger,
	}
}

// SetProgressCallback sets the progress callback function
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

// Registry returns the rules this scanner applies
func (s *Scanner) Registry() *pattern.Registry {
	return s.registry
}

// Scan scans all provided stocks. Fetch failures are reported per symbol;
// when the context ends early the symbols processed so far are returned.
func (s *Scanner) Scan(ctx context.Context, stocks []model.Stock) (*model.ScanResult, error) {
	startTime := time.Now()
	if s.registry == nil {
		return nil, pattern.ErrNilRegistry
	}

	result := &model.ScanResult{
		StartedAt:    startTime,
		Rules:        s.registry.Names(),
		TotalScanned: len(stocks),
		Results:      []model.SymbolResult{},
	}
	if len(stocks) == 0 {
		result.ScanTime = time.Since(startTime)
		return result, nil
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	// Channels
	jobChan := make(chan int, len(stocks))
	for i := range stocks {
		jobChan <- i
	}
	close(jobChan)

	// Results are stored by input position so output order is stable
	results := make([]*model.SymbolResult, len(stocks))

	// Progress counter
	var scannedCount int64

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				if ctx.Err() != nil {
					return
				}
				r, ok := s.scanStock(ctx, stocks[idx])
				if !ok {
					return
				}
				results[idx] = &r

				count := atomic.AddInt64(&scannedCount, 1)
				if s.progressFunc != nil {
					s.progressFunc(int(count), len(stocks))
				}
			}
		}()
	}
	wg.Wait()

	for _, r := range results {
		if r == nil {
			continue
		}
		result.Results = append(result.Results, *r)
		if len(r.Matches) > 0 {
			result.MatchingCount++
		}
	}

	if err := ctx.Err(); err != nil {
		s.logger.Warn().Err(err).
			Int("scanned", len(result.Results)).
			Int("total", len(stocks)).
			Msg("scan stopped early")
	}

	result.ScanTime = time.Since(startTime)
	metrics.ScanDuration.Observe(result.ScanTime.Seconds())
	return result, nil
}

// scanStock reports false when the fetch was cut short by the scan context;
// such symbols count as not processed.
func (s *Scanner) scanStock(ctx context.Context, stock model.Stock) (model.SymbolResult, bool) {
	candles, err := s.provider.GetDailyCandles(ctx, stock.Symbol, s.opts.LookbackDays)
	if err != nil {
		if ctx.Err() != nil {
			return model.SymbolResult{}, false
		}
		s.logger.Debug().Err(err).Str("symbol", stock.Symbol).Msg("fetch failed")
		metrics.SymbolsScanned.WithLabelValues("error").Inc()
		return model.SymbolResult{Stock: stock, Error: err.Error()}, true
	}

	r, err := s.ScanCandles(stock, candles)
	if err != nil {
		metrics.SymbolsScanned.WithLabelValues("error").Inc()
		return model.SymbolResult{Stock: stock, Bars: len(candles), Error: err.Error()}, true
	}
	metrics.SymbolsScanned.WithLabelValues("ok").Inc()
	return r, true
}

// ScanCandles annotates a raw daily series and applies the rules to it
func (s *Scanner) ScanCandles(stock model.Stock, candles []model.Candle) (model.SymbolResult, error) {
	series := s.annotator.Annotate(candles)

	matches, err := s.patterns.Scan(series, s.registry)
	if err != nil {
		return model.SymbolResult{}, err
	}
	metrics.WindowsEvaluated.Add(float64(pattern.EvaluationCount(len(series), s.registry)))

	cutoff := 0
	if s.opts.RecentBars > 0 {
		cutoff = len(series) - s.opts.RecentBars
	}

	records := make([]model.MatchRecord, 0, len(matches))
	for _, m := range matches {
		if m.End() < cutoff {
			continue
		}
		last := series[m.End()]
		records = append(records, model.MatchRecord{
			Rule:        m.Rule,
			Kind:        string(m.Kind),
			Style:       m.Style,
			WindowStart: m.Start,
			WindowLen:   m.Length,
			Date:        last.Time,
			Close:       last.Close,
		})
		metrics.PatternMatches.WithLabelValues(m.Rule, string(m.Kind)).Inc()
	}

	if len(records) > 0 {
		s.logger.Debug().Str("symbol", stock.Symbol).Int("matches", len(records)).Msg("patterns found")
	}

	return model.SymbolResult{Stock: stock, Bars: len(candles), Matches: records}, nil
}
