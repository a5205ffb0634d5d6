package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"candlescan/internal/features"
	"candlescan/internal/pattern"
	"candlescan/internal/provider"
	"candlescan/pkg/model"
)

// Outcome is the forward move after a single pattern match
type Outcome struct {
	Symbol     string    `json:"symbol"`
	Rule       string    `json:"rule"`
	Kind       string    `json:"kind"`
	Date       time.Time `json:"date"`        // completion candle
	EntryPrice float64   `json:"entry_price"` // close of the completion candle
	ExitPrice  float64   `json:"exit_price"`  // close Horizon bars later
	ReturnPct  float64   `json:"return_pct"`  // signed in the direction of the signal
	IsWin      bool      `json:"is_win"`
}

// RuleStats aggregates the outcomes of one rule
type RuleStats struct {
	Rule          string  `json:"rule"`
	Samples       int     `json:"samples"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	AvgReturnPct  float64 `json:"avg_return_pct"`
	AvgWinPct     float64 `json:"avg_win_pct"`
	AvgLossPct    float64 `json:"avg_loss_pct"`
	StdDevPct     float64 `json:"std_dev_pct"`
	ProfitFactor  float64 `json:"profit_factor"` // gross gain / gross loss
	MaxWinStreak  int     `json:"max_win_streak"`
	MaxLoseStreak int     `json:"max_lose_streak"`
}

// Result contains the complete backtest results
type Result struct {
	Horizon      int           `json:"horizon"`
	TotalScanned int           `json:"total_scanned"`
	Failed       int           `json:"failed"`
	Stats        []RuleStats   `json:"stats"`
	Outcomes     []Outcome     `json:"outcomes"`
	ScanTime     time.Duration `json:"scan_time"`
}

// Config holds backtest parameters
type Config struct {
	Horizon      int // bars held after the completion candle
	LookbackDays int // history fetched per symbol
	Workers      int // symbols processed in parallel
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Horizon:      5,
		LookbackDays: 500,
		Workers:      4,
	}
}

// Backtester measures how price moved after past pattern matches
type Backtester struct {
	config    Config
	provider  provider.Provider
	annotator *features.Annotator
	registry  *pattern.Registry
	logger    zerolog.Logger
}

// NewBacktester creates a new backtester
func NewBacktester(cfg Config, p provider.Provider, annotator *features.Annotator, reg *pattern.Registry, logger zerolog.Logger) *Backtester {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Backtester{
		config:    cfg,
		provider:  p,
		annotator: annotator,
		registry:  reg,
		logger:    logger,
	}
}

// Run backtests every rule of the registry over the history of stocks
func (b *Backtester) Run(ctx context.Context, stocks []model.Stock) (*Result, error) {
	if b.registry == nil {
		return nil, pattern.ErrNilRegistry
	}
	if b.config.Horizon < 1 {
		return nil, fmt.Errorf("horizon must be at least 1")
	}
	start := time.Now()

	perStock := make([][]Outcome, len(stocks))
	failed := make([]bool, len(stocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Workers)
	for i, stock := range stocks {
		i, stock := i, stock
		g.Go(func() error {
			candles, err := b.provider.GetDailyCandles(gctx, stock.Symbol, b.config.LookbackDays)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				b.logger.Debug().Err(err).Str("symbol", stock.Symbol).Msg("fetch failed")
				failed[i] = true
				return nil
			}

			series := b.annotator.Annotate(candles)
			matches, err := pattern.Scan(series, b.registry)
			if err != nil {
				return err
			}
			perStock[i] = Evaluate(stock.Symbol, series, matches, b.config.Horizon)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Horizon:      b.config.Horizon,
		TotalScanned: len(stocks),
		Outcomes:     []Outcome{},
	}
	for i := range stocks {
		if failed[i] {
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, perStock[i]...)
	}
	result.Stats = Summarize(result.Outcomes, b.registry.Names())
	result.ScanTime = time.Since(start)
	return result, nil
}

// Evaluate turns the matches of one series into outcomes. Matches without
// horizon bars after their completion candle are skipped.
func Evaluate(symbol string, series []model.AnnotatedCandle, matches []pattern.Match, horizon int) []Outcome {
	var out []Outcome
	for _, m := range matches {
		end := m.End()
		exit := end + horizon
		if exit >= len(series) {
			continue
		}
		entry := series[end].Close
		if entry <= 0 {
			continue
		}

		ret := (series[exit].Close - entry) / entry * 100
		if m.Kind == pattern.Bearish {
			ret = -ret
		}

		out = append(out, Outcome{
			Symbol:     symbol,
			Rule:       m.Rule,
			Kind:       string(m.Kind),
			Date:       series[end].Time,
			EntryPrice: entry,
			ExitPrice:  series[exit].Close,
			ReturnPct:  ret,
			IsWin:      ret > 0,
		})
	}
	return out
}

// Summarize computes per-rule statistics. Rules are listed in order, followed
// by any rule seen in outcomes but missing from order; rules without
// outcomes are omitted.
func Summarize(outcomes []Outcome, order []string) []RuleStats {
	byRule := make(map[string][]Outcome)
	for _, o := range outcomes {
		byRule[o.Rule] = append(byRule[o.Rule], o)
	}

	names := make([]string, 0, len(byRule))
	seen := make(map[string]bool)
	for _, name := range order {
		if _, ok := byRule[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var extra []string
	for name := range byRule {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	stats := make([]RuleStats, 0, len(names))
	for _, name := range names {
		stats = append(stats, calculateStats(name, byRule[name]))
	}
	return stats
}

// calculateStats computes all statistics from outcomes
func calculateStats(rule string, outcomes []Outcome) RuleStats {
	s := RuleStats{Rule: rule, Samples: len(outcomes)}
	if len(outcomes) == 0 {
		return s
	}

	var totalWin, totalLoss float64
	var winStreak, loseStreak int
	returns := make([]float64, len(outcomes))

	for i, o := range outcomes {
		returns[i] = o.ReturnPct

		if o.IsWin {
			s.Wins++
			totalWin += o.ReturnPct

			winStreak++
			loseStreak = 0
			if winStreak > s.MaxWinStreak {
				s.MaxWinStreak = winStreak
			}
		} else {
			s.Losses++
			totalLoss += math.Abs(o.ReturnPct)

			loseStreak++
			winStreak = 0
			if loseStreak > s.MaxLoseStreak {
				s.MaxLoseStreak = loseStreak
			}
		}
	}

	s.WinRate = float64(s.Wins) / float64(s.Samples) * 100
	s.AvgReturnPct = average(returns)
	s.StdDevPct = stdDev(returns)

	if s.Wins > 0 {
		s.AvgWinPct = totalWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossPct = totalLoss / float64(s.Losses)
	}
	if totalLoss > 0 {
		s.ProfitFactor = totalWin / totalLoss
	}
	return s
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := average(values)
	var sumSquares float64
	for _, v := range values {
		sumSquares += (v - avg) * (v - avg)
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}
