package features

import (
	"fmt"

	"candlescan/pkg/model"
)

// Config holds feature extraction settings
type Config struct {
	TrendPeriod    int     // WMA period used for the trend context
	BaselinePeriod int     // candles averaged for the body-size baseline
	LongFactor     float64 // body >= LongFactor * baseline is long
	ShortFactor    float64 // body <= ShortFactor * baseline is short
	DojiFraction   float64 // body <= DojiFraction * range is a doji
	MaxShadowRatio float64 // cap for shadow ratio, used for zero bodies
}

// DefaultConfig returns the default feature settings
func DefaultConfig() Config {
	return Config{
		TrendPeriod:    10,
		BaselinePeriod: 10,
		LongFactor:     1.3,
		ShortFactor:    0.5,
		DojiFraction:   0.1,
		MaxShadowRatio: 100,
	}
}

// Validate checks the settings
func (c Config) Validate() error {
	if c.TrendPeriod < 2 {
		return fmt.Errorf("trend_period must be at least 2")
	}
	if c.BaselinePeriod < 1 {
		return fmt.Errorf("baseline_period must be at least 1")
	}
	if c.ShortFactor < 0 || c.LongFactor <= c.ShortFactor {
		return fmt.Errorf("need 0 <= short_factor < long_factor")
	}
	if c.MaxShadowRatio <= 0 {
		return fmt.Errorf("max_shadow_ratio must be positive")
	}
	return nil
}

// Annotator turns raw daily candles into annotated candles
type Annotator struct {
	config Config
}

// NewAnnotator creates a new annotator
func NewAnnotator(cfg Config) *Annotator {
	return &Annotator{config: cfg}
}

// Annotate computes features for a chronological candle series.
// Features of candle i only depend on candles [0, i].
func (a *Annotator) Annotate(candles []model.Candle) []model.AnnotatedCandle {
	ha := HeikinAshi(candles)
	out := make([]model.AnnotatedCandle, len(candles))

	for i, c := range candles {
		color := model.White
		if c.Close < c.Open {
			color = model.Black
		}

		b := body(c)
		rng := c.High - c.Low

		out[i] = model.AnnotatedCandle{
			Time:        c.Time,
			Open:        c.Open,
			High:        c.High,
			Low:         c.Low,
			Close:       c.Close,
			Trend:       a.trend(candles[:i]),
			Color:       color,
			BodySize:    a.bodySize(candles[:i], b),
			HABodySize:  a.bodySize(ha[:i], body(ha[i])),
			ShadowRatio: a.shadowRatio(b, rng),
			IsDoji:      rng == 0 || b <= a.config.DojiFraction*rng,
		}
	}
	return out
}

// trend compares the last close before the candle with the WMA of the
// closes before it
func (a *Annotator) trend(prior []model.Candle) model.Trend {
	if len(prior) < a.config.TrendPeriod {
		return model.TrendNone
	}
	wma := CalculateWMA(prior, a.config.TrendPeriod)
	last := prior[len(prior)-1].Close
	switch {
	case last > wma:
		return model.TrendAbove
	case last < wma:
		return model.TrendBelow
	default:
		return model.TrendNone
	}
}

func (a *Annotator) bodySize(prior []model.Candle, b float64) model.BodySize {
	n := a.config.BaselinePeriod
	if len(prior) < n {
		return model.BodyNormal
	}
	var sum float64
	for _, c := range prior[len(prior)-n:] {
		sum += body(c)
	}
	baseline := sum / float64(n)
	switch {
	case b >= a.config.LongFactor*baseline && b > 0:
		return model.BodyLong
	case b <= a.config.ShortFactor*baseline:
		return model.BodyShort
	default:
		return model.BodyNormal
	}
}

func (a *Annotator) shadowRatio(b, rng float64) float64 {
	if b == 0 {
		return a.config.MaxShadowRatio
	}
	ratio := (rng - b) / b
	if ratio < 0 {
		return 0
	}
	if ratio > a.config.MaxShadowRatio {
		return a.config.MaxShadowRatio
	}
	return ratio
}
