package pattern

import "candlescan/pkg/model"

// Engulfing is a reversal where the second body covers the first body
// in the opposite color.
type Engulfing struct {
	kind Kind
}

// NewBullishEngulfing returns the engulfing rule for downtrends. Body options are ignored.
func NewBullishEngulfing(_ ...Option) *Engulfing { return &Engulfing{kind: Bullish} }

// NewBearishEngulfing returns the engulfing rule for uptrends. Body options are ignored.
func NewBearishEngulfing(_ ...Option) *Engulfing { return &Engulfing{kind: Bearish} }

func (r *Engulfing) Name() string      { return string(r.kind) + " engulfing" }
func (r *Engulfing) WindowLength() int { return 2 }

func (r *Engulfing) Evaluate(w Window) (Match, bool) {
	if len(w) != 2 {
		return none()
	}
	first, second := w[0], w[1]
	if r.kind == Bullish {
		if first.Trend == model.TrendBelow &&
			first.Color == model.Black && second.Color == model.White &&
			second.Open < first.Close && second.Close > first.Open {
			return bullish("+")
		}
		return none()
	}
	if first.Trend == model.TrendAbove &&
		first.Color == model.White && second.Color == model.Black &&
		second.Open > first.Close && second.Close < first.Open {
		return bearish("-")
	}
	return none()
}

// Harami is a long candle followed by a smaller opposite-colored body
// contained within it.
type Harami struct {
	kind Kind
	Options
}

// NewBullishHarami returns the harami rule for downtrends
func NewBullishHarami(opts ...Option) *Harami {
	return &Harami{kind: Bullish, Options: newOptions(opts)}
}

// NewBearishHarami returns the harami rule for uptrends
func NewBearishHarami(opts ...Option) *Harami {
	return &Harami{kind: Bearish, Options: newOptions(opts)}
}

func (r *Harami) Name() string      { return string(r.kind) + " harami" }
func (r *Harami) WindowLength() int { return 2 }

func (r *Harami) Evaluate(w Window) (Match, bool) {
	if len(w) != 2 {
		return none()
	}
	first, second := w[0], w[1]
	if r.Body.Of(first) != model.BodyLong || r.Body.Of(second) == model.BodyLong {
		return none()
	}
	if r.kind == Bullish {
		if first.Trend == model.TrendBelow &&
			first.Color == model.Black && second.Color == model.White &&
			second.Open > first.Close && second.Close < first.Open {
			return bullish("+")
		}
		return none()
	}
	if first.Trend == model.TrendAbove &&
		first.Color == model.White && second.Color == model.Black &&
		second.Open < first.Close && second.Close > first.Open {
		return bearish("-")
	}
	return none()
}
