package pattern

import "candlescan/pkg/model"

const (
	DefaultMinShadowRatio = 2.0
	DefaultTopFraction    = 0.99
)

// HangingMan detects a short-bodied candle with a long lower shadow
// after an advance. The body must sit at the very top of the day's range.
type HangingMan struct {
	MinShadowRatio float64 // shadow_ratio must be >= this
	TopFraction    float64 // (close-low) or (open-low) >= TopFraction * (high-low)
	Options
}

// NewHangingMan creates a hanging man rule with default thresholds
func NewHangingMan(opts ...Option) *HangingMan {
	return &HangingMan{
		MinShadowRatio: DefaultMinShadowRatio,
		TopFraction:    DefaultTopFraction,
		Options:        newOptions(opts),
	}
}

func (r *HangingMan) Name() string      { return "hanging man" }
func (r *HangingMan) WindowLength() int { return 1 }

func (r *HangingMan) Evaluate(w Window) (Match, bool) {
	if len(w) != 1 {
		return none()
	}
	c := w[0]
	if c.Trend != model.TrendAbove {
		return none()
	}
	if bodyAtTop(c, r.Body, r.MinShadowRatio, r.TopFraction) {
		return bearish("-")
	}
	return none()
}

// Hammer is the hanging man shape appearing after a decline
type Hammer struct {
	MinShadowRatio float64
	TopFraction    float64
	Options
}

// NewHammer creates a hammer rule with default thresholds
func NewHammer(opts ...Option) *Hammer {
	return &Hammer{
		MinShadowRatio: DefaultMinShadowRatio,
		TopFraction:    DefaultTopFraction,
		Options:        newOptions(opts),
	}
}

func (r *Hammer) Name() string      { return "hammer" }
func (r *Hammer) WindowLength() int { return 1 }

func (r *Hammer) Evaluate(w Window) (Match, bool) {
	if len(w) != 1 {
		return none()
	}
	c := w[0]
	if c.Trend != model.TrendBelow {
		return none()
	}
	if bodyAtTop(c, r.Body, r.MinShadowRatio, r.TopFraction) {
		return bullish("+")
	}
	return none()
}

// ShootingStar is a short body at the bottom of the range after an advance
type ShootingStar struct {
	MinShadowRatio float64
	BottomFraction float64 // (high-open) or (high-close) >= BottomFraction * (high-low)
	Options
}

// NewShootingStar creates a shooting star rule with default thresholds
func NewShootingStar(opts ...Option) *ShootingStar {
	return &ShootingStar{
		MinShadowRatio: DefaultMinShadowRatio,
		BottomFraction: DefaultTopFraction,
		Options:        newOptions(opts),
	}
}

func (r *ShootingStar) Name() string      { return "shooting star" }
func (r *ShootingStar) WindowLength() int { return 1 }

func (r *ShootingStar) Evaluate(w Window) (Match, bool) {
	if len(w) != 1 {
		return none()
	}
	c := w[0]
	if c.Trend != model.TrendAbove {
		return none()
	}
	if r.Body.Of(c) != model.BodyShort || c.ShadowRatio < r.MinShadowRatio {
		return none()
	}
	limit := r.BottomFraction * c.Range()
	if c.High-c.Open >= limit || c.High-c.Close >= limit {
		return bearish("-")
	}
	return none()
}

// bodyAtTop is the shared hanging man / hammer shape test
func bodyAtTop(c model.AnnotatedCandle, body BodyField, minShadow, topFraction float64) bool {
	if body.Of(c) != model.BodyShort || c.ShadowRatio < minShadow {
		return false
	}
	limit := topFraction * c.Range()
	return c.Close-c.Low >= limit || c.Open-c.Low >= limit
}
