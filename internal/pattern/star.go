package pattern

import "candlescan/pkg/model"

// MorningStar: long black, a short body gapping below it, then a white
// candle closing past the first body's midpoint.
type MorningStar struct {
	Penetration float64
	Options
}

// NewMorningStar creates a morning star rule
func NewMorningStar(opts ...Option) *MorningStar {
	return &MorningStar{Penetration: DefaultPenetration, Options: newOptions(opts)}
}

func (r *MorningStar) Name() string      { return "morning star" }
func (r *MorningStar) WindowLength() int { return 3 }

func (r *MorningStar) Evaluate(w Window) (Match, bool) {
	if len(w) != 3 {
		return none()
	}
	first, star, last := w[0], w[1], w[2]
	if first.Trend != model.TrendBelow || first.Color != model.Black || r.Body.Of(first) != model.BodyLong {
		return none()
	}
	if r.Body.Of(star) != model.BodyShort || star.BodyTop() >= first.Close {
		return none()
	}
	level := first.Close + r.Penetration*(first.Open-first.Close)
	if last.Color == model.White && last.Close > level {
		return bullish("+")
	}
	return none()
}

// EveningStar mirrors MorningStar at the top of an advance
type EveningStar struct {
	Penetration float64
	Options
}

// NewEveningStar creates an evening star rule
func NewEveningStar(opts ...Option) *EveningStar {
	return &EveningStar{Penetration: DefaultPenetration, Options: newOptions(opts)}
}

func (r *EveningStar) Name() string      { return "evening star" }
func (r *EveningStar) WindowLength() int { return 3 }

func (r *EveningStar) Evaluate(w Window) (Match, bool) {
	if len(w) != 3 {
		return none()
	}
	first, star, last := w[0], w[1], w[2]
	if first.Trend != model.TrendAbove || first.Color != model.White || r.Body.Of(first) != model.BodyLong {
		return none()
	}
	if r.Body.Of(star) != model.BodyShort || star.BodyBottom() <= first.Close {
		return none()
	}
	level := first.Close - r.Penetration*(first.Close-first.Open)
	if last.Color == model.Black && last.Close < level {
		return bearish("-")
	}
	return none()
}
