package pattern

import "candlescan/pkg/model"

// DefaultPenetration is how far into the first body the second close must reach
const DefaultPenetration = 0.5

// PiercingLine opens below the prior low and closes above the middle of
// a long black body.
type PiercingLine struct {
	Penetration float64
	Options
}

// NewPiercingLine creates a piercing line rule
func NewPiercingLine(opts ...Option) *PiercingLine {
	return &PiercingLine{Penetration: DefaultPenetration, Options: newOptions(opts)}
}

func (r *PiercingLine) Name() string      { return "piercing line" }
func (r *PiercingLine) WindowLength() int { return 2 }

func (r *PiercingLine) Evaluate(w Window) (Match, bool) {
	if len(w) != 2 {
		return none()
	}
	first, second := w[0], w[1]
	if first.Trend != model.TrendBelow || first.Color != model.Black || r.Body.Of(first) != model.BodyLong {
		return none()
	}
	if second.Color != model.White || second.Open >= first.Low {
		return none()
	}
	level := first.Close + r.Penetration*(first.Open-first.Close)
	if second.Close > level && second.Close < first.Open {
		return bullish("+")
	}
	return none()
}

// DarkCloudCover opens above the prior high and closes below the middle
// of a long white body.
type DarkCloudCover struct {
	Penetration float64
	Options
}

// NewDarkCloudCover creates a dark cloud cover rule
func NewDarkCloudCover(opts ...Option) *DarkCloudCover {
	return &DarkCloudCover{Penetration: DefaultPenetration, Options: newOptions(opts)}
}

func (r *DarkCloudCover) Name() string      { return "dark cloud cover" }
func (r *DarkCloudCover) WindowLength() int { return 2 }

func (r *DarkCloudCover) Evaluate(w Window) (Match, bool) {
	if len(w) != 2 {
		return none()
	}
	first, second := w[0], w[1]
	if first.Trend != model.TrendAbove || first.Color != model.White || r.Body.Of(first) != model.BodyLong {
		return none()
	}
	if second.Color != model.Black || second.Open <= first.High {
		return none()
	}
	level := first.Close - r.Penetration*(first.Close-first.Open)
	if second.Close < level && second.Close > first.Open {
		return bearish("-")
	}
	return none()
}
