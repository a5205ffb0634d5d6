package pattern

import "candlescan/pkg/model"

// HomingPigeon is a long black candle in a decline followed by a smaller
// black candle whose body lies inside the first one.
type HomingPigeon struct {
	Options
}

// NewHomingPigeon creates a homing pigeon rule
func NewHomingPigeon(opts ...Option) *HomingPigeon {
	return &HomingPigeon{Options: newOptions(opts)}
}

func (r *HomingPigeon) Name() string      { return "homing pigeon" }
func (r *HomingPigeon) WindowLength() int { return 2 }

func (r *HomingPigeon) Evaluate(w Window) (Match, bool) {
	if len(w) != 2 {
		return none()
	}
	first, second := w[0], w[1]
	if first.Trend != model.TrendBelow {
		return none()
	}
	if r.Body.Of(first) != model.BodyLong || first.Color != model.Black {
		return none()
	}
	if second.Color != model.Black || r.Body.Of(second) == model.BodyLong {
		return none()
	}
	if second.Open < first.Open && second.Close > first.Close {
		return bullish("+")
	}
	return none()
}
