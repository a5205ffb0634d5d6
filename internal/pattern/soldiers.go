package pattern

import "candlescan/pkg/model"

// ThreeSoldiers covers both three white soldiers (bullish) and
// three black crows (bearish): three long same-colored bodies, each
// opening inside the previous body and closing further in the same direction.
type ThreeSoldiers struct {
	kind Kind
	Options
}

// NewThreeWhiteSoldiers returns the bullish three-candle advance rule
func NewThreeWhiteSoldiers(opts ...Option) *ThreeSoldiers {
	return &ThreeSoldiers{kind: Bullish, Options: newOptions(opts)}
}

// NewThreeBlackCrows returns the bearish three-candle decline rule
func NewThreeBlackCrows(opts ...Option) *ThreeSoldiers {
	return &ThreeSoldiers{kind: Bearish, Options: newOptions(opts)}
}

func (r *ThreeSoldiers) Name() string {
	if r.kind == Bullish {
		return "three white soldiers"
	}
	return "three black crows"
}

func (r *ThreeSoldiers) WindowLength() int { return 3 }

func (r *ThreeSoldiers) Evaluate(w Window) (Match, bool) {
	if len(w) != 3 {
		return none()
	}
	trend, color := model.TrendBelow, model.White
	if r.kind == Bearish {
		trend, color = model.TrendAbove, model.Black
	}
	if w[0].Trend != trend {
		return none()
	}
	for _, c := range w {
		if c.Color != color || r.Body.Of(c) != model.BodyLong {
			return none()
		}
	}
	for i := 1; i < 3; i++ {
		prev, cur := w[i-1], w[i]
		if cur.Open <= prev.BodyBottom() || cur.Open >= prev.BodyTop() {
			return none()
		}
		if r.kind == Bullish && cur.Close <= prev.Close {
			return none()
		}
		if r.kind == Bearish && cur.Close >= prev.Close {
			return none()
		}
	}
	if r.kind == Bullish {
		return bullish("+")
	}
	return bearish("-")
}
