package pattern

import "candlescan/pkg/model"

// AdvanceBlock is three rising white candles, each opening inside the
// previous body, where the last one has a short body. It marks a weakening
// advance.
type AdvanceBlock struct {
	Options
}

// NewAdvanceBlock creates an advance block rule
func NewAdvanceBlock(opts ...Option) *AdvanceBlock {
	return &AdvanceBlock{Options: newOptions(opts)}
}

func (r *AdvanceBlock) Name() string      { return "advance block" }
func (r *AdvanceBlock) WindowLength() int { return 3 }

func (r *AdvanceBlock) Evaluate(w Window) (Match, bool) {
	if len(w) != 3 || w[0].Trend != model.TrendAbove {
		return none()
	}
	for _, c := range w {
		if c.Color != model.White {
			return none()
		}
	}
	for i := 1; i < 3; i++ {
		prev, cur := w[i-1], w[i]
		if !(prev.Open < cur.Open && cur.Open < prev.Close) {
			return none()
		}
		if cur.Close <= prev.Close {
			return none()
		}
	}
	if r.Body.Of(w[2]) != model.BodyShort {
		return none()
	}
	return bearish("-")
}
