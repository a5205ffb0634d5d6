package pattern

import "candlescan/pkg/model"

// TriStar is three consecutive doji where the middle one closes beyond
// both neighbours in the direction of the prior trend.
type TriStar struct{}

// NewTriStar creates a tri star rule. It reads no body bucket, options are ignored.
func NewTriStar(_ ...Option) *TriStar {
	return &TriStar{}
}

func (r *TriStar) Name() string      { return "tri star" }
func (r *TriStar) WindowLength() int { return 3 }

func (r *TriStar) Evaluate(w Window) (Match, bool) {
	if len(w) != 3 {
		return none()
	}
	for _, c := range w {
		if !c.IsDoji {
			return none()
		}
	}
	mid := w[1].Close
	switch w[0].Trend {
	case model.TrendBelow:
		if mid < w[0].Close && mid < w[2].Close {
			return bullish("tri star +")
		}
	case model.TrendAbove:
		if mid > w[0].Close && mid > w[2].Close {
			return bearish("tri star -")
		}
	}
	return none()
}
