package features

import (
	"candlescan/pkg/model"
)

// CalculateWMA calculates the linearly weighted moving average of closes
// over the last period candles (weights 1..period, newest heaviest)
func CalculateWMA(candles []model.Candle, period int) float64 {
	if period < 1 || len(candles) < period {
		return 0
	}

	var sum, weights float64
	start := len(candles) - period
	for i := start; i < len(candles); i++ {
		w := float64(i - start + 1)
		sum += candles[i].Close * w
		weights += w
	}
	return sum / weights
}

// HeikinAshi converts candles to Heikin-Ashi candles
func HeikinAshi(candles []model.Candle) []model.Candle {
	out := make([]model.Candle, len(candles))
	for i, c := range candles {
		ha := model.Candle{Time: c.Time, Volume: c.Volume}
		ha.Close = (c.Open + c.High + c.Low + c.Close) / 4
		if i == 0 {
			ha.Open = (c.Open + c.Close) / 2
		} else {
			ha.Open = (out[i-1].Open + out[i-1].Close) / 2
		}
		ha.High = max(c.High, ha.Open, ha.Close)
		ha.Low = min(c.Low, ha.Open, ha.Close)
		out[i] = ha
	}
	return out
}

func body(c model.Candle) float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}
