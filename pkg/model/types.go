package model

import "time"

// Candle represents a single daily candlestick (OHLCV data)
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Stock represents basic stock information
type Stock struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"` // NYSE, NASDAQ
}

// Trend is the market regime leading into a candle
type Trend string

const (
	TrendNone  Trend = "none"
	TrendAbove Trend = "above"
	TrendBelow Trend = "below"
)

// Color of the real body
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// BodySize is the relative size bucket of a real body
type BodySize string

const (
	BodyNormal BodySize = "normal"
	BodyShort  BodySize = "short"
	BodyLong   BodySize = "long"
)

// AnnotatedCandle is a candle with its precomputed features.
// Values are read-only once produced by the feature pipeline.
type AnnotatedCandle struct {
	Time        time.Time `json:"time"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Trend       Trend     `json:"trend"`
	Color       Color     `json:"color"`
	BodySize    BodySize  `json:"body_size"`
	HABodySize  BodySize  `json:"ha_body_size"` // Heikin-Ashi body bucket
	ShadowRatio float64   `json:"shadow_ratio"`
	IsDoji      bool      `json:"is_doji"`
}

// Range returns high - low
func (c AnnotatedCandle) Range() float64 {
	return c.High - c.Low
}

// BodyTop returns the upper edge of the real body
func (c AnnotatedCandle) BodyTop() float64 {
	if c.Open > c.Close {
		return c.Open
	}
	return c.Close
}

// BodyBottom returns the lower edge of the real body
func (c AnnotatedCandle) BodyBottom() float64 {
	if c.Open < c.Close {
		return c.Open
	}
	return c.Close
}

// MatchRecord is a pattern match attached to the candle it completes on
type MatchRecord struct {
	Rule        string    `json:"rule"`
	Kind        string    `json:"kind"`
	Style       string    `json:"style"`
	WindowStart int       `json:"window_start"`
	WindowLen   int       `json:"window_length"`
	Date        time.Time `json:"date"` // time of the last candle in the window
	Close       float64   `json:"close"`
}

// SymbolResult is the scan outcome for a single stock
type SymbolResult struct {
	Stock   Stock         `json:"stock"`
	Bars    int           `json:"bars"`
	Matches []MatchRecord `json:"matches"`
	Error   string        `json:"error,omitempty"`
}

// ScanResult represents the final scan output
type ScanResult struct {
	RunID         string         `json:"run_id,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	Rules         []string       `json:"rules"`
	TotalScanned  int            `json:"total_scanned"`
	MatchingCount int            `json:"matching_count"`
	Results       []SymbolResult `json:"results"`
	ScanTime      time.Duration  `json:"scan_time"`
}
