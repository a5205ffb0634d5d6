package pattern

import (
	"errors"
	"fmt"
	"strings"

	"candlescan/pkg/model"
)

// Kind is the directional bias of a match
type Kind string

const (
	Bullish Kind = "bullish"
	Bearish Kind = "bearish"
)

// Configuration errors. Absence of a match is never an error.
var (
	ErrInvalidWindow = errors.New("rule window length must be positive")
	ErrNilRegistry   = errors.New("nil rule registry")
	ErrDuplicateRule = errors.New("rule already registered")
	ErrUnknownRule   = errors.New("unknown rule")
	ErrRegistryInUse = errors.New("registry is locked by a running scan")
)

// Window is a chronological run of candles. Index 0 is the oldest,
// index len-1 is the candle the pattern completes on.
type Window []model.AnnotatedCandle

// Match is a single pattern occurrence in a series
type Match struct {
	Rule   string `json:"rule"`
	Kind   Kind   `json:"kind"`
	Style  string `json:"style"`
	Start  int    `json:"window_start"`
	Length int    `json:"window_length"`
}

// End returns the series index of the last candle in the window
func (m Match) End() int {
	return m.Start + m.Length - 1
}

// Rule is a pure predicate over a fixed-length window
type Rule interface {
	// Name returns the registry name of the rule
	Name() string

	// WindowLength returns the number of candles Evaluate expects
	WindowLength() int

	// Evaluate returns the kind and style of a match, or false.
	// Implementations must not retain or modify w.
	Evaluate(w Window) (Match, bool)
}

func bullish(style string) (Match, bool) {
	return Match{Kind: Bullish, Style: style}, true
}

func bearish(style string) (Match, bool) {
	return Match{Kind: Bearish, Style: style}, true
}

func none() (Match, bool) {
	return Match{}, false
}

// BodyField selects which body-size bucket a rule reads
type BodyField int

const (
	BodyStandard   BodyField = iota // AnnotatedCandle.BodySize
	BodyHeikinAshi                  // AnnotatedCandle.HABodySize
)

// Of returns the selected bucket of c
func (f BodyField) Of(c model.AnnotatedCandle) model.BodySize {
	if f == BodyHeikinAshi {
		return c.HABodySize
	}
	return c.BodySize
}

func (f BodyField) String() string {
	switch f {
	case BodyStandard:
		return "standard"
	case BodyHeikinAshi:
		return "heikin-ashi"
	default:
		return fmt.Sprintf("BodyField(%d)", int(f))
	}
}

// ParseBodyField parses "standard" (or "") and "heikin-ashi"
func ParseBodyField(s string) (BodyField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "body_size":
		return BodyStandard, nil
	case "heikin-ashi", "heikinashi", "ha", "ha_body_size":
		return BodyHeikinAshi, nil
	default:
		return BodyStandard, fmt.Errorf("unknown body field %q", s)
	}
}

// Options holds settings shared by every rule
type Options struct {
	Body BodyField
}

// Option configures a rule at construction
type Option func(*Options)

// WithBodyField makes the rule read the given body bucket
func WithBodyField(f BodyField) Option {
	return func(o *Options) {
		o.Body = f
	}
}

func newOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
