package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"candlescan/internal/ratelimit"
	"candlescan/pkg/model"
)

// Provider defines the interface for daily market data providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// GetDailyCandles fetches up to days daily OHLCV candles, oldest first
	GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error)

	// IsAvailable checks if the provider is available (has valid API key)
	IsAvailable() bool

	// RateLimit returns the rate limit per minute
	RateLimit() int
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrNoData is returned when a provider has no candles for a symbol
var ErrNoData = errors.New("no data available")

// FallbackProvider tries multiple providers in order
type FallbackProvider struct {
	providers []Provider
	logger    zerolog.Logger
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(logger zerolog.Logger, providers ...Provider) *FallbackProvider {
	// Filter to only available providers
	available := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available, logger: logger}
}

// Name returns the combined provider name
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// GetDailyCandles tries each provider in order
func (f *FallbackProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	lastErr := fmt.Errorf("no providers configured")
	for _, p := range f.providers {
		data, err := p.GetDailyCandles(ctx, symbol, days)
		if err == nil {
			return data, nil
		}
		f.logger.Debug().Err(err).Str("provider", p.Name()).Str("symbol", symbol).Msg("provider failed, trying next")
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// IsAvailable returns true if any provider is available
func (f *FallbackProvider) IsAvailable() bool {
	return len(f.providers) > 0
}

// RateLimit returns the highest rate limit among providers
func (f *FallbackProvider) RateLimit() int {
	maxRate := 0
	for _, p := range f.providers {
		if p.RateLimit() > maxRate {
			maxRate = p.RateLimit()
		}
	}
	return maxRate
}

// Providers returns the list of underlying providers
func (f *FallbackProvider) Providers() []Provider {
	return f.providers
}

// getJSON performs a rate limited GET and decodes the JSON body into out
func getJSON(ctx context.Context, client *http.Client, limiter *ratelimit.Limiter, name, url string, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := client.Do(req)
	if err != nil {
		return &ProviderError{Provider: name, Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		limiter.SignalRateLimited()
		return &ProviderError{Provider: name, Err: fmt.Errorf("rate limited"), Retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Provider: name, Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}

	limiter.ResetBackoff()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// lastN keeps the most recent n candles of an ascending series
func lastN(candles []model.Candle, n int) []model.Candle {
	if n > 0 && len(candles) > n {
		return candles[len(candles)-n:]
	}
	return candles
}
