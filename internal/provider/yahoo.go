package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"candlescan/internal/ratelimit"
	"candlescan/pkg/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooProvider implements the Provider interface for Yahoo Finance (unofficial API)
type YahooProvider struct {
	baseURL   string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
}

// NewYahooProvider creates a new Yahoo Finance provider
func NewYahooProvider() *YahooProvider {
	return &YahooProvider{
		baseURL:   yahooBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("yahoo", 30), // Conservative rate limit
		rateLimit: 30,
	}
}

// WithBaseURL points the provider at another chart endpoint
func (p *YahooProvider) WithBaseURL(u string) *YahooProvider {
	p.baseURL = u
	return p
}

// Name returns the provider name
func (p *YahooProvider) Name() string {
	return "yahoo"
}

// IsAvailable always returns true (no API key needed)
func (p *YahooProvider) IsAvailable() bool {
	return true
}

// RateLimit returns the rate limit per minute
func (p *YahooProvider) RateLimit() int {
	return p.rateLimit
}

// yahooResponse represents the Yahoo Finance API response.
// Quote values are pointers because Yahoo reports missing bars as null.
type yahooResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyCandles fetches daily candles, oldest first
func (p *YahooProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -days*2) // Buffer for weekends and holidays

	u := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&includePrePost=false",
		p.baseURL, url.PathEscape(symbol), from.Unix(), now.Unix())

	var data yahooResponse
	if err := getJSON(ctx, p.client, p.limiter, p.Name(), u, &data); err != nil {
		return nil, err
	}

	if data.Chart.Error != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.Chart.Error.Description), Retryable: false}
	}

	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Timestamp) == 0 ||
		len(data.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	result := data.Chart.Result[0]
	quotes := result.Indicators.Quote[0]

	candles := make([]model.Candle, 0, len(result.Timestamp))
	for i := range result.Timestamp {
		// Skip bars with any missing price
		if i >= len(quotes.Open) || i >= len(quotes.High) || i >= len(quotes.Low) || i >= len(quotes.Close) {
			continue
		}
		if quotes.Open[i] == nil || quotes.High[i] == nil || quotes.Low[i] == nil || quotes.Close[i] == nil {
			continue
		}

		var volume int64
		if i < len(quotes.Volume) && quotes.Volume[i] != nil {
			volume = *quotes.Volume[i]
		}

		candles = append(candles, model.Candle{
			Time:   time.Unix(result.Timestamp[i], 0).UTC(),
			Open:   *quotes.Open[i],
			High:   *quotes.High[i],
			Low:    *quotes.Low[i],
			Close:  *quotes.Close[i],
			Volume: volume,
		})
	}

	if len(candles) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}

	return lastN(candles, days), nil
}
