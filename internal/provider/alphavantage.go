package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"candlescan/internal/ratelimit"
	"candlescan/pkg/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageProvider implements the Provider interface for Alpha Vantage API
type AlphaVantageProvider struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
}

// NewAlphaVantageProvider creates a new Alpha Vantage provider
func NewAlphaVantageProvider(apiKey string, rateLimitPerMin int) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		apiKey:    apiKey,
		baseURL:   alphaVantageBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("alphavantage", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
	}
}

// WithBaseURL points the provider at another query endpoint
func (p *AlphaVantageProvider) WithBaseURL(u string) *AlphaVantageProvider {
	p.baseURL = u
	return p
}

// Name returns the provider name
func (p *AlphaVantageProvider) Name() string {
	return "alphavantage"
}

// IsAvailable checks if the provider has an API key
func (p *AlphaVantageProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit per minute
func (p *AlphaVantageProvider) RateLimit() int {
	return p.rateLimit
}

// alphaVantageResponse represents the TIME_SERIES_DAILY response
type alphaVantageResponse struct {
	MetaData   map[string]string            `json:"Meta Data"`
	TimeSeries map[string]map[string]string `json:"Time Series (Daily)"`
	Note       string                       `json:"Note"`        // Rate limit message
	Info       string                       `json:"Information"` // Premium / quota message
	Error      string                       `json:"Error Message"`
}

// GetDailyCandles fetches daily candles, oldest first
func (p *AlphaVantageProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	outputSize := "compact" // last 100 bars
	if days > 100 {
		outputSize = "full"
	}

	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", symbol)
	q.Set("outputsize", outputSize)
	q.Set("apikey", p.apiKey)

	var data alphaVantageResponse
	if err := getJSON(ctx, p.client, p.limiter, p.Name(), p.baseURL+"?"+q.Encode(), &data); err != nil {
		return nil, err
	}

	if data.Error != "" {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.Error), Retryable: false}
	}
	if data.Note != "" || data.Info != "" {
		p.limiter.SignalRateLimited()
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true}
	}

	candles := parseDailySeries(data.TimeSeries)
	if len(candles) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
	}
	return lastN(candles, days), nil
}

// parseDailySeries converts the API time series to candles sorted by date
func parseDailySeries(timeSeries map[string]map[string]string) []model.Candle {
	candles := make([]model.Candle, 0, len(timeSeries))
	for dateStr, values := range timeSeries {
		t, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		open, err1 := strconv.ParseFloat(values["1. open"], 64)
		high, err2 := strconv.ParseFloat(values["2. high"], 64)
		low, err3 := strconv.ParseFloat(values["3. low"], 64)
		closePrice, err4 := strconv.ParseFloat(values["4. close"], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		volume, _ := strconv.ParseInt(values["5. volume"], 10, 64)

		candles = append(candles, model.Candle{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})
	return candles
}
