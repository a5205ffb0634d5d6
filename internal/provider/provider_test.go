package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlescan/pkg/model"
)

type stubProvider struct {
	name      string
	available bool
	candles   []model.Candle
	err       error
	calls     int
}

func (s *stubProvider) Name() string      { return s.name }
func (s *stubProvider) IsAvailable() bool { return s.available }
func (s *stubProvider) RateLimit() int    { return 10 }

func (s *stubProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return lastN(s.candles, days), nil
}

func series(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = model.Candle{
			Time:  time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Open:  float64(10 + i),
			High:  float64(11 + i),
			Low:   float64(9 + i),
			Close: float64(10 + i),
		}
	}
	return out
}

func TestYahooGetDailyCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"AAPL"},
			"timestamp":[1704067200,1704153600,1704240000],
			"indicators":{"quote":[{
				"open":[10,null,12],"high":[11,12,13],"low":[9,10,11],
				"close":[10.5,11.5,12.5],"volume":[100,200,null]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	p := NewYahooProvider().WithBaseURL(srv.URL)
	candles, err := p.GetDailyCandles(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, candles, 2, "bar with null open is skipped")
	assert.Equal(t, 10.0, candles[0].Open)
	assert.Equal(t, int64(100), candles[0].Volume)
	assert.Equal(t, 12.5, candles[1].Close)
	assert.Equal(t, int64(0), candles[1].Volume)

	candles, err = p.GetDailyCandles(context.Background(), "AAPL", 1)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 12.0, candles[0].Open)
}

func TestYahooErrors(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	p := NewYahooProvider().WithBaseURL(srv.URL)
	_, err := p.GetDailyCandles(context.Background(), "NOPE", 10)
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Retryable)
	assert.Equal(t, "yahoo", pe.Provider)

	status = http.StatusTooManyRequests
	_, err = p.GetDailyCandles(context.Background(), "NOPE", 10)
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Retryable)
}

func TestAlphaVantageGetDailyCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_DAILY", r.URL.Query().Get("function"))
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"Meta Data":{},"Time Series (Daily)":{
			"2024-01-03":{"1. open":"12","2. high":"13","3. low":"11","4. close":"12.5","5. volume":"300"},
			"2024-01-02":{"1. open":"11","2. high":"12","3. low":"10","4. close":"11.5","5. volume":"200"},
			"bad-date":{"1. open":"1","2. high":"1","3. low":"1","4. close":"1"}}}`))
	}))
	defer srv.Close()

	p := NewAlphaVantageProvider("key", 600).WithBaseURL(srv.URL)
	assert.True(t, p.IsAvailable())
	assert.False(t, NewAlphaVantageProvider("", 5).IsAvailable())

	candles, err := p.GetDailyCandles(context.Background(), "MSFT", 10)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.True(t, candles[0].Time.Before(candles[1].Time))
	assert.Equal(t, 11.0, candles[0].Open)
	assert.Equal(t, int64(300), candles[1].Volume)
}

func TestAlphaVantageNote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note":"Thank you for using Alpha Vantage!"}`))
	}))
	defer srv.Close()

	_, err := NewAlphaVantageProvider("key", 600).WithBaseURL(srv.URL).
		GetDailyCandles(context.Background(), "MSFT", 10)
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Retryable)
}

func TestReadCSV(t *testing.T) {
	data := `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-03,12,13,11,12.5,12.5,300
2024-01-02,11,12,10,11.5,11.5,200
2024-01-04,null,null,null,null,null,null
`
	candles, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 11.0, candles[0].Open)
	assert.Equal(t, int64(300), candles[1].Volume)

	_, err = ReadCSV(strings.NewReader("Date,Open,High\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("Date,Open,High,Low,Close\nyesterday,1,1,1,1\n"))
	assert.Error(t, err)
}

func TestCSVProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL.csv"),
		[]byte("Date,Open,High,Low,Close\n2024-01-02,1,2,0.5,1.5\n2024-01-03,1.5,2,1,1.8\n"), 0o644))

	p := NewCSVProvider(dir)
	candles, err := p.GetDailyCandles(context.Background(), "aapl", 1)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 1.8, candles[0].Close)

	_, err = p.GetDailyCandles(context.Background(), "MSFT", 1)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestFallbackProvider(t *testing.T) {
	failing := &stubProvider{name: "a", available: true, err: errors.New("boom")}
	offline := &stubProvider{name: "b", available: false, candles: series(3)}
	working := &stubProvider{name: "c", available: true, candles: series(5)}

	f := NewFallbackProvider(zerolog.Nop(), failing, offline, working)
	assert.Len(t, f.Providers(), 2)
	assert.True(t, f.IsAvailable())

	candles, err := f.GetDailyCandles(context.Background(), "X", 3)
	require.NoError(t, err)
	assert.Len(t, candles, 3)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 0, offline.calls)

	empty := NewFallbackProvider(zerolog.Nop())
	assert.False(t, empty.IsAvailable())
	_, err = empty.GetDailyCandles(context.Background(), "X", 3)
	assert.Error(t, err)
}

func TestCachingProvider(t *testing.T) {
	inner := &stubProvider{name: "stub", available: true, candles: series(30)}
	p := NewCachingProvider(inner, 20)

	candles, err := p.GetDailyCandles(context.Background(), "X", 5)
	require.NoError(t, err)
	assert.Len(t, candles, 5)

	candles, err = p.GetDailyCandles(context.Background(), "X", 15)
	require.NoError(t, err)
	assert.Len(t, candles, 15)
	assert.Equal(t, 1, inner.calls)

	p.Invalidate()
	_, err = p.GetDailyCandles(context.Background(), "X", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
