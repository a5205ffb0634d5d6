package provider

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"candlescan/pkg/model"
)

// CSVProvider reads daily candles from <dir>/<SYMBOL>.csv files.
// Files use the Yahoo export header: Date,Open,High,Low,Close[,Adj Close],Volume.
type CSVProvider struct {
	dir string
}

// NewCSVProvider creates a provider backed by a directory of CSV files
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

func (p *CSVProvider) Name() string      { return "csv" }
func (p *CSVProvider) IsAvailable() bool { return p.dir != "" }
func (p *CSVProvider) RateLimit() int    { return 0 }

// GetDailyCandles reads the symbol's file and returns the last days candles
func (p *CSVProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	candles, err := ReadCSVFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ProviderError{Provider: p.Name(), Err: ErrNoData, Retryable: false}
		}
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: false}
	}
	return lastN(candles, days), nil
}

// ReadCSVFile reads candles from a CSV file
func ReadCSVFile(path string) ([]model.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses candles from CSV with a header row. Rows are returned
// sorted by date; rows with unparsable prices (e.g. "null") are skipped.
func ReadCSV(r io.Reader) ([]model.Candle, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing %q column", name)
		}
	}

	var candles []model.Candle
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		t, err := parseDate(record[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var prices [4]float64
		valid := true
		for i, name := range []string{"open", "high", "low", "close"} {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[cols[name]]), 64)
			if err != nil {
				valid = false
				break
			}
			prices[i] = v
		}
		if !valid {
			continue
		}

		var volume int64
		if i, ok := cols["volume"]; ok && i < len(record) {
			volume, _ = strconv.ParseInt(strings.TrimSpace(record[i]), 10, 64)
		}

		candles = append(candles, model.Candle{
			Time:   t,
			Open:   prices[0],
			High:   prices[1],
			Low:    prices[2],
			Close:  prices[3],
			Volume: volume,
		})
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})
	return candles, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006/01/02", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
