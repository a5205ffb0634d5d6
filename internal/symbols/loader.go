package symbols

import (
	"fmt"
	"strings"

	"candlescan/pkg/model"
)

// Loader resolves symbol lists and universes into stocks
type Loader struct {
	names map[string]model.Stock
}

// NewLoader creates a new symbol loader
func NewLoader() *Loader {
	names := make(map[string]model.Stock, len(knownStocks))
	for _, s := range knownStocks {
		names[s.symbol] = model.Stock{Symbol: s.symbol, Name: s.name, Exchange: s.exchange}
	}
	return &Loader{names: names}
}

// LoadSymbols loads specific symbols, accepting a comma separated list
// or individual entries. Invalid tickers are rejected.
func (l *Loader) LoadSymbols(symbols []string) ([]model.Stock, error) {
	var stocks []model.Stock
	seen := make(map[string]bool)
	for _, entry := range symbols {
		for _, sym := range strings.Split(entry, ",") {
			sym = strings.ToUpper(strings.TrimSpace(sym))
			if sym == "" || seen[sym] {
				continue
			}
			if !isValidSymbol(sym) {
				return nil, fmt.Errorf("invalid symbol %q", sym)
			}
			seen[sym] = true
			stocks = append(stocks, l.stock(sym))
		}
	}
	return stocks, nil
}

// LoadUniverse loads all stocks of a predefined universe
func (l *Loader) LoadUniverse(u Universe) ([]model.Stock, error) {
	syms := GetUniverse(u)
	if syms == nil {
		return nil, fmt.Errorf("unknown universe: %s (available: %v)", u, Universes())
	}
	stocks := make([]model.Stock, len(syms))
	for i, sym := range syms {
		stocks[i] = l.stock(sym)
	}
	return stocks, nil
}

func (l *Loader) stock(sym string) model.Stock {
	if s, ok := l.names[sym]; ok {
		return s
	}
	return model.Stock{Symbol: sym, Name: sym, Exchange: "US"}
}

// isValidSymbol checks if a symbol is a standard ticker (class shares like BRK.B allowed)
func isValidSymbol(symbol string) bool {
	if len(symbol) == 0 || len(symbol) > 6 {
		return false
	}
	for _, c := range symbol {
		if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '.' || c == '-') {
			return false
		}
	}
	return true
}

// knownStocks supplies display names and exchanges for popular symbols
var knownStocks = []struct {
	symbol   string
	name     string
	exchange string
}{
	// Tech Giants
	{"AAPL", "Apple Inc.", "NASDAQ"},
	{"MSFT", "Microsoft Corporation", "NASDAQ"},
	{"GOOGL", "Alphabet Inc.", "NASDAQ"},
	{"AMZN", "Amazon.com Inc.", "NASDAQ"},
	{"META", "Meta Platforms Inc.", "NASDAQ"},
	{"NVDA", "NVIDIA Corporation", "NASDAQ"},
	{"TSLA", "Tesla Inc.", "NASDAQ"},
	{"AMD", "Advanced Micro Devices", "NASDAQ"},
	{"INTC", "Intel Corporation", "NASDAQ"},
	{"CRM", "Salesforce Inc.", "NYSE"},
	{"ORCL", "Oracle Corporation", "NYSE"},
	{"ADBE", "Adobe Inc.", "NASDAQ"},
	{"CSCO", "Cisco Systems Inc.", "NASDAQ"},
	{"AVGO", "Broadcom Inc.", "NASDAQ"},
	{"QCOM", "Qualcomm Inc.", "NASDAQ"},

	// Finance
	{"JPM", "JPMorgan Chase & Co.", "NYSE"},
	{"BAC", "Bank of America Corp", "NYSE"},
	{"WFC", "Wells Fargo & Company", "NYSE"},
	{"GS", "Goldman Sachs Group", "NYSE"},
	{"MS", "Morgan Stanley", "NYSE"},
	{"C", "Citigroup Inc.", "NYSE"},
	{"BLK", "BlackRock Inc.", "NYSE"},
	{"SCHW", "Charles Schwab Corp", "NYSE"},
	{"AXP", "American Express Co.", "NYSE"},
	{"V", "Visa Inc.", "NYSE"},
	{"MA", "Mastercard Inc.", "NYSE"},
	{"PYPL", "PayPal Holdings Inc.", "NASDAQ"},

	// Healthcare
	{"JNJ", "Johnson & Johnson", "NYSE"},
	{"UNH", "UnitedHealth Group", "NYSE"},
	{"PFE", "Pfizer Inc.", "NYSE"},
	{"ABBV", "AbbVie Inc.", "NYSE"},
	{"MRK", "Merck & Co. Inc.", "NYSE"},
	{"LLY", "Eli Lilly and Company", "NYSE"},
	{"TMO", "Thermo Fisher Scientific", "NYSE"},
	{"ABT", "Abbott Laboratories", "NYSE"},
	{"BMY", "Bristol-Myers Squibb", "NYSE"},
	{"AMGN", "Amgen Inc.", "NASDAQ"},

	// Consumer
	{"WMT", "Walmart Inc.", "NYSE"},
	{"HD", "Home Depot Inc.", "NYSE"},
	{"PG", "Procter & Gamble Co.", "NYSE"},
	{"KO", "Coca-Cola Company", "NYSE"},
	{"PEP", "PepsiCo Inc.", "NASDAQ"},
	{"COST", "Costco Wholesale Corp", "NASDAQ"},
	{"NKE", "Nike Inc.", "NYSE"},
	{"MCD", "McDonald's Corporation", "NYSE"},
	{"SBUX", "Starbucks Corporation", "NASDAQ"},
	{"TGT", "Target Corporation", "NYSE"},

	// Industrial
	{"CAT", "Caterpillar Inc.", "NYSE"},
	{"BA", "Boeing Company", "NYSE"},
	{"HON", "Honeywell International", "NASDAQ"},
	{"UPS", "United Parcel Service", "NYSE"},
	{"GE", "General Electric Co.", "NYSE"},
	{"MMM", "3M Company", "NYSE"},
	{"LMT", "Lockheed Martin Corp", "NYSE"},
	{"RTX", "Raytheon Technologies", "NYSE"},

	// Energy
	{"XOM", "Exxon Mobil Corporation", "NYSE"},
	{"CVX", "Chevron Corporation", "NYSE"},
	{"COP", "ConocoPhillips", "NYSE"},
	{"SLB", "Schlumberger Limited", "NYSE"},
	{"EOG", "EOG Resources Inc.", "NYSE"},

	// Communication
	{"DIS", "Walt Disney Company", "NYSE"},
	{"NFLX", "Netflix Inc.", "NASDAQ"},
	{"CMCSA", "Comcast Corporation", "NASDAQ"},
	{"VZ", "Verizon Communications", "NYSE"},
	{"T", "AT&T Inc.", "NYSE"},
	{"TMUS", "T-Mobile US Inc.", "NASDAQ"},

	// Real Estate & Utilities
	{"AMT", "American Tower Corp", "NYSE"},
	{"PLD", "Prologis Inc.", "NYSE"},
	{"NEE", "NextEra Energy Inc.", "NYSE"},
	{"DUK", "Duke Energy Corp", "NYSE"},
	{"SO", "Southern Company", "NYSE"},
}
