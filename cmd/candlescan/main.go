package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"candlescan/internal/backtest"
	"candlescan/internal/config"
	"candlescan/internal/features"
	"candlescan/internal/logger"
	"candlescan/internal/pattern"
	"candlescan/internal/provider"
	"candlescan/internal/report"
	"candlescan/internal/scanner"
	"candlescan/internal/store"
	"candlescan/internal/symbols"
	"candlescan/internal/web"
	"candlescan/pkg/model"
)

var (
	cfgFile  string
	logLevel string
	pretty   bool

	symbolList string
	universe   string
	csvPath    string
	ruleList   string
	bodyField  string
	format     string
	workers    int
	recentBars int
	save       bool

	port int

	historyLimit int
	historyRun   string

	horizon  int
	lookback int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "candlescan",
		Short: "Daily candlestick pattern scanner",
		Long: `Candlescan classifies daily candlestick series against a library of
Japanese candlestick patterns (hanging man, homing pigeon, tri star, advance block, ...).

Examples:
  candlescan scan --symbols AAPL,MSFT,GOOGL
  candlescan scan --universe nasdaq100 --rules "tri star,hammer" --save
  candlescan scan --csv data/AAPL.csv --body-field heikin-ashi --format json
  candlescan rules
  candlescan serve --port 8080`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human readable logs")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan symbols for candlestick patterns",
		RunE:  runScan,
	}
	scanCmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated list of symbols to scan")
	scanCmd.Flags().StringVar(&universe, "universe", "test", "predefined universe: test, nasdaq100, sp500")
	scanCmd.Flags().StringVar(&csvPath, "csv", "", "CSV file, or directory of <SYMBOL>.csv files")
	scanCmd.Flags().StringVar(&ruleList, "rules", "", "comma-separated rule names (default: all)")
	scanCmd.Flags().StringVar(&bodyField, "body-field", "", "body size field: standard, heikin-ashi")
	scanCmd.Flags().StringVar(&format, "format", "table", "output format: table, json")
	scanCmd.Flags().IntVar(&workers, "workers", 0, "number of parallel workers")
	scanCmd.Flags().IntVar(&recentBars, "recent", 0, "report matches ending in the last N bars (0 = all)")
	scanCmd.Flags().BoolVar(&save, "save", false, "store the run in the database")

	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "List the active pattern rules",
		RunE:  runRules,
	}
	rulesCmd.Flags().StringVar(&bodyField, "body-field", "", "body size field: standard, heikin-ashi")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan API and metrics over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&port, "port", 0, "listen port")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored scan runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show the matches of one run")

	defaults := backtest.DefaultConfig()
	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Measure price moves after past pattern matches",
		RunE:  runBacktest,
	}
	backtestCmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated list of symbols")
	backtestCmd.Flags().StringVar(&universe, "universe", "test", "predefined universe: test, nasdaq100, sp500")
	backtestCmd.Flags().StringVar(&ruleList, "rules", "", "comma-separated rule names (default: all)")
	backtestCmd.Flags().StringVar(&bodyField, "body-field", "", "body size field: standard, heikin-ashi")
	backtestCmd.Flags().StringVar(&format, "format", "table", "output format: table, json")
	backtestCmd.Flags().IntVar(&horizon, "horizon", defaults.Horizon, "bars held after the completion candle")
	backtestCmd.Flags().IntVar(&lookback, "lookback", defaults.LookbackDays, "daily bars of history per symbol")
	backtestCmd.Flags().IntVar(&workers, "workers", defaults.Workers, "number of parallel workers")

	rootCmd.AddCommand(scanCmd, rulesCmd, serveCmd, historyCmd, backtestCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file and applies CLI overrides
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("pretty") {
		cfg.Log.Pretty = pretty
	}
	if flags.Changed("rules") {
		cfg.Patterns.Rules = splitList(ruleList)
	}
	if flags.Changed("body-field") {
		cfg.Patterns.BodyField = bodyField
	}
	if flags.Changed("workers") {
		cfg.Scanner.Workers = workers
	}
	if flags.Changed("recent") {
		cfg.Scanner.RecentBars = recentBars
	}
	if flags.Changed("port") {
		cfg.Server.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// createProvider builds the provider chain: CSV directory, Alpha Vantage, Yahoo
func createProvider(cfg *config.Config, log zerolog.Logger) (provider.Provider, error) {
	var providers []provider.Provider

	if cfg.API.CSVDir != "" {
		providers = append(providers, provider.NewCSVProvider(cfg.API.CSVDir))
	}
	if cfg.API.AlphaVantage.Key != "" {
		providers = append(providers, provider.NewAlphaVantageProvider(cfg.API.AlphaVantage.Key, cfg.API.AlphaVantage.RateLimit))
	}
	if cfg.API.Yahoo {
		providers = append(providers, provider.NewYahooProvider())
	}

	fallback := provider.NewFallbackProvider(log, providers...)
	if !fallback.IsAvailable() {
		return nil, fmt.Errorf("no data providers available. Enable yahoo, set ALPHAVANTAGE_API_KEY or use --csv")
	}

	names := make([]string, 0, len(fallback.Providers()))
	for _, p := range fallback.Providers() {
		names = append(names, p.Name())
	}
	log.Debug().Strs("providers", names).Msg("using providers")

	return fallback, nil
}

func newScanner(cfg *config.Config, p provider.Provider, reg *pattern.Registry, log zerolog.Logger) *scanner.Scanner {
	return scanner.NewScanner(p, features.NewAnnotator(cfg.FeatureSettings()), reg, scanner.Options{
		Workers:      cfg.Scanner.Workers,
		RuleWorkers:  cfg.Scanner.RuleWorkers,
		Timeout:      cfg.Scanner.Timeout,
		LookbackDays: cfg.Scanner.LookbackDays,
		RecentBars:   cfg.Scanner.RecentBars,
	}, log)
}

func checkFormat(f string) error {
	if f != "table" && f != "json" {
		return fmt.Errorf("unknown format %q (table, json)", f)
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	// A single CSV file is scanned directly, a directory feeds the CSV provider
	var csvFile string
	if csvPath != "" {
		info, err := os.Stat(csvPath)
		if err != nil {
			return fmt.Errorf("csv: %w", err)
		}
		if !info.IsDir() {
			csvFile = csvPath
		}
	}

	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if csvPath != "" && csvFile == "" {
		cfg.API.CSVDir = csvPath
		cfg.API.Yahoo = false
		cfg.API.AlphaVantage.Key = ""
	}

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted. Stopping scan...")
		cancel()
	}()

	var result *model.ScanResult
	if csvFile != "" {
		result, err = scanCSVFile(cfg, reg, log, csvFile)
	} else {
		result, err = scanUniverse(ctx, cfg, reg, log)
	}
	if err != nil {
		return err
	}

	if save {
		if err := saveRun(ctx, cfg, result); err != nil {
			return err
		}
		log.Info().Str("run", result.RunID).Msg("run saved")
	}

	if format == "json" {
		return report.JSON(os.Stdout, result)
	}
	return report.Table(os.Stdout, result)
}

func scanUniverse(ctx context.Context, cfg *config.Config, reg *pattern.Registry, log zerolog.Logger) (*model.ScanResult, error) {
	p, err := createProvider(cfg, log)
	if err != nil {
		return nil, err
	}

	stocks, err := loadStocks()
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "Scanning %d stocks with %d rules...\n\n", len(stocks), reg.Len())

	s := newScanner(cfg, p, reg, log)

	// Setup progress bar
	bar := progressbar.NewOptions(len(stocks),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	s.SetProgressCallback(func(scanned, total int) {
		bar.Set(scanned)
	})

	// Run scan
	result, err := s.Scan(ctx, stocks)
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}

	bar.Finish()
	fmt.Fprintln(os.Stderr)
	return result, nil
}

func scanCSVFile(cfg *config.Config, reg *pattern.Registry, log zerolog.Logger, path string) (*model.ScanResult, error) {
	candles, err := provider.ReadCSVFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	stock := model.Stock{Symbol: symbol, Name: symbol}

	start := time.Now()
	s := newScanner(cfg, nil, reg, log)
	r, err := s.ScanCandles(stock, candles)
	if err != nil {
		return nil, err
	}

	result := &model.ScanResult{
		StartedAt:    start,
		Rules:        reg.Names(),
		TotalScanned: 1,
		Results:      []model.SymbolResult{r},
		ScanTime:     time.Since(start),
	}
	if len(r.Matches) > 0 {
		result.MatchingCount = 1
	}
	return result, nil
}

func saveRun(ctx context.Context, cfg *config.Config, result *model.ScanResult) error {
	if cfg.Store.Path == "" {
		return fmt.Errorf("--save needs store.path in the config or CANDLESCAN_DB")
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.SaveRun(ctx, result); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	return report.Rules(os.Stdout, reg)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	p, err := createProvider(cfg, log)
	if err != nil {
		return err
	}
	cached := provider.NewCachingProvider(p, cfg.Scanner.LookbackDays)

	var st *store.Store
	if cfg.Store.Path != "" {
		if st, err = store.Open(cfg.Store.Path); err != nil {
			return err
		}
		defer st.Close()
	}

	server := web.NewServer(newScanner(cfg, cached, reg, log), cached, st, cfg.Scanner.LookbackDays, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	if err := server.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("no database configured (store.path or CANDLESCAN_DB)")
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if historyRun != "" {
		matches, err := st.RunMatches(ctx, historyRun)
		if err != nil {
			return err
		}
		return report.Matches(os.Stdout, matches)
	}

	runs, err := st.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	return report.Runs(os.Stdout, runs)
}

// loadStocks resolves --symbols, or --universe when no symbols are given
func loadStocks() ([]model.Stock, error) {
	loader := symbols.NewLoader()
	var (
		stocks []model.Stock
		err    error
	)
	if symbolList != "" {
		stocks, err = loader.LoadSymbols([]string{symbolList})
	} else {
		var u symbols.Universe
		if u, err = symbols.ParseUniverse(universe); err == nil {
			stocks, err = loader.LoadUniverse(u)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("loading symbols: %w", err)
	}
	if len(stocks) == 0 {
		return nil, fmt.Errorf("no stocks to scan")
	}
	return stocks, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	p, err := createProvider(cfg, log)
	if err != nil {
		return err
	}
	stocks, err := loadStocks()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Backtesting %d rules on %d stocks (%d bars, %d-bar horizon)...\n\n",
		reg.Len(), len(stocks), lookback, horizon)

	b := backtest.NewBacktester(backtest.Config{
		Horizon:      horizon,
		LookbackDays: lookback,
		Workers:      workers,
	}, p, features.NewAnnotator(cfg.FeatureSettings()), reg, log)

	result, err := b.Run(ctx, stocks)
	if err != nil {
		return fmt.Errorf("backtesting: %w", err)
	}

	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	return report.Backtest(os.Stdout, result)
}
