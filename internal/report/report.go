package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"candlescan/internal/backtest"
	"candlescan/internal/pattern"
	"candlescan/internal/store"
	"candlescan/pkg/model"
)

const (
	dateLayout    = "2006-01-02"
	maxNameLength = 18
)

// truncate shortens s to n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Table writes one row per match followed by a scan summary
func Table(w io.Writer, result *model.ScanResult) error {
	if result.MatchingCount == 0 {
		fmt.Fprintln(w, "No candlestick patterns found.")
		fmt.Fprintf(w, "Scanned %d stocks in %s\n", result.TotalScanned, result.ScanTime.Round(time.Millisecond))
		return nil
	}

	fmt.Fprintf(w, "Found patterns in %d stocks:\n\n", result.MatchingCount)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Symbol", "Name", "Date", "Pattern", "Signal", "Style", "Close"}),
	)

	for _, r := range result.Results {
		name := truncate(r.Stock.Name, maxNameLength)
		for _, m := range r.Matches {
			table.Append([]string{
				r.Stock.Symbol,
				name,
				m.Date.Format(dateLayout),
				m.Rule,
				m.Kind,
				m.Style,
				fmt.Sprintf("%.2f", m.Close),
			})
		}
	}

	if err := table.Render(); err != nil {
		return err
	}

	var failed int
	for _, r := range result.Results {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(w, "\n%d symbols could not be fetched\n", failed)
	}
	fmt.Fprintf(w, "\nScanned %d stocks in %s\n", result.TotalScanned, result.ScanTime.Round(time.Millisecond))
	return nil
}

// JSON writes the scan result as indented JSON
func JSON(w io.Writer, result *model.ScanResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// Rules lists the rules of a registry in evaluation order
func Rules(w io.Writer, reg *pattern.Registry) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"#", "Rule", "Candles"}),
	)
	for i, info := range reg.Info() {
		table.Append([]string{
			strconv.Itoa(i + 1),
			info.Name,
			strconv.Itoa(info.WindowLength),
		})
	}
	return table.Render()
}

// Runs lists stored scan runs
func Runs(w io.Writer, runs []store.RunSummary) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No stored runs.")
		return nil
	}
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Run", "Started", "Rules", "Scanned", "Matching", "Time"}),
	)
	for _, r := range runs {
		table.Append([]string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(len(r.Rules)),
			strconv.Itoa(r.TotalScanned),
			strconv.Itoa(r.MatchingCount),
			r.ScanTime.Round(time.Millisecond).String(),
		})
	}
	return table.Render()
}

// Matches lists the matches of a stored run
func Matches(w io.Writer, matches []store.StoredMatch) error {
	if len(matches) == 0 {
		fmt.Fprintln(w, "Run has no matches.")
		return nil
	}
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Symbol", "Date", "Pattern", "Signal", "Style", "Close"}),
	)
	for _, m := range matches {
		table.Append([]string{
			m.Symbol,
			m.Date.Format(dateLayout),
			m.Rule,
			m.Kind,
			m.Style,
			fmt.Sprintf("%.2f", m.Close),
		})
	}
	return table.Render()
}

// Backtest writes per-rule outcome statistics
func Backtest(w io.Writer, result *backtest.Result) error {
	if len(result.Stats) == 0 {
		fmt.Fprintf(w, "No pattern outcomes with %d bars of follow-through.\n", result.Horizon)
		return nil
	}

	fmt.Fprintf(w, "Outcomes %d bars after completion (%d stocks, %d samples):\n\n",
		result.Horizon, result.TotalScanned, len(result.Outcomes))

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Rule", "Samples", "Win Rate", "Avg", "Avg Win", "Avg Loss", "PF"}),
	)
	for _, s := range result.Stats {
		pf := "-"
		if s.ProfitFactor > 0 {
			pf = fmt.Sprintf("%.2f", s.ProfitFactor)
		}
		table.Append([]string{
			s.Rule,
			strconv.Itoa(s.Samples),
			fmt.Sprintf("%.0f%%", s.WinRate),
			fmt.Sprintf("%+.2f%%", s.AvgReturnPct),
			fmt.Sprintf("+%.2f%%", s.AvgWinPct),
			fmt.Sprintf("-%.2f%%", s.AvgLossPct),
			pf,
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	if result.Failed > 0 {
		fmt.Fprintf(w, "\n%d symbols could not be fetched\n", result.Failed)
	}
	return nil
}
