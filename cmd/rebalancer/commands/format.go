package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/strategy"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	doubleLine = "═══════════════════════════════════════════════════════════"
	singleLine = "───────────────────────────────────────────────────────────"
)

// PrintHeader prints a boxed section title
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleLine)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// render prints v as JSON or through table when --output=table
func render(w io.Writer, v interface{}, table func(io.Writer)) error {
	switch outputFormat {
	case "json":
		return printJSON(w, v)
	case "table", "":
		table(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (table|json)", outputFormat)
	}
}

// printOptimization prints orders, allocations and metrics of a run
func printOptimization(w io.Writer, res *contracts.OptimizationResult) {
	PrintHeader(w, "Optimization "+res.RunID)
	PrintKeyValue(w, "Strategy", res.Strategy, 14)
	PrintKeyValue(w, "Solver", string(res.SolverStatus), 14)
	if res.FallbackUsed {
		PrintKeyValue(w, "Fallback", res.FallbackStrategy, 14)
	}

	m := res.OptimizationMetrics
	PrintKeyValue(w, "Budget", fmt.Sprintf("%.2f", m.AvailableBudget), 14)
	PrintKeyValue(w, "Used", fmt.Sprintf("%.2f (%.2f%%)", m.TotalBudgetUsed, m.UtilizationPercentage), 14)
	PrintKeyValue(w, "Leftover", fmt.Sprintf("%.2f", m.UnusedBudget), 14)

	t := res.ToleranceMetrics
	PrintKeyValue(w, "Compliance", fmt.Sprintf("%d/%d (%.2f%%)", t.CompliantCount, t.TotalCount, t.ComplianceRate), 14)
	PrintKeyValue(w, "Quality", fmt.Sprintf("%.2f", t.QualityScore), 14)
	fmt.Fprintln(w)

	widths := []int{8, 8, 10, 10, 10, 10, 4}
	PrintTableHeader(w, []string{"Ticker", "Buy", "Price", "Target%", "Actual%", "Dev", "OK"}, widths)
	for _, a := range res.Allocations {
		ok := "✓"
		if !a.Compliant {
			ok = "✗"
		}
		PrintTableRow(w, []string{
			a.Ticker,
			fmt.Sprintf("%d", a.SharesToBuy),
			fmt.Sprintf("%.2f", a.Price),
			fmt.Sprintf("%.2f", a.TargetPercentage),
			fmt.Sprintf("%.2f", a.ActualPercentage),
			fmt.Sprintf("%+.2f", a.Deviation),
			ok,
		}, widths)
	}

	if len(res.HoldingsToSell) > 0 {
		fmt.Fprintln(w)
		for _, h := range res.HoldingsToSell {
			PrintWarning(w, fmt.Sprintf("Sell %d %s @ %.2f = %.2f", h.Shares, h.Ticker, h.Price, h.TotalValue))
		}
	}
}

// printMomentum prints momentum records
func printMomentum(w io.Writer, records []contracts.MomentumRecord) {
	PrintHeader(w, "Momentum")
	widths := []int{8, 9, 9, 9, 9, 9, 6}
	PrintTableHeader(w, []string{"Ticker", "3M", "6M", "9M", "12M", "Avg", "Abs"}, widths)
	for _, r := range records {
		if r.HasError() {
			PrintTableRow(w, []string{r.Ticker, "error: " + r.Error}, []int{8, 0})
			continue
		}
		abs := "no"
		if r.AbsoluteMomentum {
			abs = "yes"
		}
		PrintTableRow(w, []string{
			r.Ticker,
			pct(r.Return3M), pct(r.Return6M), pct(r.Return9M), pct(r.Return12M), pct(r.Average),
			abs,
		}, widths)
	}
}

// printTargets prints a strategy result
func printTargets(w io.Writer, res *strategy.Result) {
	PrintHeader(w, "Targets ("+res.Strategy+")")
	widths := []int{8, 10, 10, 10}
	PrintTableHeader(w, []string{"Ticker", "Target%", "Dev", "Price"}, widths)
	for _, t := range res.Targets {
		PrintTableRow(w, []string{
			t.Ticker,
			fmt.Sprintf("%.2f", t.TargetPercentage),
			fmt.Sprintf("±%.2f", t.AllowedDeviation),
			fmt.Sprintf("%.2f", t.Price),
		}, widths)
	}
}

func pct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}
