package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-quant/internal/engine"
	"golang-quant/pkg/utils"
)

// FormatRunReport formats a finished run's summary into a Markdown message.
func FormatRunReport(runID string, kind string, symbols []string, summary *engine.Summary, finishedAt time.Time) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("📊 *Backtest finished* `%s`\n", runID))
	builder.WriteString(fmt.Sprintf("Kind: %s\n", kind))
	if len(symbols) > 0 {
		builder.WriteString(fmt.Sprintf("Symbols: %s\n", strings.Join(symbols, ", ")))
	}
	builder.WriteString(fmt.Sprintf("Total P\\&L: %.2f\n", summary.TotalPnL))
	builder.WriteString(fmt.Sprintf("CAGR: %s\n", utils.FormatPercentage(summary.CAGR*100)))
	builder.WriteString(fmt.Sprintf("Sharpe: %.2f\n", summary.Sharpe))
	builder.WriteString(fmt.Sprintf("Max drawdown: %.2f (%s)\n", summary.MaxDrawdown, utils.FormatPercentage(summary.MaxDDPct*100)))
	builder.WriteString(fmt.Sprintf("Day win rate: %s\n", utils.FormatPercentage(summary.WinRateDay*100)))
	builder.WriteString(fmt.Sprintf("%s\n", finishedAt.Format("02 Jan 2006 15:04 MST")))
	return builder.String()
}

// FormatErrorAlert formats a failed scheduled job into a Markdown message.
func FormatErrorAlert(at time.Time, job string, errMsg string) string {
	return fmt.Sprintf(`📛 *Job failed* %s
🔧 %s
⚠️ %s
`, at.Format("02 Jan 2006 15:04 MST"), job, errMsg)
}
