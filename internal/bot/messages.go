package bot

import (
	"fmt"
	"math"
	"strings"
	"time"

	"borsihai/config"
	"borsihai/internal/scanner"
	"borsihai/models"
)

func pathLabel(path string) string {
	if path == models.PathCounterTrend {
		return "[COUNTERTREND]"
	}
	return "[TREND]"
}

func sideEmoji(side string) string {
	if side == models.DirectionShort {
		return "🔴"
	}
	return "🟢"
}

// coinQty floors the suggested coin quantity so the order never asks
// for more than the allocation buys.
func coinQty(alloc, entry float64) float64 {
	if entry <= 0 {
		return 0
	}
	return math.Floor(alloc/entry*1e6) / 1e6
}

// signalAlert renders one scored candidate as an alert message.
func signalAlert(sig models.CandidateSignal, alloc, stop, tp1 float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s %s* %s\n", sideEmoji(sig.Direction), sig.Symbol, sig.Direction, pathLabel(sig.Path))
	fmt.Fprintf(&b, "%s Score: %d/100\n%s\n\n", scanner.Label(sig.Score), sig.Score, scanner.Bar(sig.Score))
	fmt.Fprintf(&b, "Entry: %s\n", config.FormatPrice(sig.Entry))
	fmt.Fprintf(&b, "Stop:  %s\n", config.FormatPrice(stop))
	fmt.Fprintf(&b, "TP1:   %s\n\n", config.FormatPrice(tp1))
	fmt.Fprintf(&b, "Size: %s (%g %s)\n", config.FormatPrice(alloc), coinQty(alloc, sig.Entry), baseAsset(sig.Symbol))
	fmt.Fprintf(&b, "Persistence: %d bars | Vol: P%.0f | RS: %+.2f%%\n",
		sig.Snapshot.Persistence, sig.Snapshot.VolumePercentile, sig.RelStrength*100)
	b.WriteString("\nOpen this position?")
	return b.String()
}

// baseAsset strips the quote currency for display.
func baseAsset(symbol string) string {
	for _, quote := range []string{"USDT", "USDC", "BTC", "ETH"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote)
		}
	}
	return symbol
}

// statusMessage renders the portfolio overview for /status.
func statusMessage(st *models.PortfolioState, prices map[string]float64) string {
	var b strings.Builder
	mode := "🟢 ready"
	if st.Mode == models.ModePaused {
		mode = "😴 paused"
	}
	fmt.Fprintf(&b, "*Portfolio*\n")
	fmt.Fprintf(&b, "Balance: %s\n", config.FormatPrice(st.Equity))
	fmt.Fprintf(&b, "Available: %s | Tied: %s\n", config.FormatPrice(st.AvailableCash), config.FormatPrice(st.TiedCapital))
	fmt.Fprintf(&b, "Mode: %s\n", mode)

	if len(st.Positions) == 0 {
		b.WriteString("\nNo open positions.")
		return b.String()
	}

	fmt.Fprintf(&b, "\n*Open positions (%d)*\n", len(st.Positions))
	for _, p := range st.Positions {
		fmt.Fprintf(&b, "\n%s *%s %s* %s\n", sideEmoji(p.Side), p.Symbol, p.Side, pathLabel(p.Path))
		fmt.Fprintf(&b, "  Entry %s | SL %s | TP1 %s\n",
			config.FormatPrice(p.EntryPrice), config.FormatPrice(p.StopLoss), config.FormatPrice(p.TP1Price))
		if live, ok := prices[p.Symbol]; ok && p.EntryPrice > 0 {
			change := (live - p.EntryPrice) / p.EntryPrice * 100
			if p.Side == models.DirectionShort {
				change = -change
			}
			fmt.Fprintf(&b, "  Now %s (%+.2f%%)\n", config.FormatPrice(live), change)
		}
		if p.TP1Hit {
			b.WriteString("  TP1 taken, stop at break-even\n")
		}
		age := time.Since(time.Unix(p.OpenedAt, 0)).Round(time.Hour)
		fmt.Fprintf(&b, "  Open %s\n", age)
	}
	return b.String()
}

// Suggested protection levels for stepping away: a wide safety stop
// and a moon-shot take profit around the current price.
const (
	afkStopPct = 0.04
	afkTPPct   = 0.10
)

// afkMessage confirms the pause and suggests manual exchange orders
// for each open position.
func afkMessage(st *models.PortfolioState, prices map[string]float64) string {
	var b strings.Builder
	b.WriteString("😴 Paused. Position monitoring continues, no new signals until /ready.")
	if len(st.Positions) == 0 {
		return b.String()
	}

	b.WriteString("\n\nSuggested exchange orders while away:")
	for _, p := range st.Positions {
		live, ok := prices[p.Symbol]
		if !ok {
			live = p.EntryPrice
		}
		var sl, tp float64
		if p.Side == models.DirectionLong {
			sl = live * (1 - afkStopPct)
			tp = live * (1 + afkTPPct)
		} else {
			sl = live * (1 + afkStopPct)
			tp = live * (1 - afkTPPct)
		}
		fmt.Fprintf(&b, "\n%s %s %s: safety SL %s, moon TP %s",
			sideEmoji(p.Side), p.Symbol, p.Side, config.FormatPrice(sl), config.FormatPrice(tp))
	}
	return b.String()
}

// scanSummary renders the post-scan heartbeat.
func scanSummary(meta models.ScanMetadata, sent, skipped int) string {
	if meta.SignalsFound == 0 {
		return fmt.Sprintf("🔍 Scan done: %d pairs, %d passed regime, nothing worth a look.",
			meta.PairsScanned, meta.PassedRegime)
	}
	return fmt.Sprintf("🔍 Scan done: %d pairs, %d passed regime, %d signals (%d sent, %d already known).",
		meta.PairsScanned, meta.PassedRegime, meta.SignalsFound, sent, skipped)
}

const helpText = `*Commands*
/status - portfolio and open positions
/scan - run a market scan now
/afk - pause alerts
/ready - resume alerts
/restart - restart the service
/help - this message

Scans run at minute 1 of every hour, position checks every 5 minutes.`
