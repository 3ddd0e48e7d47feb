package position

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"borsihai/config"
	"borsihai/internal/indicator"
	"borsihai/models"
)

// MarketData is the slice of the exchange client the monitor needs.
type MarketData interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	LastPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// MACD parameters, matching the entry detector.
const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// Choice is one inline button on a confirmation prompt.
type Choice struct {
	Label  string
	Intent models.ActionIntent
}

// Request is a user confirmation the monitor wants sent.
type Request struct {
	Symbol  string
	Text    string
	Choices []Choice
}

// Monitor walks open positions against fresh prices every cycle and
// produces confirmation requests. It never closes a position itself.
type Monitor struct {
	market MarketData
	cfg    *config.Config
	logger zerolog.Logger
}

// NewMonitor creates a monitor over the given market data source.
func NewMonitor(market MarketData, cfg *config.Config) *Monitor {
	return &Monitor{
		market: market,
		cfg:    cfg,
		logger: log.With().Str("component", "monitor").Logger(),
	}
}

type observation struct {
	lastClosed *models.Candle
	exitCross  bool
}

// Check evaluates every open position and returns the prompts to send.
// The returned bool reports whether st was mutated (denial resets) and
// needs persisting.
func (m *Monitor) Check(ctx context.Context, st *models.PortfolioState) ([]Request, bool, error) {
	if len(st.Positions) == 0 {
		return nil, false, nil
	}

	symbols := make([]string, len(st.Positions))
	for i, p := range st.Positions {
		symbols[i] = p.Symbol
	}

	obs := make([]observation, len(st.Positions))
	var wg sync.WaitGroup
	for i := range st.Positions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pos := st.Positions[i]

			candles, err := m.market.Candles(ctx, pos.Symbol, "5m", 2)
			if err != nil {
				m.logger.Warn().Err(err).Str("symbol", pos.Symbol).Msg("5m fetch failed")
			} else if len(candles) >= 2 {
				c := candles[len(candles)-2] // last closed
				obs[i].lastClosed = &c
			}

			// A momentum exit only matters once TP1 banked half.
			if pos.TP1Hit {
				cross, err := m.momentumCross(ctx, pos.Symbol, pos.Side)
				if err != nil {
					m.logger.Warn().Err(err).Str("symbol", pos.Symbol).Msg("Momentum check failed")
				} else {
					obs[i].exitCross = cross
				}
			}
		}(i)
	}
	wg.Wait()

	prices, err := m.market.LastPrices(ctx, symbols)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Ticker fetch failed")
		prices = map[string]float64{}
	}

	var requests []Request
	changed := false
	for i := range st.Positions {
		pos := &st.Positions[i]
		o := obs[i]

		live, ok := prices[pos.Symbol]
		if !ok && o.lastClosed != nil {
			live = o.lastClosed.Close
			ok = true
		}
		if !ok {
			continue // no usable price this cycle
		}

		if slBreached(pos, o.lastClosed, live) {
			if pos.DenialCount < m.cfg.DenialCap {
				requests = append(requests, m.stopRequest(pos))
			}
			// Already asked twice; wait for price recovery.
			continue
		}

		if !pos.TP1Hit && tp1Reached(pos, o.lastClosed, live) {
			requests = append(requests, m.tp1Request(pos, live))
		} else if pos.TP1Hit && o.exitCross && pos.DenialCount < m.cfg.DenialCap {
			requests = append(requests, m.exitRequest(pos, live))
		}

		// Price is safely off the stop; the breach episode is over.
		if pos.DenialCount > 0 {
			pos.DenialCount = 0
			changed = true
		}
	}
	return requests, changed, nil
}

// slBreached applies wick priority: the last closed 5m extreme counts
// before the live tick.
func slBreached(pos *models.Position, lastClosed *models.Candle, live float64) bool {
	if pos.Side == models.DirectionLong {
		if lastClosed != nil && lastClosed.Low <= pos.StopLoss {
			return true
		}
		return live <= pos.StopLoss
	}
	if lastClosed != nil && lastClosed.High >= pos.StopLoss {
		return true
	}
	return live >= pos.StopLoss
}

func tp1Reached(pos *models.Position, lastClosed *models.Candle, live float64) bool {
	if pos.Side == models.DirectionLong {
		if lastClosed != nil && lastClosed.High >= pos.TP1Price {
			return true
		}
		return live >= pos.TP1Price
	}
	if lastClosed != nil && lastClosed.Low <= pos.TP1Price {
		return true
	}
	return live <= pos.TP1Price
}

// momentumCross reports a MACD line/signal cross against the position
// side between the last two closed 1H candles.
func (m *Monitor) momentumCross(ctx context.Context, symbol, side string) (bool, error) {
	candles, err := m.market.Candles(ctx, symbol, "1h", 50)
	if err != nil {
		return false, err
	}
	if len(candles) < 3 {
		return false, nil
	}
	closed := candles[:len(candles)-1]

	line, signal, _ := indicator.MACDSeries(indicator.Closes(closed), macdFast, macdSlow, macdSignal)
	i := len(closed) - 1
	if !indicator.Defined(line[i], line[i-1], signal[i], signal[i-1]) {
		return false, nil
	}

	if side == models.DirectionLong {
		return line[i-1] >= signal[i-1] && line[i] < signal[i], nil
	}
	return line[i-1] <= signal[i-1] && line[i] > signal[i], nil
}

func (m *Monitor) stopRequest(pos *models.Position) Request {
	return Request{
		Symbol: pos.Symbol,
		Text: fmt.Sprintf(
			"🛑 *%s %s* hit its stop at %s\nEntry: %s\n\nDid you close it?",
			pos.Symbol, pos.Side,
			config.FormatPrice(pos.StopLoss), config.FormatPrice(pos.EntryPrice),
		),
		Choices: []Choice{
			{Label: "✅ Closed", Intent: models.ActionIntent{Kind: models.ActionStopClosed, Symbol: pos.Symbol, Side: pos.Side}},
			{Label: "❌ Still open", Intent: models.ActionIntent{Kind: models.ActionStopDenied, Symbol: pos.Symbol, Side: pos.Side}},
		},
	}
}

func (m *Monitor) tp1Request(pos *models.Position, live float64) Request {
	return Request{
		Symbol: pos.Symbol,
		Text: fmt.Sprintf(
			"🎯 *%s %s* reached TP1 at %s (now %s)\nEntry: %s\n\nClose half and move the stop to break-even?",
			pos.Symbol, pos.Side,
			config.FormatPrice(pos.TP1Price), config.FormatPrice(live),
			config.FormatPrice(pos.EntryPrice),
		),
		Choices: []Choice{
			{Label: "✅ Close 50%", Intent: models.ActionIntent{Kind: models.ActionHalfClose, Symbol: pos.Symbol, Side: pos.Side}},
			{Label: "❌ Ignore", Intent: models.ActionIntent{Kind: models.ActionStopDenied, Symbol: pos.Symbol, Side: pos.Side}},
		},
	}
}

func (m *Monitor) exitRequest(pos *models.Position, live float64) Request {
	return Request{
		Symbol: pos.Symbol,
		Text: fmt.Sprintf(
			"📉 *%s %s* momentum flipped (now %s)\nEntry: %s\n\nClose the remainder?",
			pos.Symbol, pos.Side,
			config.FormatPrice(live), config.FormatPrice(pos.EntryPrice),
		),
		Choices: []Choice{
			{Label: "✅ Close", Intent: models.ActionIntent{Kind: models.ActionExitClosed, Symbol: pos.Symbol, Side: pos.Side}},
			{Label: "❌ Ignore", Intent: models.ActionIntent{Kind: models.ActionStopDenied, Symbol: pos.Symbol, Side: pos.Side}},
		},
	}
}
