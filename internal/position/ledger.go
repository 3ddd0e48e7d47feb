// Package position owns the open-trade lifecycle: sizing and level
// computation on open, the TP1 half-close with break-even stop, denial
// accounting and the final close.
package position

import (
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"borsihai/config"
	"borsihai/internal/tradelog"
	"borsihai/models"
)

var (
	ErrMaxPositions     = errors.New("maximum open positions reached")
	ErrInsufficientCash = errors.New("insufficient available cash")
	ErrPositionNotFound = errors.New("position not found")
	ErrTP1AlreadyHit    = errors.New("TP1 already taken")
)

// atrFallbackPct sizes the initial risk when no usable ATR exists.
const atrFallbackPct = 0.04

// Ledger applies capital-affecting transitions to a portfolio state.
// It mutates the state in place; the caller persists it.
type Ledger struct {
	cfg    *config.Config
	trades tradelog.Appender
	logger zerolog.Logger
}

// NewLedger creates a ledger writing audit records to trades.
func NewLedger(cfg *config.Config, trades tradelog.Appender) *Ledger {
	return &Ledger{
		cfg:    cfg,
		trades: trades,
		logger: log.With().Str("component", "ledger").Logger(),
	}
}

// Levels computes the initial stop and TP1 for an entry. The risk per
// unit is ATR-based with a fixed percentage fallback.
func (l *Ledger) Levels(side string, entry, atr float64) (risk, stop, tp1 float64) {
	risk = atr * l.cfg.ATRMultiplier
	if math.IsNaN(risk) || risk <= 0 {
		risk = entry * atrFallbackPct
	}
	if side == models.DirectionLong {
		return risk, entry - risk, entry + risk*l.cfg.TP1RRRatio
	}
	return risk, entry + risk, entry - risk*l.cfg.TP1RRRatio
}

// Open allocates capital for a confirmed signal and records the
// position. Allocation is a fixed fraction of total equity.
func (l *Ledger) Open(st *models.PortfolioState, symbol, side, path string, entry, atr float64) (*models.Position, error) {
	if len(st.Positions) >= l.cfg.MaxPositions {
		return nil, ErrMaxPositions
	}

	alloc := st.Equity * l.cfg.PositionSizePct
	if alloc > st.AvailableCash {
		return nil, ErrInsufficientCash
	}

	risk, stop, tp1 := l.Levels(side, entry, atr)
	pos := models.Position{
		Symbol:           symbol,
		Side:             side,
		Path:             path,
		EntryPrice:       entry,
		AllocatedCapital: alloc,
		InitialRisk:      risk,
		StopLoss:         stop,
		TP1Price:         tp1,
		OpenedAt:         time.Now().Unix(),
	}

	st.AvailableCash -= alloc
	st.TiedCapital += alloc
	st.Positions = append(st.Positions, pos)
	delete(st.SentSignals, pos.Key())

	l.trades.Append(models.TradeRecord{
		Action:    models.TradeActionOpen,
		Symbol:    symbol,
		Side:      side,
		Price:     entry,
		Stop:      stop,
		Timestamp: pos.OpenedAt,
	})
	l.logger.Info().Str("symbol", symbol).Str("side", side).Float64("alloc", alloc).Msg("Position opened")
	return &st.Positions[len(st.Positions)-1], nil
}

// PartialClose realizes half the position at TP1 and moves the stop to
// break-even.
func (l *Ledger) PartialClose(st *models.PortfolioState, symbol string, exitPrice float64) error {
	pos := st.FindPosition(symbol)
	if pos == nil {
		return ErrPositionNotFound
	}
	if pos.TP1Hit {
		return ErrTP1AlreadyHit
	}

	half := pos.AllocatedCapital / 2
	pnl := l.netPnL(pos.Side, half, pos.EntryPrice, exitPrice)

	pos.AllocatedCapital -= half
	pos.TP1Hit = true
	pos.StopLoss = breakEvenStop(pos.Side, pos.EntryPrice, l.cfg.BreakEvenPct)

	st.TiedCapital -= half
	st.AvailableCash += half + pnl
	st.Equity += pnl

	l.trades.Append(models.TradeRecord{
		Action:    models.TradeActionPartialClose,
		Symbol:    symbol,
		Side:      pos.Side,
		Price:     exitPrice,
		Stop:      pos.StopLoss,
		Timestamp: time.Now().Unix(),
		PnL:       &pnl,
	})
	l.logger.Info().Str("symbol", symbol).Float64("pnl", pnl).Msg("TP1 half-close")
	return nil
}

// FullClose realizes the whole remaining position at exitPrice and
// removes it. Returns the realized net P&L.
func (l *Ledger) FullClose(st *models.PortfolioState, symbol string, exitPrice float64) (float64, error) {
	pos := st.FindPosition(symbol)
	if pos == nil {
		return 0, ErrPositionNotFound
	}

	side, stop := pos.Side, pos.StopLoss
	alloc := pos.AllocatedCapital
	pnl := l.netPnL(side, alloc, pos.EntryPrice, exitPrice)

	st.TiedCapital -= alloc
	st.AvailableCash += alloc + pnl
	st.Equity += pnl
	removePosition(st, symbol)

	l.trades.Append(models.TradeRecord{
		Action:    models.TradeActionClose,
		Symbol:    symbol,
		Side:      side,
		Price:     exitPrice,
		Stop:      stop,
		Timestamp: time.Now().Unix(),
		PnL:       &pnl,
	})
	l.logger.Info().Str("symbol", symbol).Float64("pnl", pnl).Msg("Position closed")
	return pnl, nil
}

// Deny counts one refused close prompt, saturating at the denial cap.
func (l *Ledger) Deny(st *models.PortfolioState, symbol string) error {
	pos := st.FindPosition(symbol)
	if pos == nil {
		return ErrPositionNotFound
	}
	if pos.DenialCount < l.cfg.DenialCap {
		pos.DenialCount++
	}
	return nil
}

// netPnL is the realized profit on capital after the round-trip fee.
func (l *Ledger) netPnL(side string, capital, entry, exit float64) float64 {
	change := (exit - entry) / entry
	if side == models.DirectionShort {
		change = -change
	}
	gross := capital * change
	fee := capital * l.cfg.RoundTripFeePct / 100
	return gross - fee
}

// breakEvenStop nudges the stop past entry so the remainder cannot turn
// the trade into a net loss.
func breakEvenStop(side string, entry, pct float64) float64 {
	if side == models.DirectionLong {
		return entry * (1 + pct)
	}
	return entry * (1 - pct)
}

func removePosition(st *models.PortfolioState, symbol string) {
	for i := range st.Positions {
		if st.Positions[i].Symbol == symbol {
			st.Positions = append(st.Positions[:i], st.Positions[i+1:]...)
			return
		}
	}
}
