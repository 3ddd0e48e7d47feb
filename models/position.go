package models

// Position is an open trade being walked through the SL/TP1 lifecycle.
type Position struct {
	Symbol           string  `json:"symbol"`
	Side             string  `json:"side"`
	Path             string  `json:"path"`
	EntryPrice       float64 `json:"entry_price"`
	AllocatedCapital float64 `json:"allocated_capital"`
	InitialRisk      float64 `json:"initial_risk"`
	StopLoss         float64 `json:"current_sl"`
	TP1Price         float64 `json:"tp1_price"`
	TP1Hit           bool    `json:"tp1_hit"`
	DenialCount      int     `json:"denial_count"`
	OpenedAt         int64   `json:"timestamp"` // unix seconds
}

// Key returns the dedup key matching this position's direction.
func (p Position) Key() string {
	return SignalKey(p.Symbol, p.Side)
}

// PortfolioState is the sole persisted source of truth between cycles.
type PortfolioState struct {
	Equity        float64           `json:"portfolio_balance"`
	AvailableCash float64           `json:"available_cash"`
	TiedCapital   float64           `json:"tied_capital"`
	Mode          string            `json:"bot_status"`
	ChatID        int64             `json:"chat_id,omitempty"`
	Positions     []Position        `json:"active_positions"`
	SentSignals   map[string]string `json:"sent_signals"` // dedup key -> sent-at RFC3339
}

// FindPosition returns a pointer into Positions for symbol, or nil.
func (s *PortfolioState) FindPosition(symbol string) *Position {
	for i := range s.Positions {
		if s.Positions[i].Symbol == symbol {
			return &s.Positions[i]
		}
	}
	return nil
}

// Trade-log action kinds.
const (
	TradeActionOpen         = "OPEN"
	TradeActionClose        = "CLOSE"
	TradeActionPartialClose = "PARTIAL_CLOSE"
)

// TradeRecord is one immutable audit entry for a capital-affecting
// transition. PnL is nil for opens.
type TradeRecord struct {
	Action    string   `json:"action"`
	Symbol    string   `json:"symbol"`
	Side      string   `json:"side"`
	Price     float64  `json:"price"`
	Stop      float64  `json:"stop"`
	Timestamp int64    `json:"timestamp"` // unix seconds
	PnL       *float64 `json:"pnl,omitempty"`
}

// User-confirmable action kinds carried across the Telegram boundary.
const (
	ActionOpen       = "open"      // signal confirmed as opened
	ActionIgnore     = "ignore"    // signal dismissed
	ActionStopClosed = "slclosed"  // SL breach confirmed closed
	ActionStopDenied = "slopen"     // breach or exit denied, still open
	ActionHalfClose  = "halfclose"  // TP1 half-close confirmed
	ActionExitClosed = "exitclosed" // momentum exit confirmed closed
)

// ActionIntent is the structured value encoded into an inline button.
// It carries enough context to be replayed statelessly against the
// persisted portfolio state.
type ActionIntent struct {
	Kind   string
	Symbol string
	Side   string
	Path   string
	ATR    float64
}
