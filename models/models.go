package models

// Trade direction, also used for the 4H regime bias.
const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

// Path classifies a candidate relative to the 4H regime.
const (
	PathTrend        = "TA" // trades with the regime
	PathCounterTrend = "CT" // trades against it
)

// Operating mode of the assistant.
const (
	ModeReady  = "ready"
	ModePaused = "paused"
)

// Candle represents a single OHLCV price candle. The last candle of a
// fetched series is still forming and must not be treated as closed.
type Candle struct {
	OpenTime int64   `json:"open_time"` // unix milliseconds
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// EntrySnapshot holds the indicator values of the last closed 1H candle
// that a candidate signal was detected on. It is the scorer's input.
type EntrySnapshot struct {
	Direction           string  `json:"direction"`
	Regime              string  `json:"regime"`
	Price               float64 `json:"price"`
	ATR                 float64 `json:"atr"`
	EMA20               float64 `json:"ema20"`
	EMA50               float64 `json:"ema50"`
	Persistence         int     `json:"persistence"`
	DeltaPercentile     float64 `json:"delta_percentile"`
	MagnitudePercentile float64 `json:"magnitude_percentile"`
	VolumePercentile    float64 `json:"volume_percentile"`
	BodyRatio           float64 `json:"body_ratio"`
	Breakout            bool    `json:"breakout"`
}

// Score component names, retrievable from a ScoreBreakdown.
const (
	ScorePersistence = "persistence"
	ScoreDelta       = "hist_delta"
	ScoreMagnitude   = "hist_magnitude"
	ScoreEMAAlign    = "ema_alignment"
	ScoreBreakout    = "breakout"
	ScoreAntiChase   = "anti_chase"
	ScoreVolume      = "volume"
	ScoreBody        = "candle_body"
	ScoreRegime      = "regime_match"
	ScoreRelStrength = "relative_strength"
)

// ScoreBreakdown is the composite 0-100 score plus its named component
// contributions in points.
type ScoreBreakdown struct {
	Composite  int                `json:"composite"`
	Components map[string]float64 `json:"components"`
}

// CandidateSignal is a scored entry candidate produced by a scan.
type CandidateSignal struct {
	Symbol      string         `json:"symbol"`
	Direction   string         `json:"direction"`
	Path        string         `json:"path"`
	Entry       float64        `json:"entry"`
	ATR         float64        `json:"atr"`
	Snapshot    EntrySnapshot  `json:"snapshot"`
	RelStrength float64        `json:"rel_strength"` // vs benchmark, fractional
	Score       int            `json:"score"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	Rank        int            `json:"rank"` // position in the pair universe
}

// Key returns the dedup key for this signal.
func (s CandidateSignal) Key() string {
	return SignalKey(s.Symbol, s.Direction)
}

// SignalKey builds the (symbol, direction) dedup key.
func SignalKey(symbol, direction string) string {
	return symbol + "_" + direction
}

// ScanMetadata describes a completed scan cycle.
type ScanMetadata struct {
	PairsScanned int `json:"pairs_scanned"`
	PassedRegime int `json:"filtered_count"`
	SignalsFound int `json:"signals_found"`
}

// ScanResult bundles the ranked signals with the scan statistics.
type ScanResult struct {
	Signals  []CandidateSignal `json:"signals"`
	Metadata ScanMetadata      `json:"metadata"`
}
