package scanner

import (
	"context"
	"math"

	"borsihai/config"
	"borsihai/internal/indicator"
	"borsihai/models"
)

// Indicator parameters shared by the detector and the monitor. These
// match the charting defaults the signals were tuned against.
const (
	regimeEMAPeriod = 200
	emaFastPeriod   = 20
	emaSlowPeriod   = 50
	macdFast        = 12
	macdSlow        = 26
	macdSignal      = 9
	atrPeriod       = 14

	regimeCandleLimit = 210
	entryCandleLimit  = 150

	minRegimeClosed = 201
	minEntryClosed  = 100
)

// Detector runs the two-stage trend + entry filter over one symbol.
type Detector struct {
	market MarketData
	cfg    *config.Config
}

// NewDetector creates a detector bound to a market data source.
func NewDetector(market MarketData, cfg *config.Config) *Detector {
	return &Detector{market: market, cfg: cfg}
}

// Regime fetches the 4H series and classifies the higher-timeframe
// trend: LONG when the last closed candle settled above its EMA-200,
// SHORT when below. Returns "" when history is too short or the close
// sits exactly on the EMA.
func (d *Detector) Regime(ctx context.Context, symbol string) (string, error) {
	candles, err := d.market.Candles(ctx, symbol, "4h", regimeCandleLimit)
	if err != nil {
		return "", err
	}

	if len(candles) == 0 {
		return "", nil
	}

	// The final candle is still forming and is excluded everywhere.
	closed := candles[:len(candles)-1]
	if len(closed) < minRegimeClosed {
		return "", nil
	}

	ema := indicator.EMASeries(indicator.Closes(closed), regimeEMAPeriod)
	last := len(closed) - 1
	if !indicator.Defined(ema[last]) {
		return "", nil
	}

	switch {
	case closed[last].Close > ema[last]:
		return models.DirectionLong, nil
	case closed[last].Close < ema[last]:
		return models.DirectionShort, nil
	default:
		return "", nil
	}
}

// Entry runs the 1H entry filter against regime and returns a candidate
// snapshot, or nil when no acceptable setup exists on the last closed
// candle.
func (d *Detector) Entry(ctx context.Context, symbol, regime string) (*models.EntrySnapshot, error) {
	candles, err := d.market.Candles(ctx, symbol, "1h", entryCandleLimit)
	if err != nil {
		return nil, err
	}

	if len(candles) == 0 {
		return nil, nil
	}
	closed := candles[:len(candles)-1]
	if len(closed) < minEntryClosed {
		return nil, nil
	}

	closes := indicator.Closes(closed)
	ema20 := indicator.EMASeries(closes, emaFastPeriod)
	ema50 := indicator.EMASeries(closes, emaSlowPeriod)
	_, _, hist := indicator.MACDSeries(closes, macdFast, macdSlow, macdSignal)
	atr := indicator.ATR(closed, atrPeriod)

	i := len(closed) - 1
	if !indicator.Defined(hist[i], hist[i-1], ema20[i], ema50[i], atr) {
		return nil, nil
	}

	var direction string
	switch {
	case hist[i] > 0:
		direction = models.DirectionLong
	case hist[i] < 0:
		direction = models.DirectionShort
	default:
		return nil, nil
	}

	persistence := histPersistence(hist, i)

	// Momentum delta in the favorable direction: for longs a rising
	// histogram, for shorts a falling one.
	deltaRanks := favorableDeltaRanks(hist, i, direction, d.cfg.DeltaWindow)
	if len(deltaRanks) == 0 || !indicator.Defined(deltaRanks[len(deltaRanks)-1]) {
		return nil, nil
	}
	deltaPct := deltaRanks[len(deltaRanks)-1]

	magPct := magnitudeRank(hist, i, d.cfg.DeltaWindow)
	volPct := volumeRank(closed, i, d.cfg.VolumeWindow)
	if !indicator.Defined(magPct, volPct) {
		return nil, nil
	}

	breakout := hasBreakout(closed, i, direction, d.cfg.BreakoutLookback)
	body := bodyRatio(closed[i])

	snap := &models.EntrySnapshot{
		Direction:           direction,
		Regime:              regime,
		Price:               closed[i].Close,
		ATR:                 atr,
		EMA20:               ema20[i],
		EMA50:               ema50[i],
		Persistence:         persistence,
		DeltaPercentile:     deltaPct,
		MagnitudePercentile: magPct,
		VolumePercentile:    volPct,
		BodyRatio:           body,
		Breakout:            breakout,
	}

	if direction == regime {
		if persistence < d.cfg.TrendMinPersistence {
			return nil, nil
		}
		return snap, nil
	}

	// Counter-trend entries fight the 4H regime, so the bar is much
	// higher: sustained momentum, a top-decile impulse in the recent
	// delta history, price already through the local EMA-50, a range
	// breakout and above-average participation.
	if persistence < d.cfg.CounterMinPersistence {
		return nil, nil
	}
	meanRank := meanDeltaRank(hist, i, direction, d.cfg.DeltaWindow)
	if !counterDeltaGate(deltaRanks, meanRank, d.cfg.DeltaTopPercentile, d.cfg.DeltaMeanPercentile) {
		return nil, nil
	}
	if direction == models.DirectionLong && closed[i].Close <= ema50[i] {
		return nil, nil
	}
	if direction == models.DirectionShort && closed[i].Close >= ema50[i] {
		return nil, nil
	}
	if !breakout {
		return nil, nil
	}
	if volPct < d.cfg.MinVolumePercentile {
		return nil, nil
	}
	return snap, nil
}

// histPersistence counts consecutive closed bars sharing the histogram
// sign at index i, including i itself.
func histPersistence(hist []float64, i int) int {
	sign := math.Signbit(hist[i])
	count := 0
	for j := i; j >= 0; j-- {
		if !indicator.Defined(hist[j]) || hist[j] == 0 || math.Signbit(hist[j]) != sign {
			break
		}
		count++
	}
	return count
}

// favorableDelta is the bar-over-bar histogram change at j, signed so
// that positive always means "in the trade's favor".
func favorableDelta(hist []float64, j int, direction string) float64 {
	d := hist[j] - hist[j-1]
	if direction == models.DirectionShort {
		d = -d
	}
	return d
}

// deltaWindow collects the defined favorable deltas trailing bar i.
func deltaWindow(hist []float64, i int, direction string, window int) []float64 {
	start := i - window
	if start < 1 {
		start = 1
	}
	trailing := make([]float64, 0, i-start)
	for k := start; k < i; k++ {
		if indicator.Defined(hist[k], hist[k-1]) {
			trailing = append(trailing, favorableDelta(hist, k, direction))
		}
	}
	return trailing
}

// favorableDeltaRanks computes the percentile rank of the favorable
// histogram delta for each of the last three closed bars, each ranked
// against its own trailing window. The last element belongs to bar i.
func favorableDeltaRanks(hist []float64, i int, direction string, window int) []float64 {
	ranks := make([]float64, 0, 3)
	for j := i - 2; j <= i; j++ {
		if j < 1 {
			continue
		}
		trailing := deltaWindow(hist, j, direction, window)
		ranks = append(ranks, indicator.PercentileRank(trailing, favorableDelta(hist, j, direction)))
	}
	return ranks
}

// meanDeltaRank ranks the mean of the last three favorable deltas
// against bar i's trailing delta window. One large impulse with flat
// follow-through still carries the mean, which is the point: the gate
// measures the impulse, not rank averages.
func meanDeltaRank(hist []float64, i int, direction string, window int) float64 {
	if i < 3 {
		return math.NaN()
	}
	sum := 0.0
	for j := i - 2; j <= i; j++ {
		if !indicator.Defined(hist[j], hist[j-1]) {
			return math.NaN()
		}
		sum += favorableDelta(hist, j, direction)
	}
	return indicator.PercentileRank(deltaWindow(hist, i, direction, window), sum/3)
}

// magnitudeRank ranks the absolute histogram value at i against its
// trailing window.
func magnitudeRank(hist []float64, i, window int) float64 {
	start := i - window
	if start < 0 {
		start = 0
	}
	trailing := make([]float64, 0, i-start)
	for k := start; k < i; k++ {
		if indicator.Defined(hist[k]) {
			trailing = append(trailing, math.Abs(hist[k]))
		}
	}
	return indicator.PercentileRank(trailing, math.Abs(hist[i]))
}

// volumeRank ranks the closed candle's volume against its trailing
// window.
func volumeRank(closed []models.Candle, i, window int) float64 {
	start := i - window
	if start < 0 {
		start = 0
	}
	trailing := make([]float64, 0, i-start)
	for k := start; k < i; k++ {
		trailing = append(trailing, closed[k].Volume)
	}
	return indicator.PercentileRank(trailing, closed[i].Volume)
}

// hasBreakout reports whether the close at i clears the highs (longs)
// or lows (shorts) of the lookback range. The current bar and the one
// before it are excluded from the range so a slow two-bar push does not
// count as its own breakout.
func hasBreakout(closed []models.Candle, i int, direction string, lookback int) bool {
	end := i - 2
	start := i - lookback - 1
	if start < 0 {
		start = 0
	}
	if end < start {
		return false
	}

	if direction == models.DirectionLong {
		highest := math.Inf(-1)
		for j := start; j <= end; j++ {
			if closed[j].High > highest {
				highest = closed[j].High
			}
		}
		return closed[i].Close >= highest
	}

	lowest := math.Inf(1)
	for j := start; j <= end; j++ {
		if closed[j].Low < lowest {
			lowest = closed[j].Low
		}
	}
	return closed[i].Close <= lowest
}

// counterDeltaGate requires a top-decile impulse somewhere in the last
// three favorable deltas, and the mean of those three deltas to itself
// rank high in the trailing delta distribution.
func counterDeltaGate(ranks []float64, meanRank, topPct, meanPct float64) bool {
	if len(ranks) < 3 || !indicator.Defined(meanRank) {
		return false
	}
	anyTop := false
	for _, r := range ranks {
		if !indicator.Defined(r) {
			return false
		}
		if r >= topPct {
			anyTop = true
		}
	}
	return anyTop && meanRank >= meanPct
}

// bodyRatio is the candle body as a fraction of its full range.
func bodyRatio(c models.Candle) float64 {
	rng := c.High - c.Low
	if rng <= 0 {
		return 0
	}
	return math.Abs(c.Close-c.Open) / rng
}
