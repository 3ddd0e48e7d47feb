package indicator

import (
	"math"

	"borsihai/models"
)

// The series functions return values aligned to the input indices, with
// NaN for the warm-up prefix. Callers must treat NaN as "not enough
// history", never as zero.

// Closes extracts the close prices from a candle slice.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// EMASeries computes the exponential moving average of values. The
// first period-1 entries are NaN; the value at period-1 is seeded with
// the simple average of the first period values.
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// MACDSeries computes the MACD line, signal line and histogram over
// closes. Entries before the slow+signal warm-up are NaN.
func MACDSeries(closes []float64, fast, slow, signalPeriod int) (line, signal, hist []float64) {
	n := len(closes)
	line = make([]float64, n)
	signal = make([]float64, n)
	hist = make([]float64, n)

	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)
	for i := 0; i < n; i++ {
		line[i] = fastEMA[i] - slowEMA[i] // NaN propagates through warm-up
		signal[i] = math.NaN()
		hist[i] = math.NaN()
	}

	// The signal line is an EMA of the defined portion of the MACD line.
	start := slow - 1
	if start < 0 || start >= n {
		return line, signal, hist
	}
	sigDefined := EMASeries(line[start:], signalPeriod)
	for i, v := range sigDefined {
		signal[start+i] = v
		hist[start+i] = line[start+i] - v
	}
	return line, signal, hist
}

// ATR computes the average true range over the trailing period,
// Wilder-smoothed, as of the last candle. Returns NaN when the series
// is shorter than period+1 candles.
func ATR(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return math.NaN()
	}

	trueRanges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highPrevClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowPrevClose := math.Abs(candles[i].Low - candles[i-1].Close)
		trueRanges = append(trueRanges, math.Max(highLow, math.Max(highPrevClose, lowPrevClose)))
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += trueRanges[i]
	}
	atr := sum / float64(period)
	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}
	return atr
}

// PercentileRank ranks value against window on a 0-100 scale: the
// fraction of window entries strictly less than value. NaN entries are
// skipped; an empty window yields NaN.
func PercentileRank(window []float64, value float64) float64 {
	if math.IsNaN(value) {
		return math.NaN()
	}
	below, total := 0, 0
	for _, w := range window {
		if math.IsNaN(w) {
			continue
		}
		total++
		if w < value {
			below++
		}
	}
	if total == 0 {
		return math.NaN()
	}
	return float64(below) / float64(total) * 100
}

// Defined reports whether every value is a usable number.
func Defined(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
