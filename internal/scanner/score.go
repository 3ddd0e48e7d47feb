package scanner

import (
	"math"
	"strings"

	"borsihai/config"
	"borsihai/models"
)

// Score weighs a snapshot into a 0-100 composite across four pillars:
// momentum (40), structure (25), cleanliness (20) and context (15).
// relStrength is the pair's fractional benchmark-relative move.
func Score(snap models.EntrySnapshot, relStrength float64, cfg *config.Config) models.ScoreBreakdown {
	comp := map[string]float64{}

	// Momentum, up to 40. Persistence saturates at three bars so an
	// old, stretched run does not outrank a fresh one.
	p := snap.Persistence
	if p > 3 {
		p = 3
	}
	comp[models.ScorePersistence] = 12.0 * float64(p) / 3.0
	comp[models.ScoreDelta] = snap.DeltaPercentile / 100.0 * 18.0
	comp[models.ScoreMagnitude] = snap.MagnitudePercentile / 100.0 * 10.0

	// Structure, up to 25.
	comp[models.ScoreEMAAlign] = 0
	if emaAligned(snap) {
		comp[models.ScoreEMAAlign] = 12
	}
	comp[models.ScoreBreakout] = 0
	if snap.Breakout {
		comp[models.ScoreBreakout] = 8
	}
	comp[models.ScoreAntiChase] = antiChase(snap)

	// Cleanliness, up to 20.
	comp[models.ScoreVolume] = snap.VolumePercentile / 100.0 * 12.0
	comp[models.ScoreBody] = clamp01(snap.BodyRatio) * 8.0

	// Context, up to 15.
	comp[models.ScoreRegime] = 0
	if snap.Direction == snap.Regime {
		comp[models.ScoreRegime] = 10
	}
	comp[models.ScoreRelStrength] = relStrengthPoints(snap.Direction, relStrength)

	total := 0.0
	for _, v := range comp {
		total += v
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return models.ScoreBreakdown{
		Composite:  int(math.Round(total)),
		Components: comp,
	}
}

// emaAligned reports full price/EMA20/EMA50 stacking in the trade
// direction.
func emaAligned(snap models.EntrySnapshot) bool {
	if snap.Direction == models.DirectionLong {
		return snap.Price > snap.EMA20 && snap.EMA20 > snap.EMA50
	}
	return snap.Price < snap.EMA20 && snap.EMA20 < snap.EMA50
}

// antiChase awards up to 5 points for entries still close to the EMA20,
// decaying linearly to zero between 1.0 and 1.5 ATR away. Chasing a
// move that already ran gets nothing.
func antiChase(snap models.EntrySnapshot) float64 {
	if snap.ATR <= 0 {
		return 0
	}
	dist := math.Abs(snap.Price-snap.EMA20) / snap.ATR
	switch {
	case dist <= 1.0:
		return 5
	case dist >= 1.5:
		return 0
	default:
		return 5 * (1.5 - dist) / 0.5
	}
}

// relStrengthPoints maps benchmark-relative strength onto 0-5 points,
// clamped at +/-5%. Shorts reward underperformance.
func relStrengthPoints(direction string, rs float64) float64 {
	if direction == models.DirectionShort {
		rs = -rs
	}
	if rs > 0.05 {
		rs = 0.05
	}
	if rs < -0.05 {
		rs = -0.05
	}
	return (rs + 0.05) / 0.10 * 5.0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Label maps a composite score onto the alert quality emoji.
func Label(score int) string {
	switch {
	case score >= 80:
		return "🔥"
	case score >= 60:
		return "💪"
	case score >= 40:
		return "📊"
	case score >= 20:
		return "⚠️"
	default:
		return "❄️"
	}
}

// Bar renders a ten-segment score bar for alert messages.
func Bar(score int) string {
	filled := score / 10
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
