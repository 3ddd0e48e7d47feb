package scanner

import (
	"math"
	"testing"

	"borsihai/config"
	"borsihai/models"
)

func testConfig() *config.Config {
	return config.Load()
}

func strongLongSnapshot() models.EntrySnapshot {
	return models.EntrySnapshot{
		Direction:           models.DirectionLong,
		Regime:              models.DirectionLong,
		Price:               65000,
		ATR:                 1500,
		EMA20:               64500,
		EMA50:               63000,
		Persistence:         3,
		DeltaPercentile:     95,
		MagnitudePercentile: 90,
		VolumePercentile:    85,
		BodyRatio:           0.8,
		Breakout:            true,
	}
}

func TestScoreBounds(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name string
		snap models.EntrySnapshot
		rel  float64
	}{
		{"Strong aligned long", strongLongSnapshot(), 0.06},
		{"Weak countertrend", models.EntrySnapshot{
			Direction: models.DirectionShort,
			Regime:    models.DirectionLong,
			Price:     100, ATR: 1, EMA20: 95, EMA50: 90,
			Persistence: 1,
		}, -0.2},
		{"Zero snapshot", models.EntrySnapshot{Direction: models.DirectionLong, Regime: models.DirectionShort}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bd := Score(tt.snap, tt.rel, cfg)
			if bd.Composite < 0 || bd.Composite > 100 {
				t.Errorf("composite = %d, want within [0,100]", bd.Composite)
			}

			sum := 0.0
			for _, v := range bd.Components {
				sum += v
			}
			if sum < 0 {
				sum = 0
			}
			if sum > 100 {
				sum = 100
			}
			if got := int(math.Round(sum)); got != bd.Composite {
				t.Errorf("components sum to %d, composite is %d", got, bd.Composite)
			}
		})
	}
}

func TestScorePersistenceSaturates(t *testing.T) {
	cfg := testConfig()

	snap := strongLongSnapshot()
	snap.Persistence = 3
	at3 := Score(snap, 0, cfg).Components[models.ScorePersistence]
	snap.Persistence = 8
	at8 := Score(snap, 0, cfg).Components[models.ScorePersistence]

	if at3 != 12 {
		t.Errorf("persistence points at 3 bars = %v, want 12", at3)
	}
	if at8 != at3 {
		t.Errorf("persistence points at 8 bars = %v, want capped at %v", at8, at3)
	}
}

func TestScorePersistenceMonotonic(t *testing.T) {
	cfg := testConfig()
	snap := strongLongSnapshot()

	prev := -1.0
	for p := 0; p <= 3; p++ {
		snap.Persistence = p
		pts := Score(snap, 0, cfg).Components[models.ScorePersistence]
		if pts <= prev {
			t.Errorf("persistence points not increasing at %d bars: %v <= %v", p, pts, prev)
		}
		prev = pts
	}
}

func TestScoreRegimeMatch(t *testing.T) {
	cfg := testConfig()

	snap := strongLongSnapshot()
	with := Score(snap, 0, cfg)
	snap.Regime = models.DirectionShort
	without := Score(snap, 0, cfg)

	if with.Components[models.ScoreRegime] != 10 {
		t.Errorf("regime points = %v, want 10 when aligned", with.Components[models.ScoreRegime])
	}
	if without.Components[models.ScoreRegime] != 0 {
		t.Errorf("regime points = %v, want 0 when fighting the regime", without.Components[models.ScoreRegime])
	}
}

func TestScoreRelStrength(t *testing.T) {
	tests := []struct {
		name      string
		direction string
		rel       float64
		want      float64
	}{
		{"Long outperformer maxes", models.DirectionLong, 0.08, 5},
		{"Long underperformer zeroes", models.DirectionLong, -0.08, 0},
		{"Long neutral halves", models.DirectionLong, 0, 2.5},
		{"Short rewards weakness", models.DirectionShort, -0.08, 5},
		{"Short punishes strength", models.DirectionShort, 0.08, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relStrengthPoints(tt.direction, tt.rel); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("relStrengthPoints = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAntiChase(t *testing.T) {
	snap := strongLongSnapshot()
	snap.ATR = 100

	tests := []struct {
		name  string
		price float64
		want  float64
	}{
		{"On the EMA", snap.EMA20, 5},
		{"One ATR away", snap.EMA20 + 100, 5},
		{"Past one and a half ATR", snap.EMA20 + 200, 0},
		{"Midway decays", snap.EMA20 + 125, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := snap
			s.Price = tt.price
			if got := antiChase(s); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("antiChase = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{95, "🔥"}, {80, "🔥"}, {79, "💪"}, {60, "💪"},
		{59, "📊"}, {40, "📊"}, {39, "⚠️"}, {20, "⚠️"}, {19, "❄️"}, {0, "❄️"},
	}
	for _, tt := range tests {
		if got := Label(tt.score); got != tt.want {
			t.Errorf("Label(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestBar(t *testing.T) {
	if got := Bar(0); got != "░░░░░░░░░░" {
		t.Errorf("Bar(0) = %s", got)
	}
	if got := Bar(100); got != "██████████" {
		t.Errorf("Bar(100) = %s", got)
	}
	if got := Bar(73); got != "███████░░░" {
		t.Errorf("Bar(73) = %s", got)
	}
}
