package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.MaxPositions != 5 {
		t.Errorf("MaxPositions = %d, want 5", cfg.MaxPositions)
	}
	if cfg.PositionSizePct != 0.20 {
		t.Errorf("PositionSizePct = %v, want 0.20", cfg.PositionSizePct)
	}
	if cfg.ATRMultiplier != 2.0 || cfg.TP1RRRatio != 1.5 {
		t.Errorf("levels = %v/%v, want 2.0/1.5", cfg.ATRMultiplier, cfg.TP1RRRatio)
	}
	if cfg.DenialCap != 2 {
		t.Errorf("DenialCap = %d, want 2", cfg.DenialCap)
	}
	if cfg.TrendMinPersistence != 2 || cfg.CounterMinPersistence != 3 {
		t.Errorf("persistence gates = %d/%d, want 2/3", cfg.TrendMinPersistence, cfg.CounterMinPersistence)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_POSITIONS", "3")
	t.Setenv("ATR_MULTIPLIER", "2.5")
	t.Setenv("MAX_POSITIONS_BAD", "x")

	cfg := Load()
	if cfg.MaxPositions != 3 {
		t.Errorf("MaxPositions = %d, want 3", cfg.MaxPositions)
	}
	if cfg.ATRMultiplier != 2.5 {
		t.Errorf("ATRMultiplier = %v, want 2.5", cfg.ATRMultiplier)
	}
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("MAX_POSITIONS", "lots")
	t.Setenv("POSITION_SIZE_PCT", "")

	cfg := Load()
	if cfg.MaxPositions != 5 {
		t.Errorf("MaxPositions = %d, want default 5 on a bad value", cfg.MaxPositions)
	}
	if cfg.PositionSizePct != 0.20 {
		t.Errorf("PositionSizePct = %v, want default", cfg.PositionSizePct)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{0, "$0"},
		{65000, "$65000.00"},
		{1.5, "$1.50"},
		{0.1234, "$0.1234"},
		{0.00123456, "$0.001235"},
		{0.00001234, "$0.00001234"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.price); got != tt.want {
			t.Errorf("FormatPrice(%v) = %s, want %s", tt.price, got, tt.want)
		}
	}
}
