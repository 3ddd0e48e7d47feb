package position

import (
	"context"
	"fmt"
	"testing"

	"borsihai/config"
	"borsihai/models"
)

type fakeMarket struct {
	candles map[string][]models.Candle
	prices  map[string]float64
}

func (f *fakeMarket) Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	c, ok := f.candles[symbol+"/"+interval]
	if !ok {
		return nil, fmt.Errorf("no data for %s %s", symbol, interval)
	}
	return c, nil
}

func (f *fakeMarket) LastPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	return f.prices, nil
}

func longPosition() models.Position {
	return models.Position{
		Symbol:           "BTCUSDT",
		Side:             models.DirectionLong,
		Path:             models.PathTrend,
		EntryPrice:       65000,
		AllocatedCapital: 5000,
		InitialRisk:      3000,
		StopLoss:         62000,
		TP1Price:         69500,
	}
}

func fiveMin(low, high, close float64) []models.Candle {
	return []models.Candle{
		{Low: low, High: high, Close: close}, // last closed
		{Low: close, High: close, Close: close},
	}
}

func stateWith(pos models.Position) *models.PortfolioState {
	return &models.PortfolioState{
		Equity:        25000,
		AvailableCash: 20000,
		TiedCapital:   5000,
		Mode:          models.ModeReady,
		Positions:     []models.Position{pos},
		SentSignals:   map[string]string{},
	}
}

func requestKind(req Request) string {
	return req.Choices[0].Intent.Kind
}

func TestCheckStopByWick(t *testing.T) {
	// The closed 5m candle wicked through the stop even though the
	// live price recovered.
	market := &fakeMarket{
		candles: map[string][]models.Candle{"BTCUSDT/5m": fiveMin(61900, 64000, 63500)},
		prices:  map[string]float64{"BTCUSDT": 63500},
	}
	m := NewMonitor(market, config.Load())
	st := stateWith(longPosition())

	requests, _, err := m.Check(context.Background(), st)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(requests))
	}
	if got := requestKind(requests[0]); got != models.ActionStopClosed {
		t.Errorf("request kind = %s, want %s", got, models.ActionStopClosed)
	}
}

func TestCheckStopByLivePrice(t *testing.T) {
	market := &fakeMarket{
		candles: map[string][]models.Candle{"BTCUSDT/5m": fiveMin(62500, 64000, 63000)},
		prices:  map[string]float64{"BTCUSDT": 61500},
	}
	m := NewMonitor(market, config.Load())
	st := stateWith(longPosition())

	requests, _, err := m.Check(context.Background(), st)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if len(requests) != 1 || requestKind(requests[0]) != models.ActionStopClosed {
		t.Fatalf("requests = %+v, want one stop prompt", requests)
	}
}

func TestCheckStopSuppressedAtDenialCap(t *testing.T) {
	market := &fakeMarket{
		candles: map[string][]models.Candle{"BTCUSDT/5m": fiveMin(61900, 64000, 61950)},
		prices:  map[string]float64{"BTCUSDT": 61950},
	}
	m := NewMonitor(market, config.Load())

	pos := longPosition()
	pos.DenialCount = 2
	st := stateWith(pos)

	requests, changed, err := m.Check(context.Background(), st)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if len(requests) != 0 {
		t.Errorf("requests = %+v, want none after two denials", requests)
	}
	if changed {
		t.Error("denial count must not reset while the stop is breached")
	}
	if st.Positions[0].DenialCount != 2 {
		t.Errorf("denial count = %d, want 2", st.Positions[0].DenialCount)
	}
}

func TestCheckDenialResetsOnRecovery(t *testing.T) {
	market := &fakeMarket{
		candles: map[string][]models.Candle{"BTCUSDT/5m": fiveMin(64000, 65000, 64500)},
		prices:  map[string]float64{"BTCUSDT": 64500},
	}
	m := NewMonitor(market, config.Load())

	pos := longPosition()
	pos.DenialCount = 2
	st := stateWith(pos)

	requests, changed, err := m.Check(context.Background(), st)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if len(requests) != 0 {
		t.Errorf("requests = %+v, want none", requests)
	}
	if !changed {
		t.Error("state change not reported after denial reset")
	}
	if st.Positions[0].DenialCount != 0 {
		t.Errorf("denial count = %d, want 0 after recovery", st.Positions[0].DenialCount)
	}
}

func TestCheckTP1ByWick(t *testing.T) {
	market := &fakeMarket{
		candles: map[string][]models.Candle{"BTCUSDT/5m": fiveMin(68000, 69600, 69000)},
		prices:  map[string]float64{"BTCUSDT": 69000},
	}
	m := NewMonitor(market, config.Load())
	st := stateWith(longPosition())

	requests, _, err := m.Check(context.Background(), st)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if len(requests) != 1 || requestKind(requests[0]) != models.ActionHalfClose {
		t.Fatalf("requests = %+v, want one TP1 prompt", requests)
	}
}

func TestCheckStopWinsOverTP1(t *testing.T) {
	// A wild candle that swept both levels: the stop prompt wins.
	market := &fakeMarket{
		candles: map[string][]models.Candle{"BTCUSDT/5m": fiveMin(61900, 69600, 65000)},
		prices:  map[string]float64{"BTCUSDT": 65000},
	}
	m := NewMonitor(market, config.Load())
	st := stateWith(longPosition())

	requests, _, err := m.Check(context.Background(), st)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if len(requests) != 1 || requestKind(requests[0]) != models.ActionStopClosed {
		t.Fatalf("requests = %+v, want the stop prompt only", requests)
	}
}

func TestCheckShortDirections(t *testing.T) {
	pos := models.Position{
		Symbol:     "ETHUSDT",
		Side:       models.DirectionShort,
		EntryPrice: 2000,
		StopLoss:   2100,
		TP1Price:   1850,
	}
	market := &fakeMarket{
		candles: map[string][]models.Candle{"ETHUSDT/5m": fiveMin(1980, 2110, 2050)},
		prices:  map[string]float64{"ETHUSDT": 2050},
	}
	m := NewMonitor(market, config.Load())
	st := stateWith(pos)

	requests, _, err := m.Check(context.Background(), st)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if len(requests) != 1 || requestKind(requests[0]) != models.ActionStopClosed {
		t.Fatalf("requests = %+v, want a short stop prompt on the high wick", requests)
	}
}

func TestCheckNoPositions(t *testing.T) {
	m := NewMonitor(&fakeMarket{}, config.Load())
	st := stateWith(longPosition())
	st.Positions = nil

	requests, changed, err := m.Check(context.Background(), st)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if requests != nil || changed {
		t.Errorf("requests = %v changed = %v, want nothing to do", requests, changed)
	}
}

func TestMomentumCrossFlatSeries(t *testing.T) {
	flat := make([]models.Candle, 50)
	for i := range flat {
		flat[i] = models.Candle{Close: 100, High: 100, Low: 100}
	}
	market := &fakeMarket{candles: map[string][]models.Candle{"BTCUSDT/1h": flat}}
	m := NewMonitor(market, config.Load())

	cross, err := m.momentumCross(context.Background(), "BTCUSDT", models.DirectionLong)
	if err != nil {
		t.Fatalf("momentumCross returned error: %v", err)
	}
	if cross {
		t.Error("flat series must not report a momentum cross")
	}
}
