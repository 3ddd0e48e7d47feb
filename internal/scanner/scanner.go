// Package scanner runs the periodic market sweep: a 4H regime filter,
// a 1H entry filter and a composite scorer, fanned out across the pair
// universe.
package scanner

import (
	"bufio"
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"borsihai/config"
	"borsihai/internal/indicator"
	"borsihai/models"
)

// MarketData is the slice of the exchange client the scanner needs.
type MarketData interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
}

// benchmarkSymbol anchors relative strength for the whole universe.
const benchmarkSymbol = "BTCUSDT"

// maxSignals caps how many ranked candidates one scan reports.
const maxSignals = 10

// Scanner sweeps the pair universe and returns ranked candidates.
type Scanner struct {
	market   MarketData
	detector *Detector
	cfg      *config.Config
	logger   zerolog.Logger
}

// New creates a scanner over the given market data source.
func New(market MarketData, cfg *config.Config) *Scanner {
	return &Scanner{
		market:   market,
		detector: NewDetector(market, cfg),
		cfg:      cfg,
		logger:   log.With().Str("component", "scanner").Logger(),
	}
}

// Scan runs one full sweep over pairs. Per-pair failures are logged and
// skipped; the result metadata is always populated, even for an empty
// universe.
func (s *Scanner) Scan(ctx context.Context, pairs []string) (*models.ScanResult, error) {
	result := &models.ScanResult{
		Signals:  []models.CandidateSignal{},
		Metadata: models.ScanMetadata{PairsScanned: len(pairs)},
	}
	if len(pairs) == 0 {
		return result, nil
	}

	benchPct, err := s.benchmarkChange(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Benchmark unavailable, relative strength neutral")
		benchPct = 0
	}

	// Stage 1: regime classification, one goroutine per pair writing
	// into its own slot.
	regimes := make([]string, len(pairs))
	var wg sync.WaitGroup
	for idx, symbol := range pairs {
		wg.Add(1)
		go func(idx int, symbol string) {
			defer wg.Done()
			regime, err := s.detector.Regime(ctx, symbol)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Regime check failed")
				return
			}
			regimes[idx] = regime
		}(idx, symbol)
	}
	wg.Wait()

	type slot struct {
		signal *models.CandidateSignal
	}

	passed := 0
	slots := make([]slot, len(pairs))
	for idx, symbol := range pairs {
		regime := regimes[idx]
		if regime == "" {
			continue
		}
		passed++

		wg.Add(1)
		go func(idx int, symbol, regime string, rank int) {
			defer wg.Done()
			sig, err := s.evaluate(ctx, symbol, regime, benchPct, rank)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Entry check failed")
				return
			}
			slots[idx].signal = sig
		}(idx, symbol, regime, idx)
	}
	wg.Wait()
	result.Metadata.PassedRegime = passed

	for _, sl := range slots {
		if sl.signal != nil {
			result.Signals = append(result.Signals, *sl.signal)
		}
	}

	result.Signals, result.Metadata.SignalsFound = rankTruncate(result.Signals)

	s.logger.Info().
		Int("pairs", result.Metadata.PairsScanned).
		Int("passed_regime", result.Metadata.PassedRegime).
		Int("signals", result.Metadata.SignalsFound).
		Msg("Scan complete")
	return result, nil
}

// rankTruncate orders candidates best score first, universe rank
// breaking ties, and caps the report at maxSignals. The returned count
// is the number found before truncation.
func rankTruncate(signals []models.CandidateSignal) ([]models.CandidateSignal, int) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Score != signals[j].Score {
			return signals[i].Score > signals[j].Score
		}
		return signals[i].Rank < signals[j].Rank
	})
	found := len(signals)
	if len(signals) > maxSignals {
		signals = signals[:maxSignals]
	}
	return signals, found
}

// evaluate runs the 1H entry filter and scorer for one regime-passing
// pair.
func (s *Scanner) evaluate(ctx context.Context, symbol, regime string, benchPct float64, rank int) (*models.CandidateSignal, error) {
	snap, err := s.detector.Entry(ctx, symbol, regime)
	if err != nil || snap == nil {
		return nil, err
	}

	pairPct, err := s.recentChange(ctx, symbol)
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", symbol).Msg("Pair change unavailable")
		pairPct = benchPct // neutral relative strength
	}
	rel := pairPct - benchPct

	breakdown := Score(*snap, rel, s.cfg)
	path := models.PathTrend
	if snap.Direction != regime {
		path = models.PathCounterTrend
	}

	return &models.CandidateSignal{
		Symbol:      symbol,
		Direction:   snap.Direction,
		Path:        path,
		Entry:       snap.Price,
		ATR:         snap.ATR,
		Snapshot:    *snap,
		RelStrength: rel,
		Score:       breakdown.Composite,
		Breakdown:   breakdown,
		Rank:        rank,
	}, nil
}

// benchmarkChange returns the benchmark's recent 1H move.
func (s *Scanner) benchmarkChange(ctx context.Context) (float64, error) {
	return s.recentChange(ctx, benchmarkSymbol)
}

// recentChange is the fractional close-to-close change of the last
// closed 1H candle versus the close four bars earlier.
func (s *Scanner) recentChange(ctx context.Context, symbol string) (float64, error) {
	candles, err := s.market.Candles(ctx, symbol, "1h", 10)
	if err != nil {
		return 0, err
	}
	if len(candles) == 0 {
		return 0, nil
	}
	closed := candles[:len(candles)-1]
	if len(closed) < 5 {
		return 0, nil
	}
	last := closed[len(closed)-1].Close
	earlier := closed[len(closed)-5].Close
	if earlier == 0 || !indicator.Defined(last, earlier) {
		return 0, nil
	}
	return (last - earlier) / earlier, nil
}

// LoadPairs reads the pair universe, one symbol per line. Blank lines
// and #-comments are skipped; a missing file yields an empty universe.
func LoadPairs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var pairs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pairs = append(pairs, strings.ToUpper(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}
