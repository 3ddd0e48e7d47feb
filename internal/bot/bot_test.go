package bot

import (
	"context"
	"path/filepath"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"borsihai/config"
	"borsihai/internal/position"
	"borsihai/internal/state"
	"borsihai/models"
)

type nopLog struct{}

func (nopLog) Append(models.TradeRecord) {}

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	cfg := config.Load()
	return &Bot{
		cfg:    cfg,
		ledger: position.NewLedger(cfg, nopLog{}),
		store:  state.NewStore(filepath.Join(t.TempDir(), "state.json")),
		st:     state.Default(),
		logger: log.With().Str("component", "bot").Logger(),
	}
}

func TestApplyIntentIgnoreClearsDedupKey(t *testing.T) {
	b := newTestBot(t)
	key := models.SignalKey("BTCUSDT", models.DirectionLong)
	b.st.SentSignals[key] = "2026-08-28T12:00:00Z"

	intent := models.ActionIntent{Kind: models.ActionIgnore, Symbol: "BTCUSDT", Side: models.DirectionLong, Path: models.PathTrend}
	if got := b.applyIntent(context.Background(), intent); got != "🚫 Ignored." {
		t.Errorf("applyIntent = %q", got)
	}

	// The cleared key lets the setup alert again if it is still
	// detected next scan.
	if _, ok := b.st.SentSignals[key]; ok {
		t.Error("dedup key still present after ignore")
	}
}

func TestApplyIntentDenyCounts(t *testing.T) {
	b := newTestBot(t)
	if _, err := b.ledger.Open(b.st, "BTCUSDT", models.DirectionLong, models.PathTrend, 65000, 1500); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	intent := models.ActionIntent{Kind: models.ActionStopDenied, Symbol: "BTCUSDT", Side: models.DirectionLong}
	b.applyIntent(context.Background(), intent)
	b.applyIntent(context.Background(), intent)

	if got := b.st.FindPosition("BTCUSDT").DenialCount; got != 2 {
		t.Errorf("denial count = %d, want 2", got)
	}
}

func TestHandleCallbackWithoutMessage(t *testing.T) {
	b := newTestBot(t)

	// Telegram sends stale callbacks with no source message attached;
	// the handler must survive them with the state untouched.
	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:   "stale",
		Data: "open|LONG|BTCUSDT|1500.0000|TA",
	})

	if len(b.st.Positions) != 0 {
		t.Errorf("positions = %+v, want none after a stale callback", b.st.Positions)
	}
}
