// Package bot is the Telegram surface: it delivers scan alerts and
// lifecycle prompts, and replays the user's button presses against the
// portfolio ledger.
package bot

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"borsihai/config"
	"borsihai/internal/position"
	"borsihai/internal/scanner"
	"borsihai/internal/schedule"
	"borsihai/internal/state"
	"borsihai/models"
)

// Market is the full exchange surface the bot needs.
type Market interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	LastPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Bot wires the scanner, monitor and ledger behind a Telegram chat.
// All state access goes through mu; the scheduler jobs and the update
// loop run concurrently.
type Bot struct {
	api     *tgbotapi.BotAPI
	cfg     *config.Config
	market  Market
	scanner *scanner.Scanner
	monitor *position.Monitor
	ledger  *position.Ledger
	store   *state.Store

	mu     sync.Mutex
	st     *models.PortfolioState
	logger zerolog.Logger
}

// New authorizes against Telegram and loads the persisted portfolio.
func New(cfg *config.Config, mkt Market, sc *scanner.Scanner, mon *position.Monitor, led *position.Ledger, store *state.Store) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("authorizing Telegram bot: %w", err)
	}

	st, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading portfolio state: %w", err)
	}

	b := &Bot{
		api:     api,
		cfg:     cfg,
		market:  mkt,
		scanner: sc,
		monitor: mon,
		ledger:  led,
		store:   store,
		st:      st,
		logger:  log.With().Str("component", "bot").Logger(),
	}
	b.logger.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")
	return b, nil
}

// Run starts the scheduler and blocks on the Telegram update loop
// until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	sched := schedule.New(b.runScan, b.runMonitor)
	go sched.Run(ctx)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}
	chatID := message.Chat.ID

	// Any command registers the chat, so alerts survive a lost /start.
	b.mu.Lock()
	if b.st.ChatID != chatID {
		b.st.ChatID = chatID
		b.saveLocked()
	}
	b.mu.Unlock()

	switch message.Command() {
	case "start":
		b.reply(chatID, "👋 Swing assistant online. Alerts will land here.\n\n"+helpText)

	case "help":
		b.reply(chatID, helpText)

	case "status":
		b.mu.Lock()
		symbols := make([]string, len(b.st.Positions))
		for i, p := range b.st.Positions {
			symbols[i] = p.Symbol
		}
		b.mu.Unlock()

		prices, err := b.market.LastPrices(ctx, symbols)
		if err != nil {
			b.logger.Warn().Err(err).Msg("Ticker fetch failed for status")
			prices = map[string]float64{}
		}

		b.mu.Lock()
		text := statusMessage(b.st, prices)
		b.mu.Unlock()
		b.reply(chatID, text)

	case "afk":
		b.setMode(models.ModePaused)

		b.mu.Lock()
		symbols := make([]string, len(b.st.Positions))
		for i, p := range b.st.Positions {
			symbols[i] = p.Symbol
		}
		b.mu.Unlock()

		prices, err := b.market.LastPrices(ctx, symbols)
		if err != nil {
			b.logger.Warn().Err(err).Msg("Ticker fetch failed for afk levels")
			prices = map[string]float64{}
		}

		b.mu.Lock()
		text := afkMessage(b.st, prices)
		b.mu.Unlock()
		b.reply(chatID, text)

	case "ready":
		b.setMode(models.ModeReady)
		b.reply(chatID, "🟢 Back in business. Scans resume on schedule.")

	case "scan":
		b.reply(chatID, "🔍 Scanning now...")
		go b.runScan(ctx)

	case "restart":
		b.reply(chatID, "♻️ Restarting the service...")
		cmd := exec.Command("sudo", "systemctl", "restart", b.cfg.SystemdServiceName)
		if err := cmd.Run(); err != nil {
			b.logger.Error().Err(err).Msg("Service restart failed")
			b.reply(chatID, "Restart failed, check the logs.")
		}

	default:
		b.reply(chatID, "Unknown command. Try /help.")
	}
}

// handleCallback replays a button press against the ledger. A panic in
// an action handler must not take down the update loop.
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	var chatID int64
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Str("data", callback.Data).Msg("Callback handler panicked")
			b.reply(chatID, "Something went wrong handling that action, check the logs.")
		}
	}()

	// Telegram omits the source message on stale callbacks; there is
	// nothing to act on or edit then.
	if callback.Message == nil {
		b.logger.Warn().Str("data", callback.Data).Msg("Callback without source message")
		return
	}
	chatID = callback.Message.Chat.ID

	b.api.Request(tgbotapi.NewCallback(callback.ID, ""))

	intent, err := DecodeAction(callback.Data)
	if err != nil {
		b.logger.Warn().Err(err).Str("data", callback.Data).Msg("Undecodable callback")
		return
	}

	result := b.applyIntent(ctx, intent)
	edit := tgbotapi.NewEditMessageText(chatID, callback.Message.MessageID, callback.Message.Text+"\n\n"+result)
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn().Err(err).Msg("Message edit failed")
	}
}

// applyIntent performs the confirmed action and returns the line
// appended to the prompt message.
func (b *Bot) applyIntent(ctx context.Context, in models.ActionIntent) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	defer b.saveLocked()

	switch in.Kind {
	case models.ActionOpen:
		entry, err := b.livePrice(ctx, in.Symbol)
		if err != nil {
			return "⚠️ Could not fetch the current price, try again."
		}
		pos, err := b.ledger.Open(b.st, in.Symbol, in.Side, in.Path, entry, in.ATR)
		switch err {
		case nil:
			return fmt.Sprintf("✅ Opened at %s. SL %s, TP1 %s.",
				config.FormatPrice(pos.EntryPrice), config.FormatPrice(pos.StopLoss), config.FormatPrice(pos.TP1Price))
		case position.ErrMaxPositions:
			return "⚠️ Position limit reached, not opened."
		case position.ErrInsufficientCash:
			return "⚠️ Not enough available cash, not opened."
		default:
			return "⚠️ Open failed, check the logs."
		}

	case models.ActionIgnore:
		// Clearing the dedup key lets the setup alert again if it is
		// still there next scan.
		delete(b.st.SentSignals, models.SignalKey(in.Symbol, in.Side))
		return "🚫 Ignored."

	case models.ActionStopClosed:
		pos := b.st.FindPosition(in.Symbol)
		if pos == nil {
			return "⚠️ Position not found."
		}
		pnl, err := b.ledger.FullClose(b.st, in.Symbol, pos.StopLoss)
		if err != nil {
			return "⚠️ Close failed, check the logs."
		}
		return fmt.Sprintf("✅ Closed at the stop. P&L %s.", config.FormatPrice(pnl))

	case models.ActionStopDenied:
		if err := b.ledger.Deny(b.st, in.Symbol); err != nil {
			return "⚠️ Position not found."
		}
		return "👌 Kept open."

	case models.ActionHalfClose:
		pos := b.st.FindPosition(in.Symbol)
		if pos == nil {
			return "⚠️ Position not found."
		}
		if err := b.ledger.PartialClose(b.st, in.Symbol, pos.TP1Price); err != nil {
			return "⚠️ Half-close failed, check the logs."
		}
		return fmt.Sprintf("✅ Half closed at TP1. Stop moved to %s.", config.FormatPrice(pos.StopLoss))

	case models.ActionExitClosed:
		exit, err := b.livePrice(ctx, in.Symbol)
		if err != nil {
			return "⚠️ Could not fetch the current price, try again."
		}
		pnl, err := b.ledger.FullClose(b.st, in.Symbol, exit)
		if err != nil {
			return "⚠️ Close failed, check the logs."
		}
		return fmt.Sprintf("✅ Closed at %s. P&L %s.", config.FormatPrice(exit), config.FormatPrice(pnl))
	}
	return "⚠️ Unknown action."
}

func (b *Bot) livePrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.market.LastPrices(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	p, ok := prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no ticker for %s", symbol)
	}
	return p, nil
}

func (b *Bot) setMode(mode string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st.Mode = mode
	b.saveLocked()
}

// saveLocked persists the state; b.mu must be held.
func (b *Bot) saveLocked() {
	if err := b.store.Save(b.st); err != nil {
		b.logger.Error().Err(err).Msg("State save failed")
	}
}

// reply sends plain Markdown text to a chat.
func (b *Bot) reply(chatID int64, text string) {
	if chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn().Err(err).Msg("Message send failed")
	}
}
