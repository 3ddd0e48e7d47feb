package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"borsihai/internal/position"
	"borsihai/internal/scanner"
	"borsihai/models"
)

// runScan is the hourly job: sweep the universe, dedupe against what
// the user already saw, and deliver fresh alerts.
func (b *Bot) runScan(ctx context.Context) {
	b.mu.Lock()
	paused := b.st.Mode == models.ModePaused
	chatID := b.st.ChatID
	b.mu.Unlock()
	if paused {
		b.logger.Info().Msg("Paused, skipping scan")
		return
	}

	pairs, err := scanner.LoadPairs(b.cfg.PairsFile)
	if err != nil {
		b.logger.Error().Err(err).Str("path", b.cfg.PairsFile).Msg("Pair universe unreadable")
		return
	}
	if len(pairs) == 0 {
		b.logger.Warn().Str("path", b.cfg.PairsFile).Msg("Pair universe is empty")
	}

	result, err := b.scanner.Scan(ctx, pairs)
	if err != nil {
		b.logger.Error().Err(err).Msg("Scan failed")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Purge dedup keys that are neither live signals nor open
	// positions, so a setup that comes back later alerts again.
	current := map[string]bool{}
	for _, sig := range result.Signals {
		current[sig.Key()] = true
	}
	for _, p := range b.st.Positions {
		current[p.Key()] = true
	}
	for key := range b.st.SentSignals {
		if !current[key] {
			delete(b.st.SentSignals, key)
		}
	}

	sent, skipped := 0, 0
	for _, sig := range result.Signals {
		if b.st.FindPosition(sig.Symbol) != nil {
			skipped++
			continue
		}
		if _, seen := b.st.SentSignals[sig.Key()]; seen {
			skipped++
			continue
		}

		_, stop, tp1 := b.ledger.Levels(sig.Direction, sig.Entry, sig.ATR)
		alloc := b.st.Equity * b.cfg.PositionSizePct
		b.sendAlert(chatID, sig, alloc, stop, tp1)

		b.st.SentSignals[sig.Key()] = time.Now().UTC().Format(time.RFC3339)
		sent++
	}
	b.saveLocked()

	b.reply(chatID, scanSummary(result.Metadata, sent, skipped))
}

// sendAlert delivers one candidate with its confirm/ignore buttons.
func (b *Bot) sendAlert(chatID int64, sig models.CandidateSignal, alloc, stop, tp1 float64) {
	if chatID == 0 {
		b.logger.Warn().Str("symbol", sig.Symbol).Msg("No chat registered, dropping alert")
		return
	}

	open := models.ActionIntent{Kind: models.ActionOpen, Symbol: sig.Symbol, Side: sig.Direction, Path: sig.Path, ATR: sig.ATR}
	ignore := models.ActionIntent{Kind: models.ActionIgnore, Symbol: sig.Symbol, Side: sig.Direction, Path: sig.Path}

	msg := tgbotapi.NewMessage(chatID, signalAlert(sig, alloc, stop, tp1))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Open", EncodeAction(open)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Ignore", EncodeAction(ignore)),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn().Err(err).Str("symbol", sig.Symbol).Msg("Alert send failed")
	}
}

// runMonitor is the five-minute job: walk open positions and forward
// any confirmation prompts.
func (b *Bot) runMonitor(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	requests, changed, err := b.monitor.Check(ctx, b.st)
	if err != nil {
		b.logger.Error().Err(err).Msg("Monitor cycle failed")
		return
	}
	if changed {
		b.saveLocked()
	}

	for _, req := range requests {
		b.sendPrompt(b.st.ChatID, req)
	}
}

// sendPrompt delivers one lifecycle confirmation with its buttons.
func (b *Bot) sendPrompt(chatID int64, req position.Request) {
	if chatID == 0 {
		b.logger.Warn().Str("symbol", req.Symbol).Msg("No chat registered, dropping prompt")
		return
	}

	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(req.Choices))
	for _, c := range req.Choices {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, EncodeAction(c.Intent)))
	}

	msg := tgbotapi.NewMessage(chatID, req.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("Prompt send failed")
	}
}
