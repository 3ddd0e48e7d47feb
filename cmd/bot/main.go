package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"borsihai/config"
	"borsihai/internal/bot"
	"borsihai/internal/logging"
	"borsihai/internal/market"
	"borsihai/internal/position"
	"borsihai/internal/scanner"
	"borsihai/internal/state"
	"borsihai/internal/tradelog"
)

func main() {
	// In production the environment comes from systemd, not a .env file.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogDir)

	if cfg.TelegramToken == "" {
		logger.Fatal().Msg("TELEGRAM_TOKEN not set in environment")
	}

	client := market.NewClient(market.ClientOptions{
		BaseURL:        cfg.BinanceBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		RequestsPerSec: cfg.RequestsPerSec,
	})

	trades := tradelog.MultiLog{tradelog.NewFileLog(cfg.TradeLog)}
	if cfg.DBHost != "" {
		pg, err := tradelog.NewPostgresLog(tradelog.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize trade log database")
		}
		defer pg.Close()
		trades = append(trades, pg)
	}

	store := state.NewStore(cfg.StateFile)
	ledger := position.NewLedger(cfg, trades)
	monitor := position.NewMonitor(client, cfg)
	sc := scanner.New(client, cfg)

	b, err := bot.New(cfg, client, sc, monitor, ledger, store)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b.Run(ctx)
	logger.Info().Msg("Shutdown complete")
}
