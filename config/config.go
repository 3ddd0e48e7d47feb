package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries everything the assistant reads from the environment.
// The trading thresholds are empirically chosen heuristics; they are
// kept configurable rather than hardcoded.
type Config struct {
	TelegramToken      string
	SystemdServiceName string

	// Market data
	BinanceBaseURL string
	RequestTimeout time.Duration
	RequestsPerSec int

	// Universe / persistence
	PairsFile string
	StateFile string
	TradeLog  string
	LogDir    string
	LogLevel  string

	// Position sizing and lifecycle
	MaxPositions    int
	PositionSizePct float64 // fraction of equity per position
	ATRMultiplier   float64 // SL = entry -/+ ATR * multiplier
	TP1RRRatio      float64 // TP1 at this multiple of initial risk
	RoundTripFeePct float64 // fee assumption in percent, e.g. 0.2
	BreakEvenPct    float64 // break-even stop offset, e.g. 0.002
	DenialCap       int

	// Detector thresholds
	TrendMinPersistence   int
	CounterMinPersistence int
	DeltaTopPercentile    float64 // "top decile" gate
	DeltaMeanPercentile   float64 // mean-of-last-3 gate
	MinVolumePercentile   float64
	BreakoutLookback      int
	DeltaWindow           int
	VolumeWindow          int

	// Postgres trade-log sink (optional, enabled when host is set)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// Load reads the configuration from the environment. godotenv is
// expected to have populated it already when a .env file exists.
func Load() *Config {
	return &Config{
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		SystemdServiceName: getEnvStr("SYSTEMD_SERVICE_NAME", "borsihai"),

		BinanceBaseURL: getEnvStr("BINANCE_BASE_URL", "https://api.binance.com"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT", 30)) * time.Second,
		RequestsPerSec: getEnvInt("REQUESTS_PER_SEC", 10),

		PairsFile: getEnvStr("PAIRS_FILE", "pairs.txt"),
		StateFile: getEnvStr("STATE_FILE", "state.json"),
		TradeLog:  getEnvStr("TRADE_LOG_FILE", "trades.jsonl"),
		LogDir:    getEnvStr("BOT_LOG_DIR", "./logs"),
		LogLevel:  getEnvStr("LOG_LEVEL", "info"),

		MaxPositions:    getEnvInt("MAX_POSITIONS", 5),
		PositionSizePct: getEnvFloat("POSITION_SIZE_PCT", 0.20),
		ATRMultiplier:   getEnvFloat("ATR_MULTIPLIER", 2.0),
		TP1RRRatio:      getEnvFloat("TP1_RR_RATIO", 1.5),
		RoundTripFeePct: getEnvFloat("ROUND_TRIP_FEE_PCT", 0.2),
		BreakEvenPct:    getEnvFloat("BREAK_EVEN_PCT", 0.002),
		DenialCap:       getEnvInt("DENIAL_CAP", 2),

		TrendMinPersistence:   getEnvInt("TREND_MIN_PERSISTENCE", 2),
		CounterMinPersistence: getEnvInt("COUNTER_MIN_PERSISTENCE", 3),
		DeltaTopPercentile:    getEnvFloat("DELTA_TOP_PERCENTILE", 90),
		DeltaMeanPercentile:   getEnvFloat("DELTA_MEAN_PERCENTILE", 70),
		MinVolumePercentile:   getEnvFloat("MIN_VOLUME_PERCENTILE", 70),
		BreakoutLookback:      getEnvInt("BREAKOUT_LOOKBACK", 12),
		DeltaWindow:           getEnvInt("DELTA_WINDOW", 50),
		VolumeWindow:          getEnvInt("VOLUME_WINDOW", 21),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnvStr("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnvStr("DB_SSLMODE", "disable"),
	}
}

// FormatPrice formats a price adaptively across magnitudes, so both
// BTC and sub-cent alts stay readable.
func FormatPrice(price float64) string {
	abs := price
	if abs < 0 {
		abs = -abs
	}
	switch {
	case price == 0:
		return "$0"
	case abs >= 1.0:
		return fmt.Sprintf("$%.2f", price)
	case abs >= 0.01:
		return fmt.Sprintf("$%.4f", price)
	case abs >= 0.0001:
		return fmt.Sprintf("$%.6f", price)
	default:
		return fmt.Sprintf("$%.8f", price)
	}
}

func getEnvStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultVal
	}
	return value
}

func getEnvFloat(key string, defaultVal float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultVal
	}
	return value
}
