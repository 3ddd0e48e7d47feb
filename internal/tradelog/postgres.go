package tradelog

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"borsihai/models"
)

// PostgresLog mirrors the trade log into Postgres for querying across
// restarts. It is an optional second sink next to the file log.
type PostgresLog struct {
	db     *sql.DB
	logger zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters.
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewPostgresLog connects and creates the trade_log table if needed.
func NewPostgresLog(params ConnectionParams) (*PostgresLog, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trade_log (
			id BIGSERIAL PRIMARY KEY,
			action TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			stop DOUBLE PRECISION NOT NULL,
			ts BIGINT NOT NULL,
			pnl DOUBLE PRECISION
		)
	`)
	if err != nil {
		return nil, err
	}

	return &PostgresLog{
		db:     db,
		logger: log.With().Str("component", "trade_log_pg").Logger(),
	}, nil
}

// Append inserts one record. Errors are logged and swallowed.
func (l *PostgresLog) Append(rec models.TradeRecord) {
	var pnl sql.NullFloat64
	if rec.PnL != nil {
		pnl = sql.NullFloat64{Float64: *rec.PnL, Valid: true}
	}

	_, err := l.db.Exec(`
		INSERT INTO trade_log (action, symbol, side, price, stop, ts, pnl)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.Action, rec.Symbol, rec.Side, rec.Price, rec.Stop, rec.Timestamp, pnl)

	if err != nil {
		l.logger.Error().Err(err).Str("symbol", rec.Symbol).Msg("Error inserting trade record")
	}
}

// Close releases the database connection.
func (l *PostgresLog) Close() error {
	return l.db.Close()
}
