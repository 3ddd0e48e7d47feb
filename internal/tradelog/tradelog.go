// Package tradelog appends immutable audit records for every
// capital-affecting transition. Appends are best effort: a failing log
// must never block the authoritative portfolio state.
package tradelog

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"borsihai/models"
)

// Appender receives one record per capital-affecting transition.
type Appender interface {
	Append(rec models.TradeRecord)
}

// FileLog appends JSON-lines records to a local file.
type FileLog struct {
	path   string
	logger zerolog.Logger
}

// NewFileLog creates a file-backed trade log at path.
func NewFileLog(path string) *FileLog {
	return &FileLog{
		path:   path,
		logger: log.With().Str("component", "trade_log").Logger(),
	}
}

// Append writes one record. Errors are logged and swallowed.
func (l *FileLog) Append(rec models.TradeRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		l.logger.Error().Err(err).Msg("Error encoding trade record")
		return
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.logger.Error().Err(err).Str("path", l.path).Msg("Error opening trade log")
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		l.logger.Error().Err(err).Str("path", l.path).Msg("Error appending trade record")
	}
}

// MultiLog fans one record out to several appenders.
type MultiLog []Appender

// Append sends rec to every sink.
func (m MultiLog) Append(rec models.TradeRecord) {
	for _, a := range m {
		a.Append(rec)
	}
}
