package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"borsihai/models"
)

// ErrMalformedAction marks callback data that does not decode into a
// known intent.
var ErrMalformedAction = errors.New("malformed action data")

var knownKinds = map[string]bool{
	models.ActionOpen:       true,
	models.ActionIgnore:     true,
	models.ActionStopClosed: true,
	models.ActionStopDenied: true,
	models.ActionHalfClose:  true,
	models.ActionExitClosed: true,
}

// EncodeAction packs an intent into Telegram callback data, for
// example "open|LONG|BTCUSDT|1500.0000|TA". Callback data is capped at
// 64 bytes, so the format stays terse.
func EncodeAction(in models.ActionIntent) string {
	return fmt.Sprintf("%s|%s|%s|%.4f|%s", in.Kind, in.Side, in.Symbol, in.ATR, in.Path)
}

// DecodeAction parses callback data back into an intent. All five
// fields must be present and well formed.
func DecodeAction(data string) (models.ActionIntent, error) {
	parts := strings.Split(data, "|")
	if len(parts) != 5 {
		return models.ActionIntent{}, fmt.Errorf("%w: %q", ErrMalformedAction, data)
	}

	kind, side, symbol, atrStr, path := parts[0], parts[1], parts[2], parts[3], parts[4]
	if !knownKinds[kind] {
		return models.ActionIntent{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedAction, kind)
	}
	if side != models.DirectionLong && side != models.DirectionShort {
		return models.ActionIntent{}, fmt.Errorf("%w: unknown side %q", ErrMalformedAction, side)
	}
	if symbol == "" {
		return models.ActionIntent{}, fmt.Errorf("%w: empty symbol", ErrMalformedAction)
	}
	atr, err := strconv.ParseFloat(atrStr, 64)
	if err != nil {
		return models.ActionIntent{}, fmt.Errorf("%w: bad ATR %q", ErrMalformedAction, atrStr)
	}
	if path != "" && path != models.PathTrend && path != models.PathCounterTrend {
		return models.ActionIntent{}, fmt.Errorf("%w: unknown path %q", ErrMalformedAction, path)
	}

	return models.ActionIntent{
		Kind:   kind,
		Symbol: symbol,
		Side:   side,
		Path:   path,
		ATR:    atr,
	}, nil
}
