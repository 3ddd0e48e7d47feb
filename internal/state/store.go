package state

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"borsihai/models"
)

// DefaultEquity is the paper-portfolio starting balance.
const DefaultEquity = 25000.0

// Store persists the portfolio state as a single JSON document. Saves
// are atomic: write to a temp file, then rename over the target, so a
// reader never observes a partial write.
type Store struct {
	path   string
	logger zerolog.Logger
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		logger: log.With().Str("component", "state_store").Logger(),
	}
}

// Default returns a fresh portfolio state.
func Default() *models.PortfolioState {
	return &models.PortfolioState{
		Equity:        DefaultEquity,
		AvailableCash: DefaultEquity,
		TiedCapital:   0,
		Mode:          models.ModeReady,
		Positions:     []models.Position{},
		SentSignals:   map[string]string{},
	}
}

// Load reads the persisted state, creating and persisting the default
// when the file does not exist yet.
func (s *Store) Load() (*models.PortfolioState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			st := Default()
			if err := s.Save(st); err != nil {
				return nil, fmt.Errorf("persisting default state: %w", err)
			}
			s.logger.Info().Str("path", s.path).Msg("Created default portfolio state")
			return st, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var st models.PortfolioState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	if st.Positions == nil {
		st.Positions = []models.Position{}
	}
	if st.SentSignals == nil {
		st.SentSignals = map[string]string{}
	}
	return &st, nil
}

// Save durably writes the state via temp file + atomic rename.
func (s *Store) Save(st *models.PortfolioState) error {
	data, err := json.MarshalIndent(st, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
