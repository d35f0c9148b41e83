package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mirrorpit/mirrorpit-backend/internal/engine"
)

// Match is one completed game. Winners and eliminations hang off it so the
// full elimination order survives the lobby being torn down.
type Match struct {
	ID           uint   `gorm:"primaryKey"`
	Code         string `gorm:"index"`
	Rounds       int
	PlayerCount  int
	SuddenDeath  bool
	Winners      []MatchWinner      `gorm:"constraint:OnDelete:CASCADE"`
	Eliminations []MatchElimination `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
}

type MatchWinner struct {
	ID       uint `gorm:"primaryKey"`
	MatchID  uint `gorm:"index"`
	PlayerID string
}

type MatchElimination struct {
	ID       uint `gorm:"primaryKey"`
	MatchID  uint `gorm:"index"`
	PlayerID string
	Round    int
}

// Store archives finished matches in postgres. It satisfies lobby.Recorder.
type Store struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the match tables.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an existing gorm handle and migrates the match tables.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if err := db.AutoMigrate(&Match{}, &MatchWinner{}, &MatchElimination{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordResult persists a finished game.
func (s *Store) RecordResult(ctx context.Context, code string, final engine.State) error {
	if final.Phase != engine.PhaseEnd {
		return fmt.Errorf("refusing to archive unfinished game in phase %s", final.Phase)
	}

	m := toMatch(code, final)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to archive match %s: %w", code, err)
	}
	return nil
}

func toMatch(code string, final engine.State) Match {
	m := Match{
		Code:        code,
		Rounds:      final.Round,
		PlayerCount: len(final.Players) + countDeparted(final),
		SuddenDeath: final.SuddenDeath,
	}
	for _, id := range final.Winners {
		m.Winners = append(m.Winners, MatchWinner{PlayerID: id})
	}
	for _, e := range final.Eliminations {
		m.Eliminations = append(m.Eliminations, MatchElimination{PlayerID: e.PlayerID, Round: e.Round})
	}
	return m
}

// countDeparted counts eliminated players that also left the roster, so the
// head count reflects everyone who actually played.
func countDeparted(final engine.State) int {
	n := 0
	for _, e := range final.Eliminations {
		if _, ok := final.Players[e.PlayerID]; !ok {
			n++
		}
	}
	return n
}
