package engine

import (
	"errors"
	"fmt"
	"slices"
)

// DefaultMoves is the full move alphabet players pick combos from.
var DefaultMoves = []Move{MoveLeft, MoveRight, MoveJump, MoveSpin, MoveDuck}

// DefaultSuddenDeathMoves is the shrunken alphabet once sudden death latches.
var DefaultSuddenDeathMoves = []Move{MoveLeft, MoveRight, MoveJump}

const (
	DefaultMinPlayers    = 2
	DefaultComboLength   = 3
	DefaultRoundSeconds  = 30
	DefaultRevealSeconds = 5

	// Pressure thresholds on the active-player count.
	DefaultGhostThreshold         = 10
	DefaultSuddenDeathThreshold   = 5
	DefaultSuddenDeathComboLength = 2
)

// Rules are fixed per lobby at creation time and never change for the
// lifetime of that game.
type Rules struct {
	MinPlayers    int `json:"min_players"`
	ComboLength   int `json:"combo_length"`
	RoundSeconds  int `json:"round_seconds"`
	RevealSeconds int `json:"reveal_seconds"`

	Moves []Move `json:"moves"`

	GhostThreshold         int    `json:"ghost_threshold"`
	SuddenDeathThreshold   int    `json:"sudden_death_threshold"`
	SuddenDeathComboLength int    `json:"sudden_death_combo_length"`
	SuddenDeathMoves       []Move `json:"sudden_death_moves"`
}

func DefaultRules() Rules {
	return Rules{
		MinPlayers:             DefaultMinPlayers,
		ComboLength:            DefaultComboLength,
		RoundSeconds:           DefaultRoundSeconds,
		RevealSeconds:          DefaultRevealSeconds,
		Moves:                  slices.Clone(DefaultMoves),
		GhostThreshold:         DefaultGhostThreshold,
		SuddenDeathThreshold:   DefaultSuddenDeathThreshold,
		SuddenDeathComboLength: DefaultSuddenDeathComboLength,
		SuddenDeathMoves:       slices.Clone(DefaultSuddenDeathMoves),
	}
}

func (r Rules) validate() error {
	if r.MinPlayers < 2 {
		return fmt.Errorf("min players %d: %w", r.MinPlayers, errBadRules)
	}
	if r.ComboLength < 1 || r.SuddenDeathComboLength < 1 {
		return fmt.Errorf("combo length %d/%d: %w", r.ComboLength, r.SuddenDeathComboLength, errBadRules)
	}
	if r.RoundSeconds < 1 || r.RevealSeconds < 1 {
		return fmt.Errorf("durations %ds/%ds: %w", r.RoundSeconds, r.RevealSeconds, errBadRules)
	}
	if len(r.Moves) < 2 || len(r.SuddenDeathMoves) < 2 {
		return fmt.Errorf("alphabet sizes %d/%d: %w", len(r.Moves), len(r.SuddenDeathMoves), errBadRules)
	}
	return nil
}

var errBadRules = errors.New("invalid rules")

// NewState builds a fresh game in ReadyCheck. Malformed rules fail here,
// at construction, never during event handling.
func NewState(r Rules) (State, error) {
	if err := r.validate(); err != nil {
		return State{}, err
	}
	return State{
		Phase:       PhaseReadyCheck,
		Round:       0,
		Players:     map[string]Player{},
		Ready:       map[string]bool{},
		Submissions: map[string][]Move{},
		ComboLength: r.ComboLength,
		Moves:       slices.Clone(r.Moves),
		Rules:       r,
	}, nil
}

// applyPressure latches the late-game difficulty modes when a new input
// round opens. Both are monotonic: once on, they stay on even if the count
// later rises (it can't, eliminations are permanent, but leaves could).
func applyPressure(n *State) {
	alive := len(activePlayers(*n))
	if alive <= n.Rules.GhostThreshold {
		n.GhostMode = true
	}
	if alive <= n.Rules.SuddenDeathThreshold && !n.SuddenDeath {
		n.SuddenDeath = true
		n.ComboLength = n.Rules.SuddenDeathComboLength
		n.Moves = slices.Clone(n.Rules.SuddenDeathMoves)
	}
}
