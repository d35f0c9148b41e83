package engine

import (
	"errors"
	"maps"
	"slices"
)

var ErrWrongPhase = errors.New("wrong phase for command")
var ErrNotInGame = errors.New("player not in game")
var ErrAlreadyJoined = errors.New("player already joined")
var ErrEliminated = errors.New("player is eliminated")
var ErrAlreadySubmitted = errors.New("combo already submitted this round")
var ErrBadComboLength = errors.New("combo has wrong length")
var ErrIllegalMove = errors.New("move not in current alphabet")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseReadyCheck Phase = "ready_check"
	PhaseInput      Phase = "input"
	PhaseReveal     Phase = "reveal"
	PhaseEnd        Phase = "end"
)

type Move string

const (
	MoveLeft  Move = "left"
	MoveRight Move = "right"
	MoveJump  Move = "jump"
	MoveSpin  Move = "spin"
	MoveDuck  Move = "duck"
)

type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Eliminated  bool   `json:"eliminated"`
}

// Elimination records one player dropping out and the round it happened in.
// The log is append-only; a player appears at most once.
type Elimination struct {
	PlayerID string `json:"player_id"`
	Round    int    `json:"round"`
}

type State struct {
	Phase         Phase             `json:"phase"`
	Round         int               `json:"round"`
	Players       map[string]Player `json:"players"`
	Ready         map[string]bool   `json:"ready"`
	Submissions   map[string][]Move `json:"submissions"`
	Eliminations  []Elimination     `json:"eliminations"`
	TimeRemaining int               `json:"time_remaining"`
	Winners       []string          `json:"winners,omitempty"`
	GhostMode     bool              `json:"ghost_mode"`
	SuddenDeath   bool              `json:"sudden_death"`

	// Current-round parameters. Start at the Rules values and shrink once
	// sudden death latches.
	ComboLength int    `json:"combo_length"`
	Moves       []Move `json:"moves"`

	Rules Rules `json:"rules"`
}

type CommandType string

const (
	CmdJoin        CommandType = "Join"
	CmdLeave       CommandType = "Leave"
	CmdToggleReady CommandType = "ToggleReady"
	CmdSubmit      CommandType = "Submit"
	CmdTick        CommandType = "Tick"
)

type Command struct {
	Type        CommandType
	PlayerID    string
	DisplayName string
	Actions     []Move
}

type EventType string

const (
	EvtPlayerJoined      EventType = "PlayerJoined"
	EvtPlayerLeft        EventType = "PlayerLeft"
	EvtReadyToggled      EventType = "ReadyToggled"
	EvtRoundStarted      EventType = "RoundStarted"
	EvtComboSubmitted    EventType = "ComboSubmitted"
	EvtPlayersEliminated EventType = "PlayersEliminated"
	EvtGameEnded         EventType = "GameEnded"
)

type Event struct {
	Type      EventType
	PlayerID  string
	PlayerIDs []string
	Round     int
}

// Apply advances the state machine by one command. It never mutates s;
// the caller swaps in the returned state only on success, so every rejected
// command is a no-op.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		if s.Phase != PhaseReadyCheck {
			return nil, s, ErrWrongPhase
		}
		if _, ok := s.Players[cmd.PlayerID]; ok {
			return nil, s, ErrAlreadyJoined
		}
		n := clone(s)
		n.Players[cmd.PlayerID] = Player{ID: cmd.PlayerID, DisplayName: cmd.DisplayName}
		return []Event{{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID}}, n, nil

	case CmdLeave:
		// Reveal is already resolved and End is final, so a late leave
		// changes nothing.
		if s.Phase == PhaseReveal || s.Phase == PhaseEnd {
			return nil, s, nil
		}
		if _, ok := s.Players[cmd.PlayerID]; !ok {
			return nil, s, ErrNotInGame
		}
		n := clone(s)
		delete(n.Players, cmd.PlayerID)
		delete(n.Ready, cmd.PlayerID)
		delete(n.Submissions, cmd.PlayerID)
		events := []Event{{Type: EvtPlayerLeft, PlayerID: cmd.PlayerID}}

		// The departed player may have been the last holdout.
		switch n.Phase {
		case PhaseReadyCheck:
			events = append(events, maybeStart(&n)...)
		case PhaseInput:
			events = append(events, maybeReveal(&n)...)
		}
		return events, n, nil

	case CmdToggleReady:
		if s.Phase != PhaseReadyCheck {
			return nil, s, ErrWrongPhase
		}
		if _, ok := s.Players[cmd.PlayerID]; !ok {
			return nil, s, ErrNotInGame
		}
		n := clone(s)
		if n.Ready[cmd.PlayerID] {
			delete(n.Ready, cmd.PlayerID)
		} else {
			n.Ready[cmd.PlayerID] = true
		}
		events := []Event{{Type: EvtReadyToggled, PlayerID: cmd.PlayerID}}
		events = append(events, maybeStart(&n)...)
		return events, n, nil

	case CmdSubmit:
		if s.Phase != PhaseInput {
			return nil, s, ErrWrongPhase
		}
		p, ok := s.Players[cmd.PlayerID]
		if !ok {
			return nil, s, ErrNotInGame
		}
		if p.Eliminated {
			return nil, s, ErrEliminated
		}
		if _, ok := s.Submissions[cmd.PlayerID]; ok {
			return nil, s, ErrAlreadySubmitted
		}
		if len(cmd.Actions) != s.ComboLength {
			return nil, s, ErrBadComboLength
		}
		for _, a := range cmd.Actions {
			if !slices.Contains(s.Moves, a) {
				return nil, s, ErrIllegalMove
			}
		}
		n := clone(s)
		n.Submissions[cmd.PlayerID] = slices.Clone(cmd.Actions)
		events := []Event{{Type: EvtComboSubmitted, PlayerID: cmd.PlayerID}}
		events = append(events, maybeReveal(&n)...)
		return events, n, nil

	case CmdTick:
		if s.Phase != PhaseInput && s.Phase != PhaseReveal {
			return nil, s, ErrWrongPhase
		}
		n := clone(s)
		if n.TimeRemaining > 0 {
			n.TimeRemaining--
		}
		if n.TimeRemaining > 0 {
			return nil, n, nil
		}
		if n.Phase == PhaseInput {
			return forfeitUnsubmitted(&n), n, nil
		}
		return finishReveal(&n), n, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// maybeStart moves ReadyCheck into the first Input round once every active
// player is ready and the table is big enough.
func maybeStart(n *State) []Event {
	active := activePlayers(*n)
	if len(active) < n.Rules.MinPlayers {
		return nil
	}
	for _, id := range active {
		if !n.Ready[id] {
			return nil
		}
	}
	n.Round = 1
	startInput(n)
	return []Event{{Type: EvtRoundStarted, Round: n.Round}}
}

// maybeReveal resolves the round as soon as every active player has a
// submission on record. Checked at submit time, so a combo that lands before
// the expiring tick always counts.
func maybeReveal(n *State) []Event {
	active := activePlayers(*n)
	if len(active) == 0 {
		return nil
	}
	for _, id := range active {
		if _, ok := n.Submissions[id]; !ok {
			return nil
		}
	}
	return eliminate(n, findCollisions(n.Submissions))
}

// forfeitUnsubmitted eliminates every active player without a submission on
// record when the input timer runs out.
func forfeitUnsubmitted(n *State) []Event {
	var late []string
	for _, id := range activePlayers(*n) {
		if _, ok := n.Submissions[id]; !ok {
			late = append(late, id)
		}
	}
	return eliminate(n, late)
}

// eliminate marks the given players out, logs them under the current round
// and flips the state into Reveal.
func eliminate(n *State, ids []string) []Event {
	var events []Event
	if len(ids) > 0 {
		slices.Sort(ids)
		for _, id := range ids {
			p := n.Players[id]
			p.Eliminated = true
			n.Players[id] = p
			n.Eliminations = append(n.Eliminations, Elimination{PlayerID: id, Round: n.Round})
		}
		events = append(events, Event{Type: EvtPlayersEliminated, PlayerIDs: ids, Round: n.Round})
	}
	n.Phase = PhaseReveal
	n.TimeRemaining = n.Rules.RevealSeconds
	return events
}

// finishReveal either ends the game or opens the next input round. The ready
// set is deliberately left alone: only the initial ReadyCheck consumes it.
func finishReveal(n *State) []Event {
	active := activePlayers(*n)
	if len(active) <= 1 {
		n.Phase = PhaseEnd
		n.TimeRemaining = 0
		n.Winners = active
		return []Event{{Type: EvtGameEnded, PlayerIDs: active, Round: n.Round}}
	}
	n.Round++
	startInput(n)
	return []Event{{Type: EvtRoundStarted, Round: n.Round}}
}

func startInput(n *State) {
	n.Phase = PhaseInput
	n.Submissions = map[string][]Move{}
	n.TimeRemaining = n.Rules.RoundSeconds
	applyPressure(n)
}

// findCollisions returns every player whose combo matches at least one other
// submitted combo. Collision is symmetric: a combo shared by three players
// takes out all three.
func findCollisions(subs map[string][]Move) []string {
	var out []string
	for id, combo := range subs {
		for other, otherCombo := range subs {
			if other != id && slices.Equal(combo, otherCombo) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// activePlayers returns the ids of non-eliminated players, sorted so every
// derived ordering (winners, forfeit log) is deterministic.
func activePlayers(s State) []string {
	var out []string
	for id, p := range s.Players {
		if !p.Eliminated {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// ContainsEvent reports whether an event of the given type was emitted.
func ContainsEvent(events []Event, eventType EventType) bool {
	for _, e := range events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

func clone(s State) State {
	n := s
	n.Players = maps.Clone(s.Players)
	n.Ready = maps.Clone(s.Ready)
	n.Submissions = maps.Clone(s.Submissions)
	n.Eliminations = slices.Clone(s.Eliminations)
	n.Winners = slices.Clone(s.Winners)
	return n
}
