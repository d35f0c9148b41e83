package types

import "github.com/mirrorpit/mirrorpit-backend/internal/engine"

type ClientMessage struct {
	Type    string        `json:"type"` // "ToggleReady" | "Submit" | "Leave"
	Actions []engine.Move `json:"actions,omitempty"`
}

type ServerMessage struct {
	Type    string        `json:"type"` // "StateSnapshot" | "Error"
	Version int           `json:"version,omitempty"`
	State   *engine.State `json:"state,omitempty"`
	Error   string        `json:"error,omitempty"`
}
