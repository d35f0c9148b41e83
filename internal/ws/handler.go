package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mirrorpit/mirrorpit-backend/internal/engine"
	"github.com/mirrorpit/mirrorpit-backend/internal/hub"
	"github.com/mirrorpit/mirrorpit-backend/internal/ledger"
	"github.com/mirrorpit/mirrorpit-backend/internal/lobby"
	"github.com/mirrorpit/mirrorpit-backend/internal/types"
)

// Handler upgrades a client into a lobby session. `code` selects the lobby;
// `player` is the wallet address to play as. Without `player` the socket is
// a spectator: it receives snapshots but its commands are ignored.
func Handler(h *hub.Hub, led ledger.Ledger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		playerID := r.URL.Query().Get("player")

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		// The entry fee is escrowed on-chain; the ledger is our view of who
		// settled it. Unpaid wallets can still spectate.
		if playerID != "" {
			paid, err := led.HasPaid(r.Context(), &ledger.HasPaidInput{LobbyCode: code, PlayerID: playerID})
			if err != nil {
				http.Error(w, "payment check failed", http.StatusInternalServerError)
				return
			}
			if !paid {
				http.Error(w, "entry fee not paid", http.StatusPaymentRequired)
				return
			}
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Snapshot, 8)
		clientID := uuid.NewString()

		lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}
		defer func() { lb.Inbox() <- lobby.Leave{ClientID: clientID} }()

		if playerID != "" {
			lb.Inbox() <- lobby.FromClient{Cmd: engine.Command{
				Type:        engine.CmdJoin,
				PlayerID:    playerID,
				DisplayName: shortName(playerID),
			}}
			// A dropped connection counts as leaving the game; the engine
			// treats this as a no-op once the reveal has started.
			defer func() {
				lb.Inbox() <- lobby.FromClient{Cmd: engine.Command{Type: engine.CmdLeave, PlayerID: playerID}}
			}()
		}

		log.Debug("ws session opened", zap.String("lobby", code), zap.String("player", playerID))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{Type: "StateSnapshot", Version: snap.Version, State: &snap.State}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (lobby.Leave in defer):
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"bad json"}`))
				continue
			}

			if playerID == "" {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"spectators cannot act"}`))
				continue
			}

			cmd, ok := toEngineCommand(cm, playerID)
			if !ok {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"unknown type"}`))
				continue
			}

			lb.Inbox() <- lobby.FromClient{Cmd: cmd}
		}
	}
}

func toEngineCommand(m types.ClientMessage, playerID string) (engine.Command, bool) {
	switch m.Type {
	case "ToggleReady":
		return engine.Command{Type: engine.CmdToggleReady, PlayerID: playerID}, true
	case "Submit":
		return engine.Command{Type: engine.CmdSubmit, PlayerID: playerID, Actions: m.Actions}, true
	case "Leave":
		return engine.Command{Type: engine.CmdLeave, PlayerID: playerID}, true
	default:
		return engine.Command{}, false
	}
}

// shortName trims a wallet address down to a display label.
func shortName(playerID string) string {
	if len(playerID) <= 8 {
		return playerID
	}
	return playerID[:8]
}
