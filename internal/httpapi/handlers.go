package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mirrorpit/mirrorpit-backend/internal/engine"
	"github.com/mirrorpit/mirrorpit-backend/internal/hub"
	"github.com/mirrorpit/mirrorpit-backend/internal/ledger"
	"github.com/mirrorpit/mirrorpit-backend/internal/lobby"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// createLobbyRequest overrides the deployment defaults per lobby. Zero
// values mean "use the default".
type createLobbyRequest struct {
	MinPlayers    int `json:"min_players,omitempty"`
	ComboLength   int `json:"combo_length,omitempty"`
	RoundSeconds  int `json:"round_seconds,omitempty"`
	RevealSeconds int `json:"reveal_seconds,omitempty"`
}

func CreateLobby(h *hub.Hub, defaults engine.Rules, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createLobbyRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request body", http.StatusBadRequest)
				return
			}
		}

		rules := defaults
		if req.MinPlayers > 0 {
			rules.MinPlayers = req.MinPlayers
		}
		if req.ComboLength > 0 {
			rules.ComboLength = req.ComboLength
		}
		if req.RoundSeconds > 0 {
			rules.RoundSeconds = req.RoundSeconds
		}
		if req.RevealSeconds > 0 {
			rules.RevealSeconds = req.RevealSeconds
		}

		initial, err := engine.NewState(rules)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *lobby.Lobby, 1)
			h.Inbox() <- hub.GetLobby{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			log.Warn("collision on code, regenerating", zap.String("code", c))
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.EnsureLobby{Code: code, State: initial, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to create lobby", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code  string       `json:"code"`
			Rules engine.Rules `json:"rules"`
		}{Code: code, Rules: rules})
	}
}

// GetLobbyState serves a one-shot snapshot for spectators and polling
// clients; live clients use the websocket instead.
func GetLobbyState(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		viewReply := make(chan lobby.View, 1)
		lb.Inbox() <- lobby.GetState{Reply: viewReply}
		view := <-viewReply

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Code    string       `json:"code"`
			Version int          `json:"version"`
			State   engine.State `json:"state"`
		}{Code: code, Version: view.Version, State: view.State})
	}
}

type markPaidRequest struct {
	PlayerID string `json:"player_id"`
}

// MarkPaid is the webhook the chain watcher calls once the escrow contract
// confirms a deposit for this lobby.
func MarkPaid(h *hub.Hub, led ledger.Ledger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
		if <-reply == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		var req markPaidRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}

		if err := led.MarkPaid(r.Context(), &ledger.MarkPaidInput{LobbyCode: code, PlayerID: req.PlayerID}); err != nil {
			log.Error("failed to mark payment", zap.String("lobby", code), zap.Error(err))
			http.Error(w, "failed to record payment", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
