package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mirrorpit/mirrorpit-backend/internal/engine"
	"github.com/mirrorpit/mirrorpit-backend/internal/hub"
	"github.com/mirrorpit/mirrorpit-backend/internal/ledger"
	"github.com/mirrorpit/mirrorpit-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, led ledger.Ledger, defaults engine.Rules, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/lobbies", CreateLobby(h, defaults, log))
	r.Get("/lobbies/{code}", GetLobbyState(h))
	r.Post("/lobbies/{code}/payments", MarkPaid(h, led, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, led, log))
	return r
}
