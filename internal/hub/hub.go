package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/mirrorpit/mirrorpit-backend/internal/engine"
	"github.com/mirrorpit/mirrorpit-backend/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Code  string
	State engine.State
	Reply chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type EnsureLobby struct {
	Code  string
	State engine.State // only used if creation happens
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the lobby registry. Like the lobbies themselves it is an actor:
// all registry mutation is serialized through the inbox.
type Hub struct {
	inbox    chan HubMsg
	lobbies  map[string]*lobby.Lobby
	recorder lobby.Recorder
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, rec lobby.Recorder, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		lobbies:  make(map[string]*lobby.Lobby),
		recorder: rec,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					msg.Reply <- lb
					break
				}
				msg.Reply <- h.spawn(msg.Code, msg.State)

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					msg.Reply <- lb
					break
				}
				msg.Reply <- h.spawn(msg.Code, msg.State)

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					lb.Inbox() <- lobby.Shutdown{}
				}
				delete(h.lobbies, msg.Code)

			case ShutdownHub:
				for _, lb := range h.lobbies {
					lb.Inbox() <- lobby.Shutdown{}
				}
				clear(h.lobbies)
				h.cancel()
			}
		}
	}
}

func (h *Hub) spawn(code string, state engine.State) *lobby.Lobby {
	lb := lobby.NewLobby(h.ctx, code, state, h.recorder, h.log)
	h.lobbies[code] = lb
	h.log.Info("lobby created", zap.String("code", code),
		zap.Int("min_players", state.Rules.MinPlayers),
		zap.Int("combo_length", state.Rules.ComboLength))
	return lb
}
