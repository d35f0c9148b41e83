package lobby

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mirrorpit/mirrorpit-backend/internal/engine"
)

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	Cmd engine.Command
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

// Tick advances the game clock by one second. The lobby's own ticker is the
// only production sender; tests inject it directly.
type Tick struct{}

func (Tick) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

// Recorder archives a finished game. Implementations must tolerate being
// called from a short-lived goroutine.
type Recorder interface {
	RecordResult(ctx context.Context, code string, final engine.State) error
}

// Lobby is the single writer for one game's state. All mutation flows
// through the inbox, so engine transitions are serialized by construction:
// two simultaneous submissions are applied one after the other and the
// all-submitted check can never race.
type Lobby struct {
	code     string
	inbox    chan Msg
	state    engine.State
	version  int
	clients  map[string]chan Snapshot
	ticker   *time.Ticker
	recorder Recorder
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewLobby(parent context.Context, code string, initial engine.State, rec Recorder, log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		code:     code,
		inbox:    make(chan Msg, 64), // Small buffer
		state:    initial,
		version:  0,
		clients:  make(map[string]chan Snapshot),
		recorder: rec,
		log:      log.With(zap.String("lobby", code)),
		ctx:      ctx,
		cancel:   cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case <-l.tickC():
			l.apply(engine.Command{Type: engine.CmdTick})

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: l.version, State: l.state}

			case Leave:
				delete(l.clients, msg.ClientID)

			case FromClient:
				l.apply(msg.Cmd)

			case Tick:
				l.apply(engine.Command{Type: engine.CmdTick})

			case GetState:
				// reflect internal state without data races
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// apply runs one engine command. Rejected commands leave state and version
// untouched and are not broadcast.
func (l *Lobby) apply(cmd engine.Command) {
	events, newState, err := engine.Apply(l.state, cmd)
	if err != nil {
		l.log.Debug("command rejected",
			zap.String("cmd", string(cmd.Type)),
			zap.String("player", cmd.PlayerID),
			zap.Error(err))
		return
	}

	l.state = newState
	l.version++
	l.broadcast(Snapshot{Version: l.version, State: l.state})
	l.syncTicker()

	if engine.ContainsEvent(events, engine.EvtPlayersEliminated) {
		l.log.Info("players eliminated", zap.Int("round", l.state.Round),
			zap.Int("total", len(l.state.Eliminations)))
	}
	if engine.ContainsEvent(events, engine.EvtGameEnded) {
		l.log.Info("game ended",
			zap.Int("rounds", l.state.Round),
			zap.Strings("winners", l.state.Winners))
		l.record()
	}
}

// syncTicker keeps the 1s clock running exactly while the engine is in a
// timed phase. The lobby is the only tick source; clients never drive time.
func (l *Lobby) syncTicker() {
	timed := l.state.Phase == engine.PhaseInput || l.state.Phase == engine.PhaseReveal
	switch {
	case timed && l.ticker == nil:
		l.ticker = time.NewTicker(time.Second)
	case !timed && l.ticker != nil:
		l.ticker.Stop()
		l.ticker = nil
	}
}

func (l *Lobby) tickC() <-chan time.Time {
	if l.ticker == nil {
		return nil
	}
	return l.ticker.C
}

func (l *Lobby) record() {
	if l.recorder == nil {
		return
	}
	final := l.state
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.recorder.RecordResult(ctx, l.code, final); err != nil {
			l.log.Warn("failed to archive result", zap.Error(err))
		}
	}()
}

func (l *Lobby) shutdown() {
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
	}
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or the WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }
