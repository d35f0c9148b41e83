package engine

import (
	"errors"
	"slices"
	"testing"
)

// testRules disables the pressure thresholds so small test games keep the
// full combo length; pressure behavior has its own tests below.
func testRules() Rules {
	r := DefaultRules()
	r.RoundSeconds = 30
	r.RevealSeconds = 5
	r.GhostThreshold = 0
	r.SuddenDeathThreshold = 0
	return r
}

func newGame(t *testing.T, r Rules, players ...string) State {
	t.Helper()
	s, err := NewState(r)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	for _, id := range players {
		s = mustApply(t, s, Command{Type: CmdJoin, PlayerID: id})
	}
	return s
}

func mustApply(t *testing.T, s State, cmd Command) State {
	t.Helper()
	_, next, err := Apply(s, cmd)
	if err != nil {
		t.Fatalf("Apply(%s): %v", cmd.Type, err)
	}
	return next
}

func startGame(t *testing.T, s State) State {
	t.Helper()
	for id := range s.Players {
		s = mustApply(t, s, Command{Type: CmdToggleReady, PlayerID: id})
	}
	if s.Phase != PhaseInput {
		t.Fatalf("expected game to start, phase=%s", s.Phase)
	}
	return s
}

func tickDown(t *testing.T, s State) State {
	t.Helper()
	start := s.Phase
	for s.Phase == start {
		s = mustApply(t, s, Command{Type: CmdTick})
	}
	return s
}

func combo(moves ...Move) []Move { return moves }

func TestToggleReady_Idempotent(t *testing.T) {
	s := newGame(t, testRules(), "a", "b", "c")

	s = mustApply(t, s, Command{Type: CmdToggleReady, PlayerID: "a"})
	if !s.Ready["a"] {
		t.Fatalf("expected a in ready set")
	}
	s = mustApply(t, s, Command{Type: CmdToggleReady, PlayerID: "a"})
	if s.Ready["a"] {
		t.Fatalf("expected a out of ready set after second toggle")
	}
	if s.Phase != PhaseReadyCheck {
		t.Fatalf("phase changed to %s", s.Phase)
	}
}

func TestReadyCheck_StartsWhenAllReady(t *testing.T) {
	s := newGame(t, testRules(), "a", "b")

	s = mustApply(t, s, Command{Type: CmdToggleReady, PlayerID: "a"})
	if s.Phase != PhaseReadyCheck {
		t.Fatalf("started with one of two ready")
	}

	events, s, err := Apply(s, Command{Type: CmdToggleReady, PlayerID: "b"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Phase != PhaseInput {
		t.Fatalf("want phase input, got %s", s.Phase)
	}
	if s.Round != 1 {
		t.Fatalf("want round 1, got %d", s.Round)
	}
	if s.TimeRemaining != testRules().RoundSeconds {
		t.Fatalf("want timer %d, got %d", testRules().RoundSeconds, s.TimeRemaining)
	}
	if !containsEvent(events, EvtRoundStarted) {
		t.Fatalf("expected RoundStarted, got %+v", events)
	}
}

func TestReadyCheck_RespectsMinPlayers(t *testing.T) {
	r := testRules()
	r.MinPlayers = 3
	s := newGame(t, r, "a", "b")

	s = mustApply(t, s, Command{Type: CmdToggleReady, PlayerID: "a"})
	s = mustApply(t, s, Command{Type: CmdToggleReady, PlayerID: "b"})
	if s.Phase != PhaseReadyCheck {
		t.Fatalf("started below min players, phase=%s", s.Phase)
	}
}

func TestSubmit_SecondSubmissionRejected(t *testing.T) {
	s := startGame(t, newGame(t, testRules(), "a", "b", "c"))

	first := combo(MoveLeft, MoveJump, MoveSpin)
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: first})

	_, next, err := Apply(s, Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveDuck, MoveDuck, MoveDuck)})
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("want ErrAlreadySubmitted, got %v", err)
	}
	if !slices.Equal(next.Submissions["a"], first) {
		t.Fatalf("submission overwritten: %v", next.Submissions["a"])
	}
}

func TestSubmit_Validation(t *testing.T) {
	cases := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{
			name:    "wrong length",
			cmd:     Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveLeft, MoveRight)},
			wantErr: ErrBadComboLength,
		},
		{
			name:    "unknown player",
			cmd:     Command{Type: CmdSubmit, PlayerID: "ghost", Actions: combo(MoveLeft, MoveRight, MoveJump)},
			wantErr: ErrNotInGame,
		},
		{
			name:    "illegal move",
			cmd:     Command{Type: CmdSubmit, PlayerID: "a", Actions: []Move{MoveLeft, MoveRight, "backflip"}},
			wantErr: ErrIllegalMove,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := startGame(t, newGame(t, testRules(), "a", "b"))
			_, _, err := Apply(s, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSubmit_RejectedOutsidePhase(t *testing.T) {
	s := newGame(t, testRules(), "a", "b")
	_, _, err := Apply(s, Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveLeft, MoveRight, MoveJump)})
	if !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("want ErrWrongPhase, got %v", err)
	}
}

func TestCollision_EliminatesEveryMatchingPlayer(t *testing.T) {
	s := startGame(t, newGame(t, testRules(), "a", "b", "c", "d"))

	same := combo(MoveLeft, MoveJump, MoveSpin)
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: same})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "b", Actions: same})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "c", Actions: same})
	events, s, err := Apply(s, Command{Type: CmdSubmit, PlayerID: "d", Actions: combo(MoveDuck, MoveDuck, MoveDuck)})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if s.Phase != PhaseReveal {
		t.Fatalf("want reveal, got %s", s.Phase)
	}
	for _, id := range []string{"a", "b", "c"} {
		if !s.Players[id].Eliminated {
			t.Fatalf("player %s should be eliminated", id)
		}
	}
	if s.Players["d"].Eliminated {
		t.Fatalf("player d should survive")
	}
	if len(s.Eliminations) != 3 {
		t.Fatalf("want 3 log entries, got %+v", s.Eliminations)
	}
	if !containsEvent(events, EvtPlayersEliminated) {
		t.Fatalf("expected PlayersEliminated event")
	}
}

func TestCollision_FinalPairBothEliminated(t *testing.T) {
	s := startGame(t, newGame(t, testRules(), "a", "b"))

	same := combo(MoveLeft, MoveJump, MoveSpin)
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: same})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "b", Actions: same})
	if s.Phase != PhaseReveal {
		t.Fatalf("want reveal, got %s", s.Phase)
	}

	s = tickDown(t, s)
	if s.Phase != PhaseEnd {
		t.Fatalf("want end, got %s", s.Phase)
	}
	if len(s.Winners) != 0 {
		t.Fatalf("want no winners, got %v", s.Winners)
	}
}

func TestTimeout_ForfeitsNonSubmitters(t *testing.T) {
	s := startGame(t, newGame(t, testRules(), "a", "b", "c"))

	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveLeft, MoveJump, MoveSpin)})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "b", Actions: combo(MoveRight, MoveJump, MoveSpin)})

	s = tickDown(t, s)
	if s.Phase != PhaseReveal {
		t.Fatalf("want reveal, got %s", s.Phase)
	}
	if !s.Players["c"].Eliminated {
		t.Fatalf("non-submitter should be eliminated")
	}
	want := Elimination{PlayerID: "c", Round: 1}
	if len(s.Eliminations) != 1 || s.Eliminations[0] != want {
		t.Fatalf("want log [%+v], got %+v", want, s.Eliminations)
	}
}

func TestReveal_SingleSurvivorWins(t *testing.T) {
	s := startGame(t, newGame(t, testRules(), "a", "b")) // only a submits

	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveLeft, MoveJump, MoveSpin)})
	s = tickDown(t, s) // input timer expires, b forfeits
	s = tickDown(t, s) // reveal timer expires

	if s.Phase != PhaseEnd {
		t.Fatalf("want end, got %s", s.Phase)
	}
	if !slices.Equal(s.Winners, []string{"a"}) {
		t.Fatalf("want winners [a], got %v", s.Winners)
	}

	// End is terminal: nothing moves the machine again.
	if _, _, err := Apply(s, Command{Type: CmdTick}); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("tick after end: want ErrWrongPhase, got %v", err)
	}
	if _, _, err := Apply(s, Command{Type: CmdJoin, PlayerID: "z"}); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("join after end: want ErrWrongPhase, got %v", err)
	}
}

func TestReveal_NextRoundResetsSubmissionsNotReady(t *testing.T) {
	s := startGame(t, newGame(t, testRules(), "a", "b", "c"))

	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveLeft, MoveJump, MoveSpin)})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "b", Actions: combo(MoveRight, MoveJump, MoveSpin)})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "c", Actions: combo(MoveDuck, MoveJump, MoveSpin)})
	if s.Phase != PhaseReveal {
		t.Fatalf("want reveal, got %s", s.Phase)
	}

	s = tickDown(t, s)
	if s.Phase != PhaseInput {
		t.Fatalf("want input, got %s", s.Phase)
	}
	if s.Round != 2 {
		t.Fatalf("want round 2, got %d", s.Round)
	}
	if len(s.Submissions) != 0 {
		t.Fatalf("submissions not cleared: %v", s.Submissions)
	}
	if len(s.Ready) != 3 {
		t.Fatalf("ready set should survive between rounds, got %v", s.Ready)
	}
	if s.TimeRemaining != testRules().RoundSeconds {
		t.Fatalf("timer not reset, got %d", s.TimeRemaining)
	}
}

func TestEliminated_CannotSubmitLater(t *testing.T) {
	s := startGame(t, newGame(t, testRules(), "a", "b", "c"))

	same := combo(MoveLeft, MoveJump, MoveSpin)
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: same})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "b", Actions: same})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "c", Actions: combo(MoveDuck, MoveDuck, MoveDuck)})

	s = tickDown(t, s) // into round 2? a and b collided, only c remains -> end
	if s.Phase != PhaseEnd {
		t.Fatalf("want end, got %s", s.Phase)
	}

	// Same shape with four players so a round 2 actually happens.
	s = startGame(t, newGame(t, testRules(), "a", "b", "c", "d"))
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: same})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "b", Actions: same})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "c", Actions: combo(MoveDuck, MoveDuck, MoveDuck)})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "d", Actions: combo(MoveSpin, MoveSpin, MoveSpin)})
	s = tickDown(t, s)
	if s.Round != 2 {
		t.Fatalf("want round 2, got %d", s.Round)
	}

	_, _, err := Apply(s, Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveDuck, MoveDuck, MoveDuck)})
	if !errors.Is(err, ErrEliminated) {
		t.Fatalf("want ErrEliminated, got %v", err)
	}
}

func TestLeave_LastHoldoutTriggersReveal(t *testing.T) {
	s := startGame(t, newGame(t, testRules(), "a", "b", "c"))

	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveLeft, MoveJump, MoveSpin)})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "b", Actions: combo(MoveRight, MoveJump, MoveSpin)})

	events, s, err := Apply(s, Command{Type: CmdLeave, PlayerID: "c"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Phase != PhaseReveal {
		t.Fatalf("want reveal after holdout leaves, got %s", s.Phase)
	}
	if len(s.Eliminations) != 0 {
		t.Fatalf("a leave is not an elimination: %+v", s.Eliminations)
	}
	if !containsEvent(events, EvtPlayerLeft) {
		t.Fatalf("expected PlayerLeft event")
	}
}

func TestLeave_DuringRevealIsNoOp(t *testing.T) {
	s := startGame(t, newGame(t, testRules(), "a", "b", "c"))
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveLeft, MoveJump, MoveSpin)})
	s = tickDown(t, s)

	events, next, err := Apply(s, Command{Type: CmdLeave, PlayerID: "a"})
	if err != nil || len(events) != 0 {
		t.Fatalf("want silent no-op, got events=%v err=%v", events, err)
	}
	if _, ok := next.Players["a"]; !ok {
		t.Fatalf("player removed during reveal")
	}
}

func TestPressure_SuddenDeathShrinksCombo(t *testing.T) {
	r := testRules()
	r.SuddenDeathThreshold = 2
	s := startGame(t, newGame(t, r, "a", "b", "c"))

	if s.SuddenDeath {
		t.Fatalf("sudden death latched above threshold")
	}

	same := combo(MoveLeft, MoveJump, MoveSpin)
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveDuck, MoveDuck, MoveDuck)})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "b", Actions: same})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "c", Actions: same})
	s = tickDown(t, s)

	// b and c collided... both out leaves one player, so rebuild with four.
	if s.Phase != PhaseEnd {
		t.Fatalf("want end, got %s", s.Phase)
	}

	s = startGame(t, newGame(t, r, "a", "b", "c", "d"))
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveDuck, MoveDuck, MoveDuck)})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "b", Actions: combo(MoveSpin, MoveSpin, MoveSpin)})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "c", Actions: same})
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "d", Actions: same})
	s = tickDown(t, s)

	if s.Round != 2 || !s.SuddenDeath {
		t.Fatalf("want sudden death in round 2, got round=%d latched=%v", s.Round, s.SuddenDeath)
	}
	if s.ComboLength != r.SuddenDeathComboLength {
		t.Fatalf("want combo length %d, got %d", r.SuddenDeathComboLength, s.ComboLength)
	}
	if !slices.Equal(s.Moves, r.SuddenDeathMoves) {
		t.Fatalf("want shrunken alphabet %v, got %v", r.SuddenDeathMoves, s.Moves)
	}

	// Old-length combos no longer fit.
	if _, _, err := Apply(s, Command{Type: CmdSubmit, PlayerID: "a", Actions: same}); !errors.Is(err, ErrBadComboLength) {
		t.Fatalf("want ErrBadComboLength, got %v", err)
	}
	s = mustApply(t, s, Command{Type: CmdSubmit, PlayerID: "a", Actions: combo(MoveLeft, MoveRight)})
	if !slices.Equal(s.Submissions["a"], combo(MoveLeft, MoveRight)) {
		t.Fatalf("short combo rejected: %v", s.Submissions)
	}
}

func TestNewState_RejectsBadRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Rules)
	}{
		{"min players", func(r *Rules) { r.MinPlayers = 1 }},
		{"combo length", func(r *Rules) { r.ComboLength = 0 }},
		{"round seconds", func(r *Rules) { r.RoundSeconds = 0 }},
		{"alphabet", func(r *Rules) { r.Moves = []Move{MoveLeft} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := DefaultRules()
			tc.mutate(&r)
			if _, err := NewState(r); err == nil {
				t.Fatalf("expected construction to fail")
			}
		})
	}
}

func containsEvent(events []Event, eventType EventType) bool {
	for _, e := range events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}
