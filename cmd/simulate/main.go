// Command simulate runs a full game locally with bot players, printing each
// round as it resolves. Handy for eyeballing rule changes without a browser,
// a wallet or a second human.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/mirrorpit/mirrorpit-backend/internal/engine"
)

func main() {
	players := flag.Int("players", 8, "number of bot players")
	seed := flag.Int64("seed", 0, "rng seed (0 = random)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	rules := engine.DefaultRules()
	s, err := engine.NewState(rules)
	if err != nil {
		pterm.Error.Printfln("bad rules: %v", err)
		os.Exit(1)
	}

	pterm.DefaultHeader.Printfln("MirrorPit simulation: %d bots", *players)

	for i := 0; i < *players; i++ {
		id := fmt.Sprintf("bot-%02d", i+1)
		s = mustApply(s, engine.Command{Type: engine.CmdJoin, PlayerID: id})
		s = mustApply(s, engine.Command{Type: engine.CmdToggleReady, PlayerID: id})
	}
	if s.Phase != engine.PhaseInput {
		pterm.Error.Printfln("game did not start (need at least %d bots)", rules.MinPlayers)
		os.Exit(1)
	}

	const maxRounds = 500
	for s.Phase != engine.PhaseEnd && s.Round <= maxRounds {
		switch s.Phase {
		case engine.PhaseInput:
			s = playRound(rng, s)
		case engine.PhaseReveal:
			for s.Phase == engine.PhaseReveal {
				s = mustApply(s, engine.Command{Type: engine.CmdTick})
			}
		}
	}

	switch len(s.Winners) {
	case 0:
		pterm.Warning.Printfln("The final players collided. Nobody wins.")
	case 1:
		pterm.Success.Printfln("Winner: %s after %d rounds", s.Winners[0], s.Round)
	default:
		pterm.Success.Printfln("Winners: %s", strings.Join(s.Winners, ", "))
	}
}

// playRound has every surviving bot submit a random combo; the final
// submission resolves the collisions.
func playRound(rng *rand.Rand, s engine.State) engine.State {
	pterm.DefaultSection.Printfln("Round %d (%d alive, combo length %d)",
		s.Round, len(alive(s)), s.ComboLength)
	if s.SuddenDeath {
		pterm.Info.Printfln("Sudden death: alphabet %v", s.Moves)
	}

	data := pterm.TableData{{"Player", "Combo"}}
	var eliminated []string

	for _, id := range alive(s) {
		combo := randomCombo(rng, s)
		events, next, err := engine.Apply(s, engine.Command{
			Type:     engine.CmdSubmit,
			PlayerID: id,
			Actions:  combo,
		})
		if err != nil {
			pterm.Error.Printfln("%s: %v", id, err)
			continue
		}
		s = next
		data = append(data, []string{id, joinMoves(combo)})

		for _, e := range events {
			if e.Type == engine.EvtPlayersEliminated {
				eliminated = e.PlayerIDs
			}
		}
	}

	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	if len(eliminated) > 0 {
		pterm.Warning.Printfln("Eliminated: %s", strings.Join(eliminated, ", "))
	} else {
		pterm.Info.Printfln("No collisions this round.")
	}
	return s
}

func randomCombo(rng *rand.Rand, s engine.State) []engine.Move {
	combo := make([]engine.Move, s.ComboLength)
	for i := range combo {
		combo[i] = s.Moves[rng.Intn(len(s.Moves))]
	}
	return combo
}

func joinMoves(combo []engine.Move) string {
	parts := make([]string, len(combo))
	for i, m := range combo {
		parts[i] = string(m)
	}
	return strings.Join(parts, " ")
}

func alive(s engine.State) []string {
	var out []string
	for id, p := range s.Players {
		if !p.Eliminated {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func mustApply(s engine.State, cmd engine.Command) engine.State {
	_, next, err := engine.Apply(s, cmd)
	if err != nil {
		pterm.Error.Printfln("apply %s: %v", cmd.Type, err)
		os.Exit(1)
	}
	return next
}
