package game

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func TestReplayRejectsBadMove(t *testing.T) {
	if _, err := Replay([]string{"e2e4", "e2e4"}); err == nil {
		t.Fatalf("expected error replaying an illegal move list")
	}
	if _, err := Replay([]string{"nonsense"}); err == nil {
		t.Fatalf("expected error for undecodable move")
	}
}

func TestSnapshotStack(t *testing.T) {
	s := &Session{Moves: []string{"e2e4"}}

	s.PushSnapshot()
	s.Moves = append(s.Moves, "e7e5", "g1f3")

	if !s.PopSnapshot() { t.Fatalf("PopSnapshot failed") }
	if len(s.Moves) != 1 || s.Moves[0] != "e2e4" { t.Fatalf("moves = %v", s.Moves) }
	if s.PopSnapshot() { t.Fatalf("empty stack popped") }
}

func TestStateFromGame(t *testing.T) {
	g := replayOrFatal(t, "e2e4", "e7e5")
	sess := &Session{ChatID: 1, Side: SideWhite, Phase: PhaseHumanMove, Moves: []string{"e2e4", "e7e5"}}

	st := StateFromGame(sess, g)
	if st.MoveCount != 2 { t.Fatalf("move count = %d", st.MoveCount) }
	if len(st.MovesSAN) != 2 || st.MovesSAN[0] != "e4" || st.MovesSAN[1] != "e5" {
		t.Fatalf("SAN = %v", st.MovesSAN)
	}
	if st.Turn != SideWhite || !st.HumanToMove() { t.Fatalf("turn = %s", st.Turn) }
	if st.Finished() { t.Fatalf("fresh game marked finished") }
	if st.FEN == "" { t.Fatalf("missing FEN") }
}

func TestStateFromGameCheck(t *testing.T) {
	g := replayOrFatal(t, "e2e4", "f7f5", "d1h5")
	sess := &Session{ChatID: 1, Side: SideBlack, Phase: PhaseHumanMove, Moves: []string{"e2e4", "f7f5", "d1h5"}}

	st := StateFromGame(sess, g)
	if !st.InCheck { t.Fatalf("check not detected") }
	if st.Turn != SideBlack { t.Fatalf("turn = %s", st.Turn) }
}

func TestStateFromGameMate(t *testing.T) {
	g := replayOrFatal(t, "f2f3", "e7e5", "g2g4", "d8h4")
	sess := &Session{ChatID: 1, Side: SideWhite, Phase: PhaseGameOver, Moves: []string{"f2f3", "e7e5", "g2g4", "d8h4"}}

	st := StateFromGame(sess, g)
	if !st.Finished() || st.Outcome != nchess.BlackWon || st.OutcomeMethod != nchess.Checkmate {
		t.Fatalf("outcome = %s via %s", st.Outcome, st.OutcomeMethod)
	}
}
