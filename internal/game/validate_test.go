package game

import (
	"errors"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func replayOrFatal(t *testing.T, moves ...string) *nchess.Game {
	t.Helper()
	g, err := Replay(moves)
	if err != nil { t.Fatalf("Replay(%v): %v", moves, err) }
	return g
}

func TestParseMoveInput(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"e2e4", "e2e4", true},
		{"  E2E4 ", "e2e4", true},
		{"e7e8q", "e7e8q", true},
		{"e7e8Q", "e7e8q", true},
		{"e7e8k", "", false},
		{"e2", "", false},
		{"e2e4x9", "", false},
		{"i2i4", "", false},
		{"e0e4", "", false},
		{"hello", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, err := ParseMoveInput(c.in)
		if c.ok {
			if err != nil { t.Fatalf("ParseMoveInput(%q): %v", c.in, err) }
			if got != c.want { t.Fatalf("ParseMoveInput(%q) = %q, want %q", c.in, got, c.want) }
			continue
		}
		if !errors.Is(err, ErrMalformedMove) { t.Fatalf("ParseMoveInput(%q) err = %v, want ErrMalformedMove", c.in, err) }
	}
}

func TestMoveSquares(t *testing.T) {
	from, to, ok := MoveSquares("e2e4")
	if !ok { t.Fatalf("MoveSquares rejected e2e4") }
	if from.String() != "e2" || to.String() != "e4" { t.Fatalf("got %s %s", from, to) }
	if _, _, ok := MoveSquares("e2"); ok { t.Fatalf("short input accepted") }
	if _, _, ok := MoveSquares("x9e4"); ok { t.Fatalf("bad square accepted") }
}

func TestApplyHumanMoveAccepts(t *testing.T) {
	g := replayOrFatal(t)
	mv, err := ApplyHumanMove(g, "e2e4")
	if err != nil { t.Fatalf("ApplyHumanMove: %v", err) }
	if mv.String() != "e2e4" { t.Fatalf("applied %s", mv) }
	if len(g.Moves()) != 1 { t.Fatalf("move not recorded on game") }
}

func TestApplyHumanMoveIllegal(t *testing.T) {
	g := replayOrFatal(t)
	if _, err := ApplyHumanMove(g, "e2e5"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
	// game must be untouched after a rejection
	if len(g.Moves()) != 0 { t.Fatalf("rejected move mutated the game") }
}

func TestApplyHumanMoveInCheck(t *testing.T) {
	// 1.e4 f5 2.Qh5+ and black ignores the check
	g := replayOrFatal(t, "e2e4", "f7f5", "d1h5")
	if _, err := ApplyHumanMove(g, "a7a6"); !errors.Is(err, ErrKingInCheck) {
		t.Fatalf("err = %v, want ErrKingInCheck", err)
	}
	// blocking the check is still allowed
	if _, err := ApplyHumanMove(g, "g7g6"); err != nil {
		t.Fatalf("blocking move rejected: %v", err)
	}
}

func TestApplyHumanMovePinned(t *testing.T) {
	// 1.e4 e5 2.Nf3 Nc6 3.Bb5 d6 4.Nc3 leaves the c6 knight pinned to e8
	g := replayOrFatal(t, "e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "d7d6", "b1c3")
	if _, err := ApplyHumanMove(g, "c6d4"); !errors.Is(err, ErrPiecePinned) {
		t.Fatalf("err = %v, want ErrPiecePinned", err)
	}
}

func TestApplyHumanMoveAutoQueen(t *testing.T) {
	// march the a-pawn to b7 and capture the rook on a8
	g := replayOrFatal(t, "a2a4", "b7b5", "a4b5", "a7a6", "b5a6", "c8b7", "a6b7", "b8c6")
	mv, err := ApplyHumanMove(g, "b7a8")
	if err != nil { t.Fatalf("ApplyHumanMove: %v", err) }
	if mv.String() != "b7a8q" { t.Fatalf("expected queen promotion, got %s", mv) }
}

func TestApplyHumanMoveExplicitUnderpromotion(t *testing.T) {
	g := replayOrFatal(t, "a2a4", "b7b5", "a4b5", "a7a6", "b5a6", "c8b7", "a6b7", "b8c6")
	mv, err := ApplyHumanMove(g, "b7a8n")
	if err != nil { t.Fatalf("ApplyHumanMove: %v", err) }
	if mv.String() != "b7a8n" { t.Fatalf("expected knight promotion, got %s", mv) }
}
