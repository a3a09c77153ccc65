package game

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func TestMovablePiecesOpening(t *testing.T) {
	g := replayOrFatal(t)
	pieces := MovablePieces(g)
	// only knights and pawns can move from the start
	if len(pieces) != 2 { t.Fatalf("expected 2 piece kinds, got %d", len(pieces)) }
	if pieces[0].Piece.Type() != nchess.Knight || pieces[1].Piece.Type() != nchess.Pawn {
		t.Fatalf("unexpected order: %v then %v", pieces[0].Piece, pieces[1].Piece)
	}
	if pieces[0].Moves != 4 || pieces[1].Moves != 16 {
		t.Fatalf("move counts = %d/%d", pieces[0].Moves, pieces[1].Moves)
	}
}

func TestMovesForKindKnight(t *testing.T) {
	g := replayOrFatal(t)
	moves := MovesForKind(g, nchess.Knight)
	want := []string{"b1a3", "b1c3", "g1f3", "g1h3"}
	if len(moves) != len(want) { t.Fatalf("moves = %v", moves) }
	for i := range want {
		if moves[i] != want[i] { t.Fatalf("moves = %v, want %v", moves, want) }
	}
}

func TestMovesForKindAbsent(t *testing.T) {
	g := replayOrFatal(t)
	if moves := MovesForKind(g, nchess.Queen); len(moves) != 0 {
		t.Fatalf("expected no queen moves, got %v", moves)
	}
}

func TestMovesForKindCollapsesPromotions(t *testing.T) {
	g := replayOrFatal(t, "a2a4", "b7b5", "a4b5", "a7a6", "b5a6", "c8b7", "a6b7", "b8c6")
	moves := MovesForKind(g, nchess.Pawn)
	for _, mv := range moves {
		if len(mv) != 4 { t.Fatalf("promotion not collapsed: %v", moves) }
	}
}

func TestKindTokenRoundTrip(t *testing.T) {
	for _, kind := range kindOrder {
		token := KindToken(kind)
		if token == "" { t.Fatalf("empty token for %v", kind) }
		got, ok := ParseKindToken(token)
		if !ok || got != kind { t.Fatalf("token %q decoded to %v", token, got) }
	}
	if _, ok := ParseKindToken("x"); ok { t.Fatalf("bad token accepted") }
	if _, ok := ParseKindToken(""); ok { t.Fatalf("empty token accepted") }
}

func TestPieceLabelAndName(t *testing.T) {
	g := replayOrFatal(t)
	for _, opt := range MovablePieces(g) {
		if PieceLabel(opt) == "" { t.Fatalf("empty label for %v", opt.Piece) }
		if PieceName(opt.Piece.Type()) == "" { t.Fatalf("empty name for %v", opt.Piece) }
	}
}
