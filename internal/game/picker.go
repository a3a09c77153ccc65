package game

import (
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// PieceOption is one entry of the tap-to-move picker: a piece kind of the
// side to move with at least one legal move.
type PieceOption struct {
	Piece nchess.Piece
	Moves int
}

// kindOrder fixes the keyboard layout from king down to pawn.
var kindOrder = []nchess.PieceType{
	nchess.King, nchess.Queen, nchess.Rook, nchess.Bishop, nchess.Knight, nchess.Pawn,
}

// MovablePieces lists the side-to-move's piece kinds that have at least one
// legal move, in fixed king-to-pawn order.
func MovablePieces(g *nchess.Game) []PieceOption {
	board := g.Position().Board()

	counts := make(map[nchess.Piece]int)
	for _, mv := range g.ValidMoves() {
		p := board.Piece(mv.S1())
		if p == nchess.NoPiece {
			continue
		}
		counts[p]++
	}

	options := make([]PieceOption, 0, len(counts))
	for _, kind := range kindOrder {
		for p, n := range counts {
			if p.Type() == kind {
				options = append(options, PieceOption{Piece: p, Moves: n})
			}
		}
	}
	return options
}

// MovesForKind lists the legal moves of every piece of the given kind in UCI
// coordinates, sorted lexicographically. Promotion variants collapse to a
// single auto-queen entry.
func MovesForKind(g *nchess.Game, kind nchess.PieceType) []string {
	board := g.Position().Board()

	uniq := make(map[string]struct{})
	for _, mv := range g.ValidMoves() {
		p := board.Piece(mv.S1())
		if p == nchess.NoPiece || p.Type() != kind {
			continue
		}
		uci := strings.ToLower(mv.String())
		if len(uci) == 5 {
			if uci[4] != 'q' {
				continue
			}
			uci = uci[:4]
		}
		uniq[uci] = struct{}{}
	}
	moves := make([]string, 0, len(uniq))
	for uci := range uniq {
		moves = append(moves, uci)
	}
	sort.Strings(moves)
	return moves
}

// KindToken is the stable one-letter callback token for a piece kind.
func KindToken(kind nchess.PieceType) string {
	switch kind {
	case nchess.King:
		return "k"
	case nchess.Queen:
		return "q"
	case nchess.Rook:
		return "r"
	case nchess.Bishop:
		return "b"
	case nchess.Knight:
		return "n"
	case nchess.Pawn:
		return "p"
	default:
		return ""
	}
}

// ParseKindToken resolves a callback token back into a piece kind.
func ParseKindToken(token string) (nchess.PieceType, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "k":
		return nchess.King, true
	case "q":
		return nchess.Queen, true
	case "r":
		return nchess.Rook, true
	case "b":
		return nchess.Bishop, true
	case "n":
		return nchess.Knight, true
	case "p":
		return nchess.Pawn, true
	default:
		return nchess.NoPieceType, false
	}
}

// PieceLabel renders a picker button label, e.g. "♘ Knight".
func PieceLabel(opt PieceOption) string {
	return pieceGlyph(opt.Piece) + " " + PieceName(opt.Piece.Type())
}

func pieceGlyph(p nchess.Piece) string {
	glyphs := map[nchess.PieceType]string{
		nchess.King:   "♚",
		nchess.Queen:  "♛",
		nchess.Rook:   "♜",
		nchess.Bishop: "♝",
		nchess.Knight: "♞",
		nchess.Pawn:   "♟",
	}
	white := map[nchess.PieceType]string{
		nchess.King:   "♔",
		nchess.Queen:  "♕",
		nchess.Rook:   "♖",
		nchess.Bishop: "♗",
		nchess.Knight: "♘",
		nchess.Pawn:   "♙",
	}
	if p.Color() == nchess.White {
		if g, ok := white[p.Type()]; ok {
			return g
		}
	}
	if g, ok := glyphs[p.Type()]; ok {
		return g
	}
	return "?"
}

// PieceName is the English kind name used in labels and picker prompts.
func PieceName(kind nchess.PieceType) string {
	switch kind {
	case nchess.King:
		return "King"
	case nchess.Queen:
		return "Queen"
	case nchess.Rook:
		return "Rook"
	case nchess.Bishop:
		return "Bishop"
	case nchess.Knight:
		return "Knight"
	case nchess.Pawn:
		return "Pawn"
	default:
		return "Piece"
	}
}
