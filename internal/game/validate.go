package game

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// ParseMoveInput normalizes free-text input into UCI coordinates.
// Accepted forms are from+to ("e2e4") and from+to+promotion ("e7e8q").
func ParseMoveInput(input string) (string, error) {
	text := strings.ToLower(strings.TrimSpace(input))
	if len(text) != 4 && len(text) != 5 {
		return "", ErrMalformedMove
	}
	if !validSquareToken(text[0:2]) || !validSquareToken(text[2:4]) {
		return "", ErrMalformedMove
	}
	if len(text) == 5 && !strings.ContainsRune("qrbn", rune(text[4])) {
		return "", ErrMalformedMove
	}
	return text, nil
}

// MoveSquares splits a UCI move into its from and to squares.
func MoveSquares(uci string) (from, to nchess.Square, ok bool) {
	text := strings.ToLower(strings.TrimSpace(uci))
	if len(text) < 4 || !validSquareToken(text[0:2]) || !validSquareToken(text[2:4]) {
		return 0, 0, false
	}
	return squareFromToken(text[0:2]), squareFromToken(text[2:4]), true
}

func validSquareToken(sq string) bool {
	return sq[0] >= 'a' && sq[0] <= 'h' && sq[1] >= '1' && sq[1] <= '8'
}

func squareFromToken(sq string) nchess.Square {
	file := nchess.FileA + nchess.File(sq[0]-'a')
	rank := nchess.Rank1 + nchess.Rank(sq[1]-'1')
	return nchess.NewSquare(file, rank)
}

// matchLegalMove finds the legal move for the given UCI coordinates. A bare
// from+to that requires promotion is auto-queened.
func matchLegalMove(g *nchess.Game, uci string) *nchess.Move {
	for _, mv := range g.ValidMoves() {
		got := strings.ToLower(mv.String())
		if got == uci {
			return &mv
		}
		if len(uci) == 4 && got == uci+"q" {
			return &mv
		}
	}
	return nil
}

// ApplyHumanMove validates and plays a parsed UCI move on the game. On
// rejection the returned error distinguishes, in order of precedence, a move
// that ignores an active check, a move of an absolutely pinned piece, and a
// plainly illegal move.
func ApplyHumanMove(g *nchess.Game, uci string) (*nchess.Move, error) {
	mv := matchLegalMove(g, uci)
	if mv == nil {
		return nil, classifyRejection(g, squareFromToken(uci[0:2]))
	}
	if err := g.Move(mv, nil); err != nil {
		return nil, ErrIllegalMove
	}
	return mv, nil
}

func classifyRejection(g *nchess.Game, from nchess.Square) error {
	if positionInCheck(g) {
		return ErrKingInCheck
	}
	pos := g.Position()
	if isPinned(pos.Board(), from, pos.Turn()) {
		return ErrPiecePinned
	}
	return ErrIllegalMove
}

// positionInCheck reports whether the side to move is currently in check.
// The last applied move carries the Check tag when it delivered one.
func positionInCheck(g *nchess.Game) bool {
	moves := g.Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(nchess.Check)
}

// isPinned reports whether the piece on sq is absolutely pinned against its
// own king: the square lies on a rank, file or diagonal from the king with
// nothing between, and the first piece beyond it on that line is an enemy
// slider moving along it.
func isPinned(board *nchess.Board, sq nchess.Square, color nchess.Color) bool {
	piece := board.Piece(sq)
	if piece == nchess.NoPiece || piece.Color() != color || piece.Type() == nchess.King {
		return false
	}

	kingSq, ok := findKing(board, color)
	if !ok {
		return false
	}

	dFile := int(sq.File()) - int(kingSq.File())
	dRank := int(sq.Rank()) - int(kingSq.Rank())

	var stepF, stepR int
	diagonal := false
	switch {
	case dFile == 0 && dRank != 0:
		stepR = sign(dRank)
	case dRank == 0 && dFile != 0:
		stepF = sign(dFile)
	case dFile != 0 && abs(dFile) == abs(dRank):
		stepF = sign(dFile)
		stepR = sign(dRank)
		diagonal = true
	default:
		return false
	}

	// King to sq must be an open line.
	f := int(kingSq.File()) + stepF
	r := int(kingSq.Rank()) + stepR
	for f != int(sq.File()) || r != int(sq.Rank()) {
		if board.Piece(squareAt(f, r)) != nchess.NoPiece {
			return false
		}
		f += stepF
		r += stepR
	}

	// First piece beyond sq on the same line decides the pin.
	f = int(sq.File()) + stepF
	r = int(sq.Rank()) + stepR
	for onBoard(f, r) {
		p := board.Piece(squareAt(f, r))
		if p != nchess.NoPiece {
			if p.Color() == color {
				return false
			}
			if diagonal {
				return p.Type() == nchess.Bishop || p.Type() == nchess.Queen
			}
			return p.Type() == nchess.Rook || p.Type() == nchess.Queen
		}
		f += stepF
		r += stepR
	}
	return false
}

func findKing(board *nchess.Board, color nchess.Color) (nchess.Square, bool) {
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			sq := nchess.NewSquare(file, rank)
			p := board.Piece(sq)
			if p != nchess.NoPiece && p.Type() == nchess.King && p.Color() == color {
				return sq, true
			}
		}
	}
	return nchess.NewSquare(nchess.FileA, nchess.Rank1), false
}

func squareAt(f, r int) nchess.Square {
	return nchess.NewSquare(nchess.File(f), nchess.Rank(r))
}

func onBoard(f, r int) bool {
	return f >= int(nchess.FileA) && f <= int(nchess.FileH) && r >= int(nchess.Rank1) && r <= int(nchess.Rank8)
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	if v > 0 {
		return 1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
