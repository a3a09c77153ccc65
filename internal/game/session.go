package game

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
)

// Phase tracks where a session sits in its turn cycle.
type Phase string

const (
	PhaseAwaitingSide Phase = "awaiting_side"
	PhaseHumanMove    Phase = "human_move"
	PhaseEngineMove   Phase = "engine_move"
	PhaseGameOver     Phase = "game_over"
)

type Side string

const (
	SideWhite Side = "white"
	SideBlack Side = "black"
)

func (s Side) Color() nchess.Color {
	if s == SideBlack {
		return nchess.Black
	}
	return nchess.White
}

// UIRefs records the chat messages the display layer owns for a session, so
// stale boards, menus and error notices can be deleted before a redraw.
type UIRefs struct {
	BoardMessageIDs []int64 `json:"board_message_ids,omitempty"`
	MenuMessageID   int64   `json:"menu_message_id,omitempty"`
	NoticeIDs       []int64 `json:"notice_ids,omitempty"`
}

// Session is the persisted record of one chat's game. The board itself is
// never stored: it is replayed from the UCI move list on load.
type Session struct {
	SessionUUID string    `json:"session_uuid"`
	ChatID      int64     `json:"chat_id"`
	Side        Side      `json:"side,omitempty"`
	Phase       Phase     `json:"phase"`
	Moves       []string  `json:"moves"`
	Snapshots   []int     `json:"snapshots,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UI          UIRefs    `json:"ui"`
}

// SessionState is the derived view of a session after replay.
type SessionState struct {
	SessionUUID   string
	ChatID        int64
	Side          Side
	Phase         Phase
	Moves         []string
	MovesSAN      []string
	FEN           string
	Turn          Side
	MoveCount     int
	InCheck       bool
	Outcome       nchess.Outcome
	OutcomeMethod nchess.Method
	StartedAt     time.Time
	UpdatedAt     time.Time
}

func (st *SessionState) Finished() bool {
	return st.Outcome != nchess.NoOutcome
}

// HumanToMove reports whether the replayed position expects the human side.
func (st *SessionState) HumanToMove() bool {
	return st.Turn == st.Side
}

// Replay rebuilds the game from the session's UCI move list.
func Replay(moves []string) (*nchess.Game, error) {
	g := nchess.NewGame()
	notation := nchess.UCINotation{}
	for _, mv := range moves {
		move, err := notation.Decode(g.Position(), strings.ToLower(strings.TrimSpace(mv)))
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", mv, err)
		}
		if err := g.Move(move, nil); err != nil {
			return nil, fmt.Errorf("apply move %s: %w", mv, err)
		}
	}
	return g, nil
}

// PushSnapshot marks the current move count so the matching human turn can be
// unwound later. Called once per accepted human move, before it is applied.
func (s *Session) PushSnapshot() {
	s.Snapshots = append(s.Snapshots, len(s.Moves))
}

// PopSnapshot truncates the move list back to the most recent mark. Returns
// false when there is nothing to unwind.
func (s *Session) PopSnapshot() bool {
	if len(s.Snapshots) == 0 {
		return false
	}
	mark := s.Snapshots[len(s.Snapshots)-1]
	s.Snapshots = s.Snapshots[:len(s.Snapshots)-1]
	if mark < 0 || mark > len(s.Moves) {
		return false
	}
	s.Moves = append([]string(nil), s.Moves[:mark]...)
	return true
}

// StateFromGame derives the read model for a replayed session.
func StateFromGame(s *Session, g *nchess.Game) *SessionState {
	positions := g.Positions()
	moves := g.Moves()
	sanMoves := make([]string, len(moves))
	notation := nchess.AlgebraicNotation{}
	inCheck := false
	for i, mv := range moves {
		if i < len(positions) {
			sanMoves[i] = notation.Encode(positions[i], mv)
		}
		if i == len(moves)-1 {
			inCheck = mv.HasTag(nchess.Check)
		}
	}

	turn := SideWhite
	if g.Position().Turn() == nchess.Black {
		turn = SideBlack
	}

	return &SessionState{
		SessionUUID:   s.SessionUUID,
		ChatID:        s.ChatID,
		Side:          s.Side,
		Phase:         s.Phase,
		Moves:         append([]string(nil), s.Moves...),
		MovesSAN:      sanMoves,
		FEN:           g.FEN(),
		Turn:          turn,
		MoveCount:     len(moves),
		InCheck:       inCheck,
		Outcome:       g.Outcome(),
		OutcomeMethod: g.Method(),
		StartedAt:     s.StartedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
