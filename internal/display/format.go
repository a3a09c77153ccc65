package display

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/kapu/telegram-chess-bot/internal/game"
)

// FormatHistory renders the move list as numbered white/black pairs.
func FormatHistory(header, empty string, state *game.SessionState) string {
	if state == nil || len(state.MovesSAN) == 0 {
		return empty
	}
	var b strings.Builder
	b.WriteString(header)
	for i := 0; i < len(state.MovesSAN); i += 2 {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, state.MovesSAN[i]))
		if i+1 < len(state.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(state.MovesSAN[i+1])
		}
	}
	return b.String()
}

// GameOverKey picks the message template for a finished game from the human
// side's point of view. The data map feeds the draw-reason placeholder.
func GameOverKey(state *game.SessionState) (string, map[string]any) {
	humanWon := (state.Outcome == nchess.WhiteWon && state.Side == game.SideWhite) ||
		(state.Outcome == nchess.BlackWon && state.Side == game.SideBlack)

	switch {
	case state.Outcome == nchess.Draw && state.OutcomeMethod == nchess.Stalemate:
		return "gameover.stalemate", nil
	case state.Outcome == nchess.Draw:
		return "gameover.draw", map[string]any{"Reason": strings.ToLower(state.OutcomeMethod.String())}
	case state.OutcomeMethod == nchess.Resignation:
		return "gameover.resigned", nil
	case humanWon:
		return "gameover.win", nil
	default:
		return "gameover.loss", nil
	}
}
