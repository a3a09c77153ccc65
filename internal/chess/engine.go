package chess

import (
	"context"
	"fmt"
	"time"

	"github.com/kapu/telegram-chess-bot/internal/chess/uci"
)

// Engine computes replies with a short-lived Stockfish process per request.
// The process never outlives a single search, so a crashed or hung engine
// cannot poison later turns.
type Engine struct {
	binaryPath string
	opt        uci.Options
}

func NewEngine(binaryPath string, threads, hashMB int) *Engine {
	if threads <= 0 {
		threads = 1
	}
	if hashMB <= 0 {
		hashMB = 64
	}
	return &Engine{
		binaryPath: binaryPath,
		opt:        uci.Options{Threads: threads, HashMB: hashMB},
	}
}

// BestMove searches the position reached from the start position by movesUCI
// and returns the engine's reply in UCI coordinates.
func (e *Engine) BestMove(ctx context.Context, movesUCI []string, budget time.Duration) (string, error) {
	if budget <= 0 {
		budget = time.Second
	}

	session, err := uci.NewSession(ctx, e.binaryPath, e.opt)
	if err != nil {
		return "", fmt.Errorf("spawn engine: %w", err)
	}
	defer session.Close()

	if err := session.NewGame(ctx); err != nil {
		return "", fmt.Errorf("engine new game: %w", err)
	}

	resp, err := session.Search(ctx, uci.SearchRequest{
		Moves:  movesUCI,
		Limits: uci.Limits{MoveTimeMillis: int(budget / time.Millisecond)},
	})
	if err != nil {
		return "", fmt.Errorf("engine search: %w", err)
	}
	return resp.BestMove, nil
}
