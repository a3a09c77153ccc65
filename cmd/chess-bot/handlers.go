package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/telegram-chess-bot/internal/display"
	"github.com/kapu/telegram-chess-bot/internal/game"
	"github.com/kapu/telegram-chess-bot/internal/render"
	"github.com/kapu/telegram-chess-bot/internal/tg"
)

const handleTimeout = 60 * time.Second

type bot struct {
	ctrl   *game.Controller
	sync   *display.Synchronizer
	client *tg.Client
	logger *zap.Logger

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex
}

func newBot(ctrl *game.Controller, disp *display.Synchronizer, client *tg.Client, logger *zap.Logger) *bot {
	return &bot{
		ctrl:   ctrl,
		sync:   disp,
		client: client,
		logger: logger,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// lockFor serializes update handling per chat. The poller dispatches every
// update on its own goroutine, so two taps arriving in one getUpdates batch
// would otherwise race through the same session's display refresh.
func (b *bot) lockFor(chatID int64) *sync.Mutex {
	b.lockMu.Lock()
	defer b.lockMu.Unlock()
	mu, ok := b.locks[chatID]
	if !ok {
		mu = &sync.Mutex{}
		b.locks[chatID] = mu
	}
	return mu
}

func (b *bot) HandleUpdate(upd *tg.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		mu := b.lockFor(upd.CallbackQuery.Message.Chat.ID)
		mu.Lock()
		defer mu.Unlock()
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Text != "":
		mu := b.lockFor(upd.Message.Chat.ID)
		mu.Lock()
		defer mu.Unlock()
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *bot) handleMessage(ctx context.Context, msg *tg.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	cmd := strings.ToLower(text)
	if i := strings.IndexByte(cmd, '@'); strings.HasPrefix(cmd, "/") && i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		b.welcome(ctx, chatID)
	case "/undo":
		b.undo(ctx, chatID)
	case "/resign":
		b.resign(ctx, chatID)
	case "/history":
		b.history(ctx, chatID)
	case "/board":
		b.showCurrent(ctx, chatID)
	case "/exit", "/quit", "exit", "quit":
		b.closeSession(ctx, chatID)
	default:
		if strings.HasPrefix(cmd, "/") {
			return
		}
		b.playMove(ctx, chatID, text)
	}
}

func (b *bot) welcome(ctx context.Context, chatID int64) {
	if _, err := b.ctrl.Status(ctx, chatID); err == nil {
		b.sync.Notice(ctx, chatID, b.sync.Text("session.already_active", nil))
		return
	}
	b.sync.ShowPlayPrompt(ctx, chatID)
}

func (b *bot) handleCallback(ctx context.Context, cb *tg.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	data := strings.TrimSpace(cb.Data)

	if err := b.client.AnswerCallbackQuery(ctx, cb.ID, ""); err != nil {
		b.logger.Debug("answer callback failed", zap.Error(err))
	}

	switch {
	case data == display.CallbackSideWhite:
		b.chooseSide(ctx, chatID, game.SideWhite)
	case data == display.CallbackSideBlack:
		b.chooseSide(ctx, chatID, game.SideBlack)
	case data == display.CallbackUndo:
		b.undo(ctx, chatID)
	case data == display.CallbackResign:
		b.resign(ctx, chatID)
	case data == display.CallbackHistory:
		b.history(ctx, chatID)
	case data == display.CallbackBack:
		b.showPicker(ctx, chatID)
	case data == display.CallbackNewGame:
		b.startGame(ctx, chatID)
	case strings.HasPrefix(data, display.CallbackPiece):
		b.showPieceMoves(ctx, chatID, strings.TrimPrefix(data, display.CallbackPiece))
	case strings.HasPrefix(data, display.CallbackMove):
		b.playMove(ctx, chatID, strings.TrimPrefix(data, display.CallbackMove))
	}
}

func (b *bot) startGame(ctx context.Context, chatID int64) {
	_, err := b.ctrl.StartSession(ctx, chatID)
	if errors.Is(err, game.ErrSessionExists) {
		b.sync.Notice(ctx, chatID, b.sync.Text("session.already_active", nil))
		return
	}
	if err != nil {
		b.reportError(ctx, chatID, err, "")
		return
	}
	b.sync.ShowSidePrompt(ctx, chatID)
}

func (b *bot) chooseSide(ctx context.Context, chatID int64, side game.Side) {
	if side == game.SideBlack {
		b.sync.Notice(ctx, chatID, b.sync.Text("prompt.engine_thinking", nil))
	}
	result, err := b.ctrl.ChooseSide(ctx, chatID, side)
	if err != nil {
		b.reportError(ctx, chatID, err, "")
		return
	}
	var highlight *render.MoveHighlight
	hint := b.sync.Text("session.hint_move_first", nil)
	if result.EngineSAN != "" {
		highlight = highlightFor(result.EngineUCI)
		hint = b.sync.Text("prompt.engine_played", map[string]any{"Move": result.EngineSAN})
	}
	caption := b.sync.Text("session.started", map[string]any{
		"Side": string(side),
		"Hint": hint,
	})
	b.sync.ShowBoard(ctx, result.State, highlight, caption)
	b.refreshPicker(ctx, result.State)
}

func (b *bot) playMove(ctx context.Context, chatID int64, input string) {
	// reject before the thinking notice so a bad move never flashes it
	if err := b.ctrl.ValidateMove(ctx, chatID, input); err != nil {
		b.reportError(ctx, chatID, err, input)
		return
	}
	b.sync.Notice(ctx, chatID, b.sync.Text("prompt.engine_thinking", nil))
	result, err := b.ctrl.PlayHuman(ctx, chatID, input)
	if err != nil {
		b.reportError(ctx, chatID, err, input)
		return
	}
	if result.Finished {
		key, data := display.GameOverKey(result.State)
		highlight := highlightFor(lastMoveUCI(result))
		b.sync.GameOver(ctx, result.State, highlight, b.sync.Text(key, data))
		return
	}
	caption := b.sync.Text("prompt.engine_played", map[string]any{"Move": result.EngineSAN})
	b.sync.ShowBoard(ctx, result.State, highlightFor(result.EngineUCI), caption)
	b.refreshPicker(ctx, result.State)
}

func (b *bot) undo(ctx context.Context, chatID int64) {
	state, err := b.ctrl.Undo(ctx, chatID)
	if err != nil {
		b.reportError(ctx, chatID, err, "")
		return
	}
	b.sync.ShowBoard(ctx, state, nil, b.sync.Text("undo.done", nil))
	b.refreshPicker(ctx, state)
}

func (b *bot) resign(ctx context.Context, chatID int64) {
	state, err := b.ctrl.Resign(ctx, chatID)
	if err != nil {
		b.reportError(ctx, chatID, err, "")
		return
	}
	b.sync.GameOver(ctx, state, nil, b.sync.Text("gameover.resigned", nil))
}

func (b *bot) closeSession(ctx context.Context, chatID int64) {
	if err := b.ctrl.Close(ctx, chatID); err != nil {
		b.reportError(ctx, chatID, err, "")
		return
	}
	b.sync.CloseSession(ctx, chatID)
	b.sync.Notice(ctx, chatID, b.sync.Text("session.ended", nil))
}

func (b *bot) history(ctx context.Context, chatID int64) {
	state, err := b.ctrl.Status(ctx, chatID)
	if err != nil {
		b.reportError(ctx, chatID, err, "")
		return
	}
	text := display.FormatHistory(
		b.sync.Text("history.header", nil),
		b.sync.Text("history.empty", nil),
		state,
	)
	b.sync.Notice(ctx, chatID, text)
}

func (b *bot) showCurrent(ctx context.Context, chatID int64) {
	state, err := b.ctrl.Status(ctx, chatID)
	if err != nil {
		b.reportError(ctx, chatID, err, "")
		return
	}
	b.sync.ShowBoard(ctx, state, nil, "")
	b.refreshPicker(ctx, state)
}

func (b *bot) showPicker(ctx context.Context, chatID int64) {
	pieces, err := b.ctrl.PickerPieces(ctx, chatID)
	if err != nil {
		b.reportError(ctx, chatID, err, "")
		return
	}
	b.sync.ShowPieceMenu(ctx, chatID, pieces, b.sync.Text("picker.choose_piece", nil))
}

func (b *bot) showPieceMoves(ctx context.Context, chatID int64, token string) {
	moves, err := b.ctrl.PickerMoves(ctx, chatID, token)
	if err != nil {
		b.reportError(ctx, chatID, err, "")
		return
	}
	if len(moves) == 0 {
		b.sync.Notice(ctx, chatID, b.sync.Text("picker.no_moves", nil))
		return
	}
	name := "Piece"
	if kind, ok := game.ParseKindToken(token); ok {
		name = game.PieceName(kind)
	}
	prompt := b.sync.Text("picker.choose_move", map[string]any{"Piece": name})
	b.sync.ShowMoveMenu(ctx, chatID, prompt, moves)
}

// refreshPicker redraws the menu for the side that is now to move. When the
// session awaits the side choice or the engine, the menu is left as is.
func (b *bot) refreshPicker(ctx context.Context, state *game.SessionState) {
	if state == nil || state.Phase != game.PhaseHumanMove || !state.HumanToMove() {
		return
	}
	pieces, err := b.ctrl.PickerPieces(ctx, state.ChatID)
	if err != nil {
		b.logger.Warn("picker refresh failed", zap.Int64("chat_id", state.ChatID), zap.Error(err))
		return
	}
	prompt := b.sync.Text("prompt.your_move", map[string]any{"Side": string(state.Side)})
	b.sync.ShowPieceMenu(ctx, state.ChatID, pieces, prompt)
}

func (b *bot) reportError(ctx context.Context, chatID int64, err error, input string) {
	key := "error.internal"
	data := map[string]any{}
	switch {
	case errors.Is(err, game.ErrSessionNotFound), errors.Is(err, game.ErrGameFinished):
		key = "session.none_active"
	case errors.Is(err, game.ErrSideNotChosen):
		key = "session.choose_side"
	case errors.Is(err, game.ErrSideChosen):
		key = "reject.not_your_turn"
	case errors.Is(err, game.ErrMalformedMove):
		key = "reject.malformed"
		data["Input"] = input
	case errors.Is(err, game.ErrKingInCheck):
		key = "reject.in_check"
		data["Move"] = input
	case errors.Is(err, game.ErrPiecePinned):
		key = "reject.pinned"
	case errors.Is(err, game.ErrIllegalMove):
		key = "reject.illegal"
		data["Move"] = input
	case errors.Is(err, game.ErrNotYourTurn):
		key = "reject.not_your_turn"
	case errors.Is(err, game.ErrUndoNotAvailable):
		key = "undo.unavailable"
	case errors.Is(err, game.ErrEngineTimeout), errors.Is(err, game.ErrEngineFailure):
		key = "error.engine"
	default:
		b.logger.Error("unhandled command error", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.sync.Notice(ctx, chatID, b.sync.Text(key, data))
}

func highlightFor(uci string) *render.MoveHighlight {
	from, to, ok := game.MoveSquares(uci)
	if !ok {
		return nil
	}
	return &render.MoveHighlight{From: from, To: to}
}

func lastMoveUCI(result *game.TurnResult) string {
	if result.EngineUCI != "" {
		return result.EngineUCI
	}
	return result.PlayerUCI
}

