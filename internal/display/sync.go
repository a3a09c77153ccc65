package display

import (
	"context"
	"errors"
	"sync"

	"github.com/kapu/telegram-chess-bot/internal/game"
	"github.com/kapu/telegram-chess-bot/internal/msgcat"
	"github.com/kapu/telegram-chess-bot/internal/render"
	"github.com/kapu/telegram-chess-bot/internal/tg"
	"go.uber.org/zap"
)

// Sender is the subset of the Telegram client the synchronizer needs.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *tg.InlineKeyboardMarkup) (*tg.Message, error)
	SendReply(ctx context.Context, chatID, replyTo int64, text string, markup *tg.InlineKeyboardMarkup) (*tg.Message, error)
	SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) (*tg.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *tg.InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// Synchronizer keeps each chat converged on one board photo and one menu
// message. Every refresh deletes transient notices first, then stale boards,
// then redraws, so repeating a refresh with the same state is idempotent.
// Refreshes for one chat are serialized behind a per-chat lock; the
// delete-then-send sequences are not atomic against the transport, and two
// interleaved refreshes would leave a stray board or notice behind.
type Synchronizer struct {
	client   Sender
	cat      *msgcat.Catalog
	renderer render.BoardRenderer
	ctrl     *game.Controller
	logger   *zap.Logger

	mu    sync.Mutex
	refs  map[int64]*game.UIRefs
	locks map[int64]*sync.Mutex
}

func NewSynchronizer(client Sender, cat *msgcat.Catalog, renderer render.BoardRenderer, ctrl *game.Controller, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		client:   client,
		cat:      cat,
		renderer: renderer,
		ctrl:     ctrl,
		logger:   logger,
		refs:     make(map[int64]*game.UIRefs),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Text renders a catalog template, falling back to the key itself so a
// missing template never blanks a chat message.
func (s *Synchronizer) Text(key string, data any) string {
	out, err := s.cat.Render(key, data)
	if err != nil {
		s.logger.Warn("render message template failed", zap.String("key", key), zap.Error(err))
		return key
	}
	return out
}

func (s *Synchronizer) lockFor(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.locks[chatID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[chatID] = mu
	}
	return mu
}

func (s *Synchronizer) refsFor(ctx context.Context, chatID int64) *game.UIRefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.refs[chatID]; ok {
		return r
	}
	r := &game.UIRefs{}
	if stored, err := s.ctrl.UIRefsFor(ctx, chatID); err == nil {
		*r = stored
	}
	s.refs[chatID] = r
	return r
}

func (s *Synchronizer) persist(ctx context.Context, chatID int64) {
	s.mu.Lock()
	r, ok := s.refs[chatID]
	s.mu.Unlock()
	if !ok {
		return
	}
	snapshot := *r
	err := s.ctrl.UpdateUI(ctx, chatID, func(ui *game.UIRefs) { *ui = snapshot })
	if err != nil && !errors.Is(err, game.ErrSessionNotFound) {
		s.logger.Warn("persist ui refs failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (s *Synchronizer) forget(chatID int64) {
	s.mu.Lock()
	delete(s.refs, chatID)
	s.mu.Unlock()
}

func (s *Synchronizer) deleteAll(ctx context.Context, chatID int64, ids []int64) {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if err := s.client.DeleteMessage(ctx, chatID, id); err != nil {
			s.logger.Debug("delete message failed", zap.Int64("chat_id", chatID), zap.Int64("message_id", id), zap.Error(err))
		}
	}
}

func (s *Synchronizer) clearNotices(ctx context.Context, chatID int64) {
	r := s.refsFor(ctx, chatID)
	s.deleteAll(ctx, chatID, r.NoticeIDs)
	r.NoticeIDs = nil
}

// Notice posts a transient message, replacing any previous one. It is removed
// on the next board refresh.
func (s *Synchronizer) Notice(ctx context.Context, chatID int64, text string) {
	mu := s.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()
	s.notice(ctx, chatID, text)
}

func (s *Synchronizer) notice(ctx context.Context, chatID int64, text string) {
	s.clearNotices(ctx, chatID)
	msg, err := s.client.SendMessage(ctx, chatID, text, nil)
	if err != nil {
		s.logger.Warn("send notice failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	r := s.refsFor(ctx, chatID)
	r.NoticeIDs = append(r.NoticeIDs, msg.MessageID)
	s.persist(ctx, chatID)
}

// ShowPlayPrompt greets the chat with the play button.
func (s *Synchronizer) ShowPlayPrompt(ctx context.Context, chatID int64) {
	mu := s.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()

	s.clearNotices(ctx, chatID)
	markup := newGameKeyboard(s.Text("button.play", nil))
	s.showMenu(ctx, chatID, s.Text("session.welcome", nil), markup)
}

// ShowSidePrompt opens a session with the color choice keyboard.
func (s *Synchronizer) ShowSidePrompt(ctx context.Context, chatID int64) {
	mu := s.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()

	s.clearNotices(ctx, chatID)
	markup := sideKeyboard(s.Text("button.white", nil), s.Text("button.black", nil))
	text := s.Text("session.choose_side", nil)

	r := s.refsFor(ctx, chatID)
	if r.MenuMessageID != 0 {
		if err := s.client.EditMessageText(ctx, chatID, r.MenuMessageID, text, markup); err == nil {
			s.persist(ctx, chatID)
			return
		}
	}
	msg, err := s.client.SendMessage(ctx, chatID, text, markup)
	if err != nil {
		s.logger.Warn("send side prompt failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	r.MenuMessageID = msg.MessageID
	s.persist(ctx, chatID)
}

// ShowBoard replaces the chat's board photo with the current position.
func (s *Synchronizer) ShowBoard(ctx context.Context, state *game.SessionState, highlight *render.MoveHighlight, caption string) {
	mu := s.lockFor(state.ChatID)
	mu.Lock()
	defer mu.Unlock()
	s.showBoard(ctx, state, highlight, caption)
}

func (s *Synchronizer) showBoard(ctx context.Context, state *game.SessionState, highlight *render.MoveHighlight, caption string) {
	chatID := state.ChatID
	s.clearNotices(ctx, chatID)

	g, err := game.Replay(state.Moves)
	if err != nil {
		s.logger.Error("replay for render failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	png, err := s.renderer.RenderPNG(ctx, g.Position().Board(), render.RenderOptions{
		Highlight: highlight,
		Flipped:   state.Side == game.SideBlack,
	})
	if err != nil {
		s.logger.Error("render board failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	r := s.refsFor(ctx, chatID)
	s.deleteAll(ctx, chatID, r.BoardMessageIDs)
	r.BoardMessageIDs = nil

	msg, err := s.client.SendPhoto(ctx, chatID, png, caption)
	if err != nil {
		s.logger.Warn("send board failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	r.BoardMessageIDs = append(r.BoardMessageIDs, msg.MessageID)
	s.persist(ctx, chatID)
}

// ShowMenu converges the chat on a single menu message with the given
// content, editing in place when possible.
func (s *Synchronizer) ShowMenu(ctx context.Context, chatID int64, text string, markup *tg.InlineKeyboardMarkup) {
	mu := s.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()
	s.showMenu(ctx, chatID, text, markup)
}

func (s *Synchronizer) showMenu(ctx context.Context, chatID int64, text string, markup *tg.InlineKeyboardMarkup) {
	r := s.refsFor(ctx, chatID)
	if r.MenuMessageID != 0 {
		if err := s.client.EditMessageText(ctx, chatID, r.MenuMessageID, text, markup); err == nil {
			s.persist(ctx, chatID)
			return
		}
		s.deleteAll(ctx, chatID, []int64{r.MenuMessageID})
		r.MenuMessageID = 0
	}
	// a fresh menu threads under the current board so it reads as the
	// board's controls
	var msg *tg.Message
	var err error
	if n := len(r.BoardMessageIDs); n > 0 {
		msg, err = s.client.SendReply(ctx, chatID, r.BoardMessageIDs[n-1], text, markup)
	} else {
		msg, err = s.client.SendMessage(ctx, chatID, text, markup)
	}
	if err != nil {
		s.logger.Warn("send menu failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	r.MenuMessageID = msg.MessageID
	s.persist(ctx, chatID)
}

// ShowPieceMenu redraws the menu as the piece picker for the current state.
func (s *Synchronizer) ShowPieceMenu(ctx context.Context, chatID int64, pieces []game.PieceOption, prompt string) {
	markup := pieceKeyboard(pieces,
		s.Text("button.undo", nil),
		s.Text("button.resign", nil),
		s.Text("button.history", nil),
	)
	s.ShowMenu(ctx, chatID, prompt, markup)
}

// ShowMoveMenu redraws the menu as the destination list for one piece.
func (s *Synchronizer) ShowMoveMenu(ctx context.Context, chatID int64, prompt string, moves []string) {
	markup := moveKeyboard(moves, s.Text("picker.back", nil))
	s.ShowMenu(ctx, chatID, prompt, markup)
}

// GameOver shows the final board, removes the menu and offers a rematch.
func (s *Synchronizer) GameOver(ctx context.Context, state *game.SessionState, highlight *render.MoveHighlight, text string) {
	chatID := state.ChatID
	mu := s.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()

	s.showBoard(ctx, state, highlight, "")

	r := s.refsFor(ctx, chatID)
	if r.MenuMessageID != 0 {
		s.deleteAll(ctx, chatID, []int64{r.MenuMessageID})
		r.MenuMessageID = 0
	}

	markup := newGameKeyboard(s.Text("button.new_game", nil))
	if _, err := s.client.SendMessage(ctx, chatID, text, markup); err != nil {
		s.logger.Warn("send game over failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	s.forget(chatID)
}

// CloseSession clears tracked UI for a chat without touching the final board.
func (s *Synchronizer) CloseSession(ctx context.Context, chatID int64) {
	mu := s.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()

	s.clearNotices(ctx, chatID)
	r := s.refsFor(ctx, chatID)
	if r.MenuMessageID != 0 {
		s.deleteAll(ctx, chatID, []int64{r.MenuMessageID})
		r.MenuMessageID = 0
	}
	s.forget(chatID)
}
