package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultEngineBudget  = time.Second
	engineTimeoutBuffer  = 2 * time.Second
	engineTimeoutFactor  = 3
	minEvaluationTimeout = 4 * time.Second
)

// Mover produces the engine's reply for a position reached by the given UCI
// move list.
type Mover interface {
	BestMove(ctx context.Context, movesUCI []string, budget time.Duration) (string, error)
}

type Config struct {
	EngineBudget time.Duration
}

// Controller owns every state transition of a chat's game. All operations on
// one chat are serialized behind a per-chat lock, so a session can never see
// two moves applied concurrently.
type Controller struct {
	engine   Mover
	registry Registry
	budget   time.Duration
	logger   *zap.Logger

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex
}

func NewController(engine Mover, registry Registry, cfg Config, logger *zap.Logger) (*Controller, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine mover is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if cfg.EngineBudget <= 0 {
		cfg.EngineBudget = defaultEngineBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		engine:   engine,
		registry: registry,
		budget:   cfg.EngineBudget,
		logger:   logger,
		locks:    make(map[int64]*sync.Mutex),
	}, nil
}

func (c *Controller) lockFor(chatID int64) *sync.Mutex {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	mu, ok := c.locks[chatID]
	if !ok {
		mu = &sync.Mutex{}
		c.locks[chatID] = mu
	}
	return mu
}

// TurnResult is what one completed interaction hands to the display layer.
type TurnResult struct {
	State     *SessionState
	PlayerUCI string
	PlayerSAN string
	EngineUCI string
	EngineSAN string
	Finished  bool
}

// StartSession creates a fresh session awaiting side selection. If the chat
// already has a live session its current state is returned with
// ErrSessionExists.
func (c *Controller) StartSession(ctx context.Context, chatID int64) (*SessionState, error) {
	mu := c.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := c.registry.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		g, err := Replay(existing.Moves)
		if err != nil {
			return nil, err
		}
		return StateFromGame(existing, g), ErrSessionExists
	}

	sess := &Session{
		SessionUUID: uuid.NewString(),
		ChatID:      chatID,
		Phase:       PhaseAwaitingSide,
		Moves:       []string{},
		StartedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := c.registry.Save(ctx, sess); err != nil {
		return nil, err
	}
	return StateFromGame(sess, nchess.NewGame()), nil
}

// ChooseSide binds the human to a color. When the human takes black the
// engine plays the opening move before control returns.
func (c *Controller) ChooseSide(ctx context.Context, chatID int64, side Side) (*TurnResult, error) {
	mu := c.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := c.registry.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Phase != PhaseAwaitingSide {
		return nil, ErrSideChosen
	}
	if side != SideWhite && side != SideBlack {
		return nil, fmt.Errorf("unknown side: %s", side)
	}

	sess.Side = side
	sess.Phase = PhaseHumanMove
	result := &TurnResult{}

	if side == SideBlack {
		engineUCI, engineSAN, err := c.engineReply(ctx, sess)
		if err != nil {
			return nil, err
		}
		result.EngineUCI = engineUCI
		result.EngineSAN = engineSAN
	}

	sess.UpdatedAt = time.Now()
	if err := c.registry.Save(ctx, sess); err != nil {
		return nil, err
	}

	g, err := Replay(sess.Moves)
	if err != nil {
		return nil, err
	}
	result.State = StateFromGame(sess, g)
	return result, nil
}

// PlayHuman validates and applies one human move, then obtains and applies
// the engine reply. Nothing is persisted until both halves of the turn are
// on the move list, so an engine failure leaves the session untouched.
func (c *Controller) PlayHuman(ctx context.Context, chatID int64, input string) (*TurnResult, error) {
	mu := c.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()

	uci, err := ParseMoveInput(input)
	if err != nil {
		return nil, err
	}

	sess, err := c.registry.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Phase == PhaseAwaitingSide {
		return nil, ErrSideNotChosen
	}
	if sess.Phase == PhaseGameOver {
		return nil, ErrGameFinished
	}

	g, err := Replay(sess.Moves)
	if err != nil {
		return nil, err
	}
	if g.Outcome() != nchess.NoOutcome {
		return nil, ErrGameFinished
	}
	if g.Position().Turn() != sess.Side.Color() {
		return nil, ErrNotYourTurn
	}

	notationSAN := nchess.AlgebraicNotation{}
	notationUCI := nchess.UCINotation{}

	posBefore := g.Position()
	move, err := ApplyHumanMove(g, uci)
	if err != nil {
		return nil, err
	}

	playerSAN := notationSAN.Encode(posBefore, move)
	playerUCI := strings.ToLower(notationUCI.Encode(posBefore, move))

	sess.PushSnapshot()
	sess.Moves = append(sess.Moves, playerUCI)

	result := &TurnResult{
		PlayerUCI: playerUCI,
		PlayerSAN: playerSAN,
	}

	if g.Outcome() != nchess.NoOutcome {
		return c.finishTurn(ctx, sess, g, result)
	}

	sess.Phase = PhaseEngineMove
	engineUCI, engineSAN, err := c.engineReply(ctx, sess)
	if err != nil {
		c.logger.Warn("engine reply failed",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("move_count", len(sess.Moves)),
		)
		return nil, err
	}
	result.EngineUCI = engineUCI
	result.EngineSAN = engineSAN
	sess.Phase = PhaseHumanMove

	g, err = Replay(sess.Moves)
	if err != nil {
		return nil, err
	}
	return c.finishTurn(ctx, sess, g, result)
}

// engineReply asks the engine for a move and appends it to the session.
func (c *Controller) engineReply(ctx context.Context, sess *Session) (string, string, error) {
	timeout := c.budget*engineTimeoutFactor + engineTimeoutBuffer
	if timeout < minEvaluationTimeout {
		timeout = minEvaluationTimeout
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := c.engine.BestMove(evalCtx, sess.Moves, c.budget)
	if err != nil {
		return "", "", mapEngineError(err)
	}
	engineUCI := strings.ToLower(strings.TrimSpace(raw))
	if engineUCI == "" {
		return "", "", ErrEngineFailure
	}

	g, err := Replay(sess.Moves)
	if err != nil {
		return "", "", err
	}
	pos := g.Position()
	move, err := nchess.UCINotation{}.Decode(pos, engineUCI)
	if err != nil {
		return "", "", fmt.Errorf("decode engine move %s: %w", engineUCI, err)
	}
	if err := g.Move(move, nil); err != nil {
		return "", "", fmt.Errorf("apply engine move %s: %w", engineUCI, err)
	}
	engineSAN := nchess.AlgebraicNotation{}.Encode(pos, move)

	sess.Moves = append(sess.Moves, engineUCI)
	return engineUCI, engineSAN, nil
}

func (c *Controller) finishTurn(ctx context.Context, sess *Session, g *nchess.Game, result *TurnResult) (*TurnResult, error) {
	sess.UpdatedAt = time.Now()
	if g.Outcome() != nchess.NoOutcome {
		sess.Phase = PhaseGameOver
		result.Finished = true
		result.State = StateFromGame(sess, g)
		if err := c.registry.Delete(ctx, sess.ChatID); err != nil {
			c.logger.Warn("failed to delete finished session", zap.Error(err), zap.Int64("chat_id", sess.ChatID))
		}
		return result, nil
	}
	if err := c.registry.Save(ctx, sess); err != nil {
		return nil, err
	}
	result.State = StateFromGame(sess, g)
	return result, nil
}

// Undo unwinds the most recent human move together with the engine's reply.
func (c *Controller) Undo(ctx context.Context, chatID int64) (*SessionState, error) {
	mu := c.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := c.registry.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Phase == PhaseAwaitingSide {
		return nil, ErrUndoNotAvailable
	}
	if !sess.PopSnapshot() {
		return nil, ErrUndoNotAvailable
	}
	sess.Phase = PhaseHumanMove
	sess.UpdatedAt = time.Now()

	g, err := Replay(sess.Moves)
	if err != nil {
		return nil, err
	}
	if err := c.registry.Save(ctx, sess); err != nil {
		return nil, err
	}
	return StateFromGame(sess, g), nil
}

// Resign ends the game in the engine's favor and closes the session.
func (c *Controller) Resign(ctx context.Context, chatID int64) (*SessionState, error) {
	mu := c.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := c.registry.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	g, err := Replay(sess.Moves)
	if err != nil {
		return nil, err
	}
	g.Resign(sess.Side.Color())
	sess.Phase = PhaseGameOver
	sess.UpdatedAt = time.Now()

	if err := c.registry.Delete(ctx, chatID); err != nil {
		c.logger.Warn("failed to delete resigned session", zap.Error(err), zap.Int64("chat_id", chatID))
	}
	return StateFromGame(sess, g), nil
}

// Close drops the chat's session without recording a result.
func (c *Controller) Close(ctx context.Context, chatID int64) error {
	mu := c.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := c.registry.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	return c.registry.Delete(ctx, chatID)
}

// Status replays and returns the chat's current state.
func (c *Controller) Status(ctx context.Context, chatID int64) (*SessionState, error) {
	sess, err := c.registry.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	g, err := Replay(sess.Moves)
	if err != nil {
		return nil, err
	}
	return StateFromGame(sess, g), nil
}

// PickerPieces lists the human's movable pieces for the tap-to-move keyboard.
func (c *Controller) PickerPieces(ctx context.Context, chatID int64) ([]PieceOption, error) {
	g, err := c.humanTurnGame(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return MovablePieces(g), nil
}

// PickerMoves lists the legal moves of the picked piece kind.
func (c *Controller) PickerMoves(ctx context.Context, chatID int64, kindToken string) ([]string, error) {
	kind, ok := ParseKindToken(kindToken)
	if !ok {
		return nil, ErrMalformedMove
	}
	g, err := c.humanTurnGame(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return MovesForKind(g, kind), nil
}

// ValidateMove checks a move against the current position without applying
// it, so callers can reject bad input before announcing the engine turn.
func (c *Controller) ValidateMove(ctx context.Context, chatID int64, input string) error {
	uci, err := ParseMoveInput(input)
	if err != nil {
		return err
	}
	g, err := c.humanTurnGame(ctx, chatID)
	if err != nil {
		return err
	}
	_, err = ApplyHumanMove(g, uci)
	return err
}

func (c *Controller) humanTurnGame(ctx context.Context, chatID int64) (*nchess.Game, error) {
	sess, err := c.registry.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Phase == PhaseAwaitingSide {
		return nil, ErrSideNotChosen
	}
	g, err := Replay(sess.Moves)
	if err != nil {
		return nil, err
	}
	if g.Outcome() != nchess.NoOutcome {
		return nil, ErrGameFinished
	}
	if g.Position().Turn() != sess.Side.Color() {
		return nil, ErrNotYourTurn
	}
	return g, nil
}

// UpdateUI lets the display layer persist its message handles on the session.
func (c *Controller) UpdateUI(ctx context.Context, chatID int64, apply func(*UIRefs)) error {
	mu := c.lockFor(chatID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := c.registry.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	apply(&sess.UI)
	return c.registry.Save(ctx, sess)
}

// UIRefsFor returns the stored message handles without touching session state.
func (c *Controller) UIRefsFor(ctx context.Context, chatID int64) (UIRefs, error) {
	sess, err := c.registry.Get(ctx, chatID)
	if err != nil {
		return UIRefs{}, err
	}
	if sess == nil {
		return UIRefs{}, ErrSessionNotFound
	}
	return sess.UI, nil
}

func mapEngineError(err error) error {
	if err == nil {
		return ErrEngineFailure
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return ErrEngineTimeout
	}
	return ErrEngineFailure
}
