package game

import "errors"

var (
	ErrSessionNotFound  = errors.New("game session not found")
	ErrSessionExists    = errors.New("game session already in progress")
	ErrMalformedMove    = errors.New("malformed move input")
	ErrIllegalMove      = errors.New("illegal move")
	ErrKingInCheck      = errors.New("move ignores check")
	ErrPiecePinned      = errors.New("piece is pinned")
	ErrNotYourTurn      = errors.New("not the player's turn")
	ErrGameFinished     = errors.New("game already finished")
	ErrSideChosen       = errors.New("side already chosen")
	ErrSideNotChosen    = errors.New("side not chosen yet")
	ErrUndoNotAvailable = errors.New("no moves available to undo")
	ErrEngineFailure    = errors.New("engine unavailable")
	ErrEngineTimeout    = errors.New("engine timeout")
)
