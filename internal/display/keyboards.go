package display

import (
	"strings"

	"github.com/kapu/telegram-chess-bot/internal/game"
	"github.com/kapu/telegram-chess-bot/internal/tg"
)

// Callback data prefixes shared with the update handlers.
const (
	CallbackSideWhite = "side:white"
	CallbackSideBlack = "side:black"
	CallbackUndo      = "act:undo"
	CallbackResign    = "act:resign"
	CallbackHistory   = "act:history"
	CallbackBack      = "act:back"
	CallbackNewGame   = "act:new"
	CallbackPiece     = "piece:" // + kind token, e.g. piece:n
	CallbackMove      = "move:"  // + uci, e.g. move:g1f3
)

const pickerRowWidth = 3

func sideKeyboard(whiteLabel, blackLabel string) *tg.InlineKeyboardMarkup {
	return &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{{
		{Text: whiteLabel, CallbackData: CallbackSideWhite},
		{Text: blackLabel, CallbackData: CallbackSideBlack},
	}}}
}

// pieceKeyboard lays out the movable pieces three per row, with the session
// actions underneath.
func pieceKeyboard(pieces []game.PieceOption, undoLabel, resignLabel, historyLabel string) *tg.InlineKeyboardMarkup {
	rows := make([][]tg.InlineKeyboardButton, 0, len(pieces)/pickerRowWidth+2)
	row := make([]tg.InlineKeyboardButton, 0, pickerRowWidth)
	for _, opt := range pieces {
		row = append(row, tg.InlineKeyboardButton{
			Text:         game.PieceLabel(opt),
			CallbackData: CallbackPiece + game.KindToken(opt.Piece.Type()),
		})
		if len(row) == pickerRowWidth {
			rows = append(rows, row)
			row = make([]tg.InlineKeyboardButton, 0, pickerRowWidth)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tg.InlineKeyboardButton{
		{Text: undoLabel, CallbackData: CallbackUndo},
		{Text: resignLabel, CallbackData: CallbackResign},
	})
	rows = append(rows, []tg.InlineKeyboardButton{
		{Text: historyLabel, CallbackData: CallbackHistory},
	})
	return &tg.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// moveKeyboard lists destinations for one piece, three per row, plus Back.
func moveKeyboard(moves []string, backLabel string) *tg.InlineKeyboardMarkup {
	rows := make([][]tg.InlineKeyboardButton, 0, len(moves)/pickerRowWidth+1)
	row := make([]tg.InlineKeyboardButton, 0, pickerRowWidth)
	for _, uci := range moves {
		row = append(row, tg.InlineKeyboardButton{
			Text:         moveButtonLabel(uci),
			CallbackData: CallbackMove + uci,
		})
		if len(row) == pickerRowWidth {
			rows = append(rows, row)
			row = make([]tg.InlineKeyboardButton, 0, pickerRowWidth)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tg.InlineKeyboardButton{
		{Text: backLabel, CallbackData: CallbackBack},
	})
	return &tg.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func moveButtonLabel(uci string) string {
	if len(uci) < 4 {
		return uci
	}
	uci = strings.ToLower(uci)
	return uci[:2] + "→" + uci[2:4]
}

func newGameKeyboard(label string) *tg.InlineKeyboardMarkup {
	return &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{{
		{Text: label, CallbackData: CallbackNewGame},
	}}}
}
