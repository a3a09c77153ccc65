package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// MoveHighlight marks the last played move on the board image.
type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type RenderOptions struct {
	Highlight *MoveHighlight
	// Flipped draws the board from black's point of view.
	Flipped bool
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

const (
	squareSize   = 72
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	margin       = 36
)

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	moveHighlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	backgroundColor     = color.RGBA{24, 26, 34, 255}
	coordinateTextColor = color.NRGBA{R: 214, G: 217, B: 230, A: 255}
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	totalWidth := boardSize + margin*2
	totalHeight := boardSize + margin*2
	origin := image.Point{X: margin, Y: margin}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(img, origin, opts.Flipped)
	drawHighlight(img, opts.Highlight, origin, opts.Flipped)
	if err := drawPieces(img, board, origin, opts.Flipped); err != nil {
		return nil, err
	}
	drawCoordinates(img, origin, opts.Flipped)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

// squareCell maps a square to its drawing cell, honoring orientation.
func squareCell(sq nchess.Square, flipped bool) (col, row int) {
	col = int(sq.File())
	row = 7 - int(sq.Rank())
	if flipped {
		col = 7 - col
		row = 7 - row
	}
	return col, row
}

func squareRect(sq nchess.Square, origin image.Point, flipped bool) image.Rectangle {
	col, row := squareCell(sq, flipped)
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawSquares(dst imagedraw.Image, origin image.Point, flipped bool) {
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			sq := nchess.NewSquare(file, rank)
			rect := squareRect(sq, origin, flipped)
			imagedraw.Draw(dst, rect, image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, origin image.Point, flipped bool) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, squareSize)
		if err != nil {
			return err
		}
		rect := squareRect(sq, origin, flipped)
		imagedraw.Draw(dst, rect, img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawHighlight(img *image.RGBA, highlight *MoveHighlight, origin image.Point, flipped bool) {
	if img == nil || highlight == nil {
		return
	}
	for _, sq := range []nchess.Square{highlight.From, highlight.To} {
		rect := squareRect(sq, origin, flipped)
		imagedraw.Draw(img, rect, image.NewUniform(moveHighlightFill), image.Point{}, imagedraw.Over)
	}
}

func drawCoordinates(dst imagedraw.Image, origin image.Point, flipped bool) {
	drawer := &font.Drawer{
		Dst:  dst,
		Face: inconsolata.Bold8x16,
		Src:  image.NewUniform(coordinateTextColor),
	}
	ascent := drawer.Face.Metrics().Ascent.Ceil()

	for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
		sq := nchess.NewSquare(nchess.FileA, rank)
		_, row := squareCell(sq, flipped)
		baseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank.String(), origin.X-margin/2, baseline)
	}
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		sq := nchess.NewSquare(file, nchess.Rank1)
		col, _ := squareCell(sq, flipped)
		center := origin.X + col*squareSize + squareSize/2
		baseline := origin.Y + boardSize + ascent + 4
		drawCenteredText(drawer, file.String(), center, baseline)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
