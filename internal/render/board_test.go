package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

var pngMagic = []byte{0x89, 0x50, 0x4e, 0x47}

func renderStart(t *testing.T, opts RenderOptions) []byte {
	t.Helper()
	out, err := NewSVGBoardRenderer().RenderPNG(context.Background(), nchess.NewGame().Position().Board(), opts)
	if err != nil { t.Fatalf("RenderPNG: %v", err) }
	return out
}

func TestRenderPNGProducesImage(t *testing.T) {
	out := renderStart(t, RenderOptions{})
	if !bytes.HasPrefix(out, pngMagic) { t.Fatalf("output is not a PNG") }

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil { t.Fatalf("png.Decode: %v", err) }
	b := img.Bounds()
	if b.Dx() != b.Dy() || b.Dx() < 8*squareSize {
		t.Fatalf("unexpected image size %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderPNGFlippedDiffers(t *testing.T) {
	plain := renderStart(t, RenderOptions{})
	flipped := renderStart(t, RenderOptions{Flipped: true})
	if bytes.Equal(plain, flipped) { t.Fatalf("flipped board identical to plain board") }
}

func TestRenderPNGHighlightDiffers(t *testing.T) {
	plain := renderStart(t, RenderOptions{})
	marked := renderStart(t, RenderOptions{Highlight: &MoveHighlight{From: nchess.E2, To: nchess.E4}})
	if bytes.Equal(plain, marked) { t.Fatalf("highlight had no visible effect") }
}

func TestRenderPNGCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSVGBoardRenderer().RenderPNG(ctx, nchess.NewGame().Position().Board(), RenderOptions{})
	if err == nil { t.Fatalf("expected error for cancelled context") }
}

func TestSquareCell(t *testing.T) {
	col, row := squareCell(nchess.A1, false)
	if col != 0 || row != 7 { t.Fatalf("a1 = (%d,%d)", col, row) }
	col, row = squareCell(nchess.H8, false)
	if col != 7 || row != 0 { t.Fatalf("h8 = (%d,%d)", col, row) }
	col, row = squareCell(nchess.A1, true)
	if col != 7 || row != 0 { t.Fatalf("a1 flipped = (%d,%d)", col, row) }
}
