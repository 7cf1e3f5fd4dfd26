// Package raster cuts grid cells out of a sprite sheet at its native
// resolution and encodes them as PNG.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"strings"
	"sync"

	"github.com/jakebf/spriteslicer/internal/selection"
)

var (
	ErrNoImage   = errors.New("no image loaded")
	ErrEmptyCell = errors.New("cell is smaller than one pixel")
)

// CellRect returns the source rectangle of (row, col) within bounds.
//
// Cell size is bounds/grid in floating point. Edges are rounded to the
// nearest pixel, so neighbouring cells share an edge and together cover
// the whole sheet even when the grid does not divide it evenly.
func CellRect(bounds image.Rectangle, grid selection.Grid, row, col int) (image.Rectangle, error) {
	if !grid.Active() {
		return image.Rectangle{}, selection.ErrNoGrid
	}
	if !grid.Contains(row, col) {
		return image.Rectangle{}, fmt.Errorf("%w: (%d, %d) in %s grid", selection.ErrOutOfRange, row, col, grid)
	}
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, ErrNoImage
	}
	edge := func(total, i, n int) int {
		return int(math.Round(float64(total*i) / float64(n)))
	}
	r := image.Rect(
		bounds.Min.X+edge(w, col, grid.Columns),
		bounds.Min.Y+edge(h, row, grid.Rows),
		bounds.Min.X+edge(w, col+1, grid.Columns),
		bounds.Min.Y+edge(h, row+1, grid.Rows),
	)
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: (%d, %d) of a %dx%d sheet in a %s grid", ErrEmptyCell, row, col, w, h, grid)
	}
	return r, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Crop returns the pixels of img inside r, re-based so the result's
// bounds start at (0, 0). Pixel values are copied exactly.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	if si, ok := img.(subImager); ok {
		switch sub := si.SubImage(r).(type) {
		case *image.NRGBA:
			return rebaseNRGBA(sub)
		case *image.RGBA:
			return rebaseRGBA(sub)
		default:
			return sub
		}
	}
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// The sub-image shares the sheet's pixel buffer; re-basing only adjusts
// the rectangle so encoders and callers see a zero origin.
func rebaseNRGBA(m *image.NRGBA) *image.NRGBA {
	return &image.NRGBA{Pix: m.Pix, Stride: m.Stride, Rect: image.Rect(0, 0, m.Rect.Dx(), m.Rect.Dy())}
}

func rebaseRGBA(m *image.RGBA) *image.RGBA {
	return &image.RGBA{Pix: m.Pix, Stride: m.Stride, Rect: image.Rect(0, 0, m.Rect.Dx(), m.Rect.Dy())}
}

// ParseCompression maps a config value to a PNG compression level.
// Unknown values use the default level.
func ParseCompression(s string) png.CompressionLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return png.NoCompression
	case "fast", "speed":
		return png.BestSpeed
	case "best", "size":
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

// bufferPool lets concurrent encoders reuse their zlib scratch buffers.
type bufferPool struct {
	pool sync.Pool
}

func (p *bufferPool) Get() *png.EncoderBuffer {
	b, _ := p.pool.Get().(*png.EncoderBuffer)
	return b
}

func (p *bufferPool) Put(b *png.EncoderBuffer) {
	p.pool.Put(b)
}

// Rasterizer crops cells and encodes them as PNG. It is safe for
// concurrent use.
type Rasterizer struct {
	enc *png.Encoder
}

func New(level png.CompressionLevel) *Rasterizer {
	return &Rasterizer{enc: &png.Encoder{CompressionLevel: level, BufferPool: &bufferPool{}}}
}

// Encode writes img as PNG.
func (r *Rasterizer) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Rasterize crops cell (row, col) of img under grid and returns it as PNG.
func (r *Rasterizer) Rasterize(ctx context.Context, img image.Image, grid selection.Grid, row, col int) ([]byte, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rect, err := CellRect(img.Bounds(), grid, row, col)
	if err != nil {
		return nil, err
	}
	return r.Encode(Crop(img, rect))
}
