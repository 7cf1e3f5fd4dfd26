package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/jakebf/spriteslicer/internal/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sheet returns an image whose pixel at (x, y) encodes its coordinates so
// crops can be checked against their source position.
func sheet(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: uint8(128 + (x+y)%128)})
		}
	}
	return img
}

func TestCellRectExample(t *testing.T) {
	bounds := image.Rect(0, 0, 800, 400)
	grid := selection.Grid{Rows: 2, Columns: 4}

	r, err := CellRect(bounds, grid, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(600, 200), r.Min)
	assert.Equal(t, 200, r.Dx())
	assert.Equal(t, 200, r.Dy())

	for row := 0; row < 2; row++ {
		for col := 0; col < 4; col++ {
			r, err := CellRect(bounds, grid, row, col)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(col*200, row*200, col*200+200, row*200+200), r)
		}
	}
}

func TestCellRectFractionalTilesExactly(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 10)
	grid := selection.Grid{Rows: 1, Columns: 3}
	var widths []int
	prevMax := 0
	for col := 0; col < 3; col++ {
		r, err := CellRect(bounds, grid, 0, col)
		require.NoError(t, err)
		assert.Equal(t, prevMax, r.Min.X, "cells share edges")
		prevMax = r.Max.X
		widths = append(widths, r.Dx())
	}
	assert.Equal(t, 100, prevMax)
	assert.Equal(t, []int{33, 34, 33}, widths)
}

func TestCellRectOffsetBounds(t *testing.T) {
	r, err := CellRect(image.Rect(10, 20, 50, 60), selection.Grid{Rows: 2, Columns: 2}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(30, 40, 50, 60), r)
}

func TestCellRectErrors(t *testing.T) {
	bounds := image.Rect(0, 0, 4, 4)
	_, err := CellRect(bounds, selection.Grid{}, 0, 0)
	assert.ErrorIs(t, err, selection.ErrNoGrid)

	_, err = CellRect(bounds, selection.Grid{Rows: 2, Columns: 2}, 2, 0)
	assert.ErrorIs(t, err, selection.ErrOutOfRange)

	_, err = CellRect(image.Rectangle{}, selection.Grid{Rows: 1, Columns: 1}, 0, 0)
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = CellRect(bounds, selection.Grid{Rows: 1, Columns: 10}, 0, 0)
	assert.ErrorIs(t, err, ErrEmptyCell)
}

func TestCropCopiesExactPixels(t *testing.T) {
	src := sheet(64, 32)
	r := image.Rect(16, 8, 32, 24)
	out := Crop(src, r)
	require.Equal(t, image.Rect(0, 0, 16, 16), out.Bounds())
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			require.Equal(t, src.At(x+16, y+8), out.At(x, y))
		}
	}
}

type plainImage struct{ image.Image }

func TestCropWithoutSubImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = uint8(i)
	}
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 0xff
	}
	out := Crop(plainImage{src}, image.Rect(4, 4, 8, 8))
	require.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())
	assert.Equal(t, src.At(5, 6), out.At(1, 2))
}

func TestRasterizeEncodesNativeCell(t *testing.T) {
	src := sheet(80, 40)
	r := New(png.BestSpeed)
	data, err := r.Rasterize(context.Background(), src, selection.Grid{Rows: 2, Columns: 4}, 1, 3)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 20, decoded.Bounds().Dx())
	require.Equal(t, 20, decoded.Bounds().Dy())
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			want := color.NRGBAModel.Convert(src.At(60+x, 20+y))
			got := color.NRGBAModel.Convert(decoded.At(decoded.Bounds().Min.X+x, decoded.Bounds().Min.Y+y))
			require.Equal(t, want, got, "pixel (%d,%d)", x, y)
		}
	}
}

func TestRasterizeErrors(t *testing.T) {
	r := New(png.DefaultCompression)
	_, err := r.Rasterize(context.Background(), nil, selection.Grid{Rows: 1, Columns: 1}, 0, 0)
	assert.ErrorIs(t, err, ErrNoImage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Rasterize(ctx, sheet(4, 4), selection.Grid{Rows: 1, Columns: 1}, 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, png.NoCompression, ParseCompression("none"))
	assert.Equal(t, png.BestSpeed, ParseCompression("Fast"))
	assert.Equal(t, png.BestCompression, ParseCompression("best"))
	assert.Equal(t, png.DefaultCompression, ParseCompression(""))
	assert.Equal(t, png.DefaultCompression, ParseCompression("ultra"))
}
