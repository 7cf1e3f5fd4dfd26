package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/jakebf/spriteslicer/internal/selection"
	"github.com/jakebf/spriteslicer/internal/session"
	"github.com/jakebf/spriteslicer/internal/viewport"
)

// ─── Canvas ──────────────────────────────────────────────────────────────────
//
// The sheet is drawn with upper half blocks: each terminal cell shows two
// vertically stacked samples, foreground on top and background below. One
// terminal column is one display unit wide and one row is two units tall,
// so display units are roughly square.

type rgb struct{ r, g, b uint8 }

var (
	canvasBg     = rgb{28, 28, 34}
	checkLight   = rgb{96, 96, 104}
	checkDark    = rgb{64, 64, 72}
	gridLine     = rgb{235, 235, 235}
	selectTint   = rgb{214, 92, 214}
	cursorTint   = rgb{250, 210, 70}
	badgeFg      = rgb{255, 255, 255}
	badgeBg      = rgb{150, 40, 150}
	fallbackEven = rgb{0x44, 0x44, 0x44}
	fallbackOdd  = rgb{0x55, 0x55, 0x55}
	fallbackEdge = rgb{0x66, 0x66, 0x66}
	titleFg      = rgb{240, 240, 240}
	errorFg      = rgb{255, 120, 120}
)

const halfBlock = '▀'

func blend(a, b rgb, t float64) rgb {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x)*(1-t) + float64(y)*t))
	}
	return rgb{mix(a.r, b.r), mix(a.g, b.g), mix(a.b, b.b)}
}

type canvasCell struct {
	ch     rune
	fg, bg rgb
}

type canvas struct {
	w, h  int
	cells []canvasCell
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: max(w, 0), h: max(h, 0)}
	c.cells = make([]canvasCell, c.w*c.h)
	for i := range c.cells {
		c.cells[i] = canvasCell{ch: ' ', fg: canvasBg, bg: canvasBg}
	}
	return c
}

func (c *canvas) at(x, y int) *canvasCell {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return nil
	}
	return &c.cells[y*c.w+x]
}

// text writes s starting at (x, y), clipped to the canvas.
func (c *canvas) text(x, y int, s string, fg, bg rgb) {
	for _, r := range s {
		if cell := c.at(x, y); cell != nil {
			*cell = canvasCell{ch: r, fg: fg, bg: bg}
		}
		x++
	}
}

// centeredText writes s centred on row y.
func (c *canvas) centeredText(y int, s string, fg, bg rgb) {
	runes := []rune(s)
	if len(runes) > c.w {
		runes = append(runes[:max(c.w-1, 0)], '…')
	}
	c.text((c.w-len(runes))/2, y, string(runes), fg, bg)
}

// String renders the canvas as truecolor ANSI, emitting an SGR sequence
// only when the colours change.
func (c *canvas) String() string {
	var b strings.Builder
	b.Grow(c.w * c.h * 4)
	for y := 0; y < c.h; y++ {
		var last canvasCell
		valid := false
		for x := 0; x < c.w; x++ {
			cell := c.cells[y*c.w+x]
			if !valid || cell.fg != last.fg || cell.bg != last.bg {
				fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%d;48;2;%d;%d;%dm",
					cell.fg.r, cell.fg.g, cell.fg.b, cell.bg.r, cell.bg.g, cell.bg.b)
				last, valid = cell, true
			}
			b.WriteRune(cell.ch)
		}
		b.WriteString("\x1b[0m")
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// ─── Layout ──────────────────────────────────────────────────────────────────

// canvasLayout places the fitted sheet inside a pane of w×h terminal cells.
type canvasLayout struct {
	w, h   int
	box    viewport.Size // fitted sheet, display units
	origin viewport.Point
}

// fitLayout scales a natW×natH image to fill the pane while keeping its
// aspect ratio, and centres it.
func fitLayout(w, h, natW, natH int) canvasLayout {
	l := canvasLayout{w: w, h: h}
	if w <= 0 || h <= 0 || natW <= 0 || natH <= 0 {
		return l
	}
	paneW, paneH := float64(w), float64(h*2)
	scale := math.Min(paneW/float64(natW), paneH/float64(natH))
	l.box = viewport.Size{W: float64(natW) * scale, H: float64(natH) * scale}
	l.origin = viewport.Point{X: (paneW - l.box.W) / 2, Y: (paneH - l.box.H) / 2}
	return l
}

// boxPoint converts a display-unit point in pane coordinates into
// coordinates relative to the fitted box.
func (l canvasLayout) boxPoint(px, py float64) viewport.Point {
	return viewport.Point{X: px - l.origin.X, Y: py - l.origin.Y}
}

// mousePoint maps the terminal cell (x, y), relative to the pane's top
// left, to the box-relative point at the cell's centre.
func (l canvasLayout) mousePoint(x, y int) viewport.Point {
	return l.boxPoint(float64(x)+0.5, float64(y)*2+1)
}

// mouseDisplay maps a terminal cell to pane display units, the space drag
// anchors live in.
func mouseDisplay(x, y int) (float64, float64) {
	return float64(x), float64(y) * 2
}

// ─── Drawing ─────────────────────────────────────────────────────────────────

type cellPos struct{ row, col int }

// sampler maps box-local display points to colours of the sheet.
type sampler struct {
	img    image.Image
	bounds image.Rectangle
	box    viewport.Size
}

func (s sampler) at(p viewport.Point, sx, sy int) rgb {
	x := s.bounds.Min.X + int(p.X/s.box.W*float64(s.bounds.Dx()))
	y := s.bounds.Min.Y + int(p.Y/s.box.H*float64(s.bounds.Dy()))
	x = min(max(x, s.bounds.Min.X), s.bounds.Max.X-1)
	y = min(max(y, s.bounds.Min.Y), s.bounds.Max.Y-1)
	c := color.NRGBAModel.Convert(s.img.At(x, y)).(color.NRGBA)
	under := checkDark
	if (sx/2+sy/2)%2 == 0 {
		under = checkLight
	}
	if c.A == 255 {
		return rgb{c.R, c.G, c.B}
	}
	return blend(under, rgb{c.R, c.G, c.B}, float64(c.A)/255)
}

// drawSheet renders the loaded sheet with the grid, selection tint, order
// badges and (optionally) the keyboard cursor.
func drawSheet(sess *session.Session, l canvasLayout, cursor cellPos, showCursor bool) *canvas {
	c := newCanvas(l.w, l.h)
	src := sess.Source()
	if src == nil || src.Image == nil || l.box.W <= 0 || l.box.H <= 0 {
		return c
	}
	view := sess.View
	grid := sess.Grid()
	smp := sampler{img: src.Image, bounds: src.Image.Bounds(), box: l.box}

	inBox := func(p viewport.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < l.box.W && p.Y < l.box.H
	}
	local := func(sx, sy int) viewport.Point {
		return view.ImagePoint(l.boxPoint(float64(sx)+0.5, float64(sy)+0.5), l.box)
	}
	cellOf := func(p viewport.Point) (int, int, bool) {
		if !grid.Active() {
			return 0, 0, inBox(p)
		}
		return viewport.CellIndex(p, l.box, grid.Rows, grid.Columns)
	}
	sample := func(sx, sy int) rgb {
		p := local(sx, sy)
		if !inBox(p) {
			return canvasBg
		}
		col := smp.at(p, sx, sy)
		row, cc, _ := cellOf(p)
		if grid.Active() {
			if _, ok := sess.OrderOf(row, cc); ok {
				col = blend(col, selectTint, 0.35)
			}
			if showCursor && row == cursor.row && cc == cursor.col {
				col = blend(col, cursorTint, 0.3)
			}
			// Grid lines sit where a neighbouring sample falls in another
			// cell or off the sheet.
			for _, d := range [][2]int{{-1, 0}, {0, -1}, {1, 0}, {0, 1}} {
				nr, nc, ok := cellOf(local(sx+d[0], sy+d[1]))
				if !ok || (d[0] < 0 || d[1] < 0) && (nr != row || nc != cc) {
					col = blend(col, gridLine, 0.6)
					break
				}
			}
		}
		return col
	}

	for y := 0; y < l.h; y++ {
		for x := 0; x < l.w; x++ {
			*c.at(x, y) = canvasCell{ch: halfBlock, fg: sample(x, y*2), bg: sample(x, y*2+1)}
		}
	}

	if grid.Active() {
		for _, sel := range sess.Cells() {
			center := viewport.Point{
				X: (float64(sel.Col) + 0.5) * l.box.W / float64(grid.Columns),
				Y: (float64(sel.Row) + 0.5) * l.box.H / float64(grid.Rows),
			}
			sp := view.ScreenPoint(center, l.box)
			label := strconv.Itoa(sel.Order)
			x := int(math.Floor(sp.X+l.origin.X)) - len(label)/2
			y := int(math.Floor((sp.Y + l.origin.Y) / 2))
			c.text(x, y, label, badgeFg, badgeBg)
		}
	}
	return c
}

// drawPlaceholder renders the stand-in shown when a sheet fails to decode:
// a checkerboard of the grid's cells with the app title and the error.
func drawPlaceholder(grid selection.Grid, w, h int, path string, err error) *canvas {
	c := newCanvas(w, h)
	if w <= 0 || h <= 0 {
		return c
	}
	box := viewport.Size{W: float64(w), H: float64(h * 2)}
	sample := func(sx, sy int) rgb {
		p := viewport.Point{X: float64(sx) + 0.5, Y: float64(sy) + 0.5}
		row, col, ok := viewport.CellIndex(p, box, grid.Rows, grid.Columns)
		if !ok {
			return canvasBg
		}
		for _, d := range [][2]float64{{-1, 0}, {0, -1}} {
			nr, nc, ok := viewport.CellIndex(viewport.Point{X: p.X + d[0], Y: p.Y + d[1]}, box, grid.Rows, grid.Columns)
			if ok && (nr != row || nc != col) {
				return fallbackEdge
			}
		}
		if (row*grid.Columns+col)%2 == 0 {
			return fallbackEven
		}
		return fallbackOdd
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			*c.at(x, y) = canvasCell{ch: halfBlock, fg: sample(x, y*2), bg: sample(x, y*2+1)}
		}
	}

	mid := h / 2
	c.centeredText(mid-1, " "+appTitle+" ", titleFg, fallbackEdge)
	if path != "" {
		c.centeredText(mid+1, " "+contractHome(path)+" ", titleFg, canvasBg)
	}
	if err != nil {
		c.centeredText(mid+2, " "+err.Error()+" ", errorFg, canvasBg)
	}
	return c
}
