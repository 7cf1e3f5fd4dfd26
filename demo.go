package main

import (
	"image"
	"image/color"
	"math"
	"time"
)

// demoState holds the generated sheets shown while demo mode is on. The
// list items have no directory, so their path is the bare file name.
type demoState struct {
	active bool
	images map[string]image.Image
	grid   [2]int // rows, columns before entering demo mode
}

const (
	demoRows    = 4
	demoColumns = 8
	demoFrame   = 24
)

type demoArtwork struct {
	file  string
	age   time.Duration
	frame func(row, col int, x, y float64) color.NRGBA
}

var demoArt = []demoArtwork{
	{"bouncing-ball.png", 0, demoBall},
	{"spinning-gem.png", 26 * time.Hour, demoGem},
	{"slime-walk.png", 3 * 24 * time.Hour, demoSlime},
	{"torch-flicker.png", 9 * 24 * time.Hour, demoTorch},
}

var transparent = color.NRGBA{}

// Frame painters get the row, the column and a point in the frame with
// both axes in [-1, 1].

func demoBall(row, col int, x, y float64) color.NRGBA {
	t := float64(col) / demoColumns
	cy := 0.55 - 1.2*math.Abs(math.Sin(t*math.Pi))
	r := 0.35
	dx, dy := x, (y-cy)*(1+0.25*math.Cos(t*2*math.Pi))
	if dx*dx+dy*dy > r*r {
		if y > 0.85 && math.Abs(x) < 0.5 {
			return color.NRGBA{0, 0, 0, 90}
		}
		return transparent
	}
	hues := []color.NRGBA{{230, 70, 70, 255}, {70, 160, 230, 255}, {90, 200, 90, 255}, {240, 200, 60, 255}}
	c := hues[row%len(hues)]
	if dx < -0.1 && dy < -0.1 {
		c = color.NRGBA{255, 255, 255, 255}
	}
	return c
}

func demoGem(row, col int, x, y float64) color.NRGBA {
	w := math.Abs(math.Cos(float64(col) / demoColumns * math.Pi))
	w = math.Max(w, 0.15) * 0.7
	if math.Abs(x)/w+math.Abs(y)/0.8 > 1 {
		return transparent
	}
	base := []color.NRGBA{{200, 60, 220, 255}, {60, 220, 200, 255}, {240, 90, 120, 255}, {120, 140, 250, 255}}[row%4]
	if x > 0 {
		base.R, base.G, base.B = base.R/2, base.G/2, base.B/2
	}
	return base
}

func demoSlime(row, col int, x, y float64) color.NRGBA {
	squash := 1 + 0.2*math.Sin(float64(col)/demoColumns*2*math.Pi)
	dx, dy := x/(0.7*squash), (y-0.25)/(0.55/squash)
	if dy < 0 && dx*dx+dy*dy > 1 || dy >= 0 && (math.Abs(dx) > 1 || dy > 1.2) {
		return transparent
	}
	for _, ex := range []float64{-0.25, 0.25} {
		if math.Hypot(x-ex, y-0.05) < 0.09 {
			return color.NRGBA{20, 20, 30, 255}
		}
	}
	g := uint8(150 + 25*row)
	return color.NRGBA{60, g, 80, 230}
}

func demoTorch(row, col int, x, y float64) color.NRGBA {
	if math.Abs(x) < 0.12 && y > 0.2 {
		return color.NRGBA{120, 80, 40, 255}
	}
	sway := 0.15 * math.Sin(float64(col+row)*1.3)
	fx, fy := x-sway*(0.2-y), y+0.2
	h := 0.75 + 0.1*math.Cos(float64(col)*0.9)
	if fy > 0.15 || fy < -h || math.Abs(fx) > 0.3*(fy+h)/h {
		return transparent
	}
	heat := math.Min((fy+h)/h, 1)
	return color.NRGBA{255, uint8(80 + 150*heat), uint8(40 * heat), 255}
}

// demoSheet paints one sheet of demoRows×demoColumns frames.
func demoSheet(paint func(row, col int, x, y float64) color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, demoColumns*demoFrame, demoRows*demoFrame))
	for row := range demoRows {
		for col := range demoColumns {
			for py := range demoFrame {
				for px := range demoFrame {
					x := (float64(px)+0.5)/demoFrame*2 - 1
					y := (float64(py)+0.5)/demoFrame*2 - 1
					img.SetNRGBA(col*demoFrame+px, row*demoFrame+py, paint(row, col, x, y))
				}
			}
		}
	}
	return img
}

func demoSheets(now time.Time) ([]sheet, map[string]image.Image) {
	sheets := make([]sheet, 0, len(demoArt))
	images := make(map[string]image.Image, len(demoArt))
	for _, d := range demoArt {
		img := demoSheet(d.frame)
		b := img.Bounds()
		created := now.Add(-d.age)
		sheets = append(sheets, sheet{
			file:     d.file,
			width:    b.Dx(),
			height:   b.Dy(),
			format:   "png",
			size:     int64(b.Dx() * b.Dy() * 4),
			created:  created,
			modified: created,
		})
		images[d.file] = img
	}
	return sheets, images
}

func (m *model) enterDemoMode() {
	sheets, images := demoSheets(time.Now())
	g := m.sess.Grid()
	m.demo = demoState{active: true, images: images, grid: [2]int{g.Rows, g.Columns}}
	m.sess.SetRows(demoRows)
	m.sess.SetColumns(demoColumns)
	sortSheets(sheets)
	m.list.SetItems(sheetsToItems(sheets))
	m.list.ResetSelected()
	m.restoreTitle()
}

func (m *model) exitDemoMode() {
	saved := m.demo.grid
	m.demo = demoState{}
	m.sess.Close()
	m.loadedPath = ""
	*m.loadedView = ""
	m.sess.SetRows(saved[0])
	m.sess.SetColumns(saved[1])
	// The watcher was ignored during the demo.
	if sheets, err := scanAllSheets(m.dir, m.cfg.SheetsGlob); err == nil {
		m.allSheets = sheets
	}
	m.list.SetItems(sheetsToItems(m.allSheets))
	m.list.ResetSelected()
	m.panelKey = ""
	m.panel.SetContent("")
	m.restoreTitle()
}
