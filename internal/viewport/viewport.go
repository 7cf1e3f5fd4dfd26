// Package viewport holds the zoom/pan state of the sheet preview and maps
// pointer positions on screen back to image and grid coordinates.
//
// Coordinates are in display units: the fitted, unzoomed image occupies
// [0, w) × [0, h). Zoom scales about the centre of that box and pan
// translates after scaling, matching translate(pan) scale(zoom) with a
// centred transform origin.
package viewport

import "math"

const (
	MinZoom = 0.1
	MaxZoom = 5.0

	// ZoomStep is the factor applied by ZoomIn and ZoomOut.
	ZoomStep = 1.2

	// Wheel factors: scrolling down (positive delta) zooms out.
	wheelOut = 0.9
	wheelIn  = 1.1

	// Dragging is only possible above DragZoom; cell picking is disabled
	// above PickZoom so a pan gesture cannot select cells by accident.
	DragZoom = 1.0
	PickZoom = 1.5
)

type Point struct {
	X, Y float64
}

type Size struct {
	W, H float64
}

// State is the zoom/pan/drag state. Use New; the zero value has zoom 0.
type State struct {
	Zoom float64
	PanX float64
	PanY float64

	dragging bool
	anchor   Point // pointer minus pan at drag start
}

func New() State {
	return State{Zoom: 1}
}

func clamp(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Min(math.Max(z, MinZoom), MaxZoom)
}

// SetZoom sets the zoom level, clamped to [MinZoom, MaxZoom].
func (s *State) SetZoom(z float64) {
	s.Zoom = clamp(z)
}

func (s *State) ZoomIn()  { s.SetZoom(s.Zoom * ZoomStep) }
func (s *State) ZoomOut() { s.SetZoom(s.Zoom / ZoomStep) }

// ZoomBy applies a wheel step: delta > 0 zooms out, anything else zooms in.
func (s *State) ZoomBy(delta float64) {
	if delta > 0 {
		s.SetZoom(s.Zoom * wheelOut)
	} else {
		s.SetZoom(s.Zoom * wheelIn)
	}
}

// Reset returns to zoom 1 with no pan and no drag in progress.
func (s *State) Reset() {
	*s = New()
}

// Percent is the zoom level rounded to a whole percentage.
func (s State) Percent() int {
	return int(math.Round(s.Zoom * 100))
}

func (s State) CanDrag() bool { return s.Zoom > DragZoom }

// Interactive reports whether cells can be picked at the current zoom.
func (s State) Interactive() bool { return s.Zoom <= PickZoom }

func (s State) Dragging() bool { return s.dragging }

// BeginDrag starts a pan gesture at the pointer. It has no effect unless
// zoomed in past DragZoom.
func (s *State) BeginDrag(x, y float64) bool {
	if !s.CanDrag() {
		return false
	}
	s.dragging = true
	s.anchor = Point{X: x - s.PanX, Y: y - s.PanY}
	return true
}

// ContinueDrag moves the pan so the anchored image point follows the
// pointer.
func (s *State) ContinueDrag(x, y float64) bool {
	if !s.dragging || !s.CanDrag() {
		return false
	}
	s.PanX = x - s.anchor.X
	s.PanY = y - s.anchor.Y
	return true
}

// EndDrag stops any pan gesture. Safe to call at any time.
func (s *State) EndDrag() {
	s.dragging = false
	s.anchor = Point{}
}

// PanBy nudges the pan from the keyboard. Like dragging, it only applies
// when zoomed in past DragZoom.
func (s *State) PanBy(dx, dy float64) bool {
	if !s.CanDrag() {
		return false
	}
	s.PanX += dx
	s.PanY += dy
	return true
}

// ScreenPoint maps an image-local display point to the screen.
func (s State) ScreenPoint(p Point, box Size) Point {
	cx, cy := box.W/2, box.H/2
	return Point{
		X: cx + s.PanX + s.Zoom*(p.X-cx),
		Y: cy + s.PanY + s.Zoom*(p.Y-cy),
	}
}

// ImagePoint maps a screen point back into image-local display units.
// It is the inverse of ScreenPoint.
func (s State) ImagePoint(p Point, box Size) Point {
	cx, cy := box.W/2, box.H/2
	z := s.Zoom
	if z == 0 {
		z = 1
	}
	return Point{
		X: cx + (p.X-s.PanX-cx)/z,
		Y: cy + (p.Y-s.PanY-cy)/z,
	}
}

// CellIndex returns the grid cell containing the image-local point p, or
// ok=false when p lies outside the image box or the grid is empty.
func CellIndex(p Point, box Size, rows, cols int) (row, col int, ok bool) {
	if rows <= 0 || cols <= 0 || box.W <= 0 || box.H <= 0 {
		return 0, 0, false
	}
	if p.X < 0 || p.Y < 0 || p.X >= box.W || p.Y >= box.H {
		return 0, 0, false
	}
	col = int(p.X / (box.W / float64(cols)))
	row = int(p.Y / (box.H / float64(rows)))
	return min(row, rows-1), min(col, cols-1), true
}

// CellAt hit-tests a screen point against the grid. Returns ok=false when
// picking is suppressed at this zoom or the point misses the image.
func (s State) CellAt(screen Point, box Size, rows, cols int) (row, col int, ok bool) {
	if !s.Interactive() {
		return 0, 0, false
	}
	return CellIndex(s.ImagePoint(screen, box), box, rows, cols)
}
