// Package selection tracks which grid cells of a sprite sheet are selected
// and in what order.
//
// The selection is an ordered stack rather than a set: toggling a cell that
// is already selected drops it and every cell picked after it, so order
// numbers stay dense (1..n) and always mean "the nth slice".
package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoGrid is returned when an operation needs an active grid.
	ErrNoGrid = errors.New("grid is not active")
	// ErrOutOfRange is returned for a row/column outside the grid.
	ErrOutOfRange = errors.New("cell outside grid")
)

// Grid is the row/column layout overlaid on a sheet.
type Grid struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// Active reports whether the grid has at least one cell.
func (g Grid) Active() bool {
	return g.Rows > 0 && g.Columns > 0
}

// Contains reports whether (row, col) is a cell of an active grid.
func (g Grid) Contains(row, col int) bool {
	return g.Active() && row >= 0 && row < g.Rows && col >= 0 && col < g.Columns
}

func (g Grid) String() string {
	return fmt.Sprintf("%d×%d", g.Rows, g.Columns)
}

// Cell is one selected grid cell. Order is its 1-based position in the
// selection, assigned when it was picked.
type Cell struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Order int `json:"order"`
}

// Tracker owns the grid and the ordered selection made on it.
type Tracker struct {
	grid  Grid
	cells []Cell
}

func NewTracker(g Grid) *Tracker {
	return &Tracker{grid: sanitize(g)}
}

func sanitize(g Grid) Grid {
	if g.Rows < 0 {
		g.Rows = 0
	}
	if g.Columns < 0 {
		g.Columns = 0
	}
	return g
}

func (t *Tracker) Grid() Grid { return t.grid }

// SetGrid replaces the grid. Any change of rows or columns clears the
// selection; setting the current grid again is a no-op. Reports whether
// the grid changed.
func (t *Tracker) SetGrid(g Grid) bool {
	g = sanitize(g)
	if g == t.grid {
		return false
	}
	t.grid = g
	t.Clear()
	return true
}

func (t *Tracker) SetRows(n int) bool {
	return t.SetGrid(Grid{Rows: n, Columns: t.grid.Columns})
}

func (t *Tracker) SetColumns(n int) bool {
	return t.SetGrid(Grid{Rows: t.grid.Rows, Columns: n})
}

// Toggle selects (row, col) if it is not selected. If it is, the
// selection is truncated to just before it. Returns the number of cells
// removed (0 when the cell was appended).
func (t *Tracker) Toggle(row, col int) (removed int, err error) {
	if !t.grid.Active() {
		return 0, ErrNoGrid
	}
	if !t.grid.Contains(row, col) {
		return 0, fmt.Errorf("%w: (%d, %d) in %s grid", ErrOutOfRange, row, col, t.grid)
	}
	if i := t.index(row, col); i >= 0 {
		removed = len(t.cells) - i
		t.cells = t.cells[:i]
		return removed, nil
	}
	t.cells = append(t.cells, Cell{Row: row, Col: col, Order: len(t.cells) + 1})
	return 0, nil
}

// Clear empties the selection.
func (t *Tracker) Clear() {
	t.cells = nil
}

// RemoveLast drops the most recently selected cell.
func (t *Tracker) RemoveLast() (Cell, bool) {
	if len(t.cells) == 0 {
		return Cell{}, false
	}
	last := t.cells[len(t.cells)-1]
	t.cells = t.cells[:len(t.cells)-1]
	return last, true
}

// OrderOf returns the order number of (row, col) if it is selected.
func (t *Tracker) OrderOf(row, col int) (int, bool) {
	if i := t.index(row, col); i >= 0 {
		return t.cells[i].Order, true
	}
	return 0, false
}

func (t *Tracker) index(row, col int) int {
	for i, c := range t.cells {
		if c.Row == row && c.Col == col {
			return i
		}
	}
	return -1
}

func (t *Tracker) Len() int { return len(t.cells) }

// Cells returns a copy of the selection in order.
func (t *Tracker) Cells() []Cell {
	if len(t.cells) == 0 {
		return nil
	}
	out := make([]Cell, len(t.cells))
	copy(out, t.cells)
	return out
}

// Last returns the most recently selected cell.
func (t *Tracker) Last() (Cell, bool) {
	if len(t.cells) == 0 {
		return Cell{}, false
	}
	return t.cells[len(t.cells)-1], true
}

// CoordinatesJSON renders the selection as an indented JSON array of
// {row, col, order} objects.
func CoordinatesJSON(cells []Cell) (string, error) {
	if cells == nil {
		cells = []Cell{}
	}
	data, err := json.MarshalIndent(cells, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal coordinates: %w", err)
	}
	return string(data), nil
}

// ParseDimension reads a grid dimension the way a number field does:
// leading whitespace is skipped and leading digits are used. Anything that
// does not start with a digit, or is negative, reads as 0.
func ParseDimension(s string) int {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		if n > maxDimension {
			return maxDimension
		}
	}
	return n
}

// maxDimension caps parsed input so a pasted run of digits cannot
// overflow or build a grid no screen could show.
const maxDimension = 4096
