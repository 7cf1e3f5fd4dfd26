package selection

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDense(t *testing.T, tr *Tracker) {
	t.Helper()
	for i, c := range tr.Cells() {
		require.Equal(t, i+1, c.Order, "cell %d has order %d", i, c.Order)
	}
}

func TestToggleAppendsInClickOrder(t *testing.T) {
	tr := NewTracker(Grid{Rows: 3, Columns: 3})
	for _, rc := range [][2]int{{2, 2}, {0, 1}, {1, 0}} {
		removed, err := tr.Toggle(rc[0], rc[1])
		require.NoError(t, err)
		assert.Zero(t, removed)
	}
	assert.Equal(t, []Cell{
		{Row: 2, Col: 2, Order: 1},
		{Row: 0, Col: 1, Order: 2},
		{Row: 1, Col: 0, Order: 3},
	}, tr.Cells())
}

func TestToggleSelectedCellTruncates(t *testing.T) {
	tr := NewTracker(Grid{Rows: 4, Columns: 4})
	picks := [][2]int{{0, 0}, {0, 1}, {0, 2}, {0, 3}, {1, 0}}
	for _, rc := range picks {
		_, err := tr.Toggle(rc[0], rc[1])
		require.NoError(t, err)
	}

	removed, err := tr.Toggle(0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, []Cell{
		{Row: 0, Col: 0, Order: 1},
		{Row: 0, Col: 1, Order: 2},
	}, tr.Cells())

	removed, err = tr.Toggle(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Zero(t, tr.Len())
}

func TestToggleEndToEndSequence(t *testing.T) {
	tr := NewTracker(Grid{Rows: 3, Columns: 3})
	for _, rc := range [][2]int{{0, 0}, {1, 2}, {0, 0}, {2, 1}} {
		_, err := tr.Toggle(rc[0], rc[1])
		require.NoError(t, err)
	}
	// Re-clicking (0,0) rewinds to empty, so (2,1) becomes the first pick.
	assert.Equal(t, []Cell{{Row: 2, Col: 1, Order: 1}}, tr.Cells())
}

func TestToggleRewindThenContinue(t *testing.T) {
	tr := NewTracker(Grid{Rows: 3, Columns: 3})
	for _, rc := range [][2]int{{0, 0}, {1, 2}, {1, 2}, {2, 1}} {
		_, err := tr.Toggle(rc[0], rc[1])
		require.NoError(t, err)
	}
	assert.Equal(t, []Cell{
		{Row: 0, Col: 0, Order: 1},
		{Row: 2, Col: 1, Order: 2},
	}, tr.Cells())
}

func TestToggleErrors(t *testing.T) {
	tr := NewTracker(Grid{})
	_, err := tr.Toggle(0, 0)
	assert.ErrorIs(t, err, ErrNoGrid)

	tr.SetGrid(Grid{Rows: 2, Columns: 2})
	_, err = tr.Toggle(2, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = tr.Toggle(0, -1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Zero(t, tr.Len())
}

func TestRemoveLastAndClear(t *testing.T) {
	tr := NewTracker(Grid{Rows: 2, Columns: 2})
	_, ok := tr.RemoveLast()
	assert.False(t, ok, "RemoveLast on empty selection")

	tr.Toggle(0, 0)
	tr.Toggle(1, 1)
	last, ok := tr.RemoveLast()
	require.True(t, ok)
	assert.Equal(t, Cell{Row: 1, Col: 1, Order: 2}, last)
	assert.Equal(t, 1, tr.Len())

	// The removed cell gets the next order number when picked again.
	tr.Toggle(1, 1)
	order, ok := tr.OrderOf(1, 1)
	require.True(t, ok)
	assert.Equal(t, 2, order)

	tr.Clear()
	assert.Zero(t, tr.Len())
	assert.Nil(t, tr.Cells())
}

func TestGridChangeClearsSelection(t *testing.T) {
	tr := NewTracker(Grid{Rows: 2, Columns: 2})
	tr.Toggle(0, 0)
	tr.Toggle(1, 1)

	assert.False(t, tr.SetRows(2), "same rows is not a change")
	assert.Equal(t, 2, tr.Len())

	assert.True(t, tr.SetRows(3))
	assert.Zero(t, tr.Len())

	tr.Toggle(2, 1)
	assert.True(t, tr.SetColumns(5))
	assert.Zero(t, tr.Len())

	tr.Toggle(0, 4)
	assert.True(t, tr.SetGrid(Grid{Rows: 0, Columns: 5}))
	assert.Zero(t, tr.Len())
	assert.False(t, tr.Grid().Active())
}

func TestSetGridClampsNegative(t *testing.T) {
	tr := NewTracker(Grid{Rows: -2, Columns: 3})
	assert.Equal(t, Grid{Rows: 0, Columns: 3}, tr.Grid())
}

func TestCellsReturnsCopy(t *testing.T) {
	tr := NewTracker(Grid{Rows: 1, Columns: 2})
	tr.Toggle(0, 0)
	cells := tr.Cells()
	cells[0].Order = 99
	order, _ := tr.OrderOf(0, 0)
	assert.Equal(t, 1, order)
}

// Random operation sequences keep orders dense and re-toggles keep the
// exact prefix.
func TestRandomSequencesStayDense(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	grid := Grid{Rows: 4, Columns: 5}
	for run := 0; run < 200; run++ {
		tr := NewTracker(grid)
		for step := 0; step < 40; step++ {
			switch op := rng.IntN(10); {
			case op < 7:
				row, col := rng.IntN(grid.Rows), rng.IntN(grid.Columns)
				before := tr.Cells()
				idx := -1
				for i, c := range before {
					if c.Row == row && c.Col == col {
						idx = i
					}
				}
				_, err := tr.Toggle(row, col)
				require.NoError(t, err)
				if idx >= 0 {
					assert.Equal(t, before[:idx], nilIfEmpty(tr.Cells()))
				}
			case op < 9:
				tr.RemoveLast()
			default:
				tr.Clear()
			}
			assertDense(t, tr)
		}
	}
}

func nilIfEmpty(c []Cell) []Cell {
	if c == nil {
		return []Cell{}
	}
	return c
}

func TestCoordinatesJSON(t *testing.T) {
	out, err := CoordinatesJSON([]Cell{{Row: 0, Col: 0, Order: 1}, {Row: 2, Col: 1, Order: 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"row":0,"col":0,"order":1},{"row":2,"col":1,"order":2}]`, out)
	assert.Contains(t, out, "\n  {")

	out, err = CoordinatesJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestParseDimension(t *testing.T) {
	tests := map[string]int{
		"4":       4,
		" 12 ":    12,
		"+3":      3,
		"7px":     7,
		"3.9":     3,
		"abc":     0,
		"":        0,
		"-2":      0,
		"0":       0,
		"9999999": maxDimension,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseDimension(in), "ParseDimension(%q)", in)
	}
}
