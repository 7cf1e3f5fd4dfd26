package main

import (
	"fmt"
	"strings"

	"github.com/jakebf/spriteslicer/internal/raster"
	"github.com/jakebf/spriteslicer/internal/selection"
	"github.com/jakebf/spriteslicer/internal/session"
)

// ─── Selection Panel ─────────────────────────────────────────────────────────

// selectionMarkdown describes the current selection: one table row per
// cell in pick order, followed by the JSON a slicing script can consume.
func selectionMarkdown(scene string, grid selection.Grid, src *session.Source, cells []selection.Cell) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Selected Cells (%d)\n\n", len(cells))
	if len(cells) == 0 {
		b.WriteString("*Nothing selected.*\n")
		return b.String()
	}

	b.WriteString("| # | Cell | File | Source |\n|---:|---|---|---|\n")
	for _, c := range cells {
		rect := "?"
		if src != nil && src.Image != nil {
			if r, err := raster.CellRect(src.Image.Bounds(), grid, c.Row, c.Col); err == nil {
				rect = fmt.Sprintf("%d,%d %d×%d", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
			}
		}
		fmt.Fprintf(&b, "| %d | r%d c%d | %s_%d.png | %s |\n", c.Order, c.Row, c.Col, scene, c.Order, rect)
	}

	js, err := selection.CoordinatesJSON(cells)
	if err != nil {
		return b.String()
	}
	b.WriteString("\n### Coordinates for Slicing\n\n```json\n")
	b.WriteString(js)
	b.WriteString("\n```\n")
	return b.String()
}

// panelKey identifies a rendered panel so stale renders can be dropped.
func panelKey(scene string, grid selection.Grid, cells []selection.Cell, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|", scene, grid, width)
	for _, c := range cells {
		fmt.Fprintf(&b, "%d,%d;", c.Row, c.Col)
	}
	return b.String()
}
