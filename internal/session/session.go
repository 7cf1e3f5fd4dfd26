// Package session holds the state of one slicing session: the loaded
// sheet, its grid and selection, the preview transform and the scene name.
//
// A Session is not safe for concurrent use. Work that must leave the UI
// goroutine takes a Job snapshot instead.
package session

import (
	"context"
	"image"

	"github.com/jakebf/spriteslicer/internal/export"
	"github.com/jakebf/spriteslicer/internal/logging"
	"github.com/jakebf/spriteslicer/internal/raster"
	"github.com/jakebf/spriteslicer/internal/selection"
	"github.com/jakebf/spriteslicer/internal/viewport"
)

// FallbackDimension is used for each unset grid dimension when drawing the
// placeholder for a sheet that failed to decode.
const FallbackDimension = 4

type Session struct {
	View viewport.State

	scene   string
	tracker *selection.Tracker
	src     *Source
	display viewport.Size

	failedPath string
	failErr    error

	// OnRelease, if set, is called with each source handle the session
	// stops referencing.
	OnRelease func(*Source)
}

func New(grid selection.Grid, scene string) *Session {
	return &Session{
		View:    viewport.New(),
		scene:   export.SanitizeScene(scene),
		tracker: selection.NewTracker(grid),
	}
}

// ─── Sheet lifecycle ─────────────────────────────────────────────────────────

func (s *Session) release() {
	if s.src == nil {
		return
	}
	old := s.src
	s.src = nil
	if s.OnRelease != nil {
		s.OnRelease(old)
	}
	old.Release()
}

// Install replaces the loaded sheet. The previous handle is released, the
// selection cleared and the view reset.
func (s *Session) Install(src *Source) {
	if src == nil {
		s.Close()
		return
	}
	s.release()
	s.src = src
	s.failedPath, s.failErr = "", nil
	s.tracker.Clear()
	s.View.Reset()
	logging.Info("loaded %s (%dx%d %s)", src.Path, src.Width(), src.Height(), src.Format)
}

// MarkFailed records that path could not be decoded. The session drops
// the previous sheet and shows the placeholder until the next Install.
func (s *Session) MarkFailed(path string, err error) {
	s.release()
	s.failedPath, s.failErr = path, err
	s.tracker.Clear()
	s.View.Reset()
	logging.Warn("decode %s: %v", path, err)
}

// Source returns the loaded sheet, or nil.
func (s *Session) Source() *Source { return s.src }

func (s *Session) Loaded() bool { return s.src != nil && s.src.Image != nil }

// Failure returns the path and error of the last failed load while the
// placeholder is showing.
func (s *Session) Failure() (string, error) { return s.failedPath, s.failErr }

// Close releases the loaded sheet.
func (s *Session) Close() {
	s.release()
	s.tracker.Clear()
}

// ─── Grid and selection ──────────────────────────────────────────────────────

func (s *Session) Grid() selection.Grid { return s.tracker.Grid() }

// PlaceholderGrid is the grid drawn over the placeholder: the configured
// dimensions, with FallbackDimension substituted for unset ones.
func (s *Session) PlaceholderGrid() selection.Grid {
	g := s.tracker.Grid()
	if g.Rows <= 0 {
		g.Rows = FallbackDimension
	}
	if g.Columns <= 0 {
		g.Columns = FallbackDimension
	}
	return g
}

// SetRows and SetColumns change one grid dimension. A change clears the
// selection; the returned bool reports whether anything changed.
func (s *Session) SetRows(n int) bool    { return s.tracker.SetRows(n) }
func (s *Session) SetColumns(n int) bool { return s.tracker.SetColumns(n) }

func (s *Session) Toggle(row, col int) (int, error) {
	if !s.Loaded() {
		return 0, raster.ErrNoImage
	}
	return s.tracker.Toggle(row, col)
}

func (s *Session) Clear() { s.tracker.Clear() }
func (s *Session) RemoveLast() (selection.Cell, bool) { return s.tracker.RemoveLast() }
func (s *Session) OrderOf(row, col int) (int, bool) { return s.tracker.OrderOf(row, col) }
func (s *Session) Cells() []selection.Cell { return s.tracker.Cells() }
func (s *Session) Selected() int { return s.tracker.Len() }

func (s *Session) Scene() string { return s.scene }

// SetScene sets the scene name used for export file names.
func (s *Session) SetScene(name string) {
	s.scene = export.SanitizeScene(name)
}

// ─── Preview geometry ────────────────────────────────────────────────────────

// SetDisplaySize records the size of the fitted, unzoomed sheet on screen.
func (s *Session) SetDisplaySize(size viewport.Size) { s.display = size }

func (s *Session) DisplaySize() viewport.Size { return s.display }

// Pick maps a screen point (relative to the display box origin) to a grid
// cell. It misses when nothing is loaded, the grid is inactive, or picking
// is suppressed at the current zoom.
func (s *Session) Pick(p viewport.Point) (row, col int, ok bool) {
	g := s.tracker.Grid()
	if !s.Loaded() || !g.Active() {
		return 0, 0, false
	}
	return s.View.CellAt(p, s.display, g.Rows, g.Columns)
}

// ─── Export ──────────────────────────────────────────────────────────────────

// CanExport reports whether Snapshot would succeed.
func (s *Session) CanExport() bool {
	return s.Loaded() && s.tracker.Grid().Active() && s.tracker.Len() > 0
}

// Job is an immutable export request detached from the session.
type Job struct {
	Scene string
	Image image.Image
	Grid  selection.Grid
	Cells []selection.Cell
}

// Snapshot captures what Export needs so it can run off the UI goroutine.
func (s *Session) Snapshot() (Job, error) {
	if !s.CanExport() {
		return Job{}, export.ErrNothingToExport
	}
	return Job{
		Scene: s.scene,
		Image: s.src.Image,
		Grid:  s.tracker.Grid(),
		Cells: s.tracker.Cells(),
	}, nil
}

// Run rasterizes every cell of the job and packages the archive.
func (j Job) Run(ctx context.Context, r *raster.Rasterizer, opts export.Options) (*export.Archive, error) {
	return export.Export(ctx, j.Scene, j.Cells, func(ctx context.Context, c selection.Cell) ([]byte, error) {
		return r.Rasterize(ctx, j.Image, j.Grid, c.Row, c.Col)
	}, opts)
}
