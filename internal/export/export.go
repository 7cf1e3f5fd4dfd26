// Package export packages rasterized cells into a single zip archive.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jakebf/spriteslicer/internal/logging"
	"github.com/jakebf/spriteslicer/internal/safego"
	"github.com/jakebf/spriteslicer/internal/selection"
)

const DefaultScene = "scene"

var (
	// ErrNothingToExport is returned when there is no selection or image.
	ErrNothingToExport = errors.New("nothing to export")
	// ErrNoEntries is returned when every selected cell failed to rasterize.
	ErrNoEntries = errors.New("no cell could be rasterized")
)

// RasterizeFunc produces the PNG bytes for one selected cell.
type RasterizeFunc func(ctx context.Context, cell selection.Cell) ([]byte, error)

// Item is one file inside the archive.
type Item struct {
	FileName string
	Bytes    []byte
	Cell     selection.Cell
}

// Failure records a cell that was left out of the archive.
type Failure struct {
	Cell selection.Cell
	Err  error
}

// Archive is a finished export held in memory until saved.
type Archive struct {
	ID       string
	Name     string
	Items    []Item
	Failures []Failure
	data     []byte
}

func (a *Archive) Bytes() []byte { return a.data }

// EntryName is the file name of the cell with the given order.
func EntryName(scene string, order int) string {
	return fmt.Sprintf("%s_%d.png", scene, order)
}

// ArchiveName is the file name of the archive for scene.
func ArchiveName(scene string) string {
	return scene + "_sprites.zip"
}

// SanitizeScene makes a scene name safe to use as a file name prefix on
// any common filesystem. Path separators, characters reserved on Windows
// and control characters become '_'; surrounding spaces and dots are
// trimmed. An empty result falls back to DefaultScene.
func SanitizeScene(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return '_'
		case strings.ContainsRune(`<>:"/\|?*`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, " .")
	if name == "" {
		return DefaultScene
	}
	return name
}

// Options tune Export.
type Options struct {
	// Workers bounds concurrent rasterization; <= 0 picks a default.
	Workers int
	// Now stamps archive entries; defaults to time.Now.
	Now func() time.Time
}

// DefaultWorkers is the worker count used when Options.Workers is unset.
func DefaultWorkers() int {
	return min(runtime.GOMAXPROCS(0), 4)
}

// Export rasterizes cells and bundles the results into an archive named
// after scene. Cells run concurrently but entries are always written in
// ascending order. A cell that fails is logged and left out; the export
// only fails outright when the context ends or no cell succeeds.
func Export(ctx context.Context, scene string, cells []selection.Cell, rasterize RasterizeFunc, opts Options) (*Archive, error) {
	if len(cells) == 0 || rasterize == nil {
		return nil, ErrNothingToExport
	}
	scene = SanitizeScene(scene)
	cells = slices.Clone(cells)
	slices.SortStableFunc(cells, func(a, b selection.Cell) int { return a.Order - b.Order })

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	a := &Archive{ID: uuid.New().String(), Name: ArchiveName(scene)}
	results := make([][]byte, len(cells))
	errs := make([]error, len(cells))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range cells {
		g.Go(func() error {
			name := EntryName(scene, c.Order)
			errs[i] = safego.Call("rasterize "+name, func() error {
				data, err := rasterize(gctx, c)
				if err != nil {
					return err
				}
				if len(data) == 0 {
					return errors.New("empty image data")
				}
				results[i] = data
				return nil
			})
			// Only cancellation stops the group; per-cell errors do not.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("export %s: %w", a.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("export %s: %w", a.Name, err)
	}

	for i, c := range cells {
		if errs[i] != nil {
			logging.Warn("export %s: skipping cell (%d, %d) order %d: %v", a.ID, c.Row, c.Col, c.Order, errs[i])
			a.Failures = append(a.Failures, Failure{Cell: c, Err: errs[i]})
			continue
		}
		a.Items = append(a.Items, Item{FileName: EntryName(scene, c.Order), Bytes: results[i], Cell: c})
	}
	if len(a.Items) == 0 {
		return a, fmt.Errorf("export %s: %w: %v", a.Name, ErrNoEntries, a.Failures[0].Err)
	}

	data, err := writeZip(a, now())
	if err != nil {
		return nil, err
	}
	a.data = data
	logging.Info("export %s: %s with %d entries, %d skipped", a.ID, a.Name, len(a.Items), len(a.Failures))
	return a, nil
}

func writeZip(a *Archive, stamp time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := zw.SetComment("spriteslicer export " + a.ID); err != nil {
		return nil, fmt.Errorf("zip comment: %w", err)
	}
	for _, it := range a.Items {
		// PNG data is already deflated; storing avoids a second pass.
		w, err := zw.CreateHeader(&zip.FileHeader{Name: it.FileName, Method: zip.Store, Modified: stamp})
		if err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", it.FileName, err)
		}
		if _, err := w.Write(it.Bytes); err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", it.FileName, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the archive into dir and returns its path. The write goes
// through a temp file and a rename, so a failed export never leaves a
// truncated archive behind.
func (a *Archive) Save(dir string) (string, error) {
	if len(a.data) == 0 {
		return "", ErrNothingToExport
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+a.Name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(a.data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("write archive: %w", err)
	}
	path := filepath.Join(dir, a.Name)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("move archive into place: %w", err)
	}
	return path, nil
}
