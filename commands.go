package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/fsnotify/fsnotify"
	"github.com/jakebf/spriteslicer/internal/export"
	"github.com/jakebf/spriteslicer/internal/logging"
	"github.com/jakebf/spriteslicer/internal/raster"
	"github.com/jakebf/spriteslicer/internal/selection"
	"github.com/jakebf/spriteslicer/internal/session"
)

// rendererPool caches glamour renderers keyed by "style:width".
var (
	rendererPoolMu sync.Mutex
	rendererPools  = make(map[string]*sync.Pool)
)

func getRenderer(style string, width int) (*glamour.TermRenderer, error) {
	key := fmt.Sprintf("%s:%d", style, width)
	rendererPoolMu.Lock()
	pool, ok := rendererPools[key]
	if !ok {
		pool = &sync.Pool{}
		rendererPools[key] = pool
	}
	rendererPoolMu.Unlock()

	if r, _ := pool.Get().(*glamour.TermRenderer); r != nil {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create renderer for %s: %w", key, err)
	}
	return r, nil
}

func putRenderer(style string, width int, r *glamour.TermRenderer) {
	key := fmt.Sprintf("%s:%d", style, width)
	rendererPoolMu.Lock()
	pool := rendererPools[key]
	rendererPoolMu.Unlock()
	if pool != nil {
		pool.Put(r)
	}
}

// ─── Commands ────────────────────────────────────────────────────────────────

func glamourRender(markdown, style string, width int) string {
	pw := width - 2
	if pw < 20 {
		pw = 20
	}
	r, err := getRenderer(style, pw)
	if err != nil {
		return markdown
	}
	rendered, err := r.Render(markdown)
	putRenderer(style, pw, r)
	if err != nil {
		return markdown
	}
	return rendered
}

func renderPanel(key, markdown, style string, width int) tea.Cmd {
	return func() tea.Msg {
		return panelContentMsg{key: key, content: glamourRender(markdown, style, width)}
	}
}

// loadSheet decodes path off the UI goroutine. Non-image files come back
// as errMsg so the current sheet stays untouched.
func loadSheet(id int, path string) tea.Cmd {
	return func() tea.Msg {
		src, err := session.Open(path)
		switch {
		case err == nil:
			return sheetLoadedMsg{id: id, src: src}
		case errors.Is(err, session.ErrDecode):
			return sheetFailedMsg{id: id, path: path, err: err}
		default:
			logging.Warn("open %s: %v", path, err)
			return errMsg{err}
		}
	}
}

// exportSheet runs job and writes the archive into dir.
func exportSheet(ctx context.Context, id int, job session.Job, r *raster.Rasterizer, opts export.Options, dir string) tea.Cmd {
	return func() tea.Msg {
		a, err := job.Run(ctx, r, opts)
		if err != nil {
			logging.WithError(err, "export "+job.Scene)
			return exportDoneMsg{id: id, archive: a, err: err}
		}
		path, err := a.Save(dir)
		if err != nil {
			logging.WithError(err, "save "+a.Name)
			return exportDoneMsg{id: id, archive: a, err: err}
		}
		logging.Info("export %s saved to %s", a.ID, path)
		return exportDoneMsg{id: id, archive: a, path: path}
	}
}

func reloadSheets(dir, glob string) tea.Cmd {
	return func() tea.Msg {
		sheets, err := scanAllSheets(dir, glob)
		if err != nil {
			return errMsg{err}
		}
		return reloadMsg{sheets: sheets}
	}
}

// copyCoordinates puts the selection's slicing JSON on the clipboard.
func copyCoordinates(cells []selection.Cell) tea.Cmd {
	return func() tea.Msg {
		js, err := selection.CoordinatesJSON(cells)
		if err != nil {
			return errMsg{err}
		}
		if err := clipboard.WriteAll(js); err != nil {
			return errMsg{fmt.Errorf("clipboard: %w", err)}
		}
		return copiedMsg{count: len(cells)}
	}
}

// watchDir waits for image files to be written, created or removed in the
// watched directories. Bursts are coalesced into one fileChangedMsg.
func watchDir(watcher *fsnotify.Watcher) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !session.IsImageName(ev.Name) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				changed := map[string]bool{filepath.Clean(ev.Name): true}
				time.Sleep(150 * time.Millisecond)
			drain:
				for {
					select {
					case extra, ok := <-watcher.Events:
						if !ok {
							break drain
						}
						if session.IsImageName(extra.Name) {
							changed[filepath.Clean(extra.Name)] = true
						}
					default:
						break drain
					}
				}
				files := make([]string, 0, len(changed))
				for f := range changed {
					files = append(files, f)
				}
				return fileChangedMsg{files: files}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logging.Warn("watcher: %v", err)
			}
		}
	}
}
