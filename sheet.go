package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/bubbles/list"
	"github.com/jakebf/spriteslicer/internal/session"
)

// ─── Types ───────────────────────────────────────────────────────────────────

type pane int

const (
	listPane pane = iota
	canvasPane
)

// sheet is one image file in the sheets browser.
type sheet struct {
	dir      string
	file     string    // base filename
	width    int       // from the image header; 0 if unreadable
	height   int
	format   string
	size     int64
	created  time.Time // file birth time
	modified time.Time
}

func (s sheet) path() string {
	return filepath.Join(s.dir, s.file)
}

func (s sheet) dims() string {
	if s.width == 0 || s.height == 0 {
		return "?"
	}
	return fmt.Sprintf("%d×%d", s.width, s.height)
}

func (s sheet) Title() string       { return s.file }
func (s sheet) Description() string { return s.dims() }
func (s sheet) FilterValue() string { return s.file + " " + s.format }

// ─── Sheet Scanning ──────────────────────────────────────────────────────────

// readSheet stats path and reads just enough of the file to learn its
// dimensions. Files that are not decodable images are still listed; loading
// them reports the problem.
func readSheet(dir string, e os.DirEntry) (sheet, bool) {
	if e.IsDir() || !session.IsImageName(e.Name()) {
		return sheet{}, false
	}
	info, err := e.Info()
	if err != nil {
		return sheet{}, false
	}
	path := filepath.Join(dir, e.Name())
	s := sheet{
		dir:      dir,
		file:     e.Name(),
		size:     info.Size(),
		created:  createdAt(path, info.ModTime()),
		modified: info.ModTime(),
	}
	if f, err := os.Open(path); err == nil {
		if cfg, format, err := image.DecodeConfig(f); err == nil {
			s.width, s.height, s.format = cfg.Width, cfg.Height, format
		}
		f.Close()
	}
	return s, true
}

// scanSheets lists the image files directly inside dir, newest first.
func scanSheets(dir string) ([]sheet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var sheets []sheet
	for _, e := range entries {
		if s, ok := readSheet(dir, e); ok {
			sheets = append(sheets, s)
		}
	}
	sortSheets(sheets)
	return sheets, nil
}

// skipDirs are never descended into when resolving sheets_glob.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".hg":          true,
	".svn":         true,
	".cache":       true,
	".venv":        true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"Library":      true, // Unity
	"Temp":         true,
	".godot":       true,
	".import":      true,
}

// resolveSheetDirs expands a doublestar glob into the directories it
// matches, walking from the pattern's static prefix.
func resolveSheetDirs(glob string) []string {
	if glob == "" {
		return nil
	}
	glob = expandHome(glob)

	base := globBase(glob)
	if _, err := os.Stat(base); err != nil {
		return nil
	}

	var dirs []string
	_ = filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != base && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if ok, _ := doublestar.PathMatch(glob, path); ok {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs
}

// globBase returns the longest leading directory of pattern without
// wildcard characters.
func globBase(pattern string) string {
	for i, c := range pattern {
		if c == '*' || c == '?' || c == '[' || c == '{' {
			if j := strings.LastIndex(pattern[:i], string(filepath.Separator)); j >= 0 {
				if j == 0 {
					return string(filepath.Separator)
				}
				return pattern[:j]
			}
			return "."
		}
	}
	return pattern
}

// scanAllSheets scans dir plus every directory matched by glob,
// de-duplicated by path.
func scanAllSheets(dir, glob string) ([]sheet, error) {
	sheets, err := scanSheets(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	seen := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		seen[s.path()] = true
	}
	for _, d := range resolveSheetDirs(glob) {
		more, err := scanSheets(d)
		if err != nil {
			continue
		}
		for _, s := range more {
			if !seen[s.path()] {
				seen[s.path()] = true
				sheets = append(sheets, s)
			}
		}
	}
	sortSheets(sheets)
	return sheets, nil
}

func sortSheets(sheets []sheet) {
	sort.SliceStable(sheets, func(i, j int) bool {
		if !sheets[i].created.Equal(sheets[j].created) {
			return sheets[i].created.After(sheets[j].created)
		}
		return sheets[i].file < sheets[j].file
	})
}

func sheetsToItems(sheets []sheet) []list.Item {
	items := make([]list.Item, len(sheets))
	for i, s := range sheets {
		items[i] = s
	}
	return items
}

// humanSize formats a byte count for the sheets list.
func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fM", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%dK", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
