package main

import (
	"github.com/jakebf/spriteslicer/internal/export"
	"github.com/jakebf/spriteslicer/internal/session"
)

// ─── Messages ────────────────────────────────────────────────────────────────
//
// All messages are internal to the Update loop. Async tea.Cmd functions
// (in commands.go) produce these; Update handles them. Messages with an
// `id` field use generation counters to ignore stale results.

// sheetLoadedMsg delivers a decoded sheet.
type sheetLoadedMsg struct {
	id  int
	src *session.Source
}

// sheetFailedMsg reports a file that sniffed as an image but did not decode.
type sheetFailedMsg struct {
	id   int
	path string
	err  error
}

// exportDoneMsg carries the saved archive, or the error that stopped it.
type exportDoneMsg struct {
	id      int
	archive *export.Archive
	path    string
	err     error
}

// panelContentMsg delivers glamour-rendered markdown for the selection panel.
type panelContentMsg struct {
	key     string
	content string
}

// reloadMsg replaces the sheet list after a rescan.
type reloadMsg struct {
	sheets []sheet
}

// fileChangedMsg is sent by the fsnotify watcher after debounce.
type fileChangedMsg struct {
	files []string // full paths of changed image files
}

// configUpdatedMsg is sent after the setup wizard completes.
type configUpdatedMsg struct{}

type statusClearMsg struct {
	id int
}

type copiedMsg struct {
	count int
}

type errMsg struct {
	err error
}
