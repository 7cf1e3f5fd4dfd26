package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ─── Custom Delegate ─────────────────────────────────────────────────────────

var (
	loadedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	unsetStyle  = lipgloss.NewStyle().Foreground(colorDim)
	dateStyle   = lipgloss.NewStyle().Foreground(colorDim)
	selectedBar = lipgloss.NewStyle().Foreground(colorAccent).SetString("│ ")
	normalBar   = lipgloss.NewStyle().SetString("  ")
)

// sheetDelegate renders one line per sheet: badge, name, dimensions and
// the date it was created.
type sheetDelegate struct {
	loaded      *string // path of the sheet shown in the canvas
	loading     *string // path being decoded
	spinnerView *string
}

func (d sheetDelegate) Height() int                             { return 1 }
func (d sheetDelegate) Spacing() int                            { return 0 }
func (d sheetDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// shortDate shows MM-DD for the current year and YYYY-MM-DD otherwise.
func shortDate(t time.Time, now time.Time) string {
	s := t.Format("2006-01-02")
	if year := strconv.Itoa(now.Year()) + "-"; strings.HasPrefix(s, year) {
		return s[len(year):]
	}
	return s
}

func (d sheetDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	s, ok := item.(sheet)
	if !ok {
		return
	}

	bar := normalBar
	if index == m.Index() {
		bar = selectedBar
	}

	badge := unsetStyle.Render("·")
	if d.loaded != nil && *d.loaded == s.path() {
		badge = loadedStyle.Render("●")
	}
	if d.loading != nil && *d.loading == s.path() && d.spinnerView != nil && *d.spinnerView != "" {
		badge = *d.spinnerView
	}

	meta := s.dims() + " " + shortDate(s.created, time.Now())
	if s.width == 0 {
		meta = humanSize(s.size) + " " + shortDate(s.created, time.Now())
	}
	metaW := lipgloss.Width(meta)

	maxW := max(m.Width()-3, 10) // -2 bar, -1 right padding
	avail := maxW - lipgloss.Width(badge) - 1 - metaW - 1
	name := s.file
	if lipgloss.Width(name) > avail {
		if avail < 4 {
			// Too narrow for both; drop the metadata column.
			meta = ""
			avail = maxW - lipgloss.Width(badge) - 1
		}
		name = truncateForWidth(name, avail)
	}
	pad := ""
	if gap := avail - lipgloss.Width(name); gap > 0 {
		pad = strings.Repeat(" ", gap)
	}

	fmt.Fprintf(w, "%s%s %s%s %s", bar, badge, name, pad, dateStyle.Render(meta))
}
