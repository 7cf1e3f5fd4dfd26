package main

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jakebf/spriteslicer/internal/session"
)

func testSheets() []sheet {
	now := time.Now()
	day := 24 * time.Hour
	return []sheet{
		{dir: "/tmp/test-sheets", file: "hero-run.png", width: 256, height: 64, format: "png", created: now.Add(-1 * day)},
		{dir: "/tmp/test-sheets", file: "coin-spin.gif", width: 96, height: 16, format: "gif", created: now.Add(-3 * day)},
		{dir: "/tmp/test-sheets", file: "explosion.webp", width: 512, height: 512, format: "webp", created: now.Add(-9 * day)},
	}
}

// testImage is a w×h opaque sheet whose pixels encode their own position.
func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 7, 255})
		}
	}
	return img
}

func testModel() model {
	cfg := newDefaultConfig()
	cfg.Rows, cfg.Columns = 2, 4
	cfg.ExportDir = "/tmp/test-exports"
	m := newModel(testSheets(), "/tmp/test-sheets", cfg, nil)
	m2, _ := m.Update(tea.WindowSizeMsg{Width: 200, Height: 50})
	return m2.(model)
}

// loadedModel has a 40×20 sheet installed under a 2×4 grid.
func loadedModel(t *testing.T) model {
	t.Helper()
	m := testModel()
	src := session.FromImage("/tmp/test-sheets/hero-run.png", testImage(40, 20))
	m2, _ := m.Update(sheetLoadedMsg{id: m.loadID, src: src})
	m = m2.(model)
	if !m.sess.Loaded() {
		t.Fatal("sheet not loaded")
	}
	return m
}

func sendKey(m model, k string) model {
	var msg tea.KeyMsg
	switch k {
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m2, _ := m.Update(msg)
	return m2.(model)
}

func click(m model, x, y int) model {
	m2, _ := m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = m2.(model)
	m2, _ = m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	return m2.(model)
}

func TestLoadFocusesCanvas(t *testing.T) {
	m := loadedModel(t)
	if m.focused != canvasPane {
		t.Errorf("focused = %v, want canvas", m.focused)
	}
	if m.loadedPath != "/tmp/test-sheets/hero-run.png" {
		t.Errorf("loadedPath = %q", m.loadedPath)
	}
	if *m.loadedView != m.loadedPath {
		t.Errorf("delegate loaded path = %q, want %q", *m.loadedView, m.loadedPath)
	}
	if m.sess.DisplaySize().W <= 0 {
		t.Error("display size not set after load")
	}
}

func TestStaleLoadIsDropped(t *testing.T) {
	m := loadedModel(t)
	m.openSheet("/tmp/test-sheets/coin-spin.gif")
	stale := session.FromImage("/tmp/elsewhere.png", testImage(8, 8))
	m2, _ := m.Update(sheetLoadedMsg{id: m.loadID - 1, src: stale})
	m = m2.(model)
	if m.sess.Source().Path != "/tmp/test-sheets/hero-run.png" {
		t.Errorf("stale load replaced the sheet: %q", m.sess.Source().Path)
	}
	if stale.Image != nil {
		t.Error("stale source should be released")
	}
}

func TestKeyboardToggleAndOrder(t *testing.T) {
	m := loadedModel(t)
	m = sendKey(m, "space") // r0 c0
	m = sendKey(m, "right")
	m = sendKey(m, "down")
	m = sendKey(m, "space") // r1 c1
	cells := m.sess.Cells()
	if len(cells) != 2 {
		t.Fatalf("selected = %d, want 2", len(cells))
	}
	if cells[1].Row != 1 || cells[1].Col != 1 || cells[1].Order != 2 {
		t.Errorf("second cell = %+v, want r1 c1 order 2", cells[1])
	}

	// Toggling the first cell again drops it and everything after it.
	m.cursor = cellPos{0, 0}
	m = sendKey(m, "space")
	if n := m.sess.Selected(); n != 0 {
		t.Errorf("after re-toggle selected = %d, want 0", n)
	}
}

func TestCursorClampsToGrid(t *testing.T) {
	m := loadedModel(t)
	for range 10 {
		m = sendKey(m, "right")
		m = sendKey(m, "down")
	}
	if m.cursor != (cellPos{1, 3}) {
		t.Errorf("cursor = %+v, want {1 3}", m.cursor)
	}
}

func TestMouseClickTogglesCell(t *testing.T) {
	m := loadedModel(t)
	l := m.layout()
	// 40×20 in a 138×46 pane fits to 138×69 display units, 11.5 units
	// below the top. Terminal cell (120, 30) is inside r1 c3.
	m = click(m, l.canvasX+120, l.canvasY+30)
	cells := m.sess.Cells()
	if len(cells) != 1 || cells[0].Row != 1 || cells[0].Col != 3 {
		t.Fatalf("cells = %+v, want [r1 c3]", cells)
	}

	// Clicking the margin above the sheet picks nothing.
	m = click(m, l.canvasX+120, l.canvasY+2)
	if n := m.sess.Selected(); n != 1 {
		t.Errorf("margin click changed selection: %d", n)
	}
}

func TestZoomSuppressesPointerPicking(t *testing.T) {
	m := loadedModel(t)
	for range 3 {
		m = sendKey(m, "+")
	}
	if m.sess.View.Zoom <= 1.5 {
		t.Fatalf("zoom = %v, want > 1.5", m.sess.View.Zoom)
	}
	l := m.layout()
	m = click(m, l.canvasX+69, l.canvasY+23)
	if n := m.sess.Selected(); n != 0 {
		t.Errorf("selected = %d while zoomed, want 0", n)
	}
	m = sendKey(m, "0")
	if m.sess.View.Zoom != 1 {
		t.Errorf("zoom after reset = %v", m.sess.View.Zoom)
	}
}

func TestRowsPromptClearsSelection(t *testing.T) {
	m := loadedModel(t)
	m = sendKey(m, "space")
	m = sendKey(m, "r")
	if m.prompt.kind != promptRows {
		t.Fatalf("prompt = %v, want rows", m.prompt.kind)
	}
	if got := m.prompt.input.Value(); got != "2" {
		t.Errorf("prompt prefill = %q, want 2", got)
	}
	m.prompt.input.SetValue("3")
	m = sendKey(m, "enter")
	if m.prompt.kind != promptNone {
		t.Error("prompt still open after enter")
	}
	if g := m.sess.Grid(); g.Rows != 3 || g.Columns != 4 {
		t.Errorf("grid = %s, want 3×4", g)
	}
	if n := m.sess.Selected(); n != 0 {
		t.Errorf("selected = %d after grid change, want 0", n)
	}
}

func TestSameDimensionKeepsSelection(t *testing.T) {
	m := loadedModel(t)
	m = sendKey(m, "space")
	m = sendKey(m, "c")
	m = sendKey(m, "enter") // prefilled with the current value
	if n := m.sess.Selected(); n != 1 {
		t.Errorf("selected = %d, want 1", n)
	}
}

func TestPromptEscCancels(t *testing.T) {
	m := loadedModel(t)
	m = sendKey(m, "n")
	m.prompt.input.SetValue("boss fight")
	m = sendKey(m, "esc")
	if m.sess.Scene() != "scene" {
		t.Errorf("scene = %q after esc, want unchanged", m.sess.Scene())
	}
	m = sendKey(m, "n")
	m.prompt.input.SetValue("boss/fight")
	m = sendKey(m, "enter")
	if m.sess.Scene() != "boss_fight" {
		t.Errorf("scene = %q, want boss_fight", m.sess.Scene())
	}
}

func TestExportKeyStartsExport(t *testing.T) {
	m := loadedModel(t)
	m = sendKey(m, "e")
	if m.export.running {
		t.Fatal("export started with nothing selected")
	}
	if !strings.Contains(m.status.text, "nothing to export") {
		t.Errorf("status = %q, want nothing-to-export message", m.status.text)
	}

	m = sendKey(m, "space")
	m = sendKey(m, "e")
	if !m.export.running {
		t.Fatal("export not running")
	}
	if m.keys.Export.Enabled() {
		t.Error("export binding should be disabled while running")
	}

	m2, _ := m.Update(exportDoneMsg{id: m.export.id, err: errTest})
	m = m2.(model)
	if m.export.running {
		t.Error("export still running after done")
	}
	if !strings.Contains(m.status.text, "Export failed") {
		t.Errorf("status = %q", m.status.text)
	}
}

var errTest = errors.New("boom")

func TestHelpHidesUnavailableActions(t *testing.T) {
	m := loadedModel(t)
	short := m.help.ShortHelpView(m.keys.ShortHelp())
	if strings.Contains(short, "export zip") {
		t.Errorf("export shown with empty selection: %q", short)
	}
	m = sendKey(m, "space")
	short = m.help.ShortHelpView(m.keys.ShortHelp())
	if !strings.Contains(short, "export zip") {
		t.Errorf("export missing with a selection: %q", short)
	}
}

func TestUndoAndClear(t *testing.T) {
	m := loadedModel(t)
	m = sendKey(m, "space")
	m = sendKey(m, "right")
	m = sendKey(m, "space")
	m = sendKey(m, "u")
	cells := m.sess.Cells()
	if len(cells) != 1 || cells[0].Col != 0 {
		t.Fatalf("after undo cells = %+v", cells)
	}
	m = sendKey(m, "x")
	if m.sess.Selected() != 0 {
		t.Error("clear left cells selected")
	}
}

func TestFailedLoadShowsPlaceholder(t *testing.T) {
	m := loadedModel(t)
	m = sendKey(m, "space")
	m2, _ := m.Update(sheetFailedMsg{id: m.loadID, path: "/tmp/test-sheets/broken.png", err: session.ErrDecode})
	m = m2.(model)
	if m.sess.Loaded() {
		t.Error("session still loaded after failure")
	}
	if m.sess.Selected() != 0 {
		t.Error("selection survived a failed load")
	}
	if path, err := m.sess.Failure(); path != "/tmp/test-sheets/broken.png" || err == nil {
		t.Errorf("failure = %q, %v", path, err)
	}
	if !strings.Contains(m.View(), "/tmp/test-sheets/broken.png") {
		t.Error("placeholder does not show the failed path")
	}
	if m.keys.Toggle.Enabled() {
		t.Error("toggle enabled on the placeholder")
	}
}

func TestErrMsgKeepsSheet(t *testing.T) {
	m := loadedModel(t)
	m = sendKey(m, "space")
	m2, _ := m.Update(errMsg{session.ErrNotImage})
	m = m2.(model)
	if !m.sess.Loaded() || m.sess.Selected() != 1 {
		t.Error("non-image error mutated the session")
	}
	if !strings.HasPrefix(m.status.text, "Error:") {
		t.Errorf("status = %q", m.status.text)
	}
}

func TestSwitchPane(t *testing.T) {
	m := testModel()
	if m.focused != listPane {
		t.Fatal("initial focus should be the list")
	}
	m = sendKey(m, "tab")
	if m.focused != canvasPane {
		t.Error("tab did not focus the canvas")
	}
	if m.keys.Open.Enabled() {
		t.Error("open enabled while the canvas is focused")
	}
}

func TestHelpModalSwallowsKeys(t *testing.T) {
	m := loadedModel(t)
	m = sendKey(m, "?")
	if !m.help.ShowAll {
		t.Fatal("help not shown")
	}
	m = sendKey(m, "space")
	if m.sess.Selected() != 0 {
		t.Error("key reached the canvas through the help modal")
	}
	m = sendKey(m, "esc")
	if m.help.ShowAll {
		t.Error("esc did not close help")
	}
}

func TestDemoModeLoadsGeneratedSheet(t *testing.T) {
	m := testModel()
	m2, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	m = m2.(model)
	if !m.demo.active {
		t.Fatal("demo not active")
	}
	if len(m.list.Items()) != len(demoArt) {
		t.Errorf("items = %d, want %d", len(m.list.Items()), len(demoArt))
	}
	if cmd == nil {
		t.Fatal("no load command")
	}
	msg, ok := cmd().(sheetLoadedMsg)
	if !ok {
		t.Fatalf("cmd returned %T, want sheetLoadedMsg", cmd())
	}
	m2, _ = m.Update(msg)
	m = m2.(model)
	if g := m.sess.Grid(); g.Rows != demoRows || g.Columns != demoColumns {
		t.Errorf("demo grid = %s", g)
	}
	if w := m.sess.Source().Width(); w != demoColumns*demoFrame {
		t.Errorf("demo sheet width = %d", w)
	}

	m = sendKey(m, "space")
	m.focused = listPane
	m = sendKey(m, "d")
	if m.demo.active {
		t.Fatal("demo still active")
	}
	if m.sess.Loaded() || m.sess.Selected() != 0 {
		t.Error("demo sheet survived exit")
	}
	if g := m.sess.Grid(); g.Rows != 2 || g.Columns != 4 {
		t.Errorf("grid after demo = %s, want 2×4", g)
	}
}

func TestViewRendersPanes(t *testing.T) {
	m := loadedModel(t)
	m = sendKey(m, "space")
	v := m.View()
	for _, want := range []string{"hero-run.png", "2×4", "100%", "[export]"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if lines := strings.Count(v, "\n") + 1; lines > 50 {
		t.Errorf("view has %d lines, taller than the window", lines)
	}
}

func TestSelectionPanelOpensWithSelection(t *testing.T) {
	m := loadedModel(t)
	if l := m.layout(); l.panelH != 0 {
		t.Errorf("panel height = %d with no selection", l.panelH)
	}
	m = sendKey(m, "space")
	l := m.layout()
	if l.panelH == 0 || l.listH+l.panelH+1 != l.innerH {
		t.Errorf("split = list %d + panel %d, inner %d", l.listH, l.panelH, l.innerH)
	}
	if m.panelKey == "" {
		t.Error("panel render not requested")
	}
}

func TestFileChangedRescansList(t *testing.T) {
	m := testModel()
	m2, _ := m.Update(fileChangedMsg{files: []string{"/nonexistent/a.png"}})
	m = m2.(model)
	// The sheets dir does not exist; the list is rescanned to empty.
	if n := len(m.list.Items()); n != 0 {
		t.Errorf("items = %d after rescan of a missing dir", n)
	}
}
