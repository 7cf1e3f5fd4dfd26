package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/jakebf/spriteslicer/internal/export"
	"github.com/jakebf/spriteslicer/internal/logging"
	"github.com/jakebf/spriteslicer/internal/raster"
	"github.com/jakebf/spriteslicer/internal/selection"
	"github.com/jakebf/spriteslicer/internal/session"
	zone "github.com/lrstanley/bubblezone"
)

// ─── Key Map ─────────────────────────────────────────────────────────────────

type keyMap struct {
	SwitchPane key.Binding
	Open       key.Binding
	OpenPath   key.Binding
	Cursor     key.Binding // display-only: arrows/hjkl move the cell cursor
	Toggle     key.Binding
	Pan        key.Binding
	ZoomIn     key.Binding
	ZoomOut    key.Binding
	ZoomReset  key.Binding
	Rows       key.Binding
	Columns    key.Binding
	Scene      key.Binding
	Clear      key.Binding
	RemoveLast key.Binding
	Export     key.Binding
	Copy       key.Binding
	Filter     key.Binding
	Help       key.Binding
	Settings   key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
	Demo       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		SwitchPane: key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch pane")),
		Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open sheet")),
		OpenPath:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open path")),
		Cursor:     key.NewBinding(key.WithKeys("up", "down", "left", "right", "h", "j", "k", "l"), key.WithHelp("←↓↑→/hjkl", "move cell cursor")),
		Toggle:     key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle cell")),
		Pan:        key.NewBinding(key.WithKeys("H", "J", "K", "L", "shift+left", "shift+down", "shift+up", "shift+right"), key.WithHelp("HJKL", "pan")),
		ZoomIn:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:    key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		ZoomReset:  key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset view")),
		Rows:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rows")),
		Columns:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "columns")),
		Scene:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "scene name")),
		Clear:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear selection")),
		RemoveLast: key.NewBinding(key.WithKeys("u", "backspace"), key.WithHelp("u", "remove last")),
		Export:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export zip")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy coordinates")),
		Filter:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search sheets")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Settings:   key.NewBinding(key.WithKeys(","), key.WithHelp(",", "settings")),
		Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c")),
		Demo:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "demo mode")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Toggle, k.Rows, k.Columns, k.Export, k.RemoveLast, k.SwitchPane, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Slicing
		{k.Open, k.OpenPath, k.Rows, k.Columns, k.Scene, k.Cursor, k.Toggle, k.Clear, k.RemoveLast, k.Export, k.Copy},
		// View / app
		{k.ZoomIn, k.ZoomOut, k.ZoomReset, k.Pan, k.SwitchPane, k.Filter, k.Demo, k.Settings, k.Help, k.Quit},
	}
}

// ─── Model ───────────────────────────────────────────────────────────────────

const statusTimeout = 3 * time.Second

// panStep is how far one pan key moves the view, in display units.
const panStep = 4

type promptKind int

const (
	promptNone promptKind = iota
	promptRows
	promptColumns
	promptScene
	promptOpen
)

func (k promptKind) label() string {
	switch k {
	case promptRows:
		return "rows"
	case promptColumns:
		return "columns"
	case promptScene:
		return "scene"
	case promptOpen:
		return "open"
	}
	return ""
}

type promptState struct {
	kind  promptKind
	input textinput.Model
}

type statusBarState struct {
	text    string
	id      int
	spinner spinner.Model
}

type exportState struct {
	id      int
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type model struct {
	// Layout
	list    list.Model
	panel   viewport.Model
	keys    keyMap
	help    help.Model
	zone    *zone.Manager
	focused pane
	width   int
	height  int
	ready   bool // true after first WindowSizeMsg

	glamourStyle string
	panelKey     string  // key of the panel content last requested
	loadedView   *string // shared with delegate: path of the loaded sheet
	loadingView  *string // shared with delegate: path of the in-flight load
	spinnerView  *string // shared with delegate: spinner frame

	// Sheets
	allSheets []sheet
	dir       string
	cfg       config
	watcher   *fsnotify.Watcher

	// Slicing
	sess       *session.Session
	rasterizer *raster.Rasterizer
	cursor     cellPos
	loadID     int
	loadedPath string
	startCmd   tea.Cmd // first load, queued before the program starts

	// Sub-states
	prompt promptState
	export exportState
	demo   demoState
	status statusBarState
}

func newModel(sheets []sheet, dir string, cfg config, watcher *fsnotify.Watcher) model {
	sortSheets(sheets)
	var loadedView, loadingView, spinView string
	delegate := sheetDelegate{loaded: &loadedView, loading: &loadingView, spinnerView: &spinView}
	l := list.New(sheetsToItems(sheets), delegate, 0, 0)
	l.Title = appTitle
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.Styles.Title = lipgloss.NewStyle().Padding(0, 0, 0, 0)
	l.Styles.TitleBar = lipgloss.NewStyle().Padding(0, 1, 1, 2)
	l.KeyMap.Quit.SetKeys("q")
	l.FilterInput.Prompt = "Search: "

	h := help.New()
	h.ShortSeparator = " | "
	h.Styles.ShortKey = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	h.Styles.ShortDesc = lipgloss.NewStyle().Foreground(colorDim)
	h.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(colorDim)
	h.Styles.FullKey = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Width(12)
	h.Styles.FullDesc = lipgloss.NewStyle().Foreground(colorFull)
	h.Styles.FullSeparator = lipgloss.NewStyle()

	s := spinner.New()
	s.Spinner = spinner.Pulse
	s.Style = lipgloss.NewStyle().Foreground(colorAccent)

	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256
	ti.Width = 40

	style := "dark"
	if !lipgloss.HasDarkBackground() {
		style = "light"
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := model{
		list:         l,
		panel:        viewport.New(0, 0),
		keys:         newKeyMap(),
		help:         h,
		zone:         zone.New(),
		focused:      listPane,
		glamourStyle: style,
		loadedView:   &loadedView,
		loadingView:  &loadingView,
		spinnerView:  &spinView,
		allSheets:    sheets,
		dir:          dir,
		cfg:          cfg,
		watcher:      watcher,
		sess:         session.New(cfg.grid(), cfg.Scene),
		rasterizer:   cfg.rasterizer(),
		prompt:       promptState{input: ti},
		export:       exportState{ctx: ctx, cancel: cancel},
		status:       statusBarState{spinner: s},
	}
	m.updateHelpKeys()
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.startCmd}
	if m.watcher != nil {
		cmds = append(cmds, watchDir(m.watcher))
	}
	return tea.Batch(cmds...)
}

// queueOpen arranges for path to be loaded as soon as the program starts.
func (m *model) queueOpen(path string) {
	m.startCmd = m.openSheet(path)
	m.selectPath(path)
}

// shutdown cancels any running export and releases the loaded sheet.
func (m model) shutdown() {
	m.export.cancel()
	m.sess.Close()
	if m.zone != nil {
		m.zone.Close()
	}
}

// setStatus shows a transient message in the status bar with a spinner animation.
// If duration > 0, the message auto-clears after that time.
func (m *model) setStatus(text string, duration time.Duration) tea.Cmd {
	m.status.id++
	m.status.text = text
	id := m.status.id
	cmds := []tea.Cmd{m.status.spinner.Tick}
	if duration > 0 {
		cmds = append(cmds, tea.Tick(duration, func(time.Time) tea.Msg {
			return statusClearMsg{id: id}
		}))
	}
	return tea.Batch(cmds...)
}

func (m *model) clearStatus() {
	m.status.text = ""
}

// updateHelpKeys enables only the actions that apply right now. Disabled
// bindings neither match nor show up in help.
func (m *model) updateHelpKeys() {
	grid := m.sess.Grid()
	m.keys.Clear.SetEnabled(grid.Active())
	m.keys.RemoveLast.SetEnabled(grid.Active())
	m.keys.Export.SetEnabled(m.sess.Selected() > 0 && !m.export.running)
	m.keys.Copy.SetEnabled(m.sess.Selected() > 0)
	m.keys.Toggle.SetEnabled(m.sess.Loaded() && grid.Active())
	m.keys.Pan.SetEnabled(m.sess.View.CanDrag())
	m.keys.ZoomReset.SetHelp("0", fmt.Sprintf("reset view (%d%%)", m.sess.View.Percent()))
	if m.focused == canvasPane {
		m.keys.Open.SetEnabled(false)
	} else {
		m.keys.Open.SetEnabled(true)
	}
}

func (m *model) restoreTitle() {
	brand := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	ghost := lipgloss.NewStyle().Foreground(colorDim)
	title := brand.Render(appTitle)
	if m.demo.active {
		maxW := m.list.Width() - 3
		for _, hint := range []string{"demo · press d to exit", "demo · d", "demo"} {
			if lipgloss.Width(title)+1+len(hint) <= maxW {
				title += " " + ghost.Render(hint)
				break
			}
		}
	} else if m.list.IsFiltered() {
		if f := m.list.FilterValue(); f != "" {
			title += " " + dateStyle.Render("/"+f)
		}
	}
	m.list.Title = title
}

func (m model) selectedSheet() (sheet, bool) {
	s, ok := m.list.SelectedItem().(sheet)
	return s, ok
}

// selectPath moves the list cursor to the sheet at path, if listed.
func (m *model) selectPath(path string) {
	for i, item := range m.list.Items() {
		if s, ok := item.(sheet); ok && s.path() == path {
			m.list.Select(i)
			return
		}
	}
	if idx := m.list.Index(); idx >= len(m.list.Items()) && len(m.list.Items()) > 0 {
		m.list.Select(len(m.list.Items()) - 1)
	}
}

// ─── Layout ──────────────────────────────────────────────────────────────────

type layout struct {
	listW, canvasW int // outer pane widths
	innerH         int // pane content height
	listH, panelH  int // split of the left pane
	canvasX        int // screen column of the canvas content
	canvasY        int // screen row of the canvas content
	canvasInnerW   int
	canvasInnerH   int
}

func (m model) layout() layout {
	var l layout
	l.listW = max(m.width*30/100, 24)
	l.canvasW = max(m.width-l.listW, 12)
	l.innerH = max(m.height-3, 5) // -2 borders, -1 status bar

	l.listH = l.innerH
	if m.sess.Selected() > 0 {
		l.panelH = l.innerH / 2
		l.listH = l.innerH - l.panelH - 1 // divider
	}
	l.canvasX = l.listW + 1
	l.canvasY = 2 // top border + toolbar
	l.canvasInnerW = l.canvasW - 2
	l.canvasInnerH = l.innerH - 1
	return l
}

func (m model) canvasLayout() canvasLayout {
	l := m.layout()
	src := m.sess.Source()
	return fitLayout(l.canvasInnerW, l.canvasInnerH, src.Width(), src.Height())
}

// applyLayout sizes the widgets and tells the session how large the
// fitted sheet is on screen.
func (m *model) applyLayout() {
	if !m.ready {
		return
	}
	l := m.layout()
	m.list.SetSize(max(l.listW-2, 10), max(l.listH, 3))
	m.panel.Width = max(l.listW-2, 10)
	m.panel.Height = max(l.panelH, 0)
	m.sess.SetDisplaySize(m.canvasLayout().box)
	m.restoreTitle()
}

// refreshPanel re-renders the selection panel when its content changed.
func (m *model) refreshPanel() tea.Cmd {
	cells := m.sess.Cells()
	if len(cells) == 0 {
		m.panelKey = ""
		m.panel.SetContent("")
		return nil
	}
	width := max(m.layout().listW-2, 20)
	k := panelKey(m.sess.Scene(), m.sess.Grid(), cells, width)
	if k == m.panelKey {
		return nil
	}
	m.panelKey = k
	md := selectionMarkdown(m.sess.Scene(), m.sess.Grid(), m.sess.Source(), cells)
	return renderPanel(k, md, m.glamourStyle, width)
}

// clampCursor keeps the cell cursor inside the grid.
func (m *model) clampCursor() {
	g := m.sess.Grid()
	m.cursor.row = min(max(m.cursor.row, 0), max(g.Rows-1, 0))
	m.cursor.col = min(max(m.cursor.col, 0), max(g.Columns-1, 0))
}

// ─── Actions ─────────────────────────────────────────────────────────────────

// openSheet starts loading path. The current sheet stays until the new one
// has decoded.
func (m *model) openSheet(path string) tea.Cmd {
	m.loadID++
	*m.loadingView = path
	id := m.loadID
	if m.demo.active {
		if img, ok := m.demo.images[path]; ok {
			return func() tea.Msg {
				return sheetLoadedMsg{id: id, src: session.FromImage(path, img)}
			}
		}
	}
	return tea.Batch(m.setStatus("Loading "+filepath.Base(path)+"…", 0), loadSheet(id, path))
}

func (m *model) toggleCell(row, col int) tea.Cmd {
	removed, err := m.sess.Toggle(row, col)
	if err != nil {
		return m.setStatus("Error: "+err.Error(), statusTimeout)
	}
	m.cursor = cellPos{row, col}
	var status tea.Cmd
	if removed > 1 {
		status = m.setStatus(fmt.Sprintf("Removed r%d c%d and %d later cells", row, col, removed-1), statusTimeout)
	}
	return tea.Batch(status, m.refreshPanel())
}

func (m *model) applyDimension(kind promptKind, value string) tea.Cmd {
	n := selection.ParseDimension(value)
	had := m.sess.Selected()
	var changed bool
	if kind == promptRows {
		changed = m.sess.SetRows(n)
	} else {
		changed = m.sess.SetColumns(n)
	}
	if !changed {
		return nil
	}
	m.clampCursor()
	text := "Grid " + m.sess.Grid().String()
	if had > 0 {
		text += fmt.Sprintf(" · cleared %d selected", had)
	}
	return tea.Batch(m.setStatus(text, statusTimeout), m.refreshPanel())
}

func (m *model) startExport() tea.Cmd {
	job, err := m.sess.Snapshot()
	if err != nil {
		return m.setStatus("Error: "+err.Error(), statusTimeout)
	}
	m.export.id++
	m.export.running = true
	opts := export.Options{Workers: m.cfg.workers()}
	return tea.Batch(
		m.setStatus(fmt.Sprintf("Exporting %d cells to %s…", len(job.Cells), export.ArchiveName(job.Scene)), 0),
		exportSheet(m.export.ctx, m.export.id, job, m.rasterizer, opts, m.cfg.exportDir()),
	)
}

func (m *model) openPrompt(kind promptKind) tea.Cmd {
	m.prompt.kind = kind
	var value string
	switch kind {
	case promptRows:
		value = strconv.Itoa(m.sess.Grid().Rows)
	case promptColumns:
		value = strconv.Itoa(m.sess.Grid().Columns)
	case promptScene:
		value = m.sess.Scene()
	case promptOpen:
		if m.loadedPath != "" && !m.demo.active {
			value = filepath.Dir(m.loadedPath) + string(filepath.Separator)
		}
	}
	m.prompt.input.SetValue(value)
	m.prompt.input.CursorEnd()
	m.prompt.input.Focus()
	return textinput.Blink
}

// ─── Modal Key Handlers ──────────────────────────────────────────────────────

func (m model) handlePromptKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit
	case msg.Type == tea.KeyEsc:
		m.prompt.kind = promptNone
		m.prompt.input.Blur()
		return m, nil
	case msg.Type == tea.KeyEnter:
		kind := m.prompt.kind
		value := strings.TrimSpace(m.prompt.input.Value())
		m.prompt.kind = promptNone
		m.prompt.input.Blur()
		switch kind {
		case promptRows, promptColumns:
			return m, m.applyDimension(kind, value)
		case promptScene:
			m.sess.SetScene(value)
			return m, tea.Batch(m.setStatus("Scene: "+m.sess.Scene(), statusTimeout), m.refreshPanel())
		case promptOpen:
			if value == "" {
				return m, nil
			}
			return m, m.openSheet(expandHome(value))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt.input, cmd = m.prompt.input.Update(msg)
	return m, cmd
}

// handleCanvasKey handles keys that act on the sheet. Returns handled=false
// for keys it does not own.
func (m model) handleCanvasKey(msg tea.KeyMsg) (model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.ZoomIn):
		m.sess.View.ZoomIn()
		return m, nil, true
	case key.Matches(msg, m.keys.ZoomOut):
		m.sess.View.ZoomOut()
		return m, nil, true
	case key.Matches(msg, m.keys.ZoomReset):
		m.sess.View.Reset()
		return m, nil, true
	case key.Matches(msg, m.keys.Pan):
		dx, dy := 0.0, 0.0
		switch msg.String() {
		case "H", "shift+left":
			dx = panStep
		case "L", "shift+right":
			dx = -panStep
		case "K", "shift+up":
			dy = panStep
		case "J", "shift+down":
			dy = -panStep
		}
		m.sess.View.PanBy(dx, dy)
		return m, nil, true
	case key.Matches(msg, m.keys.Rows):
		return m, m.openPrompt(promptRows), true
	case key.Matches(msg, m.keys.Columns):
		return m, m.openPrompt(promptColumns), true
	case key.Matches(msg, m.keys.Scene):
		return m, m.openPrompt(promptScene), true
	case key.Matches(msg, m.keys.OpenPath):
		return m, m.openPrompt(promptOpen), true
	case key.Matches(msg, m.keys.Clear):
		m.sess.Clear()
		return m, m.refreshPanel(), true
	case key.Matches(msg, m.keys.RemoveLast):
		if _, ok := m.sess.RemoveLast(); ok {
			return m, m.refreshPanel(), true
		}
		return m, nil, true
	case key.Matches(msg, m.keys.Export):
		return m, m.startExport(), true
	case msg.String() == "e":
		if m.export.running {
			return m, m.setStatus("Export already running", statusTimeout), true
		}
		return m, m.setStatus("Error: "+export.ErrNothingToExport.Error(), statusTimeout), true
	case key.Matches(msg, m.keys.Copy):
		return m, copyCoordinates(m.sess.Cells()), true
	}

	if m.focused != canvasPane {
		return m, nil, false
	}
	g := m.sess.Grid()
	switch msg.String() {
	case "up", "k":
		m.cursor.row--
	case "down", "j":
		m.cursor.row++
	case "left", "h":
		m.cursor.col--
	case "right", "l":
		m.cursor.col++
	default:
		if key.Matches(msg, m.keys.Toggle) {
			return m, m.toggleCell(m.cursor.row, m.cursor.col), true
		}
		return m, nil, false
	}
	if g.Active() {
		m.clampCursor()
	}
	return m, nil, true
}

// ─── Key Handling ─────────────────────────────────────────────────────────────

// handleKeyMsg processes keyboard input, returning handled=true for keys that
// should short-circuit Update and handled=false for keys that should fall
// through to list.Update for navigation and search.
func (m model) handleKeyMsg(msg tea.KeyMsg) (model, tea.Cmd, bool) {
	if key.Matches(msg, m.keys.Settings) && m.prompt.kind == promptNone && !m.list.SettingFilter() {
		m.help.ShowAll = false
		exe, err := os.Executable()
		if err != nil {
			return m, func() tea.Msg { return errMsg{fmt.Errorf("could not find executable: %w", err)} }, true
		}
		c := exec.Command(exe, "--setup")
		return m, tea.ExecProcess(c, func(err error) tea.Msg {
			if err != nil {
				return errMsg{fmt.Errorf("setup failed: %w", err)}
			}
			return configUpdatedMsg{}
		}), true
	}

	if m.prompt.kind != promptNone {
		mod, cmd := m.handlePromptKey(msg)
		return mod, cmd, true
	}

	// Help modal swallows everything except ?, esc, q
	if m.help.ShowAll {
		switch {
		case key.Matches(msg, m.keys.Help) || msg.String() == "esc":
			m.help.ShowAll = false
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit):
			return m, tea.Quit, true
		}
		return m, nil, true
	}

	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit, true
	}

	filtering := m.list.SettingFilter()
	if filtering {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit, true
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true
		return m, nil, true
	case key.Matches(msg, m.keys.SwitchPane):
		if m.focused == listPane {
			m.focused = canvasPane
		} else {
			m.focused = listPane
		}
		return m, nil, true
	case key.Matches(msg, m.keys.Demo) && !m.list.IsFiltered():
		if m.demo.active {
			m.exitDemoMode()
		} else {
			m.enterDemoMode()
		}
		return m, m.openSelected(), true
	}

	if mod, cmd, handled := m.handleCanvasKey(msg); handled {
		return mod, cmd, true
	}

	if m.focused == listPane && key.Matches(msg, m.keys.Open) {
		return m, m.openSelected(), true
	}
	return m, nil, false
}

// openSelected loads the sheet under the list cursor.
func (m *model) openSelected() tea.Cmd {
	s, ok := m.selectedSheet()
	if !ok {
		return nil
	}
	return m.openSheet(s.path())
}

// ─── Mouse ───────────────────────────────────────────────────────────────────

func (m model) handleMouse(msg tea.MouseMsg) (model, tea.Cmd) {
	l := m.layout()
	cl := m.canvasLayout()
	mx, my := msg.X-l.canvasX, msg.Y-l.canvasY
	inCanvas := mx >= 0 && my >= 0 && mx < l.canvasInnerW && my < l.canvasInnerH

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
			delta := -1.0
			if msg.Button == tea.MouseButtonWheelDown {
				delta = 1
			}
			if msg.X < l.listW {
				if delta < 0 {
					m.list.CursorUp()
				} else {
					m.list.CursorDown()
				}
				return m, nil
			}
			if inCanvas {
				m.sess.View.ZoomBy(delta)
			}
			return m, nil
		case tea.MouseButtonLeft:
			if id, ok := m.toolbarHit(msg); ok {
				return m.runToolbar(id)
			}
			if !inCanvas {
				return m, nil
			}
			m.focused = canvasPane
			dx, dy := mouseDisplay(mx, my)
			m.sess.View.BeginDrag(dx, dy)
			if row, col, ok := m.sess.Pick(cl.mousePoint(mx, my)); ok {
				return m, m.toggleCell(row, col)
			}
		}
	case tea.MouseActionMotion:
		if m.sess.View.Dragging() {
			dx, dy := mouseDisplay(mx, my)
			m.sess.View.ContinueDrag(dx, dy)
		}
	case tea.MouseActionRelease:
		m.sess.View.EndDrag()
	}
	return m, nil
}

// ─── Update ──────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		mod, cmd, handled := m.handleKeyMsg(msg)
		m = mod
		if handled {
			m.afterChange()
			return m, cmd
		}

	case tea.MouseMsg:
		mod, cmd := m.handleMouse(msg)
		m = mod
		m.afterChange()
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.panelKey = ""
		m.applyLayout()
		return m, m.refreshPanel()

	case sheetLoadedMsg:
		if msg.id != m.loadID {
			msg.src.Release()
			return m, nil
		}
		*m.loadingView = ""
		m.sess.Install(msg.src)
		m.loadedPath = msg.src.Path
		*m.loadedView = msg.src.Path
		m.cursor = cellPos{}
		m.focused = canvasPane
		m.afterChange()
		text := fmt.Sprintf("Loaded %s (%d×%d)", msg.src.Name(), msg.src.Width(), msg.src.Height())
		return m, tea.Batch(m.setStatus(text, statusTimeout), m.refreshPanel())

	case sheetFailedMsg:
		if msg.id != m.loadID {
			return m, nil
		}
		*m.loadingView = ""
		m.sess.MarkFailed(msg.path, msg.err)
		m.loadedPath = ""
		*m.loadedView = ""
		m.afterChange()
		return m, tea.Batch(m.setStatus("Error: "+msg.err.Error(), statusTimeout), m.refreshPanel())

	case exportDoneMsg:
		if msg.id != m.export.id {
			return m, nil
		}
		m.export.running = false
		m.afterChange()
		if msg.err != nil {
			if errors.Is(msg.err, context.Canceled) {
				return m, m.setStatus("Export cancelled", statusTimeout)
			}
			return m, m.setStatus("Export failed: "+msg.err.Error(), statusTimeout)
		}
		text := fmt.Sprintf("Saved %s (%d cells)", contractHome(msg.path), len(msg.archive.Items))
		if n := len(msg.archive.Failures); n > 0 {
			text += fmt.Sprintf(" · %d failed, see log", n)
		}
		return m, m.setStatus(text, 2*statusTimeout)

	case panelContentMsg:
		if msg.key == m.panelKey {
			m.panel.SetContent(msg.content)
		}
		return m, nil

	case copiedMsg:
		return m, m.setStatus(fmt.Sprintf("Copied coordinates for %d cells", msg.count), statusTimeout)

	case fileChangedMsg:
		if !m.demo.active {
			prev := ""
			if s, ok := m.selectedSheet(); ok {
				prev = s.path()
			}
			if sheets, err := scanAllSheets(m.dir, m.cfg.SheetsGlob); err == nil {
				m.allSheets = sheets
				m.list.SetItems(sheetsToItems(sheets))
				m.selectPath(prev)
			}
			if m.loadedPath != "" && slices.Contains(msg.files, filepath.Clean(m.loadedPath)) {
				if _, err := os.Stat(m.loadedPath); err == nil {
					logging.Info("reloading %s after change on disk", m.loadedPath)
					cmds = append(cmds, m.openSheet(m.loadedPath))
				}
			} else if len(msg.files) > 0 {
				label := filepath.Base(msg.files[0])
				if len(msg.files) > 1 {
					label = fmt.Sprintf("%d files", len(msg.files))
				}
				cmds = append(cmds, m.setStatus("Updated: "+label, statusTimeout))
			}
		}
		if m.watcher != nil {
			cmds = append(cmds, watchDir(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case reloadMsg:
		prev := ""
		if s, ok := m.selectedSheet(); ok {
			prev = s.path()
		}
		m.allSheets = msg.sheets
		m.list.SetItems(sheetsToItems(msg.sheets))
		m.selectPath(prev)
		return m, nil

	case configUpdatedMsg:
		cfg := loadConfig()
		oldDir, oldGlob := m.dir, m.cfg.SheetsGlob
		m.cfg = cfg
		m.rasterizer = cfg.rasterizer()
		if dir := cfg.sheetsDir(); dir != oldDir || cfg.SheetsGlob != oldGlob {
			m.dir = dir
			if m.watcher != nil {
				for _, d := range append([]string{oldDir}, resolveSheetDirs(oldGlob)...) {
					_ = m.watcher.Remove(d)
				}
				for _, d := range append([]string{m.dir}, resolveSheetDirs(cfg.SheetsGlob)...) {
					_ = m.watcher.Add(d)
				}
			}
			if !m.demo.active {
				cmds = append(cmds, reloadSheets(m.dir, cfg.SheetsGlob))
			}
		}
		cmds = append(cmds, m.setStatus("Settings saved", statusTimeout))
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if m.status.text != "" {
			var cmd tea.Cmd
			m.status.spinner, cmd = m.status.spinner.Update(msg)
			*m.spinnerView = m.status.spinner.View()
			return m, cmd
		}
		return m, nil

	case statusClearMsg:
		if msg.id == m.status.id {
			m.clearStatus()
		}
		return m, nil

	case errMsg:
		*m.loadingView = ""
		return m, m.setStatus(fmt.Sprintf("Error: %v", msg.err), statusTimeout)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)

	if m.prompt.kind != promptNone {
		var tiCmd tea.Cmd
		m.prompt.input, tiCmd = m.prompt.input.Update(msg)
		cmds = append(cmds, tiCmd)
	}

	m.afterChange()
	return m, tea.Batch(cmds...)
}

// afterChange re-derives layout and help state after any mutation.
func (m *model) afterChange() {
	m.applyLayout()
	m.updateHelpKeys()
}
