package main

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ─── Colors ──────────────────────────────────────────────────────────────────

var (
	colorBlack   = lipgloss.Color("0")
	colorAccent  = lipgloss.Color("5")  // magenta: brand, focused borders, keys
	colorDim     = lipgloss.Color("8")  // gray: secondary text, unfocused borders
	colorFull    = lipgloss.Color("7")  // white: full help descriptions
	colorGreen   = lipgloss.Color("10") // loaded sheet badge
	colorMagenta = lipgloss.Color("13") // status bar messages
)

// ─── Styles ──────────────────────────────────────────────────────────────────

var (
	focusedBorder   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent)
	unfocusedBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
	paneTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	helpTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)
	helpBoxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 3)
	statusTextStyle = lipgloss.NewStyle().Bold(true).Foreground(colorMagenta)
	buttonStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	dividerStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

func truncateForWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	limit := maxWidth - 1
	var b strings.Builder
	width := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if width+rw > limit {
			break
		}
		b.WriteRune(r)
		width += rw
	}
	return b.String() + "…"
}

// ─── Toolbar ─────────────────────────────────────────────────────────────────

type toolbarButton struct {
	id    string
	label string
}

func toolbarZoneID(id string) string {
	return "toolbar-" + id
}

// toolbarButtons lists the clickable actions that apply right now,
// mirroring the enabled key bindings.
func (m model) toolbarButtons() []toolbarButton {
	buttons := []toolbarButton{
		{"zoom-in", "[+]"},
		{"zoom-out", "[-]"},
		{"reset", "[reset]"},
	}
	if m.keys.Clear.Enabled() {
		buttons = append(buttons, toolbarButton{"clear", "[clear]"}, toolbarButton{"undo", "[remove last]"})
	}
	if m.keys.Export.Enabled() {
		buttons = append(buttons, toolbarButton{"export", "[export]"})
	}
	return buttons
}

func (m model) toolbarHit(msg tea.MouseMsg) (string, bool) {
	if m.zone == nil {
		return "", false
	}
	for _, b := range m.toolbarButtons() {
		if z := m.zone.Get(toolbarZoneID(b.id)); z != nil && z.InBounds(msg) {
			return b.id, true
		}
	}
	return "", false
}

func (m model) runToolbar(id string) (model, tea.Cmd) {
	switch id {
	case "zoom-in":
		m.sess.View.ZoomIn()
	case "zoom-out":
		m.sess.View.ZoomOut()
	case "reset":
		m.sess.View.Reset()
	case "clear":
		m.sess.Clear()
		return m, m.refreshPanel()
	case "undo":
		if _, ok := m.sess.RemoveLast(); ok {
			return m, m.refreshPanel()
		}
	case "export":
		return m, m.startExport()
	}
	return m, nil
}

// toolbarView is the line above the canvas: buttons on the left, zoom,
// grid and scene on the right.
func (m model) toolbarView(width int) string {
	var parts []string
	for _, b := range m.toolbarButtons() {
		label := buttonStyle.Render(b.label)
		if m.zone != nil {
			label = m.zone.Mark(toolbarZoneID(b.id), label)
		}
		parts = append(parts, label)
	}
	left := strings.Join(parts, " ")

	info := fmt.Sprintf("%d%% · %s · %s", m.sess.View.Percent(), m.sess.Grid(), m.sess.Scene())
	if n := m.sess.Selected(); n > 0 {
		info += fmt.Sprintf(" · %d selected", n)
	}
	right := dateStyle.Render(info)
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return truncateForWidth(left, width)
	}
	return left + strings.Repeat(" ", gap) + right
}

// ─── Panes ───────────────────────────────────────────────────────────────────

func (m model) canvasView(l layout) string {
	w, h := l.canvasInnerW, l.canvasInnerH
	if m.sess.Loaded() {
		return drawSheet(m.sess, m.canvasLayout(), m.cursor, m.focused == canvasPane).String()
	}
	if path, err := m.sess.Failure(); err != nil {
		return drawPlaceholder(m.sess.PlaceholderGrid(), w, h, path, err).String()
	}
	msg := appTitle + "\n\nenter  open the selected sheet\no  open a path\nd  try demo mode"
	if len(m.list.Items()) == 0 && !m.demo.active {
		msg = appTitle + "\n\nNo sheets in " + contractHome(m.dir) + "\n\no  open a path\nd  try demo mode"
	}
	hint := lipgloss.NewStyle().Foreground(colorDim).Width(w).Align(lipgloss.Center).Render(msg)
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, hint)
}

func (m model) leftView(l layout) string {
	inner := l.listW - 2
	var top string
	if len(m.list.Items()) == 0 && !m.list.SettingFilter() {
		msg := "No sheets yet\n\n" + contractHome(m.dir) + "\n\no  open a path\nd  try demo mode"
		hint := lipgloss.NewStyle().Foreground(colorDim).Width(inner - 2).Align(lipgloss.Center).Render(msg)
		top = lipgloss.Place(inner, l.listH, lipgloss.Center, lipgloss.Center, hint)
	} else {
		top = m.list.View()
	}
	if l.panelH <= 0 {
		return top
	}
	divider := dividerStyle.Render(strings.Repeat("─", inner))
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Height(l.listH).MaxHeight(l.listH).Render(top),
		divider,
		m.panel.View(),
	)
}

func (m model) statusBarView() string {
	switch {
	case m.prompt.kind != promptNone:
		hint := ""
		switch m.prompt.kind {
		case promptRows, promptColumns:
			hint = "  a number, 0 to unset · changing it clears the selection"
		case promptOpen:
			hint = "  path to a PNG, JPEG, GIF, BMP, TIFF or WebP"
		}
		return " " + m.prompt.kind.label() + ": " + m.prompt.input.View() + dateStyle.Render(hint)
	case m.status.text != "":
		return " " + m.status.spinner.View() + " " + statusTextStyle.Render(truncateForWidth(m.status.text, m.width-4))
	default:
		return " " + m.help.ShortHelpView(m.keys.ShortHelp())
	}
}

// ─── View ────────────────────────────────────────────────────────────────────

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}
	l := m.layout()

	leftStyle, rightStyle := focusedBorder, unfocusedBorder
	if m.focused == canvasPane {
		leftStyle, rightStyle = unfocusedBorder, focusedBorder
	}
	leftStyle = leftStyle.Width(l.listW - 2).Height(l.innerH)
	rightStyle = rightStyle.Width(l.canvasInnerW).Height(l.innerH)

	var title string
	if src := m.sess.Source(); src != nil {
		title = paneTitleStyle.Render(truncateForWidth(filepath.Base(src.Path), l.canvasInnerW/2)) + " "
	}
	toolbar := title + m.toolbarView(l.canvasInnerW-lipgloss.Width(title))
	right := toolbar + "\n" + m.canvasView(l)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftStyle.Render(m.leftView(l)),
		rightStyle.Render(right),
	)
	base := panes + "\n" + m.statusBarView()

	if m.help.ShowAll {
		content := helpTitleStyle.Render("Keybindings") + "\n" + m.help.FullHelpView(m.keys.FullHelp())

		modalMaxW := min(m.width-4, 80)
		modalMaxW = max(modalMaxW, 20)
		contentMaxW := max(modalMaxW-8, 12)

		content = lipgloss.NewStyle().MaxWidth(contentMaxW).Render(content)
		overlay := helpBoxStyle.MaxWidth(modalMaxW).Render(content)
		base = lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, overlay,
			lipgloss.WithWhitespaceChars(" "),
			lipgloss.WithWhitespaceForeground(colorBlack),
		)
	}

	if m.zone != nil {
		return m.zone.Scan(base)
	}
	return base
}
