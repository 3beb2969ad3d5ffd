package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ─── Styles ──────────────────────────────────────────────────────────────────

var (
	colorAccent = lipgloss.Color("5")
	colorDim    = lipgloss.Color("8")
	colorFull   = lipgloss.Color("7")
	colorGreen  = lipgloss.Color("10")
	colorYellow = lipgloss.Color("11")
	colorRed    = lipgloss.Color("9")
)

var (
	focusedBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent)
	blurredBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim)

	statusStyle      = lipgloss.NewStyle().Foreground(colorFull).Padding(0, 1)
	statusErrStyle   = lipgloss.NewStyle().Foreground(colorRed).Padding(0, 1)
	helpTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 0, 1, 0)
	modalStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent).Padding(1, 2)
	paletteSelStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	paletteItemStyle = lipgloss.NewStyle().Foreground(colorFull)
	paletteKeyStyle  = lipgloss.NewStyle().Foreground(colorDim)
	streamTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	streamDimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	streamFailStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	streamOKStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
)

// truncateForWidth trims a string to the given display width, appending an
// ellipsis. Width-aware, so wide runes don't overflow the column.
func truncateForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// ─── View ────────────────────────────────────────────────────────────────────

func (m model) View() string {
	if !m.ready {
		return "Starting…"
	}
	if m.stream != nil {
		return m.streamView()
	}
	if m.help.ShowAll {
		return m.helpView()
	}
	if m.palette.on {
		return m.paletteView()
	}
	return m.mainView()
}

func (m model) mainView() string {
	listBorder := blurredBorder
	detailBorder := blurredBorder
	if m.focused == listPane {
		listBorder = focusedBorder
	} else {
		detailBorder = focusedBorder
	}

	listBox := listBorder.
		Width(m.list.Width()).
		Height(m.list.Height() + 1).
		Render(m.list.View())
	detailBox := detailBorder.
		Width(m.viewport.Width).
		Height(m.viewport.Height + 1).
		Render(m.viewport.View())

	panes := lipgloss.JoinHorizontal(lipgloss.Top, listBox, detailBox)
	return lipgloss.JoinVertical(lipgloss.Left, panes, m.statusBarView())
}

func (m model) statusBarView() string {
	if m.status.text != "" {
		style := statusStyle
		if m.status.isError {
			style = statusErrStyle
		}
		line := m.status.spinner.View() + " " + m.status.text
		return style.Render(truncateForWidth(line, m.width-2))
	}
	return statusStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

// ─── Palette overlay ─────────────────────────────────────────────────────────

func (m model) paletteView() string {
	var b strings.Builder
	b.WriteString(helpTitleStyle.Render("Commands") + "\n")
	b.WriteString(m.palette.input.View() + "\n\n")

	if len(m.palette.matches) == 0 {
		b.WriteString(paletteKeyStyle.Render("  no matching commands"))
	}
	for i, def := range m.palette.matches {
		name := def.displayName(m.palette.ctx)
		shortcut := ""
		if def.key != "" {
			shortcut = "  " + paletteKeyStyle.Render("("+def.key+")")
		}
		if i == m.palette.cursor {
			b.WriteString(paletteSelStyle.Render("❯ "+name) + shortcut + "\n")
		} else {
			b.WriteString(paletteItemStyle.Render("  "+name) + shortcut + "\n")
		}
	}
	b.WriteString("\n" + paletteKeyStyle.Render("↑/↓ select · enter run · esc cancel"))

	box := modalStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// ─── Help modal ──────────────────────────────────────────────────────────────

func (m model) helpView() string {
	var b strings.Builder
	b.WriteString(helpTitleStyle.Render("Keyboard reference") + "\n")
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	b.WriteString("\n\n" + paletteKeyStyle.Render("? or esc to close"))
	box := modalStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// ─── Streaming session overlay ───────────────────────────────────────────────

// streamView fills the screen with the running command's transcript: title at
// the top, output tail in the middle, state line at the bottom.
func (m model) streamView() string {
	s := m.stream
	header := streamTitleStyle.Render(s.spec.title)

	var footer string
	switch s.state {
	case streamLaunching:
		footer = m.status.spinner.View() + " " + streamDimStyle.Render("starting…")
	case streamStreaming:
		footer = m.status.spinner.View() + " " + streamDimStyle.Render("running…")
	case streamSucceeded:
		footer = streamOKStyle.Render("✔ done") + streamDimStyle.Render("  enter to dismiss")
	case streamTimedOut:
		footer = streamFailStyle.Render("✘ timed out") + streamDimStyle.Render("  enter to dismiss")
	default:
		footer = streamFailStyle.Render("✘ failed") + streamDimStyle.Render("  enter to dismiss")
	}

	bodyH := m.height - 4
	if bodyH < 1 {
		bodyH = 1
	}
	lines := s.transcript
	if len(lines) > bodyH {
		lines = lines[len(lines)-bodyH:]
	}
	body := make([]string, len(lines))
	for i, l := range lines {
		body[i] = truncateForWidth(l, m.width-2)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		strings.Join(body, "\n"),
	)
	content = lipgloss.NewStyle().Width(m.width - 2).Height(m.height - 2).Padding(0, 1).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, content, statusStyle.Render(footer))
}
