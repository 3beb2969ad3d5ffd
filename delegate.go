package main

import (
	"fmt"
	"hash/fnv"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ─── Row Delegate ────────────────────────────────────────────────────────────
//
// Renders one work item per line: state glyph, number, title, then a right
// column with PR ref, run glyph, checkout marker, and relative update time.
// Everything drawn here is a precomputed display field; the delegate does no
// derivation of its own.

var (
	openStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	draftStyle   = lipgloss.NewStyle().Foreground(colorDim)
	mergedStyle  = lipgloss.NewStyle().Foreground(colorAccent)
	numberStyle  = lipgloss.NewStyle().Foreground(colorDim)
	metaStyle    = lipgloss.NewStyle().Foreground(colorDim)
	passStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	pendingStyle = lipgloss.NewStyle().Foreground(colorYellow)
	selectedBar  = lipgloss.NewStyle().Foreground(colorAccent).SetString("│ ")
	normalBar    = lipgloss.NewStyle().SetString("  ")
)

// labelColors are 256-color palette values chosen for readable contrast on
// dark terminals. Prime-length palette for better hash distribution.
var labelColors = []string{
	"204", "209", "215", "179", "149", "114", "80", "75", "111",
	"147", "183", "176", "168", "131", "173", "137", "109", "73",
	"167", "143", "103", "69", "212",
}

// labelColor returns a consistent style for a label name, derived from an
// FNV-1a hash for good distribution with short strings.
func labelColor(name string) lipgloss.Style {
	h := fnv.New32a()
	h.Write([]byte(name))
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(labelColors[h.Sum32()%uint32(len(labelColors))]))
}

type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func glyphStyle(it workItem) lipgloss.Style {
	switch {
	case it.prState == "merged":
		return mergedStyle
	case it.prDraft:
		return draftStyle
	case it.prState == "open":
		return openStyle
	default:
		return numberStyle
	}
}

func runStyle(it workItem) lipgloss.Style {
	switch {
	case it.runStatus == "":
		return metaStyle
	case it.runStatus != "completed":
		return pendingStyle
	case it.runConclusion == "success":
		return passStyle
	default:
		return failStyle
	}
}

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(workItem)
	if !ok {
		return
	}

	bar := normalBar
	if index == m.Index() {
		bar = selectedBar
	}

	maxW := m.Width() - 3 // -2 for bar prefix, -1 for right padding
	if maxW < 10 {
		maxW = 10
	}

	glyph := glyphStyle(it).Render(it.stateGlyph)
	number := numberStyle.Render(fmt.Sprintf("#%-4d", it.number))

	// Right column: PR ref · run glyph · checkout marker · age
	var right []string
	if it.prRef != "" {
		right = append(right, mergedStyle.Render(it.prRef))
	}
	if it.runGlyph != " " && it.runGlyph != "" {
		right = append(right, runStyle(it).Render(it.runGlyph))
	}
	if it.checkout != "" {
		right = append(right, metaStyle.Render("⌂"))
	}
	if it.updatedRel != "" {
		right = append(right, metaStyle.Render(it.updatedRel))
	}
	rightCol := strings.Join(right, " ")
	rightW := lipgloss.Width(rightCol)
	if rightW > 0 {
		rightW++ // leading space
	}

	glyphW := lipgloss.Width(glyph)
	numberW := lipgloss.Width(number)
	avail := maxW - glyphW - 1 - numberW - 1 - rightW

	title := it.title
	if avail > 0 && lipgloss.Width(title) > avail {
		title = truncateForWidth(title, avail)
	}
	pad := ""
	if gap := avail - lipgloss.Width(title); gap > 0 {
		pad = strings.Repeat(" ", gap)
	}

	fmt.Fprintf(w, "%s%s %s %s%s %s", bar, glyph, number, title, pad, rightCol)
}
