package main

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// rendererPool caches glamour renderers keyed by "style:width". Each key maps
// to a sync.Pool so concurrent goroutines get their own instance.
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

func glamourRender(markdown, style string, width int) string {
	pw := width - 4
	if pw < 20 {
		pw = 80
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

// renderBody fetches the item's body (lazily, through the provider) and
// renders it for the detail pane. Both the fetch and the render happen off
// the UI loop; the item is snapshotted into the closure.
func renderBody(p dataProvider, item workItem, style string, width int) tea.Cmd {
	return func() tea.Msg {
		body, err := p.fetchItemBody(item.number, item.body)
		if err != nil {
			return bodyContentMsg{
				number:  item.number,
				content: fmt.Sprintf("Error loading #%d: %v", item.number, err),
			}
		}
		if body == "" {
			body = "*No description*"
		}
		return bodyContentMsg{number: item.number, content: glamourRender(body, style, width)}
	}
}
