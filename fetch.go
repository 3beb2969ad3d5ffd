package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ─── Fetch Scheduler ─────────────────────────────────────────────────────────
//
// The core race-prevention discipline: the view mode that requested a fetch is
// snapshotted into the tea.Cmd closure at launch and travels with the result
// message. The cache write always lands under the snapshot's label key; the
// display update happens only if the user is still on the snapshot's view at
// completion. Nothing here ever re-reads mutable model state mid-flight.

// fetchCache maps a label key to the last successfully fetched rows for that
// label set. Entries are replaced wholesale, never edited in place. Views
// sharing a label set (Plans/Learn) share an entry and are split after the
// fact by filterForView.
type fetchCache map[string][]workItem

// itemsFetchedMsg carries the fetched-mode snapshot alongside the rows so
// Update can gate the display write on it.
type itemsFetchedMsg struct {
	fetched viewMode
	items   []workItem
}

type fetchFailedMsg struct {
	fetched viewMode
	err     error
}

// loadItems builds the filter from the snapshot's view config — every filter
// dimension populated explicitly — and runs the fetch off the UI loop.
func loadItems(p dataProvider, cfg config, fetched viewMode) tea.Cmd {
	vc := lookupView(fetched)
	filter := itemFilter{
		labels:      vc.labels,
		state:       "open",
		runState:    "", // all run states; views don't constrain this
		limit:       cfg.Limit,
		creator:     cfg.Creator,
		includeBody: false,
	}
	return func() tea.Msg {
		items, err := p.fetchItems(filter)
		if err != nil {
			return fetchFailedMsg{fetched: fetched, err: err}
		}
		return itemsFetchedMsg{fetched: fetched, items: items}
	}
}

type refreshTickMsg struct{}

// scheduleRefresh arms the periodic refresh timer. Update re-arms it after
// each tick; the in-flight guard in startLoad keeps timer-driven fetches from
// stacking on top of ones still running.
func scheduleRefresh(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// startLoad launches a fetch for mode unless one is already in flight for the
// same label set. Returns nil when suppressed.
func (m *model) startLoad(mode viewMode) tea.Cmd {
	key := mode.labelKey()
	if m.inflight[key] {
		return nil
	}
	m.inflight[key] = true
	return loadItems(m.provider, m.cfg, mode)
}
