package main

import (
	"fmt"
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
)

// ─── Key Map ─────────────────────────────────────────────────────────────────

type keyMap struct {
	Navigate   key.Binding
	SwitchPane key.Binding
	Views      key.Binding // 1-3 direct view switch (display-only binding)
	NextView   key.Binding
	PrevView   key.Binding
	Refresh    key.Binding
	Palette    key.Binding
	Close      key.Binding
	Submit     key.Binding
	OpenItem   key.Binding
	OpenPR     key.Binding
	CopyURL    key.Binding
	Filter     key.Binding
	ScrollDown key.Binding
	ScrollUp   key.Binding
	Help       key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Navigate:   key.NewBinding(key.WithKeys("j", "k"), key.WithHelp("j/k", "navigate / scroll")),
		SwitchPane: key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch pane")),
		Views:      key.NewBinding(key.WithKeys("1", "2", "3"), key.WithHelp("1-3", "switch view")),
		NextView:   key.NewBinding(key.WithKeys("]"), key.WithHelp("[/]", "cycle view")),
		PrevView:   key.NewBinding(key.WithKeys("[")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Palette:    key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "commands")),
		Close:      key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "close item")),
		Submit:     key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "merge queue")),
		OpenItem:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in browser")),
		OpenPR:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "open PR")),
		CopyURL:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy URL")),
		Filter:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		ScrollDown: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "page down")),
		ScrollUp:   key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "page up")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Views, k.Palette, k.OpenItem, k.Refresh, k.Filter, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Palette, k.Close, k.Submit, k.OpenItem, k.OpenPR, k.CopyURL, k.Refresh},
		{k.Navigate, k.SwitchPane, k.Views, k.NextView, k.ScrollDown, k.ScrollUp, k.Filter, k.Help, k.Quit},
	}
}

// ─── Model ───────────────────────────────────────────────────────────────────

const statusTimeout = 4 * time.Second

type pane int

const (
	listPane pane = iota
	detailPane
)

type statusBarState struct {
	text    string
	isError bool
	id      int
	spinner spinner.Model
}

type paletteState struct {
	on      bool
	input   textinput.Model
	offered []commandDef // layer-1 result, frozen while the palette is open
	matches []commandDef
	cursor  int
	ctx     cmdContext
}

type model struct {
	// Layout
	list     list.Model
	viewport viewport.Model
	keys     keyMap
	help     help.Model
	focused  pane
	width    int
	height   int
	ready    bool

	// Detail rendering
	previewCache map[int]string // item number → glamour-rendered body
	previewWidth int
	prerendered  bool
	glamourStyle string

	// Data
	provider dataProvider
	cfg      config
	mode     viewMode
	cache    fetchCache
	inflight map[string]bool // label key → fetch in flight
	watcher  *fsnotify.Watcher

	// Command execution
	palette  paletteState
	stream   *streamSession
	streamID int

	// Transient state
	status    statusBarState
	prevIndex int
}

func newModel(provider dataProvider, cfg config, start viewMode, watcher *fsnotify.Watcher) model {
	delegate := itemDelegate{}
	l := list.New(nil, delegate, 0, 0)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.Styles.Title = lipgloss.NewStyle().Padding(0, 0, 0, 0)
	l.Styles.TitleBar = lipgloss.NewStyle().Padding(0, 1, 1, 2)
	l.KeyMap.Quit.SetKeys("q") // don't quit on esc
	l.FilterInput.Prompt = "Search: "

	h := help.New()
	h.ShortSeparator = " | "
	h.Styles.ShortKey = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	h.Styles.ShortDesc = lipgloss.NewStyle().Foreground(colorDim)
	h.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(colorDim)
	h.Styles.FullKey = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Width(10)
	h.Styles.FullDesc = lipgloss.NewStyle().Foreground(colorFull)
	h.Styles.FullSeparator = lipgloss.NewStyle()

	s := spinner.New()
	s.Spinner = spinner.Pulse
	s.Style = lipgloss.NewStyle().Foreground(colorAccent)

	ti := textinput.New()
	ti.Prompt = "❯ "
	ti.CharLimit = 40
	ti.Width = 30

	style := "dark"
	if !lipgloss.HasDarkBackground() {
		style = "light"
	}

	m := model{
		list:         l,
		viewport:     viewport.New(0, 0),
		keys:         newKeyMap(),
		help:         h,
		focused:      listPane,
		prevIndex:    -1,
		previewCache: make(map[int]string),
		glamourStyle: style,
		provider:     provider,
		cfg:          cfg,
		mode:         start,
		cache:        make(fetchCache),
		inflight:     make(map[string]bool),
		watcher:      watcher,
		status:       statusBarState{spinner: s},
		palette:      paletteState{input: ti},
	}
	m.restoreTitle()
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		scheduleRefresh(m.cfg.refreshInterval()),
	}
	if cmd := (&m).startLoad(m.mode); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.watcher != nil {
		cmds = append(cmds, watchGitHead(m.watcher))
	}
	return tea.Batch(cmds...)
}

// ─── Status bar ──────────────────────────────────────────────────────────────

// setStatus shows a transient message in the status bar with a spinner
// animation. If duration > 0, the message auto-clears after that time.
func (m *model) setStatus(text string, duration time.Duration) tea.Cmd {
	m.status.id++
	m.status.text = text
	m.status.isError = false
	id := m.status.id
	var cmds []tea.Cmd
	cmds = append(cmds, m.status.spinner.Tick)
	if duration > 0 {
		cmds = append(cmds, tea.Tick(duration, func(time.Time) tea.Msg {
			return statusClearMsg{id: id}
		}))
	}
	return tea.Batch(cmds...)
}

func (m *model) setError(text string) tea.Cmd {
	cmd := m.setStatus(text, 2*statusTimeout)
	m.status.isError = true
	return cmd
}

func (m *model) clearStatus() {
	m.status.text = ""
	m.status.isError = false
}

// restoreTitle rebuilds the list title: brand on the left, view tabs on the
// right, the active view highlighted. This is also the view-indicator update
// required when switching views.
func (m *model) restoreTitle() {
	brand := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	tab := lipgloss.NewStyle().Bold(true)
	ghost := lipgloss.NewStyle().Foreground(colorDim)

	var parts []string
	for _, vc := range viewConfigs {
		label := ghost.Render(vc.hotkey+" ") + ghost.Render(vc.name)
		if vc.mode == m.mode {
			label = ghost.Render(vc.hotkey+" ") + tab.Render(vc.name)
		}
		parts = append(parts, label)
	}
	tabs := strings.Join(parts, ghost.Render(" · "))
	tabsW := lipgloss.Width(tabs)

	left := brand.Render("Workdeck")
	if m.provider.kind() == backendDemo {
		left += " " + ghost.Render("demo")
	}
	if m.list.IsFiltered() {
		if filterText := m.list.FilterValue(); filterText != "" {
			left += " " + ghost.Render("/"+filterText)
		}
	}

	maxW := m.list.Width() - 3 // TitleBar padding: left (2) + right (1)
	leftW := lipgloss.Width(left)
	avail := maxW - leftW - tabsW
	if avail > 0 {
		m.list.Title = left + strings.Repeat(" ", avail) + tabs
	} else {
		// Not enough room — drop tabs to avoid wrapping
		m.list.Title = left
	}
}

// ─── View switching ──────────────────────────────────────────────────────────

// switchView implements the mode-switch contract: no-op on same mode, update
// the indicator, then either render straight from cache or launch a fetch for
// the new view's label set.
func (m *model) switchView(mode viewMode) tea.Cmd {
	if mode == m.mode {
		return nil
	}
	m.mode = mode
	m.restoreTitle()

	if rows, ok := m.cache[mode.labelKey()]; ok {
		m.applyRows(rows)
		return m.renderWindow()
	}
	var cmds []tea.Cmd
	if cmd := m.startLoad(mode); cmd != nil {
		cmds = append(cmds, cmd, m.setStatus("Loading "+mode.String()+"…", 0))
	}
	return tea.Batch(cmds...)
}

// applyRows replaces the visible table with the view's client-side slice of a
// fetched row set, keeping the cursor on the same item where possible.
func (m *model) applyRows(rows []workItem) {
	prev := m.selectedNumber()
	visible := filterForView(rows, m.mode)
	items := make([]list.Item, len(visible))
	for i, it := range visible {
		items[i] = it
	}
	m.list.SetItems(items)
	m.selectNumber(prev)
}

func (m model) selectedNumber() int {
	if it, ok := m.list.SelectedItem().(workItem); ok {
		return it.number
	}
	return 0
}

// selectNumber moves the cursor to the item with the given number, or clamps
// the current index to the list length.
func (m *model) selectNumber(number int) {
	for i, item := range m.list.Items() {
		if it, ok := item.(workItem); ok && it.number == number {
			m.list.Select(i)
			return
		}
	}
	if idx := m.list.Index(); idx >= len(m.list.Items()) && len(m.list.Items()) > 0 {
		m.list.Select(len(m.list.Items()) - 1)
	}
}

// ─── Command dispatch ────────────────────────────────────────────────────────

// commandContext builds a fresh dispatch context from the current selection.
// Never cached: the selected row and active view can change between offer and
// invocation.
func (m *model) commandContext() (cmdContext, bool) {
	it, ok := m.list.SelectedItem().(workItem)
	if !ok {
		return cmdContext{}, false
	}
	return cmdContext{item: it, mode: m.mode, backend: m.provider.kind()}, true
}

func (m *model) streamActive() bool {
	return m.stream != nil && (m.stream.state == streamLaunching || m.stream.state == streamStreaming)
}

// dispatch resolves a command id and runs it behind the invocation-time
// guard. A failed guard declines silently: the command simply should not have
// been reachable from the state the user is now in.
func (m *model) dispatch(id string) tea.Cmd {
	def, ok := commandByID(id)
	if !ok {
		return nil
	}
	ctx, ok := m.commandContext()
	if !ok {
		return nil
	}
	if !def.available(ctx) {
		return nil
	}
	if def.stream != nil {
		if m.streamActive() {
			return m.setStatus("A command is already running", statusTimeout)
		}
		m.streamID++
		s := newStreamSession(m.streamID, def.stream(m, ctx))
		m.stream = s
		return tea.Batch(s.start(), m.status.spinner.Tick)
	}
	return def.run(m, ctx)
}

// openPalette freezes the offer-time command set for the current context.
func (m *model) openPalette() tea.Cmd {
	ctx, ok := m.commandContext()
	if !ok {
		return m.setStatus("No item selected", statusTimeout)
	}
	m.palette.on = true
	m.palette.ctx = ctx
	m.palette.offered = availableCommands(ctx)
	m.palette.matches = m.palette.offered
	m.palette.cursor = 0
	m.palette.input.SetValue("")
	m.palette.input.Focus()
	return textinput.Blink
}

func (m *model) closePalette() {
	m.palette.on = false
	m.palette.input.Blur()
}

// ─── Detail pane ─────────────────────────────────────────────────────────────

func (m model) detailW() int {
	return m.width - (m.width * 45 / 100) - 2
}

// renderWindow renders the selected item's body plus a few neighbors (±2) if
// not cached, so they're warm by the time the user navigates to them.
func (m model) renderWindow() tea.Cmd {
	items := m.list.Items()
	idx := m.list.Index()
	if len(items) == 0 {
		return nil
	}
	var cmds []tea.Cmd
	for i := idx - 2; i <= idx+2; i++ {
		if i < 0 || i >= len(items) {
			continue
		}
		it, ok := items[i].(workItem)
		if !ok {
			continue
		}
		if _, cached := m.previewCache[it.number]; cached {
			continue
		}
		cmds = append(cmds, renderBody(m.provider, it, m.glamourStyle, m.detailW()))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m *model) showSelectedPreview() {
	if it, ok := m.list.SelectedItem().(workItem); ok {
		if content, ok := m.previewCache[it.number]; ok {
			m.viewport.SetContent(content)
			m.viewport.GotoTop()
		}
	}
}

// ─── Key handling ────────────────────────────────────────────────────────────

func (m model) handlePaletteKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit
	case msg.Type == tea.KeyEsc:
		m.closePalette()
		return m, nil
	case msg.Type == tea.KeyEnter:
		if m.palette.cursor < len(m.palette.matches) {
			id := m.palette.matches[m.palette.cursor].id
			m.closePalette()
			return m, m.dispatch(id)
		}
		m.closePalette()
		return m, nil
	case msg.Type == tea.KeyUp || (msg.Type == tea.KeyCtrlK):
		if m.palette.cursor > 0 {
			m.palette.cursor--
		}
		return m, nil
	case msg.Type == tea.KeyDown || (msg.Type == tea.KeyCtrlJ):
		if m.palette.cursor < len(m.palette.matches)-1 {
			m.palette.cursor++
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.palette.input, cmd = m.palette.input.Update(msg)
	m.palette.matches = matchCommands(m.palette.offered, m.palette.ctx, m.palette.input.Value())
	if m.palette.cursor >= len(m.palette.matches) {
		m.palette.cursor = 0
	}
	return m, cmd
}

func (m model) handleStreamKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}
	if m.streamActive() {
		// Output is still arriving; swallow everything.
		return m, nil
	}
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.stream = nil
	}
	return m, nil
}

// handleKeyMsg processes keyboard input, returning handled=true for keys that
// should short-circuit Update and handled=false for keys that should fall
// through to list.Update for default navigation/search.
func (m model) handleKeyMsg(msg tea.KeyMsg) (model, tea.Cmd, bool) {
	if m.stream != nil {
		mod, cmd := m.handleStreamKey(msg)
		return mod, cmd, true
	}
	if m.palette.on {
		mod, cmd := m.handlePaletteKey(msg)
		return mod, cmd, true
	}

	// Help modal — swallow everything except ?, esc, q
	if m.help.ShowAll {
		switch {
		case key.Matches(msg, m.keys.Help) || msg.String() == "esc":
			m.help.ShowAll = false
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit):
			return m, tea.Quit, true
		}
		return m, nil, true
	}

	filtering := m.list.SettingFilter()

	// Space / B — scroll detail pane regardless of pane focus
	if !filtering {
		switch {
		case key.Matches(msg, m.keys.ScrollDown):
			m.viewport.HalfViewDown()
			return m, nil, true
		case key.Matches(msg, m.keys.ScrollUp):
			m.viewport.HalfViewUp()
			return m, nil, true
		}
	}

	// Detail pane: scrolling
	if m.focused == detailPane && !filtering {
		switch msg.String() {
		case "j", "down":
			m.viewport.LineDown(1)
			return m, nil, true
		case "k", "up":
			m.viewport.LineUp(1)
			return m, nil, true
		}
		switch {
		case key.Matches(msg, m.keys.SwitchPane):
			m.focused = listPane
			return m, nil, true
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = true
			return m, nil, true
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit):
			return m, tea.Quit, true
		}
		return m, nil, true
	}

	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit, true
	case key.Matches(msg, m.keys.Quit):
		if !filtering {
			return m, tea.Quit, true
		}
	case key.Matches(msg, m.keys.Help):
		if !filtering {
			m.help.ShowAll = true
			return m, nil, true
		}
	case key.Matches(msg, m.keys.SwitchPane):
		if !filtering {
			m.focused = detailPane
			return m, nil, true
		}
	case key.Matches(msg, m.keys.Views):
		if !filtering {
			if mode, ok := viewByHotkey(msg.String()); ok {
				return m, m.switchView(mode), true
			}
		}
	case key.Matches(msg, m.keys.NextView):
		if !filtering {
			return m, m.switchView(nextView(m.mode)), true
		}
	case key.Matches(msg, m.keys.PrevView):
		if !filtering {
			return m, m.switchView(prevView(m.mode)), true
		}
	case key.Matches(msg, m.keys.Refresh):
		if !filtering {
			var cmds []tea.Cmd
			if cmd := m.startLoad(m.mode); cmd != nil {
				cmds = append(cmds, cmd, m.setStatus("Refreshing…", 0))
			}
			return m, tea.Batch(cmds...), true
		}
	case key.Matches(msg, m.keys.Palette):
		if !filtering {
			return m, m.openPalette(), true
		}
	}

	// Direct command shortcuts bypass the palette; dispatch re-validates.
	if !filtering {
		for _, def := range commandDefs {
			if def.key != "" && def.key == msg.String() {
				return m, m.dispatch(def.id), true
			}
		}
	}

	// Not handled — fall through to list.Update for navigation/search.
	return m, nil, false
}

// ─── Update ──────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		mod, cmd, handled := m.handleKeyMsg(msg)
		m = mod
		if handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		listW := m.width * 45 / 100
		innerListW := listW - 2
		innerDetailW := m.detailW()
		innerH := m.height - 3 // -2 for borders, -1 for status bar

		if innerListW < 10 {
			innerListW = 10
		}
		if innerDetailW < 10 {
			innerDetailW = 10
		}
		if innerH < 5 {
			innerH = 5
		}

		m.list.SetSize(innerListW, innerH-1)
		m.viewport.Width = innerDetailW
		m.viewport.Height = innerH - 1
		m.restoreTitle()

		if !m.prerendered || m.previewWidth != innerDetailW {
			m.prerendered = true
			m.previewWidth = innerDetailW
			m.previewCache = make(map[int]string)
			cmds = append(cmds, m.renderWindow())
		}

	case itemsFetchedMsg:
		delete(m.inflight, msg.fetched.labelKey())
		// The cache write is unconditional: the rows were fetched for the
		// snapshot's label set and belong there even if the user moved on.
		m.cache[msg.fetched.labelKey()] = msg.items
		// The display write is not: it happens only if the requesting view is
		// still the one on screen.
		if m.mode == msg.fetched {
			m.applyRows(msg.items)
			m.clearStatus()
			cmds = append(cmds, m.renderWindow())
		}
		return m, tea.Batch(cmds...)

	case fetchFailedMsg:
		delete(m.inflight, msg.fetched.labelKey())
		// Prior cache and display stay untouched. A stale error would be
		// misleading, so it surfaces only if the view hasn't changed.
		if m.mode == msg.fetched {
			return m, m.setError("Error: " + msg.err.Error())
		}
		return m, nil

	case refreshTickMsg:
		cmds = append(cmds, scheduleRefresh(m.cfg.refreshInterval()))
		if cmd := m.startLoad(m.mode); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case bodyContentMsg:
		m.previewCache[msg.number] = msg.content
		if it, ok := m.list.SelectedItem().(workItem); ok && it.number == msg.number {
			m.viewport.SetContent(msg.content)
			m.viewport.GotoTop()
		}
		return m, nil

	case itemClosedMsg:
		text := fmt.Sprintf("Closed #%d", msg.number)
		if len(msg.dependents) > 0 {
			var refs []string
			for _, n := range msg.dependents {
				refs = append(refs, fmt.Sprintf("#%d", n))
			}
			text += " — unblocked " + strings.Join(refs, ", ")
		}
		cmds = append(cmds, m.setStatus(text, statusTimeout))
		if cmd := m.startLoad(m.mode); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case queuedMsg:
		cmds = append(cmds, m.setStatus(fmt.Sprintf("Queued %s for merge", msg.prRef), statusTimeout))
		if cmd := m.startLoad(m.mode); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case actionDoneMsg:
		cmds = append(cmds, m.setStatus(msg.text, statusTimeout))
		if cmd := m.startLoad(m.mode); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case copiedMsg:
		return m, m.setStatus("Copied: "+msg.text, statusTimeout)

	case headChangedMsg:
		cmds = append(cmds, rescanCheckouts(m.cfg.WorktreeGlob))
		if m.watcher != nil {
			cmds = append(cmds, watchGitHead(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case checkoutsMsg:
		if ca, ok := m.provider.(checkoutAware); ok {
			ca.setCheckouts(msg.checkouts)
		}
		if cmd := m.startLoad(m.mode); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case streamLineMsg:
		if m.stream == nil || msg.id != m.stream.id {
			return m, nil
		}
		m.stream.state = streamStreaming
		m.stream.transcript = append(m.stream.transcript, msg.line)
		return m, awaitStream(m.stream.ch)

	case streamExitMsg:
		if m.stream == nil || msg.id != m.stream.id {
			return m, nil
		}
		summary, ok := m.stream.finish(msg)
		if ok {
			if cb := m.stream.spec.onSuccess; cb != nil {
				cmds = append(cmds, func() tea.Msg { return cb() })
			}
			m.stream = nil
			cmds = append(cmds, m.setStatus(summary, statusTimeout))
			return m, tea.Batch(cmds...)
		}
		// Failure and timeout keep the transcript on screen until dismissed.
		cmds = append(cmds, m.setError("Error: "+summary))
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if m.status.text != "" || m.streamActive() {
			var cmd tea.Cmd
			m.status.spinner, cmd = m.status.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case statusClearMsg:
		if msg.id == m.status.id {
			m.clearStatus()
		}
		return m, nil

	case errMsg:
		return m, m.setError("Error: " + msg.err.Error())
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)

	m.restoreTitle()

	// On cursor change, swap the detail pane to the newly selected item.
	// Cached content shows immediately; uncached triggers renderWindow.
	if m.list.Index() != m.prevIndex {
		m.prevIndex = m.list.Index()
		m.showSelectedPreview()
		cmds = append(cmds, m.renderWindow())
	}

	return m, tea.Batch(cmds...)
}
