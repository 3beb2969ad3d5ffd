package main

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeProvider serves scripted rows and counts fetches per label key so tests
// can assert exactly when the network is (and is not) hit.
type fakeProvider struct {
	rows        map[string][]workItem // label key → rows
	calls       map[string]int
	err         error
	closed      []int
	submitted   []int
	backendKind backendKind
}

func newFakeProvider() *fakeProvider {
	now := time.Now()
	mk := func(n int, title string, labels ...string) workItem {
		var raw rawItem
		raw.Number = n
		raw.Title = title
		raw.URL = "https://example.test/items/" + title
		raw.State = "open"
		raw.Body = "body of " + title
		raw.UpdatedAt = now.Add(-time.Hour)
		for _, l := range labels {
			raw.Labels = append(raw.Labels, struct {
				Name string `json:"name"`
			}{Name: l})
		}
		return buildItem(raw, nil, nil, "", time.Time{}, now)
	}
	return &fakeProvider{
		calls: make(map[string]int),
		rows: map[string][]workItem{
			"erk-plan": {
				mk(1, "alpha", "erk-plan"),
				mk(2, "keeper", "erk-plan", learnLabel),
				mk(3, "gamma", "erk-plan"),
			},
			"erk-objective": {
				mk(10, "north-star", "erk-objective"),
			},
		},
	}
}

func (f *fakeProvider) fetchItems(filter itemFilter) ([]workItem, error) {
	key := strings.Join(filter.labels, ",")
	f.calls[key]++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[key], nil
}

func (f *fakeProvider) closeItem(number int, url string) ([]int, error) {
	f.closed = append(f.closed, number)
	return nil, nil
}

func (f *fakeProvider) submitToQueue(number int, url string) error {
	f.submitted = append(f.submitted, number)
	return nil
}

func (f *fakeProvider) fetchItemBody(number int, body string) (string, error) {
	return body, nil
}

func (f *fakeProvider) root() string      { return "" }
func (f *fakeProvider) kind() backendKind { return f.backendKind }

func newTestModel(f *fakeProvider) model {
	m := newModel(f, newDefaultConfig(), viewPlans, nil)
	m2, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 48})
	return m2.(model)
}

// resolve executes a fetch command and feeds its result message into Update.
// Only the fetch result is applied; follow-up commands (timers, renders) are
// deliberately not executed.
func resolve(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a fetch command, got nil")
	}
	msg := cmd()
	if msg == nil {
		t.Fatal("fetch command produced no message")
	}
	m2, _ := m.Update(msg)
	return m2.(model)
}

func visibleNumbers(m model) []int {
	var out []int
	for _, item := range m.list.Items() {
		if it, ok := item.(workItem); ok {
			out = append(out, it.number)
		}
	}
	return out
}

func TestFetchPopulatesCurrentView(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)

	cmd := (&m).startLoad(viewPlans)
	m = resolve(t, m, cmd)

	got := visibleNumbers(m)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Plans shows %v, want [1 3] (learn rows excluded)", got)
	}
	if len(m.cache["erk-plan"]) != 3 {
		t.Errorf("cache holds %d rows, want all 3 fetched", len(m.cache["erk-plan"]))
	}
}

// A fetch launched under one view must land its rows in that view's cache
// entry but never touch the display once the user has moved on.
func TestStaleFetchWritesCacheNotDisplay(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)

	// Launch a Plans fetch but don't resolve it yet.
	plansFetch := (&m).startLoad(viewPlans)

	// User switches to Objectives while the fetch is in flight. Ignore the
	// Objectives fetch; it stays unresolved.
	_ = (&m).switchView(viewObjectives)
	if m.mode != viewObjectives {
		t.Fatalf("mode = %v, want Objectives", m.mode)
	}

	// Now the stale Plans fetch completes.
	m = resolve(t, m, plansFetch)

	if len(m.cache["erk-plan"]) != 3 {
		t.Errorf("stale result must still land in its cache entry, got %d rows",
			len(m.cache["erk-plan"]))
	}
	if nums := visibleNumbers(m); len(nums) != 0 {
		t.Errorf("display shows %v; a stale fetch must never repaint the screen", nums)
	}
	if m.mode != viewObjectives {
		t.Errorf("mode changed to %v", m.mode)
	}
}

func TestSwitchBackHitsCacheWithoutFetch(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)

	m = resolve(t, m, (&m).startLoad(viewPlans))
	objFetch := (&m).startLoad(viewObjectives)
	_ = (&m).switchView(viewObjectives) // cache miss; its own fetch is guard-suppressed
	m = resolve(t, m, objFetch)
	if f.calls["erk-objective"] != 1 {
		t.Fatalf("objective fetches = %d, want 1", f.calls["erk-objective"])
	}

	before := f.calls["erk-plan"]
	_ = (&m).switchView(viewPlans)
	if f.calls["erk-plan"] != before {
		t.Errorf("switching back refetched: %d calls, want %d", f.calls["erk-plan"], before)
	}
	if got := visibleNumbers(m); len(got) != 2 {
		t.Errorf("cached Plans shows %v, want 2 rows", got)
	}
}

// Plans and Learn share a label set, so moving between them is a client-side
// re-slice: instant, zero fetches, marker-partitioned.
func TestPlansToLearnIsInstant(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)
	m = resolve(t, m, (&m).startLoad(viewPlans))

	_ = (&m).switchView(viewLearn)

	if f.calls["erk-plan"] != 1 {
		t.Errorf("Learn triggered a fetch: %d calls, want 1", f.calls["erk-plan"])
	}
	got := visibleNumbers(m)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("Learn shows %v, want [2]", got)
	}
}

func TestFailedFetchKeepsDisplayAndCache(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)
	m = resolve(t, m, (&m).startLoad(viewPlans))

	f.err = errors.New("rate limited")
	m = resolve(t, m, (&m).startLoad(viewPlans))

	if got := visibleNumbers(m); len(got) != 2 {
		t.Errorf("failed refresh clobbered display: %v", got)
	}
	if len(m.cache["erk-plan"]) != 3 {
		t.Error("failed refresh clobbered cache")
	}
	if !m.status.isError || !strings.Contains(m.status.text, "rate limited") {
		t.Errorf("status = %q (err=%v), want visible error", m.status.text, m.status.isError)
	}
}

// An error from a fetch the user has navigated away from is suppressed.
func TestStaleFetchErrorSuppressed(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)

	f.err = errors.New("boom")
	plansFetch := (&m).startLoad(viewPlans)
	_ = (&m).switchView(viewObjectives)
	m = resolve(t, m, plansFetch)

	if strings.Contains(m.status.text, "boom") {
		t.Errorf("stale fetch error surfaced: %q", m.status.text)
	}
	if m.inflight["erk-plan"] {
		t.Error("inflight flag not cleared on failure")
	}
}

func TestInflightGuardSuppressesDuplicates(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)

	first := (&m).startLoad(viewPlans)
	if first == nil {
		t.Fatal("first startLoad suppressed")
	}
	if dup := (&m).startLoad(viewPlans); dup != nil {
		t.Error("duplicate startLoad not suppressed while in flight")
	}
	// Learn shares the label set, so it is the same in-flight fetch.
	if dup := (&m).startLoad(viewLearn); dup != nil {
		t.Error("shared-key startLoad not suppressed while in flight")
	}
	// A different label set is independent.
	if other := (&m).startLoad(viewObjectives); other == nil {
		t.Error("independent label set wrongly suppressed")
	}

	m = resolve(t, m, first)
	if again := (&m).startLoad(viewPlans); again == nil {
		t.Error("startLoad still suppressed after resolution")
	}
}

func TestSwitchViewSameModeIsNoop(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)
	m = resolve(t, m, (&m).startLoad(viewPlans))

	if cmd := (&m).switchView(viewPlans); cmd != nil {
		t.Error("same-mode switch returned a command")
	}
	if f.calls["erk-plan"] != 1 {
		t.Errorf("same-mode switch fetched: %d calls", f.calls["erk-plan"])
	}
}

// The full walk: fetch Plans, hop to Learn (instant slice), on to Objectives
// (fetch), back to Plans (cache) — with exactly one fetch per label set.
func TestViewWalkFetchesEachLabelSetOnce(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)
	m = resolve(t, m, (&m).startLoad(viewPlans))

	_ = (&m).switchView(viewLearn)
	objFetch := (&m).startLoad(viewObjectives)
	_ = (&m).switchView(viewObjectives)
	m = resolve(t, m, objFetch)
	_ = (&m).switchView(viewPlans)

	if f.calls["erk-plan"] != 1 {
		t.Errorf("erk-plan fetched %d times, want 1", f.calls["erk-plan"])
	}
	if f.calls["erk-objective"] != 1 {
		t.Errorf("erk-objective fetched %d times, want 1", f.calls["erk-objective"])
	}
	if got := visibleNumbers(m); len(got) != 2 {
		t.Errorf("final Plans view shows %v", got)
	}
}

func TestRefreshTickReplacesCacheWholesale(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)
	m = resolve(t, m, (&m).startLoad(viewPlans))

	// Remote state changed: item 3 is gone.
	f.rows["erk-plan"] = f.rows["erk-plan"][:2]
	m = resolve(t, m, (&m).startLoad(viewPlans))

	if len(m.cache["erk-plan"]) != 2 {
		t.Errorf("cache holds %d rows after refresh, want wholesale replacement to 2",
			len(m.cache["erk-plan"]))
	}
	got := visibleNumbers(m)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("Plans shows %v after refresh, want [1]", got)
	}
}

func TestStatusClearIgnoresStaleTimer(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)

	_ = (&m).setStatus("first", statusTimeout)
	staleID := m.status.id
	_ = (&m).setStatus("second", statusTimeout)

	m2, _ := m.Update(statusClearMsg{id: staleID})
	m = m2.(model)
	if m.status.text != "second" {
		t.Errorf("stale clear wiped status, got %q", m.status.text)
	}

	m2, _ = m.Update(statusClearMsg{id: m.status.id})
	m = m2.(model)
	if m.status.text != "" {
		t.Errorf("current clear left status %q", m.status.text)
	}
}

// startLeaves executes every leaf command of a batch tree, each on its own
// goroutine so long-lived timer commands don't stall the test.
func startLeaves(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, sub := range batch {
				startLeaves(sub)
			}
		}
	}()
}

// A successful exit message must fire the session's success callback exactly
// once, clear the session, and ignore any later message with the same id.
func TestStreamExitSuccessFiresCallbackOnce(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)

	var calls int32
	m.streamID = 3
	m.stream = newStreamSession(3, streamSpec{
		title: "Sync export-1",
		onSuccess: func() tea.Msg {
			atomic.AddInt32(&calls, 1)
			return actionDoneMsg{text: "synced"}
		},
	})
	m.stream.state = streamStreaming

	m2, cmd := m.Update(streamExitMsg{id: 3})
	m = m2.(model)
	if m.stream != nil {
		t.Error("session not cleared after success")
	}
	startLeaves(cmd)
	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("callback fired %d times, want exactly 1", n)
	}

	// A duplicate exit for the finished session is dropped.
	m2, cmd = m.Update(streamExitMsg{id: 3})
	m = m2.(model)
	startLeaves(cmd)
	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("duplicate exit refired callback: %d calls", n)
	}
}

// Failure exits keep the transcript on screen and never touch the callback.
func TestStreamExitFailureSkipsCallback(t *testing.T) {
	f := newFakeProvider()
	m := newTestModel(f)

	var calls int32
	m.streamID = 5
	m.stream = newStreamSession(5, streamSpec{
		title: "Merge #9",
		onSuccess: func() tea.Msg {
			atomic.AddInt32(&calls, 1)
			return actionDoneMsg{text: "merged"}
		},
	})
	m.stream.state = streamStreaming
	m.stream.transcript = []string{"Step 1 ok", "", "Step 2 failed: disk full"}

	m2, cmd := m.Update(streamExitMsg{id: 5, err: errors.New("exit status 1")})
	m = m2.(model)
	startLeaves(cmd)
	time.Sleep(100 * time.Millisecond)

	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("failure fired the success callback %d times", n)
	}
	if m.stream == nil {
		t.Error("failed session dismissed; transcript must stay until a keypress")
	}
	if m.stream.state != streamFailed {
		t.Errorf("state = %v, want failed", m.stream.state)
	}
	if !strings.Contains(m.status.text, "Step 2 failed: disk full") {
		t.Errorf("status = %q, want the last non-empty transcript line", m.status.text)
	}
}

func TestCheckoutsMsgReachesProvider(t *testing.T) {
	cfg := newDefaultConfig()
	g := newGHProvider(cfg, nil)
	m := newModel(g, cfg, viewPlans, nil)
	m2, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 48})
	m = m2.(model)

	m2, _ = m.Update(checkoutsMsg{checkouts: map[string]string{"export-1": "/tmp/wt"}})
	m = m2.(model)

	if got := g.checkoutFor("export-1"); got != "/tmp/wt" {
		t.Errorf("provider checkout map = %q, want /tmp/wt", got)
	}
}
