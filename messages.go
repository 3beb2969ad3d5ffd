package main

// ─── Messages ────────────────────────────────────────────────────────────────
//
// All messages are internal to the Update loop. Async tea.Cmd functions
// produce these; Update handles them. Fetch messages (fetch.go) carry the
// view-mode snapshot they were launched under; timer messages carry a
// generation id so stale timers are ignored. Stream messages live in
// stream.go next to the session machinery.

// bodyContentMsg delivers the glamour-rendered body for the detail pane.
type bodyContentMsg struct {
	number  int
	content string
}

// itemClosedMsg reports a successful close plus any items it unblocked.
type itemClosedMsg struct {
	number     int
	dependents []int
}

// queuedMsg reports a successful merge-queue submission.
type queuedMsg struct {
	number int
	prRef  string
}

// actionDoneMsg is a generic success notice from a streaming command's
// onSuccess callback.
type actionDoneMsg struct {
	text string
}

// headChangedMsg is sent by the fsnotify watcher when the repo's git HEAD
// changes; checkout columns may be stale.
type headChangedMsg struct{}

// checkoutsMsg replaces the branch → checkout map after the git HEAD watcher
// fires or at startup.
type checkoutsMsg struct {
	checkouts map[string]string
}

type copiedMsg struct {
	text string
}

type statusClearMsg struct {
	id int
}

type errMsg struct {
	err error
}
