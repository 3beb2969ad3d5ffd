package main

import (
	"runtime"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// runSession executes a spec's runner to completion and returns every message
// it produced, in order.
func runSession(t *testing.T, spec streamSpec) []tea.Msg {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests drive /bin/sh")
	}
	s := newStreamSession(1, spec)
	done := make(chan struct{})
	go func() {
		runStream(s.id, s.spec, s.ch)()
		close(done)
	}()
	var msgs []tea.Msg
	for msg := range s.ch {
		msgs = append(msgs, msg)
	}
	<-done
	return msgs
}

func shSpec(script string, timeout time.Duration) streamSpec {
	return streamSpec{
		title:   "Test command",
		args:    []string{"/bin/sh", "-c", script},
		timeout: timeout,
	}
}

func TestStreamDeliversLinesThenSingleExit(t *testing.T) {
	msgs := runSession(t, shSpec("echo one; echo two; echo three", 0))

	var lines []string
	exits := 0
	for i, msg := range msgs {
		switch msg := msg.(type) {
		case streamLineMsg:
			lines = append(lines, msg.line)
		case streamExitMsg:
			exits++
			if i != len(msgs)-1 {
				t.Error("exit message was not the final message")
			}
			if msg.err != nil {
				t.Errorf("exit err = %v, want nil", msg.err)
			}
		}
	}
	if exits != 1 {
		t.Fatalf("got %d exit messages, want exactly 1", exits)
	}
	want := []string{"one", "two", "three"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestStreamMergesStderr(t *testing.T) {
	msgs := runSession(t, shSpec("echo out; echo err 1>&2", 0))

	var lines []string
	for _, msg := range msgs {
		if l, ok := msg.(streamLineMsg); ok {
			lines = append(lines, l.line)
		}
	}
	found := map[string]bool{}
	for _, l := range lines {
		found[l] = true
	}
	if !found["out"] || !found["err"] {
		t.Errorf("merged stream missing output: %v", lines)
	}
}

func TestStreamFailureSummaryIsLastLine(t *testing.T) {
	s := newStreamSession(1, shSpec("echo 'Step 1 ok'; echo 'Step 2 failed: disk full' 1>&2; exit 1", 0))
	done := make(chan struct{})
	go func() {
		runStream(s.id, s.spec, s.ch)()
		close(done)
	}()
	var exit streamExitMsg
	for msg := range s.ch {
		switch msg := msg.(type) {
		case streamLineMsg:
			s.transcript = append(s.transcript, msg.line)
		case streamExitMsg:
			exit = msg
		}
	}
	<-done

	summary, ok := s.finish(exit)
	if ok {
		t.Fatal("non-zero exit reported as success")
	}
	if s.state != streamFailed {
		t.Errorf("state = %v, want failed", s.state)
	}
	if summary != "Step 2 failed: disk full" {
		t.Errorf("summary = %q, want last transcript line", summary)
	}
}

func TestStreamFailureWithoutOutputFallsBackToError(t *testing.T) {
	s := newStreamSession(1, shSpec("exit 3", 0))
	done := make(chan struct{})
	go func() {
		runStream(s.id, s.spec, s.ch)()
		close(done)
	}()
	var exit streamExitMsg
	for msg := range s.ch {
		if e, ok := msg.(streamExitMsg); ok {
			exit = e
		}
	}
	<-done

	summary, ok := s.finish(exit)
	if ok {
		t.Fatal("exit 3 reported as success")
	}
	if summary == "" {
		t.Error("empty summary for silent failure")
	}
}

func TestStreamTimeoutKillsProcess(t *testing.T) {
	start := time.Now()
	msgs := runSession(t, shSpec("sleep 10", 150*time.Millisecond))
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout did not kill the process (took %v)", elapsed)
	}

	var exit streamExitMsg
	for _, msg := range msgs {
		if e, ok := msg.(streamExitMsg); ok {
			exit = e
		}
	}
	if !exit.timedOut {
		t.Error("exit message not marked timed out")
	}

	s := newStreamSession(1, shSpec("", 150*time.Millisecond))
	summary, ok := s.finish(exit)
	if ok {
		t.Fatal("timeout reported as success")
	}
	if s.state != streamTimedOut {
		t.Errorf("state = %v, want timed out", s.state)
	}
	if summary == "" {
		t.Error("empty timeout summary")
	}
}

// A line over the scanner's 1 MB cap aborts the read loop while the child is
// still writing. The runner must drain the pipe so the child can exit, reach
// a terminal state, and report the read failure — even with no timeout set.
func TestStreamOversizedLineStillExits(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("tests drive /bin/sh")
	}
	spec := shSpec("head -c 3000000 /dev/zero | tr '\\0' 'x'; echo; echo TAIL", 0)
	s := newStreamSession(1, spec)

	msgs := make(chan []tea.Msg, 1)
	go func() {
		var got []tea.Msg
		done := make(chan struct{})
		go func() {
			runStream(s.id, s.spec, s.ch)()
			close(done)
		}()
		for msg := range s.ch {
			got = append(got, msg)
		}
		<-done
		msgs <- got
	}()

	var got []tea.Msg
	select {
	case got = <-msgs:
	case <-time.After(10 * time.Second):
		t.Fatal("session never reached a terminal state")
	}

	exits := 0
	var exit streamExitMsg
	for i, msg := range got {
		if e, ok := msg.(streamExitMsg); ok {
			exits++
			exit = e
			if i != len(got)-1 {
				t.Error("exit message was not the final message")
			}
		}
	}
	if exits != 1 {
		t.Fatalf("got %d exit messages, want exactly 1", exits)
	}
	if exit.err == nil {
		t.Error("oversized output reported as success")
	}
	if exit.timedOut {
		t.Error("read failure misreported as timeout")
	}
}

// A clean exit with an armed kill timer must never be reported as a timeout,
// even if the timer fires in the window before it is stopped.
func TestStreamCleanExitUnderTimeout(t *testing.T) {
	msgs := runSession(t, shSpec("echo ok", 30*time.Second))
	for _, msg := range msgs {
		if e, ok := msg.(streamExitMsg); ok {
			if e.err != nil {
				t.Errorf("exit err = %v, want nil", e.err)
			}
			if e.timedOut {
				t.Error("clean exit marked timed out")
			}
		}
	}
}

func TestStreamSuccessFinish(t *testing.T) {
	s := newStreamSession(1, streamSpec{title: "Sync export-1"})
	summary, ok := s.finish(streamExitMsg{id: 1})
	if !ok {
		t.Fatal("zero exit reported as failure")
	}
	if s.state != streamSucceeded {
		t.Errorf("state = %v, want succeeded", s.state)
	}
	if summary != "Sync export-1 done" {
		t.Errorf("summary = %q", summary)
	}
}

func TestAwaitStreamReturnsNilOnClosedChannel(t *testing.T) {
	ch := make(chan tea.Msg)
	close(ch)
	if msg := awaitStream(ch)(); msg != nil {
		t.Errorf("closed channel produced %v, want nil", msg)
	}
}

func TestAwaitStreamDeliversOneMessage(t *testing.T) {
	ch := make(chan tea.Msg, 2)
	ch <- streamLineMsg{id: 1, line: "hello"}
	ch <- streamLineMsg{id: 1, line: "world"}

	msg := awaitStream(ch)()
	line, ok := msg.(streamLineMsg)
	if !ok || line.line != "hello" {
		t.Fatalf("first read = %v", msg)
	}
	// One read per invocation: the second message is still queued.
	if len(ch) != 1 {
		t.Errorf("bridge drained %d extra messages", 1-len(ch))
	}
}

func TestLastNonEmpty(t *testing.T) {
	cases := []struct {
		lines []string
		want  string
	}{
		{nil, ""},
		{[]string{""}, ""},
		{[]string{"a", "b", ""}, "b"},
		{[]string{"a", "  ", "\t"}, "a"},
		{[]string{"only"}, "only"},
	}
	for _, c := range cases {
		if got := lastNonEmpty(c.lines); got != c.want {
			t.Errorf("lastNonEmpty(%q) = %q, want %q", c.lines, got, c.want)
		}
	}
}
