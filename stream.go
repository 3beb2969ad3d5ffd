package main

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

// ─── Streaming Sessions ──────────────────────────────────────────────────────
//
// Slow commands (merge, check watching, checkout sync) run as external
// processes whose output is relayed line by line to the UI. The blocking read
// loop runs in the tea.Cmd goroutine; the only path back to the model is the
// session channel, drained one message at a time by awaitStream. Sessions are
// identified by a generation counter so messages from an abandoned session
// are dropped.

type streamState int

const (
	streamIdle streamState = iota
	streamLaunching
	streamStreaming
	streamSucceeded
	streamFailed
	streamTimedOut
)

// streamSpec describes one streaming command invocation. args is an argv
// list, never a shell string. timeout 0 means no timeout. onSuccess, when
// non-nil, produces a follow-up message after a zero exit — typically a
// refresh of the view the command mutated.
type streamSpec struct {
	title     string
	args      []string
	dir       string
	timeout   time.Duration
	onSuccess func() tea.Msg
}

type streamSession struct {
	id         int
	spec       streamSpec
	ch         chan tea.Msg
	transcript []string
	state      streamState
}

// streamLineMsg is one cleaned output line from the child process.
type streamLineMsg struct {
	id   int
	line string
}

// streamExitMsg is the single terminal message of a session. Exactly one is
// produced per session, after all line messages.
type streamExitMsg struct {
	id       int
	err      error // nil on zero exit
	timedOut bool
}

func newStreamSession(id int, spec streamSpec) *streamSession {
	return &streamSession{
		id:    id,
		spec:  spec,
		ch:    make(chan tea.Msg, 64),
		state: streamLaunching,
	}
}

// start returns the pair of commands that drive a session: the runner, which
// owns the child process for its whole life, and the first bridge read.
func (s *streamSession) start() tea.Cmd {
	return tea.Batch(runStream(s.id, s.spec, s.ch), awaitStream(s.ch))
}

// runStream launches the process and pumps it to completion. All output goes
// through ch; the exit message is sent last and the channel is closed, so the
// bridge drains in order and never leaks a blocked reader.
func runStream(id int, spec streamSpec, ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		defer close(ch)
		c := exec.Command(spec.args[0], spec.args[1:]...)
		if spec.dir != "" {
			c.Dir = spec.dir
		}
		// Stdin stays nil: the child reads from the null device and can never
		// block waiting on terminal input it cannot receive.
		c.Stdin = nil
		stdout, err := c.StdoutPipe()
		if err != nil {
			ch <- streamExitMsg{id: id, err: err}
			return nil
		}
		c.Stderr = c.Stdout // merge: non-zero exit is the sole failure signal
		if err := c.Start(); err != nil {
			ch <- streamExitMsg{id: id, err: err}
			return nil
		}

		var timedOut atomic.Bool
		var timer *time.Timer
		if spec.timeout > 0 {
			timer = time.AfterFunc(spec.timeout, func() {
				timedOut.Store(true)
				_ = c.Process.Kill()
			})
		}

		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			ch <- streamLineMsg{id: id, line: ansi.Strip(sc.Text())}
		}
		readErr := sc.Err()
		if readErr != nil {
			// The child may still be writing. Drain the pipe so it can make
			// progress and exit; otherwise Wait blocks forever on a full pipe
			// and the session never reaches a terminal state.
			_, _ = io.Copy(io.Discard, stdout)
		}
		waitErr := c.Wait()
		if timer != nil {
			timer.Stop()
		}
		if waitErr == nil && readErr != nil {
			waitErr = fmt.Errorf("reading output: %w", readErr)
		}
		// The kill timer can fire between a clean Wait and Stop; only trust
		// its verdict when the wait actually failed.
		ch <- streamExitMsg{id: id, err: waitErr, timedOut: timedOut.Load() && waitErr != nil}
		return nil
	}
}

// awaitStream is the cross-thread bridge: one blocking read per invocation,
// re-armed by Update after each delivered message. Returns nil once the
// runner has closed the channel.
func awaitStream(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// finish applies the terminal transition and returns the user-facing summary.
// Called exactly once per session, from Update, on the exit message.
func (s *streamSession) finish(msg streamExitMsg) (summary string, ok bool) {
	switch {
	case msg.timedOut:
		s.state = streamTimedOut
		return fmt.Sprintf("%s timed out after %s", s.spec.title, s.spec.timeout), false
	case msg.err != nil:
		s.state = streamFailed
		if line := lastNonEmpty(s.transcript); line != "" {
			return line, false
		}
		return fmt.Sprintf("%s failed: %v", s.spec.title, msg.err), false
	default:
		s.state = streamSucceeded
		return s.spec.title + " done", true
	}
}

// lastNonEmpty returns the last transcript line with visible content; the
// best available failure summary from a merged output stream.
func lastNonEmpty(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
