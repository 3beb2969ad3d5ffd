package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ─── Command Registry ────────────────────────────────────────────────────────
//
// Commands are rows in a static table, not branches of a switch. Each pairs
// an availability predicate with exactly one execution shape: a sync handler
// (in-process, returns within a blink) or a stream builder (external process,
// relayed line by line). The predicate is consulted three times:
//
//   1. building the palette — whether the command is offered at all
//   2. dispatch — against a context built fresh at invocation time
//   3. optionally inside the handler, for optional fields it dereferences
//      after the dispatch check can no longer vouch for them
//
// Direct shortcuts skip the palette, which is why dispatch can never trust
// that layer 1 ran.

type cmdCategory int

const (
	catAction cmdCategory = iota // mutates remote state
	catOpen                      // instant external-viewer launch
	catCopy                      // instant clipboard write
)

func (c cmdCategory) String() string {
	switch c {
	case catAction:
		return "action"
	case catOpen:
		return "open"
	default:
		return "copy"
	}
}

// cmdContext is constructed fresh per dispatch attempt. Row and view state
// can change between when a command is offered and when it is invoked, so a
// cached context would defeat the guard.
type cmdContext struct {
	item    workItem
	mode    viewMode
	backend backendKind
}

type commandDef struct {
	id        string
	name      string
	nameFunc  func(cmdContext) string // optional; overrides name per context
	category  cmdCategory
	key       string // direct shortcut, "" = palette only
	available func(cmdContext) bool
	run       func(m *model, ctx cmdContext) tea.Cmd    // sync shape
	stream    func(m *model, ctx cmdContext) streamSpec // streaming shape
}

func (d commandDef) displayName(ctx cmdContext) string {
	if d.nameFunc != nil {
		return d.nameFunc(ctx)
	}
	return d.name
}

// ─── Predicates ──────────────────────────────────────────────────────────────

func always(cmdContext) bool            { return true }
func hasPR(c cmdContext) bool           { return c.item.prNumber != 0 }
func hasRun(c cmdContext) bool          { return c.item.runID != 0 }
func hasCheckout(c cmdContext) bool     { return c.item.checkout != "" }
func onGitHub(c cmdContext) bool        { return c.backend == backendGitHub }

func inView(modes ...viewMode) func(cmdContext) bool {
	return func(c cmdContext) bool {
		for _, m := range modes {
			if c.mode == m {
				return true
			}
		}
		return false
	}
}

func allOf(preds ...func(cmdContext) bool) func(cmdContext) bool {
	return func(c cmdContext) bool {
		for _, p := range preds {
			if !p(c) {
				return false
			}
		}
		return true
	}
}

// ─── Registry ────────────────────────────────────────────────────────────────

// commandDefs is process-wide static state, initialized once. Order is
// palette display order.
var commandDefs = []commandDef{
	{
		id: "close-item", category: catAction, key: "X",
		nameFunc: func(c cmdContext) string {
			return fmt.Sprintf("Close #%d", c.item.number)
		},
		available: always,
		run: func(m *model, ctx cmdContext) tea.Cmd {
			p, item := m.provider, ctx.item
			return func() tea.Msg {
				dependents, err := p.closeItem(item.number, item.url)
				if err != nil {
					return errMsg{err}
				}
				return itemClosedMsg{number: item.number, dependents: dependents}
			}
		},
	},
	{
		id: "submit-queue", name: "Submit to merge queue", category: catAction, key: "M",
		available: allOf(onGitHub, hasPR),
		run: func(m *model, ctx cmdContext) tea.Cmd {
			p, item := m.provider, ctx.item
			return func() tea.Msg {
				// The PR can vanish between dispatch and this goroutine running.
				if item.prURL == "" {
					return nil
				}
				if err := p.submitToQueue(item.number, item.prURL); err != nil {
					return errMsg{err}
				}
				return queuedMsg{number: item.number, prRef: item.prRef}
			}
		},
	},
	{
		id: "merge-pr", name: "Merge pull request", category: catAction,
		available: allOf(onGitHub, hasPR, inView(viewPlans, viewLearn)),
		stream: func(m *model, ctx cmdContext) streamSpec {
			return streamSpec{
				title:   "Merge " + ctx.item.prRef,
				args:    expandCommand(m.cfg.MergeCmd, ctx.item.prURL),
				dir:     m.provider.root(),
				timeout: m.cfg.streamTimeout(),
				onSuccess: func() tea.Msg {
					return actionDoneMsg{text: "Merged " + ctx.item.prRef}
				},
			}
		},
	},
	{
		id: "watch-checks", name: "Watch checks", category: catAction,
		available: allOf(onGitHub, hasRun),
		stream: func(m *model, ctx cmdContext) streamSpec {
			return streamSpec{
				title: "Checks for " + ctx.item.prRef,
				args: []string{"gh", "run", "watch",
					fmt.Sprintf("%d", ctx.item.runID),
					"--repo", m.cfg.Repo, "--exit-status"},
				dir:     m.provider.root(),
				timeout: m.cfg.streamTimeout(),
				onSuccess: func() tea.Msg {
					return actionDoneMsg{text: "Checks green for " + ctx.item.prRef}
				},
			}
		},
	},
	{
		id: "sync-checkout", name: "Sync checkout", category: catAction,
		available: hasCheckout,
		stream: func(m *model, ctx cmdContext) streamSpec {
			return streamSpec{
				title:   "Sync " + ctx.item.branch,
				args:    []string{"git", "-C", ctx.item.checkout, "pull", "--ff-only"},
				timeout: 2 * time.Minute,
			}
		},
	},
	{
		id: "open-item", name: "Open in browser", category: catOpen, key: "o",
		available: allOf(onGitHub, func(c cmdContext) bool { return c.item.url != "" }),
		run: func(m *model, ctx cmdContext) tea.Cmd {
			return openInBrowser(ctx.item.url)
		},
	},
	{
		id: "open-pr", name: "Open pull request", category: catOpen, key: "p",
		available: allOf(onGitHub, hasPR),
		run: func(m *model, ctx cmdContext) tea.Cmd {
			if ctx.item.prURL == "" {
				return nil
			}
			return openInBrowser(ctx.item.prURL)
		},
	},
	{
		id: "open-run", name: "Open workflow run", category: catOpen,
		available: allOf(onGitHub, hasRun),
		run: func(m *model, ctx cmdContext) tea.Cmd {
			if ctx.item.runURL == "" {
				return nil
			}
			return openInBrowser(ctx.item.runURL)
		},
	},
	{
		id: "copy-url", name: "Copy item URL", category: catCopy, key: "y",
		available: func(c cmdContext) bool { return c.item.url != "" },
		run: func(m *model, ctx cmdContext) tea.Cmd {
			return copyToClipboard(ctx.item.url)
		},
	},
	{
		id: "copy-branch", name: "Copy branch name", category: catCopy,
		available: func(c cmdContext) bool { return c.item.branch != "" },
		run: func(m *model, ctx cmdContext) tea.Cmd {
			return copyToClipboard(ctx.item.branch)
		},
	},
	{
		id: "copy-checkout", name: "Copy checkout path", category: catCopy,
		available: hasCheckout,
		run: func(m *model, ctx cmdContext) tea.Cmd {
			return copyToClipboard(ctx.item.checkout)
		},
	},
}

func commandByID(id string) (commandDef, bool) {
	for _, def := range commandDefs {
		if def.id == id {
			return def, true
		}
	}
	return commandDef{}, false
}

// availableCommands is the offer-time check: the palette lists only commands
// whose predicate passes for the current context.
func availableCommands(ctx cmdContext) []commandDef {
	var out []commandDef
	for _, def := range commandDefs {
		if def.available(ctx) {
			out = append(out, def)
		}
	}
	return out
}

// matchCommands filters offered commands by a case-insensitive substring of
// their display name or id.
func matchCommands(defs []commandDef, ctx cmdContext, query string) []commandDef {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return defs
	}
	var out []commandDef
	for _, def := range defs {
		if strings.Contains(strings.ToLower(def.displayName(ctx)), query) ||
			strings.Contains(def.id, query) {
			out = append(out, def)
		}
	}
	return out
}

// ─── Instant handlers ────────────────────────────────────────────────────────

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboardWriteF(text); err != nil {
			return errMsg{fmt.Errorf("clipboard: %w", err)}
		}
		return copiedMsg{text: text}
	}
}

func openInBrowser(url string) tea.Cmd {
	return func() tea.Msg {
		if err := openURLF(url); err != nil {
			return errMsg{err}
		}
		return nil
	}
}
