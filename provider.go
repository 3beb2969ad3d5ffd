package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// ─── Data Provider ───────────────────────────────────────────────────────────

type backendKind int

const (
	backendGitHub backendKind = iota
	backendDemo
)

// itemFilter carries every query dimension explicitly. Callers must populate
// all fields when constructing one; a zero field silently disables that
// filter dimension on the remote side.
type itemFilter struct {
	labels      []string
	state       string // "open" or "closed"
	runState    string // keep only rows whose linked run has this status, "" = all
	limit       int
	creator     string // author login, "" = anyone
	includeBody bool   // list bodies are heavy; the detail pane fetches lazily
}

// dataProvider is the narrow seam between the dashboard and the issue
// tracker. The model never shells out or touches the network directly.
type dataProvider interface {
	fetchItems(filter itemFilter) ([]workItem, error)
	closeItem(number int, url string) ([]int, error)
	submitToQueue(number int, url string) error
	fetchItemBody(number int, body string) (string, error)
	root() string
	kind() backendKind
}

// checkoutAware is implemented by providers that join rows against local
// checkouts. The worktree rescan pushes fresh maps through it.
type checkoutAware interface {
	setCheckouts(map[string]string)
}

// Effect seams so tests can intercept clipboard writes and browser launches.
var (
	clipboardWriteF = clipboard.WriteAll
	openURLF        = openURL
)

// browserCommand picks the platform's URL opener.
func browserCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	default:
		return "xdg-open"
	}
}

func openURL(url string) error {
	c := exec.Command(browserCommand(), url)
	if err := c.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	go func() { _ = c.Wait() }()
	return nil
}

// ─── GitHub provider ─────────────────────────────────────────────────────────

// ghProvider reads and mutates issues through the gh CLI. Every call is an
// argv exec with --json output; gh owns authentication and the wire format.
type ghProvider struct {
	repo string // "owner/name"
	dir  string // local checkout of the tracked repo (working dir root)
	now  func() time.Time

	mu        sync.RWMutex // fetches run off the UI loop; rescans replace the map
	checkouts map[string]string
}

func newGHProvider(cfg config, checkouts map[string]string) *ghProvider {
	return &ghProvider{
		repo:      cfg.Repo,
		dir:       cfg.RepoDir,
		checkouts: checkouts,
		now:       time.Now,
	}
}

func (g *ghProvider) root() string      { return g.dir }
func (g *ghProvider) kind() backendKind { return backendGitHub }

func (g *ghProvider) setCheckouts(checkouts map[string]string) {
	g.mu.Lock()
	g.checkouts = checkouts
	g.mu.Unlock()
}

func (g *ghProvider) checkoutFor(branch string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.checkouts[branch]
}

// runGH executes gh with the given args and decodes its JSON stdout into out.
func (g *ghProvider) runGH(out any, args ...string) error {
	c := exec.Command("gh", args...)
	if g.dir != "" {
		c.Dir = g.dir
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		if line := lastNonEmpty(strings.Split(stderr.String(), "\n")); line != "" {
			return fmt.Errorf("gh %s: %s", args[0], line)
		}
		return fmt.Errorf("gh %s: %w", args[0], err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return fmt.Errorf("gh %s: decoding output: %w", args[0], err)
	}
	return nil
}

func (g *ghProvider) fetchItems(filter itemFilter) ([]workItem, error) {
	fields := "number,title,url,state,createdAt,updatedAt,author,assignees,labels"
	if filter.includeBody {
		fields += ",body"
	}
	args := []string{"issue", "list", "--repo", g.repo, "--json", fields}
	for _, l := range filter.labels {
		args = append(args, "--label", l)
	}
	if filter.state != "" {
		args = append(args, "--state", filter.state)
	}
	if filter.limit > 0 {
		args = append(args, "--limit", strconv.Itoa(filter.limit))
	}
	if filter.creator != "" {
		args = append(args, "--author", filter.creator)
	}
	var issues []rawItem
	if err := g.runGH(&issues, args...); err != nil {
		return nil, err
	}

	// PRs and runs are fetched once per cycle and joined client-side; per-issue
	// lookups would be an exec per row.
	var prs []rawPullRequest
	if err := g.runGH(&prs, "pr", "list", "--repo", g.repo, "--state", "all",
		"--limit", "100", "--json", "number,url,state,isDraft,headRefName,body"); err != nil {
		return nil, err
	}
	var runs []rawRun
	if err := g.runGH(&runs, "run", "list", "--repo", g.repo,
		"--limit", "100", "--json", "databaseId,headBranch,status,conclusion,url"); err != nil {
		return nil, err
	}

	prByIssue := linkPullRequests(prs)
	runByBranch := linkRuns(runs)
	now := g.now()
	items := make([]workItem, 0, len(issues))
	for _, raw := range issues {
		pr := prByIssue[raw.Number]
		var run *rawRun
		var checkout string
		var born time.Time
		if pr != nil {
			run = runByBranch[pr.HeadRefName]
			checkout = g.checkoutFor(pr.HeadRefName)
			if checkout != "" {
				born = checkoutCreatedTime(checkout)
			}
		}
		it := buildItem(raw, pr, run, checkout, born, now)
		// The issue query can't constrain run status; applied after the join.
		if filter.runState != "" && it.runStatus != filter.runState {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

func (g *ghProvider) closeItem(number int, url string) ([]int, error) {
	if err := g.runGH(nil, "issue", "close", strconv.Itoa(number), "--repo", g.repo); err != nil {
		return nil, err
	}
	// Items that declared a dependency on the closed one are now unblocked.
	var dependents []struct {
		Number int `json:"number"`
	}
	query := fmt.Sprintf("Depends on #%d in:body", number)
	if err := g.runGH(&dependents, "issue", "list", "--repo", g.repo,
		"--state", "open", "--search", query, "--json", "number"); err != nil {
		return nil, nil // close succeeded; dependent lookup is best-effort
	}
	ids := make([]int, 0, len(dependents))
	for _, d := range dependents {
		ids = append(ids, d.Number)
	}
	return ids, nil
}

func (g *ghProvider) submitToQueue(number int, url string) error {
	return g.runGH(nil, "pr", "merge", url, "--repo", g.repo, "--auto", "--squash")
}

func (g *ghProvider) fetchItemBody(number int, body string) (string, error) {
	if body != "" {
		return body, nil
	}
	var issue struct {
		Body string `json:"body"`
	}
	if err := g.runGH(&issue, "issue", "view", strconv.Itoa(number),
		"--repo", g.repo, "--json", "body"); err != nil {
		return "", err
	}
	return issue.Body, nil
}

// checkProvider verifies the backend is reachable before the UI starts.
// Failure here is an unrecoverable startup error.
func checkProvider(cfg config) error {
	if cfg.Repo == "" {
		return fmt.Errorf("no repository configured (run workdeck --setup)")
	}
	if _, err := exec.LookPath("gh"); err != nil {
		return fmt.Errorf("gh CLI not found in PATH: %w", err)
	}
	return nil
}

// ─── Demo provider ───────────────────────────────────────────────────────────

// demoProvider serves canned rows from memory. It goes through buildItem like
// the real provider so the two can never drift on display derivation.
type demoProvider struct {
	mu     sync.Mutex // commands mutate issues while refresh fetches read them
	issues []rawItem
	prs    []rawPullRequest
	runs   []rawRun
	now    func() time.Time
}

func newDemoProvider() *demoProvider {
	now := time.Now()
	day := 24 * time.Hour
	mk := func(n int, title, state string, labels []string, age time.Duration) rawItem {
		var raw rawItem
		raw.Number = n
		raw.Title = title
		raw.URL = fmt.Sprintf("https://example.invalid/items/%d", n)
		raw.State = state
		raw.Body = "# " + title + "\n\nDemo item body.\n"
		raw.CreatedAt = now.Add(-age)
		raw.UpdatedAt = now.Add(-age / 2)
		raw.Author.Login = "demo"
		for _, l := range labels {
			raw.Labels = append(raw.Labels, struct {
				Name string `json:"name"`
			}{Name: l})
		}
		return raw
	}
	return &demoProvider{
		now: time.Now,
		issues: []rawItem{
			mk(101, "Streaming export pipeline", "open", []string{"erk-plan"}, 2*day),
			mk(102, "Retry budget for flaky fetches", "open", []string{"erk-plan"}, 4*day),
			mk(103, "Why the cache thrashed under load", "open", []string{"erk-plan", learnLabel}, 1*day),
			mk(104, "Cut p99 fetch latency in half", "open", []string{"erk-objective"}, 9*day),
			mk(105, "Adopt merge queue everywhere", "open", []string{"erk-objective"}, 12*day),
		},
		prs: []rawPullRequest{
			{Number: 201, URL: "https://example.invalid/pulls/201", State: "OPEN",
				HeadRefName: "export-101", Body: "Closes #101"},
		},
		runs: []rawRun{
			{DatabaseID: 301, HeadBranch: "export-101", Status: "completed",
				Conclusion: "success", URL: "https://example.invalid/runs/301"},
		},
	}
}

func (d *demoProvider) root() string      { return "" }
func (d *demoProvider) kind() backendKind { return backendDemo }

func (d *demoProvider) fetchItems(filter itemFilter) ([]workItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prByIssue := linkPullRequests(d.prs)
	runByBranch := linkRuns(d.runs)
	now := d.now()
	var items []workItem
	for _, raw := range d.issues {
		if filter.state != "" && !strings.EqualFold(raw.State, filter.state) {
			continue
		}
		matched := true
		for _, want := range filter.labels {
			found := false
			for _, l := range raw.Labels {
				if strings.EqualFold(l.Name, want) {
					found = true
					break
				}
			}
			if !found {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		if filter.creator != "" && raw.Author.Login != filter.creator {
			continue
		}
		pr := prByIssue[raw.Number]
		var run *rawRun
		if pr != nil {
			run = runByBranch[pr.HeadRefName]
		}
		it := buildItem(raw, pr, run, "", time.Time{}, now)
		if filter.runState != "" && it.runStatus != filter.runState {
			continue
		}
		items = append(items, it)
		if filter.limit > 0 && len(items) >= filter.limit {
			break
		}
	}
	return items, nil
}

func (d *demoProvider) closeItem(number int, url string) ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.issues {
		if d.issues[i].Number == number {
			d.issues[i].State = "closed"
			return nil, nil
		}
	}
	return nil, fmt.Errorf("no such item #%d", number)
}

func (d *demoProvider) submitToQueue(number int, url string) error { return nil }

func (d *demoProvider) fetchItemBody(number int, body string) (string, error) {
	if body != "" {
		return body, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, raw := range d.issues {
		if raw.Number == number {
			return raw.Body, nil
		}
	}
	return "", fmt.Errorf("no such item #%d", number)
}
