package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ─── Work Items ──────────────────────────────────────────────────────────────

const learnLabel = "erk-learn"

// workItem is one dashboard row: a remote issue plus whatever pull request,
// workflow run, and local checkout are linked to it. Raw fields come from the
// provider; display fields are derived from raw fields exactly once, in
// buildItem, and never recomputed during render. Rows are replaced wholesale
// on every fetch, never mutated in place.
type workItem struct {
	// Raw fields
	number       int
	title        string
	url          string
	state        string // "open" or "closed"
	labels       []string
	learnMarker  bool // carries the learn label; splits Plans from Learn
	author       string
	assignee     string
	body         string // may be empty; fetched lazily for the detail pane
	createdAt    time.Time
	updatedAt    time.Time
	prNumber     int // 0 = no linked pull request
	prURL        string
	prState      string // "open", "merged", "closed", or "" without a PR
	prDraft      bool
	branch       string // head branch of the linked PR, or ""
	runID        int64  // 0 = no workflow run
	runURL       string
	runStatus    string // "queued", "in_progress", "completed", or ""
	runConclusion string // "success", "failure", ... when completed
	checkout     string // local worktree path, or ""
	checkoutBorn time.Time

	// Display fields (pure functions of the raw fields above)
	stateGlyph  string
	prRef       string // "#123", or ""
	runGlyph    string
	updatedRel  string
	createdDate string
	checkoutRel string
	searchText  string
}

func (w workItem) Title() string       { return fmt.Sprintf("%s #%d %s", w.stateGlyph, w.number, w.title) }
func (w workItem) Description() string { return w.updatedRel }
func (w workItem) FilterValue() string { return w.searchText }

// ─── Builder ─────────────────────────────────────────────────────────────────

// rawItem is the provider-side shape of an issue before display fields exist.
// Both the GitHub provider and the in-memory provider construct rows through
// buildItem so display derivation lives in exactly one place.
type rawItem struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	State     string    `json:"state"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Author    struct {
		Login string `json:"login"`
	} `json:"author"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

type rawPullRequest struct {
	Number      int    `json:"number"`
	URL         string `json:"url"`
	State       string `json:"state"`
	IsDraft     bool   `json:"isDraft"`
	HeadRefName string `json:"headRefName"`
	Body        string `json:"body"`
}

type rawRun struct {
	DatabaseID int64  `json:"databaseId"`
	HeadBranch string `json:"headBranch"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	URL        string `json:"url"`
}

// buildItem assembles one immutable row. pr and run may be nil; checkout may
// be "". now is passed in so relative-time text is deterministic in tests.
func buildItem(raw rawItem, pr *rawPullRequest, run *rawRun, checkout string, born time.Time, now time.Time) workItem {
	it := workItem{
		number:    raw.Number,
		title:     raw.Title,
		url:       raw.URL,
		state:     strings.ToLower(raw.State),
		author:    raw.Author.Login,
		body:      raw.Body,
		createdAt: raw.CreatedAt,
		updatedAt: raw.UpdatedAt,
		checkout:  checkout,
	}
	if len(raw.Assignees) > 0 {
		it.assignee = raw.Assignees[0].Login
	}
	for _, l := range raw.Labels {
		it.labels = append(it.labels, strings.ToLower(l.Name))
	}
	it.learnMarker = hasLabel(it.labels, learnLabel)
	if pr != nil {
		it.prNumber = pr.Number
		it.prURL = pr.URL
		it.prState = strings.ToLower(pr.State)
		it.prDraft = pr.IsDraft
		it.branch = pr.HeadRefName
	}
	if run != nil {
		it.runID = run.DatabaseID
		it.runURL = run.URL
		it.runStatus = run.Status
		it.runConclusion = run.Conclusion
	}
	if checkout != "" {
		it.checkoutBorn = born
	}

	// Display derivation — once, here, never at render time.
	it.stateGlyph = stateGlyph(it.state, it.prState, it.prDraft)
	if it.prNumber != 0 {
		it.prRef = "#" + strconv.Itoa(it.prNumber)
	}
	it.runGlyph = runGlyph(it.runStatus, it.runConclusion)
	it.updatedRel = relTime(it.updatedAt, now)
	it.createdDate = it.createdAt.Format("2006-01-02")
	if !it.checkoutBorn.IsZero() {
		it.checkoutRel = relTime(it.checkoutBorn, now)
	}
	it.searchText = fmt.Sprintf("#%d %s %s %s %s",
		it.number, it.title, strings.Join(it.labels, " "), it.author, it.branch)
	return it
}

func stateGlyph(state, prState string, prDraft bool) string {
	switch {
	case prState == "merged":
		return "✓"
	case prDraft:
		return "◌"
	case prState == "open":
		return "●"
	case state == "closed":
		return "✗"
	default:
		return "○"
	}
}

func runGlyph(status, conclusion string) string {
	switch {
	case status == "":
		return " "
	case status != "completed":
		return "…"
	case conclusion == "success":
		return "✔"
	default:
		return "✘"
	}
}

// relTime formats a timestamp relative to now: "now", "5m", "3h", "4d", else
// the plain date.
func relTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

func hasLabel(labels []string, target string) bool {
	for _, l := range labels {
		if l == target {
			return true
		}
	}
	return false
}

// ─── Linking ─────────────────────────────────────────────────────────────────

var closesRefRegex = regexp.MustCompile(`(?i)\b(?:closes|fixes|resolves)\s+#(\d+)`)

// linkPullRequests maps issue number → PR by the closing reference in the PR
// body ("Closes #N"), falling back to a "-N" branch suffix.
func linkPullRequests(prs []rawPullRequest) map[int]*rawPullRequest {
	linked := make(map[int]*rawPullRequest)
	for i := range prs {
		pr := &prs[i]
		if m := closesRefRegex.FindStringSubmatch(pr.Body); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				if _, taken := linked[n]; !taken {
					linked[n] = pr
				}
				continue
			}
		}
		if idx := strings.LastIndex(pr.HeadRefName, "-"); idx >= 0 {
			if n, err := strconv.Atoi(pr.HeadRefName[idx+1:]); err == nil {
				if _, taken := linked[n]; !taken {
					linked[n] = pr
				}
			}
		}
	}
	return linked
}

// linkRuns maps head branch → most recent workflow run. gh returns runs
// newest first, so the first run seen per branch wins.
func linkRuns(runs []rawRun) map[string]*rawRun {
	linked := make(map[string]*rawRun)
	for i := range runs {
		r := &runs[i]
		if r.HeadBranch == "" {
			continue
		}
		if _, ok := linked[r.HeadBranch]; !ok {
			linked[r.HeadBranch] = r
		}
	}
	return linked
}
