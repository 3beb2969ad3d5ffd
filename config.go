package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ─── Config ──────────────────────────────────────────────────────────────────

type config struct {
	Repo           string   `json:"repo"`                      // owner/name of the tracked repository
	RepoDir        string   `json:"repo_dir,omitempty"`        // local checkout; working dir for gh/git
	Creator        string   `json:"creator,omitempty"`         // restrict fetches to this author
	Limit          int      `json:"limit,omitempty"`           // max rows per fetch
	RefreshSeconds int      `json:"refresh_seconds,omitempty"` // periodic refresh interval
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"` // streaming command timeout, 0 = none
	WorktreeGlob   string   `json:"worktree_glob,omitempty"`   // e.g. ~/worktrees/*
	MergeCmd       []string `json:"merge_command,omitempty"`   // argv template; {url} expands to the PR URL
	StartView      string   `json:"start_view,omitempty"`      // view shown at launch
}

// newDefaultConfig returns a fresh default config. Must be a function (not a
// var) because json.Unmarshal can mutate slice elements in-place via the
// shared backing array from a shallow struct copy.
func newDefaultConfig() config {
	return config{
		Limit:          50,
		RefreshSeconds: 60,
		TimeoutSeconds: 600,
		MergeCmd:       []string{"gh", "pr", "merge", "{url}", "--auto", "--squash"},
	}
}

func (c config) refreshInterval() time.Duration {
	if c.RefreshSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.RefreshSeconds) * time.Second
}

func (c config) streamTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0 // no timeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func configPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(cfgDir, "workdeck", "config.json"), nil
}

// expandHome expands a leading "~/" to the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func loadConfig() config {
	path, err := configPath()
	if err != nil {
		return newDefaultConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return newDefaultConfig()
	}
	cfg := newDefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: corrupt config (%v), using defaults. Run `workdeck --setup` to fix.\n", err)
		return newDefaultConfig()
	}
	cfg.RepoDir = expandHome(cfg.RepoDir)
	cfg.WorktreeGlob = expandHome(cfg.WorktreeGlob)
	if len(cfg.MergeCmd) == 0 {
		cfg.MergeCmd = newDefaultConfig().MergeCmd
	}
	return cfg
}

func saveConfig(path string, cfg config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	// Atomic write: temp file then rename, so a crash mid-write can't leave a
	// truncated config that gets silently replaced with defaults.
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// runSetup prompts for the handful of settings workdeck needs and saves them.
func runSetup(path string, current config) config {
	promptStyle := lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	dimStyle := lipgloss.NewStyle().Foreground(colorDim)
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println(promptStyle.Render("  workdeck setup"))
	fmt.Println(dimStyle.Render("  Press enter to keep the current value."))
	fmt.Println()

	prompt := func(label, defVal string) string {
		fmt.Printf("%s %s: ", promptStyle.Render(label), dimStyle.Render("["+defVal+"]"))
		if scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				return line
			}
		}
		return defVal
	}

	cfg := current

	fmt.Println(dimStyle.Render("  Repository whose tracked items to show, as owner/name."))
	cfg.Repo = prompt("Repository          ", current.Repo)
	fmt.Println()

	fmt.Println(dimStyle.Render("  Local checkout of that repository (working dir for gh and git)."))
	cfg.RepoDir = expandHome(prompt("Repository path     ", current.RepoDir))
	fmt.Println()

	fmt.Println(dimStyle.Render("  Glob matching local worktree directories, e.g. ~/worktrees/*."))
	cfg.WorktreeGlob = expandHome(prompt("Worktree glob       ", current.WorktreeGlob))
	fmt.Println()

	fmt.Println(dimStyle.Render("  Command for the merge action. {url} expands to the PR URL."))
	cfg.MergeCmd = splitShellWords(prompt("Merge command       ", strings.Join(current.MergeCmd, " ")))
	fmt.Println()

	if err := saveConfig(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
	} else {
		fmt.Printf("%s %s\n\n", dimStyle.Render("Saved to"), path)
	}
	return cfg
}

// splitShellWords splits a string into words, respecting single and double
// quotes. Quotes are consumed, not included in output.
func splitShellWords(s string) []string {
	var words []string
	var cur strings.Builder
	inSingle := false
	inDouble := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case c == '\\' && inDouble && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case (c == ' ' || c == '\t') && !inSingle && !inDouble:
			if cur.Len() > 0 {
				words = append(words, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

// expandCommand replaces {url} in an argv template with the actual URL. If no
// argument contains the placeholder, the URL is appended as a trailing
// argument.
func expandCommand(args []string, url string) []string {
	hasPlaceholder := false
	for _, a := range args {
		if strings.Contains(a, "{url}") {
			hasPlaceholder = true
			break
		}
	}
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.ReplaceAll(a, "{url}", url)
	}
	if !hasPlaceholder {
		out = append(out, url)
	}
	return out
}
