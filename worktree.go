package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// ─── Worktree Discovery ──────────────────────────────────────────────────────
//
// Rows show whether a local checkout exists for their PR branch. Checkouts
// are found by expanding a glob over the user's worktree area and reading
// each match's git HEAD; the result is a branch → directory map the provider
// folds into buildItem.

// skipDirs lists directory names that are typically enormous and never
// contain a git worktree root. Skipping them keeps glob resolution fast.
var skipDirs = map[string]bool{
	"node_modules":  true,
	".git":          true,
	".hg":           true,
	".svn":          true,
	".venv":         true,
	"venv":          true,
	"__pycache__":   true,
	".cache":        true,
	"target":        true,
	"dist":          true,
	"build":         true,
	".next":         true,
	".gradle":       true,
	".cargo":        true,
	".mypy_cache":   true,
	".pytest_cache": true,
}

func modTime(path string) time.Time {
	if info, err := os.Stat(path); err == nil {
		return info.ModTime()
	}
	return time.Time{}
}

// discoverCheckouts expands the worktree glob (supporting **) and returns a
// branch → directory map for every match that is a git checkout.
func discoverCheckouts(glob string) map[string]string {
	checkouts := make(map[string]string)
	if glob == "" {
		return checkouts
	}
	glob = expandHome(glob)

	base := globBase(glob)
	if _, err := os.Stat(base); err != nil {
		return checkouts
	}

	filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != base && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		matched, _ := doublestar.PathMatch(glob, path)
		if matched {
			if branch := headBranch(path); branch != "" {
				if _, ok := checkouts[branch]; !ok {
					checkouts[branch] = path
				}
				return filepath.SkipDir // don't descend into a checkout
			}
		}
		return nil
	})
	return checkouts
}

// globBase returns the longest directory prefix of a glob pattern that
// contains no wildcard characters (* ? [ {).
func globBase(pattern string) string {
	for i, c := range pattern {
		if c == '*' || c == '?' || c == '[' || c == '{' {
			dir := pattern[:i]
			if j := strings.LastIndex(dir, string(filepath.Separator)); j >= 0 {
				return pattern[:j]
			}
			return "."
		}
	}
	return pattern
}

// headBranch reads the checked-out branch of a git directory. Handles both a
// real .git directory and the "gitdir: …" file a linked worktree carries.
// Returns "" for a detached HEAD or a non-checkout.
func headBranch(dir string) string {
	gitPath := filepath.Join(dir, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return ""
	}
	headPath := filepath.Join(gitPath, "HEAD")
	if !info.IsDir() {
		data, err := os.ReadFile(gitPath)
		if err != nil {
			return ""
		}
		line := strings.TrimSpace(string(data))
		gitdir, ok := strings.CutPrefix(line, "gitdir: ")
		if !ok {
			return ""
		}
		if !filepath.IsAbs(gitdir) {
			gitdir = filepath.Join(dir, gitdir)
		}
		headPath = filepath.Join(gitdir, "HEAD")
	}
	data, err := os.ReadFile(headPath)
	if err != nil {
		return ""
	}
	ref := strings.TrimSpace(string(data))
	if branch, ok := strings.CutPrefix(ref, "ref: refs/heads/"); ok {
		return branch
	}
	return ""
}

// gitHeadDir returns the directory to watch for HEAD changes in a checkout,
// or "" if dir is not a git checkout.
func gitHeadDir(dir string) string {
	gitPath := filepath.Join(dir, ".git")
	info, err := os.Stat(gitPath)
	if err != nil || !info.IsDir() {
		return ""
	}
	return gitPath
}

// watchGitHead blocks on the fsnotify watcher until the repo's HEAD changes
// (branch switch, commit, worktree add), then reports that checkout columns
// may be stale. Update re-arms it after each event.
func watchGitHead(watcher *fsnotify.Watcher) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(ev.Name) != "HEAD" {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					return headChangedMsg{}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

// rescanCheckouts rebuilds the branch → checkout map off the UI loop.
func rescanCheckouts(glob string) tea.Cmd {
	return func() tea.Msg {
		return checkoutsMsg{checkouts: discoverCheckouts(glob)}
	}
}
