package main

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

const usage = `workdeck — live dashboard for tracked work items

Usage:
  workdeck              start the dashboard
  workdeck --setup      configure repository and worktree settings
  workdeck --demo       run against canned in-memory data
  workdeck --view NAME  start on the named view (plans, learn, objectives)
  workdeck --version    print version
  workdeck --help       show this help
`

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

func main() {
	demo := false
	startName := ""

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help", "-h":
			fmt.Print(usage)
			return
		case "--version":
			fmt.Println("workdeck", version())
			return
		case "--setup":
			path, err := configPath()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			runSetup(path, loadConfig())
			return
		case "--demo":
			demo = true
		case "--view":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --view requires a view name")
				os.Exit(1)
			}
			i++
			startName = args[i]
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown flag %q\n\n%s", args[i], usage)
			os.Exit(1)
		}
	}

	cfg := loadConfig()

	start := viewConfigs[0].mode
	name := startName
	if name == "" {
		name = cfg.StartView
	}
	if name != "" {
		mode, ok := viewByName(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown view %q\n", name)
			os.Exit(1)
		}
		start = mode
	}

	var provider dataProvider
	var watcher *fsnotify.Watcher
	if demo {
		provider = newDemoProvider()
	} else {
		if err := checkProvider(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		checkouts := discoverCheckouts(cfg.WorktreeGlob)
		provider = newGHProvider(cfg, checkouts)

		// Watch the repo's HEAD so checkout columns refresh on branch switches.
		// Failure here degrades the column, nothing more.
		if headDir := gitHeadDir(cfg.RepoDir); headDir != "" {
			w, err := fsnotify.NewWatcher()
			if err == nil {
				if err := w.Add(headDir); err == nil {
					watcher = w
				} else {
					w.Close()
				}
			}
		}
	}

	m := newModel(provider, cfg, start, watcher)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if watcher != nil {
		watcher.Close()
	}
}
