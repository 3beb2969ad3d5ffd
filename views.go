package main

import (
	"fmt"
	"strings"
)

// ─── Views ───────────────────────────────────────────────────────────────────
//
// A view is a named slice of the remote dataset: a label set that backs the
// query, plus a client-side filter applied after fetch. Plans and Learn share
// the same label set because the remote query only supports positive label
// filtering; they are disambiguated by the learn marker on each item.

type viewMode int

const (
	viewPlans viewMode = iota
	viewLearn
	viewObjectives
	viewModeCount // keep last
)

type viewConfig struct {
	mode   viewMode
	name   string
	labels []string // ordered, deduplicated remote query labels
	hotkey string
}

// viewConfigs is ordered; [ and ] cycle through it with wraparound.
var viewConfigs = []viewConfig{
	{mode: viewPlans, name: "Plans", labels: []string{"erk-plan"}, hotkey: "1"},
	{mode: viewLearn, name: "Learn", labels: []string{"erk-plan"}, hotkey: "2"},
	{mode: viewObjectives, name: "Objectives", labels: []string{"erk-objective"}, hotkey: "3"},
}

// lookupView must be total over the mode enumeration. A mode without a
// config is a programming error, not a runtime condition.
func lookupView(mode viewMode) viewConfig {
	for _, vc := range viewConfigs {
		if vc.mode == mode {
			return vc
		}
	}
	panic(fmt.Sprintf("no view config for mode %d", mode))
}

// labelKey is the fetch-cache key for a view. Views sharing a label set
// share a cache entry.
func (v viewMode) labelKey() string {
	return strings.Join(lookupView(v).labels, ",")
}

func (v viewMode) String() string {
	return lookupView(v).name
}

func nextView(mode viewMode) viewMode {
	for i, vc := range viewConfigs {
		if vc.mode == mode {
			return viewConfigs[(i+1)%len(viewConfigs)].mode
		}
	}
	return viewConfigs[0].mode
}

func prevView(mode viewMode) viewMode {
	for i, vc := range viewConfigs {
		if vc.mode == mode {
			return viewConfigs[(i+len(viewConfigs)-1)%len(viewConfigs)].mode
		}
	}
	return viewConfigs[0].mode
}

func viewByHotkey(key string) (viewMode, bool) {
	for _, vc := range viewConfigs {
		if vc.hotkey == key {
			return vc.mode, true
		}
	}
	return 0, false
}

func viewByName(name string) (viewMode, bool) {
	for _, vc := range viewConfigs {
		if strings.EqualFold(vc.name, name) {
			return vc.mode, true
		}
	}
	return 0, false
}

// filterForView applies the client-side slice of a fetched row set. Pure and
// synchronous; never triggers a fetch. Plans and Learn partition the shared
// label set on the learn marker; Objectives passes rows through unchanged.
func filterForView(items []workItem, mode viewMode) []workItem {
	switch mode {
	case viewPlans:
		var out []workItem
		for _, it := range items {
			if !it.learnMarker {
				out = append(out, it)
			}
		}
		return out
	case viewLearn:
		var out []workItem
		for _, it := range items {
			if it.learnMarker {
				out = append(out, it)
			}
		}
		return out
	default:
		return items
	}
}
