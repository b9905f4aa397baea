// Package progress tracks in-flight model asset downloads from
// initiate/progress/done events.
package progress

import (
	"sync"

	"chatd/pkg/types"
)

// Tracker is an ordered collection of ProgressItems keyed by file.
type Tracker struct {
	mu    sync.Mutex
	items []types.ProgressItem
}

// Apply folds one event into the collection. It reports whether ev was a
// progress-family event.
func (t *Tracker) Apply(ev types.Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case types.InitiateEvent:
		item := types.ProgressItem{File: e.File, Total: e.Total}
		if i := t.index(e.File); i >= 0 {
			t.items[i] = item
		} else {
			t.items = append(t.items, item)
		}
	case types.ProgressEvent:
		if i := t.index(e.File); i >= 0 {
			it := &t.items[i]
			it.Progress = e.Progress
			if e.Loaded > 0 {
				it.Loaded = e.Loaded
			}
			if e.Total > 0 {
				it.Total = e.Total
			}
		}
	case types.DoneEvent:
		if i := t.index(e.File); i >= 0 {
			t.items = append(t.items[:i], t.items[i+1:]...)
		}
	default:
		return false
	}
	return true
}

func (t *Tracker) index(file string) int {
	for i := range t.items {
		if t.items[i].File == file {
			return i
		}
	}
	return -1
}

// Items returns a copy in insertion order.
func (t *Tracker) Items() []types.ProgressItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]types.ProgressItem(nil), t.items...)
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Clear drops every item.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.items = nil
	t.mu.Unlock()
}
