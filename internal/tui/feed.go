package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"chatd/internal/orchestrator"
)

// Feed carries orchestrator notifications into the program. Snapshots are
// full session copies, so only the latest one is kept.
type Feed struct {
	mu     sync.Mutex
	snap   *orchestrator.Snapshot
	reason string
	ch     chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewFeed() *Feed {
	return &Feed{ch: make(chan struct{}, 1), done: make(chan struct{})}
}

// OnChange is suitable for orchestrator.Options.OnChange. It never blocks.
func (f *Feed) OnChange(s orchestrator.Snapshot) {
	f.mu.Lock()
	f.snap = &s
	f.mu.Unlock()
	f.signal()
}

// OnSelectModel is suitable for orchestrator.Options.OnSelectModel.
func (f *Feed) OnSelectModel(reason string) {
	f.mu.Lock()
	f.reason = reason
	f.mu.Unlock()
	f.signal()
}

// Close releases a pending wait.
func (f *Feed) Close() { f.once.Do(func() { close(f.done) }) }

func (f *Feed) signal() {
	select {
	case f.ch <- struct{}{}:
	default:
	}
}

type feedMsg struct {
	snap   *orchestrator.Snapshot
	reason string
}

func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-f.ch:
		case <-f.done:
			return nil
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		msg := feedMsg{snap: f.snap, reason: f.reason}
		f.snap, f.reason = nil, ""
		return msg
	}
}
