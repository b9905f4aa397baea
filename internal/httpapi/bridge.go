package httpapi

import (
	"context"
	"sync"
	"time"

	"chatd/internal/registry"
	"chatd/pkg/types"
)

// Executor is the command sink and event source the bridge exposes.
type Executor interface {
	Send(types.Command)
	Events() <-chan types.Event
	Loaded() (types.ModelDescriptor, bool)
}

// Session is one attached client.
type Session interface {
	Send(types.Command)
	Events() <-chan types.Event
	// Detach frees the client slot and interrupts any running generation.
	Detach()
}

// Bridge implements Service over a single executor. At most one client is
// attached at a time; events produced while nobody is attached are dropped.
type Bridge struct {
	exec    Executor
	catalog *registry.Catalog
	started time.Time

	mu  sync.Mutex
	cur *bridgeSession
}

func NewBridge(exec Executor, catalog *registry.Catalog) *Bridge {
	return &Bridge{exec: exec, catalog: catalog, started: time.Now()}
}

// Run forwards executor events to the attached client until the executor
// closes its stream or ctx is done.
func (b *Bridge) Run(ctx context.Context) {
	events := b.exec.Events()
	for {
		var ev types.Event
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			ev = e
		case <-ctx.Done():
			return
		}
		b.mu.Lock()
		s := b.cur
		b.mu.Unlock()
		if s == nil {
			zlog.Debug().Str("status", ev.EventStatus()).Msg("event dropped: no client")
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bridge) ListModels() []types.ModelDescriptor { return b.catalog.Models() }

func (b *Bridge) Ready() bool {
	_, ok := b.exec.Loaded()
	return ok
}

func (b *Bridge) Status() types.StatusResponse {
	b.mu.Lock()
	connected := b.cur != nil
	b.mu.Unlock()
	resp := types.StatusResponse{
		ClientConnected: connected,
		UptimeSeconds:   int64(time.Since(b.started).Seconds()),
		ServerTimeUnix:  time.Now().Unix(),
	}
	if d, ok := b.exec.Loaded(); ok {
		resp.LoadedModel = &d
	}
	return resp
}

func (b *Bridge) Attach() (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur != nil {
		return nil, ErrClientConnected()
	}
	s := &bridgeSession{b: b, events: make(chan types.Event, 64), done: make(chan struct{})}
	b.cur = s
	wsClients.Set(1)
	return s, nil
}

type bridgeSession struct {
	b      *Bridge
	events chan types.Event
	done   chan struct{}
	once   sync.Once
}

func (s *bridgeSession) Send(c types.Command)        { s.b.exec.Send(c) }
func (s *bridgeSession) Events() <-chan types.Event { return s.events }

func (s *bridgeSession) Detach() {
	s.once.Do(func() {
		s.b.mu.Lock()
		if s.b.cur == s {
			s.b.cur = nil
			wsClients.Set(0)
		}
		s.b.mu.Unlock()
		close(s.done)
		s.b.exec.Send(types.InterruptCommand{})
	})
}
