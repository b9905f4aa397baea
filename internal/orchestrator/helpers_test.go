package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"chatd/internal/prefs"
	"chatd/internal/registry"
	"chatd/pkg/types"
)

const (
	urlM1 = "/models/m1.gguf"
	urlM2 = "/models/m2.gguf"
)

type recSender struct {
	mu   sync.Mutex
	cmds []types.Command
}

func (r *recSender) Send(c types.Command) {
	r.mu.Lock()
	r.cmds = append(r.cmds, c)
	r.mu.Unlock()
}

func (r *recSender) all() []types.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Command(nil), r.cmds...)
}

func (r *recSender) last() types.Command {
	all := r.all()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func (r *recSender) count(typ string) int {
	n := 0
	for _, c := range r.all() {
		if c.CommandType() == typ {
			n++
		}
	}
	return n
}

func testCatalog(t *testing.T) *registry.Catalog {
	t.Helper()
	c, err := registry.NewCatalog(
		types.ModelDescriptor{ID: "m1", URL: urlM1, Dtype: "q4", ContextSize: 8192},
		types.ModelDescriptor{ID: "m2", URL: urlM2, Dtype: "q4", ContextSize: 4096},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

type harness struct {
	o        *Orchestrator
	sender   *recSender
	prefs    prefs.Store
	selected []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{sender: &recSender{}, prefs: prefs.NewMemoryStore()}
	h.o = New(Options{
		Sender:        h.sender,
		Catalog:       testCatalog(t),
		Prefs:         h.prefs,
		Logger:        zerolog.Nop(),
		OnSelectModel: func(reason string) { h.selected = append(h.selected, reason) },
		Clipboard:     func(string) error { return nil },
	})
	if err := h.o.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return h
}

// readyOn selects url and delivers the load's ready event.
func (h *harness) readyOn(t *testing.T, url string) {
	t.Helper()
	if err := h.o.SwitchModel(url); err != nil {
		t.Fatalf("switch: %v", err)
	}
	h.o.HandleEvent(types.LoadingEvent{Data: "Loading model..."})
	h.o.HandleEvent(types.ReadyEvent{})
}
