package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"chatd/internal/registry"
	"chatd/pkg/types"
)

type fakeExec struct {
	mu     sync.Mutex
	cmds   []types.Command
	events chan types.Event
	loaded *types.ModelDescriptor
	sent   chan types.Command
}

func newFakeExec() *fakeExec {
	return &fakeExec{events: make(chan types.Event, 16), sent: make(chan types.Command, 16)}
}

func (f *fakeExec) Send(c types.Command) {
	f.mu.Lock()
	f.cmds = append(f.cmds, c)
	f.mu.Unlock()
	f.sent <- c
}

func (f *fakeExec) Events() <-chan types.Event { return f.events }

func (f *fakeExec) Loaded() (types.ModelDescriptor, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded == nil {
		return types.ModelDescriptor{}, false
	}
	return *f.loaded, true
}

func newTestBridge(t *testing.T) (*Bridge, *fakeExec) {
	t.Helper()
	cat, err := registry.NewCatalog(
		types.ModelDescriptor{ID: "m1", URL: "/m1.gguf", Dtype: "q4"},
		types.ModelDescriptor{ID: "m2", URL: "/m2.gguf", Dtype: "q4"},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	ex := newFakeExec()
	b := NewBridge(ex, cat)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)
	return b, ex
}

func TestModelsHandler(t *testing.T) {
	b, _ := newTestBridge(t)
	r := NewMux(b)
	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 2 || body.Models[0].URL != "/m1.gguf" {
		t.Fatalf("models = %+v", body.Models)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestReadyzAndStatus(t *testing.T) {
	b, ex := newTestBridge(t)
	r := NewMux(b)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before load = %d", w.Code)
	}

	ex.mu.Lock()
	ex.loaded = &types.ModelDescriptor{ID: "m1", URL: "/m1.gguf"}
	ex.mu.Unlock()

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readyz after load = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	var st types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("json: %v", err)
	}
	if st.LoadedModel == nil || st.LoadedModel.ID != "m1" || st.ClientConnected {
		t.Fatalf("status = %+v", st)
	}
}

func TestHealthz(t *testing.T) {
	b, _ := newTestBridge(t)
	w := httptest.NewRecorder()
	NewMux(b).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", w.Code, w.Body.String())
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func TestWebSocket_RoundTrip(t *testing.T) {
	b, ex := newTestBridge(t)
	srv := httptest.NewServer(NewMux(b))
	defer srv.Close()
	c := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, c, json.RawMessage(`{"type":"load","model_id":"/m2.gguf"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case cmd := <-ex.sent:
		if l, ok := cmd.(types.LoadCommand); !ok || l.ModelID != "/m2.gguf" {
			t.Fatalf("command = %#v", cmd)
		}
	case <-ctx.Done():
		t.Fatalf("command not delivered")
	}

	ex.events <- types.UpdateEvent{Output: "hi", NumTokens: 1, ContextTokens: 5}
	var raw json.RawMessage
	if err := wsjson.Read(ctx, c, &raw); err != nil {
		t.Fatalf("read: %v", err)
	}
	ev, err := types.UnmarshalEvent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u, ok := ev.(types.UpdateEvent); !ok || u.Output != "hi" || u.ContextTokens != 5 {
		t.Fatalf("event = %#v", ev)
	}
	if !b.Status().ClientConnected {
		t.Fatalf("status should report the attached client")
	}
}

func TestWebSocket_MalformedFrameIgnored(t *testing.T) {
	b, ex := newTestBridge(t)
	srv := httptest.NewServer(NewMux(b))
	defer srv.Close()
	c := dial(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = wsjson.Write(ctx, c, json.RawMessage(`{"type":"explode"}`))
	_ = wsjson.Write(ctx, c, json.RawMessage(`{"type":"check"}`))
	select {
	case cmd := <-ex.sent:
		if _, ok := cmd.(types.CheckCommand); !ok {
			t.Fatalf("command = %#v", cmd)
		}
	case <-ctx.Done():
		t.Fatalf("connection should survive a malformed frame")
	}
}

func TestWebSocket_SecondClientConflict(t *testing.T) {
	b, ex := newTestBridge(t)
	srv := httptest.NewServer(NewMux(b))
	defer srv.Close()
	first := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err == nil {
		t.Fatalf("second client should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %+v", resp)
	}

	// Detaching the first client interrupts and frees the slot.
	first.Close(websocket.StatusNormalClosure, "")
	select {
	case cmd := <-ex.sent:
		if _, ok := cmd.(types.InterruptCommand); !ok {
			t.Fatalf("expected interrupt on detach, got %#v", cmd)
		}
	case <-ctx.Done():
		t.Fatalf("no interrupt after detach")
	}
	deadline := time.Now().Add(5 * time.Second)
	for b.Status().ClientConnected {
		if time.Now().After(deadline) {
			t.Fatalf("slot not released")
		}
		time.Sleep(10 * time.Millisecond)
	}
	dial(t, srv)
}

func TestBridge_AttachIsExclusive(t *testing.T) {
	b, _ := newTestBridge(t)
	s, err := b.Attach()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := b.Attach(); !IsClientConnected(err) || statusFor(err) != http.StatusConflict {
		t.Fatalf("err = %v", err)
	}
	s.Detach()
	s.Detach()
	if _, err := b.Attach(); err != nil {
		t.Fatalf("re-attach: %v", err)
	}
}
