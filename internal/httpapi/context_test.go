package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"chatd/pkg/types"
)

type countingSession struct {
	detached atomic.Int32
}

func (s *countingSession) Send(types.Command)         {}
func (s *countingSession) Events() <-chan types.Event { return nil }
func (s *countingSession) Detach()                    { s.detached.Add(1) }

// withShutdown installs a cancelable base context for one test.
func withShutdown(t *testing.T) context.CancelFunc {
	t.Helper()
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	t.Cleanup(func() {
		cancel()
		SetBaseContext(nil)
	})
	return cancel
}

func TestSessionContext_ShutdownDetaches(t *testing.T) {
	shutdown := withShutdown(t)
	sess := &countingSession{}
	ctx, release := sessionContext(httptest.NewRequest(http.MethodGet, "/ws", nil), sess)
	defer release()

	shutdown()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session context not canceled on shutdown")
	}
	if n := sess.detached.Load(); n != 1 {
		t.Fatalf("detached %d times, want 1", n)
	}
}

func TestSessionContext_RequestEndLeavesDetachToHandler(t *testing.T) {
	shutdown := withShutdown(t)
	sess := &countingSession{}
	rctx, rcancel := context.WithCancel(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/ws", nil).WithContext(rctx)
	ctx, release := sessionContext(r, sess)

	rcancel()
	<-ctx.Done()
	release()
	shutdown()
	time.Sleep(20 * time.Millisecond)
	if n := sess.detached.Load(); n != 0 {
		t.Fatalf("released session detached on shutdown (%d)", n)
	}
}

func TestSetBaseContext_NilMeansNeverShuttingDown(t *testing.T) {
	shutdown := withShutdown(t)
	shutdown()
	if !shuttingDown() {
		t.Fatalf("expected shutting down after cancel")
	}
	SetBaseContext(nil)
	if shuttingDown() {
		t.Fatalf("nil base context must reset to background")
	}
}

func TestWebSocket_RefusedWhileShuttingDown(t *testing.T) {
	b, _ := newTestBridge(t)
	srv := httptest.NewServer(NewMux(b))
	defer srv.Close()
	shutdown := withShutdown(t)
	shutdown()

	before := testutil.ToFloat64(wsRejectedTotal.WithLabelValues("shutting_down"))
	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	var body types.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Code != http.StatusServiceUnavailable {
		t.Fatalf("body = %+v, %v", body, err)
	}
	if got := testutil.ToFloat64(wsRejectedTotal.WithLabelValues("shutting_down")); got != before+1 {
		t.Fatalf("rejected counter = %v, want %v", got, before+1)
	}
	if b.Status().ClientConnected {
		t.Fatalf("refused client must not take the slot")
	}
}

func TestWebSocket_ShutdownInterruptsAttachedClient(t *testing.T) {
	b, ex := newTestBridge(t)
	srv := httptest.NewServer(NewMux(b))
	defer srv.Close()
	shutdown := withShutdown(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()
	if err := wsjson.Write(ctx, c, json.RawMessage(`{"type":"check"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	<-ex.sent

	shutdown()
	select {
	case cmd := <-ex.sent:
		if _, ok := cmd.(types.InterruptCommand); !ok {
			t.Fatalf("expected interrupt on shutdown, got %#v", cmd)
		}
	case <-ctx.Done():
		t.Fatalf("no interrupt after shutdown")
	}
	var raw json.RawMessage
	if err := wsjson.Read(ctx, c, &raw); err == nil {
		t.Fatalf("connection should end on shutdown")
	}
	if b.Status().ClientConnected {
		t.Fatalf("slot not released on shutdown")
	}
}
