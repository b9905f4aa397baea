package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"nhooyr.io/websocket/wsjson"

	"chatd/pkg/types"
)

func TestMetricsMiddleware_LabelsByRoutePattern(t *testing.T) {
	b, _ := newTestBridge(t)
	mux := NewMux(b)
	models := httpRequestsTotal.WithLabelValues("/models", http.MethodGet, "200")
	missing := httpRequestsTotal.WithLabelValues("/nope", http.MethodGet, "404")
	beforeModels, beforeMissing := testutil.ToFloat64(models), testutil.ToFloat64(missing)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/models", nil))
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/models", nil))
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if got := testutil.ToFloat64(models); got != beforeModels+2 {
		t.Fatalf("/models counter = %v, want %v", got, beforeModels+2)
	}
	if got := testutil.ToFloat64(missing); got != beforeMissing+1 {
		t.Fatalf("unmatched path counter = %v, want %v", got, beforeMissing+1)
	}
}

func TestMetricsEndpoint_ExposesChatdFamilies(t *testing.T) {
	b, _ := newTestBridge(t)
	IncrementRejected("client_connected")
	wsFramesTotal.WithLabelValues("in").Add(0)
	w := httptest.NewRecorder()
	NewMux(b).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", w.Code)
	}
	for _, name := range []string{"chatd_http_requests_total", "chatd_ws_rejected_total", "chatd_ws_clients", "chatd_ws_frames_total"} {
		if !bytes.Contains(w.Body.Bytes(), []byte(name)) {
			t.Fatalf("metrics missing %s", name)
		}
	}
}

func TestWebSocket_FrameCountersAndUpgradeRoute(t *testing.T) {
	b, ex := newTestBridge(t)
	srv := httptest.NewServer(NewMux(b))
	defer srv.Close()

	in := testutil.ToFloat64(wsFramesTotal.WithLabelValues("in"))
	bad := testutil.ToFloat64(wsFramesTotal.WithLabelValues("bad"))
	out := testutil.ToFloat64(wsFramesTotal.WithLabelValues("out"))
	upgraded := httpRequestsTotal.WithLabelValues("/ws", http.MethodGet, "101")
	beforeUpgrade := testutil.ToFloat64(upgraded)

	c := dial(t, srv)
	if got := testutil.ToFloat64(wsClients); got != 1 {
		t.Fatalf("clients gauge = %v, want 1", got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = wsjson.Write(ctx, c, json.RawMessage(`{"type":"bogus"}`))
	_ = wsjson.Write(ctx, c, json.RawMessage(`{"type":"reset"}`))
	<-ex.sent
	ex.events <- types.ReadyEvent{}
	var raw json.RawMessage
	if err := wsjson.Read(ctx, c, &raw); err != nil {
		t.Fatalf("read: %v", err)
	}

	waitCounter(t, "bad frames", wsFramesTotal.WithLabelValues("bad"), bad+1)
	waitCounter(t, "in frames", wsFramesTotal.WithLabelValues("in"), in+1)
	waitCounter(t, "out frames", wsFramesTotal.WithLabelValues("out"), out+1)

	// The upgrade is recorded once the handler returns.
	c.CloseNow()
	waitCounter(t, "/ws upgrades", upgraded, beforeUpgrade+1)
	if got := testutil.ToFloat64(wsClients); got != 0 {
		t.Fatalf("clients gauge = %v after detach, want 0", got)
	}
}

// waitCounter polls c until it reaches at least want.
func waitCounter(t *testing.T, what string, c prometheus.Collector, want float64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(c) < want {
		if time.Now().After(deadline) {
			t.Fatalf("%s = %v, want %v", what, testutil.ToFloat64(c), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
