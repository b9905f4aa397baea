package e2e

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/cache"
	"chatd/internal/client"
	"chatd/internal/engine/enginetest"
	"chatd/internal/executor"
	"chatd/internal/httpapi"
	"chatd/internal/orchestrator"
	"chatd/internal/registry"
)

// createTempModelsDir creates a temporary directory populated with empty .gguf files.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

type stack struct {
	srv     *httptest.Server
	catalog *registry.Catalog
	engine  *enginetest.Engine
}

// newStack serves an executor over the scanned models directory.
func newStack(t *testing.T, eng *enginetest.Engine, modelsDir string) *stack {
	t.Helper()
	scanned, err := registry.LoadDir(modelsDir)
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	cat, err := registry.NewCatalog(scanned...)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	ex := executor.New(executor.Config{
		Catalog: cat,
		Cache:   cache.New(eng, cat.ExecConfigs(), zerolog.Nop()),
		Engine:  eng,
		Logger:  zerolog.Nop(),
	})
	bridge := httpapi.NewBridge(ex, cat)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = ex.Run(ctx) }()
	go bridge.Run(ctx)
	srv := httptest.NewServer(httpapi.NewMux(bridge))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return &stack{srv: srv, catalog: cat, engine: eng}
}

// session is a remote orchestrator whose snapshots are observable.
type session struct {
	orch  *orchestrator.Orchestrator
	conn  *client.Conn
	snaps chan orchestrator.Snapshot
}

func (s *stack) connect(t *testing.T) *session {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	models, err := client.FetchModels(ctx, s.srv.URL)
	if err != nil {
		t.Fatalf("fetch models: %v", err)
	}
	cat, err := registry.NewCatalog(models...)
	if err != nil {
		t.Fatalf("remote catalog: %v", err)
	}
	conn, err := client.Dial(ctx, s.srv.URL, zerolog.Nop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	sess := &session{conn: conn, snaps: make(chan orchestrator.Snapshot, 1024)}
	sess.orch = orchestrator.New(orchestrator.Options{
		Sender:   conn,
		Catalog:  cat,
		Logger:   zerolog.Nop(),
		OnChange: func(sn orchestrator.Snapshot) { sess.snaps <- sn },
	})
	runCtx, stop := context.WithCancel(context.Background())
	go func() { _ = sess.orch.Run(runCtx, conn.Events()) }()
	t.Cleanup(func() {
		stop()
		_ = conn.Close()
	})
	if err := sess.orch.Init(runCtx); err != nil {
		t.Fatalf("init: %v", err)
	}
	return sess
}

// waitSnap returns the first snapshot satisfying ok.
func (s *session) waitSnap(t *testing.T, what string, ok func(orchestrator.Snapshot) bool) orchestrator.Snapshot {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case sn := <-s.snaps:
			if ok(sn) {
				return sn
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

var errNoGPU = errString("no execution backend available")

type errString string

func (e errString) Error() string { return string(e) }
