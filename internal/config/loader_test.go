package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nmodels_dir: /tmp\ncache_dir: /c\nprefs: /p.db\nthreads: 4\ntemperature: 0.2\ncors_origins: [\"http://a\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelsDir != "/tmp" || cfg.CacheDir != "/c" || cfg.PrefsPath != "/p.db" || cfg.Threads != 4 || cfg.Temperature != 0.2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://a" {
		t.Fatalf("cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","models_dir":"/m","catalog":"/cat.yaml","max_new_tokens":42,"top_k":7}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelsDir != "/m" || cfg.CatalogPath != "/cat.yaml" || cfg.MaxNewTokens != 42 || cfg.TopK != 7 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodels_dir=\"/x\"\ngpu_layers=9\ncontext_size=2048\nlog_level=\"debug\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" || cfg.GPULayers != 9 || cfg.ContextSize != 2048 || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestMergeOverlaysNonZero(t *testing.T) {
	base := Defaults()
	got := base.Merge(Config{Addr: ":1", Threads: 8, TopP: 0.5})
	if got.Addr != ":1" || got.Threads != 8 || got.TopP != 0.5 {
		t.Fatalf("merge: %+v", got)
	}
	if got.CacheDir != base.CacheDir || got.MaxNewTokens != base.MaxNewTokens {
		t.Fatalf("zero fields must not override: %+v", got)
	}
	if same := base.Merge(Config{}); same.Addr != base.Addr || same.LogLevel != base.LogLevel {
		t.Fatalf("empty overlay changed config: %+v", same)
	}
}

func TestLoad_MalformedFiles(t *testing.T) {
	d := t.TempDir()
	cases := map[string]string{
		"bad.yaml": "max_new_tokens: [1, 2\n",
		"bad.yml":  "cors_origins: {\n",
		"bad.json": `{"threads": "four"}`,
		"bad.toml": "top_k = \n",
	}
	for name, body := range cases {
		p := writeTempFile(t, d, name, body)
		_, err := Load(p)
		if err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("%s: error should name the file: %v", name, err)
		}
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDefaultsCoverRuntimeSettings(t *testing.T) {
	d := Defaults()
	if d.Addr == "" || d.CacheDir == "" || d.PrefsPath == "" || d.LogFile == "" {
		t.Fatalf("paths and address must default: %+v", d)
	}
	if d.ContextSize <= 0 || d.MaxNewTokens <= 0 {
		t.Fatalf("token budgets must default: %+v", d)
	}
	if d.Temperature != 0 || d.TopP != 0 || d.TopK != 0 {
		t.Fatalf("sampling is left to the executor defaults: %+v", d)
	}
}

func TestMergeReplacesCORSOrigins(t *testing.T) {
	base := Config{CORSOrigins: []string{"http://a"}}
	over := Config{CORSOrigins: []string{"http://b", "http://c"}}
	got := base.Merge(over)
	if len(got.CORSOrigins) != 2 || got.CORSOrigins[0] != "http://b" {
		t.Fatalf("origins = %v", got.CORSOrigins)
	}
	over.CORSOrigins[0] = "mutated"
	if got.CORSOrigins[0] != "http://b" {
		t.Fatalf("merge must copy the origins slice")
	}
	if kept := base.Merge(Config{}); len(kept.CORSOrigins) != 1 {
		t.Fatalf("empty overlay dropped origins: %v", kept.CORSOrigins)
	}
}
