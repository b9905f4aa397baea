// Package assets resolves model asset locations to local files,
// downloading remote assets into a cache directory.
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"chatd/internal/common/fsutil"
	"chatd/pkg/types"
)

// Fetcher downloads remote assets once and reuses the cached copy.
// Concurrent fetches of the same URL share one download.
type Fetcher struct {
	dir    string
	client *http.Client
	group  singleflight.Group
	log    zerolog.Logger
}

// NewFetcher returns a Fetcher caching into dir ('~' is expanded).
func NewFetcher(dir string, logger zerolog.Logger) (*Fetcher, error) {
	d, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	// Timeout=0: downloads are bounded by the caller's context.
	return &Fetcher{dir: d, client: &http.Client{Timeout: 0}, log: logger}, nil
}

// Dir returns the cache directory.
func (f *Fetcher) Dir() string { return f.dir }

// Fetch returns a local path for rawURL. Local paths are returned as-is;
// http(s) URLs are downloaded, reporting initiate/progress/done events to
// onProgress (which may be nil).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, onProgress func(types.Event)) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse asset url: %w", err)
	}
	switch u.Scheme {
	case "", "file":
		p := rawURL
		if u.Scheme == "file" {
			p = u.Path
		}
		p, err = fsutil.ExpandHome(p)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("asset: %w", err)
		}
		return p, nil
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported asset scheme %q", u.Scheme)
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "model.gguf"
	}
	dest := filepath.Join(f.dir, cacheKey(rawURL)+"-"+name)
	if fsutil.PathExists(dest) {
		return dest, nil
	}
	v, err, _ := f.group.Do(dest, func() (any, error) {
		return dest, f.download(ctx, rawURL, name, dest, onProgress)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:16]
}

func (f *Fetcher) download(ctx context.Context, rawURL, name, dest string, onProgress func(types.Event)) error {
	notify := func(e types.Event) {
		if onProgress != nil {
			onProgress(e)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", name, resp.Status)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir cache: %w", err)
	}
	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return err
	}
	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	f.log.Info().Str("file", name).Int64("total", total).Msg("asset download start")
	notify(types.InitiateEvent{File: name, Total: total})

	pw := &progressWriter{file: name, total: total, notify: notify, lastPct: -1}
	_, err = io.Copy(io.MultiWriter(out, pw), resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(part)
		return fmt.Errorf("download %s: %w", name, err)
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return err
	}
	notify(types.DoneEvent{File: name})
	f.log.Info().Str("file", name).Int64("bytes", pw.loaded).Msg("asset download done")
	return nil
}

// progressWriter reports progress at most once per whole percent. When
// the total size is unknown it reports every write.
type progressWriter struct {
	file    string
	total   int64
	loaded  int64
	lastPct int
	notify  func(types.Event)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.loaded += int64(len(b))
	pct := 0.0
	if p.total > 0 {
		pct = float64(p.loaded) / float64(p.total) * 100
		if int(pct) == p.lastPct {
			return len(b), nil
		}
		p.lastPct = int(pct)
	}
	p.notify(types.ProgressEvent{File: p.file, Progress: pct, Loaded: p.loaded, Total: p.total})
	return len(b), nil
}

// IsRemote reports whether rawURL needs downloading.
func IsRemote(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}
