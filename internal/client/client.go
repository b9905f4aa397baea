// Package client connects to a chatd server and exposes its executor as a
// command sink and an event stream.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"chatd/pkg/types"
)

// Conn is one WebSocket session. Send never blocks; commands are written
// in order by a background writer.
type Conn struct {
	ws     *websocket.Conn
	log    zerolog.Logger
	events chan types.Event

	mu      sync.Mutex
	pending []types.Command
	closed  bool
	notify  chan struct{}

	done   chan struct{}
	cancel context.CancelFunc
	errMu  sync.Mutex
	err    error
}

// Dial opens a session against baseURL (http(s):// or ws(s)://, with or
// without the /ws path).
func Dial(ctx context.Context, baseURL string, logger zerolog.Logger) (*Conn, error) {
	u, err := wsURL(baseURL)
	if err != nil {
		return nil, err
	}
	ws, resp, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, fmt.Errorf("dial %s: another client is connected", u)
		}
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	ws.SetReadLimit(4 << 20)
	runCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		ws:     ws,
		log:    logger.With().Str("component", "client").Logger(),
		events: make(chan types.Event, 64),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go c.readLoop(runCtx)
	go c.writeLoop(runCtx)
	return c, nil
}

func wsURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", base)
	}
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}
	return u.String(), nil
}

// Send queues cmd for delivery.
func (c *Conn) Send(cmd types.Command) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending = append(c.pending, cmd)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Events is closed when the connection ends.
func (c *Conn) Events() <-chan types.Event { return c.events }

// Done is closed when the connection ends; Err then reports why.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close ends the session.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	return c.ws.Close(websocket.StatusNormalClosure, "")
}

func (c *Conn) fail(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()
}

func (c *Conn) readLoop(ctx context.Context) {
	defer close(c.done)
	defer close(c.events)
	defer c.cancel()
	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, c.ws, &raw); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && ctx.Err() == nil {
				c.fail(err)
			}
			return
		}
		ev, err := types.UnmarshalEvent(raw)
		if err != nil {
			c.log.Warn().Err(err).Msg("discarding malformed event frame")
			continue
		}
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Conn) writeLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		batch := c.pending
		c.pending = nil
		c.mu.Unlock()
		for _, cmd := range batch {
			b, err := types.MarshalCommand(cmd)
			if err != nil {
				c.log.Error().Err(err).Str("type", cmd.CommandType()).Msg("encode command")
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = wsjson.Write(wctx, c.ws, json.RawMessage(b))
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					c.fail(err)
					c.ws.Close(websocket.StatusInternalError, "write failed")
				}
				return
			}
		}
		select {
		case <-c.notify:
		case <-ctx.Done():
			return
		}
	}
}

// FetchModels reads the server's catalog from GET /models.
func FetchModels(ctx context.Context, baseURL string) ([]types.ModelDescriptor, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/ws"), "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	var body types.ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	return body.Models, nil
}
