package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"chatd/pkg/types"
)

// loopbackOrigins are always accepted for cross-origin upgrades.
var loopbackOrigins = []string{
	"localhost",
	"localhost:*",
	"127.0.0.1",
	"127.0.0.1:*",
	"[::1]",
	"[::1]:*",
}

func originPatterns() []string {
	out := append([]string(nil), loopbackOrigins...)
	if !corsEnabled {
		return out
	}
	for _, o := range corsAllowedOrigins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		} else {
			out = append(out, o)
		}
	}
	return out
}

// serveWS bridges one client: text frames in are commands, text frames
// out are events.
func serveWS(svc Service, w http.ResponseWriter, r *http.Request) {
	if shuttingDown() {
		err := ErrShuttingDown()
		IncrementRejected("shutting_down")
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	sess, err := svc.Attach()
	if err != nil {
		IncrementRejected("client_connected")
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	defer sess.Detach()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns()})
	if err != nil {
		zlog.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer c.CloseNow()
	c.SetReadLimit(maxBodyBytes)

	lvl := requestLogLevel(r)
	if z := logEvent(lvl, r); z != nil {
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("client attached")
	}

	ctx, release := sessionContext(r, sess)
	defer release()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return readCommands(gctx, c, sess, lvl) })
	g.Go(func() error { return writeEvents(gctx, c, sess, lvl) })
	err = g.Wait()

	switch {
	case shuttingDown():
		c.Close(websocket.StatusGoingAway, "server shutting down")
	case err == nil, errors.Is(err, context.Canceled):
		c.Close(websocket.StatusNormalClosure, "")
	default:
		zlog.Debug().Err(err).Msg("websocket session ended")
	}
	if z := logEvent(lvl, r); z != nil {
		z.Msg("client detached")
	}
}

func readCommands(ctx context.Context, c *websocket.Conn, sess Session, lvl LogLevel) error {
	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, c, &raw); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return context.Canceled
			}
			return err
		}
		cmd, err := types.UnmarshalCommand(raw)
		if err != nil {
			wsFramesTotal.WithLabelValues("bad").Inc()
			zlog.Warn().Err(err).Msg("discarding malformed command frame")
			continue
		}
		wsFramesTotal.WithLabelValues("in").Inc()
		if lvl >= LevelDebug {
			zlog.Debug().RawJSON("frame", raw).Msg("command")
		}
		sess.Send(cmd)
	}
}

func writeEvents(ctx context.Context, c *websocket.Conn, sess Session, lvl LogLevel) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-sess.Events():
			b, err := types.MarshalEvent(ev)
			if err != nil {
				return err
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = wsjson.Write(wctx, c, json.RawMessage(b))
			cancel()
			if err != nil {
				return err
			}
			wsFramesTotal.WithLabelValues("out").Inc()
			if lvl >= LevelDebug {
				zlog.Debug().RawJSON("frame", b).Msg("event")
			}
		}
	}
}
