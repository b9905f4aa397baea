package httpapi

import (
	"context"
	"net/http"
)

// shutdownCtx is canceled when the server starts shutting down.
var shutdownCtx = context.Background()

// SetBaseContext sets the server lifetime. Canceling it detaches the
// attached client and refuses new ones.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		shutdownCtx = context.Background()
		return
	}
	shutdownCtx = ctx
}

func shuttingDown() bool { return shutdownCtx.Err() != nil }

// sessionContext bounds one attached client by its request and by the
// server. On shutdown the session is detached right away, so a running
// generation is interrupted before the connection is torn down. The
// returned release func must be called when the handler ends.
func sessionContext(r *http.Request, sess Session) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(shutdownCtx, func() {
		sess.Detach()
		cancel()
	})
	return ctx, func() {
		stop()
		cancel()
	}
}
