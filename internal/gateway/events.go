package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// handleEvents streams every published notice as a JSON text message until
// the client goes away.
func (g *Gateway) handleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Lift the server write timeout for the lifetime of the stream.
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Error("websocket accept failed", "error", err)
			return
		}
		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "unexpected close")
		}()

		notices, unsubscribe := g.deps.Hub.Subscribe()
		defer unsubscribe()

		// The stream is write-only; CloseRead handles control frames and
		// cancels ctx once the client disconnects.
		ctx := conn.CloseRead(r.Context())
		g.logger.Debug("event stream opened", "remote_addr", r.RemoteAddr)

		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-notices:
				if !ok {
					return
				}
				wctx, cancel := context.WithTimeout(ctx, writeTimeout)
				err := wsjson.Write(wctx, conn, n)
				cancel()
				if err != nil {
					g.logger.Debug("event stream closed", "error", err)
					return
				}
			}
		}
	}
}
