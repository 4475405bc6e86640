package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// handleNotifications streams the learner's quiz notifications as JSON
// websocket messages until the client disconnects.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotFound, "notifications are not enabled")
		return
	}
	learnerID := r.PathValue("learnerID")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "learner_id", learnerID, "error", err)
		return
	}
	defer conn.CloseNow()

	notifications, cancel := s.hub.Subscribe(learnerID)
	defer cancel()

	// Clients only listen; CloseRead handles their close frames.
	ctx := conn.CloseRead(r.Context())
	slog.Debug("notification stream opened", "learner_id", learnerID)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, n)
			wcancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Warn("notification write failed", "learner_id", learnerID, "error", err)
				}
				return
			}
		}
	}
}
