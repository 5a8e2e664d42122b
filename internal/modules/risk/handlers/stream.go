package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/riskdash/internal/events"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamBufferSize   = 32
	streamHeartbeat    = 30 * time.Second
	streamWriteTimeout = 10 * time.Second
)

// streamEventTypes are forwarded to subscribers of GET /api/risk/stream.
var streamEventTypes = []events.EventType{
	events.RiskEvaluated,
	events.AlertsRaised,
}

// streamMessage is one websocket frame sent to the client.
type streamMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Event     interface{} `json:"event,omitempty"`
}

// HandleStream handles GET /api/risk/stream
// The connection receives the caller's risk events as JSON text frames until
// either side closes it. Events are dropped when the client falls behind.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		h.writeError(w, http.StatusServiceUnavailable, "event stream not available")
		return
	}
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// Clients only listen; CloseRead handles control frames and cancels ctx on close.
	ctx := conn.CloseRead(r.Context())

	eventChan := make(chan *events.Event, streamBufferSize)
	var subs []events.SubscriptionID
	for _, t := range streamEventTypes {
		subs = append(subs, h.bus.Subscribe(t, func(event *events.Event) {
			if event.UserID != userID {
				return
			}
			select {
			case eventChan <- event:
			default:
				h.log.Warn().
					Str("user_id", userID).
					Str("event_type", string(event.Type)).
					Msg("Stream client too slow, dropping event")
			}
		}))
	}
	defer func() {
		for _, id := range subs {
			h.bus.Unsubscribe(id)
		}
	}()

	h.log.Debug().Str("user_id", userID).Msg("Risk stream connected")

	if err := h.send(ctx, conn, streamMessage{Type: "connected", Timestamp: time.Now().UTC()}); err != nil {
		return
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Str("user_id", userID).Msg("Risk stream disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			msg := streamMessage{Type: string(event.Type), Timestamp: event.Timestamp, Event: event}
			if err := h.send(ctx, conn, msg); err != nil {
				h.log.Debug().Err(err).Msg("Failed to write stream event")
				return
			}

		case <-heartbeat.C:
			if err := h.send(ctx, conn, streamMessage{Type: "heartbeat", Timestamp: time.Now().UTC()}); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg streamMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}
