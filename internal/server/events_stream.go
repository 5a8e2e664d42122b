package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/riskdash/internal/events"
	"github.com/aristath/riskdash/internal/utils"
	"github.com/rs/zerolog"
)

// EventsStreamHandler streams bus events to the client as Server-Sent Events.
// Events carrying a user id are only sent to that user; system events go to everyone.
type EventsStreamHandler struct {
	eventBus  *events.Bus
	heartbeat time.Duration
	log       zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:  eventBus,
		heartbeat: 30 * time.Second,
		log:       log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream?types=a,b
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	eventTypes := events.AllEventTypes
	if filter := r.URL.Query().Get("types"); filter != "" {
		eventTypes = nil
		for _, t := range utils.ParseCSV(filter) {
			eventTypes = append(eventTypes, events.EventType(t))
		}
	}
	userID := utils.UserID(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan := make(chan *events.Event, 100)
	eventHandler := func(event *events.Event) {
		if event.UserID != "" && event.UserID != userID {
			return
		}
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	subs := make([]events.SubscriptionID, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subs = append(subs, h.eventBus.Subscribe(eventType, eventHandler))
	}
	defer func() {
		for _, id := range subs {
			h.eventBus.Unsubscribe(id)
		}
	}()

	h.log.Info().
		Str("types", strings.Join(typeNames(eventTypes), ",")).
		Str("user_id", userID).
		Msg("Client connected to event stream")

	h.write(w, flusher, map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	done := r.Context().Done()
	for {
		select {
		case <-done:
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			h.write(w, flusher, map[string]interface{}{
				"type":      string(event.Type),
				"module":    event.Module,
				"timestamp": event.Timestamp.Format(time.RFC3339),
				"data":      event.Data,
			})

		case <-heartbeat.C:
			h.write(w, flusher, map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			})
		}
	}
}

func (h *EventsStreamHandler) write(w http.ResponseWriter, flusher http.Flusher, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		data = []byte(`{"error":"failed to encode event"}`)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func typeNames(types []events.EventType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
