package sse

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// EventTypeConnected names the first event sent after a client connects.
const EventTypeConnected = "connected"

// keepAliveInterval must stay under typical proxy idle timeouts.
const keepAliveInterval = 30 * time.Second

// ServeSSE subscribes the connection to topic and streams matching events in
// Server-Sent Events format until the client disconnects or the hub stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// The connection is long-lived; the server's write timeout must not
	// apply to it.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient(uuid.NewString(), topic)
	hub.Register(client)
	defer hub.Unregister(client)

	_, _ = fmt.Fprintf(w, "event: %s\ndata: {\"topic\": %q}\n\n", EventTypeConnected, topic)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-client.Events():
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()

		case <-keepAlive.C:
			// SSE comment line, ignored by clients but keeps proxies open.
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}
