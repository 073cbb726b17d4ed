package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/skillsenselab/callscribe/errors"
	"github.com/skillsenselab/callscribe/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// controlMessage is an inbound text frame on the stream socket.
type controlMessage struct {
	Type string `json:"type"`
}

// sessionOpened is the first frame sent after the upgrade.
type sessionOpened struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// stream upgrades the connection and drives one streaming session. Binary
// frames carry PCM audio; a text frame {"type":"end_stream"} requests the
// final event and a clean close. A disconnect discards the session without
// flushing buffered audio.
func (h *Handlers) stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the failure response.
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	session := h.streams.Open(ctx)
	defer h.streams.Close(context.WithoutCancel(ctx), session.ID())

	if err := conn.WriteJSON(sessionOpened{Type: "session", SessionID: session.ID()}); err != nil {
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			h.log.Debug("stream client disconnected", logger.Fields(
				logger.FieldSessionID, session.ID(),
			))
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			events, err := session.Feed(ctx, data)
			if err != nil {
				h.writeError(conn, err)
				return
			}
			for _, ev := range events {
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}

		case websocket.TextMessage:
			var ctl controlMessage
			if err := json.Unmarshal(data, &ctl); err != nil || ctl.Type != "end_stream" {
				h.writeError(conn, errors.InvalidInput("control", "expected an end_stream control message"))
				continue
			}

			final, err := session.End(ctx)
			if err != nil {
				h.writeError(conn, err)
				return
			}
			_ = conn.WriteJSON(final)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// writeError sends an error frame using the HTTP error envelope.
func (h *Handlers) writeError(conn *websocket.Conn, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		_ = conn.WriteJSON(appErr.ToResponse())
		return
	}
	_ = conn.WriteJSON(errors.Internal("stream error", err).ToResponse())
}
