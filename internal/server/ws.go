package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsMaxMessageBytes = maxJSONBytes
	wsIdleTimeout     = 5 * time.Minute
	wsWriteTimeout    = 10 * time.Second
)

// handleWS answers every JSON message with a prediction or an ErrorResponse until the
// client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	gauge := s.metrics.WSConnections()
	gauge.Add(1)
	defer gauge.Add(-1)

	conn.SetReadLimit(wsMaxMessageBytes)
	log.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	for {
		if err := conn.SetReadDeadline(time.Now().Add(wsIdleTimeout)); err != nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		reply := s.wsReply(r, data)
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return
		}
		if err := conn.WriteJSON(reply); err != nil {
			log.Warn().Err(err).Msg("WebSocket write failed")
			return
		}
	}
}

func (s *Server) wsReply(r *http.Request, data []byte) interface{} {
	id := uuid.NewString()

	var req PredictRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_, body := errorResponse(badRequest(fmt.Errorf("invalid request: %w", err)), s.labels)
		body.RequestID = id
		return body
	}

	resp, labels, err := s.predict(r.Context(), &req, id)
	if err != nil {
		_, body := errorResponse(err, labels)
		body.RequestID = id
		return body
	}
	return resp
}
