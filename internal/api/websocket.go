package api

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/middleware"
)

const (
	wsReadLimit = 64 * 1024
	wsIdle      = 5 * time.Minute
)

// wsReply is one frame sent back on the what-if channel
type wsReply struct {
	Evaluation *domain.Evaluation `json:"evaluation,omitempty"`
	Error      *domain.APIError   `json:"error,omitempty"`
}

// handleWebSocket evaluates every input frame the client sends and replies with an evaluation frame.
// Nothing is saved.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	correlationID := c.GetString(middleware.CorrelationIDKey)
	log := s.logger.WithField("correlation_id", correlationID)
	log.Debug("What-if channel opened")

	conn.SetReadLimit(wsReadLimit)
	ctx := c.Request.Context()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdle))

		_, reader, err := conn.NextReader()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("What-if channel closed")
			} else {
				log.WithError(err).Debug("What-if channel dropped")
			}
			return
		}

		var req inputRequest
		if err := json.NewDecoder(reader).Decode(&req); err != nil {
			// a malformed frame does not end the channel
			reply := wsReply{Error: domain.NewAPIError(domain.ErrInvalidInput, "Invalid frame", err.Error(), correlationID)}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
			continue
		}

		input, err := req.clinicalInput()
		if err != nil {
			reply := wsReply{Error: domain.NewAPIError(domain.ErrValidation, "Input validation failed", err.Error(), correlationID)}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(wsReply{Evaluation: s.service.Evaluate(ctx, input)}); err != nil {
			log.WithError(err).Debug("What-if reply failed")
			return
		}
	}
}
