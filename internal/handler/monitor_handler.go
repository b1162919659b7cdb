package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examportal/backend/internal/config"
	"github.com/examportal/backend/internal/middleware"
	"github.com/examportal/backend/internal/model"
	ws "github.com/examportal/backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation. An
// empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live proctoring violations to admin dashboards
// over WebSocket, fed by the exam's Redis pub/sub channel.
type MonitorHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "monitor_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// StreamViolations godoc
// WS /ws/v1/admin/exams/:id/violations
// Upgrades to WebSocket and relays every violation published for the exam
// until the client disconnects.
func (h *MonitorHandler) StreamViolations(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	sub := h.rdb.Subscribe(ctx, config.CacheKey.ViolationChannel(examID.String()))
	defer sub.Close()

	h.log.Info().
		Str("exam_id", examID.String()).
		Str("admin_id", claims.AdminID.String()).
		Msg("Monitor connected")

	// Reader goroutine: answers pings and detects disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var env ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &env); err != nil {
				return
			}
			if env.Action == ws.ActionPing {
				_ = ws.WriteTyped(conn, ws.PongMessage{Event: ws.EventPong})
			}
		}
	}()

	ch := sub.Channel()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event model.ViolationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.log.Warn().Err(err).Msg("Dropping unparsable violation event")
				continue
			}
			if err := ws.WriteTyped(conn, ws.ViolationMessage{
				Event:     ws.EventViolation,
				Violation: event,
			}); err != nil {
				return
			}
		}
	}
}
