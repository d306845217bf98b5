package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/edupulse/schoolops-backend/internal/middleware"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/edupulse/schoolops-backend/internal/service"
	ws "github.com/edupulse/schoolops-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const markTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams a class's attendance to the staff taking it.
type WSHandler struct {
	attendanceService *service.AttendanceService
	hub               *ws.Hub
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attendanceService *service.AttendanceService, hub *ws.Hub, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attendanceService: attendanceService,
		hub:               hub,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// ClassAttendanceStream godoc
// WS /ws/v1/classes/:id/attendance
// Sends a snapshot of the class's rows, then every mark as it happens.
// Clients may also mark over the socket.
func (h *WSHandler) ClassAttendanceStream(c *gin.Context) {
	classID, ok := parseID(c, "id")
	if !ok {
		return
	}

	// Subscribe before the snapshot read so no mark falls between the two.
	sub := h.hub.Subscribe(classID)
	defer sub.Close()

	rows, err := h.attendanceService.ListForClass(c.Request.Context(), classID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	actor := middleware.GetActor(c)

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Int64("class_id", classID).
		Str("actor", actor.DisplayName()).
		Logger()
	wsLog.Info().Msg("Staff connected")

	if err := conn.WriteTyped(ws.SnapshotResponse{
		Event:      ws.EventSnapshot,
		ClassID:    classID,
		Attendance: rows,
	}); err != nil {
		wsLog.Debug().Err(err).Msg("Snapshot write failed")
		return
	}

	go func() {
		for ev := range sub.C {
			if err := conn.WriteTyped(ev); err != nil {
				return
			}
		}
	}()

	for {
		var msg ws.Request
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionMark:
			h.handleMark(conn, wsLog, classID, actor, &msg)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

// handleMark records an outcome sent over the socket. The broadcast that
// follows reaches this connection too.
func (h *WSHandler) handleMark(conn *ws.Conn, wsLog zerolog.Logger, classID int64, actor *model.Actor, msg *ws.Request) {
	if msg.StudentID <= 0 || !msg.Status.IsValid() {
		conn.WriteError("student_id and a valid status are required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), markTimeout)
	defer cancel()

	result, err := h.attendanceService.Mark(ctx, msg.StudentID, classID, msg.Status, actor)
	if err != nil {
		if re, ok := service.AsRuleError(err); ok {
			conn.WriteError(re.Message)
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			conn.WriteError("student has no attendance in this class")
			return
		}
		wsLog.Error().Err(err).Int64("student_id", msg.StudentID).Msg("Mark failed")
		conn.WriteError("mark failed")
		return
	}

	conn.WriteTyped(ws.MarkedResponse{
		Event:                 ws.EventMarked,
		Attendance:            result.Attendance,
		MakeupSessionsUpdated: result.MakeupSessionsUpdated,
	})
}
