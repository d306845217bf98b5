package websocket

import "github.com/edupulse/schoolops-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
	ActionMark Action = "mark"
)

// Request is every client message. StudentID and Status are only read
// for ActionMark.
type Request struct {
	Action    Action                 `json:"action"`
	StudentID int64                  `json:"student_id,omitempty"`
	Status    model.AttendanceStatus `json:"status,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError            Event = "error"
	EventPong             Event = "pong"
	EventSnapshot         Event = "snapshot"
	EventMarked           Event = "marked"
	EventAttendanceMarked Event = "attendance_marked"
)

// SnapshotResponse is the first frame on a new stream: the class's rows
// as they stood when the client subscribed.
type SnapshotResponse struct {
	Event      Event              `json:"event"`
	ClassID    int64              `json:"class_id"`
	Attendance []model.Attendance `json:"attendance"`
}

// MarkedResponse acknowledges a mark sent over this connection.
type MarkedResponse struct {
	Event                 Event             `json:"event"`
	Attendance            *model.Attendance `json:"attendance"`
	MakeupSessionsUpdated int               `json:"makeup_sessions_updated"`
}

// AttendanceEvent is broadcast to every subscriber of a class after any
// mark, whichever surface it came through.
type AttendanceEvent struct {
	Event                 Event             `json:"event"`
	Attendance            *model.Attendance `json:"attendance"`
	MakeupSessionsUpdated int               `json:"makeup_sessions_updated"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
