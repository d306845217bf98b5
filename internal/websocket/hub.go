package websocket

import (
	"sync"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/rs/zerolog"
)

// subscriptionBuffer is how many events a slow client may lag behind
// before further events are dropped for it.
const subscriptionBuffer = 16

// Hub fans attendance events out to the clients watching each class.
type Hub struct {
	mu      sync.RWMutex
	classes map[int64]map[*Subscription]struct{}
	log     zerolog.Logger
}

// NewHub creates an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		classes: make(map[int64]map[*Subscription]struct{}),
		log:     log.With().Str("component", "ws_hub").Logger(),
	}
}

// Subscription receives the events of one class until Close.
type Subscription struct {
	ClassID int64
	C       chan AttendanceEvent

	hub  *Hub
	once sync.Once
}

// Subscribe registers a listener for classID.
func (h *Hub) Subscribe(classID int64) *Subscription {
	sub := &Subscription{
		ClassID: classID,
		C:       make(chan AttendanceEvent, subscriptionBuffer),
		hub:     h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.classes[classID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.classes[classID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Close unregisters the subscription and closes C. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.classes[s.ClassID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.classes, s.ClassID)
			}
		}
		close(s.C)
	})
}

// Subscribers counts the listeners of classID.
func (h *Hub) Subscribers(classID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.classes[classID])
}

// Stats counts watched classes and open subscriptions.
func (h *Hub) Stats() (classes, subscribers int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.classes {
		subscribers += len(set)
	}
	return len(h.classes), subscribers
}

// AttendanceMarked broadcasts a recorded outcome to the row's class.
// It never blocks: a subscriber with a full buffer misses the event.
func (h *Hub) AttendanceMarked(a *model.Attendance, makeupSessionsUpdated int) {
	ev := AttendanceEvent{
		Event:                 EventAttendanceMarked,
		Attendance:            a,
		MakeupSessionsUpdated: makeupSessionsUpdated,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.classes[a.ClassID] {
		select {
		case sub.C <- ev:
		default:
			h.log.Warn().
				Int64("class_id", a.ClassID).
				Int64("student_id", a.StudentID).
				Msg("Subscriber lagging, event dropped")
		}
	}
}
