package websocket

import (
	"testing"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/rs/zerolog"
)

func TestHubBroadcastsPerClass(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a := hub.Subscribe(1)
	b := hub.Subscribe(1)
	other := hub.Subscribe(2)
	defer a.Close()
	defer b.Close()
	defer other.Close()

	if classes, subs := hub.Stats(); classes != 2 || subs != 3 {
		t.Fatalf("stats = %d classes, %d subscribers", classes, subs)
	}

	hub.AttendanceMarked(&model.Attendance{StudentID: 7, ClassID: 1, Status: model.AttendancePresent}, 1)

	for name, sub := range map[string]*Subscription{"a": a, "b": b} {
		select {
		case ev := <-sub.C:
			if ev.Event != EventAttendanceMarked || ev.Attendance.StudentID != 7 || ev.MakeupSessionsUpdated != 1 {
				t.Fatalf("%s got %+v", name, ev)
			}
		default:
			t.Fatalf("%s received nothing", name)
		}
	}
	select {
	case ev := <-other.C:
		t.Fatalf("class 2 subscriber got %+v", ev)
	default:
	}
}

func TestHubCloseUnsubscribes(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sub := hub.Subscribe(3)
	if n := hub.Subscribers(3); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}

	sub.Close()
	sub.Close()
	if n := hub.Subscribers(3); n != 0 {
		t.Fatalf("subscribers after close = %d, want 0", n)
	}
	if _, open := <-sub.C; open {
		t.Fatal("channel still open after Close")
	}

	// Publishing to a class with no listeners is a no-op.
	hub.AttendanceMarked(&model.Attendance{ClassID: 3}, 0)
}

func TestHubDropsForLaggingSubscriber(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sub := hub.Subscribe(4)
	defer sub.Close()

	for i := 0; i < subscriptionBuffer+5; i++ {
		hub.AttendanceMarked(&model.Attendance{ClassID: 4, StudentID: int64(i)}, 0)
	}
	if n := len(sub.C); n != subscriptionBuffer {
		t.Fatalf("buffered %d events, want %d", n, subscriptionBuffer)
	}
	if ev := <-sub.C; ev.Attendance.StudentID != 0 {
		t.Fatalf("oldest event lost: first is student %d", ev.Attendance.StudentID)
	}
}
