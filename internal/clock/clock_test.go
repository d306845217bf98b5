package clock

import (
	"testing"
	"time"
)

func TestWallRoundTrip(t *testing.T) {
	perth, err := time.LoadLocation("Australia/Perth")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}

	aware := time.Date(2025, 1, 6, 9, 30, 0, 0, perth)
	wall := ToWall(aware, perth)
	if wall.Location() != time.UTC || wall.Hour() != 9 || wall.Minute() != 30 {
		t.Fatalf("unexpected wall value %v", wall)
	}

	back := FromWall(wall, perth)
	if !back.Equal(aware) {
		t.Fatalf("round trip mismatch: %v != %v", back, aware)
	}
}

func TestFixedClockReportsInZone(t *testing.T) {
	perth, err := time.LoadLocation("Australia/Perth")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}

	c := Fixed(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), perth)
	now := c.Now()
	if now.Location() != perth || now.Hour() != 8 {
		t.Fatalf("expected 08:00 Perth, got %v", now)
	}

	c.Set(time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC))
	if c.Now().Day() != 7 {
		t.Fatalf("Set did not move the clock: %v", c.Now())
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2025, 3, 4, 17, 45, 12, 5, time.UTC)
	got := StartOfDay(in)
	want := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
