package engine

import (
	"testing"
	"time"
)

func TestRemaining(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	window := int64(12 * 60 * 60)

	tests := []struct {
		name      string
		startedAt time.Time
		expired   bool
		seconds   int
		hours     int
	}{
		{
			name:      "one second left",
			startedAt: now.Add(-(11*time.Hour + 59*time.Minute + 59*time.Second)),
			expired:   false,
			seconds:   1,
		},
		{
			name:      "just started",
			startedAt: now,
			expired:   false,
			hours:     12,
		},
		{
			name:      "exactly at the boundary",
			startedAt: now.Add(-12 * time.Hour),
			expired:   true,
		},
		{
			name:      "one second past",
			startedAt: now.Add(-(12*time.Hour + time.Second)),
			expired:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Remaining(tt.startedAt, window, now)
			if got.Expired != tt.expired {
				t.Fatalf("Remaining() expired = %v, want %v", got.Expired, tt.expired)
			}
			if tt.expired {
				if got.TotalMillis != 0 || got.Seconds != 0 {
					t.Errorf("expired result should be zeroed, got %+v", got)
				}
				return
			}
			if got.Seconds != tt.seconds {
				t.Errorf("Remaining() seconds = %d, want %d", got.Seconds, tt.seconds)
			}
			if got.Hours != tt.hours {
				t.Errorf("Remaining() hours = %d, want %d", got.Hours, tt.hours)
			}
		})
	}
}

func TestRemainingMultiDayWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	started := now.Add(-6 * time.Hour)

	got := Remaining(started, int64(48*60*60), now)
	if got.Expired {
		t.Fatal("expected not expired")
	}
	if got.Days != 1 || got.Hours != 18 || got.Minutes != 0 || got.Seconds != 0 {
		t.Errorf("got %+v, want 1d 18h", got)
	}
	if want := int64(42 * 60 * 60 * 1000); got.TotalMillis != want {
		t.Errorf("TotalMillis = %d, want %d", got.TotalMillis, want)
	}
}
