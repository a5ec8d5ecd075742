package engine

import "time"

// RemainingTime is the live countdown view for an event window
type RemainingTime struct {
	Days        int   `json:"days"`
	Hours       int   `json:"hours"`
	Minutes     int   `json:"minutes"`
	Seconds     int   `json:"seconds"`
	TotalMillis int64 `json:"total_millis"`
	Expired     bool  `json:"expired"`
}

// Remaining maps (startedAt, windowSeconds, now) to the time left in the
// event window. Pure: it holds no timers and must be invoked at a fixed
// cadence (about 1 Hz) by the consuming UI. It does not consult the
// event's active flag; Engine.TimeRemaining layers that on top.
func Remaining(startedAt time.Time, windowSeconds int64, now time.Time) RemainingTime {
	deadline := startedAt.Add(time.Duration(windowSeconds) * time.Second)
	left := deadline.Sub(now)
	if left <= 0 {
		return RemainingTime{Expired: true}
	}

	totalSeconds := int64(left / time.Second)
	return RemainingTime{
		Days:        int(totalSeconds / 86400),
		Hours:       int(totalSeconds % 86400 / 3600),
		Minutes:     int(totalSeconds % 3600 / 60),
		Seconds:     int(totalSeconds % 60),
		TotalMillis: left.Milliseconds(),
	}
}
