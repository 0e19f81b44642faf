package registration

import "time"

// Level buckets how close a registration deadline is.
type Level string

const (
	LevelClosed Level = "closed"
	LevelUrgent Level = "urgent"
	LevelSoon   Level = "soon"
	LevelOpen   Level = "open"
)

const (
	urgentWindow = 24 * time.Hour
	soonWindow   = 72 * time.Hour
)

// DeadlineInfo describes the time left before registration closes.
type DeadlineInfo struct {
	Closed    bool          `json:"closed"`
	Remaining time.Duration `json:"remaining_ns"`
	DaysLeft  int           `json:"days_left"`
	Level     Level         `json:"level"`
}

// Urgency computes DeadlineInfo at now. Registration is closed from the
// deadline instant onwards.
func Urgency(deadline, now time.Time) DeadlineInfo {
	left := deadline.Sub(now)
	if left <= 0 {
		return DeadlineInfo{Closed: true, Level: LevelClosed}
	}
	info := DeadlineInfo{
		Remaining: left,
		DaysLeft:  int(left / (24 * time.Hour)),
		Level:     LevelOpen,
	}
	switch {
	case left < urgentWindow:
		info.Level = LevelUrgent
	case left < soonWindow:
		info.Level = LevelSoon
	}
	return info
}
