// internal/domain/cycle/schedule.go
package cycle

import (
	"fmt"
	"time"
)

// Schedule holds the recurrence policy for natural cycles: a weekly
// time-of-day anchor and a repeat interval (e.g. Saturday 15:00, biweekly).
type Schedule struct {
	AnchorWeekday time.Weekday
	AnchorHour    int
	AnchorMinute  int
	Interval      time.Duration
	Location      *time.Location
}

// ErrScheduledStartInPast is returned when a scheduled cycle start lies
// before the current time.
var ErrScheduledStartInPast = fmt.Errorf("scheduled start time is in the past")

// ErrShiftIntoPast is returned when advancing a cycle would move its start
// before the current time.
var ErrShiftIntoPast = fmt.Errorf("advancing would move the cycle start into the past")

// NextAnchor returns the first anchor occurrence strictly after now.
func (s Schedule) NextAnchor(now time.Time) time.Time {
	now = now.In(s.Location)
	anchor := time.Date(now.Year(), now.Month(), now.Day(), s.AnchorHour, s.AnchorMinute, 0, 0, s.Location)
	days := (int(s.AnchorWeekday) - int(now.Weekday()) + 7) % 7
	anchor = anchor.AddDate(0, 0, days)
	if !anchor.After(now) {
		anchor = anchor.AddDate(0, 0, 7)
	}
	return anchor
}

// NewNaturalCycle builds the next regular cycle: it starts at the next
// anchor occurrence and runs for one repeat interval.
func NewNaturalCycle(s Schedule, now time.Time) *Cycle {
	start := s.NextAnchor(now)
	return &Cycle{
		StartTime: start,
		EndTime:   start.Add(s.Interval),
		Active:    true,
	}
}

// NewFollowingCycle builds the successor of an expired cycle. Windows are
// back-to-back: the new start equals the previous end. If the process was
// down across several windows the start rolls forward by whole intervals
// until the window covers now.
func NewFollowingCycle(s Schedule, prev *Cycle, now time.Time) *Cycle {
	start := prev.EndTime
	end := start.Add(s.Interval)
	for !end.After(now) {
		start = end
		end = start.Add(s.Interval)
	}
	return &Cycle{
		StartTime: start,
		EndTime:   end,
		Active:    true,
	}
}

// manualEnd computes the end boundary of a manually created cycle: the next
// anchor occurrence after the start, pushed out by one repeat interval when
// that occurrence is less than one day away so the window is never
// degenerate.
func (s Schedule) manualEnd(start time.Time) time.Time {
	end := s.NextAnchor(start)
	if end.Before(start.Add(24 * time.Hour)) {
		end = end.Add(s.Interval)
	}
	return end
}

// NewImmediateCycle builds a manually started cycle beginning right now.
func NewImmediateCycle(s Schedule, now time.Time) *Cycle {
	return &Cycle{
		StartTime: now,
		EndTime:   s.manualEnd(now),
		Active:    true,
	}
}

// NewScheduledCycle builds a manually started cycle beginning at the given
// future time. Past starts are rejected.
func NewScheduledCycle(s Schedule, start, now time.Time) (*Cycle, error) {
	if start.Before(now) {
		return nil, ErrScheduledStartInPast
	}
	return &Cycle{
		StartTime: start,
		EndTime:   s.manualEnd(start),
		Active:    true,
	}, nil
}

// Shifted returns a copy of the cycle with start and end moved by delta.
// A negative delta (advance) that would land the start before now is
// rejected without mutation.
func (c *Cycle) Shifted(delta time.Duration, now time.Time) (*Cycle, error) {
	shifted := *c
	shifted.StartTime = c.StartTime.Add(delta)
	shifted.EndTime = c.EndTime.Add(delta)
	if delta < 0 && shifted.StartTime.Before(now) {
		return nil, ErrShiftIntoPast
	}
	return &shifted, nil
}
