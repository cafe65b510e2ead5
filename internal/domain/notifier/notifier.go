// internal/domain/notifier/notifier.go
package notifier

import (
	"time"

	"community_distribution_bot/internal/domain/cycle"
)

// CycleStartedEvent describes a freshly created cycle for the announcement
// sink. Allotments is keyed by group display name.
type CycleStartedEvent struct {
	Kind       cycle.Kind
	StartTime  time.Time
	EndTime    time.Time
	Allotments map[string]int
}

// Notifier delivers cycle announcements. Delivery is fire-and-forget: it
// must never block or fail a cycle transition.
type Notifier interface {
	CycleStarted(event CycleStartedEvent)
}

type multi []Notifier

// Multi fans an announcement out to every given sink.
func Multi(notifiers ...Notifier) Notifier {
	return multi(notifiers)
}

func (m multi) CycleStarted(event CycleStartedEvent) {
	for _, n := range m {
		n.CycleStarted(event)
	}
}
