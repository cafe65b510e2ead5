// internal/infra/telegram/announcer.go
package telegram

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"community_distribution_bot/internal/domain/cycle"
	"community_distribution_bot/internal/domain/notifier"

	"github.com/sirupsen/logrus"
)

// Announcer posts cycle announcements to a Telegram chat (a community group
// or channel). Like the webhook sink, delivery is fire-and-forget.
type Announcer struct {
	client   *TelebotAdapter
	chatID   int64
	location *time.Location
	logger   *logrus.Entry
}

func NewAnnouncer(client *TelebotAdapter, chatID int64, location *time.Location, logger *logrus.Entry) *Announcer {
	return &Announcer{
		client:   client,
		chatID:   chatID,
		location: location,
		logger:   logger,
	}
}

func (a *Announcer) CycleStarted(event notifier.CycleStartedEvent) {
	go func() {
		var sb strings.Builder
		switch event.Kind {
		case cycle.KindImmediate:
			sb.WriteString("A manual distribution has started!\n")
		case cycle.KindScheduled:
			sb.WriteString("A scheduled distribution has started!\n")
		default:
			sb.WriteString("A new distribution cycle has started!\n")
		}
		fmt.Fprintf(&sb, "Period: %s – %s\n",
			event.StartTime.In(a.location).Format(cycleTimeLayout),
			event.EndTime.In(a.location).Format(cycleTimeLayout))

		if len(event.Allotments) > 0 {
			names := make([]string, 0, len(event.Allotments))
			for name := range event.Allotments {
				names = append(names, name)
			}
			sort.Strings(names)
			sb.WriteString("Allotments:\n")
			for _, name := range names {
				fmt.Fprintf(&sb, "• %s: %d\n", name, event.Allotments[name])
			}
		}

		if err := a.client.SendMessage(a.chatID, sb.String(), nil); err != nil {
			a.logger.WithError(err).Warn("Failed to deliver cycle announcement to Telegram chat.")
		}
	}()
}
