// internal/infra/webhook/discord_notifier.go
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"community_distribution_bot/internal/domain/cycle"
	"community_distribution_bot/internal/domain/notifier"

	"github.com/sirupsen/logrus"
)

const (
	sendTimeout = 10 * time.Second
	embedColor  = 3066993 // green
	timeLayout  = "2006/01/02 15:04:05"
)

// DiscordNotifier posts cycle announcements as Discord webhook embeds.
// Delivery runs in its own goroutine and failures are only logged, so a
// cycle transition can never block or fail on announcement.
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
	logger     *logrus.Entry
}

func NewDiscordNotifier(webhookURL string, enabled bool, logger *logrus.Entry) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		enabled:    enabled && webhookURL != "",
		client:     &http.Client{Timeout: sendTimeout},
		logger:     logger,
	}
}

func (n *DiscordNotifier) CycleStarted(event notifier.CycleStartedEvent) {
	if !n.enabled {
		return
	}
	go func() {
		if err := n.send(event); err != nil {
			n.logger.WithError(err).Warn("Failed to deliver cycle announcement webhook.")
		}
	}()
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Timestamp   string       `json:"timestamp"`
	Footer      embedFooter  `json:"footer"`
}

type payload struct {
	Embeds []embed `json:"embeds"`
}

func (n *DiscordNotifier) send(event notifier.CycleStartedEvent) error {
	fields := []embedField{
		{
			Name: "Distribution period",
			Value: fmt.Sprintf("Start: %s\nEnd: %s",
				event.StartTime.Format(timeLayout), event.EndTime.Format(timeLayout)),
		},
	}

	if len(event.Allotments) > 0 {
		names := make([]string, 0, len(event.Allotments))
		for name := range event.Allotments {
			names = append(names, name)
		}
		sort.Strings(names)

		var value bytes.Buffer
		for _, name := range names {
			fmt.Fprintf(&value, "**%s**: %d\n", name, event.Allotments[name])
		}
		fields = append(fields, embedField{Name: "Per-group allotments", Value: value.String()})
	}

	body, err := json.Marshal(payload{Embeds: []embed{{
		Title:       "Distribution cycle started",
		Description: describeKind(event.Kind),
		Color:       embedColor,
		Fields:      fields,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      embedFooter{Text: "Community Distribution Bot"},
	}}})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("User-Agent", "CommunityDistributionBot")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook delivery rejected with status %d", resp.StatusCode)
	}
	n.logger.Debug("Cycle announcement webhook delivered.")
	return nil
}

func describeKind(kind cycle.Kind) string {
	switch kind {
	case cycle.KindImmediate:
		return "A manual distribution has started."
	case cycle.KindScheduled:
		return "A scheduled distribution has started."
	default:
		return "A regular distribution has started."
	}
}
