// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"community_distribution_bot/internal/domain/membership"
	"community_distribution_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	cfg *config.AppConfig, // For AdminTelegramID
	directory membership.Directory,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == cfg.AdminTelegramID {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Hello, administrator %s! Use /help for the command list.", c.Sender().FirstName))
		}

		groups, err := directory.PlayerGroups(ctx, strconv.FormatInt(senderID, 10))
		if err != nil {
			logCtx.WithError(err).Error("Error resolving player groups for /start command")
			return c.Send("Could not check your group membership right now. Please try again later.")
		}
		if len(groups) == 0 {
			logCtx.Info("User belongs to no groups")
			return c.Send("Hello! You are not a member of any distribution group yet. Ask your group admin to add you.")
		}

		logCtx.WithField("groups", groups).Info("User identified as group member")
		return c.Send(fmt.Sprintf("Hello, %s! You can claim from: %s. Use /help for the command list.",
			c.Sender().FirstName, strings.Join(groups, ", ")))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		var helpText strings.Builder
		helpText.WriteString("Available commands:\n\n")
		helpText.WriteString("`/claim <group> <amount|all>`\n - Claim units from your group's pool.\n\n")
		helpText.WriteString("`/pool <group>`\n - Show how many units a pool has left.\n\n")
		helpText.WriteString("`/my_claims`\n - Show what you claimed in the current cycle.\n\n")
		helpText.WriteString("`/help`\n - Show this message.")

		if senderID == cfg.AdminTelegramID {
			logCtx.Info("User identified as Admin, appending admin help.")
			helpText.WriteString("\n\nAdministrator commands:\n\n")
			helpText.WriteString("`/start_cycle [YYYY-MM-DD HH:MM]`\n - Start a distribution now or at the given time.\n\n")
			helpText.WriteString("`/end_cycle`\n - End the current distribution cycle.\n\n")
			helpText.WriteString("`/pause_cycle` / `/resume_cycle`\n - Suspend or resume claiming.\n\n")
			helpText.WriteString("`/advance_cycle` / `/delay_cycle`\n - Shift the cycle window by one interval.\n\n")
			helpText.WriteString("`/cycle_status`\n - Show the active cycle and its state.\n\n")
			helpText.WriteString("`/pools`\n - List every pool in the active cycle.")
		}

		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}
