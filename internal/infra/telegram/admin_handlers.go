package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"community_distribution_bot/internal/app"
	"community_distribution_bot/internal/domain/cycle"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const startAtLayout = "2006-01-02 15:04"
const cycleTimeLayout = "2006/01/02 15:04:05"

// RegisterAdminHandlers registers the operational command surface. Every
// command maps 1:1 to a scheduler transition and reports a human-readable
// reason on refusal.
func RegisterAdminHandlers(
	ctx context.Context,
	b *telebot.Bot,
	distService app.DistributionService,
	adminTelegramID int64,
	location *time.Location,
	baseLogger *logrus.Entry,
) {
	adminOnly := func(handler string, fn func(c telebot.Context, logCtx *logrus.Entry) error) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			logCtx := baseLogger.WithFields(logrus.Fields{
				"handler":   handler,
				"sender_id": c.Sender().ID,
			})
			logCtx.Info("Command received")
			if c.Sender().ID != adminTelegramID {
				logCtx.Warn("Unauthorized access attempt")
				return c.Send("Error: you are not authorized to use this command.")
			}
			return fn(c, logCtx)
		}
	}

	b.Handle("/start_cycle", adminOnly("/start_cycle", func(c telebot.Context, logCtx *logrus.Entry) error {
		args := c.Args()
		// Expected format: /start_cycle [YYYY-MM-DD HH:MM]
		var at *time.Time
		if len(args) > 0 {
			parsed, err := time.ParseInLocation(startAtLayout, strings.Join(args, " "), location)
			if err != nil {
				logCtx.WithField("args", args).Warn("Invalid start time format")
				return c.Send("Invalid start time. Use: /start_cycle [YYYY-MM-DD HH:MM]")
			}
			at = &parsed
		}

		newCycle, err := distService.StartCycle(ctx, at)
		if err != nil {
			logWithError := logCtx.WithError(err)
			switch err {
			case cycle.ErrScheduledStartInPast:
				logWithError.Warn("Scheduled start in the past")
				return c.Send("Error: the scheduled start time is in the past.")
			default:
				logWithError.Error("Failed to start cycle")
				return c.Send(fmt.Sprintf("Failed to start a cycle: %s", err.Error()))
			}
		}

		logCtx.WithField("cycle_id", newCycle.ID).Info("Cycle started manually")
		if at == nil {
			return c.Send(fmt.Sprintf("Distribution started.\nPeriod: %s – %s",
				newCycle.StartTime.In(location).Format(cycleTimeLayout),
				newCycle.EndTime.In(location).Format(cycleTimeLayout)))
		}
		return c.Send(fmt.Sprintf("Distribution scheduled.\nStart: %s\nEnd: %s",
			newCycle.StartTime.In(location).Format(cycleTimeLayout),
			newCycle.EndTime.In(location).Format(cycleTimeLayout)))
	}))

	b.Handle("/end_cycle", adminOnly("/end_cycle", func(c telebot.Context, logCtx *logrus.Entry) error {
		if err := distService.EndCycle(ctx); err != nil {
			logWithError := logCtx.WithError(err)
			switch err {
			case app.ErrNoActiveCycle:
				logWithError.Warn("No active cycle to end")
				return c.Send("Error: there is no active distribution cycle.")
			default:
				logWithError.Error("Failed to end cycle")
				return c.Send(fmt.Sprintf("Failed to end the cycle: %s", err.Error()))
			}
		}
		logCtx.Info("Cycle ended manually")
		return c.Send("Distribution cycle ended. Unclaimed units were discarded.")
	}))

	b.Handle("/pause_cycle", adminOnly("/pause_cycle", func(c telebot.Context, logCtx *logrus.Entry) error {
		paused, err := distService.PauseCycle(ctx)
		if err != nil {
			logWithError := logCtx.WithError(err)
			switch err {
			case app.ErrNoActiveCycle:
				logWithError.Warn("No active cycle to pause")
				return c.Send("Error: there is no active distribution cycle.")
			case app.ErrCycleAlreadyPaused:
				logWithError.Warn("Cycle already paused")
				return c.Send("Error: the distribution cycle is already paused.")
			default:
				logWithError.Error("Failed to pause cycle")
				return c.Send(fmt.Sprintf("Failed to pause the cycle: %s", err.Error()))
			}
		}
		logCtx.WithField("cycle_id", paused.ID).Info("Cycle paused")
		return c.Send("Distribution cycle paused. Claims are rejected until resume.")
	}))

	b.Handle("/resume_cycle", adminOnly("/resume_cycle", func(c telebot.Context, logCtx *logrus.Entry) error {
		resumed, err := distService.ResumeCycle(ctx)
		if err != nil {
			logWithError := logCtx.WithError(err)
			switch err {
			case app.ErrNoActiveCycle:
				logWithError.Warn("No active cycle to resume")
				return c.Send("Error: there is no active distribution cycle.")
			case app.ErrCycleNotPaused:
				logWithError.Warn("Cycle not paused")
				return c.Send("Error: the distribution cycle is not paused.")
			default:
				logWithError.Error("Failed to resume cycle")
				return c.Send(fmt.Sprintf("Failed to resume the cycle: %s", err.Error()))
			}
		}
		logCtx.WithField("cycle_id", resumed.ID).Info("Cycle resumed")
		return c.Send("Distribution cycle resumed.")
	}))

	shiftHandler := func(name string, shift func(context.Context) (*cycle.Cycle, error), verb string) telebot.HandlerFunc {
		return adminOnly(name, func(c telebot.Context, logCtx *logrus.Entry) error {
			shifted, err := shift(ctx)
			if err != nil {
				logWithError := logCtx.WithError(err)
				switch err {
				case app.ErrNoActiveCycle:
					logWithError.Warn("No active cycle to shift")
					return c.Send("Error: there is no active distribution cycle.")
				case cycle.ErrShiftIntoPast:
					logWithError.Warn("Shift would move start into the past")
					return c.Send("Error: advancing would move the cycle start into the past.")
				default:
					logWithError.Error("Failed to shift cycle")
					return c.Send(fmt.Sprintf("Failed to %s the cycle: %s", verb, err.Error()))
				}
			}
			logCtx.WithField("cycle_id", shifted.ID).Infof("Cycle window %sed", verb)
			return c.Send(fmt.Sprintf("Cycle window %sed by one interval.\nNew period: %s – %s",
				verb,
				shifted.StartTime.In(location).Format(cycleTimeLayout),
				shifted.EndTime.In(location).Format(cycleTimeLayout)))
		})
	}
	b.Handle("/advance_cycle", shiftHandler("/advance_cycle", distService.AdvanceCycle, "advance"))
	b.Handle("/delay_cycle", shiftHandler("/delay_cycle", distService.DelayCycle, "delay"))

	b.Handle("/cycle_status", adminOnly("/cycle_status", func(c telebot.Context, logCtx *logrus.Entry) error {
		status, err := distService.Status(ctx)
		if err != nil {
			if err == app.ErrNoActiveCycle {
				return c.Send("There is no active distribution cycle.")
			}
			logCtx.WithError(err).Error("Failed to read cycle status")
			return c.Send(fmt.Sprintf("Failed to read cycle status: %s", err.Error()))
		}
		return c.Send(fmt.Sprintf("Cycle #%d — %s\nStart: %s\nEnd: %s",
			status.Cycle.ID, status.State,
			status.Cycle.StartTime.In(location).Format(cycleTimeLayout),
			status.Cycle.EndTime.In(location).Format(cycleTimeLayout)))
	}))

	b.Handle("/pools", adminOnly("/pools", func(c telebot.Context, logCtx *logrus.Entry) error {
		pools, err := distService.Pools(ctx)
		if err != nil {
			if err == app.ErrNoActiveCycle {
				return c.Send("There is no active distribution cycle.")
			}
			logCtx.WithError(err).Error("Failed to list pools")
			return c.Send(fmt.Sprintf("Failed to list pools: %s", err.Error()))
		}
		if len(pools) == 0 {
			return c.Send("No pools are initialized for the active cycle.")
		}

		var sb strings.Builder
		sb.WriteString("Pools for the active cycle:\n")
		for _, p := range pools {
			fmt.Fprintf(&sb, "• %s: %d / %d remaining\n", p.GroupName, p.RemainingAmount, p.TotalAmount)
		}
		return c.Send(sb.String())
	}))
}
