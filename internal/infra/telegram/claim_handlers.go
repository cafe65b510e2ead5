package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"community_distribution_bot/internal/app"
	idb "community_distribution_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterClaimHandlers registers the member-facing claim commands. The
// Telegram sender ID doubles as the player ID towards the claim ledger.
func RegisterClaimHandlers(
	ctx context.Context,
	b *telebot.Bot,
	claimService app.ClaimService,
	baseLogger *logrus.Entry,
) {
	b.Handle("/claim", func(c telebot.Context) error {
		playerID := strconv.FormatInt(c.Sender().ID, 10)
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler": "/claim",
			"player":  playerID,
		})
		logCtx.Info("Command received")

		args := c.Args()
		// Expected format: /claim <group> <amount|all>
		if len(args) != 2 {
			return c.Send("Usage: /claim <group> <amount|all>")
		}
		groupName := args[0]

		var req app.ClaimRequest
		if strings.EqualFold(args[1], "all") {
			req = app.ClaimAll()
		} else {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return c.Send("Error: the amount must be a number or 'all'.")
			}
			req = app.ExactClaim(amount)
		}

		result, err := claimService.Claim(ctx, playerID, groupName, req)
		if err != nil {
			logWithError := logCtx.WithError(err).WithField("group", groupName)
			switch err {
			case app.ErrInvalidClaimAmount:
				return c.Send("Error: the claim amount must be positive.")
			case app.ErrNotGroupMember:
				logWithError.Warn("Claim refused: not a group member")
				return c.Send(fmt.Sprintf("Error: you are not a member of %s.", groupName))
			case app.ErrCycleNotClaimable:
				logWithError.Warn("Claim refused: no claimable cycle")
				return c.Send("Claims are not possible right now: no active distribution cycle.")
			case app.ErrInsufficientPool:
				logWithError.Warn("Claim refused: insufficient pool")
				return c.Send("Error: the pool does not have enough units left.")
			default:
				logWithError.Error("Claim failed")
				return c.Send("Something went wrong while processing your claim. Please try again later.")
			}
		}

		logCtx.WithFields(logrus.Fields{
			"group":  groupName,
			"amount": result.ActualAmount,
		}).Info("Claim accepted")
		return c.Send(fmt.Sprintf("You claimed %d unit(s) from %s. Pool remaining: %d.",
			result.ActualAmount, groupName, result.Remaining))
	})

	b.Handle("/pool", func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler":   "/pool",
			"sender_id": c.Sender().ID,
		})
		logCtx.Info("Command received")

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /pool <group>")
		}
		groupName := args[0]

		p, err := claimService.PoolStatus(ctx, groupName)
		if err != nil {
			switch err {
			case app.ErrCycleNotClaimable:
				return c.Send("There is no active distribution cycle.")
			case idb.ErrPoolNotFound:
				return c.Send(fmt.Sprintf("No pool exists for %s in the current cycle.", groupName))
			default:
				logCtx.WithError(err).Error("Failed to read pool status")
				return c.Send("Failed to read the pool status. Please try again later.")
			}
		}
		return c.Send(fmt.Sprintf("%s: %d of %d unit(s) remaining.", groupName, p.RemainingAmount, p.TotalAmount))
	})

	b.Handle("/my_claims", func(c telebot.Context) error {
		playerID := strconv.FormatInt(c.Sender().ID, 10)
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler": "/my_claims",
			"player":  playerID,
		})
		logCtx.Info("Command received")

		records, err := claimService.PlayerClaims(ctx, playerID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to list player claims")
			return c.Send("Failed to load your claims. Please try again later.")
		}
		if len(records) == 0 {
			return c.Send("You have not claimed anything in the current cycle.")
		}

		var sb strings.Builder
		sb.WriteString("Your claims:\n")
		for _, rec := range records {
			fmt.Fprintf(&sb, "• %s: %d unit(s), last at %s\n",
				rec.GroupName, rec.ClaimedAmount, rec.LastClaimTime.Format("2006/01/02 15:04"))
		}
		return c.Send(sb.String())
	})
}
