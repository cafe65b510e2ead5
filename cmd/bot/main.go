package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"community_distribution_bot/internal/app"
	"community_distribution_bot/internal/domain/cycle"
	"community_distribution_bot/internal/domain/notifier"
	"community_distribution_bot/internal/domain/pool"
	"community_distribution_bot/internal/infra/config"
	idb "community_distribution_bot/internal/infra/database"
	"community_distribution_bot/internal/infra/directory"
	"community_distribution_bot/internal/infra/logger"
	"community_distribution_bot/internal/infra/scheduler"
	"community_distribution_bot/internal/infra/telegram"
	"community_distribution_bot/internal/infra/webhook"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Community Distribution Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLogger := logger.Get().WithField("component", "main")
	mainLogger.WithField("environment", cfg.Environment).Info("Configuration loaded.")

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	if err := idb.EnsureSchema(db); err != nil {
		mainLogger.WithError(err).Fatal("Could not ensure database schema")
	}
	mainLogger.Info("Database connection established and schema ensured.")

	// Initialize Repositories
	cycleRepo := idb.NewPostgresCycleRepository(db)
	poolRepo := idb.NewPostgresPoolRepository(db)
	claimRepo := idb.NewPostgresClaimRepository(db)
	mainLogger.Info("Repositories initialized.")

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.Get().WithField("component", "telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(map[string]interface{}{
					"message": c.Text(),
					"sender":  c.Sender().ID,
					"chat":    c.Chat().ID,
				})
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	// Initialize Collaborators
	memberDirectory := directory.NewHTTPDirectory(cfg.DirectoryBaseURL, logger.Get().WithField("component", "directory"))
	cycleNotifier := notifier.Notifier(webhook.NewDiscordNotifier(cfg.DiscordWebhookURL, cfg.DiscordNotification, logger.Get().WithField("component", "webhook")))
	if cfg.AnnounceChatID != 0 {
		announcer := telegram.NewAnnouncer(
			telegram.NewTelebotAdapter(bot),
			cfg.AnnounceChatID,
			cfg.Location,
			logger.Get().WithField("component", "announcer"),
		)
		cycleNotifier = notifier.Multi(cycleNotifier, announcer)
	}

	schedule := cycle.Schedule{
		AnchorWeekday: cfg.AnchorWeekday,
		AnchorHour:    cfg.AnchorHour,
		AnchorMinute:  cfg.AnchorMinute,
		Interval:      time.Duration(cfg.CycleIntervalDays) * 24 * time.Hour,
		Location:      cfg.Location,
	}
	allotmentPolicy := pool.AllotmentPolicy{
		StepSize:       cfg.StepSize,
		StepThreshold:  cfg.StepThreshold,
		StepSizeBeyond: cfg.StepSizeBeyond,
	}

	// Initialize Services
	distService := app.NewDistributionService(
		cycleRepo, poolRepo, claimRepo,
		memberDirectory, cycleNotifier,
		schedule, allotmentPolicy,
		logger.Get().WithField("component", "distribution_service"),
	)
	claimService := app.NewClaimService(
		cycleRepo, poolRepo, claimRepo,
		memberDirectory,
		logger.Get().WithField("component", "claim_service"),
	)
	mainLogger.Info("Application services initialized.")

	// Initialize CycleScheduler
	cycleScheduler := scheduler.NewCycleScheduler(
		distService,
		logger.Get().WithField("component", "scheduler"),
		cfg.CronSpecCycleCheck,
	)
	cycleScheduler.Start()

	// Register Handlers
	ctx := context.Background()
	handlerLogger := logger.Get().WithField("component", "telegram")
	telegram.RegisterAdminHandlers(ctx, bot, distService, cfg.AdminTelegramID, cfg.Location, handlerLogger)
	telegram.RegisterClaimHandlers(ctx, bot, claimService, handlerLogger)
	telegram.RegisterBotCommands(ctx, bot, cfg, memberDirectory, handlerLogger)
	mainLogger.Info("Command handlers registered.")

	mainLogger.Info("Application setup complete. Bot and scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	cycleScheduler.Stop()
	bot.Stop()
	// db.Close() is handled by defer
	mainLogger.Info("Application shut down gracefully.")
}
