package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentor_feedback_bot/internal/app"
	"mentor_feedback_bot/internal/infra/config"
	idb "mentor_feedback_bot/internal/infra/database"
	"mentor_feedback_bot/internal/infra/logger"
	"mentor_feedback_bot/internal/infra/notion"
	"mentor_feedback_bot/internal/infra/scheduler"
	"mentor_feedback_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Mentor Feedback Bot starting...")

	mainLogger := log.New(os.Stdout, "MAIN: ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		mainLogger.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	baseLogger := logger.Get().WithField("app", "mentor_feedback_bot")
	mainLogger.Printf("INFO: Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	mainLogger.Println("INFO: Database connection established successfully.")

	// Initialize Repositories and the Notion record store adapter
	feedbackRepo := idb.NewPostgresFeedbackRepository(db)
	mainLogger.Println("INFO: Feedback repository initialized.")
	recordStore := notion.NewClient(
		cfg.NotionAPIKey,
		cfg.NotionMeetingsDBID,
		cfg.NotionFeedbackDBID,
		baseLogger.WithField("component", "notion"),
	)
	mainLogger.Println("INFO: Notion record store adapter initialized.")

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 30 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := baseLogger.WithError(err)
			if c != nil && c.Chat() != nil {
				entry = entry.WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Unhandled telebot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.Fatalf("FATAL: Could not create Telegram bot: %v", err)
	}
	telegramClient := telegram.NewTelebotAdapter(bot)

	// Initialize FeedbackService
	feedbackService := app.NewFeedbackServiceImpl(
		feedbackRepo,
		recordStore,
		telegramClient,
		baseLogger.WithField("component", "feedback_service"),
		time.Duration(cfg.DiscoveryWindowDays)*24*time.Hour,
		cfg.ErrorChatID,
	)
	mainLogger.Println("INFO: Feedback service initialized.")

	// Shared shutdown signal for the handlers; checked between iterations.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telegram.RegisterFeedbackHandlers(ctx, bot, feedbackService, baseLogger.WithField("component", "telegram_handlers"))
	mainLogger.Println("INFO: Feedback handlers registered.")

	feedbackScheduler := scheduler.NewFeedbackScheduler(
		feedbackService,
		baseLogger.WithField("component", "scheduler"),
		cfg.CronSpecDiscovery,
		cfg.CronSpecReminder,
	)
	feedbackScheduler.Start()

	mainLogger.Println("INFO: Application setup complete. Bot and Scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Println("INFO: Shutting down application...")
	cancel()
	feedbackScheduler.Stop()
	bot.Stop()
	// db.Close() is handled by defer
	mainLogger.Println("INFO: Application shut down gracefully.")
}
