package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/barsik-modbot-go/internal/config"
	"github.com/barsik-modbot-go/internal/dashboard"
	"github.com/barsik-modbot-go/internal/handlers"
	"github.com/barsik-modbot-go/internal/i18n"
	"github.com/barsik-modbot-go/internal/middleware"
	"github.com/barsik-modbot-go/internal/models"
	"github.com/barsik-modbot-go/internal/moderation"
	"github.com/barsik-modbot-go/internal/notifier"
	"github.com/barsik-modbot-go/internal/settings"
	"github.com/barsik-modbot-go/internal/storage"
	"github.com/barsik-modbot-go/pkg/logger"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting moderation bot...")

	// Initialize bot
	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}

	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	db, err := storage.Connect(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Initialize i18n
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Initialize metrics
	metrics := middleware.NewMetrics()

	// Start metrics server if enabled
	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Initialize core services
	settingsProvider := settings.NewProvider(db, cfg.Settings.CacheTTL, log)
	processor := moderation.NewProcessor(db, settingsProvider, localizer, cfg.I18n.DefaultLanguage, metrics, log)
	outbound := notifier.New(bot, metrics, log)
	commandHandler := handlers.NewCommandHandler(bot, cfg, processor, outbound, metrics, log)

	// Start dashboard API if enabled
	if cfg.Dashboard.Enabled {
		var redisClient *redis.Client
		if cfg.Dashboard.Cache.Enabled && cfg.Dashboard.Cache.Redis.Addr != "" {
			redisClient = redis.NewClient(&redis.Options{
				Addr:     cfg.Dashboard.Cache.Redis.Addr,
				Password: cfg.Dashboard.Cache.Redis.Password,
				DB:       cfg.Dashboard.Cache.Redis.DB,
			})
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.WithError(err).Warn("Redis unavailable, dashboard cache disabled")
				redisClient = nil
			}
		}

		api := dashboard.NewServer(db, redisClient, cfg.Dashboard.Cache.TTL, metrics, log)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Dashboard.Port)
			log.WithField("addr", addr).Info("Starting dashboard API")
			server := &http.Server{
				Addr:         addr,
				Handler:      api.Router(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := server.ListenAndServe(); err != nil {
				log.WithError(err).Error("Dashboard API failed")
			}
		}()
	}

	// Setup update channel
	var updates tgbotapi.UpdatesChannel

	if cfg.Bot.Webhook.Enabled {
		// Setup webhook
		webhookURL := fmt.Sprintf("%s/%s", cfg.Bot.Webhook.URL, bot.Token)
		webhook, err := tgbotapi.NewWebhook(webhookURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to create webhook")
		}

		if _, err := bot.Request(webhook); err != nil {
			log.WithError(err).Fatal("Failed to set webhook")
		}

		updates = bot.ListenForWebhook("/" + bot.Token)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Bot.Webhook.Port)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.WithError(err).Error("Webhook server failed")
			}
		}()
		log.WithField("url", webhookURL).Info("Webhook set")
	} else {
		// Use long polling
		u := tgbotapi.NewUpdate(0)
		u.Timeout = cfg.Bot.UpdateTimeout

		updates = bot.GetUpdatesChan(u)
		log.Info("Using long polling")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Main bot loop
	go func() {
		for update := range updates {
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			if err := commandHandler.HandleCommand(ctx, update.Message); err != nil {
				log.WithError(err).Error("Failed to handle command")
			}
		}
	}()

	// Start periodic tasks
	go startPeriodicTasks(ctx, db, metrics, log)

	// Wait for shutdown signal
	<-sigChan
	log.Info("Shutdown signal received")

	// Cleanup
	if cfg.Bot.Webhook.Enabled {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Error("Failed to delete webhook")
		}
	}

	// Cancel context to stop all goroutines
	cancel()

	// Give goroutines time to finish
	time.Sleep(2 * time.Second)

	log.Info("Bot stopped")
}

// startPeriodicTasks refreshes the user-state gauges from the database.
func startPeriodicTasks(ctx context.Context, db *gorm.DB, metrics *middleware.Metrics, log *logrus.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var total, banned, muted int64
			if err := db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
				log.WithError(err).Warn("Failed to refresh user gauges")
				continue
			}
			db.WithContext(ctx).Model(&models.User{}).Where("status = ?", models.StatusBanned).Count(&banned)
			db.WithContext(ctx).Model(&models.User{}).Where("status = ?", models.StatusMuted).Count(&muted)
			metrics.SetUserCounts(float64(total), float64(banned), float64(muted))
		}
	}
}
