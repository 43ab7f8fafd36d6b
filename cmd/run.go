package cmd

import (
	"context"
	"fmt"
	"time"

	"guildbank/bot"
	"guildbank/config"
	"guildbank/database"
	"guildbank/events"
	"guildbank/observability"
	"guildbank/repository"
	"guildbank/scheduler"
	"guildbank/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting guildbank...")

	cfg := config.Get()
	ConfigureLogging(cfg)

	// Database
	log.Info("Connecting to database...")
	db, err := database.NewConnectionWithOptions(ctx, cfg.GetDatabaseURL(), database.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	log.Info("Applying database migrations...")
	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Event bus and its subscribers
	eventBus := events.NewBus()

	if cfg.NATSServers != "" {
		forwarder, err := events.ConnectNATSForwarder(cfg.NATSServers, cfg.NATSSubject)
		if err != nil {
			return fmt.Errorf("failed to connect event forwarder: %w", err)
		}
		defer forwarder.Close()
		forwarder.Attach(eventBus)
		log.WithField("servers", cfg.NATSServers).Info("Forwarding events to NATS")
	}

	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics.Attach(eventBus)

	// Services
	log.Info("Initializing services...")
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	economyService := service.NewEconomyService(uowFactory, cfg.CommunityStartingPool)
	rewardService := service.NewRewardService(uowFactory)
	shopService := service.NewShopService(uowFactory)
	giveawayService := service.NewGiveawayService(uowFactory, service.CryptoPicker{})

	sched := scheduler.New(giveawayService, eventBus, cfg.TickSpec)
	giveawayService.SetTimers(sched)
	sched.AddTickHook(func(ctx context.Context, now time.Time) {
		if pruned := rewardService.PruneVoiceSessions(ctx, now, cfg.VoiceSessionMaxAge); pruned > 0 {
			log.WithField("sessions", pruned).Info("Pruned stale voice sessions")
		}
	})
	log.Info("Services initialized successfully")

	// Discord
	log.Info("Initializing Discord bot...")
	discordBot, err := bot.New(bot.Config{
		Token:   cfg.DiscordToken,
		GuildID: cfg.GuildID,
	}, bot.Services{
		Economy:   economyService,
		Rewards:   rewardService,
		Shop:      shopService,
		Giveaways: giveawayService,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Info("Discord bot initialized successfully")

	// Timers are re-armed after the bot is connected so overdue results can be announced
	sched.SetAnnouncer(discordBot)
	stopScheduler, err := sched.Start(ctx)
	if err != nil {
		discordBot.Close()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Infof("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down...")
	stopScheduler()

	if err := discordBot.Close(); err != nil {
		log.Errorf("Error closing Discord bot: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error shutting down metrics: %v", err)
	}

	log.Info("Shutdown completed")
	return nil
}

// ConfigureLogging applies the configured log level and format
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
