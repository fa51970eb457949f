package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clash-bot/config"
	"clash-bot/handlers"
	"clash-bot/services"
	"clash-bot/utils"
	"clash-bot/workers"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "clash-bot",
		Usage: "Crypto Clash Discord bots: price displays, tournament standings and announcements",
		Commands: []*cli.Command{
			runCommand(),
			deployCommandsCommand(),
			postStandingsCommand(),
			migrateCommand(),
		},
		DefaultCommand: "run",
	}
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func load() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cfg), nil
}

func restSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("DISCORD_TOKEN_TOURNAMENT is not set")
	}
	return discordgo.New("Bot " + token)
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "start every bot, the scheduler and the HTTP server",
		Action: func(c *cli.Context) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	clock := clockwork.NewRealClock()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(registry)

	provider := services.NewDBProvider(cfg.Database, logger)
	defer provider.Close()
	if cfg.Database.AutoMigrate {
		if err := provider.Migrate(ctx); err != nil {
			logger.WithError(err).Error("❌ migration failed")
		}
	}
	store := services.NewGormStore(provider)

	leaderboard := services.NewLeaderboardService(store, logger, metrics)
	detector := services.NewDetector(store, clock, logger)
	renderer := services.NewEmbedRenderer(cfg.SiteURL, clock)
	commands := handlers.NewCommandHandler(leaderboard, detector, store, renderer, clock, logger)

	bots := services.NewBotRegistry(cfg.Discord, logger)
	if cfg.Discord.Enabled {
		bots.Start(func(s *discordgo.Session) { s.AddHandler(commands.Handle) })
	}
	defer bots.Close()

	var chat services.ChatClient
	if s := bots.Tournament(); s != nil {
		chat = services.NewDiscordChat(s)
	}

	var uploader services.Uploader
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			logger.WithError(err).Warn("⚠️ R2 unavailable, promo images fall back to cards")
		} else {
			uploader = r2
		}
	}

	social := services.NewSocialClient(cfg.Popching, nil)
	announcer := services.NewAnnouncer(logger, metrics,
		services.NewChatSink(chat, renderer, cfg.Channels.Announce, cfg.Channels.Results),
		services.NewSocialSink(social,
			services.NewTweetMirror(chat, cfg.Channels.TweetMirror, cfg.Popching.TwitterHandle),
			services.NewPromoImager(uploader, logger),
			logger),
		services.NewMessagingSink(services.NewTelegramClient(cfg.Telegram, nil), cfg.Telegram.ChannelID, cfg.SiteURL),
	)

	lifecycle := services.NewLifecycleService(detector, store, announcer, logger)
	pinned := services.NewPinnedStandings(chat, leaderboard, renderer, clock, cfg.Channels.Standings, logger)
	reporter := services.NewStandingsReporter(chat, leaderboard, renderer, clock, logger)

	scheduler, err := workers.NewScheduler(cfg.Schedule, cfg.Channels, workers.Jobs{
		Lifecycle: lifecycle,
		Pinned:    pinned,
		Reporter:  reporter,
		Bots:      bots,
		Prices:    services.NewPriceService(cfg.Prices, services.DefaultAssets, nil, logger),
	}, clock, logger, metrics)
	if err != nil {
		return err
	}
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.WithError(err).Warn("scheduler shutdown")
		}
	}()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handlers.SetupRoutes(app, &handlers.API{
		Leaderboard:      leaderboard,
		Lifecycle:        lifecycle,
		Pinned:           pinned,
		Reporter:         reporter,
		Clock:            clock,
		Logger:           logger,
		StandingsChannel: cfg.Channels.Standings,
	}, registry, cfg.Server.AdminToken)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		if err := app.Listen(addr); err != nil {
			logger.WithError(err).Error("server error")
		}
	}()
	logger.Infof("✅ Server running on %s", addr)

	<-ctx.Done()
	logger.Info("Shutting down...")
	return app.ShutdownWithTimeout(10 * time.Second)
}

func deployCommandsCommand() *cli.Command {
	return &cli.Command{
		Name:  "deploy-commands",
		Usage: "register the tournament bot's slash commands",
		Action: func(c *cli.Context) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			s, err := restSession(cfg.Discord.TokenTourny)
			if err != nil {
				return err
			}
			self, err := s.User("@me", discordgo.WithContext(c.Context))
			if err != nil {
				return fmt.Errorf("resolve application: %w", err)
			}
			cmds, err := s.ApplicationCommandBulkOverwrite(self.ID, cfg.Discord.GuildID, handlers.Definitions(),
				discordgo.WithContext(c.Context))
			if err != nil {
				return fmt.Errorf("register commands: %w", err)
			}
			logger.WithField("guild_id", cfg.Discord.GuildID).Infof("✅ registered %d commands", len(cmds))
			return nil
		},
	}
}

func postStandingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "post-standings",
		Usage: "post the current standings card once",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "channel", Usage: "channel id (defaults to TOURNAMENT_STANDINGS_CHANNEL_ID)"},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			s, err := restSession(cfg.Discord.TokenTourny)
			if err != nil {
				return err
			}
			channel := c.String("channel")
			if channel == "" {
				channel = cfg.Channels.Standings
			}
			if channel == "" {
				return errors.New("no channel given and TOURNAMENT_STANDINGS_CHANNEL_ID is not set")
			}

			provider := services.NewDBProvider(cfg.Database, logger)
			defer provider.Close()
			clock := clockwork.NewRealClock()
			reporter := services.NewStandingsReporter(services.NewDiscordChat(s),
				services.NewLeaderboardService(services.NewGormStore(provider), logger, nil),
				services.NewEmbedRenderer(cfg.SiteURL, clock), clock, logger)
			return reporter.Post(c.Context, channel)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update the tournament tables",
		Action: func(c *cli.Context) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			provider := services.NewDBProvider(cfg.Database, logger)
			defer provider.Close()
			if err := provider.Migrate(c.Context); err != nil {
				return err
			}
			logger.Info("✅ migrations applied")
			return nil
		},
	}
}
