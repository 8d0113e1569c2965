// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/keshon/say-relay/internal/command/say"
	"github.com/keshon/say-relay/internal/config"
	"github.com/keshon/say-relay/internal/discord"
	"github.com/keshon/say-relay/internal/i18n"
	"github.com/keshon/say-relay/internal/logging"
	"github.com/keshon/say-relay/internal/metrics"
	"github.com/keshon/say-relay/internal/middleware"
	"github.com/keshon/say-relay/internal/relay"
	"github.com/keshon/say-relay/internal/storage"
	v "github.com/keshon/say-relay/internal/version"
	"github.com/keshon/say-relay/pkg/cmd"
)

const (
	historyKeep          = 500
	historyPruneInterval = time.Hour
)

func main() {
	cfg := config.New()

	logger, logCloser := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloser.Close()
	logger.Info().Str("version", v.Version).Msgf("Starting %v bot...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog, err := i18n.Load(cfg.LocaleFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load locale")
	}

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()
	go storage.RunHistoryPruner(ctx, store, historyPruneInterval, historyKeep, logger)

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create discord session")
	}

	m := metrics.New("say_relay")
	hub := relay.NewEventHub(logger)
	rl := relay.New(discord.NewTransport(dg), relay.WithMetrics(m), relay.WithLogger(logger))
	downloader := relay.NewDownloader(int64(cfg.MaxAttachmentBytes), logger)

	registry := cmd.NewRegistry()
	bot := discord.NewBot(dg, discord.Options{
		Config:   cfg,
		Storage:  store,
		Registry: registry,
		Hub:      hub,
		T:        catalog.T,
		Log:      logger,
	})

	sessions := relay.NewManager(rl, hub, relay.ManagerConfig{
		IdleTimeout: cfg.IdleTimeout,
		TypingDelay: cfg.TypingDelay,
		EmbedColor:  cfg.EmbedColor,
		Prefixes:    bot.Prefixes,
		T:           catalog.T,
		Downloader:  downloader,
	}, logger)

	svc := &say.Service{
		Relay:      rl,
		Sessions:   sessions,
		Downloader: downloader,
		T:          catalog.T,
		EmbedColor: cfg.EmbedColor,
		Log:        logger.With().Str("component", "say").Logger(),
	}
	err = say.Register(registry, svc,
		middleware.WithGuildOnly(catalog.T),
		middleware.WithUserPermissionCheck(catalog.T),
		middleware.WithCommandLogger(store, m, logger),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register commands")
	}

	if cfg.MetricsAddr != "" {
		go metrics.RunServer(ctx, cfg.MetricsAddr, m, func() gin.H {
			return gin.H{
				"sessions":          sessions.Len(),
				"pending_deletions": len(rl.PendingDeletions()),
			}
		})
	}

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("Received signal, shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Discord bot error")
		}
	}

	// sessions say goodbye over the gateway, so close them before it goes away
	sessions.Shutdown()
	rl.Close()
	cancel()
	<-errCh

	log.Info().Msg("Discord bot exited cleanly")
}
