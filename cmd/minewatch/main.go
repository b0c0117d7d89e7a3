// main is the entry point of the Minewatch bot.
// It loads the persisted registry, starts the poll cycle, the Telegram
// command loop and the optional HTTP status API.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minewatch/minewatch/internal/bot"
	"github.com/minewatch/minewatch/internal/config"
	"github.com/minewatch/minewatch/internal/fake"
	"github.com/minewatch/minewatch/internal/geoip"
	"github.com/minewatch/minewatch/internal/logger"
	"github.com/minewatch/minewatch/internal/maintenance"
	"github.com/minewatch/minewatch/internal/probe"
	"github.com/minewatch/minewatch/internal/server"
	"github.com/minewatch/minewatch/internal/storage"
	"github.com/minewatch/minewatch/internal/store"
	"github.com/minewatch/minewatch/internal/watcher"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)
	log.Info().Msg("Starting minewatch...")

	// Persistence
	repo, err := storage.New(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// Registry
	st := store.New()
	if blob, err := repo.LoadState(); err != nil {
		log.Error().Err(err).Msg("Failed to load registry snapshot, starting empty")
	} else if len(blob) > 0 {
		if err := st.Deserialize(blob); err != nil {
			log.Warn().Err(err).Msg("Corrupt registry snapshot, starting empty")
		} else {
			evt := log.Info().Int("servers", st.Len())
			if at, err := repo.SavedAt(); err == nil && !at.IsZero() {
				evt = evt.Time("saved_at", at)
			}
			evt.Msg("Registry restored")
		}
	}

	save := func() {
		data, err := st.Serialize()
		if err != nil {
			log.Error().Err(err).Msg("Failed to serialize registry")
			return
		}
		if err := repo.SaveState(data); err != nil {
			log.Error().Err(err).Msg("Failed to save registry")
		}
	}

	// Data generation or offline maintenance
	if cfg.Storage.GenerateCount > 0 {
		fake.GenerateData(st, cfg.Storage.GenerateCount)
		save()
		return
	}
	if maintenance.Run(cfg, st, repo) {
		return
	}

	// GeoIP (optional)
	var geoProvider *geoip.Provider
	if cfg.GeoIP.Path != "" {
		if err := geoip.EnsureDB(cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
			log.Error().Err(err).Msg("Failed to download GeoIP database")
		}
		geoProvider, err = geoip.Open(cfg.GeoIP.Path)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open GeoIP database, country tags disabled")
			geoProvider = nil
		} else {
			defer func() {
				if err := geoProvider.Close(); err != nil {
					log.Error().Err(err).Msg("Error closing GeoIP provider")
				}
			}()
		}
	}

	// Probe backend
	var pinger probe.Pinger
	switch cfg.Poll.Probe {
	case "a2s":
		pinger = &probe.Source{BufferSize: cfg.Poll.BufferSize, Timeout: cfg.Poll.Timeout}
	default:
		pinger = &probe.Minecraft{}
	}

	// Telegram bot
	b, err := bot.New(cfg, st, pinger, geoProvider, save)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start bot")
	}
	log.Info().Str("username", b.Username()).Msg("Bot logged in")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go b.Run(ctx)
	go watcher.New(st, pinger, b.Transport(), cfg).Run(ctx)

	// Periodic best-effort registry snapshot
	go func() {
		ticker := time.NewTicker(cfg.Storage.SaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				save()
			}
		}
	}()

	// Optional status API
	var httpServer *http.Server
	if cfg.Server.Address != "" {
		httpServer = &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      server.New(st, cfg.Server.AuthToken).Run(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("address", cfg.Server.Address).Msg("Status API listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("Status API failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Status API forced to shutdown")
		}
	}

	// Final consistent snapshot before exit
	save()

	log.Info().Msg("Minewatch exited")
}
