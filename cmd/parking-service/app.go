package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"parking-service/internal/cache"
	"parking-service/internal/client"
	"parking-service/internal/config"
	"parking-service/internal/db"
	"parking-service/internal/logger"
	"parking-service/internal/reconcile"
	"parking-service/internal/repository"
	"parking-service/internal/service"
)

// app holds the wiring shared by every command.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	cache    *cache.Memory
	source   *service.CachedSource
	sessions *service.SessionService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Environment)
	validator := reconcile.NewValidator(cfg.Reconcile.PlateSentinels...)

	var (
		upstream service.EventSource
		settings service.SettingsStore
	)
	switch cfg.SourceMode {
	case config.SourceModeStore:
		database, err := db.New(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		upstream = service.NewPairingService(
			repository.NewGateEventRepository(database),
			repository.NewSessionMapRepository(database),
			repository.NewVerificationRepository(database),
			validator,
			cfg.Reconcile.EventLimit,
			log,
		)
		settings = service.NewRepositorySettings(repository.NewSettingsRepository(database), cfg.Parking.TotalSlots)
	default:
		gate := client.NewGateClient(cfg, log)
		upstream = client.NewBreakerClient(gate, client.DefaultBreakerSettings(), log)
		settings = service.NewMemorySettings(cfg.Parking.TotalSlots)
	}

	store := cache.NewMemory()
	source := service.NewCachedSource(upstream, store, cfg.Cache.EventsTTL)
	sessions := service.NewSessionService(source, validator, settings, cfg.Reconcile.EventLimit, log)

	log.Info().Str("source_mode", cfg.SourceMode).Msg("parking service configured")

	return &app{
		cfg:      cfg,
		log:      log,
		cache:    store,
		source:   source,
		sessions: sessions,
	}, nil
}
