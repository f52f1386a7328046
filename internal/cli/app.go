package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/config"
	"github.com/PhelGc/roadsphere/internal/database"
	"github.com/PhelGc/roadsphere/internal/discord"
	"github.com/PhelGc/roadsphere/internal/evaluator"
	"github.com/PhelGc/roadsphere/internal/logger"
	"github.com/PhelGc/roadsphere/internal/scenario"
	"github.com/PhelGc/roadsphere/internal/session"
	"github.com/PhelGc/roadsphere/internal/storage"
)

// app agrupa las dependencias construidas a partir de la configuración
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	backend  storage.Backend
	ai       *evaluator.Client
	discord  *discord.Client
	sessions *session.Manager
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("error cargando configuración: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	if a.cfg.Gemini.APIKey == "" {
		a.logger.Warn("GEMINI_API_KEY no configurada, las llamadas al modelo fallarán")
	}

	backend, err := openBackend(a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.backend = backend

	prompts, err := evaluator.LoadPrompts(a.cfg.Gemini.PromptsDir)
	if err != nil {
		return err
	}
	a.ai, err = evaluator.NewClient(ctx, a.cfg.Gemini, prompts, a.logger)
	if err != nil {
		return err
	}

	var notifier scenario.Notifier
	if a.cfg.Discord.Enabled() {
		a.discord, err = discord.NewClient(&discord.Config{
			BotToken:  a.cfg.Discord.BotToken,
			ChannelID: a.cfg.Discord.ChannelID,
		})
		if err != nil {
			return err
		}
		notifier = a.discord
		a.logger.Info("Notificaciones Discord activas", zap.Int("threshold", a.cfg.Discord.RiskThreshold))
	}

	a.sessions = session.NewManager(session.Options{
		Backend:         a.backend,
		AI:              a.ai,
		Notifier:        notifier,
		NotifyThreshold: a.cfg.Discord.RiskThreshold,
		FrameInterval:   time.Second / time.Duration(a.cfg.Simulation.FPS),
		IdleTTL:         time.Duration(a.cfg.HTTP.SessionIdleMinutes) * time.Minute,
		Logger:          a.logger,
	})
	return nil
}

// Close libera recursos en orden inverso a su creación
func (a *app) Close() {
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.discord != nil {
		a.discord.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Warn("Error cerrando storage", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// openBackend crea el backend de almacenamiento del driver configurado
func openBackend(cfg *config.Config, log *zap.Logger) (storage.Backend, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemory(), nil
	case "file":
		return storage.NewFile(cfg.Storage.BasePath)
	case "sqlite":
		return storage.NewSQLite(cfg.Storage.SQLitePath)
	case "mysql":
		return database.NewClient(&database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			Database: cfg.Database.Database,
		}, log)
	}
	return nil, fmt.Errorf("driver de storage desconocido: %q", cfg.Storage.Driver)
}
