package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/afanty2021/DashPlayer/internal/config"
	"github.com/afanty2021/DashPlayer/internal/history"
	"github.com/afanty2021/DashPlayer/internal/httpapi"
	"github.com/afanty2021/DashPlayer/internal/player"
	"github.com/afanty2021/DashPlayer/internal/trans"
	"github.com/afanty2021/DashPlayer/pkg/log"
)

func main() {
	_ = godotenv.Load()

	// Persisted settings overlay the environment.
	settingsFile := config.RuntimeSettingsFilePath()
	var opts []config.Option
	persisted, err := config.LoadRuntimeSettingsFile(settingsFile)
	if err == nil {
		opts = append(opts, config.WithRuntimeSettings(persisted))
	} else if !os.IsNotExist(err) {
		log.Warn("Ignoring unreadable settings file %s: %v", settingsFile, err)
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	if cfg.System.LogFile != "" {
		fileLogger, err := log.InitFileLogger(cfg.System.LogFile, log.ParseLevel(cfg.System.LogLevel))
		if err != nil {
			log.Fatal("Failed to open log file %s: %v", cfg.System.LogFile, err)
		}
		defer fileLogger.Close()
	} else {
		log.InitLogger(log.ParseLevel(cfg.System.LogLevel))
	}

	store, err := history.NewSQLiteStore(cfg.History.DBPath)
	if err != nil {
		log.Fatal("Failed to open history store: %v", err)
	}
	defer store.Close()

	provider := trans.NewOpenAIProvider(providerConfig(cfg))

	controller := player.NewController(
		player.NewSRTParser(cfg.Translate.GroupSize),
		provider,
		store,
	)
	synchronizer := player.NewSynchronizer(controller)
	synchronizer.Start()

	scheduler := cron.New()
	pruner := history.NewPruner(store, scheduler, cfg.History.PruneCron,
		time.Duration(cfg.History.RetentionDays)*24*time.Hour)
	if err := pruner.Schedule(context.Background()); err != nil {
		log.Fatal("Failed to schedule history pruner: %v", err)
	}
	scheduler.Start()

	settingsStore, err := config.NewRuntimeSettingsStore(settingsFile, cfg.RuntimeSettings())
	if err != nil {
		log.Fatal("Failed to initialize settings store: %v", err)
	}

	srv := httpapi.NewServer(controller,
		httpapi.WithHistoryStore(store),
		httpapi.WithRuntimeSettingsStore(settingsStore),
		httpapi.WithRuntimeSettingsApplier(func(next config.RuntimeSettings) error {
			provider.Configure(trans.Config{
				APIKey:         next.OpenAIAPIKey,
				Endpoint:       next.OpenAIEndpoint,
				Model:          next.OpenAIModel,
				TargetLanguage: next.TargetLanguage,
				Timeout:        time.Duration(cfg.OpenAI.Timeout) * time.Second,
			})
			return nil
		}),
	)

	errCh := make(chan error, 1)
	go func() {
		log.Info("DashPlayer API listening on %s", cfg.Player.HTTPAddr)
		errCh <- srv.ListenAndServe(cfg.Player.HTTPAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received %s, shutting down", sig)
	case err := <-errCh:
		log.Fatal("HTTP server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown: %v", err)
	}

	scheduler.Stop()
	synchronizer.Stop()
	controller.Close()
}

func providerConfig(cfg *config.Config) trans.Config {
	return trans.Config{
		APIKey:         cfg.OpenAI.APIKey,
		Endpoint:       cfg.OpenAI.Endpoint,
		Model:          cfg.OpenAI.Model,
		TargetLanguage: cfg.Translate.TargetLanguage.String(),
		Timeout:        time.Duration(cfg.OpenAI.Timeout) * time.Second,
	}
}
