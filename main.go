package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/effortless-app/effortless-server/internal/billing"
	"github.com/effortless-app/effortless-server/internal/config"
	"github.com/effortless-app/effortless-server/internal/database"
	"github.com/effortless-app/effortless-server/internal/extract"
	"github.com/effortless-app/effortless-server/internal/logger"
	"github.com/effortless-app/effortless-server/internal/notify"
	"github.com/effortless-app/effortless-server/internal/pulse"
	"github.com/effortless-app/effortless-server/internal/server"
	"github.com/effortless-app/effortless-server/internal/temporal"
	"github.com/effortless-app/effortless-server/internal/whatsapp"
)

func main() {
	cfg := config.LoadFromEnv()

	log, err := logger.New(cfg.DevMode)
	if err != nil {
		fatal("creating logger", err)
	}
	defer logger.Sync(log)

	db, err := database.New(cfg.DBPath)
	if err != nil {
		fatal("creating database", err)
	}
	defer db.Close()

	waClient := initWhatsApp(cfg, log)
	notifyService := initNotifyService(waClient, cfg, log)
	orchestrator := initOrchestrator(db, cfg, log)

	sweeper := pulse.NewSweeper(db, notifyService, log)
	worker := pulse.NewWorker(sweeper, time.Duration(cfg.PulseIntervalSeconds)*time.Second, log)
	worker.Start()

	reconciler := initReconciler(db, cfg, log)

	srv := server.New(server.ServerConfig{
		DB:         db,
		Extractor:  orchestrator,
		Sweeper:    worker,
		Reconciler: reconciler,
		WAClient:   waClient,
		Logger:     log,
		Port:       cfg.HTTPPort,
	})
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	waitForShutdown(log, srv, worker, waClient)
}

func initWhatsApp(cfg *config.Config, log *zap.Logger) *whatsapp.Client {
	waClient, err := whatsapp.NewClient(cfg.DBPath+".whatsapp", log)
	if err != nil {
		log.Warn("WhatsApp client unavailable, notifications fall back to email", zap.Error(err))
		return nil
	}
	if err := waClient.Connect(context.Background()); err != nil {
		log.Warn("WhatsApp connect failed, notifications fall back to email", zap.Error(err))
		return nil
	}
	return waClient
}

func initNotifyService(waClient *whatsapp.Client, cfg *config.Config, log *zap.Logger) *notify.Service {
	var emailNotifier notify.Notifier
	if resend := notify.NewResendNotifier(cfg.ResendAPIKey, cfg.ResendFromAddress); resend != nil {
		emailNotifier = resend
		log.Info("email notification service configured (Resend)")
	}

	var waNotifier notify.Notifier
	if wa := notify.NewWhatsAppNotifier(waClient); wa != nil {
		waNotifier = wa
		log.Info("WhatsApp notification service configured")
	}

	return notify.NewService(waNotifier, emailNotifier, log)
}

func initOrchestrator(db *database.DB, cfg *config.Config, log *zap.Logger) *extract.Orchestrator {
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set, classification will fail")
	}
	if cfg.AnthropicAPIKey == "" {
		log.Warn("ANTHROPIC_API_KEY not set, extraction will fail")
	}

	classifier := extract.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.ClassifierModel, log)

	resolver := temporal.NewResolver()
	settings := extract.AgentSettings{
		APIKey:      cfg.AnthropicAPIKey,
		Model:       cfg.ExtractionModel,
		Temperature: cfg.Temperature,
		MaxTurns:    cfg.ExtractionMaxTurns,
	}
	todoBuilder := extract.NewTodoBuilder(db, extract.NewTodoAgent(settings, resolver), log)
	reminderBuilder := extract.NewReminderBuilder(db, extract.NewReminderAgent(settings, resolver), log)

	return extract.NewOrchestrator(db, classifier, todoBuilder, reminderBuilder, log)
}

func initReconciler(db *database.DB, cfg *config.Config, log *zap.Logger) *billing.Reconciler {
	var verifiers []billing.Verifier

	if cfg.GooglePlayPackageName != "" {
		gp, err := billing.NewGooglePlayVerifier(context.Background(), cfg.GooglePlayPackageName, cfg.GoogleServiceAccountFile, log)
		if err != nil {
			log.Warn("Google Play verifier unavailable", zap.Error(err))
		} else {
			verifiers = append(verifiers, gp)
			log.Info("Google Play billing verifier configured")
		}
	}

	if cfg.AppStoreKeyID != "" && cfg.AppStoreIssuerID != "" {
		keyPEM, err := os.ReadFile(cfg.AppStorePrivateKeyFile)
		if err != nil {
			log.Warn("App Store private key unavailable", zap.Error(err))
		} else {
			as, err := billing.NewAppStoreVerifier(cfg.AppStoreKeyID, cfg.AppStoreIssuerID, cfg.AppStoreBundleID, keyPEM, log)
			if err != nil {
				log.Warn("App Store verifier unavailable", zap.Error(err))
			} else {
				verifiers = append(verifiers, as)
				log.Info("App Store billing verifier configured")
			}
		}
	}

	return billing.NewReconciler(db, log, verifiers...)
}

func waitForShutdown(log *zap.Logger, srv *server.Server, worker *pulse.Worker, waClient *whatsapp.Client) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")

	worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
	}

	if waClient != nil {
		waClient.Disconnect()
	}
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", what, err)
	os.Exit(1)
}
