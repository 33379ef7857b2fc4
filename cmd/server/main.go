// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/cardduel/internal/auth"
	"github.com/jason-s-yu/cardduel/internal/cache"
	"github.com/jason-s-yu/cardduel/internal/catalog"
	"github.com/jason-s-yu/cardduel/internal/config"
	"github.com/jason-s-yu/cardduel/internal/duel"
	"github.com/jason-s-yu/cardduel/internal/handlers"
	"github.com/jason-s-yu/cardduel/internal/reward"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		if !cfg.CatalogDegraded {
			logger.WithError(err).Fatal("card catalog failed to load")
		}
		logger.WithError(err).Warn("card catalog unavailable, continuing with an empty catalog")
		cat = catalog.Empty()
	}
	logger.WithField("cards", cat.Len()).Info("card catalog loaded")

	gw, closeGateway, err := cfg.OpenGateway(ctx, logger)
	if err != nil {
		logger.WithError(err).Fatal("storage backend failed to open")
	}
	defer closeGateway()

	var publisher duel.EventPublisher
	if cfg.PublishEvents {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Fatal("event queue unavailable")
		}
		defer rdb.Close()
		publisher = cache.NewPublisher(rdb, cfg.QueueName)
	}

	writer := reward.NewWriter(gw, logger,
		reward.WithNotifier(reward.LogNotifier{Logger: logger}),
		reward.WithTimeout(cfg.RetryOptions().Budget()),
		reward.WithArchiveSize(cfg.SpectatorArchiveSize),
	)
	manager := duel.NewManager(cat, writer, logger, duel.ManagerConfig{
		Weights:          cfg.Weights(),
		PracticeDeckSize: cfg.PracticeDeckSize,
		ArchiveSize:      cfg.SpectatorArchiveSize,
		Publisher:        publisher,
	})

	issuer, err := newIssuer(cfg)
	if err != nil {
		logger.WithError(err).Fatal("auth keys")
	}
	if cfg.AuthPrivateKeyPath == "" || cfg.AuthPublicKeyPath == "" {
		logger.Warn("auth key paths not set, using an ephemeral key pair; issued tokens do not survive a restart")
	}
	if cfg.AdminKeyHash == "" {
		logger.Warn("ADMIN_KEY_HASH not set, admin endpoints and token issuance are disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewDuelServer(manager, issuer, cfg.AdminKeyHash, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server exited")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
}

func newIssuer(cfg config.Config) (*auth.Issuer, error) {
	ttl, err := auth.ParseTokenTTL(cfg.TokenExpireTime)
	if err != nil {
		return nil, err
	}
	if cfg.AuthPrivateKeyPath != "" && cfg.AuthPublicKeyPath != "" {
		return auth.NewIssuerFromPath(cfg.AuthPrivateKeyPath, cfg.AuthPublicKeyPath, ttl)
	}
	return auth.NewIssuer(ttl)
}
