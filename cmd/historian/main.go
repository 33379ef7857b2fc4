// cmd/historian/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/cardduel/internal/cache"
	"github.com/jason-s-yu/cardduel/internal/config"
	"github.com/jason-s-yu/cardduel/internal/database"
	"github.com/jason-s-yu/cardduel/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

// The historian drains the duel event queue from Redis into Postgres.
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

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Fatal("redis")
	}
	defer rdb.Close()

	pool, err := database.ConnectDB(ctx, cfg.Postgres())
	if err != nil {
		logger.WithError(err).Fatal("postgres")
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.WithError(err).Fatal("schema")
	}

	svc := historian.New(
		cache.NewConsumer(rdb, cfg.QueueName),
		historian.PostgresSink{Pool: pool},
		historian.Options{
			BatchSize:     cfg.HistorianBatchSize,
			FlushInterval: cfg.HistorianFlush,
			Inactivity:    cfg.InactivityTimeout,
		},
		logger.WithField("component", "historian"),
	)
	if err := svc.Run(ctx); err != nil {
		logger.WithError(err).Fatal("historian exited")
	}
}
