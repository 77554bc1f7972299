package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"checkin/internal/badge"
	"checkin/internal/config"
	"checkin/internal/logging"
	"checkin/internal/queue"
	"checkin/internal/store"
)

// Worker consumes badge jobs from the shared print queue and spools them to disk.
func main() {
	cfg := config.Load()
	if _, err := logging.Configure("worker", logging.Options{
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
		File:         cfg.LogFile,
		ReportCaller: cfg.LogCaller,
	}); err != nil {
		logrus.Fatalf("logging setup failed: %v", err)
	}
	log := logging.NewLogger("worker")

	if cfg.QueueBackend == "memory" {
		log.Fatal("the badge worker needs QUEUE_BACKEND=redis; stations spool in-process with the memory backend")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if !redisClient.Healthy(pingCtx) {
		log.WithField("addr", cfg.RedisAddr).Warn("redis not reachable; will keep retrying")
	}
	cancel()

	q := queue.NewRedisQueue(redisClient.Client, cfg.PrintQueueKey, logging.NewLogger("queue"))
	spooler := badge.NewSpooler(q, cfg.BadgeSpoolDir, logging.NewLogger("spooler"))
	if err := spooler.Run(ctx); err != nil {
		log.WithError(err).Fatal("spooler failed")
	}
	log.Info("worker stopped")
}
