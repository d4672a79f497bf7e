// Command scheduler runs the daily winner draw and the reconciliation of
// stale spins once. Schedule it with cron; a Redis lock keeps concurrent
// runs from overlapping.
package main

import (
	"context" // Job context
	"errors"  // Lock contention
	"fmt"     // Error wrapping

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging

	"lucky_spin/internal/config"          // Configuration
	"lucky_spin/internal/db"              // Database connection
	"lucky_spin/internal/events"          // Event publishers
	"lucky_spin/internal/spin"            // Spin engine
	"lucky_spin/internal/store/gormstore" // MySQL store
	"lucky_spin/internal/utils"           // Redis lock
)

const lockKey = "lucky-spin:scheduler"

func main() {
	cfg := config.LoadConfig()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := run(context.Background(), cfg, logrus.StandardLogger()); err != nil {
		logrus.Fatalf("scheduler run failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	defer rdb.Close()

	lock, err := utils.AcquireLock(ctx, rdb, lockKey, cfg.SchedulerLockTTL)
	if errors.Is(err, utils.ErrLockHeld) {
		log.Info("Another scheduler run holds the lock, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("take scheduler lock: %w", err)
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			log.Warnf("failed to release scheduler lock: %v", err)
		}
	}()

	gdb, err := db.Connect(cfg.DSN(), cfg.IsProd)
	if err != nil {
		return fmt.Errorf("connect to DB: %w", err)
	}

	var publisher events.Publisher = events.NewLogPublisher(log)
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:     cfg.KafkaBrokers,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Logger:      log,
		})
	}
	defer publisher.Close()

	svc := spin.NewService(gormstore.New(gdb), spin.Options{
		TicketThreshold: cfg.TicketThreshold,
		RetryAttempts:   cfg.RetryAttempts,
		RetryBackoff:    cfg.RetryBackoff,
		Publisher:       publisher,
		Logger:          log,
	})

	results, drawErr := svc.DrawAll(ctx)
	for _, r := range results {
		if r.Drawn {
			_ = utils.DeleteCache(ctx, rdb, utils.WinnersKey(r.ConfigurationID)) // Winners changed
		}
	}
	log.WithField("configurations", len(results)).Info("Winner draws finished")

	report, reconcileErr := svc.Reconcile(ctx, cfg.ReconcileAfter)
	log.WithFields(logrus.Fields{
		"scanned":     report.Scanned,     // Stale spins found
		"compensated": report.Compensated, // Refunded
	}).Info("Reconciliation finished")

	return errors.Join(drawErr, reconcileErr)
}
