package main

import (
	"context"   // Context for startup and shutdown
	"errors"    // Server close detection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal handling
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging

	"lucky_spin/internal/api"             // Custom package for API handlers
	"lucky_spin/internal/config"          // Custom package for configuration
	"lucky_spin/internal/db"              // Database connection and migration
	"lucky_spin/internal/events"          // Event publishers
	"lucky_spin/internal/spin"            // Spin engine
	"lucky_spin/internal/store"           // Store contract
	"lucky_spin/internal/store/gormstore" // MySQL store
	"lucky_spin/internal/store/memory"    // In-memory store
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.StandardLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup the store
	var st store.Store
	switch cfg.StoreDriver {
	case config.StoreMemory:
		mem := memory.New()
		id, err := db.SeedDemo(ctx, mem, time.Now())
		if err != nil {
			logrus.Fatalf("failed to seed demo data: %v", err)
		}
		logrus.WithField("configuration_id", id).Warn("Using in-memory store with demo data")
		st = mem
	default:
		gdb, err := db.Connect(cfg.DSN(), cfg.IsProd)
		if err != nil {
			logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
		}
		st = gormstore.New(gdb)
	}

	// Setup Redis client, caching is skipped when no address is configured
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	// Setup the event publisher
	var publisher events.Publisher = events.NewLogPublisher(log)
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:     cfg.KafkaBrokers,     // Bootstrap servers
			TopicPrefix: cfg.KafkaTopicPrefix, // Topic prefix
			Logger:      log,
		})
	}
	defer publisher.Close()

	svc := spin.NewService(st, spin.Options{
		TicketThreshold: cfg.TicketThreshold,
		RetryAttempts:   cfg.RetryAttempts,
		RetryBackoff:    cfg.RetryBackoff,
		Publisher:       publisher,
		Logger:          log,
	})

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}
	api.RegisterRoutes(r, svc, redisClient, api.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		ReconcileAfter: cfg.ReconcileAfter,
	})

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
	logrus.Info("Server stopped")
}
