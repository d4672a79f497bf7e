package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list values
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Store drivers
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment

	StoreDriver      string        // mysql or memory
	TicketThreshold  int           // Distinct ticket holders before the pool grows on issue
	RetryAttempts    int           // Tries per transaction on transient failures
	RetryBackoff     time.Duration // First pause between tries
	ReconcileAfter   time.Duration // Age at which a pending spin is compensated
	KafkaBrokers     []string      // Empty selects the logging publisher
	KafkaTopicPrefix string        // Prefix of every event topic
	SchedulerLockTTL time.Duration // Lifetime of the scheduler run lock
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    getenv("APP_PORT", "8080"),     // Application port
		DBUser:     os.Getenv("DB_USER"),           // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:     os.Getenv("DB_HOST"),           // Database host
		DBPort:     os.Getenv("DB_PORT"),           // Database port
		DBName:     os.Getenv("DB_NAME"),           // Database name
		JWTSecret:  os.Getenv("JWT_SECRET"),        // JWT secret key
		RedisAddr:  os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:    redisDB,                        // Redis database number
		IsProd:     os.Getenv("IS_PROD") == "true", // Is production environment

		StoreDriver:      getenv("STORE_DRIVER", StoreMySQL),                     // Storage backend
		TicketThreshold:  getInt("SPIN_TICKET_THRESHOLD", 100),                   // Pool growth threshold
		RetryAttempts:    getInt("SPIN_RETRY_ATTEMPTS", 3),                       // Transaction retries
		RetryBackoff:     getDuration("SPIN_RETRY_BACKOFF", 50*time.Millisecond), // Retry backoff
		ReconcileAfter:   getDuration("SPIN_RECONCILE_AFTER", 5*time.Minute),     // Stale pending age
		KafkaBrokers:     getList("KAFKA_BROKERS"),                               // Kafka bootstrap servers
		KafkaTopicPrefix: getenv("KAFKA_TOPIC_PREFIX", "lucky-spin"),             // Topic prefix
		SchedulerLockTTL: getDuration("SCHEDULER_LOCK_TTL", 10*time.Minute),      // Scheduler lock TTL
	}
}

// DSN builds the MySQL connection string
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=UTC"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
