package db

import (
	"time" // Connection retry backoff

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM query logger

	"lucky_spin/internal/domain" // Importing domain models
)

// ConnectRetries is how many times Connect tries before giving up
const ConnectRetries = 5

// Connect opens the MySQL database, retrying with exponential backoff
func Connect(dsn string, isProd bool) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn) // Verbose outside production
	if isProd {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}
	var (
		db  *gorm.DB
		err error
	)
	backoff := time.Second
	for attempt := 1; attempt <= ConnectRetries; attempt++ {
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger:         gormLogger,
			TranslateError: true, // Surface gorm.ErrDuplicatedKey
		})
		if err == nil {
			break
		}
		logrus.WithFields(logrus.Fields{
			"attempt": attempt,     // Failed attempt number
			"error":   err.Error(), // Error message
		}).Warn("Database not reachable, retrying")
		time.Sleep(backoff)
		backoff *= 2
	}
	if err != nil {
		return nil, err
	}

	// Configure connection pool on the underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	err := db.AutoMigrate(
		&domain.Giveaway{},
		&domain.SpinConfiguration{},
		&domain.RewardTier{},
		&domain.PoolCode{},
		&domain.Ticket{},
		&domain.DailyQuota{},
		&domain.SpinReservation{},
		&domain.UsageEntry{},
		&domain.Wallet{},
		&domain.Transaction{},
	)
	if err != nil {
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
