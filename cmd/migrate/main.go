package main

import (
	"github.com/sirupsen/logrus" // Logrus for structured logging

	"lucky_spin/internal/config" // Custom import path (Config)
	"lucky_spin/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration

	gdb, err := db.Connect(cfg.DSN(), cfg.IsProd)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
}
