// Package database opens the gorm connection the repositories share.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sivaangayarkanni/crm/internal/models"
	"github.com/sivaangayarkanni/crm/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres when url is set, otherwise to a private
// in-memory SQLite database, and migrates every model.
func Open(url string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	if url == "" {
		logger.Info("No database URL configured, using in-memory SQLite")
		// Pure Go SQLite, no CGO required. A single connection keeps every
		// query on the same in-memory database.
		dialector = sqlite.Open(":memory:")
	} else {
		logger.Info("Connecting to PostgreSQL database")
		dialector = postgres.Open(url)
	}

	db, err := gorm.Open(dialector, Config())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if url == "" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("Database initialized successfully")
	return db, nil
}

// Config is the gorm configuration shared by every connection. Timestamps
// are written in UTC so range queries compare like with like on SQLite.
func Config() *gorm.Config {
	return &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates or updates the tables of every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
