package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/adforge-ai/adgen-backend/config"
	"github.com/adforge-ai/adgen-backend/pkg/logger"
)

var (
	sharedConnOnce sync.Once
	sharedConn     *gorm.DB
)

// GetSharedConnection returns the process-wide gorm connection, opening it on
// first use. A connection failure is fatal at startup, so this panics.
func GetSharedConnection() *gorm.DB {
	sharedConnOnce.Do(func() {
		conn, err := open(config.Config.Database)
		if err != nil {
			panic(err)
		}
		sharedConn = conn
	})
	return sharedConn
}

func open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	log, _ := logger.GetZapLogger(context.Background())

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=%s",
		cfg.Host, cfg.Username, cfg.Password, cfg.Name, cfg.Port, cfg.TimeZone)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		QueryFields: true,
		Logger:      gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("accessing database pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.Pool.IdleConnections)
	sqlDB.SetMaxOpenConns(cfg.Pool.MaxConnections)
	if cfg.Pool.ConnLifeTime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.Pool.ConnLifeTime)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("database connection opened",
		zap.String("host", cfg.Host), zap.String("name", cfg.Name))
	return db, nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
