package mysql

import (
	"context"
	"fmt"
	"time"

	"production-service/internal/config"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database. Nothing is dialed while the
// dialector initializes, so an unreachable server is only logged: requests
// made while it is down fail with ErrConnectionUnavailable instead.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector := mysql.New(mysql.Config{
		DSN:                       cfg.DSN(),
		SkipInitializeWithVersion: true,
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Warn),
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.DBName, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Warn("database not reachable at startup", zap.String("host", cfg.Host), zap.Error(err))
	}
	return db, nil
}

// CreateDatabase issues CREATE DATABASE IF NOT EXISTS for cfg.DBName over a
// server-level connection.
func CreateDatabase(cfg config.DatabaseConfig) error {
	admin := cfg
	admin.DBName = ""
	db, err := gorm.Open(mysql.Open(admin.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("db: admin connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", cfg.DBName)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("db: create database %s: %w", cfg.DBName, err)
	}
	return nil
}
