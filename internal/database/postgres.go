package database

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"billing-relay/backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// IsPostgresURL reports whether storeURL selects the postgres driver.
func IsPostgresURL(storeURL string) bool {
	return strings.HasPrefix(storeURL, "postgres://") || strings.HasPrefix(storeURL, "postgresql://")
}

// OpenPostgres connects to a hosted postgres backend and migrates the
// subscriptions and payments tables. When the URL carries no password the
// service credential is used as one.
func OpenPostgres(storeURL, serviceKey string) (*gorm.DB, error) {
	dsn, err := postgresDSN(storeURL, serviceKey)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.AutoMigrate(&models.Subscription{}, &models.Payment{}); err != nil {
		ClosePostgres(db)
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return db, nil
}

func postgresDSN(storeURL, serviceKey string) (string, error) {
	u, err := url.Parse(storeURL)
	if err != nil {
		return "", fmt.Errorf("parse STORE_URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("STORE_URL has no host")
	}
	if serviceKey != "" {
		if _, hasPassword := u.User.Password(); !hasPassword {
			user := "postgres"
			if u.User != nil && u.User.Username() != "" {
				user = u.User.Username()
			}
			u.User = url.UserPassword(user, serviceKey)
		}
	}
	return u.String(), nil
}

func ClosePostgres(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("postgres: get database handle: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("postgres: close: %v", err)
	}
}
