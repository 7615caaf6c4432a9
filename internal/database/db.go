package database

import (
	"fmt"

	"practice/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection opens a gorm Postgres pool and migrates the practice schema.
func NewConnection(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Appointment{},
		&model.Workbook{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Warn("failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}
