package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/recava/recava-server/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes for all support entities.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	models := []any{
		&entities.ChatRecord{},
		&entities.UserAccount{},
		&entities.AgentConfig{},
	}
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return err
	}
	log.Debug().Int("models", len(models)).Msg("schema migration complete")
	return nil
}
