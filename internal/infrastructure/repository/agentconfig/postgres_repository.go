package agentconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/recava/recava-server/internal/domain/agentconfig"
	"github.com/recava/recava-server/internal/infrastructure/database/entities"
)

// PostgresRepository stores the agent configuration document as a single
// row, instructions serialized as JSON.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository creates a repository backed by the provided DB.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ domain.Repository = (*PostgresRepository)(nil)

// Load returns the stored document; an empty document when none was saved.
func (r *PostgresRepository) Load(ctx context.Context) (domain.Document, error) {
	var row entities.AgentConfig
	err := r.db.WithContext(ctx).Order("updated_at DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Document{Instructions: map[string]string{}}, nil
		}
		return domain.Document{}, err
	}

	instructions := map[string]string{}
	if row.Instructions != "" {
		if err := json.Unmarshal([]byte(row.Instructions), &instructions); err != nil {
			return domain.Document{}, fmt.Errorf("decode stored instructions: %w", err)
		}
	}
	return domain.Document{YAML: row.YAML, Instructions: instructions}, nil
}

// Save upserts the singleton configuration row.
func (r *PostgresRepository) Save(ctx context.Context, doc domain.Document) error {
	encoded, err := json.Marshal(doc.Instructions)
	if err != nil {
		return fmt.Errorf("encode instructions: %w", err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row entities.AgentConfig
		err := tx.Order("updated_at DESC").First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = entities.AgentConfig{
				ID:           uuid.NewString(),
				YAML:         doc.YAML,
				Instructions: string(encoded),
			}
			return tx.Create(&row).Error
		case err != nil:
			return err
		default:
			return tx.Model(&row).Updates(map[string]any{
				"yaml":         doc.YAML,
				"instructions": string(encoded),
			}).Error
		}
	})
}
