package history

import (
	"context"
	"strings"

	"gorm.io/gorm"

	domain "github.com/recava/recava-server/internal/domain/history"
	"github.com/recava/recava-server/internal/infrastructure/database/entities"
)

// PostgresRepository persists chat records via PostgreSQL using GORM.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository creates a repository backed by the provided DB.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ domain.Repository = (*PostgresRepository)(nil)

// Search returns records ordered by timestamp descending. A non-empty term
// filters case-insensitively across the user, assistant and expert texts.
func (r *PostgresRepository) Search(ctx context.Context, term string, limit int) ([]domain.Record, error) {
	query := r.db.WithContext(ctx).Model(&entities.ChatRecord{})

	if trimmed := strings.TrimSpace(term); trimmed != "" {
		pattern := "%" + strings.ToLower(trimmed) + "%"
		query = query.Where(
			"LOWER(user_message) LIKE ? OR LOWER(assistant_response) LIKE ? OR LOWER(expert_response) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var rows []entities.ChatRecord
	if err := query.Order("timestamp DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.Record{
			ID:                row.ID,
			Timestamp:         row.Timestamp,
			ThreadID:          row.ThreadID,
			UserMessage:       row.UserMessage,
			AssistantResponse: row.AssistantResponse,
			ExpertResponse:    row.ExpertResponse,
			EndpointSource:    row.EndpointSource,
		})
	}
	return records, nil
}

// UpdateExpertResponse replaces the expert response of one record.
func (r *PostgresRepository) UpdateExpertResponse(ctx context.Context, id, expertResponse string) error {
	result := r.db.WithContext(ctx).
		Model(&entities.ChatRecord{}).
		Where("id = ?", id).
		Update("expert_response", expertResponse)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}
