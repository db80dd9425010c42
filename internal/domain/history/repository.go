package history

import (
	"context"
	"errors"
)

// ErrRecordNotFound reports an expert-response update against an unknown id.
var ErrRecordNotFound = errors.New("chat record not found")

// Repository exposes data access for chat history records.
type Repository interface {
	// Search returns records ordered by timestamp descending, capped at
	// limit rows. An empty term returns the most recent records unfiltered.
	Search(ctx context.Context, term string, limit int) ([]Record, error)
	// UpdateExpertResponse replaces the expert response of one record.
	UpdateExpertResponse(ctx context.Context, id, expertResponse string) error
}
