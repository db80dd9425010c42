package history

import (
	"context"

	"github.com/rs/zerolog"
)

// maxHistoryRows caps every history query, matching the review panel's page.
const maxHistoryRows = 200

// Service describes the business logic surface for history review.
type Service interface {
	GetHistory(ctx context.Context, searchTerm string) ([]Record, error)
	UpdateExpertResponse(ctx context.Context, id, expertResponse string) error
}

type service struct {
	repo Repository
	log  zerolog.Logger
}

// NewService wires the history service with its repository.
func NewService(repo Repository, log zerolog.Logger) Service {
	return &service{
		repo: repo,
		log:  log.With().Str("component", "history-service").Logger(),
	}
}

func (s *service) GetHistory(ctx context.Context, searchTerm string) ([]Record, error) {
	records, err := s.repo.Search(ctx, searchTerm, maxHistoryRows)
	if err != nil {
		s.log.Error().Err(err).Str("search_term", searchTerm).Msg("query chat history")
		return nil, err
	}
	return records, nil
}

func (s *service) UpdateExpertResponse(ctx context.Context, id, expertResponse string) error {
	if err := s.repo.UpdateExpertResponse(ctx, id, expertResponse); err != nil {
		s.log.Error().Err(err).Str("record_id", id).Msg("update expert response")
		return err
	}
	s.log.Info().Str("record_id", id).Msg("expert response updated")
	return nil
}
