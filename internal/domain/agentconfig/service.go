package agentconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrInvalidYAML reports an update whose YAML payload does not parse.
var ErrInvalidYAML = errors.New("invalid agents yaml")

// Service describes the agent configuration surface used by the admin panel.
type Service interface {
	Get(ctx context.Context) (Document, error)
	// Update validates, persists and reloads the configuration, returning
	// the saved payload.
	Update(ctx context.Context, doc Document) (Document, error)
}

type service struct {
	repo Repository
	log  zerolog.Logger
}

// NewService wires the agent configuration service with its repository.
func NewService(repo Repository, log zerolog.Logger) Service {
	return &service{
		repo: repo,
		log:  log.With().Str("component", "agentconfig-service").Logger(),
	}
}

func (s *service) Get(ctx context.Context) (Document, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("load agent configuration")
		return Document{}, err
	}
	return doc, nil
}

func (s *service) Update(ctx context.Context, doc Document) (Document, error) {
	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(doc.YAML), &parsed); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if doc.Instructions == nil {
		doc.Instructions = map[string]string{}
	}

	if err := s.repo.Save(ctx, doc); err != nil {
		s.log.Error().Err(err).Msg("save agent configuration")
		return Document{}, err
	}

	saved, err := s.repo.Load(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reload agent configuration")
		return Document{}, err
	}
	s.log.Info().Int("agents", len(saved.Instructions)).Msg("agent configuration reloaded")
	return saved, nil
}
