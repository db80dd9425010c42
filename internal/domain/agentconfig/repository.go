package agentconfig

import "context"

// Repository stores the singleton agent configuration document.
type Repository interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}
