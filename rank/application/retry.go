package application

import (
	"context"

	"serp-rank/rank/domain"
)

// RetryExtractor é um Extractor com retry e backoff exponencial do
// Coordinator. A política de retry pertence ao extrator, não ao orquestrador.
type RetryExtractor struct {
	Next        domain.Extractor
	Coordinator *Coordinator
	// MaxRetries <= 0 usa DefaultMaxRetries.
	MaxRetries int
	// TransientOnly não repete falhas de categoria não transitória
	// (dom, parsing, validation, unknown).
	TransientOnly bool
}

func (r RetryExtractor) Extract(ctx context.Context) ([]domain.ResultRecord, error) {
	c := r.Coordinator
	if c == nil {
		c = NewCoordinator()
	}
	return ExecuteWithRetry(ctx, c, "extractPage", nil, r.MaxRetries, func(ctx context.Context) ([]domain.ResultRecord, error) {
		out, err := r.Next.Extract(ctx)
		if err != nil && r.TransientOnly && !c.CategorizeError(err, nil).Transient() {
			return nil, Permanent(err)
		}
		return out, err
	})
}
