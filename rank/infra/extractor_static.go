package infra

import (
	"context"

	"serp-rank/rank/domain"
)

// StaticExtractor devolve sempre os mesmos registros (ou Err).
// Posições zeradas são preenchidas pela ordem da lista.
type StaticExtractor struct {
	Records []domain.ResultRecord
	Err     error
}

func (s StaticExtractor) Extract(ctx context.Context) ([]domain.ResultRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]domain.ResultRecord, len(s.Records))
	for i, r := range s.Records {
		if r.Position == 0 {
			r.Position = i + 1
		}
		if r.Type == "" {
			r.Type = domain.ResultOrganic
		}
		out[i] = r
	}
	return out, nil
}
