package application

import (
	"context"
	"encoding/json"
	"sync"

	"serp-rank/rank/domain"
)

// snapshotWriter grava snapshots versionados de um log em uma chave do KV.
//
// O lock do log nunca é mantido durante o I/O: quem chama tira o snapshot com
// um número de sequência e writeSnapshot descarta snapshots mais velhos que o
// último gravado.
type snapshotWriter struct {
	kv  domain.KV
	key string

	mu      sync.Mutex
	written uint64
}

func (w *snapshotWriter) enabled() bool { return w != nil && w.kv != nil }

func (w *snapshotWriter) writeSnapshot(ctx context.Context, seq uint64, v any) error {
	if !w.enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq <= w.written {
		return nil
	}
	if err := w.kv.Set(ctx, w.key, data); err != nil {
		return err
	}
	w.written = seq
	return nil
}

// readSnapshot devolve ok=false quando a chave não existe.
func (w *snapshotWriter) readSnapshot(ctx context.Context, dst any) (bool, error) {
	if !w.enabled() {
		return false, nil
	}
	data, ok, err := w.kv.Get(ctx, w.key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}
