package usecase

import (
	"context"
	"strings"

	"docindex/internal/domain"
	"docindex/internal/port"
)

// ContextExpander replaces each hit's text with the window of chunks around
// it. Hit order is kept as ranked.
type ContextExpander struct {
	store port.Reader
}

func NewContextExpander(store port.Reader) *ContextExpander {
	return &ContextExpander{store: store}
}

// Expand joins chunks [i-window, i+window] of each hit's document with a
// single space. The store clamps the range at document edges, so a hit at
// index 0 with window 1 yields chunks 0 and 1.
func (e *ContextExpander) Expand(ctx context.Context, hits []domain.SearchHit, window int) ([]domain.Result, error) {
	results := make([]domain.Result, len(hits))
	for i, h := range hits {
		results[i] = domain.Result{
			DocumentID: h.DocumentID,
			Index:      h.Index,
			Text:       h.Text,
			Distance:   h.Distance,
		}
		if window <= 0 {
			continue
		}

		texts, err := e.store.GetChunksInRange(ctx, h.DocumentID, h.Index-window, h.Index+window)
		if err != nil {
			return nil, domain.Dependency("expand neighbors", err)
		}
		results[i].Text = strings.Join(texts, " ")
	}
	return results, nil
}
