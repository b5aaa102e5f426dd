package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariebrainware/physio-pain-assessment/model"
)

// NamespaceKey is the fixed key under which session history is persisted.
const NamespaceKey = "physio-pain-storage"

const historyVersion = 1

// historyDocument is the persisted layout: only the session list, never the live session.
type historyDocument struct {
	Version  int                       `json:"version"`
	Sessions []model.AssessmentSession `json:"sessions"`
}

// HistoryRepository reads and writes the session history document.
type HistoryRepository struct {
	kv  KV
	key string
}

// NewHistoryRepository stores history under NamespaceKey in kv.
func NewHistoryRepository(kv KV) *HistoryRepository {
	return &HistoryRepository{kv: kv, key: NamespaceKey}
}

// LoadHistory returns the persisted sessions; a store that was never written yields an empty list.
func (h *HistoryRepository) LoadHistory(ctx context.Context) ([]model.AssessmentSession, error) {
	raw, err := h.kv.Get(ctx, h.key)
	if errors.Is(err, ErrNotFound) {
		return []model.AssessmentSession{}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc historyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode session history: %w", err)
	}
	if doc.Sessions == nil {
		doc.Sessions = []model.AssessmentSession{}
	}
	return doc.Sessions, nil
}

// SaveHistory replaces the persisted session list.
func (h *HistoryRepository) SaveHistory(ctx context.Context, sessions []model.AssessmentSession) error {
	if sessions == nil {
		sessions = []model.AssessmentSession{}
	}
	raw, err := json.Marshal(historyDocument{Version: historyVersion, Sessions: sessions})
	if err != nil {
		return fmt.Errorf("encode session history: %w", err)
	}
	return h.kv.Put(ctx, h.key, raw)
}
