package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"psp.com/quizla/backend/internal/settings"
)

const SettingsKey = "quizla-settings"

type SettingsStore struct {
	store *Store
}

func NewSettingsStore(s *Store) *SettingsStore { return &SettingsStore{store: s} }

// Load merges the stored record over the defaults. A missing record yields
// the defaults; a corrupt one yields the defaults and the decode error.
func (s *SettingsStore) Load(ctx context.Context) (settings.Settings, error) {
	out := settings.Default()
	raw, _, err := s.store.Get(ctx, SettingsKey)
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return settings.Default(), fmt.Errorf("decoding settings: %w", err)
	}
	out.Normalize()
	return out, nil
}

func (s *SettingsStore) Save(ctx context.Context, v settings.Settings) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return s.store.Put(ctx, SettingsKey, raw, time.Now())
}
