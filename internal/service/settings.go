package service

import (
	"context"
	"sync"

	"parking-service/internal/model"
	"parking-service/internal/repository"
)

// SettingsStore holds the parking lot capacity.
type SettingsStore interface {
	TotalSlots(ctx context.Context) (int, error)
	SetTotalSlots(ctx context.Context, slots int) error
}

// MemorySettings is used in remote mode where no database is configured.
type MemorySettings struct {
	mu    sync.RWMutex
	slots int
}

func NewMemorySettings(slots int) *MemorySettings {
	return &MemorySettings{slots: slots}
}

func (m *MemorySettings) TotalSlots(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slots, nil
}

func (m *MemorySettings) SetTotalSlots(_ context.Context, slots int) error {
	m.mu.Lock()
	m.slots = slots
	m.mu.Unlock()
	return nil
}

// RepositorySettings persists settings in parking_settings and falls back
// to the configured default until the first write.
type RepositorySettings struct {
	repo     *repository.SettingsRepository
	fallback int
}

func NewRepositorySettings(repo *repository.SettingsRepository, fallback int) *RepositorySettings {
	return &RepositorySettings{repo: repo, fallback: fallback}
}

func (r *RepositorySettings) TotalSlots(ctx context.Context) (int, error) {
	v, err := r.repo.GetInt(ctx, model.SettingTotalSlots)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return r.fallback, nil
	}
	return *v, nil
}

func (r *RepositorySettings) SetTotalSlots(ctx context.Context, slots int) error {
	return r.repo.SetInt(ctx, model.SettingTotalSlots, slots)
}
