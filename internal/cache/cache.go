package cache

import (
	"context"
	"time"

	"smartstore/pos/internal/domain"
)

// SettingsCache fronts the settings table. Checkout reads the tax rate on
// every sale, so a short TTL cache keeps that off the hot path.
type SettingsCache interface {
	Get(ctx context.Context, key string) (*domain.Settings, bool, error)
	Set(ctx context.Context, key string, value *domain.Settings, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopSettingsCache struct{}

func (NoopSettingsCache) Get(_ context.Context, _ string) (*domain.Settings, bool, error) {
	return nil, false, nil
}

func (NoopSettingsCache) Set(_ context.Context, _ string, _ *domain.Settings, _ time.Duration) error {
	return nil
}

func (NoopSettingsCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
