package history

import (
	"context"
	"sync"

	"recovery-engine/pkg/models"
)

// ProfileCache caches computed payment profiles per customer. Profiles are
// advisory and recomputed on demand, so a stale or missing entry is never
// an error.
type ProfileCache interface {
	Get(ctx context.Context, customerID string) (models.PaymentProfile, bool)
	Set(ctx context.Context, customerID string, profile models.PaymentProfile) error
}

// MemoryProfileCache is an in-process ProfileCache.
type MemoryProfileCache struct {
	mu   sync.RWMutex
	data map[string]models.PaymentProfile
}

// NewMemoryProfileCache creates an empty in-memory cache.
func NewMemoryProfileCache() *MemoryProfileCache {
	return &MemoryProfileCache{
		data: make(map[string]models.PaymentProfile),
	}
}

func (c *MemoryProfileCache) Get(_ context.Context, customerID string) (models.PaymentProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.data[customerID]
	return p, ok
}

func (c *MemoryProfileCache) Set(_ context.Context, customerID string, profile models.PaymentProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[customerID] = profile
	return nil
}
