package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryDenylist keeps revoked token ids in process memory. It is used
// when Redis is disabled and only covers a single API instance.
type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryDenylist creates an empty in-memory denylist
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke marks tokenID revoked until expiresAt
func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.purge()
	if expiresAt.After(d.now()) {
		d.revoked[tokenID] = expiresAt
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not yet expired
func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	expiresAt, ok := d.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(d.now()) {
		delete(d.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

// HealthCheck always succeeds
func (d *MemoryDenylist) HealthCheck(context.Context) error {
	return nil
}

// GetConnectionInfo reports the backend and how many ids it tracks
func (d *MemoryDenylist) GetConnectionInfo() map[string]interface{} {
	return map[string]interface{}{
		"backend": "memory",
		"revoked": d.Len(),
	}
}

// Len returns the number of tracked ids
func (d *MemoryDenylist) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.revoked)
}

// purge drops expired entries; callers hold mu
func (d *MemoryDenylist) purge() {
	now := d.now()
	for id, expiresAt := range d.revoked {
		if !expiresAt.After(now) {
			delete(d.revoked, id)
		}
	}
}
