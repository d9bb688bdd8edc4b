package stores

import (
	"context"
	"sync"
)

// MemoryCache is an in-process ScheduleCache. It is the default backing
// when no persistent cache is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

var _ ScheduleCache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

// Get implements ScheduleCache.
func (c *MemoryCache) Get(_ context.Context, scheduleName string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	taskDefinition, ok := c.entries[scheduleName]
	return taskDefinition, ok, nil
}

// Put implements ScheduleCache.
func (c *MemoryCache) Put(_ context.Context, scheduleName, taskDefinition string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scheduleName] = taskDefinition
	return nil
}

// Remove implements ScheduleCache.
func (c *MemoryCache) Remove(_ context.Context, scheduleName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, scheduleName)
	return nil
}

// Entries implements ScheduleCache.
func (c *MemoryCache) Entries(_ context.Context) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out, nil
}

// Close implements ScheduleCache.
func (c *MemoryCache) Close() error { return nil }
