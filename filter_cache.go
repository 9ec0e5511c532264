package track

import "sync"

// ProgramCache stores compiled filter programs keyed by expression strings.
// All filter engines accept a shared cache so repeated subscriptions with the
// same expression compile once.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// NewMemoryProgramCache returns a mutex-guarded in-memory ProgramCache.
func NewMemoryProgramCache() ProgramCache {
	return &memoryProgramCache{programs: make(map[string]any)}
}

type memoryProgramCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

func (c *memoryProgramCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

func (c *memoryProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = value
}
