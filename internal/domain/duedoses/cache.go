package duedoses

import (
	"strings"
	"sync"
	"time"
)

// dueCache es un cache TTL chico para las vistas "due now".
// El recorder lo invalida tras cada registro (post-condición explícita).
type dueCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]dueEntry
}

type dueEntry struct {
	val Grouped
	at  time.Time
}

func newDueCache(ttl time.Duration) *dueCache {
	return &dueCache{
		ttl:     ttl,
		entries: make(map[string]dueEntry),
	}
}

func cacheKey(householdID, animalID string) string {
	return householdID + "|" + animalID
}

func (c *dueCache) get(key string, now time.Time) (Grouped, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || now.Sub(e.at) > c.ttl {
		return Grouped{}, false
	}
	return e.val, true
}

func (c *dueCache) set(key string, val Grouped, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = dueEntry{val: val, at: now}
}

// invalidate borra las entradas del hogar: la del animal puntual y la del
// hogar completo (y todo el hogar si no hay animal).
func (c *dueCache) invalidate(householdID, animalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if animalID == "" {
		prefix := householdID + "|"
		for k := range c.entries {
			if strings.HasPrefix(k, prefix) {
				delete(c.entries, k)
			}
		}
		return
	}

	delete(c.entries, cacheKey(householdID, animalID))
	delete(c.entries, cacheKey(householdID, ""))
}
