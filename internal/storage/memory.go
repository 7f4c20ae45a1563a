package storage

import (
	"context"
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implements [Store] on a go-cache instance. Entries never expire.
type MemoryStore struct {
	c     *gocache.Cache
	scope string
}

// NewMemoryStore binds scope to c. A nil c gets a private cache.
func NewMemoryStore(c *gocache.Cache, scope string) *MemoryStore {
	if c == nil {
		c = gocache.New(gocache.NoExpiration, 0)
	}
	return &MemoryStore{c: c, scope: scope}
}

func (m *MemoryStore) Scope() string { return m.scope }

func (m *MemoryStore) key(k string) string { return m.scope + ":" + k }

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.c.Set(m.key(key), value, gocache.NoExpiration)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.c.Delete(m.key(key))
	return nil
}

// Keys lists the keys stored in this scope.
func (m *MemoryStore) Keys(_ context.Context) ([]string, error) {
	prefix := m.scope + ":"
	var keys []string
	for k := range m.c.Items() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	return keys, nil
}
