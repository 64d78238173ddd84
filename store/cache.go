package store

import (
	"sync"

	"github.com/blockvault/sealvault/digest"
)

// existenceCache is an in-memory set of digests known to be present on
// disk. It is a pure optimization ahead of os.Stat calls in Has — never
// a correctness gate, since Put is idempotent regardless of whether the
// cache is warm, stale, or empty. Adapted from the teacher's
// index.MemoryIndex, narrowed from a full hash->Chunk dedup index down to
// a bare existence set, since the store itself (not a side index) is now
// the metadata authority.
type existenceCache struct {
	mu   sync.RWMutex
	seen map[digest.Digest]struct{}
}

func newExistenceCache() *existenceCache {
	return &existenceCache{seen: make(map[digest.Digest]struct{})}
}

func (c *existenceCache) has(d digest.Digest) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.seen[d]
	return ok
}

func (c *existenceCache) add(d digest.Digest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[d] = struct{}{}
}
