package expr

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"
)

// programCache is a thread-safe LRU cache of compiled expr-lang programs
// keyed by (entity uid, source hash), mirroring the expr-lang condition
// cache idiom: a map for O(1) lookup backed by a doubly linked list for
// O(1) recency tracking.
type programCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List
	mu       sync.RWMutex
}

type cacheEntry struct {
	key     string
	program *vm.Program
}

func newProgramCache(capacity int) *programCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &programCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func cacheKey(uid uuid.UUID, source string) string {
	sum := sha256.Sum256([]byte(source))
	return fmt.Sprintf("%s:%s", uid, hex.EncodeToString(sum[:8]))
}

func (c *programCache) get(key string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).program, true
}

func (c *programCache) put(key string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*cacheEntry).program = program
		return
	}
	el := c.order.PushFront(&cacheEntry{key: key, program: program})
	c.entries[key] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

func (c *programCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}
