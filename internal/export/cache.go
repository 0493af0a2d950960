package export

import (
	"container/list"
	"sync"

	"github.com/brandsight/rfpd/internal/project"
)

// cacheKey identifies one rendered document. Title and file name are
// immutable after creation and the analysis is attached exactly once, so
// (project, format, analyzed) fully determines the output.
type cacheKey struct {
	projectID string
	format    Format
	analyzed  bool
}

type cacheEntry struct {
	key  cacheKey
	body []byte
}

// RenderCache memoizes rendered summary documents with LRU eviction.
// Thread-safe; all operations are O(1) except Forget.
type RenderCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[cacheKey]*list.Element
}

// NewRenderCache creates a cache holding up to capacity rendered documents.
func NewRenderCache(capacity int) *RenderCache {
	if capacity < 1 {
		capacity = 1
	}
	return &RenderCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[cacheKey]*list.Element, capacity),
	}
}

// Rendered returns the document for the project in the given format,
// rendering and caching it on a miss.
func (c *RenderCache) Rendered(p *project.Project, f Format) []byte {
	key := cacheKey{projectID: p.ID, format: f, analyzed: p.Analysis != nil}

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		body := el.Value.(*cacheEntry).body
		c.mu.Unlock()
		return body
	}
	c.mu.Unlock()

	body := Render(p)

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).body
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, body: body})
	for len(c.items) > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
	return body
}

// Forget drops every cached rendering for a project. Called on deletion.
func (c *RenderCache) Forget(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.items {
		if key.projectID == projectID {
			c.order.Remove(el)
			delete(c.items, key)
		}
	}
}

// Len returns the number of cached documents.
func (c *RenderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
