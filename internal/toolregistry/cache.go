package toolregistry

import "sync"

// SchemaCache is the process-scoped cache of managed-API Swagger documents,
// keyed by API name, so a document already fetched is served from memory
// instead of being fetched again. A refresh clears it, so a refresh fetches
// every API's document anew.
type SchemaCache struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewSchemaCache returns an empty cache.
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{docs: map[string][]byte{}}
}

// CacheGet returns the cached document for apiName, if present.
func (c *SchemaCache) CacheGet(apiName string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[apiName]
	return doc, ok
}

// CachePut stores doc under apiName, overwriting any previous entry.
func (c *SchemaCache) CachePut(apiName string, doc []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[apiName] = doc
}

// CacheClear empties the cache. This is the only effect of a refresh on
// stored state; the tool registry itself is left untouched so refresh is
// additive.
func (c *SchemaCache) CacheClear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = map[string][]byte{}
}

// Len reports how many documents are cached.
func (c *SchemaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}
