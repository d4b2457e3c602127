package template

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed documents a Cache keeps
const DefaultCacheSize = 64

type cacheKey struct {
	uri     string
	version int32
}

type parsed struct {
	root     *Node
	fragment *Fragment
	err      error
}

// Cache memoizes Parse results per document version. Parse errors are
// cached too, so a broken template is reported without re-parsing.
type Cache struct {
	entries *lru.Cache[cacheKey, parsed]
}

// NewCache creates a cache holding up to size documents
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[cacheKey, parsed](size)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Cache{entries: entries}
}

// Parse returns the parse of text, which must be the content of uri at
// version.
func (c *Cache) Parse(uri string, version int32, text string) (*Node, *Fragment, error) {
	key := cacheKey{uri: uri, version: version}
	if hit, ok := c.entries.Get(key); ok {
		return hit.root, hit.fragment, hit.err
	}
	root, fragment, err := Parse(text)
	c.entries.Add(key, parsed{root: root, fragment: fragment, err: err})
	return root, fragment, err
}

// Forget drops every cached version of uri
func (c *Cache) Forget(uri string) {
	for _, key := range c.entries.Keys() {
		if key.uri == uri {
			c.entries.Remove(key)
		}
	}
}

// Len returns the number of cached parses
func (c *Cache) Len() int {
	return c.entries.Len()
}
