package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/msoedov/agentic-security/internal/log"
)

// defaultMemEntries bounds the in-memory front of the render cache.
const defaultMemEntries = 256

// Cache is a content-addressed cache for rendered multimodal payloads: an
// in-memory LRU in front of an on-disk directory keyed by a hash of the
// prompt. Concurrent writers to the same key are permitted — renders are
// deterministic given the prompt, so last-write-wins is safe.
type Cache struct {
	dir string
	mem *lru.Cache[string, []byte]
}

// NewCache creates a Cache rooted at dir, creating the directory if
// necessary.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("render: create cache dir: %w", err)
	}

	mem, err := lru.New[string, []byte](defaultMemEntries)
	if err != nil {
		return nil, err
	}

	return &Cache{dir: dir, mem: mem}, nil
}

// Renderer produces payload bytes for a prompt.
type Renderer func(prompt string) ([]byte, error)

// GetOrRender returns the cached render for (kind, prompt), computing and
// persisting it via render if absent.
func (c *Cache) GetOrRender(kind, prompt string, render Renderer) ([]byte, error) {
	key := cacheKey(kind, prompt)

	if data, ok := c.mem.Get(key); ok {
		return data, nil
	}

	path := filepath.Join(c.dir, key)

	if data, err := os.ReadFile(path); err == nil {
		c.mem.Add(key, data)

		return data, nil
	}

	data, err := render(prompt)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn(nil, "render: failed to persist cache entry", log.String("key", key), log.Cause(err))
	}

	c.mem.Add(key, data)

	return data, nil
}

func cacheKey(kind, prompt string) string {
	return fmt.Sprintf("%s-%016x", kind, xxhash.Sum64String(prompt))
}
