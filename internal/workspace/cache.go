package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	key  string
	text string
}

// ContentCache serves file contents keyed by path and modification stamp.
// Concurrent reads of the same unchanged file share one disk read.
type ContentCache struct {
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry

	stat func(string) (fs.FileInfo, error)
	read func(string) ([]byte, error)
}

// NewContentCache returns a cache reading from the OS file system.
func NewContentCache() *ContentCache {
	return &ContentCache{
		entries: make(map[string]cacheEntry),
		stat:    os.Stat,
		read:    os.ReadFile,
	}
}

func stampKey(path string, fi fs.FileInfo) string {
	return fmt.Sprintf("%s@%d:%d", path, fi.ModTime().UnixNano(), fi.Size())
}

// Read returns the current content of path.
func (c *ContentCache) Read(ctx context.Context, path string) (string, error) {
	fi, err := c.stat(path)
	if err != nil {
		return "", err
	}
	key := stampKey(path, fi)

	c.mu.Lock()
	if e, ok := c.entries[path]; ok && e.key == key {
		c.mu.Unlock()
		return e.text, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		data, err := c.read(path)
		if err != nil {
			return "", err
		}
		text := string(data)
		c.mu.Lock()
		c.entries[path] = cacheEntry{key: key, text: text}
		c.mu.Unlock()
		return text, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached content of path.
func (c *ContentCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}
