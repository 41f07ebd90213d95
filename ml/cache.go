package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const DefaultArtifactCacheSize = 4

// ArtifactCache keeps loaded classifiers keyed by artifact path. Watch evicts
// an entry as soon as its file changes on disk, so a replaced artifact is
// served from the next request on without a restart.
type ArtifactCache struct {
	entries *lru.Cache[string, Classifier]

	// generations counts evictions per path. A load only populates the cache
	// if no eviction happened for its path while it was reading.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewArtifactCache(size int) (*ArtifactCache, error) {
	if size <= 0 {
		size = DefaultArtifactCacheSize
	}
	entries, err := lru.New[string, Classifier](size)
	if err != nil {
		return nil, err
	}
	return &ArtifactCache{entries: entries, generations: make(map[string]uint64)}, nil
}

// Get returns the cached classifier for path, loading it on a miss. The
// boolean reports whether the value came from the cache.
func (c *ArtifactCache) Get(path string, load Loader) (Classifier, bool, error) {
	key := filepath.Clean(path)
	if model, ok := c.entries.Get(key); ok {
		return model, true, nil
	}

	c.mu.Lock()
	generation := c.generations[key]
	c.mu.Unlock()

	model, err := load(key)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	if c.generations[key] == generation {
		c.entries.Add(key, model)
	}
	c.mu.Unlock()
	return model, false, nil
}

func (c *ArtifactCache) Evict(path string) bool {
	key := filepath.Clean(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[key]++
	return c.entries.Remove(key)
}

func (c *ArtifactCache) Len() int {
	return c.entries.Len()
}

// Watch starts watching dir until ctx is done.
func (c *ArtifactCache) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					if c.Evict(event.Name) {
						zap.L().Info("Model artifact changed, evicted from cache",
							zap.String("path", event.Name),
							zap.String("op", event.Op.String()))
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.L().Warn("Artifact watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
