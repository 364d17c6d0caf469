package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/Borislavv/go-localcache/config"
	"github.com/Borislavv/go-localcache/internal/cache/db/model"
	"github.com/Borislavv/go-localcache/store"
)

// Persist writes every live entry to the backing store under version, in chunks.
// With clear set the cache is emptied after a successful write.
func (c *Cache[V]) Persist(ctx context.Context, version string, clear bool) (written int, err error) {
	if err = c.checkPersistence(version); err != nil {
		return 0, err
	}

	c.persistLock.Lock()
	defer c.persistLock.Unlock()

	written, err = c.dump.Write(ctx, c.scope(version), c.db.Values(), c.opts.ChunkSize)
	if err != nil {
		return written, fmt.Errorf("persist cache %q: %w", c.name, err)
	}
	if clear {
		c.Clear()
	}
	return written, nil
}

// Load restores entries persisted under version and deletes the rows it read.
// Bounded caches read at most limit rows, newest first.
func (c *Cache[V]) Load(ctx context.Context, version string) (restored int, err error) {
	if err = c.checkPersistence(version); err != nil {
		return 0, err
	}

	c.persistLock.Lock()
	defer c.persistLock.Unlock()

	limit := c.opts.Limit
	if limit == config.NoLimit {
		limit = 0
	}

	var items []*model.Item[V]
	restored, err = c.dump.Read(ctx, c.scope(version), limit, func(item *model.Item[V]) {
		items = append(items, item)
	})
	// rows come newest first, oldest go to the front
	for i := len(items) - 1; i >= 0; i-- {
		c.insert(items[i])
	}
	if err != nil {
		return restored, fmt.Errorf("load cache %q: %w", c.name, err)
	}
	return restored, nil
}

func (c *Cache[V]) checkPersistence(version string) error {
	if !c.opts.Persistent {
		return fmt.Errorf("cache %q: %w", c.name, ErrNotPersistent)
	}
	if strings.TrimSpace(version) == "" {
		return fmt.Errorf("cache %q: %w", c.name, ErrVersionRequired)
	}
	if c.closed.Load() {
		return fmt.Errorf("cache %q: %w", c.name, ErrClosed)
	}
	return nil
}

func (c *Cache[V]) scope(version string) store.Scope {
	return store.Scope{CacheName: c.name, ShardName: c.shardName, Version: version}
}
