package texture

import (
	"context"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/braheezy/glmodel/internal/gpu"
)

// Cache maps image paths to uploaded textures so every file is decoded and
// uploaded at most once. Entries are never evicted.
type Cache struct {
	mu      sync.Mutex
	loader  *Loader
	log     *zap.Logger
	entries map[string]gpu.TextureHandle
	order   []string
	// decoded images waiting for their GPU upload
	pending map[string]gpu.TextureImage
}

// NewCache returns an empty cache loading misses through loader.
func NewCache(loader *Loader, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		loader:  loader,
		log:     log,
		entries: make(map[string]gpu.TextureHandle),
		pending: make(map[string]gpu.TextureImage),
	}
}

func cacheKey(path string) string {
	return filepath.Clean(path)
}

// LookupOrLoad returns the texture for path, loading and uploading it on the
// first request. A failed load records nothing; the returned texture then
// carries gpu.InvalidTexture and the error wraps ErrNotFound or ErrDecodeFailed.
//
// Entries are keyed by path alone. A hit returns the cached handle labelled
// with the requested kind, not the kind of the first request, so one image
// can serve as diffuse in one material and specular in another.
func (c *Cache) LookupOrLoad(path string, kind Kind) (Texture, error) {
	key := cacheKey(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.entries[key]; ok {
		return Texture{ID: id, Kind: kind, Path: key}, nil
	}

	var (
		id  gpu.TextureHandle
		err error
	)
	if img, ok := c.pending[key]; ok {
		delete(c.pending, key)
		id, err = c.loader.Upload(&img)
	} else {
		id, err = c.loader.Load(key)
	}
	if err != nil {
		return Texture{ID: gpu.InvalidTexture, Kind: kind, Path: key}, err
	}

	c.entries[key] = id
	c.order = append(c.order, key)
	c.log.Debug("texture loaded",
		zap.String("path", key),
		zap.String("kind", string(kind)),
		zap.Uint32("id", uint32(id)),
	)
	return Texture{ID: id, Kind: kind, Path: key}, nil
}

// Prefetch decodes the images of every uncached path on up to workers
// goroutines. Their GPU upload is deferred to LookupOrLoad, which must still
// run on the context's thread. Decode failures are only logged; the later
// lookup retries and reports them.
func (c *Cache) Prefetch(ctx context.Context, paths []string, workers int) error {
	if workers < 1 {
		workers = 1
	}

	c.mu.Lock()
	seen := make(map[string]bool, len(paths))
	var todo []string
	for _, p := range paths {
		key := cacheKey(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, ok := c.entries[key]; ok {
			continue
		}
		if _, ok := c.pending[key]; ok {
			continue
		}
		todo = append(todo, key)
	}
	c.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, key := range todo {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := c.loader.Decode(key)
			if err != nil {
				c.log.Debug("texture prefetch failed", zap.String("path", key), zap.Error(err))
				return nil
			}
			c.mu.Lock()
			c.pending[key] = img
			c.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// Discard drops prefetched images of paths that were never uploaded.
func (c *Cache) Discard(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		delete(c.pending, cacheKey(p))
	}
}

// Pending returns the number of decoded images waiting for upload.
func (c *Cache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Len returns the number of uploaded textures.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Paths returns the cached paths in load order.
func (c *Cache) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// Release deletes every cached texture from the GPU and empties the cache.
// Meshes still referencing those textures must not be drawn afterwards.
func (c *Cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.order {
		c.loader.device.DeleteTexture(c.entries[key])
	}
	c.entries = make(map[string]gpu.TextureHandle)
	c.pending = make(map[string]gpu.TextureImage)
	c.order = nil
}
