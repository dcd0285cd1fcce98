package probe

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/vmihailenco/msgpack/v5"
)

// Bump when the cached FileInfo layout changes.
const cacheSchemaVersion uint16 = 1

// Cache stores probe results on a filesystem, one msgpack file per probed
// file. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	fs  billy.Filesystem
	dir string
}

type cachePayload struct {
	Schema uint16
	Path   string
	Info   FileInfo
}

// NewCache returns a cache rooted at dir on fs.
func NewCache(fs billy.Filesystem, dir string) (*Cache, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{fs: fs, dir: dir}, nil
}

func (c *Cache) entryDir() string {
	return path.Join(c.dir, "probe")
}

func (c *Cache) pathFor(key string) string {
	return path.Join(c.entryDir(), key+".mp")
}

// Key derives the cache key of a file from its path, size and modification
// time, so that rewritten files are probed again.
func Key(path string, info os.FileInfo) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// Put writes info under key. The payload is written to a temporary file and
// renamed into place.
func (c *Cache) Put(key, path string, info *FileInfo) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	dir := c.entryDir()
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := util.TempFile(c.fs, dir, "tmp-")
	if err != nil {
		return err
	}

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(&cachePayload{Schema: cacheSchemaVersion, Path: path, Info: *info}); err != nil {
		f.Close()
		_ = c.fs.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		_ = c.fs.Remove(f.Name())
		return err
	}
	return c.fs.Rename(f.Name(), p)
}

// Get reads the payload stored under key. Entries from another schema
// version or for another path count as misses.
func (c *Cache) Get(key, path string) (*FileInfo, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := c.fs.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload cachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	if payload.Schema != cacheSchemaVersion || payload.Path != path {
		return nil, false, nil
	}
	return &payload.Info, true, nil
}

// CachedProber answers from a Cache and falls back to an inner prober,
// storing its results. The cache key is taken from fs.Stat of the probed file.
type CachedProber struct {
	inner  Prober
	cache  *Cache
	fs     billy.Filesystem
	logger *slog.Logger
}

// NewCachedProber wraps inner with cache. logger may be nil.
func NewCachedProber(inner Prober, cache *Cache, fs billy.Filesystem, logger *slog.Logger) *CachedProber {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachedProber{inner: inner, cache: cache, fs: fs, logger: logger}
}

// Probe implements Prober.
func (p *CachedProber) Probe(path string) (*FileInfo, error) {
	stat, err := p.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	key := Key(path, stat)

	info, ok, err := p.cache.Get(key, path)
	if err != nil {
		p.logger.Warn("ignoring unreadable probe cache entry", "path", path, "error", err)
	} else if ok {
		p.logger.Debug("probe cache hit", "path", path)
		return info, nil
	}

	info, err = p.inner.Probe(path)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Put(key, path, info); err != nil {
		p.logger.Warn("failed to store probe result", "path", path, "error", err)
	}
	return info, nil
}
