package speech

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/hammamikhairi/deskmate/internal/logger"
)

// DefaultCacheEntries bounds the in-memory layer of an AudioCache.
const DefaultCacheEntries = 256

// AudioCache keeps synthesized audio keyed by sha256(voice + ":" + text),
// so switching voices misses instead of replaying the wrong speaker.
// Memory is a bounded LRU; an optional directory persists entries across
// runs and is always read, even when writes are off.
type AudioCache struct {
	voice     string
	dir       string
	diskWrite bool
	max       int
	log       *logger.Logger

	mu      sync.Mutex
	order   *list.List               // front = most recently used
	entries map[string]*list.Element // key -> element holding *cacheEntry
	hits    int64
	misses  int64
}

type cacheEntry struct {
	key   string
	audio []byte
}

// NewAudioCache creates a cache. An empty dir disables the disk layer.
func NewAudioCache(voice, dir string, diskWrite bool, log *logger.Logger) *AudioCache {
	c := &AudioCache{
		voice:     voice,
		dir:       dir,
		diskWrite: diskWrite,
		max:       DefaultCacheEntries,
		log:       log,
		order:     list.New(),
		entries:   make(map[string]*list.Element),
	}
	if dir != "" && diskWrite {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("cache: creating %s: %v", dir, err)
		}
	}
	return c
}

// Get returns cached audio for text, promoting disk hits into memory.
func (c *AudioCache) Get(text string) ([]byte, bool) {
	key := c.key(text)

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		c.hits++
		audio := el.Value.(*cacheEntry).audio
		c.mu.Unlock()
		return audio, true
	}
	c.mu.Unlock()

	if c.dir != "" {
		if audio, err := os.ReadFile(c.path(key)); err == nil {
			c.mu.Lock()
			c.insertLocked(key, audio)
			c.hits++
			c.mu.Unlock()
			c.log.Debug("cache: disk hit %s", key[:12])
			return audio, true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, false
}

// Put stores audio for text in memory and, when enabled, on disk.
func (c *AudioCache) Put(text string, audio []byte) {
	key := c.key(text)

	c.mu.Lock()
	c.insertLocked(key, audio)
	c.mu.Unlock()

	if c.dir == "" || !c.diskWrite {
		return
	}
	if err := os.WriteFile(c.path(key), audio, 0o644); err != nil {
		c.log.Error("cache: disk write %s: %v", key[:12], err)
	}
}

// Has reports whether text is cached in memory or on disk.
func (c *AudioCache) Has(text string) bool {
	key := c.key(text)
	c.mu.Lock()
	_, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return true
	}
	if c.dir == "" {
		return false
	}
	_, err := os.Stat(c.path(key))
	return err == nil
}

// Len returns the number of in-memory entries.
func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns hit and miss counters.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *AudioCache) insertLocked(key string, audio []byte) {
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).audio = audio
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, audio: audio})
	for c.max > 0 && c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *AudioCache) key(text string) string {
	h := sha256.Sum256([]byte(c.voice + ":" + text))
	return hex.EncodeToString(h[:])
}

func (c *AudioCache) path(key string) string {
	return filepath.Join(c.dir, key+".wav")
}
