// Package cache keeps transformed modules between bundling runs so that an
// unchanged file skips parsing and transformation.
package cache

import (
	"sync"

	"github.com/tristendillon/minibundle/core/loader"
	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/models"
)

// Entry is the cached result of parsing and transforming one file.
type Entry struct {
	Path        string
	ContentHash string
	Salt        string
	Code        string
	Imports     []models.ImportRecord
}

type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
	HitRate float64
}

// ModuleCache is an in-memory cache keyed by canonical path, optionally
// backed by a DiskCache. An entry is only returned when both the content
// hash and the build salt still match.
type ModuleCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	disk    *DiskCache
	salt    string
	stats   struct {
		hits   int64
		misses int64
	}
}

// New creates a cache. disk may be nil.
func New(salt string, disk *DiskCache) *ModuleCache {
	return &ModuleCache{
		entries: make(map[string]*Entry),
		disk:    disk,
		salt:    salt,
	}
}

// Salt derives a build salt from everything that changes transformer output.
func Salt(parts ...string) string {
	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
		buf = append(buf, 0)
	}
	return loader.Hash(buf)
}

func (c *ModuleCache) Get(path, contentHash string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[path]; ok && c.valid(entry, contentHash) {
		c.stats.hits++
		logger.Debug("ModuleCache: Memory hit for %s", path)
		return entry, true
	}

	if c.disk != nil {
		entry, ok, err := c.disk.Get(path)
		if err != nil {
			logger.Warn("ModuleCache: Ignoring unreadable disk entry for %s: %v", path, err)
		} else if ok && c.valid(entry, contentHash) {
			c.entries[path] = entry
			c.stats.hits++
			logger.Debug("ModuleCache: Disk hit for %s", path)
			return entry, true
		}
	}

	c.stats.misses++
	return nil, false
}

func (c *ModuleCache) valid(entry *Entry, contentHash string) bool {
	return entry.ContentHash == contentHash && entry.Salt == c.salt
}

// Put stores entry under its path, stamping it with the cache's salt.
func (c *ModuleCache) Put(entry Entry) {
	entry.Salt = c.salt
	entry.Imports = append([]models.ImportRecord(nil), entry.Imports...)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Path] = &entry
	if c.disk != nil {
		if err := c.disk.Put(&entry); err != nil {
			logger.Warn("ModuleCache: Failed to persist %s: %v", entry.Path, err)
		}
	}
}

func (c *ModuleCache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[path]; ok {
		delete(c.entries, path)
		logger.Debug("ModuleCache: Removed entry for %s", path)
	}
}

func (c *ModuleCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.stats.hits + c.stats.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.stats.hits) / float64(total) * 100
	}

	return Stats{
		Entries: len(c.entries),
		Hits:    c.stats.hits,
		Misses:  c.stats.misses,
		HitRate: hitRate,
	}
}
