// Package dedup suppresses duplicate events arriving in quick succession.
// Shell hooks and editor plugins often fire the same event several times
// (prompt redraws, double saves); only the first within a short window is
// stored.
package dedup

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"
)

// Config tunes the deduplication window and cache bounds.
type Config struct {
	// Window is how long two identical events count as one.
	Window time.Duration
	// MaxEntries bounds the cache; when full, the oldest quarter is evicted.
	MaxEntries int
	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Window:          2 * time.Second,
		MaxEntries:      10000,
		CleanupInterval: time.Minute,
	}
}

// Key identifies an event for deduplication purposes. Two events with the
// same key arriving within the window are duplicates.
type Key struct {
	Source      string
	EventType   string
	ContentHash uint64
}

// NewKey hashes arbitrary content into a key.
func NewKey(source, eventType, content string) Key {
	h := fnv.New64a()
	h.Write([]byte(content))
	return Key{Source: source, EventType: eventType, ContentHash: h.Sum64()}
}

// ShellKey keys a shell command; the exit code is part of the identity so a
// failing retry of the same command is not a duplicate of its success.
func ShellKey(command string, exitCode int) Key {
	return NewKey("shell", "command", fmt.Sprintf("%s:%d", command, exitCode))
}

// EditorKey keys an editor action on a file.
func EditorKey(action, filePath string) Key {
	return NewKey("editor", action, filePath)
}

// FileKey keys a filesystem action on a path.
func FileKey(action, filePath string) Key {
	return NewKey("filesystem", action, filePath)
}

// GitKey keys a git operation; the commit hash distinguishes repeated
// commits with identical messages.
func GitKey(action, repository, commitHash string) Key {
	return NewKey("git", action, repository+":"+commitHash)
}

// BrowserKey keys a page visit by URL.
func BrowserKey(url string) Key {
	return NewKey("browser", "visit", url)
}

type cacheEntry struct {
	seenAt time.Time
	count  int
}

// Deduplicator tracks recently seen event keys. Safe for concurrent use.
type Deduplicator struct {
	mu          sync.Mutex
	config      Config
	cache       map[Key]cacheEntry
	lastCleanup time.Time

	now func() time.Time
}

// New creates a deduplicator with the given config.
func New(config Config) *Deduplicator {
	return &Deduplicator{
		config:      config,
		cache:       make(map[Key]cacheEntry),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// ShouldProcess reports whether the event is new enough to store. A key seen
// within the window is a duplicate; its count is bumped and it is rejected.
func (d *Deduplicator) ShouldProcess(key Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.maybeCleanup()
	now := d.now()

	if entry, ok := d.cache[key]; ok {
		if now.Sub(entry.seenAt) < d.config.Window {
			entry.count++
			d.cache[key] = entry
			return false
		}
		d.cache[key] = cacheEntry{seenAt: now, count: 1}
		return true
	}

	if len(d.cache) >= d.config.MaxEntries {
		d.evictOldest(d.config.MaxEntries / 4)
	}
	d.cache[key] = cacheEntry{seenAt: now, count: 1}
	return true
}

// DupCount returns how many times the key has been seen in its current
// window, or zero for an unknown key.
func (d *Deduplicator) DupCount(key Key) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.cache[key].count
}

// Clear drops the whole cache.
func (d *Deduplicator) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[Key]cacheEntry)
}

// Stats returns cache counters for the stats endpoint.
func (d *Deduplicator) Stats() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	prevented := 0
	for _, entry := range d.cache {
		if entry.count > 1 {
			prevented += entry.count - 1
		}
	}
	return map[string]interface{}{
		"cache_size":                 len(d.cache),
		"total_duplicates_prevented": prevented,
	}
}

// maybeCleanup sweeps entries idle for ten windows. Called with the lock held.
func (d *Deduplicator) maybeCleanup() {
	now := d.now()
	if now.Sub(d.lastCleanup) < d.config.CleanupInterval {
		return
	}

	for key, entry := range d.cache {
		if now.Sub(entry.seenAt) >= d.config.Window*10 {
			delete(d.cache, key)
		}
	}
	d.lastCleanup = now
}

// evictOldest removes the n oldest entries. Called with the lock held.
func (d *Deduplicator) evictOldest(n int) {
	type aged struct {
		key    Key
		seenAt time.Time
	}
	entries := make([]aged, 0, len(d.cache))
	for key, entry := range d.cache {
		entries = append(entries, aged{key: key, seenAt: entry.seenAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seenAt.Before(entries[j].seenAt)
	})

	if n > len(entries) {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		delete(d.cache, e.key)
	}
}
