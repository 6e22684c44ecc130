package filecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/edulens/edulens/internal/errutil"
	"github.com/edulens/edulens/internal/eviction"
	"github.com/edulens/edulens/internal/eviction/lru"
	"github.com/edulens/edulens/internal/eviction/policy"
	"github.com/edulens/edulens/internal/eviction/policy/maxsize"
	"github.com/edulens/edulens/internal/hashutil"
)

const (
	// DefaultMaxBytes bounds a cache built without WithMaxBytes.
	DefaultMaxBytes = 50 * 1024 * 1024

	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)

// Cache is a bounded file cache. A nil *Cache behaves as an always-empty
// cache, so callers can keep going when New fails.
type Cache struct {
	dir      string
	hashAlgo string
	maxBytes int64
	lowWater float64
	now      func() time.Time
	evictor  *eviction.Manager
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxBytes sets the size ceiling enforced by the construction-time sweep.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		c.maxBytes = n
	}
}

// WithLowWater sets the fraction of the ceiling a sweep shrinks the cache to.
func WithLowWater(ratio float64) Option {
	return func(c *Cache) {
		c.lowWater = ratio
	}
}

// WithClock replaces time.Now for entry timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithHash selects the algorithm used to name entry files.
func WithHash(name string) Option {
	return func(c *Cache) {
		c.hashAlgo = name
	}
}

// WithEvictionManager makes the cache report to and sweep through mgr
// instead of a private manager built from WithMaxBytes.
func WithEvictionManager(mgr *eviction.Manager) Option {
	return func(c *Cache) {
		c.evictor = mgr
	}
}

// New opens (creating if needed) the cache directory and runs one eviction
// sweep over it.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	c := &Cache{
		dir:      dir,
		hashAlgo: hashutil.Default,
		maxBytes: DefaultMaxBytes,
		lowWater: maxsize.DefaultLowWater,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !hashutil.IsSupported(c.hashAlgo) {
		return nil, fmt.Errorf("unsupported key hash %q", c.hashAlgo)
	}
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	if c.evictor == nil {
		c.evictor = eviction.NewManager(
			[]policy.Policy{&maxsize.Policy{MaxBytes: c.maxBytes, LowWater: c.lowWater}},
			0,
			lru.NewModified(),
		)
	}
	c.evictor.SetStore(dirStore{dir: dir})

	if err := c.evictor.LoadInitialState(); err != nil {
		errutil.LogMsg(err, "Failed to scan cache dir", "dir", dir)
	} else if res := c.evictor.RunEviction(); res.Evicted > 0 {
		slog.Info("Cache trimmed", "dir", dir, "evicted", res.Evicted, "freed", res.Freed, "size", res.After)
	}
	return c, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// KeyString renders a key the way the cache hashes it.
func KeyString(key any) string {
	return fmt.Sprint(key)
}

func (c *Cache) fileName(key any) (string, error) {
	return hashutil.HexString(c.hashAlgo, KeyString(key))
}

// Set stores value under key for ttl (DefaultTTL if ttl is zero). A negative
// ttl stores an entry that is already stale. It reports whether the entry was
// written.
func (c *Cache) Set(key any, value any, ttl time.Duration) bool {
	if c == nil {
		return false
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	name, err := c.fileName(key)
	if err != nil {
		errutil.LogMsg(err, "Failed to hash cache key")
		return false
	}
	rec, err := newRecord(c.now(), ttl, value)
	if err != nil {
		errutil.LogMsg(err, "Failed to encode cache entry", "key", KeyString(key))
		return false
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		errutil.LogMsg(err, "Failed to encode cache entry", "key", KeyString(key))
		return false
	}
	if err := c.writeFile(name, raw); err != nil {
		errutil.LogMsg(err, "Failed to write cache entry", "key", KeyString(key))
		return false
	}
	c.evictor.Add(name, int64(len(raw)))
	return true
}

// writeFile replaces an entry file atomically so readers never observe a
// partial record.
func (c *Cache) writeFile(name string, raw []byte) error {
	tmp, err := os.CreateTemp(c.dir, tmpPrefix+"*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, defaultFilePerm); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, filepath.Join(c.dir, name)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Get decodes the entry stored under key into dest and reports whether it
// did. Missing, expired and unreadable entries are all misses; expired
// entries are deleted on the way out.
func (c *Cache) Get(key any, dest any) bool {
	if c == nil {
		return false
	}
	name, err := c.fileName(key)
	if err != nil {
		errutil.LogMsg(err, "Failed to hash cache key")
		return false
	}
	path := filepath.Join(c.dir, name)

	raw, err := os.ReadFile(path) //nolint:gosec // path is derived from the key hash
	if err != nil {
		errutil.LogMissing(err, "Failed to read cache entry", "key", KeyString(key))
		return false
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		errutil.LogMsg(err, "Corrupt cache entry", "key", KeyString(key))
		return false
	}

	if rec.expired(c.now()) {
		slog.Debug("Cache entry expired", "key", KeyString(key), "stored_at", rec.Timestamp)
		c.remove(name, int64(len(raw)))
		return false
	}

	if err := json.Unmarshal(rec.Data, dest); err != nil {
		errutil.LogMsg(err, "Failed to decode cached value", "key", KeyString(key))
		return false
	}
	c.evictor.Touch(name)
	return true
}

// GetOr returns the value stored under key, or def on any kind of miss.
func GetOr[T any](c *Cache, key any, def T) T {
	var v T
	if !c.Get(key, &v) {
		return def
	}
	return v
}

// Delete removes the entry stored under key, if any.
func (c *Cache) Delete(key any) {
	if c == nil {
		return
	}
	name, err := c.fileName(key)
	if err != nil {
		errutil.LogMsg(err, "Failed to hash cache key")
		return
	}
	info, err := os.Stat(filepath.Join(c.dir, name))
	if err != nil {
		errutil.LogMissing(err, "Failed to stat cache entry", "key", KeyString(key))
		return
	}
	c.remove(name, info.Size())
}

func (c *Cache) remove(name string, size int64) {
	err := os.Remove(filepath.Join(c.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		errutil.LogMsg(err, "Failed to remove cache entry", "file", name)
		return
	}
	c.evictor.Remove(name, size)
}

// Clear removes every file in the cache directory, skipping those that
// cannot be removed.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		errutil.LogMsg(err, "Failed to list cache dir", "dir", c.dir)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		errutil.LogMissing(os.Remove(filepath.Join(c.dir, e.Name())), "Failed to remove cache file", "file", e.Name())
	}
	if err := c.evictor.LoadInitialState(); err != nil {
		errutil.LogMsg(err, "Failed to rescan cache dir", "dir", c.dir)
		c.evictor.Reset()
	}
}

// Stats describes the cache directory.
type Stats struct {
	Entries    int     `json:"total_files"`
	TotalBytes int64   `json:"total_bytes"`
	TotalMB    float64 `json:"total_size_mb"`
	Dir        string  `json:"cache_dir"`
}

// Stats counts the entries in the cache directory and their size.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	st := Stats{Dir: c.dir}
	if abs, err := filepath.Abs(c.dir); err == nil {
		st.Dir = abs
	}

	err := dirStore{dir: c.dir}.Walk(func(meta eviction.FileMetadata) error {
		st.Entries++
		st.TotalBytes += meta.Size
		return nil
	})
	if err != nil {
		errutil.LogMsg(err, "Failed to compute cache stats", "dir", c.dir)
		return Stats{Dir: st.Dir}
	}
	st.TotalMB = math.Round(float64(st.TotalBytes)/(1024*1024)*100) / 100
	return st
}

// String implements fmt.Stringer for log lines and CLI output.
func (s Stats) String() string {
	return fmt.Sprintf("%d entries, %.2f MB in %s", s.Entries, s.TotalMB, s.Dir)
}
