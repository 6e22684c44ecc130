// Package filecache is a best-effort, file-backed key/value cache.
//
// Every entry lives in its own file under the cache directory, named by a
// hash of its key, and carries its own time-to-live. Expired entries are
// removed lazily when read. The directory is bounded by a maximum size: when
// a Cache is constructed, the least recently modified entries are evicted
// until the directory is back under 80% of that size.
//
// The cache never returns errors from its operations. A failed write is a
// no-op and a failed or corrupt read is a miss; failures are logged through
// slog. Callers must always be able to recompute what they cache.
package filecache
