package eviction

import "time"

// FileMetadata describes one stored entry as seen by a Store walk.
type FileMetadata struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Victim represents an entry to be evicted.
type Victim struct {
	Key  string
	Size int64
}

// Store is the storage the manager evicts from.
type Store interface {
	// Walk calls fn for every entry currently stored.
	Walk(fn func(FileMetadata) error) error
	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(key string) error
}

// Strategy defines the interface for eviction strategies.
type Strategy interface {
	// OnAdd is called when an entry is written.
	// It returns the change in total size managed by the strategy (e.g., if key is new, returns size; if updated, returns diff).
	OnAdd(key string, size int64) int64

	// OnAccess is called when an entry is read.
	OnAccess(key string)

	// GetVictims returns a list of victims to evict to reduce the current size
	// to the target size.
	GetVictims(currentSize int64, targetSize int64) []Victim

	// Remove removes a key from the strategy (e.g. if it was deleted externally).
	Remove(key string)

	// Reset forgets every tracked key.
	Reset()
}
