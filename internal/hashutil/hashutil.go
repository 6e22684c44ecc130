package hashutil

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sync"
)

type HashFactory func() hash.Hash

// Default names cache entry files. It only needs to be stable, not secure.
const Default = "md5"

var (
	registryMu sync.RWMutex
	registry   = map[string]HashFactory{
		"md5":    md5.New,
		"sha256": sha256.New,
	}
)

func Register(name string, factory HashFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

func GetHasher(name string) (hash.Hash, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm: %s", name)
	}
	return factory(), nil
}

func IsSupported(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// HexString hashes s with the named algorithm and returns the hex digest.
func HexString(name, s string) (string, error) {
	h, err := GetHasher(name)
	if err != nil {
		return "", err
	}
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil)), nil
}
