package filecache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/edulens/edulens/internal/eviction"
)

const tmpPrefix = ".tmp-"

// dirStore exposes the entry files of a cache directory to the eviction
// manager. Keys are entry file names.
type dirStore struct {
	dir string
}

var _ eviction.Store = dirStore{}

func (s dirStore) Walk(fn func(eviction.FileMetadata) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(eviction.FileMetadata{Key: e.Name(), Size: info.Size(), ModTime: info.ModTime()}); err != nil {
			return err
		}
	}
	return nil
}

func (s dirStore) Delete(key string) error {
	err := os.Remove(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
