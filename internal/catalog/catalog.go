// Package catalog manages the stored datasets: uploading, listing, and
// describing them, with results kept in the file cache.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edulens/edulens/internal/dataset"
	"github.com/edulens/edulens/internal/db"
	"github.com/edulens/edulens/internal/errutil"
	"github.com/edulens/edulens/internal/filecache"
	"github.com/edulens/edulens/internal/repository"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	ListTTL    = 6 * time.Hour
	PathTTL    = 12 * time.Hour
	SummaryTTL = 12 * time.Hour

	listKey = "datasets_list"

	describeConcurrency = 4
)

func pathKey(name string) string    { return "dataset_" + name }
func summaryKey(name string) string { return "summary_" + name }

// Entry is one dataset as shown in a listing.
type Entry struct {
	// Name is the display name: the file name without its extension.
	Name       string    `json:"name"`
	ObjectName string    `json:"object_name"`
	Size       int64     `json:"size"`
	Modified   time.Time `json:"modified"`
	// Category is empty until the dataset has been described once.
	Category string `json:"category,omitempty"`
}

// DisplayName strips the extension from a stored file name.
func DisplayName(objectName string) string {
	return strings.TrimSuffix(objectName, filepath.Ext(objectName))
}

type Catalog struct {
	repo    repository.WritableRepository
	cache   *filecache.Cache
	index   *db.DB
	maxRows int
	group   singleflight.Group
}

type Option func(*Catalog)

// WithMaxRows caps the rows loaded per dataset when describing it.
func WithMaxRows(n int) Option {
	return func(c *Catalog) {
		c.maxRows = n
	}
}

// New builds a Catalog. cache may be nil, in which case nothing is cached.
func New(repo repository.WritableRepository, cache *filecache.Cache, index *db.DB, opts ...Option) *Catalog {
	c := &Catalog{
		repo:    repo,
		cache:   cache,
		index:   index,
		maxRows: dataset.DefaultMaxRows,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload stores src under name and invalidates everything cached about it.
func (c *Catalog) Upload(ctx context.Context, name string, src io.Reader) (Entry, error) {
	size, err := c.repo.Put(ctx, name, src)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	c.invalidate(name)

	entry := Entry{Name: DisplayName(name), ObjectName: name, Size: size, Modified: time.Now()}

	// Any file is accepted; only tabular ones get a category.
	summary, err := c.Describe(ctx, name)
	switch {
	case err == nil:
		entry.Category = string(summary.Category)
	case errors.Is(err, dataset.ErrUnsupportedFormat):
		slog.Info("Stored non-tabular dataset", "name", name)
	default:
		errutil.LogMsg(err, "Failed to describe uploaded dataset", "name", name)
	}
	return entry, nil
}

// List returns the stored datasets. Listings are cached for ListTTL; hit
// reports whether this one came from the cache.
func (c *Catalog) List(ctx context.Context, forceRefresh bool) (entries []Entry, hit bool, err error) {
	if !forceRefresh && c.cache.Get(listKey, &entries) {
		slog.Debug("Using cached dataset list", "count", len(entries))
		return entries, true, nil
	}

	objects, err := c.repo.List(ctx)
	if err != nil {
		return nil, false, err
	}

	categories := make(map[string]string)
	if c.index != nil {
		indexed, err := c.index.List(ctx, "")
		if err != nil {
			errutil.LogMsg(err, "Failed to read dataset index")
		}
		for _, ds := range indexed {
			categories[ds.Name] = ds.Category
		}
	}

	entries = make([]Entry, 0, len(objects))
	for _, obj := range objects {
		entries = append(entries, Entry{
			Name:       DisplayName(obj.Name),
			ObjectName: obj.Name,
			Size:       obj.Size,
			Modified:   obj.ModTime,
			Category:   categories[obj.Name],
		})
	}

	c.cache.Set(listKey, entries, ListTTL)
	slog.Debug("Refreshed dataset list", "count", len(entries))
	return entries, false, nil
}

// Fetch returns a local path for the named dataset.
func (c *Catalog) Fetch(ctx context.Context, name string) (string, error) {
	var cached string
	if c.cache.Get(pathKey(name), &cached) {
		if _, err := os.Stat(cached); err == nil {
			return cached, nil
		}
		c.cache.Delete(pathKey(name))
	}

	exists, err := c.repo.Exists(ctx, name)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", repository.ErrNotFound, name)
	}
	path, err := c.repo.Path(name)
	if err != nil {
		return "", err
	}
	c.cache.Set(pathKey(name), path, PathTTL)
	return path, nil
}

// Describe loads and summarizes a dataset. Summaries are cached for
// SummaryTTL and concurrent calls for the same dataset share one load.
func (c *Catalog) Describe(ctx context.Context, name string) (dataset.Summary, error) {
	var summary dataset.Summary
	if c.cache.Get(summaryKey(name), &summary) {
		return summary, nil
	}

	// The shared load must outlive any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(name, func() (any, error) {
		ctx := shared
		path, err := c.Fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		tbl, err := dataset.Load(path, c.maxRows)
		if err != nil {
			return nil, err
		}
		s := dataset.Summarize(name, tbl)
		c.cache.Set(summaryKey(name), s, SummaryTTL)
		c.indexSummary(ctx, path, s)
		return s, nil
	})
	if err != nil {
		return dataset.Summary{}, err
	}
	return v.(dataset.Summary), nil
}

func (c *Catalog) indexSummary(ctx context.Context, path string, s dataset.Summary) {
	if c.index == nil {
		return
	}
	ds := db.Dataset{
		Name:     s.Name,
		Category: string(s.Category),
		Records:  s.Records,
		Columns:  len(s.Columns),
	}
	if info, err := os.Stat(path); err == nil {
		ds.Size = info.Size()
		ds.UpdatedAt = info.ModTime()
	}
	errutil.LogMsg(c.index.Upsert(ctx, ds), "Failed to index dataset", "name", s.Name)
}

// DescribeAll describes every stored dataset, skipping files that are not
// tabular or fail to load. Results follow the listing order.
func (c *Catalog) DescribeAll(ctx context.Context) ([]dataset.Summary, error) {
	entries, _, err := c.List(ctx, false)
	if err != nil {
		return nil, err
	}

	results := make([]*dataset.Summary, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(describeConcurrency)
	for i, e := range entries {
		g.Go(func() error {
			s, err := c.Describe(gctx, e.ObjectName)
			if errors.Is(err, dataset.ErrUnsupportedFormat) || errors.Is(err, dataset.ErrEmpty) {
				return nil
			}
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				errutil.LogMsg(err, "Skipping dataset that failed to load", "name", e.ObjectName)
				return nil
			}
			results[i] = &s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]dataset.Summary, 0, len(results))
	for _, s := range results {
		if s != nil {
			summaries = append(summaries, *s)
		}
	}
	return summaries, nil
}

// Remove deletes a dataset with its index row and cached data.
func (c *Catalog) Remove(ctx context.Context, name string) error {
	if err := c.repo.Delete(ctx, name); err != nil {
		return err
	}
	if c.index != nil {
		errutil.LogMsg(c.index.Delete(ctx, name), "Failed to unindex dataset", "name", name)
	}
	c.invalidate(name)
	return nil
}

// ClearCache drops the cached listing so the next List reads storage.
func (c *Catalog) ClearCache() {
	c.cache.Delete(listKey)
}

func (c *Catalog) invalidate(name string) {
	c.cache.Delete(listKey)
	c.cache.Delete(pathKey(name))
	c.cache.Delete(summaryKey(name))
}
