package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB is the dataset metadata index.
type DB struct {
	db *sql.DB
}

// Dataset is the indexed metadata of one stored dataset.
type Dataset struct {
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Records   int       `json:"records"`
	Columns   int       `json:"columns"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open opens the database at path and applies pending migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateUp(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &DB{db: sqlDB}, nil
}

func migrateUp(sqlDB *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(sqlDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	// m.Close would close sqlDB through the driver, so it is not called.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Upsert inserts or replaces the metadata of one dataset.
func (d *DB) Upsert(ctx context.Context, ds Dataset) error {
	if ds.UpdatedAt.IsZero() {
		ds.UpdatedAt = time.Now()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO datasets (name, category, records, columns, size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			category = excluded.category,
			records = excluded.records,
			columns = excluded.columns,
			size = excluded.size,
			updated_at = excluded.updated_at`,
		ds.Name, ds.Category, ds.Records, ds.Columns, ds.Size, ds.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert dataset %s: %w", ds.Name, err)
	}
	return nil
}

// Get retrieves the metadata for a dataset.
func (d *DB) Get(ctx context.Context, name string) (Dataset, bool, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT name, category, records, columns, size, updated_at FROM datasets WHERE name = ?", name)
	ds, err := scanDataset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Dataset{}, false, nil
		}
		return Dataset{}, false, fmt.Errorf("failed to get dataset %s: %w", name, err)
	}
	return ds, true, nil
}

// List returns all indexed datasets, optionally restricted to one category.
func (d *DB) List(ctx context.Context, category string) ([]Dataset, error) {
	query := "SELECT name, category, records, columns, size, updated_at FROM datasets"
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY name"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

// Delete removes a dataset's metadata. Missing rows are not an error.
func (d *DB) Delete(ctx context.Context, name string) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM datasets WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete dataset %s: %w", name, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(s scanner) (Dataset, error) {
	var (
		ds      Dataset
		updated int64
	)
	if err := s.Scan(&ds.Name, &ds.Category, &ds.Records, &ds.Columns, &ds.Size, &updated); err != nil {
		return Dataset{}, err
	}
	ds.UpdatedAt = time.UnixMilli(updated)
	return ds, nil
}
