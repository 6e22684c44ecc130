package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T, path string) *DB {
	t.Helper()
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	return d
}

func TestDB(t *testing.T) {
	d := openTestDB(t, filepath.Join(t.TempDir(), "index.db"))
	defer d.Close()

	ctx := context.Background()
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	grades := Dataset{Name: "grades.csv", Category: "performance", Records: 120, Columns: 5, Size: 4096, UpdatedAt: updated}
	if err := d.Upsert(ctx, grades); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := d.Upsert(ctx, Dataset{Name: "survey.csv", Category: "survey", Records: 30, Columns: 8}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	got, found, err := d.Get(ctx, "grades.csv")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !found {
		t.Fatal("expected to find grades.csv")
	}
	if got.Records != 120 || got.Category != "performance" || !got.UpdatedAt.Equal(updated) {
		t.Errorf("unexpected row %+v", got)
	}

	_, found, err = d.Get(ctx, "missing.csv")
	if err != nil || found {
		t.Errorf("expected not found, got (%v, %v)", found, err)
	}

	// Upsert replaces.
	grades.Records = 150
	if err := d.Upsert(ctx, grades); err != nil {
		t.Fatal(err)
	}
	got, _, _ = d.Get(ctx, "grades.csv")
	if got.Records != 150 {
		t.Errorf("expected 150 records after upsert, got %d", got.Records)
	}

	all, err := d.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Name != "grades.csv" {
		t.Errorf("unexpected listing %+v", all)
	}

	surveys, err := d.List(ctx, "survey")
	if err != nil {
		t.Fatal(err)
	}
	if len(surveys) != 1 || surveys[0].Name != "survey.csv" {
		t.Errorf("unexpected filtered listing %+v", surveys)
	}

	if err := d.Delete(ctx, "survey.csv"); err != nil {
		t.Fatal(err)
	}
	if err := d.Delete(ctx, "survey.csv"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
	all, _ = d.List(ctx, "")
	if len(all) != 1 {
		t.Errorf("expected 1 dataset after delete, got %d", len(all))
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	d := openTestDB(t, path)
	if err := d.Upsert(ctx, Dataset{Name: "a.csv", Category: "general"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	// Migrations are already applied; reopening must not fail.
	d = openTestDB(t, path)
	defer d.Close()
	if _, found, err := d.Get(ctx, "a.csv"); err != nil || !found {
		t.Errorf("expected a.csv after reopen, got (%v, %v)", found, err)
	}
}
