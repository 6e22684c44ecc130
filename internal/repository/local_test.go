package repository

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newRepo(t *testing.T) *LocalRepository {
	t.Helper()
	repo, err := NewLocalRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalRepository failed: %v", err)
	}
	return repo
}

func TestLocalRepository(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	content := "student,score\nana,90\n"

	t.Run("Put", func(t *testing.T) {
		n, err := repo.Put(ctx, "grades.csv", strings.NewReader(content))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if n != int64(len(content)) {
			t.Errorf("expected %d bytes, got %d", len(content), n)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		ok, err := repo.Exists(ctx, "grades.csv")
		if err != nil || !ok {
			t.Errorf("expected grades.csv to exist, got (%v, %v)", ok, err)
		}
		ok, err = repo.Exists(ctx, "missing.csv")
		if err != nil || ok {
			t.Errorf("expected missing.csv to not exist, got (%v, %v)", ok, err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		rc, size, err := repo.Get(ctx, "grades.csv")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		defer func() { _ = rc.Close() }()
		if size != int64(len(content)) {
			t.Errorf("expected size %d, got %d", len(content), size)
		}
		b, _ := io.ReadAll(rc)
		if string(b) != content {
			t.Errorf("expected %q, got %q", content, b)
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		if _, _, err := repo.Get(ctx, "missing.csv"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if _, err := repo.Put(ctx, "grades.csv", strings.NewReader("x\n")); err != nil {
			t.Fatal(err)
		}
		_, size, err := repo.Get(ctx, "grades.csv")
		if err != nil || size != 2 {
			t.Errorf("expected replaced content of size 2, got (%d, %v)", size, err)
		}
	})

	t.Run("List", func(t *testing.T) {
		if _, err := repo.Put(ctx, "attendance.xlsx", strings.NewReader("pk")); err != nil {
			t.Fatal(err)
		}
		objs, err := repo.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(objs) != 2 || objs[0].Name != "attendance.xlsx" || objs[1].Name != "grades.csv" {
			t.Errorf("unexpected listing %+v", objs)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, "attendance.xlsx"); err != nil {
			t.Fatal(err)
		}
		if err := repo.Delete(ctx, "attendance.xlsx"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestInvalidNames(t *testing.T) {
	repo := newRepo(t)
	for _, name := range []string{"", ".", "..", "../etc/passwd", "a/b.csv", `a\b.csv`, ".hidden"} {
		if _, err := repo.Put(context.Background(), name, strings.NewReader("x")); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Put(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestPutFailureLeavesNothing(t *testing.T) {
	repo := newRepo(t)
	if _, err := repo.Put(context.Background(), "broken.csv", failingReader{}); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(repo.Root, objectsDir))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no leftovers, got %d entries", len(entries))
	}
}

func TestPutCancelled(t *testing.T) {
	repo := newRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := repo.Put(ctx, "late.csv", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
