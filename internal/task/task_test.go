package task

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

func TestFutureWait(t *testing.T) {
	r := NewRunner(context.Background(), 4)
	defer r.Close()

	f, err := r.Submit("answer", func(ctx context.Context) (any, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := Await[int](context.Background(), f)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	res := <-r.Results()
	if res.ID != f.ID() || res.Name != "answer" || res.Value != 42 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestResultsSingleConsumer(t *testing.T) {
	r := NewRunner(context.Background(), 0)

	names := []string{"load", "list", "describe"}
	for i, name := range names {
		delay := time.Duration(i) * time.Millisecond
		if _, err := r.Submit(name, func(ctx context.Context) (any, error) {
			time.Sleep(delay)
			return name, nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	for res := range r.Results() {
		got = append(got, res.Value.(string))
		if len(got) == len(names) {
			break
		}
	}
	r.Close()

	sort.Strings(got)
	if len(got) != 3 || got[0] != "describe" || got[1] != "list" || got[2] != "load" {
		t.Errorf("unexpected results %v", got)
	}
}

func TestErrorAndPanic(t *testing.T) {
	r := NewRunner(context.Background(), 2)
	defer r.Close()

	boom := errors.New("boom")
	f1, _ := r.Submit("fails", func(ctx context.Context) (any, error) {
		return nil, boom
	})
	f2, _ := r.Submit("panics", func(ctx context.Context) (any, error) {
		panic("bad input")
	})

	if _, err := f1.Wait(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if _, err := f2.Wait(context.Background()); err == nil {
		t.Error("expected panic to be turned into an error")
	}
}

func TestAwaitWrongType(t *testing.T) {
	r := NewRunner(context.Background(), 1)
	defer r.Close()

	f, _ := r.Submit("string", func(ctx context.Context) (any, error) {
		return "x", nil
	})
	if _, err := Await[int](context.Background(), f); err == nil {
		t.Error("expected type mismatch error")
	}
}

func TestWaitContext(t *testing.T) {
	r := NewRunner(context.Background(), 1)
	defer r.Close()

	release := make(chan struct{})
	f, _ := r.Submit("slow", func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	close(release)
	<-f.Done()
}

func TestCloseCancelsJobs(t *testing.T) {
	r := NewRunner(context.Background(), 0)

	started := make(chan struct{})
	f, _ := r.Submit("blocked", func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	<-started

	r.Close()

	if _, err := f.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, ok := <-r.Results(); ok {
		t.Error("expected results channel closed")
	}
	if _, err := r.Submit("late", func(ctx context.Context) (any, error) { return nil, nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Closing twice is fine.
	r.Close()
}
