package future

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFuture_ResolveOnce(t *testing.T) {
	f := New[int]()
	if !f.MarkRunning() {
		t.Fatal("MarkRunning on pending future = false")
	}
	f.Resolve(42)
	f.Resolve(7)                   // ignored
	f.Reject(errors.New("ignore")) // ignored

	v, err := f.Result()
	if err != nil {
		t.Fatalf("Result error = %v", err)
	}
	if v != 42 {
		t.Errorf("Result = %d, want 42", v)
	}
}

func TestFuture_Reject(t *testing.T) {
	f := New[int]()
	want := errors.New("boom")
	f.Reject(want)

	_, err := f.Result()
	if !errors.Is(err, want) {
		t.Errorf("Result error = %v, want %v", err, want)
	}
}

func TestFuture_CancelBeforeRunning(t *testing.T) {
	f := New[int]()
	if !f.Cancel() {
		t.Fatal("Cancel on pending future = false")
	}
	if f.Cancel() {
		t.Error("second Cancel = true, want false")
	}
	if !f.Cancelled() {
		t.Error("Cancelled = false after Cancel")
	}
	if f.MarkRunning() {
		t.Error("MarkRunning succeeded on cancelled future")
	}

	_, err := f.Result()
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Result error = %v, want ErrCancelled", err)
	}
}

func TestFuture_CancelAfterRunning(t *testing.T) {
	f := New[int]()
	f.MarkRunning()
	if f.Cancel() {
		t.Error("Cancel succeeded on running future")
	}
	f.Resolve(1)
	if _, err := f.Result(); err != nil {
		t.Errorf("Result error = %v, want nil", err)
	}
}

func TestWaitAny_Empty(t *testing.T) {
	done, err := WaitAny(context.Background(), []*Future[int]{})
	if err != nil || done != nil {
		t.Errorf("WaitAny(empty) = %v, %v; want nil, nil", done, err)
	}
}

func TestWaitAny_ReturnsAllSettled(t *testing.T) {
	a, b, c := New[int](), New[int](), New[int]()
	a.Resolve(1)
	b.Resolve(2)

	done, err := WaitAny(context.Background(), []*Future[int]{a, b, c})
	if err != nil {
		t.Fatalf("WaitAny error = %v", err)
	}
	if len(done) != 2 {
		t.Fatalf("WaitAny returned %d futures, want 2", len(done))
	}
	for _, f := range done {
		if f == c {
			t.Error("WaitAny returned the unsettled future")
		}
	}
}

func TestWaitAny_BlocksUntilFirst(t *testing.T) {
	a, b := New[int](), New[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Resolve(2)
	}()

	done, err := WaitAny(context.Background(), []*Future[int]{a, b})
	if err != nil {
		t.Fatalf("WaitAny error = %v", err)
	}
	if len(done) != 1 || done[0] != b {
		t.Errorf("WaitAny = %v, want just b", done)
	}
}

func TestWaitAny_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := New[int]()

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := WaitAny(ctx, []*Future[int]{f})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WaitAny error = %v, want context.Canceled", err)
	}
}

func TestWaitAll(t *testing.T) {
	a, b := New[int](), New[int]()
	a.Resolve(1)
	go func() {
		time.Sleep(5 * time.Millisecond)
		b.Cancel()
	}()

	if err := WaitAll(context.Background(), []*Future[int]{a, b}); err != nil {
		t.Errorf("WaitAll error = %v", err)
	}
}

func TestWaitAll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := WaitAll(ctx, []*Future[int]{New[int]()})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitAll error = %v, want deadline exceeded", err)
	}
}
