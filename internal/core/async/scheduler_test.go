package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/partlister/internal/common"
)

func TestNewSchedulerRejectsNonPositive(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1} {
		s, err := NewScheduler(n, nil)
		if err == nil || s != nil {
			t.Fatalf("NewScheduler(%d) should fail", n)
		}
		if !errors.Is(err, common.ErrConfiguration) {
			t.Errorf("NewScheduler(%d) error = %v, want ErrConfiguration", n, err)
		}
	}
}

func TestSchedulerBoundsConcurrency(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(2, nil)
	if err != nil {
		t.Fatal(err)
	}

	var running, maxRunning, runs atomic.Int32
	futures := make([]*Future[int], 0, 5)
	for i := 0; i < 5; i++ {
		i := i
		futures = append(futures, Submit(s, func(ctx context.Context) (int, error) {
			cur := running.Add(1)
			for {
				old := maxRunning.Load()
				if cur <= old || maxRunning.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			runs.Add(1)
			return i * 10, nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i, f := range futures {
		v, err := f.Wait(ctx)
		if err != nil {
			t.Fatalf("task %d: %v", i, err)
		}
		if v != i*10 {
			t.Errorf("task %d returned %d", i, v)
		}
	}

	if got := maxRunning.Load(); got > 2 {
		t.Errorf("max concurrent = %d, want <= 2", got)
	}
	if got := runs.Load(); got != 5 {
		t.Errorf("runs = %d, want exactly 5", got)
	}
	if p, f := s.Stats(); p != 0 || f != 0 {
		t.Errorf("Stats after drain = (%d,%d), want (0,0)", p, f)
	}
}

func TestSchedulerFIFOAtConcurrencyOne(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(1, nil)
	if err != nil {
		t.Fatal(err)
	}

	gate := make(chan struct{})
	var mu sync.Mutex
	var order []int

	first := Submit(s, func(ctx context.Context) (int, error) {
		<-gate
		return 0, nil
	})
	futures := []*Future[int]{first}
	for i := 1; i <= 4; i++ {
		i := i
		futures = append(futures, Submit(s, func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}))
	}
	if p, _ := s.Stats(); p != 4 {
		t.Fatalf("pending = %d, want 4 while the first task holds the slot", p)
	}
	close(gate)

	for _, f := range futures {
		if _, err := f.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i+1 {
			t.Fatalf("start order = %v, want [1 2 3 4]", order)
		}
	}
}

func TestSchedulerFailureAndPanicReleaseSlot(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(1, nil)
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")

	failed := Submit(s, func(ctx context.Context) (string, error) { return "", boom })
	panicked := Submit(s, func(ctx context.Context) (string, error) { panic("kaboom") })
	ok := Submit(s, func(ctx context.Context) (string, error) { return "ok", nil })

	ctx := context.Background()
	if _, err := failed.Wait(ctx); !errors.Is(err, boom) {
		t.Errorf("failed task error = %v", err)
	}
	if _, err := panicked.Wait(ctx); err == nil {
		t.Error("panicking task should surface an error")
	}
	if v, err := ok.Wait(ctx); err != nil || v != "ok" {
		t.Errorf("task after failures = (%q, %v)", v, err)
	}
}

func TestSchedulerTaskTimeout(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(1, nil, WithTaskTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	f := Submit(s, func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	if _, err := f.Wait(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestSchedulerShutdown(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(1, nil)
	if err != nil {
		t.Fatal(err)
	}
	var ran atomic.Bool
	f := Submit(s, func(ctx context.Context) (int, error) {
		time.Sleep(10 * time.Millisecond)
		ran.Store(true)
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Shutdown(ctx)

	if !ran.Load() {
		t.Error("Shutdown returned before the running task finished")
	}
	if _, err := f.Wait(ctx); err != nil {
		t.Errorf("in-flight task error = %v", err)
	}

	late := Submit(s, func(ctx context.Context) (int, error) { return 2, nil })
	if _, err := late.Wait(ctx); !errors.Is(err, common.ErrSchedulerClosed) {
		t.Errorf("late submit error = %v, want ErrSchedulerClosed", err)
	}
}

func TestSchedulerShutdownInterrupted(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(1, nil)
	if err != nil {
		t.Fatal(err)
	}
	release := make(chan struct{})
	running := Submit(s, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	queued := Submit(s, func(ctx context.Context) (int, error) { return 2, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s.Shutdown(ctx)
	select {
	case <-s.drained:
		t.Fatal("drained before the running task finished")
	default:
	}

	close(release)
	wait, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if v, err := running.Wait(wait); err != nil || v != 1 {
		t.Errorf("running = %d, %v", v, err)
	}
	if v, err := queued.Wait(wait); err != nil || v != 2 {
		t.Errorf("queued = %d, %v", v, err)
	}
	select {
	case <-s.drained:
	case <-wait.Done():
		t.Fatal("scheduler never reported drained after an interrupted shutdown")
	}
	s.Shutdown(context.Background())
}
