package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/waferchat/internal/runtime"
	"github.com/user/waferchat/internal/types"
)

func TestQueueConcurrency(t *testing.T) {
	queue := NewQueue(2)
	queue.Start(context.Background())
	defer queue.Stop()

	var running, maxSeen int32
	work := func(ctx context.Context) (*runtime.Result, error) {
		current := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if current <= old || atomic.CompareAndSwapInt32(&maxSeen, old, current) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return &runtime.Result{}, nil
	}

	var runs []*Run
	for i := 0; i < 5; i++ {
		run := NewRun(context.Background(), types.SessionKey(fmt.Sprintf("session-%d", i)), "send", work)
		if err := queue.Enqueue(run); err != nil {
			t.Fatal(err)
		}
		runs = append(runs, run)
	}
	for _, run := range runs {
		if _, err := run.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if m := atomic.LoadInt32(&maxSeen); m > 2 {
		t.Errorf("expected max 2 concurrent, saw %d", m)
	}
}

func TestQueueSameSessionOrdering(t *testing.T) {
	queue := NewQueue(4)
	queue.Start(context.Background())
	defer queue.Stop()

	var mu sync.Mutex
	var order []int
	var runs []*Run
	for i := 0; i < 3; i++ {
		seq := i
		run := NewRun(context.Background(), "same-session", "send", func(ctx context.Context) (*runtime.Result, error) {
			time.Sleep(time.Duration(3-seq) * 10 * time.Millisecond)
			mu.Lock()
			order = append(order, seq)
			mu.Unlock()
			return &runtime.Result{}, nil
		})
		if err := queue.Enqueue(run); err != nil {
			t.Fatal(err)
		}
		runs = append(runs, run)
	}
	for _, run := range runs {
		if _, err := run.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Errorf("expected order[%d] = %d, got %d", i, i, v)
		}
	}
}

func TestRunStatusAndError(t *testing.T) {
	queue := NewQueue(1)
	queue.Start(context.Background())
	defer queue.Stop()

	boom := errors.New("boom")
	run := NewRun(context.Background(), "k", "send", func(ctx context.Context) (*runtime.Result, error) {
		return nil, boom
	})
	if err := queue.Enqueue(run); err != nil {
		t.Fatal(err)
	}
	if _, err := run.Wait(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if run.Status != RunStatusFailed || run.StartedAt == nil || run.EndedAt == nil {
		t.Errorf("unexpected run state: %+v", run)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	queue := NewQueue(1)
	queue.Start(context.Background())
	defer queue.Stop()

	release := make(chan struct{})
	blocker := NewRun(context.Background(), "k", "send", func(ctx context.Context) (*runtime.Result, error) {
		<-release
		return &runtime.Result{}, nil
	})
	queue.Enqueue(blocker)

	ctx, cancel := context.WithCancel(context.Background())
	var called atomic.Bool
	waiting := NewRun(ctx, "k", "send", func(ctx context.Context) (*runtime.Result, error) {
		called.Store(true)
		return &runtime.Result{}, nil
	})
	queue.Enqueue(waiting)
	cancel()
	close(release)

	<-waiting.done
	if called.Load() {
		t.Error("cancelled run must not execute")
	}
	if !errors.Is(waiting.Error, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", waiting.Error)
	}
}

func TestQueueEnqueueAfterStop(t *testing.T) {
	queue := NewQueue(1)
	queue.Start(context.Background())
	queue.Stop()

	run := NewRun(context.Background(), "k", "send", func(ctx context.Context) (*runtime.Result, error) {
		return nil, nil
	})
	if err := queue.Enqueue(run); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if !queue.WaitIdle(time.Second) {
		t.Error("expected idle queue")
	}
}

func TestQueueStopTwice(t *testing.T) {
	queue := NewQueue(1)
	queue.Start(context.Background())

	run := NewRun(context.Background(), "k", "send", func(ctx context.Context) (*runtime.Result, error) {
		return &runtime.Result{}, nil
	})
	if err := queue.Enqueue(run); err != nil {
		t.Fatal(err)
	}
	if _, err := run.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	queue.Stop()
	queue.Stop()
}
