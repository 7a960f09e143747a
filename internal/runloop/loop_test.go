package runloop

import (
	"context"
	"testing"
	"time"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	return l, cancel
}

func TestPostRunsInOrder(t *testing.T) {
	l, cancel := startLoop(t)
	defer cancel()

	var got []int
	for i := 1; i <= 3; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	l.Call(func() {})

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected [1 2 3], got %v", got)
	}
}

func TestCallBlocksUntilDone(t *testing.T) {
	l, cancel := startLoop(t)
	defer cancel()

	value := 0
	l.Call(func() { value = 42 })
	if value != 42 {
		t.Fatalf("expected 42 after Call, got %d", value)
	}
}

func TestAfterFiresOnLoop(t *testing.T) {
	l, cancel := startLoop(t)
	defer cancel()

	fired := make(chan struct{})
	l.Call(func() {
		l.After(5*time.Millisecond, func() { close(fired) })
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expected timer to fire, got timeout")
	}
}

func TestCancelPreventsCallback(t *testing.T) {
	l, cancel := startLoop(t)
	defer cancel()

	fired := false
	var task *Task
	l.Call(func() {
		task = l.After(50*time.Millisecond, func() { fired = true })
	})

	var first, second bool
	l.Call(func() {
		first = task.Cancel()
		second = task.Cancel()
	})
	if !first {
		t.Fatal("expected first Cancel to report true")
	}
	if second {
		t.Fatal("expected second Cancel to report false")
	}

	time.Sleep(120 * time.Millisecond)
	l.Call(func() {})
	if fired {
		t.Fatal("expected cancelled callback not to fire")
	}
}

func TestStoppedLoopDropsWork(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	ran := false
	finished := make(chan struct{})
	go func() {
		l.Call(func() { ran = true })
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Call on a stopped loop to return, got hang")
	}
	if ran {
		t.Fatal("expected function not to run on a stopped loop")
	}
}
