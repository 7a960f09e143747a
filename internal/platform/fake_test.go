package platform

import (
	"testing"
	"time"
)

func TestFakeAdvanceFiresInDueOrder(t *testing.T) {
	f := NewFake()

	var got []string
	f.After(30*time.Millisecond, func() { got = append(got, "b") })
	f.After(10*time.Millisecond, func() { got = append(got, "a") })
	f.After(60*time.Millisecond, func() { got = append(got, "c") })

	f.Advance(40 * time.Millisecond)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
	if f.LiveTimers() != 1 {
		t.Fatalf("expected 1 live timer, got %d", f.LiveTimers())
	}

	f.Advance(20 * time.Millisecond)
	if len(got) != 3 || got[2] != "c" {
		t.Fatalf("expected [a b c], got %v", got)
	}
}

func TestFakeAdvanceRunsChainedTimers(t *testing.T) {
	f := NewFake()

	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		if ticks < 5 {
			f.After(50*time.Millisecond, tick)
		}
	}
	f.After(50*time.Millisecond, tick)

	f.Advance(time.Second)
	if ticks != 5 {
		t.Fatalf("expected 5 chained ticks, got %d", ticks)
	}
	if f.LiveTimers() != 0 {
		t.Fatalf("expected no live timers, got %d", f.LiveTimers())
	}
}

func TestFakeTimerCancel(t *testing.T) {
	f := NewFake()

	fired := false
	timer := f.After(10*time.Millisecond, func() { fired = true })
	if !timer.Cancel() {
		t.Fatal("expected Cancel to report true")
	}
	if timer.Cancel() {
		t.Fatal("expected second Cancel to report false")
	}

	f.Advance(time.Second)
	if fired {
		t.Fatal("expected cancelled timer not to fire")
	}
}

func TestFakeNowTracksAdvance(t *testing.T) {
	f := NewFake()
	start := f.Now()

	var at time.Time
	f.After(25*time.Millisecond, func() { at = f.Now() })
	f.Advance(100 * time.Millisecond)

	if got := at.Sub(start); got != 25*time.Millisecond {
		t.Fatalf("expected callback at +25ms, got +%v", got)
	}
	if got := f.Now().Sub(start); got != 100*time.Millisecond {
		t.Fatalf("expected clock at +100ms, got +%v", got)
	}
}

func TestFakeSignalDisconnect(t *testing.T) {
	f := NewFake()
	h := f.AddWindow(WindowInfo{Normal: true}, Rect{Width: 100, Height: 100}, Rect{Width: 800, Height: 600})

	calls := 0
	sig := f.OnResized(h, func() { calls++ })
	f.Resize(h, 200, 200)
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	sig.Disconnect()
	sig.Disconnect()
	f.Resize(h, 300, 300)
	if calls != 1 {
		t.Fatalf("expected no call after disconnect, got %d", calls)
	}
	if f.LiveSignals() != 0 {
		t.Fatalf("expected 0 live signals, got %d", f.LiveSignals())
	}
}
