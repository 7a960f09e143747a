package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/sizekeep/internal/platform"
)

func TestRestoreAppliesImmediatelyWhenReady(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	seedRecord(t, st, "firefox", 800, 600)
	eng.Enable()

	h := fake.AddWindow(normalWindow("firefox"), platform.Rect{X: 50, Y: 50, Width: 640, Height: 480}, testWork)

	got, _ := fake.FrameGeometry(h)
	want := platform.Rect{X: 560, Y: 240, Width: 800, Height: 600}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if got := fake.LiveTimers(); got != 0 {
		t.Fatalf("expected no restore timers after an immediate apply, got %d", got)
	}
	if got := eng.Snapshot().Restored; got != 1 {
		t.Fatalf("expected 1 restored instance, got %d", got)
	}
}

func TestRestoreWaitsForFirstFrame(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	seedRecord(t, st, "firefox", 800, 600)
	eng.Enable()

	h := fake.AddWindow(platform.WindowInfo{AppID: "firefox", Normal: true, Mapped: false},
		platform.Rect{Width: 640, Height: 480}, testWork)

	if calls := fake.MoveResizeCalls(); calls != 0 {
		t.Fatalf("expected no mutation before the window is ready, got %d", calls)
	}
	if got := fake.LiveTimers(); got != 1 {
		t.Fatalf("expected the fallback timer armed, got %d", got)
	}

	fake.Window(h).Info.Mapped = true
	fake.EmitFirstFrame(h)

	if calls := fake.MoveResizeCalls(); calls != 1 {
		t.Fatalf("expected restore on first frame, got %d calls", calls)
	}
	if got := fake.LiveTimers(); got != 0 {
		t.Fatalf("expected the fallback to be cancelled, got %d timers", got)
	}

	fake.Advance(time.Second)
	if calls := fake.MoveResizeCalls(); calls != 1 {
		t.Fatalf("expected nothing further to fire, got %d calls", calls)
	}
}

func TestFirstFrameTooEarlyFallsThroughToRetries(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	seedRecord(t, st, "firefox", 800, 600)
	eng.Enable()

	h := fake.AddWindow(platform.WindowInfo{AppID: "firefox", Normal: true, Mapped: false},
		platform.Rect{Width: 640, Height: 480}, testWork)

	// First frame arrives while the window still is not ready; the one-shot
	// signal is spent, so the timed chain has to finish the job.
	fake.EmitFirstFrame(h)
	if calls := fake.MoveResizeCalls(); calls != 0 {
		t.Fatalf("expected the early first frame not to restore, got %d calls", calls)
	}

	fake.Advance(50 * time.Millisecond) // fallback fires, first attempt misses
	fake.Window(h).Info.Mapped = true
	fake.Advance(50 * time.Millisecond)

	if calls := fake.MoveResizeCalls(); calls != 1 {
		t.Fatalf("expected a retry to restore the window, got %d calls", calls)
	}
	if got := fake.LiveTimers(); got != 0 {
		t.Fatalf("expected the retry chain to stop after success, got %d timers", got)
	}
}

func TestIdentityAfterFirstFrameStillConverges(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	seedRecord(t, st, "gedit", 800, 600)
	eng.Enable()

	// The window paints before anyone knows what application it belongs to.
	h := fake.AddWindow(platform.WindowInfo{Normal: true, Mapped: false},
		platform.Rect{Width: 640, Height: 480}, testWork)
	fake.EmitFirstFrame(h)
	fake.Advance(100 * time.Millisecond)

	fake.Window(h).Info.AppID = "gedit"
	fake.Advance(100 * time.Millisecond)
	if got := eng.Snapshot().Identifying; got != 0 {
		t.Fatalf("expected identification to settle, got %d identifying", got)
	}
	// The one-shot first-frame signal is spent, so only the timed chain can
	// apply the record.
	fake.Advance(50 * time.Millisecond) // fallback fires, window not ready yet
	fake.Window(h).Info.Mapped = true
	fake.Advance(50 * time.Millisecond)

	if got, _ := fake.FrameGeometry(h); got.Width != 800 || got.Height != 600 {
		t.Fatalf("expected restore to 800x600 after late identification, got %+v", got)
	}
	if got := fake.LiveTimers(); got != 0 {
		t.Fatalf("expected no residual timers after the restore, got %d", got)
	}
}

func TestRestoreGivesUpAfterBoundedRetries(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	seedRecord(t, st, "firefox", 800, 600)
	eng.Enable()

	h := fake.AddWindow(platform.WindowInfo{AppID: "firefox", Normal: true, Mapped: false},
		platform.Rect{Width: 640, Height: 480}, testWork)

	fake.Advance(10 * time.Second)

	if calls := fake.MoveResizeCalls(); calls != 0 {
		t.Fatalf("expected no mutation for a window that never became ready, got %d", calls)
	}
	if got := fake.LiveTimers(); got != 0 {
		t.Fatalf("expected the retry chain to die out, got %d timers", got)
	}
	if got := eng.Snapshot().Restored; got != 0 {
		t.Fatalf("expected no restored instances, got %d", got)
	}

	// The window stays tracked: future resizes still record sizes.
	fake.Window(h).Info.Mapped = true
	fake.Resize(h, 1000, 700)
	fake.Advance(500 * time.Millisecond)
	if rec, ok := st.Get("firefox"); !ok || rec.Width != 1000 {
		t.Fatalf("expected saves to keep working after an abandoned restore, got %+v (ok=%v)", rec, ok)
	}
}

func TestRestoreHappensOncePerInstance(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	seedRecord(t, st, "firefox", 800, 600)
	eng.Enable()

	h := fake.AddWindow(normalWindow("firefox"), platform.Rect{Width: 640, Height: 480}, testWork)
	if calls := fake.MoveResizeCalls(); calls != 1 {
		t.Fatalf("expected one restore, got %d", calls)
	}

	// Late or duplicate signals change nothing for this instance.
	fake.EmitFirstFrame(h)
	fake.Advance(10 * time.Second)
	if calls := fake.MoveResizeCalls(); calls != 1 {
		t.Fatalf("expected the instance to be restored exactly once, got %d calls", calls)
	}

	// A fresh window of the same application is a new instance.
	fake.Unmanage(h)
	fake.AddWindow(normalWindow("firefox"), platform.Rect{Width: 640, Height: 480}, testWork)
	if calls := fake.MoveResizeCalls(); calls != 2 {
		t.Fatalf("expected the new instance to be restored, got %d calls", calls)
	}
}

func TestMaximizedWindowShortCircuits(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	seedRecord(t, st, "firefox", 800, 600)
	eng.Enable()

	fake.AddWindow(platform.WindowInfo{AppID: "firefox", Normal: true, Mapped: true, Maximized: true},
		platform.Rect{Width: 1920, Height: 1080}, testWork)

	if calls := fake.MoveResizeCalls(); calls != 0 {
		t.Fatalf("expected no geometry mutation for a maximized window, got %d", calls)
	}
	if got := eng.Snapshot().Restored; got != 1 {
		t.Fatalf("expected the maximized window to count as restored, got %d", got)
	}
	if got := fake.LiveTimers(); got != 0 {
		t.Fatalf("expected no retry machinery, got %d timers", got)
	}
}

func TestWindowAlreadyAtSizeWithinTolerance(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	seedRecord(t, st, "firefox", 800, 600)
	eng.Enable()

	// Off the exact target by a few pixels in every dimension.
	fake.AddWindow(normalWindow("firefox"), platform.Rect{X: 558, Y: 243, Width: 803, Height: 597}, testWork)

	if calls := fake.MoveResizeCalls(); calls != 0 {
		t.Fatalf("expected no mutation within tolerance, got %d calls", calls)
	}
	if got := eng.Snapshot().Restored; got != 1 {
		t.Fatalf("expected the window to count as restored, got %d", got)
	}
}

func TestOversizedRecordIsClampedAndCentered(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	seedRecord(t, st, "firefox", 3000, 2000)
	eng.Enable()

	work := platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1040}
	h := fake.AddWindow(normalWindow("firefox"), platform.Rect{Width: 640, Height: 480}, work)

	got, _ := fake.FrameGeometry(h)
	want := platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1040}
	if got != want {
		t.Fatalf("expected clamp to the work area %+v, got %+v", want, got)
	}
}

func TestRestoreCentersOnTheWindowsOwnMonitor(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	seedRecord(t, st, "firefox", 800, 600)
	eng.Enable()

	// Secondary monitor to the right of a 1920-wide primary.
	work := platform.Rect{X: 1920, Y: 0, Width: 1600, Height: 900}
	h := fake.AddWindow(normalWindow("firefox"), platform.Rect{X: 2000, Y: 80, Width: 640, Height: 480}, work)

	got, _ := fake.FrameGeometry(h)
	want := platform.Rect{X: 1920 + (1600-800)/2, Y: (900 - 600) / 2, Width: 800, Height: 600}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestNoRecordMeansNoRestoreMachinery(t *testing.T) {
	eng, fake, _ := testEngine(t, Tunables{})
	eng.Enable()

	fake.AddWindow(platform.WindowInfo{AppID: "brandnew", Normal: true, Mapped: false},
		platform.Rect{Width: 640, Height: 480}, testWork)

	if got := fake.LiveTimers(); got != 0 {
		t.Fatalf("expected no restore timers without a record, got %d", got)
	}
	// Tracking signals only: globals plus resized and unmanaged.
	if got := fake.LiveSignals(); got != 4 {
		t.Fatalf("expected 4 live signals, got %d", got)
	}
}

func TestMoveResizeFailureFallsBackToRetries(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	seedRecord(t, st, "firefox", 800, 600)
	eng.Enable()

	fake.MoveResizeErr = errors.New("window system busy")
	h := fake.AddWindow(normalWindow("firefox"), platform.Rect{Width: 640, Height: 480}, testWork)

	if got := eng.Snapshot().Restored; got != 0 {
		t.Fatalf("expected the failed apply not to mark the instance, got %d", got)
	}

	fake.MoveResizeErr = nil
	fake.Advance(100 * time.Millisecond)

	got, _ := fake.FrameGeometry(h)
	if got.Width != 800 || got.Height != 600 {
		t.Fatalf("expected the retry to restore 800x600, got %+v", got)
	}
	if got := eng.Snapshot().Restored; got != 1 {
		t.Fatalf("expected 1 restored instance, got %d", got)
	}
}

func TestSaveThenReopenRoundTrip(t *testing.T) {
	eng, fake, st := testEngine(t, Tunables{})
	eng.Enable()

	h := fake.AddWindow(normalWindow("editor"), platform.Rect{X: 10, Y: 10, Width: 640, Height: 480}, testWork)
	fake.Resize(h, 800, 600)
	fake.Advance(500 * time.Millisecond)
	if rec, ok := st.Get("editor"); !ok || rec.Width != 800 || rec.Height != 600 {
		t.Fatalf("expected 800x600 recorded, got %+v (ok=%v)", rec, ok)
	}

	fake.Unmanage(h)

	h2 := fake.AddWindow(normalWindow("editor"), platform.Rect{X: 10, Y: 10, Width: 640, Height: 480}, testWork)
	got, _ := fake.FrameGeometry(h2)
	want := platform.Rect{X: 560, Y: 240, Width: 800, Height: 600}
	if got != want {
		t.Fatalf("expected the reopened window centered at its saved size %+v, got %+v", want, got)
	}
}
