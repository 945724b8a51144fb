package gesture

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/char5742/hold-rightclick/internal/event"
)

type fakeButton struct {
	mu    sync.Mutex
	calls []bool
	fail  bool
}

func (b *fakeButton) SetRightButton(pressed bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("write /dev/uinput: device busy")
	}
	b.calls = append(b.calls, pressed)
	return nil
}

func (b *fakeButton) setFail(fail bool) {
	b.mu.Lock()
	b.fail = fail
	b.mu.Unlock()
}

func (b *fakeButton) emitted() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.calls...)
}

const (
	holdBegin     = " event7  GESTURE_HOLD_BEGIN  +1.000s\t2"
	holdEnd       = " event7  GESTURE_HOLD_END    +1.500s\t2"
	holdCancelled = " event7  GESTURE_HOLD_END    +1.500s\t2 cancelled"
	scrollFinger  = " event7  POINTER_SCROLL_FINGER +1.600s\tvert 1.00/0.0* horiz 0.00/0.0 (finger)"
	swipeBegin    = " event7  GESTURE_SWIPE_BEGIN +2.000s\t3"
)

func newTestMachine(t *testing.T, grace time.Duration) (*Machine, *fakeButton) {
	t.Helper()
	b := &fakeButton{}
	m := New(b, Options{
		PollInterval: 5 * time.Millisecond,
		ScrollGrace:  grace,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(func() { _ = m.Close() })
	return m, b
}

func feed(t *testing.T, m *Machine, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if err := m.Handle(event.Parse(line)); err != nil {
			t.Fatalf("Handle(%q): %v", line, err)
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func assertCalls(t *testing.T, b *fakeButton, want ...bool) {
	t.Helper()
	got := b.emitted()
	if len(got) != len(want) {
		t.Fatalf("emitted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("emitted %v, want %v", got, want)
		}
	}
}

func TestHoldBeginPresses(t *testing.T) {
	m, b := newTestMachine(t, 50*time.Millisecond)

	feed(t, m, holdBegin)

	assertCalls(t, b, true)
	if s := m.Snapshot(); !s.Pressed || s.Presses != 1 {
		t.Errorf("snapshot = %+v, want pressed with 1 press", s)
	}
}

func TestCancelledHoldEndWaitsForScrollToSettle(t *testing.T) {
	m, b := newTestMachine(t, 100*time.Millisecond)

	feed(t, m, holdBegin, holdCancelled)
	time.Sleep(40 * time.Millisecond)
	feed(t, m, scrollFinger)
	time.Sleep(40 * time.Millisecond)

	// スクロールから猶予が過ぎるまでは押下を維持する
	assertCalls(t, b, true)
	if s := m.Snapshot(); !s.Pressed || s.PendingRelease == "" {
		t.Fatalf("snapshot = %+v, want pressed with pending release", s)
	}

	waitFor(t, "release after scroll settles", func() bool { return !m.Snapshot().Pressed })
	assertCalls(t, b, true, false)
	waitFor(t, "watcher exit", func() bool { return m.watchers.Load() == 0 })
	if s := m.Snapshot(); s.PendingRelease != "" {
		t.Errorf("PendingRelease = %q, want empty", s.PendingRelease)
	}
}

func TestContinuedScrollPostponesRelease(t *testing.T) {
	m, b := newTestMachine(t, 60*time.Millisecond)

	feed(t, m, holdBegin, holdCancelled)
	for i := 0; i < 10; i++ {
		time.Sleep(20 * time.Millisecond)
		feed(t, m, scrollFinger)
	}
	assertCalls(t, b, true)

	waitFor(t, "release", func() bool { return !m.Snapshot().Pressed })
	assertCalls(t, b, true, false)
}

func TestCancelledHoldEndWithoutScrollReleases(t *testing.T) {
	m, b := newTestMachine(t, 30*time.Millisecond)

	feed(t, m, holdBegin, holdCancelled)

	waitFor(t, "release", func() bool { return !m.Snapshot().Pressed })
	assertCalls(t, b, true, false)
}

func TestHoldEndReleasesImmediately(t *testing.T) {
	m, b := newTestMachine(t, 50*time.Millisecond)

	feed(t, m, holdBegin, holdEnd)

	assertCalls(t, b, true, false)
	s := m.Snapshot()
	if s.Pressed || s.PendingRelease != "" {
		t.Errorf("snapshot = %+v, want released without pending release", s)
	}
	if n := m.watchers.Load(); n != 0 {
		t.Errorf("watchers = %d, want 0", n)
	}
}

func TestOtherGestureForcesRelease(t *testing.T) {
	m, b := newTestMachine(t, 50*time.Millisecond)

	feed(t, m, holdBegin, swipeBegin)

	assertCalls(t, b, true, false)
}

func TestOtherGestureCancelsPendingRelease(t *testing.T) {
	m, b := newTestMachine(t, time.Second)

	feed(t, m, holdBegin, holdCancelled, swipeBegin)

	assertCalls(t, b, true, false)
	if s := m.Snapshot(); s.PendingRelease != "" {
		t.Errorf("PendingRelease = %q, want empty", s.PendingRelease)
	}
	waitFor(t, "watcher exit", func() bool { return m.watchers.Load() == 0 })
}

func TestRepeatedHoldBeginPressesOnce(t *testing.T) {
	m, b := newTestMachine(t, 50*time.Millisecond)

	feed(t, m, holdBegin, holdBegin, holdBegin, holdBegin)

	assertCalls(t, b, true)
}

func TestReleaseIsIdempotent(t *testing.T) {
	m, b := newTestMachine(t, 50*time.Millisecond)

	feed(t, m, holdBegin, holdEnd, holdEnd, swipeBegin, holdEnd)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	assertCalls(t, b, true, false)
	if s := m.Snapshot(); s.Releases != 1 {
		t.Errorf("Releases = %d, want 1", s.Releases)
	}
}

func TestHoldBeginCancelsPendingRelease(t *testing.T) {
	m, b := newTestMachine(t, 30*time.Millisecond)

	feed(t, m, holdBegin, holdCancelled, holdBegin)

	if s := m.Snapshot(); s.PendingRelease != "" || s.Scrolling {
		t.Fatalf("snapshot = %+v, want no pending release and no scroll", s)
	}
	time.Sleep(120 * time.Millisecond)
	assertCalls(t, b, true)
	if !m.Snapshot().Pressed {
		t.Error("expected button to stay pressed")
	}
}

func TestOtherFingerCountsAreInert(t *testing.T) {
	m, b := newTestMachine(t, 50*time.Millisecond)

	feed(t, m, " event7 GESTURE_HOLD_BEGIN +1.0s\t3")
	assertCalls(t, b)

	feed(t, m, holdBegin,
		" event7 GESTURE_HOLD_END +1.2s\t3",
		" event7 GESTURE_HOLD_END +1.2s\t1 cancelled",
		"GESTURE_HOLD_BEGIN")
	assertCalls(t, b, true)
	if s := m.Snapshot(); !s.Pressed || s.PendingRelease != "" {
		t.Errorf("snapshot = %+v, want pressed without pending release", s)
	}
}

func TestScrollWithoutHoldDoesNotEmit(t *testing.T) {
	m, b := newTestMachine(t, 50*time.Millisecond)

	feed(t, m, scrollFinger, scrollFinger)

	assertCalls(t, b)
	if s := m.Snapshot(); !s.Scrolling || s.LastScroll.IsZero() {
		t.Errorf("snapshot = %+v, want recent scroll", s)
	}
}

func TestEmitFailureKeepsStateForRetry(t *testing.T) {
	m, b := newTestMachine(t, 50*time.Millisecond)
	b.setFail(true)

	if err := m.Handle(event.Parse(holdBegin)); err == nil {
		t.Fatal("expected emission error")
	}
	s := m.Snapshot()
	if s.Pressed || s.EmitFailures != 1 {
		t.Fatalf("snapshot = %+v, want not pressed with 1 failure", s)
	}

	b.setFail(false)
	feed(t, m, holdBegin)
	assertCalls(t, b, true)
	if !m.Snapshot().Pressed {
		t.Error("expected retry to press the button")
	}
}

func TestWatcherEmitFailureTerminatesWatcher(t *testing.T) {
	m, b := newTestMachine(t, 20*time.Millisecond)
	feed(t, m, holdBegin)
	b.setFail(true)

	feed(t, m, holdCancelled)
	waitFor(t, "watcher exit", func() bool {
		return m.watchers.Load() == 0 && m.Snapshot().PendingRelease == ""
	})

	s := m.Snapshot()
	if !s.Pressed || s.EmitFailures != 1 {
		t.Fatalf("snapshot = %+v, want still pressed with 1 failure", s)
	}

	// 次のイベントで解放を再試行できる
	b.setFail(false)
	feed(t, m, swipeBegin)
	assertCalls(t, b, true, false)
}

func TestAtMostOnePendingRelease(t *testing.T) {
	m, _ := newTestMachine(t, time.Second)
	feed(t, m, holdBegin)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.Handle(event.Parse(holdCancelled))
				_ = m.Handle(event.Parse(scrollFinger))
			}
		}()
	}
	wg.Wait()

	if s := m.Snapshot(); s.PendingRelease == "" {
		t.Fatal("expected a pending release")
	}
	waitFor(t, "stale watchers to exit", func() bool { return m.watchers.Load() == 1 })
}

func TestCloseReleasesAndCancels(t *testing.T) {
	m, b := newTestMachine(t, time.Second)

	feed(t, m, holdBegin, holdCancelled)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	assertCalls(t, b, true, false)
	waitFor(t, "watcher exit", func() bool { return m.watchers.Load() == 0 })
}

func TestCancelledHoldEndWithoutPressIsNoop(t *testing.T) {
	m, b := newTestMachine(t, 20*time.Millisecond)

	feed(t, m, holdCancelled)

	if s := m.Snapshot(); s.PendingRelease != "" {
		t.Errorf("PendingRelease = %q, want none while released", s.PendingRelease)
	}
	time.Sleep(60 * time.Millisecond)
	assertCalls(t, b)
}
