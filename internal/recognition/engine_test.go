package recognition

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeCamera struct {
	mu     sync.Mutex
	closed bool
	grabs  int
}

func (f *fakeCamera) Grab(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrCameraClosed
	}
	f.grabs++
	return []byte("frame"), nil
}

func (f *fakeCamera) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeCamera) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeRecognizer struct {
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
	outcome  Outcome
}

func (f *fakeRecognizer) Recognize(ctx context.Context, frame []byte, action string) (Outcome, error) {
	n := f.inFlight.Add(1)
	for {
		max := f.maxSeen.Load()
		if n <= max || f.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
	defer f.inFlight.Add(-1)
	f.calls.Add(1)

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	return f.outcome, nil
}

func TestEngineLifecycle(t *testing.T) {
	cam := &fakeCamera{}
	eng := NewEngine(func() (FrameSource, error) { return cam, nil }, &fakeRecognizer{}, 10*time.Millisecond)

	if eng.State() != StateIdle {
		t.Fatalf("State = %s, want idle", eng.State())
	}

	if err := eng.StartCamera(); err != nil {
		t.Fatalf("StartCamera: %v", err)
	}
	if eng.State() != StateCameraActive {
		t.Fatalf("State = %s, want camera_active", eng.State())
	}

	if err := eng.StartCamera(); err == nil {
		t.Error("second StartCamera should fail")
	}

	if err := eng.StartRecognition("entry"); err != nil {
		t.Fatalf("StartRecognition: %v", err)
	}
	if eng.State() != StateRecognitionActive {
		t.Fatalf("State = %s, want recognition_active", eng.State())
	}

	time.Sleep(50 * time.Millisecond)

	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if eng.State() != StateIdle {
		t.Errorf("State after Stop = %s, want idle", eng.State())
	}
	if !cam.isClosed() {
		t.Error("Stop must release the camera handle")
	}
}

func TestStopFromCameraActiveReleasesCamera(t *testing.T) {
	cam := &fakeCamera{}
	eng := NewEngine(func() (FrameSource, error) { return cam, nil }, &fakeRecognizer{}, time.Second)

	if err := eng.StartCamera(); err != nil {
		t.Fatalf("StartCamera: %v", err)
	}
	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !cam.isClosed() {
		t.Error("camera must be released even when recognition never started")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	eng := NewEngine(func() (FrameSource, error) { return &fakeCamera{}, nil }, &fakeRecognizer{}, time.Second)
	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop on idle engine: %v", err)
	}
	if err := eng.Stop(); err != nil {
		t.Fatalf("repeated Stop: %v", err)
	}
}

func TestRecognitionRequiresActiveCamera(t *testing.T) {
	eng := NewEngine(func() (FrameSource, error) { return &fakeCamera{}, nil }, &fakeRecognizer{}, time.Second)
	if err := eng.StartRecognition("entry"); err == nil {
		t.Error("StartRecognition from idle should fail")
	}
}

// With a matcher far slower than the tick, the single-flight guard must
// keep exactly one attempt in flight; ticks that fire mid-attempt are
// skipped, not queued.
func TestSingleFlight(t *testing.T) {
	cam := &fakeCamera{}
	rec := &fakeRecognizer{delay: 60 * time.Millisecond, outcome: Outcome{Status: OutcomeNoFace}}
	eng := NewEngine(func() (FrameSource, error) { return cam, nil }, rec, 5*time.Millisecond)

	if err := eng.StartCamera(); err != nil {
		t.Fatalf("StartCamera: %v", err)
	}
	if err := eng.StartRecognition("entry"); err != nil {
		t.Fatalf("StartRecognition: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if max := rec.maxSeen.Load(); max > 1 {
		t.Errorf("saw %d concurrent attempts, want at most 1", max)
	}
	if calls := rec.calls.Load(); calls < 2 || calls > 5 {
		t.Errorf("got %d attempts in 200ms with a 60ms matcher, want 2..5", calls)
	}
}

func TestOutcomeHookReceivesResults(t *testing.T) {
	cam := &fakeCamera{}
	rec := &fakeRecognizer{outcome: Outcome{Status: OutcomeLogged, UserName: "Aziz", Action: "entry"}}
	eng := NewEngine(func() (FrameSource, error) { return cam, nil }, rec, 5*time.Millisecond)

	var got atomic.Int32
	eng.OnOutcome = func(out Outcome) {
		if out.Status == OutcomeLogged {
			got.Add(1)
		}
	}

	if err := eng.StartCamera(); err != nil {
		t.Fatalf("StartCamera: %v", err)
	}
	if err := eng.StartRecognition("entry"); err != nil {
		t.Fatalf("StartRecognition: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got.Load() == 0 {
		t.Error("OnOutcome hook never fired")
	}
}
