package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Session states of the kiosk engine.
type SessionState string

const (
	StateIdle              SessionState = "idle"
	StateCameraActive      SessionState = "camera_active"
	StateRecognitionActive SessionState = "recognition_active"
)

// Recognizer submits one frame for identification and applies the
// attendance rules to the match. Implemented by the attendance service.
type Recognizer interface {
	Recognize(ctx context.Context, frame []byte, action string) (Outcome, error)
}

// Engine drives the kiosk recognition loop: it owns the camera handle,
// ticks at a fixed interval while recognition is active, and keeps at
// most one attempt in flight. Stop tears down ticker, camera and state
// together so a half-stopped session cannot be observed.
type Engine struct {
	openCamera func() (FrameSource, error)
	recognizer Recognizer
	tick       time.Duration

	// OnOutcome, when set before starting, receives every non-empty
	// outcome. The kiosk uses it for the audible cue.
	OnOutcome func(Outcome)

	mu       sync.Mutex
	state    SessionState
	cam      FrameSource
	cancel   context.CancelFunc
	done     chan struct{}
	inFlight bool
}

// NewEngine creates an idle engine. openCamera is invoked on each
// camera start so a fresh handle is acquired per session.
func NewEngine(openCamera func() (FrameSource, error), recognizer Recognizer, tick time.Duration) *Engine {
	if tick <= 0 {
		tick = 2 * time.Second
	}
	return &Engine{
		openCamera: openCamera,
		recognizer: recognizer,
		tick:       tick,
		state:      StateIdle,
	}
}

// State returns the current session state.
func (e *Engine) State() SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// StartCamera acquires the camera handle. Valid only from idle; on
// failure the engine stays idle and owns no handle.
func (e *Engine) StartCamera() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return fmt.Errorf("cannot start camera from %s", e.state)
	}

	cam, err := e.openCamera()
	if err != nil {
		return fmt.Errorf("acquire camera: %w", err)
	}

	e.cam = cam
	e.state = StateCameraActive
	return nil
}

// StartRecognition begins the tick loop for the given action. Valid
// only while the camera is active.
func (e *Engine) StartRecognition(action string) error {
	if action == "" {
		return errors.New("action is required")
	}

	e.mu.Lock()
	if e.state != StateCameraActive {
		e.mu.Unlock()
		return fmt.Errorf("cannot start recognition from %s", e.state)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.state = StateRecognitionActive
	cam := e.cam
	e.mu.Unlock()

	go e.loop(ctx, done, cam, action)
	return nil
}

// Stop cancels the loop, waits for it to exit, releases the camera and
// resets the session to idle. Reachable from any state; idempotent.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state == StateIdle {
		e.mu.Unlock()
		return nil
	}
	cancel := e.cancel
	done := e.done
	cam := e.cam
	e.cancel = nil
	e.done = nil
	e.cam = nil
	e.state = StateIdle
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if cam != nil {
		return cam.Close()
	}
	return nil
}

func (e *Engine) loop(ctx context.Context, done chan struct{}, cam FrameSource, action string) {
	defer close(done)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.beginAttempt() {
				// A prior attempt is still in flight; skip this tick.
				continue
			}
			go func() {
				defer e.endAttempt()
				e.attempt(ctx, cam, action)
			}()
		}
	}
}

func (e *Engine) beginAttempt() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight {
		return false
	}
	e.inFlight = true
	return true
}

func (e *Engine) endAttempt() {
	e.mu.Lock()
	e.inFlight = false
	e.mu.Unlock()
}

func (e *Engine) attempt(ctx context.Context, cam FrameSource, action string) {
	frame, err := cam.Grab(ctx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrCameraClosed) {
			return
		}
		log.Printf("[Recognition] frame grab failed: %v", err)
		return
	}

	out, err := e.recognizer.Recognize(ctx, frame, action)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Transport failure: surface and let the next tick retry.
		log.Printf("[Recognition] attempt failed: %v", err)
		return
	}

	switch out.Status {
	case OutcomeLogged:
		log.Printf("[Recognition] %s %s logged (confidence %.2f)", out.UserName, out.Action, out.Confidence)
	case OutcomeCooldown:
		log.Printf("[Recognition] %s suppressed: %s", out.UserName, out.Message)
	case OutcomeBlocked:
		log.Printf("[Recognition] %s blocked: %s", out.UserName, out.Message)
	case OutcomeNoFace:
		// Nothing in front of the camera; keep looping.
	default:
		log.Printf("[Recognition] %s", out.Status)
	}

	if e.OnOutcome != nil && out.Status != OutcomeNoFace {
		e.OnOutcome(out)
	}
}
