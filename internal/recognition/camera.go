package recognition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrCameraClosed is returned by Grab after the handle was released.
var ErrCameraClosed = errors.New("camera handle closed")

// FrameSource is an owned camera handle. Grab returns one still frame;
// Close releases the underlying stream and must be called on every
// exit path of the session that acquired it.
type FrameSource interface {
	Grab(ctx context.Context) ([]byte, error)
	Close() error
}

const maxFrameSize = 8 << 20

// SnapshotCamera pulls JPEG stills from an HTTP snapshot endpoint, the
// usual still-image URL of an IP camera.
type SnapshotCamera struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	closed bool
}

// OpenSnapshotCamera validates the endpoint and returns an open handle.
func OpenSnapshotCamera(url string) (*SnapshotCamera, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("snapshot camera: unsupported url %q", url)
	}
	return &SnapshotCamera{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

// Grab fetches one frame from the snapshot endpoint.
func (s *SnapshotCamera) Grab(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrCameraClosed
	}
	s.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot camera: create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot camera: fetch frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot camera: status %d", resp.StatusCode)
	}

	frame, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
	if err != nil {
		return nil, fmt.Errorf("snapshot camera: read frame: %w", err)
	}
	if len(frame) == 0 {
		return nil, errors.New("snapshot camera: empty frame")
	}
	return frame, nil
}

// Close releases the handle. Idempotent.
func (s *SnapshotCamera) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
