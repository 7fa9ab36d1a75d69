package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/example/gatewatch/internal/recognition"
)

const faceTokenRefreshLeeway = 30 * time.Second

// FaceGateService is the HTTP client for the external face-matching
// service. The service holds the biometric templates; we only keep an
// opaque template reference per user. A bearer token is cached and
// refreshed with leeway; a 401 mid-flight triggers one refresh+retry.
type FaceGateService struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewFaceGateService constructs the client for the given endpoint.
func NewFaceGateService(baseURL, apiKey string) *FaceGateService {
	return &FaceGateService{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type faceAuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type faceUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type faceRecognizeResponse struct {
	Recognized bool      `json:"recognized"`
	Success    bool      `json:"success"`
	User       *faceUser `json:"user"`
	Confidence float64   `json:"confidence"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
}

type faceRegisterResponse struct {
	Success    bool   `json:"success"`
	TemplateID string `json:"template_id"`
	Message    string `json:"message"`
}

func (s *FaceGateService) cachedToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", false
	}
	if !s.tokenExpiry.IsZero() && time.Now().Add(faceTokenRefreshLeeway).After(s.tokenExpiry) {
		return "", false
	}
	return s.token, true
}

func (s *FaceGateService) getToken(ctx context.Context, force bool) (string, error) {
	if !force {
		if token, ok := s.cachedToken(); ok {
			return token, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if !force && s.token != "" && time.Now().Add(faceTokenRefreshLeeway).Before(s.tokenExpiry) {
		return s.token, nil
	}

	if s.apiKey == "" {
		return "", errors.New("face gate api key is not configured")
	}

	body, err := json.Marshal(map[string]string{"api_key": s.apiKey})
	if err != nil {
		return "", fmt.Errorf("marshal auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read auth response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("face gate auth failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var auth faceAuthResponse
	if err := json.Unmarshal(respBody, &auth); err != nil {
		return "", fmt.Errorf("unmarshal auth response: %w", err)
	}
	if auth.Token == "" {
		return "", errors.New("face gate auth response missing token")
	}

	s.token = auth.Token
	if auth.ExpiresIn > 0 {
		s.tokenExpiry = time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second)
	} else {
		s.tokenExpiry = time.Now().Add(5 * time.Minute)
	}
	return s.token, nil
}

func (s *FaceGateService) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	token, err := s.getToken(ctx, false)
	if err != nil {
		return nil, err
	}

	body, status, err := s.doOnce(ctx, method, path, payload, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		// Token likely expired; refresh and retry once.
		token, err = s.getToken(ctx, true)
		if err != nil {
			return nil, err
		}
		body, status, err = s.doOnce(ctx, method, path, payload, token)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("face gate %s %s: status %d, body: %s", method, path, status, string(body))
	}
	return body, nil
}

func (s *FaceGateService) doOnce(ctx context.Context, method, path string, payload any, token string) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// RegisterTemplate submits a registration photo burst and returns the
// opaque template reference.
func (s *FaceGateService) RegisterTemplate(ctx context.Context, name, phone string, photos [][]byte) (string, error) {
	if len(photos) == 0 {
		return "", errors.New("at least one photo is required")
	}

	encoded := make([]string, 0, len(photos))
	for _, p := range photos {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(p))
	}

	body, err := s.do(ctx, http.MethodPost, "/templates", map[string]any{
		"name":   name,
		"phone":  phone,
		"photos": encoded,
	})
	if err != nil {
		return "", err
	}

	var reg faceRegisterResponse
	if err := json.Unmarshal(body, &reg); err != nil {
		return "", fmt.Errorf("unmarshal register response: %w", err)
	}
	if !reg.Success || reg.TemplateID == "" {
		return "", fmt.Errorf("face gate registration refused: %s", reg.Message)
	}
	return reg.TemplateID, nil
}

// Recognize submits one frame and maps the service's answer onto the
// engine's match result. Business refusals arrive as code fields in a
// successful response, never as transport errors.
func (s *FaceGateService) Recognize(ctx context.Context, frame []byte, action string) (recognition.MatchResult, error) {
	body, err := s.do(ctx, http.MethodPost, "/recognize", map[string]any{
		"photo":  base64.StdEncoding.EncodeToString(frame),
		"action": action,
	})
	if err != nil {
		return recognition.MatchResult{}, err
	}

	var rec faceRecognizeResponse
	if err := json.Unmarshal(body, &rec); err != nil {
		return recognition.MatchResult{}, fmt.Errorf("unmarshal recognize response: %w", err)
	}

	result := recognition.MatchResult{
		FaceFound:  rec.Code != "no_face",
		Recognized: rec.Recognized,
		Blocked:    rec.Code == "blocked",
		Confidence: rec.Confidence,
		Message:    rec.Message,
	}
	if rec.User != nil {
		result.UserKey = rec.User.Phone
		result.Name = rec.User.Name
	}
	return result, nil
}
