package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

// StatusError is returned when the endpoint answers with a non-success status.
type StatusError struct {
	StatusCode int
	Code       string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// HTTPRemote talks to the server's /api/events endpoint.
type HTTPRemote struct {
	baseURL  string
	token    string
	deviceID string
	client   *http.Client
}

func NewHTTPRemote(baseURL, token, deviceID string, timeout time.Duration) *HTTPRemote {
	return &HTTPRemote{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		deviceID: deviceID,
		client:   &http.Client{Timeout: timeout},
	}
}

func (h *HTTPRemote) Push(ctx context.Context, events []models.WireEvent) (models.PushResult, error) {
	body, err := json.Marshal(models.PushRequest{Events: events})
	if err != nil {
		return models.PushResult{}, fmt.Errorf("failed to encode events: %w", err)
	}

	req, err := h.newRequest(ctx, http.MethodPost, "/api/events", bytes.NewReader(body))
	if err != nil {
		return models.PushResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out models.PushResult
	if err := h.do(req, &out); err != nil {
		return models.PushResult{}, err
	}
	if !out.OK {
		return models.PushResult{}, &StatusError{StatusCode: http.StatusOK, Code: out.Error}
	}
	return out, nil
}

func (h *HTTPRemote) Pull(ctx context.Context, window models.DayWindow) ([]models.WireEvent, error) {
	q := url.Values{}
	q.Set("from", strconv.FormatInt(window.From, 10))
	q.Set("to", strconv.FormatInt(window.To, 10))

	req, err := h.newRequest(ctx, http.MethodGet, "/api/events?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out models.PullResponse
	if err := h.do(req, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, &StatusError{StatusCode: http.StatusOK, Code: out.Error}
	}
	return out.Events, nil
}

// Ping reports whether the server is reachable.
func (h *HTTPRemote) Ping(ctx context.Context) bool {
	req, err := h.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return false
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (h *HTTPRemote) newRequest(ctx context.Context, method, path string, body *bytes.Reader) (*http.Request, error) {
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, h.baseURL+path, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	if h.deviceID != "" {
		req.Header.Set("X-Device-ID", h.deviceID)
	}
	return req, nil
}

func (h *HTTPRemote) do(req *http.Request, out any) error {
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &StatusError{StatusCode: resp.StatusCode, Code: body.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}
