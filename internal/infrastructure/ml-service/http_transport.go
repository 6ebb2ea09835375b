package ml_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/pkg/e"
)

// encodeResponse — ответ POST {base}/encode.
type encodeResponse struct {
	Vector []float32 `json:"vector"`
	Model  string    `json:"model"`
}

// describeResponse — ответ GET {base}/describe.
type describeResponse struct {
	Devices   []string `json:"devices"`
	Device    string   `json:"device"`
	Model     string   `json:"model"`
	Dimension int      `json:"dimension"`
}

// StatusError — ответ энкодера с кодом, отличным от 200.
type StatusError struct {
	Code int
	Body string
}

func (s *StatusError) Error() string {
	return fmt.Sprintf("encoder: status %d: %s", s.Code, s.Body)
}

// HTTPTransport вызывает энкодер по HTTP: тело запроса — PNG, ответ — JSON.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (t *HTTPTransport) Encode(ctx context.Context, png []byte, device domain.Device) ([]float32, string, error) {
	const op = "HTTPTransport.Encode"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/encode", bytes.NewReader(png))
	if err != nil {
		return nil, "", e.Wrap(op, err)
	}
	req.Header.Set("Content-Type", "image/png")
	if device != "" {
		req.Header.Set(deviceHeader, string(device))
	}

	var result encodeResponse
	if err := t.do(req, &result); err != nil {
		return nil, "", e.Wrap(op, err)
	}

	return result.Vector, result.Model, nil
}

func (t *HTTPTransport) Describe(ctx context.Context) (*Description, error) {
	const op = "HTTPTransport.Describe"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/describe", nil)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var result describeResponse
	if err := t.do(req, &result); err != nil {
		return nil, e.Wrap(op, err)
	}

	raw := result.Devices
	if result.Device != "" {
		raw = append(raw, result.Device)
	}

	return &Description{
		Devices:   parseDevices(raw),
		Model:     result.Model,
		Dimension: result.Dimension,
	}, nil
}

func (t *HTTPTransport) do(req *http.Request, out any) error {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("encoder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode encoder response: %w", err)
	}

	return nil
}
