package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("backend: not found")
	ErrNotConfigured = errors.New("backend: base url not configured")
)

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend %s %s: status=%d body=%s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client issues every backend call against one base URL. A bearer token is
// attached with WithBearer.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *log.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// WithBearer returns a copy of c that sends token on every request.
func (c *Client) WithBearer(token string) *Client {
	if c == nil {
		return nil
	}
	cp := *c
	cp.token = strings.TrimSpace(token)
	return &cp
}

// Do sends body as JSON (when non-nil) to path and decodes the JSON answer
// into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, body any, out any) error {
	if c == nil || c.client == nil {
		return errors.New("nil backend client")
	}
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Printf("[Backend] request failed method=%s path=%s err=%v", method, path, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		bodyStr := strings.TrimSpace(string(rb))
		if resp.StatusCode != http.StatusNotFound {
			c.logger.Printf("[Backend] error response method=%s path=%s status=%d body=%q", method, path, resp.StatusCode, bodyStr)
		}
		return &HTTPError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: bodyStr}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend %s %s: decode: %w", method, path, err)
	}
	return nil
}
