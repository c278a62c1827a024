package completion

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

	"jobflow/internal/config"

	"golang.org/x/time/rate"
)

var (
	ErrNotConfigured = errors.New("completion: api key not configured")
	ErrEmptyResponse = errors.New("completion: response has no choices")
	ErrRateLimited   = errors.New("completion: rate limited, max retries exceeded")
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type providerPreference struct {
	Sort string `json:"sort,omitempty"`
}

type chatRequest struct {
	Model    string              `json:"model"`
	Messages []message           `json:"messages"`
	Provider *providerPreference `json:"provider,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	sort    string

	client      *http.Client
	limiter     *rate.Limiter
	backoffBase time.Duration
	maxBackoff  time.Duration
	maxRetries  int
	logger      *log.Logger
}

// NewClient returns nil when no API key is configured. A nil *Client answers
// every call with ErrNotConfigured.
func NewClient(cfg config.CompletionConfig, logger *log.Logger) *Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = log.Default()
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		sort:        cfg.RoutingSort,
		client:      &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(limit, 1),
		backoffBase: 500 * time.Millisecond,
		maxBackoff:  10 * time.Second,
		maxRetries:  3,
		logger:      logger,
	}
}

// Complete sends prompt as a single user message and returns the text of
// the first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}

	body := chatRequest{
		Model:    c.model,
		Messages: []message{{Role: "user", Content: prompt}},
	}
	if c.sort != "" {
		body.Provider = &providerPreference{Sort: c.sort}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	start := time.Now()
	out, err := c.send(ctx, b)
	if err != nil {
		c.logger.Printf("[Completion] request failed model=%s latency=%s err=%v", c.model, time.Since(start), err)
		return "", err
	}
	c.logger.Printf("[Completion] ok model=%s latency=%s chars=%d", c.model, time.Since(start), len(out))
	return out, nil
}

// send retries a rate-limited request up to maxRetries times, waiting
// backoff(1), backoff(2), ... in between.
func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
		out, err := c.invoke(ctx, body)
		if !errors.Is(err, ErrRateLimited) || attempt >= c.maxRetries {
			return out, err
		}
	}
}

// backoff grows ×5 from backoffBase and stays at maxBackoff once reached.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.backoffBase
	for i := 1; i < attempt && d < c.maxBackoff; i++ {
		d *= 5
	}
	if d > c.maxBackoff {
		d = c.maxBackoff
	}
	return d
}

func (c *Client) invoke(ctx context.Context, body []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(rb)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("completion: decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// StripCodeFence removes a surrounding markdown code fence, which models add
// despite being asked not to.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
