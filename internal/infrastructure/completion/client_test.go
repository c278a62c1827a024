package completion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"jobflow/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(config.CompletionConfig{
		BaseURL:     srv.URL,
		APIKey:      "sk-test",
		Model:       "deepseek/deepseek-chat:free",
		RoutingSort: "latency",
		Timeout:     5 * time.Second,
	}, log.New(io.Discard, "", 0))
	c.backoffBase = time.Millisecond
	c.maxBackoff = 100 * time.Millisecond
	return c
}

func TestClient_Complete_RequestShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer, got %q", r.Header.Get("Authorization"))
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "deepseek/deepseek-chat:free" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if req.Provider == nil || req.Provider.Sort != "latency" {
			t.Errorf("expected provider.sort=latency, got %+v", req.Provider)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<p>hi</p>"}}]}`))
	})

	out, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != "<p>hi</p>" {
		t.Fatalf("unexpected content %q", out)
	}
}

func TestClient_Complete_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	if _, err := c.Complete(context.Background(), "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestClient_Complete_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := c.Complete(context.Background(), "x"); err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestClient_Complete_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	out, err := c.Complete(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != "ok" || calls.Load() != 2 {
		t.Fatalf("expected success on second call, got %q after %d calls", out, calls.Load())
	}
}

func TestClient_Complete_GivesUpOnPersistent429(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	if _, err := c.Complete(context.Background(), "x"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if got := calls.Load(); got != int32(c.maxRetries+1) {
		t.Fatalf("expected %d attempts, got %d", c.maxRetries+1, got)
	}
}

func TestClient_Complete_SucceedsAfterSeveralRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"late"}}]}`))
	})

	out, err := c.Complete(context.Background(), "x")
	if err != nil || out != "late" {
		t.Fatalf("expected success on the last retry, got %q %v", out, err)
	}
}

func TestClient_BackoffSchedule(t *testing.T) {
	c := &Client{backoffBase: 500 * time.Millisecond, maxBackoff: 10 * time.Second}
	want := []time.Duration{500 * time.Millisecond, 2500 * time.Millisecond, 10 * time.Second, 10 * time.Second}
	for i, w := range want {
		if got := c.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestClient_NilIsNotConfigured(t *testing.T) {
	c := NewClient(config.CompletionConfig{}, nil)
	if c != nil {
		t.Fatalf("expected nil client without api key")
	}
	if _, err := c.Complete(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"<p>plain</p>":           "<p>plain</p>",
		"```html\n<p>x</p>\n```": "<p>x</p>",
		"  ```\n<b>y</b>```  ":   "<b>y</b>",
		"```<i>z</i>```":         "<i>z</i>",
	}
	for in, want := range cases {
		if got := StripCodeFence(in); got != want {
			t.Fatalf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
