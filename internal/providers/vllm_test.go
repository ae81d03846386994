package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func completionBody(content string) string {
	resp := map[string]any{
		"id":    "cmpl-1",
		"model": "llama-3.1-8b-instruct",
		"choices": []any{
			map[string]any{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func testClient(url string) *VLLMClient {
	return NewVLLMClient(VLLMConfig{
		BaseURL:    url,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})
}

func TestNewVLLMClientClampsNegativeRetries(t *testing.T) {
	// A negative retry count from config must not wrap into an effectively
	// unbounded retry budget.
	c := NewVLLMClient(VLLMConfig{MaxRetries: -1})
	if c.maxRetries != 3 {
		t.Errorf("maxRetries = %d, want default 3", c.maxRetries)
	}
}

func TestVLLMChatSuccess(t *testing.T) {
	var gotBody chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer vllm" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(completionBody(`{"party":"Acme"}`)))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.Chat(context.Background(), &ChatRequest{
		Messages:    []Message{{Role: "user", Content: "extract"}},
		Temperature: 0,
		MaxTokens:   512,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if result.Content != `{"party":"Acme"}` {
		t.Errorf("content = %q", result.Content)
	}
	if result.TotalTokens != 15 {
		t.Errorf("total tokens = %d, want 15", result.TotalTokens)
	}
	if result.Provider != VLLMName {
		t.Errorf("provider = %q", result.Provider)
	}
	if gotBody.Model != "llama-3.1-8b-instruct" {
		t.Errorf("request model = %q, want default", gotBody.Model)
	}
	if gotBody.MaxTokens != 512 {
		t.Errorf("request max_tokens = %d", gotBody.MaxTokens)
	}
}

func TestVLLMChatRetriesServerError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completionBody("ok")))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v, want success after retries", err)
	}
	if result.Content != "ok" {
		t.Errorf("content = %q", result.Content)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestVLLMChatDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err == nil {
		t.Fatal("Chat() expected error")
	}

	var ee *EndpointError
	if !errors.As(err, &ee) {
		t.Fatalf("error = %v, want *EndpointError", err)
	}
	if ee.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", ee.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry)", calls.Load())
	}
}

func TestVLLMChatUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := testClient(srv.URL)
	_, err := c.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err == nil {
		t.Fatal("Chat() expected error")
	}
	if !errors.Is(err, ErrEndpointUnreachable) {
		t.Errorf("error = %v, want ErrEndpointUnreachable", err)
	}
}

func TestVLLMChatContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(completionBody("late")))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := testClient(srv.URL)
	_, err := c.Chat(ctx, &ChatRequest{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err == nil {
		t.Fatal("Chat() expected error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestVLLMChatEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"cmpl-1","model":"m","choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err == nil {
		t.Fatal("Chat() expected error for empty choices")
	}
}
