package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is a Client for testing. Responses are served from a scripted
// queue so tests can drive multi-attempt repair loops.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ResponseText string
	// Responses, when non-empty, are returned in order; the last entry
	// repeats once the queue is exhausted.
	Responses []string
	// FailWith, when non-nil, makes every call return this error.
	FailWith error
	// FailFirst makes the first N calls return FailWith (or a generic
	// error), after which calls succeed.
	FailFirst int

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	requests     []*ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat serves the next scripted response.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	count := c.requestCount.Add(1)

	c.mu.Lock()
	reqCopy := *req
	c.requests = append(c.requests, &reqCopy)
	c.mu.Unlock()

	failErr := c.FailWith
	if c.FailFirst > 0 && int(count) <= c.FailFirst {
		if failErr == nil {
			failErr = fmt.Errorf("mock client failure %d", count)
		}
		return nil, failErr
	}
	if c.FailFirst == 0 && failErr != nil {
		return nil, failErr
	}

	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	content := c.ResponseText
	if len(c.Responses) > 0 {
		idx := int(count) - 1
		if idx >= len(c.Responses) {
			idx = len(c.Responses) - 1
		}
		content = c.Responses[idx]
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4
	}
	completionTokens := len(content) / 4

	return &ChatResult{
		Content:          content,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Provider:         MockClientName,
		ModelUsed:        req.Model,
		RequestID:        fmt.Sprintf("mock-%d", count),
	}, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns the recorded requests, in call order.
func (c *MockClient) Requests() []*ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Reset clears the request log and counter.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestCount.Store(0)
	c.requests = nil
}

// Verify interface
var _ Client = (*MockClient)(nil)
