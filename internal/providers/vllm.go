package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	VLLMName    = "vllm"
	VLLMBaseURL = "http://localhost:8000/v1"
)

// VLLMConfig holds configuration for a locally-hosted OpenAI-compatible
// inference server (vLLM, llama.cpp server, etc.).
type VLLMConfig struct {
	BaseURL      string
	APIKey       string // vLLM accepts any non-empty key by default
	DefaultModel string
	Timeout      time.Duration
	// Transient-failure retry (network errors, 429, 5xx)
	MaxRetries int           // attempts including the first (default: 3)
	RetryDelay time.Duration // base delay, exponential backoff (default: 1s)
	// Rate limiting
	RateLimit float64 // requests per second (0 = unlimited)
}

// VLLMClient implements Client against an OpenAI-compatible chat completions
// endpoint.
type VLLMClient struct {
	baseURL      string
	apiKey       string
	defaultModel string
	client       *http.Client
	limiter      *rate.Limiter
	maxRetries   uint
	retryDelay   time.Duration
}

// NewVLLMClient creates a client for an OpenAI-compatible endpoint.
func NewVLLMClient(cfg VLLMConfig) *VLLMClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = VLLMBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "vllm"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "llama-3.1-8b-instruct"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &VLLMClient{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		client:       &http.Client{Timeout: cfg.Timeout},
		limiter:      limiter,
		maxRetries:   uint(cfg.MaxRetries),
		retryDelay:   cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *VLLMClient) Name() string {
	return VLLMName
}

// Chat sends a chat completion request.
func (c *VLLMClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body := chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseFormat != nil {
		body.ResponseFormat = req.ResponseFormat
	}

	resp, err := c.doRequest(ctx, &body)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		ExecutionTime:    time.Since(start),
		Provider:         VLLMName,
		ModelUsed:        resp.Model,
		RequestID:        requestID,
	}, nil
}

// doRequest posts to /chat/completions, retrying transient failures with
// exponential backoff. Non-transient endpoint errors surface immediately.
func (c *VLLMClient) doRequest(ctx context.Context, body *chatCompletionRequest) (*chatCompletionResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp *chatCompletionResponse
	err = retry.Do(
		func() error {
			r, err := c.send(ctx, bodyBytes)
			if err != nil {
				if Transient(err) {
					return err
				}
				return retry.Unrecoverable(err)
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetries),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(c.retryDelay/2),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *VLLMClient) send(ctx context.Context, body []byte) (*chatCompletionResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.client.Do(req)
	if err != nil {
		// Surface caller cancellation as-is, not as an endpoint failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrEndpointUnreachable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrEndpointUnreachable, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &EndpointError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &parsed, nil
}

// OpenAI-compatible wire types

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Verify interface
var _ Client = (*VLLMClient)(nil)
