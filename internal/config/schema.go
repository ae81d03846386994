package config

import (
	"time"

	"github.com/clausewise/clausewise/internal/extract"
	"github.com/clausewise/clausewise/internal/providers"
)

// Config holds clausewise configuration.
type Config struct {
	Endpoint   EndpointCfg   `mapstructure:"endpoint" yaml:"endpoint"`
	Extraction ExtractionCfg `mapstructure:"extraction" yaml:"extraction"`
}

// EndpointCfg configures the inference endpoint.
type EndpointCfg struct {
	Provider       string  `mapstructure:"provider" yaml:"provider"`   // "vllm" or "openai"
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`   // OpenAI-compatible API root
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`     // supports ${ENV_VAR} syntax
	Model          string  `mapstructure:"model" yaml:"model"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries"`       // transient-failure retries
	RetryDelayMS   int     `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"` // base backoff delay
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"`         // requests per second
}

// ExtractionCfg configures the repair loop and chunking.
type ExtractionCfg struct {
	MaxAttempts   int     `mapstructure:"max_attempts" yaml:"max_attempts"` // repair loop budget, first attempt included
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Concurrency   int     `mapstructure:"concurrency" yaml:"concurrency"`         // bounded concurrent documents
	MaxChunkWords int     `mapstructure:"max_chunk_words" yaml:"max_chunk_words"` // prose chunk word budget
}

// DefaultConfig returns configuration with sensible defaults: a local vLLM
// server and a three-attempt repair budget.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: EndpointCfg{
			Provider:       "vllm",
			BaseURL:        providers.VLLMBaseURL,
			APIKey:         "${CLAUSEWISE_API_KEY}",
			Model:          "llama-3.1-8b-instruct",
			TimeoutSeconds: 120,
			MaxRetries:     3,
			RetryDelayMS:   1000,
			RateLimit:      0,
		},
		Extraction: ExtractionCfg{
			MaxAttempts:   3,
			Temperature:   0,
			MaxTokens:     2048,
			Concurrency:   8,
			MaxChunkWords: 256,
		},
	}
}

// NewClient builds the inference client selected by the endpoint config,
// resolving ${ENV_VAR} references in the API key.
func (c *Config) NewClient() providers.Client {
	ep := c.Endpoint
	apiKey := ResolveEnvVars(ep.APIKey)
	timeout := time.Duration(ep.TimeoutSeconds) * time.Second
	retryDelay := time.Duration(ep.RetryDelayMS) * time.Millisecond

	if ep.Provider == "openai" {
		return providers.NewOpenAIClient(providers.OpenAIConfig{
			APIKey:       apiKey,
			BaseURL:      ep.BaseURL,
			DefaultModel: ep.Model,
			Timeout:      timeout,
			MaxRetries:   ep.MaxRetries,
			RateLimit:    ep.RateLimit,
		})
	}

	return providers.NewVLLMClient(providers.VLLMConfig{
		BaseURL:      ep.BaseURL,
		APIKey:       apiKey,
		DefaultModel: ep.Model,
		Timeout:      timeout,
		MaxRetries:   ep.MaxRetries,
		RetryDelay:   retryDelay,
		RateLimit:    ep.RateLimit,
	})
}

// ExtractorConfig maps the extraction section onto the extractor's config.
func (c *Config) ExtractorConfig() extract.Config {
	return extract.Config{
		MaxAttempts: c.Extraction.MaxAttempts,
		Model:       c.Endpoint.Model,
		Temperature: c.Extraction.Temperature,
		MaxTokens:   c.Extraction.MaxTokens,
		Timeout:     time.Duration(c.Endpoint.TimeoutSeconds) * time.Second,
		Concurrency: c.Extraction.Concurrency,
	}
}
