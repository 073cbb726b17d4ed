package llm

import (
	"context"
	"time"

	"github.com/skillsenselab/callscribe/errors"
	"github.com/skillsenselab/callscribe/logger"
	"github.com/skillsenselab/callscribe/resilience"
)

// Client wraps a Provider with retry and structured logging. Transport
// failures are retried per the configured policy; the error returned after
// exhaustion carries the LLM_FAILED code.
type Client struct {
	provider Provider
	retry    resilience.RetryConfig
	log      *logger.Logger
}

// NewClient creates a retrying client around the given provider. A nil retry
// config uses the default policy; a nil logger discards output.
func NewClient(p Provider, retry *resilience.RetryConfig, log *logger.Logger) *Client {
	cfg := resilience.DefaultRetryConfig()
	if retry != nil {
		cfg = *retry
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		provider: p,
		retry:    cfg,
		log:      log.WithComponent("llm"),
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = func(attempt int, err error, _ time.Duration) {
			c.log.Warn("llm call failed, retrying", logger.Fields(
				logger.FieldProvider, p.Name(),
				"attempt", attempt,
				logger.FieldError, err.Error(),
			))
		}
	}
	return c
}

// Provider returns the wrapped provider.
func (c *Client) Provider() Provider { return c.provider }

// IsAvailable reports whether the underlying provider is reachable.
func (c *Client) IsAvailable(ctx context.Context) bool {
	return c.provider.IsAvailable(ctx)
}

// Complete sends the request through the retry policy.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := resilience.Retry(ctx, c.retry, func() (*CompletionResponse, error) {
		return c.provider.Complete(ctx, req)
	})
	if err != nil {
		return nil, errors.LLMFailed("complete", err)
	}
	return resp, nil
}

// CompleteStructured sends a structured completion through the retry policy.
func (c *Client) CompleteStructured(ctx context.Context, req CompletionRequest, schema any) (*CompletionResponse, error) {
	resp, err := resilience.Retry(ctx, c.retry, func() (*CompletionResponse, error) {
		return c.provider.CompleteStructured(ctx, req, schema)
	})
	if err != nil {
		return nil, errors.LLMFailed("complete_structured", err)
	}
	return resp, nil
}

// Stream opens a streamed completion. Streaming is not retried; a broken
// stream surfaces as an error chunk.
func (c *Client) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	ch, err := c.provider.Stream(ctx, req)
	if err != nil {
		return nil, errors.LLMFailed("stream", err)
	}
	return ch, nil
}
