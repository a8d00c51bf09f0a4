package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

const (
	// MaxTransientRetries is the number of attempts made when the provider
	// reports a rate limit or network failure.
	MaxTransientRetries = 3

	// RetryDelay is the base delay between transient retries. The n-th retry
	// waits n times this long.
	RetryDelay = 500 * time.Millisecond
)

// SystemPrompt is sent ahead of every completion.
const SystemPrompt = "You are an expert product manager and software architect. " +
	"When asked for JSON, respond with a single valid JSON document and nothing else."

// Completer turns a prompt into model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ChatCompleter implements Completer over an Eino chat model.
type ChatCompleter struct {
	model   model.BaseChatModel
	system  string
	timeout time.Duration
	delay   time.Duration
	logger  zerolog.Logger
}

// NewChatCompleter wraps m. A zero timeout disables the per-call limit.
func NewChatCompleter(m model.BaseChatModel, timeout time.Duration, logger zerolog.Logger) *ChatCompleter {
	return &ChatCompleter{
		model:   m,
		system:  SystemPrompt,
		timeout: timeout,
		delay:   RetryDelay,
		logger:  logger.With().Str("component", "llm").Logger(),
	}
}

// NewCompleter builds the chat model described by cfg and wraps it.
func NewCompleter(ctx context.Context, cfg Config, logger zerolog.Logger) (*ChatCompleter, error) {
	m, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewChatCompleter(m, cfg.Timeout, logger), nil
}

// Complete sends prompt as a user message. Transient provider errors are
// retried with linear backoff; the caller's context bounds the whole call.
func (c *ChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxTransientRetries; attempt++ {
		text, err := c.generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsTransientError(err) || attempt == MaxTransientRetries {
			break
		}
		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("transient LLM error, retrying")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.delay * time.Duration(attempt)):
		}
	}
	return "", lastErr
}

func (c *ChatCompleter) generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	messages := []*schema.Message{
		schema.SystemMessage(c.system),
		schema.UserMessage(prompt),
	}
	resp, err := c.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("LLM generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("LLM generate: empty response")
	}
	return resp.Content, nil
}

// IsTransientError checks if an error is transient and worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())

	// Rate limit errors
	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "quota exceeded") {
		return true
	}

	// Network errors
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "temporary")
}
