// Package stages implements the five generation stages of the PRD pipeline.
// Stages only compute results; persisting them is the caller's job, so a
// failed stage never leaves partial content behind.
package stages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"text/template"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/josephgoksu/PRDWing/internal/llm"
	"github.com/josephgoksu/PRDWing/internal/utils"
)

var (
	// ErrGeneration wraps every model or parse failure.
	ErrGeneration = errors.New("generation failed")

	// ErrInvalidInput is returned before any model call when the input
	// cannot produce a meaningful result.
	ErrInvalidInput = errors.New("invalid input")
)

const (
	// MaxParseAttempts bounds how often a stage re-asks the model after
	// unparseable output.
	MaxParseAttempts = 3

	// MaxContextChars bounds the analyzed material.
	MaxContextChars = 16000

	// IdeaCount is how many ideas stage 1 asks for and keeps.
	IdeaCount = 5
)

// Generator runs the stages against a Completer.
type Generator struct {
	llm      llm.Completer
	logger   zerolog.Logger
	validate *validator.Validate
	attempts int
}

func New(c llm.Completer, logger zerolog.Logger) *Generator {
	return &Generator{
		llm:      c,
		logger:   logger.With().Str("component", "stages").Logger(),
		validate: validator.New(),
		attempts: MaxParseAttempts,
	}
}

// generateJSON renders tmpl, calls the model and decodes the first JSON value
// in the reply. Parse failures are fed back into the next prompt.
func (g *Generator) generateJSON(ctx context.Context, name string, tmpl *template.Template, data map[string]any) (any, error) {
	var lastErr error
	var feedback string

	for attempt := 1; attempt <= g.attempts; attempt++ {
		input := maps.Clone(data)
		if feedback != "" {
			input["ValidationErrors"] = feedback
		}
		prompt, err := render(tmpl, input)
		if err != nil {
			return nil, err
		}

		raw, err := g.llm.Complete(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", name, ErrGeneration, err)
		}

		v, err := utils.ExtractValue(raw)
		if err == nil {
			return v, nil
		}
		lastErr = err
		feedback = formatErrorFeedback(err.Error(), raw)
		g.logger.Warn().Str("call", name).Int("attempt", attempt).Err(err).Msg("unparseable model output")

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w: %w", name, ErrGeneration, ctx.Err())
		}
	}
	return nil, fmt.Errorf("%s: %w: parse JSON after %d attempts: %w", name, ErrGeneration, g.attempts, lastErr)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// formatErrorFeedback creates a prompt section for error feedback.
func formatErrorFeedback(errorMsg, rawOutput string) string {
	return fmt.Sprintf(`
PREVIOUS ATTEMPT FAILED - PLEASE FIX

Error: %s

Your previous output (which failed):
%s

Please ensure your response is a single valid JSON document matching the required schema.
`, errorMsg, utils.Truncate(rawOutput, 500))
}
