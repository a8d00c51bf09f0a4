package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/josephgoksu/PRDWing/internal/prd"
)

// Finalized is the stage 5 result.
type Finalized struct {
	PRD                  prd.Record `json:"prd"`
	Markdown             string     `json:"markdown"`
	GettingStartedPrompt string     `json:"gettingStartedPrompt"`
}

// Finalize runs stage 5: the deterministic Markdown document plus one model
// call that writes a getting-started prompt for a coding assistant.
func (g *Generator) Finalize(ctx context.Context, rec prd.Record, title string) (*Finalized, error) {
	prompt, err := render(gettingStartedPrompt, map[string]any{
		"PRD": prd.RenderGettingStartedPrompt(rec, title),
	})
	if err != nil {
		return nil, err
	}
	out, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("getting started prompt: %w: %w", ErrGeneration, err)
	}
	out = strings.TrimSpace(stripFence(out))
	if out == "" {
		return nil, fmt.Errorf("getting started prompt: %w: empty response", ErrGeneration)
	}
	return &Finalized{
		PRD:                  rec,
		Markdown:             prd.RenderMarkdown(rec, title),
		GettingStartedPrompt: out,
	}, nil
}

// stripFence removes a single surrounding code fence some models add even
// when asked for plain text.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], " \t") {
		body = body[nl+1:]
	}
	return body
}
