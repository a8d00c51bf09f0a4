package app

import (
	"context"

	"github.com/josephgoksu/PRDWing/internal/export"
	"github.com/josephgoksu/PRDWing/internal/prd"
	"github.com/josephgoksu/PRDWing/internal/stages"
	"github.com/josephgoksu/PRDWing/internal/store"
	"github.com/josephgoksu/PRDWing/internal/telemetry"
)

// Document returns the finalized PRD of a project.
func (c *Context) Document(ctx context.Context, ref string) (export.Document, error) {
	p, err := c.resolve(ctx, ref)
	if err != nil {
		return export.Document{}, err
	}
	return finalizedDocument(p)
}

func finalizedDocument(p *store.Project) (export.Document, error) {
	content := p.Step(StepFinalize).Content
	raw, ok := content["prd"]
	if !ok {
		return export.Document{}, ErrNotFinalized
	}
	var fin stages.Finalized
	if err := fromContent(content, &fin); err != nil {
		return export.Document{}, err
	}
	rec := prd.Normalize(raw)
	markdown := fin.Markdown
	if markdown == "" {
		markdown = prd.RenderMarkdown(rec, p.Name)
	}
	return export.Document{
		Title:                p.Name,
		PRD:                  rec,
		Markdown:             markdown,
		GettingStartedPrompt: fin.GettingStartedPrompt,
	}, nil
}

// Export writes the finalized PRD into dir and returns the file path.
func (c *Context) Export(ctx context.Context, ref, dir string, format export.Format) (string, error) {
	doc, err := c.Document(ctx, ref)
	if err != nil {
		return "", err
	}
	path, err := c.Exporter.Export(dir, doc, format)
	if err != nil {
		return "", err
	}
	c.Telemetry.Track(telemetry.EventPRDExported, map[string]any{"format": string(format)})
	c.Logger.Info().Str("path", path).Msg("PRD exported")
	return path, nil
}
