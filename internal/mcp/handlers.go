package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/josephgoksu/PRDWing/internal/app"
	"github.com/josephgoksu/PRDWing/internal/export"
	"github.com/josephgoksu/PRDWing/internal/store"
)

// Source is the read side of the application the tools need.
type Source interface {
	ListProjects(ctx context.Context) ([]store.Project, error)
	GetProject(ctx context.Context, ref string) (*store.Project, error)
	Document(ctx context.Context, ref string) (export.Document, error)
}

// HandleListProjects lists projects, optionally filtered by status.
func HandleListProjects(ctx context.Context, src Source, params ListParams) (*ToolResult, error) {
	if !params.IsValid() {
		return &ToolResult{Error: FormatValidationError("status", "must be draft, in-progress or completed")}, nil
	}
	projects, err := src.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if params.Status != "" {
		filtered := projects[:0]
		for _, p := range projects {
			if string(p.Status) == params.Status {
				filtered = append(filtered, p)
			}
		}
		projects = filtered
	}
	return &ToolResult{Content: FormatProjects(projects)}, nil
}

// HandleGetPRD returns the finalized PRD as Markdown.
func HandleGetPRD(ctx context.Context, src Source, params ProjectParams) (*ToolResult, error) {
	doc, res, err := finalized(ctx, src, params)
	if res != nil || err != nil {
		return res, err
	}
	return &ToolResult{Content: doc.Markdown}, nil
}

// HandleGettingStartedPrompt returns the prompt written for a coding
// assistant when the project was finalized.
func HandleGettingStartedPrompt(ctx context.Context, src Source, params ProjectParams) (*ToolResult, error) {
	doc, res, err := finalized(ctx, src, params)
	if res != nil || err != nil {
		return res, err
	}
	return &ToolResult{Content: doc.GettingStartedPrompt}, nil
}

// finalized loads the document for params. A non-nil ToolResult reports a
// failure the caller can fix.
func finalized(ctx context.Context, src Source, params ProjectParams) (export.Document, *ToolResult, error) {
	ref := strings.TrimSpace(params.Project)
	if ref == "" {
		return export.Document{}, &ToolResult{Error: FormatValidationError("project", "required; call list_projects for ids")}, nil
	}
	doc, err := src.Document(ctx, ref)
	switch {
	case err == nil:
		return doc, nil, nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, app.ErrAmbiguous):
		return doc, &ToolResult{Error: FormatError(err.Error() + ". Call list_projects for valid ids.")}, nil
	case errors.Is(err, app.ErrNotFinalized):
		p, perr := src.GetProject(ctx, ref)
		if perr != nil {
			return doc, nil, perr
		}
		return doc, &ToolResult{Error: FormatNotFinalized(p)}, nil
	default:
		return doc, nil, err
	}
}
