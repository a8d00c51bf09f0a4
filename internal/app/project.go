package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/josephgoksu/PRDWing/internal/store"
	"github.com/josephgoksu/PRDWing/internal/telemetry"
)

// CreateProject creates a project with its five pending steps.
func (c *Context) CreateProject(ctx context.Context, name string) (*store.Project, error) {
	p, err := c.Store.CreateProject(ctx, name)
	if err != nil {
		return nil, err
	}
	c.Telemetry.Track(telemetry.EventProjectCreated, nil)
	c.Logger.Info().Str("project", p.ID).Msg("project created")
	return p, nil
}

// ListProjects returns all projects, most recently updated first.
func (c *Context) ListProjects(ctx context.Context) ([]store.Project, error) {
	return c.Store.ListProjects(ctx)
}

// GetProject resolves ref and returns the project with its steps.
func (c *Context) GetProject(ctx context.Context, ref string) (*store.Project, error) {
	return c.resolve(ctx, ref)
}

// resolve finds a project by exact id, unique id prefix, or case-insensitive
// name, in that order. Legacy projects with missing or misnamed steps are
// repaired on the way.
func (c *Context) resolve(ctx context.Context, ref string) (*store.Project, error) {
	p, err := c.lookup(ctx, ref)
	if err != nil || p.Intact() {
		return p, err
	}
	repaired, _, err := c.Machine.EnsureSteps(ctx, p.ID)
	return repaired, err
}

func (c *Context) lookup(ctx context.Context, ref string) (*store.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("project reference is empty: %w", store.ErrNotFound)
	}
	p, err := c.Store.GetProject(ctx, ref)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return p, err
	}

	all, err := c.Store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	var byPrefix, byName []store.Project
	for _, p := range all {
		if strings.HasPrefix(p.ID, ref) {
			byPrefix = append(byPrefix, p)
		}
		if strings.EqualFold(p.Name, ref) {
			byName = append(byName, p)
		}
	}
	for _, matches := range [][]store.Project{byPrefix, byName} {
		switch len(matches) {
		case 0:
			continue
		case 1:
			return &matches[0], nil
		default:
			return nil, fmt.Errorf("%q matches %d projects: %w", ref, len(matches), ErrAmbiguous)
		}
	}
	return nil, fmt.Errorf("project %q: %w", ref, store.ErrNotFound)
}

// RenameProject changes a project's display name.
func (c *Context) RenameProject(ctx context.Context, ref, name string) (*store.Project, error) {
	p, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := c.Store.UpdateProject(ctx, p.ID, store.ProjectUpdate{Name: &name}); err != nil {
		return nil, err
	}
	return c.Store.GetProject(ctx, p.ID)
}

// DeleteProject removes the project with exactly this id, and its steps. It
// reports false when no project has the id. Prefixes and names are not
// resolved here; callers that accept them resolve and confirm first.
func (c *Context) DeleteProject(ctx context.Context, id string) (bool, error) {
	deleted, err := c.Store.DeleteProject(ctx, strings.TrimSpace(id))
	if err != nil {
		return false, err
	}
	if deleted {
		c.Logger.Info().Str("project", id).Msg("project deleted")
	}
	return deleted, nil
}

// RepairProject adds any steps missing from a legacy project.
func (c *Context) RepairProject(ctx context.Context, ref string) (*store.Project, int, error) {
	p, err := c.lookup(ctx, ref)
	if err != nil {
		return nil, 0, err
	}
	repaired, added, err := c.Machine.EnsureSteps(ctx, p.ID)
	if err != nil {
		return nil, 0, err
	}
	if added > 0 {
		c.Logger.Info().Str("project", p.ID).Int("added", added).Msg("project steps repaired")
	}
	return repaired, added, nil
}
