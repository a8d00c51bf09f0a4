package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/PRDWing/internal/app"
	"github.com/josephgoksu/PRDWing/internal/export"
	"github.com/josephgoksu/PRDWing/internal/store"
)

type fakeSource struct {
	projects []store.Project
	docs     map[string]export.Document
	err      error
}

func (f *fakeSource) ListProjects(context.Context) ([]store.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]store.Project(nil), f.projects...), nil
}

func (f *fakeSource) GetProject(_ context.Context, ref string) (*store.Project, error) {
	for i := range f.projects {
		if f.projects[i].ID == ref {
			return &f.projects[i], nil
		}
	}
	return nil, fmt.Errorf("project %q: %w", ref, store.ErrNotFound)
}

func (f *fakeSource) Document(ctx context.Context, ref string) (export.Document, error) {
	if f.err != nil {
		return export.Document{}, f.err
	}
	if _, err := f.GetProject(ctx, ref); err != nil {
		return export.Document{}, err
	}
	doc, ok := f.docs[ref]
	if !ok {
		return export.Document{}, app.ErrNotFinalized
	}
	return doc, nil
}

func project(id, name string, status store.ProjectStatus) store.Project {
	p := store.Project{ID: id, Name: name, Status: status, UpdatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	for i := 1; i <= store.StepCount; i++ {
		st := store.StepPending
		if status == store.ProjectCompleted || i == 1 && status == store.ProjectInProgress {
			st = store.StepCompleted
		}
		p.Steps = append(p.Steps, store.Step{ID: store.StepID(id, i), Order: i, Title: store.StepTitle(i), Status: st})
	}
	return p
}

func newSource() *fakeSource {
	return &fakeSource{
		projects: []store.Project{
			project("p1", "Acme", store.ProjectCompleted),
			project("p2", "Todo | Lists", store.ProjectInProgress),
		},
		docs: map[string]export.Document{
			"p1": {Title: "Acme", Markdown: "# Acme\n", GettingStartedPrompt: "Scaffold it."},
		},
	}
}

func TestHandleListProjects(t *testing.T) {
	tests := []struct {
		name    string
		params  ListParams
		want    []string
		notWant []string
		wantErr bool
	}{
		{name: "all", want: []string{"## Projects (2)", "`p1`", "`p2`", "Todo \\| Lists", "Completed"}},
		{name: "completed only", params: ListParams{Status: "completed"}, want: []string{"## Projects (1)", "`p1`"}, notWant: []string{"`p2`"}},
		{name: "invalid status", params: ListParams{Status: "archived"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := HandleListProjects(context.Background(), newSource(), tt.params)
			require.NoError(t, err)
			if tt.wantErr {
				assert.Contains(t, res.Error, "Validation Error")
				return
			}
			assert.Empty(t, res.Error)
			for _, w := range tt.want {
				assert.Contains(t, res.Content, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, res.Content, w)
			}
		})
	}
}

func TestHandleListProjects_Empty(t *testing.T) {
	res, err := HandleListProjects(context.Background(), &fakeSource{}, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, "No projects found.", res.Content)
}

func TestHandleListProjects_StoreError(t *testing.T) {
	_, err := HandleListProjects(context.Background(), &fakeSource{err: errors.New("disk gone")}, ListParams{})
	assert.ErrorContains(t, err, "disk gone")
}

func TestHandleGetPRD(t *testing.T) {
	tests := []struct {
		name      string
		project   string
		content   string
		errSubstr string
	}{
		{name: "finalized", project: "p1", content: "# Acme\n"},
		{name: "missing ref", project: "  ", errSubstr: "`project`"},
		{name: "unknown", project: "nope", errSubstr: "list_projects"},
		{name: "not finalized", project: "p2", errSubstr: "- [x] 1. Input Analysis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := HandleGetPRD(context.Background(), newSource(), ProjectParams{Project: tt.project})
			require.NoError(t, err)
			if tt.errSubstr != "" {
				assert.Contains(t, res.Error, tt.errSubstr)
				assert.Empty(t, res.Content)
				return
			}
			assert.Empty(t, res.Error)
			assert.Equal(t, tt.content, res.Content)
		})
	}
}

func TestHandleGettingStartedPrompt(t *testing.T) {
	res, err := HandleGettingStartedPrompt(context.Background(), newSource(), ProjectParams{Project: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "Scaffold it.", res.Content)

	_, err = HandleGettingStartedPrompt(context.Background(), &fakeSource{err: errors.New("boom")}, ProjectParams{Project: "p1"})
	assert.Error(t, err)
}

func TestFormatNotFinalized(t *testing.T) {
	p := project("p3", "Draft", store.ProjectDraft)
	out := FormatNotFinalized(&p)
	assert.True(t, strings.HasPrefix(out, "## PRD not ready"))
	assert.Equal(t, store.StepCount, strings.Count(out, "- [ ]"))
}
