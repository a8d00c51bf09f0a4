// Package app provides the application layer that orchestrates the PRD
// pipeline. It sits between the CLI, the local API and the MCP server and the
// store, pipeline and stage packages, so every surface runs the same
// operations.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/josephgoksu/PRDWing/internal/export"
	"github.com/josephgoksu/PRDWing/internal/llm"
	"github.com/josephgoksu/PRDWing/internal/metrics"
	"github.com/josephgoksu/PRDWing/internal/pipeline"
	"github.com/josephgoksu/PRDWing/internal/prd"
	"github.com/josephgoksu/PRDWing/internal/stages"
	"github.com/josephgoksu/PRDWing/internal/store"
	"github.com/josephgoksu/PRDWing/internal/telemetry"
)

var (
	// ErrStepBusy is returned when a stage is already running for a step.
	ErrStepBusy = errors.New("a stage is already running for this step")

	// ErrAmbiguous is returned when a project reference matches several
	// projects.
	ErrAmbiguous = errors.New("project reference is ambiguous")

	// ErrNotFinalized is returned when exporting a project whose final step
	// has no output yet.
	ErrNotFinalized = errors.New("project has not been finalized")
)

// PreferenceSource supplies the user's default tech preferences.
type PreferenceSource interface {
	TechPreferences() prd.TechPreferences
}

type staticPreferences prd.TechPreferences

func (p staticPreferences) TechPreferences() prd.TechPreferences { return prd.TechPreferences(p) }

// Options configures NewContext. Only Store is required.
type Options struct {
	Store       *store.Store
	Completer   llm.Completer
	Preferences PreferenceSource
	Telemetry   telemetry.Client
	Metrics     *metrics.Metrics
	Fs          afero.Fs
	Logger      zerolog.Logger
}

// Context holds shared dependencies for all app operations.
type Context struct {
	Store     *store.Store
	Machine   *pipeline.Machine
	Generator *stages.Generator
	Prefs     PreferenceSource
	Telemetry telemetry.Client
	Metrics   *metrics.Metrics
	Exporter  *export.Writer
	Logger    zerolog.Logger

	inflight sync.Map // step id -> struct{}
}

// errNoModel is returned by stages when no provider could be configured.
var errNoModel = errors.New("no language model configured (set llm.provider and an API key)")

// NewContext wires the application from its collaborators. A missing
// Completer makes model-backed stages fail while everything else works.
func NewContext(opts Options) *Context {
	if opts.Completer == nil {
		opts.Completer = llm.CompleterFunc(func(_ context.Context, _ string) (string, error) {
			return "", errNoModel
		})
	}
	if opts.Preferences == nil {
		opts.Preferences = staticPreferences{}
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NewNoopClient()
	}
	logger := opts.Logger.With().Str("component", "app").Logger()
	return &Context{
		Store:     opts.Store,
		Machine:   pipeline.New(opts.Store, opts.Logger),
		Generator: stages.New(opts.Completer, opts.Logger),
		Prefs:     opts.Preferences,
		Telemetry: opts.Telemetry,
		Metrics:   opts.Metrics,
		Exporter:  export.NewWriter(opts.Fs),
		Logger:    logger,
	}
}

// acquire marks a step as running. The returned func releases it.
func (c *Context) acquire(stepID string) (func(), error) {
	if _, busy := c.inflight.LoadOrStore(stepID, struct{}{}); busy {
		return nil, ErrStepBusy
	}
	return func() { c.inflight.Delete(stepID) }, nil
}

// toContent converts a stage result into a step content blob.
func toContent(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode step content: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("encode step content: %w", err)
	}
	return out, nil
}

// fromContent decodes a step content blob into out. Missing keys keep their
// zero values.
func fromContent(content map[string]any, out any) error {
	b, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("decode step content: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode step content: %w", err)
	}
	return nil
}
