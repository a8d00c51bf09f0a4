// Package pipeline governs the fixed five-step project pipeline: which step
// is active and which status transitions are legal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/rs/zerolog"

	"github.com/josephgoksu/PRDWing/internal/store"
)

var (
	// ErrRewindCancelled is returned when the user declines a rewind. No
	// state has been changed.
	ErrRewindCancelled = errors.New("rewind cancelled")

	// ErrOutOfOrder is returned when a transition would complete or start a
	// step ahead of an unfinished predecessor.
	ErrOutOfOrder = errors.New("step is out of order")
)

// Repository is the persistence the machine needs.
type Repository interface {
	GetProject(ctx context.Context, id string) (*store.Project, error)
	SaveSteps(ctx context.Context, projectID string, steps []store.Step, status store.ProjectStatus) error
	RepairSteps(ctx context.Context, projectID string) (int, error)
}

// ConfirmFunc asks the user to approve a destructive transition.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

// Approved agrees to every confirmation. It stands in for a rewind that the
// caller already confirmed.
func Approved(context.Context, string) (bool, error) { return true, nil }

// Machine applies pipeline transitions against a Repository.
type Machine struct {
	repo   Repository
	logger zerolog.Logger
}

func New(repo Repository, logger zerolog.Logger) *Machine {
	return &Machine{
		repo:   repo,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
}

// ActiveStep returns the first step that is pending or in progress, or the
// last step when all are completed. It returns nil for an empty slice.
func ActiveStep(steps []store.Step) *store.Step {
	if open := lowestOpen(steps); open != nil {
		return open
	}
	var last *store.Step
	for i := range steps {
		if last == nil || steps[i].Order > last.Order {
			last = &steps[i]
		}
	}
	return last
}

func lowestOpen(steps []store.Step) *store.Step {
	var found *store.Step
	for i := range steps {
		st := &steps[i]
		if st.Status == store.StepCompleted {
			continue
		}
		if found == nil || st.Order < found.Order {
			found = st
		}
	}
	return found
}

// NeedsRewind reports whether editing the step at order must first rewind
// the pipeline: the step is completed and is not the active step.
func NeedsRewind(steps []store.Step, order int) bool {
	active := ActiveStep(steps)
	for _, st := range steps {
		if st.Order == order {
			return st.Status == store.StepCompleted && active != nil && active.Order != order
		}
	}
	return false
}

// MergeContent returns base with patch's top-level keys applied.
func MergeContent(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	maps.Copy(out, base)
	maps.Copy(out, patch)
	return out
}

func statuses(steps []store.Step) []store.StepStatus {
	out := make([]store.StepStatus, len(steps))
	for i, st := range steps {
		out[i] = st.Status
	}
	return out
}

func (m *Machine) save(ctx context.Context, p *store.Project) (*store.Project, error) {
	status := store.DeriveStatus(statuses(p.Steps))
	if err := m.repo.SaveSteps(ctx, p.ID, p.Steps, status); err != nil {
		return nil, err
	}
	return m.repo.GetProject(ctx, p.ID)
}

// Advance completes stepID, merging patch into its content. The next step is
// left pending unless it is already further along. A step that does not
// belong to the project is ignored.
func (m *Machine) Advance(ctx context.Context, projectID, stepID string, patch map[string]any) (*store.Project, error) {
	p, err := m.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st := p.StepByID(stepID)
	if st == nil {
		m.logger.Debug().Str("project", projectID).Str("step", stepID).Msg("advance ignored: step not in project")
		return p, nil
	}
	for _, prev := range p.Steps {
		if prev.Order < st.Order && prev.Status != store.StepCompleted {
			return nil, fmt.Errorf("complete step %d before step %d: %w", prev.Order, st.Order, ErrOutOfOrder)
		}
	}

	st.Content = MergeContent(st.Content, patch)
	st.Status = store.StepCompleted
	if next := p.Step(st.Order + 1); next != nil {
		if next.Status != store.StepInProgress && next.Status != store.StepCompleted {
			next.Status = store.StepPending
		}
	}

	m.logger.Debug().Str("project", projectID).Int("order", st.Order).Msg("step completed")
	return m.save(ctx, p)
}

// UpdateContent merges patch into a step's content without touching any
// status.
func (m *Machine) UpdateContent(ctx context.Context, projectID, stepID string, patch map[string]any) (*store.Project, error) {
	p, err := m.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st := p.StepByID(stepID)
	if st == nil {
		return nil, fmt.Errorf("step %s: %w", stepID, store.ErrNotFound)
	}
	st.Content = MergeContent(st.Content, patch)
	return m.save(ctx, p)
}

// Start moves the active step from pending to in-progress. Starting an
// already started active step is a no-op.
func (m *Machine) Start(ctx context.Context, projectID string, order int) (*store.Project, error) {
	p, err := m.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st := p.Step(order)
	if st == nil {
		return nil, fmt.Errorf("step %d: %w", order, store.ErrNotFound)
	}
	if active := ActiveStep(p.Steps); active.Order != order {
		return nil, fmt.Errorf("start step %d while step %d is active: %w", order, active.Order, ErrOutOfOrder)
	}
	if st.Status != store.StepPending {
		return p, nil
	}
	st.Status = store.StepInProgress
	return m.save(ctx, p)
}

// Rewind reopens the step at toOrder after confirmation: earlier steps are
// completed, the target is in progress and later steps are pending. Step
// content is kept. Declining leaves everything untouched.
func (m *Machine) Rewind(ctx context.Context, projectID string, toOrder int, confirm ConfirmFunc) (*store.Project, error) {
	p, err := m.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := m.confirmRewind(ctx, p, toOrder, confirm); err != nil {
		return nil, err
	}
	rewind(p, toOrder)
	m.logger.Info().Str("project", projectID).Int("order", toOrder).Msg("pipeline rewound")
	return m.save(ctx, p)
}

// EditStep merges patch into the step at order. Editing a completed step
// that is not active rewinds the pipeline to it, after confirmation.
func (m *Machine) EditStep(ctx context.Context, projectID string, order int, patch map[string]any, confirm ConfirmFunc) (*store.Project, error) {
	p, err := m.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st := p.Step(order)
	if st == nil {
		return nil, fmt.Errorf("step %d: %w", order, store.ErrNotFound)
	}
	if NeedsRewind(p.Steps, order) {
		if err := m.confirmRewind(ctx, p, order, confirm); err != nil {
			return nil, err
		}
		rewind(p, order)
		m.logger.Info().Str("project", projectID).Int("order", order).Msg("pipeline rewound by edit")
	}
	st.Content = MergeContent(st.Content, patch)
	return m.save(ctx, p)
}

// Rerun stores the output of a step that was run again after its rewind was
// confirmed. In one write the step at order is completed with patch merged
// in, earlier steps stay completed and later steps go back to pending.
func (m *Machine) Rerun(ctx context.Context, projectID string, order int, patch map[string]any) (*store.Project, error) {
	p, err := m.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st := p.Step(order)
	if st == nil {
		return nil, fmt.Errorf("step %d: %w", order, store.ErrNotFound)
	}
	rewind(p, order)
	st.Content = MergeContent(st.Content, patch)
	st.Status = store.StepCompleted
	m.logger.Info().Str("project", projectID).Int("order", order).Msg("step re-run, later steps reset")
	return m.save(ctx, p)
}

// ConfirmRewind asks confirm whether the pipeline may be rewound to toOrder.
// It writes nothing; a declined confirmation returns ErrRewindCancelled.
func (m *Machine) ConfirmRewind(ctx context.Context, p *store.Project, toOrder int, confirm ConfirmFunc) error {
	return m.confirmRewind(ctx, p, toOrder, confirm)
}

// EnsureSteps repairs a legacy project that is missing steps and returns the
// refreshed project with the number of steps added.
func (m *Machine) EnsureSteps(ctx context.Context, projectID string) (*store.Project, int, error) {
	added, err := m.repo.RepairSteps(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}
	p, err := m.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, 0, err
	}
	return p, added, nil
}

func (m *Machine) confirmRewind(ctx context.Context, p *store.Project, toOrder int, confirm ConfirmFunc) error {
	target := p.Step(toOrder)
	if target == nil {
		return fmt.Errorf("step %d: %w", toOrder, store.ErrNotFound)
	}
	if confirm == nil {
		return ErrRewindCancelled
	}
	later := 0
	for _, st := range p.Steps {
		if st.Order > toOrder {
			later++
		}
	}
	msg := fmt.Sprintf("Reopening %q resets %d later step(s) to pending and marks their content stale. Continue?", target.Title, later)
	ok, err := confirm(ctx, msg)
	if err != nil {
		return fmt.Errorf("confirm rewind: %w", err)
	}
	if !ok {
		return ErrRewindCancelled
	}
	return nil
}

func rewind(p *store.Project, toOrder int) {
	for i := range p.Steps {
		st := &p.Steps[i]
		switch {
		case st.Order < toOrder:
			st.Status = store.StepCompleted
		case st.Order == toOrder:
			st.Status = store.StepInProgress
		default:
			st.Status = store.StepPending
		}
	}
}
