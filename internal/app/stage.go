package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/josephgoksu/PRDWing/internal/logger"
	"github.com/josephgoksu/PRDWing/internal/pipeline"
	"github.com/josephgoksu/PRDWing/internal/prd"
	"github.com/josephgoksu/PRDWing/internal/stages"
	"github.com/josephgoksu/PRDWing/internal/store"
	"github.com/josephgoksu/PRDWing/internal/telemetry"
)

// Step orders.
const (
	StepAnalysis   = 1
	StepIdeas      = 2
	StepRefinement = 3
	StepPRD        = 4
	StepFinalize   = 5
)

var stageNames = map[int]string{
	StepAnalysis:   "analyze",
	StepIdeas:      "select",
	StepRefinement: "refine",
	StepPRD:        "generate",
	StepFinalize:   "finalize",
}

// PRDContent is the content of the PRD Generation step.
type PRDContent struct {
	Context     string        `json:"context"`
	RefinedIdea string        `json:"refinedIdea"`
	TechStack   prd.TechStack `json:"techStack"`
	PRD         prd.Record    `json:"prd"`
}

// AnalyzeRequest is the user material for stage 1.
type AnalyzeRequest struct {
	Text        string              `json:"text"`
	Attachments []stages.Attachment `json:"attachments,omitempty"`
}

// RefineRequest edits the refinement. Nil or empty fields keep the current
// value.
type RefineRequest struct {
	RefinedIdea *string       `json:"refinedIdea,omitempty"`
	TechStack   prd.TechStack `json:"techStack"`
	Complete    bool          `json:"complete"`
}

// run executes one stage for the step at order, guarding against concurrent
// runs of the same step and recording metrics and telemetry.
func (c *Context) run(ctx context.Context, p *store.Project, order int, fn func(context.Context) error) error {
	st := p.Step(order)
	if st == nil {
		return fmt.Errorf("step %d: %w", order, store.ErrNotFound)
	}
	release, err := c.acquire(st.ID)
	if err != nil {
		return err
	}
	defer release()
	return c.observe(ctx, p, order, fn)
}

// observe runs fn and records it as one stage run in metrics, telemetry and
// the log. A declined rewind is not a run.
func (c *Context) observe(ctx context.Context, p *store.Project, order int, fn func(context.Context) error) error {
	name := stageNames[order]
	logger.SetStage(p.ID, name)
	defer logger.SetStage("", "")

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if errors.Is(err, pipeline.ErrRewindCancelled) {
		return err
	}

	c.Metrics.ObserveStage(name, err, elapsed)
	props := map[string]any{"stage": name, "duration_ms": elapsed.Milliseconds()}
	log := c.Logger.With().Str("project", p.ID).Str("stage", name).Dur("elapsed", elapsed).Logger()
	if err != nil {
		c.Telemetry.Track(telemetry.EventStageFailed, props)
		log.Warn().Err(err).Msg("stage failed")
		return err
	}
	c.Telemetry.Track(telemetry.EventStageCompleted, props)
	log.Info().Msg("stage completed")
	return nil
}

// open readies the step at order for new output and reports whether this is
// a re-run. A re-run of a completed step that is no longer active only
// confirms the rewind here; commit writes it together with the result, so a
// failed stage leaves the pipeline as it was. Otherwise the step is started.
func (c *Context) open(ctx context.Context, p *store.Project, order int, confirm pipeline.ConfirmFunc) (*store.Project, bool, error) {
	if pipeline.NeedsRewind(p.Steps, order) {
		if err := c.Machine.ConfirmRewind(ctx, p, order, confirm); err != nil {
			return nil, false, err
		}
		return p, true, nil
	}
	p, err := c.Machine.Start(ctx, p.ID, order)
	return p, false, err
}

// requireCompleted fails unless the step at order is completed.
func requireCompleted(p *store.Project, order int, hint string) error {
	st := p.Step(order)
	if st == nil {
		return fmt.Errorf("step %d: %w", order, store.ErrNotFound)
	}
	if st.Status != store.StepCompleted {
		return fmt.Errorf("%s: %w", hint, pipeline.ErrOutOfOrder)
	}
	return nil
}

// commit stores a stage result and completes its step. A re-run also resets
// the later steps.
func (c *Context) commit(ctx context.Context, p *store.Project, order int, rerun bool, result any) (*store.Project, error) {
	content, err := toContent(result)
	if err != nil {
		return nil, err
	}
	if rerun {
		return c.Machine.Rerun(ctx, p.ID, order, content)
	}
	return c.Machine.Advance(ctx, p.ID, p.Step(order).ID, content)
}

// Analyze runs stage 1 and completes the Input Analysis step.
func (c *Context) Analyze(ctx context.Context, ref string, req AnalyzeRequest, confirm pipeline.ConfirmFunc) (*store.Project, *stages.AnalyzeResult, error) {
	p, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	in := stages.AnalyzeInput{
		ProjectName: p.Name,
		Text:        req.Text,
		Attachments: req.Attachments,
		Preferences: c.Prefs.TechPreferences(),
	}
	if err := c.Generator.CheckAnalyzeInput(in); err != nil {
		return nil, nil, err
	}

	var (
		res  *stages.AnalyzeResult
		done *store.Project
	)
	err = c.run(ctx, p, StepAnalysis, func(ctx context.Context) error {
		p, rerun, err := c.open(ctx, p, StepAnalysis, confirm)
		if err != nil {
			return err
		}
		if res, err = c.Generator.Analyze(ctx, in); err != nil {
			return err
		}
		done, err = c.commit(ctx, p, StepAnalysis, rerun, res)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return done, res, nil
}

// Analysis returns the stored stage 1 result.
func (c *Context) Analysis(p *store.Project) (stages.AnalyzeResult, error) {
	var res stages.AnalyzeResult
	err := fromContent(p.Step(StepAnalysis).Content, &res)
	return res, err
}

// SelectIdea runs stage 2. choice is either the idea text or its 1-based
// number. The refinement step is seeded with the selection unless it already
// holds edits for the same idea.
func (c *Context) SelectIdea(ctx context.Context, ref, choice string, confirm pipeline.ConfirmFunc) (*store.Project, *stages.Selection, error) {
	p, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if err := requireCompleted(p, StepAnalysis, "run the input analysis first"); err != nil {
		return nil, nil, err
	}
	analysis, err := c.Analysis(p)
	if err != nil {
		return nil, nil, err
	}

	idea := strings.TrimSpace(choice)
	if n, convErr := strconv.Atoi(idea); convErr == nil {
		var ok bool
		if idea, ok = analysis.Analysis.Idea(n); !ok {
			return nil, nil, fmt.Errorf("%w: choose an idea between 1 and %d", stages.ErrInvalidInput, len(analysis.Analysis.Ideas))
		}
	}
	sel, err := stages.SelectIdea(analysis.Analysis, idea)
	if err != nil {
		return nil, nil, err
	}

	var done *store.Project
	err = c.run(ctx, p, StepIdeas, func(ctx context.Context) error {
		p, rerun, err := c.open(ctx, p, StepIdeas, confirm)
		if err != nil {
			return err
		}
		if p, err = c.commit(ctx, p, StepIdeas, rerun, sel); err != nil {
			return err
		}
		done = p

		var existing stages.Refinement
		if err := fromContent(p.Step(StepRefinement).Content, &existing); err != nil {
			return err
		}
		if existing.RefinedIdea != "" && existing.SelectedIdea == sel.SelectedIdea {
			return nil
		}
		seed, err := toContent(stages.SeedRefinement(sel, c.Prefs.TechPreferences()))
		if err != nil {
			return err
		}
		done, err = c.Machine.UpdateContent(ctx, p.ID, p.Step(StepRefinement).ID, seed)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return done, &sel, nil
}

// Refinement returns the stored stage 3 content.
func (c *Context) Refinement(p *store.Project) (stages.Refinement, error) {
	var r stages.Refinement
	err := fromContent(p.Step(StepRefinement).Content, &r)
	return r, err
}

// Refine saves edits to stage 3 and, when req.Complete is set, completes the
// step. Saving without completing never advances the pipeline.
func (c *Context) Refine(ctx context.Context, ref string, req RefineRequest, confirm pipeline.ConfirmFunc) (*store.Project, *stages.Refinement, error) {
	p, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if err := requireCompleted(p, StepIdeas, "select an idea first"); err != nil {
		return nil, nil, err
	}
	cur, err := c.Refinement(p)
	if err != nil {
		return nil, nil, err
	}
	if cur.SelectedIdea == "" {
		var sel stages.Selection
		if err := fromContent(p.Step(StepIdeas).Content, &sel); err != nil {
			return nil, nil, err
		}
		cur = stages.SeedRefinement(sel, c.Prefs.TechPreferences())
	}
	if req.RefinedIdea != nil {
		cur.RefinedIdea = *req.RefinedIdea
	}
	cur.TechStack = overlayStack(cur.TechStack, req.TechStack)

	refined, err := stages.Refine(cur, c.Prefs.TechPreferences())
	if err != nil {
		return nil, nil, err
	}
	content, err := toContent(refined)
	if err != nil {
		return nil, nil, err
	}

	var done *store.Project

	if req.Complete {
		err = c.run(ctx, p, StepRefinement, func(ctx context.Context) error {
			p, rerun, err := c.open(ctx, p, StepRefinement, confirm)
			if err != nil {
				return err
			}
			p, err = c.commit(ctx, p, StepRefinement, rerun, refined)
			done = p
			return err
		})
	} else {
		done, err = c.autosave(ctx, p, StepRefinement, content, confirm)
	}
	if err != nil {
		return nil, nil, err
	}
	return done, &refined, nil
}

// autosave stores an in-progress edit of the step at order without
// completing it. It is not a stage run, so it is left out of stage metrics
// and telemetry.
func (c *Context) autosave(ctx context.Context, p *store.Project, order int, content map[string]any, confirm pipeline.ConfirmFunc) (*store.Project, error) {
	st := p.Step(order)
	if st == nil {
		return nil, fmt.Errorf("step %d: %w", order, store.ErrNotFound)
	}
	release, err := c.acquire(st.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if pipeline.NeedsRewind(p.Steps, order) {
		return c.Machine.EditStep(ctx, p.ID, order, content, confirm)
	}
	if p, err = c.Machine.Start(ctx, p.ID, order); err != nil {
		return nil, err
	}
	c.Logger.Debug().Str("project", p.ID).Int("order", order).Msg("step content saved")
	return c.Machine.UpdateContent(ctx, p.ID, st.ID, content)
}

// overlayStack replaces fields of base with the non-empty fields of edit.
func overlayStack(base, edit prd.TechStack) prd.TechStack {
	pick := func(cur, next string) string {
		if next = strings.TrimSpace(next); next != "" {
			return next
		}
		return cur
	}
	return prd.TechStack{
		Frontend: pick(base.Frontend, edit.Frontend),
		Backend:  pick(base.Backend, edit.Backend),
		Database: pick(base.Database, edit.Database),
		Hosting:  pick(base.Hosting, edit.Hosting),
	}
}

func (c *Context) prdInput(p *store.Project) (stages.PRDInput, error) {
	analysis, err := c.Analysis(p)
	if err != nil {
		return stages.PRDInput{}, err
	}
	r, err := c.Refinement(p)
	if err != nil {
		return stages.PRDInput{}, err
	}
	if strings.TrimSpace(r.RefinedIdea) == "" {
		return stages.PRDInput{}, fmt.Errorf("%w: the refined idea is empty", stages.ErrInvalidInput)
	}
	return stages.PRDInput{
		Context:     analysis.Context,
		RefinedIdea: r.RefinedIdea,
		TechStack:   r.TechStack,
		Preferences: c.Prefs.TechPreferences(),
	}, nil
}

// GeneratePRD runs stage 4 and completes the PRD Generation step.
func (c *Context) GeneratePRD(ctx context.Context, ref string, confirm pipeline.ConfirmFunc) (*store.Project, prd.Record, error) {
	p, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, prd.Record{}, err
	}
	if err := requireCompleted(p, StepRefinement, "complete the idea refinement first"); err != nil {
		return nil, prd.Record{}, err
	}
	in, err := c.prdInput(p)
	if err != nil {
		return nil, prd.Record{}, err
	}

	var (
		rec  prd.Record
		done *store.Project
	)
	err = c.run(ctx, p, StepPRD, func(ctx context.Context) error {
		p, rerun, err := c.open(ctx, p, StepPRD, confirm)
		if err != nil {
			return err
		}
		if rec, err = c.Generator.GeneratePRD(ctx, in); err != nil {
			return err
		}
		done, err = c.commit(ctx, p, StepPRD, rerun, PRDContent{
			Context:     in.Context,
			RefinedIdea: in.RefinedIdea,
			TechStack:   in.TechStack,
			PRD:         rec,
		})
		return err
	})
	if err != nil {
		return nil, prd.Record{}, err
	}
	return done, rec, nil
}

// PRD returns the stored PRD content, normalized.
func (c *Context) PRD(p *store.Project) (PRDContent, bool, error) {
	content := p.Step(StepPRD).Content
	raw, ok := content["prd"]
	if !ok {
		return PRDContent{}, false, nil
	}
	var pc PRDContent
	if err := fromContent(content, &pc); err != nil {
		return PRDContent{}, false, err
	}
	pc.PRD = prd.Normalize(raw)
	return pc, true, nil
}

// RegenerateSection regenerates one PRD section and merges it into the
// stored PRD. The model is called before any state changes; storing the
// result into a completed PRD step that is no longer active rewinds the
// pipeline after confirmation.
func (c *Context) RegenerateSection(ctx context.Context, ref, key string, confirm pipeline.ConfirmFunc) (*store.Project, prd.Record, error) {
	if !prd.IsSection(key) {
		return nil, prd.Record{}, fmt.Errorf("%w: %w: %q", stages.ErrInvalidInput, prd.ErrUnknownSection, key)
	}
	p, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, prd.Record{}, err
	}
	if err := requireCompleted(p, StepRefinement, "complete the idea refinement first"); err != nil {
		return nil, prd.Record{}, err
	}
	current, ok, err := c.PRD(p)
	if err != nil {
		return nil, prd.Record{}, err
	}
	if !ok {
		return nil, prd.Record{}, fmt.Errorf("generate the PRD first: %w", pipeline.ErrOutOfOrder)
	}
	in := stages.PRDInput{
		Context:     current.Context,
		RefinedIdea: current.RefinedIdea,
		TechStack:   current.TechStack,
		Preferences: c.Prefs.TechPreferences(),
	}

	var rec prd.Record
	err = c.run(ctx, p, StepPRD, func(ctx context.Context) error {
		var err error
		if rec, err = c.Generator.RegenerateSection(ctx, in, current.PRD, key); err != nil {
			return err
		}
		current.PRD = rec
		content, err := toContent(current)
		if err != nil {
			return err
		}
		if p, err = c.Machine.EditStep(ctx, p.ID, StepPRD, content, confirm); err != nil {
			return err
		}
		c.Metrics.RecordRegeneration(key)
		return nil
	})
	if err != nil {
		return nil, prd.Record{}, err
	}
	return p, rec, nil
}

// CompleteStep completes a step that already holds content, for example the
// PRD step after a section was regenerated.
func (c *Context) CompleteStep(ctx context.Context, ref string, order int) (*store.Project, error) {
	p, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	st := p.Step(order)
	if st == nil {
		return nil, fmt.Errorf("step %d: %w", order, store.ErrNotFound)
	}
	if len(st.Content) == 0 {
		return nil, fmt.Errorf("%w: step %d has no content to complete", stages.ErrInvalidInput, order)
	}
	release, err := c.acquire(st.ID)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.Machine.Advance(ctx, p.ID, st.ID, nil)
}

// Finalize runs stage 5 and completes the project.
func (c *Context) Finalize(ctx context.Context, ref string, confirm pipeline.ConfirmFunc) (*store.Project, *stages.Finalized, error) {
	p, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if err := requireCompleted(p, StepPRD, "complete the PRD generation first"); err != nil {
		return nil, nil, err
	}
	current, ok, err := c.PRD(p)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("generate the PRD first: %w", pipeline.ErrOutOfOrder)
	}

	var (
		fin  *stages.Finalized
		done *store.Project
	)
	err = c.run(ctx, p, StepFinalize, func(ctx context.Context) error {
		p, rerun, err := c.open(ctx, p, StepFinalize, confirm)
		if err != nil {
			return err
		}
		if fin, err = c.Generator.Finalize(ctx, current.PRD, p.Name); err != nil {
			return err
		}
		done, err = c.commit(ctx, p, StepFinalize, rerun, fin)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return done, fin, nil
}

// EditStep merges a user edit into a step's content. Editing a completed
// step that is not active rewinds the pipeline after confirmation.
func (c *Context) EditStep(ctx context.Context, ref string, order int, patch map[string]any, confirm pipeline.ConfirmFunc) (*store.Project, error) {
	p, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	st := p.Step(order)
	if st == nil {
		return nil, fmt.Errorf("step %d: %w", order, store.ErrNotFound)
	}
	release, err := c.acquire(st.ID)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.Machine.EditStep(ctx, p.ID, order, patch, confirm)
}
