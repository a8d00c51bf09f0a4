package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/josephgoksu/PRDWing/internal/prd"
)

// PRDInput is the material for stage 4.
type PRDInput struct {
	Context     string
	RefinedIdea string `validate:"required"`
	TechStack   prd.TechStack
	Preferences prd.TechPreferences
}

// prdSequence is the order of specialist calls in a full generation.
var prdSequence = []string{
	prd.SectionSummary,
	prd.SectionPersonas,
	prd.SectionFeatures,
	prd.SectionTechStack,
	prd.SectionUIDesign,
	prd.SectionImplementation,
}

// GeneratePRD runs stage 4 as a sequence of specialist calls, each seeing the
// sections produced before it. A complete refined stack is passed through
// without a call.
func (g *Generator) GeneratePRD(ctx context.Context, in PRDInput) (prd.Record, error) {
	if err := g.checkPRDInput(&in); err != nil {
		return prd.Record{}, err
	}

	rec := prd.Normalize(nil)
	for _, key := range prdSequence {
		if key == prd.SectionTechStack && in.TechStack.Complete() {
			rec.TechStack = in.TechStack
			continue
		}
		next, err := g.section(ctx, in, rec, key)
		if err != nil {
			return prd.Record{}, err
		}
		rec = next
	}
	g.logger.Debug().Int("features", len(rec.Features)).Int("personas", len(rec.Personas)).Msg("PRD generated")
	return rec, nil
}

// RegenerateSection re-asks the model for one section and merges it into
// current. Every other section is kept as is.
func (g *Generator) RegenerateSection(ctx context.Context, in PRDInput, current prd.Record, key string) (prd.Record, error) {
	if !prd.IsSection(key) {
		return current, fmt.Errorf("%w: %w: %q", ErrInvalidInput, prd.ErrUnknownSection, key)
	}
	if err := g.checkPRDInput(&in); err != nil {
		return current, err
	}
	return g.section(ctx, in, current, key)
}

func (g *Generator) checkPRDInput(in *PRDInput) error {
	in.RefinedIdea = strings.TrimSpace(in.RefinedIdea)
	if err := g.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: a refined idea is required", ErrInvalidInput)
	}
	return nil
}

func (g *Generator) section(ctx context.Context, in PRDInput, current prd.Record, key string) (prd.Record, error) {
	spec := sectionSpecs[key]
	var draft []byte
	if hasContent(current) {
		var err error
		if draft, err = json.MarshalIndent(current, "", "  "); err != nil {
			return current, fmt.Errorf("encode draft: %w", err)
		}
	}
	raw, err := g.generateJSON(ctx, key, sectionPrompt, map[string]any{
		"Instruction": spec.Instruction,
		"Schema":      spec.Schema,
		"Idea":        in.RefinedIdea,
		"Context":     in.Context,
		"TechStack":   in.TechStack,
		"Additional":  strings.TrimSpace(in.Preferences.Additional),
		"Draft":       string(draft),
	})
	if err != nil {
		return current, err
	}
	next, err := prd.Merge(current, key, raw)
	if err != nil {
		return current, err
	}
	if key == prd.SectionTechStack {
		next.TechStack = in.Preferences.Apply(next.TechStack)
	}
	return next, nil
}

func hasContent(r prd.Record) bool {
	return r.Summary != (prd.Summary{}) || len(r.Personas) > 0 || len(r.Features) > 0 ||
		len(r.UIDesign.Screens) > 0 || r.Implementation != nil
}
