package stages

import (
	"fmt"
	"strings"

	"github.com/josephgoksu/PRDWing/internal/prd"
)

// Selection is the stage 2 result.
type Selection struct {
	Analysis     Analysis `json:"analysis"`
	SelectedIdea string   `json:"selectedIdea"`
}

// SelectIdea runs stage 2. The choice must be one of the analysis ideas.
func SelectIdea(a Analysis, idea string) (Selection, error) {
	idea = strings.TrimSpace(idea)
	for _, candidate := range a.Ideas {
		if candidate == idea {
			return Selection{Analysis: a, SelectedIdea: idea}, nil
		}
	}
	return Selection{}, fmt.Errorf("%w: %q is not one of the generated ideas", ErrInvalidInput, idea)
}

// Refinement is the stage 3 content.
type Refinement struct {
	Analysis     Analysis      `json:"analysis"`
	SelectedIdea string        `json:"selectedIdea"`
	RefinedIdea  string        `json:"refinedIdea"`
	TechStack    prd.TechStack `json:"techStack"`
}

// SeedRefinement builds the initial stage 3 content: the refined idea starts
// as the selected idea and the stack starts from the analysis.
func SeedRefinement(sel Selection, prefs prd.TechPreferences) Refinement {
	r := Refinement{
		Analysis:     sel.Analysis,
		SelectedIdea: sel.SelectedIdea,
		RefinedIdea:  sel.SelectedIdea,
		TechStack:    sel.Analysis.TechStack,
	}
	r.TechStack = seedStack(r.TechStack, prefs)
	return r
}

// Refine tidies an edited refinement: blank fields are seeded from the
// selected idea and the saved preferences. The refined idea must not end up
// empty.
func Refine(r Refinement, prefs prd.TechPreferences) (Refinement, error) {
	r.RefinedIdea = strings.TrimSpace(r.RefinedIdea)
	if r.RefinedIdea == "" {
		r.RefinedIdea = strings.TrimSpace(r.SelectedIdea)
	}
	if r.RefinedIdea == "" {
		return r, fmt.Errorf("%w: refined idea is empty", ErrInvalidInput)
	}
	r.TechStack = seedStack(r.TechStack, prefs)
	return r, nil
}

// seedStack fills unset fields from prefs. Fields the user already chose
// are kept.
func seedStack(t prd.TechStack, prefs prd.TechPreferences) prd.TechStack {
	fill := func(current, pref string) string {
		current = strings.TrimSpace(current)
		if current != "" && current != prd.NotSpecified {
			return current
		}
		if pref = strings.TrimSpace(pref); pref != "" {
			return pref
		}
		return prd.NotSpecified
	}
	return prd.TechStack{
		Frontend: fill(t.Frontend, prefs.Frontend),
		Backend:  fill(t.Backend, prefs.Backend),
		Database: fill(t.Database, prefs.Database),
		Hosting:  fill(t.Hosting, prefs.Hosting),
	}
}
