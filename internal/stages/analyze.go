package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/josephgoksu/PRDWing/internal/prd"
	"github.com/josephgoksu/PRDWing/internal/utils"
)

// Attachment is a file whose text joins the analyzed material.
type Attachment struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// AnalyzeInput is the material for stage 1.
type AnalyzeInput struct {
	ProjectName string
	Text        string
	Attachments []Attachment
	Preferences prd.TechPreferences
}

// analyzeCheck requires either a name or some material.
type analyzeCheck struct {
	ProjectName string `validate:"required_without=Material"`
	Material    string `validate:"required_without=ProjectName"`
}

// Analysis is the stage 1 result.
type Analysis struct {
	Ideas     []string      `json:"ideas"`
	TechStack prd.TechStack `json:"techStack"`
}

// Idea returns the n-th idea, counting from 1.
func (a Analysis) Idea(n int) (string, bool) {
	if n < 1 || n > len(a.Ideas) {
		return "", false
	}
	return a.Ideas[n-1], true
}

// AnalyzeResult carries the analysis and the exact material it was built
// from, so later stages can reuse it.
type AnalyzeResult struct {
	Context  string   `json:"context"`
	Analysis Analysis `json:"analysis"`
}

// BuildContext joins the user text and attachment text and clips the result
// to MaxContextChars.
func BuildContext(in AnalyzeInput) string {
	var sb strings.Builder
	if name := strings.TrimSpace(in.ProjectName); name != "" {
		sb.WriteString("Project name: " + name + "\n\n")
	}
	sb.WriteString(materialOf(in))
	return utils.Clip(strings.TrimSpace(sb.String()), MaxContextChars)
}

func materialOf(in AnalyzeInput) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(in.Text))
	for _, a := range in.Attachments {
		body := strings.TrimSpace(a.Text)
		if body == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- File: %s ---\n%s", a.Name, body)
	}
	return sb.String()
}

// CheckAnalyzeInput rejects input with neither a project name nor any text.
func (g *Generator) CheckAnalyzeInput(in AnalyzeInput) error {
	check := analyzeCheck{
		ProjectName: strings.TrimSpace(in.ProjectName),
		Material:    materialOf(in),
	}
	if err := g.validate.Struct(check); err != nil {
		return fmt.Errorf("%w: provide project text or a project name", ErrInvalidInput)
	}
	return nil
}

// Analyze runs stage 1: idea generation followed by a tech stack
// recommendation conditioned on those ideas. Non-empty preferences override
// the model's stack.
func (g *Generator) Analyze(ctx context.Context, in AnalyzeInput) (*AnalyzeResult, error) {
	if err := g.CheckAnalyzeInput(in); err != nil {
		return nil, err
	}

	material := BuildContext(in)
	raw, err := g.generateJSON(ctx, "ideas", ideasPrompt, map[string]any{
		"Context": material,
		"Count":   IdeaCount,
	})
	if err != nil {
		return nil, err
	}
	ideas := prd.NormalizeIdeas(raw)
	if len(ideas) == 0 {
		return nil, fmt.Errorf("ideas: %w: model returned no ideas", ErrGeneration)
	}
	if len(ideas) > IdeaCount {
		ideas = ideas[:IdeaCount]
	}

	raw, err = g.generateJSON(ctx, "techStack", techStackPrompt, map[string]any{
		"Context":     material,
		"Ideas":       ideas,
		"Preferences": describePreferences(in.Preferences),
	})
	if err != nil {
		return nil, err
	}
	stack := in.Preferences.Apply(prd.NormalizeTechStack(raw))

	g.logger.Debug().Int("ideas", len(ideas)).Int("context_chars", len(material)).Msg("analysis complete")
	return &AnalyzeResult{
		Context:  material,
		Analysis: Analysis{Ideas: ideas, TechStack: stack},
	}, nil
}

func describePreferences(p prd.TechPreferences) string {
	if p.IsZero() {
		return ""
	}
	var lines []string
	for _, kv := range [][2]string{
		{"Frontend", p.Frontend},
		{"Backend", p.Backend},
		{"Database", p.Database},
		{"Hosting", p.Hosting},
		{"Additional", p.Additional},
	} {
		if v := strings.TrimSpace(kv[1]); v != "" {
			lines = append(lines, "  "+kv[0]+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}
