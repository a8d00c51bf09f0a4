package stages

import (
	"text/template"

	"github.com/josephgoksu/PRDWing/internal/prd"
)

// feedbackBlock is appended to every JSON prompt so a failed parse can be
// fed back on the next attempt.
const feedbackBlock = `{{if .ValidationErrors}}
{{.ValidationErrors}}{{end}}`

const ideasPromptTemplate = `You are an elite product strategist.
You turn rough notes into sharp, buildable product ideas.

Your mission:
• Read the project material below
• Propose exactly {{.Count}} distinct product ideas that could be built from it
• Keep each idea to one or two sentences: what it is and who it is for

PROJECT MATERIAL:
{{.Context}}

IMPORTANT: Respond with valid JSON only:
{
  "ideas": ["Idea 1", "Idea 2"]
}
` + feedbackBlock

const techStackPromptTemplate = `You are an expert software architect.
You recommend pragmatic, widely supported technology.

Your mission:
• Recommend one technology stack that fits all of the ideas below
• Name one concrete choice per layer
{{- if .Preferences}}
• The user prefers the following; keep these choices unless they are impossible:
{{.Preferences}}
{{- end}}

PROJECT MATERIAL:
{{.Context}}

IDEAS:
{{range $i, $idea := .Ideas}}{{inc $i}}. {{$idea}}
{{end}}
IMPORTANT: Respond with valid JSON only:
{
  "techStack": {"frontend": "...", "backend": "...", "database": "...", "hosting": "..."}
}
` + feedbackBlock

const sectionPromptTemplate = `You are an elite product manager writing one section of a Product Requirements Document.
You are direct and specific. No filler.

Your mission:
• {{.Instruction}}

PRODUCT IDEA:
{{.Idea}}
{{- if .Context}}

ORIGINAL CONTEXT:
{{.Context}}
{{- end}}

TECH STACK:
Frontend: {{.TechStack.Frontend}}
Backend: {{.TechStack.Backend}}
Database: {{.TechStack.Database}}
Hosting: {{.TechStack.Hosting}}
{{- if .Additional}}
Additional preferences: {{.Additional}}
{{- end}}
{{- if .Draft}}

PRD SO FAR (stay consistent with it):
{{.Draft}}
{{- end}}

IMPORTANT: Respond with valid JSON only:
{{.Schema}}
` + feedbackBlock

const gettingStartedPromptTemplate = `You are a senior engineer preparing a coding assistant to build a new project.

Your mission:
• Write a single "getting started" instruction that a coding assistant can follow to scaffold this project
• Cover the goal, the stack, the first features to build in priority order and the key screens
• Write plain text, no JSON and no code fences

PRODUCT REQUIREMENTS:
{{.PRD}}`

// sectionSpec is the per-section instruction and expected JSON shape.
type sectionSpec struct {
	Instruction string
	Schema      string
}

var sectionSpecs = map[string]sectionSpec{
	prd.SectionSummary: {
		Instruction: "Write the product overview: a one-sentence elevator pitch and a short summary of the problem and the solution",
		Schema:      `{"elevatorPitch": "One sentence", "summary": "Two or three short paragraphs"}`,
	},
	prd.SectionPersonas: {
		Instruction: "Define 2 to 4 target user personas with their goals and frustrations",
		Schema:      `{"personas": [{"name": "Name", "role": "Role", "goals": ["Goal"], "frustrations": ["Frustration"]}]}`,
	},
	prd.SectionFeatures: {
		Instruction: "List the key features, each with a description and a priority of High, Medium or Low",
		Schema:      `{"features": [{"name": "Feature", "description": "What it does", "priority": "High"}]}`,
	},
	prd.SectionTechStack: {
		Instruction: "Confirm or improve the technology stack for this product, one concrete choice per layer",
		Schema:      `{"techStack": {"frontend": "...", "backend": "...", "database": "...", "hosting": "..."}}`,
	},
	prd.SectionUIDesign: {
		Instruction: "Describe the UI/UX design: guiding principles, a named color palette with hex values and the key screens",
		Schema:      `{"uiDesign": {"principles": ["Principle"], "palette": {"primary": "#000000"}, "screens": [{"name": "Screen", "description": "Purpose"}]}}`,
	},
	prd.SectionImplementation: {
		Instruction: "Write the implementation plan: timeline phases, required resources and stakeholder communication",
		Schema: `{"implementation": {
  "timeline": [{"phase": "Phase", "duration": "2 weeks", "description": "Work", "deliverables": ["Deliverable"]}],
  "resources": [{"role": "Role", "commitment": "Full-time", "responsibilities": ["Responsibility"]}],
  "stakeholders": [{"stakeholder": "Who", "communication": "Channel", "frequency": "Weekly", "deliverables": ["Report"]}]
}}`,
	},
	prd.SectionImplementationTimeline: {
		Instruction: "Write the implementation timeline as ordered phases",
		Schema:      `{"timeline": [{"phase": "Phase", "duration": "2 weeks", "description": "Work", "deliverables": ["Deliverable"]}]}`,
	},
	prd.SectionImplementationResources: {
		Instruction: "List the people and skills needed to build this product",
		Schema:      `{"resources": [{"role": "Role", "commitment": "Full-time", "responsibilities": ["Responsibility"]}]}`,
	},
	prd.SectionImplementationStakeholders: {
		Instruction: "Write the stakeholder communication plan",
		Schema:      `{"stakeholders": [{"stakeholder": "Who", "communication": "Channel", "frequency": "Weekly", "deliverables": ["Report"]}]}`,
	},
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

var (
	ideasPrompt          = template.Must(template.New("ideas").Funcs(funcs).Parse(ideasPromptTemplate))
	techStackPrompt      = template.Must(template.New("techStack").Funcs(funcs).Parse(techStackPromptTemplate))
	sectionPrompt        = template.Must(template.New("section").Funcs(funcs).Parse(sectionPromptTemplate))
	gettingStartedPrompt = template.Must(template.New("gettingStarted").Parse(gettingStartedPromptTemplate))
)
