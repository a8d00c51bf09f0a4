package prd

import (
	"fmt"
	"strings"
)

// RenderGettingStartedPrompt serializes the record into labeled sections, in
// a fixed order, for the model call that writes a coding-assistant bootstrap
// prompt.
func RenderGettingStartedPrompt(r Record, title string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s\n\n", orDefault(strings.TrimSpace(title), "Untitled project"))

	sb.WriteString("Summary:\n")
	if r.Summary.ElevatorPitch != "" {
		sb.WriteString("  Pitch: " + r.Summary.ElevatorPitch + "\n")
	}
	sb.WriteString("  " + orDefault(r.Summary.Summary, NotSpecified) + "\n\n")

	sb.WriteString("Personas:\n")
	for _, p := range r.Personas {
		fmt.Fprintf(&sb, "  - %s (%s)", p.Name, orDefault(p.Role, DefaultPersonaRole))
		if len(p.Goals) > 0 {
			sb.WriteString("; goals: " + strings.Join(p.Goals, ", "))
		}
		if len(p.Frustrations) > 0 {
			sb.WriteString("; frustrations: " + strings.Join(p.Frustrations, ", "))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("Features:\n")
	for _, f := range r.Features {
		fmt.Fprintf(&sb, "  - [%s] %s: %s\n", f.Priority, f.Name, f.Description)
	}
	sb.WriteString("\n")

	sb.WriteString("Tech Stack:\n")
	fmt.Fprintf(&sb, "  Frontend: %s\n  Backend: %s\n  Database: %s\n  Hosting: %s\n\n",
		orDefault(r.TechStack.Frontend, NotSpecified),
		orDefault(r.TechStack.Backend, NotSpecified),
		orDefault(r.TechStack.Database, NotSpecified),
		orDefault(r.TechStack.Hosting, NotSpecified))

	sb.WriteString("UI Design:\n")
	if len(r.UIDesign.Principles) > 0 {
		sb.WriteString("  Principles: " + strings.Join(r.UIDesign.Principles, ", ") + "\n")
	}
	for _, k := range sortedKeys(r.UIDesign.Palette) {
		fmt.Fprintf(&sb, "  Color %s: %s\n", k, r.UIDesign.Palette[k])
	}
	for _, s := range r.UIDesign.Screens {
		fmt.Fprintf(&sb, "  Screen %s: %s\n", s.Name, s.Description)
	}

	if impl := r.Implementation; impl != nil {
		sb.WriteString("\nImplementation:\n")
		for _, p := range impl.Timeline {
			fmt.Fprintf(&sb, "  - %s (%s): %s", p.Phase, p.Duration, p.Description)
			writeInline(&sb, "deliverables", p.Deliverables)
		}
		for _, res := range impl.Resources {
			fmt.Fprintf(&sb, "  - Resource %s: %s", res.Role, res.Commitment)
			writeInline(&sb, "responsibilities", res.Responsibilities)
		}
		for _, s := range impl.Stakeholders {
			fmt.Fprintf(&sb, "  - Stakeholder %s: %s, %s", s.Stakeholder, s.Communication, s.Frequency)
			writeInline(&sb, "deliverables", s.Deliverables)
		}
	}

	return sb.String()
}

// writeInline ends a line, appending values as "; label: a, b" when present.
func writeInline(sb *strings.Builder, label string, values []string) {
	if len(values) > 0 {
		sb.WriteString("; " + label + ": " + strings.Join(values, ", "))
	}
	sb.WriteString("\n")
}
