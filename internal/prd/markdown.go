package prd

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const emptySection = "_Not specified._"

// RenderMarkdown renders the record as a Markdown document. Output depends
// only on the inputs: palette keys are sorted and nothing time-dependent is
// written.
func RenderMarkdown(r Record, title string) string {
	var sb strings.Builder
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Product Requirements Document"
	}
	sb.WriteString("# " + title + "\n\n")

	sb.WriteString("## Overview\n\n")
	if r.Summary.ElevatorPitch != "" {
		sb.WriteString("**Elevator Pitch:** " + r.Summary.ElevatorPitch + "\n\n")
	}
	if r.Summary.Summary != "" {
		sb.WriteString(r.Summary.Summary + "\n\n")
	}
	if r.Summary.ElevatorPitch == "" && r.Summary.Summary == "" {
		sb.WriteString(emptySection + "\n\n")
	}

	sb.WriteString("## Target Audience\n\n")
	if len(r.Personas) == 0 {
		sb.WriteString(emptySection + "\n\n")
	}
	for _, p := range r.Personas {
		sb.WriteString("### " + orDefault(p.Name, "Unnamed persona") + "\n\n")
		sb.WriteString("**Role:** " + orDefault(p.Role, DefaultPersonaRole) + "\n\n")
		writeList(&sb, "Goals", p.Goals)
		writeList(&sb, "Frustrations", p.Frustrations)
	}

	sb.WriteString("## Key Features\n\n")
	if len(r.Features) == 0 {
		sb.WriteString(emptySection + "\n\n")
	}
	for i, f := range r.Features {
		fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, orDefault(f.Name, "Unnamed feature"))
		fmt.Fprintf(&sb, "**Priority:** %s\n\n", orDefault(string(f.Priority), string(PriorityMedium)))
		if f.Description != "" {
			sb.WriteString(f.Description + "\n\n")
		}
	}

	sb.WriteString("## Technical Architecture\n\n")
	fmt.Fprintf(&sb, "- **Frontend:** %s\n", orDefault(r.TechStack.Frontend, NotSpecified))
	fmt.Fprintf(&sb, "- **Backend:** %s\n", orDefault(r.TechStack.Backend, NotSpecified))
	fmt.Fprintf(&sb, "- **Database:** %s\n", orDefault(r.TechStack.Database, NotSpecified))
	fmt.Fprintf(&sb, "- **Hosting:** %s\n\n", orDefault(r.TechStack.Hosting, NotSpecified))

	sb.WriteString("## UI/UX Design\n\n")
	sb.WriteString("### Design Principles\n\n")
	writeBullets(&sb, r.UIDesign.Principles)
	sb.WriteString("### Color Palette\n\n")
	if len(r.UIDesign.Palette) == 0 {
		sb.WriteString(emptySection + "\n\n")
	} else {
		caser := cases.Title(language.English)
		for _, k := range sortedKeys(r.UIDesign.Palette) {
			fmt.Fprintf(&sb, "- **%s:** %s\n", caser.String(k), r.UIDesign.Palette[k])
		}
		sb.WriteString("\n")
	}
	sb.WriteString("### Key Screens\n\n")
	if len(r.UIDesign.Screens) == 0 {
		sb.WriteString(emptySection + "\n\n")
	} else {
		for _, s := range r.UIDesign.Screens {
			if s.Description == "" {
				fmt.Fprintf(&sb, "- **%s**\n", s.Name)
				continue
			}
			fmt.Fprintf(&sb, "- **%s:** %s\n", s.Name, s.Description)
		}
		sb.WriteString("\n")
	}

	if impl := r.Implementation; impl != nil {
		sb.WriteString("## Implementation Plan\n\n")
		sb.WriteString("### Timeline\n\n")
		if len(impl.Timeline) == 0 {
			sb.WriteString(emptySection + "\n\n")
		}
		for _, p := range impl.Timeline {
			heading := orDefault(p.Phase, "Phase")
			if p.Duration != "" {
				heading += " (" + p.Duration + ")"
			}
			sb.WriteString("#### " + heading + "\n\n")
			if p.Description != "" {
				sb.WriteString(p.Description + "\n\n")
			}
			writeList(&sb, "Deliverables", p.Deliverables)
		}

		sb.WriteString("### Resources\n\n")
		if len(impl.Resources) == 0 {
			sb.WriteString(emptySection + "\n\n")
		} else {
			for _, res := range impl.Resources {
				line := "- **" + orDefault(res.Role, "Role") + "**"
				if res.Commitment != "" {
					line += " (" + res.Commitment + ")"
				}
				if len(res.Responsibilities) > 0 {
					line += ": " + strings.Join(res.Responsibilities, "; ")
				}
				sb.WriteString(line + "\n")
			}
			sb.WriteString("\n")
		}

		sb.WriteString("### Stakeholders\n\n")
		if len(impl.Stakeholders) == 0 {
			sb.WriteString(emptySection + "\n\n")
		} else {
			sb.WriteString("| Stakeholder | Communication | Frequency | Deliverables |\n")
			sb.WriteString("|---|---|---|---|\n")
			for _, s := range impl.Stakeholders {
				fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
					cell(s.Stakeholder), cell(s.Communication), cell(s.Frequency), cell(strings.Join(s.Deliverables, ", ")))
			}
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeList(sb *strings.Builder, label string, values []string) {
	sb.WriteString("**" + label + ":**\n\n")
	writeBullets(sb, values)
}

func writeBullets(sb *strings.Builder, values []string) {
	if len(values) == 0 {
		sb.WriteString(emptySection + "\n\n")
		return
	}
	for _, v := range values {
		sb.WriteString("- " + v + "\n")
	}
	sb.WriteString("\n")
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return orDefault(s, "-")
}
