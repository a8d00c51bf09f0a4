package mcp

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/josephgoksu/PRDWing/internal/store"
)

// FormatProjects renders the project list as a Markdown table.
func FormatProjects(projects []store.Project) string {
	if len(projects) == 0 {
		return "No projects found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Projects (%d)\n\n", len(projects))
	sb.WriteString("| ID | Name | Status | Updated |\n|---|---|---|---|\n")
	title := cases.Title(language.English)
	for _, p := range projects {
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n",
			p.ID, escapeCell(p.Name), title.String(string(p.Status)), p.UpdatedAt.UTC().Format("2006-01-02"))
	}
	return sb.String()
}

// FormatNotFinalized explains which steps remain before a PRD is available.
func FormatNotFinalized(p *store.Project) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## PRD not ready\n\n**%s** has not been finalized yet.\n\n", p.Name)
	for _, st := range p.Steps {
		mark := " "
		if st.Status == store.StepCompleted {
			mark = "x"
		}
		fmt.Fprintf(&sb, "- [%s] %d. %s\n", mark, st.Order, st.Title)
	}
	return sb.String()
}

// FormatError returns a Markdown error message.
func FormatError(message string) string {
	return fmt.Sprintf("## Error\n\n**Details**: %s", message)
}

// FormatValidationError returns a Markdown error for validation failures.
func FormatValidationError(field, message string) string {
	return fmt.Sprintf("## Validation Error\n\n**Field**: `%s`\n**Details**: %s", field, message)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
