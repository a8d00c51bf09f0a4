package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/josephgoksu/PRDWing/internal/store"
)

// StepBadge renders a step status as a short colored label.
func StepBadge(s store.StepStatus) string {
	switch s {
	case store.StepCompleted:
		return StyleSuccess.Render("✓ done")
	case store.StepInProgress:
		return StylePrimary.Render("● active")
	default:
		return StyleSubtle.Render("○ pending")
	}
}

// ProjectBadge renders a project status.
func ProjectBadge(s store.ProjectStatus) string {
	var style lipgloss.Style
	switch s {
	case store.ProjectCompleted:
		style = StyleSuccess
	case store.ProjectInProgress:
		style = StyleWarning
	default:
		style = StyleSubtle
	}
	return style.Render(string(s))
}

// RenderSteps lists a project's steps in order with their status.
func RenderSteps(p *store.Project) string {
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(p.Name))
	sb.WriteString("  " + ProjectBadge(p.Status) + "\n")
	for _, st := range p.Steps {
		fmt.Fprintf(&sb, "  %d. %-22s %s\n", st.Order, st.Title, StepBadge(st.Status))
	}
	return sb.String()
}

// RenderProjects renders the project list as a table, most recent first.
func RenderProjects(projects []store.Project) string {
	if len(projects) == 0 {
		return StyleSubtle.Render("No projects yet. Create one with `prdwing project create <name>`.") + "\n"
	}
	t := &Table{
		Headers:  []string{"ID", "Name", "Status", "Updated"},
		MaxWidth: 40,
	}
	for _, p := range projects {
		t.Rows = append(t.Rows, []string{
			ShortID(p.ID),
			p.Name,
			string(p.Status),
			p.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return t.Render()
}
