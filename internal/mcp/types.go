// Package mcp provides the tool handlers and Markdown presenters behind the
// MCP server, so coding assistants can read finalized PRDs.
package mcp

import "github.com/josephgoksu/PRDWing/internal/store"

// Tool names.
const (
	ToolListProjects         = "list_projects"
	ToolGetPRD               = "get_prd"
	ToolGettingStartedPrompt = "get_getting_started_prompt"
)

// ListParams defines the parameters for the list_projects tool.
type ListParams struct {
	Status string `json:"status,omitempty"` // draft, in-progress or completed
}

// IsValid checks the status filter.
func (p ListParams) IsValid() bool {
	switch store.ProjectStatus(p.Status) {
	case "", store.ProjectDraft, store.ProjectInProgress, store.ProjectCompleted:
		return true
	}
	return false
}

// ProjectParams defines the parameters for the per-project tools.
type ProjectParams struct {
	Project string `json:"project"` // id, id prefix or name
}

// ToolResult is the outcome of a tool call. Error is set for failures the
// calling model can correct, such as an unknown project.
type ToolResult struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}
