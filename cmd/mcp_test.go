package cmd

import (
	"errors"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcppresenter "github.com/josephgoksu/PRDWing/internal/mcp"
)

func TestMCPResponse(t *testing.T) {
	tests := []struct {
		name    string
		res     *mcppresenter.ToolResult
		err     error
		text    string
		isError bool
	}{
		{"content", &mcppresenter.ToolResult{Content: "# PRD"}, nil, "# PRD", false},
		{"tool error", &mcppresenter.ToolResult{Error: "bad project"}, nil, "bad project", true},
		{"handler error", nil, errors.New("db closed"), "**Details**: db closed", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := mcpResponse(tt.res, tt.err)
			require.NoError(t, err)
			assert.Equal(t, tt.isError, out.IsError)
			require.Len(t, out.Content, 1)
			text, ok := out.Content[0].(*mcpsdk.TextContent)
			require.True(t, ok)
			assert.Contains(t, text.Text, tt.text)
		})
	}
}
