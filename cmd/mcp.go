/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	mcppresenter "github.com/josephgoksu/PRDWing/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server that serves finalized PRDs to AI tools",
	Long: `Start a Model Context Protocol (MCP) server over stdio so coding
assistants can list projects and read finalized PRDs and getting-started
prompts.

Example usage with an MCP client:
  prdwing mcp

The server will run until the client disconnects.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(commandContext(cmd))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// mcpResponse wraps a handler result in an MCP tool result. Handler-level
// failures go into the result with IsError so the calling model can see them.
func mcpResponse(res *mcppresenter.ToolResult, err error) (*mcpsdk.CallToolResultFor[any], error) {
	if err != nil {
		return &mcpsdk.CallToolResultFor[any]{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: mcppresenter.FormatError(err.Error())}},
			IsError: true,
		}, nil
	}
	if res.Error != "" {
		return &mcpsdk.CallToolResultFor[any]{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: res.Error}},
			IsError: true,
		}, nil
	}
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: res.Content}},
	}, nil
}

// newMCPServer registers the PRD tools against src.
func newMCPServer(src mcppresenter.Source) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "prdwing-mcp",
		Version: version,
	}, &mcpsdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.InitializedParams) {
			log.Info().Msg("MCP connection established")
		},
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        mcppresenter.ToolListProjects,
		Description: `List PRDWing projects with their id and status. Optional {"status":"completed"} filter (draft, in-progress, completed).`,
	}, func(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[mcppresenter.ListParams]) (*mcpsdk.CallToolResultFor[any], error) {
		return mcpResponse(mcppresenter.HandleListProjects(ctx, src, params.Arguments))
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        mcppresenter.ToolGetPRD,
		Description: `Get the finalized PRD of a project as Markdown. Use {"project":"<id or name>"}.`,
	}, func(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[mcppresenter.ProjectParams]) (*mcpsdk.CallToolResultFor[any], error) {
		return mcpResponse(mcppresenter.HandleGetPRD(ctx, src, params.Arguments))
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        mcppresenter.ToolGettingStartedPrompt,
		Description: `Get the prompt for starting implementation of a finalized project. Use {"project":"<id or name>"}.`,
	}, func(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[mcppresenter.ProjectParams]) (*mcpsdk.CallToolResultFor[any], error) {
		return mcpResponse(mcppresenter.HandleGettingStartedPrompt(ctx, src, params.Arguments))
	})

	return server
}

func runMCPServer(ctx context.Context) error {
	// stdout carries JSON-RPC; logs go to stderr.
	a, done, err := openApp(ctx, appOptions{})
	if err != nil {
		return fmt.Errorf("open project store: %w", err)
	}
	defer done()

	log.Info().Msg("PRDWing MCP server starting")
	return newMCPServer(a).Run(ctx, mcpsdk.NewStdioTransport())
}
