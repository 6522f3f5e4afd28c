package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lionelhu/foliochat/internal/history"
	"github.com/lionelhu/foliochat/internal/profile"
	"github.com/lionelhu/foliochat/internal/repos"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service Answerer
	Profile *profile.Profile
	Catalog *repos.Catalog
	Version string
}

// NewMCPServer exposes the assistant to MCP clients: a repository lookup
// tool, a one-shot question tool, and the profile and catalog as resources.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"foliochat",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("foliochat answers questions about one person's resume and links to their code repositories."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_repo_links",
			mcp.WithDescription("Find repositories in the portfolio catalog whose name or tags match a short phrase."),
			mcp.WithString("query", mcp.Description("Short search phrase, e.g. a project name or technology"), mcp.Required()),
		),
		mcpGetRepoLinks(deps),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the portfolio assistant a question about the profile owner."),
			mcp.WithString("question", mcp.Description("The question to ask"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"profile://current",
			"Profile",
			mcp.WithResourceDescription("The resume profile the assistant answers from, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"repos://catalog",
			"Repository Catalog",
			mcp.WithResourceDescription("All repositories the assistant can link to, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCatalog(deps),
	)

	return s
}

func mcpGetRepoLinks(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcpError("query is required"), nil
		}

		b, err := json.Marshal(deps.Service.Lookup(query))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal links: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcpError("question is required"), nil
		}

		resp, _, err := deps.Service.AnswerWithMetadata(ctx, []history.Message{
			{Role: history.RoleUser, Content: question},
		})
		if err != nil {
			return mcpError(fmt.Sprintf("answering failed: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString(resp.Text)
		if len(resp.RepoLinks) > 0 {
			sb.WriteString("\n\nRepositories:")
			for _, l := range resp.RepoLinks {
				fmt.Fprintf(&sb, "\n- %s: %s", l.Name, l.URL)
			}
		}
		return mcpText(sb.String()), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if deps.Profile == nil {
			return nil, fmt.Errorf("no profile loaded")
		}
		b, err := json.Marshal(deps.Profile)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}
		return jsonResource(req.Params.URI, b), nil
	}
}

func mcpResourceCatalog(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Catalog.Repos())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal catalog: %w", err)
		}
		return jsonResource(req.Params.URI, b), nil
	}
}

func jsonResource(uri string, b []byte) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
