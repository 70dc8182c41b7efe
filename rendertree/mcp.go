package rendertree

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the session's tools on an MCP server.
func (s *Session) RegisterMCP(srv *mcp.Server) {
	idProp := map[string]any{
		"id": map[string]any{"type": "string", "description": "Render node id from the current capture"},
	}

	s.registerTool(srv, "treescope_build", "tree_build",
		"Capture the render tree now and return the full snapshot.",
		inputSchema(map[string]any{}, nil))

	s.registerTool(srv, "treescope_find", "tree_find",
		"Look up a render node of the current capture by id.",
		inputSchema(idProp, []string{"id"}))

	s.registerTool(srv, "treescope_find_nearest", "tree_find_nearest",
		"Find the render node whose output most closely contains a DOM element, given its path and an optional hint from a previous capture.",
		inputSchema(map[string]any{
			"path":    map[string]any{"type": "string", "description": "DOM path of the target element"},
			"hint_id": map[string]any{"type": "string", "description": "Node id that matched this element in a previous capture"},
		}, []string{"path"}))

	s.registerTool(srv, "treescope_rect", "tree_rect",
		"Return the bounding rect of a render node's output.",
		inputSchema(idProp, []string{"id"}))

	s.registerTool(srv, "treescope_range", "tree_range",
		"Describe the live DOM range of a render node's bounds.",
		inputSchema(idProp, []string{"id"}))

	s.registerTool(srv, "treescope_scroll_into_view", "tree_scroll_into_view",
		"Scroll a render node's output into view.",
		inputSchema(idProp, []string{"id"}))

	s.registerTool(srv, "treescope_inspect_element", "tree_inspect_element",
		"Reveal a render node's anchor element in the host inspector.",
		inputSchema(idProp, []string{"id"}))

	s.registerTool(srv, "treescope_preview", "tree_preview",
		"Return a sanitized text preview of the markup a render node produced.",
		inputSchema(idProp, []string{"id"}))

	s.registerTool(srv, "treescope_history", "tree_history",
		"List recent capture summaries from the history store.",
		inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum rows to return (default 20)"},
		}, nil))
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// registerTool bridges an MCP tool to a session command. Tool arguments are
// already JSON, so they pass straight through as the command payload.
func (s *Session) registerTool(srv *mcp.Server, toolName, command, description string, schema map[string]any) {
	tool := &mcp.Tool{
		Name:        toolName,
		Description: description,
		InputSchema: schema,
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := s.Handle(ctx, command, req.Params.Arguments)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(out)}},
		}, nil
	})
}
