package mcpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ry-ops/unifi-mcp-server/internal/sanitize"
	"github.com/ry-ops/unifi-mcp-server/pkg/unifi"
)

// nowMillis is swappable in tests.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// addTool registers a tool and records its name for the debug registry.
func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
	s.toolNames = append(s.toolNames, tool.Name)
}

// jsonResult serializes v as an indented JSON tool result.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("serialize result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// rawResult wraps an already-JSON controller payload as a tool result.
func rawResult(raw json.RawMessage) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(string(raw)), nil
}

// itemsResult wraps a paginated item list with a count envelope.
func itemsResult(items []json.RawMessage) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{
		"count": len(items),
		"items": items,
	})
}

// errResult maps the error taxonomy to a tool error. Everything passes the
// text sanitizer once more on the way out; protocol-level errors stay nil so
// the client sees a tool failure, not a transport failure.
func errResult(err error) (*mcp.CallToolResult, error) {
	var (
		rateErr   *unifi.RateLimitError
		validErr  *unifi.ValidationError
		configErr *unifi.ConfigurationError
		httpErr   *unifi.HTTPError
	)
	switch {
	case errors.As(err, &rateErr):
		return mcp.NewToolResultError(rateErr.Message), nil
	case errors.As(err, &validErr):
		return mcp.NewToolResultError(fmt.Sprintf("Invalid %s: %s", validErr.Field, validErr.Message)), nil
	case errors.As(err, &configErr):
		return mcp.NewToolResultError("Configuration error: " + configErr.Message), nil
	case errors.As(err, &httpErr):
		return mcp.NewToolResultError(sanitize.ErrorText(httpErr.Error())), nil
	default:
		return mcp.NewToolResultError(sanitize.ErrorText(err.Error())), nil
	}
}

// optionalString reads an optional string argument, empty when absent.
func optionalString(request mcp.CallToolRequest, key string) string {
	args := request.GetArguments()
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// optionalInt reads an optional integer argument with a default.
func optionalInt(request mcp.CallToolRequest, key string, fallback int) int {
	args := request.GetArguments()
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

// optionalBool reads an optional boolean argument with a default, accepting
// the loose spellings clients send.
func optionalBool(request mcp.CallToolRequest, key string, fallback bool) (bool, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return fallback, nil
	}
	return unifi.CoerceBool(key, v)
}
