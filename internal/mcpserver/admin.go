package mcpserver

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ry-ops/unifi-mcp-server/pkg/unifi"
)

// registerAdminTools wires the introspection and session-hygiene surface.
func (s *Server) registerAdminTools() {
	s.addTool(mcp.NewTool("session_info",
		mcp.WithDescription("Report the legacy cookie session state: age, expiry, and refresh status"),
	), s.handleSessionInfo)

	s.addTool(mcp.NewTool("session_invalidate",
		mcp.WithDescription("Drop the legacy cookie session; the next stateful call will log in fresh"),
	), s.handleSessionInvalidate)

	s.addTool(mcp.NewTool("rate_limit_stats",
		mcp.WithDescription("Report rate limiter usage for one endpoint path"),
		mcp.WithString("endpoint", mcp.Required(), mcp.Description("Endpoint path as it appears in rate limit errors")),
	), s.handleRateLimitStats)

	s.addTool(mcp.NewTool("capabilities",
		mcp.WithDescription("Report which API surfaces are usable with the current credential set"),
	), s.handleCapabilities)

	s.addTool(mcp.NewTool("debug_registry",
		mcp.WithDescription("List every registered tool name"),
	), s.handleDebugRegistry)
}

func (s *Server) handleSessionInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.client.Session().Info())
}

func (s *Server) handleSessionInvalidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.client.Session().Invalidate()
	s.audit.Emit("session.invalidate", true, map[string]interface{}{}, nil)
	return jsonResult(map[string]string{"status": "session invalidated"})
}

func (s *Server) handleRateLimitStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	endpoint, err := request.RequireString("endpoint")
	if err != nil {
		return errResult(&unifi.ValidationError{Field: "endpoint", Message: "missing required argument"})
	}
	return jsonResult(s.client.RateLimiter().Stats(endpoint))
}

func (s *Server) handleCapabilities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.capabilities())
}

func (s *Server) capabilities() map[string]interface{} {
	hasKey := s.client.HasAPIKey()
	hasLegacy := s.client.HasLegacyCredentials()
	hasCloud := s.siteManager != nil && s.siteManager.Configured()

	return map[string]interface{}{
		"version": Version,
		"auth": map[string]bool{
			"stateless": hasKey,
			"stateful":  hasLegacy,
			"dual":      hasKey && hasLegacy,
		},
		"surfaces": map[string]bool{
			"network_integration": hasKey || hasLegacy,
			"network_legacy":      hasLegacy,
			"access":              hasKey || hasLegacy,
			"protect":             hasKey || hasLegacy,
			"site_manager_cloud":  hasCloud,
		},
	}
}

func (s *Server) handleDebugRegistry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := make([]string, len(s.toolNames))
	copy(names, s.toolNames)
	sort.Strings(names)
	return jsonResult(map[string]interface{}{
		"count": len(names),
		"tools": names,
	})
}
