package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerCloudTools wires the Site Manager cloud surface. All of these fail
// with a configuration error until UNIFI_SITEMGR_TOKEN is set.
func (s *Server) registerCloudTools() {
	s.addTool(mcp.NewTool("cloud_list_hosts",
		mcp.WithDescription("List consoles attached to the Site Manager cloud account"),
	), s.handleCloudHosts)

	s.addTool(mcp.NewTool("cloud_list_sites",
		mcp.WithDescription("List sites across all cloud-attached consoles"),
	), s.handleCloudSites)

	s.addTool(mcp.NewTool("cloud_list_devices",
		mcp.WithDescription("List devices across all cloud-attached consoles"),
	), s.handleCloudDevices)

	s.addTool(mcp.NewTool("cloud_isp_metrics",
		mcp.WithDescription("Fetch ISP metrics (latency, throughput, packet loss) for all sites"),
		mcp.WithString("interval", mcp.Description(`Sample interval, "5m" or "1h" (default "1h")`)),
	), s.handleISPMetrics)

	s.addTool(mcp.NewTool("cloud_query_isp_metrics",
		mcp.WithDescription("Run a scoped ISP metrics query for specific sites"),
		mcp.WithObject("query", mcp.Required(), mcp.Description("Query body with sites list and time range")),
	), s.handleQueryISPMetrics)
}

func (s *Server) handleCloudHosts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := s.siteManager.Hosts(ctx)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleCloudSites(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := s.siteManager.Sites(ctx)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleCloudDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := s.siteManager.Devices(ctx)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleISPMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	interval := optionalString(request, "interval")
	if interval == "" {
		interval = "1h"
	}
	raw, err := s.siteManager.ISPMetrics(ctx, interval)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleQueryISPMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	query, ok := args["query"]
	if !ok {
		return mcp.NewToolResultError("Invalid query: missing required argument"), nil
	}
	raw, err := s.siteManager.QueryISPMetrics(ctx, query)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}
