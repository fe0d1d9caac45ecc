package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ry-ops/unifi-mcp-server/pkg/unifi"
)

// registerNetworkTools wires the Network Integration API surface. These
// endpoints prefer the stateless key but fall back to the legacy session.
func (s *Server) registerNetworkTools() {
	s.addTool(mcp.NewTool("unifi_health",
		mcp.WithDescription("Check connectivity to the UniFi console and report which authentication modes are usable"),
	), s.handleHealth)

	s.addTool(mcp.NewTool("get_sites",
		mcp.WithDescription("List all sites on the console"),
	), s.handleGetSites)

	s.addTool(mcp.NewTool("get_devices",
		mcp.WithDescription("List all network devices in a site"),
		mcp.WithString("site_id", mcp.Required(), mcp.Description("Site identifier from get_sites")),
	), s.handleGetDevices)

	s.addTool(mcp.NewTool("get_device",
		mcp.WithDescription("Get details for a single network device"),
		mcp.WithString("site_id", mcp.Required(), mcp.Description("Site identifier")),
		mcp.WithString("device_id", mcp.Required(), mcp.Description("Device identifier from get_devices")),
	), s.handleGetDevice)

	s.addTool(mcp.NewTool("restart_device",
		mcp.WithDescription("Restart a network device"),
		mcp.WithString("site_id", mcp.Required(), mcp.Description("Site identifier")),
		mcp.WithString("device_id", mcp.Required(), mcp.Description("Device identifier")),
	), s.handleRestartDevice)

	s.addTool(mcp.NewTool("get_clients",
		mcp.WithDescription("List all known clients in a site, connected or not"),
		mcp.WithString("site_id", mcp.Required(), mcp.Description("Site identifier")),
	), s.handleGetClients)

	s.addTool(mcp.NewTool("search_clients",
		mcp.WithDescription("Search clients in a site by name, hostname, MAC, or IP substring"),
		mcp.WithString("site_id", mcp.Required(), mcp.Description("Site identifier")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Case-insensitive substring to match")),
	), s.handleSearchClients)

	s.addTool(mcp.NewTool("search_devices",
		mcp.WithDescription("Search network devices in a site by name, model, MAC, or IP substring"),
		mcp.WithString("site_id", mcp.Required(), mcp.Description("Site identifier")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Case-insensitive substring to match")),
	), s.handleSearchDevices)
}

func (s *Server) handleHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := map[string]interface{}{
		"api_key_configured":     s.client.HasAPIKey(),
		"legacy_auth_configured": s.client.HasLegacyCredentials(),
		"cloud_token_configured": s.siteManager != nil && s.siteManager.Configured(),
		"session":                s.client.Session().Info(),
		"console_reachable":      false,
	}

	params := url.Values{}
	params.Set("limit", "1")
	if _, err := s.client.Get(ctx, s.client.IntegrationURL("/sites"), unifi.ModeDual, params); err != nil {
		report["error"] = err.Error()
	} else {
		report["console_reachable"] = true
	}

	return jsonResult(report)
}

func (s *Server) handleGetSites(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.client.PaginateIntegration(ctx, s.client.IntegrationURL("/sites"), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}
	return itemsResult(items)
}

func (s *Server) handleGetDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	siteID, err := requireSiteID(request)
	if err != nil {
		return errResult(err)
	}
	items, err := s.client.PaginateIntegration(ctx, s.client.IntegrationURL("/sites/"+siteID+"/devices"), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}
	return itemsResult(items)
}

func (s *Server) handleGetDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	siteID, err := requireSiteID(request)
	if err != nil {
		return errResult(err)
	}
	deviceID, err := requireIdentifier(request, "device_id", unifi.ValidateDeviceID)
	if err != nil {
		return errResult(err)
	}
	raw, err := s.client.Get(ctx, s.client.IntegrationURL("/sites/"+siteID+"/devices/"+deviceID), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleRestartDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	siteID, err := requireSiteID(request)
	if err != nil {
		return errResult(err)
	}
	deviceID, err := requireIdentifier(request, "device_id", unifi.ValidateDeviceID)
	if err != nil {
		return errResult(err)
	}

	body := map[string]string{"action": "RESTART"}
	raw, err := s.client.Post(ctx, s.client.IntegrationURL("/sites/"+siteID+"/devices/"+deviceID+"/actions"), unifi.ModeDual, body)
	if err != nil {
		return errResult(err)
	}
	s.audit.Emit("device.restart", true, map[string]interface{}{"site_id": siteID, "device_id": deviceID}, nil)
	return rawResult(raw)
}

func (s *Server) handleGetClients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	siteID, err := requireSiteID(request)
	if err != nil {
		return errResult(err)
	}
	items, err := s.client.PaginateIntegration(ctx, s.client.IntegrationURL("/sites/"+siteID+"/clients"), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}
	return itemsResult(items)
}

// Attributes matched by the search tools.
var (
	clientSearchFields = []string{"name", "hostname", "macAddress", "mac", "ipAddress", "ip"}
	deviceSearchFields = []string{"name", "model", "macAddress", "mac", "ipAddress", "ip"}
)

func (s *Server) handleSearchClients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.searchCollection(ctx, request, "/clients", clientSearchFields)
}

func (s *Server) handleSearchDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.searchCollection(ctx, request, "/devices", deviceSearchFields)
}

func (s *Server) searchCollection(ctx context.Context, request mcp.CallToolRequest, collection string, fields []string) (*mcp.CallToolResult, error) {
	siteID, err := requireSiteID(request)
	if err != nil {
		return errResult(err)
	}
	query, err := request.RequireString("query")
	if err != nil {
		return errResult(err)
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return errResult(&unifi.ValidationError{Field: "query", Message: "must not be empty"})
	}

	items, err := s.client.PaginateIntegration(ctx, s.client.IntegrationURL("/sites/"+siteID+collection), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}

	matches := make([]json.RawMessage, 0)
	for _, item := range items {
		var attrs map[string]interface{}
		if err := json.Unmarshal(item, &attrs); err != nil {
			continue
		}
		for _, key := range fields {
			if v, ok := attrs[key].(string); ok && strings.Contains(strings.ToLower(v), query) {
				matches = append(matches, item)
				break
			}
		}
	}
	return itemsResult(matches)
}

func requireSiteID(request mcp.CallToolRequest) (string, error) {
	return requireIdentifier(request, "site_id", unifi.ValidateSiteID)
}

func requireIdentifier(request mcp.CallToolRequest, key string, validate func(string) (string, error)) (string, error) {
	value, err := request.RequireString(key)
	if err != nil {
		return "", &unifi.ValidationError{Field: key, Message: fmt.Sprintf("missing required argument: %v", err)}
	}
	return validate(value)
}
