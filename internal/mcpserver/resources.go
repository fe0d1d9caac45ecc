package mcpserver

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ry-ops/unifi-mcp-server/pkg/unifi"
)

// registerResources wires read-only snapshots clients can poll without
// spending a tool call.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		mcp.NewResource("unifi://health", "Gateway health: console reachability and configured auth modes"),
		s.resourceHealth,
	)
	s.mcp.AddResource(
		mcp.NewResource("unifi://capabilities", "Usable API surfaces for the current credential set"),
		s.resourceCapabilities,
	)
	s.mcp.AddResource(
		mcp.NewResource("unifi://sites", "All sites on the console"),
		s.resourceSites,
	)
	s.mcp.AddResource(
		mcp.NewResource("unifi://access/doors", "All doors managed by UniFi Access"),
		s.resourceDoors,
	)
	s.mcp.AddResource(
		mcp.NewResource("unifi://protect/cameras", "All cameras managed by UniFi Protect"),
		s.resourceCameras,
	)
}

func textContents(uri string, data []byte) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}
}

func (s *Server) resourceHealth(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	report := map[string]interface{}{
		"api_key_configured":     s.client.HasAPIKey(),
		"legacy_auth_configured": s.client.HasLegacyCredentials(),
		"console_reachable":      false,
	}
	params := url.Values{}
	params.Set("limit", "1")
	if _, err := s.client.Get(ctx, s.client.IntegrationURL("/sites"), unifi.ModeDual, params); err != nil {
		report["error"] = err.Error()
	} else {
		report["console_reachable"] = true
	}

	data, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	return textContents("unifi://health", data), nil
}

func (s *Server) resourceCapabilities(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(s.capabilities())
	if err != nil {
		return nil, err
	}
	return textContents("unifi://capabilities", data), nil
}

func (s *Server) resourceSites(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	items, err := s.client.PaginateIntegration(ctx, s.client.IntegrationURL("/sites"), unifi.ModeDual, nil)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return textContents("unifi://sites", data), nil
}

func (s *Server) resourceDoors(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	raw, err := s.client.Get(ctx, s.client.AccessURL("/developer/doors"), unifi.ModeDual, nil)
	if err != nil {
		return nil, err
	}
	return textContents("unifi://access/doors", raw), nil
}

func (s *Server) resourceCameras(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	raw, err := s.client.Get(ctx, s.client.ProtectURL("/cameras"), unifi.ModeDual, nil)
	if err != nil {
		return nil, err
	}
	return textContents("unifi://protect/cameras", raw), nil
}
