package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ry-ops/unifi-mcp-server/pkg/unifi"
)

// defaultLegacySite is the site shortname the legacy API uses when a
// console has never been multi-sited.
const defaultLegacySite = "default"

// registerLegacyTools wires operations only the legacy Network API offers.
// These are cookie-session only: the Integration API has no equivalent for
// client manglement or WLAN toggling.
func (s *Server) registerLegacyTools() {
	s.addTool(mcp.NewTool("get_active_clients",
		mcp.WithDescription("List clients currently connected, with live traffic counters (legacy API)"),
		mcp.WithString("site", mcp.Description("Legacy site shortname, default \"default\"")),
	), s.handleActiveClients)

	s.addTool(mcp.NewTool("block_client",
		mcp.WithDescription("Block a client from the network by MAC address"),
		mcp.WithString("mac", mcp.Required(), mcp.Description("Client MAC address")),
		mcp.WithString("site", mcp.Description("Legacy site shortname, default \"default\"")),
	), s.stamgrHandler("block-sta", "client.block"))

	s.addTool(mcp.NewTool("unblock_client",
		mcp.WithDescription("Remove a client's network block by MAC address"),
		mcp.WithString("mac", mcp.Required(), mcp.Description("Client MAC address")),
		mcp.WithString("site", mcp.Description("Legacy site shortname, default \"default\"")),
	), s.stamgrHandler("unblock-sta", "client.unblock"))

	s.addTool(mcp.NewTool("kick_client",
		mcp.WithDescription("Force a client to reconnect by MAC address"),
		mcp.WithString("mac", mcp.Required(), mcp.Description("Client MAC address")),
		mcp.WithString("site", mcp.Description("Legacy site shortname, default \"default\"")),
	), s.stamgrHandler("kick-sta", "client.kick"))

	s.addTool(mcp.NewTool("locate_device",
		mcp.WithDescription("Toggle a device's locate LED by MAC address"),
		mcp.WithString("mac", mcp.Required(), mcp.Description("Device MAC address")),
		mcp.WithBoolean("enabled", mcp.Description("true to start flashing, false to stop (default true)")),
		mcp.WithString("site", mcp.Description("Legacy site shortname, default \"default\"")),
	), s.handleLocateDevice)

	s.addTool(mcp.NewTool("get_wlans_legacy",
		mcp.WithDescription("List WLAN configurations (legacy API)"),
		mcp.WithString("site", mcp.Description("Legacy site shortname, default \"default\"")),
	), s.handleGetWLANs)

	s.addTool(mcp.NewTool("wlan_set_enabled_legacy",
		mcp.WithDescription("Enable or disable a WLAN (legacy API)"),
		mcp.WithString("wlan_id", mcp.Required(), mcp.Description("WLAN configuration identifier from get_wlans_legacy")),
		mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("Desired WLAN state")),
		mcp.WithString("site", mcp.Description("Legacy site shortname, default \"default\"")),
	), s.handleWLANSetEnabled)
}

func legacySite(request mcp.CallToolRequest) (string, error) {
	site := optionalString(request, "site")
	if site == "" {
		return defaultLegacySite, nil
	}
	return unifi.ValidateSiteID(site)
}

func (s *Server) handleActiveClients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := legacySite(request)
	if err != nil {
		return errResult(err)
	}
	raw, err := s.client.Get(ctx, s.client.LegacyURL("/s/"+site+"/stat/sta"), unifi.ModeStateful, nil)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

// stamgrHandler builds a handler for the stamgr command family, which share
// a payload shape and differ only in the command verb.
func (s *Server) stamgrHandler(cmd, auditAction string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		site, err := legacySite(request)
		if err != nil {
			return errResult(err)
		}
		rawMAC, err := request.RequireString("mac")
		if err != nil {
			return errResult(&unifi.ValidationError{Field: "mac", Message: "missing required argument"})
		}
		mac, err := unifi.NormalizeMAC(rawMAC)
		if err != nil {
			return errResult(err)
		}

		body := map[string]string{"cmd": cmd, "mac": mac}
		raw, err := s.client.Post(ctx, s.client.LegacyURL("/s/"+site+"/cmd/stamgr"), unifi.ModeStateful, body)
		if err != nil {
			s.audit.Emit(auditAction, false, map[string]interface{}{"site": site, "mac": mac}, err)
			return errResult(err)
		}
		s.audit.Emit(auditAction, true, map[string]interface{}{"site": site, "mac": mac}, nil)
		return rawResult(raw)
	}
}

func (s *Server) handleLocateDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := legacySite(request)
	if err != nil {
		return errResult(err)
	}
	rawMAC, err := request.RequireString("mac")
	if err != nil {
		return errResult(&unifi.ValidationError{Field: "mac", Message: "missing required argument"})
	}
	mac, err := unifi.NormalizeMAC(rawMAC)
	if err != nil {
		return errResult(err)
	}
	enabled, err := optionalBool(request, "enabled", true)
	if err != nil {
		return errResult(err)
	}

	cmd := "set-locate"
	if !enabled {
		cmd = "unset-locate"
	}
	body := map[string]string{"cmd": cmd, "mac": mac}
	raw, err := s.client.Post(ctx, s.client.LegacyURL("/s/"+site+"/cmd/devmgr"), unifi.ModeStateful, body)
	if err != nil {
		return errResult(err)
	}
	s.audit.Emit("device.locate", true, map[string]interface{}{"site": site, "mac": mac, "enabled": enabled}, nil)
	return rawResult(raw)
}

func (s *Server) handleGetWLANs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := legacySite(request)
	if err != nil {
		return errResult(err)
	}
	raw, err := s.client.Get(ctx, s.client.LegacyURL("/s/"+site+"/rest/wlanconf"), unifi.ModeStateful, nil)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleWLANSetEnabled(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := legacySite(request)
	if err != nil {
		return errResult(err)
	}
	wlanID, err := requireIdentifier(request, "wlan_id", unifi.ValidateWLANID)
	if err != nil {
		return errResult(err)
	}
	args := request.GetArguments()
	enabledArg, ok := args["enabled"]
	if !ok {
		return errResult(&unifi.ValidationError{Field: "enabled", Message: "missing required argument"})
	}
	enabled, err := unifi.CoerceBool("enabled", enabledArg)
	if err != nil {
		return errResult(err)
	}

	body := map[string]bool{"enabled": enabled}
	raw, err := s.client.Put(ctx, s.client.LegacyURL("/s/"+site+"/rest/wlanconf/"+wlanID), unifi.ModeStateful, body)
	if err != nil {
		s.audit.Emit("wlan.set_enabled", false, map[string]interface{}{"site": site, "wlan_id": wlanID, "enabled": enabled}, err)
		return errResult(err)
	}
	s.audit.Emit("wlan.set_enabled", true, map[string]interface{}{"site": site, "wlan_id": wlanID, "enabled": enabled}, nil)
	return rawResult(raw)
}
