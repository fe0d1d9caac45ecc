package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

type playbook struct {
	name        string
	description string
	text        string
}

// playbooks are operator runbooks exposed as MCP prompts. The text is sent
// as a user message; the assistant walks the steps with the tools above.
var playbooks = []playbook{
	{
		name:        "network_triage",
		description: "Diagnose a site with degraded connectivity",
		text: `Triage network health step by step:
1. Run unifi_health and confirm the console is reachable.
2. Run get_sites, then get_devices for the affected site. Flag any device that is offline, adopting, or in an error state.
3. Run get_active_clients and compare the connected count against what the site normally carries.
4. For a suspect device, run get_device and check uptime, uplink, and firmware fields.
5. Summarize findings and recommend next actions. Only suggest restart_device when a specific device shows a fault.`,
	},
	{
		name:        "client_offboarding",
		description: "Remove a departing user's devices from the network",
		text: `Offboard a client safely:
1. Use search_clients to find every device belonging to the user (search by name, hostname, and known MACs).
2. Confirm the MAC list with the operator before changing anything.
3. For each confirmed MAC, run block_client.
4. Verify with get_active_clients that none of the blocked devices remain connected.
5. Report which MACs were blocked and any that could not be found.`,
	},
	{
		name:        "guest_wifi_audit",
		description: "Review guest WLAN exposure",
		text: `Audit guest wireless:
1. Run get_wlans_legacy and identify networks flagged as guest.
2. For each guest WLAN, check whether it is enabled, its security mode, and whether client isolation is on.
3. Run get_active_clients and count clients on guest networks.
4. Report WLANs that are open, isolation-disabled, or unexpectedly busy. Suggest wlan_set_enabled_legacy only for networks the operator confirms should be off.`,
	},
	{
		name:        "door_access_review",
		description: "Review recent door activity for anomalies",
		text: `Review physical access:
1. Run access_list_doors and note each door's lock state.
2. Run access_list_events with topic door_openings and scan for denied entries or openings at unusual hours.
3. Cross-reference event actors against access_list_users.
4. Report doors left unlocked and any event pattern worth escalating. Never unlock a door as part of a review.`,
	},
	{
		name:        "camera_health_check",
		description: "Verify all cameras are online and recording",
		text: `Check camera fleet health:
1. Run protect_get_nvr and check storage utilization and recording state.
2. Run protect_list_cameras and flag cameras that are offline, disconnected, or have recording disabled.
3. For flagged cameras, run protect_get_camera and inspect last-seen and connection fields.
4. Report cameras needing attention. Suggest protect_reboot_camera only for cameras that are reachable but misbehaving.`,
	},
	{
		name:        "isp_outage_report",
		description: "Summarize ISP performance across sites",
		text: `Build an ISP performance report:
1. Run cloud_isp_metrics with interval 1h.
2. For each site, extract latency, packet loss, and throughput against the plan rates.
3. Identify windows where packet loss exceeded 1% or latency doubled its baseline.
4. Use cloud_query_isp_metrics to zoom into the worst site at 5m resolution.
5. Summarize per-site health and list incidents with start and end times.`,
	},
	{
		name:        "session_hygiene",
		description: "Inspect and reset gateway authentication state",
		text: `Check gateway auth health:
1. Run capabilities to see which surfaces the current credentials cover.
2. Run session_info. If the session is near expiry or should_refresh is true, note it.
3. Run rate_limit_stats for any endpoint that recently returned rate limit errors.
4. If the operator reports stale-session symptoms (401s on stateful calls), run session_invalidate and verify the next call re-authenticates.`,
	},
}

func (s *Server) registerPrompts() {
	for _, pb := range playbooks {
		pb := pb
		s.mcp.AddPrompt(
			mcp.NewPrompt(pb.name, mcp.WithPromptDescription(pb.description)),
			func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
				return &mcp.GetPromptResult{
					Description: pb.description,
					Messages: []mcp.PromptMessage{
						mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(pb.text)),
					},
				}, nil
			},
		)
	}
}
