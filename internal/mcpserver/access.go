package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ry-ops/unifi-mcp-server/pkg/unifi"
)

// registerAccessTools wires the UniFi Access (door control) surface.
func (s *Server) registerAccessTools() {
	s.addTool(mcp.NewTool("access_list_doors",
		mcp.WithDescription("List all doors managed by UniFi Access"),
	), s.handleListDoors)

	s.addTool(mcp.NewTool("access_get_door",
		mcp.WithDescription("Get details for a single door"),
		mcp.WithString("door_id", mcp.Required(), mcp.Description("Door identifier from access_list_doors")),
	), s.handleGetDoor)

	s.addTool(mcp.NewTool("access_unlock_door",
		mcp.WithDescription("Remotely unlock a door for its configured hold time"),
		mcp.WithString("door_id", mcp.Required(), mcp.Description("Door identifier")),
	), s.handleUnlockDoor)

	s.addTool(mcp.NewTool("access_list_devices",
		mcp.WithDescription("List Access hardware: hubs, readers, and keypads"),
	), s.handleListAccessDevices)

	s.addTool(mcp.NewTool("access_list_users",
		mcp.WithDescription("List Access users"),
	), s.handleListAccessUsers)

	s.addTool(mcp.NewTool("access_list_events",
		mcp.WithDescription("Query recent Access system logs such as door openings and denied entries"),
		mcp.WithString("topic", mcp.Description("Log topic, default \"door_openings\"")),
		mcp.WithNumber("page_size", mcp.Description("Events per page, default 25")),
	), s.handleAccessEvents)
}

func (s *Server) handleListDoors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := s.client.Get(ctx, s.client.AccessURL("/developer/doors"), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleGetDoor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doorID, err := requireIdentifier(request, "door_id", unifi.ValidateDoorID)
	if err != nil {
		return errResult(err)
	}
	raw, err := s.client.Get(ctx, s.client.AccessURL("/developer/doors/"+doorID), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleUnlockDoor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doorID, err := requireIdentifier(request, "door_id", unifi.ValidateDoorID)
	if err != nil {
		return errResult(err)
	}
	raw, err := s.client.Put(ctx, s.client.AccessURL("/developer/doors/"+doorID+"/remote_unlock"), unifi.ModeDual, map[string]string{})
	if err != nil {
		s.audit.Emit("door.unlock", false, map[string]interface{}{"door_id": doorID}, err)
		return errResult(err)
	}
	s.audit.Emit("door.unlock", true, map[string]interface{}{"door_id": doorID}, nil)
	return rawResult(raw)
}

func (s *Server) handleListAccessDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := s.client.Get(ctx, s.client.AccessURL("/developer/devices"), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleListAccessUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := s.client.Get(ctx, s.client.AccessURL("/developer/users"), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleAccessEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic := optionalString(request, "topic")
	if topic == "" {
		topic = "door_openings"
	}
	pageSize := optionalInt(request, "page_size", 25)
	if pageSize < 1 || pageSize > 200 {
		return errResult(&unifi.ValidationError{Field: "page_size", Message: "must be between 1 and 200"})
	}

	body := map[string]interface{}{
		"topic":     topic,
		"page_num":  1,
		"page_size": pageSize,
	}
	raw, err := s.client.Post(ctx, s.client.AccessURL("/developer/system/logs"), unifi.ModeDual, body)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}
