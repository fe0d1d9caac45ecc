package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ry-ops/unifi-mcp-server/pkg/unifi"
)

// registerProtectTools wires the UniFi Protect (camera) surface.
func (s *Server) registerProtectTools() {
	s.addTool(mcp.NewTool("protect_list_cameras",
		mcp.WithDescription("List all cameras managed by UniFi Protect"),
	), s.handleListCameras)

	s.addTool(mcp.NewTool("protect_get_camera",
		mcp.WithDescription("Get details for a single camera"),
		mcp.WithString("camera_id", mcp.Required(), mcp.Description("Camera identifier from protect_list_cameras")),
	), s.handleGetCamera)

	s.addTool(mcp.NewTool("protect_get_camera_streams",
		mcp.WithDescription("Get the RTSPS stream URLs for a camera's enabled channels"),
		mcp.WithString("camera_id", mcp.Required(), mcp.Description("Camera identifier")),
	), s.handleCameraStreams)

	s.addTool(mcp.NewTool("protect_list_events",
		mcp.WithDescription("List recent Protect events such as motion and smart detections"),
		mcp.WithNumber("hours", mcp.Description("Look-back window in hours, default 24, max 168")),
	), s.handleProtectEvents)

	s.addTool(mcp.NewTool("protect_get_nvr",
		mcp.WithDescription("Get NVR status including storage and recording health"),
	), s.handleGetNVR)

	s.addTool(mcp.NewTool("protect_reboot_camera",
		mcp.WithDescription("Reboot a camera"),
		mcp.WithString("camera_id", mcp.Required(), mcp.Description("Camera identifier")),
	), s.handleRebootCamera)

	s.addTool(mcp.NewTool("protect_set_camera_led",
		mcp.WithDescription("Turn a camera's status LED on or off"),
		mcp.WithString("camera_id", mcp.Required(), mcp.Description("Camera identifier")),
		mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("Desired LED state")),
	), s.handleSetCameraLED)

	s.addTool(mcp.NewTool("protect_set_privacy_mode",
		mcp.WithDescription("Toggle privacy mode: disables recording and mutes the microphone while on"),
		mcp.WithString("camera_id", mcp.Required(), mcp.Description("Camera identifier")),
		mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("true to enable privacy mode")),
	), s.handleSetPrivacyMode)
}

func (s *Server) handleListCameras(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := s.client.Get(ctx, s.client.ProtectURL("/cameras"), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleGetCamera(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cameraID, err := requireIdentifier(request, "camera_id", unifi.ValidateCameraID)
	if err != nil {
		return errResult(err)
	}
	raw, err := s.client.Get(ctx, s.client.ProtectURL("/cameras/"+cameraID), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

type cameraChannel struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Enabled   bool   `json:"isRtspEnabled"`
	RtspAlias string `json:"rtspAlias"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Fps       int    `json:"fps"`
}

func (s *Server) handleCameraStreams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cameraID, err := requireIdentifier(request, "camera_id", unifi.ValidateCameraID)
	if err != nil {
		return errResult(err)
	}
	raw, err := s.client.Get(ctx, s.client.ProtectURL("/cameras/"+cameraID), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}

	var camera struct {
		Name     string          `json:"name"`
		Host     string          `json:"connectionHost"`
		Channels []cameraChannel `json:"channels"`
	}
	if err := json.Unmarshal(raw, &camera); err != nil {
		return errResult(fmt.Errorf("parse camera response: %w", err))
	}

	type stream struct {
		Channel int    `json:"channel"`
		Name    string `json:"name"`
		URL     string `json:"url"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
		Fps     int    `json:"fps"`
	}
	streams := make([]stream, 0, len(camera.Channels))
	for _, ch := range camera.Channels {
		if !ch.Enabled || ch.RtspAlias == "" {
			continue
		}
		streams = append(streams, stream{
			Channel: ch.ID,
			Name:    ch.Name,
			URL:     fmt.Sprintf("rtsps://%s:7441/%s", camera.Host, ch.RtspAlias),
			Width:   ch.Width,
			Height:  ch.Height,
			Fps:     ch.Fps,
		})
	}

	return jsonResult(map[string]interface{}{
		"camera":  camera.Name,
		"streams": streams,
	})
}

func (s *Server) handleProtectEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hours := optionalInt(request, "hours", 24)
	if _, err := unifi.ValidateDuration("hours", hours*3600, 3600, 168*3600); err != nil {
		return errResult(&unifi.ValidationError{Field: "hours", Message: "must be between 1 and 168"})
	}

	endMs := nowMillis()
	startMs := endMs - int64(hours)*3600*1000

	params := url.Values{}
	params.Set("start", strconv.FormatInt(startMs, 10))
	params.Set("end", strconv.FormatInt(endMs, 10))

	raw, err := s.client.Get(ctx, s.client.ProtectURL("/events"), unifi.ModeDual, params)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleGetNVR(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := s.client.Get(ctx, s.client.ProtectURL("/nvr"), unifi.ModeDual, nil)
	if err != nil {
		return errResult(err)
	}
	return rawResult(raw)
}

func (s *Server) handleRebootCamera(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cameraID, err := requireIdentifier(request, "camera_id", unifi.ValidateCameraID)
	if err != nil {
		return errResult(err)
	}
	raw, err := s.client.Post(ctx, s.client.ProtectURL("/cameras/"+cameraID+"/reboot"), unifi.ModeDual, map[string]string{})
	if err != nil {
		s.audit.Emit("camera.reboot", false, map[string]interface{}{"camera_id": cameraID}, err)
		return errResult(err)
	}
	s.audit.Emit("camera.reboot", true, map[string]interface{}{"camera_id": cameraID}, nil)
	return rawResult(raw)
}

func (s *Server) handleSetCameraLED(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cameraID, err := requireIdentifier(request, "camera_id", unifi.ValidateCameraID)
	if err != nil {
		return errResult(err)
	}
	enabled, err := requireBool(request, "enabled")
	if err != nil {
		return errResult(err)
	}

	body := map[string]interface{}{
		"ledSettings": map[string]interface{}{"isEnabled": enabled},
	}
	raw, err := s.client.Patch(ctx, s.client.ProtectURL("/cameras/"+cameraID), unifi.ModeDual, body)
	if err != nil {
		return errResult(err)
	}
	s.audit.Emit("camera.led", true, map[string]interface{}{"camera_id": cameraID, "enabled": enabled}, nil)
	return rawResult(raw)
}

func (s *Server) handleSetPrivacyMode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cameraID, err := requireIdentifier(request, "camera_id", unifi.ValidateCameraID)
	if err != nil {
		return errResult(err)
	}
	enabled, err := requireBool(request, "enabled")
	if err != nil {
		return errResult(err)
	}

	var body map[string]interface{}
	if enabled {
		body = map[string]interface{}{
			"micVolume":         0,
			"recordingSettings": map[string]interface{}{"mode": "never"},
		}
	} else {
		body = map[string]interface{}{
			"micVolume":         100,
			"recordingSettings": map[string]interface{}{"mode": "always"},
		}
	}

	raw, err := s.client.Patch(ctx, s.client.ProtectURL("/cameras/"+cameraID), unifi.ModeDual, body)
	if err != nil {
		s.audit.Emit("camera.privacy", false, map[string]interface{}{"camera_id": cameraID, "enabled": enabled}, err)
		return errResult(err)
	}
	s.audit.Emit("camera.privacy", true, map[string]interface{}{"camera_id": cameraID, "enabled": enabled}, nil)
	return rawResult(raw)
}

func requireBool(request mcp.CallToolRequest, key string) (bool, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok {
		return false, &unifi.ValidationError{Field: key, Message: "missing required argument"}
	}
	return unifi.CoerceBool(key, v)
}
