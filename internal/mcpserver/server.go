// Package mcpserver exposes the UniFi gateway as an MCP server over stdio.
// Tools are the write/read surface, resources give read-only snapshots, and
// prompts ship operator playbooks. All controller traffic goes through the
// auth broker so every tool inherits rate limiting and sanitization.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/ry-ops/unifi-mcp-server/internal/audit"
	"github.com/ry-ops/unifi-mcp-server/pkg/unifi"
)

// Version is stamped into the MCP handshake and the capabilities report.
var Version = "1.3.0"

// Server wires the auth broker and cloud client into the MCP protocol.
type Server struct {
	client      *unifi.Client
	siteManager *unifi.SiteManagerClient
	audit       audit.Sink
	mcp         *server.MCPServer
	toolNames   []string
}

// New builds the server and registers every tool, resource, and prompt.
func New(client *unifi.Client, siteManager *unifi.SiteManagerClient, sink audit.Sink) *Server {
	if sink == nil {
		sink = audit.Nop{}
	}

	s := &Server{
		client:      client,
		siteManager: siteManager,
		audit:       sink,
		mcp: server.NewMCPServer(
			"unifi-mcp-server",
			Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithPromptCapabilities(false),
		),
	}

	s.registerNetworkTools()
	s.registerLegacyTools()
	s.registerAccessTools()
	s.registerProtectTools()
	s.registerCloudTools()
	s.registerAdminTools()
	s.registerResources()
	s.registerPrompts()

	log.Info().Int("tools", len(s.toolNames)).Msg("MCP surface registered")
	return s
}

// Serve runs the stdio transport. It blocks until the client closes the
// stream or ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ServeStdio(s.mcp)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
