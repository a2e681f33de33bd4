// Package mcp exposes the notification daemon to MCP clients over
// stdio. Each tool proxies a call through the D-Bus client, so the
// server works against any running freedesktop notification daemon.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"toast/internal/dbus"
	"toast/internal/notify"
)

// ServerName identifies this MCP server to clients.
const ServerName = "toast"

// Client is the bus surface the tools need.
type Client interface {
	Send(req *dbus.Request) (uint32, error)
	CloseNotification(id uint32) error
	ServerInformation() (dbus.ServerInfo, error)
	Capabilities() ([]string, error)
}

// Server is the MCP server for sending and closing toasts.
type Server struct {
	mcpServer *mcpsdk.Server
	client    Client
	logger    *slog.Logger
}

// NewServer creates an MCP server proxying the given bus client.
func NewServer(client Client, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		client: client,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "send_toast",
		Description: "Send a desktop notification through the toast daemon. Returns the notification id, which can be passed back as replaces_id to update the toast in place or to close_toast to dismiss it.",
	}, s.handleSendToast)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_toast",
		Description: "Close a previously sent notification by id. Closing an id that already expired is not an error.",
	}, s.handleCloseToast)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "server_info",
		Description: "Report the notification server's identity, spec version, and capabilities.",
	}, s.handleServerInfo)
}

func (s *Server) handleSendToast(_ context.Context, _ *mcpsdk.CallToolRequest, args SendToastInput) (*mcpsdk.CallToolResult, SendToastOutput, error) {
	if strings.TrimSpace(args.Summary) == "" {
		return nil, SendToastOutput{}, fmt.Errorf("summary is required")
	}

	appName := args.AppName
	if appName == "" {
		appName = "toast"
	}

	req := &dbus.Request{
		AppName:       appName,
		ReplacesID:    args.ReplacesID,
		Summary:       args.Summary,
		Body:          args.Body,
		ExpireTimeout: -1,
	}

	if args.Urgency != "" {
		u, err := notify.ParseUrgency(args.Urgency)
		if err != nil {
			return nil, SendToastOutput{}, err
		}
		req.SetUrgency(u)
	}
	if args.Position != "" {
		p, err := notify.ParsePosition(args.Position)
		if err != nil {
			return nil, SendToastOutput{}, err
		}
		req.SetPosition(p)
	}
	if args.TimeoutMS != nil {
		req.ExpireTimeout = int32(*args.TimeoutMS)
	}
	if args.Value != nil {
		if *args.Value < 0 || *args.Value > 100 {
			return nil, SendToastOutput{}, fmt.Errorf("value must be between 0 and 100")
		}
		req.SetValue(*args.Value)
	}
	if args.Transient {
		req.SetTransient(true)
	}

	id, err := s.client.Send(req)
	if err != nil {
		return nil, SendToastOutput{}, err
	}

	s.logger.Debug("mcp notification sent", "id", id, "app", appName)
	return nil, SendToastOutput{ID: id}, nil
}

func (s *Server) handleCloseToast(_ context.Context, _ *mcpsdk.CallToolRequest, args CloseToastInput) (*mcpsdk.CallToolResult, CloseToastOutput, error) {
	if args.ID == 0 {
		return nil, CloseToastOutput{}, fmt.Errorf("id is required")
	}

	if err := s.client.CloseNotification(args.ID); err != nil {
		return nil, CloseToastOutput{}, err
	}

	s.logger.Debug("mcp notification closed", "id", args.ID)
	return nil, CloseToastOutput{Closed: true}, nil
}

func (s *Server) handleServerInfo(_ context.Context, _ *mcpsdk.CallToolRequest, _ ServerInfoInput) (*mcpsdk.CallToolResult, ServerInfoOutput, error) {
	info, err := s.client.ServerInformation()
	if err != nil {
		return nil, ServerInfoOutput{}, err
	}

	caps, err := s.client.Capabilities()
	if err != nil {
		return nil, ServerInfoOutput{}, err
	}

	return nil, ServerInfoOutput{
		Name:         info.Name,
		Vendor:       info.Vendor,
		Version:      info.Version,
		SpecVersion:  info.SpecVersion,
		Capabilities: caps,
	}, nil
}
