// Package mcp exposes the saved window sizes as MCP tools over stdio.
//
// Tools prefer the live daemon over its IPC socket and fall back to reading
// the state file directly, so they work whether or not the daemon runs.
package mcp

import (
	"context"
	"fmt"
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/sizekeep/internal/ipc"
	"github.com/1broseidon/sizekeep/internal/store"
	"github.com/1broseidon/sizekeep/internal/winid"
)

const (
	ServerName    = "sizekeep"
	ServerVersion = "0.1.0"
)

// Server is the MCP server for saved window sizes.
type Server struct {
	mcpServer *mcpsdk.Server
	statePath string

	// newClient is swapped in tests to avoid a real socket.
	newClient func() recordClient
}

// recordClient is the slice of the IPC client the tools use.
type recordClient interface {
	GetStatus() (*ipc.StatusData, error)
	ListRecords() (*ipc.RecordsData, error)
	GetRecord(id string) (*ipc.RecordInfo, error)
	ForgetRecord(id string) (bool, error)
}

// NewServer creates a new MCP server reading records from the daemon at
// statePath's owning daemon when running, else from the file itself.
func NewServer(statePath string) *Server {
	s := &Server{
		statePath: statePath,
		newClient: func() recordClient { return ipc.NewClient() },
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
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
		Name:        "list_window_sizes",
		Description: "List every saved window size record. Records are keyed by a normalized application identity and store the last freely-chosen (non-maximized) size of that application's windows.",
	}, s.handleListWindowSizes)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_window_size",
		Description: "Get the saved size record for one application identity.",
	}, s.handleGetWindowSize)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "forget_window_size",
		Description: "Delete the saved size record for one application identity. The next window of that application keeps whatever size it opens with.",
	}, s.handleForgetWindowSize)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "daemon_status",
		Description: "Report whether the sizekeep daemon is running, and its tracking counters when it is.",
	}, s.handleDaemonStatus)
}

func (s *Server) handleListWindowSizes(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowSizesInput) (*mcpsdk.CallToolResult, ListWindowSizesOutput, error) {
	client := s.newClient()
	if data, err := client.ListRecords(); err == nil {
		out := ListWindowSizesOutput{Source: "daemon", Records: make([]WindowSizeRecord, 0, len(data.Records))}
		for _, r := range data.Records {
			out.Records = append(out.Records, WindowSizeRecord(r))
		}
		return nil, out, nil
	}

	records, err := store.ReadFile(s.statePath)
	if err != nil {
		return nil, ListWindowSizesOutput{}, fmt.Errorf("no daemon running and state file unreadable: %w", err)
	}
	out := ListWindowSizesOutput{Source: "file", Records: make([]WindowSizeRecord, 0, len(records))}
	for id, rec := range records {
		out.Records = append(out.Records, WindowSizeRecord{
			ID:          string(id),
			Width:       rec.Width,
			Height:      rec.Height,
			LastUpdated: rec.LastUpdated,
		})
	}
	sort.Slice(out.Records, func(i, j int) bool { return out.Records[i].ID < out.Records[j].ID })
	return nil, out, nil
}

func (s *Server) handleGetWindowSize(_ context.Context, _ *mcpsdk.CallToolRequest, args GetWindowSizeInput) (*mcpsdk.CallToolResult, GetWindowSizeOutput, error) {
	if args.ID == "" {
		return nil, GetWindowSizeOutput{}, fmt.Errorf("id is required")
	}
	id := winid.Normalize(args.ID)

	client := s.newClient()
	if rec, err := client.GetRecord(string(id)); err == nil {
		return nil, GetWindowSizeOutput{Source: "daemon", Record: WindowSizeRecord(*rec)}, nil
	} else if _, pingErr := client.GetStatus(); pingErr == nil {
		// Daemon is up; the record genuinely does not exist.
		return nil, GetWindowSizeOutput{}, err
	}

	records, err := store.ReadFile(s.statePath)
	if err != nil {
		return nil, GetWindowSizeOutput{}, fmt.Errorf("no daemon running and state file unreadable: %w", err)
	}
	rec, ok := records[id]
	if !ok {
		return nil, GetWindowSizeOutput{}, fmt.Errorf("no record for %q", id)
	}
	return nil, GetWindowSizeOutput{
		Source: "file",
		Record: WindowSizeRecord{
			ID:          string(id),
			Width:       rec.Width,
			Height:      rec.Height,
			LastUpdated: rec.LastUpdated,
		},
	}, nil
}

func (s *Server) handleForgetWindowSize(_ context.Context, _ *mcpsdk.CallToolRequest, args ForgetWindowSizeInput) (*mcpsdk.CallToolResult, ForgetWindowSizeOutput, error) {
	if args.ID == "" {
		return nil, ForgetWindowSizeOutput{}, fmt.Errorf("id is required")
	}
	id := winid.Normalize(args.ID)

	client := s.newClient()
	if existed, err := client.ForgetRecord(string(id)); err == nil {
		return nil, ForgetWindowSizeOutput{Source: "daemon", Existed: existed}, nil
	}

	existed, err := store.ForgetInFile(s.statePath, id)
	if err != nil {
		return nil, ForgetWindowSizeOutput{}, fmt.Errorf("no daemon running and state file edit failed: %w", err)
	}
	return nil, ForgetWindowSizeOutput{Source: "file", Existed: existed}, nil
}

func (s *Server) handleDaemonStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ DaemonStatusInput) (*mcpsdk.CallToolResult, DaemonStatusOutput, error) {
	client := s.newClient()
	if status, err := client.GetStatus(); err == nil {
		return nil, DaemonStatusOutput{
			Running:       true,
			UptimeSeconds: status.UptimeSeconds,
			Tracked:       status.Tracked,
			Identifying:   status.Identifying,
			Restored:      status.Restored,
			RecordCount:   status.RecordCount,
			Dirty:         status.Dirty,
			StatePath:     status.StatePath,
		}, nil
	}

	out := DaemonStatusOutput{Running: false, StatePath: s.statePath}
	if records, err := store.ReadFile(s.statePath); err == nil {
		out.RecordCount = len(records)
	}
	return nil, out, nil
}
