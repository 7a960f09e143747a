package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/sizekeep/internal/engine"
	"github.com/1broseidon/sizekeep/internal/runloop"
	"github.com/1broseidon/sizekeep/internal/runtimepath"
	"github.com/1broseidon/sizekeep/internal/store"
	"github.com/1broseidon/sizekeep/internal/winid"
)

// Server handles IPC requests from clients. Connections are served on their
// own goroutines, but every touch of engine or store state is marshaled onto
// the run loop, which owns that state.
type Server struct {
	socketPath   string
	listener     net.Listener
	loop         *runloop.Loop
	engine       *engine.Engine
	store        *store.Store
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(loop *runloop.Loop, eng *engine.Engine, st *store.Store, reloadChan chan struct{}) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		loop:       loop,
		engine:     eng,
		store:      st,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListRecords:
		return s.handleListRecords()
	case CommandGetRecord:
		return s.handleGetRecord(req.Payload)
	case CommandForgetRecord:
		return s.handleForgetRecord(req.Payload)
	case CommandFlush:
		return s.handleFlush()
	case CommandReload:
		return s.handleReload()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		DaemonRunning: true,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		StatePath:     s.store.Path(),
	}
	s.loop.Call(func() {
		snap := s.engine.Snapshot()
		status.Tracked = snap.Tracked
		status.Identifying = snap.Identifying
		status.Restored = snap.Restored
		status.RecordCount = s.store.Len()
		status.Dirty = s.store.Dirty()
	})

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleListRecords() *Response {
	var records map[winid.ID]store.Record
	s.loop.Call(func() {
		records = s.store.All()
	})

	data := RecordsData{Records: recordList(records)}
	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleGetRecord(payload json.RawMessage) *Response {
	var p RecordPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid record payload: %v", err))
	}
	if p.ID == "" {
		return NewErrorResponse("id is required")
	}

	id := winid.Normalize(p.ID)
	var rec store.Record
	var ok bool
	s.loop.Call(func() {
		rec, ok = s.store.Get(id)
	})
	if !ok {
		return NewErrorResponse(fmt.Sprintf("No record for %q", id))
	}

	resp, _ := NewOKResponse(RecordInfo{
		ID:          string(id),
		Width:       rec.Width,
		Height:      rec.Height,
		LastUpdated: rec.LastUpdated,
	})
	return resp
}

func (s *Server) handleForgetRecord(payload json.RawMessage) *Response {
	var p RecordPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid record payload: %v", err))
	}
	if p.ID == "" {
		return NewErrorResponse("id is required")
	}

	id := winid.Normalize(p.ID)
	var existed bool
	s.loop.Call(func() {
		existed = s.store.Delete(id)
	})
	log.Printf("IPC: forgot record %q (existed=%v)", id, existed)

	resp, _ := NewOKResponse(ForgetData{Existed: existed})
	return resp
}

func (s *Server) handleFlush() *Response {
	var err error
	s.loop.Call(func() {
		err = s.store.FlushNow()
	})
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to flush state: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleReload asks the daemon to reload its configuration. The daemon owns
// config loading; the server only raises the flag.
func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

// recordList flattens a record map into a slice sorted by identity.
func recordList(records map[winid.ID]store.Record) []RecordInfo {
	out := make([]RecordInfo, 0, len(records))
	for id, rec := range records {
		out = append(out, RecordInfo{
			ID:          string(id),
			Width:       rec.Width,
			Height:      rec.Height,
			LastUpdated: rec.LastUpdated,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
