package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus    CommandType = "GET_STATUS"
	CommandListRecords  CommandType = "LIST_RECORDS"
	CommandGetRecord    CommandType = "GET_RECORD"
	CommandForgetRecord CommandType = "FORGET_RECORD"
	CommandFlush        CommandType = "FLUSH"
	CommandReload       CommandType = "RELOAD"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	DaemonRunning bool   `json:"daemon_running"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Tracked       int    `json:"tracked"`
	Identifying   int    `json:"identifying"`
	Restored      int    `json:"restored"`
	RecordCount   int    `json:"record_count"`
	Dirty         bool   `json:"dirty"`
	StatePath     string `json:"state_path"`
}

// RecordInfo is one saved window size.
type RecordInfo struct {
	ID          string `json:"id"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	LastUpdated int64  `json:"last_updated"` // unix milliseconds
}

// RecordsData represents the data returned by LIST_RECORDS
type RecordsData struct {
	Records []RecordInfo `json:"records"`
}

// RecordPayload names the record a GET_RECORD or FORGET_RECORD targets.
type RecordPayload struct {
	ID string `json:"id"`
}

// ForgetData represents the data returned by FORGET_RECORD
type ForgetData struct {
	Existed bool `json:"existed"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
