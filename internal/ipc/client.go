package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/sizekeep/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// ListRecords retrieves every saved window size.
func (c *Client) ListRecords() (*RecordsData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandListRecords})
	if err != nil {
		return nil, err
	}

	var data RecordsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse records data: %w", err)
	}

	return &data, nil
}

// GetRecord retrieves one saved window size by identity.
func (c *Client) GetRecord(id string) (*RecordInfo, error) {
	payload, err := json.Marshal(RecordPayload{ID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record payload: %w", err)
	}

	resp, err := c.sendRequest(&Request{Command: CommandGetRecord, Payload: payload})
	if err != nil {
		return nil, err
	}

	var rec RecordInfo
	if err := json.Unmarshal(resp.Data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record data: %w", err)
	}

	return &rec, nil
}

// ForgetRecord deletes a saved window size and reports whether it existed.
func (c *Client) ForgetRecord(id string) (bool, error) {
	payload, err := json.Marshal(RecordPayload{ID: id})
	if err != nil {
		return false, fmt.Errorf("failed to marshal record payload: %w", err)
	}

	resp, err := c.sendRequest(&Request{Command: CommandForgetRecord, Payload: payload})
	if err != nil {
		return false, err
	}

	var data ForgetData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return false, fmt.Errorf("failed to parse forget data: %w", err)
	}

	return data.Existed, nil
}

// Flush forces a synchronous state write.
func (c *Client) Flush() error {
	_, err := c.sendRequest(&Request{Command: CommandFlush})
	return err
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	_, err := c.sendRequest(&Request{Command: CommandReload})
	return err
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
