package mcp

// ListWindowSizesInput is the input for the list_window_sizes tool.
type ListWindowSizesInput struct{}

// WindowSizeRecord describes one saved window size.
type WindowSizeRecord struct {
	ID          string `json:"id"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	LastUpdated int64  `json:"last_updated"` // unix milliseconds
}

// ListWindowSizesOutput is the output for the list_window_sizes tool.
type ListWindowSizesOutput struct {
	Records []WindowSizeRecord `json:"records"`
	Source  string             `json:"source"` // "daemon" or "file"
}

// GetWindowSizeInput is the input for the get_window_size tool.
type GetWindowSizeInput struct {
	ID string `json:"id" jsonschema:"required,The window identity to look up (e.g. firefox, org.gnome.nautilus)"`
}

// GetWindowSizeOutput is the output for the get_window_size tool.
type GetWindowSizeOutput struct {
	Record WindowSizeRecord `json:"record"`
	Source string           `json:"source"`
}

// ForgetWindowSizeInput is the input for the forget_window_size tool.
type ForgetWindowSizeInput struct {
	ID string `json:"id" jsonschema:"required,The window identity whose saved size should be forgotten"`
}

// ForgetWindowSizeOutput is the output for the forget_window_size tool.
type ForgetWindowSizeOutput struct {
	Existed bool   `json:"existed"`
	Source  string `json:"source"`
}

// DaemonStatusInput is the input for the daemon_status tool.
type DaemonStatusInput struct{}

// DaemonStatusOutput is the output for the daemon_status tool.
type DaemonStatusOutput struct {
	Running       bool   `json:"running"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
	Tracked       int    `json:"tracked,omitempty"`
	Identifying   int    `json:"identifying,omitempty"`
	Restored      int    `json:"restored,omitempty"`
	RecordCount   int    `json:"record_count"`
	Dirty         bool   `json:"dirty,omitempty"`
	StatePath     string `json:"state_path"`
}
