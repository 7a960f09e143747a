package tui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/sizekeep/internal/ipc"
	"github.com/1broseidon/sizekeep/internal/store"
	"github.com/1broseidon/sizekeep/internal/winid"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	statusConnectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42"))

	statusOfflineStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

// recordRow is one table row's backing data.
type recordRow struct {
	ID          string
	Width       int
	Height      int
	LastUpdated int64
}

// recordsMsg delivers a refreshed record list.
type recordsMsg struct {
	records []recordRow
	daemon  bool
	err     error
}

// deletedMsg reports the outcome of a delete.
type deletedMsg struct {
	id  string
	err error
}

// model is the root bubbletea model for the TUI.
type model struct {
	statePath string
	ipcClient *ipc.Client

	table   table.Model
	records []recordRow

	daemonConnected bool
	lastError       string

	width  int
	height int
}

func newModel(statePath string) model {
	columns := []table.Column{
		{Title: "Identity", Width: 36},
		{Title: "Width", Width: 7},
		{Title: "Height", Width: 7},
		{Title: "Last updated", Width: 20},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	t.SetStyles(styles)

	return model{
		statePath: statePath,
		ipcClient: ipc.NewClient(),
		table:     t,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return m.refresh
}

// refresh loads records from the daemon, falling back to the state file.
func (m model) refresh() tea.Msg {
	if data, err := m.ipcClient.ListRecords(); err == nil {
		rows := make([]recordRow, 0, len(data.Records))
		for _, r := range data.Records {
			rows = append(rows, recordRow(r))
		}
		return recordsMsg{records: rows, daemon: true}
	}

	records, err := store.ReadFile(m.statePath)
	if err != nil {
		return recordsMsg{err: fmt.Errorf("failed to load records: %w", err)}
	}
	rows := make([]recordRow, 0, len(records))
	for id, rec := range records {
		rows = append(rows, recordRow{
			ID:          string(id),
			Width:       rec.Width,
			Height:      rec.Height,
			LastUpdated: rec.LastUpdated,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return recordsMsg{records: rows}
}

// deleteSelected removes the record under the cursor.
func (m model) deleteSelected() tea.Cmd {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.records) {
		return nil
	}
	id := m.records[cursor].ID
	client := m.ipcClient
	statePath := m.statePath
	return func() tea.Msg {
		if _, err := client.ForgetRecord(id); err == nil {
			return deletedMsg{id: id}
		}
		if _, err := store.ForgetInFile(statePath, winid.ID(id)); err != nil {
			return deletedMsg{id: id, err: err}
		}
		return deletedMsg{id: id}
	}
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := msg.Height - 7
		if h < 3 {
			h = 3
		}
		m.table.SetHeight(h)
		return m, nil

	case recordsMsg:
		if msg.err != nil {
			m.lastError = msg.err.Error()
			return m, nil
		}
		m.lastError = ""
		m.daemonConnected = msg.daemon
		m.records = msg.records
		rows := make([]table.Row, 0, len(msg.records))
		for _, r := range msg.records {
			rows = append(rows, table.Row{
				r.ID,
				fmt.Sprintf("%d", r.Width),
				fmt.Sprintf("%d", r.Height),
				formatUpdated(r.LastUpdated),
			})
		}
		m.table.SetRows(rows)
		if cursor := m.table.Cursor(); cursor >= len(rows) && len(rows) > 0 {
			m.table.SetCursor(len(rows) - 1)
		}
		return m, nil

	case deletedMsg:
		if msg.err != nil {
			m.lastError = fmt.Sprintf("failed to delete %s: %v", msg.id, msg.err)
			return m, nil
		}
		m.lastError = ""
		return m, m.refresh

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refresh
		case "d", "x":
			return m, m.deleteSelected()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m model) View() string {
	title := titleStyle.Render("sizekeep · saved window sizes")

	var status string
	if m.daemonConnected {
		status = statusConnectedStyle.Render("daemon: connected")
	} else {
		status = statusOfflineStyle.Render("daemon: offline (reading state file)")
	}

	body := tableStyle.Render(m.table.View())
	if len(m.records) == 0 {
		body = helpStyle.Render("\n  no saved window sizes yet\n")
	}

	help := helpStyle.Render("j/k navigate · d delete · r refresh · q quit")

	out := lipgloss.JoinVertical(lipgloss.Left, title, status, body, help)
	if m.lastError != "" {
		out = lipgloss.JoinVertical(lipgloss.Left, out, errorStyle.Render(m.lastError))
	}
	return out + "\n"
}

func formatUpdated(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
