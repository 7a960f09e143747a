// Package tui is an interactive browser for saved window sizes. It reads
// records from the daemon when one is running and straight from the state
// file otherwise, and can delete records either way.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// TUI is the records browser entry point.
type TUI struct {
	statePath string
}

// New creates a TUI reading fallback records from statePath.
func New(statePath string) *TUI {
	return &TUI{statePath: statePath}
}

// Run starts the TUI main loop.
func (t *TUI) Run() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	p := tea.NewProgram(newModel(t.statePath), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
