package statustui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/novywave/engine/internal/pipeline"
)

// Run launches the dashboard as a full-screen bubbletea program and blocks
// until the operator quits, mirroring the teacher's cmd/root.go
// tea.NewProgram(..., tea.WithAltScreen()).Run() invocation.
func Run(pipe *pipeline.Pipeline) error {
	p := tea.NewProgram(New(pipe), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
