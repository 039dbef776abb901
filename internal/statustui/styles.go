package statustui

import "github.com/charmbracelet/lipgloss"

// Color palette, grounded on the teacher's internal/tui/styles.go and
// internal/tui/screens/colors.go (both define the same five-color
// AdaptiveColor set independently — this package keeps its own copy rather
// than importing internal/tui, which belongs to the install wizard and has
// no reason to be a dependency of an ops dashboard).
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#2F71F2", Dark: "#4A90FF"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#FFA500", Dark: "#FFA500"}
	colorError   = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#FF4672"}

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
)

func symbolFor(status string) string {
	switch status {
	case "ok":
		return styleSuccess.Render("✓")
	case "warning":
		return styleWarning.Render("⚠")
	case "error":
		return styleError.Render("✗")
	default:
		return styleDim.Render("·")
	}
}
