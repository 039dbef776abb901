// Package statustui implements the operator-facing terminal dashboard
// (novywave serve --status-tui): a read-only view of tracked files, plugin
// lifecycle states, and request-pipeline backpressure. It is not the
// graphical waveform viewer — that stays an external UI reached only
// through the wire protocol — this is ops/debug tooling in the same spirit
// as the teacher's doctor/servers screens (internal/tui/screens), rebuilt
// as a single always-on model instead of a pushed/popped screen stack
// since there is nowhere else to navigate to.
package statustui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/novywave/engine/internal/pipeline"
	"github.com/novywave/engine/internal/wire"
)

const statsInterval = 500 * time.Millisecond

// fileRow tracks one TrackedFile's last-known wire state, folded from the
// FileLoading/FileLoaded/FileFailed stream (spec.md §6.1).
type fileRow struct {
	path      string
	status    string // "ok" | "warning" | "error" (loading)
	stage     string
	unitHint  string
	errorKind string
	message   string
}

// pluginRow tracks one plugin's last-known PluginStatus push (spec.md §4.7).
type pluginRow struct {
	id      string
	state   string
	message string
}

type teeMsg struct{ resp wire.Response }

type statsTickMsg struct{}

// Model is the bubbletea model for the dashboard.
type Model struct {
	tee <-chan wire.Response
	pipe *pipeline.Pipeline

	fileOrder   []string
	files       map[string]*fileRow
	pluginOrder []string
	plugins     map[string]*pluginRow

	stats pipeline.Stats

	spinner spinner.Model
	width   int
	height  int
	err     error
}

// New constructs the dashboard model. pipe is tee'd rather than drained
// directly so the dashboard never competes with internal/engineio for
// responses destined for the UI connection.
func New(pipe *pipeline.Pipeline) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		tee:     pipe.Tee(),
		pipe:    pipe,
		files:   make(map[string]*fileRow),
		plugins: make(map[string]*pluginRow),
		spinner: s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForResponse(), tickStats())
}

func (m Model) waitForResponse() tea.Cmd {
	tee := m.tee
	return func() tea.Msg {
		resp, ok := <-tee
		if !ok {
			return nil
		}
		return teeMsg{resp: resp}
	}
}

func tickStats() tea.Cmd {
	return tea.Tick(statsInterval, func(time.Time) tea.Msg { return statsTickMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statsTickMsg:
		m.stats = m.pipe.Stats()
		return m, tickStats()

	case teeMsg:
		m.apply(msg.resp)
		return m, m.waitForResponse()
	}
	return m, nil
}

// apply folds one wire.Response into the dashboard's file/plugin panels.
// Unrelated response types (Hierarchy, DecimatedRange, ValuesAt, ...) are
// ignored — the dashboard only cares about the subset spec.md §2 calls out
// for operator visibility.
func (m *Model) apply(resp wire.Response) {
	switch resp.Type {
	case wire.RespFileLoading:
		row, ok := m.files[resp.Path]
		if !ok {
			row = &fileRow{path: resp.Path}
			m.files[resp.Path] = row
			m.fileOrder = append(m.fileOrder, resp.Path)
		}
		row.status = "warning"
		row.stage = resp.Stage
		row.errorKind = ""
		row.message = ""

	case wire.RespFileLoaded:
		row, ok := m.files[resp.Path]
		if !ok {
			row = &fileRow{path: resp.Path}
			m.files[resp.Path] = row
			m.fileOrder = append(m.fileOrder, resp.Path)
		}
		row.status = "ok"
		row.stage = ""
		row.unitHint = resp.UnitHint
		row.errorKind = ""
		row.message = ""

	case wire.RespFileFailed:
		row, ok := m.files[resp.Path]
		if !ok {
			row = &fileRow{path: resp.Path}
			m.files[resp.Path] = row
			m.fileOrder = append(m.fileOrder, resp.Path)
		}
		row.status = "error"
		row.stage = ""
		row.errorKind = resp.ErrorKind
		row.message = resp.Message

	case wire.RespPluginStatus:
		row, ok := m.plugins[resp.PluginID]
		if !ok {
			row = &pluginRow{id: resp.PluginID}
			m.plugins[resp.PluginID] = row
			m.pluginOrder = append(m.pluginOrder, resp.PluginID)
		}
		row.state = resp.PluginState
		row.message = resp.Message

	case wire.RespSnapshot:
		if resp.Snapshot == nil {
			return
		}
		m.syncFilesFromSnapshot(resp.Snapshot)
	}
}

// syncFilesFromSnapshot reconciles the files panel against an authoritative
// SessionSnapshot — catching a file that was unloaded (and so will never
// produce another FileLoading/FileLoaded/FileFailed push to clear its row).
func (m *Model) syncFilesFromSnapshot(snap *wire.Snapshot) {
	seen := make(map[string]bool, len(snap.Files))
	for _, f := range snap.Files {
		seen[f.Path] = true
		row, ok := m.files[f.Path]
		if !ok {
			row = &fileRow{path: f.Path}
			m.files[f.Path] = row
			m.fileOrder = append(m.fileOrder, f.Path)
		}
		switch f.State {
		case "loading":
			row.status = "warning"
		case "failed":
			row.status = "error"
		default:
			row.status = "ok"
		}
		row.stage = f.Stage
		row.unitHint = f.UnitHint
		row.errorKind = f.ErrorKind
		row.message = f.ErrorMsg
	}
	kept := m.fileOrder[:0]
	for _, path := range m.fileOrder {
		if seen[path] {
			kept = append(kept, path)
			continue
		}
		delete(m.files, path)
	}
	m.fileOrder = kept
}

func pluginStatusSymbolState(state string) string {
	switch state {
	case "Ready":
		return "ok"
	case "Disabled":
		return "dim"
	case "Error":
		return "error"
	default: // Loading, Reloading
		return "warning"
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("novywave — status") + "\n\n")

	b.WriteString(m.renderFiles())
	b.WriteString("\n")
	b.WriteString(m.renderPlugins())
	b.WriteString("\n")
	b.WriteString(m.renderBackpressure())
	b.WriteString("\n")
	b.WriteString(styleDim.Render("q quit"))

	return b.String()
}

func (m Model) renderFiles() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Tracked Files") + "\n")
	if len(m.fileOrder) == 0 {
		b.WriteString(styleDim.Render("  (none)") + "\n")
		return b.String()
	}
	for _, path := range m.fileOrder {
		row := m.files[path]
		detail := row.stage
		if row.status == "ok" {
			detail = row.unitHint
		} else if row.status == "error" {
			detail = fmt.Sprintf("%s: %s", row.errorKind, row.message)
		}
		fmt.Fprintf(&b, "  %s %-40s %s\n", symbolFor(row.status), row.path, styleDim.Render(detail))
	}
	return b.String()
}

func (m Model) renderPlugins() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Plugins") + "\n")
	if len(m.pluginOrder) == 0 {
		b.WriteString(styleDim.Render("  (none)") + "\n")
		return b.String()
	}
	ids := append([]string(nil), m.pluginOrder...)
	sort.Strings(ids)
	for _, id := range ids {
		row := m.plugins[id]
		symState := pluginStatusSymbolState(row.state)
		var symbol string
		if symState == "dim" {
			symbol = styleDim.Render("–")
		} else {
			symbol = symbolFor(symState)
		}
		detail := row.message
		fmt.Fprintf(&b, "  %s %-20s %-10s %s\n", symbol, row.id, row.state, styleDim.Render(detail))
	}
	return b.String()
}

func (m Model) renderBackpressure() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Pipeline") + "\n")
	s := m.stats
	bar := gauge(s.ActiveRangeWorkers, s.RangeCapacity, 20)
	fmt.Fprintf(&b, "  range workers  %s %d/%d\n", bar, s.ActiveRangeWorkers, s.RangeCapacity)
	fmt.Fprintf(&b, "  pending groups %d\n", s.PendingGroups)
	probe := "idle"
	if s.ProbeQueued {
		probe = "queued"
	}
	fmt.Fprintf(&b, "  value probe    %s\n", probe)
	return b.String()
}

// gauge renders a fixed-width ASCII utilization bar, used instead of a
// bubbles/progress.Model since this value changes at a polling cadence
// (statsInterval) rather than animating toward a target.
func gauge(active, capacity, width int) string {
	if capacity <= 0 {
		return strings.Repeat("░", width)
	}
	filled := active * width / capacity
	if filled > width {
		filled = width
	}
	style := lipgloss.NewStyle().Foreground(colorPrimary)
	if active >= capacity {
		style = lipgloss.NewStyle().Foreground(colorWarning)
	}
	return style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)
}
