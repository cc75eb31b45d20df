package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/pyexpl/internal/pane"
	"github.com/Iron-Ham/pyexpl/internal/playground"
	"github.com/Iron-Ham/pyexpl/internal/runner"
	"github.com/Iron-Ham/pyexpl/internal/tui/command"
	"github.com/Iron-Ham/pyexpl/internal/tui/styles"
	"github.com/Iron-Ham/pyexpl/internal/util"
)

const editorZone = "editor"

func closeZone(handle string) string { return "close:" + handle }
func paneZone(handle string) string  { return "pane:" + handle }

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderEditor(), m.renderOutput())
	body = lipgloss.NewStyle().MaxHeight(m.bodyHeight()).MaxWidth(m.width).Render(body)

	screen := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatus(),
		m.help.View(m.keys),
	)
	return m.zones.Scan(screen)
}

func (m Model) renderHeader() string {
	parts := []string{styles.Header.Render("pyexpl")}
	if m.shared {
		parts = append(parts, styles.SharedBanner.Render("shared session"))
	}
	n := len(m.viewports)
	parts = append(parts, styles.Muted.Render(fmt.Sprintf("%d runner(s)", n)))
	return util.TruncateANSI(strings.Join(parts, "  "), max(m.width, 4))
}

func (m Model) renderEditor() string {
	box := styles.EditorBox
	if m.focus == focusEditor && !m.commandMode {
		box = styles.EditorBoxFocused
	}
	return m.zones.Mark(editorZone, box.Render(m.editor.View()))
}

func (m Model) renderOutput() string {
	width := m.outputWidth()
	height := m.bodyHeight()
	column := lipgloss.NewStyle().Width(width).MaxWidth(width).Height(height).MaxHeight(height)

	switch {
	case m.showHelp:
		return column.Render(m.renderHelpPanel(width))
	case m.showRunners:
		return column.Render(m.renderRunnersPanel())
	}

	views := m.ctrl.Panes()
	if len(views) == 0 {
		return column.Render(styles.Muted.Render(
			"No runners open.\nPress esc, then :add python3.14 (or any runner from :runners)."))
	}

	heights := m.splitter.Heights()
	gutter := strings.Repeat("─", width)
	gutterLines := m.splitter.Gutter()

	blocks := make([]string, 0, 2*len(views))
	for i, v := range views {
		if i > 0 {
			for range gutterLines {
				blocks = append(blocks, styles.Gutter.Render(gutter))
			}
		}
		blocks = append(blocks, m.renderPane(i, v, width, heights[v.Handle]))
	}
	return column.Render(lipgloss.JoinVertical(lipgloss.Left, blocks...))
}

func (m Model) renderPane(i int, v playground.PaneView, width, height int) string {
	focused := m.focus == focusPanes && i == m.focusedPane

	titleStyle := styles.PaneTitle
	if focused {
		titleStyle = styles.PaneTitleFocused
	}
	icon := lipgloss.NewStyle().Foreground(styles.StateColor(v.State)).Render(styles.StateIcon(v.State))
	left := icon + " " + titleStyle.Render(v.Title)
	if v.InFlight > 0 {
		left += " " + m.spinner.View()
	}
	closeBtn := m.zones.Mark(closeZone(v.Handle), styles.PaneClose.Render("[x]"))

	gap := width - lipgloss.Width(left) - lipgloss.Width(closeBtn)
	if gap < 1 {
		left = util.TruncateANSI(left, max(width-lipgloss.Width(closeBtn)-1, 4))
		gap = max(width-lipgloss.Width(left)-lipgloss.Width(closeBtn), 1)
	}
	title := left + strings.Repeat(" ", gap) + closeBtn

	content := ""
	if vp := m.viewports[v.ID]; vp != nil {
		content = vp.View()
	}
	switch {
	case v.Output == "" && v.State == pane.Pending:
		content = styles.Muted.Render("waiting for output...")
	case v.Output == "" && v.State == pane.Idle:
		content = styles.Muted.Render("not run yet (ctrl+s to run)")
	case v.State == pane.Failed:
		content = styles.PaneFailure.Render(content)
	default:
		content = styles.PaneBody.Render(content)
	}

	block := lipgloss.JoinVertical(lipgloss.Left, title, content)
	block = lipgloss.NewStyle().MaxHeight(max(height, 1)).MaxWidth(width).Render(block)
	return m.zones.Mark(paneZone(v.Handle), block)
}

func (m Model) renderStatus() string {
	switch {
	case m.commandMode:
		return m.commandInput.View()
	case m.errorMessage != "":
		return util.TruncateANSI(styles.ErrorMsg.Render(m.errorMessage), max(m.width, 4))
	case m.infoMessage != "":
		return util.TruncateANSI(styles.InfoMsg.Render(m.infoMessage), max(m.width, 4))
	}
	return ""
}

func (m Model) renderHelpPanel(width int) string {
	var b strings.Builder
	b.WriteString(styles.Header.Render("Commands"))
	b.WriteString("\n\n")
	for _, line := range command.HelpLines() {
		b.WriteString(styles.HelpKey.Render(fmt.Sprintf("%-24s", line[0])))
		b.WriteString(styles.HelpBar.Render(line[1]))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.Header.Render("Keys"))
	b.WriteString("\n\n")
	h := m.help
	h.Width = width
	b.WriteString(h.FullHelpView(m.keys.FullHelp()))
	b.WriteString("\n\n")
	b.WriteString(styles.Muted.Render("In the editor: ctrl+s runs, tab indents, esc leaves."))
	return b.String()
}

func (m Model) renderRunnersPanel() string {
	active := m.ctrl.IDs()
	var b strings.Builder
	b.WriteString(styles.Header.Render("Runners"))
	b.WriteString("\n\n")
	for _, e := range runner.Catalog() {
		mark := "  "
		if active.Contains(e.ID) {
			mark = styles.Secondary.Render("● ")
		}
		b.WriteString(mark)
		b.WriteString(styles.HelpKey.Render(fmt.Sprintf("%-14s", e.ID)))
		b.WriteString(styles.HelpBar.Render(e.Title))
		b.WriteString("\n")
	}
	return b.String()
}
