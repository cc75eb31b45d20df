package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/event"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/pane"
	"github.com/Iron-Ham/pyexpl/internal/playground"
	"github.com/Iron-Ham/pyexpl/internal/runner"
	"github.com/Iron-Ham/pyexpl/internal/tui/command"
	"github.com/Iron-Ham/pyexpl/internal/tui/styles"
)

// Chrome lines outside the editor and output columns: header, status and
// help.
const chromeLines = 3

// focus is the part of the screen that receives keys.
type focus int

const (
	focusEditor focus = iota
	focusPanes
)

// Model holds the TUI application state
type Model struct {
	ctx       context.Context
	ctrl      *playground.Controller
	commands  *command.Handler
	logger    *logging.Logger
	startTime time.Time

	// Collaborators shared with the Controller
	buffer   *editorBuffer
	splitter *paneSplitter
	notices  *noticeSink
	zones    *zone.Manager

	// Widgets
	editor       textarea.Model
	commandInput textinput.Model
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
	viewports    map[runner.ID]*viewport.Model
	shown        map[runner.ID]string

	// UI state
	width         int
	height        int
	editorPercent int
	focus         focus
	focusedPane   int
	commandMode   bool
	spinning      bool
	shared        bool
	showHelp      bool
	showRunners   bool
	quitting      bool
	infoMessage   string
	errorMessage  string
}

type modelConfig struct {
	ctx           context.Context
	ctrl          *playground.Controller
	logger        *logging.Logger
	buffer        *editorBuffer
	splitter      *paneSplitter
	notices       *noticeSink
	zones         *zone.Manager
	code          string
	shared        bool
	editorPercent int
	width         int
	height        int
}

func newModel(cfg modelConfig) Model {
	ed := textarea.New()
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.MaxHeight = 0
	ed.Placeholder = "# write some Python, then ctrl+s to run"
	ed.SetValue(cfg.code)
	ed.Focus()
	cfg.buffer.set(ed.Value())

	ci := textinput.New()
	ci.Prompt = ":"
	ci.PromptStyle = styles.CommandPrompt

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styles.Primary

	m := Model{
		ctx:           cfg.ctx,
		ctrl:          cfg.ctrl,
		commands:      command.New(),
		logger:        cfg.logger,
		startTime:     time.Now(),
		buffer:        cfg.buffer,
		splitter:      cfg.splitter,
		notices:       cfg.notices,
		zones:         cfg.zones,
		editor:        ed,
		commandInput:  ci,
		spinner:       sp,
		help:          help.New(),
		keys:          defaultKeyMap(),
		viewports:     make(map[runner.ID]*viewport.Model),
		shown:         make(map[runner.ID]string),
		editorPercent: cfg.editorPercent,
		shared:        cfg.shared,
	}
	if m.editorPercent <= 0 || m.editorPercent >= 100 {
		m.editorPercent = 50
	}
	m.resize(cfg.width, cfg.height)
	m.syncPanes()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.syncPanes()

	case completionMsg:
		m.ctrl.Reconcile(msg.completion)
		m.syncPanes()

	case command.ShareResultMsg:
		switch {
		case msg.Err != nil && errors.IsUserFacing(msg.Err):
			m.setError("Share failed: " + msg.Err.Error())
		case msg.Err != nil:
			m.logger.Error("share failed", "error", msg.Err)
			m.setError("Share failed (see log for details)")
		case msg.Copied:
			m.setInfo("Shared (copied to clipboard): " + msg.URL)
		default:
			m.setInfo("Shared: " + msg.URL)
		}
		// The Controller's notice repeats what the result already says.
		m.notices.drain()
		return m, nil

	case spinner.TickMsg:
		if !m.anyPending() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeypress(msg))

	default:
		if m.focus == focusEditor && !m.commandMode {
			var cmd tea.Cmd
			m.editor, cmd = m.editor.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.applyNotices()
	cmds = append(cmds, m.ensureSpinner())
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeypress(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}
	if m.commandMode {
		return m.handleCommandInput(msg)
	}

	// Any key dismisses an overlay.
	if m.showHelp || m.showRunners {
		m.showHelp = false
		m.showRunners = false
		return nil
	}

	if m.focus == focusEditor {
		return m.handleEditorKey(msg)
	}
	return m.handlePaneKey(msg)
}

func (m *Model) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.String() == "ctrl+s":
		m.run()
		return nil
	case key.Matches(msg, m.keys.Leave):
		m.focusPanesView()
		return nil
	case msg.Type == tea.KeyTab:
		m.editor.InsertString("    ")
		m.editorChanged()
		return nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.editorChanged()
	return cmd
}

func (m *Model) handlePaneKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Run):
		m.run()
	case key.Matches(msg, m.keys.Edit):
		m.focusEditorView()
		return textarea.Blink
	case key.Matches(msg, m.keys.NextPane):
		m.cyclePane(1)
	case key.Matches(msg, m.keys.PrevPane):
		m.cyclePane(-1)
	case key.Matches(msg, m.keys.Up):
		if vp := m.focusedViewport(); vp != nil {
			vp.ScrollUp(1)
		}
	case key.Matches(msg, m.keys.Down):
		if vp := m.focusedViewport(); vp != nil {
			vp.ScrollDown(1)
		}
	case key.Matches(msg, m.keys.PageUp):
		if vp := m.focusedViewport(); vp != nil {
			vp.HalfPageUp()
		}
	case key.Matches(msg, m.keys.PageDown):
		if vp := m.focusedViewport(); vp != nil {
			vp.HalfPageDown()
		}
	case key.Matches(msg, m.keys.ClosePane):
		return m.execute("close")
	case key.Matches(msg, m.keys.Command):
		m.commandMode = true
		m.commandInput.SetValue("")
		return m.commandInput.Focus()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	}
	return nil
}

func (m *Model) handleCommandInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.commandMode = false
		m.commandInput.Blur()
		return nil
	case tea.KeyEnter:
		line := m.commandInput.Value()
		m.commandMode = false
		m.commandInput.Blur()
		return m.execute(line)
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	return cmd
}

// execute runs a command line and applies its Result.
func (m *Model) execute(line string) tea.Cmd {
	res := m.commands.Execute(line, m)
	m.syncPanes()

	if res.ErrorMessage != "" {
		m.setError(res.ErrorMessage)
	} else if res.InfoMessage != "" {
		m.setInfo(res.InfoMessage)
	}
	if res.ShowHelp != nil {
		m.showHelp = *res.ShowHelp
	}
	if res.ShowRunners != nil {
		m.showRunners = *res.ShowRunners
	}
	if res.Quitting != nil {
		m.quitting = *res.Quitting
	}
	return res.TeaCmd
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	for i, v := range m.ctrl.Panes() {
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			if m.zones.Get(closeZone(v.Handle)).InBounds(msg) {
				m.ctrl.Remove(m.ctx, v.ID)
				m.syncPanes()
				return nil
			}
			if m.zones.Get(paneZone(v.Handle)).InBounds(msg) {
				m.focusPanesView()
				m.focusedPane = i
				return nil
			}
		}
		if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
			if m.zones.Get(paneZone(v.Handle)).InBounds(msg) {
				if vp := m.viewports[v.ID]; vp != nil {
					if msg.Button == tea.MouseButtonWheelUp {
						vp.ScrollUp(3)
					} else {
						vp.ScrollDown(3)
					}
				}
				return nil
			}
		}
	}

	if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft &&
		m.zones.Get(editorZone).InBounds(msg) {
		m.focusEditorView()
		return textarea.Blink
	}
	return nil
}

func (m *Model) run() {
	issued := m.ctrl.Run(m.ctx)
	if len(issued) == 0 {
		m.setError("No runners open (add one with :add <runner>)")
	} else {
		m.clearMessages()
	}
	m.syncPanes()
}

func (m *Model) quit() tea.Cmd {
	return m.execute("quit")
}

// editorChanged writes the editor text through when it changed.
func (m *Model) editorChanged() {
	text := m.editor.Value()
	if m.buffer.set(text) {
		m.ctrl.CodeChanged(m.ctx, text)
	}
}

func (m *Model) focusEditorView() {
	m.focus = focusEditor
	m.editor.Focus()
}

func (m *Model) focusPanesView() {
	m.focus = focusPanes
	m.editor.Blur()
}

func (m *Model) cyclePane(delta int) {
	n := len(m.viewports)
	if n == 0 {
		return
	}
	m.focusedPane = ((m.focusedPane+delta)%n + n) % n
}

func (m *Model) focusedViewport() *viewport.Model {
	id := m.FocusedRunner()
	if id == "" {
		return nil
	}
	return m.viewports[id]
}

func (m *Model) anyPending() bool {
	for _, v := range m.ctrl.Panes() {
		if v.State == pane.Pending || v.InFlight > 0 {
			return true
		}
	}
	return false
}

// ensureSpinner starts the spinner when a pane is waiting and it is not
// already ticking.
func (m *Model) ensureSpinner() tea.Cmd {
	if m.spinning || !m.anyPending() {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// applyNotices shows the newest Controller notice in the status line.
func (m *Model) applyNotices() {
	for _, n := range m.notices.drain() {
		if n.Level == event.NoticeError || n.Level == event.NoticeWarning {
			m.setError(n.Message)
		} else {
			m.setInfo(n.Message)
		}
	}
}

func (m *Model) setInfo(msg string) {
	m.infoMessage = msg
	m.errorMessage = ""
}

func (m *Model) setError(msg string) {
	m.errorMessage = msg
	m.infoMessage = ""
}

func (m *Model) clearMessages() {
	m.infoMessage = ""
	m.errorMessage = ""
}

// resize recomputes widget sizes for a width x height terminal.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width

	body := m.bodyHeight()
	m.editor.SetWidth(max(m.editorWidth()-2, 1))
	m.editor.SetHeight(max(body-2, 1))
	m.commandInput.Width = max(width-2, 1)
	m.splitter.SetHeight(body)
}

func (m Model) bodyHeight() int {
	return max(m.height-chromeLines, 1)
}

func (m Model) editorWidth() int {
	return m.width * m.editorPercent / 100
}

func (m Model) outputWidth() int {
	return max(m.width-m.editorWidth(), 1)
}

// syncPanes brings the viewports in line with the Controller's panes: new
// panes get a viewport, removed panes lose theirs, and changed output is
// pushed in without resetting the scroll position of unchanged panes.
func (m *Model) syncPanes() {
	views := m.ctrl.Panes()
	heights := m.splitter.Heights()
	width := m.outputWidth()

	live := make(map[runner.ID]bool, len(views))
	for _, v := range views {
		live[v.ID] = true
		vp := m.viewports[v.ID]
		if vp == nil {
			nv := viewport.New(width, 1)
			vp = &nv
			m.viewports[v.ID] = vp
		}
		vp.Width = width
		vp.Height = max(heights[v.Handle]-1, 1)

		if v.Output != m.shown[v.ID] {
			vp.SetContent(v.Output)
			vp.GotoTop()
			m.shown[v.ID] = v.Output
		}
	}
	for id := range m.viewports {
		if !live[id] {
			delete(m.viewports, id)
			delete(m.shown, id)
		}
	}

	if m.focusedPane >= len(views) {
		m.focusedPane = max(len(views)-1, 0)
	}
	if len(views) == 0 && m.focus == focusPanes {
		m.focusEditorView()
	}
}

// Command dependencies

// Context implements command.Dependencies.
func (m *Model) Context() context.Context { return m.ctx }

// GetController implements command.Dependencies.
func (m *Model) GetController() command.Controller {
	if m.ctrl == nil {
		return nil
	}
	return m.ctrl
}

// FocusedRunner implements command.Dependencies.
func (m *Model) FocusedRunner() runner.ID {
	if m.focus != focusPanes {
		return ""
	}
	ids := m.ctrl.IDs()
	if m.focusedPane < 0 || m.focusedPane >= len(ids) {
		return ""
	}
	return ids[m.focusedPane]
}

// GetLogger implements command.Dependencies.
func (m *Model) GetLogger() *logging.Logger { return m.logger }

// GetStartTime implements command.Dependencies.
func (m *Model) GetStartTime() time.Time { return m.startTime }
