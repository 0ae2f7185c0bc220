package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FILM6912/Agent-UI-sub001/internal/app"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type view int

const (
	viewChat view = iota
	viewSessions
)

type refreshMsg struct{ sessionID string }
type navChatMsg struct{ sessionID string }
type navListMsg struct{}
type requestDoneMsg struct{ err error }
type spinMsg struct{}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type keyMap struct {
	Send        key.Binding
	Quit        key.Binding
	Cancel      key.Binding
	Sessions    key.Binding
	NewSession  key.Binding
	Regenerate  key.Binding
	Edit        key.Binding
	PrevVersion key.Binding
	NextVersion key.Binding
	Delete      key.Binding
	HistPrev    key.Binding
	HistNext    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Send:        key.NewBinding(key.WithKeys("enter")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+q")),
		Cancel:      key.NewBinding(key.WithKeys("ctrl+c")),
		Sessions:    key.NewBinding(key.WithKeys("ctrl+l")),
		NewSession:  key.NewBinding(key.WithKeys("ctrl+n")),
		Regenerate:  key.NewBinding(key.WithKeys("ctrl+r")),
		Edit:        key.NewBinding(key.WithKeys("ctrl+e")),
		PrevVersion: key.NewBinding(key.WithKeys("ctrl+left")),
		NextVersion: key.NewBinding(key.WithKeys("ctrl+right")),
		Delete:      key.NewBinding(key.WithKeys("ctrl+d")),
		HistPrev:    key.NewBinding(key.WithKeys("ctrl+up")),
		HistNext:    key.NewBinding(key.WithKeys("ctrl+down")),
	}
}

// Model is the interactive chat front-end. It reads all conversation state
// from the registry and issues every mutation through the controller; the
// streaming engine's registry notifications arrive as refreshMsg values.
type Model struct {
	controller *app.Controller
	registry   *app.SessionRegistry

	theme    Theme
	keys     keyMap
	markdown *MarkdownRenderer

	width  int
	height int
	ready  bool
	view   view

	input  textarea.Model
	chatVP viewport.Model

	sessions []app.ChatSession
	listSel  int

	running    bool
	statusText string
	spinnerPos int
	cancel     context.CancelFunc

	// editingID holds the user message being edited; the next Enter runs
	// Edit instead of Send.
	editingID string

	// pending attachments queued via /attach for the next send.
	pending []app.Attachment

	// prompt recall, Ctrl+Up/Ctrl+Down. histPos == len(history) means the
	// live draft.
	storeRoot string
	history   []string
	histPos   int
	histDraft string

	events chan tea.Msg
}

func NewModel(controller *app.Controller, registry *app.SessionRegistry, events chan tea.Msg, storeRoot string) *Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message. Enter sends, Ctrl+L lists sessions."
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	history, err := app.LoadPromptHistory(storeRoot)
	if err != nil {
		history = nil
	}

	t := NewTheme()
	return &Model{
		controller: controller,
		registry:   registry,
		theme:      t,
		keys:       newKeyMap(),
		markdown:   NewMarkdownRenderer(t),
		width:      100,
		height:     30,
		view:       viewChat,
		input:      ta,
		statusText: "Ready",
		storeRoot:  storeRoot,
		history:    history,
		histPos:    len(history),
		events:     events,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitEvent())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chatH := m.height - 7
		if chatH < 3 {
			chatH = 3
		}
		if !m.ready {
			m.chatVP = viewport.New(m.width-2, chatH)
			m.ready = true
		} else {
			m.chatVP.Width = m.width - 2
			m.chatVP.Height = chatH
		}
		m.input.SetWidth(maxInt(10, m.width-6))
		m.refreshTranscript(false)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case refreshMsg:
		if m.view == viewSessions {
			m.reloadSessions()
		} else if msg.sessionID == "" || msg.sessionID == m.controller.ActiveSessionID() {
			m.refreshTranscript(true)
		}
		return m, m.waitEvent()

	case navChatMsg:
		m.view = viewChat
		m.refreshTranscript(true)
		return m, m.waitEvent()

	case navListMsg:
		m.view = viewSessions
		m.reloadSessions()
		return m, m.waitEvent()

	case requestDoneMsg:
		m.running = false
		m.cancel = nil
		m.statusText = "Ready"
		if msg.err != nil {
			m.statusText = userFacingError(msg.err)
		}
		m.refreshTranscript(true)
		return m, m.waitEvent()

	case spinMsg:
		m.spinnerPos = (m.spinnerPos + 1) % len(spinnerFrames)
		if m.running {
			return m, m.spinTick()
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.chatVP, cmd = m.chatVP.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == viewSessions {
		return m.handleListKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.running && m.cancel != nil {
			m.statusText = "Cancelling…"
			m.cancel()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Sessions):
		m.view = viewSessions
		m.reloadSessions()
		return m, nil

	case key.Matches(msg, m.keys.NewSession):
		if m.running {
			return m, nil
		}
		m.controller.SetActiveSession("")
		m.editingID = ""
		m.refreshTranscript(true)
		return m, nil

	case key.Matches(msg, m.keys.Regenerate):
		return m, m.startRegenerate()

	case key.Matches(msg, m.keys.Edit):
		m.beginEdit()
		return m, nil

	case key.Matches(msg, m.keys.PrevVersion):
		m.stepVersion(-1)
		return m, nil

	case key.Matches(msg, m.keys.NextVersion):
		m.stepVersion(+1)
		return m, nil

	case key.Matches(msg, m.keys.HistPrev):
		m.recallHistory(-1)
		return m, nil

	case key.Matches(msg, m.keys.HistNext):
		m.recallHistory(+1)
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m, m.onEnter()

	case msg.Type == tea.KeyPgUp:
		m.chatVP.ViewUp()
		return m, nil
	case msg.Type == tea.KeyPgDown:
		m.chatVP.ViewDown()
		return m, nil
	case msg.Type == tea.KeyUp:
		m.chatVP.LineUp(1)
		return m, nil
	case msg.Type == tea.KeyDown:
		m.chatVP.LineDown(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), msg.String() == "q":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Sessions), msg.String() == "esc":
		if m.controller.ActiveSessionID() != "" {
			m.view = viewChat
			m.refreshTranscript(true)
		}
		return m, nil
	case msg.String() == "up", msg.String() == "k":
		if m.listSel > 0 {
			m.listSel--
		}
		return m, nil
	case msg.String() == "down", msg.String() == "j":
		if m.listSel < len(m.sessions)-1 {
			m.listSel++
		}
		return m, nil
	case msg.String() == "n", key.Matches(msg, m.keys.NewSession):
		m.controller.SetActiveSession("")
		m.view = viewChat
		m.editingID = ""
		m.refreshTranscript(true)
		return m, nil
	case msg.String() == "d", key.Matches(msg, m.keys.Delete):
		if m.listSel < len(m.sessions) {
			m.controller.DeleteSession(m.sessions[m.listSel].ID)
			m.reloadSessions()
		}
		return m, nil
	case key.Matches(msg, m.keys.Send):
		if m.listSel < len(m.sessions) {
			m.controller.SetActiveSession(m.sessions[m.listSel].ID)
			m.view = viewChat
			m.refreshTranscript(true)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) onEnter() tea.Cmd {
	val := strings.TrimSpace(m.input.Value())
	if val == "" {
		return nil
	}
	if m.handleSlashCommand(val) {
		m.input.Reset()
		return nil
	}
	if m.running {
		m.statusText = "A request is already running (Ctrl+C cancels)."
		return nil
	}
	m.input.Reset()
	m.recordPrompt(val)

	editID := m.editingID
	m.editingID = ""
	atts := m.takePendingAttachments()

	m.running = true
	m.statusText = "Generating…"
	m.spinnerPos = 0

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go func(events chan tea.Msg) {
		var err error
		if editID != "" {
			err = m.controller.Edit(ctx, editID, val)
		} else {
			err = m.controller.Send(ctx, val, atts)
		}
		events <- requestDoneMsg{err: err}
	}(m.events)

	return m.spinTick()
}

func (m *Model) startRegenerate() tea.Cmd {
	if m.running {
		return nil
	}
	target := m.lastMessageID(app.RoleAssistant)
	if target == "" {
		return nil
	}

	m.running = true
	m.statusText = "Regenerating…"
	m.spinnerPos = 0

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go func(events chan tea.Msg) {
		events <- requestDoneMsg{err: m.controller.Regenerate(ctx, target)}
	}(m.events)

	return m.spinTick()
}

func (m *Model) beginEdit() {
	if m.running {
		return
	}
	id := m.lastMessageID(app.RoleUser)
	if id == "" {
		return
	}
	sess, ok := m.registry.Get(m.controller.ActiveSessionID())
	if !ok {
		return
	}
	for _, msg := range sess.Messages {
		if msg.ID == id {
			m.editingID = id
			m.input.SetValue(msg.Content)
			m.statusText = "Editing last message (Enter resubmits)."
			return
		}
	}
}

// stepVersion moves the last user message's version pointer; the paired
// assistant reply follows it through the registry's pointer rule.
func (m *Model) stepVersion(dir int) {
	if m.running {
		return
	}
	sess, ok := m.registry.Get(m.controller.ActiveSessionID())
	if !ok {
		return
	}
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		msg := sess.Messages[i]
		if msg.Role != app.RoleUser || len(msg.Versions) < 2 {
			continue
		}
		next := msg.CurrentVersionIndex + dir
		if next < 0 || next >= len(msg.Versions) {
			return
		}
		m.controller.ChangeVersion(msg.ID, next)
		m.refreshTranscript(false)
		return
	}
}

// recallHistory walks the stored prompts into the input. Moving past the
// newest entry restores whatever was being typed.
func (m *Model) recallHistory(dir int) {
	if len(m.history) == 0 {
		return
	}
	if m.histPos == len(m.history) {
		m.histDraft = m.input.Value()
	}
	next := m.histPos + dir
	if next < 0 || next > len(m.history) {
		return
	}
	m.histPos = next
	if next == len(m.history) {
		m.input.SetValue(m.histDraft)
		return
	}
	m.input.SetValue(m.history[next])
}

func (m *Model) recordPrompt(val string) {
	if n := len(m.history); n > 0 && m.history[n-1] == val {
		m.histPos = len(m.history)
		return
	}
	m.history = append(m.history, val)
	m.histPos = len(m.history)
	m.histDraft = ""
	if err := app.SavePromptHistory(m.storeRoot, m.history); err != nil {
		// Recall still works for this run; only persistence is lost.
		m.statusText = "Ready (prompt history not saved)"
	}
}

func (m *Model) lastMessageID(role string) string {
	sess, ok := m.registry.Get(m.controller.ActiveSessionID())
	if !ok {
		return ""
	}
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].Role == role {
			return sess.Messages[i].ID
		}
	}
	return ""
}

func (m *Model) reloadSessions() {
	m.sessions = m.registry.List()
	if m.listSel >= len(m.sessions) {
		m.listSel = maxInt(0, len(m.sessions)-1)
	}
}

func (m *Model) waitEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return <-events
	}
}

func (m *Model) spinTick() tea.Cmd {
	return tea.Tick(90*time.Millisecond, func(_ time.Time) tea.Msg { return spinMsg{} })
}

func userFacingError(err error) string {
	return fmt.Sprintf("✗ %v", err)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
