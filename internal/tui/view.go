package tui

import (
	"fmt"
	"strings"

	"github.com/FILM6912/Agent-UI-sub001/internal/app"

	"github.com/charmbracelet/lipgloss"
)

func (m *Model) View() string {
	if !m.ready {
		return "…"
	}
	if m.view == viewSessions {
		return m.renderSessionList()
	}
	top := m.renderTopBar()
	transcript := m.chatVP.View()
	input := m.renderInput()
	footer := m.renderFooter()
	return lipgloss.JoinVertical(lipgloss.Left, top, transcript, input, footer)
}

func (m *Model) renderTopBar() string {
	title := "agent-ui"
	if sess, ok := m.registry.Get(m.controller.ActiveSessionID()); ok {
		title = sess.Title
	}
	left := m.theme.TopBarTitle.Render(title)
	status := m.statusText
	if m.running {
		status = m.theme.Spinner.Render(spinnerFrames[m.spinnerPos]) + " " + status
	}
	right := m.theme.TopBarMeta.Render(status)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.TopBar.Render(" " + left + strings.Repeat(" ", gap) + right)
}

func (m *Model) renderInput() string {
	box := m.theme.InputBoxF
	if m.running {
		box = m.theme.InputBox
	}
	return box.Width(m.width - 2).Render(m.input.View())
}

func (m *Model) renderFooter() string {
	hints := "enter send · ctrl+r regenerate · ctrl+e edit · ctrl+←/→ versions · ctrl+↑/↓ history · ctrl+l sessions · ctrl+n new · ctrl+q quit"
	return m.theme.Footer.Render(" " + hints)
}

// refreshTranscript rebuilds the viewport content from the active session.
func (m *Model) refreshTranscript(follow bool) {
	if !m.ready {
		return
	}
	sess, ok := m.registry.Get(m.controller.ActiveSessionID())
	if !ok {
		m.chatVP.SetContent(m.theme.RoleSys.Render("No active session. Type a message to start one."))
		return
	}

	width := m.chatVP.Width
	var b strings.Builder
	for i, msg := range sess.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n")
	}
	if len(sess.Messages) == 0 {
		b.WriteString(m.theme.RoleSys.Render("Empty chat. Say something."))
	}
	m.chatVP.SetContent(b.String())
	if follow {
		m.chatVP.GotoBottom()
	}
}

func (m *Model) renderMessage(msg app.Message, width int) string {
	var b strings.Builder

	label := "You"
	style := m.theme.RoleYou
	if msg.Role == app.RoleAssistant {
		label = "AI"
		style = m.theme.RoleAI
	}
	b.WriteString(style.Render(label))
	if len(msg.Versions) > 1 {
		b.WriteString(" ")
		b.WriteString(m.theme.VersionBadge.Render(
			fmt.Sprintf("⟨%d/%d⟩", msg.CurrentVersionIndex+1, len(msg.Versions))))
	}
	b.WriteString("\n")

	for _, step := range msg.Steps {
		b.WriteString(m.theme.StepBadge.Render(fmt.Sprintf("  %s %s", stepGlyph(step.Kind), step.Title)))
		b.WriteString("\n")
	}

	content := msg.Content
	if msg.Role == app.RoleAssistant {
		content = m.markdown.Render(content, width)
	}
	b.WriteString(content)

	for _, att := range msg.Attachments {
		b.WriteString("\n")
		b.WriteString(m.theme.StepBadge.Render("  📎 " + att.Name))
	}
	if len(msg.Suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range msg.Suggestions {
			b.WriteString(m.theme.Suggestion.Render("  ↳ " + s))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) renderSessionList() string {
	var b strings.Builder
	b.WriteString(m.theme.TopBarTitle.Render(" Sessions"))
	b.WriteString("\n\n")
	if len(m.sessions) == 0 {
		b.WriteString(m.theme.RoleSys.Render("  No sessions. Press n to start one."))
		b.WriteString("\n")
	}
	for i, sess := range m.sessions {
		line := fmt.Sprintf("%s  (%d messages, %s)",
			sess.Title,
			len(sess.Messages),
			sess.UpdatedAt.Local().Format("Jan 2 15:04"),
		)
		if i == m.listSel {
			b.WriteString(m.theme.ListSel.Render("▸ " + line))
		} else {
			b.WriteString(m.theme.ListItem.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Footer.Render(" enter open · n new · d delete · esc back · q quit"))
	return b.String()
}

func stepGlyph(kind string) string {
	switch kind {
	case "think":
		return "◦"
	case "tool":
		return "⚙"
	case "edit":
		return "✎"
	default:
		return "·"
	}
}
