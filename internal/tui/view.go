package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chatd/internal/orchestrator"
	"chatd/pkg/types"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	thinkStyle     = lipgloss.NewStyle().Faint(true).Italic(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

// layout sizes the transcript to what the header and footer leave.
func (m *Model) layout() {
	footer := lipgloss.Height(m.footerView())
	h := max(m.height-footer-1, 3)
	m.vp.Width = m.width
	m.vp.Height = h
	m.input.Width = max(m.width-4, 10)
	m.vp.SetContent(m.transcript())
	if m.follow {
		m.vp.GotoBottom()
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), m.vp.View(), m.footerView())
}

func (m Model) headerView() string {
	name := "no model"
	if d, ok := m.catalog.Lookup(m.snap.Model); ok {
		name = d.Name
	}
	return headerStyle.Render("chatd · " + name)
}

func (m Model) transcript() string {
	width := max(m.width-2, 20)
	body := lipgloss.NewStyle().Width(width)
	reasoning := false
	if d, ok := m.catalog.Lookup(m.snap.Model); ok {
		reasoning = d.HasReasoningBlocks
	}
	var b strings.Builder
	for i, msg := range m.snap.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case types.RoleUser:
			b.WriteString(userStyle.Render(fmt.Sprintf("[%d] You", i+1)))
		default:
			b.WriteString(assistantStyle.Render(fmt.Sprintf("[%d] Assistant", i+1)))
		}
		b.WriteString("\n")
		content := msg.Content
		if msg.Role == types.RoleAssistant && reasoning {
			think, answer := splitReasoning(content)
			if think != "" {
				b.WriteString(thinkStyle.Width(width).Render(think))
				b.WriteString("\n")
			}
			content = answer
		}
		b.WriteString(body.Render(content))
	}
	if q := m.snap.QueuedMessage; q != nil {
		b.WriteString("\n\n" + statusStyle.Render("waiting for the model to load…"))
	}
	return b.String()
}

// splitReasoning separates a leading <think> block from the answer. An
// unterminated block is all reasoning.
func splitReasoning(s string) (think, answer string) {
	const openTag, closeTag = "<think>", "</think>"
	t := strings.TrimLeft(s, " \n")
	if !strings.HasPrefix(t, openTag) {
		return "", s
	}
	t = t[len(openTag):]
	if i := strings.Index(t, closeTag); i >= 0 {
		return strings.TrimSpace(t[:i]), strings.TrimLeft(t[i+len(closeTag):], " \n")
	}
	return strings.TrimSpace(t), ""
}

func (m Model) footerView() string {
	var lines []string
	for _, p := range m.snap.Progress {
		lines = append(lines, fmt.Sprintf("%s %s", m.bar.ViewAs(p.Progress/100), p.File))
	}
	if s := m.statusLine(); s != "" {
		lines = append(lines, s)
	}
	if m.snap.Error != "" {
		lines = append(lines, errorStyle.Render("error: "+m.snap.Error))
	}
	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	lines = append(lines, m.input.View())
	return strings.Join(lines, "\n")
}

func (m Model) statusLine() string {
	s := m.snap
	switch {
	case s.Status == orchestrator.StatusError:
		return errorStyle.Render("local execution unavailable")
	case s.Status == orchestrator.StatusLoading:
		msg := s.LoadingMessage
		if msg == "" {
			msg = "Loading model..."
		}
		return m.spin.View() + " " + statusStyle.Render(msg)
	}
	parts := []string{s.Status.String()}
	if s.IsRunning {
		parts[0] = m.spin.View() + " generating (esc to stop)"
	}
	if s.Metrics.NumTokens > 0 {
		parts = append(parts, fmt.Sprintf("%.1f tok/s", s.Metrics.TPS), fmt.Sprintf("%d tokens", s.Metrics.NumTokens))
		if s.ContextSize > 0 {
			parts = append(parts, fmt.Sprintf("context %d/%d", s.Metrics.ContextTokens, s.ContextSize))
		}
	}
	return statusStyle.Render(strings.Join(parts, " · "))
}
