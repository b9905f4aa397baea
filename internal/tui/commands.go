package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// commandHandler runs one slash command. args is the text after the name.
type commandHandler func(m *Model, args string) tea.Cmd

var commandHandlers map[string]commandHandler

func init() {
	commandHandlers = map[string]commandHandler{
		"model":  handleModel,
		"m":      handleModel,
		"models": handleModels,
		"stop":   handleStop,
		"reset":  handleReset,
		"new":    handleReset,
		"edit":   handleEdit,
		"copy":   handleCopy,
		"help":   handleHelp,
		"?":      handleHelp,
		"quit":   handleQuit,
		"q":      handleQuit,
	}
}

// parseCommand splits "/name args". ok is false for plain chat input.
func parseCommand(line string) (name, args string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || len(line) == 1 {
		return "", "", false
	}
	name, args, _ = strings.Cut(line[1:], " ")
	return strings.ToLower(name), strings.TrimSpace(args), true
}

const helpText = "/model <id|url>  /models  /stop  /reset  /edit <n> <text>  /copy  /quit"

func handleHelp(m *Model, _ string) tea.Cmd {
	m.notice = helpText
	return nil
}

func handleQuit(m *Model, _ string) tea.Cmd {
	if m.snap.IsRunning {
		m.ctrl.Interrupt()
	}
	m.quitting = true
	return tea.Quit
}

func handleModels(m *Model, _ string) tea.Cmd {
	m.notice = m.modelList()
	return nil
}

func handleModel(m *Model, args string) tea.Cmd {
	if args == "" {
		m.notice = "usage: /model <id|url>\n" + m.modelList()
		return nil
	}
	d, ok := m.catalog.Resolve(args)
	if !ok {
		m.notice = fmt.Sprintf("unknown model %q", args)
		return nil
	}
	if err := m.ctrl.SwitchModel(d.URL); err != nil {
		m.notice = err.Error()
		return nil
	}
	m.notice = "switching to " + d.Name
	return nil
}

func handleStop(m *Model, _ string) tea.Cmd {
	m.ctrl.Interrupt()
	return nil
}

func handleReset(m *Model, _ string) tea.Cmd {
	if err := m.ctrl.Reset(); err != nil {
		m.notice = err.Error()
		return nil
	}
	m.notice = "new conversation"
	return nil
}

// handleEdit takes a 1-based message number as shown in the transcript.
func handleEdit(m *Model, args string) tea.Cmd {
	num, text, _ := strings.Cut(args, " ")
	n, err := strconv.Atoi(num)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		m.notice = "usage: /edit <n> <text>"
		return nil
	}
	if err := m.ctrl.EditMessage(n-1, text); err != nil {
		m.notice = err.Error()
		return nil
	}
	m.notice = ""
	return nil
}

func handleCopy(m *Model, _ string) tea.Cmd {
	if err := m.ctrl.CopyLast(); err != nil {
		m.notice = "copy: " + err.Error()
		return nil
	}
	m.notice = "copied to clipboard"
	return nil
}
