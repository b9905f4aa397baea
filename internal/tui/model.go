// Package tui is the terminal front-end of a chat session.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"chatd/internal/orchestrator"
	"chatd/internal/registry"
)

// Controller is the subset of the orchestrator driven by user input.
type Controller interface {
	Submit(text string) error
	Interrupt()
	EditMessage(index int, content string) error
	SwitchModel(url string) error
	Reset() error
	CopyLast() error
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctrl    Controller
	catalog *registry.Catalog
	feed    *Feed

	input    textinput.Model
	vp       viewport.Model
	spin     spinner.Model
	bar      progress.Model
	width    int
	height   int
	ready    bool
	follow   bool
	snap     orchestrator.Snapshot
	notice   string
	quitting bool
}

func New(ctrl Controller, catalog *registry.Catalog, feed *Feed) Model {
	in := textinput.New()
	in.Placeholder = "Type a message, /help for commands"
	in.Prompt = "> "
	in.CharLimit = 0
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctrl:    ctrl,
		catalog: catalog,
		feed:    feed,
		input:   in,
		vp:      viewport.New(80, 20),
		spin:    sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		width:   80,
		height:  24,
		follow:  true,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spin.Tick}
	if m.feed != nil {
		cmds = append(cmds, m.feed.wait())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
	case feedMsg:
		if msg.snap != nil {
			m.snap = *msg.snap
		}
		if msg.reason != "" {
			m.notice = msg.reason + "\n" + m.modelList()
		}
		m.layout()
		cmds = append(cmds, m.feed.wait())
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.snap.IsRunning {
				m.ctrl.Interrupt()
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEsc:
			if m.snap.IsRunning {
				m.ctrl.Interrupt()
			}
			return m, nil
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			return m, m.submit(line)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyCtrlU, tea.KeyCtrlD:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			m.follow = m.vp.AtBottom()
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		m.follow = m.vp.AtBottom()
		cmds = append(cmds, cmd)
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) submit(line string) tea.Cmd {
	if name, args, ok := parseCommand(line); ok {
		h, found := commandHandlers[name]
		if !found {
			m.notice = fmt.Sprintf("unknown command /%s (try /help)", name)
			return nil
		}
		return h(m, args)
	}
	text := strings.TrimSpace(line)
	if text == "" {
		return nil
	}
	if err := m.ctrl.Submit(text); err != nil {
		if errors.Is(err, orchestrator.ErrNoModel) {
			m.notice = err.Error() + "\n" + m.modelList()
		} else {
			m.notice = err.Error()
		}
		return nil
	}
	m.notice = ""
	m.follow = true
	return nil
}

func (m Model) modelList() string {
	var b strings.Builder
	b.WriteString("available models:")
	for _, d := range m.catalog.Models() {
		mark := " "
		if d.URL == m.snap.Model {
			mark = "*"
		}
		fmt.Fprintf(&b, "\n %s %-24s %s", mark, d.ID, d.Description)
	}
	return b.String()
}
