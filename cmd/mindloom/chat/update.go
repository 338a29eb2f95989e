package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"mindloom/internal/agent"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderer.SetWidth(msg.Width - 4)
		headerHeight := 1
		footerHeight := m.textarea.Height() + 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.textarea.SetWidth(msg.Width - 2)
		if m.picker != nil {
			m.picker.SetSize(msg.Width, msg.Height-2)
		}
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.picker != nil {
			return m.updatePicker(msg)
		}
		switch msg.Type {
		case tea.KeyEsc:
			if m.wizard != nil {
				m.wizard = nil
				m.notice = "agent creation cancelled"
				return m, nil
			}
			m.openPicker()
			return m, nil
		case tea.KeyEnter:
			return m.handleSubmit()
		}

	case sessionChangedMsg:
		m.refreshViewport()
		return m, m.waitForChange()

	case agentsLoadedMsg:
		m.setResult("", msg.err)
		m.refreshViewport()
		return m, nil

	case switchedMsg:
		if msg.err != nil {
			m.setResult("", msg.err)
		}
		m.refreshViewport()
		return m, nil

	case replyMsg:
		m.setResult("", msg.err)
		m.refreshViewport()
		return m, nil

	case clearedMsg:
		m.setResult("chat cleared", msg.err)
		m.refreshViewport()
		return m, nil

	case agentCreatedMsg:
		if msg.err != nil {
			m.setResult("", msg.err)
		} else {
			m.setResult("created agent "+msg.agent.Name, nil)
		}
		m.refreshViewport()
		return m, nil

	case agentDeletedMsg:
		m.setResult("agent deleted", msg.err)
		m.refreshViewport()
		return m, nil

	case statusMsg:
		if msg.err != nil {
			m.setResult("", msg.err)
		} else {
			m.notice = renderStatus(m.styles, msg.status, msg.info)
			m.errMsg = ""
		}
		return m, nil

	case docAddedMsg:
		if msg.err != nil {
			m.setResult("", msg.err)
		} else {
			m.setResult("indexed "+msg.doc.Name, nil)
		}
		return m, nil

	case transferMsg:
		m.setResult(msg.notice, msg.err)
		m.refreshViewport()
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.setResult("", msg.err)
		} else {
			m.setResult("code copied to clipboard", nil)
		}
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd
	}

	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(taCmd, vpCmd)
}

// handleSubmit routes the input line: wizard step, slash command, or
// chat message.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textarea.Value())
	m.textarea.Reset()

	if m.wizard != nil {
		return m.updateWizard(text)
	}
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		return m.execCommand(text)
	}

	snap := m.ctrl.Snapshot()
	if snap.Current == nil {
		m.setResult("", errNoActiveAgent)
		return m, nil
	}
	if snap.Sending {
		return m, nil
	}
	return m, tea.Batch(m.sendCmd(text), m.spinner.Tick)
}

// setResult updates the banner line from an operation result.
func (m *Model) setResult(notice string, err error) {
	if err != nil {
		m.errMsg = err.Error()
		m.notice = ""
		m.log.Error("%s", err)
		return
	}
	m.errMsg = ""
	m.notice = notice
}

// refreshViewport rebuilds the history view from the session snapshot.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	snap := m.ctrl.Snapshot()
	var sb strings.Builder
	for _, msg := range snap.Messages {
		name := ""
		var latency int64
		if snap.Current != nil {
			name = snap.Current.Name
		}
		if msg.Metadata != nil {
			latency = msg.Metadata.ResponseTimeMs
		}
		sb.WriteString(m.renderer.RenderMessage(msg.Content, string(msg.Sender), name, latency))
		sb.WriteString("\n\n")
	}
	if snap.Sending && snap.Current != nil {
		sb.WriteString(m.renderer.TypingIndicator(snap.Current.Name))
		sb.WriteString("\n")
	}
	if len(snap.Messages) == 0 && !snap.Sending {
		sb.WriteString(m.emptyState(snap.Current))
	}

	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

// emptyState greets an empty history with the agent's introduction.
func (m Model) emptyState(current *agent.Agent) string {
	if current == nil {
		return m.styles.Muted.Render("No agent selected. Use /new to create one.")
	}
	intro := current.Specialization.Icon() + "  " + current.Specialization.Introduction(current.Name)
	return m.styles.Muted.Render(intro)
}
