// Package chat provides the interactive TUI chat interface for
// mindloom: agent selection, message history, the create-agent wizard,
// and slash commands.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"mindloom/cmd/mindloom/ui"
	"mindloom/internal/bridge"
	"mindloom/internal/config"
	"mindloom/internal/logging"
	"mindloom/internal/markdown"
	"mindloom/internal/session"
)

// backendTimeout bounds every backend round trip issued from the UI.
const backendTimeout = 5 * time.Minute

// Model is the top-level bubbletea model.
type Model struct {
	cfg     *config.Config
	ctrl    *session.Controller
	backend bridge.Backend

	styles   ui.Styles
	renderer *markdown.Renderer
	copies   *markdown.CopyTracker

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	wizard *wizardState
	picker *list.Model

	width  int
	height int
	ready  bool

	notice string
	errMsg string

	changes chan struct{}
	log     *logging.Logger
}

// New builds the chat model around an already-wired backend.
func New(cfg *config.Config, backend bridge.Backend) Model {
	styles := ui.NewStyles(themeFor(cfg))

	ta := textarea.New()
	ta.Placeholder = "Type a message, or /help for commands"
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	copies := markdown.NewCopyTracker()
	ctrl := session.New(backend)

	m := Model{
		cfg:      cfg,
		ctrl:     ctrl,
		backend:  backend,
		styles:   styles,
		renderer: markdown.NewRenderer(markdownStyles(styles), 80, copies),
		copies:   copies,
		textarea: ta,
		spinner:  sp,
		changes:  make(chan struct{}, 1),
		log:      logging.Get(logging.CategoryUI),
	}

	ctrl.OnChange(func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	})
	return m
}

// themeFor honors an explicit dark_mode setting, otherwise falls back
// to terminal detection.
func themeFor(cfg *config.Config) ui.Theme {
	if cfg.UI.DarkMode != nil {
		if *cfg.UI.DarkMode {
			return ui.DarkTheme()
		}
		return ui.LightTheme()
	}
	return ui.DetectTheme()
}

// markdownStyles maps the UI theme onto the message renderer.
func markdownStyles(s ui.Styles) markdown.StyleSet {
	set := markdown.DefaultStyles()
	set.Text = s.Body
	set.Muted = s.Muted
	set.Heading = s.Title
	set.AgentName = s.Bold.Foreground(s.Theme.Accent)
	return set
}

// Init kicks off the initial agent load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.loadAgentsCmd(),
		m.waitForChange(),
	)
}

// waitForChange re-arms the controller change listener.
func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return sessionChangedMsg{}
	}
}

func backendCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), backendTimeout)
}

func (m Model) loadAgentsCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := backendCtx()
		defer cancel()
		return agentsLoadedMsg{err: ctrl.LoadAgents(ctx)}
	}
}

func (m Model) switchCmd(target string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		snap := ctrl.Snapshot()
		for _, a := range snap.Agents {
			if a.ID == target || a.Name == target {
				ctx, cancel := backendCtx()
				defer cancel()
				return switchedMsg{err: ctrl.SwitchAgent(ctx, a)}
			}
		}
		return switchedMsg{err: errUnknownAgent(target)}
	}
}

func (m Model) sendCmd(text string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := backendCtx()
		defer cancel()
		return replyMsg{err: ctrl.SendMessage(ctx, text)}
	}
}

func (m Model) clearCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := backendCtx()
		defer cancel()
		return clearedMsg{err: ctrl.ClearChat(ctx)}
	}
}

func (m Model) statusCmd() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := backendCtx()
		defer cancel()
		status, err := backend.CheckServiceStatus(ctx)
		if err != nil {
			return statusMsg{err: err}
		}
		info, _ := backend.GetSystemInfo(ctx)
		return statusMsg{status: status, info: info}
	}
}

func (m Model) ingestCmd(path string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := backendCtx()
		defer cancel()
		doc, err := ingestFile(ctx, backend, path)
		return docAddedMsg{doc: doc, err: err}
	}
}

func (m Model) exportCmd(agentID, path string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := backendCtx()
		defer cancel()
		if err := backend.ExportAgentKnowledge(ctx, agentID, path); err != nil {
			return transferMsg{err: err}
		}
		return transferMsg{notice: "knowledge exported to " + path}
	}
}

func (m Model) importCmd(path string) tea.Cmd {
	ctrl := m.ctrl
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := backendCtx()
		defer cancel()
		a, err := backend.ImportAgentKnowledge(ctx, path)
		if err != nil {
			return transferMsg{err: err}
		}
		if err := ctrl.LoadAgents(ctx); err != nil {
			return transferMsg{err: err}
		}
		return transferMsg{notice: "imported agent " + a.Name}
	}
}

func (m Model) copyLastCodeCmd() tea.Cmd {
	ctrl := m.ctrl
	copies := m.copies
	return func() tea.Msg {
		snap := ctrl.Snapshot()
		for i := len(snap.Messages) - 1; i >= 0; i-- {
			blocks := markdown.Parse(snap.Messages[i].Content).CodeBlocks()
			if len(blocks) == 0 {
				continue
			}
			return copiedMsg{err: copies.Copy(blocks[len(blocks)-1].Text)}
		}
		return copiedMsg{err: errNoCodeBlock}
	}
}

func (m Model) createAgentCmd(w wizardState) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := backendCtx()
		defer cancel()
		created, err := ctrl.CreateAgent(ctx, w.draft)
		return agentCreatedMsg{agent: created, err: err}
	}
}

func (m Model) deleteAgentCmd(agentID string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := backendCtx()
		defer cancel()
		return agentDeletedMsg{err: ctrl.DeleteAgent(ctx, agentID)}
	}
}
