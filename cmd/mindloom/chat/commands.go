package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"mindloom/internal/bridge"
)

var (
	errNoActiveAgent = errors.New("no agent selected; use /new to create one")
	errNoCodeBlock   = errors.New("no code block in the conversation yet")
)

func errUnknownAgent(name string) error {
	return fmt.Errorf("no agent named %q; /agents lists them", name)
}

const helpText = `# mindloom commands

| Command | Effect |
|---|---|
| /help | show this help |
| /agents | list agents |
| /switch <name> | switch to an agent |
| /new | create an agent |
| /delete <name> | delete an agent |
| /clear | clear the current chat |
| /copy | copy the last code block |
| /status | check ollama and chromadb |
| /ingest <path> | index a document |
| /export <path> | export current agent's knowledge |
| /import <path> | import an exported agent |
| /quit | exit |

Messages support callouts (` + "`::tip::`" + `), keystrokes (` + "`++ctrl+c++`" + `),
highlights (` + "`==text==`" + `), task lists, and fenced code.
`

// execCommand dispatches one slash command.
func (m Model) execCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		m.notice = ""
		m.errMsg = ""
		m.viewport.SetContent(m.renderHelp())
		m.viewport.GotoTop()
		return m, nil

	case "/agents":
		m.setResult(m.listAgents(), nil)
		return m, nil

	case "/switch":
		if len(args) == 0 {
			m.setResult("", errors.New("usage: /switch <name>"))
			return m, nil
		}
		return m, tea.Batch(m.switchCmd(strings.Join(args, " ")), m.spinner.Tick)

	case "/new":
		m.wizard = newWizard()
		m.notice = ""
		m.errMsg = ""
		return m, nil

	case "/delete":
		if len(args) == 0 {
			m.setResult("", errors.New("usage: /delete <name>"))
			return m, nil
		}
		name := strings.Join(args, " ")
		for _, a := range m.ctrl.Snapshot().Agents {
			if a.Name == name || a.ID == name {
				return m, m.deleteAgentCmd(a.ID)
			}
		}
		m.setResult("", errUnknownAgent(name))
		return m, nil

	case "/clear":
		return m, m.clearCmd()

	case "/copy":
		return m, m.copyLastCodeCmd()

	case "/status":
		return m, m.statusCmd()

	case "/ingest":
		if len(args) == 0 {
			m.setResult("", errors.New("usage: /ingest <path>"))
			return m, nil
		}
		return m, m.ingestCmd(strings.Join(args, " "))

	case "/export":
		if len(args) == 0 {
			m.setResult("", errors.New("usage: /export <path>"))
			return m, nil
		}
		snap := m.ctrl.Snapshot()
		if snap.Current == nil {
			m.setResult("", errNoActiveAgent)
			return m, nil
		}
		return m, m.exportCmd(snap.Current.ID, strings.Join(args, " "))

	case "/import":
		if len(args) == 0 {
			m.setResult("", errors.New("usage: /import <path>"))
			return m, nil
		}
		return m, m.importCmd(strings.Join(args, " "))

	case "/quit", "/exit":
		return m, tea.Quit

	default:
		m.setResult("", fmt.Errorf("unknown command %s; /help lists commands", cmd))
		return m, nil
	}
}

// renderHelp renders the help markdown through glamour, falling back
// to the raw text if rendering fails.
func (m Model) renderHelp() string {
	style := "light"
	if m.styles.Theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(m.width-4),
	)
	if err != nil {
		return helpText
	}
	out, err := r.Render(helpText)
	if err != nil {
		return helpText
	}
	return out
}

func (m Model) listAgents() string {
	snap := m.ctrl.Snapshot()
	if len(snap.Agents) == 0 {
		return "no agents yet; /new creates one"
	}
	names := make([]string, 0, len(snap.Agents))
	for _, a := range snap.Agents {
		name := a.Specialization.Icon() + " " + a.Name
		if snap.Current != nil && a.ID == snap.Current.ID {
			name += " (active)"
		}
		names = append(names, name)
	}
	return strings.Join(names, " · ")
}

// ingestFile reads a file and hands it to the backend for indexing.
func ingestFile(ctx context.Context, backend bridge.Backend, path string) (bridge.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return bridge.Document{}, fmt.Errorf("read document: %w", err)
	}
	return backend.AddDocument(ctx, filepath.Base(path), string(data))
}
