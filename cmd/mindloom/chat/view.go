package chat

import (
	"fmt"
	"strings"

	"mindloom/cmd/mindloom/ui"
	"mindloom/internal/bridge"
)

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.wizard != nil {
		return m.wizardView()
	}
	if m.picker != nil {
		return m.pickerView()
	}

	var sb strings.Builder
	sb.WriteString(m.headerView())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(ui.RenderDivider(m.styles, m.width))
	sb.WriteString("\n")
	sb.WriteString(m.textarea.View())
	sb.WriteString("\n")
	sb.WriteString(m.footerView())
	return sb.String()
}

func (m Model) headerView() string {
	snap := m.ctrl.Snapshot()

	title := "mindloom"
	if snap.Current != nil {
		a := snap.Current
		title = fmt.Sprintf("%s %s  %s %s",
			a.Specialization.Icon(), a.Name,
			a.Personality.Icon(), string(a.Personality))
	}
	header := m.styles.Header.Render(title)

	if snap.Switching {
		header += " " + m.spinner.View() + m.styles.Muted.Render(" switching...")
	}
	if len(snap.Agents) > 1 {
		header += m.styles.Muted.Render(fmt.Sprintf("  (%d agents)", len(snap.Agents)))
	}
	return header
}

func (m Model) footerView() string {
	if m.errMsg != "" {
		return m.styles.Error.Render("✗ " + m.errMsg)
	}
	if m.notice != "" {
		return m.styles.Info.Render(m.notice)
	}
	return m.styles.Footer.Render("enter: send · /help: commands · esc: agents · ctrl+c: quit")
}

// renderStatus formats a health probe for the banner line.
func renderStatus(s ui.Styles, status bridge.Status, info bridge.SystemInfo) string {
	mark := func(ok bool) string {
		if ok {
			return s.Success.Render("●")
		}
		return s.Error.Render("●")
	}
	out := fmt.Sprintf("ollama %s  chromadb %s", mark(status.Ollama), mark(status.ChromaDB))
	if info.OllamaVersion != "" {
		out += s.Muted.Render("  v" + info.OllamaVersion)
	}
	if len(info.Models) > 0 {
		out += s.Muted.Render(fmt.Sprintf("  %d models", len(info.Models)))
	}
	return out
}
