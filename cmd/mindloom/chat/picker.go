package chat

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"mindloom/internal/agent"
)

// agentItem adapts an agent for the picker list.
type agentItem struct{ a agent.Agent }

func (i agentItem) Title() string { return i.a.Specialization.Icon() + " " + i.a.Name }
func (i agentItem) Description() string {
	return string(i.a.Specialization) + " · " + string(i.a.Personality)
}
func (i agentItem) FilterValue() string { return i.a.Name }

// openPicker builds the agent list overlay from the current snapshot,
// with the active agent preselected.
func (m *Model) openPicker() {
	snap := m.ctrl.Snapshot()
	items := make([]list.Item, 0, len(snap.Agents))
	for _, a := range snap.Agents {
		items = append(items, agentItem{a: a})
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(m.styles.Theme.Accent).
		BorderLeftForeground(m.styles.Theme.Accent)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(m.styles.Theme.Muted).
		BorderLeftForeground(m.styles.Theme.Accent)

	l := list.New(items, delegate, m.width, m.height-2)
	l.Title = "Agents"
	l.Styles.Title = m.styles.Title
	l.SetShowStatusBar(false)
	l.SetShowHelp(true)
	for i, a := range snap.Agents {
		if snap.Current != nil && a.ID == snap.Current.ID {
			l.Select(i)
		}
	}
	m.picker = &l
}

// updatePicker routes input to the agent list until one is chosen or
// the overlay is dismissed.
func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	filtering := m.picker.FilterState() == list.Filtering

	switch msg.Type {
	case tea.KeyEnter:
		if !filtering {
			item, ok := m.picker.SelectedItem().(agentItem)
			m.picker = nil
			if !ok {
				return m, nil
			}
			return m, tea.Batch(m.switchCmd(item.a.ID), m.spinner.Tick)
		}
	case tea.KeyEsc:
		if !filtering {
			m.picker = nil
			return m, nil
		}
	}

	lst, cmd := m.picker.Update(msg)
	m.picker = &lst
	return m, cmd
}

func (m Model) pickerView() string {
	return m.picker.View() + "\n" +
		m.styles.Footer.Render("enter: switch · esc: back")
}
