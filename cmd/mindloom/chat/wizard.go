package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"mindloom/internal/agent"
)

// Wizard steps, in order.
const (
	stepName = iota
	stepSpecialization
	stepPersonality
	stepInstructions
	stepConfirm
)

// wizardState is the in-progress create-agent form.
type wizardState struct {
	step  int
	draft agent.Draft
}

func newWizard() *wizardState {
	return &wizardState{}
}

var specializations = []agent.Specialization{
	agent.SpecGeneral, agent.SpecWork, agent.SpecCoding, agent.SpecResearch,
	agent.SpecWriting, agent.SpecPersonal, agent.SpecCreative, agent.SpecTechnical,
}

var personalities = []agent.Personality{
	agent.PersProfessional, agent.PersFriendly, agent.PersAnalytical,
	agent.PersCreative, agent.PersConcise, agent.PersDetailed,
}

// updateWizard consumes one submitted line for the active step.
func (m Model) updateWizard(text string) (tea.Model, tea.Cmd) {
	w := m.wizard

	switch w.step {
	case stepName:
		if strings.TrimSpace(text) == "" {
			m.errMsg = "agent name must not be empty"
			return m, nil
		}
		w.draft.Name = strings.TrimSpace(text)
		m.errMsg = ""
		w.step = stepSpecialization

	case stepSpecialization:
		spec, err := pickOption(text, specializations, agent.SpecGeneral)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		w.draft.Specialization = spec
		m.errMsg = ""
		w.step = stepPersonality

	case stepPersonality:
		pers, err := pickOption(text, personalities, agent.PersFriendly)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		w.draft.Personality = pers
		m.errMsg = ""
		w.step = stepInstructions

	case stepInstructions:
		w.draft.Instructions = strings.TrimSpace(text)
		w.step = stepConfirm

	case stepConfirm:
		answer := strings.ToLower(strings.TrimSpace(text))
		if answer == "n" || answer == "no" {
			m.wizard = nil
			m.notice = "agent creation cancelled"
			return m, nil
		}
		done := *w
		m.wizard = nil
		return m, tea.Batch(m.createAgentCmd(done), m.spinner.Tick)
	}
	return m, nil
}

// pickOption resolves a numeric index or literal value, with a
// default for empty input.
func pickOption[T ~string](input string, options []T, fallback T) (T, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return fallback, nil
	}
	for i, opt := range options {
		if input == string(opt) || input == fmt.Sprintf("%d", i+1) {
			return opt, nil
		}
	}
	return fallback, fmt.Errorf("pick 1-%d or a listed value", len(options))
}

func (m Model) wizardView() string {
	w := m.wizard
	var sb strings.Builder

	sb.WriteString(m.styles.Title.Render("Create an agent"))
	sb.WriteString("\n\n")

	switch w.step {
	case stepName:
		sb.WriteString("What should the agent be called?\n")

	case stepSpecialization:
		sb.WriteString(fmt.Sprintf("Specialization for %s (enter for general):\n\n", w.draft.Name))
		for i, s := range specializations {
			sb.WriteString(fmt.Sprintf("  %d. %s %s\n", i+1, s.Icon(), string(s)))
		}

	case stepPersonality:
		sb.WriteString("Personality (enter for friendly):\n\n")
		for i, p := range personalities {
			sb.WriteString(fmt.Sprintf("  %d. %s %s\n", i+1, p.Icon(), string(p)))
		}

	case stepInstructions:
		sb.WriteString("Custom instructions (optional, enter to skip):\n")

	case stepConfirm:
		sb.WriteString("About to create:\n\n")
		sb.WriteString(fmt.Sprintf("  %s %s — %s, %s\n",
			w.draft.Specialization.Icon(), w.draft.Name,
			string(w.draft.Specialization), string(w.draft.Personality)))
		if w.draft.Instructions != "" {
			sb.WriteString("  instructions: " + w.draft.Instructions + "\n")
		}
		sb.WriteString("\nCreate? (Y/n)\n")
	}

	if m.errMsg != "" {
		sb.WriteString("\n" + m.styles.Error.Render(m.errMsg) + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.textarea.View())
	sb.WriteString("\n")
	sb.WriteString(m.styles.Footer.Render("enter: next · esc: cancel"))
	return sb.String()
}
