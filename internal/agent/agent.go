// Package agent defines the data model shared by the chat front-end and
// the backend bridge: agent profiles, their closed specialization and
// personality enumerations, and conversation messages.
package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Specialization determines an agent's default introduction and icon.
type Specialization string

const (
	SpecGeneral   Specialization = "general"
	SpecWork      Specialization = "work"
	SpecCoding    Specialization = "coding"
	SpecResearch  Specialization = "research"
	SpecWriting   Specialization = "writing"
	SpecPersonal  Specialization = "personal"
	SpecCreative  Specialization = "creative"
	SpecTechnical Specialization = "technical"
)

// Specializations lists every valid specialization, in display order.
func Specializations() []Specialization {
	return []Specialization{
		SpecGeneral, SpecWork, SpecCoding, SpecResearch,
		SpecWriting, SpecPersonal, SpecCreative, SpecTechnical,
	}
}

// Icon returns the display glyph for the specialization. Unknown values
// get the general icon rather than an empty string.
func (s Specialization) Icon() string {
	switch s {
	case SpecGeneral:
		return "🤖"
	case SpecWork:
		return "💼"
	case SpecCoding:
		return "💻"
	case SpecResearch:
		return "🔬"
	case SpecWriting:
		return "✍️"
	case SpecPersonal:
		return "🏠"
	case SpecCreative:
		return "🎨"
	case SpecTechnical:
		return "⚙️"
	default:
		return "🤖"
	}
}

// Introduction returns the default first message an agent presents when
// its history is empty.
func (s Specialization) Introduction(name string) string {
	switch s {
	case SpecWork:
		return fmt.Sprintf("Hi, I'm %s. I can help you plan, prioritize, and get work done.", name)
	case SpecCoding:
		return fmt.Sprintf("Hi, I'm %s. Paste some code or describe a bug and we'll work through it.", name)
	case SpecResearch:
		return fmt.Sprintf("Hi, I'm %s. Ask me to dig into a topic and I'll summarize what I find.", name)
	case SpecWriting:
		return fmt.Sprintf("Hi, I'm %s. I can draft, edit, and polish text with you.", name)
	case SpecPersonal:
		return fmt.Sprintf("Hi, I'm %s. I'm here for everyday questions and planning.", name)
	case SpecCreative:
		return fmt.Sprintf("Hi, I'm %s. Bring an idea and we'll make something out of it.", name)
	case SpecTechnical:
		return fmt.Sprintf("Hi, I'm %s. I can explain systems and troubleshoot technical problems.", name)
	default:
		return fmt.Sprintf("Hi, I'm %s. How can I help you today?", name)
	}
}

// Personality shades how an agent phrases its answers. In the front-end
// it only selects an icon; the backend folds it into the prompt.
type Personality string

const (
	PersProfessional Personality = "professional"
	PersFriendly     Personality = "friendly"
	PersAnalytical   Personality = "analytical"
	PersCreative     Personality = "creative"
	PersConcise      Personality = "concise"
	PersDetailed     Personality = "detailed"
)

// Personalities lists every valid personality, in display order.
func Personalities() []Personality {
	return []Personality{
		PersProfessional, PersFriendly, PersAnalytical,
		PersCreative, PersConcise, PersDetailed,
	}
}

// Icon returns the display glyph for the personality, with an explicit
// default for unknown values.
func (p Personality) Icon() string {
	switch p {
	case PersProfessional:
		return "👔"
	case PersFriendly:
		return "😊"
	case PersAnalytical:
		return "📊"
	case PersCreative:
		return "✨"
	case PersConcise:
		return "⚡"
	case PersDetailed:
		return "📖"
	default:
		return "😊"
	}
}

// Agent is a named configuration profile. ID and CreatedAt are assigned
// at creation and never change.
type Agent struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Specialization Specialization `json:"specialization"`
	Personality    Personality    `json:"personality"`
	Instructions   string         `json:"instructions,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// HasInstructions reports whether the agent carries a non-blank custom
// instruction override.
func (a Agent) HasInstructions() bool {
	return strings.TrimSpace(a.Instructions) != ""
}

// Draft is the user-supplied portion of a new agent.
type Draft struct {
	Name           string         `json:"name"`
	Specialization Specialization `json:"specialization"`
	Personality    Personality    `json:"personality"`
	Instructions   string         `json:"instructions,omitempty"`
}

// Validate rejects drafts that must never reach the backend.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("agent name must not be empty")
	}
	return nil
}

// New materializes a draft into an Agent with a fresh identity. Blank
// enum fields fall back to their defaults.
func New(d Draft) Agent {
	spec := d.Specialization
	if spec == "" {
		spec = SpecGeneral
	}
	pers := d.Personality
	if pers == "" {
		pers = PersFriendly
	}
	return Agent{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(d.Name),
		Specialization: spec,
		Personality:    pers,
		Instructions:   d.Instructions,
		CreatedAt:      time.Now().UTC(),
	}
}
