// Package prompt assembles the text prompts sent to the model: the
// chat turn with persona framing and retrieved context, plus the
// document summary and keyword-extraction prompts.
package prompt

import (
	"fmt"
	"strings"

	"mindloom/internal/agent"
)

// historyWindow caps how many prior turns are replayed into the
// prompt.
const historyWindow = 10

// excerptRunes caps each context excerpt.
const excerptRunes = 200

// ContextDoc is one retrieved knowledge snippet.
type ContextDoc struct {
	Content string
	Source  string
}

var specializationFraming = map[agent.Specialization]string{
	agent.SpecGeneral:   "a helpful general-purpose assistant",
	agent.SpecWork:      "an assistant focused on workplace productivity",
	agent.SpecCoding:    "an assistant specialized in software development",
	agent.SpecResearch:  "an assistant specialized in research and analysis",
	agent.SpecWriting:   "an assistant specialized in writing and editing",
	agent.SpecPersonal:  "a personal assistant for everyday tasks",
	agent.SpecCreative:  "an assistant specialized in creative work",
	agent.SpecTechnical: "an assistant specialized in technical problem solving",
}

var personalityFraming = map[agent.Personality]string{
	agent.PersProfessional: "Keep a professional tone.",
	agent.PersFriendly:     "Keep a warm, friendly tone.",
	agent.PersAnalytical:   "Be analytical and precise.",
	agent.PersCreative:     "Be imaginative and open-ended.",
	agent.PersConcise:      "Be as concise as possible.",
	agent.PersDetailed:     "Be thorough and detailed.",
}

// BuildChat produces the full prompt for one chat turn. Custom
// instructions, when present, replace the derived persona framing.
func BuildChat(a agent.Agent, history []agent.Message, docs []ContextDoc, input string) string {
	var b strings.Builder

	if a.Instructions != "" {
		b.WriteString(a.Instructions)
		b.WriteString("\n\n")
	} else {
		framing, ok := specializationFraming[a.Specialization]
		if !ok {
			framing = specializationFraming[agent.SpecGeneral]
		}
		fmt.Fprintf(&b, "You are %s, %s.", a.Name, framing)
		if tone, ok := personalityFraming[a.Personality]; ok {
			b.WriteString(" ")
			b.WriteString(tone)
		}
		b.WriteString(" Always be accurate.\n\n")
	}

	if len(docs) > 0 {
		b.WriteString("Relevant context from your knowledge base:\n")
		for i, d := range docs {
			fmt.Fprintf(&b, "%d. %s (from: %s)\n", i+1, excerpt(d.Content), d.Source)
		}
		b.WriteString("\n")
	}

	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, m := range history[start:] {
		switch m.Sender {
		case agent.SenderUser:
			fmt.Fprintf(&b, "User: %s\n", m.Content)
		case agent.SenderAgent:
			fmt.Fprintf(&b, "Assistant: %s\n", m.Content)
		}
	}
	if start < len(history) {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User: %s\n\nAssistant: ", input)
	return b.String()
}

// BuildSummary produces the document-summary prompt. Input is capped
// at 4000 runes.
func BuildSummary(content string) string {
	return fmt.Sprintf(
		"Please provide a concise summary of the following document:\n\n%s\n\nSummary:",
		truncateRunes(content, 4000),
	)
}

// BuildKeywords produces the keyword-extraction prompt. Input is
// capped at 2000 runes.
func BuildKeywords(content string) string {
	return fmt.Sprintf(
		"Extract 5-10 important keywords from the following text. Return only the keywords separated by commas:\n\n%s\n\nKeywords:",
		truncateRunes(content, 2000),
	)
}

// ParseKeywords splits a comma-separated model reply into clean
// keywords.
func ParseKeywords(reply string) []string {
	var out []string
	for _, part := range strings.Split(reply, ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func excerpt(s string) string {
	return strings.ReplaceAll(truncateRunes(s, excerptRunes), "\n", " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
