package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"mindloom/internal/agent"
)

// ExportVersion identifies the envelope format. Bump on breaking
// changes; Import rejects versions it does not know.
const ExportVersion = "1.0"

// Export is the portable agent-knowledge envelope: one agent, its
// conversation history, and the documents indexed for it.
type Export struct {
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Agent      agent.Agent     `json:"agent"`
	Messages   []agent.Message `json:"messages"`
	Documents  []ExportDoc     `json:"documents"`
}

// ExportDoc is a document as carried inside the envelope.
type ExportDoc struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Source  string    `json:"source"`
	Content string    `json:"content"`
	AddedAt time.Time `json:"added_at"`
}

// NewExport builds an envelope stamped with the current time.
func NewExport(a agent.Agent, messages []agent.Message, docs []ExportDoc) Export {
	return Export{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Agent:      a,
		Messages:   messages,
		Documents:  docs,
	}
}

// WriteFile marshals the envelope as indented JSON to path.
func (e Export) WriteFile(path string) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ReadFile loads and validates an envelope from path.
func ReadFile(path string) (Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Export{}, fmt.Errorf("read export: %w", err)
	}
	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return Export{}, fmt.Errorf("parse export: %w", err)
	}
	if e.Version != ExportVersion {
		return Export{}, fmt.Errorf("unsupported export version %q", e.Version)
	}
	if e.Agent.ID == "" || e.Agent.Name == "" {
		return Export{}, fmt.Errorf("export missing agent identity")
	}
	return e, nil
}
