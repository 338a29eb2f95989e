// Package bridge defines the RPC surface between the chat front-end and
// the backend that owns persistence, the model runtime, and the vector
// database. The front-end treats every call as opaque and fallible and
// holds no durable state of its own.
package bridge

import (
	"context"
	"time"

	"mindloom/internal/agent"
)

// Status reports reachability of the two external services.
type Status struct {
	Ollama   bool `json:"ollama"`
	ChromaDB bool `json:"chromadb"`
}

// SystemInfo is the richer health payload behind the status view.
type SystemInfo struct {
	OS            string   `json:"os"`
	Arch          string   `json:"arch"`
	NumCPU        int      `json:"num_cpu"`
	OllamaVersion string   `json:"ollama_version,omitempty"`
	ChromaVersion string   `json:"chroma_version,omitempty"`
	Models        []string `json:"models,omitempty"`
}

// Document is an indexed knowledge document as the backend reports it.
type Document struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Source  string    `json:"source"`
	Content string    `json:"content"`
	AddedAt time.Time `json:"added_at"`
	Chunks  int       `json:"chunks"`
}

// Backend is the full command surface. Implementations may fail any
// call with an implementation-defined error; callers only rely on the
// error carrying a human-readable message.
type Backend interface {
	GetAgents(ctx context.Context) ([]agent.Agent, error)
	CreateAgent(ctx context.Context, draft agent.Draft) (agent.Agent, error)
	UpdateAgent(ctx context.Context, a agent.Agent) error
	DeleteAgent(ctx context.Context, id string) error

	GetAgentMessages(ctx context.Context, agentID string) ([]agent.Message, error)
	SendMessageToAgent(ctx context.Context, agentID, text string) (string, error)
	ClearChat(ctx context.Context, agentID string) error

	AddDocument(ctx context.Context, name, content string) (Document, error)
	GetDocuments(ctx context.Context) ([]Document, error)
	DeleteDocument(ctx context.Context, id string) error

	CheckServiceStatus(ctx context.Context) (Status, error)
	GetSystemInfo(ctx context.Context) (SystemInfo, error)

	ExportAgentKnowledge(ctx context.Context, agentID, path string) error
	ImportAgentKnowledge(ctx context.Context, path string) (agent.Agent, error)
}
