package bridge

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"mindloom/internal/agent"
	"mindloom/internal/chroma"
	"mindloom/internal/config"
	"mindloom/internal/knowledge"
	"mindloom/internal/logging"
	"mindloom/internal/ollama"
	"mindloom/internal/prompt"
	"mindloom/internal/store"
)

// contextResults is how many knowledge snippets are retrieved per
// chat turn.
const contextResults = 3

// Local is the in-process Backend: SQLite for persistence, Ollama for
// generation and embeddings, ChromaDB for retrieval. Chroma and the
// embedding model are optional; without them chat still works, just
// without knowledge-base context.
type Local struct {
	cfg    *config.Config
	store  *store.Store
	ollama *ollama.Client
	chroma *chroma.Client
	log    *logging.Logger
}

var _ Backend = (*Local)(nil)

// NewLocal wires a Local backend from its services.
func NewLocal(cfg *config.Config, st *store.Store, oc *ollama.Client, cc *chroma.Client) *Local {
	return &Local{
		cfg:    cfg,
		store:  st,
		ollama: oc,
		chroma: cc,
		log:    logging.Get(logging.CategoryBridge),
	}
}

func (l *Local) GetAgents(ctx context.Context) ([]agent.Agent, error) {
	return l.store.ListAgents()
}

func (l *Local) CreateAgent(ctx context.Context, draft agent.Draft) (agent.Agent, error) {
	if err := draft.Validate(); err != nil {
		return agent.Agent{}, err
	}
	a := agent.New(draft)
	if err := l.store.SaveAgent(a); err != nil {
		return agent.Agent{}, err
	}
	l.log.Info("created agent %s (%s)", a.Name, a.ID)
	return a, nil
}

func (l *Local) UpdateAgent(ctx context.Context, a agent.Agent) error {
	return l.store.UpdateAgent(a)
}

func (l *Local) DeleteAgent(ctx context.Context, id string) error {
	return l.store.DeleteAgent(id)
}

func (l *Local) GetAgentMessages(ctx context.Context, agentID string) ([]agent.Message, error) {
	return l.store.MessagesForAgent(agentID)
}

// SendMessageToAgent runs one chat turn: persist the user message,
// retrieve context, generate, persist and return the reply.
func (l *Local) SendMessageToAgent(ctx context.Context, agentID, text string) (string, error) {
	a, err := l.store.GetAgent(agentID)
	if err != nil {
		return "", fmt.Errorf("unknown agent: %w", err)
	}
	history, err := l.store.MessagesForAgent(agentID)
	if err != nil {
		return "", err
	}

	userMsg := agent.NewUserMessage(text, agentID)
	if err := l.store.AppendMessage(userMsg); err != nil {
		return "", err
	}

	docs := l.retrieveContext(ctx, text)

	start := time.Now()
	reply, err := l.ollama.Generate(ctx, ollama.GenerateRequest{
		Model:  l.cfg.Ollama.ChatModel,
		Prompt: prompt.BuildChat(a, history, docs, text),
		Options: ollama.Options{
			Temperature: l.cfg.Ollama.Temperature,
			TopP:        l.cfg.Ollama.TopP,
		},
	})
	if err != nil {
		return "", err
	}
	latency := time.Since(start).Milliseconds()

	agentMsg := agent.NewAgentMessage(reply, agentID).WithMetadata(agent.Metadata{
		ModelUsed:      l.cfg.Ollama.ChatModel,
		ResponseTimeMs: latency,
	})
	if err := l.store.AppendMessage(agentMsg); err != nil {
		return "", err
	}
	return reply, nil
}

// retrieveContext embeds the query and pulls the nearest chunks from
// Chroma. Any failure degrades to no context rather than failing the
// chat turn.
func (l *Local) retrieveContext(ctx context.Context, query string) []prompt.ContextDoc {
	vec, err := l.ollama.Embeddings(ctx, l.cfg.Ollama.EmbeddingModel, query)
	if err != nil {
		l.log.Debug("context embedding unavailable: %v", err)
		return nil
	}
	res, err := l.chroma.Query(ctx, l.cfg.Chroma.Collection, chroma.QueryRequest{
		QueryEmbeddings: [][]float64{vec},
		NResults:        contextResults,
	})
	if err != nil {
		l.log.Debug("context query unavailable: %v", err)
		return nil
	}
	if len(res.Documents) == 0 {
		return nil
	}

	var docs []prompt.ContextDoc
	for i, content := range res.Documents[0] {
		source := "knowledge base"
		if len(res.Metadatas) > 0 && i < len(res.Metadatas[0]) {
			if s, ok := res.Metadatas[0][i]["source"].(string); ok && s != "" {
				source = s
			}
		}
		docs = append(docs, prompt.ContextDoc{Content: content, Source: source})
	}
	return docs
}

func (l *Local) ClearChat(ctx context.Context, agentID string) error {
	return l.store.ClearMessages(agentID)
}

// AddDocument saves a document and indexes its chunks in Chroma. The
// document is kept even when indexing fails; it just carries zero
// chunks.
func (l *Local) AddDocument(ctx context.Context, name, content string) (Document, error) {
	doc := store.Document{
		ID:      uuid.NewString(),
		Name:    name,
		Source:  name,
		Content: content,
		AddedAt: time.Now().UTC(),
	}

	chunks := knowledge.Chunk(content)
	indexed, err := l.indexChunks(ctx, doc, chunks)
	if err != nil {
		l.log.Warn("indexing %s failed, storing without chunks: %v", name, err)
		indexed = 0
	}
	doc.Chunks = indexed

	if err := l.store.SaveDocument(doc); err != nil {
		return Document{}, err
	}
	l.log.Info("added document %s (%d chunks)", name, indexed)
	return toBridgeDoc(doc), nil
}

func (l *Local) indexChunks(ctx context.Context, doc store.Document, chunks []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if _, err := l.chroma.EnsureCollection(ctx, l.cfg.Chroma.Collection); err != nil {
		return 0, err
	}

	req := chroma.AddRequest{}
	for i, chunk := range chunks {
		vec, err := l.ollama.Embeddings(ctx, l.cfg.Ollama.EmbeddingModel, chunk)
		if err != nil {
			return 0, err
		}
		req.IDs = append(req.IDs, chunkID(doc.ID, i))
		req.Embeddings = append(req.Embeddings, vec)
		req.Documents = append(req.Documents, chunk)
		req.Metadatas = append(req.Metadatas, map[string]any{
			"document_id": doc.ID,
			"source":      doc.Source,
			"chunk":       i,
		})
	}
	if err := l.chroma.Add(ctx, l.cfg.Chroma.Collection, req); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func chunkID(docID string, i int) string {
	return fmt.Sprintf("%s:%d", docID, i)
}

func (l *Local) GetDocuments(ctx context.Context) ([]Document, error) {
	list, err := l.store.ListDocuments()
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(list))
	for _, d := range list {
		out = append(out, toBridgeDoc(d))
	}
	return out, nil
}

func (l *Local) DeleteDocument(ctx context.Context, id string) error {
	doc, err := l.store.GetDocument(id)
	if err != nil {
		return err
	}
	if doc.Chunks > 0 {
		ids := make([]string, doc.Chunks)
		for i := range ids {
			ids[i] = chunkID(doc.ID, i)
		}
		if err := l.chroma.Delete(ctx, l.cfg.Chroma.Collection, ids); err != nil {
			// Orphaned vectors are harmless; the row still goes.
			l.log.Warn("deleting chunks for %s: %v", id, err)
		}
	}
	return l.store.DeleteDocument(id)
}

func (l *Local) CheckServiceStatus(ctx context.Context) (Status, error) {
	return Status{
		Ollama:   l.ollama.Available(ctx),
		ChromaDB: l.chroma.Available(ctx),
	}, nil
}

func (l *Local) GetSystemInfo(ctx context.Context) (SystemInfo, error) {
	info := SystemInfo{
		OS:     runtime.GOOS,
		Arch:   runtime.GOARCH,
		NumCPU: runtime.NumCPU(),
	}
	if v, err := l.ollama.Version(ctx); err == nil {
		info.OllamaVersion = v
	}
	if v, err := l.chroma.Version(ctx); err == nil {
		info.ChromaVersion = v
	}
	if models, err := l.ollama.ListModels(ctx); err == nil {
		for _, m := range models {
			info.Models = append(info.Models, m.Name)
		}
	}
	return info, nil
}

// ExportAgentKnowledge writes one agent, its history, and all indexed
// documents to a portable JSON file.
func (l *Local) ExportAgentKnowledge(ctx context.Context, agentID, path string) error {
	a, err := l.store.GetAgent(agentID)
	if err != nil {
		return err
	}
	msgs, err := l.store.MessagesForAgent(agentID)
	if err != nil {
		return err
	}
	docs, err := l.store.ListDocuments()
	if err != nil {
		return err
	}

	exportDocs := make([]knowledge.ExportDoc, 0, len(docs))
	for _, d := range docs {
		exportDocs = append(exportDocs, knowledge.ExportDoc{
			ID: d.ID, Name: d.Name, Source: d.Source,
			Content: d.Content, AddedAt: d.AddedAt,
		})
	}
	if err := knowledge.NewExport(a, msgs, exportDocs).WriteFile(path); err != nil {
		return err
	}
	l.log.Info("exported agent %s to %s", agentID, path)
	return nil
}

// ImportAgentKnowledge recreates an exported agent with a fresh
// identity, replays its history, and re-indexes its documents.
func (l *Local) ImportAgentKnowledge(ctx context.Context, path string) (agent.Agent, error) {
	exp, err := knowledge.ReadFile(path)
	if err != nil {
		return agent.Agent{}, err
	}

	a := exp.Agent
	a.ID = uuid.NewString()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if err := l.store.SaveAgent(a); err != nil {
		return agent.Agent{}, err
	}

	for _, m := range exp.Messages {
		m.ID = uuid.NewString()
		m.AgentID = a.ID
		if err := l.store.AppendMessage(m); err != nil {
			return agent.Agent{}, err
		}
	}

	for _, d := range exp.Documents {
		if _, err := l.store.GetDocument(d.ID); err == nil {
			continue // already present
		}
		if _, err := l.AddDocument(ctx, d.Name, d.Content); err != nil {
			return agent.Agent{}, err
		}
	}

	l.log.Info("imported agent %s from %s", a.Name, path)
	return a, nil
}

func toBridgeDoc(d store.Document) Document {
	return Document{
		ID:      d.ID,
		Name:    d.Name,
		Source:  d.Source,
		Content: d.Content,
		AddedAt: d.AddedAt,
		Chunks:  d.Chunks,
	}
}
