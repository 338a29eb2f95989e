// Package store is the SQLite persistence layer for agents, message
// history, and indexed documents.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"mindloom/internal/agent"
	"mindloom/internal/logging"
)

// Document is one indexed knowledge document row.
type Document struct {
	ID      string
	Name    string
	Source  string
	Content string
	AddedAt time.Time
	Chunks  int
}

// Store wraps a single SQLite database.
type Store struct {
	db   *sql.DB
	path string
	log  *logging.Logger
}

// Open creates or opens the database at path. Pass ":memory:" for an
// ephemeral database in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc's driver is not safe for concurrent writers on one file
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal_mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign_keys: %w", err)
	}

	s := &Store{db: db, path: path, log: logging.Get(logging.CategoryStore)}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	s.log.Info("store opened at %s", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		specialization TEXT NOT NULL,
		personality TEXT NOT NULL,
		instructions TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		content TEXT NOT NULL,
		sender TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		model_used TEXT,
		response_time_ms INTEGER,
		FOREIGN KEY (agent_id) REFERENCES agents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_agent ON messages(agent_id);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		added_at TEXT NOT NULL,
		chunks INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveAgent inserts a new agent.
func (s *Store) SaveAgent(a agent.Agent) error {
	_, err := s.db.Exec(
		`INSERT INTO agents (id, name, specialization, personality, instructions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, string(a.Specialization), string(a.Personality), a.Instructions,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save agent: %w", err)
	}
	return nil
}

// UpdateAgent rewrites an existing agent's mutable fields.
func (s *Store) UpdateAgent(a agent.Agent) error {
	res, err := s.db.Exec(
		`UPDATE agents SET name = ?, specialization = ?, personality = ?, instructions = ? WHERE id = ?`,
		a.Name, string(a.Specialization), string(a.Personality), a.Instructions, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("update agent: no agent with id %s", a.ID)
	}
	return nil
}

// GetAgent fetches one agent by id.
func (s *Store) GetAgent(id string) (agent.Agent, error) {
	row := s.db.QueryRow(
		`SELECT id, name, specialization, personality, instructions, created_at
		 FROM agents WHERE id = ?`, id)
	return scanAgent(row)
}

// ListAgents returns all agents, oldest first.
func (s *Store) ListAgents() ([]agent.Agent, error) {
	rows, err := s.db.Query(
		`SELECT id, name, specialization, personality, instructions, created_at
		 FROM agents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAgent removes an agent; its messages go with it.
func (s *Store) DeleteAgent(id string) error {
	_, err := s.db.Exec(`DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(r rowScanner) (agent.Agent, error) {
	var a agent.Agent
	var spec, pers, created string
	var instructions sql.NullString
	if err := r.Scan(&a.ID, &a.Name, &spec, &pers, &instructions, &created); err != nil {
		return agent.Agent{}, fmt.Errorf("scan agent: %w", err)
	}
	a.Specialization = agent.Specialization(spec)
	a.Personality = agent.Personality(pers)
	a.Instructions = instructions.String
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return agent.Agent{}, fmt.Errorf("parse created_at: %w", err)
	}
	a.CreatedAt = t
	return a, nil
}

// AppendMessage persists one message.
func (s *Store) AppendMessage(m agent.Message) error {
	var model sql.NullString
	var latency sql.NullInt64
	if m.Metadata != nil {
		if m.Metadata.ModelUsed != "" {
			model = sql.NullString{String: m.Metadata.ModelUsed, Valid: true}
		}
		latency = sql.NullInt64{Int64: m.Metadata.ResponseTimeMs, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO messages (id, agent_id, content, sender, timestamp, model_used, response_time_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.AgentID, m.Content, string(m.Sender),
		m.Timestamp.UTC().Format(time.RFC3339), model, latency,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// MessagesForAgent returns an agent's history in insertion order.
func (s *Store) MessagesForAgent(agentID string) ([]agent.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, agent_id, content, sender, timestamp, model_used, response_time_ms
		 FROM messages WHERE agent_id = ? ORDER BY timestamp, rowid`, agentID)
	if err != nil {
		return nil, fmt.Errorf("messages for agent: %w", err)
	}
	defer rows.Close()

	var out []agent.Message
	for rows.Next() {
		var m agent.Message
		var sender, ts string
		var model sql.NullString
		var latency sql.NullInt64
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Content, &sender, &ts, &model, &latency); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Sender = agent.Sender(sender)
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
		if model.Valid || latency.Valid {
			m.Metadata = &agent.Metadata{ModelUsed: model.String, ResponseTimeMs: latency.Int64}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ClearMessages deletes an agent's whole history.
func (s *Store) ClearMessages(agentID string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE agent_id = ?`, agentID)
	if err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

// SaveDocument inserts an indexed document.
func (s *Store) SaveDocument(d Document) error {
	_, err := s.db.Exec(
		`INSERT INTO documents (id, name, source, content, added_at, chunks)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Source, d.Content, d.AddedAt.UTC().Format(time.RFC3339), d.Chunks,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments() ([]Document, error) {
	rows, err := s.db.Query(
		`SELECT id, name, source, content, added_at, chunks
		 FROM documents ORDER BY added_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		var added string
		if err := rows.Scan(&d.ID, &d.Name, &d.Source, &d.Content, &added, &d.Chunks); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		t, err := time.Parse(time.RFC3339, added)
		if err != nil {
			return nil, fmt.Errorf("parse added_at: %w", err)
		}
		d.AddedAt = t
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDocument fetches one document by id.
func (s *Store) GetDocument(id string) (Document, error) {
	row := s.db.QueryRow(
		`SELECT id, name, source, content, added_at, chunks FROM documents WHERE id = ?`, id)
	var d Document
	var added string
	if err := row.Scan(&d.ID, &d.Name, &d.Source, &d.Content, &added, &d.Chunks); err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	t, err := time.Parse(time.RFC3339, added)
	if err != nil {
		return Document{}, fmt.Errorf("parse added_at: %w", err)
	}
	d.AddedAt = t
	return d, nil
}

// DeleteDocument removes a document row.
func (s *Store) DeleteDocument(id string) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
