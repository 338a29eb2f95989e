// Package session owns the active agent, its message history, and the
// in-flight state around switching agents and sending messages. All
// session state is single-writer behind the controller's mutex; the UI
// reads it through Snapshot and repaints on the OnChange hook.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"mindloom/internal/agent"
	"mindloom/internal/bridge"
	"mindloom/internal/logging"
)

// ErrReplyText is appended as a synthetic agent message when the
// backend fails to produce a reply. The user's own message is kept.
const ErrReplyText = "I apologize, but I'm having trouble generating a response right now."

// Snapshot is a point-in-time copy of session state, safe to read
// after the controller has moved on.
type Snapshot struct {
	Agents          []agent.Agent
	Current         *agent.Agent
	Messages        []agent.Message
	Switching       bool
	Sending         bool
	LastSwitchError string
}

// Controller mediates between UI events and the backend bridge.
// Construct with New; a single instance lives for the whole process.
type Controller struct {
	mu sync.Mutex

	backend bridge.Backend
	log     *logging.Logger

	agents   []agent.Agent
	current  *agent.Agent
	messages []agent.Message

	switching       bool
	switchTarget    string
	sending         bool
	lastSwitchError string

	// generation stamps each in-flight fetch; a response whose stamp no
	// longer matches is discarded.
	generation uint64

	onChange func()
}

// New returns a controller bound to the given backend.
func New(backend bridge.Backend) *Controller {
	return &Controller{
		backend: backend,
		log:     logging.Get(logging.CategorySession),
	}
}

// OnChange registers a hook invoked after every state transition.
// The hook runs without the controller lock held.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Agents:          append([]agent.Agent(nil), c.agents...),
		Messages:        append([]agent.Message(nil), c.messages...),
		Switching:       c.switching,
		Sending:         c.sending,
		LastSwitchError: c.lastSwitchError,
	}
	if c.current != nil {
		cur := *c.current
		s.Current = &cur
	}
	return s
}

// LoadAgents replaces the agent list wholesale from the backend. If no
// agent is selected and the list is non-empty, the first agent becomes
// active. An empty list clears the session. On backend failure the
// prior list is left untouched and the error is returned.
func (c *Controller) LoadAgents(ctx context.Context) error {
	list, err := c.backend.GetAgents(ctx)
	if err != nil {
		c.log.Error("load agents: %v", err)
		return err
	}

	c.mu.Lock()
	c.agents = list
	var target *agent.Agent
	if len(list) == 0 {
		c.current = nil
		c.messages = nil
		c.generation++ // in-flight fetches no longer apply
	} else if c.current == nil {
		target = &list[0]
	}
	c.mu.Unlock()
	c.notify()

	c.log.Info("loaded %d agents", len(list))
	if target != nil {
		return c.SwitchAgent(ctx, *target)
	}
	return nil
}

// SwitchAgent transitions the session to target. Re-selecting the
// active agent, or repeating a switch that is already in flight to the
// same target, is a no-op. A switch to a different target while one is
// pending supersedes it: the older history fetch is discarded when it
// resolves.
//
// Messages are cleared before the fetch begins, so the previous
// agent's history is never rendered under the new agent's name. On
// fetch failure the session rolls back to no agent selected.
func (c *Controller) SwitchAgent(ctx context.Context, target agent.Agent) error {
	c.mu.Lock()
	if c.switching && c.switchTarget == target.ID {
		c.mu.Unlock()
		return nil
	}
	if !c.switching && c.current != nil && c.current.ID == target.ID {
		c.mu.Unlock()
		return nil
	}
	c.generation++
	gen := c.generation
	c.switching = true
	c.switchTarget = target.ID
	c.lastSwitchError = ""
	c.messages = nil
	cur := target
	c.current = &cur
	c.mu.Unlock()
	c.notify()

	c.log.Info("switching to agent %s (%s)", target.Name, target.ID)
	history, err := c.backend.GetAgentMessages(ctx, target.ID)

	c.mu.Lock()
	if c.generation != gen {
		// A later switch superseded this one; its state wins.
		c.mu.Unlock()
		c.log.Debug("discarding stale history for agent %s", target.ID)
		return nil
	}
	if err != nil {
		c.lastSwitchError = err.Error()
		c.current = nil
		c.messages = nil
		c.log.Error("history fetch for %s failed: %v", target.ID, err)
	} else {
		c.messages = history
	}
	c.switching = false
	c.switchTarget = ""
	c.mu.Unlock()
	c.notify()
	return err
}

// SendMessage submits one user turn to the active agent. The user
// message is appended optimistically and never retracted; a backend
// failure substitutes ErrReplyText for the reply. Empty input, an
// in-flight send, or no active agent make the call a no-op.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.sending || c.current == nil {
		c.mu.Unlock()
		return nil
	}
	gen := c.generation
	agentID := c.current.ID
	c.messages = append(c.messages, agent.NewUserMessage(text, agentID))
	c.sending = true
	c.mu.Unlock()
	c.notify()

	start := time.Now()
	reply, err := c.backend.SendMessageToAgent(ctx, agentID, text)
	latency := time.Since(start).Milliseconds()

	c.mu.Lock()
	if c.generation != gen {
		// The session moved to another agent while this send was in
		// flight; the reply belongs to a history we no longer show.
		c.sending = false
		c.mu.Unlock()
		c.notify()
		c.log.Debug("discarding stale reply for agent %s", agentID)
		return nil
	}
	if err != nil {
		c.log.Error("send to %s failed: %v", agentID, err)
		c.messages = append(c.messages, agent.NewAgentMessage(ErrReplyText, agentID))
	} else {
		msg := agent.NewAgentMessage(reply, agentID).WithMetadata(agent.Metadata{
			ResponseTimeMs: latency,
		})
		c.messages = append(c.messages, msg)
	}
	c.sending = false
	c.mu.Unlock()
	c.notify()
	return nil
}

// CreateAgent validates the draft locally, creates it through the
// backend, reloads the agent list, and switches to the new agent.
func (c *Controller) CreateAgent(ctx context.Context, draft agent.Draft) (agent.Agent, error) {
	if err := draft.Validate(); err != nil {
		return agent.Agent{}, err
	}

	created, err := c.backend.CreateAgent(ctx, draft)
	if err != nil {
		c.log.Error("create agent: %v", err)
		return agent.Agent{}, err
	}
	c.log.Info("created agent %s (%s)", created.Name, created.ID)

	if err := c.LoadAgents(ctx); err != nil {
		return created, err
	}
	return created, c.SwitchAgent(ctx, created)
}

// ClearChat deletes the active agent's history on the backend and
// locally. No-op without an active agent.
func (c *Controller) ClearChat(ctx context.Context) error {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return nil
	}
	agentID := c.current.ID
	c.mu.Unlock()

	if err := c.backend.ClearChat(ctx, agentID); err != nil {
		c.log.Error("clear chat for %s: %v", agentID, err)
		return err
	}

	c.mu.Lock()
	if c.current != nil && c.current.ID == agentID {
		c.messages = nil
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// DeleteAgent removes an agent through the backend and reloads the
// list. Deleting the active agent clears the session; LoadAgents then
// selects a new default if any agents remain.
func (c *Controller) DeleteAgent(ctx context.Context, agentID string) error {
	if err := c.backend.DeleteAgent(ctx, agentID); err != nil {
		c.log.Error("delete agent %s: %v", agentID, err)
		return err
	}

	c.mu.Lock()
	if c.current != nil && c.current.ID == agentID {
		c.current = nil
		c.messages = nil
		c.generation++
	}
	c.mu.Unlock()
	c.notify()

	return c.LoadAgents(ctx)
}
