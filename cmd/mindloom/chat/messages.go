package chat

import (
	"mindloom/internal/agent"
	"mindloom/internal/bridge"
)

// Typed messages delivered back into Update by async commands. Every
// backend round trip gets its own message type so Update stays a
// plain type switch.

// agentsLoadedMsg signals LoadAgents finished.
type agentsLoadedMsg struct {
	err error
}

// switchedMsg signals a SwitchAgent call finished.
type switchedMsg struct {
	err error
}

// replyMsg signals a SendMessage round trip finished. The reply (or
// its error substitute) is already in the controller's history.
type replyMsg struct {
	err error
}

// clearedMsg signals a ClearChat call finished.
type clearedMsg struct {
	err error
}

// agentCreatedMsg carries the result of the create-agent wizard.
type agentCreatedMsg struct {
	agent agent.Agent
	err   error
}

// agentDeletedMsg signals a DeleteAgent call finished.
type agentDeletedMsg struct {
	err error
}

// statusMsg carries a service health probe result.
type statusMsg struct {
	status bridge.Status
	info   bridge.SystemInfo
	err    error
}

// docAddedMsg carries the result of a document ingest.
type docAddedMsg struct {
	doc bridge.Document
	err error
}

// transferMsg carries the result of a knowledge export or import.
type transferMsg struct {
	notice string
	err    error
}

// copiedMsg signals a clipboard write attempt.
type copiedMsg struct {
	err error
}

// sessionChangedMsg is emitted by the controller's OnChange hook so
// the view repaints on transitions it did not itself initiate.
type sessionChangedMsg struct{}
