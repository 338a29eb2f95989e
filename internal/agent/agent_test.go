package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecializationIconHasDefault(t *testing.T) {
	for _, s := range Specializations() {
		assert.NotEmpty(t, s.Icon(), "icon for %s", s)
	}
	// Unknown values must still resolve to a defined glyph.
	assert.Equal(t, SpecGeneral.Icon(), Specialization("quantum").Icon())
}

func TestPersonalityIconHasDefault(t *testing.T) {
	for _, p := range Personalities() {
		assert.NotEmpty(t, p.Icon(), "icon for %s", p)
	}
	assert.Equal(t, PersFriendly.Icon(), Personality("sarcastic").Icon())
}

func TestIntroductionMentionsName(t *testing.T) {
	for _, s := range append(Specializations(), Specialization("quantum")) {
		assert.Contains(t, s.Introduction("Ada"), "Ada", "introduction for %s", s)
	}
}

func TestDraftValidate(t *testing.T) {
	assert.Error(t, Draft{Name: ""}.Validate())
	assert.Error(t, Draft{Name: "   "}.Validate())
	assert.NoError(t, Draft{Name: "Helper"}.Validate())
}

func TestNewFillsDefaults(t *testing.T) {
	a := New(Draft{Name: "  Helper  "})
	require.NotEmpty(t, a.ID)
	assert.Equal(t, "Helper", a.Name)
	assert.Equal(t, SpecGeneral, a.Specialization)
	assert.Equal(t, PersFriendly, a.Personality)
	assert.False(t, a.CreatedAt.IsZero())
	assert.False(t, a.HasInstructions())

	b := New(Draft{Name: "X", Specialization: SpecCoding, Personality: PersConcise, Instructions: "be terse"})
	assert.Equal(t, SpecCoding, b.Specialization)
	assert.True(t, b.HasInstructions())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMessageConstructors(t *testing.T) {
	u := NewUserMessage("hello", "agent-1")
	assert.Equal(t, SenderUser, u.Sender)
	assert.Equal(t, "agent-1", u.AgentID)
	require.NotEmpty(t, u.ID)

	r := NewAgentMessage("hi there", "agent-1").WithMetadata(Metadata{ModelUsed: "llama3", ResponseTimeMs: 42})
	assert.Equal(t, SenderAgent, r.Sender)
	require.NotNil(t, r.Metadata)
	assert.EqualValues(t, 42, r.Metadata.ResponseTimeMs)
	assert.NotEqual(t, u.ID, r.ID)
}
