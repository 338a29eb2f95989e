package markdown

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(copies *CopyTracker) *Renderer {
	return NewRenderer(DefaultStyles(), 80, copies)
}

func TestRenderMessageAgentHeader(t *testing.T) {
	r := newTestRenderer(nil)

	out := r.RenderMessage("hello", "agent", "Luna", 230)
	assert.Contains(t, out, "Luna")
	assert.Contains(t, out, "230ms")
	assert.Contains(t, out, "hello")

	// No latency supplied: header carries only the name.
	out = r.RenderMessage("hi", "agent", "Luna", 0)
	assert.Contains(t, out, "Luna")
	assert.NotContains(t, out, "ms")

	// User messages never get the header.
	out = r.RenderMessage("hello", "user", "Luna", 230)
	assert.NotContains(t, out, "Luna")
}

func TestRenderCodeBlockChrome(t *testing.T) {
	r := newTestRenderer(nil)

	tagged := r.Render(Parse("```go\nfmt.Println(1)\n```"))
	assert.Contains(t, tagged, "go")
	assert.Contains(t, tagged, "copy")

	untagged := r.Render(Parse("```\nplain\n```"))
	assert.Contains(t, untagged, "plain")
	assert.NotContains(t, untagged, "copy", "untagged blocks get no copy chrome")
}

func TestRenderCopiedAcknowledgement(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tracker := NewCopyTracker(
		WithClock(func() time.Time { return now }),
		WithClipboard(func(string) error { return nil }),
	)
	r := newTestRenderer(tracker)

	doc := Parse("```go\na()\n```")
	require.Len(t, doc.CodeBlocks(), 1)
	code := doc.CodeBlocks()[0].Text

	assert.Contains(t, r.Render(doc), "copy")
	require.NoError(t, tracker.Copy(code))
	assert.Contains(t, r.Render(doc), "copied")

	now = now.Add(2 * time.Second)
	out := r.Render(doc)
	assert.Contains(t, out, "copy")
	assert.NotContains(t, out, "copied")
}

func TestRenderCalloutShowsIconAndLabel(t *testing.T) {
	r := newTestRenderer(nil)
	out := r.Render(Parse("::danger:: do not do this"))
	assert.Contains(t, out, "🚨")
	assert.Contains(t, out, "DANGER")
	assert.Contains(t, out, "do not do this")
}

func TestRenderListsAndTables(t *testing.T) {
	r := newTestRenderer(nil)

	list := r.Render(Parse("1. first\n2. second"))
	assert.Contains(t, list, "1. first")
	assert.Contains(t, list, "2. second")

	table := r.Render(Parse("| h1 | h2 |\n|---|---|\n| a | b |"))
	assert.Contains(t, table, "h1")
	assert.Contains(t, table, "a")
}

func TestRenderFallsBackToPlainText(t *testing.T) {
	r := newTestRenderer(nil)
	out := r.Render(Parse("just words, no markup"))
	assert.Equal(t, "just words, no markup", strings.TrimSpace(stripANSI(out)))
}

func TestTypingIndicator(t *testing.T) {
	r := newTestRenderer(nil)
	out := r.TypingIndicator("Luna")
	assert.Contains(t, out, "Luna")
	assert.Contains(t, out, "typing")
}

// stripANSI removes escape sequences so assertions can target content.
func stripANSI(s string) string {
	var sb strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
