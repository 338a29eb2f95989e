package markdown

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kinds returns the top-level child kinds of a document, for quick
// shape assertions.
func kinds(doc *Node) []Kind {
	var out []Kind
	for _, c := range doc.Children {
		out = append(out, c.Kind)
	}
	return out
}

func TestParseEmpty(t *testing.T) {
	doc := Parse("")
	require.NotNil(t, doc)
	assert.Equal(t, KindDocument, doc.Kind)
	assert.Empty(t, doc.Children)
}

func TestParsePlainParagraph(t *testing.T) {
	doc := Parse("hello world")
	want := &Node{Kind: KindDocument, Children: []*Node{
		{Kind: KindParagraph, Children: []*Node{
			{Kind: KindText, Text: "hello world"},
		}},
	}}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseHeadingLevels(t *testing.T) {
	doc := Parse("# one\n\n### three")
	require.Len(t, doc.Children, 2)
	assert.Equal(t, 1, doc.Children[0].Level)
	assert.Equal(t, 3, doc.Children[1].Level)
}

func TestParseCalloutBlock(t *testing.T) {
	doc := Parse("::warning:: be careful")
	require.Len(t, doc.Children, 1)
	c := doc.Children[0]
	assert.Equal(t, KindCallout, c.Kind)
	assert.Equal(t, "warning", c.CalloutType)
	assert.Equal(t, "⚠️", c.CalloutIcon)
	assert.Equal(t, "be careful", c.Text)
}

func TestParseCalloutSplitsParagraph(t *testing.T) {
	doc := Parse("before\n::info:: middle\nafter")
	assert.Equal(t, []Kind{KindParagraph, KindCallout, KindParagraph}, kinds(doc))
	assert.Equal(t, "middle", doc.Children[1].Text)
}

func TestParseKeystrokeAndMarkInline(t *testing.T) {
	doc := Parse("press ++ctrl+c++ when ==ready==")
	require.Len(t, doc.Children, 1)
	p := doc.Children[0]
	var ks, mk *Node
	for _, in := range p.Children {
		switch in.Kind {
		case KindKeystroke:
			ks = in
		case KindMark:
			mk = in
		}
	}
	require.NotNil(t, ks, "keystroke node missing")
	require.NotNil(t, mk, "mark node missing")
	assert.Equal(t, "ctrl+c", ks.Text)
	assert.Equal(t, "ready", mk.Text)
}

func TestParseTaskListGlyphs(t *testing.T) {
	doc := Parse("- [x] done\n- [ ] todo\n- [X] loud")
	require.Len(t, doc.Children, 1)
	list := doc.Children[0]
	assert.Equal(t, KindList, list.Kind)
	require.Len(t, list.Children, 3)
	texts := make([]string, 0, 3)
	for _, item := range list.Children {
		texts = append(texts, item.PlainText())
	}
	assert.Equal(t, []string{"☑ done", "☐ todo", "☑ loud"}, texts)
}

func TestParseFencedCodeBlock(t *testing.T) {
	doc := Parse("```go\nfmt.Println(\"hi\")\n```")
	require.Len(t, doc.Children, 1)
	cb := doc.Children[0]
	assert.Equal(t, KindCodeBlock, cb.Kind)
	assert.Equal(t, "go", cb.Lang)
	assert.Equal(t, "fmt.Println(\"hi\")\n", cb.Text)
}

func TestParseCodeKeepsDialectLiterals(t *testing.T) {
	// Inside code, ++ and == are ordinary characters and must survive.
	doc := Parse("```\nx ==y== and ++z++\n```\n\nuse `==hi==` inline")
	require.GreaterOrEqual(t, len(doc.Children), 2)
	cb := doc.Children[0]
	assert.Equal(t, KindCodeBlock, cb.Kind)
	assert.Equal(t, "x ==y== and ++z++\n", cb.Text)

	var inline *Node
	for _, in := range doc.Children[1].Children {
		if in.Kind == KindInlineCode {
			inline = in
		}
	}
	require.NotNil(t, inline)
	assert.Equal(t, "==hi==", inline.Text)
}

func TestParseOrderedList(t *testing.T) {
	doc := Parse("3. three\n4. four")
	require.Len(t, doc.Children, 1)
	list := doc.Children[0]
	assert.True(t, list.Ordered)
	assert.Equal(t, 3, list.Start)
	assert.Len(t, list.Children, 2)
}

func TestParseTable(t *testing.T) {
	doc := Parse("| a | b |\n|---|---|\n| 1 | 2 |")
	require.Len(t, doc.Children, 1)
	table := doc.Children[0]
	assert.Equal(t, KindTable, table.Kind)
	require.Len(t, table.Children, 2)
	assert.True(t, table.Children[0].Header)
	assert.False(t, table.Children[1].Header)
	assert.Len(t, table.Children[0].Children, 2)
}

func TestParseStrikethroughAndAutolink(t *testing.T) {
	doc := Parse("~~gone~~ see https://example.com now")
	require.Len(t, doc.Children, 1)
	var strike, link *Node
	for _, in := range doc.Children[0].Children {
		switch in.Kind {
		case KindStrikethrough:
			strike = in
		case KindLink:
			link = in
		}
	}
	require.NotNil(t, strike)
	require.NotNil(t, link)
	assert.Equal(t, "gone", strike.PlainText())
	assert.Contains(t, link.Destination, "example.com")
}

func TestParseMathInline(t *testing.T) {
	doc := Parse("so $a^2+b^2=c^2$ then")
	var math *Node
	for _, in := range doc.Children[0].Children {
		if in.Kind == KindMath {
			math = in
		}
	}
	require.NotNil(t, math)
	assert.Equal(t, "a^2+b^2=c^2", math.Text)
}

func TestParseBlockquote(t *testing.T) {
	doc := Parse("> quoted *words*")
	require.Len(t, doc.Children, 1)
	q := doc.Children[0]
	assert.Equal(t, KindBlockquote, q.Kind)
	assert.Equal(t, "quoted words", strings.TrimSpace(q.PlainText()))
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"==unclosed",
		"++",
		"::::",
		"| broken | table\n|---|",
		"\x00stray\x01controls\x01",
		strings.Repeat("*", 500),
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Parse(in) }, "input %q", in)
	}
}

func TestParseCodeBlocksCollector(t *testing.T) {
	doc := Parse("```go\na\n```\n\ntext\n\n```\nb\n```")
	blocks := doc.CodeBlocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "go", blocks[0].Lang)
	assert.Equal(t, "", blocks[1].Lang)
}
