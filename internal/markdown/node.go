// Package markdown turns raw chat text written in an extended markdown
// dialect into a typed document tree and renders that tree for the
// terminal. The dialect adds callout blocks (::type:: text), keyboard
// keystrokes (++key++), highlights (==text==), inline math ($x$), and
// task-list glyph substitution on top of GFM.
package markdown

// Kind discriminates node types in the document tree.
type Kind int

const (
	KindDocument Kind = iota
	KindParagraph
	KindHeading
	KindList
	KindListItem
	KindTable
	KindTableRow
	KindTableCell
	KindBlockquote
	KindCodeBlock
	KindThematicBreak
	KindCallout

	KindText
	KindInlineCode
	KindLink
	KindEmphasis
	KindStrong
	KindStrikethrough
	KindInserted
	KindKeystroke
	KindMark
	KindMath
	KindHardBreak
)

var kindNames = map[Kind]string{
	KindDocument:      "document",
	KindParagraph:     "paragraph",
	KindHeading:       "heading",
	KindList:          "list",
	KindListItem:      "list_item",
	KindTable:         "table",
	KindTableRow:      "table_row",
	KindTableCell:     "table_cell",
	KindBlockquote:    "blockquote",
	KindCodeBlock:     "code_block",
	KindThematicBreak: "thematic_break",
	KindCallout:       "callout",
	KindText:          "text",
	KindInlineCode:    "inline_code",
	KindLink:          "link",
	KindEmphasis:      "emphasis",
	KindStrong:        "strong",
	KindStrikethrough: "strikethrough",
	KindInserted:      "inserted",
	KindKeystroke:     "keystroke",
	KindMark:          "mark",
	KindMath:          "math",
	KindHardBreak:     "hard_break",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Node is one element of the parsed document. Which fields are
// meaningful depends on Kind; unused fields stay zero.
type Node struct {
	Kind     Kind
	Children []*Node

	// Literal content for Text, InlineCode, CodeBlock, Keystroke,
	// Mark and Math nodes.
	Text string

	Level       int    // Heading: 1-6
	Ordered     bool   // List
	Start       int    // List: first ordinal of an ordered list
	Destination string // Link
	Lang        string // CodeBlock: fence language tag, may be empty
	Header      bool   // TableRow: true for the header row

	CalloutType string // Callout: type label, preserved verbatim
	CalloutIcon string // Callout: resolved icon
}

// Append adds children and returns the node for chaining.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// CodeBlocks collects every code block in document order. The TUI uses
// this for the copy-last-block affordance.
func (n *Node) CodeBlocks() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(node *Node) {
		if node.Kind == KindCodeBlock {
			out = append(out, node)
		}
		for _, c := range node.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// PlainText flattens the subtree into unstyled text. Used for fallback
// rendering and tests.
func (n *Node) PlainText() string {
	var out []byte
	var walk func(*Node)
	walk = func(node *Node) {
		switch node.Kind {
		case KindText, KindInlineCode, KindCodeBlock, KindKeystroke, KindMark, KindMath:
			out = append(out, node.Text...)
		case KindHardBreak:
			out = append(out, '\n')
		case KindCallout:
			out = append(out, node.Text...)
		}
		for _, c := range node.Children {
			walk(c)
		}
	}
	walk(n)
	return string(out)
}
