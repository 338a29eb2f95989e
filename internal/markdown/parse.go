package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// md is the shared structural parser: GFM tables, strikethrough and
// autolinks on top of CommonMark. The dialect's own syntax never reaches
// goldmark; it is rewritten to placeholders first.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.Linkify,
	),
)

// Parse converts raw message content into a document tree. It never
// fails: malformed input degrades to a plain-text paragraph and empty
// input yields an empty document.
func Parse(content string) (doc *Node) {
	doc = &Node{Kind: KindDocument}
	if content == "" {
		return doc
	}

	// The tree build must never take down the caller; fall back to
	// plain text if anything below panics.
	defer func() {
		if r := recover(); r != nil {
			doc = &Node{Kind: KindDocument}
			doc.Append((&Node{Kind: KindParagraph}).Append(
				&Node{Kind: KindText, Text: content},
			))
		}
	}()

	pre := preprocess(content)
	source := []byte(pre.text)
	root := md.Parser().Parse(text.NewReader(source))

	c := &converter{pre: pre, source: source}
	for child := root.FirstChild(); child != nil; child = child.NextSibling() {
		doc.Append(c.convertBlock(child)...)
	}
	return doc
}

type converter struct {
	pre    *preprocessed
	source []byte
}

// convertBlock maps one goldmark block node onto our tree. A single
// source block can expand into several nodes when callout placeholders
// split a paragraph.
func (c *converter) convertBlock(n ast.Node) []*Node {
	switch v := n.(type) {
	case *ast.Heading:
		h := &Node{Kind: KindHeading, Level: v.Level}
		h.Append(c.convertInlines(v)...)
		return []*Node{h}

	case *ast.Paragraph:
		return c.paragraphize(c.convertInlines(v))

	case *ast.TextBlock:
		return c.paragraphize(c.convertInlines(v))

	case *ast.Blockquote:
		q := &Node{Kind: KindBlockquote}
		for child := v.FirstChild(); child != nil; child = child.NextSibling() {
			q.Append(c.convertBlock(child)...)
		}
		return []*Node{q}

	case *ast.List:
		l := &Node{Kind: KindList, Ordered: v.IsOrdered(), Start: v.Start}
		for child := v.FirstChild(); child != nil; child = child.NextSibling() {
			l.Append(c.convertBlock(child)...)
		}
		return []*Node{l}

	case *ast.ListItem:
		item := &Node{Kind: KindListItem}
		for child := v.FirstChild(); child != nil; child = child.NextSibling() {
			item.Append(c.convertBlock(child)...)
		}
		return []*Node{item}

	case *ast.FencedCodeBlock:
		return []*Node{{
			Kind: KindCodeBlock,
			Lang: string(v.Language(c.source)),
			Text: c.pre.decode(c.blockLines(v)),
		}}

	case *ast.CodeBlock:
		return []*Node{{
			Kind: KindCodeBlock,
			Text: c.pre.decode(c.blockLines(v)),
		}}

	case *ast.ThematicBreak:
		return []*Node{{Kind: KindThematicBreak}}

	case *ast.HTMLBlock:
		// No HTML rendering surface in a terminal; degrade to text.
		raw := strings.TrimRight(c.blockLines(v), "\n")
		if raw == "" {
			return nil
		}
		p := &Node{Kind: KindParagraph}
		p.Append(&Node{Kind: KindText, Text: c.pre.decode(raw)})
		return []*Node{p}

	case *east.Table:
		t := &Node{Kind: KindTable}
		for child := v.FirstChild(); child != nil; child = child.NextSibling() {
			t.Append(c.convertBlock(child)...)
		}
		return []*Node{t}

	case *east.TableHeader:
		row := &Node{Kind: KindTableRow, Header: true}
		for cell := v.FirstChild(); cell != nil; cell = cell.NextSibling() {
			row.Append(c.convertBlock(cell)...)
		}
		return []*Node{row}

	case *east.TableRow:
		row := &Node{Kind: KindTableRow}
		for cell := v.FirstChild(); cell != nil; cell = cell.NextSibling() {
			row.Append(c.convertBlock(cell)...)
		}
		return []*Node{row}

	case *east.TableCell:
		cell := &Node{Kind: KindTableCell}
		cell.Append(c.convertInlines(v)...)
		return []*Node{cell}

	default:
		// Unknown block: keep the subtree's text so nothing is lost.
		if txt := c.rawText(n); txt != "" {
			p := &Node{Kind: KindParagraph}
			p.Append(&Node{Kind: KindText, Text: txt})
			return []*Node{p}
		}
		return nil
	}
}

// paragraphize wraps inline runs in paragraphs, hoisting callout nodes
// out as sibling blocks so a callout never renders inside a paragraph.
func (c *converter) paragraphize(inlines []*Node) []*Node {
	var out []*Node
	var run []*Node
	flush := func() {
		if len(run) > 0 {
			out = append(out, (&Node{Kind: KindParagraph}).Append(run...))
			run = nil
		}
	}
	for _, in := range inlines {
		if in.Kind == KindCallout {
			flush()
			out = append(out, in)
			continue
		}
		run = append(run, in)
	}
	flush()
	return out
}

// convertInlines maps the inline children of a block.
func (c *converter) convertInlines(parent ast.Node) []*Node {
	var out []*Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, c.convertInline(n)...)
	}
	return out
}

func (c *converter) convertInline(n ast.Node) []*Node {
	switch v := n.(type) {
	case *ast.Text:
		nodes := c.splitText(string(v.Segment.Value(c.source)))
		if v.HardLineBreak() {
			nodes = append(nodes, &Node{Kind: KindHardBreak})
		} else if v.SoftLineBreak() {
			nodes = append(nodes, &Node{Kind: KindText, Text: " "})
		}
		return nodes

	case *ast.String:
		return c.splitText(string(v.Value))

	case *ast.CodeSpan:
		return []*Node{{Kind: KindInlineCode, Text: c.pre.decode(c.rawText(v))}}

	case *ast.Emphasis:
		kind := KindEmphasis
		if v.Level >= 2 {
			kind = KindStrong
		}
		node := &Node{Kind: kind}
		node.Append(c.convertInlines(v)...)
		return []*Node{node}

	case *east.Strikethrough:
		node := &Node{Kind: KindStrikethrough}
		node.Append(c.convertInlines(v)...)
		return []*Node{node}

	case *ast.Link:
		link := &Node{Kind: KindLink, Destination: string(v.Destination)}
		link.Append(c.convertInlines(v)...)
		return []*Node{link}

	case *ast.AutoLink:
		url := string(v.URL(c.source))
		link := &Node{Kind: KindLink, Destination: url}
		link.Append(&Node{Kind: KindText, Text: string(v.Label(c.source))})
		return []*Node{link}

	case *ast.Image:
		// Terminal: render images as links to their source.
		link := &Node{Kind: KindLink, Destination: string(v.Destination)}
		link.Append(c.convertInlines(v)...)
		return []*Node{link}

	case *ast.RawHTML:
		var buf bytes.Buffer
		for i := 0; i < v.Segments.Len(); i++ {
			seg := v.Segments.At(i)
			buf.Write(seg.Value(c.source))
		}
		return c.splitText(buf.String())

	default:
		if txt := c.rawText(n); txt != "" {
			return c.splitText(txt)
		}
		return nil
	}
}

// splitText expands placeholder sequences inside a text run into their
// typed nodes.
func (c *converter) splitText(s string) []*Node {
	if s == "" {
		return nil
	}
	var out []*Node
	for s != "" {
		spanLoc := spanPlaceholderRe.FindStringSubmatchIndex(s)
		calLoc := calloutPlaceholderRe.FindStringSubmatchIndex(s)

		loc, isCallout := spanLoc, false
		if loc == nil || (calLoc != nil && calLoc[0] < loc[0]) {
			loc, isCallout = calLoc, true
		}
		if loc == nil {
			out = append(out, &Node{Kind: KindText, Text: s})
			break
		}
		if loc[0] > 0 {
			out = append(out, &Node{Kind: KindText, Text: s[:loc[0]]})
		}
		idx := atoi(s[loc[2]:loc[3]])
		if isCallout {
			if idx >= 0 && idx < len(c.pre.callouts) {
				cal := c.pre.callouts[idx]
				out = append(out, &Node{
					Kind:        KindCallout,
					CalloutType: cal.typ,
					CalloutIcon: cal.icon,
					Text:        cal.body,
				})
			}
		} else if idx >= 0 && idx < len(c.pre.spans) {
			sp := c.pre.spans[idx]
			out = append(out, &Node{Kind: sp.kind, Text: sp.text})
		}
		s = s[loc[1]:]
	}
	return out
}

// blockLines joins the raw source lines of a block node.
func (c *converter) blockLines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(c.source))
	}
	return buf.String()
}

// rawText collects the literal text under a node, placeholders intact.
func (c *converter) rawText(n ast.Node) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		switch v := node.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(c.source))
		case *ast.String:
			buf.Write(v.Value)
		}
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			walk(child)
		}
	}
	walk(n)
	return buf.String()
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}
