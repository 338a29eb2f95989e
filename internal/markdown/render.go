package markdown

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// StyleSet holds the lipgloss styles the renderer applies while walking
// a document tree. Callers derive one from their theme; DefaultStyles
// gives a terminal-safe baseline.
type StyleSet struct {
	Text       lipgloss.Style
	Muted      lipgloss.Style
	Heading    lipgloss.Style
	Link       lipgloss.Style
	InlineCode lipgloss.Style
	Keystroke  lipgloss.Style
	Mark       lipgloss.Style
	Quote      lipgloss.Style
	CodeFrame  lipgloss.Style
	CodeHeader lipgloss.Style
	Callout    lipgloss.Style
	AgentName  lipgloss.Style
}

// DefaultStyles returns a baseline style set using ANSI colors.
func DefaultStyles() StyleSet {
	return StyleSet{
		Text:       lipgloss.NewStyle(),
		Muted:      lipgloss.NewStyle().Faint(true),
		Heading:    lipgloss.NewStyle().Bold(true),
		Link:       lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true),
		InlineCode: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		Keystroke:  lipgloss.NewStyle().Bold(true).Reverse(true),
		Mark:       lipgloss.NewStyle().Background(lipgloss.Color("11")).Foreground(lipgloss.Color("0")),
		Quote:      lipgloss.NewStyle().Faint(true).Italic(true),
		CodeFrame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1),
		CodeHeader: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Callout: lipgloss.NewStyle().
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			PaddingLeft(1),
		AgentName: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
	}
}

// Renderer walks a document tree and produces styled terminal output.
type Renderer struct {
	styles    StyleSet
	width     int
	copies    *CopyTracker
	codeTheme string
}

// NewRenderer builds a renderer. The tracker may be nil when no copy
// affordance is wanted (e.g. one-shot CLI output).
func NewRenderer(styles StyleSet, width int, copies *CopyTracker) *Renderer {
	if width <= 0 {
		width = 80
	}
	return &Renderer{styles: styles, width: width, copies: copies, codeTheme: "monokai"}
}

// SetWidth adjusts the wrap width on terminal resize.
func (r *Renderer) SetWidth(width int) {
	if width > 0 {
		r.width = width
	}
}

// RenderMessage formats one chat message for display. Agent messages
// with a known agent name get a header line; a supplied response
// latency (in milliseconds, 0 for none) is appended to it.
func (r *Renderer) RenderMessage(content, sender, agentName string, latencyMs int64) string {
	body := r.Render(Parse(content))
	if sender != "agent" || agentName == "" {
		return body
	}
	header := r.styles.AgentName.Render(agentName)
	if latencyMs > 0 {
		header += r.styles.Muted.Render(fmt.Sprintf("  %dms", latencyMs))
	}
	if body == "" {
		return header
	}
	return header + "\n" + body
}

// TypingIndicator renders the "agent is typing" line shown while a
// reply is outstanding. Purely presentational.
func (r *Renderer) TypingIndicator(agentName string) string {
	return r.styles.Muted.Render(fmt.Sprintf("%s is typing …", agentName))
}

// Render walks the document and joins its blocks.
func (r *Renderer) Render(doc *Node) string {
	if doc == nil {
		return ""
	}
	var blocks []string
	for _, child := range doc.Children {
		if s := r.renderBlock(child, 0); s != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (r *Renderer) renderBlock(n *Node, depth int) string {
	switch n.Kind {
	case KindParagraph:
		return r.styles.Text.Width(r.wrapWidth(depth)).Render(r.renderInlines(n.Children))

	case KindHeading:
		marker := strings.Repeat("#", n.Level)
		return r.styles.Heading.Render(marker + " " + r.renderInlines(n.Children))

	case KindBlockquote:
		var inner []string
		for _, c := range n.Children {
			inner = append(inner, r.renderBlock(c, depth+1))
		}
		return r.styles.Quote.Render(prefixLines(strings.Join(inner, "\n"), "│ "))

	case KindList:
		return r.renderList(n, depth)

	case KindCodeBlock:
		return r.renderCodeBlock(n)

	case KindThematicBreak:
		return r.styles.Muted.Render(strings.Repeat("─", r.wrapWidth(depth)))

	case KindCallout:
		frame := r.styles.Callout.BorderForeground(calloutColor(n.CalloutType))
		title := fmt.Sprintf("%s %s", n.CalloutIcon, strings.ToUpper(n.CalloutType))
		return frame.Render(r.styles.Text.Bold(true).Render(title) + "\n" + n.Text)

	case KindTable:
		return r.renderTable(n)

	default:
		return r.renderInlines([]*Node{n})
	}
}

func (r *Renderer) renderList(n *Node, depth int) string {
	var lines []string
	ordinal := n.Start
	if ordinal == 0 {
		ordinal = 1
	}
	for _, item := range n.Children {
		marker := "• "
		if n.Ordered {
			marker = fmt.Sprintf("%d. ", ordinal)
			ordinal++
		}
		var inner []string
		for _, c := range item.Children {
			inner = append(inner, r.renderBlock(c, depth+1))
		}
		body := strings.Join(inner, "\n")
		indent := strings.Repeat("  ", depth)
		lines = append(lines, indent+marker+prefixContinuation(body, indent+strings.Repeat(" ", len(marker))))
	}
	return strings.Join(lines, "\n")
}

// renderCodeBlock renders a fenced block. A language tag gets syntax
// highlighting plus a header with the tag and the copy control; an
// untagged block renders as a plain framed block with no chrome.
func (r *Renderer) renderCodeBlock(n *Node) string {
	code := strings.TrimRight(n.Text, "\n")
	if n.Lang == "" {
		return r.styles.CodeFrame.Render(code)
	}
	control := "⧉ copy"
	if r.copies != nil && r.copies.Copied(n.Text) {
		control = "✓ copied"
	}
	header := r.styles.CodeHeader.Render(n.Lang) + "  " + r.styles.Muted.Render(control)
	return header + "\n" + r.styles.CodeFrame.Render(r.highlight(code, n.Lang))
}

func (r *Renderer) highlight(code, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	style := chromastyles.Get(r.codeTheme)
	if style == nil {
		style = chromastyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, it); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (r *Renderer) renderTable(n *Node) string {
	var rows [][]string
	var header bool
	for _, row := range n.Children {
		if row.Kind != KindTableRow {
			continue
		}
		var cells []string
		for _, cell := range row.Children {
			cells = append(cells, r.renderInlines(cell.Children))
		}
		if row.Header {
			header = true
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return ""
	}
	widths := columnWidths(rows)
	var out []string
	for i, cells := range rows {
		var padded []string
		for j, cell := range cells {
			padded = append(padded, pad(cell, widths[j]))
		}
		line := strings.Join(padded, "  ")
		if i == 0 && header {
			line = r.styles.Heading.Render(line)
			out = append(out, line, r.styles.Muted.Render(strings.Repeat("─", lipgloss.Width(line))))
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func (r *Renderer) renderInlines(nodes []*Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch n.Kind {
		case KindText:
			sb.WriteString(n.Text)
		case KindInlineCode:
			sb.WriteString(r.styles.InlineCode.Render(n.Text))
		case KindKeystroke:
			sb.WriteString(r.styles.Keystroke.Render(" " + n.Text + " "))
		case KindMark:
			sb.WriteString(r.styles.Mark.Render(n.Text))
		case KindMath:
			sb.WriteString(r.styles.InlineCode.Italic(true).Render(n.Text))
		case KindEmphasis:
			sb.WriteString(r.styles.Text.Italic(true).Render(r.renderInlines(n.Children)))
		case KindStrong:
			sb.WriteString(r.styles.Text.Bold(true).Render(r.renderInlines(n.Children)))
		case KindStrikethrough:
			sb.WriteString(r.styles.Text.Strikethrough(true).Render(r.renderInlines(n.Children)))
		case KindInserted:
			sb.WriteString(r.styles.Text.Underline(true).Render(r.renderInlines(n.Children)))
		case KindLink:
			label := r.renderInlines(n.Children)
			sb.WriteString(r.styles.Link.Render(label))
			if n.Destination != "" && label != n.Destination {
				sb.WriteString(r.styles.Muted.Render(" (" + n.Destination + ")"))
			}
		case KindHardBreak:
			sb.WriteString("\n")
		default:
			sb.WriteString(n.PlainText())
		}
	}
	return sb.String()
}

func (r *Renderer) wrapWidth(depth int) int {
	w := r.width - depth*2
	if w < 20 {
		w = 20
	}
	return w
}

func calloutColor(typ string) lipgloss.Color {
	switch strings.ToLower(typ) {
	case "warning":
		return lipgloss.Color("11")
	case "danger":
		return lipgloss.Color("9")
	case "success":
		return lipgloss.Color("10")
	case "tip":
		return lipgloss.Color("14")
	case "note":
		return lipgloss.Color("13")
	default:
		return lipgloss.Color("12")
	}
}

func prefixLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

// prefixContinuation indents every line after the first, aligning list
// item bodies under their marker.
func prefixContinuation(s, indent string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = indent + lines[i]
	}
	return strings.Join(lines, "\n")
}

func columnWidths(rows [][]string) []int {
	var widths []int
	for _, cells := range rows {
		for j, cell := range cells {
			for j >= len(widths) {
				widths = append(widths, 0)
			}
			if w := lipgloss.Width(cell); w > widths[j] {
				widths[j] = w
			}
		}
	}
	return widths
}

func pad(s string, width int) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
