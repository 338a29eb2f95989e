package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Task-list marker replacements.
const (
	CheckedGlyph   = "☑"
	UncheckedGlyph = "☐"
)

// CalloutIcon resolves the icon for a callout type. Unknown types keep
// their label for styling but fall back to the info icon.
func CalloutIcon(typ string) string {
	switch strings.ToLower(typ) {
	case "info":
		return "ℹ️"
	case "warning":
		return "⚠️"
	case "tip":
		return "💡"
	case "danger":
		return "🚨"
	case "success":
		return "✅"
	case "note":
		return "📝"
	default:
		return "ℹ️"
	}
}

// Placeholder markers. Control characters are used because they cannot
// appear in terminal chat input and survive the structural parse as
// ordinary text.
const (
	calloutMark = "\x00"
	spanMark    = "\x01"
)

var (
	calloutRe   = regexp.MustCompile(`(?m)^::([A-Za-z0-9_-]+)::[ \t]*(.*)$`)
	keystrokeRe = regexp.MustCompile(`\+\+(.+?)\+\+`)
	markRe      = regexp.MustCompile(`==(.+?)==`)
	mathRe      = regexp.MustCompile(`\$([^$\n]+)\$`)
	checkedRe   = regexp.MustCompile(`(?mi)^([ \t]*[-*][ \t]+)\[x\][ \t]*`)
	uncheckedRe = regexp.MustCompile(`(?m)^([ \t]*[-*][ \t]+)\[ \][ \t]*`)

	calloutPlaceholderRe = regexp.MustCompile(`\x00cal:(\d+)\x00`)
	spanPlaceholderRe    = regexp.MustCompile(`\x01(\d+)\x01`)
)

type callout struct {
	typ  string
	icon string
	body string
}

type span struct {
	kind Kind
	text string
}

// preprocessed is the outcome of the rewrite pipeline: text ready for
// the structural parse plus capture tables for the extracted pieces.
// Keeping captures out-of-band makes callout bodies and keystroke/mark
// contents opaque to later rewrite stages, as the dialect requires.
type preprocessed struct {
	text     string
	callouts []callout
	spans    []span
}

// preprocess applies the dialect rewrites in their fixed order:
// callouts, keystrokes, highlights, task-list markers, inline math.
func preprocess(input string) *preprocessed {
	p := &preprocessed{}

	// 1. Callouts: greedy to end of line, extracted first so no later
	// stage can disturb their bodies. Surrounding blank lines force the
	// placeholder into its own block.
	p.text = calloutRe.ReplaceAllStringFunc(input, func(match string) string {
		sub := calloutRe.FindStringSubmatch(match)
		idx := len(p.callouts)
		p.callouts = append(p.callouts, callout{
			typ:  sub[1],
			icon: CalloutIcon(sub[1]),
			body: sub[2],
		})
		return fmt.Sprintf("\n%scal:%d%s\n", calloutMark, idx, calloutMark)
	})

	// 2. Keystrokes: contents are verbatim, never re-scanned.
	p.text = keystrokeRe.ReplaceAllStringFunc(p.text, func(match string) string {
		sub := keystrokeRe.FindStringSubmatch(match)
		return p.capture(KindKeystroke, sub[1])
	})

	// 3. Highlights.
	p.text = markRe.ReplaceAllStringFunc(p.text, func(match string) string {
		sub := markRe.FindStringSubmatch(match)
		return p.capture(KindMark, sub[1])
	})

	// 4. Task-list markers, line-anchored, case-insensitive for [x].
	p.text = checkedRe.ReplaceAllString(p.text, "${1}"+CheckedGlyph+" ")
	p.text = uncheckedRe.ReplaceAllString(p.text, "${1}"+UncheckedGlyph+" ")

	// 5. Inline math, part of the structural dialect.
	p.text = mathRe.ReplaceAllStringFunc(p.text, func(match string) string {
		sub := mathRe.FindStringSubmatch(match)
		return p.capture(KindMath, sub[1])
	})

	return p
}

func (p *preprocessed) capture(kind Kind, text string) string {
	idx := len(p.spans)
	p.spans = append(p.spans, span{kind: kind, text: text})
	return fmt.Sprintf("%s%d%s", spanMark, idx, spanMark)
}

// decode restores placeholder sequences to their literal source form.
// Applied to code spans and fenced blocks, where the dialect's inline
// syntax has no meaning and the original characters must survive.
func (p *preprocessed) decode(s string) string {
	if !strings.ContainsAny(s, calloutMark+spanMark) {
		return s
	}
	s = spanPlaceholderRe.ReplaceAllStringFunc(s, func(match string) string {
		idx, err := strconv.Atoi(spanPlaceholderRe.FindStringSubmatch(match)[1])
		if err != nil || idx >= len(p.spans) {
			return match
		}
		sp := p.spans[idx]
		switch sp.kind {
		case KindKeystroke:
			return "++" + sp.text + "++"
		case KindMark:
			return "==" + sp.text + "=="
		case KindMath:
			return "$" + sp.text + "$"
		default:
			return sp.text
		}
	})
	s = calloutPlaceholderRe.ReplaceAllStringFunc(s, func(match string) string {
		idx, err := strconv.Atoi(calloutPlaceholderRe.FindStringSubmatch(match)[1])
		if err != nil || idx >= len(p.callouts) {
			return match
		}
		c := p.callouts[idx]
		return "::" + c.typ + ":: " + c.body
	})
	return s
}
