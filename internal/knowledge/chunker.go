// Package knowledge handles document chunking for vector indexing and
// the portable agent-knowledge export format.
package knowledge

import "strings"

const (
	// chunkRunes is the target chunk size.
	chunkRunes = 1000
	// overlapRunes is carried from the end of one chunk into the next
	// so a sentence split across a boundary is still retrievable.
	overlapRunes = 200
)

// Chunk splits content into overlapping pieces of roughly chunkRunes
// runes, preferring to break at paragraph boundaries. Whitespace-only
// input yields no chunks.
func Chunk(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	runes := []rune(content)
	if len(runes) <= chunkRunes {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkRunes
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// Prefer a paragraph break in the back half of the window,
		// then a sentence end, then a hard cut.
		cut := lastBoundary(runes[start:end], "\n\n")
		if cut < 0 {
			cut = lastBoundary(runes[start:end], ". ")
			if cut >= 0 {
				cut++ // keep the period with the sentence
			}
		}
		if cut < chunkRunes/2 {
			cut = chunkRunes
		}

		chunk := strings.TrimSpace(string(runes[start : start+cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := start + cut - overlapRunes
		if next <= start {
			next = start + cut
		}
		start = next
	}
	return chunks
}

// lastBoundary returns the rune index just past the last occurrence of
// sep in window, or -1.
func lastBoundary(window []rune, sep string) int {
	idx := strings.LastIndex(string(window), sep)
	if idx < 0 {
		return -1
	}
	return len([]rune(string(window)[:idx]))
}
