// Package chunker splits SOP document bodies into bounded, overlapping
// text segments along paragraph boundaries.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxLength is the upper bound on chunk size in characters.
	DefaultMaxLength = 500

	// DefaultOverlap is the number of trailing characters carried from one
	// chunk into the next to preserve local context across the boundary.
	DefaultOverlap = 50
)

// paragraphPattern matches blank-line paragraph separators.
var paragraphPattern = regexp.MustCompile(`\n\s*\n`)

// Chunker splits text into chunks of at most MaxLength characters,
// preferring paragraph boundaries and falling back to whitespace splits
// inside oversized paragraphs.
type Chunker struct {
	maxLength int
	overlap   int
}

// New creates a Chunker. Non-positive arguments fall back to the defaults;
// an overlap that would not fit inside a chunk is reduced to a tenth of
// the maximum length.
func New(maxLength, overlap int) *Chunker {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= maxLength {
		overlap = maxLength / 10
	}
	return &Chunker{
		maxLength: maxLength,
		overlap:   overlap,
	}
}

// MaxLength returns the configured chunk size bound.
func (c *Chunker) MaxLength() int { return c.maxLength }

// Overlap returns the configured overlap width.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into ordered chunks. The returned slice preserves
// document order; a chunk's ordinal index is its position in the slice.
// Empty input yields no chunks; input that already fits the bound yields
// exactly one chunk equal to the trimmed input.
func (c *Chunker) Chunk(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) <= c.maxLength {
		return []string{trimmed}
	}

	var chunks []string
	var current string

	for _, para := range paragraphPattern.Split(trimmed, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// A paragraph that cannot fit in any chunk is split at whitespace.
		if len(para) > c.maxLength {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			pieces := c.splitOversized(para)
			chunks = append(chunks, pieces[:len(pieces)-1]...)
			current = pieces[len(pieces)-1]
			continue
		}

		switch {
		case current == "":
			current = para
		case len(current)+len(para) > c.maxLength:
			// Emit the buffer and seed the next chunk with its tail.
			chunks = append(chunks, current)
			current = overlapTail(current, c.overlap) + " " + para
		default:
			current += "\n\n" + para
		}
	}

	if current = strings.TrimSpace(current); current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitOversized splits a single paragraph longer than maxLength into
// windows cut at the nearest whitespace at or before the limit, carrying
// the overlap into each following window. Always returns at least one
// piece. Every cut lands on a rune boundary so multibyte text is never
// torn apart.
func (c *Chunker) splitOversized(para string) []string {
	var pieces []string
	rest := para
	for len(rest) > c.maxLength {
		cut := strings.LastIndexAny(rest[:c.maxLength+1], " \t\n")
		if cut <= 0 {
			// One unbroken token: hard cut at the limit.
			cut = prevRuneBoundary(rest, c.maxLength)
			if cut == 0 {
				_, size := utf8.DecodeRuneInString(rest)
				cut = size
			}
		}
		pieces = append(pieces, strings.TrimSpace(rest[:cut]))

		start := cut - c.overlap
		if start <= 0 {
			start = cut
		} else if start = nextRuneBoundary(rest, start); start > cut {
			start = cut
		}
		rest = strings.TrimLeft(rest[start:], " \t\n")
	}
	if rest != "" {
		pieces = append(pieces, rest)
	}
	if len(pieces) == 0 {
		pieces = []string{""}
	}
	return pieces
}

// overlapTail returns the trailing n bytes of s, shrunk to the nearest
// rune boundary so the tail is always valid UTF-8.
func overlapTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[nextRuneBoundary(s, len(s)-n):]
}

// prevRuneBoundary returns the largest index at or before n that starts
// a rune in s.
func prevRuneBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

// nextRuneBoundary returns the smallest index at or after n that starts
// a rune in s.
func nextRuneBoundary(s string, n int) int {
	for n < len(s) && !utf8.RuneStart(s[n]) {
		n++
	}
	return n
}
