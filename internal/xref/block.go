// Package xref resolves a file:line reference taken from a result row into
// the file's content plus a highlight span around the statement that
// encloses the line.
//
// Block detection is heuristic text scanning, not parsing. The default
// patterns are tuned for assignment-style sources ("name = value" lines
// followed by indented continuation lines) and will pick odd spans in
// other languages. When no block is found the span falls back to the
// referenced line alone.
package xref

import (
	"regexp"
	"strings"
)

var (
	// BlockEndPattern marks the line that ends the preceding statement:
	// optional indentation, an optional target and an assignment operator.
	BlockEndPattern = regexp.MustCompile(`^[ \t]*(?:[\w.\[\]"']+[ \t]*)?[-+*/%&|^:]?=(?:[^=]|$)`)

	// BlockStartPattern marks the first line of a statement: indentation
	// followed by a word. Unindented lines never start a block.
	BlockStartPattern = regexp.MustCompile(`^[ \t]+[A-Za-z_]\w*`)
)

// Span is a half-open byte range [Start, End) into file content
type Span struct {
	Start, End int
	// Block is false when the search failed and the span covers only the
	// referenced line.
	Block bool
}

// Len returns the span length in bytes
func (s Span) Len() int { return s.End - s.Start }

// lineIndex holds the byte offset at which every line starts
type lineIndex []int

func indexLines(content string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' && i+1 < len(content) {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// text returns line i without its terminator
func (li lineIndex) text(content string, i int) string {
	end := len(content)
	if i+1 < len(li) {
		end = li[i+1]
	}
	line := content[li[i]:end]
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// clamp converts a 1-based line number into a valid 0-based index
func (li lineIndex) clamp(line int) int {
	i := line - 1
	if i < 0 {
		return 0
	}
	if i >= len(li) {
		return len(li) - 1
	}
	return i
}

// FindBlock locates the block around a 1-based line using the default
// patterns. See Finder.Find.
func FindBlock(content string, line int) Span {
	return defaultFinder.Find(content, line)
}

// Finder scans for block boundaries with a pair of line patterns
type Finder struct {
	End   *regexp.Regexp
	Start *regexp.Regexp
}

var defaultFinder = Finder{End: BlockEndPattern, Start: BlockStartPattern}

// Find scans backward from the referenced line for the nearest line
// matching End, then forward from there for the next line matching Start.
// The span runs from the start of that line up to the start of the
// referenced line. If either scan fails, or the start line is not before
// the referenced line, the span is the referenced line itself.
// Line numbers outside the file are clamped to its first or last line.
func (f Finder) Find(content string, line int) Span {
	li := indexLines(content)
	target := li.clamp(line)
	targetStart := li[target]

	fallback := Span{Start: targetStart, End: targetStart + len(li.text(content, target))}

	end := -1
	for i := target - 1; i >= 0; i-- {
		if f.End.MatchString(li.text(content, i)) {
			end = i
			break
		}
	}
	if end < 0 {
		return fallback
	}

	for j := end + 1; j < target; j++ {
		if f.Start.MatchString(li.text(content, j)) {
			return Span{Start: li[j], End: targetStart, Block: true}
		}
	}
	return fallback
}
