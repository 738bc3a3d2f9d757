// Package highlight colours source files for the reference preview.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// StyleName is the chroma style used for syntax colours
var StyleName = "nord"

// Lexer picks a lexer by file name, then by content
func Lexer(path, content string) chroma.Lexer {
	l := lexers.Match(path)
	if l == nil {
		l = lexers.Analyse(content)
	}
	if l == nil {
		l = lexers.Fallback
	}
	return chroma.Coalesce(l)
}

// Source renders content with syntax colours and paints the byte range
// [start, end) with span instead. The output has the same lines as content.
func Source(path, content string, start, end int, span lipgloss.Style) string {
	start = clamp(start, 0, len(content))
	end = clamp(end, start, len(content))

	it, err := Lexer(path, content).Tokenise(&chroma.TokeniseOptions{State: "root"}, content)
	if err != nil {
		return paint(lipgloss.NewStyle(), content[:start]) + paint(span, content[start:end]) + content[end:]
	}

	theme := styles.Get(StyleName)
	var b strings.Builder
	offset := 0
	for tok := it(); tok != chroma.EOF && offset < len(content); tok = it() {
		text := tok.Value
		if rest := len(content) - offset; len(text) > rest {
			text = text[:rest]
		}
		tokStart, tokEnd := offset, offset+len(text)
		offset = tokEnd

		base := tokenStyle(theme, tok.Type)
		// split the token where it crosses the span boundaries
		cut1 := clamp(start, tokStart, tokEnd) - tokStart
		cut2 := clamp(end, tokStart, tokEnd) - tokStart
		b.WriteString(paint(base, text[:cut1]))
		b.WriteString(paint(span, text[cut1:cut2]))
		b.WriteString(paint(base, text[cut2:]))
	}
	if offset < len(content) {
		b.WriteString(content[offset:])
	}
	return b.String()
}

func tokenStyle(theme *chroma.Style, t chroma.TokenType) lipgloss.Style {
	entry := theme.Get(t)
	s := lipgloss.NewStyle()
	if entry.Colour.IsSet() {
		s = s.Foreground(lipgloss.Color(entry.Colour.String()))
	}
	if entry.Bold == chroma.Yes {
		s = s.Bold(true)
	}
	if entry.Italic == chroma.Yes {
		s = s.Italic(true)
	}
	return s
}

// paint styles text line by line so multi-line pieces are not padded into
// a block
func paint(s lipgloss.Style, text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = s.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
