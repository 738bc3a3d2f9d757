package xref

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sample = "total = compute(\n" +
	"    a,\n" +
	"    b)\n" +
	"print(total)\n"

func TestFindBlock(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		line      int
		want      string
		wantBlock bool
	}{
		{name: "continuation block", content: sample, line: 3, want: "    a,\n", wantBlock: true},
		{name: "block spans several lines", content: sample, line: 4, want: "    a,\n    b)\n", wantBlock: true},
		{name: "no assignment above", content: "alpha\nbeta\ngamma\n", line: 2, want: "beta"},
		{name: "assignment directly above", content: "x = 1\ny\n", line: 2, want: "y"},
		{name: "no statement start between", content: "x = 1\n\n  )\n", line: 3, want: "  )"},
		{name: "equality is not assignment", content: "if a == b\n  c\nd\n", line: 3, want: "d"},
		{name: "first line", content: sample, line: 1, want: "total = compute("},
		{name: "line zero clamps to first", content: sample, line: 0, want: "total = compute("},
		{name: "negative line clamps to first", content: sample, line: -5, want: "total = compute("},
		{name: "past end clamps to last", content: sample, line: 99, want: "    a,\n    b)\n", wantBlock: true},
		{name: "empty file", content: "", line: 1, want: ""},
		{name: "no trailing newline", content: "a\nb", line: 2, want: "b"},
		{name: "crlf", content: "x = 1\r\n  y\r\nz\r\n", line: 3, want: "  y\r\n", wantBlock: true},
		{name: "compound operator", content: "n += 1\n  m\nk\n", line: 3, want: "  m\n", wantBlock: true},
		{name: "unindented line does not start a block", content: "x = 1\ny\n  z\nw\n", line: 4, want: "  z\n", wantBlock: true},
		{name: "only unindented lines between", content: "x = 1\ny\nw\n", line: 3, want: "w"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span := FindBlock(tt.content, tt.line)
			assert.GreaterOrEqual(t, span.Start, 0)
			assert.LessOrEqual(t, span.Start, span.End)
			assert.LessOrEqual(t, span.End, len(tt.content))
			assert.Equal(t, tt.want, tt.content[span.Start:span.End])
			assert.Equal(t, tt.wantBlock, span.Block)
		})
	}
}

func TestFindBlock_EndsAtTargetLineStart(t *testing.T) {
	span := FindBlock(sample, 3)
	assert.Equal(t, strings.Index(sample, "    b)"), span.End)
	assert.Equal(t, strings.Index(sample, "    a,"), span.Start)
	assert.Equal(t, 7, span.Len())
}

func TestFinder_CustomPatterns(t *testing.T) {
	f := Finder{
		End:   regexp.MustCompile(`;\s*$`),
		Start: regexp.MustCompile(`^\s*\S`),
	}
	content := "int a = 1;\nqDebug()\n  << x\n  << y;\n"
	span := f.Find(content, 4)
	assert.True(t, span.Block)
	assert.Equal(t, "qDebug()\n  << x\n", content[span.Start:span.End])
}
