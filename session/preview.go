package session

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// previewLength caps the denormalized thread preview in runes.
const previewLength = 80

var previewMarkdown = goldmark.New()

// plainTextPreview renders markdown down to a single line of plain text and
// truncates it to limit runes. Assistant replies are markdown; the thread list
// wants readable text, not raw syntax.
func plainTextPreview(markdown string, limit int) string {
	source := []byte(markdown)
	doc := previewMarkdown.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.AutoLink:
			b.Write(t.URL(source))
		case *ast.Image:
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			b.Write(segmentText(t.Lines(), source))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			b.Write(segmentText(t.Lines(), source))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	plain := strings.Join(strings.Fields(b.String()), " ")
	if limit > 0 && utf8.RuneCountInString(plain) > limit {
		runes := []rune(plain)
		plain = strings.TrimSpace(string(runes[:limit])) + "…"
	}
	return plain
}

func segmentText(lines *text.Segments, source []byte) []byte {
	var out []byte
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, seg.Value(source)...)
		out = append(out, ' ')
	}
	return out
}
