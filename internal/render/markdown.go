package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Raw HTML in generated documents is dropped, not passed through.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// HTML renders GitHub-flavored markdown to HTML for the preview pane.
func HTML(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Outline summarizes a rendered document.
type Outline struct {
	Headings   []string `json:"headings"`
	Tables     int      `json:"tables"`
	CodeBlocks int      `json:"code_blocks"`
}

// Inspect walks the markdown AST and collects top-level structure: the text of
// level 1 and 2 headings, and the number of tables and fenced code blocks.
func Inspect(src string) Outline {
	body := []byte(src)
	root := md.Parser().Parse(text.NewReader(body))

	var out Outline
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			if node.Level <= 2 {
				out.Headings = append(out.Headings, headingText(node, body))
			}
			return gmast.WalkSkipChildren, nil
		case *extast.Table:
			out.Tables++
			return gmast.WalkSkipChildren, nil
		case *gmast.FencedCodeBlock:
			out.CodeBlocks++
		}
		return gmast.WalkContinue, nil
	})
	return out
}

func headingText(h *gmast.Heading, src []byte) string {
	var b bytes.Buffer
	_ = gmast.Walk(h, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*gmast.Text); ok {
				b.Write(t.Segment.Value(src))
			}
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}
