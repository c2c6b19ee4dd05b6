package upatch

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var patchLanguages = map[string]bool{"diff": true, "patch": true, "udiff": true}

// ExtractPatchBlocks returns the contents of the fenced code blocks of a
// Markdown document that are tagged diff or patch, in document order.
func ExtractPatchBlocks(source []byte) ([]string, error) {
	var blocks []string
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if !patchLanguages[strings.ToLower(string(fenced.Language(source)))] {
			return ast.WalkSkipChildren, nil
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		blocks = append(blocks, content.String())
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}

// ExtractPatchText joins every patch block of a Markdown document into one
// patch stream.
func ExtractPatchText(source []byte) (string, error) {
	blocks, err := ExtractPatchBlocks(source)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, blk := range blocks {
		b.WriteString(blk)
		if !strings.HasSuffix(blk, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
