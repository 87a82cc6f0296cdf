package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// markdownParser is stateless and safe to share across calls.
var markdownParser = goldmark.New(
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// markdownPages splits a markdown file into sections at H1 and H2
// boundaries, treating each section as one page. The section's header
// hierarchy replaces the raw heading line so retrieval keeps its context
// without repeating the title. Text before the first heading becomes its
// own leading page; a document without headers is a single page.
func markdownPages(path string) ([]string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc := markdownParser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	if len(tree.Items) == 0 {
		return []string{string(source)}, nil
	}

	starts := headingStarts(doc, source, 2)
	if len(starts) == 0 {
		return []string{string(source)}, nil
	}
	paths := flattenHeaderPaths(tree.Items, nil)
	if len(starts) != len(paths) {
		// Malformed heading structure; fall back to raw section slices.
		paths = make([]string, len(starts))
	}

	pages := make([]string, 0, len(starts)+1)
	if preamble := strings.TrimSpace(string(source[:starts[0]])); preamble != "" {
		pages = append(pages, preamble)
	}
	for i, start := range starts {
		end := len(source)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		section := strings.TrimSpace(string(source[start:end]))
		if paths[i] != "" {
			body := strings.TrimSpace(trimFirstLine(section))
			if body == "" {
				section = paths[i]
			} else {
				section = paths[i] + "\n\n" + body
			}
		}
		pages = append(pages, section)
	}
	return pages, nil
}

// headingStarts returns the source offsets of the line start of every
// heading at or above maxLevel, in document order.
func headingStarts(doc ast.Node, source []byte, maxLevel int) []int {
	var starts []int
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		heading := n.(*ast.Heading)
		if heading.Level > maxLevel || heading.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}
		// Lines() points at the heading text; back up past the "#" marker
		// to the start of the line.
		lineStart := heading.Lines().At(0).Start
		for lineStart > 0 && source[lineStart-1] != '\n' {
			lineStart--
		}
		starts = append(starts, lineStart)
		return ast.WalkContinue, nil
	})
	return starts
}

// trimFirstLine drops everything up to and including the first newline.
func trimFirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return ""
}

// flattenHeaderPaths walks the TOC tree in document order, producing one
// "# Title > ## Section" style path per heading.
func flattenHeaderPaths(items toc.Items, ancestors []string) []string {
	var paths []string
	for _, item := range items {
		current := append(append([]string{}, ancestors...), string(item.Title))
		var parts []string
		for depth, title := range current {
			parts = append(parts, fmt.Sprintf("%s %s", strings.Repeat("#", depth+1), title))
		}
		paths = append(paths, strings.Join(parts, " > "))
		if len(item.Items) > 0 {
			paths = append(paths, flattenHeaderPaths(item.Items, current)...)
		}
	}
	return paths
}
