package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "beta")
	writeFile(t, dir, "nested/a.md", "# alpha")
	writeFile(t, dir, "nested/c.PDF", "%PDF-fake")
	writeFile(t, dir, "ignored.csv", "x,y")

	paths, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	// Sorted, absolute, and only supported extensions
	for i := 1; i < len(paths); i++ {
		assert.Less(t, paths[i-1], paths[i])
	}
	for _, p := range paths {
		assert.True(t, filepath.IsAbs(p), "path %s should be absolute", p)
		assert.NotContains(t, p, "ignored.csv")
	}
}

func TestDiscover_Empty(t *testing.T) {
	paths, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestPages_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "page one\fpage two\fpage three")

	pages, err := Pages(path)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "page one", pages[0])
	assert.Equal(t, "page three", pages[2])
}

func TestPages_PlainTextSinglePage(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "just one page of text")

	pages, err := Pages(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "just one page of text", pages[0])
}

func TestPages_Markdown(t *testing.T) {
	dir := t.TempDir()
	input := `# Materials

General notes on materials.

## Steel

Steel has high tensile strength.

## Aluminum

Aluminum is light.
`
	path := writeFile(t, dir, "doc.md", input)

	pages, err := Pages(path)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.True(t, strings.HasPrefix(pages[0], "# Materials"))
	assert.Contains(t, pages[0], "General notes on materials")
	assert.Equal(t, 1, strings.Count(pages[0], "Materials"))

	assert.True(t, strings.HasPrefix(pages[1], "# Materials > ## Steel"))
	assert.Contains(t, pages[1], "high tensile strength")

	assert.True(t, strings.HasPrefix(pages[2], "# Materials > ## Aluminum"))
	assert.Contains(t, pages[2], "Aluminum is light")
}

func TestPages_MarkdownPreamble(t *testing.T) {
	dir := t.TempDir()
	input := "Critical safety notice: wear gloves.\n\n# Assembly\n\nBolt the bracket on.\n"
	path := writeFile(t, dir, "doc.md", input)

	pages, err := Pages(path)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "Critical safety notice: wear gloves.", pages[0],
		"text before the first heading is its own page")
	assert.True(t, strings.HasPrefix(pages[1], "# Assembly"))
	assert.Contains(t, pages[1], "Bolt the bracket on.")
	assert.Equal(t, 1, strings.Count(pages[1], "Assembly"),
		"header path replaces the heading line, not duplicates it")
}

func TestPages_MarkdownNoHeaders(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.md", "Plain prose with no headings at all.\n")

	pages, err := Pages(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0], "no headings at all")
}

func TestPages_Unsupported(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.csv", "a,b")

	_, err := Pages(path)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestPages_BrokenPDF(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.pdf", "not actually a pdf")

	_, err := Pages(path)
	assert.Error(t, err)
}
