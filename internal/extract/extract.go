// Package extract discovers source documents and turns them into per-page
// text for chunking. PDF internals are delegated to a library; plain text
// and markdown are handled directly.
package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrUnsupported indicates a file type no extractor handles.
	ErrUnsupported = errors.New("unsupported document type")
)

// supported maps the file extensions the extractor accepts.
var supported = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// Discover walks root and returns the absolute paths of all supported
// documents, sorted for deterministic ingestion order.
func Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if supported[strings.ToLower(filepath.Ext(path))] {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			paths = append(paths, abs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Pages extracts per-page text from a document, dispatching on extension.
// Page order follows document order; a page may be empty when its text
// cannot be extracted.
func Pages(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfPages(path)
	case ".txt":
		return textPages(path)
	case ".md":
		return markdownPages(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

// textPages reads a plain text file. Form feeds act as page breaks;
// without them the whole file is a single page.
func textPages(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return strings.Split(string(data), "\f"), nil
}
