// Package chunker splits document text into overlapping fixed-size spans
// suitable for embedding and retrieval.
package chunker

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidConfig indicates chunk parameters that cannot make progress.
	ErrInvalidConfig = errors.New("chunk size must be positive and overlap must be smaller than size")
)

// Span is a single window over source text. Start and End are character
// offsets into the original text; Text is the trimmed window content.
type Span struct {
	Start int
	End   int
	Text  string
}

// Chunk is one retrievable unit of a document. Page is 1-based; Start and
// End are offsets into that page's text.
type Chunk struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Page   int    `json:"page"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Text   string `json:"text"`
}

// Split slides a window of size bytes over text, each window after the
// first starting overlap bytes before the previous window's end. Windows
// that are empty after trimming whitespace are dropped. An empty text
// produces no spans.
func Split(text string, size, overlap int) ([]Span, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidConfig
	}
	if text == "" {
		return nil, nil
	}

	var spans []Span
	n := len(text)
	start := 0
	for start < n {
		end := start + size
		if end > n {
			end = n
		}
		if t := strings.TrimSpace(text[start:end]); t != "" {
			spans = append(spans, Span{Start: start, End: end, Text: t})
		}
		if end == n {
			break
		}
		// overlap < size guarantees start strictly increases
		start = end - overlap
	}
	return spans, nil
}

// SplitDocument chunks every page of a document, assigning 1-based page
// numbers and a fresh unique id per chunk. Source is carried verbatim on
// every chunk for provenance.
func SplitDocument(source string, pages []string, size, overlap int) ([]Chunk, error) {
	var chunks []Chunk
	for i, page := range pages {
		spans, err := Split(page, size, overlap)
		if err != nil {
			return nil, err
		}
		for _, s := range spans {
			chunks = append(chunks, Chunk{
				ID:     uuid.New().String(),
				Source: source,
				Page:   i + 1,
				Start:  s.Start,
				End:    s.End,
				Text:   s.Text,
			})
		}
	}
	return chunks, nil
}
