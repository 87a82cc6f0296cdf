package retrieval

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/refrag/internal/chunker"
	"github.com/bull/refrag/internal/embedding"
	"github.com/bull/refrag/internal/vectorstore"
)

// axisProvider embeds each known word onto its own axis, giving exact and
// predictable similarities.
type axisProvider struct {
	err error
}

var axes = map[string]int{"steel": 0, "brass": 1, "nylon": 2}

func (p *axisProvider) Model() string { return "axis-test-model" }

func (p *axisProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if p.err != nil {
		return nil, p.err
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 4)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			if a, ok := axes[w]; ok {
				vec[a]++
			}
		}
		embedding.Normalize(vec)
		vecs[i] = vec
	}
	return vecs, nil
}

func seedStore(t *testing.T, provider *axisProvider, texts map[string]string) vectorstore.Store {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()
	page := 0
	for _, id := range sortedKeys(texts) {
		text := texts[id]
		vecs, err := provider.EmbedBatch(ctx, []string{text})
		require.NoError(t, err)
		page++
		require.NoError(t, store.Upsert(ctx, []vectorstore.Record{{
			ID:     id,
			Vector: vecs[0],
			Text:   text,
			Meta:   chunker.Chunk{ID: id, Source: "/corpus/" + id + ".txt", Page: page, End: len(text)},
		}}))
	}
	return store
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestRetriever_RankedResultsWithCitations(t *testing.T) {
	provider := &axisProvider{}
	store := seedStore(t, provider, map[string]string{
		"a": "steel steel steel",
		"b": "steel brass",
		"c": "nylon",
	})
	r := NewRetriever(provider, store, nil)

	results, err := r.Retrieve(context.Background(), "steel", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].ID, "pure match ranks above mixed match")
	assert.Equal(t, "b", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)

	assert.Equal(t, "/corpus/a.txt", results[0].Source)
	assert.Equal(t, 1, results[0].Page)
	assert.Equal(t, "steel steel steel", results[0].Preview)
	assert.Equal(t, "/corpus/a.txt (page 1)", results[0].Citation())
}

func TestRetriever_FewerThanK(t *testing.T) {
	provider := &axisProvider{}
	store := seedStore(t, provider, map[string]string{"a": "steel"})
	r := NewRetriever(provider, store, nil)

	results, err := r.Retrieve(context.Background(), "steel", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1, "a small index returns what it has")
}

func TestRetriever_EmptyQuery(t *testing.T) {
	r := NewRetriever(&axisProvider{}, vectorstore.NewMemoryStore(), nil)
	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := r.Retrieve(context.Background(), q, 5)
		assert.True(t, errors.Is(err, ErrEmptyQuery), "query %q", q)
	}
}

func TestRetriever_InvalidK(t *testing.T) {
	r := NewRetriever(&axisProvider{}, vectorstore.NewMemoryStore(), nil)
	for _, k := range []int{0, -3} {
		_, err := r.Retrieve(context.Background(), "steel", k)
		assert.True(t, errors.Is(err, vectorstore.ErrInvalidLimit), "k=%d", k)
	}
}

func TestRetriever_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("embedding backend down")
	r := NewRetriever(&axisProvider{err: boom}, vectorstore.NewMemoryStore(), nil)

	_, err := r.Retrieve(context.Background(), "steel", 5)
	assert.True(t, errors.Is(err, boom))
}

func TestPreview_TruncatesOnRuneBoundary(t *testing.T) {
	// 150 two-byte runes exceed 200 bytes but not 200 runes.
	short := strings.Repeat("ø", 150)
	assert.Equal(t, short, preview(short))

	long := strings.Repeat("ø", 250)
	got := preview(long)
	assert.Equal(t, strings.Repeat("ø", 200)+"...", got)
	assert.True(t, utf8.ValidString(got))
}
