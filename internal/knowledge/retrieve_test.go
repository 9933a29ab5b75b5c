package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/vectordb"
)

func scriptedHit(docID string, index int, text, title, proposalID string) vectordb.Hit {
	return vectordb.Hit{
		Record: vectordb.ChunkRecord{
			ID:   vectordb.ChunkID(docID, index),
			Text: text,
			Metadata: vectordb.ChunkMetadata{
				DocumentID: docID,
				ChunkIndex: index,
				Preview:    vectordb.Preview(text),
				Title:      title,
				ProposalID: proposalID,
			},
		},
		Similarity: 0.8,
	}
}

func newTestRetriever(t *testing.T, index *memIndex, provider *stubProvider, opts ...RetrieverOption) *Retriever {
	t.Helper()
	r, err := NewRetriever(index, newStubEmbedder(4), provider, "test-model", opts...)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	return r
}

func TestAnswerScopedHit(t *testing.T) {
	index := newMemIndex()
	index.scripted = [][]vectordb.Hit{
		{scriptedHit("doc-1", 0, "Quorum is five members.", "governance rules", "prop-7")},
	}
	provider := &stubProvider{content: "Quorum is five members."}
	r := newTestRetriever(t, index, provider)

	answer, err := r.Answer(context.Background(), "what is quorum?", "prop-7")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(index.queries) != 1 {
		t.Fatalf("a scoped hit should run exactly one search, got %d", len(index.queries))
	}
	if index.queries[0].proposalID != "prop-7" {
		t.Errorf("search scope = %q, want prop-7", index.queries[0].proposalID)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
	if !strings.Contains(provider.prompts[0], "Quorum is five members.") {
		t.Error("retrieved chunk text should appear in the grounding prompt")
	}
	if !strings.Contains(answer.Text, "(doc-1)") {
		t.Errorf("answer should cite doc-1:\n%s", answer.Text)
	}
}

func TestAnswerWidensToGlobal(t *testing.T) {
	index := newMemIndex()
	index.scripted = [][]vectordb.Hit{
		nil, // scoped search finds nothing
		{scriptedHit("doc-2", 0, "The roof terrace closes at midnight.", "house rules", "")},
	}
	provider := &stubProvider{content: "It closes at midnight."}
	r := newTestRetriever(t, index, provider)

	answer, err := r.Answer(context.Background(), "when does the terrace close?", "prop-9")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(index.queries) != 2 {
		t.Fatalf("expected scoped then global search, got %d queries", len(index.queries))
	}
	if index.queries[0].proposalID != "prop-9" || index.queries[1].proposalID != "" {
		t.Errorf("query scopes = %q, %q; want prop-9 then global",
			index.queries[0].proposalID, index.queries[1].proposalID)
	}
	if !strings.Contains(answer.Text, "midnight") {
		t.Errorf("answer text missing completion: %q", answer.Text)
	}
}

func TestAnswerNoScopeSearchesOnce(t *testing.T) {
	index := newMemIndex()
	index.scripted = [][]vectordb.Hit{nil}
	r := newTestRetriever(t, index, &stubProvider{})

	_, err := r.Answer(context.Background(), "anything?", "")
	if !errors.Is(err, ErrNoRelevantContent) {
		t.Fatalf("got %v, want ErrNoRelevantContent", err)
	}
	if len(index.queries) != 1 {
		t.Errorf("a global question must not search twice, got %d queries", len(index.queries))
	}
}

func TestAnswerNoGroundingSkipsProvider(t *testing.T) {
	index := newMemIndex()
	index.scripted = [][]vectordb.Hit{nil, nil}
	provider := &stubProvider{}
	r := newTestRetriever(t, index, provider)

	_, err := r.Answer(context.Background(), "unknown topic?", "prop-1")
	if !errors.Is(err, ErrNoRelevantContent) {
		t.Fatalf("got %v, want ErrNoRelevantContent", err)
	}
	if provider.calls != 0 {
		t.Errorf("provider must not be called without grounding, got %d calls", provider.calls)
	}
}

func TestAnswerEmptyChunkText(t *testing.T) {
	index := newMemIndex()
	index.scripted = [][]vectordb.Hit{
		{scriptedHit("doc-3", 0, "   \n ", "", "")},
	}
	provider := &stubProvider{}
	r := newTestRetriever(t, index, provider)

	_, err := r.Answer(context.Background(), "anything?", "")
	if !errors.Is(err, ErrNoUsableText) {
		t.Fatalf("got %v, want ErrNoUsableText", err)
	}
	if provider.calls != 0 {
		t.Errorf("provider must not be called on empty grounding, got %d calls", provider.calls)
	}
}

func TestAnswerQuestionEmbeddingFailure(t *testing.T) {
	embedder := newStubEmbedder(4)
	embedder.failAt = 0
	index := newMemIndex()
	r, err := NewRetriever(index, embedder, &stubProvider{}, "")
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	_, err = r.Answer(context.Background(), "anything?", "")
	if !errors.Is(err, ErrQuestionEmbedding) {
		t.Fatalf("got %v, want ErrQuestionEmbedding", err)
	}
	if len(index.queries) != 0 {
		t.Error("embedding failure must abort before any search")
	}
}

func TestAnswerCitationsDedupedInOrder(t *testing.T) {
	index := newMemIndex()
	index.scripted = [][]vectordb.Hit{{
		scriptedHit("doc-b", 0, "first chunk", "beta doc", ""),
		scriptedHit("doc-a", 2, "second chunk", "alpha doc", ""),
		scriptedHit("doc-b", 1, "third chunk", "beta doc", ""),
	}}
	provider := &stubProvider{content: "combined answer"}
	r := newTestRetriever(t, index, provider)

	answer, err := r.Answer(context.Background(), "question?", "")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("sources = %v, want 2 deduped documents", answer.Sources)
	}
	if answer.Sources[0].DocumentID != "doc-b" || answer.Sources[1].DocumentID != "doc-a" {
		t.Errorf("sources out of retrieval order: %v", answer.Sources)
	}
	if strings.Count(answer.Text, "(doc-b)") != 1 {
		t.Errorf("doc-b should be cited exactly once:\n%s", answer.Text)
	}
}

func TestAnswerUntitledSourceLabel(t *testing.T) {
	index := newMemIndex()
	index.scripted = [][]vectordb.Hit{{
		scriptedHit("doc-4", 0, "Budget line items for Q3.", "", "prop-2"),
	}}
	r := newTestRetriever(t, index, &stubProvider{content: "ok"})

	answer, err := r.Answer(context.Background(), "budget?", "prop-2")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	label := answer.Sources[0].Label
	if !strings.Contains(label, "prop-2") || !strings.Contains(label, "Budget line items") {
		t.Errorf("untitled label should carry scope and preview, got %q", label)
	}
}

// TestIngestThenAnswer runs the write and read paths end to end against
// the in-memory stores.
func TestIngestThenAnswer(t *testing.T) {
	store := newMemDocStore()
	index := newMemIndex()
	embedder := newStubEmbedder(8)

	in := newTestIngestor(t, store, index, embedder)
	result, err := in.Ingest(context.Background(), IngestRequest{
		Source: "Paris is the capital of France.",
		Kind:   SourceText,
		Title:  "france facts",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(result.ChunkIDs) != 1 {
		t.Fatalf("a short document should produce one chunk, got %d", len(result.ChunkIDs))
	}

	provider := &stubProvider{content: "Paris is the capital."}
	r, err := NewRetriever(index, embedder, provider, "test-model")
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	answer, err := r.Answer(context.Background(), "What is the capital of France?", "")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.HasPrefix(answer.Text, "Paris is the capital.") {
		t.Errorf("answer text = %q", answer.Text)
	}
	if !strings.Contains(answer.Text, result.DocumentID) {
		t.Errorf("answer should cite the ingested document:\n%s", answer.Text)
	}
	if answer.Sources[0].Label != "france facts" {
		t.Errorf("label = %q, want the document title", answer.Sources[0].Label)
	}
}

func TestUserMessageMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrNoRelevantContent, UserMessage(ErrNoRelevantContent)},
		{ErrNoUsableText, UserMessage(ErrNoUsableText)},
		{ErrQuestionEmbedding, UserMessage(ErrQuestionEmbedding)},
	}
	seen := map[string]bool{}
	for _, c := range cases {
		if c.want == "" {
			t.Fatalf("UserMessage(%v) is empty", c.err)
		}
		if seen[c.want] {
			t.Errorf("UserMessage(%v) duplicates another sentinel's message", c.err)
		}
		seen[c.want] = true
	}
	if UserMessage(errors.New("boom")) == "" {
		t.Error("unknown errors still need a generic user message")
	}
}
