package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/embeddings"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/llm"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/vectordb"
)

// DefaultTopN is how many chunks a search retrieves for grounding.
const DefaultTopN = 3

// Source identifies a document that contributed to an answer.
type Source struct {
	DocumentID string `json:"document_id"`
	Label      string `json:"label"`
}

// Answer is a grounded answer with its citation list, in retrieval order.
type Answer struct {
	Text    string
	Sources []Source
}

// Retriever answers natural-language questions from the vector index.
type Retriever struct {
	index    vectordb.VectorIndex
	embedder embeddings.Embedder
	provider llm.Provider
	model    string
	topN     int
	logger   *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithTopN overrides how many chunks each search retrieves.
func WithTopN(n int) RetrieverOption {
	return func(r *Retriever) {
		if n > 0 {
			r.topN = n
		}
	}
}

// WithRetrieverLogger sets a custom logger. Default is slog.Default().
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRetriever creates a retrieval engine. model may be empty to use the
// provider's default.
func NewRetriever(index vectordb.VectorIndex, embedder embeddings.Embedder, provider llm.Provider, model string, opts ...RetrieverOption) (*Retriever, error) {
	if index == nil {
		return nil, fmt.Errorf("knowledge: vector index is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("knowledge: embedder is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("knowledge: completion provider is required")
	}

	r := &Retriever{
		index:    index,
		embedder: embedder,
		provider: provider,
		model:    model,
		topN:     DefaultTopN,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Answer embeds the question, searches the vector index (scoped to
// proposalID when given, widening to a global search if the scoped one
// comes back empty), and asks the completion provider for an answer
// grounded in the retrieved chunks. The returned text ends with a source
// citation line per contributing document, deduplicated in first-seen
// retrieval order.
//
// The provider is never called without grounding: an empty result set
// returns ErrNoRelevantContent and all-empty chunk text returns
// ErrNoUsableText instead.
func (r *Retriever) Answer(ctx context.Context, question, proposalID string) (*Answer, error) {
	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuestionEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors", ErrQuestionEmbedding, len(vectors))
	}
	embedding := vectors[0]

	hits, err := r.index.Query(ctx, embedding, r.topN, proposalID)
	if err != nil {
		return nil, fmt.Errorf("searching knowledge: %w", err)
	}

	// Widen to a global search when the proposal scope has nothing:
	// scoped content may simply never have been tagged, or the answer
	// may live in a document shared across proposals.
	if len(hits) == 0 && proposalID != "" {
		r.logger.Debug("scoped search empty, widening to global",
			"proposal_id", proposalID, "question_len", len(question))
		hits, err = r.index.Query(ctx, embedding, r.topN, "")
		if err != nil {
			return nil, fmt.Errorf("searching knowledge: %w", err)
		}
	}

	if len(hits) == 0 {
		return nil, ErrNoRelevantContent
	}
	if allEmpty(hits) {
		return nil, ErrNoUsableText
	}

	prompt := buildGroundingPrompt(question, hits)
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Model: r.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: answerSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   1024,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	sources := collectSources(hits)
	return &Answer{
		Text:    strings.TrimSpace(resp.Content) + "\n\n" + formatCitations(sources),
		Sources: sources,
	}, nil
}

func allEmpty(hits []vectordb.Hit) bool {
	for _, h := range hits {
		if strings.TrimSpace(h.Record.Text) != "" {
			return false
		}
	}
	return true
}

// collectSources dedupes contributing documents by id, keeping the order
// in which retrieval first surfaced them.
func collectSources(hits []vectordb.Hit) []Source {
	seen := make(map[string]bool, len(hits))
	var sources []Source
	for _, h := range hits {
		meta := h.Record.Metadata
		if meta.DocumentID == "" || seen[meta.DocumentID] {
			continue
		}
		seen[meta.DocumentID] = true
		sources = append(sources, Source{
			DocumentID: meta.DocumentID,
			Label:      sourceLabel(meta),
		})
	}
	return sources
}

// sourceLabel prefers the document title and falls back to a
// scope-qualified preview for untitled documents.
func sourceLabel(meta vectordb.ChunkMetadata) string {
	if meta.Title != "" {
		return meta.Title
	}
	preview := strings.TrimSpace(meta.Preview)
	if preview == "" {
		preview = "untitled document"
	}
	if meta.ProposalID != "" {
		return fmt.Sprintf("proposal %s: %s", meta.ProposalID, preview)
	}
	return preview
}

func formatCitations(sources []Source) string {
	var b strings.Builder
	b.WriteString("Sources:")
	for _, s := range sources {
		fmt.Fprintf(&b, "\n- %s (%s)", s.Label, s.DocumentID)
	}
	return b.String()
}
