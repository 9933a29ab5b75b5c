// Package knowledge is the core of the coordination bot's document
// memory: the ingestion coordinator that writes content across the
// relational and vector stores, and the retrieval engine that answers
// questions from it.
//
// The two stores cannot share a transaction, so ingestion runs a manual
// saga: metadata first, vector batch second, confirming back-link last.
// A failed vector write downgrades the document to "stored but not
// searchable" instead of rolling back, because the raw text is valuable
// on its own and indexing can be retried later from it.
package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/chunker"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/documents"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/embeddings"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/vectordb"
)

// SourceKind selects how IngestRequest.Source is interpreted.
type SourceKind string

const (
	// SourceText means Source is the raw text itself.
	SourceText SourceKind = "text"
	// SourceURL means Source is a URL to resolve via the fetcher.
	SourceURL SourceKind = "url"
)

// TextFetcher resolves a URL to plain text. Implemented by fetch.Fetcher.
type TextFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// DocumentStore is the slice of the relational store the coordinator and
// retriever need.
type DocumentStore interface {
	Insert(ctx context.Context, doc documents.Document) (*documents.Document, error)
	GetByID(ctx context.Context, id string) (*documents.Document, error)
	SetChunkIDs(ctx context.Context, id string, chunkIDs []string) error
	AttachProposal(ctx context.Context, id, proposalID string) error
	ListUnindexed(ctx context.Context) ([]documents.Document, error)
}

// IngestRequest describes one piece of content to ingest.
type IngestRequest struct {
	Source     string
	Kind       SourceKind
	Title      string
	ProposalID string
	ChunkSize  int // 0 means chunker.DefaultSize
	Overlap    int // 0 means chunker.DefaultOverlap
}

// IngestResult reports the outcome of a successful ingestion. When the
// vector write failed, Searchable is false and IndexErr carries the
// failure; the document itself was still created and keeps its raw text.
type IngestResult struct {
	DocumentID string
	ChunkIDs   []string
	Searchable bool
	IndexErr   error
}

// Ingestor coordinates the chunk → embed → dual-store write pipeline.
type Ingestor struct {
	docs     DocumentStore
	index    vectordb.VectorIndex
	embedder embeddings.Embedder
	fetcher  TextFetcher
	logger   *slog.Logger

	progress func(done, total int)
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithIngestorLogger sets a custom logger. Default is slog.Default().
func WithIngestorLogger(logger *slog.Logger) IngestorOption {
	return func(in *Ingestor) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// WithFetcher sets the URL fetcher. Without one, URL ingestion fails.
func WithFetcher(f TextFetcher) IngestorOption {
	return func(in *Ingestor) { in.fetcher = f }
}

// NewIngestor creates an ingestion coordinator.
func NewIngestor(docs DocumentStore, index vectordb.VectorIndex, embedder embeddings.Embedder, opts ...IngestorOption) (*Ingestor, error) {
	if docs == nil {
		return nil, fmt.Errorf("knowledge: document store is required")
	}
	if index == nil {
		return nil, fmt.Errorf("knowledge: vector index is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("knowledge: embedder is required")
	}

	in := &Ingestor{
		docs:     docs,
		index:    index,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in, nil
}

// SetProgressFunc sets a callback invoked after each document during
// Reindex.
func (in *Ingestor) SetProgressFunc(fn func(done, total int)) {
	in.progress = fn
}

// Ingest runs the full write path for one piece of content. Steps run
// strictly in order and each failure short-circuits the rest:
//
//  1. resolve the source to text (URL fetch or pass-through)
//  2. hash the text (stored for future dedup, not checked)
//  3. chunk
//  4. embed every chunk; any failure aborts with no side effects
//  5. insert the document row with a NULL chunk link
//  6. batch-upsert chunk records; on failure the document is kept and
//     downgraded to an empty chunk list instead of rolled back
//  7. confirm the link by writing the real chunk ids; a failure here is
//     reported as overall failure even though both stores hold data
func (in *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	text, sourceRef, err := in.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])

	size := req.ChunkSize
	if size == 0 {
		size = chunker.DefaultSize
	}
	overlap := req.Overlap
	if overlap == 0 {
		overlap = chunker.DefaultOverlap
	}

	chunks, err := chunker.Split(text, size, overlap)
	if err != nil {
		return nil, fmt.Errorf("chunking content: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	vectors, err := in.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	doc, err := in.docs.Insert(ctx, documents.Document{
		Title:        req.Title,
		ContentHash:  contentHash,
		SourceRef:    sourceRef,
		RawText:      text,
		ProposalID:   req.ProposalID,
		ChunkSize:    size,
		ChunkOverlap: overlap,
	})
	if err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}

	records := buildRecords(doc, chunks, vectors)

	if err := in.index.Upsert(ctx, records); err != nil {
		in.logger.Error("vector write failed, document kept without index",
			"document_id", doc.ID, "chunks", len(records), "error", err)
		if derr := in.docs.SetChunkIDs(ctx, doc.ID, []string{}); derr != nil {
			in.logger.Error("marking document unsearchable failed",
				"document_id", doc.ID, "error", derr)
		}
		return &IngestResult{DocumentID: doc.ID, Searchable: false, IndexErr: err}, nil
	}

	chunkIDs := make([]string, len(records))
	for i, rec := range records {
		chunkIDs[i] = rec.ID
	}
	if err := in.docs.SetChunkIDs(ctx, doc.ID, chunkIDs); err != nil {
		return nil, &BacklinkError{DocumentID: doc.ID, Err: err}
	}

	return &IngestResult{DocumentID: doc.ID, ChunkIDs: chunkIDs, Searchable: true}, nil
}

// AttachProposal associates an already-ingested document with a proposal.
// Documents are often uploaded while their proposal is still a draft, so
// the association arrives after the fact.
func (in *Ingestor) AttachProposal(ctx context.Context, documentID, proposalID string) error {
	if documentID == "" || proposalID == "" {
		return fmt.Errorf("knowledge: document id and proposal id are required")
	}
	return in.docs.AttachProposal(ctx, documentID, proposalID)
}

// ReindexReport summarizes one reconciliation sweep.
type ReindexReport struct {
	Scanned  int
	Repaired int
	Failed   map[string]error
}

// Reindex finds documents whose vector write failed (empty chunk link)
// and retries indexing from their stored raw text, using the chunk
// parameters persisted at ingestion time so the chunk boundaries and
// identifiers come out identical. Upserts are replace-by-ID, so a sweep
// that races an earlier partial write is safe.
func (in *Ingestor) Reindex(ctx context.Context) (*ReindexReport, error) {
	pending, err := in.docs.ListUnindexed(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unindexed documents: %w", err)
	}

	report := &ReindexReport{Scanned: len(pending), Failed: map[string]error{}}
	for i, doc := range pending {
		if err := in.reindexOne(ctx, &doc); err != nil {
			in.logger.Error("reindex failed", "document_id", doc.ID, "error", err)
			report.Failed[doc.ID] = err
		} else {
			report.Repaired++
		}
		if in.progress != nil {
			in.progress(i+1, len(pending))
		}
	}
	return report, nil
}

func (in *Ingestor) reindexOne(ctx context.Context, doc *documents.Document) error {
	chunks, err := chunker.Split(doc.RawText, doc.ChunkSize, doc.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if len(chunks) == 0 {
		return ErrNoChunks
	}

	vectors, err := in.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := buildRecords(doc, chunks, vectors)
	if err := in.index.Upsert(ctx, records); err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}

	chunkIDs := make([]string, len(records))
	for i, rec := range records {
		chunkIDs[i] = rec.ID
	}
	if err := in.docs.SetChunkIDs(ctx, doc.ID, chunkIDs); err != nil {
		return &BacklinkError{DocumentID: doc.ID, Err: err}
	}
	return nil
}

func (in *Ingestor) resolve(ctx context.Context, req IngestRequest) (text, sourceRef string, err error) {
	switch req.Kind {
	case SourceURL:
		if in.fetcher == nil {
			return "", "", fmt.Errorf("knowledge: no fetcher configured for url ingestion")
		}
		fetched, err := in.fetcher.Fetch(ctx, req.Source)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrNoContent, err)
		}
		text, sourceRef = fetched, req.Source
	case SourceText, "":
		text, sourceRef = req.Source, documents.SourceDirect
	default:
		return "", "", fmt.Errorf("knowledge: unknown source kind %q", req.Kind)
	}

	text = normalize(text)
	if text == "" {
		return "", "", ErrNoContent
	}
	return text, sourceRef, nil
}

// normalize unifies line endings and trims surrounding whitespace so the
// content hash and chunk boundaries are stable across sources.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text)
}

func buildRecords(doc *documents.Document, chunks []string, vectors [][]float32) []vectordb.ChunkRecord {
	records := make([]vectordb.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = vectordb.ChunkRecord{
			ID:        vectordb.ChunkID(doc.ID, i),
			Text:      chunk,
			Embedding: vectors[i],
			Metadata: vectordb.ChunkMetadata{
				DocumentID: doc.ID,
				ChunkIndex: i,
				Preview:    vectordb.Preview(chunk),
				Title:      doc.Title,
				ProposalID: doc.ProposalID,
			},
		}
	}
	return records
}
