package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/vectordb"
)

func newTestIngestor(t *testing.T, store *memDocStore, index *memIndex, embedder *stubEmbedder, opts ...IngestorOption) *Ingestor {
	t.Helper()
	in, err := NewIngestor(store, index, embedder, opts...)
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}
	return in
}

func TestIngestSuccess(t *testing.T) {
	store := newMemDocStore()
	index := newMemIndex()
	in := newTestIngestor(t, store, index, newStubEmbedder(8))

	text := strings.Repeat("alpha bravo charlie delta ", 20)
	result, err := in.Ingest(context.Background(), IngestRequest{
		Source:    text,
		Kind:      SourceText,
		Title:     "phonetic alphabet",
		ChunkSize: 100,
		Overlap:   20,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !result.Searchable {
		t.Fatalf("expected searchable result, got IndexErr=%v", result.IndexErr)
	}
	if len(result.ChunkIDs) < 2 {
		t.Fatalf("expected multiple chunks for %d chars, got %d", len(text), len(result.ChunkIDs))
	}
	for i, id := range result.ChunkIDs {
		want := fmt.Sprintf("%s:%d", result.DocumentID, i)
		if id != want {
			t.Errorf("chunk id %d = %q, want %q", i, id, want)
		}
		if _, ok := index.records[id]; !ok {
			t.Errorf("chunk %q missing from vector index", id)
		}
	}

	doc, err := store.GetByID(context.Background(), result.DocumentID)
	if err != nil || doc == nil {
		t.Fatalf("GetByID: doc=%v err=%v", doc, err)
	}
	if !doc.Indexed() {
		t.Errorf("document should be back-linked after a clean ingest")
	}
	if len(doc.VectorChunkIDs) != len(result.ChunkIDs) {
		t.Errorf("back-link has %d ids, want %d", len(doc.VectorChunkIDs), len(result.ChunkIDs))
	}
	if doc.ContentHash == "" {
		t.Errorf("content hash should be recorded")
	}
	if doc.ChunkSize != 100 || doc.ChunkOverlap != 20 {
		t.Errorf("chunk params not persisted: size=%d overlap=%d", doc.ChunkSize, doc.ChunkOverlap)
	}
}

func TestIngestEmptyTextRejected(t *testing.T) {
	store := newMemDocStore()
	in := newTestIngestor(t, store, newMemIndex(), newStubEmbedder(4))

	for _, source := range []string{"", "   \n\t  "} {
		_, err := in.Ingest(context.Background(), IngestRequest{Source: source, Kind: SourceText})
		if !errors.Is(err, ErrNoContent) {
			t.Errorf("source %q: got %v, want ErrNoContent", source, err)
		}
	}
	if store.inserts != 0 {
		t.Errorf("no documents should be created, got %d inserts", store.inserts)
	}
}

func TestIngestEmbeddingFailureLeavesNoTrace(t *testing.T) {
	store := newMemDocStore()
	index := newMemIndex()
	embedder := newStubEmbedder(4)
	embedder.failAt = 1 // second chunk of the batch
	in := newTestIngestor(t, store, index, embedder)

	_, err := in.Ingest(context.Background(), IngestRequest{
		Source:    strings.Repeat("x", 250),
		Kind:      SourceText,
		ChunkSize: 100,
		Overlap:   0,
	})
	if err == nil {
		t.Fatal("expected error from embedding failure")
	}
	if store.inserts != 0 {
		t.Errorf("embedding failure must precede any document write, got %d inserts", store.inserts)
	}
	if index.Count() != 0 {
		t.Errorf("embedding failure must leave the index empty, got %d records", index.Count())
	}
}

func TestIngestVectorFailureDowngradesDocument(t *testing.T) {
	store := newMemDocStore()
	index := newMemIndex()
	index.failUpsert = errors.New("vector store offline")
	in := newTestIngestor(t, store, index, newStubEmbedder(4))

	result, err := in.Ingest(context.Background(), IngestRequest{
		Source: "Paris is the capital of France.",
		Kind:   SourceText,
	})
	if err != nil {
		t.Fatalf("a vector failure downgrades, it must not fail the ingest: %v", err)
	}
	if result.Searchable {
		t.Error("result should not be searchable")
	}
	if result.IndexErr == nil {
		t.Error("IndexErr should carry the vector failure")
	}
	if result.DocumentID == "" {
		t.Fatal("document id should still be returned")
	}

	doc, _ := store.GetByID(context.Background(), result.DocumentID)
	if doc == nil {
		t.Fatal("document row must survive the vector failure")
	}
	if doc.VectorChunkIDs == nil {
		t.Error("chunk link should be empty, not absent")
	}
	if len(doc.VectorChunkIDs) != 0 {
		t.Errorf("chunk link should list no chunks, got %v", doc.VectorChunkIDs)
	}
	if doc.RawText == "" {
		t.Error("raw text must be retained for later reindexing")
	}
}

func TestIngestBacklinkFailure(t *testing.T) {
	store := newMemDocStore()
	store.failSetChunkIDs = errors.New("disk full")
	in := newTestIngestor(t, store, newMemIndex(), newStubEmbedder(4))

	_, err := in.Ingest(context.Background(), IngestRequest{
		Source: "Paris is the capital of France.",
		Kind:   SourceText,
	})
	var blErr *BacklinkError
	if !errors.As(err, &blErr) {
		t.Fatalf("got %v, want BacklinkError", err)
	}
	if blErr.DocumentID == "" {
		t.Error("BacklinkError should name the orphaned document")
	}
}

func TestIngestURL(t *testing.T) {
	store := newMemDocStore()
	index := newMemIndex()
	fetcher := &stubFetcher{pages: map[string]string{
		"https://example.org/guide": "Meeting rooms are booked through the front desk.",
	}}
	in := newTestIngestor(t, store, index, newStubEmbedder(4), WithFetcher(fetcher))

	result, err := in.Ingest(context.Background(), IngestRequest{
		Source: "https://example.org/guide",
		Kind:   SourceURL,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	doc, _ := store.GetByID(context.Background(), result.DocumentID)
	if doc.SourceRef != "https://example.org/guide" {
		t.Errorf("source ref = %q, want the URL", doc.SourceRef)
	}
	if !strings.Contains(doc.RawText, "front desk") {
		t.Errorf("fetched text not stored: %q", doc.RawText)
	}
}

func TestIngestURLFetchFailure(t *testing.T) {
	store := newMemDocStore()
	index := newMemIndex()
	fetcher := &stubFetcher{pages: map[string]string{}}
	in := newTestIngestor(t, store, index, newStubEmbedder(4), WithFetcher(fetcher))

	_, err := in.Ingest(context.Background(), IngestRequest{
		Source: "https://example.org/missing",
		Kind:   SourceURL,
	})
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("got %v, want ErrNoContent", err)
	}
	if store.inserts != 0 || index.Count() != 0 {
		t.Error("a failed fetch must leave both stores untouched")
	}
}

func TestIngestProposalScope(t *testing.T) {
	store := newMemDocStore()
	index := newMemIndex()
	in := newTestIngestor(t, store, index, newStubEmbedder(4))

	result, err := in.Ingest(context.Background(), IngestRequest{
		Source:     "Quorum is five members.",
		Kind:       SourceText,
		ProposalID: "prop-7",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	for _, id := range result.ChunkIDs {
		if got := index.records[id].Metadata.ProposalID; got != "prop-7" {
			t.Errorf("chunk %s proposal = %q, want prop-7", id, got)
		}
	}
	doc, _ := store.GetByID(context.Background(), result.DocumentID)
	if doc.ProposalID != "prop-7" {
		t.Errorf("document proposal = %q, want prop-7", doc.ProposalID)
	}
}

func TestAttachProposal(t *testing.T) {
	store := newMemDocStore()
	in := newTestIngestor(t, store, newMemIndex(), newStubEmbedder(4))

	result, err := in.Ingest(context.Background(), IngestRequest{Source: "Budget notes.", Kind: SourceText})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := in.AttachProposal(context.Background(), result.DocumentID, "prop-3"); err != nil {
		t.Fatalf("AttachProposal: %v", err)
	}
	doc, _ := store.GetByID(context.Background(), result.DocumentID)
	if doc.ProposalID != "prop-3" {
		t.Errorf("proposal = %q, want prop-3", doc.ProposalID)
	}

	if err := in.AttachProposal(context.Background(), "", "prop-3"); err == nil {
		t.Error("empty document id should be rejected")
	}
}

func TestReindexRepairsDowngradedDocument(t *testing.T) {
	store := newMemDocStore()
	index := newMemIndex()
	index.failUpsert = errors.New("vector store offline")
	in := newTestIngestor(t, store, index, newStubEmbedder(4))

	result, err := in.Ingest(context.Background(), IngestRequest{
		Source:    "Paris is the capital of France.",
		Kind:      SourceText,
		ChunkSize: 10,
		Overlap:   2,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Searchable {
		t.Fatal("precondition: ingest should have been downgraded")
	}

	// Vector store comes back.
	index.failUpsert = nil

	report, err := in.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if report.Scanned != 1 || report.Repaired != 1 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v, want 1 scanned, 1 repaired", report)
	}

	doc, _ := store.GetByID(context.Background(), result.DocumentID)
	if !doc.Indexed() {
		t.Fatal("document should be back-linked after repair")
	}
	// Chunk boundaries replay with the persisted parameters, so the
	// identifiers are the ones the first attempt would have written.
	for i, id := range doc.VectorChunkIDs {
		want := vectordb.ChunkID(doc.ID, i)
		if id != want {
			t.Errorf("chunk id %d = %q, want %q", i, id, want)
		}
		if _, ok := index.records[id]; !ok {
			t.Errorf("chunk %q missing from index after repair", id)
		}
	}
}

func TestReindexNothingPending(t *testing.T) {
	in := newTestIngestor(t, newMemDocStore(), newMemIndex(), newStubEmbedder(4))

	report, err := in.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if report.Scanned != 0 || report.Repaired != 0 {
		t.Errorf("report = %+v, want all zeros", report)
	}
}
