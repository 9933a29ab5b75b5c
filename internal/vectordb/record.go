package vectordb

import (
	"fmt"
	"strconv"
)

// previewRunes is how much chunk text is kept as the metadata preview.
const previewRunes = 100

// ChunkRecord is a search-indexed unit: one chunk of one document, with
// its embedding and lookup metadata. Records are never mutated in place;
// re-writing under the same ID replaces them wholesale.
type ChunkRecord struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  ChunkMetadata
}

// ChunkMetadata is the per-chunk metadata persisted alongside the
// embedding. DocumentID is a soft reference into the relational store.
type ChunkMetadata struct {
	DocumentID string
	ChunkIndex int
	Preview    string
	Title      string
	ProposalID string
}

// Hit pairs a chunk record with its similarity score, nearest first as
// returned by the store.
type Hit struct {
	Record     ChunkRecord
	Similarity float32
}

// ChunkID derives the stable identifier for a chunk from its owning
// document and position. The same document and index always map to the
// same ID, which makes re-indexing an idempotent upsert.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

// Preview returns the leading portion of text used as a human-readable
// stand-in for untitled documents.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes])
}

func metadataToMap(m ChunkMetadata) map[string]string {
	md := map[string]string{
		"document_id": m.DocumentID,
		"chunk_index": strconv.Itoa(m.ChunkIndex),
		"preview":     m.Preview,
		"title":       m.Title,
	}
	if m.ProposalID != "" {
		md["proposal_id"] = m.ProposalID
	}
	return md
}

func mapToMetadata(m map[string]string) ChunkMetadata {
	index, _ := strconv.Atoi(m["chunk_index"])
	return ChunkMetadata{
		DocumentID: m["document_id"],
		ChunkIndex: index,
		Preview:    m["preview"],
		Title:      m["title"],
		ProposalID: m["proposal_id"],
	}
}
