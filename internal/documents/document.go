// Package documents persists ingested document metadata and raw text in
// the relational store. Vector-store chunk links live here as a soft
// reference: the two stores have independent failure domains, so the link
// column also records whether indexing ever happened.
package documents

import "time"

// SourceDirect is the source reference recorded for directly-pasted text.
const SourceDirect = "direct"

// Document is a unit of ingested content.
//
// VectorChunkIDs carries the NULL/empty distinction from the database:
// a nil slice means the vector-store link was never attempted, while an
// empty non-nil slice means the vector write failed and the document is
// stored but not searchable.
type Document struct {
	ID             string    `json:"id"`
	Title          string    `json:"title,omitempty"`
	ContentHash    string    `json:"content_hash"`
	SourceRef      string    `json:"source_ref"`
	RawText        string    `json:"raw_text"`
	VectorChunkIDs []string  `json:"vector_chunk_ids"`
	ProposalID     string    `json:"proposal_id,omitempty"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	CreatedAt      time.Time `json:"created_at"`
}

// Indexed reports whether the document has a confirmed vector-store link.
func (d *Document) Indexed() bool {
	return len(d.VectorChunkIDs) > 0
}
