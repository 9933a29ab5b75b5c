package vectordb

import "context"

// VectorIndex is the read/write contract the knowledge core requires from
// a vector store. Implementations must give Upsert replace-by-ID
// semantics so retrying a failed batch write cannot create duplicates.
type VectorIndex interface {
	// Upsert adds or replaces chunk records, keyed by record ID.
	Upsert(ctx context.Context, records []ChunkRecord) error

	// Query returns up to topN records nearest to the given embedding,
	// best match first. A non-empty proposalID restricts the search to
	// chunks tagged with that proposal.
	Query(ctx context.Context, embedding []float32, topN int, proposalID string) ([]Hit, error)

	// GetByDocument retrieves all chunk records belonging to a document.
	GetByDocument(ctx context.Context, documentID string) ([]ChunkRecord, error)

	// Persist saves the index to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the index from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the total number of chunk records in the index.
	Count() int
}
