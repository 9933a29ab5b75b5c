package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/embeddings"
)

const (
	collectionName = "knowledge"
	exportFile     = "knowledge.gob.gz"
)

// ChromemIndex implements VectorIndex using chromem-go.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemIndex creates a new in-memory ChromemIndex. The embedder is
// only consulted for metadata lookups; chunk records arrive with their
// embeddings already computed.
func NewChromemIndex(embedder embeddings.Embedder) (*ChromemIndex, error) {
	db := chromem.NewDB()
	ef := toChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemIndex{
		db:         db,
		collection: col,
		embedFunc:  ef,
	}, nil
}

func (x *ChromemIndex) Upsert(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, rec := range records {
		docs[i] = chromem.Document{
			ID:        rec.ID,
			Content:   rec.Text,
			Embedding: rec.Embedding,
			Metadata:  metadataToMap(rec.Metadata),
		}
	}

	return x.collection.AddDocuments(ctx, docs, 1)
}

func (x *ChromemIndex) Query(ctx context.Context, embedding []float32, topN int, proposalID string) ([]Hit, error) {
	if topN <= 0 {
		topN = 3
	}

	// chromem-go requires nResults <= collection size.
	count := x.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topN > count {
		topN = count
	}

	var where map[string]string
	if proposalID != "" {
		where = map[string]string{"proposal_id": proposalID}
	}

	results, err := x.collection.QueryEmbedding(ctx, embedding, topN, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			Record: ChunkRecord{
				ID:       r.ID,
				Text:     r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

func (x *ChromemIndex) GetByDocument(ctx context.Context, documentID string) ([]ChunkRecord, error) {
	count := x.collection.Count()
	if count == 0 {
		return nil, nil
	}

	where := map[string]string{"document_id": documentID}

	// Use the document ID as the query text with count as limit so every
	// matching record is returned.
	results, err := x.collection.Query(ctx, documentID, count, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query by document: %w", err)
	}

	records := make([]ChunkRecord, len(results))
	for i, r := range results {
		records[i] = ChunkRecord{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: mapToMetadata(r.Metadata),
		}
	}
	return records, nil
}

func (x *ChromemIndex) Persist(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	return x.db.ExportToFile(filepath.Join(dir, exportFile), true, "")
}

func (x *ChromemIndex) Load(ctx context.Context, dir string) error {
	err := x.db.ImportFromFile(filepath.Join(dir, exportFile), "")
	if err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := x.db.GetCollection(collectionName, x.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	x.collection = col
	return nil
}

func (x *ChromemIndex) Count() int {
	return x.collection.Count()
}

// toChromemFunc adapts an Embedder to chromem's per-text embedding hook.
func toChromemFunc(e embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, fmt.Errorf("embedder returned %d vectors, expected 1", len(vecs))
		}
		return vecs[0], nil
	}
}
