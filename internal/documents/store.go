package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/db"
)

// Store manages persistence of documents.
type Store struct {
	db *db.DB
}

// NewStore creates a new document store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const documentColumns = `id, title, content_hash, source_ref, raw_text, vector_chunk_ids, proposal_id, chunk_size, chunk_overlap, created_at`

// Insert writes a new document row and assigns its identifier. The
// vector_chunk_ids column starts out NULL; SetChunkIDs updates it once
// the vector write has been attempted.
func (s *Store) Insert(ctx context.Context, doc Document) (*Document, error) {
	if doc.RawText == "" {
		return nil, fmt.Errorf("inserting document: raw text is empty")
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.CreatedAt = time.Now().UTC()
	doc.VectorChunkIDs = nil

	var proposalID any
	if doc.ProposalID != "" {
		proposalID = doc.ProposalID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content_hash, source_ref, raw_text, vector_chunk_ids, proposal_id, chunk_size, chunk_overlap, created_at)
		 VALUES (?, ?, ?, ?, ?, NULL, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.ContentHash, doc.SourceRef, doc.RawText, proposalID, doc.ChunkSize, doc.ChunkOverlap, doc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	return &doc, nil
}

// GetByID retrieves a document by ID. Returns nil and no error when the
// document does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// GetByContentHash returns the oldest document with the given content
// hash, or nil when none exists. The ingestion path computes hashes but
// does not consult this; it exists so a dedup decision can be made later
// without a schema change.
func (s *Store) GetByContentHash(ctx context.Context, hash string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE content_hash = ? ORDER BY created_at ASC LIMIT 1`, hash)
	return scanDocument(row)
}

// SetChunkIDs records the vector-store chunk identifiers for a document.
// Passing an empty slice marks the document as ingested-but-unsearchable,
// which is distinct from the NULL state of a never-attempted link.
func (s *Store) SetChunkIDs(ctx context.Context, id string, chunkIDs []string) error {
	if chunkIDs == nil {
		chunkIDs = []string{}
	}
	encoded, err := json.Marshal(chunkIDs)
	if err != nil {
		return fmt.Errorf("encoding chunk ids: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET vector_chunk_ids = ? WHERE id = ?`, string(encoded), id)
	if err != nil {
		return fmt.Errorf("updating chunk ids: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating chunk ids: document %s not found", id)
	}
	return nil
}

// AttachProposal associates a document with a proposal after the fact.
// Documents can be ingested before the proposal they belong to exists.
func (s *Store) AttachProposal(ctx context.Context, id, proposalID string) error {
	if proposalID == "" {
		return fmt.Errorf("attaching proposal: proposal id is empty")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET proposal_id = ? WHERE id = ?`, proposalID, id)
	if err != nil {
		return fmt.Errorf("attaching proposal: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("attaching proposal: document %s not found", id)
	}
	return nil
}

// ListUnindexed returns documents without a confirmed vector link: the
// empty array (vector write failed) and NULL (the confirming back-link
// update never landed). Both states are repaired by the same reindex
// sweep since chunk upserts are replace-by-ID.
func (s *Store) ListUnindexed(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE vector_chunk_ids = '[]' OR vector_chunk_ids IS NULL ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing unindexed documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// List returns the most recently created documents, up to limit.
func (s *Store) List(ctx context.Context, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var chunkIDs sql.NullString
	var proposalID sql.NullString

	err := row.Scan(&doc.ID, &doc.Title, &doc.ContentHash, &doc.SourceRef, &doc.RawText,
		&chunkIDs, &proposalID, &doc.ChunkSize, &doc.ChunkOverlap, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if chunkIDs.Valid {
		ids := []string{}
		if err := json.Unmarshal([]byte(chunkIDs.String), &ids); err != nil {
			return nil, fmt.Errorf("decoding chunk ids for %s: %w", doc.ID, err)
		}
		doc.VectorChunkIDs = ids
	}
	if proposalID.Valid {
		doc.ProposalID = proposalID.String
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}
