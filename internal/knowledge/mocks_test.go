package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/documents"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/llm"
	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/internal/vectordb"
)

// memDocStore is an in-memory DocumentStore with switchable failures.
type memDocStore struct {
	docs            map[string]*documents.Document
	inserts         int
	nextID          int
	failInsert      error
	failSetChunkIDs error
}

func newMemDocStore() *memDocStore {
	return &memDocStore{docs: map[string]*documents.Document{}}
}

func (s *memDocStore) Insert(_ context.Context, doc documents.Document) (*documents.Document, error) {
	if s.failInsert != nil {
		return nil, s.failInsert
	}
	s.nextID++
	doc.ID = fmt.Sprintf("doc-%d", s.nextID)
	doc.VectorChunkIDs = nil
	doc.CreatedAt = time.Now().UTC()
	stored := doc
	s.docs[doc.ID] = &stored
	s.inserts++
	return &doc, nil
}

func (s *memDocStore) GetByID(_ context.Context, id string) (*documents.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (s *memDocStore) SetChunkIDs(_ context.Context, id string, chunkIDs []string) error {
	if s.failSetChunkIDs != nil {
		return s.failSetChunkIDs
	}
	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	if chunkIDs == nil {
		chunkIDs = []string{}
	}
	doc.VectorChunkIDs = chunkIDs
	return nil
}

func (s *memDocStore) AttachProposal(_ context.Context, id, proposalID string) error {
	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	doc.ProposalID = proposalID
	return nil
}

func (s *memDocStore) ListUnindexed(_ context.Context) ([]documents.Document, error) {
	var out []documents.Document
	for _, doc := range s.docs {
		if len(doc.VectorChunkIDs) == 0 {
			out = append(out, *doc)
		}
	}
	return out, nil
}

// queryCall records the arguments of one VectorIndex.Query invocation.
type queryCall struct {
	topN       int
	proposalID string
}

// memIndex is an in-memory VectorIndex. Query returns scripted results
// when scripted is non-nil (popped per call); otherwise it returns every
// stored record matching the proposal filter.
type memIndex struct {
	records    map[string]vectordb.ChunkRecord
	order      []string
	failUpsert error
	queries    []queryCall
	scripted   [][]vectordb.Hit
}

func newMemIndex() *memIndex {
	return &memIndex{records: map[string]vectordb.ChunkRecord{}}
}

func (x *memIndex) Upsert(_ context.Context, records []vectordb.ChunkRecord) error {
	if x.failUpsert != nil {
		return x.failUpsert
	}
	for _, rec := range records {
		if _, exists := x.records[rec.ID]; !exists {
			x.order = append(x.order, rec.ID)
		}
		x.records[rec.ID] = rec
	}
	return nil
}

func (x *memIndex) Query(_ context.Context, _ []float32, topN int, proposalID string) ([]vectordb.Hit, error) {
	x.queries = append(x.queries, queryCall{topN: topN, proposalID: proposalID})

	if x.scripted != nil {
		if len(x.scripted) == 0 {
			return nil, nil
		}
		hits := x.scripted[0]
		x.scripted = x.scripted[1:]
		return hits, nil
	}

	var hits []vectordb.Hit
	for _, id := range x.order {
		rec := x.records[id]
		if proposalID != "" && rec.Metadata.ProposalID != proposalID {
			continue
		}
		hits = append(hits, vectordb.Hit{Record: rec, Similarity: 0.9})
		if len(hits) == topN {
			break
		}
	}
	return hits, nil
}

func (x *memIndex) GetByDocument(_ context.Context, documentID string) ([]vectordb.ChunkRecord, error) {
	var out []vectordb.ChunkRecord
	for _, id := range x.order {
		if x.records[id].Metadata.DocumentID == documentID {
			out = append(out, x.records[id])
		}
	}
	return out, nil
}

func (x *memIndex) Persist(context.Context, string) error { return nil }
func (x *memIndex) Load(context.Context, string) error    { return nil }
func (x *memIndex) Count() int                            { return len(x.records) }

// stubEmbedder returns fixed-size vectors; failAt >= 0 fails the call
// that includes the text at that running index, mimicking a provider
// rejecting one chunk of a batch.
type stubEmbedder struct {
	dims   int
	failAt int
	seen   int
	calls  int
}

func newStubEmbedder(dims int) *stubEmbedder {
	return &stubEmbedder{dims: dims, failAt: -1}
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		if e.failAt >= 0 && e.seen+i == e.failAt {
			return nil, fmt.Errorf("embedding rejected for chunk %d", e.failAt)
		}
		vec := make([]float32, e.dims)
		vec[(e.seen+i)%e.dims] = 1
		out[i] = vec
	}
	e.seen += len(texts)
	return out, nil
}

func (e *stubEmbedder) Dimensions() int { return e.dims }
func (e *stubEmbedder) Name() string    { return "stub" }

// stubFetcher resolves URLs from a fixed map.
type stubFetcher struct {
	pages map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	text, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("fetch %s: not found", url)
	}
	return text, nil
}

// stubProvider is an llm.Provider returning a canned completion.
type stubProvider struct {
	content string
	calls   int
	fail    error
	prompts []string
}

func (p *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	var userParts []string
	for _, m := range req.Messages {
		if m.Role == llm.RoleUser {
			userParts = append(userParts, m.Content)
		}
	}
	p.prompts = append(p.prompts, strings.Join(userParts, "\n"))
	if p.fail != nil {
		return nil, p.fail
	}
	return &llm.CompletionResponse{Content: p.content}, nil
}

func (p *stubProvider) Name() string { return "stub" }
