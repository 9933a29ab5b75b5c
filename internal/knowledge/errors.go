package knowledge

import (
	"errors"
	"fmt"
)

// Ingestion errors. All of them mean no partial state was left behind,
// except BacklinkError which is documented separately.
var (
	// ErrNoContent means the source resolved to empty text; nothing was
	// written anywhere.
	ErrNoContent = errors.New("knowledge: no content to ingest")

	// ErrNoChunks means chunking produced nothing (whitespace-only
	// content); nothing was written anywhere.
	ErrNoChunks = errors.New("knowledge: content produced no chunks")
)

// Retrieval errors, each mapped to a distinct user-facing message by
// UserMessage so the calling surface can react differently.
var (
	// ErrQuestionEmbedding means the question could not be embedded; no
	// retrieval was attempted.
	ErrQuestionEmbedding = errors.New("knowledge: could not embed question")

	// ErrNoRelevantContent means both the scoped and the widened search
	// came back empty; the completion provider was never called.
	ErrNoRelevantContent = errors.New("knowledge: no relevant content found")

	// ErrNoUsableText means chunks were retrieved but every one of them
	// has empty text; the completion provider was never called.
	ErrNoUsableText = errors.New("knowledge: retrieved chunks contain no usable text")
)

// BacklinkError reports that both stores hold data for the document but
// the confirming chunk-id update failed. Callers must not trust the
// document id until a reindex repairs the link.
type BacklinkError struct {
	DocumentID string
	Err        error
}

func (e *BacklinkError) Error() string {
	return fmt.Sprintf("knowledge: confirming chunk link for document %s: %v", e.DocumentID, e.Err)
}

func (e *BacklinkError) Unwrap() error { return e.Err }

// UserMessage maps retrieval errors to the message shown to end users.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrQuestionEmbedding):
		return "Sorry, I couldn't process that question. Please try rephrasing it."
	case errors.Is(err, ErrNoRelevantContent):
		return "I couldn't find any relevant information for that question."
	case errors.Is(err, ErrNoUsableText):
		return "I found matching documents, but they contain no readable text."
	default:
		return "Something went wrong while answering. Please try again."
	}
}
