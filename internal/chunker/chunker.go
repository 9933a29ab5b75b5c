// Package chunker splits normalized text into overlapping fixed-size
// windows. Chunk boundaries are deterministic: identical input always
// produces identical chunks, which the vector-store chunk identifier
// scheme depends on.
package chunker

import "errors"

// Default window parameters used by the ingestion coordinator.
const (
	DefaultSize    = 1000
	DefaultOverlap = 100
)

// ErrInvalidSize is returned when the requested window size is not positive.
var ErrInvalidSize = errors.New("chunker: size must be positive")

// Split cuts text into windows of size runes, each window starting
// size-overlap runes after the previous one. The final window may be
// shorter than size. Empty input yields no chunks and no error.
//
// An overlap outside [0, size) is clamped to 0 rather than rejected, so
// callers with bad overlap settings degrade to non-overlapping windows.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
