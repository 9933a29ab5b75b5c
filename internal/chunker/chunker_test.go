package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50)

	first, err := Split(text, 100, 20)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	second, err := Split(text, 100, 20)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between calls", i)
		}
	}
}

func TestSplit_NonOverlappingPortionsReconstructText(t *testing.T) {
	text := strings.Repeat("abcdefghij", 37) // 370 runes, not a multiple of the step
	size, overlap := 50, 10

	chunks, err := Split(text, size, overlap)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	var b strings.Builder
	b.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		runes := []rune(c)
		b.WriteString(string(runes[overlap:]))
	}
	if b.String() != text {
		t.Fatal("concatenating non-overlapping portions did not reconstruct the input")
	}
}

func TestSplit_Empty(t *testing.T) {
	chunks, err := Split("", 100, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestSplit_InvalidSize(t *testing.T) {
	if _, err := Split("hello", 0, 0); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	if _, err := Split("hello", -5, 0); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestSplit_OverlapOutOfRangeClampsToZero(t *testing.T) {
	text := strings.Repeat("x", 95)

	clamped, err := Split(text, 10, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	zero, err := Split(text, 10, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	if len(clamped) != len(zero) {
		t.Fatalf("chunk counts differ: %d vs %d", len(clamped), len(zero))
	}
	for i := range clamped {
		if clamped[i] != zero[i] {
			t.Fatalf("chunk %d differs from overlap=0 result", i)
		}
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks, err := Split("Paris is the capital of France.", 1000, 100)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Paris is the capital of France." {
		t.Fatalf("unexpected chunk content: %q", chunks[0])
	}
}

func TestSplit_FinalWindowShorter(t *testing.T) {
	text := strings.Repeat("a", 25)
	chunks, err := Split(text, 10, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2]) != 5 {
		t.Fatalf("expected final chunk of 5 runes, got %d", len(chunks[2]))
	}
}
